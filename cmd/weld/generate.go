package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/weldgen/weld/compiler/classify"
	"github.com/weldgen/weld/compiler/codegen"
	"github.com/weldgen/weld/compiler/directive"
	"github.com/weldgen/weld/compiler/errors"
	"github.com/weldgen/weld/compiler/introspect"
	"github.com/weldgen/weld/internal/cli/config"
	"github.com/weldgen/weld/internal/cli/ui"
)

var (
	generateJSON    bool
	generateVerbose bool
	generateDryRun  bool
)

func init() {
	generateCmd.Flags().BoolVar(&generateJSON, "json", false, "Output diagnostics in JSON format")
	generateCmd.Flags().BoolVar(&generateVerbose, "verbose", false, "Show detailed generation output")
	generateCmd.Flags().BoolVar(&generateDryRun, "dry-run", false, "Report what would be generated without writing files")
}

var generateCmd = &cobra.Command{
	Use:   "generate [packages]",
	Short: "Generate registration, factory, and decorator code",
	Long: `Scan the given package directories for //weld: annotations and write
a companion file per package. Directories ending in /... are walked
recursively. With no arguments the packages from weld.yml are used,
falling back to the current directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		startTime := time.Now()
		log := newLogger(generateVerbose)
		defer log.Sync()

		cfg, err := config.Load()
		if err != nil {
			fmt.Fprint(os.Stderr, ui.ConfigError(err.Error(), nil, false))
			return fmt.Errorf("configuration failed")
		}

		dirs, err := resolvePackageDirs(args, cfg)
		if err != nil {
			return err
		}
		if len(dirs) == 0 {
			return fmt.Errorf("no Go packages found")
		}

		log.Debug("resolved packages", zap.Int("count", len(dirs)))

		var results []packageResult
		if generateJSON || generateVerbose {
			results = runPipeline(dirs, cfg)
		} else {
			_ = ui.WithSpinner(os.Stdout, fmt.Sprintf("Scanning %d package(s)", len(dirs)), false, func() error {
				results = runPipeline(dirs, cfg)
				return nil
			})
		}

		var list errors.List
		written := 0
		skipped := 0
		for _, res := range results {
			list.Add(res.Diags...)
			if res.File == nil {
				skipped++
				continue
			}
			if errors.HasErrors(res.Diags) {
				continue
			}
			if generateDryRun {
				fmt.Printf("would write %s\n", filepath.Join(res.Dir, res.File.Name))
				continue
			}
			path := filepath.Join(res.Dir, res.File.Name)
			if err := os.WriteFile(path, []byte(res.File.Content), 0644); err != nil {
				return fmt.Errorf("failed to write %s: %w", path, err)
			}
			written++
			log.Debug("wrote generated file",
				zap.String("path", path),
				zap.Int("targets", res.Targets))
		}

		reportDiagnostics(list.All(), generateJSON)

		if list.HasErrors() {
			return fmt.Errorf("generation failed")
		}

		if !generateJSON {
			elapsed := time.Since(startTime)
			ui.WriteSuccess(os.Stdout, fmt.Sprintf("Generated %d file(s) in %.2fs", written, elapsed.Seconds()), false)
			if generateVerbose {
				summary := ui.NewKeyValueTable(os.Stdout, false)
				summary.AddRow("Packages scanned", strconv.Itoa(len(results)))
				summary.AddRow("Packages skipped", strconv.Itoa(skipped))
				summary.AddRow("Files written", strconv.Itoa(written))
				summary.AddRow("Warnings", strconv.Itoa(list.WarningCount()))
				summary.Render()
			}
		}
		return nil
	},
}

// packageResult is the per-directory outcome of one pipeline run.
type packageResult struct {
	Dir     string
	Targets int
	File    *codegen.File
	Diags   []errors.Diagnostic
}

// runPipeline scans and generates every directory concurrently.
// Results come back ordered by directory so output is deterministic.
func runPipeline(dirs []string, cfg *config.Config) []packageResult {
	gen := func() *codegen.Generator {
		return codegen.New(
			codegen.WithClassifier(classify.New(
				classify.WithServiceSuffixes(cfg.Classify.ServiceSuffixes...),
				classify.WithPrimitives(cfg.Classify.Primitives...),
			)),
			codegen.WithHeader(cfg.Generate.Header),
		)
	}

	var (
		mu      sync.Mutex
		results []packageResult
	)

	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())

	for _, dir := range dirs {
		dir := dir
		g.Go(func() error {
			res := packageResult{Dir: dir}

			pkg, diags := introspect.ScanDirSkipping(dir, cfg.Generate.Suffix)
			res.Diags = append(res.Diags, diags...)
			if pkg != nil && len(pkg.Targets) > 0 {
				res.Targets = len(pkg.Targets)
				file, genDiags := gen().GeneratePackage(pkg)
				res.Diags = append(res.Diags, genDiags...)
				if file != nil && cfg.Generate.Suffix != "" {
					file.Name = pkg.Name + cfg.Generate.Suffix
				}
				res.File = file
			}

			mu.Lock()
			results = append(results, res)
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].Dir < results[j].Dir })
	return results
}

// resolvePackageDirs turns command arguments into package directories.
// An argument ending in /... walks its subtree for directories that
// contain Go files.
func resolvePackageDirs(args []string, cfg *config.Config) ([]string, error) {
	if len(args) == 0 {
		args = cfg.Generate.Packages
	}
	if len(args) == 0 {
		args = []string{"."}
	}

	seen := make(map[string]bool)
	var dirs []string
	add := func(dir string) {
		dir = filepath.Clean(dir)
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}

	for _, arg := range args {
		root, recursive := strings.CutSuffix(arg, "/...")
		if arg == "..." {
			root, recursive = ".", true
		}
		if !recursive {
			add(root)
			continue
		}
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() {
				return nil
			}
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") ||
				name == "vendor" || name == "testdata") {
				return filepath.SkipDir
			}
			if hasGoFiles(path) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", root, err)
		}
	}
	return dirs, nil
}

func hasGoFiles(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".go") {
			return true
		}
	}
	return false
}

// reportDiagnostics prints collected diagnostics to stderr, enriching
// unknown-directive errors with close-match suggestions.
func reportDiagnostics(diags []errors.Diagnostic, asJSON bool) {
	if len(diags) == 0 {
		return
	}

	if asJSON {
		out, err := errors.FormatListAsJSON(diags)
		if err == nil {
			fmt.Fprintln(os.Stdout, out)
		}
		return
	}

	for i := range diags {
		if diags[i].Code != errors.ErrUnknownDirective {
			continue
		}
		if name, ok := unknownDirectiveName(diags[i].Message); ok {
			if matches := ui.FindSimilar(name, directive.Names()); len(matches) > 0 {
				diags[i].Suggestion = "did you mean //weld:" + strings.Join(matches, " or //weld:") + "?"
			}
		}
	}

	fmt.Fprint(os.Stderr, errors.FormatListForTerminal(diags))
}

// unknownDirectiveName pulls the directive name out of an E100 message
// of the form `unknown directive //weld:name`.
func unknownDirectiveName(message string) (string, bool) {
	_, name, found := strings.Cut(message, "//weld:")
	if !found || name == "" {
		return "", false
	}
	return strings.Fields(name)[0], true
}
