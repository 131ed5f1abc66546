package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/weldgen/weld/compiler/errors"
	"github.com/weldgen/weld/internal/cli/config"
	"github.com/weldgen/weld/internal/cli/ui"
)

var vetJSON bool

func init() {
	vetCmd.Flags().BoolVar(&vetJSON, "json", false, "Output diagnostics in JSON format")
}

var vetCmd = &cobra.Command{
	Use:   "vet [packages]",
	Short: "Check annotations without writing files",
	Long: `Run the full generation pipeline over the given packages and report
every diagnostic, but write nothing. Exits non-zero when any
annotation would fail generation.

Directives: register, factory, retry, cache, breaker, timed,
intercept, default, optional.`,
	RunE: func(cmd *cobra.Command, args []string) error {
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

		results := runPipeline(dirs, cfg)

		var list errors.List
		table := ui.NewTable(os.Stdout, []string{"Package", "Targets", "Diagnostics"}, nil)
		for _, res := range results {
			list.Add(res.Diags...)
			if res.Targets == 0 && len(res.Diags) == 0 {
				continue
			}
			table.AddRow(res.Dir, strconv.Itoa(res.Targets), strconv.Itoa(len(res.Diags)))
		}

		reportDiagnostics(list.All(), vetJSON)

		if !vetJSON {
			table.Render()
		}

		if list.HasErrors() {
			return fmt.Errorf("vet found %d error(s)", list.ErrorCount())
		}
		return nil
	},
}
