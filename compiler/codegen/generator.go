// Package codegen synthesizes the companion declarations for annotated
// targets: registration functions, factories, and resilience decorator
// methods. It transforms classified descriptors plus directive
// configuration into formatted Go source.
package codegen

import (
	"bytes"
	"fmt"
	"go/format"
	"sort"
	"strings"

	"github.com/weldgen/weld/compiler/classify"
	"github.com/weldgen/weld/compiler/directive"
	"github.com/weldgen/weld/compiler/errors"
	"github.com/weldgen/weld/compiler/introspect"
	utilstrings "github.com/weldgen/weld/internal/util/strings"
)

// Module paths the generated code resolves its runtime against.
const (
	resolveImport    = "github.com/weldgen/weld/runtime/resolve"
	resilienceImport = "github.com/weldgen/weld/runtime/resilience"
)

// defaultHeader is the banner written at the top of every generated
// file unless weld.yml overrides it.
const defaultHeader = "// Code generated by weld. DO NOT EDIT."

// Generator transforms classified targets into Go code
type Generator struct {
	classifier *classify.Classifier
	header     string

	body    *bytes.Buffer
	indent  int
	imports map[string]bool
}

// Option customizes a Generator.
type Option func(*Generator)

// WithClassifier substitutes the default classifier, typically to apply
// project-specific suffixes and allowlist entries from weld.yml.
func WithClassifier(c *classify.Classifier) Option {
	return func(g *Generator) {
		g.classifier = c
	}
}

// WithHeader replaces the generated-code banner. The empty string
// keeps the default.
func WithHeader(header string) Option {
	return func(g *Generator) {
		if header != "" {
			g.header = header
		}
	}
}

// New creates a new code generator
func New(opts ...Option) *Generator {
	g := &Generator{
		classifier: classify.New(),
		header:     defaultHeader,
		body:       &bytes.Buffer{},
		imports:    make(map[string]bool),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// File is one generated output file.
type File struct {
	Name    string // file name within the package directory, e.g. "services_weld.go"
	Content string
}

// GeneratePackage synthesizes companion declarations for every target
// in the package. A generation-time error aborts only the declaration
// it belongs to; the rest of the package still generates. A nil File
// means nothing was generated.
func (g *Generator) GeneratePackage(pkg *introspect.Package) (*File, []errors.Diagnostic) {
	var diags []errors.Diagnostic

	classifier := g.classifier.WithPackageInterfaces(pkg.Interfaces)

	g.reset()
	emitted := 0

	for _, t := range pkg.Targets {
		set, dirDiags := directive.Parse(t)
		diags = append(diags, dirDiags...)
		if hasErrors(dirDiags) {
			continue
		}

		cats := classifier.ClassifyAll(t)
		diags = append(diags, classifier.CheckSelfDependency(t, cats)...)

		kindDiags := checkDirectiveKinds(t, set)
		if len(kindDiags) > 0 {
			diags = append(diags, kindDiags...)
			continue
		}

		if set.Registration != nil {
			diags = append(diags, g.generateRegistration(t, cats, *set.Registration)...)
			emitted++
		}
		if set.Factory != nil {
			warn := g.generateFactory(t, cats, *set.Factory)
			if warn != nil {
				diags = append(diags, *warn)
			}
			emitted++
		}
		if set.Retry != nil {
			if diag := g.generateRetry(t, *set.Retry); diag != nil {
				diags = append(diags, *diag)
			} else {
				emitted++
			}
		}
		if set.Cache != nil {
			if diag := g.generateCache(t, *set.Cache); diag != nil {
				diags = append(diags, *diag)
			} else {
				emitted++
			}
		}
		if set.Breaker != nil {
			if diag := g.generateBreaker(t, *set.Breaker); diag != nil {
				diags = append(diags, *diag)
			} else {
				emitted++
			}
		}
		if set.Timed != nil {
			g.generateTimed(t, *set.Timed)
			emitted++
		}
		if set.Intercept != nil {
			g.generateIntercept(t, *set.Intercept)
			emitted++
		}
	}

	if emitted == 0 {
		return nil, diags
	}

	content, err := g.assemble(pkg.Name)
	if err != nil {
		diags = append(diags, errors.New("codegen", errors.ErrFormatFailed,
			fmt.Sprintf("generated code for package %s does not format: %v", pkg.Name, err),
			errors.SourceLocation{File: pkg.Dir}, errors.Error))
		return nil, diags
	}

	return &File{
		Name:    pkg.Name + "_weld.go",
		Content: content,
	}, diags
}

// checkDirectiveKinds rejects directives attached to the wrong
// declaration kind: wiring directives belong on constructors,
// decorator directives on methods.
func checkDirectiveKinds(t introspect.Target, set directive.Set) []errors.Diagnostic {
	var diags []errors.Diagnostic

	wrongKind := func(name, wanted string) errors.Diagnostic {
		return errors.New("codegen", errors.ErrUnsupportedDeclaration,
			fmt.Sprintf("//weld:%s applies to %s declarations, but %s is a %s", name, wanted, t.Name, t.Kind),
			t.Location, errors.Error).
			WithDeclaration(t.Name)
	}

	if t.Kind == introspect.KindMethod {
		if set.Registration != nil {
			diags = append(diags, wrongKind("register", "constructor"))
		}
		if set.Factory != nil {
			diags = append(diags, wrongKind("factory", "constructor"))
		}
	}
	if t.Kind == introspect.KindConstructor {
		if set.Retry != nil {
			diags = append(diags, wrongKind("retry", "method"))
		}
		if set.Cache != nil {
			diags = append(diags, wrongKind("cache", "method"))
		}
		if set.Breaker != nil {
			diags = append(diags, wrongKind("breaker", "method"))
		}
		if set.Timed != nil {
			diags = append(diags, wrongKind("timed", "method"))
		}
		if set.Intercept != nil {
			diags = append(diags, wrongKind("intercept", "method"))
		}
	}
	return diags
}

// reset clears the generator state
func (g *Generator) reset() {
	g.body.Reset()
	g.indent = 0
	g.imports = make(map[string]bool)
}

// assemble prepends the header and import block to the generated body
// and formats the result.
func (g *Generator) assemble(pkgName string) (string, error) {
	var buf bytes.Buffer
	buf.WriteString(g.header + "\n\n")
	buf.WriteString("package " + pkgName + "\n\n")

	if len(g.imports) > 0 {
		buf.WriteString(g.formatImports())
		buf.WriteString("\n")
	}

	buf.Write(g.body.Bytes())

	formatted, err := format.Source(buf.Bytes())
	if err != nil {
		return "", err
	}
	return string(formatted), nil
}

// formatImports renders the import block, stdlib first.
func (g *Generator) formatImports() string {
	var stdlib []string
	var external []string
	for imp := range g.imports {
		if strings.Contains(imp, ".") {
			external = append(external, imp)
		} else {
			stdlib = append(stdlib, imp)
		}
	}
	sort.Strings(stdlib)
	sort.Strings(external)

	var buf bytes.Buffer
	buf.WriteString("import (\n")
	for _, imp := range stdlib {
		buf.WriteString(fmt.Sprintf("\t%q\n", imp))
	}
	if len(stdlib) > 0 && len(external) > 0 {
		buf.WriteString("\n")
	}
	for _, imp := range external {
		buf.WriteString(fmt.Sprintf("\t%q\n", imp))
	}
	buf.WriteString(")\n")
	return buf.String()
}

// writeLine writes a formatted line with proper indentation
func (g *Generator) writeLine(format string, args ...interface{}) {
	if format == "" {
		g.body.WriteString("\n")
		return
	}
	for i := 0; i < g.indent; i++ {
		g.body.WriteString("\t")
	}
	if len(args) > 0 {
		g.body.WriteString(fmt.Sprintf(format, args...))
	} else {
		g.body.WriteString(format)
	}
	g.body.WriteString("\n")
}

// addImport records an import needed by the generated code.
func (g *Generator) addImport(path string) {
	g.imports[path] = true
}

// collectTypeImports records imports implied by a type expression
// appearing in a generated signature, e.g. time.Duration or
// context.Context. Only stdlib qualifiers the generator understands are
// mapped; package-local types need no import.
func (g *Generator) collectTypeImports(typeName string) {
	base := strings.TrimLeft(typeName, "*[].")
	qualifier, _, found := strings.Cut(base, ".")
	if !found {
		return
	}
	switch qualifier {
	case "context", "time", "url", "io", "http", "fmt", "strings", "os":
		if qualifier == "http" {
			g.addImport("net/http")
		} else if qualifier == "url" {
			g.addImport("net/url")
		} else {
			g.addImport(qualifier)
		}
	}
}

func hasErrors(diags []errors.Diagnostic) bool {
	for _, d := range diags {
		if d.IsError() {
			return true
		}
	}
	return false
}

// methodIdentity is the stable key for per-method runtime state.
func methodIdentity(t introspect.Target) string {
	return t.Package + "." + t.TypeName + "." + t.Name
}

// configVarName names the package-level config var for one decorator,
// prefixed with the receiver type to stay unique within the package.
func configVarName(t introspect.Target, decorator string) string {
	return utilstrings.LowerFirst(t.TypeName) + t.Name + decorator + "Config"
}

// paramName returns the declared parameter name, or a positional
// fallback for unnamed parameters.
func paramName(d introspect.ParameterDescriptor, idx int) string {
	if d.Name != "" && d.Name != "_" {
		return d.Name
	}
	return fmt.Sprintf("p%d", idx)
}

// receiverDecl renders the wrapper's receiver, matching the original
// method's pointer-ness.
func receiverDecl(t introspect.Target) string {
	recv := t.ReceiverVar
	if recv == "" || recv == "_" {
		recv = strings.ToLower(t.TypeName[:1])
	}
	if t.ReceiverPtr {
		return fmt.Sprintf("(%s *%s)", recv, t.TypeName)
	}
	return fmt.Sprintf("(%s %s)", recv, t.TypeName)
}

// receiverName returns the receiver identifier used inside wrappers.
func receiverName(t introspect.Target) string {
	if t.ReceiverVar != "" && t.ReceiverVar != "_" {
		return t.ReceiverVar
	}
	return strings.ToLower(t.TypeName[:1])
}

// signatureParams renders the wrapper parameter list: the original
// context parameter first when present, then every descriptor in
// declaration order.
func (g *Generator) signatureParams(t introspect.Target) string {
	var parts []string
	if t.Effects.IsAsync {
		name := t.CtxParam
		if name == "" || name == "_" {
			name = "ctx"
		}
		parts = append(parts, name+" context.Context")
		g.addImport("context")
	}
	for i, d := range t.Params {
		parts = append(parts, paramName(d, i)+" "+d.TypeName)
		g.collectTypeImports(d.TypeName)
	}
	return strings.Join(parts, ", ")
}

// callArgs renders the argument list forwarding the wrapper's
// parameters to the original method, expanding variadics.
func callArgs(t introspect.Target) string {
	var parts []string
	if t.Effects.IsAsync {
		name := t.CtxParam
		if name == "" || name == "_" {
			name = "ctx"
		}
		parts = append(parts, name)
	}
	for i, d := range t.Params {
		arg := paramName(d, i)
		if strings.HasPrefix(d.TypeName, "...") {
			arg += "..."
		}
		parts = append(parts, arg)
	}
	return strings.Join(parts, ", ")
}

// keyArgs renders the argument values contributing to a cache key or
// invocation record: every parameter except the context.
func keyArgs(t introspect.Target) string {
	var parts []string
	for i, d := range t.Params {
		if strings.HasPrefix(d.TypeName, "...") {
			// Variadic tails are passed as the slice value.
			parts = append(parts, paramName(d, i))
			continue
		}
		parts = append(parts, paramName(d, i))
	}
	return strings.Join(parts, ", ")
}

// resultType returns the single non-error result type of a method
// target, "" when the method only returns error or nothing.
func resultType(t introspect.Target) string {
	results := t.Results
	if t.Effects.MayFail {
		results = results[:len(results)-1]
	}
	if len(results) == 1 {
		return results[0]
	}
	return ""
}

// tooManyResults reports whether a method has more than one non-error
// result, which the decorator synthesizers do not support.
func tooManyResults(t introspect.Target) bool {
	n := len(t.Results)
	if t.Effects.MayFail {
		n--
	}
	return n > 1
}

// unsupportedSignature builds the shared diagnostic for decorator
// targets the synthesizer cannot wrap.
func unsupportedSignature(t introspect.Target, decorator, why string) *errors.Diagnostic {
	d := errors.New("codegen", errors.ErrUnsupportedDeclaration,
		fmt.Sprintf("//weld:%s cannot wrap %s: %s", decorator, t.Name, why),
		t.Location, errors.Error).
		WithDeclaration(t.Name)
	return &d
}
