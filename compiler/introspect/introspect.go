// Package introspect reads annotated Go declarations and produces the
// ordered parameter descriptors and effect profile the synthesizers
// consume. It is the leaf of the pipeline: it depends only on the host
// toolchain's syntax tree (go/ast) and the diagnostics package.
package introspect

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/weldgen/weld/compiler/errors"
)

// AnnotationPrefix marks a directive comment line, e.g. //weld:register
const AnnotationPrefix = "//weld:"

// ParameterDescriptor is the static record of one constructor or method
// parameter. It is immutable once produced; one per parameter, in
// declaration order (order is significant for positional call sites).
type ParameterDescriptor struct {
	Name         string // declared identifier
	TypeName     string // type expression as written, e.g. "*UserRepository"
	IsOptional   bool   // pointer-typed parameter
	HasDefault   bool   // a //weld:default directive names this parameter
	DefaultValue string // literal text of the declared default, if any
	IsGeneric    bool   // type references a type parameter of the function
}

// EffectProfile describes the constructor or method being wrapped.
// It is propagated unchanged into every synthesized signature that must
// remain call-compatible with the original.
type EffectProfile struct {
	IsAsync bool // first parameter is context.Context
	MayFail bool // last result is error
}

// TargetKind discriminates the declaration kinds the generator accepts.
type TargetKind int

const (
	KindConstructor TargetKind = iota
	KindMethod
)

func (k TargetKind) String() string {
	switch k {
	case KindConstructor:
		return "constructor"
	case KindMethod:
		return "method"
	default:
		return "unknown"
	}
}

// Annotation is one raw //weld: directive line attached to a declaration.
// The directive package parses Args into a typed configuration record.
type Annotation struct {
	Name string // directive name, e.g. "register", "retry"
	Args string // raw argument text after the directive name
	Line int    // source line of the comment
}

// Target describes one annotated declaration ready for classification
// and synthesis.
type Target struct {
	Kind        TargetKind
	Name        string // constructor function name or method name
	TypeName    string // constructed type (constructors) or receiver base type (methods)
	ReceiverVar string // receiver identifier for methods, e.g. "s"
	ReceiverPtr bool   // receiver is a pointer for methods
	Package     string
	File        string
	Location    errors.SourceLocation
	Annotations []Annotation
	Params      []ParameterDescriptor
	CtxParam    string   // name of the leading context.Context parameter, "" if none
	Results     []string // result type expressions, in order
	Effects     EffectProfile
}

// Package holds everything the later phases need about one scanned
// directory: the annotated targets plus the set of interface type names
// declared locally (used by the classifier's interface rule).
type Package struct {
	Name       string
	Dir        string
	Fset       *token.FileSet
	Targets    []Target
	Interfaces map[string]bool
}

// GeneratedSuffix is the default file name suffix of generated
// companion files, which the scanner never reads back.
const GeneratedSuffix = "_weld.go"

// ScanDir parses every non-test, non-generated Go file in dir and
// returns the annotated targets found. Problems that abort a single
// declaration are reported as diagnostics; the scan itself continues.
func ScanDir(dir string) (*Package, []errors.Diagnostic) {
	return ScanDirSkipping(dir, GeneratedSuffix)
}

// ScanDirSkipping is ScanDir with a project-configured generated-file
// suffix, so a custom generate suffix keeps repeated runs idempotent.
func ScanDirSkipping(dir, generatedSuffix string) (*Package, []errors.Diagnostic) {
	var diags []errors.Diagnostic
	if generatedSuffix == "" {
		generatedSuffix = GeneratedSuffix
	}

	fset := token.NewFileSet()
	pkgs, err := parser.ParseDir(fset, dir, func(fi os.FileInfo) bool {
		name := fi.Name()
		return !strings.HasSuffix(name, "_test.go") && !strings.HasSuffix(name, generatedSuffix)
	}, parser.ParseComments)
	if err != nil {
		diags = append(diags, errors.New("introspect", errors.ErrUnreadableSource,
			fmt.Sprintf("cannot parse %s: %v", dir, err),
			errors.SourceLocation{File: dir}, errors.Error))
		return nil, diags
	}

	for _, astPkg := range pkgs {
		if strings.HasSuffix(astPkg.Name, "_test") {
			continue
		}
		pkg := &Package{
			Name:       astPkg.Name,
			Dir:        dir,
			Fset:       fset,
			Interfaces: make(map[string]bool),
		}
		scanDiags := pkg.scan(astPkg)
		diags = append(diags, scanDiags...)
		return pkg, diags
	}

	return nil, diags
}

// scan walks one parsed package and builds the target list.
func (p *Package) scan(astPkg *ast.Package) []errors.Diagnostic {
	var diags []errors.Diagnostic

	// First pass: interface declarations and plain functions, so an
	// annotated type can find its constructor regardless of file order.
	funcs := make(map[string]*ast.FuncDecl)
	funcFiles := make(map[string]string)
	for path, file := range astPkg.Files {
		for _, decl := range file.Decls {
			switch d := decl.(type) {
			case *ast.FuncDecl:
				if d.Recv == nil {
					funcs[d.Name.Name] = d
					funcFiles[d.Name.Name] = path
				}
			case *ast.GenDecl:
				for _, spec := range d.Specs {
					ts, ok := spec.(*ast.TypeSpec)
					if !ok {
						continue
					}
					if _, isIface := ts.Type.(*ast.InterfaceType); isIface {
						p.Interfaces[ts.Name.Name] = true
					}
				}
			}
		}
	}

	// Second pass: annotated declarations, in deterministic file order.
	paths := make([]string, 0, len(astPkg.Files))
	for path := range astPkg.Files {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		file := astPkg.Files[path]
		for _, decl := range file.Decls {
			switch d := decl.(type) {
			case *ast.FuncDecl:
				anns := annotationsFrom(d.Doc, p.Fset)
				if len(anns) == 0 {
					continue
				}
				if d.Recv != nil {
					p.Targets = append(p.Targets, p.methodTarget(d, path, anns))
				} else {
					target, diag := p.constructorTarget(d, path, anns)
					if diag != nil {
						diags = append(diags, *diag)
						continue
					}
					p.Targets = append(p.Targets, target)
				}
			case *ast.GenDecl:
				target, diag := p.typeTarget(d, path, funcs, funcFiles)
				if diag != nil {
					diags = append(diags, *diag)
					continue
				}
				if target != nil {
					p.Targets = append(p.Targets, *target)
				}
			}
		}
	}

	return diags
}

// constructorTarget builds a Target from an annotated constructor-like
// function. The constructed type is the first non-error result.
func (p *Package) constructorTarget(d *ast.FuncDecl, path string, anns []Annotation) (Target, *errors.Diagnostic) {
	loc := p.location(path, d.Pos())

	typeName := constructedType(d.Type)
	if typeName == "" {
		diag := errors.New("introspect", errors.ErrUnsupportedDeclaration,
			fmt.Sprintf("function %s does not construct a named type", d.Name.Name),
			loc, errors.Error).
			WithDeclaration(d.Name.Name).
			WithSuggestion("a constructor must return the constructed type, optionally followed by error")
		return Target{}, &diag
	}

	t := Target{
		Kind:        KindConstructor,
		Name:        d.Name.Name,
		TypeName:    typeName,
		Package:     p.Name,
		File:        path,
		Location:    loc,
		Annotations: anns,
	}
	p.fillSignature(&t, d.Type)
	applyDefaults(&t)
	return t, nil
}

// methodTarget builds a Target from an annotated method declaration.
func (p *Package) methodTarget(d *ast.FuncDecl, path string, anns []Annotation) Target {
	recvVar, recvType, recvPtr := receiverInfo(d.Recv)
	t := Target{
		Kind:        KindMethod,
		Name:        d.Name.Name,
		TypeName:    recvType,
		ReceiverVar: recvVar,
		ReceiverPtr: recvPtr,
		Package:     p.Name,
		File:        path,
		Location:    p.location(path, d.Pos()),
		Annotations: anns,
	}
	p.fillSignature(&t, d.Type)
	applyDefaults(&t)
	return t
}

// typeTarget handles annotations attached to a type declaration: the
// type's constructor New<Type> is located and its signature introspected.
// A missing constructor is a hard error and no target is produced.
func (p *Package) typeTarget(d *ast.GenDecl, path string, funcs map[string]*ast.FuncDecl, funcFiles map[string]string) (*Target, *errors.Diagnostic) {
	anns := annotationsFrom(d.Doc, p.Fset)
	if len(anns) == 0 {
		return nil, nil
	}

	loc := p.location(path, d.Pos())

	if d.Tok != token.TYPE {
		diag := errors.New("introspect", errors.ErrUnsupportedDeclaration,
			fmt.Sprintf("weld directives are not supported on %s declarations", d.Tok),
			loc, errors.Error).
			WithSuggestion("attach the directive to a struct type, a constructor function, or a method")
		return nil, &diag
	}

	ts, ok := d.Specs[0].(*ast.TypeSpec)
	if !ok {
		diag := errors.New("introspect", errors.ErrUnsupportedDeclaration,
			"weld directives require a single named type declaration", loc, errors.Error)
		return nil, &diag
	}

	if _, isStruct := ts.Type.(*ast.StructType); !isStruct {
		diag := errors.New("introspect", errors.ErrUnsupportedDeclaration,
			fmt.Sprintf("weld directives are not supported on %s declarations", typeKind(ts.Type)),
			loc, errors.Error).
			WithDeclaration(ts.Name.Name)
		return nil, &diag
	}

	ctorName := "New" + ts.Name.Name
	ctor, found := funcs[ctorName]
	if !found {
		diag := errors.New("introspect", errors.ErrNoConstructor,
			fmt.Sprintf("no constructor found for %s", ts.Name.Name),
			loc, errors.Error).
			WithDeclaration(ts.Name.Name).
			WithSuggestion(fmt.Sprintf("declare func %s(...) *%s", ctorName, ts.Name.Name))
		return nil, &diag
	}

	t := Target{
		Kind:        KindConstructor,
		Name:        ctorName,
		TypeName:    ts.Name.Name,
		Package:     p.Name,
		File:        funcFiles[ctorName],
		Location:    loc,
		Annotations: anns,
	}
	p.fillSignature(&t, ctor.Type)
	applyDefaults(&t)
	return &t, nil
}

// fillSignature populates Params, Results, CtxParam and Effects from a
// function type, preserving declaration order.
func (p *Package) fillSignature(t *Target, ft *ast.FuncType) {
	typeParams := make(map[string]bool)
	if ft.TypeParams != nil {
		for _, f := range ft.TypeParams.List {
			for _, name := range f.Names {
				typeParams[name.Name] = true
			}
		}
	}

	first := true
	if ft.Params != nil {
		for _, field := range ft.Params.List {
			typeName := ExprString(field.Type)
			names := field.Names
			if len(names) == 0 {
				names = []*ast.Ident{{Name: ""}}
			}
			for _, name := range names {
				if first && typeName == "context.Context" {
					t.CtxParam = name.Name
					t.Effects.IsAsync = true
					first = false
					continue
				}
				first = false
				t.Params = append(t.Params, ParameterDescriptor{
					Name:       name.Name,
					TypeName:   typeName,
					IsOptional: strings.HasPrefix(typeName, "*"),
					IsGeneric:  referencesTypeParam(field.Type, typeParams),
				})
			}
		}
	}

	if ft.Results != nil {
		for _, field := range ft.Results.List {
			n := len(field.Names)
			if n == 0 {
				n = 1
			}
			for i := 0; i < n; i++ {
				t.Results = append(t.Results, ExprString(field.Type))
			}
		}
	}
	if len(t.Results) > 0 && t.Results[len(t.Results)-1] == "error" {
		t.Effects.MayFail = true
	}
}

// applyDefaults folds //weld:default annotations into the descriptors.
// Presence of a default is independent of pointer optionality.
func applyDefaults(t *Target) {
	for _, ann := range t.Annotations {
		if ann.Name != "default" {
			continue
		}
		for _, pair := range strings.Fields(ann.Args) {
			key, value, ok := strings.Cut(pair, "=")
			if !ok {
				continue
			}
			for i := range t.Params {
				if t.Params[i].Name == key {
					t.Params[i].HasDefault = true
					t.Params[i].DefaultValue = value
				}
			}
		}
	}
}

// annotationsFrom extracts //weld: lines from a doc comment group.
func annotationsFrom(doc *ast.CommentGroup, fset *token.FileSet) []Annotation {
	if doc == nil {
		return nil
	}
	var anns []Annotation
	for _, c := range doc.List {
		text := c.Text
		if !strings.HasPrefix(text, AnnotationPrefix) {
			continue
		}
		rest := strings.TrimPrefix(text, AnnotationPrefix)
		name, args, _ := strings.Cut(rest, " ")
		anns = append(anns, Annotation{
			Name: strings.TrimSpace(name),
			Args: strings.TrimSpace(args),
			Line: fset.Position(c.Pos()).Line,
		})
	}
	return anns
}

// constructedType returns the base name of the first non-error result,
// or "" if the function does not look like a constructor.
func constructedType(ft *ast.FuncType) string {
	if ft.Results == nil || len(ft.Results.List) == 0 {
		return ""
	}
	expr := ft.Results.List[0].Type
	if star, ok := expr.(*ast.StarExpr); ok {
		expr = star.X
	}
	ident, ok := expr.(*ast.Ident)
	if !ok || ident.Name == "error" {
		return ""
	}
	return ident.Name
}

// receiverInfo extracts the receiver variable, base type name and
// pointer-ness from a method's receiver list.
func receiverInfo(recv *ast.FieldList) (string, string, bool) {
	if recv == nil || len(recv.List) == 0 {
		return "", "", false
	}
	field := recv.List[0]
	name := ""
	if len(field.Names) > 0 {
		name = field.Names[0].Name
	}
	expr := field.Type
	ptr := false
	if star, ok := expr.(*ast.StarExpr); ok {
		ptr = true
		expr = star.X
	}
	// Generic receivers appear as IndexExpr, e.g. Cache[T]
	switch e := expr.(type) {
	case *ast.Ident:
		return name, e.Name, ptr
	case *ast.IndexExpr:
		if ident, ok := e.X.(*ast.Ident); ok {
			return name, ident.Name, ptr
		}
	}
	return name, ExprString(expr), ptr
}

// referencesTypeParam reports whether the type expression mentions any
// of the function's type parameters.
func referencesTypeParam(expr ast.Expr, typeParams map[string]bool) bool {
	if len(typeParams) == 0 {
		return false
	}
	found := false
	ast.Inspect(expr, func(n ast.Node) bool {
		if ident, ok := n.(*ast.Ident); ok && typeParams[ident.Name] {
			found = true
			return false
		}
		return true
	})
	return found
}

// ExprString renders a type expression back to source text.
func ExprString(expr ast.Expr) string {
	switch e := expr.(type) {
	case *ast.Ident:
		return e.Name
	case *ast.StarExpr:
		return "*" + ExprString(e.X)
	case *ast.SelectorExpr:
		return ExprString(e.X) + "." + e.Sel.Name
	case *ast.ArrayType:
		if e.Len == nil {
			return "[]" + ExprString(e.Elt)
		}
		return "[" + ExprString(e.Len) + "]" + ExprString(e.Elt)
	case *ast.MapType:
		return "map[" + ExprString(e.Key) + "]" + ExprString(e.Value)
	case *ast.Ellipsis:
		return "..." + ExprString(e.Elt)
	case *ast.ChanType:
		return "chan " + ExprString(e.Value)
	case *ast.IndexExpr:
		return ExprString(e.X) + "[" + ExprString(e.Index) + "]"
	case *ast.IndexListExpr:
		parts := make([]string, len(e.Indices))
		for i, idx := range e.Indices {
			parts[i] = ExprString(idx)
		}
		return ExprString(e.X) + "[" + strings.Join(parts, ", ") + "]"
	case *ast.InterfaceType:
		if e.Methods == nil || len(e.Methods.List) == 0 {
			return "any"
		}
		return "interface{...}"
	case *ast.FuncType:
		return "func(...)"
	case *ast.BasicLit:
		return e.Value
	default:
		return fmt.Sprintf("%T", expr)
	}
}

// typeKind names a type expression kind for diagnostics.
func typeKind(expr ast.Expr) string {
	switch expr.(type) {
	case *ast.InterfaceType:
		return "interface"
	case *ast.MapType:
		return "map type"
	case *ast.ArrayType:
		return "slice type"
	case *ast.FuncType:
		return "function type"
	default:
		return "non-struct type"
	}
}

// location converts a token position to a diagnostic source location.
func (p *Package) location(path string, pos token.Pos) errors.SourceLocation {
	position := p.Fset.Position(pos)
	return errors.SourceLocation{
		File:   filepath.ToSlash(path),
		Line:   position.Line,
		Column: position.Column,
	}
}
