package codegen

import (
	"fmt"
	"strings"

	"github.com/weldgen/weld/compiler/classify"
	"github.com/weldgen/weld/compiler/directive"
	"github.com/weldgen/weld/compiler/errors"
	"github.com/weldgen/weld/compiler/introspect"
	utilstrings "github.com/weldgen/weld/internal/util/strings"
)

// generateFactory partitions the constructor's descriptors into
// injected and runtime sets and emits a factory interface plus a
// resolver-backed implementation. The factory method takes exactly the
// runtime parameters, order preserved, and carries the constructor's
// effect profile (optionally widened by directive overrides).
func (g *Generator) generateFactory(t introspect.Target, cats []classify.Category, cfg directive.FactoryConfig) *errors.Diagnostic {
	g.addImport(resolveImport)

	// A directive-supplied name is normalized to an exported
	// identifier so the interface stays usable outside the package.
	factoryName := utilstrings.UpperFirst(cfg.FactoryName)
	if factoryName == "" {
		factoryName = t.TypeName + "Factory"
	}
	implName := utilstrings.LowerFirst(factoryName)
	methodName := "Make" + t.TypeName
	returnType := t.Results[0]

	async := t.Effects.IsAsync
	if cfg.Async != nil && *cfg.Async {
		async = true
	}
	mayFail := t.Effects.MayFail
	if cfg.MayFail != nil && *cfg.MayFail {
		mayFail = true
	}

	var runtime []int
	var injected []int
	for i, c := range cats {
		if c.IsInjected() {
			injected = append(injected, i)
		} else {
			runtime = append(runtime, i)
		}
	}

	var warn *errors.Diagnostic
	if len(runtime) == 0 {
		d := errors.New("codegen", errors.WarnSuperfluousFactory,
			fmt.Sprintf("%s has no runtime parameters; a factory adds nothing over a registration", t.Name),
			t.Location, errors.Warning).
			WithDeclaration(t.Name).
			WithSuggestion("use //weld:register instead")
		warn = &d
	}

	// Method signature shared by interface and implementation.
	var sigParts []string
	if async {
		g.addImport("context")
		sigParts = append(sigParts, "ctx context.Context")
	}
	for _, i := range runtime {
		d := t.Params[i]
		sigParts = append(sigParts, paramName(d, i)+" "+d.TypeName)
		g.collectTypeImports(d.TypeName)
	}
	signature := fmt.Sprintf("%s(%s)", methodName, strings.Join(sigParts, ", "))
	if mayFail {
		signature += fmt.Sprintf(" (%s, error)", returnType)
	} else {
		signature += " " + returnType
	}
	g.collectTypeImports(returnType)

	// Interface.
	g.writeLine("// %s constructs %s instances. Runtime parameters are", factoryName, t.TypeName)
	g.writeLine("// supplied by the caller; every other dependency is resolved.")
	g.writeLine("type %s interface {", factoryName)
	g.indent++
	g.writeLine("%s", signature)
	g.indent--
	g.writeLine("}")
	g.writeLine("")

	// Implementation.
	memoized := cfg.Scope == directive.ScopeContainer
	g.writeLine("type %s struct {", implName)
	g.indent++
	g.writeLine("resolver resolve.Resolver")
	if memoized {
		g.addImport("sync")
		g.writeLine("")
		g.writeLine("mu     sync.Mutex")
		g.writeLine("cached %s", returnType)
		g.writeLine("done   bool")
	}
	g.indent--
	g.writeLine("}")
	g.writeLine("")

	g.writeLine("// New%s creates a resolver-backed %s.", factoryName, factoryName)
	g.writeLine("func New%s(r resolve.Resolver) %s {", factoryName, factoryName)
	g.indent++
	g.writeLine("return &%s{resolver: r}", implName)
	g.indent--
	g.writeLine("}")
	g.writeLine("")

	g.writeLine("func (f *%s) %s {", implName, signature)
	g.indent++

	if memoized {
		g.writeLine("f.mu.Lock()")
		g.writeLine("defer f.mu.Unlock()")
		g.writeLine("if f.done {")
		g.indent++
		if mayFail {
			g.writeLine("return f.cached, nil")
		} else {
			g.writeLine("return f.cached")
		}
		g.indent--
		g.writeLine("}")
	}

	if mayFail && hasRequiredInjected(t, cats) {
		g.writeLine("var zero %s", returnType)
	}

	// Resolve injected descriptors.
	for _, i := range injected {
		d := t.Params[i]
		name := paramName(d, i)
		switch {
		case d.IsOptional:
			g.writeLine("%s, _ := resolve.Maybe[%s](f.resolver, %q)", name, d.TypeName, resolveKey(d))
		case mayFail:
			g.writeLine("%s, err := resolve.As[%s](f.resolver, %q)", name, d.TypeName, resolveKey(d))
			g.writeLine("if err != nil {")
			g.indent++
			g.writeLine("return zero, err")
			g.indent--
			g.writeLine("}")
		default:
			g.writeLine("%s := resolve.MustAs[%s](f.resolver, %q)", name, d.TypeName, resolveKey(d))
		}
		g.collectTypeImports(d.TypeName)
	}

	// Forward every constructor argument in declaration order.
	var args []string
	if t.Effects.IsAsync {
		if async {
			args = append(args, "ctx")
		} else {
			g.addImport("context")
			args = append(args, "context.Background()")
		}
	}
	for i := range t.Params {
		args = append(args, paramName(t.Params[i], i))
	}
	call := fmt.Sprintf("%s(%s)", t.Name, strings.Join(args, ", "))

	switch {
	case t.Effects.MayFail && memoized:
		g.writeLine("v, err := %s", call)
		g.writeLine("if err != nil {")
		g.indent++
		g.writeLine("return f.cached, err")
		g.indent--
		g.writeLine("}")
		g.writeLine("f.cached = v")
		g.writeLine("f.done = true")
		g.writeLine("return v, nil")
	case t.Effects.MayFail:
		g.writeLine("return %s", call)
	case memoized && mayFail:
		g.writeLine("f.cached = %s", call)
		g.writeLine("f.done = true")
		g.writeLine("return f.cached, nil")
	case memoized:
		g.writeLine("f.cached = %s", call)
		g.writeLine("f.done = true")
		g.writeLine("return f.cached")
	case mayFail:
		g.writeLine("return %s, nil", call)
	default:
		g.writeLine("return %s", call)
	}

	g.indent--
	g.writeLine("}")
	g.writeLine("")

	return warn
}

func hasRequiredInjected(t introspect.Target, cats []classify.Category) bool {
	for i, c := range cats {
		if c.IsInjected() && !t.Params[i].IsOptional {
			return true
		}
	}
	return false
}
