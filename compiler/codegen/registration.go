package codegen

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/weldgen/weld/compiler/classify"
	"github.com/weldgen/weld/compiler/directive"
	"github.com/weldgen/weld/compiler/errors"
	"github.com/weldgen/weld/compiler/introspect"
)

// generateRegistration emits the static registration function for a
// constructor target: Register<Type> resolves every injected descriptor
// through the supplied resolver and registers the constructed instance
// under the configured scope and optional name.
func (g *Generator) generateRegistration(t introspect.Target, cats []classify.Category, cfg directive.RegistrationConfig) []errors.Diagnostic {
	var diags []errors.Diagnostic

	g.addImport(resolveImport)

	g.writeLine("// Register%s registers %s with the resolver under the %s scope.",
		t.TypeName, t.TypeName, cfg.Scope)
	if cfg.Name != "" {
		g.writeLine("// The registration is named %q.", cfg.Name)
	}
	g.writeLine("func Register%s(c resolve.Registrar) error {", t.TypeName)
	g.indent++

	if cfg.Name != "" {
		g.writeLine("return c.RegisterNamed(%q, %q, resolve.%s, func(r resolve.Resolver) (any, error) {",
			t.TypeName, cfg.Name, scopeConst(cfg.Scope))
	} else {
		g.writeLine("return c.Register(%q, resolve.%s, func(r resolve.Resolver) (any, error) {",
			t.TypeName, scopeConst(cfg.Scope))
	}
	g.indent++

	args := make([]string, 0, len(t.Params)+1)
	if t.Effects.IsAsync {
		g.addImport("context")
		args = append(args, "context.Background()")
	}

	for i, d := range t.Params {
		name := paramName(d, i)
		switch {
		case cats[i].IsInjected() && d.IsOptional:
			g.writeLine("%s, _ := resolve.Maybe[%s](r, %q)", name, d.TypeName, resolveKey(d))
			args = append(args, name)
		case cats[i].IsInjected():
			g.writeLine("%s, err := resolve.As[%s](r, %q)", name, d.TypeName, resolveKey(d))
			g.writeLine("if err != nil {")
			g.indent++
			g.writeLine("return nil, err")
			g.indent--
			g.writeLine("}")
			args = append(args, name)
		case d.HasDefault:
			args = append(args, g.defaultLiteral(d))
		default:
			// A caller-supplied runtime parameter has no source inside a
			// registration; its zero value is used and the author is told.
			diags = append(diags, errors.New("codegen", errors.ErrUnsupportedDeclaration,
				fmt.Sprintf("runtime parameter %q of %s has no value in a registration; its zero value is used",
					d.Name, t.Name),
				t.Location, errors.Warning).
				WithDeclaration(t.Name).
				WithSuggestion("declare a default with //weld:default, or use //weld:factory instead"))
			args = append(args, fmt.Sprintf("*new(%s)", d.TypeName))
		}
		g.collectTypeImports(d.TypeName)
	}

	call := fmt.Sprintf("%s(%s)", t.Name, strings.Join(args, ", "))
	if t.Effects.MayFail {
		g.writeLine("v, err := %s", call)
		g.writeLine("if err != nil {")
		g.indent++
		g.writeLine("return nil, err")
		g.indent--
		g.writeLine("}")
		g.writeLine("return v, nil")
	} else {
		g.writeLine("return %s, nil", call)
	}

	g.indent--
	g.writeLine("})")
	g.indent--
	g.writeLine("}")
	g.writeLine("")

	return diags
}

// resolveKey is the container key for an injected descriptor: the base
// type name without pointer markers.
func resolveKey(d introspect.ParameterDescriptor) string {
	return strings.TrimPrefix(d.TypeName, "*")
}

// scopeConst maps a directive scope to its resolve package constant.
func scopeConst(s directive.Scope) string {
	switch s {
	case directive.ScopeGraph:
		return "ScopeGraph"
	case directive.ScopeTransient:
		return "ScopeTransient"
	default:
		return "ScopeContainer"
	}
}

// defaultLiteral renders a declared default value as a Go expression.
// Durations get readable unit arithmetic, strings get quoted when the
// author left the quotes off; anything else is emitted verbatim.
func (g *Generator) defaultLiteral(d introspect.ParameterDescriptor) string {
	base := strings.TrimPrefix(d.TypeName, "*")
	if base == "time.Duration" {
		if dur, err := time.ParseDuration(d.DefaultValue); err == nil {
			g.addImport("time")
			return durationLiteral(dur)
		}
	}
	if base == "string" && !strings.HasPrefix(d.DefaultValue, `"`) {
		return strconv.Quote(d.DefaultValue)
	}
	return d.DefaultValue
}

// durationLiteral renders a duration with the largest unit that divides
// it evenly.
func durationLiteral(d time.Duration) string {
	units := []struct {
		unit time.Duration
		name string
	}{
		{time.Hour, "time.Hour"},
		{time.Minute, "time.Minute"},
		{time.Second, "time.Second"},
		{time.Millisecond, "time.Millisecond"},
		{time.Microsecond, "time.Microsecond"},
	}
	for _, u := range units {
		if d >= u.unit && d%u.unit == 0 {
			if d == u.unit {
				return u.name
			}
			return fmt.Sprintf("%d * %s", d/u.unit, u.name)
		}
	}
	return fmt.Sprintf("%d * time.Nanosecond", d.Nanoseconds())
}
