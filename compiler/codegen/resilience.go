package codegen

import (
	"strconv"
	"strings"

	"github.com/weldgen/weld/compiler/directive"
	"github.com/weldgen/weld/compiler/errors"
	"github.com/weldgen/weld/compiler/introspect"
	utilstrings "github.com/weldgen/weld/internal/util/strings"
)

// The resilience synthesizers share one architecture: a package-level
// config var, then a sibling method `<Method><Decorator>` with the
// original signature that routes the call through the matching
// runtime/resilience engine. The wrapped method's effect profile is
// preserved exactly; failures surface unchanged.

// generateRetry emits the <Method>Retry wrapper.
func (g *Generator) generateRetry(t introspect.Target, cfg directive.RetryConfig) *errors.Diagnostic {
	if !t.Effects.MayFail {
		return unsupportedSignature(t, "retry", "the method returns no error to retry on")
	}
	if tooManyResults(t) {
		return unsupportedSignature(t, "retry", "more than one non-error result")
	}

	g.addImport(resilienceImport)
	g.addImport("time")

	cfgVar := configVarName(t, "Retry")
	g.writeLine("var %s = resilience.RetryConfig{", cfgVar)
	g.indent++
	g.writeLine("MaxAttempts: %d,", cfg.MaxAttempts)
	g.writeLine("Strategy:    resilience.%s,", backoffConst(cfg.Strategy))
	g.writeLine("BaseDelay:   %s,", durationLiteral(cfg.BaseDelay))
	if cfg.Strategy == directive.BackoffExponential {
		g.writeLine("Multiplier:  %s,", strconv.FormatFloat(cfg.Multiplier, 'g', -1, 64))
	}
	if cfg.Strategy == directive.BackoffLinear {
		g.writeLine("Increment:   %s,", durationLiteral(cfg.Increment))
	}
	if cfg.Jitter {
		g.writeLine("Jitter:      true,")
	}
	g.writeLine("MaxDelay:    %s,", durationLiteral(cfg.MaxDelay))
	if cfg.TimeoutBudget > 0 {
		g.writeLine("TimeoutBudget: %s,", durationLiteral(cfg.TimeoutBudget))
	}
	g.indent--
	g.writeLine("}")
	g.writeLine("")

	recv := receiverName(t)
	result := resultType(t)

	g.writeLine("// %s%s calls %s with bounded retries and %s backoff.",
		t.Name, "Retry", t.Name, cfg.Strategy)
	g.writeLine("func %s %s%s(%s) %s {", receiverDecl(t), t.Name, "Retry",
		g.signatureParams(t), wrapperResults(t))
	g.indent++

	call := recv + "." + t.Name + "(" + callArgs(t) + ")"
	if t.Effects.IsAsync {
		ctx := ctxName(t)
		if result != "" {
			g.writeLine("return resilience.Retry(%s, %s, func(%s context.Context) (%s, error) {", ctx, cfgVar, ctx, result)
			g.indent++
			g.writeLine("return %s", call)
			g.indent--
			g.writeLine("})")
		} else {
			g.writeLine("_, err := resilience.Retry(%s, %s, func(%s context.Context) (struct{}, error) {", ctx, cfgVar, ctx)
			g.indent++
			g.writeLine("return struct{}{}, %s", call)
			g.indent--
			g.writeLine("})")
			g.writeLine("return err")
		}
	} else {
		if result != "" {
			g.writeLine("return resilience.RetrySync(%s, func() (%s, error) {", cfgVar, result)
			g.indent++
			g.writeLine("return %s", call)
			g.indent--
			g.writeLine("})")
		} else {
			g.writeLine("_, err := resilience.RetrySync(%s, func() (struct{}, error) {", cfgVar)
			g.indent++
			g.writeLine("return struct{}{}, %s", call)
			g.indent--
			g.writeLine("})")
			g.writeLine("return err")
		}
	}

	g.indent--
	g.writeLine("}")
	g.writeLine("")
	return nil
}

// generateBreaker emits the <Method>Breaker wrapper.
func (g *Generator) generateBreaker(t introspect.Target, cfg directive.BreakerConfig) *errors.Diagnostic {
	if !t.Effects.MayFail {
		return unsupportedSignature(t, "breaker", "the method returns no error for the breaker to observe")
	}
	if tooManyResults(t) {
		return unsupportedSignature(t, "breaker", "more than one non-error result")
	}

	g.addImport(resilienceImport)
	g.addImport("time")

	cfgVar := configVarName(t, "Breaker")
	g.writeLine("var %s = resilience.BreakerConfig{", cfgVar)
	g.indent++
	g.writeLine("FailureThreshold: %d,", cfg.FailureThreshold)
	g.writeLine("OpenTimeout:      %s,", durationLiteral(cfg.OpenTimeout))
	g.writeLine("SuccessThreshold: %d,", cfg.SuccessThreshold)
	g.writeLine("MonitoringWindow: %s,", durationLiteral(cfg.MonitoringWindow))
	g.indent--
	g.writeLine("}")
	g.writeLine("")

	recv := receiverName(t)
	result := resultType(t)
	identity := methodIdentity(t)

	g.writeLine("// %sBreaker calls %s under circuit-breaker admission control;", t.Name, t.Name)
	g.writeLine("// calls made while the circuit is open fail with resilience.ErrOpenCircuit.")
	g.writeLine("func %s %sBreaker(%s) %s {", receiverDecl(t), t.Name,
		g.signatureParams(t), wrapperResults(t))
	g.indent++
	g.writeLine("breaker := resilience.Breakers().Get(%q, %s)", identity, cfgVar)

	call := recv + "." + t.Name + "(" + callArgs(t) + ")"
	if result != "" {
		g.writeLine("return resilience.Break(breaker, func() (%s, error) {", result)
		g.indent++
		g.writeLine("return %s", call)
		g.indent--
		g.writeLine("})")
	} else {
		g.writeLine("_, err := resilience.Break(breaker, func() (struct{}, error) {")
		g.indent++
		g.writeLine("return struct{}{}, %s", call)
		g.indent--
		g.writeLine("})")
		g.writeLine("return err")
	}

	g.indent--
	g.writeLine("}")
	g.writeLine("")
	return nil
}

// generateCache emits the <Method>Cached wrapper.
func (g *Generator) generateCache(t introspect.Target, cfg directive.CacheConfig) *errors.Diagnostic {
	result := resultType(t)
	if result == "" {
		return unsupportedSignature(t, "cache", "the method returns no value to cache")
	}
	if tooManyResults(t) {
		return unsupportedSignature(t, "cache", "more than one non-error result")
	}

	g.addImport(resilienceImport)
	g.addImport("time")

	cfgVar := configVarName(t, "Cache")
	g.writeLine("var %s = resilience.CacheConfig{", cfgVar)
	g.indent++
	g.writeLine("TTL:        %s,", durationLiteral(cfg.TTL))
	g.writeLine("MaxEntries: %d,", cfg.MaxEntries)
	g.writeLine("Eviction:   resilience.%s,", evictionConst(cfg.Eviction))
	g.indent--
	g.writeLine("}")
	g.writeLine("")

	recv := receiverName(t)
	identity := methodIdentity(t)

	g.writeLine("// %sCached calls %s through a TTL cache keyed on the", t.Name, t.Name)
	g.writeLine("// method identity and arguments; hits skip the underlying call.")
	g.writeLine("func %s %sCached(%s) %s {", receiverDecl(t), t.Name,
		g.signatureParams(t), wrapperResults(t))
	g.indent++
	g.writeLine("cache := resilience.Caches().Get(%q, %s)", identity, cfgVar)
	if len(t.Params) > 0 {
		g.writeLine("key := resilience.Key(%q, %s)", identity, keyArgs(t))
	} else {
		g.writeLine("key := resilience.Key(%q)", identity)
	}

	call := recv + "." + t.Name + "(" + callArgs(t) + ")"
	if t.Effects.MayFail {
		g.writeLine("return resilience.Cached(cache, key, func() (%s, error) {", result)
		g.indent++
		g.writeLine("return %s", call)
		g.indent--
		g.writeLine("})")
	} else {
		g.writeLine("v, _ := resilience.Cached(cache, key, func() (%s, error) {", result)
		g.indent++
		g.writeLine("return %s, nil", call)
		g.indent--
		g.writeLine("})")
		g.writeLine("return v")
	}

	g.indent--
	g.writeLine("}")
	g.writeLine("")
	return nil
}

// generateTimed emits the <Method>Timed wrapper recording call timing
// in the process-wide tracker.
func (g *Generator) generateTimed(t introspect.Target, cfg directive.TimedConfig) {
	g.addImport(resilienceImport)

	name := cfg.Name
	if name == "" {
		name = t.Package + "." + utilstrings.ToSnakeCase(t.TypeName) + "." + utilstrings.ToSnakeCase(t.Name)
	}
	recv := receiverName(t)
	result := resultType(t)
	call := recv + "." + t.Name + "(" + callArgs(t) + ")"

	g.writeLine("// %sTimed calls %s and records its duration under %q.", t.Name, t.Name, name)
	g.writeLine("func %s %sTimed(%s) %s {", receiverDecl(t), t.Name,
		g.signatureParams(t), wrapperResults(t))
	g.indent++
	g.emitPassThrough(t, result, call,
		"resilience.Timed(resilience.Timings(), "+strconv.Quote(name)+", ", ")")
	g.indent--
	g.writeLine("}")
	g.writeLine("")
}

// generateIntercept emits the <Method>Intercepted wrapper running the
// configured interceptor chain around the call.
func (g *Generator) generateIntercept(t introspect.Target, cfg directive.InterceptConfig) {
	g.addImport(resilienceImport)

	recv := receiverName(t)
	result := resultType(t)
	identity := methodIdentity(t)
	call := recv + "." + t.Name + "(" + callArgs(t) + ")"

	g.writeLine("// %sIntercepted calls %s surrounded by the %q interceptor chain.", t.Name, t.Name, cfg.Chain)
	g.writeLine("func %s %sIntercepted(%s) %s {", receiverDecl(t), t.Name,
		g.signatureParams(t), wrapperResults(t))
	g.indent++
	if len(t.Params) > 0 {
		g.writeLine("inv := resilience.Invocation{Method: %q, Args: []any{%s}}", identity, keyArgs(t))
	} else {
		g.writeLine("inv := resilience.Invocation{Method: %q}", identity)
	}
	g.emitPassThrough(t, result, call,
		"resilience.Intercepted(resilience.Interceptors(), "+strconv.Quote(cfg.Chain)+", inv, ", ")")
	g.indent--
	g.writeLine("}")
	g.writeLine("")
}

// emitPassThrough writes the engine invocation for decorators that
// support every signature shape, adapting the closure to the wrapped
// method's result and failure profile.
func (g *Generator) emitPassThrough(t introspect.Target, result, call, prefix, suffix string) {
	switch {
	case result != "" && t.Effects.MayFail:
		g.writeLine("return %sfunc() (%s, error) {", prefix, result)
		g.indent++
		g.writeLine("return %s", call)
		g.indent--
		g.writeLine("}%s", suffix)
	case result != "":
		g.writeLine("v, _ := %sfunc() (%s, error) {", prefix, result)
		g.indent++
		g.writeLine("return %s, nil", call)
		g.indent--
		g.writeLine("}%s", suffix)
		g.writeLine("return v")
	case t.Effects.MayFail:
		g.writeLine("_, err := %sfunc() (struct{}, error) {", prefix)
		g.indent++
		g.writeLine("return struct{}{}, %s", call)
		g.indent--
		g.writeLine("}%s", suffix)
		g.writeLine("return err")
	default:
		g.writeLine("_, _ = %sfunc() (struct{}, error) {", prefix)
		g.indent++
		g.writeLine("%s", call)
		g.writeLine("return struct{}{}, nil")
		g.indent--
		g.writeLine("}%s", suffix)
	}
}

// wrapperResults renders the wrapper's result list, identical to the
// original method's.
func wrapperResults(t introspect.Target) string {
	switch len(t.Results) {
	case 0:
		return ""
	case 1:
		return t.Results[0]
	default:
		return "(" + strings.Join(t.Results, ", ") + ")"
	}
}

func ctxName(t introspect.Target) string {
	if t.CtxParam != "" && t.CtxParam != "_" {
		return t.CtxParam
	}
	return "ctx"
}

func backoffConst(b directive.Backoff) string {
	switch b {
	case directive.BackoffLinear:
		return "BackoffLinear"
	case directive.BackoffFixed:
		return "BackoffFixed"
	default:
		return "BackoffExponential"
	}
}

func evictionConst(e directive.Eviction) string {
	switch e {
	case directive.EvictionFIFO:
		return "EvictFIFO"
	default:
		return "EvictLRU"
	}
}
