// Package directive parses the arguments of //weld: annotations into
// typed configuration records. Each directive has a closed set of
// recognized options; unknown options and malformed values are
// diagnostics, and defaults fill every unset field.
package directive

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/weldgen/weld/compiler/errors"
	"github.com/weldgen/weld/compiler/introspect"
)

// Scope is the lifetime of a registered instance.
type Scope string

const (
	ScopeContainer Scope = "container" // one instance per container
	ScopeGraph     Scope = "graph"     // one instance per resolution graph
	ScopeTransient Scope = "transient" // a fresh instance per resolution
)

// Backoff selects the retry delay strategy.
type Backoff string

const (
	BackoffExponential Backoff = "exponential"
	BackoffLinear      Backoff = "linear"
	BackoffFixed       Backoff = "fixed"
)

// Eviction selects the cache eviction policy applied beyond maxEntries.
type Eviction string

const (
	EvictionLRU  Eviction = "lru"
	EvictionFIFO Eviction = "fifo"
)

// RegistrationConfig configures the registration synthesizer.
type RegistrationConfig struct {
	Scope Scope
	Name  string // optional registration name
}

// FactoryConfig configures the factory synthesizer. Async and MayFail
// override the introspected effect profile when set.
type FactoryConfig struct {
	Scope       Scope
	FactoryName string // defaults to <Type>Factory
	Async       *bool
	MayFail     *bool
}

// RetryConfig configures the retry decorator synthesizer.
type RetryConfig struct {
	MaxAttempts   int
	Strategy      Backoff
	BaseDelay     time.Duration
	Multiplier    float64       // exponential strategy
	Increment     time.Duration // linear strategy
	Jitter        bool
	MaxDelay      time.Duration
	TimeoutBudget time.Duration // 0 means no overall budget
}

// CacheConfig configures the cache decorator synthesizer.
type CacheConfig struct {
	TTL        time.Duration
	MaxEntries int
	Eviction   Eviction
}

// BreakerConfig configures the circuit breaker decorator synthesizer.
type BreakerConfig struct {
	FailureThreshold int
	OpenTimeout      time.Duration
	SuccessThreshold int
	MonitoringWindow time.Duration
}

// TimedConfig configures the performance tracking decorator.
type TimedConfig struct {
	Name string // stats key, defaults to <Type>.<Method>
}

// InterceptConfig configures the call interception decorator.
type InterceptConfig struct {
	Chain string // named interceptor chain, defaults to "default"
}

// Set is the parsed, typed view of every directive attached to one
// declaration. Nil fields mean the directive was absent.
type Set struct {
	Registration *RegistrationConfig
	Factory      *FactoryConfig
	Retry        *RetryConfig
	Cache        *CacheConfig
	Breaker      *BreakerConfig
	Timed        *TimedConfig
	Intercept    *InterceptConfig
}

// DefaultRetryConfig returns the retry defaults applied to unset fields.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		Strategy:    BackoffExponential,
		BaseDelay:   100 * time.Millisecond,
		Multiplier:  2.0,
		Increment:   100 * time.Millisecond,
		Jitter:      false,
		MaxDelay:    5 * time.Second,
	}
}

// DefaultCacheConfig returns the cache defaults applied to unset fields.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		TTL:        5 * time.Minute,
		MaxEntries: 1024,
		Eviction:   EvictionLRU,
	}
}

// DefaultBreakerConfig returns the breaker defaults applied to unset fields.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		OpenTimeout:      30 * time.Second,
		SuccessThreshold: 2,
		MonitoringWindow: 60 * time.Second,
	}
}

// Names lists every recognized directive name.
func Names() []string {
	return []string{"register", "factory", "retry", "cache", "breaker", "timed", "intercept", "default", "optional"}
}

// Parse turns the raw annotations of a target into a typed Set.
// Unknown directives, unknown options, malformed values and duplicate
// directives are reported as diagnostics; a directive with an
// Error-severity diagnostic is dropped from the set.
func Parse(t introspect.Target) (Set, []errors.Diagnostic) {
	var set Set
	var diags []errors.Diagnostic

	seen := make(map[string]bool)

	for _, ann := range t.Annotations {
		if ann.Name == "default" || ann.Name == "optional" {
			// Folded into descriptors by the introspector.
			continue
		}

		loc := t.Location
		loc.Line = ann.Line

		if seen[ann.Name] {
			diags = append(diags, errors.New("directive", errors.ErrDuplicateDirective,
				fmt.Sprintf("duplicate //weld:%s directive", ann.Name),
				loc, errors.Error).WithDeclaration(t.Name))
			continue
		}
		seen[ann.Name] = true

		opts, optDiags := parseOptions(ann, loc, t.Name)
		diags = append(diags, optDiags...)

		var err *errors.Diagnostic
		switch ann.Name {
		case "register":
			set.Registration, err = parseRegistration(opts, loc, t.Name)
		case "factory":
			set.Factory, err = parseFactory(opts, loc, t.Name)
		case "retry":
			set.Retry, err = parseRetry(opts, loc, t.Name)
		case "cache":
			set.Cache, err = parseCache(opts, loc, t.Name)
		case "breaker":
			set.Breaker, err = parseBreaker(opts, loc, t.Name)
		case "timed":
			set.Timed, err = parseTimed(opts, loc, t.Name)
		case "intercept":
			set.Intercept, err = parseIntercept(opts, loc, t.Name)
		default:
			diags = append(diags, errors.New("directive", errors.ErrUnknownDirective,
				fmt.Sprintf("unknown directive //weld:%s", ann.Name),
				loc, errors.Error).
				WithDeclaration(t.Name).
				WithSuggestion("known directives: "+strings.Join(Names(), ", ")))
		}
		if err != nil {
			diags = append(diags, *err)
		}
	}

	return set, diags
}

// option is one parsed key=value argument.
type option struct {
	key   string
	value string
	loc   errors.SourceLocation
	decl  string
}

func parseOptions(ann introspect.Annotation, loc errors.SourceLocation, decl string) ([]option, []errors.Diagnostic) {
	var opts []option
	var diags []errors.Diagnostic
	for _, field := range strings.Fields(ann.Args) {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			// Bare flags parse as key=true.
			key, value = field, "true"
		}
		if key == "" {
			diags = append(diags, errors.New("directive", errors.ErrInvalidOptionValue,
				fmt.Sprintf("malformed option %q in //weld:%s", field, ann.Name),
				loc, errors.Error).WithDeclaration(decl))
			continue
		}
		opts = append(opts, option{key: key, value: value, loc: loc, decl: decl})
	}
	return opts, diags
}

func parseRegistration(opts []option, loc errors.SourceLocation, decl string) (*RegistrationConfig, *errors.Diagnostic) {
	cfg := &RegistrationConfig{Scope: ScopeContainer}
	for _, o := range opts {
		switch o.key {
		case "scope":
			scope, err := parseScope(o)
			if err != nil {
				return nil, err
			}
			cfg.Scope = scope
		case "name":
			cfg.Name = o.value
		default:
			return nil, unknownOption(o, "register", "scope, name")
		}
	}
	return cfg, nil
}

func parseFactory(opts []option, loc errors.SourceLocation, decl string) (*FactoryConfig, *errors.Diagnostic) {
	cfg := &FactoryConfig{Scope: ScopeTransient}
	for _, o := range opts {
		switch o.key {
		case "scope":
			scope, err := parseScope(o)
			if err != nil {
				return nil, err
			}
			cfg.Scope = scope
		case "name":
			cfg.FactoryName = o.value
		case "async":
			b, err := parseBool(o)
			if err != nil {
				return nil, err
			}
			cfg.Async = &b
		case "mayFail":
			b, err := parseBool(o)
			if err != nil {
				return nil, err
			}
			cfg.MayFail = &b
		default:
			return nil, unknownOption(o, "factory", "scope, name, async, mayFail")
		}
	}
	return cfg, nil
}

func parseRetry(opts []option, loc errors.SourceLocation, decl string) (*RetryConfig, *errors.Diagnostic) {
	cfg := DefaultRetryConfig()
	for _, o := range opts {
		switch o.key {
		case "maxAttempts":
			n, err := parseInt(o)
			if err != nil {
				return nil, err
			}
			if n < 1 {
				d := invalidValue(o, "maxAttempts must be at least 1")
				return nil, &d
			}
			cfg.MaxAttempts = n
		case "backoff":
			switch Backoff(o.value) {
			case BackoffExponential, BackoffLinear, BackoffFixed:
				cfg.Strategy = Backoff(o.value)
			default:
				d := invalidValue(o, "backoff must be exponential, linear, or fixed")
				return nil, &d
			}
		case "baseDelay":
			dur, err := parseDuration(o)
			if err != nil {
				return nil, err
			}
			cfg.BaseDelay = dur
		case "multiplier":
			f, err := parseFloat(o)
			if err != nil {
				return nil, err
			}
			cfg.Multiplier = f
		case "increment":
			dur, err := parseDuration(o)
			if err != nil {
				return nil, err
			}
			cfg.Increment = dur
		case "jitter":
			b, err := parseBool(o)
			if err != nil {
				return nil, err
			}
			cfg.Jitter = b
		case "maxDelay":
			dur, err := parseDuration(o)
			if err != nil {
				return nil, err
			}
			cfg.MaxDelay = dur
		case "timeoutBudget":
			dur, err := parseDuration(o)
			if err != nil {
				return nil, err
			}
			cfg.TimeoutBudget = dur
		default:
			return nil, unknownOption(o, "retry",
				"maxAttempts, backoff, baseDelay, multiplier, increment, jitter, maxDelay, timeoutBudget")
		}
	}
	return &cfg, nil
}

func parseCache(opts []option, loc errors.SourceLocation, decl string) (*CacheConfig, *errors.Diagnostic) {
	cfg := DefaultCacheConfig()
	for _, o := range opts {
		switch o.key {
		case "ttl":
			dur, err := parseDuration(o)
			if err != nil {
				return nil, err
			}
			cfg.TTL = dur
		case "maxEntries":
			n, err := parseInt(o)
			if err != nil {
				return nil, err
			}
			if n < 1 {
				d := invalidValue(o, "maxEntries must be at least 1")
				return nil, &d
			}
			cfg.MaxEntries = n
		case "eviction":
			switch Eviction(o.value) {
			case EvictionLRU, EvictionFIFO:
				cfg.Eviction = Eviction(o.value)
			default:
				d := invalidValue(o, "eviction must be lru or fifo")
				return nil, &d
			}
		default:
			return nil, unknownOption(o, "cache", "ttl, maxEntries, eviction")
		}
	}
	return &cfg, nil
}

func parseBreaker(opts []option, loc errors.SourceLocation, decl string) (*BreakerConfig, *errors.Diagnostic) {
	cfg := DefaultBreakerConfig()
	for _, o := range opts {
		switch o.key {
		case "failureThreshold":
			n, err := parseInt(o)
			if err != nil {
				return nil, err
			}
			if n < 1 {
				d := invalidValue(o, "failureThreshold must be at least 1")
				return nil, &d
			}
			cfg.FailureThreshold = n
		case "openTimeout":
			dur, err := parseDuration(o)
			if err != nil {
				return nil, err
			}
			cfg.OpenTimeout = dur
		case "successThreshold":
			n, err := parseInt(o)
			if err != nil {
				return nil, err
			}
			if n < 1 {
				d := invalidValue(o, "successThreshold must be at least 1")
				return nil, &d
			}
			cfg.SuccessThreshold = n
		case "window":
			dur, err := parseDuration(o)
			if err != nil {
				return nil, err
			}
			cfg.MonitoringWindow = dur
		default:
			return nil, unknownOption(o, "breaker",
				"failureThreshold, openTimeout, successThreshold, window")
		}
	}
	return &cfg, nil
}

func parseTimed(opts []option, loc errors.SourceLocation, decl string) (*TimedConfig, *errors.Diagnostic) {
	cfg := &TimedConfig{}
	for _, o := range opts {
		switch o.key {
		case "name":
			cfg.Name = o.value
		default:
			return nil, unknownOption(o, "timed", "name")
		}
	}
	return cfg, nil
}

func parseIntercept(opts []option, loc errors.SourceLocation, decl string) (*InterceptConfig, *errors.Diagnostic) {
	cfg := &InterceptConfig{Chain: "default"}
	for _, o := range opts {
		switch o.key {
		case "chain":
			cfg.Chain = o.value
		default:
			return nil, unknownOption(o, "intercept", "chain")
		}
	}
	return cfg, nil
}

func parseScope(o option) (Scope, *errors.Diagnostic) {
	switch Scope(o.value) {
	case ScopeContainer, ScopeGraph, ScopeTransient:
		return Scope(o.value), nil
	default:
		d := invalidValue(o, "scope must be container, graph, or transient")
		return "", &d
	}
}

func parseBool(o option) (bool, *errors.Diagnostic) {
	b, err := strconv.ParseBool(o.value)
	if err != nil {
		d := invalidValue(o, "expected true or false")
		return false, &d
	}
	return b, nil
}

func parseInt(o option) (int, *errors.Diagnostic) {
	n, err := strconv.Atoi(o.value)
	if err != nil {
		d := invalidValue(o, "expected an integer")
		return 0, &d
	}
	return n, nil
}

func parseFloat(o option) (float64, *errors.Diagnostic) {
	f, err := strconv.ParseFloat(o.value, 64)
	if err != nil {
		d := invalidValue(o, "expected a number")
		return 0, &d
	}
	return f, nil
}

// parseDuration accepts Go duration syntax ("150ms", "2s") and, for
// compatibility with plain-seconds directive arguments, bare numbers
// interpreted as seconds.
func parseDuration(o option) (time.Duration, *errors.Diagnostic) {
	if secs, err := strconv.ParseFloat(o.value, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	dur, err := time.ParseDuration(o.value)
	if err != nil {
		d := invalidValue(o, "expected a duration such as 500ms or 2s")
		return 0, &d
	}
	return dur, nil
}

func unknownOption(o option, directive, known string) *errors.Diagnostic {
	d := errors.New("directive", errors.ErrUnknownOption,
		fmt.Sprintf("unknown option %q for //weld:%s", o.key, directive),
		o.loc, errors.Error).
		WithDeclaration(o.decl).
		WithSuggestion("recognized options: " + known)
	return &d
}

func invalidValue(o option, why string) errors.Diagnostic {
	return errors.New("directive", errors.ErrInvalidOptionValue,
		fmt.Sprintf("invalid value %q for option %q: %s", o.value, o.key, why),
		o.loc, errors.Error).
		WithDeclaration(o.decl)
}
