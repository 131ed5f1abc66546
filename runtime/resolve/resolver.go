// Package resolve defines the dependency resolution capability the
// generated registration and factory code calls, plus a reference
// in-memory container. The resolver is deliberately a narrow key→instance
// lookup surface: generated code never depends on a concrete container.
package resolve

import (
	"errors"
	"fmt"
)

// Scope is the lifetime of a registered instance.
type Scope string

const (
	ScopeContainer Scope = "container" // one instance for the container's lifetime
	ScopeGraph     Scope = "graph"     // one instance per resolution graph
	ScopeTransient Scope = "transient" // a fresh instance per resolution
)

// ErrNotRegistered is wrapped by resolution failures for unknown keys.
var ErrNotRegistered = errors.New("resolve: not registered")

// Resolver is the opaque lookup capability generated code receives.
// Resolve fails fast when the key is absent; Lookup is the optional
// form used for pointer-typed (optional) descriptors.
type Resolver interface {
	Resolve(key string) (any, error)
	ResolveNamed(key, name string) (any, error)
	Lookup(key string) (any, bool)
}

// Provider constructs one instance, resolving its own dependencies
// through the supplied resolver.
type Provider func(Resolver) (any, error)

// Registrar accepts registrations. The generated Register<Type>
// functions are written against this interface.
type Registrar interface {
	Register(key string, scope Scope, provider Provider) error
	RegisterNamed(key, name string, scope Scope, provider Provider) error
}

// As resolves key and asserts the result to T, failing fast with a
// descriptive error when the key is absent or the type does not match.
// Generated code must never silently substitute a default.
func As[T any](r Resolver, key string) (T, error) {
	var zero T
	v, err := r.Resolve(key)
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("resolve: %s is %T, not %T", key, v, zero)
	}
	return typed, nil
}

// NamedAs is As for named registrations.
func NamedAs[T any](r Resolver, key, name string) (T, error) {
	var zero T
	v, err := r.ResolveNamed(key, name)
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("resolve: %s[%s] is %T, not %T", key, name, v, zero)
	}
	return typed, nil
}

// MustAs is As for call sites with no error channel: resolution
// failure panics, which keeps required-dependency failures loud
// instead of silently substituting a default.
func MustAs[T any](r Resolver, key string) T {
	v, err := As[T](r, key)
	if err != nil {
		panic(err)
	}
	return v
}

// Maybe resolves an optional dependency: absence yields the zero value
// of T (nil for pointers) and ok=false, never an error.
func Maybe[T any](r Resolver, key string) (T, bool) {
	var zero T
	v, ok := r.Lookup(key)
	if !ok {
		return zero, false
	}
	typed, ok := v.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}
