package resolve

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// registration is one registered provider plus its container-scope
// instance slot. Container-scoped instances are resolved once; the
// resolved flag is checked atomically so post-initialization reads
// avoid the lock.
type registration struct {
	scope    Scope
	provider Provider

	mu       sync.Mutex
	resolved atomic.Bool
	instance any
	err      error
}

func (reg *registration) once(r Resolver) (any, error) {
	// Fast path: already resolved, no lock.
	if reg.resolved.Load() {
		return reg.instance, reg.err
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()
	if reg.resolved.Load() {
		return reg.instance, reg.err
	}
	reg.instance, reg.err = reg.provider(r)
	reg.resolved.Store(true)
	return reg.instance, reg.err
}

// Container is the reference Resolver/Registrar implementation: a
// concurrent-safe registry of providers keyed by type name, with
// optional named registrations under the same key.
type Container struct {
	mu    sync.RWMutex
	byKey map[string]*registration
	named map[string]map[string]*registration
}

// NewContainer creates an empty container.
func NewContainer() *Container {
	return &Container{
		byKey: make(map[string]*registration),
		named: make(map[string]map[string]*registration),
	}
}

// Register stores a provider under key. Registering the same key twice
// is an error: silent replacement hides wiring mistakes.
func (c *Container) Register(key string, scope Scope, provider Provider) error {
	if provider == nil {
		return fmt.Errorf("resolve: nil provider for %s", key)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.byKey[key]; exists {
		return fmt.Errorf("resolve: %s already registered", key)
	}
	c.byKey[key] = &registration{scope: scope, provider: provider}
	return nil
}

// RegisterNamed stores a provider under key with a distinguishing name.
func (c *Container) RegisterNamed(key, name string, scope Scope, provider Provider) error {
	if name == "" {
		return c.Register(key, scope, provider)
	}
	if provider == nil {
		return fmt.Errorf("resolve: nil provider for %s[%s]", key, name)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.named[key] == nil {
		c.named[key] = make(map[string]*registration)
	}
	if _, exists := c.named[key][name]; exists {
		return fmt.Errorf("resolve: %s[%s] already registered", key, name)
	}
	c.named[key][name] = &registration{scope: scope, provider: provider}
	return nil
}

// Resolve returns the instance for key, constructing it according to
// its registered scope. Unknown keys fail fast.
func (c *Container) Resolve(key string) (any, error) {
	c.mu.RLock()
	reg, ok := c.byKey[key]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotRegistered, key)
	}
	return c.resolveOne(reg, c)
}

// ResolveNamed returns the named instance for key.
func (c *Container) ResolveNamed(key, name string) (any, error) {
	if name == "" {
		return c.Resolve(key)
	}
	c.mu.RLock()
	reg, ok := c.named[key][name]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s[%s]", ErrNotRegistered, key, name)
	}
	return c.resolveOne(reg, c)
}

// Lookup is the optional-resolution form: absence is not an error.
func (c *Container) Lookup(key string) (any, bool) {
	c.mu.RLock()
	reg, ok := c.byKey[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	v, err := c.resolveOne(reg, c)
	if err != nil {
		return nil, false
	}
	return v, true
}

// Graph returns a resolver that shares the container's registrations
// but caches graph-scoped instances for the lifetime of the returned
// resolver, so one resolution graph sees one instance.
func (c *Container) Graph() Resolver {
	return &graphResolver{
		parent: c,
		cache:  make(map[string]any),
	}
}

func (c *Container) resolveOne(reg *registration, r Resolver) (any, error) {
	switch reg.scope {
	case ScopeContainer:
		return reg.once(r)
	default:
		// Graph scoping is applied by the graphResolver wrapper;
		// through the container itself it behaves as transient.
		return reg.provider(r)
	}
}

// graphResolver caches graph-scoped instances per resolution graph.
type graphResolver struct {
	parent *Container

	mu    sync.Mutex
	cache map[string]any
}

func (g *graphResolver) Resolve(key string) (any, error) {
	g.parent.mu.RLock()
	reg, ok := g.parent.byKey[key]
	g.parent.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotRegistered, key)
	}

	switch reg.scope {
	case ScopeContainer:
		return reg.once(g)
	case ScopeGraph:
		g.mu.Lock()
		if v, hit := g.cache[key]; hit {
			g.mu.Unlock()
			return v, nil
		}
		g.mu.Unlock()
		v, err := reg.provider(g)
		if err != nil {
			return nil, err
		}
		g.mu.Lock()
		g.cache[key] = v
		g.mu.Unlock()
		return v, nil
	default:
		return reg.provider(g)
	}
}

func (g *graphResolver) ResolveNamed(key, name string) (any, error) {
	if name == "" {
		return g.Resolve(key)
	}
	g.parent.mu.RLock()
	reg, ok := g.parent.named[key][name]
	g.parent.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s[%s]", ErrNotRegistered, key, name)
	}
	if reg.scope == ScopeContainer {
		return reg.once(g)
	}
	return reg.provider(g)
}

func (g *graphResolver) Lookup(key string) (any, bool) {
	v, err := g.Resolve(key)
	if err != nil {
		return nil, false
	}
	return v, true
}
