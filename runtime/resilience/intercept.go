package resilience

import (
	"sync"
)

// Invocation describes one intercepted call.
type Invocation struct {
	Method string
	Args   []any
}

// Interceptor observes calls around a wrapped method. Before runs
// ahead of the call; After runs once the call returns, with the result
// (nil for failed calls) and error. Interceptors observe, they do not
// alter results: the wrapped method's outcome passes through unchanged.
type Interceptor interface {
	Before(inv Invocation)
	After(inv Invocation, result any, err error)
}

// InterceptorFunc adapts a pair of functions to the Interceptor
// interface; either may be nil.
type InterceptorFunc struct {
	BeforeFunc func(Invocation)
	AfterFunc  func(Invocation, any, error)
}

func (f InterceptorFunc) Before(inv Invocation) {
	if f.BeforeFunc != nil {
		f.BeforeFunc(inv)
	}
}

func (f InterceptorFunc) After(inv Invocation, result any, err error) {
	if f.AfterFunc != nil {
		f.AfterFunc(inv, result, err)
	}
}

// InterceptorRegistry holds named interceptor chains. Chains run in
// registration order for Before and reverse order for After.
type InterceptorRegistry struct {
	mu     sync.RWMutex
	chains map[string][]Interceptor
}

// NewInterceptorRegistry creates an empty registry.
func NewInterceptorRegistry() *InterceptorRegistry {
	return &InterceptorRegistry{chains: make(map[string][]Interceptor)}
}

// Register appends an interceptor to the named chain.
func (r *InterceptorRegistry) Register(chain string, i Interceptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chains[chain] = append(r.chains[chain], i)
}

// Chain returns a snapshot of the named chain.
func (r *InterceptorRegistry) Chain(chain string) []Interceptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Interceptor, len(r.chains[chain]))
	copy(out, r.chains[chain])
	return out
}

// Reset clears the registry (used for testing).
func (r *InterceptorRegistry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chains = make(map[string][]Interceptor)
}

var defaultInterceptors = NewInterceptorRegistry()

// Interceptors returns the process-wide interceptor registry.
func Interceptors() *InterceptorRegistry { return defaultInterceptors }

// Intercepted runs op surrounded by the named chain.
func Intercepted[T any](r *InterceptorRegistry, chain string, inv Invocation, op func() (T, error)) (T, error) {
	interceptors := r.Chain(chain)
	for _, i := range interceptors {
		i.Before(inv)
	}
	result, err := op()
	var observed any
	if err == nil {
		observed = result
	}
	for i := len(interceptors) - 1; i >= 0; i-- {
		interceptors[i].After(inv, observed, err)
	}
	return result, err
}
