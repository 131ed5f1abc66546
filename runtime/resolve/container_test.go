package resolve

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type logger struct{ name string }

type userService struct {
	log *logger
}

func TestContainerResolve(t *testing.T) {
	c := NewContainer()

	err := c.Register("resolve.logger", ScopeContainer, func(r Resolver) (any, error) {
		return &logger{name: "root"}, nil
	})
	require.NoError(t, err)

	v, err := c.Resolve("resolve.logger")
	require.NoError(t, err)
	assert.Equal(t, "root", v.(*logger).name)
}

func TestContainerResolveUnknownKey(t *testing.T) {
	c := NewContainer()

	_, err := c.Resolve("nothing.here")
	assert.ErrorIs(t, err, ErrNotRegistered)

	_, ok := c.Lookup("nothing.here")
	assert.False(t, ok)
}

func TestContainerDuplicateRegistration(t *testing.T) {
	c := NewContainer()
	provider := func(r Resolver) (any, error) { return 1, nil }

	require.NoError(t, c.Register("k", ScopeContainer, provider))
	assert.Error(t, c.Register("k", ScopeContainer, provider),
		"second registration under the same key must fail")
}

func TestContainerScopeMemoizes(t *testing.T) {
	c := NewContainer()

	constructions := 0
	require.NoError(t, c.Register("resolve.logger", ScopeContainer, func(r Resolver) (any, error) {
		constructions++
		return &logger{}, nil
	}))

	a, err := c.Resolve("resolve.logger")
	require.NoError(t, err)
	b, err := c.Resolve("resolve.logger")
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.Equal(t, 1, constructions)
}

func TestTransientScopeConstructsEachTime(t *testing.T) {
	c := NewContainer()

	constructions := 0
	require.NoError(t, c.Register("resolve.logger", ScopeTransient, func(r Resolver) (any, error) {
		constructions++
		return &logger{}, nil
	}))

	a, _ := c.Resolve("resolve.logger")
	b, _ := c.Resolve("resolve.logger")

	assert.NotSame(t, a, b)
	assert.Equal(t, 2, constructions)
}

func TestGraphScope(t *testing.T) {
	c := NewContainer()

	constructions := 0
	require.NoError(t, c.Register("resolve.logger", ScopeGraph, func(r Resolver) (any, error) {
		constructions++
		return &logger{}, nil
	}))

	// Within one graph the instance is shared
	g1 := c.Graph()
	a, err := g1.Resolve("resolve.logger")
	require.NoError(t, err)
	b, err := g1.Resolve("resolve.logger")
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Equal(t, 1, constructions)

	// A new graph gets a fresh instance
	g2 := c.Graph()
	d, err := g2.Resolve("resolve.logger")
	require.NoError(t, err)
	assert.NotSame(t, a, d)
	assert.Equal(t, 2, constructions)
}

func TestProviderResolvesDependencies(t *testing.T) {
	c := NewContainer()

	require.NoError(t, c.Register("resolve.logger", ScopeContainer, func(r Resolver) (any, error) {
		return &logger{name: "root"}, nil
	}))
	require.NoError(t, c.Register("resolve.userService", ScopeContainer, func(r Resolver) (any, error) {
		log, err := As[*logger](r, "resolve.logger")
		if err != nil {
			return nil, err
		}
		return &userService{log: log}, nil
	}))

	v, err := As[*userService](c, "resolve.userService")
	require.NoError(t, err)
	assert.Equal(t, "root", v.log.name)
}

func TestProviderErrorPropagates(t *testing.T) {
	c := NewContainer()

	boom := errors.New("construction failed")
	require.NoError(t, c.Register("k", ScopeContainer, func(r Resolver) (any, error) {
		return nil, boom
	}))

	_, err := c.Resolve("k")
	assert.ErrorIs(t, err, boom)

	// The failure is memoized like the instance would have been
	_, err = c.Resolve("k")
	assert.ErrorIs(t, err, boom)
}

func TestNamedRegistrations(t *testing.T) {
	c := NewContainer()

	require.NoError(t, c.RegisterNamed("resolve.logger", "audit", ScopeContainer, func(r Resolver) (any, error) {
		return &logger{name: "audit"}, nil
	}))
	require.NoError(t, c.RegisterNamed("resolve.logger", "access", ScopeContainer, func(r Resolver) (any, error) {
		return &logger{name: "access"}, nil
	}))

	v, err := NamedAs[*logger](c, "resolve.logger", "audit")
	require.NoError(t, err)
	assert.Equal(t, "audit", v.name)

	_, err = c.ResolveNamed("resolve.logger", "missing")
	assert.ErrorIs(t, err, ErrNotRegistered)
}

func TestAsTypeMismatch(t *testing.T) {
	c := NewContainer()
	require.NoError(t, c.Register("k", ScopeContainer, func(r Resolver) (any, error) {
		return "a string", nil
	}))

	_, err := As[int](c, "k")
	assert.Error(t, err)
}

func TestMaybe(t *testing.T) {
	c := NewContainer()

	v, ok := Maybe[*logger](c, "resolve.logger")
	assert.False(t, ok)
	assert.Nil(t, v)

	require.NoError(t, c.Register("resolve.logger", ScopeContainer, func(r Resolver) (any, error) {
		return &logger{name: "root"}, nil
	}))

	v, ok = Maybe[*logger](c, "resolve.logger")
	assert.True(t, ok)
	assert.Equal(t, "root", v.name)
}

func TestMustAsPanicsWhenAbsent(t *testing.T) {
	c := NewContainer()
	assert.Panics(t, func() {
		MustAs[*logger](c, "resolve.logger")
	})
}

func TestContainerConcurrentResolve(t *testing.T) {
	c := NewContainer()

	constructions := 0
	require.NoError(t, c.Register("k", ScopeContainer, func(r Resolver) (any, error) {
		constructions++
		return &logger{}, nil
	}))

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Resolve("k")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, constructions, "container scope must construct exactly once under contention")
}
