// Package classify assigns each parameter descriptor to exactly one
// category using syntactic heuristics. Classification is local: each
// descriptor is judged independently, with no cross-parameter reasoning,
// so every assignment can be explained by a single rule.
package classify

import (
	"fmt"
	"strings"

	"github.com/weldgen/weld/compiler/errors"
	"github.com/weldgen/weld/compiler/introspect"
)

// Category is the classification bucket assigned to a descriptor.
// Exactly one category per descriptor; never multi-valued.
type Category int

const (
	ServiceDependency Category = iota
	InterfaceDependency
	RuntimeParameter
	ConfigurationParameter
)

func (c Category) String() string {
	switch c {
	case ServiceDependency:
		return "service"
	case InterfaceDependency:
		return "interface"
	case RuntimeParameter:
		return "runtime"
	case ConfigurationParameter:
		return "configuration"
	default:
		return "unknown"
	}
}

// IsInjected reports whether descriptors in this category are resolved
// from the container rather than supplied by the caller.
func (c Category) IsInjected() bool {
	return c == ServiceDependency || c == InterfaceDependency
}

// serviceSuffixes are type-name endings that mark a parameter as an
// injectable service. The name heuristic is the documented default
// policy; weld.yml can extend the list per project.
var serviceSuffixes = []string{"Service", "Repository", "Client", "Manager"}

// primitiveTypes is the allowlist of value types treated as
// caller-supplied runtime parameters.
var primitiveTypes = map[string]bool{
	"string":    true,
	"int":       true,
	"int8":      true,
	"int16":     true,
	"int32":     true,
	"int64":     true,
	"uint":      true,
	"uint8":     true,
	"uint16":    true,
	"uint32":    true,
	"uint64":    true,
	"float32":   true,
	"float64":   true,
	"bool":      true,
	"byte":      true,
	"rune":      true,
	"[]byte":    true,
	"[]string":  true,
	"time.Time": true,
	"time.Duration": true,
	"uuid.UUID": true,
	"url.URL":   true,
	"*url.URL":  true,
}

// Classifier maps descriptors to categories. Rules and interface
// knowledge are fixed at construction; the zero-config classifier uses
// the built-in suffix and allowlist tables.
type Classifier struct {
	suffixes   []string
	primitives map[string]bool
	interfaces map[string]bool
}

// Option customizes a Classifier.
type Option func(*Classifier)

// WithServiceSuffixes appends project-specific service suffixes.
func WithServiceSuffixes(suffixes ...string) Option {
	return func(c *Classifier) {
		c.suffixes = append(c.suffixes, suffixes...)
	}
}

// WithPrimitives appends project-specific value types to the allowlist.
func WithPrimitives(types ...string) Option {
	return func(c *Classifier) {
		for _, t := range types {
			c.primitives[t] = true
		}
	}
}

// WithInterfaces records the interface type names declared in the
// scanned package set, feeding the interface-capability rule.
func WithInterfaces(names map[string]bool) Option {
	return func(c *Classifier) {
		for name := range names {
			c.interfaces[name] = true
		}
	}
}

// WithPackageInterfaces derives a Classifier that additionally knows
// the given interface names. The receiver's suffix and allowlist tables
// carry over unchanged, so project overrides survive the derivation.
// With no names to add the receiver itself is returned.
func (c *Classifier) WithPackageInterfaces(names map[string]bool) *Classifier {
	if len(names) == 0 {
		return c
	}
	d := &Classifier{
		suffixes:   c.suffixes,
		primitives: c.primitives,
		interfaces: make(map[string]bool, len(c.interfaces)+len(names)),
	}
	for name := range c.interfaces {
		d.interfaces[name] = true
	}
	for name := range names {
		d.interfaces[name] = true
	}
	return d
}

// New creates a Classifier with the default rule tables.
func New(opts ...Option) *Classifier {
	c := &Classifier{
		suffixes:   append([]string(nil), serviceSuffixes...),
		primitives: make(map[string]bool, len(primitiveTypes)),
		interfaces: make(map[string]bool),
	}
	for k := range primitiveTypes {
		c.primitives[k] = true
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify assigns a category to a single descriptor. Rules apply in
// priority order; the fallback biases toward injection because a
// wrongly-injected dependency fails loudly at resolution time, while a
// wrongly-runtime dependency would silently break generated call sites.
func (c *Classifier) Classify(d introspect.ParameterDescriptor) Category {
	base := strings.TrimPrefix(d.TypeName, "*")

	// A declared default wins over every name heuristic: the author
	// stated the parameter is configuration, whatever it is called.
	if d.HasDefault {
		return ConfigurationParameter
	}

	// Known service suffix.
	for _, suffix := range c.suffixes {
		if strings.HasSuffix(base, suffix) {
			return ServiceDependency
		}
	}

	// Interface-capability reference.
	if c.isInterface(base) {
		return InterfaceDependency
	}

	// Primitive/value-type allowlist.
	if c.primitives[base] || c.primitives[d.TypeName] {
		return RuntimeParameter
	}

	// Fallback to injection.
	return ServiceDependency
}

// ClassifyAll classifies every descriptor of a target in order and
// returns the categories aligned by index.
func (c *Classifier) ClassifyAll(t introspect.Target) []Category {
	cats := make([]Category, len(t.Params))
	for i, d := range t.Params {
		cats[i] = c.Classify(d)
	}
	return cats
}

// CheckSelfDependency emits a warning for every injected descriptor
// whose type equals the enclosing type: a likely circular dependency.
// Generation is not blocked.
func (c *Classifier) CheckSelfDependency(t introspect.Target, cats []Category) []errors.Diagnostic {
	var diags []errors.Diagnostic
	for i, d := range t.Params {
		if !cats[i].IsInjected() {
			continue
		}
		if strings.TrimPrefix(d.TypeName, "*") == t.TypeName {
			diags = append(diags, errors.New("classify", errors.WarnSelfDependency,
				fmt.Sprintf("parameter %q of %s has the enclosing type %s: possible circular dependency",
					d.Name, t.Name, t.TypeName),
				t.Location, errors.Warning).
				WithDeclaration(t.Name))
		}
	}
	return diags
}

func (c *Classifier) isInterface(base string) bool {
	if c.interfaces[base] {
		return true
	}
	// Well-known stdlib capability interfaces.
	switch base {
	case "io.Reader", "io.Writer", "io.Closer", "io.ReadWriter", "io.ReadCloser",
		"io.WriteCloser", "io.ReadWriteCloser", "fmt.Stringer", "error",
		"http.Handler", "sort.Interface", "any":
		return true
	}
	return false
}
