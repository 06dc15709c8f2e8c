// Package scope implements the lexical frame/slot model, the host Context
// interface, and ant-style dotted global resolution (spec component D,
// §3.3–§3.5).
package scope

import "github.com/kestrelang/kestrel/value"

// Namespace is returned by Context.ResolveNamespace for `ns:fn(args)` calls.
type Namespace interface {
	Call(fn string, args []value.Value) (value.Value, error)
}

// Options carries per-evaluation engine defaults (spec §4.4), overridable
// per Context.
type Options struct {
	Strict           bool
	Silent           bool
	Safe             bool
	StrictArithmetic bool
	Cancellable      bool
	MathContext      value.MathContext
}

// DefaultOptions matches the spec's stated defaults: strict=true, the rest
// false/zero.
var DefaultOptions = Options{Strict: true, MathContext: value.DefaultMathContext}

// Context maps variable names to values for a single evaluation, and
// optionally resolves namespaces and processes annotations (spec §3.4,
// §6.2).
type Context interface {
	Has(name string) bool
	Get(name string) (value.Value, bool)
	Set(name string, v value.Value)
}

// NamespaceResolver is an optional Context capability.
type NamespaceResolver interface {
	ResolveNamespace(name string) (Namespace, bool)
}

// OptionsProvider is an optional Context capability overriding engine
// defaults for one evaluation.
type OptionsProvider interface {
	EngineOptions() Options
}

// AnnotationProcessor is an optional Context capability implementing
// `@name(args) stmt` (spec §4.5.10).
type AnnotationProcessor interface {
	ProcessAnnotation(name string, args []value.Value, call func() (value.Value, error)) (value.Value, error)
}

// Cancellation is an optional Context capability for §5's cooperative
// cancellation signal.
type Cancellation interface {
	Cancelled() bool
}

// MapContext is a simple map-backed Context, useful for tests and simple
// hosts.
type MapContext struct {
	vars map[string]value.Value
	opts *Options
}

func NewMapContext() *MapContext { return &MapContext{vars: map[string]value.Value{}} }

func (c *MapContext) Has(name string) bool { _, ok := c.vars[name]; return ok }
func (c *MapContext) Get(name string) (value.Value, bool) {
	v, ok := c.vars[name]
	return v, ok
}
func (c *MapContext) Set(name string, v value.Value) { c.vars[name] = v }

func (c *MapContext) WithOptions(o Options) *MapContext { c.opts = &o; return c }
func (c *MapContext) EngineOptions() Options {
	if c.opts != nil {
		return *c.opts
	}
	return DefaultOptions
}

// ResolveOptions returns a Context's own Options when it overrides them
// (a MapContext only after WithOptions), else defaults.
func ResolveOptions(ctx Context, defaults Options) Options {
	if mc, ok := ctx.(*MapContext); ok && mc.opts == nil {
		return defaults
	}
	if op, ok := ctx.(OptionsProvider); ok {
		return op.EngineOptions()
	}
	return defaults
}
