package engine

import (
	"github.com/kestrelang/kestrel/internal/klog"
	"github.com/kestrelang/kestrel/interp"
	"github.com/kestrelang/kestrel/introspect"
	"github.com/kestrelang/kestrel/sandbox"
	"github.com/kestrelang/kestrel/scope"
	"github.com/kestrelang/kestrel/value"
)

// Option configures an Engine at construction time, in the builder style
// ardnew-aenv/cli's own flag-resolver uses for its configuration surface.
type Option func(*Engine)

// WithOptions replaces the engine-wide strict/silent/safe/math defaults
// every compiled program inherits unless its own Context overrides them.
func WithOptions(o scope.Options) Option {
	return func(e *Engine) { e.options = o }
}

// WithSandbox replaces the engine's sandbox, e.g. to install an allow/
// block-list built from sandbox.ParseRules or sandbox.ParseYAML.
func WithSandbox(sb *sandbox.Sandbox) Option {
	return func(e *Engine) {
		e.resolver = introspect.NewResolver(e.registry, sb, e.resolver.Strategy)
	}
}

// WithSandboxPermissions builds a Sandbox from perms using the engine's
// own class registry as the inheritance hierarchy, the common case of
// loading rules from config.LoadPermissions or sandbox.ParseRules without a
// host needing to construct a sandbox.Sandbox by hand.
func WithSandboxPermissions(perms *sandbox.Permissions) Option {
	return func(e *Engine) {
		sb := sandbox.New(perms, e.registry, true)
		e.resolver = introspect.NewResolver(e.registry, sb, e.resolver.Strategy)
	}
}

// WithStrategy sets the bean-vs-map-key resolution strategy recorded on the
// engine's resolver (spec §4.2). Member resolution is the same under every
// Strategy; see introspect.Strategy.
func WithStrategy(strat introspect.Strategy) Option {
	return func(e *Engine) {
		e.resolver = introspect.NewResolver(e.registry, e.resolver.Sandbox, strat)
	}
}

// WithLogger replaces the engine's diagnostic logger, used for
// undefined-resolution and suppressed-error reporting under silent mode.
func WithLogger(l klog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithNamespace registers a named `ns:fn(args)` namespace (spec §4.5.1).
func WithNamespace(name string, ns scope.Namespace) Option {
	return func(e *Engine) { e.namespaces[name] = ns }
}

// WithMath installs the built-in math: namespace bound to the engine's
// arithmetic configuration, the one namespace kestrel ships without a
// host registering it.
func WithMath() Option {
	return func(e *Engine) {
		e.namespaces["math"] = interp.NewMathNamespace(e.arithmetic)
	}
}

// WithMathContext sets the decimal precision and scale (spec §4.1.3)
// used both by arithmetic operators and by the math: namespace.
func WithMathContext(mc value.MathContext) Option {
	return func(e *Engine) {
		e.arithmetic.MathContext = mc
		e.options.MathContext = mc
	}
}

// WithCacheSize bounds the number of distinct compiled source texts the
// engine keeps warm; the least recently used entry is evicted first.
func WithCacheSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.cacheSize = n
		}
	}
}
