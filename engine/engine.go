// Package engine is the host-facing entry point (spec component G): it
// owns the shared arithmetic/introspection/sandbox configuration, compiles
// and caches programs by source text, and exposes the get/set/invoke/new
// convenience façade on top of program.Program. Grounded on
// breadchris-yaegi's own Interpreter as the single long-lived object a
// host constructs once and reuses across many Eval calls, with the
// compile cache itself grounded on golang.org/x/sync/singleflight (already
// in the teacher's own dependency set) to collapse concurrent compiles of
// the same source.
package engine

import (
	"container/list"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/kestrelang/kestrel/internal/klog"
	"github.com/kestrelang/kestrel/interp"
	"github.com/kestrelang/kestrel/introspect"
	"github.com/kestrelang/kestrel/program"
	"github.com/kestrelang/kestrel/sandbox"
	"github.com/kestrelang/kestrel/scope"
	"github.com/kestrelang/kestrel/value"
)

// Engine holds the configuration shared by every program it compiles:
// an arithmetic context, a class registry/sandbox pair behind a single
// Resolver, engine-wide Options (strict/silent/math context), and any
// namespaces a host has registered.
type Engine struct {
	arithmetic *value.Arithmetic
	resolver   *introspect.Resolver
	registry   *introspect.Registry
	options    scope.Options
	logger     klog.Logger
	namespaces map[string]scope.Namespace

	cacheSize int
	mu        sync.Mutex
	lru       *list.List // of *cacheEntry, front = most recently used
	index     map[string]*list.Element
	group     singleflight.Group
}

type cacheEntry struct {
	source string
	prog   *program.Program
}

// defaultCacheSize matches the teacher's own modest default cache sizes
// for compiled-artifact caches rather than an arbitrarily large number.
const defaultCacheSize = 512

// New builds an Engine with the given options applied over sensible
// defaults: an open sandbox, JEXL resolution strategy, strict evaluation,
// and the built-in math namespace.
func New(opts ...Option) *Engine {
	e := &Engine{
		arithmetic: value.NewArithmetic(),
		registry:   introspect.NewRegistry(),
		options:    scope.DefaultOptions,
		logger:     klog.Discard(),
		namespaces: map[string]scope.Namespace{},
		cacheSize:  defaultCacheSize,
		lru:        list.New(),
		index:      map[string]*list.Element{},
	}
	sb := sandbox.New(nil, e.registry, false)
	e.resolver = introspect.NewResolver(e.registry, sb, introspect.StrategyJEXL)

	for _, o := range opts {
		o(e)
	}
	if _, ok := e.namespaces["math"]; !ok {
		e.namespaces["math"] = interp.NewMathNamespace(e.arithmetic)
	}
	return e
}

// Registry exposes the engine's class registry so a host can Register its
// own host types ahead of scripting against them.
func (e *Engine) Registry() *introspect.Registry { return e.registry }

// Resolver exposes the engine's introspection resolver.
func (e *Engine) Resolver() *introspect.Resolver { return e.resolver }

// Compile parses and caches source under name, returning the shared
// *program.Program on a repeat Compile of the same source text. Concurrent
// Compile calls for the same source collapse into a single parse via
// singleflight.
func (e *Engine) Compile(name, source string) (*program.Program, error) {
	e.mu.Lock()
	if el, ok := e.index[source]; ok {
		e.lru.MoveToFront(el)
		entry := el.Value.(*cacheEntry)
		e.mu.Unlock()
		return entry.prog, nil
	}
	e.mu.Unlock()

	v, err, _ := e.group.Do(source, func() (interface{}, error) {
		return program.Compile(name, source, e.arithmetic, e.resolver, e.options, e.logger, e.namespaces)
	})
	if err != nil {
		return nil, err
	}
	prog := v.(*program.Program)
	e.store(source, prog)
	return prog, nil
}

func (e *Engine) store(source string, prog *program.Program) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if el, ok := e.index[source]; ok {
		e.lru.MoveToFront(el)
		return
	}
	el := e.lru.PushFront(&cacheEntry{source: source, prog: prog})
	e.index[source] = el
	for e.lru.Len() > e.cacheSize {
		back := e.lru.Back()
		if back == nil {
			break
		}
		e.lru.Remove(back)
		delete(e.index, back.Value.(*cacheEntry).source)
	}
}

// Evaluate compiles (or reuses a cached compile of) source and executes it
// against ctx, the one-shot convenience most hosts reach for first.
func (e *Engine) Evaluate(source string, ctx scope.Context) (value.Value, error) {
	prog, err := e.Compile("<eval>", source)
	if err != nil {
		return value.Value{}, err
	}
	return prog.Execute(ctx)
}

// GetProperty evaluates a dotted/indexed property-access expression
// (e.g. "foo.bar[0]") against ctx, spec §4.2's read-side accessor surface
// exposed as a single call rather than requiring a host to hand-write the
// expression text itself.
func (e *Engine) GetProperty(expr string, ctx scope.Context) (value.Value, error) {
	return e.Evaluate(expr, ctx)
}

// SetProperty evaluates "<expr> = value" against ctx by binding the
// right-hand side to a synthetic context variable, so the value need not
// be re-rendered as script source.
func (e *Engine) SetProperty(expr string, v value.Value, ctx scope.Context) error {
	if ctx == nil {
		ctx = scope.NewMapContext()
	}
	const slot = "__engine_set_value"
	ctx.Set(slot, v)
	_, err := e.Evaluate(expr+" = "+slot, ctx)
	return err
}

// InvokeMethod evaluates "<receiver-expr>.<method>(args...)" by binding
// each argument to a synthetic context variable ahead of evaluation.
func (e *Engine) InvokeMethod(receiverExpr, method string, args []value.Value, ctx scope.Context) (value.Value, error) {
	mc, ok := ctx.(*scope.MapContext)
	if !ok {
		mc = scope.NewMapContext()
	}
	call := receiverExpr + "." + method + "("
	for i, a := range args {
		if i > 0 {
			call += ", "
		}
		slot := syntheticArgName(i)
		mc.Set(slot, a)
		call += slot
	}
	call += ")"
	return e.Evaluate(call, mc)
}

// NewInstance evaluates "new(<className>, args...)" (spec §4.5.4).
func (e *Engine) NewInstance(className string, args []value.Value, ctx scope.Context) (value.Value, error) {
	mc, ok := ctx.(*scope.MapContext)
	if !ok {
		mc = scope.NewMapContext()
	}
	call := "new(" + className
	for i, a := range args {
		slot := syntheticArgName(i)
		mc.Set(slot, a)
		call += ", " + slot
	}
	call += ")"
	return e.Evaluate(call, mc)
}

func syntheticArgName(i int) string {
	const base = "__engine_arg_"
	digits := "0123456789"
	if i < 10 {
		return base + digits[i:i+1]
	}
	// falls back to a decimal rendering for the rare >9-arg call
	var buf []byte
	n := i
	for n > 0 {
		buf = append([]byte{digits[n%10]}, buf...)
		n /= 10
	}
	return base + string(buf)
}
