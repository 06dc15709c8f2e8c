// Package program holds the compiled, host-facing representation of one
// parsed script (spec component F): a parsed AST plus the interpreter
// configuration it was compiled against, exposing Execute/Evaluate/Curry
// and the metadata getters a host uses to introspect a program before
// running it, mirroring breadchris-yaegi's own compiled-program/eval split.
package program

import (
	"go/token"

	"github.com/kestrelang/kestrel/ast"
	"github.com/kestrelang/kestrel/interp"
	"github.com/kestrelang/kestrel/introspect"
	"github.com/kestrelang/kestrel/internal/klog"
	"github.com/kestrelang/kestrel/parser"
	"github.com/kestrelang/kestrel/scope"
	"github.com/kestrelang/kestrel/value"
)

// Program is one compiled script: parsing and call-site analysis happen
// once at Compile time, so repeated Execute calls only pay for evaluation.
type Program struct {
	source string
	root   *ast.Node
	fset   *token.FileSet
	ip     *interp.Interp
	free   []string
}

// Compile parses source and builds the per-call-site accessor cache ahead
// of any evaluation. ar/res/opts/logger/namespaces mirror the engine-wide
// configuration an engine.Engine holds once and shares across programs.
func Compile(name, source string, ar *value.Arithmetic, res *introspect.Resolver, opts scope.Options, logger klog.Logger, namespaces map[string]scope.Namespace) (*Program, error) {
	fset := token.NewFileSet()
	root, err := parser.New(fset, name, source).ParseProgram()
	if err != nil {
		return nil, err
	}
	sites := interp.CollectSites(root)
	ip := interp.New(ar, res, opts, fset, logger, namespaces, sites)
	return &Program{
		source: source,
		root:   root,
		fset:   fset,
		ip:     ip,
		free:   interp.FreeVariables(root),
	}, nil
}

// Execute runs the program once against ctx's variables, returning its
// last-expression value (spec §4.5's expression-block semantics).
func (p *Program) Execute(ctx scope.Context) (value.Value, error) {
	fr := scope.NewRoot(ctx)
	return p.ip.Eval(p.root, fr)
}

// Evaluate is an alias for Execute, matching the spec's own naming split
// between "evaluate an expression" and "execute a script" even though
// kestrel's block-as-expression semantics make the two operations
// identical at this layer.
func (p *Program) Evaluate(ctx scope.Context) (value.Value, error) { return p.Execute(ctx) }

// Callable adapts the program to value.Callable, so it can be passed
// anywhere a host expects a function value: its free variables become
// positional parameters, bound in GetParameters order against a fresh
// MapContext for each call.
func (p *Program) Callable() value.Callable { return &boundProgram{prog: p} }

func (p *Program) callWith(args []value.Value) (value.Value, error) {
	ctx := scope.NewMapContext()
	for i, name := range p.free {
		if i < len(args) {
			ctx.Set(name, args[i])
		}
	}
	return p.Execute(ctx)
}

type boundProgram struct {
	prog  *Program
	bound []value.Value
}

func (b *boundProgram) Arity() int {
	n := len(b.prog.free) - len(b.bound)
	if n < 0 {
		return 0
	}
	return n
}

func (b *boundProgram) Curry(args []value.Value) value.Callable {
	bound := make([]value.Value, 0, len(b.bound)+len(args))
	bound = append(bound, b.bound...)
	bound = append(bound, args...)
	return &boundProgram{prog: b.prog, bound: bound}
}

func (b *boundProgram) Call(args []value.Value) (value.Value, error) {
	full := make([]value.Value, 0, len(b.bound)+len(args))
	full = append(full, b.bound...)
	full = append(full, args...)
	return b.prog.callWith(full)
}

// GetParameters returns the program's free variables in first-use order —
// the names Execute resolves against the host Context rather than a local
// declaration, which doubles as the parameter list Callable binds
// positionally.
func (p *Program) GetParameters() []string { return p.free }

// GetUnboundParameters returns the subset of GetParameters not satisfied
// by ctx, the set a host still needs to supply before Execute can resolve
// every variable in strict mode.
func (p *Program) GetUnboundParameters(ctx scope.Context) []string {
	var out []string
	for _, name := range p.free {
		if ctx == nil || !ctx.Has(name) {
			out = append(out, name)
		}
	}
	return out
}

// GetVariables returns the same free-variable names as GetParameters:
// plain identifiers only; a dotted antish path is reported by its root
// name, not as a separate entry.
func (p *Program) GetVariables() []string { return p.free }

// String renders the program's original source text.
func (p *Program) String() string { return p.source }

// GetParsedText and GetSourceText both return the original source: kestrel
// has no separate pretty-printer, so there is no distinct "parsed form" to
// report.
func (p *Program) GetParsedText() string { return p.source }
func (p *Program) GetSourceText() string { return p.source }
