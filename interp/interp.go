// Package interp implements the tree-walking evaluator over the ast node
// set (spec component E). It mirrors breadchris-yaegi's node.kind /
// node.action / node.exec split: ast.Node carries only shape, and every
// behavior for a given Kind lives in one of this package's eval* functions,
// chosen by a switch on the node's Kind each time Eval visits the node.
package interp

import (
	"go/token"
	"reflect"
	"sync"

	"github.com/kestrelang/kestrel/ast"
	"github.com/kestrelang/kestrel/errs"
	"github.com/kestrelang/kestrel/internal/klog"
	"github.com/kestrelang/kestrel/introspect"
	"github.com/kestrelang/kestrel/scope"
	"github.com/kestrelang/kestrel/value"
)

// Interp holds everything one compiled program's evaluations share:
// the arithmetic instance, the host resolver, engine-wide option
// defaults, the fileset for span rendering, and the per-call-site
// accessor cache map built once at compile time.
type Interp struct {
	Arithmetic *value.Arithmetic
	Resolver   *introspect.Resolver
	Options    scope.Options
	Fset       *token.FileSet
	Logger     klog.Logger
	Namespaces map[string]scope.Namespace

	sites map[*ast.Node]*introspect.Site
	locks sync.Map // value identity -> *sync.Mutex, for @synchronized
}

// New constructs an Interp. sites is the call-site cache built by
// CollectSites over the program's root node at compile time (shared,
// read-only as a map, individually mutated lock-free per spec §4.2/§5).
func New(ar *value.Arithmetic, res *introspect.Resolver, opts scope.Options, fset *token.FileSet, logger klog.Logger, namespaces map[string]scope.Namespace, sites map[*ast.Node]*introspect.Site) *Interp {
	if namespaces == nil {
		namespaces = map[string]scope.Namespace{}
	}
	return &Interp{Arithmetic: ar, Resolver: res, Options: opts, Fset: fset, Logger: logger, Namespaces: namespaces, sites: sites}
}

// --- control-flow signals (spec §4.5, Design Notes §9) ---
//
// break/continue/return are modeled as distinct error types caught by type
// switch in the statement evaluators that own them (loops, closures).
// throw and every §7 taxonomy failure instead travel as *errs.Error, which
// already carries a Kind discriminator — reusing it rather than adding a
// parallel "throw signal" type keeps one error shape for both host-raised
// and script-raised exceptions, which is what lets try/catch treat them
// uniformly.

type ctrlBreak struct{}

func (ctrlBreak) Error() string { return "break outside loop" }

type ctrlContinue struct{}

func (ctrlContinue) Error() string { return "continue outside loop" }

type ctrlReturn struct{ v value.Value }

func (ctrlReturn) Error() string { return "return outside function" }

func (ip *Interp) span(n *ast.Node) errs.Span {
	return errs.Span{Start: n.Pos, End: n.End, Fset: ip.Fset}
}

func (ip *Interp) optsFor(fr *scope.Frame) scope.Options {
	return scope.ResolveOptions(fr.RootContext(), ip.Options)
}

func (ip *Interp) site(n *ast.Node) *introspect.Site {
	if ip.sites == nil {
		return &introspect.Site{}
	}
	if s, ok := ip.sites[n]; ok {
		return s
	}
	// Nodes outside the compiled program's site map (e.g. synthesized
	// try-resource close calls) get a scratch, uncached site: correctness
	// does not depend on caching, only hot-path repeat calls benefit.
	return &introspect.Site{}
}

func (ip *Interp) checkCancel(fr *scope.Frame) error {
	opts := ip.optsFor(fr)
	if !opts.Cancellable {
		return nil
	}
	if canc, ok := fr.RootContext().(scope.Cancellation); ok && canc.Cancelled() {
		return errs.CancelError(errs.Span{Fset: ip.Fset})
	}
	return nil
}

// visibleNames lists locals/params visible from fr, for VariableError's
// "did you mean" hint.
func (ip *Interp) visibleNames(fr *scope.Frame) []string {
	var out []string
	seen := map[string]bool{}
	for f := fr; f != nil; f = f.Anc {
		for _, s := range f.Slots() {
			if !seen[s.Name] {
				seen[s.Name] = true
				out = append(out, s.Name)
			}
		}
	}
	return out
}

// lockFor returns the mutex @synchronized(x) uses for x's identity.
func (ip *Interp) lockFor(v value.Value) *sync.Mutex {
	key := identityKey(v)
	m, _ := ip.locks.LoadOrStore(key, &sync.Mutex{})
	return m.(*sync.Mutex)
}

// identityKey produces a comparable key for @synchronized's per-value
// mutual exclusion. Host objects synchronize on their underlying Go value
// identity; scalars synchronize on their rendered value (matching
// "per-value" rather than per-reference locking for immutable scalars).
func identityKey(v value.Value) interface{} {
	if v.Kind() == value.KindHostObject {
		return reflect.ValueOf(v.AsHostObject().Impl).Pointer()
	}
	return v.Kind().String() + ":" + v.String()
}

// Eval dispatches on node.Kind and returns the resulting value together
// with any propagating error — a real §7 failure, or one of the
// control-flow signals above.
func (ip *Interp) Eval(n *ast.Node, fr *scope.Frame) (value.Value, error) {
	switch n.Kind {
	// literals
	case ast.KindNullLit:
		return value.Null, nil
	case ast.KindBoolLit:
		return value.Bool(n.BoolVal), nil
	case ast.KindCharLit:
		return value.Char(n.CharVal), nil
	case ast.KindIntLit:
		return ip.evalIntLit(n), nil
	case ast.KindBigIntLit:
		return ip.evalBigIntLit(n)
	case ast.KindFloatLit:
		return ip.evalFloatLit(n)
	case ast.KindBigDecimalLit:
		return ip.evalBigDecimalLit(n)
	case ast.KindStringLit:
		return value.String(n.StringVal), nil
	case ast.KindListLit:
		return ip.evalListLit(n, fr)
	case ast.KindSetLit:
		return ip.evalSetLit(n, fr)
	case ast.KindMapLit:
		return ip.evalMapLit(n, fr)

	case ast.KindIdent:
		return ip.evalIdent(n, fr)
	case ast.KindMember:
		return ip.evalMember(n, fr, false)
	case ast.KindSafeMember:
		return ip.evalMember(n, fr, true)
	case ast.KindIndex:
		return ip.evalIndex(n, fr)

	case ast.KindBinary:
		return ip.evalBinary(n, fr)
	case ast.KindUnary:
		return ip.evalUnary(n, fr)
	case ast.KindAssign:
		return ip.evalAssign(n, fr)
	case ast.KindTernary:
		return ip.evalTernary(n, fr)
	case ast.KindCoalesce:
		return ip.evalCoalesce(n, fr)
	case ast.KindLogicalAnd:
		return ip.evalLogicalAnd(n, fr)
	case ast.KindLogicalOr:
		return ip.evalLogicalOr(n, fr)

	case ast.KindCall:
		return ip.evalCall(n, fr)
	case ast.KindNamespaceCall:
		return ip.evalNamespaceCall(n, fr)
	case ast.KindNew:
		return ip.evalNew(n, fr)
	case ast.KindMethodRefLit:
		return ip.evalMethodRefLit(n, fr)

	case ast.KindFuncLit:
		return ip.evalFuncLit(n, fr), nil

	case ast.KindBlock:
		return ip.evalBlock(n, fr)
	case ast.KindExprStmt:
		return ip.Eval(n.Children[0], fr)
	case ast.KindVarDecl:
		return ip.evalVarDecl(n, fr)
	case ast.KindDestructureDecl:
		return ip.evalDestructureDecl(n, fr)
	case ast.KindIf:
		return ip.evalIf(n, fr)
	case ast.KindWhile:
		return ip.evalWhile(n, fr)
	case ast.KindDoWhile:
		return ip.evalDoWhile(n, fr)
	case ast.KindForClassic:
		return ip.evalForClassic(n, fr)
	case ast.KindForIn:
		return ip.evalForIn(n, fr)
	case ast.KindBreak:
		return value.Value{}, ctrlBreak{}
	case ast.KindContinue:
		return value.Value{}, ctrlContinue{}
	case ast.KindReturn:
		v := value.Null
		if len(n.Children) > 0 && n.Children[0] != nil {
			var err error
			v, err = ip.Eval(n.Children[0], fr)
			if err != nil {
				return value.Value{}, err
			}
		}
		return value.Value{}, ctrlReturn{v: v}
	case ast.KindThrow:
		v := value.Null
		if len(n.Children) > 0 && n.Children[0] != nil {
			var err error
			v, err = ip.Eval(n.Children[0], fr)
			if err != nil {
				return value.Value{}, err
			}
		}
		return value.Value{}, errs.ThrowError(v, ip.span(n))
	case ast.KindTry:
		return ip.evalTry(n, fr)
	case ast.KindSwitchStmt, ast.KindSwitchExpr:
		return ip.evalSwitch(n, fr)

	case ast.KindFilter:
		return ip.evalFilter(n, fr)
	case ast.KindProjection:
		return ip.evalProjection(n, fr)
	case ast.KindExpand:
		return ip.Eval(n.Children[0], fr)

	case ast.KindAnnotation:
		return ip.evalAnnotation(n, fr)
	}
	return value.Value{}, errs.ParseError("unhandled node kind", ip.span(n))
}
