package interp_test

import (
	"errors"
	"go/token"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelang/kestrel/ast"
	"github.com/kestrelang/kestrel/errs"
	"github.com/kestrelang/kestrel/internal/klog"
	"github.com/kestrelang/kestrel/interp"
	"github.com/kestrelang/kestrel/introspect"
	"github.com/kestrelang/kestrel/parser"
	"github.com/kestrelang/kestrel/sandbox"
	"github.com/kestrelang/kestrel/scope"
	"github.com/kestrelang/kestrel/value"
)

func parseProgram(t *testing.T, fset *token.FileSet, src string) *ast.Node {
	t.Helper()
	root, err := parser.New(fset, "test.kes", src).ParseProgram()
	require.NoError(t, err)
	return root
}

func newInterp(fset *token.FileSet, root *ast.Node, res *introspect.Resolver) *interp.Interp {
	ar := value.NewArithmetic()
	if res == nil {
		reg := introspect.NewRegistry()
		res = introspect.NewResolver(reg, sandbox.New(nil, nil, false), introspect.StrategyJEXL)
	}
	sites := interp.CollectSites(root)
	return interp.New(ar, res, scope.DefaultOptions, fset, klog.Discard(), nil, sites)
}

func run(t *testing.T, src string) (value.Value, error) {
	t.Helper()
	fset := token.NewFileSet()
	root := parseProgram(t, fset, src)
	ip := newInterp(fset, root, nil)
	ctx := scope.NewMapContext()
	fr := scope.NewRoot(ctx)
	return ip.Eval(root, fr)
}

// S1: a recursive named closure sees its own name before its initializer
// finishes evaluating, so factorial(5) == 120.
func TestRecursiveClosureFactorial(t *testing.T) {
	src := `
		var fact = (n) -> { if (n <= 1) { 1 } else { n * fact(n - 1) } };
		fact(5)
	`
	v, err := run(t, src)
	require.NoError(t, err)
	assert.Equal(t, int64(120), v.AsInt())
}

// S2: a closure's own locals shadow an outer same-named variable, and a
// bare assignment to an undeclared name creates a context-level variable
// rather than erroring.
func TestClosureShadowingAndBareAssign(t *testing.T) {
	src := `
		var y = 20;
		var s = (x, z) -> { var t = 22; x + z + t };
		t = 54;
		s(10, 0)
	`
	v, err := run(t, src)
	require.NoError(t, err)
	assert.Equal(t, int64(32), v.AsInt())
}

// S4: calling a non-callable value bound to a plain identifier raises a
// MethodError named after that identifier.
func TestCallNonCallableRaisesMethodErrorNamedAfterIdent(t *testing.T) {
	src := `
		var total = 10;
		total('tt')
	`
	_, err := run(t, src)
	require.Error(t, err)
	ee, ok := errs.AsError(err)
	require.True(t, ok)
	assert.True(t, ee.Is(errs.KindMethod))
	assert.Equal(t, "total", ee.Name)
}

// circuit is a host object whose Raise method returns a raw Go error, the
// shape scenario S5 requires try/catch to be able to catch even though it
// never flows through errs.ThrowError.
type circuit struct{}

func (c *circuit) Raise() error { return errors.New("circuit breaker tripped") }

// S5: try/catch catches a raw Go error surfaced from a host method
// invocation, and finally's own value never overrides the catch result.
func TestTryCatchesRawHostMethodError(t *testing.T) {
	reg := introspect.NewRegistry()
	res := introspect.NewResolver(reg, sandbox.New(nil, nil, false), introspect.StrategyJEXL)

	src := `try (let x = circuit) { circuit.raise(); -42 } catch (const e) { 42 } finally { 169 }`
	fset := token.NewFileSet()
	root := parseProgram(t, fset, src)
	ip := newInterp(fset, root, res)

	ctx := scope.NewMapContext()
	ctx.Set("circuit", value.Object(reg.NewHostObject(&circuit{})))
	fr := scope.NewRoot(ctx)

	v, err := ip.Eval(root, fr)
	require.NoError(t, err)
	assert.Equal(t, int64(42), v.AsInt())
}

func TestIfElseAndTernary(t *testing.T) {
	v, err := run(t, `var x = 3; x > 2 ? "big" : "small"`)
	require.NoError(t, err)
	assert.Equal(t, "big", v.AsString())
}

func TestForInOverList(t *testing.T) {
	v, err := run(t, `
		var total = 0;
		for (var x : [1, 2, 3]) { total = total + x }
		total
	`)
	require.NoError(t, err)
	assert.Equal(t, int64(6), v.AsInt())
}

func TestListSpread(t *testing.T) {
	v, err := run(t, `var a = [1, 2]; var b = [0, ...a, 3]; b.size`)
	require.NoError(t, err)
	assert.Equal(t, int32(4), int32(v.AsInt()))
}

func TestSwitchExprArrowForm(t *testing.T) {
	v, err := run(t, `
		var n = 2;
		switch (n) {
			case 1 -> "one"
			case 2 -> "two"
			default -> "many"
		}
	`)
	require.NoError(t, err)
	assert.Equal(t, "two", v.AsString())
}

func TestCoalesceFallsThroughOnMissingVariable(t *testing.T) {
	v, err := run(t, `missing ?? 7`)
	require.NoError(t, err)
	assert.Equal(t, int64(7), v.AsInt())
}

// inter0 is a Go interface registered under the script-visible name
// "Inter0"; widgetA and widgetB share no Go type but both implement it.
type inter0 interface{ Speak() string }

type widgetA struct{}

func (*widgetA) Speak() string { return "a" }

type widgetB struct{}

func (*widgetB) Speak() string { return "b" }

// S3: a list literal built from host objects with no common concrete type
// but a shared registered interface types as that interface, observable
// through the elementType pseudo-property (spec §4.1).
func TestListLiteralElementTypeIsCommonInterface(t *testing.T) {
	reg := introspect.NewRegistry()
	reg.RegisterInterface("Inter0", reflect.TypeOf((*inter0)(nil)).Elem())
	res := introspect.NewResolver(reg, sandbox.New(nil, nil, false), introspect.StrategyJEXL)

	src := `var items = [a, b]; items.elementType`
	fset := token.NewFileSet()
	root := parseProgram(t, fset, src)
	ip := newInterp(fset, root, res)

	ctx := scope.NewMapContext()
	ctx.Set("a", value.Object(reg.NewHostObject(&widgetA{})))
	ctx.Set("b", value.Object(reg.NewHostObject(&widgetB{})))
	fr := scope.NewRoot(ctx)

	v, err := ip.Eval(root, fr)
	require.NoError(t, err)
	assert.Equal(t, "Inter0", v.AsString())
}

// A list with no common ancestor beyond the root object type yields an
// empty elementType, matching the "no common ancestor" branch of
// commonAncestor.
func TestListLiteralElementTypeEmptyWithNoCommonAncestor(t *testing.T) {
	reg := introspect.NewRegistry()
	res := introspect.NewResolver(reg, sandbox.New(nil, nil, false), introspect.StrategyJEXL)

	src := `var items = [a, b]; items.elementType`
	fset := token.NewFileSet()
	root := parseProgram(t, fset, src)
	ip := newInterp(fset, root, res)

	ctx := scope.NewMapContext()
	ctx.Set("a", value.Object(reg.NewHostObject(&widgetA{})))
	ctx.Set("b", value.Object(reg.NewHostObject(&widgetB{})))
	fr := scope.NewRoot(ctx)

	v, err := ip.Eval(root, fr)
	require.NoError(t, err)
	assert.Equal(t, "", v.AsString())
}
