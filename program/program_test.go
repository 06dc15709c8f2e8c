package program_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelang/kestrel/internal/klog"
	"github.com/kestrelang/kestrel/introspect"
	"github.com/kestrelang/kestrel/program"
	"github.com/kestrelang/kestrel/sandbox"
	"github.com/kestrelang/kestrel/scope"
	"github.com/kestrelang/kestrel/value"
)

func newTestProgram(t *testing.T, src string) *program.Program {
	t.Helper()
	ar := value.NewArithmetic()
	reg := introspect.NewRegistry()
	res := introspect.NewResolver(reg, sandbox.New(nil, nil, false), introspect.StrategyJEXL)
	p, err := program.Compile("test.kes", src, ar, res, scope.DefaultOptions, klog.Discard(), nil)
	require.NoError(t, err)
	return p
}

func TestExecuteReturnsLastExpressionValue(t *testing.T) {
	p := newTestProgram(t, "var a = 2; var b = 3; a + b")
	v, err := p.Execute(scope.NewMapContext())
	require.NoError(t, err)
	assert.Equal(t, int64(5), v.AsInt())
}

func TestGetParametersListsFreeVariables(t *testing.T) {
	p := newTestProgram(t, "x + y")
	assert.ElementsMatch(t, []string{"x", "y"}, p.GetParameters())
}

func TestGetUnboundParametersExcludesBoundContextVars(t *testing.T) {
	p := newTestProgram(t, "x + y")
	ctx := scope.NewMapContext()
	ctx.Set("x", value.Int64(1))
	assert.Equal(t, []string{"y"}, p.GetUnboundParameters(ctx))
}

func TestCallableBindsFreeVariablesPositionally(t *testing.T) {
	p := newTestProgram(t, "x * x")
	v, err := p.Callable().Call([]value.Value{value.Int64(4)})
	require.NoError(t, err)
	assert.Equal(t, int64(16), v.AsInt())
}

func TestCallableCurryBindsLeadingArguments(t *testing.T) {
	p := newTestProgram(t, "x - y")
	curried := p.Callable().Curry([]value.Value{value.Int64(10)})
	v, err := curried.Call([]value.Value{value.Int64(3)})
	require.NoError(t, err)
	assert.Equal(t, int64(7), v.AsInt())
}

func TestSourceTextRoundTrips(t *testing.T) {
	const src = "1 + 1"
	p := newTestProgram(t, src)
	assert.Equal(t, src, p.GetSourceText())
	assert.Equal(t, src, p.String())
}
