package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelang/kestrel/engine"
	"github.com/kestrelang/kestrel/scope"
	"github.com/kestrelang/kestrel/value"
)

func TestEvaluateRunsAScript(t *testing.T) {
	e := engine.New()
	v, err := e.Evaluate("2 + 3 * 4", scope.NewMapContext())
	require.NoError(t, err)
	assert.Equal(t, int64(14), v.AsInt())
}

func TestCompileCachesRepeatedSource(t *testing.T) {
	e := engine.New()
	const src = "var x = 1; x + 1"
	p1, err := e.Compile("a.kes", src)
	require.NoError(t, err)
	p2, err := e.Compile("a.kes", src)
	require.NoError(t, err)
	assert.Same(t, p1, p2)
}

func TestMathNamespaceIsRegisteredByDefault(t *testing.T) {
	e := engine.New()
	v, err := e.Evaluate("math:max(3, 7, 2)", scope.NewMapContext())
	require.NoError(t, err)
	assert.Equal(t, int64(7), v.AsInt())
}

func TestSetPropertyBindsAContextVariable(t *testing.T) {
	e := engine.New()
	ctx := scope.NewMapContext()
	ctx.Set("total", value.Int64(0))
	err := e.SetProperty("total", value.Int64(42), ctx)
	require.NoError(t, err)
	v, ok := ctx.Get("total")
	require.True(t, ok)
	assert.Equal(t, int64(42), v.AsInt())
}

func TestWithCacheSizeEvictsLeastRecentlyUsed(t *testing.T) {
	e := engine.New(engine.WithCacheSize(1))
	_, err := e.Compile("a.kes", "1")
	require.NoError(t, err)
	p1, err := e.Compile("a.kes", "1")
	require.NoError(t, err)
	_, err = e.Compile("b.kes", "2")
	require.NoError(t, err)
	p2, err := e.Compile("a.kes", "1")
	require.NoError(t, err)
	assert.NotSame(t, p1, p2)
}
