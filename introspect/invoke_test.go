package introspect_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelang/kestrel/introspect"
	"github.com/kestrelang/kestrel/sandbox"
	"github.com/kestrelang/kestrel/value"
)

// accumulator is a host object whose Add method mutates state, used to
// observe whether a cached call site re-applies each call's own arguments.
type accumulator struct{ total int64 }

func (a *accumulator) Add(n int64) int64 {
	a.total += n
	return a.total
}

// S7: repeated invocations at the same call site must use each call's own
// arguments, not the arguments captured when the accessor was first
// resolved and cached.
func TestInvokeCacheHitUsesCurrentCallArguments(t *testing.T) {
	reg := introspect.NewRegistry()
	res := introspect.NewResolver(reg, sandbox.New(nil, nil, false), introspect.StrategyJEXL)
	host := reg.NewHostObject(&accumulator{})

	site := &introspect.Site{}
	_, err := res.Invoke(site, host, "add", []value.Value{value.Int64(1)})
	require.NoError(t, err)
	_, err = res.Invoke(site, host, "add", []value.Value{value.Int64(2)})
	require.NoError(t, err)
	v, err := res.Invoke(site, host, "add", []value.Value{value.Int64(3)})
	require.NoError(t, err)

	assert.Equal(t, int64(6), v.AsInt())
	assert.Equal(t, int64(6), host.Impl.(*accumulator).total)
}

// bean is a host object exercising the Set<Name> and public-field property
// set paths with real Go-typed fields.
type bean struct {
	Label string
	Count int
}

func (b *bean) SetLabel(s string) { b.Label = s }

// S7: property set converts the engine value to the host's Go type before
// calling a bean setter.
func TestPropertySetConvertsValueForBeanSetter(t *testing.T) {
	reg := introspect.NewRegistry()
	res := introspect.NewResolver(reg, sandbox.New(nil, nil, false), introspect.StrategyJEXL)
	host := reg.NewHostObject(&bean{})

	site := &introspect.Site{}
	err := res.PropertySet(site, host, "label", value.String("active"))
	require.NoError(t, err)
	assert.Equal(t, "active", host.Impl.(*bean).Label)

	// second call exercises the cache-hit branch of PropertySet.
	err = res.PropertySet(site, host, "label", value.String("retired"))
	require.NoError(t, err)
	assert.Equal(t, "retired", host.Impl.(*bean).Label)
}

// S7: property set converts the engine value to the host's Go type before
// assigning a public struct field with no bean setter.
func TestPropertySetConvertsValueForPublicField(t *testing.T) {
	reg := introspect.NewRegistry()
	res := introspect.NewResolver(reg, sandbox.New(nil, nil, false), introspect.StrategyJEXL)
	host := reg.NewHostObject(&bean{})

	site := &introspect.Site{}
	err := res.PropertySet(site, host, "count", value.Int64(7))
	require.NoError(t, err)
	assert.Equal(t, 7, host.Impl.(*bean).Count)
}
