package interp

import (
	"math"

	"github.com/kestrelang/kestrel/errs"
	"github.com/kestrelang/kestrel/value"
)

// mathNamespace implements scope.Namespace for the built-in `math:`
// namespace (SPEC_FULL §11/§12 domain-stack + supplemented-feature
// wiring), the one namespace kestrel ships without a host registering it.
type mathNamespace struct {
	ar *value.Arithmetic
}

// NewMathNamespace builds the built-in `math:` namespace bound to ar, so
// its rounding/comparison semantics stay consistent with the rest of a
// given program's arithmetic configuration.
func NewMathNamespace(ar *value.Arithmetic) *mathNamespace {
	return &mathNamespace{ar: ar}
}

func (m *mathNamespace) Call(fn string, args []value.Value) (value.Value, error) {
	switch fn {
	case "abs":
		if len(args) != 1 {
			return value.Value{}, errs.MethodError("math:abs", nil, errs.Span{})
		}
		neg, err := m.ar.Neg(args[0])
		if err != nil {
			return value.Value{}, err
		}
		c, err := m.ar.Compare(args[0], value.Int32(0))
		if err != nil {
			return value.Value{}, err
		}
		if c < 0 {
			return neg, nil
		}
		return args[0], nil
	case "max":
		return m.extreme(args, 1)
	case "min":
		return m.extreme(args, -1)
	case "round":
		if len(args) != 1 {
			return value.Value{}, errs.MethodError("math:round", nil, errs.Span{})
		}
		return value.Int64(int64(math.Round(args[0].AsFloat64()))), nil
	}
	return value.Value{}, errs.MethodError("math:" + fn, nil, errs.Span{})
}

func (m *mathNamespace) extreme(args []value.Value, want int) (value.Value, error) {
	if len(args) == 0 {
		return value.Value{}, errs.MethodError("math:extreme", nil, errs.Span{})
	}
	best := args[0]
	for _, a := range args[1:] {
		c, err := m.ar.Compare(a, best)
		if err != nil {
			return value.Value{}, err
		}
		if (want > 0 && c > 0) || (want < 0 && c < 0) {
			best = a
		}
	}
	return best, nil
}
