package interp

import (
	"github.com/kestrelang/kestrel/ast"
	"github.com/kestrelang/kestrel/scope"
	"github.com/kestrelang/kestrel/value"
)

// closure is a lambda/function-literal value (spec §4.4, §9). It satisfies
// value.Callable so it can flow through the language's own value space
// indistinguishably from a host-supplied function. defFrame is captured by
// reference, not copied, which is what gives closures their ability to see
// later mutations of enclosing variables and to recurse through a name
// declared in the same frame they close over (scenario: a named recursive
// factorial closure).
type closure struct {
	ip       *Interp
	params   []string
	defaults []*ast.Node
	body     *ast.Node
	defFrame *scope.Frame
	bound    []value.Value // leading arguments already supplied via Curry
}

func (c *closure) Arity() int {
	n := len(c.params) - len(c.bound)
	if n < 0 {
		return 0
	}
	return n
}

func (c *closure) Curry(args []value.Value) value.Callable {
	bound := make([]value.Value, 0, len(c.bound)+len(args))
	bound = append(bound, c.bound...)
	bound = append(bound, args...)
	return &closure{ip: c.ip, params: c.params, defaults: c.defaults, body: c.body, defFrame: c.defFrame, bound: bound}
}

func (c *closure) Call(args []value.Value) (value.Value, error) {
	full := make([]value.Value, 0, len(c.bound)+len(args))
	full = append(full, c.bound...)
	full = append(full, args...)

	callFr := scope.NewChild(c.defFrame)
	for i, name := range c.params {
		var v value.Value
		switch {
		case i < len(full):
			v = full[i]
		case c.defaults[i] != nil:
			dv, err := c.ip.Eval(c.defaults[i], callFr)
			if err != nil {
				return value.Value{}, err
			}
			v = dv
		default:
			v = value.Null
		}
		slot, err := callFr.Declare(name, scope.TypeAny, false)
		if err != nil {
			return value.Value{}, err
		}
		if err := slot.Init(c.ip.Arithmetic, v); err != nil {
			return value.Value{}, err
		}
	}

	result, err := c.ip.Eval(c.body, callFr)
	if err != nil {
		if ret, ok := err.(ctrlReturn); ok {
			return ret.v, nil
		}
		return value.Value{}, err
	}
	return result, nil
}
