package introspect

import (
	"reflect"

	"github.com/iancoleman/strcase"

	"github.com/kestrelang/kestrel/errs"
	"github.com/kestrelang/kestrel/sandbox"
	"github.com/kestrelang/kestrel/value"
)

// Invoke resolves and calls `obj.m(args)` (spec §4.2). Overload ambiguity
// (two applicable methods, neither more specific than the other) always
// fails with AmbiguousMethodError, even under silent mode (spec §7).
func (r *Resolver) Invoke(site *Site, host *value.HostObject, name string, args []value.Value) (value.Value, error) {
	recv := reflect.ValueOf(host.Impl)
	if a, ok := site.Load(recv); ok && a.invoke != nil && a.method.Func.IsValid() {
		// Re-apply the resolved method's signature against this call's
		// own arguments: a cache hit must not replay the rargs captured
		// at the first resolution (spec §4.2/§5 — ordinary repeated
		// calls, e.g. a loop body, pass different arguments each time).
		rargs, _, ok := tryApply(a.method, args)
		if !ok {
			return value.Value{}, errs.MethodError(name, nil, span())
		}
		out, _ := a.invoke(recv, rargs)
		if out.IsValid() && out.Type().Implements(errorInterface) && !out.IsNil() {
			return value.Value{}, out.Interface().(error)
		}
		if !out.IsValid() {
			return value.Null, nil
		}
		return r.wrap(out), nil
	}
	class := host.Class.ClassName()
	t := reflect.TypeOf(host.Impl)
	host2 := r.Sandbox.ResolveAlias(class, name)

	if !r.Sandbox.Check("", class, name, sandbox.Execute) {
		return value.Value{}, errs.MethodError(name, nil, span())
	}

	candidates := matchingMethods(t, host2)
	if len(candidates) == 0 {
		// Scripts call methods in bean/camelCase style ("raise"); Go
		// methods are exported ("Raise"). Fall back to the exported
		// spelling before giving up, the same convention resolveGet/
		// resolveSet already apply to bean properties.
		candidates = matchingMethods(t, strcase.ToCamel(host2))
	}
	if len(candidates) == 0 {
		return value.Value{}, errs.MethodError(name, visibleMembers(t), span())
	}
	best, rargs, err := pickOverload(candidates, args)
	if err != nil {
		return value.Value{}, err
	}

	a := &Accessor{receiverType: t, method: best, invoke: func(recv reflect.Value, args []reflect.Value) (reflect.Value, bool) {
		out := recv.Method(best.Index).Call(args)
		if len(out) == 0 {
			return reflect.Value{}, true
		}
		return out[0], true
	}}
	site.Store(a)

	out, _ := a.invoke(recv, rargs)
	if out.IsValid() && out.Type().Implements(errorInterface) && !out.IsNil() {
		return value.Value{}, out.Interface().(error)
	}
	if !out.IsValid() {
		return value.Null, nil
	}
	return r.wrap(out), nil
}

var errorInterface = reflect.TypeOf((*error)(nil)).Elem()

func matchingMethods(t reflect.Type, name string) []reflect.Method {
	var out []reflect.Method
	for i := 0; i < t.NumMethod(); i++ {
		if t.Method(i).Name == name {
			out = append(out, t.Method(i))
		}
	}
	return out
}

// pickOverload implements the "best-match method whose declared parameter
// types can accept the provided arguments after numeric widening,
// unboxing and varargs expansion" rule (spec §4.2), failing with
// AmbiguousMethodError when two candidates are equally applicable.
func pickOverload(candidates []reflect.Method, args []value.Value) (reflect.Method, []reflect.Value, error) {
	type fit struct {
		m      reflect.Method
		rargs  []reflect.Value
		score  int
	}
	var fits []fit
	for _, m := range candidates {
		rargs, score, ok := tryApply(m, args)
		if ok {
			fits = append(fits, fit{m: m, rargs: rargs, score: score})
		}
	}
	if len(fits) == 0 {
		return reflect.Method{}, nil, errs.MethodError(candidates[0].Name, nil, span())
	}
	best := fits[0]
	ambiguous := false
	for _, f := range fits[1:] {
		if f.score == best.score {
			ambiguous = true
		} else if f.score > best.score {
			best = f
			ambiguous = false
		}
	}
	if ambiguous {
		return reflect.Method{}, nil, errs.AmbiguousMethodError(best.m.Name, span())
	}
	return best.m, best.rargs, nil
}

// tryApply attempts to bind args to m's parameters (skipping the receiver),
// returning a specificity score (higher = more specific, i.e. fewer
// widenings) when applicable.
func tryApply(m reflect.Method, args []value.Value) ([]reflect.Value, int, bool) {
	mt := m.Type
	numIn := mt.NumIn() - 1 // drop receiver
	variadic := mt.IsVariadic()
	if !variadic && len(args) != numIn {
		return nil, 0, false
	}
	if variadic && len(args) < numIn-1 {
		return nil, 0, false
	}
	rargs := make([]reflect.Value, 0, len(args))
	score := 0
	for i, av := range args {
		var pt reflect.Type
		switch {
		case variadic && i >= numIn-1:
			pt = mt.In(numIn).Elem()
		default:
			pt = mt.In(i + 1)
		}
		rv, s, ok := convertOne(av, pt)
		if !ok {
			return nil, 0, false
		}
		score += s
		rargs = append(rargs, rv)
	}
	return rargs, score, true
}

// convertOne converts a value.Value to a reflect.Value assignable to pt,
// scoring exact matches highest and numeric widenings lower.
func convertOne(av value.Value, pt reflect.Type) (reflect.Value, int, bool) {
	switch pt.Kind() {
	case reflect.String:
		if av.Kind() == value.KindString {
			return reflect.ValueOf(av.AsString()), 2, true
		}
	case reflect.Bool:
		if av.Kind() == value.KindBool {
			return reflect.ValueOf(av.AsBool()), 2, true
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if av.Kind() == value.KindInt {
			n := reflect.New(pt).Elem()
			n.SetInt(av.AsInt())
			score := 2
			if int(av.Width()) != pt.Bits() {
				score = 1
			}
			return n, score, true
		}
	case reflect.Float32, reflect.Float64:
		if av.Kind() == value.KindFloat || av.Kind() == value.KindInt {
			n := reflect.New(pt).Elem()
			if av.Kind() == value.KindFloat {
				n.SetFloat(av.AsFloat64())
				return n, 2, true
			}
			n.SetFloat(float64(av.AsInt()))
			return n, 1, true
		}
	case reflect.Interface:
		if pt.NumMethod() == 0 {
			return reflect.ValueOf(toGo(av)), 0, true
		}
	}
	return reflect.Value{}, 0, false
}

func toGo(av value.Value) interface{} {
	switch av.Kind() {
	case value.KindString:
		return av.AsString()
	case value.KindBool:
		return av.AsBool()
	case value.KindInt:
		return av.AsInt()
	case value.KindFloat:
		return av.AsFloat64()
	case value.KindHostObject:
		return av.AsHostObject().Impl
	default:
		return nil
	}
}

// Construct resolves and invokes `new(Class, args...)` (spec §4.2, §4.5.4).
func (r *Resolver) Construct(class *Class, args []value.Value) (value.Value, error) {
	if !r.Sandbox.Check("", class.Name, "<init>", sandbox.Execute) {
		return value.Value{}, errs.MethodError(class.Name, nil, span())
	}
	t := class.Type
	ptrT := reflect.PtrTo(t)
	if m, ok := ptrT.MethodByName("New"); ok {
		rargs, _, ok := tryApply(m, args)
		if !ok {
			return value.Value{}, errs.MethodError("new", nil, span())
		}
		out := reflect.Zero(ptrT).Method(m.Index).Call(rargs)
		if len(out) > 0 {
			return value.Object(r.Registry.NewHostObject(out[0].Interface())), nil
		}
	}
	// default: zero-value construction when no args and no factory method.
	if len(args) == 0 {
		inst := reflect.New(t).Interface()
		return value.Object(r.Registry.NewHostObject(inst)), nil
	}
	return value.Value{}, errs.MethodError("new", nil, span())
}

// IndexGet resolves `obj[key]` (spec §4.2): arrays/sequences by integer
// index, maps by key, otherwise falls through to PropertyGet using
// key.toString().
func (r *Resolver) IndexGet(site *Site, recv value.Value, key value.Value) (value.Value, error) {
	switch recv.Kind() {
	case value.KindSeq:
		i := int(key.AsInt())
		seq := recv.AsSeq()
		if i < 0 || i >= len(seq) {
			return value.Value{}, errs.PropertyError(key.String(), nil, span())
		}
		return seq[i], nil
	case value.KindMap:
		if key.IsNull() && !r.Sandbox.Check("", "map", "null-key", sandbox.Read) {
			return value.Value{}, errs.PropertyError("null", nil, span())
		}
		v, ok := recv.AsMap().Get(key)
		if !ok {
			return value.Null, nil
		}
		return v, nil
	case value.KindHostObject:
		return r.PropertyGet(site, recv.AsHostObject(), key.String())
	default:
		return value.Value{}, errs.PropertyError(key.String(), nil, span())
	}
}

// IndexSet resolves `obj[key] = v`.
func (r *Resolver) IndexSet(site *Site, recv value.Value, key, v value.Value) error {
	switch recv.Kind() {
	case value.KindSeq:
		i := int(key.AsInt())
		seq := recv.AsSeq()
		if i < 0 || i >= len(seq) {
			return errs.PropertyError(key.String(), nil, span())
		}
		seq[i] = v
		return nil
	case value.KindMap:
		m := recv.AsMap()
		if m.Immutable() {
			return errs.PropertyError(key.String(), nil, span())
		}
		m.Put(key, v)
		return nil
	case value.KindHostObject:
		return r.PropertySet(site, recv.AsHostObject(), key.String(), v)
	default:
		return errs.PropertyError(key.String(), nil, span())
	}
}
