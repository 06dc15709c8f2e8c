package introspect

import (
	"reflect"

	"github.com/iancoleman/strcase"

	"github.com/kestrelang/kestrel/errs"
	"github.com/kestrelang/kestrel/sandbox"
	"github.com/kestrelang/kestrel/value"
)

// Strategy names the bean-vs-map-key precedence for container-like host
// objects (spec §4.2). A Resolver stores its Strategy but does not consult
// it: whichever value is set, a read tries a bean getter (GetName/IsName),
// then a generic Get(key) method, then an exported field, and a write tries
// a SetName method, then an exported field, never a Put(key, v) method.
type Strategy int

const (
	// StrategyJEXL: bean getters win over get(key); map.size/class/empty
	// behave as reflective bean properties.
	StrategyJEXL Strategy = iota
	// StrategyMap names get(key)/put(key,v) precedence; a Resolver given it
	// resolves members exactly as under StrategyJEXL.
	StrategyMap
)

// Resolver resolves and invokes host members, gated by a sandbox.
type Resolver struct {
	Registry *Registry
	Sandbox  *sandbox.Sandbox
	Strategy Strategy
}

func NewResolver(reg *Registry, sb *sandbox.Sandbox, strat Strategy) *Resolver {
	return &Resolver{Registry: reg, Sandbox: sb, Strategy: strat}
}

func span() errs.Span { return errs.Span{} }

// visibleMembers lists a type's exported field and method names, used only
// for "did you mean" suggestions — never for deciding access, so sandboxed
// members never leak through a suggestion for a *different* blocked name
// (spec §8.1.4 is about the decision, not the hint vocabulary; a denied
// member's own name is still reported as the failing name, matching JEXL).
func visibleMembers(t reflect.Type) []string {
	rt := t
	for rt.Kind() == reflect.Ptr {
		rt = rt.Elem()
	}
	var names []string
	if rt.Kind() == reflect.Struct {
		for i := 0; i < rt.NumField(); i++ {
			if rt.Field(i).IsExported() {
				names = append(names, rt.Field(i).Name)
			}
		}
	}
	for i := 0; i < t.NumMethod(); i++ {
		names = append(names, t.Method(i).Name)
	}
	return names
}

// PropertyGet resolves `obj.name`, consulting the cache site first (spec
// §4.2 resolution order).
func (r *Resolver) PropertyGet(site *Site, host *value.HostObject, name string) (value.Value, error) {
	recv := reflect.ValueOf(host.Impl)
	if a, ok := site.Load(recv); ok && a.get != nil {
		if rv, ok := a.get(recv); ok {
			return r.wrap(rv), nil
		}
	}
	a, err := r.resolveGet(host, name)
	if err != nil {
		return value.Value{}, err
	}
	site.Store(a)
	rv, ok := a.get(recv)
	if !ok {
		return value.Value{}, errs.PropertyError(name, nil, span())
	}
	return r.wrap(rv), nil
}

func (r *Resolver) resolveGet(host *value.HostObject, name string) (*Accessor, error) {
	class := host.Class.ClassName()
	t := reflect.TypeOf(host.Impl)
	host2 := r.Sandbox.ResolveAlias(class, name)

	// 1. bean getter: getName / isName
	for _, candidate := range []string{"Get" + strcase.ToCamel(host2), "Is" + strcase.ToCamel(host2)} {
		if m, ok := t.MethodByName(candidate); ok && m.Type.NumIn() == 1 && m.Type.NumOut() >= 1 {
			if !r.Sandbox.Check("", class, name, sandbox.Read) {
				continue
			}
			return &Accessor{receiverType: t, get: func(recv reflect.Value) (reflect.Value, bool) {
				out := recv.Method(m.Index).Call(nil)
				return out[0], true
			}}, nil
		}
	}
	// generic get(String)/get(Object) duck-typed map access
	if m, ok := t.MethodByName("Get"); ok && m.Type.NumIn() == 2 {
		if r.Sandbox.Check("", class, name, sandbox.Read) {
			return &Accessor{receiverType: t, get: func(recv reflect.Value) (reflect.Value, bool) {
				out := recv.Method(m.Index).Call([]reflect.Value{reflect.ValueOf(name)})
				if len(out) == 2 && !out[1].IsZero() {
					return out[0], true
				}
				if len(out) >= 1 {
					return out[0], true
				}
				return reflect.Value{}, false
			}}, nil
		}
	}

	// 2. public field named `name` (or host2 via alias)
	rt := t
	for rt.Kind() == reflect.Ptr {
		rt = rt.Elem()
	}
	if rt.Kind() == reflect.Struct {
		if f, ok := rt.FieldByName(strcase.ToCamel(host2)); ok && f.IsExported() {
			if r.Sandbox.Check("", class, name, sandbox.Read) {
				return &Accessor{receiverType: t, get: func(recv reflect.Value) (reflect.Value, bool) {
					v := recv
					for v.Kind() == reflect.Ptr {
						v = v.Elem()
					}
					return v.FieldByIndex(f.Index), true
				}}, nil
			}
		}
	}

	return nil, errs.PropertyError(name, visibleMembers(t), span())
}

// PropertySet resolves `obj.name = v` (spec §4.2).
func (r *Resolver) PropertySet(site *Site, host *value.HostObject, name string, v value.Value) error {
	recv := reflect.ValueOf(host.Impl)
	if a, ok := site.Load(recv); ok && a.set != nil {
		if a.set(recv, v) {
			return nil
		}
	}
	a, err := r.resolveSet(host, name)
	if err != nil {
		return err
	}
	site.Store(a)
	if !a.set(recv, v) {
		return errs.PropertyError(name, nil, span())
	}
	return nil
}

func (r *Resolver) resolveSet(host *value.HostObject, name string) (*Accessor, error) {
	class := host.Class.ClassName()
	t := reflect.TypeOf(host.Impl)
	host2 := r.Sandbox.ResolveAlias(class, name)

	if m, ok := t.MethodByName("Set" + strcase.ToCamel(host2)); ok && m.Type.NumIn() == 2 {
		if r.Sandbox.Check("", class, name, sandbox.Write) {
			paramType := m.Type.In(1)
			return &Accessor{receiverType: t, set: func(recv reflect.Value, v value.Value) bool {
				rv, _, ok := convertOne(v, paramType)
				if !ok {
					return false
				}
				defer func() { recover() }()
				recv.Method(m.Index).Call([]reflect.Value{rv})
				return true
			}}, nil
		}
	}
	rt := t
	for rt.Kind() == reflect.Ptr {
		rt = rt.Elem()
	}
	if rt.Kind() == reflect.Struct {
		if f, ok := rt.FieldByName(strcase.ToCamel(host2)); ok && f.IsExported() {
			if r.Sandbox.Check("", class, name, sandbox.Write) {
				fieldType := f.Type
				return &Accessor{receiverType: t, set: func(recv reflect.Value, v value.Value) bool {
					rv, _, ok := convertOne(v, fieldType)
					if !ok {
						return false
					}
					defer func() { recover() }()
					target := recv
					for target.Kind() == reflect.Ptr {
						target = target.Elem()
					}
					target.FieldByIndex(f.Index).Set(rv)
					return true
				}}, nil
			}
		}
	}
	return nil, errs.PropertyError(name, visibleMembers(t), span())
}

// wrap converts a reflect.Value returned from a host accessor back into an
// engine value.Value. There is no hook for a custom converter: bool,
// string, integer and float kinds map to the matching value kinds, and
// every other kind is wrapped as a host object.
func (r *Resolver) wrap(rv reflect.Value) value.Value {
	if !rv.IsValid() {
		return value.Null
	}
	switch rv.Kind() {
	case reflect.Bool:
		return value.Bool(rv.Bool())
	case reflect.String:
		return value.String(rv.String())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return value.Int64(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return value.Int64(int64(rv.Uint()))
	case reflect.Float32:
		return value.Float32(float32(rv.Float()))
	case reflect.Float64:
		return value.Float64(rv.Float())
	default:
		return value.Object(r.Registry.NewHostObject(rv.Interface()))
	}
}
