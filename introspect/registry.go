// Package introspect implements host-object property/index/method/
// constructor resolution with a per-call-site accessor cache (spec
// component B, §4.2), gated by a sandbox.Sandbox (component C).
package introspect

import (
	"reflect"
	"sync"

	"github.com/kestrelang/kestrel/value"
)

// Class wraps a registered host reflect.Type, implementing both
// value.ClassDescriptor (for array-literal common-ancestor typing) and
// sandbox.ClassHierarchy-compatible ancestor listing.
type Class struct {
	Name       string
	Type       reflect.Type
	supertypes []string // embedded-struct ancestors, most-derived first
	interfaces []string // declaration-order registered interfaces this type implements
}

func (c *Class) ClassName() string      { return c.Name }
func (c *Class) Supertypes() []string   { return c.supertypes }
func (c *Class) Interfaces() []string   { return c.interfaces }

// Registry tracks registered host types, computing the supertype/interface
// chain used by array-literal typing (spec §4.1) and sandbox inheritance
// (spec §3.7).
type Registry struct {
	mu         sync.RWMutex
	classes    map[reflect.Type]*Class
	byName     map[string]*Class
	interfaces []namedInterface // declaration order, for "classes before interfaces"
}

type namedInterface struct {
	name string
	typ  reflect.Type
}

func NewRegistry() *Registry {
	return &Registry{classes: map[reflect.Type]*Class{}, byName: map[string]*Class{}}
}

// RegisterInterface declares a script-visible interface name backed by a Go
// interface type, checked against every registered class.
func (r *Registry) RegisterInterface(name string, ifaceType reflect.Type) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.interfaces = append(r.interfaces, namedInterface{name: name, typ: ifaceType})
}

// Register records a host type under a script-visible class name and
// computes its ancestor chain. t may be a struct or pointer-to-struct.
func (r *Registry) Register(name string, t reflect.Type) *Class {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.classes[t]; ok {
		return c
	}
	c := &Class{Name: name, Type: t}
	c.supertypes = embeddedAncestors(t)
	for _, ni := range r.interfaces {
		if t.Implements(ni.typ) || (t.Kind() != reflect.Ptr && reflect.PtrTo(t).Implements(ni.typ)) {
			c.interfaces = append(c.interfaces, ni.name)
		}
	}
	r.classes[t] = c
	r.byName[name] = c
	return c
}

// ClassOf returns the registered Class for t, auto-registering it under its
// Go type name if not already known.
func (r *Registry) ClassOf(t reflect.Type) *Class {
	r.mu.RLock()
	c, ok := r.classes[t]
	r.mu.RUnlock()
	if ok {
		return c
	}
	name := t.Name()
	if name == "" && t.Kind() == reflect.Ptr {
		name = t.Elem().Name()
	}
	return r.Register(name, t)
}

// ByName returns a previously registered class.
func (r *Registry) ByName(name string) (*Class, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byName[name]
	return c, ok
}

// Ancestors implements sandbox.ClassHierarchy: superclasses then
// interfaces, most-derived first, for a script-visible class name.
func (r *Registry) Ancestors(class string) []string {
	c, ok := r.ByName(class)
	if !ok {
		return nil
	}
	out := append([]string(nil), c.supertypes...)
	out = append(out, c.interfaces...)
	return out
}

// embeddedAncestors walks anonymous struct fields to build a supertype
// chain — the closest Go-idiomatic analog to single inheritance, since Go
// structs express "is-a" via embedding rather than a class keyword.
func embeddedAncestors(t reflect.Type) []string {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}
	var out []string
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.Anonymous {
			continue
		}
		ft := f.Type
		for ft.Kind() == reflect.Ptr {
			ft = ft.Elem()
		}
		out = append(out, ft.Name())
		out = append(out, embeddedAncestors(ft)...)
	}
	return out
}

// NewHostObject wraps impl with its registered class descriptor.
func (r *Registry) NewHostObject(impl interface{}) *value.HostObject {
	t := reflect.TypeOf(impl)
	return &value.HostObject{Class: r.ClassOf(t), Impl: impl}
}
