package value

import "strings"

// OrderedSet preserves insertion order, matching host collection literal
// semantics where iteration order is observable.
type OrderedSet struct {
	order []Value
	index map[string]int
	immutable bool
}

func NewSet(immutable bool) *OrderedSet {
	return &OrderedSet{index: map[string]int{}, immutable: immutable}
}

func (s *OrderedSet) Immutable() bool { return s.immutable }

func (s *OrderedSet) Add(v Value) bool {
	k := setKey(v)
	if _, ok := s.index[k]; ok {
		return false
	}
	s.index[k] = len(s.order)
	s.order = append(s.order, v)
	return true
}

func (s *OrderedSet) Has(v Value) bool {
	_, ok := s.index[setKey(v)]
	return ok
}

func (s *OrderedSet) Len() int { return len(s.order) }

func (s *OrderedSet) Items() []Value { return s.order }

func (s *OrderedSet) String() string {
	parts := make([]string, len(s.order))
	for i, v := range s.order {
		parts[i] = v.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// setKey produces a stable hash key for set/map membership. Ranges hash by
// bounds (spec §4.1 "ranges... hash identically" for equal bounds).
func setKey(v Value) string {
	switch v.kind {
	case KindRange:
		return "range:" + v.rng.String()
	default:
		return v.kind.String() + ":" + v.String()
	}
}

// OrderedMap preserves insertion order of keys.
type OrderedMap struct {
	order []Value
	data  map[string]Value
	keyOf map[string]Value
	immutable bool
}

func NewMap(immutable bool) *OrderedMap {
	return &OrderedMap{data: map[string]Value{}, keyOf: map[string]Value{}, immutable: immutable}
}

func (m *OrderedMap) Immutable() bool { return m.immutable }

func (m *OrderedMap) Put(k, v Value) {
	key := setKey(k)
	if _, ok := m.data[key]; !ok {
		m.order = append(m.order, k)
	}
	m.data[key] = v
	m.keyOf[key] = k
}

func (m *OrderedMap) Get(k Value) (Value, bool) {
	v, ok := m.data[setKey(k)]
	return v, ok
}

func (m *OrderedMap) Delete(k Value) bool {
	key := setKey(k)
	if _, ok := m.data[key]; !ok {
		return false
	}
	delete(m.data, key)
	delete(m.keyOf, key)
	for i, ek := range m.order {
		if setKey(ek) == key {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return true
}

func (m *OrderedMap) Len() int { return len(m.order) }

// Keys returns the key set, used by regex membership tests against maps
// (spec §4.1 "tests on map apply to key set").
func (m *OrderedMap) Keys() []Value { return m.order }

func (m *OrderedMap) Entries() [][2]Value {
	out := make([][2]Value, 0, len(m.order))
	for _, k := range m.order {
		v := m.data[setKey(k)]
		out = append(out, [2]Value{k, v})
	}
	return out
}

func (m *OrderedMap) String() string {
	parts := make([]string, 0, len(m.order))
	for _, k := range m.order {
		v := m.data[setKey(k)]
		parts = append(parts, k.String()+":"+v.String())
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// ArrayBuilder materializes a typed array value, computing the common
// ancestor element type by intersecting supertypes+interfaces across all
// non-null entries (spec §4.1). Kestrel represents the "typed array" as a
// Seq value carrying an ElementType annotation rather than a distinct Go
// type, since the interpreter never needs to enforce storage at the Go
// level (the sandbox/introspection layer enforces it at the host level).
type ArrayBuilder struct {
	entries []Value
	spread  bool // trailing ellipsis marker -> materializes as sequence, no typing
}

func NewArrayBuilder() *ArrayBuilder { return &ArrayBuilder{} }

func (b *ArrayBuilder) Append(v Value)   { b.entries = append(b.entries, v) }
func (b *ArrayBuilder) SetSpread(v bool) { b.spread = v }

// Create materializes the array. ElementType is "" when spread is set, when
// there are no non-null entries, or when the computed ancestor is the root
// object type (array is typed loosely per spec).
func (b *ArrayBuilder) Create() (Value, string) {
	fresh := make([]Value, len(b.entries))
	copy(fresh, b.entries)
	if b.spread {
		return Seq(fresh), ""
	}
	elemType := commonAncestor(b.entries)
	return TypedSeq(fresh, elemType), elemType
}

// commonAncestor intersects ancestor chains (supertypes then interfaces, in
// declaration order, subclasses before superclasses, classes before
// interfaces) across every non-null entry and returns the first common
// name, or "" ("object") if none but the root is shared.
func commonAncestor(entries []Value) string {
	var chains [][]string
	for _, e := range entries {
		if e.IsNull() || e.kind != KindHostObject {
			continue
		}
		chains = append(chains, classChain(e.host.Class))
	}
	if len(chains) == 0 {
		return ""
	}
	first := chains[0]
	for _, name := range first {
		if name == "" {
			continue
		}
		sharedByAll := true
		for _, chain := range chains[1:] {
			if !containsString(chain, name) {
				sharedByAll = false
				break
			}
		}
		if sharedByAll {
			return name
		}
	}
	return ""
}

// classChain renders a class's own name, then its ordered ancestors
// (subclasses before superclasses), then its interfaces in declaration
// order, classes before interfaces as required by the spec.
func classChain(c ClassDescriptor) []string {
	if c == nil {
		return nil
	}
	chain := []string{c.ClassName()}
	chain = append(chain, c.Supertypes()...)
	chain = append(chain, c.Interfaces()...)
	return chain
}

func containsString(hay []string, needle string) bool {
	for _, h := range hay {
		if h == needle {
			return true
		}
	}
	return false
}
