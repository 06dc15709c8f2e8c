package scope

import (
	"fmt"
	"strings"

	"github.com/kestrelang/kestrel/value"
)

// SlotType is the declared-type tag of a frame slot (spec §3.3).
type SlotType uint8

const (
	TypeAny SlotType = iota
	TypeBoolean
	TypeChar
	TypeByte
	TypeShort
	TypeInt
	TypeLong
	TypeFloat
	TypeDouble
	TypeBigInt
	TypeBigDecimal
	TypeString
)

// Zero returns the declared type's zero value (spec §3.3).
func (t SlotType) Zero() value.Value {
	switch t {
	case TypeBoolean:
		return value.Bool(false)
	case TypeChar:
		return value.Char(0)
	case TypeByte:
		return value.Int8(0)
	case TypeShort:
		return value.Int16(0)
	case TypeInt:
		return value.Int32(0)
	case TypeLong:
		return value.Int64(0)
	case TypeFloat:
		return value.Float32(0)
	case TypeDouble:
		return value.Float64(0)
	case TypeBigInt:
		return value.Int64(0)
	case TypeBigDecimal:
		return value.Int64(0)
	case TypeString:
		return value.String("")
	default:
		return value.Null
	}
}

// Absorb reports whether v can be stored into a slot of type t, applying
// the arithmetic's coercion rules; it returns the (possibly narrowed/
// widened) value to store.
func (t SlotType) Absorb(ar *value.Arithmetic, v value.Value) (value.Value, bool) {
	if t == TypeAny {
		return v, true
	}
	switch t {
	case TypeString:
		if v.Kind() == value.KindString {
			return v, true
		}
		return value.Value{}, false
	case TypeBoolean:
		if v.Kind() == value.KindBool {
			return v, true
		}
		return value.Value{}, false
	default:
		// numeric / char slots: best-effort coercion via the arithmetic's
		// add-with-zero trick keeps one code path for every numeric width.
		zero := t.Zero()
		sum, err := ar.Add(zero, v)
		if err != nil {
			return value.Value{}, false
		}
		return narrowTo(t, sum), true
	}
}

func narrowTo(t SlotType, v value.Value) value.Value {
	switch t {
	case TypeChar:
		return value.Char(rune(v.AsInt()))
	case TypeByte:
		return value.Int8(int8(v.AsInt()))
	case TypeShort:
		return value.Int16(int16(v.AsInt()))
	case TypeInt:
		return value.Int32(int32(v.AsInt()))
	case TypeLong:
		return value.Int64(v.AsInt())
	case TypeFloat:
		return value.Float32(float32(v.AsFloat64()))
	case TypeDouble:
		return value.Float64(v.AsFloat64())
	default:
		return v
	}
}

// Slot is one named storage location in a Frame.
type Slot struct {
	Name     string
	Type     SlotType
	Final    bool
	Captured bool
	init     bool
	val      value.Value
}

// Frame is a lexical frame: a growing list of slots, ancestor-linked so
// closures can read/write an enclosing frame's slots by reference (spec
// §3.3, §9). Slots are declared by name as the interpreter walks a block's
// statements; since the same AST is walked the same way on every
// evaluation of a given block, slot identity for a given declaration site
// is stable for the lifetime of one Frame instance, and a fresh Frame is
// created per block entry (so a re-executed loop body redeclares cleanly
// rather than tripping the "already declared" check across iterations).
type Frame struct {
	Anc   *Frame
	slots []*Slot
	names map[string]int
	ctx   Context // present only on the outermost (root) frame
}

// NewRoot creates the outermost frame backed by a host Context.
func NewRoot(ctx Context) *Frame { return &Frame{ctx: ctx, names: map[string]int{}} }

// NewChild creates a lexical frame ancestor-linked to anc for closure
// capture. Closures capture anc itself (a live frame-chain pointer), not a
// snapshot, which is what gives capture-by-reference its semantics.
func NewChild(anc *Frame) *Frame {
	return &Frame{Anc: anc, names: map[string]int{}}
}

// Declare adds a new named slot to f, failing if name is already declared
// in this exact lexical block (spec §3.3 "variable is already declared").
// Declaring the same name in an ancestor frame is shadowing, not an error.
func (f *Frame) Declare(name string, typ SlotType, final bool) (*Slot, error) {
	if _, ok := f.names[name]; ok {
		return nil, fmt.Errorf("variable %q is already declared", name)
	}
	s := &Slot{Name: name, Type: typ, Final: final}
	f.names[name] = len(f.slots)
	f.slots = append(f.slots, s)
	return s, nil
}

func (f *Frame) Root() *Frame {
	r := f
	for r.Anc != nil {
		r = r.Anc
	}
	return r
}

func (f *Frame) RootContext() Context { return f.Root().ctx }

// Slots returns this frame's own declared slots (not ancestors'), used for
// "did you mean" suggestions and captured-variable bookkeeping.
func (f *Frame) Slots() []*Slot { return f.slots }

// Lookup walks the frame chain starting at f, returning the first slot
// named `name` and the frame that declared it. The boolean `outer` in the
// caller's hands (slot's owning frame != f) is what marks a reference as a
// capture rather than a purely-local read.
func (f *Frame) Lookup(name string) (*Slot, *Frame, bool) {
	for fr := f; fr != nil; fr = fr.Anc {
		if i, ok := fr.names[name]; ok {
			return fr.slots[i], fr, true
		}
	}
	return nil, nil, false
}

// Get reads a slot's value.
func (s *Slot) Get() value.Value {
	if !s.init {
		return s.Type.Zero()
	}
	return s.val
}

// Set writes v into the slot, enforcing final immutability (spec §3.3,
// §8.1.3). Once observable, a final slot cannot change — callers must
// check the returned error before any caller-visible side effect.
func (s *Slot) Set(ar *value.Arithmetic, v value.Value) error {
	if s.Final && s.init {
		return fmt.Errorf("cannot assign to final variable %q", s.Name)
	}
	narrowed, ok := s.Type.Absorb(ar, v)
	if !ok {
		return fmt.Errorf("cannot assign value of kind %s to %q declared as %v", v.Kind(), s.Name, s.Type)
	}
	s.val = narrowed
	s.init = true
	return nil
}

// Init sets a slot's initial value without the final-after-init check
// (used once, by the declaration statement itself).
func (s *Slot) Init(ar *value.Arithmetic, v value.Value) error {
	narrowed, ok := s.Type.Absorb(ar, v)
	if !ok {
		return fmt.Errorf("cannot initialize %q declared as %v with value of kind %s", s.Name, s.Type, v.Kind())
	}
	s.val = narrowed
	s.init = true
	return nil
}

// Initialized reports whether the slot has ever been written, used to
// raise "uninitialized final" compile-adjacent errors at first read.
func (s *Slot) Initialized() bool { return s.init }

func (s SlotType) String() string {
	names := []string{"any", "boolean", "char", "byte", "short", "int", "long", "float", "double", "bigint", "bigdecimal", "string"}
	if int(s) < len(names) {
		return names[s]
	}
	return "any"
}

// Antish resolves a dotted name as a single context key, per spec §3.5.
// It is called by the interpreter only after the object-graph walk on the
// longest bound prefix has failed to resolve the remaining suffix.
func Antish(ctx Context, dotted string) (value.Value, bool) {
	return ctx.Get(dotted)
}

// AntishRootDisabled reports whether `root` has a local/parameter
// declaration anywhere on the current frame chain, which disables antish
// interpretation for paths rooted at that name (spec §3.5 — extended in
// DESIGN.md Open Question 1 to cover parameter shadowing too).
func AntishRootDisabled(f *Frame, root string) bool {
	_, _, ok := f.Lookup(root)
	return ok
}

// SplitDotted splits "foo.bar.baz" into its segments.
func SplitDotted(name string) []string { return strings.Split(name, ".") }
