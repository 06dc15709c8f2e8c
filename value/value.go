// Package value implements the engine's single polymorphic value type and
// the arithmetic/coercion layer that operates on it (spec component A).
package value

import (
	"fmt"
	"math/big"
	"sort"
	"strings"
)

// Kind tags the dynamic type carried by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindChar
	KindInt // fixed-width signed integer; Width distinguishes 8/16/32/64
	KindBigInt
	KindFloat // Width distinguishes 32/64
	KindBigDecimal
	KindString
	KindSeq
	KindSet
	KindMap
	KindRange
	KindHostObject
	KindMethodRef
	KindCallable
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindChar:
		return "character"
	case KindInt:
		return "integer"
	case KindBigInt:
		return "bigint"
	case KindFloat:
		return "float"
	case KindBigDecimal:
		return "bigdecimal"
	case KindString:
		return "string"
	case KindSeq:
		return "sequence"
	case KindSet:
		return "set"
	case KindMap:
		return "map"
	case KindRange:
		return "range"
	case KindHostObject:
		return "object"
	case KindMethodRef:
		return "methodref"
	case KindCallable:
		return "program"
	default:
		return "unknown"
	}
}

// promotion rank order, narrowest to widest, per spec §4.1.
const (
	rankByte = iota
	rankShort
	rankInt
	rankLong
	rankFloat
	rankDouble
	rankBigInt
	rankBigDecimal
)

// Width marks the bit width of an Int or Float kind.
type Width uint8

const (
	W8 Width = 8
	W16 Width = 16
	W32 Width = 32
	W64 Width = 64
)

// Callable is implemented by the value program.Program.Callable returns and
// by interp's closures; kept as a local interface so
// value does not import program (which imports value for slot storage).
type Callable interface {
	Call(args []Value) (Value, error)
	Curry(args []Value) Callable
	Arity() int
}

// ClassDescriptor is implemented by host object wrappers so the literal
// array builder can compute a common ancestor element type without value
// importing introspect.
type ClassDescriptor interface {
	ClassName() string
	Supertypes() []string // ordered, subclass-most-derived-first excluded (ancestors only)
	Interfaces() []string // ordered, declaration order
}

// HostObject is an opaque handle to a host-language object plus its class
// descriptor.
type HostObject struct {
	Class ClassDescriptor
	Impl  interface{}
}

// MethodRef binds either (receiver, method) or (class, method).
type MethodRef struct {
	Receiver *HostObject
	Class    ClassDescriptor
	Name     string
	Static   bool
}

// Value is the engine's single polymorphic value type (spec §3.1).
type Value struct {
	kind  Kind
	width Width

	b   bool
	ch  rune
	i   int64
	bi  *big.Int
	f32 float32
	f64 float64
	bd  *Decimal

	s string

	seq     []Value
	elemType string
	set *OrderedSet
	m   *OrderedMap
	rng Range

	host *HostObject
	meth *MethodRef
	call Callable
}

// Kind returns the dynamic tag of v.
func (v Value) Kind() Kind { return v.kind }

// Width returns the bit width for Int/Float kinds, else 0.
func (v Value) Width() Width { return v.width }

var Null = Value{kind: KindNull}

func Bool(b bool) Value { return Value{kind: KindBool, b: b} }
func Char(c rune) Value { return Value{kind: KindChar, ch: c} }

func Int(i int64, w Width) Value { return Value{kind: KindInt, i: i, width: w} }
func Int8(i int8) Value          { return Int(int64(i), W8) }
func Int16(i int16) Value        { return Int(int64(i), W16) }
func Int32(i int32) Value        { return Int(int64(i), W32) }
func Int64(i int64) Value        { return Int(i, W64) }

func BigInt(b *big.Int) Value { return Value{kind: KindBigInt, bi: b} }

func Float(f float64, w Width) Value {
	v := Value{kind: KindFloat, width: w}
	if w == W32 {
		v.f32 = float32(f)
	} else {
		v.f64 = f
	}
	return v
}
func Float32(f float32) Value { return Float(float64(f), W32) }
func Float64(f float64) Value { return Float(f, W64) }

func BigDecimal(d *Decimal) Value { return Value{kind: KindBigDecimal, bd: d} }

func String(s string) Value { return Value{kind: KindString, s: s} }

// Seq constructs an ordered sequence value. Per the "fresh literal"
// invariant, callers must pass a freshly allocated slice per evaluation;
// Seq itself does not copy.
func Seq(items []Value) Value { return Value{kind: KindSeq, seq: items} }

// TypedSeq constructs a sequence annotated with the common host-ancestor
// element type computed at array-literal construction (spec §4.1); elemType
// is "" for an untyped sequence (spread literals, empty arrays, or no
// common ancestor beyond the root object type).
func TypedSeq(items []Value, elemType string) Value {
	return Value{kind: KindSeq, seq: items, elemType: elemType}
}

func Set(s *OrderedSet) Value { return Value{kind: KindSet, set: s} }
func Map(m *OrderedMap) Value { return Value{kind: KindMap, m: m} }

func RangeValue(r Range) Value { return Value{kind: KindRange, rng: r} }

func Object(h *HostObject) Value   { return Value{kind: KindHostObject, host: h} }
func Method(m *MethodRef) Value    { return Value{kind: KindMethodRef, meth: m} }
func Program(c Callable) Value     { return Value{kind: KindCallable, call: c} }

func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) AsBool() bool           { return v.b }
func (v Value) AsChar() rune           { return v.ch }
func (v Value) AsInt() int64           { return v.i }
func (v Value) AsBigInt() *big.Int     { return v.bi }
func (v Value) AsFloat32() float32     { return v.f32 }
func (v Value) AsFloat64() float64     { return v.f64 }
func (v Value) AsDecimal() *Decimal    { return v.bd }
func (v Value) AsString() string       { return v.s }
func (v Value) AsSeq() []Value         { return v.seq }

// ElementType returns the common host-ancestor class name computed by
// ArrayBuilder.Create for a typed array literal (spec §4.1), or "" for an
// untyped sequence.
func (v Value) ElementType() string { return v.elemType }
func (v Value) AsSet() *OrderedSet     { return v.set }
func (v Value) AsMap() *OrderedMap     { return v.m }
func (v Value) AsRange() Range         { return v.rng }
func (v Value) AsHostObject() *HostObject { return v.host }
func (v Value) AsMethodRef() *MethodRef   { return v.meth }
func (v Value) AsCallable() Callable      { return v.call }

// Truthy implements the engine's boolean-coercion rule for short-circuit
// operators and conditionals.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindNull:
		return false
	case KindBool:
		return v.b
	case KindChar:
		return v.ch != 0
	case KindInt:
		return v.i != 0
	case KindBigInt:
		return v.bi != nil && v.bi.Sign() != 0
	case KindFloat:
		if v.width == W32 {
			return v.f32 != 0
		}
		return v.f64 != 0
	case KindBigDecimal:
		return v.bd != nil && !v.bd.IsZero()
	case KindString:
		return v.s != ""
	case KindSeq:
		return len(v.seq) > 0
	case KindSet:
		return v.set != nil && v.set.Len() > 0
	case KindMap:
		return v.m != nil && v.m.Len() > 0
	case KindRange:
		return v.rng.Size() > 0
	default:
		return true // host objects, method refs, and programs are truthy
	}
}

// String renders v for string concatenation / toString semantics.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return ""
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindChar:
		return string(v.ch)
	case KindInt:
		return fmt.Sprintf("%d", v.i)
	case KindBigInt:
		return v.bi.String()
	case KindFloat:
		if v.width == W32 {
			return trimFloat(float64(v.f32))
		}
		return trimFloat(v.f64)
	case KindBigDecimal:
		return v.bd.String()
	case KindString:
		return v.s
	case KindSeq:
		parts := make([]string, len(v.seq))
		for i, e := range v.seq {
			parts[i] = e.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindSet:
		return v.set.String()
	case KindMap:
		return v.m.String()
	case KindRange:
		return fmt.Sprintf("%d..%d", v.rng.Start, v.rng.End)
	case KindHostObject:
		return fmt.Sprintf("%v", v.host.Impl)
	case KindMethodRef:
		if v.meth.Class == nil {
			return v.meth.Name
		}
		return fmt.Sprintf("%s::%s", v.meth.Class.ClassName(), v.meth.Name)
	case KindCallable:
		return "<program>"
	}
	return ""
}

func trimFloat(f float64) string {
	s := fmt.Sprintf("%g", f)
	return s
}

// sortStrings returns a sorted copy of s.
func sortStrings(s []string) []string {
	out := append([]string(nil), s...)
	sort.Strings(out)
	return out
}
