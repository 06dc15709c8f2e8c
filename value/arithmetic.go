package value

import (
	"fmt"
	"math/big"
	"regexp"
	"strconv"
	"strings"
)

// Arithmetic is the single object that produces every value-to-value
// operation used by the interpreter (spec §4.1). Each binary operator
// dispatches through rank(a), rank(b) to pick the widest-common handler,
// the idiomatic-Go rendering of the "tag-pair dispatch table" the spec's
// Design Notes call for: a capability object holding (conceptually) one
// function per operator, so a host can subclass-by-embedding to override
// behavior.
type Arithmetic struct {
	StrictArithmetic bool
	MathContext      MathContext
}

func NewArithmetic() *Arithmetic {
	return &Arithmetic{StrictArithmetic: false, MathContext: DefaultMathContext}
}

// OpError is returned (not panicked) by every op below on failure;
// errs.ArithmeticError wraps it with a source span at the call site.
type OpError struct {
	Op  string
	Msg string
}

func (e *OpError) Error() string { return fmt.Sprintf("%s: %s", e.Op, e.Msg) }

func opErr(op, format string, args ...interface{}) error {
	return &OpError{Op: op, Msg: fmt.Sprintf(format, args...)}
}

func rankOf(v Value) int {
	switch v.kind {
	case KindBool, KindChar:
		return rankByte
	case KindInt:
		switch v.width {
		case W8:
			return rankByte
		case W16:
			return rankShort
		case W32:
			return rankInt
		default:
			return rankLong
		}
	case KindFloat:
		if v.width == W32 {
			return rankFloat
		}
		return rankDouble
	case KindBigInt:
		return rankBigInt
	case KindBigDecimal:
		return rankBigDecimal
	default:
		return rankLong
	}
}

// nullPolicy resolves a null operand per strictArithmetic (spec §4.1, §8.1.6).
func (a *Arithmetic) nullPolicy(op string) (Value, error) {
	if a.StrictArithmetic {
		return Value{}, opErr(op, "null operand not allowed under strict arithmetic")
	}
	return Int64(0), nil
}

// coerceNumeric resolves v to a numeric Value usable by the promotion
// lattice, applying string/bool/char/null coercions (spec §4.1).
func (a *Arithmetic) coerceNumeric(op string, v Value) (Value, error) {
	switch v.kind {
	case KindNull:
		return a.nullPolicy(op)
	case KindBool:
		if v.b {
			return Int64(1), nil
		}
		return Int64(0), nil
	case KindChar:
		return Int64(int64(v.ch)), nil
	case KindString:
		return coerceStringToNumber(v.s)
	default:
		return v, nil
	}
}

func coerceStringToNumber(s string) (Value, error) {
	t := strings.TrimSpace(s)
	if t == "" {
		return Value{}, opErr("coerce", "empty string is not numeric")
	}
	if strings.ContainsAny(t, ".eE") && !strings.HasPrefix(t, "0x") {
		if f, err := strconv.ParseFloat(t, 64); err == nil {
			return Float64(f), nil
		}
	}
	if i, err := strconv.ParseInt(t, 0, 32); err == nil {
		return Int32(int32(i)), nil
	}
	if i, err := strconv.ParseInt(t, 0, 64); err == nil {
		return Int64(i), nil
	}
	if bi, ok := new(big.Int).SetString(t, 0); ok {
		return BigInt(bi), nil
	}
	return Value{}, opErr("coerce", "cannot coerce %q to a number", s)
}

// promote widens a and b to a shared representation, returning the rank
// they were promoted to.
func (a *Arithmetic) promote(op string, x, y Value) (Value, Value, int, error) {
	cx, err := a.coerceNumeric(op, x)
	if err != nil {
		return Value{}, Value{}, 0, err
	}
	cy, err := a.coerceNumeric(op, y)
	if err != nil {
		return Value{}, Value{}, 0, err
	}
	rx, ry := rankOf(cx), rankOf(cy)
	rank := rx
	if ry > rank {
		rank = ry
	}
	return cx, cy, rank, nil
}

func toBig(v Value) *big.Int {
	switch v.kind {
	case KindBigInt:
		return v.bi
	default:
		return big.NewInt(asInt64(v))
	}
}

func asInt64(v Value) int64 {
	switch v.kind {
	case KindInt:
		return v.i
	case KindFloat:
		if v.width == W32 {
			return int64(v.f32)
		}
		return int64(v.f64)
	case KindBigInt:
		return v.bi.Int64()
	default:
		return 0
	}
}

func asFloat64(v Value) float64 {
	switch v.kind {
	case KindInt:
		return float64(v.i)
	case KindFloat:
		if v.width == W32 {
			return float64(v.f32)
		}
		return v.f64
	case KindBigInt:
		f := new(big.Float).SetInt(v.bi)
		out, _ := f.Float64()
		return out
	default:
		return 0
	}
}

func toDecimal(v Value, ctx MathContext) *Decimal {
	switch v.kind {
	case KindBigDecimal:
		return v.bd
	case KindBigInt:
		return DecimalFromInt(v.bi, ctx)
	case KindFloat:
		return DecimalFromFloat(asFloat64(v), ctx)
	default:
		return DecimalFromInt(big.NewInt(asInt64(v)), ctx)
	}
}

// Add implements `+`. String+anything concatenates (spec §4.1).
func (a *Arithmetic) Add(x, y Value) (Value, error) { return a.numericOp("+", x, y) }
func (a *Arithmetic) Sub(x, y Value) (Value, error) { return a.numericOp("-", x, y) }
func (a *Arithmetic) Mul(x, y Value) (Value, error) { return a.numericOp("*", x, y) }
func (a *Arithmetic) Div(x, y Value) (Value, error) { return a.numericOp("/", x, y) }
func (a *Arithmetic) Mod(x, y Value) (Value, error) { return a.numericOp("%", x, y) }

func (a *Arithmetic) numericOp(op string, x, y Value) (Value, error) {
	if op == "+" && (x.kind == KindString || y.kind == KindString) {
		return String(x.String() + y.String()), nil
	}
	cx, cy, rank, err := a.promote(op, x, y)
	if err != nil {
		return Value{}, err
	}
	switch rank {
	case rankByte, rankShort, rankInt, rankLong:
		ix, iy := asInt64(cx), asInt64(cy)
		return a.intOp(op, ix, iy, widthForRank(rank))
	case rankFloat, rankDouble:
		fx, fy := asFloat64(cx), asFloat64(cy)
		return a.floatOp(op, fx, fy, widthForRank(rank))
	case rankBigInt:
		return a.bigIntOp(op, toBig(cx), toBig(cy))
	default: // rankBigDecimal
		return a.decimalOp(op, toDecimal(cx, a.MathContext), toDecimal(cy, a.MathContext))
	}
}

func widthForRank(rank int) Width {
	switch rank {
	case rankByte:
		return W8
	case rankShort:
		return W16
	case rankInt:
		return W32
	case rankFloat:
		return W32
	default:
		return W64
	}
}

func (a *Arithmetic) intOp(op string, x, y int64, w Width) (Value, error) {
	switch op {
	case "+":
		return Int(x+y, w), nil
	case "-":
		return Int(x-y, w), nil
	case "*":
		return Int(x*y, w), nil
	case "/":
		if y == 0 {
			if a.StrictArithmetic {
				return Value{}, opErr("/", "division by zero")
			}
			return Int(0, w), nil
		}
		if x%y == 0 {
			return Int(x/y, w), nil
		}
		return Float64(float64(x) / float64(y)), nil
	case "%":
		if y == 0 {
			if a.StrictArithmetic {
				return Value{}, opErr("%", "division by zero")
			}
			return Int(0, w), nil
		}
		return Int(x%y, w), nil
	}
	return Value{}, opErr(op, "unsupported integer operator")
}

func (a *Arithmetic) floatOp(op string, x, y float64, w Width) (Value, error) {
	var r float64
	switch op {
	case "+":
		r = x + y
	case "-":
		r = x - y
	case "*":
		r = x * y
	case "/":
		if y == 0 {
			if a.StrictArithmetic {
				return Value{}, opErr("/", "division by zero")
			}
			return Float(0, w), nil
		}
		r = x / y
	case "%":
		if y == 0 {
			if a.StrictArithmetic {
				return Value{}, opErr("%", "division by zero")
			}
			return Float(0, w), nil
		}
		r = floatMod(x, y)
	default:
		return Value{}, opErr(op, "unsupported float operator")
	}
	return Float(r, w), nil
}

func floatMod(x, y float64) float64 {
	n := x - y*float64(int64(x/y))
	return n
}

func (a *Arithmetic) bigIntOp(op string, x, y *big.Int) (Value, error) {
	z := new(big.Int)
	switch op {
	case "+":
		z.Add(x, y)
	case "-":
		z.Sub(x, y)
	case "*":
		z.Mul(x, y)
	case "/":
		if y.Sign() == 0 {
			if a.StrictArithmetic {
				return Value{}, opErr("/", "division by zero")
			}
			return BigInt(big.NewInt(0)), nil
		}
		z.Quo(x, y)
	case "%":
		if y.Sign() == 0 {
			if a.StrictArithmetic {
				return Value{}, opErr("%", "division by zero")
			}
			return BigInt(big.NewInt(0)), nil
		}
		z.Rem(x, y)
	default:
		return Value{}, opErr(op, "unsupported bigint operator")
	}
	return BigInt(z), nil
}

func (a *Arithmetic) decimalOp(op string, x, y *Decimal) (Value, error) {
	switch op {
	case "+":
		return BigDecimal(x.Add(y)), nil
	case "-":
		return BigDecimal(x.Sub(y)), nil
	case "*":
		return BigDecimal(x.Mul(y)), nil
	case "/":
		q, ok := x.Quo(y)
		if !ok {
			if a.StrictArithmetic {
				return Value{}, opErr("/", "division by zero")
			}
			return BigDecimal(DecimalFromInt(big.NewInt(0), a.MathContext)), nil
		}
		return BigDecimal(q), nil
	case "%":
		q, ok := x.Quo(y)
		if !ok {
			if a.StrictArithmetic {
				return Value{}, opErr("%", "division by zero")
			}
			return BigDecimal(DecimalFromInt(big.NewInt(0), a.MathContext)), nil
		}
		whole := new(big.Int).Quo(q.Rat().Num(), q.Rat().Denom())
		return BigDecimal(x.Sub(y.Mul(DecimalFromInt(whole, a.MathContext)))), nil
	}
	return Value{}, opErr(op, "unsupported decimal operator")
}

// Neg implements unary `-`.
func (a *Arithmetic) Neg(x Value) (Value, error) {
	cx, err := a.coerceNumeric("-", x)
	if err != nil {
		return Value{}, err
	}
	switch rankOf(cx) {
	case rankBigInt:
		return BigInt(new(big.Int).Neg(toBig(cx))), nil
	case rankBigDecimal:
		return BigDecimal(toDecimal(cx, a.MathContext).Neg()), nil
	case rankFloat, rankDouble:
		return Float(-asFloat64(cx), widthForRank(rankOf(cx))), nil
	default:
		return Int(-asInt64(cx), widthForRank(rankOf(cx))), nil
	}
}

// Not implements logical `!`/`not` (boolean coercion then negate).
func (a *Arithmetic) Not(x Value) Value { return Bool(!x.Truthy()) }

// --- Comparison (spec §4.1) ---

// Compare returns -1/0/1 for ordered comparisons; err is non-nil when the
// operands are not comparable (e.g. incompatible kinds with no natural
// order).
func (a *Arithmetic) Compare(x, y Value) (int, error) {
	if x.kind == KindString && y.kind == KindString {
		return strings.Compare(x.s, y.s), nil
	}
	if isNumericKind(x.kind) && isNumericKind(y.kind) || x.kind == KindBool || y.kind == KindBool || x.kind == KindChar || y.kind == KindChar {
		cx, cy, rank, err := a.promote("<=>", x, y)
		if err != nil {
			return 0, err
		}
		switch rank {
		case rankBigInt:
			return toBig(cx).Cmp(toBig(cy)), nil
		case rankBigDecimal:
			return toDecimal(cx, a.MathContext).Cmp(toDecimal(cy, a.MathContext)), nil
		case rankFloat, rankDouble:
			fx, fy := asFloat64(cx), asFloat64(cy)
			switch {
			case fx < fy:
				return -1, nil
			case fx > fy:
				return 1, nil
			default:
				return 0, nil
			}
		default:
			ix, iy := asInt64(cx), asInt64(cy)
			switch {
			case ix < iy:
				return -1, nil
			case ix > iy:
				return 1, nil
			default:
				return 0, nil
			}
		}
	}
	return 0, opErr("<=>", "values of kind %s and %s are not ordered", x.kind, y.kind)
}

func isNumericKind(k Kind) bool {
	switch k {
	case KindInt, KindBigInt, KindFloat, KindBigDecimal:
		return true
	default:
		return false
	}
}

// Equal implements `==` (value-equal across numeric widths) / `eq`.
func (a *Arithmetic) Equal(x, y Value) bool {
	if x.kind == KindNull || y.kind == KindNull {
		return x.kind == y.kind
	}
	// string vs non-string: coerce only when the non-string side is boolean
	// (spec §4.1); otherwise fall through to arithmetic equality rules.
	if x.kind == KindString && y.kind == KindBool {
		return x.s == y.String()
	}
	if y.kind == KindString && x.kind == KindBool {
		return y.s == x.String()
	}
	if x.kind == KindString && y.kind == KindString {
		return x.s == y.s
	}
	if x.kind == KindRange && y.kind == KindRange {
		return x.rng.Equal(y.rng)
	}
	if isNumericKind(x.kind) || isNumericKind(y.kind) || x.kind == KindBool || x.kind == KindChar || y.kind == KindBool || y.kind == KindChar {
		c, err := a.Compare(x, y)
		if err != nil {
			return false
		}
		return c == 0
	}
	if x.kind == KindHostObject && y.kind == KindHostObject {
		return x.host == y.host || x.host.Impl == y.host.Impl
	}
	return false
}

// --- Bitwise (spec §4.1: always 64-bit signed; null -> 0 regardless of
// strictArithmetic) ---

func bitwiseOperand(v Value) int64 {
	if v.IsNull() {
		return 0
	}
	switch v.kind {
	case KindBool:
		if v.b {
			return 1
		}
		return 0
	case KindChar:
		return int64(v.ch)
	case KindString:
		n, err := coerceStringToNumber(v.s)
		if err != nil {
			return 0
		}
		return asInt64(n)
	default:
		return asInt64(v)
	}
}

func (a *Arithmetic) And(x, y Value) Value   { return Int64(bitwiseOperand(x) & bitwiseOperand(y)) }
func (a *Arithmetic) Or(x, y Value) Value    { return Int64(bitwiseOperand(x) | bitwiseOperand(y)) }
func (a *Arithmetic) Xor(x, y Value) Value   { return Int64(bitwiseOperand(x) ^ bitwiseOperand(y)) }
func (a *Arithmetic) Complement(x Value) Value { return Int64(^bitwiseOperand(x)) }
func (a *Arithmetic) Shl(x, y Value) Value   { return Int64(bitwiseOperand(x) << uint(bitwiseOperand(y)&63)) }
func (a *Arithmetic) Shr(x, y Value) Value   { return Int64(bitwiseOperand(x) >> uint(bitwiseOperand(y)&63)) }
func (a *Arithmetic) Ushr(x, y Value) Value {
	return Int64(int64(uint64(bitwiseOperand(x)) >> uint(bitwiseOperand(y)&63)))
}

// --- Regex match (spec §4.1 `=~`/`!~`) ---

func (a *Arithmetic) Match(left, right Value) (bool, error) {
	switch right.kind {
	case KindString:
		re, err := regexp.Compile(right.s)
		if err != nil {
			return false, opErr("=~", "invalid pattern: %v", err)
		}
		return re.MatchString(left.String()), nil
	case KindSeq:
		for _, e := range right.seq {
			if a.Equal(left, e) {
				return true, nil
			}
		}
		return false, nil
	case KindSet:
		return right.set.Has(left), nil
	case KindMap:
		for _, k := range right.m.Keys() {
			if a.Equal(left, k) {
				return true, nil
			}
		}
		return false, nil
	case KindRange:
		return right.rng.Contains(asInt64(left)), nil
	default:
		return false, opErr("=~", "unsupported match target kind %s", right.kind)
	}
}
