package value

import (
	"math/big"
)

// MathContext configures arbitrary-precision decimal arithmetic (spec
// §4.4 mathContext/mathScale options).
type MathContext struct {
	// Precision is the number of significant decimal digits; 0 means
	// unlimited. It is carried and merged across operations, but round
	// applies only Scale, so no result is cut to Precision digits.
	Precision uint
	// Scale is the number of digits kept after the decimal point when
	// rendering/rounding a Decimal; -1 means "do not round on render".
	Scale int
}

// DefaultMathContext matches java.math.MathContext.DECIMAL64-ish behavior
// scaled down to a pragmatic default: unlimited precision, no forced scale.
var DefaultMathContext = MathContext{Precision: 0, Scale: -1}

// Decimal is an arbitrary-precision decimal backed by a rational number, so
// equality with other arbitrary-precision values is exact even beyond
// float64 magnitude (spec §9 open question on cross-width equality).
type Decimal struct {
	r   *big.Rat
	ctx MathContext
}

func NewDecimal(r *big.Rat, ctx MathContext) *Decimal {
	return &Decimal{r: new(big.Rat).Set(r), ctx: ctx}
}

func DecimalFromString(s string, ctx MathContext) (*Decimal, bool) {
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return nil, false
	}
	return NewDecimal(r, ctx), true
}

func DecimalFromInt(i *big.Int, ctx MathContext) *Decimal {
	return NewDecimal(new(big.Rat).SetInt(i), ctx)
}

func DecimalFromFloat(f float64, ctx MathContext) *Decimal {
	r := new(big.Rat).SetFloat64(f)
	if r == nil {
		r = new(big.Rat)
	}
	return NewDecimal(r, ctx)
}

func (d *Decimal) Rat() *big.Rat { return d.r }

func (d *Decimal) IsZero() bool { return d.r.Sign() == 0 }

func (d *Decimal) Context() MathContext { return d.ctx }

// mergeContext chooses the wider of two operand contexts (the larger
// Precision and the larger Scale) for an operation's result.
func mergeContext(a, b MathContext) MathContext {
	ctx := a
	if b.Precision > ctx.Precision {
		ctx.Precision = b.Precision
	}
	if b.Scale > ctx.Scale {
		ctx.Scale = b.Scale
	}
	return ctx
}

func (d *Decimal) round() *Decimal {
	if d.ctx.Scale < 0 {
		return d
	}
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(d.ctx.Scale)), nil)
	scaled := new(big.Rat).Mul(d.r, new(big.Rat).SetInt(scale))
	num := new(big.Int)
	num.Quo(scaled.Num(), scaled.Denom())
	r := new(big.Rat).SetFrac(num, scale)
	return &Decimal{r: r, ctx: d.ctx}
}

func (d *Decimal) Add(o *Decimal) *Decimal {
	return (&Decimal{r: new(big.Rat).Add(d.r, o.r), ctx: mergeContext(d.ctx, o.ctx)}).round()
}
func (d *Decimal) Sub(o *Decimal) *Decimal {
	return (&Decimal{r: new(big.Rat).Sub(d.r, o.r), ctx: mergeContext(d.ctx, o.ctx)}).round()
}
func (d *Decimal) Mul(o *Decimal) *Decimal {
	return (&Decimal{r: new(big.Rat).Mul(d.r, o.r), ctx: mergeContext(d.ctx, o.ctx)}).round()
}
func (d *Decimal) Quo(o *Decimal) (*Decimal, bool) {
	if o.IsZero() {
		return nil, false
	}
	return (&Decimal{r: new(big.Rat).Quo(d.r, o.r), ctx: mergeContext(d.ctx, o.ctx)}).round(), true
}
func (d *Decimal) Neg() *Decimal {
	return (&Decimal{r: new(big.Rat).Neg(d.r), ctx: d.ctx}).round()
}

func (d *Decimal) Cmp(o *Decimal) int { return d.r.Cmp(o.r) }

func (d *Decimal) String() string {
	if d.ctx.Scale >= 0 {
		return d.round().r.FloatString(d.ctx.Scale)
	}
	if d.r.IsInt() {
		return d.r.Num().String()
	}
	return d.r.FloatString(20)
}

func (d *Decimal) Float64() float64 {
	f, _ := d.r.Float64()
	return f
}
