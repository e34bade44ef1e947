package taylor

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"

	"golang.org/x/exp/constraints"
)

// ============================================================
// Scalar — leaf capability contract
// ============================================================

// Scalar is the set of operations a leaf number type must provide to sit at
// the bottom of a tower. Zero and One are called on the zero value of T, so
// implementations must not dereference anything in them.
type Scalar[T any] interface {
	Add(T) T
	Sub(T) T
	Mul(T) T
	Div(T) T
	Neg() T
	Zero() T
	One() T
	IsZero() bool
	Equal(T) bool
	String() string
}

func zeroOf[T Scalar[T]]() T { var t T; return t.Zero() }
func oneOf[T Scalar[T]]() T  { var t T; return t.One() }

// fromInt builds the scalar n·1 by repeated addition, so integer weights
// (factorials, binomials) can be applied without a conversion method.
func fromInt[T Scalar[T]](n int64) T {
	neg := n < 0
	if neg {
		n = -n
	}
	acc, step := zeroOf[T](), oneOf[T]()
	for n > 0 {
		if n&1 == 1 {
			acc = acc.Add(step)
		}
		step = step.Add(step)
		n >>= 1
	}
	if neg {
		return acc.Neg()
	}
	return acc
}

// ============================================================
// Float — built-in floating point
// ============================================================

// Float adapts float32 and float64. Arithmetic follows IEEE-754, including
// Inf/NaN on division by zero.
type Float[F constraints.Float] struct{ V F }

// Float64 is the reference scalar.
type Float64 = Float[float64]

func Fl[F constraints.Float](v F) Float[F] { return Float[F]{V: v} }

func (f Float[F]) Add(o Float[F]) Float[F]   { return Float[F]{f.V + o.V} }
func (f Float[F]) Sub(o Float[F]) Float[F]   { return Float[F]{f.V - o.V} }
func (f Float[F]) Mul(o Float[F]) Float[F]   { return Float[F]{f.V * o.V} }
func (f Float[F]) Div(o Float[F]) Float[F]   { return Float[F]{f.V / o.V} }
func (f Float[F]) Neg() Float[F]             { return Float[F]{-f.V} }
func (Float[F]) Zero() Float[F]              { return Float[F]{0} }
func (Float[F]) One() Float[F]               { return Float[F]{1} }
func (f Float[F]) IsZero() bool              { return f.V == 0 }
func (f Float[F]) Equal(o Float[F]) bool     { return f.V == o.V }
func (f Float[F]) Float64() float64          { return float64(f.V) }

func (f Float[F]) String() string {
	return strconv.FormatFloat(float64(f.V), 'g', -1, bitSize[F]())
}

// MarshalJSON writes finite values as JSON numbers. encoding/json has no
// number form for Inf and NaN, so those are written as the strings "+Inf",
// "-Inf" and "NaN".
func (f Float[F]) MarshalJSON() ([]byte, error) {
	v := float64(f.V)
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return json.Marshal(f.String())
	}
	return json.Marshal(f.V)
}

func (f *Float[F]) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return json.Unmarshal(b, &f.V)
	}
	v, err := strconv.ParseFloat(s, bitSize[F]())
	if err != nil {
		return fmt.Errorf("float must be a number or one of \"+Inf\", \"-Inf\", \"NaN\": %w", err)
	}
	f.V = F(v)
	return nil
}

func bitSize[F constraints.Float]() int {
	var f F
	switch any(f).(type) {
	case float32:
		return 32
	}
	return 64
}

// ============================================================
// Complex — built-in complex numbers
// ============================================================

// Complex adapts complex64 and complex128. Useful for complex-step style
// evaluation of analytic functions.
type Complex[C constraints.Complex] struct{ V C }

func Cx[C constraints.Complex](v C) Complex[C] { return Complex[C]{V: v} }

func (c Complex[C]) Add(o Complex[C]) Complex[C] { return Complex[C]{c.V + o.V} }
func (c Complex[C]) Sub(o Complex[C]) Complex[C] { return Complex[C]{c.V - o.V} }
func (c Complex[C]) Mul(o Complex[C]) Complex[C] { return Complex[C]{c.V * o.V} }
func (c Complex[C]) Div(o Complex[C]) Complex[C] { return Complex[C]{c.V / o.V} }
func (c Complex[C]) Neg() Complex[C]             { return Complex[C]{-c.V} }
func (Complex[C]) Zero() Complex[C]              { return Complex[C]{0} }
func (Complex[C]) One() Complex[C]               { return Complex[C]{1} }
func (c Complex[C]) IsZero() bool                { return c.V == 0 }
func (c Complex[C]) Equal(o Complex[C]) bool     { return c.V == o.V }
func (c Complex[C]) String() string              { return fmt.Sprint(c.V) }

// complexJSON is the wire form of a Complex; encoding/json has no native
// complex encoding.
type complexJSON struct {
	Re Float64 `json:"re"`
	Im Float64 `json:"im"`
}

func (c Complex[C]) MarshalJSON() ([]byte, error) {
	v := complex128(c.V)
	return json.Marshal(complexJSON{Re: Fl(real(v)), Im: Fl(imag(v))})
}

func (c *Complex[C]) UnmarshalJSON(b []byte) error {
	var w complexJSON
	if err := json.Unmarshal(b, &w); err != nil {
		return fmt.Errorf("complex must be an object {\"re\":..,\"im\":..}: %w", err)
	}
	c.V = C(complex(w.Re.V, w.Im.V))
	return nil
}

// ============================================================
// Rat — exact rational number
// ============================================================

// Rat is an exact rational backed by math/big. The zero value is 0. Every
// operation allocates a fresh big.Rat so values never alias.
type Rat struct{ val *big.Rat }

func R(p, q int64) Rat {
	if q == 0 {
		panic("taylor: denominator is zero")
	}
	return Rat{val: new(big.Rat).SetFrac(big.NewInt(p), big.NewInt(q))}
}

// RatFromString accepts "3", "-1/3" or a decimal such as "0.25".
func RatFromString(s string) (Rat, error) {
	r, ok := new(big.Rat).SetString(strings.TrimSpace(s))
	if !ok {
		return Rat{}, fmt.Errorf("invalid rational %q", s)
	}
	return Rat{val: r}, nil
}

func (r Rat) rat() *big.Rat {
	if r.val == nil {
		return new(big.Rat)
	}
	return r.val
}

func (r Rat) Add(o Rat) Rat { return Rat{val: new(big.Rat).Add(r.rat(), o.rat())} }
func (r Rat) Sub(o Rat) Rat { return Rat{val: new(big.Rat).Sub(r.rat(), o.rat())} }
func (r Rat) Mul(o Rat) Rat { return Rat{val: new(big.Rat).Mul(r.rat(), o.rat())} }
func (r Rat) Neg() Rat      { return Rat{val: new(big.Rat).Neg(r.rat())} }
func (Rat) Zero() Rat       { return Rat{val: new(big.Rat)} }
func (Rat) One() Rat        { return Rat{val: big.NewRat(1, 1)} }
func (r Rat) IsZero() bool  { return r.rat().Sign() == 0 }
func (r Rat) Equal(o Rat) bool {
	return r.rat().Cmp(o.rat()) == 0
}

// Div panics when o is zero, mirroring big.Rat.Quo.
func (r Rat) Div(o Rat) Rat {
	if o.IsZero() {
		panic("taylor: division by zero")
	}
	return Rat{val: new(big.Rat).Quo(r.rat(), o.rat())}
}

func (r Rat) Float64() float64 { f, _ := r.rat().Float64(); return f }
func (r Rat) Big() *big.Rat    { return new(big.Rat).Set(r.rat()) }

func (r Rat) String() string {
	v := r.rat()
	if v.IsInt() {
		return v.Num().String()
	}
	return v.RatString()
}

func (r Rat) MarshalJSON() ([]byte, error) { return json.Marshal(r.String()) }

func (r *Rat) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		var n json.Number
		if err2 := json.Unmarshal(b, &n); err2 != nil {
			return fmt.Errorf("rational must be a string or number: %w", err)
		}
		s = n.String()
	}
	v, err := RatFromString(s)
	if err != nil {
		return err
	}
	*r = v
	return nil
}
