// Package taylor computes derivatives of any order of a single-variable
// function at a point using forward-mode automatic differentiation.
//
// A Number is a Taylor tower: a value plus a nested Number holding its first
// derivative, which may itself carry a derivative, and so on. An order-0
// Number (no derivative attached) also stands for "every higher derivative is
// exactly zero", which is what lets products of perturbed values grow the
// tower to the depth the result actually needs.
//
// Design goals:
//   - Generic over any leaf type implementing Scalar (float, complex, exact rational)
//   - Total operations: no error returns, scalar edge cases propagate as-is
//   - Every result owns its nested towers; operands are never mutated
//   - JSON rendering and an MCP-style tool interface over expression trees
package taylor

// ============================================================
// Number — the Taylor tower
// ============================================================

// Number is Unperturbed(re) when d is nil and Perturbed(re, d) otherwise.
// Each node is the sole owner of d.
type Number[T Scalar[T]] struct {
	re T
	d  *Number[T]
}

// New returns the order-0 tower holding re.
func New[T Scalar[T]](re T) *Number[T] { return &Number[T]{re: re} }

// Constant is New under the name callers usually want for fixed inputs.
func Constant[T Scalar[T]](c T) *Number[T] { return New(c) }

// Variable returns the independent variable evaluated at x: value x, first
// derivative one.
func Variable[T Scalar[T]](x T) *Number[T] {
	n := New(x)
	n.PerturbBy(oneOf[T]())
	return n
}

func Zero[T Scalar[T]]() *Number[T] { return New(zeroOf[T]()) }
func One[T Scalar[T]]() *Number[T]  { return New(oneOf[T]()) }

// PerturbBy attaches delta as the first derivative of an order-0 tower. On a
// tower that is already perturbed it adds the constant delta to the existing
// derivative sub-tower instead of nesting deeper, so only the first
// derivative value changes.
func (n *Number[T]) PerturbBy(delta T) {
	if n.d == nil {
		n.d = New(delta)
		return
	}
	n.d = n.d.Add(New(delta))
}

func (n *Number[T]) Real() T           { return n.re }
func (n *Number[T]) IsPerturbed() bool { return n.d != nil }

// Order is the nesting depth of perturbed nodes.
func (n *Number[T]) Order() int {
	k := 0
	for cur := n.d; cur != nil; cur = cur.d {
		k++
	}
	return k
}

func (n *Number[T]) Clone() *Number[T] {
	c := &Number[T]{re: n.re}
	if n.d != nil {
		c.d = n.d.Clone()
	}
	return c
}

// deriv is Diff without the copy, for internal operands that are only read.
func (n *Number[T]) deriv() *Number[T] {
	if n.d == nil {
		return Zero[T]()
	}
	return n.d
}

// ============================================================
// Arithmetic
// ============================================================

func (n *Number[T]) Add(o *Number[T]) *Number[T] {
	r := &Number[T]{re: n.re.Add(o.re)}
	switch {
	case n.d != nil && o.d != nil:
		r.d = n.d.Add(o.d)
	case n.d != nil:
		r.d = n.d.Clone()
	case o.d != nil:
		r.d = o.d.Clone()
	}
	return r
}

func (n *Number[T]) Neg() *Number[T] {
	r := &Number[T]{re: n.re.Neg()}
	if n.d != nil {
		r.d = n.d.Neg()
	}
	return r
}

func (n *Number[T]) Sub(o *Number[T]) *Number[T] { return n.Add(o.Neg()) }

// MulScalar scales the value and every derivative by s.
func (n *Number[T]) MulScalar(s T) *Number[T] {
	r := &Number[T]{re: n.re.Mul(s)}
	if n.d != nil {
		r.d = n.d.MulScalar(s)
	}
	return r
}

// DivScalar divides the value and every derivative by s. Division by a zero
// scalar behaves however T does.
func (n *Number[T]) DivScalar(s T) *Number[T] {
	r := &Number[T]{re: n.re.Div(s)}
	if n.d != nil {
		r.d = n.d.DivScalar(s)
	}
	return r
}

// Mul applies the product rule. An order-0 factor only scales the other one;
// when both factors are perturbed the derivative is d(a)*b + d(b)*a, each
// recursive product working on towers one level shallower.
func (n *Number[T]) Mul(o *Number[T]) *Number[T] {
	re := n.re.Mul(o.re)
	switch {
	case n.d == nil && o.d == nil:
		return New(re)
	case n.d == nil:
		return &Number[T]{re: re, d: o.d.MulScalar(n.re)}
	case o.d == nil:
		return &Number[T]{re: re, d: n.d.MulScalar(o.re)}
	}
	rule := n.d.Mul(o).Add(o.d.Mul(n))
	return &Number[T]{re: re, d: rule}
}

// Pow multiplies n by itself k times. Pow(0) is One.
func (n *Number[T]) Pow(k uint) *Number[T] {
	r := One[T]()
	for i := uint(0); i < k; i++ {
		r = r.Mul(n)
	}
	return r
}

func Sum[T Scalar[T]](xs ...*Number[T]) *Number[T] {
	r := Zero[T]()
	for _, x := range xs {
		r = r.Add(x)
	}
	return r
}

func Product[T Scalar[T]](xs ...*Number[T]) *Number[T] {
	r := One[T]()
	for _, x := range xs {
		r = r.Mul(x)
	}
	return r
}

// IsZero reports whether the value and, recursively, every derivative is zero.
func (n *Number[T]) IsZero() bool {
	return n.re.IsZero() && (n.d == nil || n.d.IsZero())
}

// Equal compares value by value down the tower. A missing level counts as
// zero, so Unperturbed(2) equals Perturbed(2, Unperturbed(0)).
func (n *Number[T]) Equal(o *Number[T]) bool {
	if !n.re.Equal(o.re) {
		return false
	}
	switch {
	case n.d == nil && o.d == nil:
		return true
	case n.d == nil:
		return o.d.IsZero()
	case o.d == nil:
		return n.d.IsZero()
	}
	return n.d.Equal(o.d)
}

// ============================================================
// Derivative extraction
// ============================================================

// Diff returns a copy of the first-derivative sub-tower, or a zero tower when
// n carries no derivative.
func (n *Number[T]) Diff() *Number[T] {
	if n.d == nil {
		return Zero[T]()
	}
	return n.d.Clone()
}

// Derivative returns the k-th derivative as a tower. Derivative(0) is the
// order-0 value alone; for k > 0 the result keeps whatever higher derivatives
// remain below level k. It walks k levels down the full tower rather than
// computing Derivative(k-1).Diff(): Derivative(0) drops every derivative, so
// that recursion would return zero for every k >= 1.
func (n *Number[T]) Derivative(k uint) *Number[T] {
	if k == 0 {
		return New(n.re)
	}
	return n.descend(k).Clone()
}

func (n *Number[T]) descend(k uint) *Number[T] {
	if k == 0 {
		return n
	}
	return n.descend(k - 1).deriv()
}

// Derivatives returns f, f', ..., f^(k) evaluated at the point.
func (n *Number[T]) Derivatives(k uint) []T {
	out := make([]T, 0, k+1)
	cur := n
	for i := uint(0); i <= k; i++ {
		if cur == nil {
			out = append(out, zeroOf[T]())
			continue
		}
		out = append(out, cur.re)
		cur = cur.d
	}
	return out
}

// Coefficients returns the Taylor coefficients f^(i)(x0)/i! for i = 0..k.
func (n *Number[T]) Coefficients(k uint) []T {
	ds := n.Derivatives(k)
	fact := oneOf[T]()
	for i := range ds {
		if i > 1 {
			fact = fact.Mul(fromInt[T](int64(i)))
		}
		ds[i] = ds[i].Div(fact)
	}
	return ds
}
