package taylor

import (
	"fmt"

	"gonum.org/v1/gonum/stat/combin"
)

// MaxLeibnizOrder is the largest k Leibniz accepts. combin.Binomial works in
// int and its running product overflows for C(62, k) and beyond.
const MaxLeibnizOrder = 61

// Leibniz returns the k-th derivative of a*b from the general Leibniz rule,
//
//	(ab)^(k) = Σ_{i=0..k} C(k,i) a^(i) b^(k-i)
//
// reading the factors' derivatives straight off their towers. It does not
// go through Mul, so it can be used to check the recursive product.
// Leibniz panics when k > MaxLeibnizOrder.
func Leibniz[T Scalar[T]](a, b *Number[T], k uint) T {
	if k > MaxLeibnizOrder {
		panic(fmt.Sprintf("taylor: Leibniz order %d exceeds %d", k, MaxLeibnizOrder))
	}
	da, db := a.Derivatives(k), b.Derivatives(k)
	sum := zeroOf[T]()
	for i := 0; i <= int(k); i++ {
		c := fromInt[T](int64(combin.Binomial(int(k), i)))
		sum = sum.Add(c.Mul(da[i]).Mul(db[int(k)-i]))
	}
	return sum
}
