package crypto

import (
	"errors"
	"math/big"
	"math/bits"
)

// ErrRootOrder is returned when a root of unity of the requested order does not exist.
var ErrRootOrder = errors.New("no root of unity of requested order")

// NextPowerOfTwo returns the smallest power of two >= n (n >= 1).
func NextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}

// RootOfUnity returns a primitive n-th root of unity for n a power of two
// dividing 2^FieldGeneratorLog.
func RootOfUnity(n int) (*big.Int, error) {
	if n < 1 || n&(n-1) != 0 || n > 1<<FieldGeneratorLog {
		return nil, ErrRootOrder
	}
	exp := big.NewInt(int64((1 << FieldGeneratorLog) / n))
	return FieldExp(FieldGenerator, exp, FieldOrder), nil
}

// FFT evaluates the polynomial with the given coefficients at root^0 .. root^(n-1).
// len(coeffs) must be a power of two and root a primitive len(coeffs)-th root of unity.
func FFT(coeffs []*big.Int, root *big.Int, fieldOrder *big.Int) []*big.Int {
	n := len(coeffs)
	if n == 1 {
		return []*big.Int{new(big.Int).Set(coeffs[0])}
	}

	half := n / 2
	even := make([]*big.Int, half)
	odd := make([]*big.Int, half)
	for i := 0; i < half; i++ {
		even[i] = coeffs[2*i]
		odd[i] = coeffs[2*i+1]
	}

	rootSq := FieldMulInplace(new(big.Int).Set(root), root, fieldOrder)
	evenEvals := FFT(even, rootSq, fieldOrder)
	oddEvals := FFT(odd, rootSq, fieldOrder)

	out := make([]*big.Int, n)
	w := big.NewInt(1)
	t := new(big.Int)
	for k := 0; k < half; k++ {
		t.Set(oddEvals[k])
		FieldMulInplace(t, w, fieldOrder)

		out[k] = FieldAddInplace(new(big.Int).Set(evenEvals[k]), t, fieldOrder)
		out[k+half] = FieldSubInplace(new(big.Int).Set(evenEvals[k]), t, fieldOrder)

		FieldMulInplace(w, root, fieldOrder)
	}
	return out
}

// InverseFFT recovers coefficients from evaluations at root^0 .. root^(n-1).
func InverseFFT(evals []*big.Int, root *big.Int, fieldOrder *big.Int) []*big.Int {
	n := len(evals)
	rootInv := FieldInverse(root, fieldOrder)
	coeffs := FFT(evals, rootInv, fieldOrder)

	nInv := FieldInverse(big.NewInt(int64(n)), fieldOrder)
	for i := range coeffs {
		FieldMulInplace(coeffs[i], nInv, fieldOrder)
	}
	return coeffs
}

// EvaluatePolynomial evaluates coefficients at x using Horner's rule.
func EvaluatePolynomial(coeffs []*big.Int, x *big.Int, fieldOrder *big.Int) *big.Int {
	res := new(big.Int)
	for i := len(coeffs) - 1; i >= 0; i-- {
		FieldMulInplace(res, x, fieldOrder)
		FieldAddInplace(res, coeffs[i], fieldOrder)
	}
	return res
}

// InterpolateAndEvaluate treats points as the evaluations of a polynomial at the
// len(points)-th roots of unity and returns its value at x.
func InterpolateAndEvaluate(points []*big.Int, x *big.Int, fieldOrder *big.Int) (*big.Int, error) {
	root, err := RootOfUnity(len(points))
	if err != nil {
		return nil, err
	}
	coeffs := InverseFFT(points, root, fieldOrder)
	return EvaluatePolynomial(coeffs, x, fieldOrder), nil
}
