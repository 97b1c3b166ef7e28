package crypto

import (
	"math/big"
	unsafe_rand "math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func randomVector(rng *unsafe_rand.Rand, n int) []*big.Int {
	res := make([]*big.Int, n)
	for i := range res {
		res[i] = new(big.Int).Rand(rng, FieldOrder)
	}
	return res
}

func TestNextPowerOfTwo(t *testing.T) {
	cases := map[int]int{0: 1, 1: 1, 2: 2, 3: 4, 4: 4, 5: 8, 134: 256, 1 << 18: 1 << 18}
	for in, want := range cases {
		require.Equal(t, want, NextPowerOfTwo(in), "n=%d", in)
	}
}

func TestRootOfUnity(t *testing.T) {
	for _, n := range []int{1, 2, 8, 256, 1 << FieldGeneratorLog} {
		root, err := RootOfUnity(n)
		require.NoError(t, err)

		powN := FieldExp(root, big.NewInt(int64(n)), FieldOrder)
		require.Equal(t, 0, powN.Cmp(big.NewInt(1)), "n=%d", n)
		if n > 1 {
			powHalf := FieldExp(root, big.NewInt(int64(n/2)), FieldOrder)
			require.NotEqual(t, 0, powHalf.Cmp(big.NewInt(1)), "root of order %d is not primitive", n)
		}
	}

	_, err := RootOfUnity(3)
	require.ErrorIs(t, err, ErrRootOrder)
	_, err = RootOfUnity(1 << (FieldGeneratorLog + 1))
	require.ErrorIs(t, err, ErrRootOrder)
}

func TestFFTMatchesHorner(t *testing.T) {
	rng := unsafe_rand.New(unsafe_rand.NewSource(1))
	n := 16
	coeffs := randomVector(rng, n)
	root, err := RootOfUnity(n)
	require.NoError(t, err)

	evals := FFT(coeffs, root, FieldOrder)
	x := big.NewInt(1)
	for i := 0; i < n; i++ {
		require.Equal(t, 0, evals[i].Cmp(EvaluatePolynomial(coeffs, x, FieldOrder)), "index %d", i)
		FieldMulInplace(x, root, FieldOrder)
	}
}

func TestInverseFFTRoundTrip(t *testing.T) {
	rng := unsafe_rand.New(unsafe_rand.NewSource(2))
	for _, n := range []int{1, 2, 4, 64} {
		coeffs := randomVector(rng, n)
		root, err := RootOfUnity(n)
		require.NoError(t, err)

		back := InverseFFT(FFT(coeffs, root, FieldOrder), root, FieldOrder)
		require.True(t, FieldVectorsEqual(coeffs, back), "n=%d", n)
	}
}

func TestInterpolateAndEvaluate(t *testing.T) {
	// 7x^3 + 3x^2 - 12x + 7
	coeffs := []*big.Int{
		big.NewInt(7),
		FieldNegInplace(big.NewInt(12), FieldOrder),
		big.NewInt(3),
		big.NewInt(7),
	}
	root, err := RootOfUnity(4)
	require.NoError(t, err)
	points := FFT(coeffs, root, FieldOrder)

	res, err := InterpolateAndEvaluate(points, big.NewInt(2), FieldOrder)
	require.NoError(t, err)
	require.Equal(t, int64(51), res.Int64())

	res, err = InterpolateAndEvaluate(points, big.NewInt(5), FieldOrder)
	require.NoError(t, err)
	require.Equal(t, int64(897), res.Int64())

	_, err = InterpolateAndEvaluate(points[:3], big.NewInt(5), FieldOrder)
	require.ErrorIs(t, err, ErrRootOrder)
}

func TestInterpolationIsLinear(t *testing.T) {
	// Interpolating shares and adding equals interpolating the sum, which is
	// what lets each server work on its own share of the proof.
	rng := unsafe_rand.New(unsafe_rand.NewSource(3))
	n := 32
	a := randomVector(rng, n)
	b := randomVector(rng, n)
	sum := CloneFieldVector(a)
	FieldAddVectorInplace(sum, b, FieldOrder)

	r := new(big.Int).Rand(rng, FieldOrder)
	ya, err := InterpolateAndEvaluate(a, r, FieldOrder)
	require.NoError(t, err)
	yb, err := InterpolateAndEvaluate(b, r, FieldOrder)
	require.NoError(t, err)
	ysum, err := InterpolateAndEvaluate(sum, r, FieldOrder)
	require.NoError(t, err)

	require.Equal(t, 0, FieldAddInplace(ya, yb, FieldOrder).Cmp(ysum))
}
