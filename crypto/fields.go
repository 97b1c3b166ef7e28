package crypto

import (
	"errors"
	"math/big"
)

// FieldOrder is the prime modulus of the aggregation field, 2^87 + 2^19 + 1.
// p - 1 is divisible by 2^19, which gives power-of-two roots of unity for the
// proof polynomials.
var FieldOrder *big.Int

// FieldGenerator generates the multiplicative subgroup of order 2^FieldGeneratorLog.
var FieldGenerator *big.Int

// FieldGeneratorLog is log2 of the order of FieldGenerator.
const FieldGeneratorLog = 19

// FieldElementSize is the number of bytes of a serialized field element.
const FieldElementSize = 11

// ErrFieldOverflow is returned when a field element does not fit the requested width.
var ErrFieldOverflow = errors.New("field element exceeds bit width")

func init() {
	FieldOrder, _ = new(big.Int).SetString("8000000000000000080001", 16)
	FieldGenerator, _ = new(big.Int).SetString("2597c14f48d5b65ed8dcca", 16)
}

// FieldAddInplace performs modular addition in-place: l = (l + r) mod fieldOrder.
// Both operands must already be reduced. The result is stored in l and also returned.
func FieldAddInplace(l *big.Int, r *big.Int, fieldOrder *big.Int) *big.Int {
	l.Add(l, r)
	if l.Cmp(fieldOrder) >= 0 {
		l.Sub(l, fieldOrder)
	}
	if l.Sign() < 0 {
		l.Add(l, fieldOrder)
	}
	return l
}

// FieldSubInplace performs modular subtraction in-place: l = (l - r) mod fieldOrder.
// The result is stored in l and also returned.
func FieldSubInplace(l *big.Int, r *big.Int, fieldOrder *big.Int) *big.Int {
	l.Sub(l, r)
	if l.Cmp(fieldOrder) >= 0 {
		l.Sub(l, fieldOrder)
	}
	if l.Sign() < 0 {
		l.Add(l, fieldOrder)
	}
	return l
}

// FieldMulInplace performs modular multiplication in-place: l = (l * r) mod fieldOrder.
func FieldMulInplace(l *big.Int, r *big.Int, fieldOrder *big.Int) *big.Int {
	l.Mul(l, r)
	return l.Mod(l, fieldOrder)
}

// FieldNegInplace sets l = -l mod fieldOrder.
func FieldNegInplace(l *big.Int, fieldOrder *big.Int) *big.Int {
	if l.Sign() == 0 {
		return l
	}
	return l.Sub(fieldOrder, l)
}

// FieldInverse returns the multiplicative inverse of x, or nil if x is zero.
func FieldInverse(x *big.Int, fieldOrder *big.Int) *big.Int {
	if new(big.Int).Mod(x, fieldOrder).Sign() == 0 {
		return nil
	}
	return new(big.Int).ModInverse(x, fieldOrder)
}

// FieldExp returns x^e mod fieldOrder.
func FieldExp(x *big.Int, e *big.Int, fieldOrder *big.Int) *big.Int {
	return new(big.Int).Exp(x, e, fieldOrder)
}

// FieldAddVectorInplace adds rs into ls element-wise. Vectors must be the same length.
func FieldAddVectorInplace(ls []*big.Int, rs []*big.Int, fieldOrder *big.Int) {
	for i := range ls {
		FieldAddInplace(ls[i], rs[i], fieldOrder)
	}
}

// NewFieldVector allocates n zero elements.
func NewFieldVector(n int) []*big.Int {
	buf := make([]big.Int, n)
	res := make([]*big.Int, n)
	for i := range res {
		res[i] = &buf[i]
	}
	return res
}

// CloneFieldVector deep-copies a vector.
func CloneFieldVector(v []*big.Int) []*big.Int {
	res := NewFieldVector(len(v))
	for i := range v {
		res[i].Set(v[i])
	}
	return res
}

// FieldVectorsEqual compares two vectors element-wise. Not constant time.
func FieldVectorsEqual(a, b []*big.Int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Cmp(b[i]) != 0 {
			return false
		}
	}
	return true
}

// IsFieldElement reports whether 0 <= x < fieldOrder.
func IsFieldElement(x *big.Int, fieldOrder *big.Int) bool {
	return x.Sign() >= 0 && x.Cmp(fieldOrder) < 0
}

// FieldFromUint maps v into the field.
func FieldFromUint(v uint64, fieldOrder *big.Int) *big.Int {
	x := new(big.Int).SetUint64(v)
	return x.Mod(x, fieldOrder)
}

// FieldToUint interprets a reduced field element as an unsigned integer of the
// given bit width (1..64). Elements that do not fit return ErrFieldOverflow.
func FieldToUint(x *big.Int, width int) (uint64, error) {
	if width < 1 || width > 64 {
		return 0, errors.New("bit width out of range")
	}
	if x.Sign() < 0 || x.BitLen() > width {
		return 0, ErrFieldOverflow
	}
	return x.Uint64(), nil
}

// AppendFieldElement appends the fixed-width big-endian encoding of x.
func AppendFieldElement(dst []byte, x *big.Int) []byte {
	var buf [FieldElementSize]byte
	x.FillBytes(buf[:])
	return append(dst, buf[:]...)
}

// EncodeFieldVector packs a vector as consecutive FieldElementSize-byte elements.
func EncodeFieldVector(v []*big.Int) []byte {
	out := make([]byte, 0, len(v)*FieldElementSize)
	for _, x := range v {
		out = AppendFieldElement(out, x)
	}
	return out
}

// DecodeFieldVector unpacks exactly n elements, rejecting wrong lengths and
// values outside the field.
func DecodeFieldVector(data []byte, n int, fieldOrder *big.Int) ([]*big.Int, error) {
	if len(data) != n*FieldElementSize {
		return nil, errors.New("field vector has wrong length")
	}
	res := NewFieldVector(n)
	for i := range res {
		res[i].SetBytes(data[i*FieldElementSize : (i+1)*FieldElementSize])
		if res[i].Cmp(fieldOrder) >= 0 {
			return nil, errors.New("field vector element out of range")
		}
	}
	return res, nil
}
