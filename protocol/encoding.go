package protocol

import (
	"fmt"
	"math/big"

	"github.com/flashbots/privstats/crypto"
)

// EncodeBits expands data into the layout's M bits. UInt entries are written
// most significant bit first.
func EncodeBits(layout FieldLayout, data []uint64) ([]*big.Int, error) {
	if len(data) != layout.Entries {
		return nil, fmt.Errorf("%w: got %d entries, layout %s wants %d", ErrInvalidInput, len(data), layout, layout.Entries)
	}

	maxValue := layout.MaxValue()
	bits := crypto.NewFieldVector(layout.MulGates())
	for i, v := range data {
		if v > maxValue {
			return nil, fmt.Errorf("%w: entry %d = %d exceeds %d", ErrInvalidInput, i, v, maxValue)
		}
		for j := 0; j < layout.Precision; j++ {
			bits[i*layout.Precision+j].SetUint64((v >> (layout.Precision - 1 - j)) & 1)
		}
	}
	return bits, nil
}

// PackEntries folds bits, or additive shares of bits, back into one value per
// entry: x = sum bit_j * 2^(precision-1-j). The map is linear, so packing a
// share of the bits yields a share of the entries.
func PackEntries(layout FieldLayout, bits []*big.Int) []*big.Int {
	entries := crypto.NewFieldVector(layout.Entries)
	for i := range entries {
		acc := entries[i]
		for j := 0; j < layout.Precision; j++ {
			acc.Lsh(acc, 1)
			acc.Add(acc, bits[i*layout.Precision+j])
			acc.Mod(acc, crypto.FieldOrder)
		}
	}
	return entries
}
