package protocol

import (
	"golang.org/x/crypto/sha3"
)

// ProofLayout indexes the field vector a client secret-shares between the
// two servers:
//
//	[ bits (M) | f0 g0 h0 | a b c | h(w^1) h(w^3) ... h(w^(2N-1)) ]
//
// where bits are the encoded data, f0 and g0 are the random constant points
// of the proof polynomials, h0 = f0*g0, (a, b, c) is a Beaver triple with
// c = a*b, and the last N elements are h = f*g at the odd 2N-th roots of unity.
type ProofLayout struct {
	M int
	N int
}

// NewProofLayout returns the proof layout for a field layout.
func NewProofLayout(l FieldLayout) ProofLayout {
	return ProofLayout{M: l.MulGates(), N: l.HPoints()}
}

func (p ProofLayout) F0() int      { return p.M }
func (p ProofLayout) G0() int      { return p.M + 1 }
func (p ProofLayout) H0() int      { return p.M + 2 }
func (p ProofLayout) TripleA() int { return p.M + 3 }
func (p ProofLayout) TripleB() int { return p.M + 4 }
func (p ProofLayout) TripleC() int { return p.M + 5 }
func (p ProofLayout) HPoints() int { return p.M + 6 }

// Len is the total number of field elements in a share.
func (p ProofLayout) Len() int {
	return p.M + 6 + p.N
}

// PairIDSize is the length of a PairID.
const PairIDSize = 32

// PairID binds the two halves of one client submission. Both servers derive
// it from the batch id and the client's ephemeral key, and a Packet1 carrying
// a different PairID belongs to another submission.
type PairID [PairIDSize]byte

// NewPairID computes SHA3-256(batchID || ephemeralKey).
func NewPairID(batchID []byte, ephemeralKey []byte) PairID {
	h := sha3.New256()
	h.Write(batchID)
	h.Write(ephemeralKey)

	var id PairID
	copy(id[:], h.Sum(nil))
	return id
}
