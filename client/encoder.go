// Package client implements the submitting side of a private aggregation
// round: it encodes a data vector into one share per server together with a
// validity proof the two servers can check jointly.
package client

import (
	"fmt"
	"math/big"

	"github.com/flashbots/privstats/crypto"
	"github.com/flashbots/privstats/protocol"
)

// Encoder produces share pairs for one round. It holds no per-client state
// and is safe for concurrent use.
type Encoder struct {
	cfg *protocol.Config
}

// NewEncoder creates an encoder for cfg.
func NewEncoder(cfg *protocol.Config) (*Encoder, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: config cannot be nil", protocol.ErrConfig)
	}
	if err := cfg.CheckOpen(); err != nil {
		return nil, err
	}
	return &Encoder{cfg: cfg}, nil
}

// Encode secret-shares data, one value per layout entry, and returns the
// shares for server A and server B. The two shares must be delivered
// together; a share paired with another encoding's sibling fails verification.
func (e *Encoder) Encode(data []uint64) (*protocol.ClientShare, *protocol.ClientShare, error) {
	if err := e.cfg.CheckOpen(); err != nil {
		return nil, nil, err
	}
	bits, err := protocol.EncodeBits(e.cfg.Layout(), data)
	if err != nil {
		return nil, nil, err
	}
	return e.encodeBits(bits)
}

// EncodeBool is Encode for Boolean layouts.
func (e *Encoder) EncodeBool(data []bool) (*protocol.ClientShare, *protocol.ClientShare, error) {
	if kind := e.cfg.Layout().Kind; kind != protocol.LayoutBoolean {
		return nil, nil, fmt.Errorf("%w: boolean data for %s layout", protocol.ErrInvalidInput, kind)
	}
	values := make([]uint64, len(data))
	for i, b := range data {
		if b {
			values[i] = 1
		}
	}
	return e.Encode(values)
}

func (e *Encoder) encodeBits(bits []*big.Int) (*protocol.ClientShare, *protocol.ClientShare, error) {
	packet, err := buildProofPacket(e.cfg.Proof(), bits)
	if err != nil {
		return nil, nil, fmt.Errorf("building proof: %w", err)
	}
	return e.sharePacket(packet)
}

// sharePacket splits packet between the servers and seals each half.
func (e *Encoder) sharePacket(packet []*big.Int) (*protocol.ClientShare, *protocol.ClientShare, error) {
	eph, err := crypto.GenerateKeyPair()
	if err != nil {
		return nil, nil, fmt.Errorf("generating ephemeral key: %w", err)
	}
	batchID := e.cfg.BatchID()

	secretA, err := e.agree(eph.Private, protocol.ServerA)
	if err != nil {
		return nil, nil, err
	}
	secretB, err := e.agree(eph.Private, protocol.ServerB)
	if err != nil {
		return nil, nil, err
	}

	seedB, err := protocol.DeriveShareSeed(secretB, batchID)
	if err != nil {
		return nil, nil, err
	}
	dataA, err := protocol.SplitShares(packet, seedB)
	if err != nil {
		return nil, nil, fmt.Errorf("sharing packet: %w", err)
	}

	shareA, err := protocol.SealShare(secretA, batchID, protocol.ServerA, eph.Public, dataA)
	if err != nil {
		return nil, nil, fmt.Errorf("sealing share for server A: %w", err)
	}
	shareB, err := protocol.SealShare(secretB, batchID, protocol.ServerB, eph.Public, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("sealing share for server B: %w", err)
	}
	return shareA, shareB, nil
}

func (e *Encoder) agree(eph crypto.PrivateKey, role protocol.Role) (crypto.SharedKey, error) {
	secret, err := crypto.DeriveSharedSecret(eph, e.cfg.ServerPublicKey(role))
	if err != nil {
		return nil, fmt.Errorf("key agreement with server %s: %w", role, err)
	}
	return secret, nil
}

// buildProofPacket lays out bits followed by the proof for them.
func buildProofPacket(layout protocol.ProofLayout, bits []*big.Int) ([]*big.Int, error) {
	n := layout.N
	rootN, err := crypto.RootOfUnity(n)
	if err != nil {
		return nil, err
	}
	root2N, err := crypto.RootOfUnity(2 * n)
	if err != nil {
		return nil, err
	}

	f0, err := crypto.RandomFieldElement(crypto.FieldOrder)
	if err != nil {
		return nil, err
	}
	g0, err := crypto.RandomFieldElement(crypto.FieldOrder)
	if err != nil {
		return nil, err
	}

	// f and g at the N-th roots: f = (f0, bits, 0...), g = (g0, bits-1, 0...).
	fPoints := crypto.NewFieldVector(n)
	gPoints := crypto.NewFieldVector(n)
	fPoints[0].Set(f0)
	gPoints[0].Set(g0)
	one := big.NewInt(1)
	for i, b := range bits {
		fPoints[i+1].Set(b)
		gPoints[i+1].Set(b)
		crypto.FieldSubInplace(gPoints[i+1], one, crypto.FieldOrder)
	}

	fEvals := evaluateOnDoubleDomain(fPoints, rootN, root2N)
	gEvals := evaluateOnDoubleDomain(gPoints, rootN, root2N)

	a, err := crypto.RandomFieldElement(crypto.FieldOrder)
	if err != nil {
		return nil, err
	}
	b, err := crypto.RandomFieldElement(crypto.FieldOrder)
	if err != nil {
		return nil, err
	}

	packet := crypto.NewFieldVector(layout.Len())
	for i, bit := range bits {
		packet[i].Set(bit)
	}
	packet[layout.F0()].Set(f0)
	packet[layout.G0()].Set(g0)
	crypto.FieldMulInplace(packet[layout.H0()].Set(f0), g0, crypto.FieldOrder)
	packet[layout.TripleA()].Set(a)
	packet[layout.TripleB()].Set(b)
	crypto.FieldMulInplace(packet[layout.TripleC()].Set(a), b, crypto.FieldOrder)

	// h = f*g at the odd 2N-th roots. At the even roots h is h0, then zero
	// wherever every bit is 0 or 1, so the servers rebuild those points.
	for k := 0; k < n; k++ {
		h := packet[layout.HPoints()+k]
		h.Set(fEvals[2*k+1])
		crypto.FieldMulInplace(h, gEvals[2*k+1], crypto.FieldOrder)
	}
	return packet, nil
}

// evaluateOnDoubleDomain interpolates points over the N-th roots and
// evaluates the result at all 2N-th roots.
func evaluateOnDoubleDomain(points []*big.Int, rootN, root2N *big.Int) []*big.Int {
	coeffs := crypto.InverseFFT(points, rootN, crypto.FieldOrder)
	padded := crypto.NewFieldVector(2 * len(points))
	for i := range coeffs {
		padded[i].Set(coeffs[i])
	}
	return crypto.FFT(padded, root2N, crypto.FieldOrder)
}
