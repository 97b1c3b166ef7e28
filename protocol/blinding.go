package protocol

import (
	"math/big"

	"github.com/flashbots/privstats/crypto"
)

// HKDF info label of server B's share stream.
const infoShareB = "share/B"

// DeriveShareSeed derives the PRG seed a client and server B agree on from
// their X25519 shared secret. The stream keyed by it is B's whole share.
func DeriveShareSeed(secret crypto.SharedKey, batchID []byte) (crypto.PRGSeed, error) {
	return crypto.DeriveSeed(secret, batchID, []byte(infoShareB))
}

// ExpandShareB regenerates server B's share of an n-element vector.
func ExpandShareB(seed crypto.PRGSeed, n int) ([]*big.Int, error) {
	prg, err := crypto.NewPRG(seed)
	if err != nil {
		return nil, err
	}
	return prg.FieldVector(n, crypto.FieldOrder)
}

// SplitShares secret-shares v and returns server A's share: v minus the
// stream keyed by seedB.
func SplitShares(v []*big.Int, seedB crypto.PRGSeed) ([]*big.Int, error) {
	prg, err := crypto.NewPRG(seedB)
	if err != nil {
		return nil, err
	}
	return prg.ShareVector(v, crypto.FieldOrder)
}
