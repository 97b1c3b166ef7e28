package protocol

import (
	"fmt"
	"math/big"

	"github.com/flashbots/privstats/crypto"
)

// HKDF info labels of the per-server sealing keys.
const (
	infoSealA = "seal/A"
	infoSealB = "seal/B"
)

// SealedShareSize is the payload length of a role's sealed share under cfg.
// Server B's payload carries no plaintext and only authenticates the header.
func SealedShareSize(cfg *Config, role Role) int {
	if role == ServerA {
		return cfg.Proof().Len()*crypto.FieldElementSize + crypto.SealOverhead
	}
	return crypto.SealOverhead
}

func deriveSealKey(secret crypto.SharedKey, batchID []byte, role Role) ([]byte, error) {
	info := infoSealA
	if role == ServerB {
		info = infoSealB
	}
	return crypto.DeriveAEADKey(secret, batchID, []byte(info))
}

type shareHeader struct {
	_            struct{} `cbor:",toarray"`
	Version      uint8
	BatchID      []byte
	Role         Role
	EphemeralKey []byte
}

// shareAdditionalData binds a sealed payload to the header it travels with.
func shareAdditionalData(batchID []byte, role Role, ephemeralKey crypto.PublicKey) ([]byte, error) {
	return SerializeMessage(&shareHeader{
		Version:      WireVersion,
		BatchID:      batchID,
		Role:         role,
		EphemeralKey: ephemeralKey,
	})
}

// SealShare builds one server's ClientShare. data is sealed under a key
// derived from the client's shared secret with that server; server B's share
// passes no data.
func SealShare(secret crypto.SharedKey, batchID []byte, role Role, ephemeralKey crypto.PublicKey, data []*big.Int) (*ClientShare, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("unknown server role %d", role)
	}
	key, err := deriveSealKey(secret, batchID, role)
	if err != nil {
		return nil, err
	}
	ad, err := shareAdditionalData(batchID, role, ephemeralKey)
	if err != nil {
		return nil, err
	}
	msg, err := crypto.Encrypt(key, crypto.EncodeFieldVector(data), ad)
	if err != nil {
		return nil, err
	}
	return &ClientShare{
		BatchID:      batchID,
		Role:         role,
		EphemeralKey: ephemeralKey,
		Payload:      msg.Bytes(),
	}, nil
}

// OpenShare authenticates and decrypts a share with the server's shared
// secret. It returns server A's share vector and nil for server B. A share
// that was modified in transit fails with ErrMalformedShare.
func OpenShare(cfg *Config, secret crypto.SharedKey, share *ClientShare) ([]*big.Int, error) {
	if err := share.Validate(cfg); err != nil {
		return nil, err
	}
	key, err := deriveSealKey(secret, share.BatchID, share.Role)
	if err != nil {
		return nil, err
	}
	ad, err := shareAdditionalData(share.BatchID, share.Role, share.EphemeralKey)
	if err != nil {
		return nil, err
	}
	msg, err := crypto.ParseEncryptedMessage(share.Payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedShare, err)
	}
	plaintext, err := crypto.Decrypt(key, msg, ad)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedShare, err)
	}

	n := 0
	if share.Role == ServerA {
		n = cfg.Proof().Len()
	}
	data, err := crypto.DecodeFieldVector(plaintext, n, crypto.FieldOrder)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedShare, err)
	}
	if n == 0 {
		return nil, nil
	}
	return data, nil
}
