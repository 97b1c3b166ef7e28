package crypto

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"io"

	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"
)

// ErrWeakSharedSecret is returned when X25519 produces the all-zero point.
var ErrWeakSharedSecret = errors.New("low-order public key")

// SharedKey represents a Diffie-Hellman shared secret.
// Must always be derived from, never used as-is.
type SharedKey []byte

// DeriveSharedSecret performs X25519 key agreement between a private scalar
// and a peer public point.
func DeriveSharedSecret(privateKey PrivateKey, publicKey PublicKey) (SharedKey, error) {
	if len(privateKey) != KeySize || len(publicKey) != KeySize {
		return nil, ErrInvalidKeySize
	}

	shared, err := curve25519.X25519(privateKey, publicKey)
	if err != nil {
		return nil, ErrWeakSharedSecret
	}

	var zero [KeySize]byte
	if subtle.ConstantTimeCompare(shared, zero[:]) == 1 {
		return nil, ErrWeakSharedSecret
	}
	return SharedKey(shared), nil
}

// DeriveSeed expands a shared secret into a PRG seed bound to salt and info.
func DeriveSeed(secret []byte, salt []byte, info []byte) (PRGSeed, error) {
	var seed PRGSeed
	r := hkdf.New(sha256.New, secret, salt, info)
	if _, err := io.ReadFull(r, seed[:]); err != nil {
		return seed, err
	}
	return seed, nil
}
