package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"slices"
	"strings"

	"golang.org/x/crypto/curve25519"
)

// KeySize is the length of X25519 scalars and points.
const KeySize = curve25519.ScalarSize

var (
	// ErrInvalidKeySize is returned when raw key material has the wrong length.
	ErrInvalidKeySize = errors.New("invalid key size")
	// ErrNotPublicKey is returned when private key material reaches a public-key exporter.
	ErrNotPublicKey = errors.New("not a public key")
	// ErrKeyMismatch is returned when a private key does not match its public half.
	ErrKeyMismatch = errors.New("private key does not match public key")
)

// Key is implemented by PublicKey and PrivateKey.
type Key interface {
	Bytes() []byte
	IsPrivate() bool
}

// PublicKey is an X25519 point identifying a server.
type PublicKey []byte

// NewPublicKeyFromBytes creates a PublicKey from a byte slice.
// This function makes a copy of the input data to ensure immutability.
func NewPublicKeyFromBytes(data []byte) (PublicKey, error) {
	if len(data) != KeySize {
		return nil, ErrInvalidKeySize
	}
	return PublicKey(slices.Clone(data)), nil
}

// NewPublicKeyFromString parses a hex-encoded public key. Hex digits are
// accepted in either case.
func NewPublicKeyFromString(data string) (PublicKey, error) {
	if len(data) != 2*KeySize {
		return nil, ErrInvalidKeySize
	}
	rawBytes, err := hex.DecodeString(data)
	if err != nil {
		return nil, err
	}
	return NewPublicKeyFromBytes(rawBytes)
}

// Bytes returns the public key as a byte slice.
func (pk PublicKey) Bytes() []byte {
	return slices.Clone(pk)
}

// IsPrivate is always false for public keys.
func (pk PublicKey) IsPrivate() bool {
	return false
}

// Equal compares two public keys for equality.
func (pk PublicKey) Equal(other PublicKey) bool {
	return len(pk) == len(other) && subtle.ConstantTimeCompare(pk, other) == 1
}

// String returns the upper-case hex form of the public key.
func (pk PublicKey) String() string {
	return strings.ToUpper(hex.EncodeToString(pk))
}

// PrivateKey is an X25519 scalar.
type PrivateKey []byte

// Bytes returns the raw private scalar. Handle with care.
func (sk PrivateKey) Bytes() []byte {
	return slices.Clone(sk)
}

// IsPrivate is always true for private keys.
func (sk PrivateKey) IsPrivate() bool {
	return true
}

// PublicKey derives the public point for this scalar.
func (sk PrivateKey) PublicKey() (PublicKey, error) {
	if len(sk) != KeySize {
		return nil, ErrInvalidKeySize
	}
	pub, err := curve25519.X25519(sk, curve25519.Basepoint)
	if err != nil {
		return nil, err
	}
	return PublicKey(pub), nil
}

// KeyPair bundles a private scalar with its public point.
type KeyPair struct {
	Private PrivateKey
	Public  PublicKey
}

// GenerateKeyPair generates a new X25519 key pair.
func GenerateKeyPair() (*KeyPair, error) {
	sk := make(PrivateKey, KeySize)
	if _, err := rand.Read(sk); err != nil {
		return nil, err
	}
	pk, err := sk.PublicKey()
	if err != nil {
		return nil, err
	}
	return &KeyPair{Private: sk, Public: pk}, nil
}

// ImportPrivateKey rebuilds a key pair from raw private and public halves.
func ImportPrivateKey(privData []byte, pubData []byte) (*KeyPair, error) {
	if len(privData) != KeySize {
		return nil, ErrInvalidKeySize
	}
	pub, err := NewPublicKeyFromBytes(pubData)
	if err != nil {
		return nil, err
	}
	sk := PrivateKey(slices.Clone(privData))
	derived, err := sk.PublicKey()
	if err != nil {
		return nil, err
	}
	if !derived.Equal(pub) {
		return nil, ErrKeyMismatch
	}
	return &KeyPair{Private: sk, Public: pub}, nil
}

// ImportPrivateKeyHex is ImportPrivateKey over hex strings.
func ImportPrivateKeyHex(privHex string, pubHex string) (*KeyPair, error) {
	privData, err := hex.DecodeString(privHex)
	if err != nil {
		return nil, err
	}
	pub, err := NewPublicKeyFromString(pubHex)
	if err != nil {
		return nil, err
	}
	return ImportPrivateKey(privData, pub)
}

// ExportPrivateKeyHex is the only hex exporter for private scalars.
func ExportPrivateKeyHex(sk PrivateKey) (string, error) {
	if len(sk) != KeySize {
		return "", ErrInvalidKeySize
	}
	return strings.ToUpper(hex.EncodeToString(sk)), nil
}

// ExportPublicKey returns the raw bytes of a public key and refuses private keys.
func ExportPublicKey(k Key) ([]byte, error) {
	if k == nil || k.IsPrivate() {
		return nil, ErrNotPublicKey
	}
	raw := k.Bytes()
	if len(raw) != KeySize {
		return nil, ErrInvalidKeySize
	}
	return raw, nil
}

// ExportPublicKeyHex returns the upper-case hex encoding of a public key and
// refuses private keys.
func ExportPublicKeyHex(k Key) (string, error) {
	raw, err := ExportPublicKey(k)
	if err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(raw)), nil
}
