package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"slices"

	"golang.org/x/crypto/hkdf"
)

const (
	// AEADKeySize is the AES-256 key size used for sealing.
	AEADKeySize = 32
	// NonceSize is the AES-GCM nonce size.
	NonceSize = 12
	// TagSize is the AES-GCM authentication tag size.
	TagSize = 16
	// SealOverhead is the number of bytes Encrypt adds to a plaintext.
	SealOverhead = NonceSize + TagSize
)

// ErrDecryption is returned when a sealed message fails authentication.
var ErrDecryption = errors.New("message authentication failed")

// EncryptedMessage is an AES-256-GCM sealed payload.
// Format: nonce (12 bytes) || ciphertext+tag
type EncryptedMessage struct {
	Nonce      []byte
	Ciphertext []byte
}

// DeriveAEADKey expands a shared secret into an AES-256 key bound to salt and info.
func DeriveAEADKey(secret SharedKey, salt []byte, info []byte) ([]byte, error) {
	key := make([]byte, AEADKeySize)
	r := hkdf.New(sha256.New, secret, salt, info)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, err
	}
	return key, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != AEADKeySize {
		return nil, ErrInvalidKeySize
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}
	return gcm, nil
}

// Encrypt seals plaintext under key with a random nonce. additionalData is
// authenticated but not encrypted.
func Encrypt(key []byte, plaintext []byte, additionalData []byte) (*EncryptedMessage, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	return &EncryptedMessage{
		Nonce:      nonce,
		Ciphertext: gcm.Seal(nil, nonce, plaintext, additionalData),
	}, nil
}

// Decrypt opens a message sealed by Encrypt. A wrong key, a modified
// ciphertext or different additional data fail with ErrDecryption.
func Decrypt(key []byte, msg *EncryptedMessage, additionalData []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if msg == nil || len(msg.Nonce) != gcm.NonceSize() {
		return nil, errors.New("invalid nonce size")
	}

	plaintext, err := gcm.Open(nil, msg.Nonce, msg.Ciphertext, additionalData)
	if err != nil {
		return nil, ErrDecryption
	}
	return plaintext, nil
}

// Bytes serializes an encrypted message.
func (m *EncryptedMessage) Bytes() []byte {
	result := make([]byte, 0, len(m.Nonce)+len(m.Ciphertext))
	result = append(result, m.Nonce...)
	result = append(result, m.Ciphertext...)
	return result
}

// ParseEncryptedMessage deserializes an encrypted message. The result does
// not alias data.
func ParseEncryptedMessage(data []byte) (*EncryptedMessage, error) {
	if len(data) < SealOverhead {
		return nil, errors.New("encrypted message too short")
	}
	return &EncryptedMessage{
		Nonce:      slices.Clone(data[:NonceSize]),
		Ciphertext: slices.Clone(data[NonceSize:]),
	}, nil
}
