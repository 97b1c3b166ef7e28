package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"math/big"
)

// PRGSeedLength is the size of a PRG seed, one AES-128 key.
const PRGSeedLength = 16

// PRGSeed keys a deterministic PRG stream.
type PRGSeed [PRGSeedLength]byte

// RandomSeed samples a fresh seed from crypto/rand.
func RandomSeed() (PRGSeed, error) {
	var seed PRGSeed
	_, err := rand.Read(seed[:])
	return seed, err
}

// PRG is a deterministic byte stream: AES-128-CTR over an all-zero plaintext
// with a zero IV. Every seed must key exactly one stream.
type PRG struct {
	stream cipher.Stream
}

// NewPRG creates a stream keyed by seed.
func NewPRG(seed PRGSeed) (*PRG, error) {
	block, err := aes.NewCipher(seed[:])
	if err != nil {
		return nil, err
	}
	iv := make([]byte, aes.BlockSize)
	return &PRG{stream: cipher.NewCTR(block, iv)}, nil
}

// Read fills p with the next len(p) stream bytes. It never fails.
func (p *PRG) Read(b []byte) (int, error) {
	clear(b)
	p.stream.XORKeyStream(b, b)
	return len(b), nil
}

// NextBlock returns the next AES block of output.
func (p *PRG) NextBlock() []byte {
	out := make([]byte, aes.BlockSize)
	p.Read(out)
	return out
}

// Int samples a uniform integer in [0, max) by rejection sampling on the
// minimal number of bytes, with the unused top bits masked off.
func (p *PRG) Int(max *big.Int) (*big.Int, error) {
	if max.Sign() <= 0 {
		return nil, errors.New("prg: max must be positive")
	}
	bitLen := max.BitLen()
	buf := make([]byte, (bitLen+7)/8)
	topMask := byte(0xff >> (8*len(buf) - bitLen))

	out := new(big.Int)
	for {
		p.Read(buf)
		buf[0] &= topMask
		out.SetBytes(buf)
		if out.Cmp(max) < 0 {
			return out, nil
		}
	}
}

// FieldVector samples n uniform field elements.
func (p *PRG) FieldVector(n int, fieldOrder *big.Int) ([]*big.Int, error) {
	res := make([]*big.Int, n)
	for i := range res {
		el, err := p.Int(fieldOrder)
		if err != nil {
			return nil, err
		}
		res[i] = el
	}
	return res, nil
}

// ShareInt splits src into two additive shares. The B share is the next PRG
// output; the returned A share is src - B.
func (p *PRG) ShareInt(src *big.Int, fieldOrder *big.Int) (*big.Int, error) {
	shareB, err := p.Int(fieldOrder)
	if err != nil {
		return nil, err
	}
	return FieldSubInplace(new(big.Int).Set(src), shareB, fieldOrder), nil
}

// ShareVector applies ShareInt to every element of src in order.
func (p *PRG) ShareVector(src []*big.Int, fieldOrder *big.Int) ([]*big.Int, error) {
	res := make([]*big.Int, len(src))
	for i := range src {
		shareA, err := p.ShareInt(src[i], fieldOrder)
		if err != nil {
			return nil, err
		}
		res[i] = shareA
	}
	return res, nil
}

// RandomFieldElement samples a uniform element from crypto/rand.
func RandomFieldElement(fieldOrder *big.Int) (*big.Int, error) {
	return rand.Int(rand.Reader, fieldOrder)
}
