package protocol

import (
	"fmt"
	"math/big"

	"github.com/flashbots/privstats/crypto"
	"github.com/fxamacker/cbor/v2"
)

// WireVersion tags every serialized artifact.
const WireVersion uint8 = 1

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	decMode, err = cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyEnforcedAPF,
		IndefLength: cbor.IndefLengthForbidden,
	}.DecMode()
	if err != nil {
		panic(err)
	}
}

// SerializeMessage encodes a message as deterministic CBOR.
func SerializeMessage[T any](msg *T) ([]byte, error) {
	return encMode.Marshal(msg)
}

// UnmarshalMessage decodes a CBOR message. Trailing bytes and structural
// mismatches fail with ErrFormat.
func UnmarshalMessage[T any](data []byte) (*T, error) {
	var msg T
	if err := decMode.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFormat, err)
	}
	return &msg, nil
}

// CheckVersion rejects artifacts written by another wire version.
func CheckVersion(v uint8) error {
	if v != WireVersion {
		return fmt.Errorf("%w: unsupported wire version %d", ErrFormat, v)
	}
	return nil
}

// ClientShare is one server's half of a client submission.
//
// Payload is sealed to the receiving server and authenticates the header
// fields. Server B's share is expanded from a seed both the client and server
// B derive from the ephemeral key, so its payload carries no data. Server A's
// payload carries the full proof-layout vector.
type ClientShare struct {
	BatchID      []byte
	Role         Role
	EphemeralKey crypto.PublicKey
	Payload      []byte
}

type clientShareWire struct {
	_            struct{} `cbor:",toarray"`
	Version      uint8
	BatchID      []byte
	Role         Role
	EphemeralKey []byte
	Payload      []byte
}

// Validate checks the share's shape against cfg. Failures wrap ErrMalformedShare.
func (s *ClientShare) Validate(cfg *Config) error {
	if !cfg.MatchesBatch(s.BatchID) {
		return fmt.Errorf("%w: batch id does not match config", ErrMalformedShare)
	}
	if !s.Role.Valid() {
		return fmt.Errorf("%w: unknown server role %d", ErrMalformedShare, s.Role)
	}
	if len(s.EphemeralKey) != crypto.KeySize {
		return fmt.Errorf("%w: ephemeral key must be %d bytes", ErrMalformedShare, crypto.KeySize)
	}
	if want := SealedShareSize(cfg, s.Role); len(s.Payload) != want {
		return fmt.Errorf("%w: server %s payload is %d bytes, want %d", ErrMalformedShare, s.Role, len(s.Payload), want)
	}
	return nil
}

// Marshal serializes the share.
func (s *ClientShare) Marshal() ([]byte, error) {
	return SerializeMessage(&clientShareWire{
		Version:      WireVersion,
		BatchID:      s.BatchID,
		Role:         s.Role,
		EphemeralKey: s.EphemeralKey,
		Payload:      s.Payload,
	})
}

// UnmarshalClientShare decodes a share and validates its shape against cfg.
// The payload is authenticated later, by the receiving server.
func UnmarshalClientShare(cfg *Config, data []byte) (*ClientShare, error) {
	w, err := UnmarshalMessage[clientShareWire](data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedShare, err)
	}
	if err := CheckVersion(w.Version); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedShare, err)
	}

	s := &ClientShare{
		BatchID:      w.BatchID,
		Role:         w.Role,
		EphemeralKey: crypto.PublicKey(w.EphemeralKey),
		Payload:      w.Payload,
	}
	if err := s.Validate(cfg); err != nil {
		return nil, err
	}
	return s, nil
}

// Packet1 is a server's first verification message: its shares of
// d = f(r) - a and e = g(r) - b.
type Packet1 struct {
	Role   Role
	PairID PairID
	D      *big.Int
	E      *big.Int
}

type packet1Wire struct {
	_       struct{} `cbor:",toarray"`
	Version uint8
	Role    Role
	PairID  []byte
	Values  []byte
}

// Marshal serializes the packet.
func (p *Packet1) Marshal() ([]byte, error) {
	return SerializeMessage(&packet1Wire{
		Version: WireVersion,
		Role:    p.Role,
		PairID:  p.PairID[:],
		Values:  crypto.EncodeFieldVector([]*big.Int{p.D, p.E}),
	})
}

// UnmarshalPacket1 decodes a Packet1. Failures wrap ErrFormat.
func UnmarshalPacket1(data []byte) (*Packet1, error) {
	w, err := UnmarshalMessage[packet1Wire](data)
	if err != nil {
		return nil, err
	}
	pairID, err := decodeHeader(w.Version, w.Role, w.PairID)
	if err != nil {
		return nil, err
	}
	vals, err := crypto.DecodeFieldVector(w.Values, 2, crypto.FieldOrder)
	if err != nil {
		return nil, fmt.Errorf("%w: packet1: %w", ErrFormat, err)
	}
	return &Packet1{Role: w.Role, PairID: pairID, D: vals[0], E: vals[1]}, nil
}

// Packet2 is a server's share of f(r)*g(r) - h(r).
type Packet2 struct {
	Role   Role
	PairID PairID
	Out    *big.Int
}

type packet2Wire struct {
	_       struct{} `cbor:",toarray"`
	Version uint8
	Role    Role
	PairID  []byte
	Out     []byte
}

// Marshal serializes the packet.
func (p *Packet2) Marshal() ([]byte, error) {
	return SerializeMessage(&packet2Wire{
		Version: WireVersion,
		Role:    p.Role,
		PairID:  p.PairID[:],
		Out:     crypto.EncodeFieldVector([]*big.Int{p.Out}),
	})
}

// UnmarshalPacket2 decodes a Packet2. Failures wrap ErrFormat.
func UnmarshalPacket2(data []byte) (*Packet2, error) {
	w, err := UnmarshalMessage[packet2Wire](data)
	if err != nil {
		return nil, err
	}
	pairID, err := decodeHeader(w.Version, w.Role, w.PairID)
	if err != nil {
		return nil, err
	}
	out, err := crypto.DecodeFieldVector(w.Out, 1, crypto.FieldOrder)
	if err != nil {
		return nil, fmt.Errorf("%w: packet2: %w", ErrFormat, err)
	}
	return &Packet2{Role: w.Role, PairID: pairID, Out: out[0]}, nil
}

func decodeHeader(version uint8, role Role, rawPairID []byte) (PairID, error) {
	var id PairID
	if err := CheckVersion(version); err != nil {
		return id, err
	}
	if !role.Valid() {
		return id, fmt.Errorf("%w: unknown server role %d", ErrFormat, role)
	}
	if len(rawPairID) != PairIDSize {
		return id, fmt.Errorf("%w: pair id must be %d bytes", ErrFormat, PairIDSize)
	}
	copy(id[:], rawPairID)
	return id, nil
}
