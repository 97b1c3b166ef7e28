package protocol

import (
	"bytes"
	"fmt"

	"github.com/flashbots/privstats/crypto"
)

const (
	// MinPrecision and MaxPrecision bound the bit width of UInt entries.
	MinPrecision = 1
	MaxPrecision = 32

	// MaxMulGates bounds the number of multiplication gates in a proof.
	// The proof polynomials are evaluated over 2N-th roots of unity with
	// N = NextPowerOfTwo(M+1), and the field only has roots of order up to
	// 2^FieldGeneratorLog.
	MaxMulGates = 1<<(crypto.FieldGeneratorLog-1) - 1

	// MaxBatchIDLength bounds the length of a batch identifier in bytes.
	MaxBatchIDLength = 1024
)

// MaxDataFields returns the largest number of entries a layout of the given
// precision can hold. Boolean layouts use precision 1.
func MaxDataFields(precision int) int {
	if precision < MinPrecision || precision > MaxPrecision {
		return 0
	}
	return MaxMulGates / precision
}

// LayoutKind distinguishes Boolean from unsigned integer layouts.
type LayoutKind uint8

const (
	LayoutBoolean LayoutKind = iota + 1
	LayoutUInt
)

func (k LayoutKind) String() string {
	switch k {
	case LayoutBoolean:
		return "boolean"
	case LayoutUInt:
		return "uint"
	default:
		return fmt.Sprintf("LayoutKind(%d)", uint8(k))
	}
}

// ParseLayoutKind maps "boolean"/"bool" and "uint" to a LayoutKind.
func ParseLayoutKind(s string) (LayoutKind, error) {
	switch s {
	case "boolean", "bool":
		return LayoutBoolean, nil
	case "uint":
		return LayoutUInt, nil
	default:
		return 0, fmt.Errorf("%w: unknown layout %q", ErrConfig, s)
	}
}

// FieldLayout describes the shape of one client's data vector.
type FieldLayout struct {
	Kind      LayoutKind
	Entries   int
	Precision int
}

// BooleanLayout describes n entries that are each 0 or 1.
func BooleanLayout(n int) FieldLayout {
	return FieldLayout{Kind: LayoutBoolean, Entries: n, Precision: 1}
}

// UIntLayout describes n unsigned integers of precision bits each.
func UIntLayout(n int, precision int) FieldLayout {
	return FieldLayout{Kind: LayoutUInt, Entries: n, Precision: precision}
}

// Validate checks the layout against the field's proof capacity.
func (l FieldLayout) Validate() error {
	switch l.Kind {
	case LayoutBoolean:
		if l.Precision != 1 {
			return fmt.Errorf("%w: boolean layout with precision %d", ErrConfig, l.Precision)
		}
	case LayoutUInt:
		if l.Precision < MinPrecision || l.Precision > MaxPrecision {
			return fmt.Errorf("%w: precision %d outside [%d, %d]", ErrConfig, l.Precision, MinPrecision, MaxPrecision)
		}
	default:
		return fmt.Errorf("%w: unknown layout kind %d", ErrConfig, l.Kind)
	}
	if l.Entries < 1 {
		return fmt.Errorf("%w: layout needs at least one entry", ErrConfig)
	}
	if l.Entries > MaxDataFields(l.Precision) {
		return fmt.Errorf("%w: %d entries exceed maximum %d at precision %d",
			ErrConfig, l.Entries, MaxDataFields(l.Precision), l.Precision)
	}
	return nil
}

// MulGates is the number of bits a client encodes, one proof gate per bit.
func (l FieldLayout) MulGates() int {
	return l.Entries * l.Precision
}

// HPoints is N, the number of evaluation points of the proof polynomials f
// and g; the client transmits h = f*g at the N odd 2N-th roots of unity.
func (l FieldLayout) HPoints() int {
	return crypto.NextPowerOfTwo(l.MulGates() + 1)
}

// MaxValue is the largest value one entry may hold.
func (l FieldLayout) MaxValue() uint64 {
	return uint64(1)<<l.Precision - 1
}

func (l FieldLayout) String() string {
	if l.Kind == LayoutUInt {
		return fmt.Sprintf("uint(%d x %d bits)", l.Entries, l.Precision)
	}
	return fmt.Sprintf("%s(%d)", l.Kind, l.Entries)
}

// Config describes one aggregation round. It is immutable and shared by every
// encoder, verifier and store of the round. Configs are created through a
// Context.
type Config struct {
	ctx     *Context
	layout  FieldLayout
	serverA crypto.PublicKey
	serverB crypto.PublicKey
	batchID []byte
}

// NewConfig validates and creates a round config.
func (c *Context) NewConfig(layout FieldLayout, serverA, serverB crypto.PublicKey, batchID []byte) (*Config, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	if len(serverA) != crypto.KeySize || len(serverB) != crypto.KeySize {
		return nil, fmt.Errorf("%w: server public keys must be %d bytes", ErrConfig, crypto.KeySize)
	}
	if serverA.Equal(serverB) {
		return nil, fmt.Errorf("%w: both servers share one public key", ErrConfig)
	}
	if len(batchID) < 1 || len(batchID) > MaxBatchIDLength {
		return nil, fmt.Errorf("%w: batch id length %d outside [1, %d]", ErrConfig, len(batchID), MaxBatchIDLength)
	}

	return &Config{
		ctx:     c,
		layout:  layout,
		serverA: serverA.Bytes(),
		serverB: serverB.Bytes(),
		batchID: bytes.Clone(batchID),
	}, nil
}

// Layout returns the round's field layout.
func (c *Config) Layout() FieldLayout { return c.layout }

// BatchID returns a copy of the batch identifier.
func (c *Config) BatchID() []byte { return bytes.Clone(c.batchID) }

// ServerPublicKey returns the public key of the given server.
func (c *Config) ServerPublicKey(role Role) crypto.PublicKey {
	if role == ServerB {
		return c.serverB.Bytes()
	}
	return c.serverA.Bytes()
}

// Proof returns the packet layout of client shares under this config.
func (c *Config) Proof() ProofLayout {
	return NewProofLayout(c.layout)
}

// CheckOpen returns ErrContextClosed once the owning context is closed.
func (c *Config) CheckOpen() error {
	return c.ctx.check()
}

// Compatible reports whether artifacts of c and other may be combined: same
// layout, same batch id, same server keys.
func (c *Config) Compatible(other *Config) bool {
	if c == other {
		return true
	}
	if c == nil || other == nil {
		return false
	}
	return c.layout == other.layout &&
		bytes.Equal(c.batchID, other.batchID) &&
		c.serverA.Equal(other.serverA) &&
		c.serverB.Equal(other.serverB)
}

// MatchesBatch reports whether id equals the config's batch identifier.
func (c *Config) MatchesBatch(id []byte) bool {
	return bytes.Equal(c.batchID, id)
}

// Role identifies one of the two servers.
type Role uint8

const (
	ServerA Role = iota
	ServerB
)

// Valid reports whether r names a server.
func (r Role) Valid() bool {
	return r == ServerA || r == ServerB
}

// Peer returns the other server's role.
func (r Role) Peer() Role {
	if r == ServerA {
		return ServerB
	}
	return ServerA
}

func (r Role) String() string {
	switch r {
	case ServerA:
		return "A"
	case ServerB:
		return "B"
	default:
		return fmt.Sprintf("Role(%d)", uint8(r))
	}
}
