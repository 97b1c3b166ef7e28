package protocol

import (
	"bytes"
	"fmt"
	"os"

	"github.com/flashbots/privstats/crypto"
	"gopkg.in/yaml.v3"
)

// RoundDescriptor is the serializable form of a Config, as distributed to
// clients and servers before a round starts.
//
//	layout: uint
//	entries: 11
//	precision: 7
//	server_a_public_key: 102030...
//	server_b_public_key: A0B0C0...
//	batch_id: test_batch
type RoundDescriptor struct {
	// Layout is "boolean" or "uint".
	Layout string `yaml:"layout" json:"layout"`

	// Entries is the number of data entries per client.
	Entries int `yaml:"entries" json:"entries"`

	// Precision is the bit width of UInt entries. Ignored for Boolean layouts.
	Precision int `yaml:"precision,omitempty" json:"precision,omitempty"`

	// ServerAPublicKey and ServerBPublicKey are hex-encoded X25519 keys.
	ServerAPublicKey string `yaml:"server_a_public_key" json:"server_a_public_key"`
	ServerBPublicKey string `yaml:"server_b_public_key" json:"server_b_public_key"`

	// BatchID identifies the round.
	BatchID string `yaml:"batch_id" json:"batch_id"`
}

// ParseRoundDescriptor decodes a YAML descriptor. Unknown keys are rejected.
func ParseRoundDescriptor(data []byte) (*RoundDescriptor, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var d RoundDescriptor
	if err := dec.Decode(&d); err != nil {
		return nil, fmt.Errorf("%w: parsing round descriptor: %w", ErrConfig, err)
	}
	return &d, nil
}

// LoadRoundDescriptor reads and parses a YAML descriptor file.
func LoadRoundDescriptor(path string) (*RoundDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading round descriptor: %w", err)
	}
	return ParseRoundDescriptor(data)
}

// DescribeConfig returns the descriptor of an existing config.
func DescribeConfig(cfg *Config) *RoundDescriptor {
	d := &RoundDescriptor{
		Layout:           cfg.layout.Kind.String(),
		Entries:          cfg.layout.Entries,
		ServerAPublicKey: cfg.serverA.String(),
		ServerBPublicKey: cfg.serverB.String(),
		BatchID:          string(cfg.batchID),
	}
	if cfg.layout.Kind == LayoutUInt {
		d.Precision = cfg.layout.Precision
	}
	return d
}

// Marshal encodes the descriptor as YAML.
func (d *RoundDescriptor) Marshal() ([]byte, error) {
	return yaml.Marshal(d)
}

// FieldLayout converts the descriptor's layout fields.
func (d *RoundDescriptor) FieldLayout() (FieldLayout, error) {
	kind, err := ParseLayoutKind(d.Layout)
	if err != nil {
		return FieldLayout{}, err
	}
	if kind == LayoutBoolean {
		return BooleanLayout(d.Entries), nil
	}
	return UIntLayout(d.Entries, d.Precision), nil
}

// NewConfigFromDescriptor validates a descriptor and creates its config.
func (c *Context) NewConfigFromDescriptor(d *RoundDescriptor) (*Config, error) {
	layout, err := d.FieldLayout()
	if err != nil {
		return nil, err
	}
	serverA, err := crypto.NewPublicKeyFromString(d.ServerAPublicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: server A public key: %w", ErrConfig, err)
	}
	serverB, err := crypto.NewPublicKeyFromString(d.ServerBPublicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: server B public key: %w", ErrConfig, err)
	}
	return c.NewConfig(layout, serverA, serverB, []byte(d.BatchID))
}
