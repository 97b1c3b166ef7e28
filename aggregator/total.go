package aggregator

import (
	"fmt"
	"math/big"

	"github.com/flashbots/privstats/crypto"
	"github.com/flashbots/privstats/protocol"
)

// TotalShare is one server's reveal share of the round aggregate.
type TotalShare struct {
	cfg    *protocol.Config
	role   protocol.Role
	count  uint64
	values []*big.Int
}

// Finalize snapshots a store into its server's TotalShare. The store is not
// modified and may keep aggregating.
func Finalize(s *Store) (*TotalShare, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: nil store", protocol.ErrState)
	}
	if err := s.cfg.CheckOpen(); err != nil {
		return nil, err
	}
	sum, count, _ := s.snapshot()
	s.log.Info("finalized store", "clients", count)
	return &TotalShare{cfg: s.cfg, role: s.role, count: count, values: sum}, nil
}

// Role returns the server role that produced the share.
func (t *TotalShare) Role() protocol.Role { return t.role }

// Count returns the number of clients the share covers.
func (t *TotalShare) Count() uint64 { return t.count }

// Marshal serializes the share.
func (t *TotalShare) Marshal() ([]byte, error) {
	return encodeSum(kindTotalShare, t.cfg, t.role, t.count, t.values, nil)
}

// UnmarshalTotalShare decodes a share written under cfg.
func UnmarshalTotalShare(cfg *protocol.Config, data []byte) (*TotalShare, error) {
	if err := cfg.CheckOpen(); err != nil {
		return nil, err
	}
	w, values, err := decodeSum(kindTotalShare, cfg, data)
	if err != nil {
		return nil, err
	}
	if len(w.Pairs) != 0 {
		return nil, fmt.Errorf("%w: total share lists submissions", protocol.ErrFormat)
	}
	return &TotalShare{cfg: cfg, role: w.Role, count: w.Count, values: values}, nil
}

// CombineBig adds both servers' shares and returns the aggregate as field
// elements. The shares must come from opposite servers of rounds compatible
// with cfg and cover the same number of clients.
func CombineBig(a, b *TotalShare, cfg *protocol.Config) ([]*big.Int, error) {
	if err := cfg.CheckOpen(); err != nil {
		return nil, err
	}
	if a == nil || b == nil {
		return nil, fmt.Errorf("%w: missing total share", protocol.ErrConfigMismatch)
	}
	if !cfg.Compatible(a.cfg) || !cfg.Compatible(b.cfg) {
		return nil, fmt.Errorf("%w: total shares belong to another round", protocol.ErrConfigMismatch)
	}
	if a.role == b.role {
		return nil, fmt.Errorf("%w: both total shares come from server %s", protocol.ErrConfigMismatch, a.role)
	}
	if a.count != b.count {
		return nil, fmt.Errorf("%w: servers aggregated %d and %d clients", protocol.ErrState, a.count, b.count)
	}

	res := crypto.CloneFieldVector(a.values)
	crypto.FieldAddVectorInplace(res, b.values, crypto.FieldOrder)
	return res, nil
}

// Combine is CombineBig with every entry converted to uint64.
//
// Capacity precondition: the number of clients times the layout's maximum
// entry value must stay below 2^64 (and the field modulus). Larger sums
// wrap around the field and cannot be recovered; entries that do not fit
// 64 bits fail with protocol.ErrCapacityExceeded.
func Combine(a, b *TotalShare, cfg *protocol.Config) ([]uint64, error) {
	values, err := CombineBig(a, b, cfg)
	if err != nil {
		return nil, err
	}

	res := make([]uint64, len(values))
	for i, x := range values {
		v, err := crypto.FieldToUint(x, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d: %w", protocol.ErrCapacityExceeded, i, err)
		}
		res[i] = v
	}
	return res, nil
}
