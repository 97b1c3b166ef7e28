// Package aggregator accumulates verified client shares on one server and
// reconstructs the round's aggregate from both servers' totals.
//
// Each server folds the data shares of accepted submissions into a Store.
// Stores built over disjoint client populations under the same config can be
// merged in any order or grouping, so partial aggregates may be combined in a
// fan-in tree. At round end each server finalizes its Store into a
// TotalShare, and Combine adds the two TotalShares into the plaintext sum.
package aggregator

import (
	"bytes"
	"fmt"
	"log/slog"
	"maps"
	"math/big"
	"slices"
	"sync"

	"github.com/flashbots/privstats/crypto"
	"github.com/flashbots/privstats/protocol"
)

// Session is a decided verification session, such as a *server.Verifier.
type Session interface {
	Config() *protocol.Config
	Role() protocol.Role
	PairID() protocol.PairID
	DataShare() ([]*big.Int, error)
}

// Store is one server's running sum of accepted client shares.
// All methods are safe for concurrent use.
type Store struct {
	cfg  *protocol.Config
	role protocol.Role
	log  *slog.Logger

	mu    sync.Mutex
	sum   []*big.Int
	count uint64
	// pairs holds the submissions folded in, directly or through Merge.
	pairs map[protocol.PairID]struct{}
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}

// NewStore creates an empty store for one server of cfg.
func NewStore(cfg *protocol.Config, role protocol.Role, opts ...Option) (*Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: config cannot be nil", protocol.ErrConfig)
	}
	if err := cfg.CheckOpen(); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown server role %d", protocol.ErrConfig, role)
	}

	s := &Store{
		cfg:  cfg,
		role: role,
		log:  slog.Default(),
		sum:   crypto.NewFieldVector(cfg.Layout().Entries),
		pairs: make(map[protocol.PairID]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("role", role.String(), "batch", string(cfg.BatchID()))
	return s, nil
}

// Config returns the store's round config.
func (s *Store) Config() *protocol.Config { return s.cfg }

// Role returns the server role the store accumulates for.
func (s *Store) Role() protocol.Role { return s.role }

// Count returns the number of client submissions folded in.
func (s *Store) Count() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// Aggregate folds an accepted session's data share into the sum. Each
// submission is folded at most once per store. Sessions that are not decided,
// were rejected or were already folded fail with protocol.ErrState and leave
// the store unchanged.
func (s *Store) Aggregate(sess Session) error {
	if err := s.cfg.CheckOpen(); err != nil {
		return err
	}
	if sess == nil {
		return fmt.Errorf("%w: nil session", protocol.ErrState)
	}
	if !s.cfg.Compatible(sess.Config()) {
		return fmt.Errorf("%w: session belongs to another round", protocol.ErrConfigMismatch)
	}
	if sess.Role() != s.role {
		return fmt.Errorf("%w: session of server %s folded into store of server %s", protocol.ErrConfigMismatch, sess.Role(), s.role)
	}

	share, err := sess.DataShare()
	if err != nil {
		return err
	}
	if len(share) != len(s.sum) {
		return fmt.Errorf("%w: data share has %d entries, want %d", protocol.ErrMalformedShare, len(share), len(s.sum))
	}

	pairID := sess.PairID()
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pairs[pairID]; ok {
		return fmt.Errorf("%w: submission %x already aggregated", protocol.ErrState, pairID[:8])
	}
	crypto.FieldAddVectorInplace(s.sum, share, crypto.FieldOrder)
	s.count++
	s.pairs[pairID] = struct{}{}
	return nil
}

// Merge folds other's sum and count into s. The stores must share a
// compatible config and the same role, otherwise protocol.ErrConfigMismatch
// is returned and neither store changes. Stores that both hold a submission
// fail with protocol.ErrState. other is not modified.
func (s *Store) Merge(other *Store) error {
	if err := s.cfg.CheckOpen(); err != nil {
		return err
	}
	if other == nil {
		return fmt.Errorf("%w: nil store", protocol.ErrConfigMismatch)
	}
	if !s.cfg.Compatible(other.cfg) {
		return fmt.Errorf("%w: merging stores of different rounds", protocol.ErrConfigMismatch)
	}
	if s.role != other.role {
		return fmt.Errorf("%w: merging server %s store into server %s store", protocol.ErrConfigMismatch, other.role, s.role)
	}

	// Snapshot first so the two locks are never held together.
	sum, count, pairs := other.snapshot()

	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range pairs {
		if _, ok := s.pairs[id]; ok {
			return fmt.Errorf("%w: submission %x is in both stores", protocol.ErrState, id[:8])
		}
	}
	crypto.FieldAddVectorInplace(s.sum, sum, crypto.FieldOrder)
	s.count += count
	for id := range pairs {
		s.pairs[id] = struct{}{}
	}

	s.log.Debug("merged store", "clients", count, "total_clients", s.count)
	return nil
}

// Equal reports whether both stores hold the same role, count, sum and
// submissions under compatible configs.
func (s *Store) Equal(other *Store) bool {
	if other == nil || s.role != other.role || !s.cfg.Compatible(other.cfg) {
		return false
	}
	sumA, countA, pairsA := s.snapshot()
	sumB, countB, pairsB := other.snapshot()
	return countA == countB && crypto.FieldVectorsEqual(sumA, sumB) && maps.Equal(pairsA, pairsB)
}

func (s *Store) snapshot() ([]*big.Int, uint64, map[protocol.PairID]struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return crypto.CloneFieldVector(s.sum), s.count, maps.Clone(s.pairs)
}

// Artifact kinds, so a store blob never parses as a total share.
const (
	kindStore uint8 = iota + 1
	kindTotalShare
)

type sumWire struct {
	_       struct{} `cbor:",toarray"`
	Version uint8
	Kind    uint8
	BatchID []byte
	Role    protocol.Role
	Count   uint64
	Sum     []byte
	Pairs   []byte
}

// encodeSum writes pairs sorted so equal stores serialize identically.
func encodeSum(kind uint8, cfg *protocol.Config, role protocol.Role, count uint64, sum []*big.Int, pairs map[protocol.PairID]struct{}) ([]byte, error) {
	ids := slices.SortedFunc(maps.Keys(pairs), func(a, b protocol.PairID) int {
		return bytes.Compare(a[:], b[:])
	})
	raw := make([]byte, 0, len(ids)*protocol.PairIDSize)
	for _, id := range ids {
		raw = append(raw, id[:]...)
	}
	return protocol.SerializeMessage(&sumWire{
		Version: protocol.WireVersion,
		Kind:    kind,
		BatchID: cfg.BatchID(),
		Role:    role,
		Count:   count,
		Sum:     crypto.EncodeFieldVector(sum),
		Pairs:   raw,
	})
}

// decodePairs parses a store's submission list, which must hold exactly
// count distinct ids.
func decodePairs(raw []byte, count uint64) (map[protocol.PairID]struct{}, error) {
	if len(raw)%protocol.PairIDSize != 0 || uint64(len(raw)/protocol.PairIDSize) != count {
		return nil, fmt.Errorf("%w: store lists %d bytes of submissions for %d clients", protocol.ErrFormat, len(raw), count)
	}
	pairs := make(map[protocol.PairID]struct{}, count)
	for off := 0; off < len(raw); off += protocol.PairIDSize {
		var id protocol.PairID
		copy(id[:], raw[off:])
		if _, ok := pairs[id]; ok {
			return nil, fmt.Errorf("%w: submission %x listed twice", protocol.ErrFormat, id[:8])
		}
		pairs[id] = struct{}{}
	}
	return pairs, nil
}

func decodeSum(kind uint8, cfg *protocol.Config, data []byte) (*sumWire, []*big.Int, error) {
	w, err := protocol.UnmarshalMessage[sumWire](data)
	if err != nil {
		return nil, nil, err
	}
	if err := protocol.CheckVersion(w.Version); err != nil {
		return nil, nil, err
	}
	if w.Kind != kind {
		return nil, nil, fmt.Errorf("%w: artifact kind %d, want %d", protocol.ErrFormat, w.Kind, kind)
	}
	if !cfg.MatchesBatch(w.BatchID) {
		return nil, nil, fmt.Errorf("%w: batch id does not match config", protocol.ErrFormat)
	}
	if !w.Role.Valid() {
		return nil, nil, fmt.Errorf("%w: unknown server role %d", protocol.ErrFormat, w.Role)
	}
	sum, err := crypto.DecodeFieldVector(w.Sum, cfg.Layout().Entries, crypto.FieldOrder)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", protocol.ErrFormat, err)
	}
	return w, sum, nil
}

// Write serializes the store's sum, count and submission ids.
func (s *Store) Write() ([]byte, error) {
	sum, count, pairs := s.snapshot()
	return encodeSum(kindStore, s.cfg, s.role, count, sum, pairs)
}

// Read replaces the store's state with a blob produced by Write under the
// same config and role. Blobs that do not match fail with protocol.ErrFormat
// and leave the store unchanged.
func (s *Store) Read(data []byte) error {
	if err := s.cfg.CheckOpen(); err != nil {
		return err
	}
	w, sum, err := decodeSum(kindStore, s.cfg, data)
	if err != nil {
		return err
	}
	if w.Role != s.role {
		return fmt.Errorf("%w: blob of server %s read into store of server %s", protocol.ErrFormat, w.Role, s.role)
	}
	pairs, err := decodePairs(w.Pairs, w.Count)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sum = sum
	s.count = w.Count
	s.pairs = pairs
	return nil
}

// ReadStore creates a store from a blob produced by Write.
func ReadStore(cfg *protocol.Config, data []byte, opts ...Option) (*Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: config cannot be nil", protocol.ErrConfig)
	}
	w, _, err := decodeSum(kindStore, cfg, data)
	if err != nil {
		return nil, err
	}
	s, err := NewStore(cfg, w.Role, opts...)
	if err != nil {
		return nil, err
	}
	if err := s.Read(data); err != nil {
		return nil, err
	}
	return s, nil
}
