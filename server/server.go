package server

import (
	"fmt"
	"log/slog"
	"math/big"

	"github.com/flashbots/privstats/crypto"
	"github.com/flashbots/privstats/protocol"
	"go.uber.org/atomic"
)

// Server verifies client submissions for one round as server A or B.
// It is safe for concurrent use; each Verifier it creates is not.
type Server struct {
	cfg        *protocol.Config
	role       protocol.Role
	privateKey crypto.PrivateKey
	verifySeed crypto.PRGSeed
	log        *slog.Logger

	accepted atomic.Uint64
	rejected atomic.Uint64
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

// NewServer creates a server for cfg. privateKey must match the config's
// public key for role. verifySeed must be identical on both servers and
// unknown to clients; it determines the random evaluation point of every
// proof check.
func NewServer(cfg *protocol.Config, role protocol.Role, privateKey crypto.PrivateKey, verifySeed crypto.PRGSeed, opts ...Option) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: config cannot be nil", protocol.ErrConfig)
	}
	if err := cfg.CheckOpen(); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown server role %d", protocol.ErrConfig, role)
	}
	pub, err := privateKey.PublicKey()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", protocol.ErrConfig, err)
	}
	if !pub.Equal(cfg.ServerPublicKey(role)) {
		return nil, fmt.Errorf("%w: private key does not match server %s public key", protocol.ErrConfig, role)
	}

	s := &Server{
		cfg:        cfg,
		role:       role,
		privateKey: privateKey.Bytes(),
		verifySeed: verifySeed,
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("role", role.String(), "batch", string(cfg.BatchID()))
	return s, nil
}

// Config returns the server's round config.
func (s *Server) Config() *protocol.Config { return s.cfg }

// Role returns the server's role.
func (s *Server) Role() protocol.Role { return s.role }

// Stats returns the number of accepted and rejected submissions so far.
func (s *Server) Stats() (accepted uint64, rejected uint64) {
	return s.accepted.Load(), s.rejected.Load()
}

// NewVerifier starts a verification session for one client submission.
func (s *Server) NewVerifier() *Verifier {
	return &Verifier{srv: s, state: StateCreated}
}

// unpackShare authenticates the share and recovers this server's share of
// the client's proof packet.
func (s *Server) unpackShare(share *protocol.ClientShare) ([]*big.Int, error) {
	secret, err := crypto.DeriveSharedSecret(s.privateKey, share.EphemeralKey)
	if err != nil {
		return nil, fmt.Errorf("%w: key agreement: %w", protocol.ErrMalformedShare, err)
	}
	data, err := protocol.OpenShare(s.cfg, secret, share)
	if err != nil {
		return nil, err
	}
	if s.role == protocol.ServerA {
		return data, nil
	}

	seed, err := protocol.DeriveShareSeed(secret, share.BatchID)
	if err != nil {
		return nil, err
	}
	return protocol.ExpandShareB(seed, s.cfg.Proof().Len())
}

// evalPoint derives the point at which both servers evaluate one
// submission's proof polynomials. Points that are 2N-th roots of unity are
// skipped, since h is partly known there.
func (s *Server) evalPoint(ephemeralKey crypto.PublicKey) (*big.Int, error) {
	info := append([]byte("eval"), ephemeralKey...)
	seed, err := crypto.DeriveSeed(s.verifySeed[:], s.cfg.BatchID(), info)
	if err != nil {
		return nil, err
	}
	prg, err := crypto.NewPRG(seed)
	if err != nil {
		return nil, err
	}

	domain := big.NewInt(int64(2 * s.cfg.Layout().HPoints()))
	one := big.NewInt(1)
	for {
		r, err := prg.Int(crypto.FieldOrder)
		if err != nil {
			return nil, err
		}
		if crypto.FieldExp(r, domain, crypto.FieldOrder).Cmp(one) != 0 {
			return r, nil
		}
	}
}

func (s *Server) record(pairID protocol.PairID, d Decision, reason string) {
	if d == Accept {
		s.accepted.Inc()
	} else {
		s.rejected.Inc()
	}
	s.log.Debug("verification decided",
		"pair", fmt.Sprintf("%x", pairID[:8]),
		"decision", d.String(),
		"reason", reason)
}
