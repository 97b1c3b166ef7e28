package testutil

import (
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/flashbots/privstats/aggregator"
	"github.com/flashbots/privstats/client"
	"github.com/flashbots/privstats/crypto"
	"github.com/flashbots/privstats/protocol"
	"github.com/flashbots/privstats/server"
	"github.com/stretchr/testify/require"
)

// DefaultBatchID is the batch id of rounds created without WithBatchID.
const DefaultBatchID = "test_batch"

// Round bundles everything both servers and the clients of one test round
// need.
type Round struct {
	Ctx        *protocol.Context
	Config     *protocol.Config
	KeyA       *crypto.KeyPair
	KeyB       *crypto.KeyPair
	VerifySeed crypto.PRGSeed
	ServerA    *server.Server
	ServerB    *server.Server
	Encoder    *client.Encoder
	Log        *slog.Logger
}

type roundOptions struct {
	batchID string
	log     *slog.Logger
}

// RoundOption customizes NewRound.
type RoundOption func(*roundOptions)

// WithBatchID sets the round's batch id.
func WithBatchID(id string) RoundOption {
	return func(o *roundOptions) {
		o.batchID = id
	}
}

// WithLogger sets the logger handed to servers and stores.
func WithLogger(log *slog.Logger) RoundOption {
	return func(o *roundOptions) {
		o.log = log
	}
}

// DiscardLogger returns a logger that drops every record.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// NewRound creates a context, two fresh server key pairs, a config for
// layout and both servers. The context is closed when the test ends.
func NewRound(t testing.TB, layout protocol.FieldLayout, options ...RoundOption) *Round {
	t.Helper()

	opts := roundOptions{batchID: DefaultBatchID, log: DiscardLogger()}
	for _, o := range options {
		o(&opts)
	}

	ctx, err := protocol.Init()
	require.NoError(t, err)
	t.Cleanup(func() { ctx.Close() })

	keyA, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	keyB, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	cfg, err := ctx.NewConfig(layout, keyA.Public, keyB.Public, []byte(opts.batchID))
	require.NoError(t, err)

	seed, err := crypto.RandomSeed()
	require.NoError(t, err)

	srvA, err := server.NewServer(cfg, protocol.ServerA, keyA.Private, seed, server.WithLogger(opts.log))
	require.NoError(t, err)
	srvB, err := server.NewServer(cfg, protocol.ServerB, keyB.Private, seed, server.WithLogger(opts.log))
	require.NoError(t, err)

	enc, err := client.NewEncoder(cfg)
	require.NoError(t, err)

	return &Round{
		Ctx:        ctx,
		Config:     cfg,
		KeyA:       keyA,
		KeyB:       keyB,
		VerifySeed: seed,
		ServerA:    srvA,
		ServerB:    srvB,
		Encoder:    enc,
		Log:        opts.log,
	}
}

// NewStores creates one empty store per server.
func (r *Round) NewStores(t testing.TB) (*aggregator.Store, *aggregator.Store) {
	t.Helper()
	storeA, err := aggregator.NewStore(r.Config, protocol.ServerA, aggregator.WithLogger(r.Log))
	require.NoError(t, err)
	storeB, err := aggregator.NewStore(r.Config, protocol.ServerB, aggregator.WithLogger(r.Log))
	require.NoError(t, err)
	return storeA, storeB
}

// Verify runs both servers' verifier sessions for one share pair. Every
// share and packet crosses the wire format on its way to the other side.
func (r *Round) Verify(shareA, shareB *protocol.ClientShare) (*server.Verifier, *server.Verifier, error) {
	shareA, err := transmitShare(r.Config, shareA)
	if err != nil {
		return nil, nil, err
	}
	shareB, err = transmitShare(r.Config, shareB)
	if err != nil {
		return nil, nil, err
	}

	va := r.ServerA.NewVerifier()
	vb := r.ServerB.NewVerifier()
	if err := va.SetData(shareA); err != nil {
		return nil, nil, fmt.Errorf("server A: %w", err)
	}
	if err := vb.SetData(shareB); err != nil {
		return nil, nil, fmt.Errorf("server B: %w", err)
	}

	p1a, err := va.Packet1()
	if err != nil {
		return nil, nil, err
	}
	p1b, err := vb.Packet1()
	if err != nil {
		return nil, nil, err
	}
	peerP1a, err := transmit(p1a.Marshal, protocol.UnmarshalPacket1)
	if err != nil {
		return nil, nil, err
	}
	peerP1b, err := transmit(p1b.Marshal, protocol.UnmarshalPacket1)
	if err != nil {
		return nil, nil, err
	}

	p2a, err := va.Packet2(p1a, peerP1b)
	if err != nil {
		return nil, nil, err
	}
	p2b, err := vb.Packet2(p1b, peerP1a)
	if err != nil {
		return nil, nil, err
	}
	peerP2a, err := transmit(p2a.Marshal, protocol.UnmarshalPacket2)
	if err != nil {
		return nil, nil, err
	}
	peerP2b, err := transmit(p2b.Marshal, protocol.UnmarshalPacket2)
	if err != nil {
		return nil, nil, err
	}

	if _, err := va.Decide(p2a, peerP2b); err != nil {
		return nil, nil, err
	}
	if _, err := vb.Decide(p2b, peerP2a); err != nil {
		return nil, nil, err
	}
	return va, vb, nil
}

// Submit encodes data as one client, verifies it on both servers and folds
// it into the stores when accepted. It returns the joint decision.
func (r *Round) Submit(t testing.TB, data []uint64, storeA, storeB *aggregator.Store) server.Decision {
	t.Helper()

	shareA, shareB, err := r.Encoder.Encode(data)
	require.NoError(t, err)

	va, vb, err := r.Verify(shareA, shareB)
	require.NoError(t, err)
	require.Equal(t, va.Decision(), vb.Decision(), "servers disagree")

	if va.Decision() == server.Accept {
		require.NoError(t, storeA.Aggregate(va))
		require.NoError(t, storeB.Aggregate(vb))
	}
	return va.Decision()
}

// Combine finalizes both stores, passes the totals through the wire format
// and combines them.
func (r *Round) Combine(t testing.TB, storeA, storeB *aggregator.Store) []uint64 {
	t.Helper()

	totalA, err := aggregator.Finalize(storeA)
	require.NoError(t, err)
	totalB, err := aggregator.Finalize(storeB)
	require.NoError(t, err)

	dataA, err := totalA.Marshal()
	require.NoError(t, err)
	remoteA, err := aggregator.UnmarshalTotalShare(r.Config, dataA)
	require.NoError(t, err)

	res, err := aggregator.Combine(remoteA, totalB, r.Config)
	require.NoError(t, err)
	return res
}

// BooleanPattern returns n entries where entry i is set iff i%3 == 1 or i%5 == 1.
func BooleanPattern(n int) []bool {
	res := make([]bool, n)
	for i := range res {
		res[i] = i%3 == 1 || i%5 == 1
	}
	return res
}

// BoolsToValues maps true to 1 and false to 0.
func BoolsToValues(data []bool) []uint64 {
	res := make([]uint64, len(data))
	for i, b := range data {
		if b {
			res[i] = 1
		}
	}
	return res
}

// Scale multiplies every entry by k.
func Scale(data []uint64, k uint64) []uint64 {
	res := make([]uint64, len(data))
	for i, v := range data {
		res[i] = v * k
	}
	return res
}

func transmitShare(cfg *protocol.Config, share *protocol.ClientShare) (*protocol.ClientShare, error) {
	data, err := share.Marshal()
	if err != nil {
		return nil, err
	}
	return protocol.UnmarshalClientShare(cfg, data)
}

func transmit[T any](marshal func() ([]byte, error), unmarshal func([]byte) (*T, error)) (*T, error) {
	data, err := marshal()
	if err != nil {
		return nil, err
	}
	return unmarshal(data)
}
