package protocol

import (
	"testing"

	"github.com/flashbots/privstats/crypto"
	"github.com/stretchr/testify/require"
)

func TestSplitShares(t *testing.T) {
	v := crypto.NewFieldVector(20)
	for i := range v {
		v[i].SetInt64(int64(i * i))
	}

	seedB, err := crypto.RandomSeed()
	require.NoError(t, err)

	shareA, err := SplitShares(v, seedB)
	require.NoError(t, err)
	shareB, err := ExpandShareB(seedB, len(v))
	require.NoError(t, err)

	crypto.FieldAddVectorInplace(shareA, shareB, crypto.FieldOrder)
	require.True(t, crypto.FieldVectorsEqual(v, shareA))
}

func TestDeriveShareSeed(t *testing.T) {
	secret := crypto.SharedKey("shared secret material for tests")

	b, err := DeriveShareSeed(secret, []byte("batch"))
	require.NoError(t, err)
	again, err := DeriveShareSeed(secret, []byte("batch"))
	require.NoError(t, err)
	require.Equal(t, b, again)

	other, err := DeriveShareSeed(secret, []byte("batch2"))
	require.NoError(t, err)
	require.NotEqual(t, b, other)
}

// sealingFixture returns a config and the secrets a client shares with each server.
func sealingFixture(t *testing.T) (*Config, crypto.PublicKey, crypto.SharedKey, crypto.SharedKey) {
	t.Helper()
	ctx := newTestContext(t)
	serverA, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	serverB, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	cfg, err := ctx.NewConfig(UIntLayout(3, 4), serverA.Public, serverB.Public, []byte("batch"))
	require.NoError(t, err)

	eph, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	secretA, err := crypto.DeriveSharedSecret(eph.Private, serverA.Public)
	require.NoError(t, err)
	secretB, err := crypto.DeriveSharedSecret(eph.Private, serverB.Public)
	require.NoError(t, err)

	// The servers compute the same secrets from their side.
	fromA, err := crypto.DeriveSharedSecret(serverA.Private, eph.Public)
	require.NoError(t, err)
	require.Equal(t, secretA, fromA)

	return cfg, eph.Public, secretA, secretB
}

func TestSealOpenShare(t *testing.T) {
	cfg, eph, secretA, secretB := sealingFixture(t)

	data := crypto.NewFieldVector(cfg.Proof().Len())
	for i := range data {
		data[i].SetInt64(int64(3*i + 1))
	}

	shareA, err := SealShare(secretA, cfg.BatchID(), ServerA, eph, data)
	require.NoError(t, err)
	require.Len(t, shareA.Payload, SealedShareSize(cfg, ServerA))
	require.NoError(t, shareA.Validate(cfg))

	opened, err := OpenShare(cfg, secretA, shareA)
	require.NoError(t, err)
	require.True(t, crypto.FieldVectorsEqual(data, opened))

	shareB, err := SealShare(secretB, cfg.BatchID(), ServerB, eph, nil)
	require.NoError(t, err)
	require.Len(t, shareB.Payload, crypto.SealOverhead)
	openedB, err := OpenShare(cfg, secretB, shareB)
	require.NoError(t, err)
	require.Nil(t, openedB)

	// A share opens only with its own server's secret.
	_, err = OpenShare(cfg, secretB, shareA)
	require.ErrorIs(t, err, ErrMalformedShare)

	_, err = SealShare(secretA, cfg.BatchID(), Role(4), eph, nil)
	require.Error(t, err)
}

func TestOpenShareRejectsTampering(t *testing.T) {
	cfg, eph, secretA, secretB := sealingFixture(t)
	data := crypto.NewFieldVector(cfg.Proof().Len())

	seal := func() *ClientShare {
		s, err := SealShare(secretA, cfg.BatchID(), ServerA, eph, data)
		require.NoError(t, err)
		return s
	}

	s := seal()
	s.Payload[crypto.NonceSize+5] ^= 0x04
	_, err := OpenShare(cfg, secretA, s)
	require.ErrorIs(t, err, ErrMalformedShare)

	// The role is authenticated: A's payload relabelled for B has the
	// wrong size, and B's header relabelled for A fails to open.
	s = seal()
	s.Role = ServerB
	_, err = OpenShare(cfg, secretA, s)
	require.ErrorIs(t, err, ErrMalformedShare)

	sB, err := SealShare(secretB, cfg.BatchID(), ServerB, eph, nil)
	require.NoError(t, err)
	other, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	sB.EphemeralKey = other.Public
	_, err = OpenShare(cfg, secretB, sB)
	require.ErrorIs(t, err, ErrMalformedShare)

	// A plaintext that is not a vector of field elements is rejected even
	// when it authenticates.
	bad := crypto.NewFieldVector(cfg.Proof().Len())
	bad[0].Set(crypto.FieldOrder)
	s, err = SealShare(secretA, cfg.BatchID(), ServerA, eph, bad)
	require.NoError(t, err)
	_, err = OpenShare(cfg, secretA, s)
	require.ErrorIs(t, err, ErrMalformedShare)
}
