package protocol

import (
	"errors"
	"testing"

	"github.com/flashbots/privstats/crypto"
	"github.com/stretchr/testify/require"
)

func TestInitAndClose(t *testing.T) {
	ctx, err := Init()
	require.NoError(t, err)
	require.True(t, ctx.IsOpen())

	require.NoError(t, ctx.Close())
	require.False(t, ctx.IsOpen())
	require.NoError(t, ctx.Close())

	var nilCtx *Context
	require.False(t, nilCtx.IsOpen())
}

func TestInitFailureIsNotCached(t *testing.T) {
	backendMu.Lock()
	backendReady = false
	checkBackend = func() error { return errors.New("broken backend") }
	backendMu.Unlock()

	t.Cleanup(func() {
		backendMu.Lock()
		checkBackend = validateFieldBackend
		backendMu.Unlock()
	})

	_, err := Init()
	require.ErrorIs(t, err, ErrInitFailed)

	backendMu.Lock()
	checkBackend = validateFieldBackend
	backendMu.Unlock()

	ctx, err := Init()
	require.NoError(t, err)
	defer ctx.Close()
	require.True(t, ctx.IsOpen())
}

func TestValidateFieldBackend(t *testing.T) {
	require.NoError(t, validateFieldBackend())
}

func TestConfigUnusableAfterClose(t *testing.T) {
	ctx, err := Init()
	require.NoError(t, err)

	a, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	b, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	cfg, err := ctx.NewConfig(BooleanLayout(4), a.Public, b.Public, []byte("batch"))
	require.NoError(t, err)
	require.NoError(t, cfg.CheckOpen())

	ctx.Close()
	require.ErrorIs(t, cfg.CheckOpen(), ErrContextClosed)

	_, err = ctx.NewConfig(BooleanLayout(4), a.Public, b.Public, []byte("batch"))
	require.ErrorIs(t, err, ErrContextClosed)
}
