package protocol

import (
	"strings"
	"testing"

	"github.com/flashbots/privstats/crypto"
	"github.com/stretchr/testify/require"
)

func newTestKeys(t *testing.T) (crypto.PublicKey, crypto.PublicKey) {
	t.Helper()
	a, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	b, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	return a.Public, b.Public
}

func newTestContext(t *testing.T) *Context {
	t.Helper()
	ctx, err := Init()
	require.NoError(t, err)
	t.Cleanup(func() { ctx.Close() })
	return ctx
}

func TestMaxDataFields(t *testing.T) {
	require.Equal(t, 1<<18-1, MaxDataFields(1))
	require.Equal(t, (1<<18-1)/7, MaxDataFields(7))
	require.Equal(t, (1<<18-1)/32, MaxDataFields(32))
	require.Equal(t, 0, MaxDataFields(0))
	require.Equal(t, 0, MaxDataFields(33))
}

func TestFieldLayoutValidate(t *testing.T) {
	tests := []struct {
		name    string
		layout  FieldLayout
		wantErr bool
	}{
		{"boolean", BooleanLayout(133), false},
		{"boolean max", BooleanLayout(MaxDataFields(1)), false},
		{"boolean too large", BooleanLayout(MaxDataFields(1) + 1), true},
		{"boolean empty", BooleanLayout(0), true},
		{"uint", UIntLayout(11, 7), false},
		{"uint max precision", UIntLayout(3, MaxPrecision), false},
		{"uint precision too high", UIntLayout(3, MaxPrecision+1), true},
		{"uint zero precision", UIntLayout(3, 0), true},
		{"uint too many entries", UIntLayout(MaxDataFields(8)+1, 8), true},
		{"unknown kind", FieldLayout{Kind: 9, Entries: 1, Precision: 1}, true},
		{"boolean with precision", FieldLayout{Kind: LayoutBoolean, Entries: 1, Precision: 2}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.layout.Validate()
			if tt.wantErr {
				require.ErrorIs(t, err, ErrConfig)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestFieldLayoutSizes(t *testing.T) {
	l := BooleanLayout(133)
	require.Equal(t, 133, l.MulGates())
	require.Equal(t, 256, l.HPoints())
	require.Equal(t, uint64(1), l.MaxValue())

	u := UIntLayout(11, 7)
	require.Equal(t, 77, u.MulGates())
	require.Equal(t, 128, u.HPoints())
	require.Equal(t, uint64(127), u.MaxValue())

	p := NewProofLayout(u)
	require.Equal(t, 77+6+128, p.Len())
	require.Equal(t, 77, p.F0())
	require.Equal(t, 83, p.HPoints())

	// The largest layout still fits the field's roots of unity.
	maxLayout := BooleanLayout(MaxDataFields(1))
	_, err := crypto.RootOfUnity(2 * maxLayout.HPoints())
	require.NoError(t, err)
}

func TestNewConfig(t *testing.T) {
	ctx := newTestContext(t)
	pubA, pubB := newTestKeys(t)

	cfg, err := ctx.NewConfig(UIntLayout(11, 7), pubA, pubB, []byte("test_batch"))
	require.NoError(t, err)
	require.Equal(t, UIntLayout(11, 7), cfg.Layout())
	require.Equal(t, []byte("test_batch"), cfg.BatchID())
	require.True(t, cfg.ServerPublicKey(ServerA).Equal(pubA))
	require.True(t, cfg.ServerPublicKey(ServerB).Equal(pubB))

	// Returned slices are copies.
	id := cfg.BatchID()
	id[0] = 'X'
	require.Equal(t, []byte("test_batch"), cfg.BatchID())

	_, err = ctx.NewConfig(UIntLayout(11, 40), pubA, pubB, []byte("b"))
	require.ErrorIs(t, err, ErrConfig)
	_, err = ctx.NewConfig(BooleanLayout(3), pubA, pubB, nil)
	require.ErrorIs(t, err, ErrConfig)
	_, err = ctx.NewConfig(BooleanLayout(3), pubA, pubB, []byte(strings.Repeat("x", MaxBatchIDLength+1)))
	require.ErrorIs(t, err, ErrConfig)
	_, err = ctx.NewConfig(BooleanLayout(3), pubA, pubB[:4], []byte("b"))
	require.ErrorIs(t, err, ErrConfig)
	_, err = ctx.NewConfig(BooleanLayout(3), pubA, pubA, []byte("b"))
	require.ErrorIs(t, err, ErrConfig)
}

func TestConfigCompatible(t *testing.T) {
	ctx := newTestContext(t)
	pubA, pubB := newTestKeys(t)

	base, err := ctx.NewConfig(BooleanLayout(10), pubA, pubB, []byte("batch"))
	require.NoError(t, err)
	same, err := ctx.NewConfig(BooleanLayout(10), pubA, pubB, []byte("batch"))
	require.NoError(t, err)
	otherBatch, err := ctx.NewConfig(BooleanLayout(10), pubA, pubB, []byte("batch2"))
	require.NoError(t, err)
	otherLayout, err := ctx.NewConfig(UIntLayout(10, 1), pubA, pubB, []byte("batch"))
	require.NoError(t, err)
	swapped, err := ctx.NewConfig(BooleanLayout(10), pubB, pubA, []byte("batch"))
	require.NoError(t, err)

	require.True(t, base.Compatible(base))
	require.True(t, base.Compatible(same))
	require.False(t, base.Compatible(otherBatch))
	require.False(t, base.Compatible(otherLayout))
	require.False(t, base.Compatible(swapped))
	require.False(t, base.Compatible(nil))
}

func TestRole(t *testing.T) {
	require.True(t, ServerA.Valid())
	require.True(t, ServerB.Valid())
	require.False(t, Role(2).Valid())
	require.Equal(t, ServerB, ServerA.Peer())
	require.Equal(t, ServerA, ServerB.Peer())
	require.Equal(t, "A", ServerA.String())
}

func TestParseLayoutKind(t *testing.T) {
	k, err := ParseLayoutKind("uint")
	require.NoError(t, err)
	require.Equal(t, LayoutUInt, k)

	k, err = ParseLayoutKind("bool")
	require.NoError(t, err)
	require.Equal(t, LayoutBoolean, k)

	_, err = ParseLayoutKind("float")
	require.ErrorIs(t, err, ErrConfig)
}
