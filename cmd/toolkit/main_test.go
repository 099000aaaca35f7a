// cmd/toolkit/main_test.go
package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-toolkit/internal/blockchain"
	"github.com/rovshanmuradov/solana-toolkit/internal/blockchain/mocks"
	"github.com/rovshanmuradov/solana-toolkit/internal/blockchain/solbc/rpc"
	"github.com/rovshanmuradov/solana-toolkit/internal/config"
	"github.com/rovshanmuradov/solana-toolkit/internal/toolkit"
)

func TestFlagsOverrideConfig(t *testing.T) {
	v := viper.New()
	fs, opts := newFlagSet(v)
	require.NoError(t, fs.Parse([]string{"--network", "localnet", "--commitment", "finalized", "--keypair", "id.json", "balance"}))

	cfg, err := config.Load(v, "")
	require.NoError(t, err)

	assert.Equal(t, "localnet", cfg.Network)
	assert.Equal(t, "finalized", cfg.Commitment)
	assert.Equal(t, config.DefaultMaxAttempts, cfg.Retry.MaxAttempts)
	assert.Equal(t, "id.json", opts.keypair)
	assert.Equal(t, "balance", fs.Arg(0))
}

func TestParseSOL(t *testing.T) {
	lamports, err := parseSOL("1.5")
	require.NoError(t, err)
	assert.Equal(t, uint64(1_500_000_000), lamports)

	for _, bad := range []string{"", "abc", "0", "-1", "NaN"} {
		_, err := parseSOL(bad)
		assert.Equal(t, blockchain.CodeInvalidInput, blockchain.CodeOf(err), bad)
	}
}

func TestFormatSOL(t *testing.T) {
	assert.Equal(t, "1.500000000", formatSOL(1_500_000_000))
	assert.Equal(t, "0.000000001", formatSOL(1))
}

func newTestApp(t *testing.T, tr *mocks.MockTransport) (*app, *bytes.Buffer) {
	t.Helper()
	tr.On("Close").Return(nil).Maybe()

	cfg, err := config.LoadConfig("")
	require.NoError(t, err)
	tk, err := toolkit.New(cfg, zap.NewNop(), toolkit.WithTransportFactory(func(rpc.Endpoint) (blockchain.Transport, error) {
		return tr, nil
	}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = tk.Close() })

	var out bytes.Buffer
	return &app{cfg: cfg, logger: zap.NewNop(), opts: &options{}, tk: tk, out: &out}, &out
}

func TestDispatch_Health(t *testing.T) {
	tr := &mocks.MockTransport{}
	tr.On("GetBlockHeight", mock.Anything, solanarpc.CommitmentConfirmed).Return(uint64(100), nil)

	a, out := newTestApp(t, tr)
	require.NoError(t, a.dispatch(context.Background(), "health", nil))

	assert.Contains(t, out.String(), "status:     healthy")
	assert.Contains(t, out.String(), solanarpc.DevNet_RPC)
}

func TestDispatch_Balance(t *testing.T) {
	pk := solana.NewWallet().PublicKey()
	tr := &mocks.MockTransport{}
	tr.On("GetBalance", mock.Anything, pk, mock.Anything).Return(uint64(2_000_000_000), nil)

	a, out := newTestApp(t, tr)
	require.NoError(t, a.dispatch(context.Background(), "balance", []string{pk.String()}))

	assert.Contains(t, out.String(), "2.000000000 SOL")
}

func TestDispatch_Errors(t *testing.T) {
	a, _ := newTestApp(t, &mocks.MockTransport{})
	ctx := context.Background()

	assert.ErrorIs(t, a.dispatch(ctx, "launch", nil), errUsage)
	assert.ErrorIs(t, a.dispatch(ctx, "balance", nil), errUsage)
	assert.ErrorIs(t, a.dispatch(ctx, "transfer", []string{solana.NewWallet().PublicKey().String(), "10"}), errUsage)

	err := a.dispatch(ctx, "balance", []string{"not-a-key"})
	assert.Equal(t, blockchain.CodeInvalidInput, blockchain.CodeOf(err))
}
