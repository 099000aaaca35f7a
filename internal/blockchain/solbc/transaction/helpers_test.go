// internal/blockchain/solbc/transaction/helpers_test.go
package transaction

import (
	"context"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/solana-toolkit/internal/blockchain"
	"github.com/rovshanmuradov/solana-toolkit/internal/blockchain/mocks"
	"github.com/rovshanmuradov/solana-toolkit/internal/blockchain/solbc/rpc"
)

// keySigner подписывает приватным ключом в памяти.
type keySigner struct {
	key solana.PrivateKey
}

func newKeySigner(t *testing.T) *keySigner {
	t.Helper()
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return &keySigner{key: key}
}

func (s *keySigner) PublicKey() solana.PublicKey { return s.key.PublicKey() }

func (s *keySigner) Sign(message []byte) (solana.Signature, error) { return s.key.Sign(message) }

// testInstruction инструкция произвольной программы с заданными подписантами.
func testInstruction(data string, signers ...solana.PublicKey) solana.Instruction {
	metas := make(solana.AccountMetaSlice, 0, len(signers))
	for _, s := range signers {
		metas = append(metas, solana.Meta(s).SIGNER().WRITE())
	}
	return solana.NewInstruction(solana.MemoProgramID, metas, []byte(data))
}

func randomHash(t *testing.T) solana.Hash {
	t.Helper()
	return solana.HashFromBytes(solana.NewWallet().PublicKey().Bytes())
}

var testEndpoint = rpc.Endpoint{Network: "localnet", URL: "http://127.0.0.1:8899", Commitment: solanarpc.CommitmentConfirmed}

func newTestManager(t *testing.T, tr *mocks.MockTransport, attempts int, cfg Config) *Manager {
	t.Helper()
	tr.On("Close").Return(nil).Maybe()

	conn, err := rpc.NewConnection(testEndpoint, func(rpc.Endpoint) (blockchain.Transport, error) {
		return tr, nil
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	exec := rpc.NewExecutor(conn, zaptest.NewLogger(t),
		rpc.WithDefaultPolicy(rpc.RetryPolicy{MaxAttempts: attempts, BaseDelay: time.Millisecond}),
		rpc.WithSleep(func(_ context.Context, _ time.Duration) error { return nil }),
	)
	return NewManager(exec, zaptest.NewLogger(t), cfg)
}

func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.PollInterval = time.Millisecond
	cfg.ConfirmTimeout = 30 * time.Millisecond
	return cfg
}

var anyArg = mock.Anything
