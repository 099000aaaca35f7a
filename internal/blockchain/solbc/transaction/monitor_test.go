// internal/blockchain/solbc/transaction/monitor_test.go
package transaction

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/solana-toolkit/internal/blockchain"
	"github.com/rovshanmuradov/solana-toolkit/internal/blockchain/mocks"
)

func TestAwaitConfirmation_Confirmed(t *testing.T) {
	sig := solana.Signature{1}
	tr := &mocks.MockTransport{}
	tr.On("GetSignatureStatus", anyArg, sig).Return(nil, nil).Once()
	tr.On("GetSignatureStatus", anyArg, sig).Return(&blockchain.SignatureStatus{
		Slot:               77,
		ConfirmationStatus: solanarpc.ConfirmationStatusProcessed,
	}, nil).Once()
	tr.On("GetSignatureStatus", anyArg, sig).Return(&blockchain.SignatureStatus{
		Slot:               78,
		ConfirmationStatus: solanarpc.ConfirmationStatusConfirmed,
	}, nil)

	m := NewMonitor(zaptest.NewLogger(t), fastConfig())
	status, err := m.AwaitConfirmation(context.Background(), tr, sig)

	require.NoError(t, err)
	assert.Equal(t, uint64(78), status.Slot)
	assert.Equal(t, solanarpc.ConfirmationStatusConfirmed, status.ConfirmationStatus)
	tr.AssertNumberOfCalls(t, "GetSignatureStatus", 3)
}

func TestAwaitConfirmation_OnChainErrorIsRejected(t *testing.T) {
	sig := solana.Signature{2}
	payload := map[string]interface{}{"InstructionError": []interface{}{float64(0), "InvalidAccountData"}}
	tr := &mocks.MockTransport{}
	tr.On("GetSignatureStatus", anyArg, sig).Return(&blockchain.SignatureStatus{
		Slot:               5,
		Err:                payload,
		ConfirmationStatus: solanarpc.ConfirmationStatusConfirmed,
	}, nil)

	m := NewMonitor(zaptest.NewLogger(t), fastConfig())
	_, err := m.AwaitConfirmation(context.Background(), tr, sig)

	require.Error(t, err)
	var tkErr *blockchain.Error
	require.True(t, errors.As(err, &tkErr))
	assert.Equal(t, blockchain.CodeTransactionRejected, tkErr.Code)
	assert.Equal(t, payload, tkErr.Context["err"])
	assert.Equal(t, sig.String(), tkErr.Context["signature"])
}

func TestAwaitConfirmation_TimeoutIsAmbiguous(t *testing.T) {
	sig := solana.Signature{3}
	tr := &mocks.MockTransport{}
	tr.On("GetSignatureStatus", anyArg, sig).Return(nil, nil)

	m := NewMonitor(zaptest.NewLogger(t), fastConfig())
	_, err := m.AwaitConfirmation(context.Background(), tr, sig)

	require.Error(t, err)
	assert.Equal(t, blockchain.CodeTxAmbiguous, blockchain.CodeOf(err))
	assert.False(t, blockchain.IsCode(err, blockchain.CodeTransactionRejected))
}

func TestAwaitConfirmation_PollErrorsAreTolerated(t *testing.T) {
	sig := solana.Signature{4}
	tr := &mocks.MockTransport{}
	tr.On("GetSignatureStatus", anyArg, sig).Return(nil, errors.New("connection reset")).Twice()
	tr.On("GetSignatureStatus", anyArg, sig).Return(&blockchain.SignatureStatus{
		ConfirmationStatus: solanarpc.ConfirmationStatusFinalized,
	}, nil)

	m := NewMonitor(zaptest.NewLogger(t), fastConfig())
	_, err := m.AwaitConfirmation(context.Background(), tr, sig)
	require.NoError(t, err)
}

func TestAwaitConfirmation_FinalizedCommitmentWaits(t *testing.T) {
	sig := solana.Signature{5}
	tr := &mocks.MockTransport{}
	tr.On("GetSignatureStatus", anyArg, sig).Return(&blockchain.SignatureStatus{
		ConfirmationStatus: solanarpc.ConfirmationStatusConfirmed,
	}, nil)

	cfg := fastConfig()
	cfg.Commitment = solanarpc.CommitmentFinalized
	m := NewMonitor(zaptest.NewLogger(t), cfg)

	_, err := m.AwaitConfirmation(context.Background(), tr, sig)
	assert.Equal(t, blockchain.CodeTxAmbiguous, blockchain.CodeOf(err))
}

func TestAwaitConfirmation_ContextCancelledIsAmbiguous(t *testing.T) {
	sig := solana.Signature{6}
	tr := &mocks.MockTransport{}
	tr.On("GetSignatureStatus", anyArg, sig).Return(nil, nil)

	cfg := fastConfig()
	cfg.ConfirmTimeout = time.Minute
	m := NewMonitor(zaptest.NewLogger(t), cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := m.AwaitConfirmation(ctx, tr, sig)
	assert.Equal(t, blockchain.CodeTxAmbiguous, blockchain.CodeOf(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// stalledSender не отвечает на запрос статуса, пока не отменят его контекст.
type stalledSender struct {
	mocks.MockTransport
}

func (s *stalledSender) GetSignatureStatus(ctx context.Context, _ solana.Signature) (*blockchain.SignatureStatus, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestAwaitConfirmation_StalledNodeHonoursTimeout(t *testing.T) {
	m := NewMonitor(zaptest.NewLogger(t), fastConfig())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	start := time.Now()
	_, err := m.AwaitConfirmation(ctx, &stalledSender{}, solana.Signature{7})
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.Less(t, elapsed, time.Second)
	assert.Equal(t, blockchain.CodeTxAmbiguous, blockchain.CodeOf(err))

	var tkErr *blockchain.Error
	require.ErrorAs(t, err, &tkErr)
	assert.Nil(t, tkErr.Context["aborted"])
	assert.Equal(t, fastConfig().ConfirmTimeout.String(), tkErr.Context["timeout"])
}
