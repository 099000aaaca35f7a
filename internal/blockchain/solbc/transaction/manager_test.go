// internal/blockchain/solbc/transaction/manager_test.go
package transaction

import (
	"context"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/solana-toolkit/internal/blockchain"
	"github.com/rovshanmuradov/solana-toolkit/internal/blockchain/mocks"
	"github.com/rovshanmuradov/solana-toolkit/internal/utils/metrics"
)

func confirmedStatus() *blockchain.SignatureStatus {
	return &blockchain.SignatureStatus{Slot: 42, ConfirmationStatus: solanarpc.ConfirmationStatusConfirmed}
}

func TestSendAndConfirm_Success(t *testing.T) {
	payer := newKeySigner(t)
	hash := randomHash(t)

	tr := &mocks.MockTransport{}
	tr.On("GetLatestBlockhash", anyArg, solanarpc.CommitmentConfirmed).
		Return(&blockchain.Blockhash{Hash: hash, LastValidBlockHeight: 100}, nil)
	tr.On("SendTransaction", anyArg, anyArg, blockchain.TransactionOptions{
		PreflightCommitment: solanarpc.CommitmentConfirmed,
	}).Return(solana.Signature{}, nil)
	tr.On("GetSignatureStatus", anyArg, anyArg).Return(confirmedStatus(), nil)

	tm := newTestManager(t, tr, 3, fastConfig())
	result, err := tm.SendAndConfirm(context.Background(), Request{
		Instructions: []solana.Instruction{testInstruction("A"), testInstruction("B")},
		Signers:      []blockchain.Signer{payer},
	})

	require.NoError(t, err)
	assert.Equal(t, StateConfirmed, result.State)
	assert.Equal(t, uint64(42), result.Slot)
	assert.Equal(t, hash, result.Blockhash)
	assert.Equal(t, 2, result.Instructions)
	assert.False(t, result.Signature.IsZero())
	tr.AssertNumberOfCalls(t, "SendTransaction", 1)
}

func TestSendAndConfirm_FreshBlockhashOnEveryAttempt(t *testing.T) {
	payer := newKeySigner(t)
	first, second := randomHash(t), randomHash(t)

	tr := &mocks.MockTransport{}
	tr.On("GetLatestBlockhash", anyArg, anyArg).Return(&blockchain.Blockhash{Hash: first}, nil).Once()
	tr.On("GetLatestBlockhash", anyArg, anyArg).Return(&blockchain.Blockhash{Hash: second}, nil).Once()

	var stamped []solana.Hash
	record := func(args mock.Arguments) {
		stamped = append(stamped, args.Get(1).(*solana.Transaction).Message.RecentBlockhash)
	}
	tr.On("SendTransaction", anyArg, anyArg, anyArg).Run(record).
		Return(solana.Signature{}, errors.New("connection reset by peer")).Once()
	tr.On("SendTransaction", anyArg, anyArg, anyArg).Run(record).
		Return(solana.Signature{}, nil).Once()
	tr.On("GetSignatureStatus", anyArg, anyArg).Return(confirmedStatus(), nil)

	tm := newTestManager(t, tr, 3, fastConfig())
	result, err := tm.SendAndConfirm(context.Background(), Request{
		Instructions: []solana.Instruction{testInstruction("A")},
		Signers:      []blockchain.Signer{payer},
	})

	require.NoError(t, err)
	assert.Equal(t, []solana.Hash{first, second}, stamped)
	assert.Equal(t, second, result.Blockhash)
	tr.AssertNumberOfCalls(t, "GetLatestBlockhash", 2)
}

func TestSendAndConfirm_BlockhashNotFoundIsRetried(t *testing.T) {
	payer := newKeySigner(t)

	tr := &mocks.MockTransport{}
	tr.On("GetLatestBlockhash", anyArg, anyArg).Return(&blockchain.Blockhash{Hash: randomHash(t)}, nil)
	tr.On("SendTransaction", anyArg, anyArg, anyArg).Return(solana.Signature{}, &jsonrpc.RPCError{
		Code:    -32002,
		Message: "Transaction simulation failed: Blockhash not found",
	}).Once()
	tr.On("SendTransaction", anyArg, anyArg, anyArg).Return(solana.Signature{}, nil).Once()
	tr.On("GetSignatureStatus", anyArg, anyArg).Return(confirmedStatus(), nil)

	tm := newTestManager(t, tr, 3, fastConfig())
	_, err := tm.SendAndConfirm(context.Background(), Request{
		Instructions: []solana.Instruction{testInstruction("A")},
		Signers:      []blockchain.Signer{payer},
	})

	require.NoError(t, err)
	tr.AssertNumberOfCalls(t, "SendTransaction", 2)
}

func TestSendAndConfirm_SimulationFailureIsRejected(t *testing.T) {
	payer := newKeySigner(t)

	tr := &mocks.MockTransport{}
	tr.On("GetLatestBlockhash", anyArg, anyArg).Return(&blockchain.Blockhash{Hash: randomHash(t)}, nil)
	tr.On("SendTransaction", anyArg, anyArg, anyArg).Return(solana.Signature{}, &jsonrpc.RPCError{
		Code:    -32002,
		Message: "Transaction simulation failed: Error processing Instruction 0: custom program error: 0x1",
		Data: map[string]interface{}{
			"err":  map[string]interface{}{"InstructionError": []interface{}{float64(0), map[string]interface{}{"Custom": float64(1)}}},
			"logs": []interface{}{"Program log: insufficient funds"},
		},
	})

	tm := newTestManager(t, tr, 3, fastConfig())
	_, err := tm.SendAndConfirm(context.Background(), Request{
		Instructions: []solana.Instruction{testInstruction("A")},
		Signers:      []blockchain.Signer{payer},
	})

	require.Error(t, err)
	var tkErr *blockchain.Error
	require.True(t, errors.As(err, &tkErr))
	assert.Equal(t, blockchain.CodeTransactionRejected, tkErr.Code)
	analysis, ok := tkErr.Context["analysis"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, analysis["simulation_failed"])
	tr.AssertNumberOfCalls(t, "SendTransaction", 1)
	tr.AssertNotCalled(t, "GetSignatureStatus", anyArg, anyArg)
}

func TestSendAndConfirm_AmbiguousIsNotRetried(t *testing.T) {
	payer := newKeySigner(t)

	tr := &mocks.MockTransport{}
	tr.On("GetLatestBlockhash", anyArg, anyArg).Return(&blockchain.Blockhash{Hash: randomHash(t)}, nil)
	tr.On("SendTransaction", anyArg, anyArg, anyArg).Return(solana.Signature{}, nil)
	tr.On("GetSignatureStatus", anyArg, anyArg).Return(nil, nil)

	reg := prometheus.NewRegistry()
	collector, err := metrics.NewCollector(reg)
	require.NoError(t, err)

	tm := NewManager(newTestManager(t, tr, 3, fastConfig()).exec, zaptest.NewLogger(t), fastConfig(), WithMetrics(collector))

	_, err = tm.SendAndConfirm(context.Background(), Request{
		Instructions: []solana.Instruction{testInstruction("A")},
		Signers:      []blockchain.Signer{payer},
	})

	require.Error(t, err)
	assert.Equal(t, blockchain.CodeTxAmbiguous, blockchain.CodeOf(err))
	tr.AssertNumberOfCalls(t, "SendTransaction", 1)

	count, err := testutil.GatherAndCount(reg, "solana_toolkit_transactions_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSendAndConfirm_OnChainFailureIsRejected(t *testing.T) {
	payer := newKeySigner(t)

	tr := &mocks.MockTransport{}
	tr.On("GetLatestBlockhash", anyArg, anyArg).Return(&blockchain.Blockhash{Hash: randomHash(t)}, nil)
	tr.On("SendTransaction", anyArg, anyArg, anyArg).Return(solana.Signature{}, nil)
	tr.On("GetSignatureStatus", anyArg, anyArg).Return(&blockchain.SignatureStatus{
		Err: map[string]interface{}{"InstructionError": []interface{}{float64(0), "InvalidAccountData"}},
	}, nil)

	tm := newTestManager(t, tr, 3, fastConfig())
	_, err := tm.SendAndConfirm(context.Background(), Request{
		Instructions: []solana.Instruction{testInstruction("A")},
		Signers:      []blockchain.Signer{payer},
	})

	assert.Equal(t, blockchain.CodeTransactionRejected, blockchain.CodeOf(err))
	tr.AssertNumberOfCalls(t, "SendTransaction", 1)
}

func TestSendAndConfirm_InvalidRequestNeverTouchesNetwork(t *testing.T) {
	tr := &mocks.MockTransport{}
	tm := newTestManager(t, tr, 3, fastConfig())

	_, err := tm.SendAndConfirm(context.Background(), Request{Signers: []blockchain.Signer{newKeySigner(t)}})
	assert.ErrorIs(t, err, ErrNoInstructions)

	_, err = tm.SendAndConfirm(context.Background(), Request{Instructions: []solana.Instruction{testInstruction("A")}})
	assert.ErrorIs(t, err, ErrNoSigners)

	tr.AssertNotCalled(t, "GetLatestBlockhash", anyArg, anyArg)
}

func TestSendAndConfirm_MissingSignerIsTerminal(t *testing.T) {
	payer := newKeySigner(t)
	cosigner := newKeySigner(t)

	tr := &mocks.MockTransport{}
	tr.On("GetLatestBlockhash", anyArg, anyArg).Return(&blockchain.Blockhash{Hash: randomHash(t)}, nil)

	tm := newTestManager(t, tr, 3, fastConfig())
	_, err := tm.SendAndConfirm(context.Background(), Request{
		Instructions: []solana.Instruction{testInstruction("A", cosigner.PublicKey())},
		Signers:      []blockchain.Signer{payer},
	})

	assert.Equal(t, blockchain.CodeInvalidInput, blockchain.CodeOf(err))
	tr.AssertNumberOfCalls(t, "GetLatestBlockhash", 1)
	tr.AssertNotCalled(t, "SendTransaction", anyArg, anyArg, anyArg)
}

func TestSendAndConfirm_RequestOverrides(t *testing.T) {
	payer := newKeySigner(t)
	skip := true

	tr := &mocks.MockTransport{}
	tr.On("GetLatestBlockhash", anyArg, anyArg).Return(&blockchain.Blockhash{Hash: randomHash(t)}, nil)

	var sent *solana.Transaction
	tr.On("SendTransaction", anyArg, anyArg, blockchain.TransactionOptions{
		SkipPreflight:       true,
		PreflightCommitment: solanarpc.CommitmentConfirmed,
	}).Run(func(args mock.Arguments) {
		sent = args.Get(1).(*solana.Transaction)
	}).Return(solana.Signature{}, nil)
	tr.On("GetSignatureStatus", anyArg, anyArg).Return(confirmedStatus(), nil)

	tm := newTestManager(t, tr, 1, fastConfig())
	_, err := tm.SendAndConfirm(context.Background(), Request{
		Instructions:  []solana.Instruction{testInstruction("A")},
		Signers:       []blockchain.Signer{payer},
		Budget:        &Budget{ComputeUnits: 600_000, PriorityFee: 100},
		SkipPreflight: &skip,
	})

	require.NoError(t, err)
	require.NotNil(t, sent)
	assert.Len(t, sent.Message.Instructions, 3)
}

func TestSimulate(t *testing.T) {
	payer := newKeySigner(t)

	tr := &mocks.MockTransport{}
	tr.On("GetLatestBlockhash", anyArg, anyArg).Return(&blockchain.Blockhash{Hash: randomHash(t)}, nil)
	tr.On("SimulateTransaction", anyArg, anyArg, solanarpc.CommitmentConfirmed).Return(&blockchain.SimulationResult{
		Logs:          []string{"Program log: ok"},
		UnitsConsumed: 1234,
	}, nil)

	tm := newTestManager(t, tr, 2, fastConfig())
	res, err := tm.Simulate(context.Background(), Request{
		Instructions: []solana.Instruction{testInstruction("A")},
		Signers:      []blockchain.Signer{payer},
	})

	require.NoError(t, err)
	assert.Equal(t, uint64(1234), res.UnitsConsumed)
	tr.AssertNotCalled(t, "SendTransaction", anyArg, anyArg, anyArg)
}

func TestBuild_Offline(t *testing.T) {
	payer := newKeySigner(t)
	tm := newTestManager(t, &mocks.MockTransport{}, 1, fastConfig())

	env, err := tm.Build(Request{
		Instructions: []solana.Instruction{testInstruction("A")},
		Signers:      []blockchain.Signer{payer},
	}, randomHash(t))

	require.NoError(t, err)
	assert.Equal(t, StateSigned, env.State())
	assert.NoError(t, env.Transaction().VerifySignatures())
}
