// internal/blockchain/mocks/transport.go
package mocks

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/mock"

	"github.com/rovshanmuradov/solana-toolkit/internal/blockchain"
)

// MockTransport реализует blockchain.Transport для тестов без сети.
type MockTransport struct {
	mock.Mock
}

func (m *MockTransport) GetBalance(ctx context.Context, pubkey solana.PublicKey, commitment rpc.CommitmentType) (uint64, error) {
	args := m.Called(ctx, pubkey, commitment)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockTransport) GetAccountInfo(ctx context.Context, pubkey solana.PublicKey, commitment rpc.CommitmentType) (*rpc.Account, error) {
	args := m.Called(ctx, pubkey, commitment)
	acc, _ := args.Get(0).(*rpc.Account)
	return acc, args.Error(1)
}

func (m *MockTransport) GetMultipleAccounts(ctx context.Context, pubkeys []solana.PublicKey, commitment rpc.CommitmentType) ([]*rpc.Account, error) {
	args := m.Called(ctx, pubkeys, commitment)
	accs, _ := args.Get(0).([]*rpc.Account)
	return accs, args.Error(1)
}

func (m *MockTransport) GetProgramAccounts(ctx context.Context, programID solana.PublicKey, opts *rpc.GetProgramAccountsOpts) (rpc.GetProgramAccountsResult, error) {
	args := m.Called(ctx, programID, opts)
	res, _ := args.Get(0).(rpc.GetProgramAccountsResult)
	return res, args.Error(1)
}

func (m *MockTransport) GetTokenAccountBalance(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (*rpc.UiTokenAmount, error) {
	args := m.Called(ctx, account, commitment)
	amount, _ := args.Get(0).(*rpc.UiTokenAmount)
	return amount, args.Error(1)
}

func (m *MockTransport) GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*blockchain.Blockhash, error) {
	args := m.Called(ctx, commitment)
	bh, _ := args.Get(0).(*blockchain.Blockhash)
	return bh, args.Error(1)
}

func (m *MockTransport) GetMinimumBalanceForRentExemption(ctx context.Context, dataSize uint64, commitment rpc.CommitmentType) (uint64, error) {
	args := m.Called(ctx, dataSize, commitment)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockTransport) RequestAirdrop(ctx context.Context, pubkey solana.PublicKey, lamports uint64, commitment rpc.CommitmentType) (solana.Signature, error) {
	args := m.Called(ctx, pubkey, lamports, commitment)
	return args.Get(0).(solana.Signature), args.Error(1)
}

func (m *MockTransport) SendTransaction(ctx context.Context, tx *solana.Transaction, opts blockchain.TransactionOptions) (solana.Signature, error) {
	args := m.Called(ctx, tx, opts)
	return args.Get(0).(solana.Signature), args.Error(1)
}

func (m *MockTransport) SimulateTransaction(ctx context.Context, tx *solana.Transaction, commitment rpc.CommitmentType) (*blockchain.SimulationResult, error) {
	args := m.Called(ctx, tx, commitment)
	res, _ := args.Get(0).(*blockchain.SimulationResult)
	return res, args.Error(1)
}

func (m *MockTransport) GetSignatureStatus(ctx context.Context, signature solana.Signature) (*blockchain.SignatureStatus, error) {
	args := m.Called(ctx, signature)
	st, _ := args.Get(0).(*blockchain.SignatureStatus)
	return st, args.Error(1)
}

func (m *MockTransport) GetBlockHeight(ctx context.Context, commitment rpc.CommitmentType) (uint64, error) {
	args := m.Called(ctx, commitment)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockTransport) Close() error {
	args := m.Called()
	return args.Error(0)
}

var _ blockchain.Transport = (*MockTransport)(nil)
