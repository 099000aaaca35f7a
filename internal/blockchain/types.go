// internal/blockchain/types.go
package blockchain

import (
	"context"
	"io"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// TransactionOptions определяет опции для отправки транзакций.
type TransactionOptions struct {
	SkipPreflight       bool
	PreflightCommitment rpc.CommitmentType
}

// SimulationResult представляет результат симуляции транзакции.
type SimulationResult struct {
	Err           interface{}
	Logs          []string
	UnitsConsumed uint64
}

// Blockhash свежий blockhash вместе с высотой, после которой он истекает.
type Blockhash struct {
	Hash                 solana.Hash
	LastValidBlockHeight uint64
}

// SignatureStatus статус подписи транзакции. Nil-значение означает, что узел её не видел.
type SignatureStatus struct {
	Slot               uint64
	Confirmations      *uint64
	Err                interface{}
	ConfirmationStatus rpc.ConfirmationStatusType
}

// AccountReader запросы чтения аккаунтов и балансов.
type AccountReader interface {
	GetBalance(ctx context.Context, pubkey solana.PublicKey, commitment rpc.CommitmentType) (uint64, error)
	GetAccountInfo(ctx context.Context, pubkey solana.PublicKey, commitment rpc.CommitmentType) (*rpc.Account, error)
	GetMultipleAccounts(ctx context.Context, pubkeys []solana.PublicKey, commitment rpc.CommitmentType) ([]*rpc.Account, error)
	GetProgramAccounts(ctx context.Context, programID solana.PublicKey, opts *rpc.GetProgramAccountsOpts) (rpc.GetProgramAccountsResult, error)
	GetTokenAccountBalance(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (*rpc.UiTokenAmount, error)
}

// ChainStateReader запросы blockhash, ренты и airdrop.
type ChainStateReader interface {
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*Blockhash, error)
	GetMinimumBalanceForRentExemption(ctx context.Context, dataSize uint64, commitment rpc.CommitmentType) (uint64, error)
	RequestAirdrop(ctx context.Context, pubkey solana.PublicKey, lamports uint64, commitment rpc.CommitmentType) (solana.Signature, error)
}

// TransactionSender отправка, симуляция и статус транзакций.
type TransactionSender interface {
	SendTransaction(ctx context.Context, tx *solana.Transaction, opts TransactionOptions) (solana.Signature, error)
	SimulateTransaction(ctx context.Context, tx *solana.Transaction, commitment rpc.CommitmentType) (*SimulationResult, error)
	GetSignatureStatus(ctx context.Context, signature solana.Signature) (*SignatureStatus, error)
}

// LivenessProber лёгкий запрос для проверки живости узла.
type LivenessProber interface {
	GetBlockHeight(ctx context.Context, commitment rpc.CommitmentType) (uint64, error)
}

// Transport объединяет все возможности удалённого RPC, нужные ядру.
type Transport interface {
	AccountReader
	ChainStateReader
	TransactionSender
	LivenessProber
	io.Closer
}

// Signer идентичность, способная подписать сообщение. Приватный ключ наружу не раскрывается.
type Signer interface {
	PublicKey() solana.PublicKey
	Sign(message []byte) (solana.Signature, error)
}
