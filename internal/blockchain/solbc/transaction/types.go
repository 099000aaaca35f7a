// internal/blockchain/solbc/transaction/types.go
package transaction

import (
	"errors"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/rovshanmuradov/solana-toolkit/internal/blockchain"
)

const (
	// DefaultComputeUnits лимит, который сеть применяет без явной инструкции.
	DefaultComputeUnits uint32 = 200_000

	DefaultConfirmTimeout = 30 * time.Second
	DefaultPollInterval   = 500 * time.Millisecond
)

var (
	ErrNoInstructions     = errors.New("transaction has no instructions")
	ErrNoSigners          = errors.New("transaction has no signers")
	ErrMissingSigner      = errors.New("required signer not provided")
	ErrInvalidSignature   = errors.New("invalid transaction signature")
	ErrInvalidBlockhash   = errors.New("invalid blockhash")
	ErrInvalidInstruction = errors.New("invalid instruction")
)

// Config параметры оркестратора транзакций.
type Config struct {
	Budget         Budget
	SkipPreflight  bool
	Commitment     rpc.CommitmentType
	ConfirmTimeout time.Duration
	PollInterval   time.Duration
}

// DefaultConfig возвращает конфигурацию по умолчанию.
func DefaultConfig() Config {
	return Config{
		Budget:         Budget{ComputeUnits: DefaultComputeUnits},
		Commitment:     rpc.CommitmentConfirmed,
		ConfirmTimeout: DefaultConfirmTimeout,
		PollInterval:   DefaultPollInterval,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Commitment == "" {
		c.Commitment = def.Commitment
	}
	if c.ConfirmTimeout <= 0 {
		c.ConfirmTimeout = def.ConfirmTimeout
	}
	if c.PollInterval <= 0 {
		c.PollInterval = def.PollInterval
	}
	return c
}

// Request набор инструкций и подписантов для одной транзакции.
type Request struct {
	Instructions []solana.Instruction
	// Signers подписывают в переданном порядке. Первый становится плательщиком, если FeePayer пуст.
	Signers  []blockchain.Signer
	FeePayer solana.PublicKey
	// Budget переопределяет бюджет из конфигурации.
	Budget *Budget
	// SkipPreflight переопределяет значение из конфигурации.
	SkipPreflight *bool
}

func (r Request) feePayer() solana.PublicKey {
	if !r.FeePayer.IsZero() || len(r.Signers) == 0 {
		return r.FeePayer
	}
	return r.Signers[0].PublicKey()
}

// State состояние конверта транзакции.
type State int

const (
	StateBuilt State = iota
	StateBudgetAugmented
	StateStamped
	StateSigned
	StateSubmitted
	StateConfirmed
	StateFailed
	StateTimedOut
)

func (s State) String() string {
	switch s {
	case StateBuilt:
		return "built"
	case StateBudgetAugmented:
		return "budget_augmented"
	case StateStamped:
		return "stamped"
	case StateSigned:
		return "signed"
	case StateSubmitted:
		return "submitted"
	case StateConfirmed:
		return "confirmed"
	case StateFailed:
		return "failed"
	case StateTimedOut:
		return "timed_out"
	}
	return "unknown"
}

// Terminal сообщает, что состояние конечное.
func (s State) Terminal() bool {
	return s == StateConfirmed || s == StateFailed || s == StateTimedOut
}

// Status результат опроса подтверждения.
type Status struct {
	Signature          solana.Signature
	Slot               uint64
	Confirmations      *uint64
	ConfirmationStatus rpc.ConfirmationStatusType
	Err                interface{}
}

// Result итог SendAndConfirm.
type Result struct {
	Signature          solana.Signature
	State              State
	Slot               uint64
	ConfirmationStatus rpc.ConfirmationStatusType
	Blockhash          solana.Hash
	Instructions       int
	Duration           time.Duration
}
