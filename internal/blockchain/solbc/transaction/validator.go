// internal/blockchain/solbc/transaction/validator.go
package transaction

import (
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-toolkit/internal/blockchain"
)

type Validator struct {
	logger *zap.Logger
}

func NewValidator(logger *zap.Logger) *Validator {
	return &Validator{
		logger: logger.Named("tx-validator"),
	}
}

// ValidateRequest проверяет запрос до обращения к сети.
func (v *Validator) ValidateRequest(req Request) error {
	if len(req.Instructions) == 0 {
		return blockchain.WrapError(ErrNoInstructions, blockchain.CodeInvalidInput, "invalid transaction request", nil)
	}
	for i, inst := range req.Instructions {
		if inst == nil || inst.ProgramID().IsZero() {
			return blockchain.WrapError(ErrInvalidInstruction, blockchain.CodeInvalidInput, "invalid transaction request",
				map[string]interface{}{"index": i})
		}
	}
	if len(req.Signers) == 0 {
		return blockchain.WrapError(ErrNoSigners, blockchain.CodeInvalidInput, "invalid transaction request", nil)
	}
	for i, s := range req.Signers {
		if s == nil {
			return blockchain.WrapError(ErrMissingSigner, blockchain.CodeInvalidInput, "invalid transaction request",
				map[string]interface{}{"index": i})
		}
	}
	return nil
}

func (v *Validator) ValidateTransaction(tx *solana.Transaction) error {
	if err := v.ValidateSignatures(tx); err != nil {
		return err
	}

	if err := v.ValidateBlockhash(tx); err != nil {
		return err
	}

	if err := v.ValidateInstructions(tx.Message.Instructions); err != nil {
		return err
	}

	return nil
}

func (v *Validator) ValidateSignatures(tx *solana.Transaction) error {
	required := int(tx.Message.Header.NumRequiredSignatures)
	if len(tx.Signatures) == 0 || len(tx.Signatures) != required {
		return blockchain.WrapError(ErrInvalidSignature, blockchain.CodeInvalidInput, "invalid transaction",
			map[string]interface{}{"signatures": len(tx.Signatures), "required": required})
	}
	for i, sig := range tx.Signatures {
		if sig.IsZero() {
			return blockchain.WrapError(ErrInvalidSignature, blockchain.CodeInvalidInput, "invalid transaction",
				map[string]interface{}{"index": i})
		}
	}
	return nil
}

func (v *Validator) ValidateBlockhash(tx *solana.Transaction) error {
	if tx.Message.RecentBlockhash.IsZero() {
		return blockchain.WrapError(ErrInvalidBlockhash, blockchain.CodeInvalidInput, "invalid transaction", nil)
	}
	return nil
}

func (v *Validator) ValidateInstructions(instructions []solana.CompiledInstruction) error {
	if len(instructions) == 0 {
		return blockchain.WrapError(ErrInvalidInstruction, blockchain.CodeInvalidInput, "invalid transaction", nil)
	}
	return nil
}
