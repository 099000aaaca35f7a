// internal/blockchain/solbc/transaction/monitor.go
package transaction

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-toolkit/internal/blockchain"
)

type Monitor struct {
	logger *zap.Logger
	config Config
}

func NewMonitor(logger *zap.Logger, config Config) *Monitor {
	return &Monitor{
		logger: logger.Named("tx-monitor"),
		config: config.withDefaults(),
	}
}

// reached сообщает, достиг ли статус требуемого уровня подтверждения.
func reached(status rpc.ConfirmationStatusType, commitment rpc.CommitmentType) bool {
	switch commitment {
	case rpc.CommitmentFinalized:
		return status == rpc.ConfirmationStatusFinalized
	case rpc.CommitmentProcessed:
		return status != ""
	default:
		return status == rpc.ConfirmationStatusConfirmed || status == rpc.ConfirmationStatusFinalized
	}
}

// AwaitConfirmation опрашивает статус подписи до подтверждения, ошибки в сети или истечения срока.
// Ошибка в статусе даёт TRANSACTION_REJECTED с исходным payload, истечение срока - TRANSACTION_AMBIGUOUS.
func (m *Monitor) AwaitConfirmation(ctx context.Context, sender blockchain.TransactionSender, signature solana.Signature) (*Status, error) {
	ticker := time.NewTicker(m.config.PollInterval)
	defer ticker.Stop()

	waitCtx, cancel := context.WithTimeout(ctx, m.config.ConfirmTimeout)
	defer cancel()

	log := m.logger.With(zap.String("signature", signature.String()))
	polls := 0

	for {
		polls++
		status, err := sender.GetSignatureStatus(waitCtx, signature)
		switch {
		case err != nil:
			log.Warn("Confirmation check failed", zap.Int("poll", polls), zap.Error(err))
		case status == nil:
			log.Debug("Signature not yet known to node", zap.Int("poll", polls))
		case status.Err != nil:
			log.Warn("Transaction failed on-chain", zap.Any("err", status.Err))
			return nil, blockchain.NewError(blockchain.CodeTransactionRejected, "transaction failed on-chain",
				map[string]interface{}{
					"signature": signature.String(),
					"slot":      status.Slot,
					"err":       status.Err,
				})
		case reached(status.ConfirmationStatus, m.config.Commitment):
			return &Status{
				Signature:          signature,
				Slot:               status.Slot,
				Confirmations:      status.Confirmations,
				ConfirmationStatus: status.ConfirmationStatus,
			}, nil
		}

		if waitCtx.Err() == nil {
			select {
			case <-waitCtx.Done():
			case <-ticker.C:
				continue
			}
		}

		if ctx.Err() != nil {
			return nil, blockchain.WrapError(ctx.Err(), blockchain.CodeTxAmbiguous,
				"confirmation abandoned, transaction may still land",
				map[string]interface{}{
					"signature": signature.String(),
					"polls":     polls,
					"aborted":   true,
				})
		}
		log.Warn("Confirmation timed out", zap.Int("polls", polls), zap.Duration("timeout", m.config.ConfirmTimeout))
		return nil, blockchain.NewError(blockchain.CodeTxAmbiguous,
			"confirmation timed out, transaction may or may not have landed",
			map[string]interface{}{
				"signature": signature.String(),
				"polls":     polls,
				"timeout":   m.config.ConfirmTimeout.String(),
			})
	}
}
