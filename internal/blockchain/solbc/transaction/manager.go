// internal/blockchain/solbc/transaction/manager.go
package transaction

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-toolkit/internal/blockchain"
	"github.com/rovshanmuradov/solana-toolkit/internal/blockchain/solbc"
	"github.com/rovshanmuradov/solana-toolkit/internal/blockchain/solbc/rpc"
	"github.com/rovshanmuradov/solana-toolkit/internal/utils/logger"
	"github.com/rovshanmuradov/solana-toolkit/internal/utils/metrics"
)

type Manager struct {
	exec      *rpc.Executor
	logger    *zap.Logger
	config    Config
	validator *Validator
	monitor   *Monitor
	analyzer  *solbc.ErrorAnalyzer
	metrics   *metrics.Collector
}

// Option настраивает Manager.
type Option func(*Manager)

// WithMetrics подключает сборщик метрик транзакций.
func WithMetrics(m *metrics.Collector) Option {
	return func(tm *Manager) {
		tm.metrics = m
	}
}

func NewManager(exec *rpc.Executor, logger *zap.Logger, config Config, opts ...Option) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	config = config.withDefaults()
	tm := &Manager{
		exec:      exec,
		logger:    logger.Named("tx-manager"),
		config:    config,
		validator: NewValidator(logger),
		monitor:   NewMonitor(logger, config),
		analyzer:  solbc.NewErrorAnalyzer(logger),
	}
	for _, opt := range opts {
		opt(tm)
	}
	return tm
}

// Config возвращает конфигурацию менеджера.
func (tm *Manager) Config() Config {
	return tm.config
}

func (tm *Manager) budget(req Request) Budget {
	if req.Budget != nil {
		return *req.Budget
	}
	return tm.config.Budget
}

func (tm *Manager) skipPreflight(req Request) bool {
	if req.SkipPreflight != nil {
		return *req.SkipPreflight
	}
	return tm.config.SkipPreflight
}

// SendAndConfirm собирает, подписывает, отправляет и подтверждает транзакцию.
// Вся цепочка выполняется как одна операция исполнителя: каждая повторная попытка
// заново получает blockhash, пересобирает и переподписывает транзакцию.
func (tm *Manager) SendAndConfirm(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	defer logger.TrackPerformance(tm.logger, "sendAndConfirm")()

	if err := tm.validator.ValidateRequest(req); err != nil {
		tm.metrics.RecordTransaction("invalid", time.Since(start))
		return nil, err
	}

	result, err := rpc.Execute(ctx, tm.exec, "sendAndConfirm", func(ctx context.Context, t blockchain.Transport) (*Result, error) {
		return tm.attempt(ctx, t, req)
	})
	duration := time.Since(start)

	if err != nil {
		tm.metrics.RecordTransaction(outcome(err), duration)
		tm.logger.Error("Transaction failed",
			zap.String("code", string(blockchain.CodeOf(err))),
			zap.Duration("duration", duration),
			zap.Error(err))
		return nil, err
	}

	result.Duration = duration
	tm.metrics.RecordTransaction(result.State.String(), duration)
	tm.logger.Info("Transaction confirmed",
		zap.String("signature", result.Signature.String()),
		zap.Uint64("slot", result.Slot),
		zap.Duration("duration", duration))
	return result, nil
}

func outcome(err error) string {
	switch blockchain.CodeOf(err) {
	case blockchain.CodeTransactionRejected:
		return StateFailed.String()
	case blockchain.CodeTxAmbiguous:
		return StateTimedOut.String()
	case blockchain.CodeInvalidInput:
		return "invalid"
	}
	return "error"
}

// attempt одна полная попытка Built → терминальное состояние.
func (tm *Manager) attempt(ctx context.Context, t blockchain.Transport, req Request) (*Result, error) {
	env, err := tm.prepare(ctx, t, req)
	if err != nil {
		return nil, err
	}

	sig, err := t.SendTransaction(ctx, env.Transaction(), blockchain.TransactionOptions{
		SkipPreflight:       tm.skipPreflight(req),
		PreflightCommitment: tm.config.Commitment,
	})
	if err != nil {
		return nil, tm.classifySendError(err, env)
	}
	if err := env.MarkSubmitted(sig); err != nil {
		return nil, err
	}
	logger.WithTransaction(tm.logger, env.Signature().String()).Debug("Transaction submitted",
		zap.String("blockhash", env.Blockhash().Hash.String()))

	status, err := tm.monitor.AwaitConfirmation(ctx, t, env.Signature())
	if err != nil {
		final := StateFailed
		if blockchain.IsCode(err, blockchain.CodeTxAmbiguous) {
			final = StateTimedOut
		}
		_ = env.Resolve(final)
		return nil, err
	}
	if err := env.Resolve(StateConfirmed); err != nil {
		return nil, err
	}

	return &Result{
		Signature:          env.Signature(),
		State:              env.State(),
		Slot:               status.Slot,
		ConfirmationStatus: status.ConfirmationStatus,
		Blockhash:          env.Blockhash().Hash,
		Instructions:       len(env.Instructions()),
	}, nil
}

// prepare проводит конверт до состояния Signed со свежим blockhash.
func (tm *Manager) prepare(ctx context.Context, t blockchain.Transport, req Request) (*Envelope, error) {
	env, err := NewEnvelope(req.Instructions, req.feePayer())
	if err != nil {
		return nil, err
	}
	if err := env.Augment(tm.budget(req)); err != nil {
		return nil, err
	}

	bh, err := t.GetLatestBlockhash(ctx, tm.config.Commitment)
	if err != nil {
		return nil, err
	}
	if err := env.Stamp(bh); err != nil {
		return nil, err
	}
	if err := env.Sign(req.Signers); err != nil {
		return nil, err
	}
	if err := tm.validator.ValidateTransaction(env.Transaction()); err != nil {
		return nil, err
	}
	return env, nil
}

// classifySendError: устаревший blockhash и транспортные сбои повторяются,
// отказ на preflight-симуляции окончателен.
func (tm *Manager) classifySendError(err error, env *Envelope) error {
	if solbc.IsBlockhashNotFound(err) {
		tm.logger.Debug("Blockhash expired before submission, will restamp", zap.Error(err))
		return err
	}
	if solbc.IsSimulationFailure(err) {
		analysis := tm.analyzer.AnalyzeRPCError(err)
		tm.logger.Warn("Transaction rejected in preflight",
			zap.String("analysis", tm.analyzer.FormatErrorAnalysis(analysis)))
		return blockchain.WrapError(err, blockchain.CodeTransactionRejected, "transaction simulation failed",
			map[string]interface{}{
				"signature": env.Signature().String(),
				"analysis":  analysis,
			})
	}
	return err
}

// Simulate собирает и подписывает транзакцию так же, как SendAndConfirm, и симулирует её без отправки.
func (tm *Manager) Simulate(ctx context.Context, req Request) (*blockchain.SimulationResult, error) {
	if err := tm.validator.ValidateRequest(req); err != nil {
		return nil, err
	}

	return rpc.Execute(ctx, tm.exec, "simulateTransaction", func(ctx context.Context, t blockchain.Transport) (*blockchain.SimulationResult, error) {
		env, err := tm.prepare(ctx, t, req)
		if err != nil {
			return nil, err
		}
		return t.SimulateTransaction(ctx, env.Transaction(), tm.config.Commitment)
	})
}

// Confirm ожидает подтверждения уже отправленной подписи.
func (tm *Manager) Confirm(ctx context.Context, signature solana.Signature) (*Status, error) {
	return rpc.Execute(ctx, tm.exec, "confirmSignature", func(ctx context.Context, t blockchain.Transport) (*Status, error) {
		return tm.monitor.AwaitConfirmation(ctx, t, signature)
	})
}

// Build проводит запрос через Built → Signed без обращения к сети, с заданным blockhash.
func (tm *Manager) Build(req Request, blockhash solana.Hash) (*Envelope, error) {
	if err := tm.validator.ValidateRequest(req); err != nil {
		return nil, err
	}
	env, err := NewEnvelope(req.Instructions, req.feePayer())
	if err != nil {
		return nil, err
	}
	if err := env.Augment(tm.budget(req)); err != nil {
		return nil, err
	}
	if err := env.Stamp(&blockchain.Blockhash{Hash: blockhash}); err != nil {
		return nil, err
	}
	if err := env.Sign(req.Signers); err != nil {
		return nil, err
	}
	return env, nil
}
