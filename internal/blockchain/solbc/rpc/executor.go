// internal/blockchain/solbc/rpc/executor.go
package rpc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-toolkit/internal/blockchain"
	"github.com/rovshanmuradov/solana-toolkit/internal/utils/logger"
	"github.com/rovshanmuradov/solana-toolkit/internal/utils/metrics"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 1 * time.Second
	// DefaultMaxDelay потолок экспоненциальной задержки.
	DefaultMaxDelay = 30 * time.Second
)

// RetryPolicy политика повторов одного вызова.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy возвращает политику по умолчанию.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		MaxDelay:    DefaultMaxDelay,
	}
}

// Validate проверяет политику.
func (p RetryPolicy) Validate() error {
	if p.MaxAttempts < 1 {
		return blockchain.NewError(blockchain.CodeInvalidInput, "max attempts must be at least 1",
			map[string]interface{}{"max_attempts": p.MaxAttempts})
	}
	if p.BaseDelay < 0 || p.MaxDelay < 0 {
		return blockchain.NewError(blockchain.CodeInvalidInput, "retry delays must not be negative",
			map[string]interface{}{"base_delay": p.BaseDelay.String(), "max_delay": p.MaxDelay.String()})
	}
	return nil
}

func (p RetryPolicy) maxDelay() time.Duration {
	if p.MaxDelay <= 0 {
		return DefaultMaxDelay
	}
	return p.MaxDelay
}

// backOff строит детерминированную экспоненту: BaseDelay * 2^(k-1), не выше MaxDelay.
func (p RetryPolicy) backOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.BaseDelay
	b.RandomizationFactor = 0
	b.Multiplier = 2
	b.MaxInterval = p.maxDelay()
	b.Reset()
	return b
}

// Operation одиночный вызов поверх транспорта активного соединения.
// Должен быть безопасен для повторного вызова: исполнитель не устраняет дубликаты побочных эффектов.
type Operation[T any] func(ctx context.Context, t blockchain.Transport) (T, error)

// SleepFunc ожидание между попытками.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Executor единая точка, через которую проходит каждая удалённая операция.
type Executor struct {
	conn      *Connection
	policy    RetryPolicy
	sleep     SleepFunc
	retryable func(error) bool
	logger    *zap.Logger
	metrics   *metrics.Collector
}

// ExecutorOption настраивает Executor.
type ExecutorOption func(*Executor)

// WithDefaultPolicy задаёт политику по умолчанию для всех вызовов.
func WithDefaultPolicy(p RetryPolicy) ExecutorOption {
	return func(e *Executor) {
		e.policy = p
	}
}

// WithSleep подменяет ожидание между попытками (для тестов).
func WithSleep(fn SleepFunc) ExecutorOption {
	return func(e *Executor) {
		e.sleep = fn
	}
}

// WithRetryClassifier задаёт, какие ошибки повторять.
func WithRetryClassifier(fn func(error) bool) ExecutorOption {
	return func(e *Executor) {
		e.retryable = fn
	}
}

// WithExecutorMetrics подключает сборщик метрик.
func WithExecutorMetrics(m *metrics.Collector) ExecutorOption {
	return func(e *Executor) {
		e.metrics = m
	}
}

// NewExecutor создаёт исполнитель поверх соединения.
func NewExecutor(conn *Connection, log *zap.Logger, opts ...ExecutorOption) *Executor {
	if log == nil {
		log = zap.NewNop()
	}
	e := &Executor{
		conn:      conn,
		policy:    DefaultRetryPolicy(),
		sleep:     sleepContext,
		retryable: IsRetryableError,
		logger:    log.Named("rpc-executor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Connection возвращает соединение исполнителя.
func (e *Executor) Connection() *Connection {
	return e.conn
}

// Policy возвращает политику по умолчанию.
func (e *Executor) Policy() RetryPolicy {
	return e.policy
}

// CallOption переопределяет параметры одного вызова.
type CallOption func(*RetryPolicy)

// WithPolicy заменяет политику для вызова.
func WithPolicy(p RetryPolicy) CallOption {
	return func(dst *RetryPolicy) {
		*dst = p
	}
}

// WithMaxAttempts меняет только число попыток.
func WithMaxAttempts(n int) CallOption {
	return func(dst *RetryPolicy) {
		dst.MaxAttempts = n
	}
}

// IsRetryableError определяет, можно ли повторить операцию при данной ошибке.
// Повторяются только транспортные сбои; логически окончательные ошибки
// (не найдено, неверный ввод, отказ сети в транзакции) и backoff.Permanent - нет.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		return false
	}
	return !blockchain.IsTerminal(err)
}

// Do выполняет операцию без результата.
func (e *Executor) Do(ctx context.Context, name string, op func(ctx context.Context, t blockchain.Transport) error, opts ...CallOption) error {
	_, err := Execute(ctx, e, name, func(ctx context.Context, t blockchain.Transport) (struct{}, error) {
		return struct{}{}, op(ctx, t)
	}, opts...)
	return err
}

// Execute выполняет op с проверкой здоровья, ограниченным числом попыток и
// экспоненциальной задержкой между ними.
func Execute[T any](ctx context.Context, e *Executor, name string, op Operation[T], opts ...CallOption) (T, error) {
	var zero T

	policy := e.policy
	for _, opt := range opts {
		opt(&policy)
	}
	if err := policy.Validate(); err != nil {
		return zero, blockchain.WithContext(err, blockchain.CodeInvalidInput, "invalid retry policy",
			map[string]interface{}{"operation": name})
	}

	log := logger.WithOperation(e.logger, name)
	bo := policy.backOff()
	maxDelay := policy.maxDelay()

	var (
		lastErr  error
		endpoint string
	)
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		s := e.conn.current()
		endpoint = s.endpoint.URL

		if !s.isHealthy() {
			lastErr = blockchain.NewError(blockchain.CodeUnhealthyConnection, "connection is unhealthy",
				map[string]interface{}{"operation": name, "endpoint": endpoint, "attempt": attempt})
			e.metrics.RecordAttempt(name, "unhealthy", 0)
			log.Debug("Attempt short-circuited by health gate",
				zap.Int("attempt", attempt),
				zap.String("endpoint", endpoint))
		} else {
			start := time.Now()
			result, err := op(ctx, s.transport)
			duration := time.Since(start)

			if err == nil {
				e.metrics.RecordAttempt(name, "success", duration)
				if attempt > 1 {
					log.Info("Operation succeeded after retry", zap.Int("attempt", attempt))
				}
				return result, nil
			}

			lastErr = err
			if !e.retryable(err) {
				e.metrics.RecordAttempt(name, "terminal", duration)
				return zero, terminalError(err, name, endpoint, attempt)
			}
			e.metrics.RecordAttempt(name, "failure", duration)
		}

		if ctx.Err() != nil {
			return zero, abortedError(ctx.Err(), lastErr, name, endpoint, attempt)
		}
		if attempt == policy.MaxAttempts {
			break
		}

		delay := bo.NextBackOff()
		if delay > maxDelay {
			delay = maxDelay
		}
		log.Debug("Retryable error occurred, will retry",
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay),
			zap.Error(lastErr))

		if err := e.sleep(ctx, delay); err != nil {
			return zero, abortedError(err, lastErr, name, endpoint, attempt)
		}
	}

	log.Warn("All retry attempts failed",
		zap.Int("attempts", policy.MaxAttempts),
		zap.String("endpoint", endpoint),
		zap.Error(lastErr))

	return zero, blockchain.WrapError(lastErr, blockchain.CodeOperationExhausted,
		fmt.Sprintf("operation %s failed after %d attempts", name, policy.MaxAttempts),
		map[string]interface{}{
			"operation":  name,
			"attempts":   policy.MaxAttempts,
			"endpoint":   endpoint,
			"last_error": lastErr.Error(),
		})
}

// terminalError сохраняет код ошибки тулкита; чужая ошибка, признанная неповторяемой,
// получает OPERATION_EXHAUSTED.
func terminalError(err error, name, endpoint string, attempt int) error {
	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) && permanent.Err != nil {
		err = permanent.Err
	}
	return blockchain.WithContext(err, blockchain.CodeOperationExhausted, fmt.Sprintf("operation %s failed", name),
		map[string]interface{}{
			"operation": name,
			"endpoint":  endpoint,
			"attempt":   attempt,
		})
}

func abortedError(cause, lastErr error, name, endpoint string, attempt int) error {
	ctx := map[string]interface{}{
		"operation": name,
		"endpoint":  endpoint,
		"attempts":  attempt,
		"aborted":   true,
	}
	if lastErr != nil {
		ctx["last_error"] = lastErr.Error()
	}
	return blockchain.WrapError(cause, blockchain.CodeOperationExhausted,
		fmt.Sprintf("operation %s abandoned", name), ctx)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
