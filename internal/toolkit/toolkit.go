// internal/toolkit/toolkit.go
package toolkit

import (
	"context"
	"strings"

	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-toolkit/internal/blockchain"
	"github.com/rovshanmuradov/solana-toolkit/internal/blockchain/solbc"
	"github.com/rovshanmuradov/solana-toolkit/internal/blockchain/solbc/rpc"
	"github.com/rovshanmuradov/solana-toolkit/internal/blockchain/solbc/transaction"
	"github.com/rovshanmuradov/solana-toolkit/internal/config"
	"github.com/rovshanmuradov/solana-toolkit/internal/utils/metrics"
)

// Toolkit точка входа: одно активное соединение, общий исполнитель повторов и менеджер транзакций.
type Toolkit struct {
	cfg     *config.Config
	conn    *rpc.Connection
	exec    *rpc.Executor
	tx      *transaction.Manager
	mints   *solbc.MintCache
	metrics *metrics.Collector
	logger  *zap.Logger
}

type options struct {
	factory    rpc.TransportFactory
	registerer prometheus.Registerer
	execOpts   []rpc.ExecutorOption
	connOpts   []rpc.ConnectionOption
}

// Option настраивает Toolkit.
type Option func(*options)

// WithTransportFactory подменяет создание транспорта (тесты, собственные клиенты).
func WithTransportFactory(f rpc.TransportFactory) Option {
	return func(o *options) {
		o.factory = f
	}
}

// WithRegisterer включает метрики Prometheus на переданном регистре.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

// WithExecutorOptions передаёт дополнительные опции исполнителю.
func WithExecutorOptions(opts ...rpc.ExecutorOption) Option {
	return func(o *options) {
		o.execOpts = append(o.execOpts, opts...)
	}
}

// WithConnectionOptions передаёт дополнительные опции соединению.
func WithConnectionOptions(opts ...rpc.ConnectionOption) Option {
	return func(o *options) {
		o.connOpts = append(o.connOpts, opts...)
	}
}

// New собирает тулкит по конфигурации. Мониторинг здоровья не запускается до Start.
func New(cfg *config.Config, logger *zap.Logger, opts ...Option) (*Toolkit, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg == nil {
		return nil, blockchain.NewError(blockchain.CodeInvalidInput, "config is nil", nil)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.factory == nil {
		o.factory = solbc.NewTransportFactory(logger, solbc.WithRateLimit(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
	}

	var collector *metrics.Collector
	if o.registerer != nil {
		c, err := metrics.NewCollector(o.registerer)
		if err != nil {
			return nil, err
		}
		collector = c
	}

	ep, err := endpointFor(cfg, networkName(cfg))
	if err != nil {
		return nil, err
	}
	budget, err := budgetFor(cfg.Transaction)
	if err != nil {
		return nil, err
	}

	connOpts := append([]rpc.ConnectionOption{
		rpc.WithHealthConfig(rpc.HealthConfig{
			Interval:         cfg.Health.Interval(),
			LatencyThreshold: cfg.Health.LatencyThreshold(),
			ProbeTimeout:     cfg.Health.ProbeTimeout(),
		}),
		rpc.WithMetrics(collector),
	}, o.connOpts...)
	conn, err := rpc.NewConnection(ep, o.factory, logger, connOpts...)
	if err != nil {
		return nil, err
	}

	execOpts := append([]rpc.ExecutorOption{
		rpc.WithDefaultPolicy(rpc.RetryPolicy{
			MaxAttempts: cfg.Retry.MaxAttempts,
			BaseDelay:   cfg.Retry.BaseDelay(),
			MaxDelay:    cfg.Retry.MaxDelay(),
		}),
		rpc.WithExecutorMetrics(collector),
	}, o.execOpts...)
	exec := rpc.NewExecutor(conn, logger, execOpts...)

	txManager := transaction.NewManager(exec, logger, transaction.Config{
		Budget:         budget,
		SkipPreflight:  cfg.Transaction.SkipPreflight,
		Commitment:     ep.Commitment,
		ConfirmTimeout: cfg.Transaction.ConfirmTimeout(),
		PollInterval:   cfg.Transaction.PollInterval(),
	}, transaction.WithMetrics(collector))

	return &Toolkit{
		cfg:     cfg,
		conn:    conn,
		exec:    exec,
		tx:      txManager,
		mints:   solbc.NewMintCache(0, logger),
		metrics: collector,
		logger:  logger.Named("toolkit"),
	}, nil
}

// budgetFor берет профиль priority_level и перекрывает его явными compute_units и priority_fee.
func budgetFor(tc config.TransactionConfig) (transaction.Budget, error) {
	var budget transaction.Budget
	if tc.PriorityLevel != "" {
		b, err := transaction.BudgetForLevel(transaction.PriorityLevel(strings.ToLower(tc.PriorityLevel)))
		if err != nil {
			return transaction.Budget{}, err
		}
		budget = b
	}
	if tc.ComputeUnits != 0 {
		budget.ComputeUnits = tc.ComputeUnits
	}
	if tc.PriorityFee != 0 {
		budget.PriorityFee = tc.PriorityFee
	}
	return budget, nil
}

func networkName(cfg *config.Config) string {
	if cfg.RPCURL != "" {
		return cfg.RPCURL
	}
	return cfg.Network
}

func endpointFor(cfg *config.Config, network string) (rpc.Endpoint, error) {
	url, err := config.ResolveEndpoint(network, cfg.Networks)
	if err != nil {
		return rpc.Endpoint{}, err
	}
	commitment, err := config.ParseCommitment(cfg.Commitment)
	if err != nil {
		return rpc.Endpoint{}, err
	}
	return rpc.Endpoint{Network: strings.ToLower(strings.TrimSpace(network)), URL: url, Commitment: commitment}, nil
}

// Start запускает фоновую проверку здоровья.
func (tk *Toolkit) Start(ctx context.Context) error {
	return tk.conn.Start(ctx)
}

// Close останавливает мониторинг и закрывает транспорт.
func (tk *Toolkit) Close() error {
	return tk.conn.Close()
}

// Health возвращает последний снимок здоровья активного эндпоинта.
func (tk *Toolkit) Health() rpc.HealthState {
	return tk.conn.Health()
}

// CheckHealth синхронно проверяет активный эндпоинт.
func (tk *Toolkit) CheckHealth(ctx context.Context) rpc.HealthState {
	return tk.conn.CheckNow(ctx)
}

// Endpoint возвращает активный эндпоинт.
func (tk *Toolkit) Endpoint() rpc.Endpoint {
	return tk.conn.Endpoint()
}

// Transactions возвращает менеджер транзакций.
func (tk *Toolkit) Transactions() *transaction.Manager {
	return tk.tx
}

// SwitchNetwork переключает тулкит на другую сеть (имя или URL).
// При ошибке активным остаётся прежний эндпоинт.
func (tk *Toolkit) SwitchNetwork(network string) error {
	ep, err := endpointFor(tk.cfg, network)
	if err != nil {
		return err
	}
	return tk.conn.Switch(ep)
}

func (tk *Toolkit) commitment() solanarpc.CommitmentType {
	return tk.conn.Endpoint().Commitment
}
