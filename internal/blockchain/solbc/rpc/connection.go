// internal/blockchain/solbc/rpc/connection.go
package rpc

import (
	"context"
	"errors"
	"sync"
	"time"

	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-toolkit/internal/blockchain"
	"github.com/rovshanmuradov/solana-toolkit/internal/utils/metrics"
)

// Endpoint описывает удалённый RPC-узел.
type Endpoint struct {
	Network    string
	URL        string
	Commitment solanarpc.CommitmentType
}

// TransportFactory создаёт транспорт для эндпоинта.
type TransportFactory func(ep Endpoint) (blockchain.Transport, error)

// ErrAlreadyRunning возвращается при повторном Start.
var ErrAlreadyRunning = errors.New("connection already running")

// ErrClosed возвращается из Start и Switch после Close.
var ErrClosed = errors.New("connection closed")

// session связывает эндпоинт, транспорт и состояние здоровья.
// После переключения сети старая сессия больше не видна читателям,
// поэтому запоздалые записи её probe-цикла ни на что не влияют.
type session struct {
	endpoint  Endpoint
	transport blockchain.Transport

	mu          sync.RWMutex
	healthy     bool
	lastChecked time.Time
	latency     time.Duration
	lastErr     string

	cancel context.CancelFunc
	done   chan struct{}
}

func newSession(ep Endpoint, transport blockchain.Transport) *session {
	// оптимистично здоров до первой проверки
	return &session{endpoint: ep, transport: transport, healthy: true}
}

func (s *session) isHealthy() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.healthy
}

func (s *session) record(healthy bool, at time.Time, latency time.Duration, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.healthy = healthy
	s.lastChecked = at
	s.latency = latency
	s.lastErr = ""
	if err != nil {
		s.lastErr = err.Error()
	}
}

func (s *session) snapshot() HealthState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return HealthState{
		IsHealthy:     s.healthy,
		LastCheckedAt: s.lastChecked,
		Latency:       s.latency,
		LastError:     s.lastErr,
		Endpoint:      s.endpoint.URL,
		Network:       s.endpoint.Network,
		Commitment:    s.endpoint.Commitment,
	}
}

// Connection владеет единственным активным соединением и его мониторингом здоровья.
type Connection struct {
	mu      sync.RWMutex
	active  *session
	running bool
	closed  bool
	parent  context.Context

	factory TransportFactory
	health  HealthConfig
	logger  *zap.Logger
	metrics *metrics.Collector
	now     func() time.Time
}

// ConnectionOption настраивает Connection.
type ConnectionOption func(*Connection)

// WithHealthConfig задаёт интервал и порог задержки проверок.
func WithHealthConfig(cfg HealthConfig) ConnectionOption {
	return func(c *Connection) {
		c.health = cfg.withDefaults()
	}
}

// WithMetrics подключает сборщик метрик.
func WithMetrics(m *metrics.Collector) ConnectionOption {
	return func(c *Connection) {
		c.metrics = m
	}
}

// WithClock подменяет источник времени (для тестов).
func WithClock(now func() time.Time) ConnectionOption {
	return func(c *Connection) {
		c.now = now
	}
}

// NewConnection создаёт соединение. Фоновый мониторинг не запускается до Start.
func NewConnection(ep Endpoint, factory TransportFactory, logger *zap.Logger, opts ...ConnectionOption) (*Connection, error) {
	if factory == nil {
		return nil, blockchain.NewError(blockchain.CodeConnectionInit, "transport factory is nil", nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Connection{
		factory: factory,
		health:  DefaultHealthConfig(),
		logger:  logger.Named("rpc-connection"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	transport, err := c.dial(ep)
	if err != nil {
		return nil, err
	}
	c.active = newSession(ep, transport)
	return c, nil
}

func (c *Connection) dial(ep Endpoint) (blockchain.Transport, error) {
	transport, err := c.factory(ep)
	if err != nil {
		return nil, blockchain.WithContext(err, blockchain.CodeConnectionInit, "failed to create transport",
			map[string]interface{}{"endpoint": ep.URL, "network": ep.Network})
	}
	if transport == nil {
		return nil, blockchain.NewError(blockchain.CodeConnectionInit, "transport factory returned nil",
			map[string]interface{}{"endpoint": ep.URL})
	}
	return transport, nil
}

// Start запускает периодическую проверку здоровья активного эндпоинта.
func (c *Connection) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.running {
		return ErrAlreadyRunning
	}
	c.parent = ctx
	c.running = true
	c.startProbe(c.active)

	c.logger.Info("Health monitoring started",
		zap.String("endpoint", c.active.endpoint.URL),
		zap.Duration("interval", c.health.Interval))
	return nil
}

// Close останавливает мониторинг и закрывает транспорт. Повторный вызов ничего не делает.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	if c.running {
		c.stopProbe(c.active)
		c.running = false
	}
	return c.active.transport.Close()
}

// Switch атомарно заменяет активный эндпоинт: останавливает старый цикл проверок,
// устанавливает новое соединение (оптимистично здоровое) и запускает новый цикл.
// Если транспорт для нового эндпоинта создать не удалось, активным остаётся прежний.
func (c *Connection) Switch(ep Endpoint) error {
	if c.isClosed() {
		return ErrClosed
	}
	transport, err := c.dial(ep)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = transport.Close()
		return ErrClosed
	}
	old := c.active
	if c.running {
		c.stopProbe(old)
	}
	c.active = newSession(ep, transport)
	if c.running {
		c.startProbe(c.active)
	}
	c.mu.Unlock()

	if err := old.transport.Close(); err != nil {
		c.logger.Warn("Failed to close previous transport",
			zap.String("endpoint", old.endpoint.URL),
			zap.Error(err))
	}
	if old.endpoint.URL != ep.URL {
		c.metrics.ForgetEndpoint(old.endpoint.URL)
	}

	c.logger.Info("Switched RPC endpoint",
		zap.String("from", old.endpoint.URL),
		zap.String("to", ep.URL),
		zap.String("network", ep.Network))
	return nil
}

func (c *Connection) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

func (c *Connection) current() *session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.active
}

// Endpoint возвращает активный эндпоинт.
func (c *Connection) Endpoint() Endpoint {
	return c.current().endpoint
}

// Transport возвращает транспорт активного эндпоинта.
func (c *Connection) Transport() blockchain.Transport {
	return c.current().transport
}

// Health возвращает снимок состояния здоровья активного эндпоинта.
func (c *Connection) Health() HealthState {
	return c.current().snapshot()
}

// Running сообщает, запущен ли мониторинг.
func (c *Connection) Running() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.running
}
