// internal/blockchain/solbc/rpc/health.go
package rpc

import (
	"context"
	"time"

	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

const (
	healthCheckInterval    = 30 * time.Second
	healthLatencyThreshold = 5 * time.Second
	healthProbeTimeout     = 10 * time.Second
)

// HealthConfig параметры проверки здоровья.
type HealthConfig struct {
	Interval         time.Duration
	LatencyThreshold time.Duration
	ProbeTimeout     time.Duration
}

// DefaultHealthConfig возвращает конфигурацию по умолчанию: проверка раз в 30 секунд,
// узел здоров, если ответ пришёл быстрее 5 секунд.
func DefaultHealthConfig() HealthConfig {
	return HealthConfig{
		Interval:         healthCheckInterval,
		LatencyThreshold: healthLatencyThreshold,
		ProbeTimeout:     healthProbeTimeout,
	}
}

func (h HealthConfig) withDefaults() HealthConfig {
	def := DefaultHealthConfig()
	if h.Interval <= 0 {
		h.Interval = def.Interval
	}
	if h.LatencyThreshold <= 0 {
		h.LatencyThreshold = def.LatencyThreshold
	}
	if h.ProbeTimeout <= 0 {
		h.ProbeTimeout = def.ProbeTimeout
	}
	return h
}

// HealthState снимок состояния здоровья активного соединения.
type HealthState struct {
	IsHealthy     bool
	LastCheckedAt time.Time
	Latency       time.Duration
	LastError     string
	Endpoint      string
	Network       string
	Commitment    solanarpc.CommitmentType
}

// Checked сообщает, была ли уже хотя бы одна проверка.
func (h HealthState) Checked() bool {
	return !h.LastCheckedAt.IsZero()
}

// Staleness возвращает время с последней проверки. Устаревание не влияет на IsHealthy.
func (h HealthState) Staleness(now time.Time) time.Duration {
	if !h.Checked() {
		return 0
	}
	return now.Sub(h.LastCheckedAt)
}

func (c *Connection) startProbe(s *session) {
	parent := c.parent
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel
	s.done = make(chan struct{})
	go c.probeLoop(ctx, s)
}

func (c *Connection) stopProbe(s *session) {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel = nil
}

func (c *Connection) probeLoop(ctx context.Context, s *session) {
	defer close(s.done)

	ticker := time.NewTicker(c.health.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.probe(ctx, s)
		}
	}
}

// probe выполняет одну проверку сессии. Ошибки не пробрасываются, а отражаются во флаге.
func (c *Connection) probe(ctx context.Context, s *session) HealthState {
	probeCtx, cancel := context.WithTimeout(ctx, c.health.ProbeTimeout)
	defer cancel()

	start := c.now()
	_, err := s.transport.GetBlockHeight(probeCtx, s.endpoint.Commitment)
	elapsed := c.now().Sub(start)

	// цикл остановлен во время запроса
	if ctx.Err() != nil {
		return s.snapshot()
	}

	healthy := err == nil && elapsed < c.health.LatencyThreshold
	wasHealthy := s.isHealthy()
	s.record(healthy, c.now(), elapsed, err)
	c.metrics.RecordProbe(s.endpoint.URL, healthy, elapsed)

	switch {
	case err != nil:
		c.logger.Warn("Node health check failed",
			zap.String("url", s.endpoint.URL),
			zap.Error(err))
	case !healthy:
		c.logger.Warn("Node responded too slowly",
			zap.String("url", s.endpoint.URL),
			zap.Duration("latency", elapsed),
			zap.Duration("threshold", c.health.LatencyThreshold))
	case !wasHealthy:
		c.logger.Info("Node is healthy again",
			zap.String("url", s.endpoint.URL),
			zap.Duration("latency", elapsed))
	}

	return s.snapshot()
}

// CheckNow синхронно проверяет активный эндпоинт и возвращает новый снимок.
func (c *Connection) CheckNow(ctx context.Context) HealthState {
	return c.probe(ctx, c.current())
}
