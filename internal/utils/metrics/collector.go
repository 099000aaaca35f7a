// internal/utils/metrics/collector.go
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricType представляет тип метрики
type MetricType string

const (
	AttemptCounterType      MetricType = "rpc_attempts"
	RPCLatencyType          MetricType = "rpc_latency"
	HealthGaugeType         MetricType = "rpc_healthy"
	ProbeLatencyType        MetricType = "probe_latency"
	TransactionCounterType  MetricType = "transaction_counter"
	TransactionDurationType MetricType = "transaction_duration"
)

const namespace = "solana_toolkit"

// Collector управляет набором метрик тулкита.
// Nil-коллектор допустим: все методы записи в этом случае ничего не делают.
type Collector struct {
	metrics sync.Map
}

// NewCollector создает коллектор и регистрирует метрики в reg.
// Если reg равен nil, используется prometheus.DefaultRegisterer.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &Collector{}
	for metricType, metric := range newMetricSet() {
		if err := reg.Register(metric); err != nil {
			return nil, err
		}
		c.metrics.Store(metricType, metric)
	}
	return c, nil
}

// Reset сбрасывает все метрики (полезно для тестирования)
func (c *Collector) Reset() {
	if c == nil {
		return
	}
	c.metrics.Range(func(_, value interface{}) bool {
		switch m := value.(type) {
		case *prometheus.CounterVec:
			m.Reset()
		case *prometheus.GaugeVec:
			m.Reset()
		case *prometheus.HistogramVec:
			m.Reset()
		}
		return true
	})
}

func (c *Collector) counter(t MetricType) *prometheus.CounterVec {
	if c == nil {
		return nil
	}
	v, ok := c.metrics.Load(t)
	if !ok {
		return nil
	}
	cv, _ := v.(*prometheus.CounterVec)
	return cv
}

func (c *Collector) histogram(t MetricType) *prometheus.HistogramVec {
	if c == nil {
		return nil
	}
	v, ok := c.metrics.Load(t)
	if !ok {
		return nil
	}
	hv, _ := v.(*prometheus.HistogramVec)
	return hv
}

func (c *Collector) gauge(t MetricType) *prometheus.GaugeVec {
	if c == nil {
		return nil
	}
	v, ok := c.metrics.Load(t)
	if !ok {
		return nil
	}
	gv, _ := v.(*prometheus.GaugeVec)
	return gv
}

func newMetricSet() map[MetricType]prometheus.Collector {
	return map[MetricType]prometheus.Collector{
		AttemptCounterType: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rpc_attempts_total",
				Help:      "Attempts made by the retry executor by outcome",
			},
			[]string{"operation", "outcome"},
		),
		RPCLatencyType: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "rpc_latency_seconds",
				Help:      "Latency of a single executor attempt in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
			},
			[]string{"operation"},
		),
		HealthGaugeType: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "rpc_healthy",
				Help:      "1 if the last probe of the active endpoint was healthy",
			},
			[]string{"endpoint"},
		),
		ProbeLatencyType: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "probe_latency_seconds",
				Help:      "Health probe round trip in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
			},
			[]string{"endpoint"},
		),
		TransactionCounterType: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transactions_total",
				Help:      "Total number of transactions by terminal status",
			},
			[]string{"status"},
		),
		TransactionDurationType: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "transaction_duration_seconds",
				Help:      "Transaction lifecycle duration in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
			},
			[]string{"status"},
		),
	}
}
