// internal/utils/metrics/metrics.go
package metrics

import (
	"time"
)

// RecordAttempt записывает попытку исполнителя и её длительность.
func (c *Collector) RecordAttempt(operation, outcome string, duration time.Duration) {
	if cv := c.counter(AttemptCounterType); cv != nil {
		cv.WithLabelValues(operation, outcome).Inc()
	}
	if duration <= 0 {
		return
	}
	if hv := c.histogram(RPCLatencyType); hv != nil {
		hv.WithLabelValues(operation).Observe(duration.Seconds())
	}
}

// RecordProbe записывает результат проверки здоровья узла.
func (c *Collector) RecordProbe(endpoint string, healthy bool, latency time.Duration) {
	if gv := c.gauge(HealthGaugeType); gv != nil {
		value := 0.0
		if healthy {
			value = 1
		}
		gv.WithLabelValues(endpoint).Set(value)
	}
	if hv := c.histogram(ProbeLatencyType); hv != nil && latency > 0 {
		hv.WithLabelValues(endpoint).Observe(latency.Seconds())
	}
}

// ForgetEndpoint удаляет серии эндпоинта после переключения сети.
func (c *Collector) ForgetEndpoint(endpoint string) {
	if gv := c.gauge(HealthGaugeType); gv != nil {
		gv.DeleteLabelValues(endpoint)
	}
	if hv := c.histogram(ProbeLatencyType); hv != nil {
		hv.DeleteLabelValues(endpoint)
	}
}

// RecordTransaction записывает терминальный статус транзакции
func (c *Collector) RecordTransaction(status string, duration time.Duration) {
	if cv := c.counter(TransactionCounterType); cv != nil {
		cv.WithLabelValues(status).Inc()
	}
	if hv := c.histogram(TransactionDurationType); hv != nil {
		hv.WithLabelValues(status).Observe(duration.Seconds())
	}
}
