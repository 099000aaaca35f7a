// internal/utils/metrics/collector_test.go
package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorRecordsAttempts(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)

	c.RecordAttempt("get_balance", "success", 10*time.Millisecond)
	c.RecordAttempt("get_balance", "success", 5*time.Millisecond)
	c.RecordAttempt("get_balance", "unhealthy", 0)

	cv := c.counter(AttemptCounterType)
	require.NotNil(t, cv)
	assert.Equal(t, 2.0, testutil.ToFloat64(cv.WithLabelValues("get_balance", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(cv.WithLabelValues("get_balance", "unhealthy")))
}

func TestCollectorHealthGauge(t *testing.T) {
	c, err := NewCollector(prometheus.NewRegistry())
	require.NoError(t, err)

	c.RecordProbe("https://api.devnet.solana.com", true, 20*time.Millisecond)
	gv := c.gauge(HealthGaugeType)
	assert.Equal(t, 1.0, testutil.ToFloat64(gv.WithLabelValues("https://api.devnet.solana.com")))

	c.RecordProbe("https://api.devnet.solana.com", false, 0)
	assert.Equal(t, 0.0, testutil.ToFloat64(gv.WithLabelValues("https://api.devnet.solana.com")))
}

func TestCollectorDoubleRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewCollector(reg)
	require.NoError(t, err)

	_, err = NewCollector(reg)
	assert.Error(t, err)
}

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.RecordAttempt("op", "success", time.Millisecond)
		c.RecordProbe("url", true, time.Millisecond)
		c.RecordTransaction("confirmed", time.Second)
		c.ForgetEndpoint("url")
		c.Reset()
	})
}
