// internal/utils/logger/logger_test.go
package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewWritesJSONFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "toolkit.log")
	l, err := New(&Config{LogFile: logFile, MaxSize: 1, MaxBackups: 1, MaxAge: 1})
	require.NoError(t, err)

	l.Info("health check finished", zap.String("endpoint", "http://localhost:8899"))
	_ = l.Sync()

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"endpoint":"http://localhost:8899"`)
	assert.Contains(t, string(data), `"timestamp"`)
}

func TestNewWithoutFile(t *testing.T) {
	l, err := New(&Config{Development: true})
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zap.DebugLevel))
}

func TestNewQuietWithoutFileDiscards(t *testing.T) {
	l, err := New(&Config{Quiet: true})
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zap.ErrorLevel))
}

func TestWithOperationAddsCorrelationID(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	opLogger := WithOperation(zap.New(core), "get_balance")
	opLogger.Info("attempt")

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "get_balance", fields["operation"])
	assert.NotEmpty(t, fields["correlation_id"])
}

func TestWithTransactionAddsSignature(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	WithTransaction(zap.New(core), "5xSig").Debug("submitted")

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "5xSig", fields["signature"])
	assert.Contains(t, fields, "tx_time")
}

func TestTrackPerformanceLogsStartAndDuration(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	end := TrackPerformance(zap.New(core), "sendAndConfirm")
	end()

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "Starting operation", entries[0].Message)
	assert.Equal(t, "Operation completed", entries[1].Message)
	fields := entries[1].ContextMap()
	assert.Equal(t, "sendAndConfirm", fields["operation"])
	assert.Contains(t, fields, "duration")
	assert.Equal(t, entries[0].ContextMap()["correlation_id"], fields["correlation_id"])
}
