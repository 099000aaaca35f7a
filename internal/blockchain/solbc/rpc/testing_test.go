// internal/blockchain/solbc/rpc/testing_test.go
package rpc

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/solana-toolkit/internal/blockchain"
	"github.com/rovshanmuradov/solana-toolkit/internal/blockchain/mocks"
)

// heightTransport считает probe-запросы без блокировок testify.
type heightTransport struct {
	mocks.MockTransport
	heightCalls atomic.Int64
	err         atomic.Value // heightErr
	closed      atomic.Bool
}

func (p *heightTransport) GetBlockHeight(ctx context.Context, _ solanarpc.CommitmentType) (uint64, error) {
	p.heightCalls.Add(1)
	if v, ok := p.err.Load().(heightErr); ok && v.err != nil {
		return 0, v.err
	}
	return 1000, nil
}

func (p *heightTransport) Close() error {
	p.closed.Store(true)
	return nil
}

// failWith задаёт ошибку probe-запроса; nil возвращает узел в норму.
func (p *heightTransport) failWith(err error) {
	p.err.Store(heightErr{err: err})
}

type heightErr struct{ err error }

// fakeClock сдвигает время на step при каждом вызове Now.
type fakeClock struct {
	mu   sync.Mutex
	t    time.Time
	step time.Duration
}

func newFakeClock(step time.Duration) *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), step: step}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = f.t.Add(f.step)
	return f.t
}

// sleepRecorder записывает задержки вместо реального ожидания.
type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *sleepRecorder) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	return ctx.Err()
}

func (r *sleepRecorder) Delays() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.delays...)
}

var (
	testEndpointA = Endpoint{Network: "devnet", URL: "https://api.devnet.solana.com", Commitment: solanarpc.CommitmentConfirmed}
	testEndpointB = Endpoint{Network: "localnet", URL: "http://127.0.0.1:8899", Commitment: solanarpc.CommitmentFinalized}
)

// factoryFor возвращает фабрику, выдающую транспорт по URL эндпоинта.
func factoryFor(transports map[string]blockchain.Transport) TransportFactory {
	return func(ep Endpoint) (blockchain.Transport, error) {
		t, ok := transports[ep.URL]
		if !ok {
			return nil, blockchain.NewError(blockchain.CodeConnectionInit, "no transport", map[string]interface{}{"endpoint": ep.URL})
		}
		return t, nil
	}
}

func newTestConnection(t *testing.T, transports map[string]blockchain.Transport, opts ...ConnectionOption) *Connection {
	t.Helper()
	conn, err := NewConnection(testEndpointA, factoryFor(transports), zaptest.NewLogger(t), opts...)
	require.NoError(t, err)
	return conn
}

func newTestExecutor(t *testing.T, conn *Connection, sleeper *sleepRecorder, policy RetryPolicy) *Executor {
	t.Helper()
	return NewExecutor(conn, zaptest.NewLogger(t),
		WithDefaultPolicy(policy),
		WithSleep(sleeper.Sleep),
	)
}
