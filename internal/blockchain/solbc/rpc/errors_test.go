// internal/blockchain/solbc/rpc/errors_test.go
package rpc

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewError_Classification(t *testing.T) {
	tests := []struct {
		err  error
		kind error
	}{
		{errors.New("429 Too Many Requests"), ErrRateLimit},
		{fmt.Errorf("call: %w", context.DeadlineExceeded), ErrTimeout},
		{errors.New("i/o timeout"), ErrTimeout},
		{errors.New("dial tcp: connection refused"), ErrConnectionFailed},
		{errors.New("unexpected EOF"), ErrConnectionFailed},
		{errors.New("something else"), nil},
	}

	for _, tt := range tests {
		err := NewError(tt.err, "http://node", "getBalance")
		if tt.kind != nil {
			assert.ErrorIs(t, err, tt.kind, tt.err.Error())
		} else {
			assert.NotErrorIs(t, err, ErrRateLimit)
			assert.NotErrorIs(t, err, ErrTimeout)
			assert.NotErrorIs(t, err, ErrConnectionFailed)
		}
		assert.ErrorIs(t, err, tt.err)
		assert.Contains(t, err.Error(), "getBalance")
	}
}
