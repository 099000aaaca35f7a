// internal/blockchain/solbc/rpc/errors.go
package rpc

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrRateLimit возникает при превышении лимита запросов
	ErrRateLimit = errors.New("rate limit exceeded")

	// ErrTimeout возникает при превышении времени ожидания
	ErrTimeout = errors.New("request timeout")

	// ErrConnectionFailed возникает при ошибке подключения
	ErrConnectionFailed = errors.New("connection failed")
)

// Error представляет ошибку RPC с дополнительным контекстом
type Error struct {
	Err     error
	Kind    error
	NodeURL string
	Method  string
}

// Error реализует интерфейс error
func (e *Error) Error() string {
	return fmt.Sprintf("RPC error [%s] at %s: %v", e.Method, e.NodeURL, e.Err)
}

// Unwrap возвращает оригинальную ошибку
func (e *Error) Unwrap() error {
	return e.Err
}

// Is позволяет сравнивать с ErrRateLimit, ErrTimeout и ErrConnectionFailed.
func (e *Error) Is(target error) bool {
	return e.Kind != nil && e.Kind == target
}

// NewError создает новую ошибку RPC и определяет её вид по тексту.
func NewError(err error, nodeURL, method string) error {
	return &Error{
		Err:     err,
		Kind:    classifyTransportError(err),
		NodeURL: nodeURL,
		Method:  method,
	}
}

// classifyTransportError сопоставляет типичные сетевые сбои с sentinel-ошибками.
func classifyTransportError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}

	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "429") || strings.Contains(errStr, "too many requests"):
		return ErrRateLimit
	case strings.Contains(errStr, "timeout"):
		return ErrTimeout
	case strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "eof"):
		return ErrConnectionFailed
	}
	return nil
}
