// internal/blockchain/errors.go
package blockchain

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode машиночитаемый код категории ошибки.
type ErrorCode string

const (
	CodeConnectionInit      ErrorCode = "CONNECTION_INIT"
	CodeUnhealthyConnection ErrorCode = "UNHEALTHY_CONNECTION"
	CodeOperationExhausted  ErrorCode = "OPERATION_EXHAUSTED"
	CodeInvalidNetwork      ErrorCode = "INVALID_NETWORK"
	CodeInvalidCommitment   ErrorCode = "INVALID_COMMITMENT"
	CodeInvalidInput        ErrorCode = "INVALID_INPUT"
	CodeTransactionRejected ErrorCode = "TRANSACTION_REJECTED"
	CodeTxAmbiguous         ErrorCode = "TRANSACTION_AMBIGUOUS"
	CodeNotFound            ErrorCode = "NOT_FOUND"
)

// Error ошибка тулкита с кодом и контекстом.
type Error struct {
	Code      ErrorCode
	Message   string
	Context   map[string]interface{}
	Timestamp time.Time
	Err       error
}

// Error реализует интерфейс error
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap возвращает исходную ошибку
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError создает ошибку без вложенной причины.
func NewError(code ErrorCode, message string, ctx map[string]interface{}) *Error {
	return &Error{
		Code:      code,
		Message:   message,
		Context:   copyContext(ctx),
		Timestamp: time.Now(),
	}
}

// WrapError оборачивает err в ошибку с заданным кодом.
func WrapError(err error, code ErrorCode, message string, ctx map[string]interface{}) *Error {
	e := NewError(code, message, ctx)
	e.Err = err
	return e
}

// WithContext переоборачивает ошибку, добавляя контекст на границе компонента.
// Код вложенной ошибки тулкита сохраняется; прочие ошибки получают fallback.
func WithContext(err error, fallback ErrorCode, message string, ctx map[string]interface{}) error {
	if err == nil {
		return nil
	}

	var inner *Error
	if !errors.As(err, &inner) {
		return WrapError(err, fallback, message, ctx)
	}

	merged := copyContext(inner.Context)
	for k, v := range ctx {
		merged[k] = v
	}
	return &Error{
		Code:      inner.Code,
		Message:   message,
		Context:   merged,
		Timestamp: time.Now(),
		Err:       err,
	}
}

// CodeOf возвращает код первой ошибки тулкита в цепочке или пустую строку.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsCode проверяет код ошибки.
func IsCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

// IsTerminal сообщает, что ошибка логически окончательна и повтор бесполезен.
func IsTerminal(err error) bool {
	switch CodeOf(err) {
	case CodeConnectionInit,
		CodeInvalidNetwork,
		CodeInvalidCommitment,
		CodeInvalidInput,
		CodeTransactionRejected,
		CodeTxAmbiguous,
		CodeNotFound,
		CodeOperationExhausted:
		return true
	}
	return false
}

func copyContext(ctx map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(ctx))
	for k, v := range ctx {
		out[k] = v
	}
	return out
}
