package solbc

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"go.uber.org/zap"
)

// AnchorError represents an error from Anchor framework
type AnchorError struct {
	Code        int    `json:"code"`
	Name        string `json:"name"`
	Msg         string `json:"msg"`
	ProgramID   string `json:"programId,omitempty"`
	Instruction int    `json:"instruction,omitempty"`
}

// ErrorAnalyzer provides methods to analyze Solana transaction errors
type ErrorAnalyzer struct {
	logger *zap.Logger
}

// NewErrorAnalyzer creates a new ErrorAnalyzer instance
func NewErrorAnalyzer(logger *zap.Logger) *ErrorAnalyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ErrorAnalyzer{
		logger: logger.Named("error-analyzer"),
	}
}

// IsSimulationFailure reports whether the node rejected the transaction in preflight.
func IsSimulationFailure(err error) bool {
	var rpcErr *jsonrpc.RPCError
	if !errors.As(err, &rpcErr) {
		return false
	}
	return strings.Contains(rpcErr.Message, "Transaction simulation failed")
}

// IsBlockhashNotFound reports a stale or unknown blockhash; resubmitting with a fresh one may succeed.
func IsBlockhashNotFound(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if strings.Contains(msg, "BlockhashNotFound") || strings.Contains(msg, "Blockhash not found") {
		return true
	}
	var rpcErr *jsonrpc.RPCError
	if errors.As(err, &rpcErr) {
		if dataMap, ok := rpcErr.Data.(map[string]interface{}); ok {
			if s, ok := dataMap["err"].(string); ok && s == "BlockhashNotFound" {
				return true
			}
		}
	}
	return false
}

// AnalyzeRPCError analyzes a jsonrpc.RPCError and extracts detailed information
func (ea *ErrorAnalyzer) AnalyzeRPCError(err error) map[string]interface{} {
	if err == nil {
		return map[string]interface{}{
			"error": "No error provided",
		}
	}

	var rpcErr *jsonrpc.RPCError
	if !errors.As(err, &rpcErr) {
		return map[string]interface{}{
			"type":    "generic_error",
			"message": err.Error(),
		}
	}

	result := map[string]interface{}{
		"type":    "rpc_error",
		"code":    rpcErr.Code,
		"message": rpcErr.Message,
	}

	if strings.Contains(rpcErr.Message, "Transaction simulation failed") {
		result["simulation_failed"] = true

		if dataMap, ok := rpcErr.Data.(map[string]interface{}); ok {
			if logs, ok := dataMap["logs"].([]interface{}); ok {
				result["logs"] = logs

				// Look for Anchor error in logs
				for _, logEntry := range logs {
					if logStr, ok := logEntry.(string); ok && strings.Contains(logStr, "AnchorError occurred") {
						anchorErr := ea.parseAnchorErrorLog(logStr)
						result["anchor_error"] = anchorErr

						ea.logger.Warn("Anchor error detected",
							zap.Int("code", anchorErr.Code),
							zap.String("name", anchorErr.Name),
							zap.String("message", anchorErr.Msg))
					}
				}
			}

			// raw instruction error, kept as reported
			if instrErr, ok := dataMap["err"]; ok && instrErr != nil {
				result["instruction_error"] = instrErr
			}
		}
	}

	return result
}

// parseAnchorErrorLog parses an Anchor error log string
// Example: "Program log: AnchorError occurred. Error Code: InstructionFallbackNotFound. Error Number: 101. Error Message: Fallback functions are not supported."
func (ea *ErrorAnalyzer) parseAnchorErrorLog(logStr string) AnchorError {
	result := AnchorError{}

	if parts := strings.Split(logStr, "Error Number:"); len(parts) > 1 {
		numParts := strings.Split(parts[1], ".")
		if len(numParts) > 0 {
			fmt.Sscanf(strings.TrimSpace(numParts[0]), "%d", &result.Code)
		}
	}

	if parts := strings.Split(logStr, "Error Code:"); len(parts) > 1 {
		nameParts := strings.Split(parts[1], ".")
		if len(nameParts) > 0 {
			result.Name = strings.TrimSpace(nameParts[0])
		}
	}

	if parts := strings.Split(logStr, "Error Message:"); len(parts) > 1 {
		result.Msg = strings.TrimSpace(strings.Split(parts[1], ".")[0])
	}

	return result
}

// FormatErrorAnalysis formats the error analysis for logging or display
func (ea *ErrorAnalyzer) FormatErrorAnalysis(analysis map[string]interface{}) string {
	jsonBytes, err := json.MarshalIndent(analysis, "", "  ")
	if err != nil {
		return fmt.Sprintf("Error formatting analysis: %v", err)
	}
	return string(jsonBytes)
}
