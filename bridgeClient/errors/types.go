package errors

import (
	"fmt"
)

// ErrorCode represents different categories of errors
type ErrorCode string

const (
	// ErrCodeFormat indicates malformed input (wrong length, bad hex, bad address)
	ErrCodeFormat ErrorCode = "FORMAT"

	// ErrCodeRange indicates a numeric field outside its declared width
	ErrCodeRange ErrorCode = "RANGE"

	// ErrCodeUnknownInstruction indicates an instruction id with no registered variant
	ErrCodeUnknownInstruction ErrorCode = "UNKNOWN_INSTRUCTION"

	// ErrCodeNotFound indicates a lookup that produced no result
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeNetwork indicates network-related errors
	ErrCodeNetwork ErrorCode = "NETWORK"

	// ErrCodeDatabase indicates database operation errors
	ErrCodeDatabase ErrorCode = "DATABASE"

	// ErrCodeTransaction indicates a rejected or failed ledger/chain transaction
	ErrCodeTransaction ErrorCode = "TRANSACTION"

	// ErrCodeReverted indicates a chain transaction rejected by contract execution
	ErrCodeReverted ErrorCode = "REVERTED"

	// ErrCodeConfig indicates configuration errors
	ErrCodeConfig ErrorCode = "CONFIG"

	// ErrCodeRPC indicates RPC-related errors
	ErrCodeRPC ErrorCode = "RPC"

	// ErrCodeTimeout indicates timeout errors
	ErrCodeTimeout ErrorCode = "TIMEOUT"

	// ErrCodeInternal indicates internal system errors
	ErrCodeInternal ErrorCode = "INTERNAL"
)

// Severity represents the severity level of an error
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
	SeverityInfo     Severity = "INFO"
)

// ChainError represents an error raised while talking to, or validating data for, one of the ledgers
type ChainError struct {
	Code     ErrorCode              `json:"code"`
	Message  string                 `json:"message"`
	Chain    string                 `json:"chain,omitempty"`
	Severity Severity               `json:"severity"`
	Cause    error                  `json:"-"`
	Context  map[string]interface{} `json:"context,omitempty"`
}

// NewChainError creates a new ChainError
func NewChainError(code ErrorCode, chain, message string, cause error) *ChainError {
	return &ChainError{
		Code:     code,
		Message:  message,
		Chain:    chain,
		Severity: determineSeverity(code),
		Cause:    cause,
		Context:  make(map[string]interface{}),
	}
}

// Error implements the error interface
func (e *ChainError) Error() string {
	msg := e.Message
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	if e.Chain != "" {
		return fmt.Sprintf("[%s:%s] %s", e.Chain, e.Code, msg)
	}
	return fmt.Sprintf("[%s] %s", e.Code, msg)
}

// Unwrap returns the underlying cause
func (e *ChainError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *ChainError) WithContext(key string, value interface{}) *ChainError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithSeverity overrides the default severity
func (e *ChainError) WithSeverity(severity Severity) *ChainError {
	e.Severity = severity
	return e
}

// IsRetryable returns true if the error is retryable
func (e *ChainError) IsRetryable() bool {
	switch e.Code {
	case ErrCodeNetwork, ErrCodeRPC, ErrCodeTimeout:
		return true
	case ErrCodeDatabase:
		return e.Severity != SeverityCritical
	default:
		return false
	}
}

// IsValidation reports whether the code is one of the input validation kinds.
func (e *ChainError) IsValidation() bool {
	switch e.Code {
	case ErrCodeFormat, ErrCodeRange, ErrCodeUnknownInstruction, ErrCodeNotFound:
		return true
	}
	return false
}

func determineSeverity(code ErrorCode) Severity {
	switch code {
	case ErrCodeInternal:
		return SeverityCritical
	case ErrCodeDatabase:
		return SeverityHigh
	case ErrCodeTransaction, ErrCodeReverted, ErrCodeNetwork, ErrCodeRPC, ErrCodeTimeout:
		return SeverityMedium
	case ErrCodeFormat, ErrCodeRange, ErrCodeUnknownInstruction, ErrCodeConfig:
		return SeverityLow
	default:
		return SeverityInfo
	}
}

// Common error constructors

// NewFormatError creates a format error
func NewFormatError(message string) *ChainError {
	return NewChainError(ErrCodeFormat, "", message, nil)
}

// NewFormatErrorf creates a format error with a formatted message
func NewFormatErrorf(format string, args ...interface{}) *ChainError {
	return NewChainError(ErrCodeFormat, "", fmt.Sprintf(format, args...), nil)
}

// NewRangeError creates a range error naming the offending field
func NewRangeError(field, message string) *ChainError {
	return NewChainError(ErrCodeRange, "", field+": "+message, nil).WithContext("field", field)
}

// NewUnknownInstructionError creates an error for an unregistered instruction id
func NewUnknownInstructionError(id byte) *ChainError {
	return NewChainError(ErrCodeUnknownInstruction, "", fmt.Sprintf("unknown instruction id 0x%02x", id), nil).
		WithContext("id", id)
}

// NewNotFoundError creates a not-found error
func NewNotFoundError(chain, message string) *ChainError {
	return NewChainError(ErrCodeNotFound, chain, message, nil)
}

// NewNetworkError creates a network error
func NewNetworkError(chain, message string, cause error) *ChainError {
	return NewChainError(ErrCodeNetwork, chain, message, cause)
}

// NewDatabaseError creates a database error
func NewDatabaseError(message string, cause error) *ChainError {
	return NewChainError(ErrCodeDatabase, "", message, cause)
}

// NewTransactionError creates a transaction error
func NewTransactionError(chain, message string, cause error) *ChainError {
	return NewChainError(ErrCodeTransaction, chain, message, cause)
}

// NewRevertError creates an error for a transaction the contract reverted
func NewRevertError(chain, message string, cause error) *ChainError {
	return NewChainError(ErrCodeReverted, chain, message, cause)
}

// NewTimeoutError creates a timeout error
func NewTimeoutError(chain, message string, cause error) *ChainError {
	return NewChainError(ErrCodeTimeout, chain, message, cause)
}

// NewConfigError creates a configuration error
func NewConfigError(message string) *ChainError {
	return NewChainError(ErrCodeConfig, "", message, nil)
}

// NewRPCError creates an RPC error
func NewRPCError(chain, message string, cause error) *ChainError {
	return NewChainError(ErrCodeRPC, chain, message, cause)
}

// NewInternalError creates an internal error
func NewInternalError(chain, message string, cause error) *ChainError {
	return NewChainError(ErrCodeInternal, chain, message, cause)
}
