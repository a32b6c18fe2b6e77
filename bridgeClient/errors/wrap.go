package errors

import (
	"errors"
	"strings"

	pkgerrors "github.com/pkg/errors"
)

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	return pkgerrors.Wrap(err, message)
}

// Wrapf wraps an error with formatted message
func Wrapf(err error, format string, args ...interface{}) error {
	return pkgerrors.Wrapf(err, format, args...)
}

// WrapChainError wraps an error as a ChainError if it isn't already one
func WrapChainError(err error, code ErrorCode, chain, message string) *ChainError {
	if err == nil {
		return nil
	}

	var chainErr *ChainError
	if errors.As(err, &chainErr) {
		chainErr.WithContext("wrapped_message", message)
		if chain != "" && chainErr.Chain == "" {
			chainErr.Chain = chain
		}
		return chainErr
	}

	return NewChainError(code, chain, message, err)
}

// Is checks if an error is of a specific type
func Is(err error, target error) bool {
	return errors.Is(err, target)
}

// As checks if an error can be assigned to a target type
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// IsChainError checks if an error is a ChainError with specific code
func IsChainError(err error, code ErrorCode) bool {
	var chainErr *ChainError
	if errors.As(err, &chainErr) {
		return chainErr.Code == code
	}
	return false
}

// IsValidation reports whether err carries one of the input validation codes.
// The CLI maps these to exit status 2.
func IsValidation(err error) bool {
	var chainErr *ChainError
	if errors.As(err, &chainErr) {
		return chainErr.IsValidation()
	}
	return false
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var chainErr *ChainError
	if errors.As(err, &chainErr) {
		return chainErr.IsRetryable()
	}

	errStr := strings.ToLower(err.Error())
	for _, pattern := range []string{
		"connection refused",
		"connection reset",
		"timeout",
		"temporary failure",
		"too many requests",
		"rate limit",
	} {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}
