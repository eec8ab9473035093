package cli

import (
	"errors"
	"strconv"
)

// Process exit codes.
const (
	ExitOK      = 0
	ExitFailure = 1 // engine-reported or transport failure
	ExitUsage   = 2 // missing input or unusable configuration
)

// ExitError is a custom error type that includes a specific exit code. An
// empty Message means the failure has already been rendered.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "exit status " + strconv.Itoa(e.Code)
}

// Unwrap exposes the classified cause (UsageError, config.Error,
// submission.TransportError, submission.EngineError).
func (e *ExitError) Unwrap() error {
	return e.Err
}

// UsageError means required input is missing. It never reaches the engine.
type UsageError struct {
	Message string
}

// Error implements the error interface.
func (e *UsageError) Error() string {
	return e.Message
}

// ExitCode maps any error returned by Run to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	var usageErr *UsageError
	if errors.As(err, &usageErr) {
		return ExitUsage
	}
	return ExitFailure
}
