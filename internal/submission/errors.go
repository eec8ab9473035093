package submission

import "fmt"

// TransportError means the engine could not be reached, timed out, or
// answered with a non-2xx status.
type TransportError struct {
	// StatusCode is zero when no HTTP response was received.
	StatusCode int
	Message    string
	// Body holds the raw error body, when there was one, for verbose output.
	Body []byte
	Err  error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("engine returned HTTP %d", e.StatusCode)
	}
	return "engine request failed"
}

// Unwrap returns the underlying network error, if any.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// EngineError means the engine answered but reported ok=false.
type EngineError struct {
	Message  string
	Response *Response
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	return e.Message
}
