package config

import "fmt"

// Error reports a configuration file that exists but cannot be used.
type Error struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("invalid config %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying parse or validation failure.
func (e *Error) Unwrap() error {
	return e.Err
}
