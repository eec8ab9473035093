package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/vk/kindledrop/internal/submission"
)

// DefaultAddr is where `stk serve` listens unless told otherwise.
const DefaultAddr = ":8081"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	Addr       string
	ConfigPath string // empty means ~/.kindledrop/config.json
	EngineURL  string // overrides engineUrl from the config file
	Timeout    time.Duration

	LogFormat string
	LogLevel  string

	// DisableSessionStorage makes every remembered-address write a no-op.
	DisableSessionStorage bool
}

// NewConfig validates cfg and fills defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.Timeout < 0 {
		return nil, errors.New("timeout cannot be negative")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = submission.DefaultTimeout
	}
	if _, err := ParseLevel(cfg.LogLevel); err != nil {
		return nil, err
	}
	switch cfg.LogFormat {
	case "", "text", "json":
	default:
		return nil, fmt.Errorf("invalid log format %q: must be 'text' or 'json'", cfg.LogFormat)
	}
	return &cfg, nil
}
