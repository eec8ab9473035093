package config

const (
	// DefaultEngineURL is used when the file omits engineUrl.
	DefaultEngineURL = "http://localhost:8080"
	// DefaultSMTPPort is used when the smtp block omits port.
	DefaultSMTPPort = 587
	// DefaultMaxBytes is 30 MiB.
	DefaultMaxBytes int64 = 30 * 1024 * 1024
)

// Config is the resolved, validated configuration.
type Config struct {
	EngineURL   string  `cty:"engineUrl"`
	KindleEmail string  `cty:"kindleEmail"`
	SMTP        *SMTP   `cty:"smtp"`
	Limits      *Limits `cty:"limits"`
}

// SMTP describes the outgoing mail transport the engine should use. It never
// carries a password.
type SMTP struct {
	Host        string `cty:"host"`
	Port        int    `cty:"port"`
	User        string `cty:"user"`
	From        string `cty:"from"`
	UseStartTLS bool   `cty:"useStartTLS"`
	UseSSL      bool   `cty:"useSSL"`
}

// Limits bounds what the engine is allowed to download.
type Limits struct {
	MaxBytes int64 `cty:"maxBytes"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{EngineURL: DefaultEngineURL}
}

// HasAddress reports whether a default delivery address is configured.
func (c *Config) HasAddress() bool {
	return c != nil && c.KindleEmail != ""
}
