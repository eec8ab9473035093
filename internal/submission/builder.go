package submission

import (
	"strings"

	"github.com/vk/kindledrop/internal/config"
)

// ResolveAddress picks the delivery address: the explicit one wins over the
// configured default. The result may be empty.
func ResolveAddress(cfg *config.Config, override string) string {
	if v := strings.TrimSpace(override); v != "" {
		return v
	}
	if cfg != nil {
		return strings.TrimSpace(cfg.KindleEmail)
	}
	return ""
}

// EngineURL picks the engine base address: explicit override, then config,
// then config.DefaultEngineURL.
func EngineURL(cfg *config.Config, override string) string {
	if v := strings.TrimSpace(override); v != "" {
		return v
	}
	if cfg != nil && cfg.EngineURL != "" {
		return cfg.EngineURL
	}
	return config.DefaultEngineURL
}

// Build merges configuration and per-invocation input into a Request. The
// only side effect is the single password read from secrets, and only when
// cfg carries a transport descriptor.
func Build(cfg *config.Config, in Input, secrets SecretProvider) Request {
	req := Request{
		URL:         strings.TrimSpace(in.URL),
		KindleEmail: ResolveAddress(cfg, in.Address),
		DryRun:      in.DryRun,
	}
	if cfg == nil {
		return req
	}

	if cfg.SMTP != nil {
		smtp := &SMTP{
			Host:        cfg.SMTP.Host,
			Port:        cfg.SMTP.Port,
			User:        cfg.SMTP.User,
			From:        cfg.SMTP.From,
			UseStartTLS: cfg.SMTP.UseStartTLS,
			UseSSL:      cfg.SMTP.UseSSL,
		}
		if secrets != nil {
			if pass, ok := secrets.SMTPPassword(); ok {
				smtp.Password = pass
			}
		}
		req.SMTP = smtp
	}

	if cfg.Limits != nil {
		req.Limits = &Limits{MaxBytes: cfg.Limits.MaxBytes}
	}
	return req
}
