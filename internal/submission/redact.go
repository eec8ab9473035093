package submission

import (
	"encoding/json"
	"log/slog"
)

// Mask replaces the password anywhere a request is rendered.
const Mask = "***"

// Redacted returns a copy of r whose password, if set, is Mask.
func (r Request) Redacted() Request {
	if r.SMTP == nil {
		return r
	}
	smtp := *r.SMTP
	if smtp.Password != "" {
		smtp.Password = Mask
	}
	r.SMTP = &smtp
	return r
}

// RedactedJSON is the indented, redacted rendering used by verbose output.
func (r Request) RedactedJSON() ([]byte, error) {
	return json.MarshalIndent(r.Redacted(), "", "  ")
}

// LogValue implements slog.LogValuer so a Request can be logged directly
// without leaking the password.
func (r Request) LogValue() slog.Value {
	red := r.Redacted()
	attrs := []slog.Attr{
		slog.String("url", red.URL),
		slog.String("kindle_email", red.KindleEmail),
		slog.Bool("dry_run", red.DryRun),
	}
	if red.SMTP != nil {
		attrs = append(attrs, slog.Group("smtp",
			slog.String("host", red.SMTP.Host),
			slog.Int("port", red.SMTP.Port),
			slog.String("user", red.SMTP.User),
			slog.String("from", red.SMTP.From),
			slog.Bool("use_starttls", red.SMTP.UseStartTLS),
			slog.Bool("use_ssl", red.SMTP.UseSSL),
			slog.String("password", red.SMTP.Password),
		))
	}
	if red.Limits != nil {
		attrs = append(attrs, slog.Int64("max_bytes", red.Limits.MaxBytes))
	}
	return slog.GroupValue(attrs...)
}
