package submission

import (
	"os"
	"strings"
)

// PasswordEnv is the environment variable holding the SMTP password.
const PasswordEnv = "KINDLEDROP_SMTP_PASS"

// SecretProvider supplies the transport password. It is the only way a
// password reaches a Request.
type SecretProvider interface {
	SMTPPassword() (string, bool)
}

// EnvSecrets reads the password from the process environment.
type EnvSecrets struct {
	Key    string
	Lookup func(string) (string, bool)
}

// NewEnvSecrets returns a provider reading PasswordEnv via os.LookupEnv.
func NewEnvSecrets() *EnvSecrets {
	return &EnvSecrets{Key: PasswordEnv, Lookup: os.LookupEnv}
}

// SMTPPassword implements SecretProvider. Blank values count as absent.
func (e *EnvSecrets) SMTPPassword() (string, bool) {
	lookup := e.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	key := e.Key
	if key == "" {
		key = PasswordEnv
	}
	v, ok := lookup(key)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return v, true
}

// StaticSecret is a fixed password, mostly useful in tests.
type StaticSecret string

// SMTPPassword implements SecretProvider.
func (s StaticSecret) SMTPPassword() (string, bool) {
	return string(s), s != ""
}

// NoSecret never yields a password.
type NoSecret struct{}

// SMTPPassword implements SecretProvider.
func (NoSecret) SMTPPassword() (string, bool) {
	return "", false
}
