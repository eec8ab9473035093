package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/mail"
	"net/url"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hcldec"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/kindledrop/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

const (
	dirName  = ".kindledrop"
	fileName = "config.json"
)

// DefaultPath returns ~/.kindledrop/config.json for the current user.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate home directory: %w", err)
	}
	return filepath.Join(home, dirName, fileName), nil
}

// fileSpec is the decoding specification for the config file. Defaults and
// per-field checks live here so that diagnostics point at the offending
// JSON property.
var fileSpec = hcldec.ObjectSpec{
	"engineUrl": &hcldec.ValidateSpec{
		Wrapped: &hcldec.DefaultSpec{
			Primary: &hcldec.AttrSpec{Name: "engineUrl", Type: cty.String},
			Default: &hcldec.LiteralSpec{Value: cty.StringVal(DefaultEngineURL)},
		},
		Func: validateEngineURL,
	},
	"kindleEmail": &hcldec.ValidateSpec{
		Wrapped: &hcldec.AttrSpec{Name: "kindleEmail", Type: cty.String},
		Func:    validateEmail("kindleEmail"),
	},
	"smtp": &hcldec.BlockSpec{
		TypeName: "smtp",
		Nested: hcldec.ObjectSpec{
			"host": &hcldec.AttrSpec{Name: "host", Type: cty.String, Required: true},
			"port": &hcldec.ValidateSpec{
				Wrapped: &hcldec.DefaultSpec{
					Primary: &hcldec.AttrSpec{Name: "port", Type: cty.Number},
					Default: &hcldec.LiteralSpec{Value: cty.NumberIntVal(DefaultSMTPPort)},
				},
				Func: validatePositiveInt("port"),
			},
			"user": &hcldec.AttrSpec{Name: "user", Type: cty.String, Required: true},
			"from": &hcldec.ValidateSpec{
				Wrapped: &hcldec.AttrSpec{Name: "from", Type: cty.String, Required: true},
				Func:    validateEmail("from"),
			},
			"useStartTLS": &hcldec.DefaultSpec{
				Primary: &hcldec.AttrSpec{Name: "useStartTLS", Type: cty.Bool},
				Default: &hcldec.LiteralSpec{Value: cty.True},
			},
			"useSSL": &hcldec.DefaultSpec{
				Primary: &hcldec.AttrSpec{Name: "useSSL", Type: cty.Bool},
				Default: &hcldec.LiteralSpec{Value: cty.False},
			},
		},
	},
	"limits": &hcldec.BlockSpec{
		TypeName: "limits",
		Nested: hcldec.ObjectSpec{
			"maxBytes": &hcldec.ValidateSpec{
				Wrapped: &hcldec.DefaultSpec{
					Primary: &hcldec.AttrSpec{Name: "maxBytes", Type: cty.Number},
					Default: &hcldec.LiteralSpec{Value: cty.NumberIntVal(DefaultMaxBytes)},
				},
				Func: validatePositiveInt("maxBytes"),
			},
		},
	},
}

// fileModel mirrors fileSpec. Optional scalars are pointers because gocty
// refuses to place a null into a plain string.
type fileModel struct {
	EngineURL   string  `cty:"engineUrl"`
	KindleEmail *string `cty:"kindleEmail"`
	SMTP        *SMTP   `cty:"smtp"`
	Limits      *Limits `cty:"limits"`
}

// Resolve reads and validates the configuration at path. A missing file is
// not an error and yields Default().
func Resolve(ctx context.Context, path string) (*Config, error) {
	logger := ctxlog.FromContext(ctx)

	src, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Debug("Config file not found, using defaults.", "path", path)
			return Default(), nil
		}
		return nil, &Error{Path: path, Err: err}
	}

	cfg, err := Parse(src, path)
	if err != nil {
		return nil, err
	}
	logger.Debug("Config resolved.", "path", path, "engine_url", cfg.EngineURL, "smtp", cfg.SMTP != nil, "limits", cfg.Limits != nil)
	return cfg, nil
}

// Parse decodes raw JSON configuration. filename is only used in diagnostics.
func Parse(src []byte, filename string) (*Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseJSON(src, filename)
	if diags.HasErrors() {
		return nil, &Error{Path: filename, Err: diags}
	}

	// Unknown top-level keys are tolerated; nested blocks are strict, which
	// is what rejects a persisted smtp.password.
	val, _, diags := hcldec.PartialDecode(file.Body, fileSpec, nil)
	if diags.HasErrors() {
		return nil, &Error{Path: filename, Err: diags}
	}

	var raw fileModel
	if err := gocty.FromCtyValue(val, &raw); err != nil {
		return nil, &Error{Path: filename, Err: err}
	}

	cfg := &Config{
		EngineURL: raw.EngineURL,
		SMTP:      raw.SMTP,
		Limits:    raw.Limits,
	}
	if raw.KindleEmail != nil {
		cfg.KindleEmail = *raw.KindleEmail
	}
	return cfg, nil
}

// IsEmail reports whether s is a bare, well-formed email address.
func IsEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	if err != nil {
		return false
	}
	return addr.Address == s
}

func validateEngineURL(v cty.Value) hcl.Diagnostics {
	if v.IsNull() || !v.IsKnown() {
		return nil
	}
	u, err := url.Parse(v.AsString())
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Invalid engine URL",
			Detail:   fmt.Sprintf("engineUrl must be an absolute http(s) URL, got %q.", v.AsString()),
		}}
	}
	return nil
}

func validateEmail(name string) func(cty.Value) hcl.Diagnostics {
	return func(v cty.Value) hcl.Diagnostics {
		if v.IsNull() || !v.IsKnown() {
			return nil
		}
		if !IsEmail(v.AsString()) {
			return hcl.Diagnostics{{
				Severity: hcl.DiagError,
				Summary:  "Invalid email address",
				Detail:   fmt.Sprintf("%s must be a valid email address, got %q.", name, v.AsString()),
			}}
		}
		return nil
	}
}

func validatePositiveInt(name string) func(cty.Value) hcl.Diagnostics {
	return func(v cty.Value) hcl.Diagnostics {
		if v.IsNull() || !v.IsKnown() {
			return nil
		}
		bf := v.AsBigFloat()
		if !bf.IsInt() || bf.Sign() <= 0 {
			return hcl.Diagnostics{{
				Severity: hcl.DiagError,
				Summary:  "Invalid number",
				Detail:   fmt.Sprintf("%s must be a positive integer, got %s.", name, bf.Text('f', -1)),
			}}
		}
		return nil
	}
}
