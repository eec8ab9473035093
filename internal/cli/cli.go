package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vk/kindledrop/internal/app"
	"github.com/vk/kindledrop/internal/config"
	"github.com/vk/kindledrop/internal/ctxlog"
	"github.com/vk/kindledrop/internal/submission"
)

// Env is the process boundary the commands run against. Zero fields fall
// back to the real process: os.Stdout, os.Stderr, the environment secret,
// the config file on disk and an HTTP engine client.
type Env struct {
	Stdout    io.Writer
	Stderr    io.Writer
	Secrets   submission.SecretProvider
	NewLoader func(path string) config.Loader
	NewSender func(baseURL string) submission.Sender
}

func (e Env) withDefaults() Env {
	if e.Stdout == nil {
		e.Stdout = os.Stdout
	}
	if e.Stderr == nil {
		e.Stderr = os.Stderr
	}
	if e.Secrets == nil {
		e.Secrets = submission.NewEnvSecrets()
	}
	if e.NewLoader == nil {
		e.NewLoader = func(path string) config.Loader { return config.NewFileLoader(path) }
	}
	if e.NewSender == nil {
		e.NewSender = func(baseURL string) submission.Sender { return submission.NewClient(baseURL) }
	}
	return e
}

// Version is reported by `stk --version`.
var Version = "0.1.0"

type rootFlags struct {
	configPath string
	logLevel   string
	logFormat  string
}

// NewRootCommand builds the `stk` command tree.
func NewRootCommand(env Env) *cobra.Command {
	env = env.withDefaults()
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:     "stk",
		Short:   "Send web documents to a Kindle",
		Version: Version,
		Long: `stk asks a KindleDrop engine to download a document by URL and mail it
to a Kindle address.

Usage:
  stk send <url> [flags]
  stk serve [flags]`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := app.ParseLevel(flags.logLevel); err != nil {
				return &UsageError{Message: err.Error()}
			}
			if flags.logFormat != "text" && flags.logFormat != "json" {
				return &UsageError{Message: fmt.Sprintf("invalid log format %q: must be 'text' or 'json'", flags.logFormat)}
			}
			logger := app.NewLogger(flags.logLevel, flags.logFormat, env.Stderr)
			cmd.SetContext(ctxlog.WithLogger(cmd.Context(), logger))
			logger.Debug("Arguments parsed successfully.", "command", cmd.Name())
			return nil
		},
	}
	root.SetOut(env.Stdout)
	root.SetErr(env.Stderr)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &UsageError{Message: err.Error()}
	})

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "Path to the config file (default ~/.kindledrop/config.json).")
	pf.StringVar(&flags.logLevel, "log-level", "warn", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	pf.StringVar(&flags.logFormat, "log-format", "text", "Log output format. Options: 'text' or 'json'.")

	root.AddCommand(newSendCommand(env, flags), newServeCommand(env, flags))
	return root
}

func newSendCommand(env Env, flags *rootFlags) *cobra.Command {
	opts := SendOptions{}
	cmd := &cobra.Command{
		Use:   "send <url>",
		Short: "Send one document to a Kindle",
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) != 1 {
				return &UsageError{Message: fmt.Sprintf("send expects exactly one document URL, got %d", len(args))}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.URL = args[0]
			h := &Handler{
				Loader:    env.NewLoader(flags.configPath),
				Secrets:   env.Secrets,
				NewSender: env.NewSender,
				Out:       cmd.OutOrStdout(),
				Err:       cmd.ErrOrStderr(),
			}
			return h.Run(cmd.Context(), opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.To, "to", "", "Kindle email address (overrides kindleEmail from the config file).")
	f.StringVar(&opts.Engine, "engine", "", "Engine base URL (overrides engineUrl from the config file).")
	f.BoolVar(&opts.DryRun, "dry-run", false, "Resolve and fetch the document without emailing it.")
	f.BoolVarP(&opts.Verbose, "verbose", "v", false, "Print the redacted request and the raw failure response.")
	return cmd
}

func newServeCommand(env Env, flags *rootFlags) *cobra.Command {
	var (
		addr      string
		engine    string
		timeout   time.Duration
		noStorage bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the browser form",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appConfig, err := app.NewConfig(app.Config{
				Addr:                  addr,
				ConfigPath:            flags.configPath,
				EngineURL:             engine,
				Timeout:               timeout,
				LogFormat:             flags.logFormat,
				LogLevel:              flags.logLevel,
				DisableSessionStorage: noStorage,
			})
			if err != nil {
				return &UsageError{Message: err.Error()}
			}

			a, err := app.NewApp(cmd.ErrOrStderr(), appConfig, env.NewLoader(flags.configPath), env.Secrets)
			if err != nil {
				var cfgErr *config.Error
				if errors.As(err, &cfgErr) {
					return &ExitError{Code: ExitUsage, Message: err.Error(), Err: err}
				}
				return &ExitError{Code: ExitFailure, Message: err.Error(), Err: err}
			}
			if err := a.Serve(cmd.Context()); err != nil {
				return &ExitError{Code: ExitFailure, Message: err.Error(), Err: err}
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&addr, "addr", app.DefaultAddr, "Address to listen on.")
	f.StringVar(&engine, "engine", "", "Engine base URL (overrides engineUrl from the config file).")
	f.DurationVar(&timeout, "timeout", submission.DefaultTimeout, "How long to wait for the engine.")
	f.BoolVar(&noStorage, "no-session-storage", false, "Never remember the Kindle email between page loads.")
	return cmd
}

// Run executes the command line args and returns nil or an *ExitError.
func Run(ctx context.Context, env Env, args []string) error {
	root := NewRootCommand(env)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return nil
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr
	}
	// Commands classify their own failures, so anything else is a usage
	// problem reported by cobra, e.g. an unknown command or bad flag.
	return &ExitError{Code: ExitUsage, Message: err.Error(), Err: err}
}
