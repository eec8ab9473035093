package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/vk/kindledrop/internal/config"
	"github.com/vk/kindledrop/internal/ctxlog"
	"github.com/vk/kindledrop/internal/submission"
)

const (
	msgMissingAddress = "Missing Kindle email. Provide --to or set kindleEmail in ~/.kindledrop/config.json"
	msgMissingSMTP    = "Missing SMTP config in ~/.kindledrop/config.json (smtp.host/port/user/from)"
)

// SendOptions are the per-invocation inputs of `stk send`.
type SendOptions struct {
	URL     string
	To      string
	Engine  string
	DryRun  bool
	Verbose bool
}

// Handler runs one send invocation: resolve config, validate, build the
// request, call the engine once, render the outcome.
type Handler struct {
	Loader    config.Loader
	Secrets   submission.SecretProvider
	NewSender func(baseURL string) submission.Sender
	Out       io.Writer
	Err       io.Writer

	// OnTransition, if set, observes every state change.
	OnTransition func(from, to State)

	state State
}

// State returns the current workflow state.
func (h *Handler) State() State {
	return h.state
}

func (h *Handler) transition(ctx context.Context, to State) {
	from := h.state
	if from.Terminal() || to <= from {
		panic(fmt.Sprintf("cli: illegal transition %s -> %s", from, to))
	}
	h.state = to
	ctxlog.FromContext(ctx).Debug("Send workflow transition.", "from", from.String(), "to", to.String())
	if h.OnTransition != nil {
		h.OnTransition(from, to)
	}
}

// Run executes the workflow. The returned error is nil on success and an
// *ExitError otherwise; its cause is available through errors.As.
func (h *Handler) Run(ctx context.Context, opts SendOptions) error {
	logger := ctxlog.FromContext(ctx)
	h.state = StateIdle

	h.transition(ctx, StateResolving)
	cfg, err := h.Loader.Load(ctx)
	if err != nil {
		return h.fail(ctx, ExitUsage, err.Error(), err)
	}

	h.transition(ctx, StateValidating)
	address := submission.ResolveAddress(cfg, opts.To)
	if address == "" {
		return h.fail(ctx, ExitUsage, msgMissingAddress, &UsageError{Message: msgMissingAddress})
	}
	if !opts.DryRun && cfg.SMTP == nil {
		return h.fail(ctx, ExitUsage, msgMissingSMTP, &UsageError{Message: msgMissingSMTP})
	}

	engineURL := submission.EngineURL(cfg, opts.Engine)
	req := submission.Build(cfg, submission.Input{
		URL:     opts.URL,
		Address: address,
		DryRun:  opts.DryRun,
	}, h.Secrets)

	if opts.Verbose {
		renderRequest(h.Out, engineURL, req)
	}

	h.transition(ctx, StateSending)
	logger.Info("Sending to engine...", "engine", engineURL, "dry_run", opts.DryRun)
	res, resp, err := submission.Submit(ctx, h.NewSender(engineURL), req)
	if err != nil {
		h.transition(ctx, StateFailed)
		renderFailure(h.Err, res.Message)
		if opts.Verbose {
			renderFailureDetail(h.Err, resp, err)
		}
		return &ExitError{Code: ExitFailure, Err: err}
	}

	h.transition(ctx, StateDone)
	if opts.DryRun {
		renderDryRun(h.Out, res)
	} else {
		renderSent(h.Out, res)
	}
	return nil
}

func (h *Handler) fail(ctx context.Context, code int, msg string, cause error) error {
	h.transition(ctx, StateFailed)
	fmt.Fprintln(h.Err, msg)

	var cfgErr *config.Error
	if errors.As(cause, &cfgErr) {
		ctxlog.FromContext(ctx).Debug("Configuration rejected.", "path", cfgErr.Path, "error", cfgErr.Err)
	}
	return &ExitError{Code: code, Err: cause}
}
