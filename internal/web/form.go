package web

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vk/kindledrop/internal/config"
	"github.com/vk/kindledrop/internal/ctxlog"
	"github.com/vk/kindledrop/internal/submission"
)

var (
	// ErrInFlight is returned by Submit while another submission is running.
	ErrInFlight = errors.New("web: submission already in progress")
	// ErrMissingURL is returned by Submit when no document URL was entered.
	ErrMissingURL = errors.New("web: missing document URL")
	// ErrMissingAddress is returned by Submit when no delivery address was entered.
	ErrMissingAddress = errors.New("web: missing Kindle email")
)

const (
	msgInFlight       = "A submission is already in progress."
	msgMissingURL     = "Enter a document URL."
	msgMissingAddress = "Enter your Kindle email."
)

// FormState is a snapshot of the form for rendering.
type FormState struct {
	URL       string
	Address   string
	Remember  bool
	DryRun    bool
	Loading   bool
	Error     string
	CanForget bool
}

// FormDeps are the collaborators of a Form.
type FormDeps struct {
	Config  *config.Config
	Secrets submission.SecretProvider
	Sender  submission.Sender
	Store   *SessionStore
	History *History
	Now     func() time.Time
}

// Form is the controller behind one mounted submission form.
type Form struct {
	deps     FormDeps
	inFlight atomic.Bool

	mu       sync.Mutex
	url      string
	address  string
	remember bool
	dryRun   bool
	errText  string
}

// NewForm returns an unmounted form.
func NewForm(deps FormDeps) *Form {
	if deps.History == nil {
		deps.History = &History{}
	}
	if deps.Secrets == nil {
		deps.Secrets = submission.NoSecret{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Form{deps: deps}
}

// History returns the history this form records into.
func (f *Form) History() *History {
	return f.deps.History
}

// Mount restores a remembered address. Remember turns on only when one was
// found.
func (f *Form) Mount() {
	addr, ok := f.deps.Store.Load()
	f.mu.Lock()
	defer f.mu.Unlock()
	if ok {
		f.address = addr
		f.remember = true
	}
}

// SetURL updates the document URL field.
func (f *Form) SetURL(v string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.url = v
}

// SetDryRun updates the dry run toggle.
func (f *Form) SetDryRun(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dryRun = v
}

// SetAddress updates the address field and syncs the session store.
func (f *Form) SetAddress(v string) {
	f.mu.Lock()
	f.address = v
	remember := f.remember
	f.mu.Unlock()
	f.deps.Store.Sync(remember, v)
}

// SetRemember updates the remember toggle and syncs the session store.
func (f *Form) SetRemember(v bool) {
	f.mu.Lock()
	f.remember = v
	addr := f.address
	f.mu.Unlock()
	f.deps.Store.Sync(v, addr)
}

// ClearSaved forgets the stored address and empties the field.
func (f *Form) ClearSaved() {
	f.deps.Store.Clear()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.remember = false
	f.address = ""
}

// State returns a snapshot for rendering.
func (f *Form) State() FormState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return FormState{
		URL:       f.url,
		Address:   f.address,
		Remember:  f.remember,
		DryRun:    f.dryRun,
		Loading:   f.inFlight.Load(),
		Error:     f.errText,
		CanForget: f.remember && strings.TrimSpace(f.address) != "",
	}
}

func (f *Form) setError(msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errText = msg
}

// FormInput is one posted set of field values.
type FormInput struct {
	URL      string
	Address  string
	Remember bool
	DryRun   bool
}

// Submit sends the current fields to the engine. Only one submission runs at
// a time; a second call gets ErrInFlight and changes nothing. Every completed
// engine call, successful or not, is recorded in the history.
func (f *Form) Submit(ctx context.Context) (submission.Result, error) {
	if !f.inFlight.CompareAndSwap(false, true) {
		return submission.Result{}, ErrInFlight
	}
	defer f.inFlight.Store(false)
	return f.submit(ctx)
}

// SubmitInput applies in and submits, as one step. While another submission
// is running it returns ErrInFlight without touching the fields or the
// session store.
func (f *Form) SubmitInput(ctx context.Context, in FormInput) (submission.Result, error) {
	if !f.inFlight.CompareAndSwap(false, true) {
		return submission.Result{}, ErrInFlight
	}
	defer f.inFlight.Store(false)

	f.SetURL(in.URL)
	f.SetDryRun(in.DryRun)
	f.SetAddress(in.Address)
	f.SetRemember(in.Remember)
	return f.submit(ctx)
}

func (f *Form) submit(ctx context.Context) (submission.Result, error) {
	f.mu.Lock()
	f.errText = ""
	in := submission.Input{URL: strings.TrimSpace(f.url), Address: strings.TrimSpace(f.address), DryRun: f.dryRun}
	f.mu.Unlock()

	if in.URL == "" {
		f.setError(msgMissingURL)
		return submission.Result{}, ErrMissingURL
	}
	if in.Address == "" {
		f.setError(msgMissingAddress)
		return submission.Result{}, ErrMissingAddress
	}

	logger := ctxlog.FromContext(ctx)
	req := submission.Build(f.deps.Config, in, f.deps.Secrets)
	logger.Debug("Submitting from web form.", "request", req)

	res, _, err := submission.Submit(ctx, f.deps.Sender, req)
	f.deps.History.Record(EntryFromResult(res, f.deps.Now()))
	if err != nil {
		logger.Info("Web submission failed.", "error", err)
		f.setError(res.Message)
		return res, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.url = ""
	if !f.remember {
		f.address = ""
	}
	return res, nil
}

