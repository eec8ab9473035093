package web

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vk/kindledrop/internal/config"
	"github.com/vk/kindledrop/internal/ctxlog"
	"github.com/vk/kindledrop/internal/submission"
)

//go:embed templates/*.html
var templatesFS embed.FS

const (
	// SessionCookie names the browser session cookie.
	SessionCookie = "kd_session"
	formParam     = "form"

	// DefaultIdleTimeout is how long an untouched form or session is kept.
	DefaultIdleTimeout = 30 * time.Minute
	// DefaultMaxSessions caps retained browser sessions.
	DefaultMaxSessions = 1024
	// DefaultMaxForms caps retained forms per browser session.
	DefaultMaxForms = 8
)

// Options configure a Server.
type Options struct {
	Config  *config.Config
	Secrets submission.SecretProvider
	Sender  submission.Sender
	// EngineURL overrides the configured engine for the /api/send proxy.
	EngineURL string
	// Timeout bounds how long the proxy waits for engine response headers.
	Timeout time.Duration
	// NewStorage creates the storage of each browser session. Defaults to
	// NewMemoryStorage.
	NewStorage func() Storage
	Logger     *slog.Logger
	Now        func() time.Time

	IdleTimeout time.Duration
	MaxSessions int
	MaxForms    int
}

type formEntry struct {
	form     *Form
	lastSeen time.Time
}

type browserSession struct {
	store *SessionStore
	// lastSeen is guarded by Server.mu.
	lastSeen time.Time

	mu    sync.Mutex
	forms map[string]*formEntry
}

// Server serves the form pages and the engine proxy. Forms and browser
// sessions are only retained once a post creates them, and are evicted when
// idle or when a cap is reached, least recently seen first.
type Server struct {
	opts   Options
	logger *slog.Logger
	tmpl   *template.Template
	mux    *http.ServeMux

	mu       sync.Mutex
	sessions map[string]*browserSession
}

// NewServer validates opts and builds the route table.
func NewServer(opts Options) (*Server, error) {
	if opts.Sender == nil {
		return nil, errors.New("web: a sender is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.NewStorage == nil {
		opts.NewStorage = func() Storage { return NewMemoryStorage() }
	}
	if opts.Timeout <= 0 {
		opts.Timeout = submission.DefaultTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = DefaultIdleTimeout
	}
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = DefaultMaxSessions
	}
	if opts.MaxForms <= 0 {
		opts.MaxForms = DefaultMaxForms
	}

	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("web: parsing templates: %w", err)
	}

	proxy, err := newEngineProxy(submission.EngineURL(opts.Config, opts.EngineURL), opts.Timeout, opts.Logger)
	if err != nil {
		return nil, err
	}

	s := &Server{
		opts:     opts,
		logger:   opts.Logger,
		tmpl:     tmpl,
		mux:      http.NewServeMux(),
		sessions: make(map[string]*browserSession),
	}
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("POST /submit", s.handleSubmit)
	s.mux.HandleFunc("POST /forget", s.handleForget)
	s.mux.Handle("POST "+submission.EndpointPath, proxy)
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := ctxlog.WithLogger(r.Context(), s.logger)
	s.mux.ServeHTTP(w, r.WithContext(ctx))
}

// newEngineProxy forwards the same-origin endpoint to the engine's endpoint.
func newEngineProxy(engineURL string, timeout time.Duration, logger *slog.Logger) (http.Handler, error) {
	endpoint, err := submission.ResolveEndpoint(engineURL)
	if err != nil {
		return nil, fmt.Errorf("web: %w", err)
	}
	target, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("web: %w", err)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = timeout

	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.Out.URL.Path = target.Path
			pr.Out.URL.RawPath = ""
			pr.SetXForwarded()
		},
		Transport: transport,
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			logger.Warn("Engine proxy failed.", "error", err)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadGateway)
			_ = json.NewEncoder(w).Encode(submission.Response{
				OK:      false,
				Message: "could not reach engine: " + err.Error(),
			})
		},
	}, nil
}

// session returns the caller's session id and, if one is retained, its
// session. A caller without a valid cookie gets a fresh id; nothing is
// stored for it yet.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (string, *browserSession) {
	if c, err := r.Cookie(SessionCookie); err == nil {
		if _, err := uuid.Parse(c.Value); err == nil {
			return c.Value, s.lookupSession(c.Value)
		}
	}

	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id, nil
}

func (s *Server) lookupSession(id string) *browserSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if ok {
		sess.lastSeen = s.opts.Now()
	}
	return sess
}

// ensureSession returns the retained session for id, creating it if needed.
func (s *Server) ensureSession(id string) *browserSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.opts.Now()
	if sess, ok := s.sessions[id]; ok {
		sess.lastSeen = now
		return sess
	}

	s.sweepLocked(now)
	for len(s.sessions) >= s.opts.MaxSessions {
		oldest := ""
		for k, v := range s.sessions {
			if oldest == "" || v.lastSeen.Before(s.sessions[oldest].lastSeen) {
				oldest = k
			}
		}
		delete(s.sessions, oldest)
	}

	sess := &browserSession{
		store:    NewSessionStore(s.opts.NewStorage(), s.logger),
		lastSeen: now,
		forms:    make(map[string]*formEntry),
	}
	s.sessions[id] = sess
	return sess
}

// Sweep drops sessions and forms idle for longer than the idle timeout and
// returns how many sessions were dropped.
func (s *Server) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked(now)
}

func (s *Server) sweepLocked(now time.Time) int {
	dropped := 0
	for id, sess := range s.sessions {
		if now.Sub(sess.lastSeen) > s.opts.IdleTimeout {
			delete(s.sessions, id)
			dropped++
			continue
		}
		sess.sweep(now, s.opts.IdleTimeout)
	}
	return dropped
}

func (b *browserSession) lookupForm(id string, now time.Time) *Form {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.forms[id]
	if !ok {
		return nil
	}
	e.lastSeen = now
	return e.form
}

func (b *browserSession) ensureForm(id string, now time.Time, idle time.Duration, limit int, create func() *Form) *Form {
	b.mu.Lock()
	defer b.mu.Unlock()

	if e, ok := b.forms[id]; ok {
		e.lastSeen = now
		return e.form
	}

	b.sweepLocked(now, idle)
	for len(b.forms) >= limit {
		oldest := ""
		for k, v := range b.forms {
			if oldest == "" || v.lastSeen.Before(b.forms[oldest].lastSeen) {
				oldest = k
			}
		}
		delete(b.forms, oldest)
	}

	f := create()
	b.forms[id] = &formEntry{form: f, lastSeen: now}
	return f
}

func (b *browserSession) sweep(now time.Time, idle time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sweepLocked(now, idle)
}

func (b *browserSession) sweepLocked(now time.Time, idle time.Duration) {
	for id, e := range b.forms {
		if now.Sub(e.lastSeen) > idle {
			delete(b.forms, id)
		}
	}
}

// retained reports how many sessions and forms are held.
func (s *Server) retained() (sessions, forms int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		sess.mu.Lock()
		forms += len(sess.forms)
		sess.mu.Unlock()
	}
	return len(s.sessions), forms
}

// newForm builds a mounted form. A nil session yields a form with nothing
// remembered.
func (s *Server) newForm(sess *browserSession) *Form {
	var store *SessionStore
	if sess != nil {
		store = sess.store
	}
	f := NewForm(FormDeps{
		Config:  s.opts.Config,
		Secrets: s.opts.Secrets,
		Sender:  s.opts.Sender,
		Store:   store,
		History: &History{},
		Now:     s.opts.Now,
	})
	f.Mount()
	return f
}

type pageData struct {
	FormID  string
	Form    FormState
	History HistoryView
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	_, sess := s.session(w, r)
	id := r.URL.Query().Get(formParam)

	var f *Form
	if sess != nil && id != "" {
		f = sess.lookupForm(id, s.opts.Now())
	}
	if f == nil {
		// Rendered but not retained until the first post.
		id = uuid.NewString()
		f = s.newForm(sess)
		ctxlog.FromContext(r.Context()).Debug("Mounted form.", "form", id, "remembered", f.State().Remember)
	}

	var buf bytes.Buffer
	data := pageData{FormID: id, Form: f.State(), History: f.History().View()}
	if err := s.tmpl.ExecuteTemplate(&buf, "index.html", data); err != nil {
		ctxlog.FromContext(r.Context()).Error("Rendering page failed.", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	sid, _ := s.session(w, r)
	id := r.PostFormValue(formParam)
	if _, err := uuid.Parse(id); err != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	sess := s.ensureSession(sid)
	f := sess.ensureForm(id, s.opts.Now(), s.opts.IdleTimeout, s.opts.MaxForms, func() *Form {
		return s.newForm(sess)
	})

	_, err := f.SubmitInput(r.Context(), FormInput{
		URL:      r.PostFormValue("url"),
		Address:  r.PostFormValue("kindleEmail"),
		Remember: r.PostFormValue("remember") == "on",
		DryRun:   r.PostFormValue("dryRun") == "on",
	})
	if errors.Is(err, ErrInFlight) {
		http.Error(w, msgInFlight, http.StatusConflict)
		return
	}
	http.Redirect(w, r, "/?"+formParam+"="+url.QueryEscape(id), http.StatusSeeOther)
}

func (s *Server) handleForget(w http.ResponseWriter, r *http.Request) {
	_, sess := s.session(w, r)
	if sess == nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	id := r.PostFormValue(formParam)
	if f := sess.lookupForm(id, s.opts.Now()); f != nil {
		f.ClearSaved()
		http.Redirect(w, r, "/?"+formParam+"="+url.QueryEscape(id), http.StatusSeeOther)
		return
	}
	sess.store.Clear()
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
