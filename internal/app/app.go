package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/vk/kindledrop/internal/config"
	"github.com/vk/kindledrop/internal/ctxlog"
	"github.com/vk/kindledrop/internal/submission"
	"github.com/vk/kindledrop/internal/web"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	logger     *slog.Logger
	config     *Config
	engineURL  string
	web        *web.Server
	handler    http.Handler
	httpServer *http.Server
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App with its own isolated logger. Configuration problems are
// returned as errors; the file loader reports them as *config.Error.
func NewApp(outW io.Writer, appConfig *Config, loader config.Loader, secrets submission.SecretProvider) (*App, error) {
	logger := NewLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	if loader == nil {
		loader = config.NewFileLoader(appConfig.ConfigPath)
	}
	cfg, err := loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	logger.Debug("Configuration resolved.", "has_address", cfg.HasAddress(), "has_smtp", cfg.SMTP != nil)

	engineURL := submission.EngineURL(cfg, appConfig.EngineURL)
	sender := submission.NewClient(engineURL, submission.WithTimeout(appConfig.Timeout))

	opts := web.Options{
		Config:    cfg,
		Secrets:   secrets,
		Sender:    sender,
		EngineURL: engineURL,
		Timeout:   appConfig.Timeout,
		Logger:    logger,
	}
	if appConfig.DisableSessionStorage {
		opts.NewStorage = func() web.Storage { return web.DisabledStorage{} }
	}
	webServer, err := web.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to build web server: %w", err)
	}

	a := &App{
		logger:    logger,
		config:    appConfig,
		engineURL: engineURL,
		web:       webServer,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", a.healthHandler)
	mux.Handle("/", webServer)
	a.handler = mux

	return a, nil
}

// Handler returns the full route table. This is primarily for testing.
func (a *App) Handler() http.Handler {
	return a.handler
}

// EngineURL returns the engine base URL the app talks to.
func (a *App) EngineURL() string {
	return a.engineURL
}
