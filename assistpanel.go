// Package assistpanel is the top-level entry point for the assistant panel
// client runtime.
//
// Use the Builder to compose an application:
//
//	app, err := assistpanel.NewBuilder().Build()
//	app.Controller() // drive the panel
//
// Or customize the pieces:
//
//	app, err := assistpanel.NewBuilder().
//	    WithConfig(assistpanel.Config{ServerURL: "https://admin.example.com"}).
//	    WithHTTPClient(myClient).
//	    Build()
package assistpanel

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/assistkit/assistpanel/api"
	"github.com/assistkit/assistpanel/server"
	"github.com/assistkit/assistpanel/session"
	"github.com/assistkit/assistpanel/store/sqlite"
)

// Config holds top-level configuration for an assistpanel application.
type Config struct {
	// ServerURL is the assistant service to talk to (default
	// "http://localhost:7080").
	ServerURL string

	// BasePath is the path prefix the service mounts its API under
	// (default "/ai-assistant").
	BasePath string

	// ServeAddr is the address the demo server listens on (default ":7080").
	ServeAddr string

	// DataDir is the directory for demo server data (default "~/.assistpanel").
	DataDir string

	// DatabasePath is the full path to the demo server's SQLite file.
	DatabasePath string
}

// Builder constructs an assistpanel App.
type Builder struct {
	config     Config
	httpClient *http.Client
	service    session.Service
}

// NewBuilder creates a new Builder with sensible defaults.
func NewBuilder() *Builder {
	return &Builder{}
}

// WithConfig sets the application configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithHTTPClient sets the HTTP client used by the API client.
func (b *Builder) WithHTTPClient(c *http.Client) *Builder {
	b.httpClient = c
	return b
}

// WithService replaces the remote service the controller talks to. Tests
// use this to run against fakes.
func (b *Builder) WithService(svc session.Service) *Builder {
	b.service = svc
	return b
}

// Build creates the App. Missing components are filled with defaults.
func (b *Builder) Build() (*App, error) {
	applyDefaults(b)

	client := api.New(b.config.ServerURL, b.config.BasePath, b.httpClient)
	svc := b.service
	if svc == nil {
		svc = client
	}

	return &App{
		config: b.config,
		client: client,
		ctrl:   session.New(svc),
	}, nil
}

// App is a composed assistpanel application.
type App struct {
	config Config
	client *api.Client
	ctrl   *session.Controller
}

// Client returns the typed API client.
func (a *App) Client() *api.Client { return a.client }

// Controller returns the session controller driving the panel.
func (a *App) Controller() *session.Controller { return a.ctrl }

// Config returns the effective configuration after defaulting.
func (a *App) Config() Config { return a.config }

// Serve runs the demo assistant server. Blocks until ctx is done.
func (a *App) Serve(ctx context.Context) error {
	if err := os.MkdirAll(a.config.DataDir, 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	st, err := sqlite.New(a.config.DatabasePath)
	if err != nil {
		return err
	}
	defer st.Close()

	srv := &http.Server{
		Addr:    a.config.ServeAddr,
		Handler: server.New(st, a.config.BasePath).Router(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Printf("assistpanel demo server listening on %s", a.config.ServeAddr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
