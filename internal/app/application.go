// Package app assembles the routing core. Initialization follows the
// dependency order Store → Registry → Router → Typing → Ingest → Hub →
// Auth → API/WS → HTTP; shutdown runs it in reverse.
package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/chanchleshkumar/BaatCheet/internal/api"
	"github.com/chanchleshkumar/BaatCheet/internal/auth"
	"github.com/chanchleshkumar/BaatCheet/internal/config"
	"github.com/chanchleshkumar/BaatCheet/internal/hub"
	"github.com/chanchleshkumar/BaatCheet/internal/ingest"
	"github.com/chanchleshkumar/BaatCheet/internal/registry"
	"github.com/chanchleshkumar/BaatCheet/internal/resolver"
	"github.com/chanchleshkumar/BaatCheet/internal/router"
	"github.com/chanchleshkumar/BaatCheet/internal/store"
	"github.com/chanchleshkumar/BaatCheet/internal/typing"
	"github.com/chanchleshkumar/BaatCheet/internal/ws"
)

// Application owns every component and the HTTP server.
type Application struct {
	config     *config.Config
	store      *store.Store
	registry   *registry.Registry
	hub        *hub.Hub
	httpServer *http.Server
}

// NewApplication builds a fully wired application.
func NewApplication(cfg *config.Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	messageStore, err := store.NewStore(&store.Config{
		Path:            cfg.Database.Path,
		MaxConnections:  cfg.Database.MaxConnections,
		ConnMaxLifetime: cfg.Database.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	sessionRegistry := registry.NewRegistry()
	broadcastRouter := router.NewRouter(sessionRegistry)
	typingTracker := typing.NewTracker(broadcastRouter, sessionRegistry.SessionsOf, cfg.Typing.Window)
	pipeline := ingest.NewPipeline(messageStore, broadcastRouter, sessionRegistry.SessionsOf)
	messageHub := hub.NewHub(pipeline)
	conversationResolver := resolver.NewResolver(messageStore)
	verifier := auth.NewVerifier(cfg.Auth.Secret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)

	apiServer := api.NewServer(messageStore, verifier, conversationResolver, messageHub, sessionRegistry)
	wsHandler := ws.NewHandler(sessionRegistry, messageHub, typingTracker, verifier, messageStore, cfg.WebSocket)

	mux := http.NewServeMux()
	mux.Handle("/api/", apiServer)
	mux.Handle("/health", apiServer)
	mux.HandleFunc("/ws", wsHandler.HandleWebSocket)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      mux,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	return &Application{
		config:     cfg,
		store:      messageStore,
		registry:   sessionRegistry,
		hub:        messageHub,
		httpServer: httpServer,
	}, nil
}

// Start begins serving. The hub starts first so sends can be processed
// the moment the first connection arrives.
func (app *Application) Start(ctx context.Context) error {
	log.Printf("Starting BaatCheet on %s", app.httpServer.Addr)

	if err := app.hub.Start(ctx); err != nil {
		return fmt.Errorf("failed to start message hub: %w", err)
	}

	serverErrCh := make(chan error, 1)
	go func() {
		if err := app.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	select {
	case err := <-serverErrCh:
		_ = app.hub.Stop()
		return err
	case <-time.After(100 * time.Millisecond):
		log.Printf("BaatCheet started")
		return nil
	case <-ctx.Done():
		_ = app.hub.Stop()
		return ctx.Err()
	}
}

// Stop shuts down in reverse dependency order: HTTP → Hub → Store.
func (app *Application) Stop(ctx context.Context) error {
	log.Printf("Shutting down BaatCheet")

	if err := app.httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
	if err := app.hub.Stop(); err != nil {
		log.Printf("Message hub shutdown error: %v", err)
	}
	if err := app.store.Close(); err != nil {
		log.Printf("Store shutdown error: %v", err)
	}

	log.Printf("BaatCheet shutdown complete")
	return nil
}

// Addr returns the server address.
func (app *Application) Addr() string {
	return app.httpServer.Addr
}
