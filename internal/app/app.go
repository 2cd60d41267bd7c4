package app

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/jorgedlr/listening-rooms/internal/chat"
	"github.com/jorgedlr/listening-rooms/internal/config"
	"github.com/jorgedlr/listening-rooms/internal/spotify"
	"github.com/jorgedlr/listening-rooms/internal/store"
	"github.com/jorgedlr/listening-rooms/internal/store/postgres"
	"github.com/jorgedlr/listening-rooms/internal/store/sqlite"
	transporthttp "github.com/jorgedlr/listening-rooms/internal/transport/http"
)

// App wires together persistence, the connection registry, the spotify
// session, and the transport layer.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	registry        *chat.Registry
	store           store.Store
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	st, err := openStore(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	logger.Info().Str("driver", cfg.Database.Driver).Msg("database initialized")

	registry := chat.NewRegistry(logger)

	session := spotify.NewSession(spotify.Config{
		ClientID:     cfg.Spotify.ClientID,
		ClientSecret: cfg.Spotify.ClientSecret,
		RedirectURI:  cfg.Spotify.RedirectURI,
	}, logger)
	if !session.Configured() {
		logger.Warn().Msg("spotify credentials not set, now-playing integration disabled")
	}

	server := transporthttp.NewServer(registry, st, session, cfg, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		registry:        registry,
		store:           st,
		log:             logger,
	}, nil
}

func openStore(cfg config.DatabaseConfig) (store.Store, error) {
	switch cfg.Driver {
	case "sqlite", "":
		return sqlite.New(cfg.Path)
	case "postgres":
		return postgres.New(cfg.URL)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		a.cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.cleanup()
			return err
		}

		a.cleanup()
		return <-serverErr
	}
}

// cleanup closes the database and other resources.
func (a *App) cleanup() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
