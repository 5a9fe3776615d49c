package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/issuedesk/tracker/internal/api"
	"github.com/issuedesk/tracker/internal/api/middleware"
	"github.com/issuedesk/tracker/internal/cli/bootstrap"
	"github.com/issuedesk/tracker/internal/infrastructure/db/sqlstore"
	"github.com/issuedesk/tracker/pkg/logger"
)

const shutdownTimeout = 30 * time.Second

var autoMigrate bool

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long:  `Start the issue tracker HTTP API using configuration from the environment.`,
		RunE:  run,
	}

	cmd.Flags().BoolVar(&autoMigrate, "auto-migrate", true, "Apply schema migrations before serving")

	return cmd
}

func run(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, log, err := bootstrap.Init(ctx)
	if err != nil {
		return err
	}

	log.Info().
		Str("environment", cfg.Env).
		Bool("auto-migrate", autoMigrate).
		Msg("starting server")

	db, err := bootstrap.OpenDatabase(ctx, cfg, log)
	if err != nil {
		return err
	}

	if autoMigrate {
		if err := sqlstore.Migrate(ctx, db); err != nil {
			_ = sqlstore.Close(db)
			return fmt.Errorf("migration failed: %w", err)
		}
		log.Info().Msg("schema up to date")
	}

	app, err := bootstrap.New(ctx, cfg, db, log)
	if err != nil {
		_ = sqlstore.Close(db)
		return err
	}

	deps := api.Deps{
		Accounts:       app.Accounts,
		Tickets:        app.Tickets,
		Sessions:       middleware.NewSessionCodec(cfg.SecretKey, cfg.Session.CookieName, cfg.Session.TTL, cfg.Session.Secure),
		LoginLimiter:   middleware.NewRateLimiter(cfg.RateLimit.LoginRate, cfg.RateLimit.LoginBurst),
		DB:             db,
		Mongo:          app.Mongo,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Logger:         logger.Component("http"),
	}
	if app.Redis != nil {
		deps.Redis = app.Redis
	}
	e := api.NewRouter(deps)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      e,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := serve(ctx, srv, log)

	closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	app.Close(closeCtx, log)

	if serveErr == nil {
		log.Info().Msg("server exited gracefully")
	}
	return serveErr
}

// serve runs srv until ctx is cancelled or the listener fails, then shuts it
// down. A listen failure is returned so the command exits non-zero.
func serve(ctx context.Context, srv *http.Server, log zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("address", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var listenErr error
	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down server...")
	case listenErr = <-errCh:
		if listenErr != nil {
			log.Error().Err(listenErr).Msg("server failed")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		if listenErr == nil {
			return err
		}
	}
	if listenErr != nil {
		return fmt.Errorf("listen on %s: %w", srv.Addr, listenErr)
	}
	return nil
}
