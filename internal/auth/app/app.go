package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/halcyonlabs/authd/internal/auth/http"
	"github.com/halcyonlabs/authd/internal/auth/notify"
	"github.com/halcyonlabs/authd/internal/auth/service"
	"github.com/halcyonlabs/authd/internal/auth/store"
	"github.com/halcyonlabs/authd/internal/auth/store/drivers/sqlite"
	"github.com/halcyonlabs/authd/pkg/cryptox"
	"github.com/halcyonlabs/authd/pkg/jwtx"
	"github.com/halcyonlabs/authd/pkg/slogx"
	"github.com/jonboulle/clockwork"
)

// BuildVersion should be set at build time via ldflags.
const BuildVersion = "v0.1.0"

// Application wires config, store, services and the HTTP server together.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db    store.Store
	codec *jwtx.Codec

	tokenService        *service.TokenService
	guard               *service.LoginGuard
	mfaService          *service.MFAService
	authService         *service.AuthService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New creates an Application with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "authd",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	cryptox.SetPepperPath(cfg.PepperFile)

	if err := app.initSecrets(); err != nil {
		return nil, err
	}
	if err := app.initDatabase(); err != nil {
		return nil, err
	}
	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("authd starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully stops the server, housekeeping and store.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down authd...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("authd stopped")
	return nil
}

// initSecrets fills in missing signing secrets with random ones. Generated
// secrets do not survive a restart, so tokens signed with them die with the
// process; fine for development, logged loudly for anything else.
func (app *Application) initSecrets() error {
	if app.cfg.AccessSecret == "" {
		secret, err := cryptox.GenerateToken(cryptox.TokenSize256)
		if err != nil {
			return fmt.Errorf("failed to generate access secret: %w", err)
		}
		app.cfg.AccessSecret = secret
		app.logger.Warn("AUTHD_ACCESS_SECRET not set, generated an ephemeral one")
	}
	if app.cfg.RefreshSecret == "" {
		secret, err := cryptox.GenerateToken(cryptox.TokenSize256)
		if err != nil {
			return fmt.Errorf("failed to generate refresh secret: %w", err)
		}
		app.cfg.RefreshSecret = secret
		app.logger.Warn("AUTHD_REFRESH_SECRET not set, generated an ephemeral one")
	}

	app.codec = jwtx.NewCodec(
		[]byte(app.cfg.AccessSecret),
		[]byte(app.cfg.RefreshSecret),
		app.cfg.Issuer,
		nil,
	)
	return nil
}

func (app *Application) initDatabase() error {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(dsn)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

func (app *Application) initServices() {
	clock := clockwork.NewRealClock()

	app.tokenService = &service.TokenService{
		Codec:      app.codec,
		Store:      app.db,
		Clock:      clock,
		AccessTTL:  app.cfg.AccessTTL,
		RefreshTTL: app.cfg.RefreshTTL,
	}

	app.guard = &service.LoginGuard{Store: app.db, Clock: clock}

	app.mfaService = &service.MFAService{
		Store:  app.db,
		Clock:  clock,
		Issuer: app.cfg.AppName,
	}

	var notifier notify.Notifier
	if app.cfg.ResendAPIKey != "" {
		notifier = notify.NewResendNotifier(app.cfg.ResendAPIKey, app.cfg.MailFrom, app.cfg.AppName)
		app.logger.Info("resend notifier enabled", "from", app.cfg.MailFrom)
	} else {
		notifier = &notify.LogNotifier{Logger: app.logger}
		app.logger.Info("no mail provider configured, notifications are log-only")
	}

	app.authService = &service.AuthService{
		Store:                    app.db,
		Tokens:                   app.tokenService,
		MFA:                      app.mfaService,
		Guard:                    app.guard,
		Notifier:                 notifier,
		Clock:                    clock,
		AppBaseURL:               app.cfg.AppBaseURL,
		RequireEmailVerification: app.cfg.RequireEmailVerification,
		LoginAlerts:              app.cfg.LoginAlerts,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		clock,
		app.cfg.HousekeepingInterval,
	)
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(app.codec, BuildVersion, app.db, app.logger)
	router.AuthService = app.authService
	router.MFAService = app.mfaService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
