// Command pycon runs the multi-user RCON web console.
package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	_ "go.uber.org/automaxprocs"

	"github.com/DSroD/PyCon/internal/auth"
	"github.com/DSroD/PyCon/internal/config"
	"github.com/DSroD/PyCon/internal/htmx"
	"github.com/DSroD/PyCon/internal/logging"
	"github.com/DSroD/PyCon/internal/metrics"
	"github.com/DSroD/PyCon/internal/model"
	"github.com/DSroD/PyCon/internal/pubsub"
	"github.com/DSroD/PyCon/internal/service"
	"github.com/DSroD/PyCon/internal/store"
	"github.com/DSroD/PyCon/internal/web"
)

const (
	shutdownTimeout     = 10 * time.Second
	processSamplePeriod = 15 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := logging.New("info", false)
		fallback.Fatal().Err(err).Msg("invalid configuration")
	}
	logger := logging.New(cfg.LogLevel, cfg.LogPretty)

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("exiting")
	}
}

func run(cfg config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New()
		go m.SampleProcess(ctx, processSamplePeriod, logger)
	}

	var hooks pubsub.Hooks
	if m != nil {
		hooks = m.BusHooks()
	}
	bus := pubsub.NewBus(hooks)

	users, servers, cleanup, err := buildStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := bootstrapDefaultUser(ctx, cfg, users, logger); err != nil {
		return err
	}

	renderer, err := htmx.NewTemplateRenderer()
	if err != nil {
		return err
	}

	launcher := service.NewLauncher(logger)
	launcher.Launch(ctx, service.NewHeartbeatService(bus, cfg.HeartbeatInterval))
	status := service.NewServerStatusService(bus)
	launcher.Launch(ctx, status)

	runtime := service.NewRuntime(ctx, launcher, bus, servers, m, logger)
	stored, err := servers.All(ctx)
	if err != nil {
		return err
	}
	for _, server := range stored {
		runtime.LaunchServer(server)
	}

	router, err := web.NewRouter(web.Deps{
		Config:   cfg,
		Logger:   logger,
		Bus:      bus,
		Users:    users,
		Servers:  servers,
		Tokens:   auth.NewJWTManager(cfg.JWTSecret, cfg.TokenLifetime),
		Runtime:  runtime,
		Status:   status,
		Renderer: renderer,
		Metrics:  m,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{Addr: cfg.Addr(), Handler: router}
	serveErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Addr()).Msg("listening")
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("http shutdown failed")
	}
	launcher.StopAll(shutdownCtx)
	return nil
}

func buildStores(
	ctx context.Context,
	cfg config.Config,
	logger zerolog.Logger,
) (store.UserStore, store.ServerStore, func(), error) {
	if cfg.DatabaseURL == "" {
		logger.Warn().Msg("no DATABASE_URL set, using in-memory stores")
		return store.NewMemoryUserStore(), store.NewMemoryServerStore(), func() {}, nil
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, nil, err
	}
	if err := store.Migrate(ctx, db, logger); err != nil {
		_ = db.Close()
		return nil, nil, nil, err
	}
	cleanup := func() { _ = db.Close() }
	return store.NewPostgresUserStore(db), store.NewPostgresServerStore(db), cleanup, nil
}

// bootstrapDefaultUser creates the first account when the store is empty, so
// a fresh deployment has something to log in with.
func bootstrapDefaultUser(
	ctx context.Context,
	cfg config.Config,
	users store.UserStore,
	logger zerolog.Logger,
) error {
	existing, err := users.All(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	password := cfg.DefaultPassword
	generated := password == ""
	if generated {
		password = uuid.NewString()
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	user := model.User{
		UserView: model.UserView{
			Username: cfg.DefaultUsername,
			Capabilities: []model.UserCapability{
				model.CapUserManagement,
				model.CapServerManagement,
			},
		},
		HashedPassword: hash,
	}
	if err := users.Upsert(ctx, user); err != nil {
		return err
	}

	event := logger.Info().Str("username", user.Username)
	if generated {
		// Shown once; change it after first login.
		event = event.Str("password", password)
	}
	event.Msg("created default user")
	return nil
}
