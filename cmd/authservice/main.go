package main

import (
	"context"
	"database/sql"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	_ "github.com/jackc/pgx/v5/stdlib"

	auth "github.com/goliatone/go-logistics-auth"
	"github.com/goliatone/go-logistics-auth/activitymap"
	"github.com/goliatone/go-logistics-auth/config"
	"github.com/goliatone/go-logistics-auth/metrics"
	"github.com/goliatone/go-logistics-auth/referencedata"
	"github.com/goliatone/go-logistics-auth/tokenstore"
)

type App struct {
	config     *config.Config
	logger     *slog.Logger
	bunDB      *bun.DB
	redis      *redis.Client
	repo       auth.RepositoryManager
	store      auth.TokenStore
	references *referencedata.Client
	tokens     *auth.TokenServices
	registry   *prometheus.Registry
	srv        router.Server[*fiber.App]
}

func (a *App) GetLogger(name string) *slog.Logger {
	return a.logger.With("logger", name)
}

func main() {
	var configFile string
	flag.StringVar(&configFile, "config", "", "path to a config file")
	flag.Parse()

	cfg, err := config.Load(config.Options{
		EnvFiles:   []string{".env", ".env.local"},
		ConfigFile: configFile,
	})
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	app := &App{
		config: cfg,
		logger: newLogger(cfg.Debug),
	}

	if cfg.Debug {
		app.logger.Debug("configuration loaded", "config", print.MaybePrettyJSON(cfg))
	}

	ctx := context.Background()

	steps := []func(context.Context, *App) error{
		WithMetrics,
		WithPersistence,
		WithTokenStore,
		WithReferenceData,
		WithTokenServices,
		WithBootstrap,
		WithRightCheck,
		WithHTTPServer,
		WithOAuthRoutes,
	}

	for _, step := range steps {
		if err := step(ctx, app); err != nil {
			app.logger.Error("failed to start auth service", "error", err)
			app.Close()
			os.Exit(1)
		}
	}

	app.srv.Serve(cfg.Server.Address)

	app.logger.Info("auth service started", "address", cfg.Server.Address)

	sig := WaitExitSignal()
	app.logger.Info("shutting down", "signal", sig.String())
	app.Close()
}

func newLogger(debug bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}

	var handler slog.Handler
	if debug {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func WithMetrics(_ context.Context, app *App) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics.RegisterCollectors(reg)
	app.registry = reg
	return nil
}

func WithPersistence(ctx context.Context, app *App) error {
	dbCfg := app.config.Database

	var db *bun.DB
	switch dbCfg.Driver {
	case "postgres":
		sqldb, err := sql.Open("pgx", dbCfg.DSN)
		if err != nil {
			return err
		}
		db = bun.NewDB(sqldb, pgdialect.New())
	default:
		sqldb, err := sql.Open(sqliteshim.ShimName, dbCfg.DSN)
		if err != nil {
			return err
		}
		sqldb.SetMaxOpenConns(1)
		db = bun.NewDB(sqldb, sqlitedialect.New())
	}

	if err := db.PingContext(ctx); err != nil {
		return err
	}

	repo := auth.NewRepositoryManager(db)
	if err := repo.Validate(); err != nil {
		return err
	}

	if err := repo.CreateSchema(ctx); err != nil {
		return err
	}

	app.bunDB = db
	app.repo = repo
	return nil
}

// WithTokenStore uses redis when an address is configured, an in process
// store otherwise.
func WithTokenStore(ctx context.Context, app *App) error {
	redisCfg := app.config.Redis
	if redisCfg.Address == "" {
		app.GetLogger("tokenstore").Warn("no redis address configured, tokens are kept in memory")
		app.store = tokenstore.NewMemoryStore()
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     redisCfg.Address,
		Password: redisCfg.Password,
		DB:       redisCfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return err
	}

	app.redis = client
	app.store = tokenstore.NewRedisStore(client, redisCfg.Prefix)
	return nil
}

func WithReferenceData(_ context.Context, app *App) error {
	source := &serviceTokenSource{app: app}

	app.references = referencedata.New(app.config.ReferenceData.URL,
		referencedata.WithTimeout(app.config.ReferenceData.Timeout),
		referencedata.WithTokenSource(source.Token),
		referencedata.WithLogger(app.GetLogger("referencedata")),
	)
	return nil
}

func WithTokenServices(_ context.Context, app *App) error {
	logger := app.GetLogger("tokens")

	users := auth.NewUserAuthenticationManager(app.repo.Users()).
		WithLogger(app.GetLogger("authentication"))

	tokens, err := auth.NewTokenServices(auth.TokenServicesConfigFrom(app.config),
		auth.WithTokenStore(app.store),
		auth.WithClientDetailsLookup(app.repo.Clients()),
		auth.WithAuthenticationManager(users),
		auth.WithTokenEnhancer(auth.AccessTokenEnhancer{}),
		auth.WithTokenLogger(logger),
		auth.WithTokenActivitySink(activitymap.LogSink(app.GetLogger("activity"))),
	)
	if err != nil {
		return err
	}

	app.tokens = tokens
	return nil
}

// WithRightCheck confirms reference data knows the rights this service
// relies on. Reference data may start later, so a failure is only logged.
func WithRightCheck(ctx context.Context, app *App) error {
	if app.config.ReferenceData.URL == "" {
		return nil
	}

	logger := app.GetLogger("rights")
	for _, name := range []auth.Right{auth.RightUsersManage} {
		right, err := auth.GetRight(ctx, app.references, name)
		if err != nil {
			logger.Warn("right not available in reference data", "right", name, "error", err)
			continue
		}
		logger.Debug("right found", "right", right.Name, "id", right.ID)
	}
	return nil
}

func WithHTTPServer(_ context.Context, app *App) error {
	handler := promhttp.HandlerFor(app.registry, promhttp.HandlerOpts{Registry: app.registry})

	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		fa := router.DefaultFiberOptions(fiber.New(fiber.Config{
			UnescapePath:          true,
			StrictRouting:         false,
			DisableStartupMessage: !app.config.Debug,
		}))
		fa.Get("/metrics", adaptor.HTTPHandler(handler))
		return fa
	})

	app.srv = srv
	return nil
}

func WithOAuthRoutes(_ context.Context, app *App) error {
	references := app.references
	sink := activitymap.LogSink(app.GetLogger("activity"))

	validator := auth.NewUserValidator(references, app.repo.Users()).
		WithLogger(app.GetLogger("validator"))

	service := auth.NewUserService(app.repo.Users()).
		WithLogger(app.GetLogger("users"))

	saveUser := auth.NewSaveUserHandler(validator, service).
		WithActivitySink(sink).
		WithLogger(app.GetLogger("users"))

	auther := auth.NewRouteAuthenticator(app.tokens, references)
	auther.Logger = app.GetLogger("http")

	controller := auth.NewOAuthController(
		auth.WithControllerLogger(app.GetLogger("oauth")),
		auth.WithControllerDebug(app.config.Debug),
		auth.WithTokenServices(app.tokens),
		auth.WithClientAuthenticator(app.repo.Clients()),
		auth.WithSaveUserHandler(saveUser),
		auth.WithReferenceUsers(references),
		auth.WithRouteAuthenticator(auther),
	)

	auth.RegisterOAuthRoutes(app.srv.Router(), controller)
	return nil
}

func (a *App) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("failed to close redis", "error", err)
		}
	}

	if a.bunDB != nil {
		if err := a.bunDB.Close(); err != nil {
			a.logger.Warn("failed to close database", "error", err)
		}
	}
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
