package main // Entry point package

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/event-showcase/internal/assets"
	"github.com/iliyamo/event-showcase/internal/codec"
	"github.com/iliyamo/event-showcase/internal/config"
	"github.com/iliyamo/event-showcase/internal/credential"
	"github.com/iliyamo/event-showcase/internal/handler"
	"github.com/iliyamo/event-showcase/internal/logging"
	"github.com/iliyamo/event-showcase/internal/middleware"
	"github.com/iliyamo/event-showcase/internal/queue"
	"github.com/iliyamo/event-showcase/internal/repository"
	"github.com/iliyamo/event-showcase/internal/router"
	"github.com/iliyamo/event-showcase/internal/service"
	"github.com/iliyamo/event-showcase/internal/session"
	"github.com/iliyamo/event-showcase/internal/store"
)

const (
	envFilePath     = ".env"
	shutdownTimeout = 10 * time.Second
)

var shutdownSignals = []os.Signal{
	syscall.SIGINT,
	syscall.SIGTERM,
}

func main() {
	if err := godotenv.Load(envFilePath); err != nil {
		fmt.Fprintln(os.Stderr, "warning: .env file not found, using environment variables")
	}
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat).With("env", cfg.Env)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), shutdownSignals...)
	defer stop()

	// Redis is optional; everything that uses it has a local fallback
	// except the redis store backend, which Open rejects without a client.
	rdb, err := config.NewRedisClient(ctx, config.LoadRedisConfig())
	if err != nil {
		logger.Warn("redis unavailable, continuing without it", "error", err)
		rdb = nil
	}
	if rdb != nil {
		defer rdb.Close()
	}

	kv, err := repository.Open(ctx, repository.Options{
		Backend:     cfg.Store.Backend,
		Dir:         cfg.Store.Dir,
		SQLitePath:  cfg.Store.SQLitePath,
		PostgresDSN: cfg.Store.PostgresDSN,
		MySQL:       cfg.Store.MySQL,
	}, rdb, logger)
	if err != nil {
		return fmt.Errorf("opening %s store: %w", cfg.Store.Backend, err)
	}
	defer kv.Close()

	cd, err := codec.ByName(cfg.Store.Codec)
	if err != nil {
		return err
	}
	defaults := store.Defaults()
	if cfg.DefaultsFile != "" {
		if defaults, err = store.LoadDefaults(cfg.DefaultsFile); err != nil {
			return err
		}
	}

	st := store.New(kv, store.Options{
		Namespace:  cfg.Store.Namespace,
		Codec:      cd,
		MaxRetries: cfg.Store.MaxRetries,
		Defaults:   &defaults,
		Logger:     logger,
	})
	if err := st.InitializeDefaults(ctx); err != nil {
		return fmt.Errorf("initializing catalog: %w", err)
	}

	creds := credential.New(kv, credential.Options{
		Namespace:         cfg.Store.Namespace,
		BootstrapUser:     cfg.Admin.BootstrapUser,
		BootstrapPassword: cfg.Admin.BootstrapPassword,
		Scheme:            cfg.Admin.Scheme,
		BcryptCost:        cfg.Admin.BcryptCost,
		Codec:             cd,
		Logger:            logger,
	})
	if _, err := creds.Bootstrap(ctx); err != nil {
		return fmt.Errorf("bootstrapping admin credential: %w", err)
	}

	sessions, err := session.NewManager(creds, newSessionStore(cfg, rdb, logger), session.Options{
		Secret: []byte(cfg.Session.Secret),
		TTL:    cfg.Session.TTL,
		Logger: logger,
	})
	if err != nil {
		return err
	}

	assetStore, err := newAssetStore(cfg.Assets)
	if err != nil {
		return err
	}

	cache := middleware.NewResponseCache(config.LoadCacheConfig(cfg.Store.Namespace), rdb, logger)
	cancelPurge := st.OnCatalogChanged(cache.Observe)
	defer cancelPurge()

	if cfg.RabbitURL != "" {
		origin := uuid.NewString()
		pub := queue.NewPublisher(cfg.RabbitURL, origin, logger)
		defer pub.Close()
		cancelPub := st.OnCatalogChanged(pub.Observe)
		defer cancelPub()

		consumer := queue.NewConsumer(cfg.RabbitURL, origin, st, logger)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("change consumer stopped", "error", err)
			}
		}()
	}

	events := service.NewEvents(st)
	company := service.NewCompany(st)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(logger))
	e.Use(echomw.Recover())

	router.RegisterRoutes(e, router.Deps{
		Health: &handler.HealthHandler{Probe: func(ctx context.Context) error {
			_, err := st.Read(ctx)
			return err
		}},
		Auth:   handler.NewAuthHandler(sessions, creds),
		Public: handler.NewPublicHandler(events, company),
		Admin: &handler.AdminHandler{
			Store:     st,
			Events:    events,
			Company:   company,
			Creds:     creds,
			Assets:    assetStore,
			MaxUpload: cfg.Assets.MaxBytes,
		},
		Sessions:  sessions,
		Cache:     cache.Middleware(),
		RateLimit: middleware.NewTokenBucket(config.LoadRateLimitConfig(cfg.Store.Namespace), rdb, logger),
	})

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr, "store", cfg.Store.Backend, "codec", cd.Name())
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(sctx)
}

func newSessionStore(cfg config.Config, rdb *redis.Client, logger *slog.Logger) session.Store {
	if cfg.Session.Backend == "redis" {
		if rdb != nil {
			return session.NewRedisStore(rdb, cfg.Store.Namespace)
		}
		logger.Warn("SESSION_STORE=redis but redis is unavailable, keeping sessions in memory")
	}
	return session.NewMemoryStore()
}

func newAssetStore(c config.AssetsConfig) (assets.Store, error) {
	if c.Backend != "s3" {
		return assets.DataURL{MaxBytes: c.MaxBytes}, nil
	}
	s3, err := assets.NewS3(assets.S3Config{
		Bucket:          c.S3Bucket,
		Region:          c.S3Region,
		Prefix:          c.S3Prefix,
		Endpoint:        c.S3Endpoint,
		PublicBaseURL:   c.S3PublicBaseURL,
		AccessKeyID:     c.AccessKeyID,
		SecretAccessKey: c.SecretAccessKey,
		MaxBytes:        c.MaxBytes,
	})
	if err != nil {
		return nil, err
	}
	return s3, nil
}
