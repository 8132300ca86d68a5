package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/user_management/internal/config"
	"github.com/Skotchmaster/user_management/internal/events"
	"github.com/Skotchmaster/user_management/internal/httpserver"
	"github.com/Skotchmaster/user_management/internal/metrics"
	"github.com/Skotchmaster/user_management/internal/models"
	"github.com/Skotchmaster/user_management/internal/oauth"
	"github.com/Skotchmaster/user_management/internal/repo"
	"github.com/Skotchmaster/user_management/internal/service"
	"github.com/Skotchmaster/user_management/internal/storage"
	"github.com/Skotchmaster/user_management/internal/tokens"
	"github.com/Skotchmaster/user_management/pkg/db"
	"github.com/Skotchmaster/user_management/pkg/hash"
	"github.com/Skotchmaster/user_management/pkg/logging"
	loggingmw "github.com/Skotchmaster/user_management/pkg/middleware/logging"
)

func runServe(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	l := logging.New(cfg.LogLevel)
	slog.SetDefault(l)
	ctx = logging.IntoContext(ctx, l)

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	gdb, err := db.Open(initCtx, cfg.DatabaseURL, cfg.DB.Pool())
	cancel()
	if err != nil {
		return fmt.Errorf("db init error: %w", err)
	}
	defer func() {
		if err := db.Close(gdb); err != nil {
			l.Error("db close error", "error", err)
		}
	}()

	if err := repo.Migrate(gdb); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	store := &repo.GormRepo{DB: gdb}
	if err := service.SeedRoles(ctx, store); err != nil {
		return err
	}

	tk, err := tokens.New([]byte(cfg.JWTSecret), cfg.JWTAccessTTL, cfg.JWTRefreshTTL)
	if err != nil {
		return err
	}

	var publisher events.Publisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		prod, err := events.NewProducer(cfg.KafkaBrokers)
		if err != nil {
			return err
		}
		defer func() {
			if err := prod.Close(); err != nil {
				l.Error("kafka close error", "error", err)
			}
		}()
		publisher = prod
	} else {
		l.Warn("KAFKA_BROKERS not set, account events are discarded")
	}

	objects, err := storage.NewS3Store(ctx, storage.S3Config{
		Bucket:          cfg.S3.Bucket,
		Region:          cfg.S3.Region,
		Endpoint:        cfg.S3.Endpoint,
		PathStyle:       cfg.S3.PathStyle,
		AccessKeyID:     cfg.S3.AccessKeyID,
		SecretAccessKey: cfg.S3.SecretAccessKey,
	})
	if err != nil {
		return err
	}

	m := metrics.New()
	authSvc := &service.AuthService{
		Store:   store,
		Hasher:  hash.Bcrypt{Cost: cfg.BcryptCost},
		Tokens:  tk,
		Events:  publisher,
		Metrics: m,
	}

	e := echo.New()
	e.HideBanner = true
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(
		middleware.Recover(),
		loggingmw.RequestLoggerWithConfig(loggingmw.Config{
			Logger:        l,
			Skipper:       loggingmw.SkipPaths("/health/live", "/health/ready", "/metrics"),
			SlowThreshold: cfg.SlowRequestThreshold,
		}),
		middleware.BodyLimit("8M"),
	)

	httpserver.Register(e, &httpserver.Deps{
		AuthHandler: &httpserver.AuthHTTP{Svc: authSvc},
		UserHandler: &httpserver.UserHTTP{
			Svc:             &service.UserService{Store: store, Objects: objects},
			MaxPictureBytes: cfg.MaxPictureBytes,
		},
		OAuthHandler: &httpserver.OAuthHTTP{
			Client:          oauth.NewManager(oauthProviders(cfg)),
			Reconciler:      &oauth.Reconciler{Store: store},
			Auth:            authSvc,
			SuccessRedirect: cfg.OAuthSuccessRedirect,
			SecureCookies:   true,
		},
		Tokens:  tk,
		Metrics: m.Handler(),
		Ready: func(ctx context.Context) error {
			return db.Ping(ctx, gdb)
		},
	})

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.ServerPort),
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		l.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server error: %w", err)
	case <-sigCtx.Done():
	}

	l.Info("shutting down...")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		l.Error("server shutdown error", "error", err)
	}
	l.Info("shutdown complete")
	return nil
}

func oauthProviders(cfg config.Config) map[models.Provider]oauth.ProviderConfig {
	providers := map[models.Provider]oauth.ProviderConfig{}
	if cfg.Google.Enabled() {
		providers[models.ProviderGoogle] = oauth.GoogleProvider(cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.Google.RedirectURL)
	}
	if cfg.GitHub.Enabled() {
		providers[models.ProviderGitHub] = oauth.GitHubProvider(cfg.GitHub.ClientID, cfg.GitHub.ClientSecret, cfg.GitHub.RedirectURL)
	}
	return providers
}
