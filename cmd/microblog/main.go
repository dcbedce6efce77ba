package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alphabot-ai/microblog/internal/auth"
	"github.com/alphabot-ai/microblog/internal/config"
	httpapp "github.com/alphabot-ai/microblog/internal/http"
	"github.com/alphabot-ai/microblog/internal/logging"
	"github.com/alphabot-ai/microblog/internal/rate"
	"github.com/alphabot-ai/microblog/internal/service"
	"github.com/alphabot-ai/microblog/internal/store"
	mongostore "github.com/alphabot-ai/microblog/internal/store/mongo"
	"github.com/alphabot-ai/microblog/internal/store/sqlite"

	"github.com/pkg/errors"
	redis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

// Set with -ldflags "-X main.version=... -X main.commit=... -X main.buildTime=...".
var (
	version   string
	commit    string
	buildTime string
)

func main() {
	app := &cli.App{
		Name:    "microblog",
		Usage:   "Micro-blogging API server and client",
		Version: versionString(),
		Action: func(*cli.Context) error {
			return runServer()
		},
		Commands: append([]*cli.Command{
			{
				Name:    "serve",
				Aliases: []string{"server"},
				Usage:   "Start the API server (default if no command)",
				Action: func(*cli.Context) error {
					return runServer()
				},
			},
		}, clientCommands()...),
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionString() string {
	if version == "" {
		return "dev"
	}
	return version
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if version != "" {
		cfg.Version = version
	}
	if commit != "" {
		cfg.Commit = commit
	}
	if buildTime != "" {
		cfg.BuildTime = buildTime
	}

	log, logFiles, err := logging.New(logging.Options{
		Level:     cfg.Log.Level,
		File:      cfg.Log.File,
		ErrorFile: cfg.Log.ErrorFile,
	})
	if err != nil {
		return err
	}
	defer logFiles.Close()
	for _, w := range cfg.Warnings() {
		log.Warn(w)
	}

	ctx := context.Background()
	st, err := openStore(ctx, cfg.Store)
	if err != nil {
		log.WithError(err).Error("failed to open store")
		return err
	}
	defer st.Close()
	log.WithField("driver", cfg.Store.Driver).Info("store ready")

	limiter, closeLimiter := newLimiter(ctx, cfg.Redis, log)
	defer closeLimiter()

	tokens := auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, cfg.Auth.Issuer)
	svc := service.New(st, auth.BcryptHasher{Cost: cfg.Auth.BcryptCost}, tokens,
		service.Options{CascadeUserContent: cfg.CascadeUserContent}, log)
	server := httpapp.NewServer(svc, limiter, cfg, log)

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("microblog listening on %s", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		log.WithError(err).Error("server error")
		return err
	case <-stop:
	}
	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Driver {
	case "mongo":
		st, err := mongostore.Open(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, err
		}
		return st, nil
	case "sqlite":
		st, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, errors.Wrap(err, "open sqlite")
		}
		return st, nil
	default:
		return nil, errors.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// newLimiter uses redis when configured and reachable, else the in-process limiter.
func newLimiter(ctx context.Context, cfg config.RedisConfig, log logrus.FieldLogger) (rate.Limiter, func()) {
	if cfg.Addr == "" {
		return rate.NewMemory(), func() {}
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	limiter := rate.NewRedis(client, log)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := limiter.Ping(pingCtx); err != nil {
		log.Warnf("redis unavailable at %s, using in-process rate limiter: %v", cfg.Addr, err)
		_ = client.Close()
		return rate.NewMemory(), func() {}
	}
	log.Infof("rate limiter using redis at %s", cfg.Addr)
	return limiter, func() { _ = client.Close() }
}
