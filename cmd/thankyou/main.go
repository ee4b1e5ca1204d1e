package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/arawak/thankyou/internal/card"
	"github.com/arawak/thankyou/internal/config"
	"github.com/arawak/thankyou/internal/httpapi"
	"github.com/arawak/thankyou/internal/media"
	"github.com/arawak/thankyou/internal/store"
	"github.com/arawak/thankyou/internal/studio"
	"github.com/arawak/thankyou/internal/unsplash"
	"github.com/arawak/thankyou/migrations"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)})).With("version", version)
	slog.SetDefault(logger)

	var apiKeys *httpapi.APIKeyStore
	if cfg.AuthMode == config.AuthAPIKey {
		apiKeys, err = httpapi.LoadAPIKeys(cfg.APIKeysFile)
		if err != nil {
			logger.Error("failed to load api keys", "error", err)
			os.Exit(1)
		}
	}

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	client, err := unsplash.New(cfg.UnsplashAccessKey,
		unsplash.WithBaseURL(cfg.UnsplashBaseURL),
		unsplash.WithHTTPClient(httpClient),
		unsplash.WithLogger(logger),
	)
	if err != nil {
		var se *unsplash.StartupError
		if errors.As(err, &se) {
			logger.Error("cannot start without unsplash credentials", "error", err)
		} else {
			logger.Error("failed to create unsplash client", "error", err)
		}
		os.Exit(1)
	}

	var (
		index store.Index
		db    *sqlx.DB
	)
	if cfg.DBDSN != "" {
		dsn, err := mysql.ParseDSN(cfg.DBDSN)
		if err != nil {
			logger.Error("invalid db dsn", "error", err)
			os.Exit(1)
		}
		// catalog_image timestamps scan into time.Time
		dsn.ParseTime = true
		cfg.DBDSN = dsn.FormatDSN()

		db, err = sqlx.Open("mysql", cfg.DBDSN)
		if err != nil {
			logger.Error("failed to open db", "error", err)
			os.Exit(1)
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(30 * time.Minute)

		if err := migrations.Up(cfg.DBDSN); err != nil {
			logger.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
		index = store.New(db)
	} else {
		logger.Info("no database configured, using in-memory catalog index")
		index = store.NewMemory()
	}

	mediaMgr := media.NewManager(cfg.CacheDir,
		media.WithHTTPClient(httpClient),
		media.WithLimits(cfg.MaxImageBytes, cfg.MaxPixels),
		media.WithLogger(logger),
	)

	sessions := studio.NewManager(context.Background(), client, card.NewRenderer(mediaMgr), index,
		studio.WithDebounce(cfg.Debounce),
		studio.WithSessionTTL(cfg.SessionTTL),
		studio.WithMaxSessions(cfg.MaxSessions),
		studio.WithLogger(logger),
	)

	router := httpapi.NewRouter(cfg, httpapi.Deps{
		Sessions: sessions,
		Index:    index,
		Media:    mediaMgr,
		APIKeys:  apiKeys,
		Logger:   logger,
	})

	srv := &http.Server{Addr: cfg.Bind, Handler: router}
	go func() {
		logger.Info("server starting", "addr", cfg.Bind)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info("shutting down gracefully")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	sessions.Close()

	if db != nil {
		if err := db.Close(); err != nil {
			logger.Error("database close error", "error", err)
		}
	}
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return level
}
