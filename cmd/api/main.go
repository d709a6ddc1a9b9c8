package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/bryanwahyu/artifact-age/internal/application"
	"github.com/bryanwahyu/artifact-age/internal/application/analysis"
	apphistory "github.com/bryanwahyu/artifact-age/internal/application/history"
	"github.com/bryanwahyu/artifact-age/internal/config"
	"github.com/bryanwahyu/artifact-age/internal/domain/archive"
	openaiclient "github.com/bryanwahyu/artifact-age/internal/infra/ai/openai"
	mysqlp "github.com/bryanwahyu/artifact-age/internal/infra/db/mysql"
	postgresp "github.com/bryanwahyu/artifact-age/internal/infra/db/postgres"
	"github.com/bryanwahyu/artifact-age/internal/infra/history"
	"github.com/bryanwahyu/artifact-age/internal/infra/httpserver"
	"github.com/bryanwahyu/artifact-age/internal/infra/storage"
	"github.com/bryanwahyu/artifact-age/internal/logging"
	"github.com/bryanwahyu/artifact-age/internal/middleware"
)

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	// load config
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()

	// local assets + history document
	assets := storage.NewLocalStore(cfg.Storage.ImagesDir)
	store := history.Open(cfg.Storage.HistoryFile, assets)
	logger.Info("history loaded",
		zap.String("path", store.Path()),
		zap.Int("records", store.Len()),
	)

	analysisSvc := &analysis.Service{
		History: store,
		Assets:  assets,
		Clock:   application.SystemClock{},
		Logger:  logging.Component(logger, "analysis"),
	}

	checks := map[string]middleware.HealthChecker{
		"images": &middleware.DirectoryHealthChecker{Dir: cfg.Storage.ImagesDir},
	}

	// vision model; without a key every analysis reports the config message
	if cfg.OpenAI.APIKey != "" {
		client := openaiclient.NewClient(cfg.OpenAI.APIKey, openaiclient.Options{
			Model:       cfg.OpenAI.Model,
			MaxTokens:   cfg.OpenAI.MaxTokens,
			Temperature: cfg.OpenAI.Temperature,
			BaseURL:     cfg.OpenAI.BaseURL,
		})
		analysisSvc.AI = client
		logger.Info("vision model configured", zap.String("model", client.Model()))
	} else {
		logger.Warn("OPENAI_API_KEY not set, analyses will be rejected")
	}

	// optional minio mirror
	if cfg.Minio.Enabled {
		mirror, err := storage.NewMinioMirror(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
		)
		if err != nil {
			logger.Fatal("minio init error", zap.Error(err))
		}
		analysisSvc.Mirror = mirror
		checks["minio"] = middleware.CheckFunc(mirror.Check)
	}

	// optional sql archive
	var archiveRepo archive.Repository
	if cfg.Database.Driver != "" {
		db, repo, err := openArchive(ctx, cfg)
		if err != nil {
			logger.Fatal("archive init error", zap.String("driver", cfg.Database.Driver), zap.Error(err))
		}
		defer db.Close()
		archiveRepo = repo
		analysisSvc.Archive = repo
		checks["archive"] = middleware.CheckFunc(repo.Ping)
	}

	historySvc := &apphistory.Service{Repo: store, Assets: assets}

	limiter := middleware.NewRateLimiter(cfg.Server.RateLimit.Capacity, cfg.Server.RateLimit.RefillRate)
	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-sweepCtx.Done():
				return
			case <-ticker.C:
				limiter.Sweep(10 * time.Minute)
			}
		}
	}()

	handler := httpserver.NewRouter(analysisSvc, historySvc, archiveRepo, httpserver.Options{
		AccessToken:    cfg.Server.AccessToken,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Limiter:        limiter,
		HealthChecks:   checks,
		Logger:         logging.Component(logger, "http"),
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// run server
	go func() {
		logger.Info("server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
}

type archiveStore interface {
	archive.Repository
	EnsureSchema(ctx context.Context) error
}

func openArchive(ctx context.Context, cfg *config.Config) (*sql.DB, archiveStore, error) {
	var (
		db   *sql.DB
		repo archiveStore
		err  error
	)
	switch cfg.Database.Driver {
	case "mysql":
		if db, err = mysqlp.Connect(ctx, cfg.MySQLDSN()); err != nil {
			return nil, nil, err
		}
		repo = mysqlp.NewArchiveRepository(db)
	case "postgres":
		if db, err = postgresp.Connect(ctx, cfg.PostgresDSN()); err != nil {
			return nil, nil, err
		}
		repo = postgresp.NewArchiveRepository(db)
	default:
		return nil, nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
	if err := repo.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	return db, repo, nil
}
