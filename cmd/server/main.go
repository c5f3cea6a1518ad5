package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/psa231093/fbrelay/internal/api"
	"github.com/psa231093/fbrelay/internal/api/handler"
	"github.com/psa231093/fbrelay/internal/config"
	"github.com/psa231093/fbrelay/internal/extractor"
	"github.com/psa231093/fbrelay/internal/repository"
	"github.com/psa231093/fbrelay/internal/scheduler"
	"github.com/psa231093/fbrelay/internal/service"
	"github.com/psa231093/fbrelay/internal/uploader"
	"github.com/psa231093/fbrelay/internal/worker"
	"github.com/psa231093/fbrelay/pkg/facebook"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "", "Path to config file")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("fbrelay %s (built %s)\n", Version, BuildTime)
		os.Exit(0)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("starting fbrelay",
		"version", Version,
		"build_time", BuildTime,
	)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Ensure storage directories exist
	if err := os.MkdirAll(cfg.Storage.DownloadDir, 0755); err != nil {
		logger.Error("failed to create download directory", "error", err)
		os.Exit(1)
	}
	if err := os.MkdirAll(cfg.Storage.TempDir, 0755); err != nil {
		logger.Error("failed to create temp directory", "error", err)
		os.Exit(1)
	}

	db, err := repository.OpenDB(cfg.Storage.HistoryDB)
	if err != nil {
		logger.Error("failed to open history database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Repositories
	jobRepo := repository.NewInMemoryJobRepository()
	historyRepo := repository.NewSQLiteHistoryRepository(db)
	scheduleRepo := repository.NewSQLiteScheduleRepository(db)

	// Graph API client; verify the token before accepting work
	fbClient := facebook.NewClient(cfg.Facebook)
	{
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		account, err := fbClient.TestConnection(ctx)
		cancel()
		if err != nil {
			logger.Warn("facebook connection test failed", "error", err)
		} else {
			logger.Info("facebook connection ok",
				"account_id", account.ID,
				"account_name", account.Name,
			)
		}
	}

	ext, err := extractor.NewYTDLP(cfg.Extractor, cfg.Storage, logger)
	if err != nil {
		logger.Error("failed to initialize extractor", "error", err)
		os.Exit(1)
	}

	up := uploader.New(fbClient, cfg.Facebook, logger)

	relaySvc := service.NewRelayService(
		jobRepo,
		historyRepo,
		ext,
		up,
		cfg.Facebook,
		logger,
	)

	// Handlers
	jobHandler := handler.NewJobHandler(relaySvc, logger)
	uploadHandler := handler.NewUploadHandler(relaySvc, ext, historyRepo, cfg.Storage.DownloadDir, logger)
	fileHandler := handler.NewFileHandler(historyRepo, cfg.Storage.DownloadDir, logger)
	scheduleHandler := handler.NewScheduleHandler(scheduleRepo, cfg.Storage.DownloadDir, logger)
	healthHandler := handler.NewHealthHandler(jobRepo, cfg.Storage.DownloadDir)

	router := api.NewRouter(
		jobHandler,
		uploadHandler,
		fileHandler,
		scheduleHandler,
		healthHandler,
		cfg.Server.APIKey,
	)

	// Background processing
	pool := worker.NewPool(
		worker.Config{
			Workers:      cfg.Worker.Count,
			PollInterval: cfg.Worker.PollInterval,
		},
		jobRepo,
		relaySvc,
		logger,
	)
	pool.Start()

	sched := scheduler.New(scheduleRepo, relaySvc, cfg.Worker.SchedulePollInterval, logger)
	sched.Start()

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("starting HTTP server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Stop accepting new requests
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	sched.Stop()

	// Stop workers (allow in-flight jobs to complete)
	if err := pool.Stop(25 * time.Second); err != nil {
		logger.Error("worker pool shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
