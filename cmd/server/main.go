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

	"github.com/iconidentify/vidgrab/internal/api"
	"github.com/iconidentify/vidgrab/internal/api/handler"
	"github.com/iconidentify/vidgrab/internal/catalog"
	"github.com/iconidentify/vidgrab/internal/classifier"
	"github.com/iconidentify/vidgrab/internal/config"
	"github.com/iconidentify/vidgrab/internal/domain"
	"github.com/iconidentify/vidgrab/internal/downloader"
	"github.com/iconidentify/vidgrab/internal/extractor"
	"github.com/iconidentify/vidgrab/internal/repository"
	"github.com/iconidentify/vidgrab/internal/service"
	"github.com/iconidentify/vidgrab/internal/worker"
	"github.com/iconidentify/vidgrab/pkg/ffmpeg"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to config file")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("vidgrab %s (built %s)\n", Version, BuildTime)
		os.Exit(0)
	}

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("starting vidgrab",
		"version", Version,
		"build_time", BuildTime,
	)

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if cfg.Download.TempDir != "" {
		if err := os.MkdirAll(cfg.Download.TempDir, 0755); err != nil {
			logger.Error("failed to create temp directory", "error", err)
			os.Exit(1)
		}
	}

	// External tools
	ytdlp := extractor.NewYTDLP(cfg.Extractor, logger)
	if cfg.Extractor.AutoInstall && cfg.Extractor.Executable == "" {
		installCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		path, err := extractor.Install(installCtx)
		cancel()
		if err != nil {
			logger.Error("failed to install yt-dlp", "error", err)
			os.Exit(1)
		}
		ytdlp.SetExecutable(path)
		logger.Info("yt-dlp ready", "path", path)
	}

	var installFFmpeg ffmpeg.InstallFunc
	if cfg.Extractor.AutoInstall {
		installFFmpeg = extractor.InstallFFmpeg
	}
	installCtx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	ff, installed, err := ffmpeg.Ensure(installCtx, cfg.Extractor.FFmpegPath, installFFmpeg)
	cancel()
	if err != nil {
		logger.Error("failed to install ffmpeg", "error", err)
	} else if installed {
		logger.Info("ffmpeg installed", "dir", ff.Dir())
	}
	if err := ff.ExportPath(); err != nil {
		logger.Error("failed to configure ffmpeg path", "error", err)
		os.Exit(1)
	}
	if v, err := ff.Version(context.Background()); err != nil {
		logger.Warn("ffmpeg unavailable, merging and MP3 conversion will fail", "error", err)
	} else {
		logger.Info("ffmpeg found", "version", v)
	}

	// Initialize services
	events, err := service.NewEventService(cfg.Events, logger)
	if err != nil {
		logger.Error("failed to initialize event service", "error", err)
		os.Exit(1)
	}

	profile := extractor.NewProfile(cfg.Extractor)
	catalogSvc := catalog.NewService(ytdlp, profile, cfg.Catalog, cfg.Retry, logger)
	dl := downloader.New(ytdlp, profile, cfg.Download, cfg.Retry, logger)
	deliveries := repository.NewInMemoryDeliveryRepository(cfg.Download.DeliveryTTL)

	mediaSvc := service.NewMediaService(
		classifier.New(cfg.Classifier),
		catalogSvc,
		dl,
		deliveries,
		events,
		cfg.Download,
		logger,
	)

	// Initialize handlers
	router := api.NewRouter(api.Handlers{
		Media:  handler.NewMediaHandler(mediaSvc, logger),
		Events: handler.NewEventHandler(events, logger),
		Health: handler.NewHealthHandler(mediaSvc, events, logger,
			handler.ReadinessCheck{Name: "yt-dlp", Check: ytdlp.Check},
			handler.ReadinessCheck{Name: "ffmpeg", Check: ff.Check},
		),
		UI: handler.NewUIHandler(),
	}, cfg.Server)

	// Background maintenance
	pool := worker.NewPool(logger,
		worker.Task{
			Name:     "delivery-sweep",
			Interval: cfg.Worker.SweepInterval,
			Run: func(ctx context.Context) error {
				n, err := deliveries.Sweep(ctx)
				if n > 0 {
					logger.Info("expired uncollected downloads", "count", n)
				}
				return err
			},
		},
		worker.Task{
			Name:     "stale-temp",
			Interval: cfg.Worker.SweepInterval,
			Run: func(ctx context.Context) error {
				_, err := dl.CleanStale(ctx, cfg.Worker.StaleTempAge)
				return err
			},
		},
		worker.Task{
			Name:     "event-retention",
			Interval: cfg.Worker.CleanupInterval,
			Run:      events.CleanupOldEvents,
		},
	)
	pool.Start()

	// Setup HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting HTTP server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	events.EmitInfo(domain.EventCategorySystem, "server", "Server started",
		domain.EventMetadata{"version": Version, "addr": srv.Addr})

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Stop accepting new requests
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if err := pool.Stop(10 * time.Second); err != nil {
		logger.Error("worker pool shutdown error", "error", err)
	}

	if err := events.Close(); err != nil {
		logger.Error("event store close error", "error", err)
	}

	logger.Info("shutdown complete")
}
