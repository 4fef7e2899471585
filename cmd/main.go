package main

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"

	"spinly/internal/assets"
	"spinly/internal/blobstore"
	"spinly/internal/config"
	"spinly/internal/handlers"
	"spinly/internal/metrics"
	"spinly/internal/middleware"
	"spinly/internal/repositories/spinlog"
	"spinly/internal/repositories/stock"
	"spinly/internal/services"
)

//go:embed all:templates
var templateFS embed.FS

//go:embed all:assets
var assetsFS embed.FS

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logFile, err := os.OpenFile(filepath.Join(cfg.DataDir, "spinly.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	defer logFile.Close()
	defer logger.Init("spinly", cfg.LogVerbose || cfg.IsDevelopment(), false, logFile).Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Open storage
	provider, err := blobstore.Open(ctx, cfg.BlobOptions())
	if err != nil {
		logger.Fatalf("Failed to open %s storage: %v", cfg.StorageDriver, err)
	}
	defer provider.Close()

	stockStore, err := provider.Store(stock.StoreName)
	if err != nil {
		logger.Fatalf("Failed to open stock store: %v", err)
	}
	logStore, err := provider.Store(spinlog.StoreName)
	if err != nil {
		logger.Fatalf("Failed to open log store: %v", err)
	}

	stockRepo := stock.NewBlobRepository(stockStore)
	if cfg.SeedStockFile != "" {
		seeded, err := stock.SeedFromYAML(ctx, stockRepo, cfg.SeedStockFile)
		if err != nil {
			logger.Fatalf("Failed to seed stock from %s: %v", cfg.SeedStockFile, err)
		}
		if seeded {
			logger.Infof("Seeded stock from %s", cfg.SeedStockFile)
		}
	}
	sink := spinlog.NewBreakerSink("spin-log", spinlog.NewBlobSink(logStore))

	// 3. Initialize the services
	spinService := services.NewSpinService(stockRepo, sink, services.SpinOptions{
		SettleTimeout: cfg.SettleTimeout,
		IdleTimeout:   cfg.IdleTimeout,
	})
	stockService := services.NewStockService(stockRepo)
	logService := services.NewLogService(sink)
	assetStore := assets.NewStore(provider)
	limiter := middleware.NewRateLimiter(cfg.SpinRateLimit, cfg.SpinRateBurst)

	// 4. Load HTML templates from the embedded filesystem.
	templates, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		logger.Fatalf("Failed to parse templates: %v", err)
	}

	httpHandler := handlers.NewHTTPHandler(spinService, stockService, logService, assetStore, limiter, templates)

	// 5. Set up the Gin router
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	r.Use(metrics.PrometheusMiddleware())

	assetsSubFS, err := fs.Sub(assetsFS, "assets")
	if err != nil {
		logger.Fatalf("Failed to create assets sub-filesystem: %v", err)
	}
	r.StaticFS("/assets", http.FS(assetsSubFS))
	httpHandler.RegisterRoutes(r)

	// 6. Start the background janitor
	janitor, err := spinService.StartJanitor(cfg.JanitorSchedule)
	if err != nil {
		logger.Fatalf("Failed to start janitor: %v", err)
	}
	if _, err := janitor.AddFunc(cfg.JanitorSchedule, func() {
		if n := limiter.Cleanup(10 * time.Minute); n > 0 {
			logger.Infof("Dropped %d idle rate limiters", n)
		}
	}); err != nil {
		logger.Fatalf("Failed to schedule rate limiter cleanup: %v", err)
	}
	defer janitor.Stop()

	// 7. Run the server
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Infof("Server starting on %s (storage: %s)", cfg.Addr, cfg.StorageDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Failed to run server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server shutdown: %v", err)
	}
}
