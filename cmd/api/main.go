package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"
	"github.com/yokitheyo/frontaltriage/internal/config"
	"github.com/yokitheyo/frontaltriage/internal/dto"
	httpHandler "github.com/yokitheyo/frontaltriage/internal/handler/http"
	"github.com/yokitheyo/frontaltriage/internal/handler/middleware"
	"github.com/yokitheyo/frontaltriage/internal/infrastructure/processor"
	"github.com/yokitheyo/frontaltriage/internal/infrastructure/scanner"
	"github.com/yokitheyo/frontaltriage/internal/infrastructure/storage"
	"github.com/yokitheyo/frontaltriage/internal/usecase"
)

func main() {
	zlog.Init()
	zlog.Logger.Info().Msg("Starting Frontal Triage API Server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load config
	cfg, err := config.Load("")
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to load config")
	}
	cfg.Logging.ApplyLevel()

	// Setup Storage
	output, err := storage.New(&cfg.Triage)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("Failed to initialize output storage")
	}
	mirror, err := storage.NewMirror(&cfg.Mirror)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("Failed to initialize S3 mirror")
	}

	// Pipeline + Usecase
	imageScanner := scanner.NewImageScanner(&cfg.Triage)
	imageCompressor := processor.NewImageCompressor(&cfg.Triage, output, mirror)
	triageUsecase := usecase.NewTriageUsecase(imageScanner, imageCompressor, cfg.Triage.ImagesDir)

	// Gin engine + middleware
	engine := ginext.New(cfg.Server.GinMode)
	engine.Use(
		middleware.ErrorHandlerMiddleware(),
		middleware.LoggerMiddleware(),
		middleware.CORSMiddleware(),
	)

	engine.GET("/health", func(c *ginext.Context) {
		c.JSON(http.StatusOK, dto.HealthResponse{Status: "ok"})
	})

	imageHandler := httpHandler.NewImageHandler(triageUsecase)
	imageHandler.RegisterRoutes(engine)

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      engine,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSec) * time.Second,
	}

	go func() {
		zlog.Logger.Info().Str("addr", cfg.Server.Addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Logger.Fatal().Err(err).Msg("Failed to start API server")
		}
	}()

	<-ctx.Done()
	zlog.Logger.Info().Msg("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeoutSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Logger.Error().Err(err).Msg("HTTP server shutdown failed")
	} else {
		zlog.Logger.Info().Msg("HTTP server stopped gracefully")
	}

	zlog.Logger.Info().Msg("API shutdown complete")
}
