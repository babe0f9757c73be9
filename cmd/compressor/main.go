package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/wb-go/wbf/zlog"
	"github.com/yokitheyo/frontaltriage/internal/config"
	"github.com/yokitheyo/frontaltriage/internal/infrastructure/processor"
	"github.com/yokitheyo/frontaltriage/internal/infrastructure/scanner"
	"github.com/yokitheyo/frontaltriage/internal/infrastructure/storage"
	"github.com/yokitheyo/frontaltriage/internal/usecase"
	"github.com/yokitheyo/frontaltriage/internal/worker"
)

func main() {
	zlog.Init()
	zlog.Logger.Info().Msg("Starting Frontal Triage Compressor")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load config
	configPath := "config.yaml"
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		configPath = "/app/config.yaml"
	}

	cfg, err := config.Load(configPath)
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

	imageScanner := scanner.NewImageScanner(&cfg.Triage)
	imageCompressor := processor.NewImageCompressor(&cfg.Triage, output, mirror)
	triageUsecase := usecase.NewTriageUsecase(imageScanner, imageCompressor, cfg.Triage.ImagesDir)
	compressWorker := worker.NewCompressWorker(triageUsecase)

	if _, err := compressWorker.Run(ctx); err != nil {
		zlog.Logger.Error().Err(err).Msg("Compressor finished with error")
		os.Exit(1)
	}

	zlog.Logger.Info().Msg("Compressor finished")
}
