package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/zlog"
	"github.com/yokitheyo/frontaltriage/internal/domain"
)

const (
	DefaultImagesDir    = "images"
	DefaultOutputDir    = "compressed_images"
	DefaultMinSizeKB    = 1024
	DefaultTargetSizeKB = 1024
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Triage  TriageConfig  `mapstructure:"triage"`
	Mirror  MirrorConfig  `mapstructure:"mirror"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type ServerConfig struct {
	Addr               string `mapstructure:"addr"`
	GinMode            string `mapstructure:"gin_mode"`
	ShutdownTimeoutSec int    `mapstructure:"shutdown_timeout_sec"`
	ReadTimeoutSec     int    `mapstructure:"read_timeout_sec"`
	WriteTimeoutSec    int    `mapstructure:"write_timeout_sec"`
}

// TriageConfig drives both pipeline stages.
type TriageConfig struct {
	ImagesDir     string `mapstructure:"images_dir"`
	OutputDir     string `mapstructure:"output_dir"`
	FrontalSuffix string `mapstructure:"frontal_suffix"`
	MinSizeKB     int64  `mapstructure:"min_size_kb"`
	TargetSizeKB  int    `mapstructure:"target_size_kb"`
}

// MirrorConfig configures the optional S3 copy of compressed images.
type MirrorConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Prefix    string `mapstructure:"prefix"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// Default returns a config that works against ./images without a file.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func Load(path string) (*Config, error) {
	cfg := config.New()

	configPath := path
	if configPath == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			configPath = "config.yaml"
		} else if _, err := os.Stat("/app/config.yaml"); err == nil {
			configPath = "/app/config.yaml"
		} else {
			return nil, fmt.Errorf("config.yaml not found")
		}
	}

	envPath := ".env"
	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		envPath = ""
	}

	if err := cfg.Load(configPath, envPath, "APP"); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	appConfig := &Config{}
	if err := cfg.Unmarshal(appConfig); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(appConfig)

	if err := validateConfig(appConfig); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	zlog.Logger.Info().
		Str("images_dir", appConfig.Triage.ImagesDir).
		Str("output_dir", appConfig.Triage.OutputDir).
		Str("frontal_suffix", appConfig.Triage.FrontalSuffix).
		Int64("min_size_kb", appConfig.Triage.MinSizeKB).
		Int("target_size_kb", appConfig.Triage.TargetSizeKB).
		Bool("mirror_enabled", appConfig.Mirror.Enabled).
		Msg("Config loaded successfully via wbf")

	return appConfig, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.GinMode == "" {
		cfg.Server.GinMode = "release"
	}
	if cfg.Server.ShutdownTimeoutSec == 0 {
		cfg.Server.ShutdownTimeoutSec = 10
	}
	if cfg.Server.ReadTimeoutSec == 0 {
		cfg.Server.ReadTimeoutSec = 15
	}
	if cfg.Server.WriteTimeoutSec == 0 {
		cfg.Server.WriteTimeoutSec = 600
	}

	if cfg.Triage.ImagesDir == "" {
		cfg.Triage.ImagesDir = DefaultImagesDir
	}
	if cfg.Triage.OutputDir == "" {
		cfg.Triage.OutputDir = DefaultOutputDir
	}
	if cfg.Triage.FrontalSuffix == "" {
		cfg.Triage.FrontalSuffix = domain.DefaultFrontalSuffix
	}
	if cfg.Triage.MinSizeKB == 0 {
		cfg.Triage.MinSizeKB = DefaultMinSizeKB
	}
	if cfg.Triage.TargetSizeKB == 0 {
		cfg.Triage.TargetSizeKB = DefaultTargetSizeKB
	}

	if cfg.Mirror.Prefix == "" {
		cfg.Mirror.Prefix = DefaultOutputDir
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

func validateConfig(cfg *Config) error {
	// Server
	if cfg.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	switch cfg.Server.GinMode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("server.gin_mode must be one of debug, release, test")
	}
	if cfg.Server.ShutdownTimeoutSec <= 0 {
		return fmt.Errorf("server.shutdown_timeout_sec must be positive")
	}
	if cfg.Server.ReadTimeoutSec <= 0 {
		return fmt.Errorf("server.read_timeout_sec must be positive")
	}
	if cfg.Server.WriteTimeoutSec <= 0 {
		return fmt.Errorf("server.write_timeout_sec must be positive")
	}

	// Triage
	if cfg.Triage.ImagesDir == "" {
		return fmt.Errorf("triage.images_dir is required")
	}
	if cfg.Triage.OutputDir == "" {
		return fmt.Errorf("triage.output_dir is required")
	}
	if err := validateOutputDir(cfg.Triage.ImagesDir, cfg.Triage.OutputDir); err != nil {
		return err
	}
	if cfg.Triage.MinSizeKB < 0 {
		return fmt.Errorf("triage.min_size_kb must be non-negative")
	}
	if cfg.Triage.TargetSizeKB <= 0 {
		return fmt.Errorf("triage.target_size_kb must be positive")
	}

	// Mirror
	if cfg.Mirror.Enabled {
		if cfg.Mirror.Endpoint == "" {
			return fmt.Errorf("mirror.endpoint is required when mirror is enabled")
		}
		if cfg.Mirror.Bucket == "" {
			return fmt.Errorf("mirror.bucket is required when mirror is enabled")
		}
		if cfg.Mirror.AccessKey == "" || cfg.Mirror.SecretKey == "" {
			return fmt.Errorf("mirror.access_key and mirror.secret_key are required when mirror is enabled")
		}
	}

	if _, err := zerolog.ParseLevel(cfg.Logging.Level); err != nil || cfg.Logging.Level == "" {
		return fmt.Errorf("logging.level %q is not a valid level", cfg.Logging.Level)
	}

	return nil
}

// validateOutputDir rejects an output tree that is, or lives under, the
// images tree, since the next scan would pick up compressed copies.
func validateOutputDir(imagesDir, outputDir string) error {
	images, err := filepath.Abs(imagesDir)
	if err != nil {
		return fmt.Errorf("triage.images_dir %q: %w", imagesDir, err)
	}
	output, err := filepath.Abs(outputDir)
	if err != nil {
		return fmt.Errorf("triage.output_dir %q: %w", outputDir, err)
	}

	rel, err := filepath.Rel(images, output)
	if err != nil {
		return nil
	}
	if rel == "." {
		return fmt.Errorf("triage.output_dir must differ from triage.images_dir")
	}
	if rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("triage.output_dir must not be inside triage.images_dir")
	}
	return nil
}

// ApplyLevel sets the global log level for zlog.
func (c LoggingConfig) ApplyLevel() {
	level, err := zerolog.ParseLevel(c.Level)
	if err != nil || c.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}
