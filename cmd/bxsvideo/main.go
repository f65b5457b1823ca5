package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/lmittmann/tint"

	"github.com/bdougie/boxshadow/internal/config"
	"github.com/bdougie/boxshadow/internal/extractor"
	"github.com/bdougie/boxshadow/internal/server"
	"github.com/bdougie/boxshadow/internal/signature"
	"github.com/bdougie/boxshadow/internal/storage"
	"github.com/bdougie/boxshadow/internal/studio"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to a YAML config file")
		source     = flag.String("source", "", "video file, capture device such as /dev/video0, or still image")
		name       = flag.String("name", "", "capture name (defaults to the source file name)")
		output     = flag.String("output", "", "output directory (file store) or database path (sqlite)")
		driver     = flag.String("store", "", "storage driver: file, sqlite or postgres")
		dsn        = flag.String("dsn", "", "postgres connection string")
		preset     = flag.Int("preset", -1, "quality preset index, 0-9")
		lessColors = flag.Bool("less-colors", false, "use three digit hex colors")
		replay     = flag.Bool("replay", false, "print every recorded frame before compiling")
		serve      = flag.String("serve", "", "start the render server on this address")
		preview    = flag.String("preview", "", "write the last preview frame to this PNG path")
		logLevel   = flag.String("log-level", "info", "log level: debug, info, warn or error")
	)
	flag.Parse()

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		fmt.Fprintf(os.Stderr, "invalid log level %q\n", *logLevel)
		os.Exit(2)
	}

	// Configure logger
	logger := slog.New(
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: "15:04:05",
		}),
	)
	slog.SetDefault(logger)

	if *source == "" && *serve == "" {
		fmt.Println("Usage: bxsvideo -source path/to/video.mp4 [-store file|sqlite|postgres] [-serve :8080]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadConfigFile(*configPath); err != nil {
			logger.Error("Failed to load config", "path", *configPath, "error", err)
			os.Exit(1)
		}
	}
	if *preset >= 0 {
		if err := cfg.ApplyPreset(*preset); err != nil {
			logger.Error("Invalid preset", "error", err)
			os.Exit(1)
		}
	}
	if *lessColors {
		cfg.LessColors = true
	}
	if *driver != "" && *driver != cfg.Storage.Driver {
		cfg.Storage.Driver = *driver
		cfg.Storage.Path = ""
		cfg.ApplyDefaults()
	}
	if *output != "" {
		cfg.Storage.Path = *output
	}
	if *dsn != "" {
		cfg.Storage.DSN = *dsn
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStorage(ctx, cfg)
	if err != nil {
		logger.Error("Failed to open storage", "driver", cfg.Storage.Driver, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	if *source != "" {
		captureName := *name
		if captureName == "" {
			captureName = strings.TrimSuffix(filepath.Base(*source), filepath.Ext(*source))
		}

		opts := studio.Options{
			Name:        captureName,
			Replay:      *replay,
			PreviewPath: *preview,
			LiveSink:    studio.LogSink{Logger: logger, Label: "live"},
		}
		if *replay {
			opts.ReplaySink = &studio.WriterSink{W: os.Stdout}
		}

		fmt.Printf("Recording %d frames from '%s'...\n", cfg.Capture.Repetitions, *source)
		processor := studio.NewProcessor(cfg, store, logger)
		capture, err := processor.ProcessSource(ctx, extractor.Open(*source, cfg.Size), opts)
		if err != nil {
			logger.Error("Recording failed", "error", err)
			closeStore()
			os.Exit(1)
		}

		if fs, ok := store.(*storage.FileStorage); ok {
			fmt.Printf("Animation written to %s\n", filepath.Join(fs.CaptureDir(capture.ID, capture.Name), "animation.css"))
		} else {
			fmt.Printf("Capture %d saved with %d frames\n", capture.ID, len(capture.Frames))
		}
	}

	if *serve != "" {
		srv := server.New(store, logger)
		if err := srv.ListenAndServe(ctx, *serve); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Render server failed", "error", err)
			closeStore()
			os.Exit(1)
		}
	}
}

// openStorage builds the configured store and returns its cleanup.
func openStorage(ctx context.Context, cfg *config.Config) (storage.Storage, func(), error) {
	switch cfg.Storage.Driver {
	case "sqlite":
		s, err := storage.NewSQLiteStorage(ctx, cfg.Storage.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	case "postgres":
		signatures := signature.NewService(4)
		s, err := storage.NewPostgresStorage(ctx, postgresConfig(cfg.Storage.DSN), signatures)
		if err != nil {
			signatures.Close()
			return nil, nil, err
		}
		return s, func() {
			s.Close()
			signatures.Close()
		}, nil
	default:
		s, err := storage.NewFileStorage(cfg.Storage.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	}
}

// postgresConfig falls back to the PG* environment when no DSN is given.
func postgresConfig(dsn string) storage.PostgresConfig {
	return storage.PostgresConfig{
		DSN:      dsn,
		Host:     getenv("PGHOST", "localhost"),
		Port:     getenv("PGPORT", "5432"),
		User:     getenv("PGUSER", "postgres"),
		Password: os.Getenv("PGPASSWORD"),
		DBName:   getenv("PGDATABASE", "boxshadow"),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
