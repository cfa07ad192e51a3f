package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/eleven-am/hlsladder"
	"github.com/eleven-am/hlsladder/internal/config"
	"github.com/eleven-am/hlsladder/internal/logging"
	"github.com/eleven-am/hlsladder/internal/metrics"
	"github.com/eleven-am/hlsladder/internal/storage"
)

type globalFlags struct {
	config    string
	logLevel  string
	logFormat string
}

type commandContext struct {
	flags *globalFlags

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(flags *globalFlags) *commandContext {
	return &commandContext{flags: flags}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(strings.TrimSpace(c.flags.config))
		if err != nil {
			c.configErr = err
			return
		}
		if v := strings.TrimSpace(c.flags.logLevel); v != "" {
			cfg.Logging.Level = strings.ToLower(v)
		}
		if v := strings.TrimSpace(c.flags.logFormat); v != "" {
			cfg.Logging.Format = strings.ToLower(v)
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// runtime is everything a command needs to drive the controller.
type runtime struct {
	cfg        *config.Config
	logger     *slog.Logger
	store      storage.Store
	recorder   *metrics.Recorder
	controller *hlsladder.Controller
}

func (r *runtime) Close() {
	if r.store != nil {
		if err := r.store.Close(); err != nil {
			r.logger.Warn("failed to close storage", logging.Error(err))
		}
	}
}

// overrides adjusts the loaded config for a single command.
type overrides func(*config.Config)

func (c *commandContext) open(ctx context.Context, adjust ...overrides) (*runtime, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	for _, fn := range adjust {
		fn(cfg)
	}

	logger, err := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Writer: os.Stderr,
	})
	if err != nil {
		return nil, err
	}

	recorder := metrics.New()

	backend, err := storage.Open(ctx, storage.Options{
		Backend:       cfg.Storage.Backend,
		Root:          cfg.Paths.OutputDir,
		SQLitePath:    cfg.Storage.SQLitePath,
		RedisAddr:     cfg.Storage.RedisAddr,
		RedisPassword: cfg.Storage.RedisPassword,
		RedisDB:       cfg.Storage.RedisDB,
		RedisPrefix:   cfg.Storage.RedisPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	store := storage.NewObservedStore(backend, recorder, logger)

	controller, err := hlsladder.NewController(ctx, hlsladder.Options{
		Storage:             store,
		OutputDir:           cfg.Paths.OutputDir,
		URITemplate:         cfg.Encoding.BaseURITemplate,
		Renditions:          cfg.LadderRenditions(),
		CopyThresholdHeight: cfg.Encoding.CopyThresholdHeight,
		MaxParallel:         cfg.Encoding.MaxParallel,
		HWAccel:             cfg.Encoding.HWAccel,
		FFmpegBinary:        cfg.Encoding.FFmpegBinary,
		FFprobeBinary:       cfg.Encoding.FFprobeBinary,
		SegmentDuration:     cfg.Encoding.SegmentDuration,
		AudioBitrate:        cfg.AudioBitrateBPS(),
		JobTimeout:          cfg.JobTimeout(),
		ExtractAudio:        cfg.Tracks.ExtractAudio,
		ExtractSubtitles:    cfg.Tracks.ExtractSubtitles,
		LockDir:             cfg.Paths.LockDir,
		LockWait:            cfg.LockWait(),
		Logger:              logger,
		Metrics:             recorder,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return &runtime{
		cfg:        cfg,
		logger:     logger,
		store:      store,
		recorder:   recorder,
		controller: controller,
	}, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
