package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/mutker/weldctl/internal/capture"
	"codeberg.org/mutker/weldctl/internal/config"
	"codeberg.org/mutker/weldctl/internal/errors"
	"codeberg.org/mutker/weldctl/internal/history"
	"codeberg.org/mutker/weldctl/internal/link"
	"codeberg.org/mutker/weldctl/internal/logger"
	"codeberg.org/mutker/weldctl/internal/metrics"
	"codeberg.org/mutker/weldctl/internal/pid"
	"codeberg.org/mutker/weldctl/internal/settings"
	"codeberg.org/mutker/weldctl/internal/telemetry"
	"codeberg.org/mutker/weldctl/internal/welder"
	"github.com/spf13/pflag"
)

type app struct {
	cfg       *config.Config
	logCloser io.Closer
	settings  *settings.Store
	collector metrics.Collector
	welder    *welder.Service
}

func main() {
	cfg, err := config.Load(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	logCloser := logger.Init(logger.Options{
		Level:     level,
		IsService: logger.IsService(),
		File:      logger.FileOptions{Path: cfg.LogFile},
	})
	logger.Debug().Str("addr", cfg.Address()).Msg("Config loaded")

	if err := pid.Write(); err != nil {
		var appErr errors.Error
		if errors.As(err, &appErr) {
			logger.FatalWithCode(appErr).Msg("Failed to write PID file")
		}
		logger.Fatal().Err(err).Msg("Failed to write PID file")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	a, err := newApp(ctx, cfg, logCloser)
	if err != nil {
		logError(err, "Failed to initialize")
		if err := pid.Remove(); err != nil {
			logger.Error().Err(err).Msg("Failed to remove PID file")
		}
		logCloser.Close()
		os.Exit(1)
	}

	if err := a.run(ctx); err != nil {
		logError(err, "Error in main loop")
	}
	a.cleanup()
}

func newApp(ctx context.Context, cfg *config.Config, logCloser io.Closer) (*app, error) {
	errFactory := errors.New()
	a := &app{cfg: cfg, logCloser: logCloser}

	collector, err := metrics.NewService(metrics.Config{
		Enabled: cfg.Metrics,
		Addr:    cfg.MetricsAddr,
	}, logger.Component("metrics"))
	if err != nil {
		return nil, errFactory.Wrap(errors.ErrInitApp, err)
	}
	a.collector = collector

	a.settings, err = settings.Open(ctx, settings.Config{DBPath: cfg.SettingsDB}, logger.Component("settings"))
	if err != nil {
		return nil, errFactory.Wrap(errors.ErrInitApp, err)
	}

	hist, err := history.Open(ctx, history.Config{
		Dir:        cfg.HistoryDir,
		MaxRecords: cfg.HistoryMax,
	}, a.settings, logger.Component("history"))
	if err != nil {
		a.settings.Close()
		return nil, errFactory.Wrap(errors.ErrInitApp, err)
	}

	captureCfg := capture.DefaultConfig()
	captureCfg.ResistanceOhms = cfg.ResistanceOhms

	a.welder, err = welder.New(ctx, welder.Config{
		Link: link.Config{
			Addr:           cfg.Address(),
			ConnectTimeout: cfg.ConnectTimeout,
			ReadTimeout:    cfg.ReadTimeout,
			SilenceTimeout: cfg.SilenceTimeout,
			RetryCooldown:  cfg.RetryCooldown,
		},
		Capture:   captureCfg,
		Telemetry: telemetry.DefaultConfig(),
	}, hist, a.settings, logger.Component("welder"), welder.WithMetrics(collector))
	if err != nil {
		a.settings.Close()
		return nil, errFactory.Wrap(errors.ErrInitApp, err)
	}

	return a, nil
}

func (a *app) run(ctx context.Context) error {
	if a.cfg.StatusInterval <= 0 {
		return errors.New().WithData(errors.ErrInvalidInterval, a.cfg.StatusInterval.String())
	}

	if a.cfg.Metrics {
		go func() {
			if err := metrics.Serve(ctx, a.cfg.MetricsAddr, a.collector, logger.Component("metrics")); err != nil {
				logError(err, "Metrics endpoint stopped")
			}
		}()
	}

	a.welder.Start(ctx)
	logger.Info().
		Str("addr", a.cfg.Address()).
		Dur("silence_timeout", a.cfg.SilenceTimeout).
		Msg("Welder link supervisor running")

	ticker := time.NewTicker(a.cfg.StatusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			a.welder.PublishStatus()
		}
	}
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}

func (a *app) cleanup() {
	a.welder.Stop()

	if err := a.settings.Close(); err != nil {
		logError(err, "Failed to close settings store")
	}
	if err := pid.Remove(); err != nil {
		logger.Error().Err(err).Msg("Failed to remove PID file")
	}

	logger.Info().Msg("Exiting...")
	a.logCloser.Close()
}

func logError(err error, msg string) {
	var appErr errors.Error
	if errors.As(err, &appErr) {
		logger.ErrorWithCode(appErr).Msg(msg)
		return
	}
	logger.Error().Err(err).Msg(msg)
}
