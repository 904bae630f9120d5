// Package app wires configuration, telemetry, the session store, the
// classifier client and the controller into one runnable application.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"LeafScan/internal/classifier"
	"LeafScan/internal/config"
	"LeafScan/internal/console"
	"LeafScan/internal/controller"
	"LeafScan/internal/journal"
	"LeafScan/internal/preview"
	"LeafScan/internal/session"
	"LeafScan/internal/telemetry"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// App bundles the wired components
type App struct {
	Config     config.Config
	SessionID  string
	Logger     *slog.Logger
	Controller *controller.Controller
	Journal    *journal.Journal

	cleanups []func()
}

// New builds the dependency graph from cfg.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &App{Config: cfg, SessionID: uuid.NewString()}

	logger, closeLog, err := telemetry.InitLogger(cfg.LogDir, cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.Logger = logger
	a.cleanups = append(a.cleanups, closeLog)

	if cfg.Debug {
		logger.Info("Debug mode enabled")
	}

	var tracer trace.Tracer
	var meter metric.Meter
	if cfg.Telemetry {
		t, m, shutdown, err := telemetry.InitTelemetry(ctx, cfg.LogDir)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
		}
		tracer, meter = t, m
		a.cleanups = append(a.cleanups, shutdown)
	}

	j, err := journal.Open(cfg.DBPath, a.SessionID, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize journal: %w", err)
	}
	a.Journal = j
	a.cleanups = append(a.cleanups, func() {
		if err := j.Close(); err != nil {
			logger.Error("failed to close journal", "error", err)
		}
	})

	cl, err := classifier.NewHTTPClient(classifier.Options{
		Endpoint: cfg.Endpoint,
		Timeout:  cfg.Timeout,
		Logger:   logger,
		Tracer:   tracer,
		Meter:    meter,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create classifier client: %w", err)
	}

	previews := preview.Factory{Size: cfg.PreviewSize}
	store := session.NewStore(previews.Derive, logger)

	a.Controller = controller.New(store, cl,
		controller.WithLogger(logger),
		controller.WithTelemetry(tracer, meter),
		controller.WithRecorder(j),
	)
	// Drop any preview file still held at shutdown.
	a.cleanups = append(a.cleanups, a.Controller.Reset)

	logger.Info("application initialized", "session_id", a.SessionID, "endpoint", cfg.Endpoint)
	return a, nil
}

// Console returns an interactive console bound to this application.
func (a *App) Console(in io.Reader, out io.Writer) *console.Console {
	return console.New(a.Controller, a.Journal, a.Logger, a.Config.Endpoint, a.SessionID, in, out)
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.cleanups) - 1; i >= 0; i-- {
		a.cleanups[i]()
	}
	a.cleanups = nil
}
