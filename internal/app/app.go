package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"napsidx/internal/config"
	"napsidx/internal/exporter"
	"napsidx/internal/infrastructure"
	"napsidx/internal/operations"
	"napsidx/internal/store"
	handlers "napsidx/internal/transport/http"
)

const AppName = "napsidx"

// Options controls how an Application is assembled.
type Options struct {
	// ConfigFile is the YAML overlay; empty searches the usual locations.
	ConfigFile string
	// Console receives log output; nil means stderr.
	Console io.Writer
	// TraceOut receives spans when the stdout trace exporter is selected.
	TraceOut io.Writer
	// Config bypasses loading when set.
	Config *config.Config
}

// Application wires configuration, logging, telemetry and the pipeline.
type Application struct {
	Config    *config.Config
	Paths     *config.Paths
	Logger    *slog.Logger
	Telemetry *infrastructure.OTelProviders
	Metrics   *infrastructure.PipelineMetrics
	Writer    *exporter.CSVWriter

	logFile *os.File
}

// New loads the configuration and initializes logging and telemetry.
func New(opts Options) (*Application, error) {
	cfg := opts.Config
	if cfg == nil {
		var err error
		if opts.ConfigFile != "" {
			cfg, err = config.LoadFrom(opts.ConfigFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load configuration: %w", err)
		}
	}

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	logger, logFile, err := infrastructure.NewLogger(cfg.Logging, console)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	paths, err := cfg.GetPaths()
	if err != nil {
		return nil, fmt.Errorf("failed to get paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}
	paths.LogPathResolution(logger)

	providers, err := infrastructure.InitializeOTel(cfg.Telemetry, opts.TraceOut, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	metrics, err := infrastructure.CreatePipelineMetrics(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline metrics: %w", err)
	}

	return &Application{
		Config:    cfg,
		Paths:     paths,
		Logger:    logger,
		Telemetry: providers,
		Metrics:   metrics,
		Writer:    exporter.NewCSVWriter(paths, logger),
		logFile:   logFile,
	}, nil
}

// Env returns the dependencies shared by the pipeline steps.
func (a *Application) Env() *operations.Env {
	return &operations.Env{
		Config:  a.Config,
		Paths:   a.Paths,
		Writer:  a.Writer,
		Metrics: a.Metrics,
		Logger:  a.Logger,
	}
}

// Manager builds an operations manager over the full pipeline.
func (a *Application) Manager(continueOnError bool) (*operations.Manager, error) {
	registry, err := operations.NewPipeline(a.Env())
	if err != nil {
		return nil, err
	}
	cfg := operations.NewConfigBuilder().
		WithStepTimeout(operations.StepIDIndex, operations.DefaultIndexTimeout).
		WithStepTimeout(operations.StepIDExtract, operations.DefaultExtractTimeout).
		WithContinueOnError(continueOnError).
		Build()
	return operations.NewManager(registry, cfg, operations.NewOperationTracer(a.Metrics), a.Logger), nil
}

// RunSteps executes req and then dumps the metrics registry to the
// textfile configured in Paths.MetricsFile. The response is returned even
// when the run fails.
func (a *Application) RunSteps(ctx context.Context, req operations.OperationRequest, continueOnError bool) (*operations.OperationResponse, error) {
	ctx = infrastructure.EnsureTraceID(ctx)
	if req.ID == "" {
		req.ID = infrastructure.GetTraceID(ctx)
	}

	manager, err := a.Manager(continueOnError)
	if err != nil {
		return nil, err
	}
	resp, runErr := manager.Execute(ctx, req)

	if a.Paths.MetricsFile != "" {
		if err := a.Telemetry.WriteMetricsFile(a.Paths.MetricsFile); err != nil {
			a.Logger.WarnContext(ctx, "failed to write metrics file",
				slog.String("path", a.Paths.MetricsFile),
				slog.String("error", err.Error()))
		}
	}
	return resp, runErr
}

// Serve runs the query API until ctx is cancelled, then shuts the server
// down within the configured timeout.
func (a *Application) Serve(ctx context.Context) error {
	catalog, err := store.Open(a.Paths.CatalogDB, a.Logger)
	if err != nil {
		return err
	}
	defer catalog.Close()

	router, _ := handlers.NewRouter(handlers.RouterDeps{
		Catalog:   catalog,
		Server:    a.Config.Server,
		Telemetry: a.Telemetry,
		Metrics:   a.Metrics,
		Logger:    a.Logger,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}
	return a.serve(ctx, server)
}

func (a *Application) serve(ctx context.Context, server *http.Server) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.InfoContext(gctx, "query API listening", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
		defer cancel()
		a.Logger.Info("shutting down query API")
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown failed: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// Close flushes telemetry and closes the log file.
func (a *Application) Close(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var errs []error
	if a.Telemetry != nil {
		if err := a.Telemetry.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if a.logFile != nil {
		if err := a.logFile.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
