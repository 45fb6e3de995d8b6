package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ShayCichocki/agentsmith/internal/architect"
	"github.com/ShayCichocki/agentsmith/internal/cache"
	"github.com/ShayCichocki/agentsmith/internal/config"
	"github.com/ShayCichocki/agentsmith/internal/llm"
	"github.com/ShayCichocki/agentsmith/internal/logging"
	"github.com/ShayCichocki/agentsmith/internal/orchestrator"
	"github.com/ShayCichocki/agentsmith/internal/server"
	"github.com/ShayCichocki/agentsmith/internal/state"
	"github.com/ShayCichocki/agentsmith/internal/telemetry"
	"github.com/ShayCichocki/agentsmith/internal/version"
)

const shutdownTimeout = 15 * time.Second

var (
	serveAddr  string
	serveDebug bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server and worker pool",
	Long: `Start the HTTP API together with the background workers that classify
tasks and run executions.

On startup, work left running by a previous process is marked failed and
pending work is queued again. The log level follows edits to the active
config file without a restart.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if serveAddr != "" {
			cfg.Server.Host, cfg.Server.Port, err = splitAddr(serveAddr)
			if err != nil {
				return err
			}
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		return serve(cmd.Context(), cfg)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address host:port (default from config)")
	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "Run gin in debug mode")
}

func serve(ctx context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.Init(ctx, telemetry.Config{
			ServiceName:    cfg.Telemetry.ServiceName,
			ServiceVersion: version.Get(),
			OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		})
		if err != nil {
			return fmt.Errorf("initializing tracing: %w", err)
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := shutdown(sctx); err != nil {
				log.Warn("tracer shutdown failed", "error", err)
			}
		}()
	}

	var metrics *telemetry.Metrics
	if cfg.Metrics.Enabled {
		metrics = telemetry.NewMetrics()
	}

	db, err := state.OpenWithDriver(cfg.Store.Driver, cfg.Store.Path)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrating store: %w", err)
	}

	memCache := cache.NewMemoryCache(cfg.Cache.Size, cfg.Cache.TTL)
	defer memCache.Close()
	mirror := cache.NewMirror(memCache, cfg.Cache.TTL, log.Component("cache"))

	completer, err := newCompleter(ctx, cfg, metrics, log)
	if err != nil {
		return err
	}
	synth := architect.NewSynthesizer(completer, cfg.LLM.Model)
	runner := llm.NewRunner(completer)

	opts := []orchestrator.Option{
		orchestrator.WithLogger(log.Component("orchestrator")),
		orchestrator.WithMetrics(metrics),
	}
	dispatcher := orchestrator.NewDispatcher(orchestrator.DispatcherConfig{
		Concurrency: cfg.Workers.Concurrency,
		QueueSize:   cfg.Workers.QueueSize,
	}, opts...)
	tasks := orchestrator.NewTaskOrchestrator(db, synth, runner, mirror, dispatcher, opts...)
	executions := orchestrator.NewExecutionOrchestrator(db, runner, mirror, dispatcher, opts...)
	dispatcher.Register(orchestrator.JobTask, tasks.Process)
	dispatcher.Register(orchestrator.JobExecution, executions.Process)

	srv := server.New(server.Config{
		Addr:        cfg.Server.Addr(),
		CORSOrigins: cfg.Server.CORSOrigins,
		Version:     version.Get(),
		Debug:       serveDebug,
	}, server.Deps{
		Store:      db,
		Tasks:      tasks,
		Executions: executions,
		Synth:      synth,
		Mirror:     mirror,
		Metrics:    metrics,
		Log:        log.Component("http"),
	})

	if path := config.ActiveConfigPath(); path != "" {
		err := config.Watch(path, func(next *config.Config) {
			log.SetLevel(next.Log.Level)
			log.Info("config reloaded", "path", path, "log_level", next.Log.Level)
		}, func(err error) {
			log.Warn("config reload failed", "path", path, "error", err)
		})
		if err != nil {
			log.Warn("config watch disabled", "path", path, "error", err)
		}
	}

	// Nothing is serving yet, so every processing or running row is orphaned.
	report, err := dispatcher.FailInterrupted(ctx, db)
	if err != nil {
		return err
	}
	log.Info("recovered previous work",
		"failed_tasks", report.FailedTasks,
		"failed_executions", report.FailedExecutions)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return dispatcher.Run(gctx)
	})
	g.Go(srv.ListenAndServe)
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		dispatcher.Close()
		return srv.Shutdown(sctx)
	})

	if err := dispatcher.Requeue(gctx, db); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, orchestrator.ErrDispatcherClosed) {
		log.Error("requeue failed", "error", err)
	}

	printStatus("✓", fmt.Sprintf("agentsmith %s listening on %s", version.Get(), cfg.Server.Addr()), color.FgGreen)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("shutdown complete")
	return nil
}

// newCompleter builds the configured LLM provider.
func newCompleter(ctx context.Context, cfg *config.Config, metrics *telemetry.Metrics, log *logging.Logger) (llm.Completer, error) {
	key, err := config.GetAPIKey(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: set %s_LLM_API_KEY or the provider's key variable", err, config.EnvPrefix)
	}
	if err := config.ValidateAPIKey(cfg.LLM.Provider, key); err != nil {
		log.Warn("api key looks malformed", "provider", cfg.LLM.Provider, "key", config.MaskAPIKey(key), "error", err)
	}

	opts := llm.Options{
		Provider:       cfg.LLM.Provider,
		APIKey:         key,
		BaseURL:        cfg.LLM.BaseURL,
		AWSRegion:      cfg.LLM.AWSRegion,
		AWSProfile:     cfg.LLM.AWSProfile,
		RequestTimeout: cfg.LLM.RequestTimeout,
	}
	if metrics != nil {
		opts.Observer = metrics
	}
	return llm.New(ctx, opts)
}

func splitAddr(addr string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid --addr %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid port in --addr %q: %w", addr, err)
	}
	return host, port, nil
}
