package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	otelapi "go.opentelemetry.io/otel"

	"github.com/daiduo2/TaShan-SciSpark/arxiv"
	"github.com/daiduo2/TaShan-SciSpark/config"
	scispkotel "github.com/daiduo2/TaShan-SciSpark/otel"
	"github.com/daiduo2/TaShan-SciSpark/research"
	"github.com/daiduo2/TaShan-SciSpark/server"
	"github.com/daiduo2/TaShan-SciSpark/store"
	"github.com/daiduo2/TaShan-SciSpark/task"
	"github.com/daiduo2/TaShan-SciSpark/tool"
)

// serverDescriptor is the static identity reported by get_server_info.
var serverDescriptor = tool.ServerInfo{
	Name:        "SciSpark",
	Version:     "1.0.0",
	Description: "Academic paper research assistant tool server",
}

// NewServeCmd creates the "serve" subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the tool server",
		RunE:  runServe,
	}

	cmd.Flags().String("config", "", "Path to scispark.yaml")
	cmd.Flags().String("api-key", "", "LLM provider API key (overrides config)")
	cmd.Flags().Duration("read-timeout", 30*time.Second, "HTTP read timeout")
	cmd.Flags().Duration("write-timeout", 120*time.Second, "HTTP write timeout")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	explicitConfigPath, _ := cmd.Flags().GetString("config")
	apiKeyFlag, _ := cmd.Flags().GetString("api-key")
	readTimeout, _ := cmd.Flags().GetDuration("read-timeout")
	writeTimeout, _ := cmd.Flags().GetDuration("write-timeout")

	cfg := config.Default()
	configPath, found, err := config.DiscoverPath(explicitConfigPath)
	if err != nil {
		return exitError(exitConfig, "resolving config: %v", err)
	}
	if found {
		cfg, err = config.Load(configPath)
		if err != nil {
			return exitError(exitConfig, "loading config: %v", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Loaded configuration from %s\n", configPath)
	}

	logger := slog.Default()

	// --- Observability ---
	shutdownTracing, err := scispkotel.SetupTracing(cmd.Context(), cfg.Otel.OTLPEndpoint)
	if err != nil {
		return exitError(exitRuntime, "initializing tracing: %v", err)
	}
	defer func() {
		_ = shutdownTracing(context.Background())
	}()

	observer, err := scispkotel.NewDispatchObserver(
		otelapi.GetMeterProvider().Meter("scispark/tool"),
		otelapi.GetTracerProvider().Tracer("scispark/tool"),
	)
	if err != nil {
		return exitError(exitRuntime, "initializing dispatch observability: %v", err)
	}

	// --- Collaborators ---
	var searcher arxiv.Searcher = arxiv.NewClient(arxiv.ClientConfig{
		BaseURL:    cfg.Arxiv.BaseURL,
		HTTPClient: arxivHTTPClient(cfg.Arxiv.Timeout),
	})
	if cfg.Cache.Path != "" {
		cache, err := store.NewSearchCache(store.SearchCacheConfig{
			DSN: cfg.Cache.Path,
			TTL: cfg.Cache.TTL,
		})
		if err != nil {
			return exitError(exitRuntime, "opening search cache: %v", err)
		}
		defer func() {
			_ = cache.Close()
		}()
		searcher = store.NewCachingSearcher(searcher, cache, logger)
	}

	apiKey := cfg.Provider.APIKey
	if apiKeyFlag != "" {
		apiKey = apiKeyFlag
	}
	assistant, err := research.NewAssistant(research.Config{
		Provider: cfg.Provider.Name,
		APIKey:   apiKey,
		Model:    cfg.Provider.Model,
		Searcher: searcher,
		Logger:   logger,
	})
	if err != nil {
		return exitError(exitProvider, "creating research assistant: %v", err)
	}

	// --- Tool dispatch ---
	tasks := task.NewManager()
	registry := tool.NewRegistry()
	tool.RegisterBuiltins(registry, tool.BuiltinsConfig{
		Searcher:   searcher,
		Extractor:  assistant,
		Ideator:    assistant,
		Reviewer:   assistant,
		Compressor: assistant,
		Tasks:      tasks,
		Info:       serverDescriptor,
	})
	dispatcher := tool.NewDispatcher(tool.DispatcherConfig{
		Registry: registry,
		Tasks:    tasks,
		Runner:   task.NewRunner(cfg.Tasks.WorkerLimit),
		Observer: observer,
		Logger:   logger,
	})

	if cfg.Tasks.RetentionSchedule != "" {
		sweeper, err := task.NewSweeper(task.SweeperConfig{
			Manager:  tasks,
			Schedule: cfg.Tasks.RetentionSchedule,
			MaxAge:   cfg.Tasks.RetentionAge,
			Logger:   logger,
		})
		if err != nil {
			return exitError(exitConfig, "creating task sweeper: %v", err)
		}
		if err := sweeper.Start(cmd.Context()); err != nil {
			return exitError(exitRuntime, "starting task sweeper: %v", err)
		}
		defer func() {
			_ = sweeper.Stop(context.Background())
		}()
	}

	// --- HTTP server ---
	apiServer := server.NewServer(server.Config{
		Dispatcher: dispatcher,
		CORSOrigin: cfg.Server.CORSOrigin,
		MaxBody:    cfg.Server.MaxBody,
		Logger:     logger,
	})

	addr := net.JoinHostPort(cfg.Server.Host, fmt.Sprintf("%d", cfg.Server.Port))
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      apiServer.Handler(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(cmd.OutOrStdout(), "SciSpark listening on %s\n", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(cmd.OutOrStdout(), "Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return exitError(exitRuntime, "shutdown error: %v", err)
		}
		dispatcher.Drain()
		return nil
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return exitError(exitRuntime, "server error: %v", err)
		}
		return nil
	}
}

func arxivHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		return nil // client defaults apply
	}
	return &http.Client{Timeout: timeout}
}
