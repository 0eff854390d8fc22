// The main package for the auditd executable, the site audit API server
// and background worker pool.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/excelltechsh/siteaudit/internal/api"
	"github.com/excelltechsh/siteaudit/internal/audit"
	"github.com/excelltechsh/siteaudit/internal/clock/system"
	"github.com/excelltechsh/siteaudit/internal/config"
	"github.com/excelltechsh/siteaudit/internal/discovery"
	"github.com/excelltechsh/siteaudit/internal/dispatcher"
	"github.com/excelltechsh/siteaudit/internal/enrich"
	"github.com/excelltechsh/siteaudit/internal/firecrawl"
	"github.com/excelltechsh/siteaudit/internal/gemini"
	"github.com/excelltechsh/siteaudit/internal/id/uuid"
	"github.com/excelltechsh/siteaudit/internal/logging"
	"github.com/excelltechsh/siteaudit/internal/metrics"
	"github.com/excelltechsh/siteaudit/internal/notify"
	memoryqueue "github.com/excelltechsh/siteaudit/internal/queue/memory"
	redisqueue "github.com/excelltechsh/siteaudit/internal/queue/redis"
	"github.com/excelltechsh/siteaudit/internal/scan"
	memorystore "github.com/excelltechsh/siteaudit/internal/storage/memory"
	"github.com/excelltechsh/siteaudit/internal/storage/postgres"
	"github.com/excelltechsh/siteaudit/internal/tavily"
	"github.com/excelltechsh/siteaudit/internal/worker"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config file (optional, env vars apply regardless)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	metrics.Init()

	logger.Info("initializing services",
		zap.String("db_provider", cfg.DB.Provider),
		zap.String("queue_provider", cfg.Queue.Provider),
		zap.String("notify_provider", cfg.Notify.Provider),
	)

	// Stores.
	var (
		scans    audit.ScanStore
		pages    audit.PageStore
		insights audit.InsightStore
	)
	switch cfg.DB.Provider {
	case "postgres":
		pool, err := postgres.NewPool(ctx, postgres.PoolConfig{
			DSN:             cfg.DB.DSN,
			MaxConns:        cfg.DB.MaxConns,
			MinConns:        cfg.DB.MinConns,
			MaxConnLifetime: time.Duration(cfg.DB.MaxConnLifetime) * time.Minute,
		})
		if err != nil {
			return fmt.Errorf("init postgres: %w", err)
		}
		defer pool.Close()
		scans = postgres.NewScanStore(pool)
		pages = postgres.NewPageStore(pool)
		insights = postgres.NewInsightStore(pool)
	case "memory":
		logger.Info("using in-memory store, data will not survive restarts")
		mem := memorystore.NewStore()
		scans, pages, insights = mem, mem, mem
	default:
		return fmt.Errorf("unknown db provider: %s", cfg.DB.Provider)
	}

	// Task queue.
	var queue audit.TaskQueue
	switch cfg.Queue.Provider {
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.Queue.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
		rq := redisqueue.NewQueue(client, cfg.Queue.RedisKey)
		defer rq.Close()
		queue = rq
	case "memory":
		mq := memoryqueue.NewQueue(cfg.Queue.Depth)
		defer mq.Close()
		queue = mq
	default:
		return fmt.Errorf("unknown queue provider: %s", cfg.Queue.Provider)
	}

	// Completion notifications.
	var notifier notify.Provider
	switch cfg.Notify.Provider {
	case "pubsub":
		ps, err := notify.NewPubSubProvider(ctx, cfg.Notify.ProjectID, cfg.Notify.TopicID)
		if err != nil {
			return fmt.Errorf("init pubsub: %w", err)
		}
		defer func() { _ = ps.Close() }()
		notifier = ps
	case "noop":
		notifier = &notify.NoOpProvider{}
	default:
		return fmt.Errorf("unknown notify provider: %s", cfg.Notify.Provider)
	}

	// Upstream API clients.
	crawler := firecrawl.New(firecrawl.Config{
		BaseURL:   cfg.Firecrawl.BaseURL,
		APIKey:    cfg.Firecrawl.APIKey,
		Timeout:   time.Duration(cfg.Firecrawl.TimeoutSeconds) * time.Second,
		PageLimit: cfg.Crawl.PageLimit,
		MapLimit:  cfg.Crawl.DiscoverLimit,
	})
	generator := gemini.New(gemini.Config{
		BaseURL: cfg.Gemini.BaseURL,
		APIKey:  cfg.Gemini.APIKey,
		Model:   cfg.Gemini.Model,
		Timeout: time.Duration(cfg.Gemini.TimeoutSeconds) * time.Second,
	})
	searcher := tavily.New(tavily.Config{
		BaseURL: cfg.Tavily.BaseURL,
		APIKey:  cfg.Tavily.APIKey,
		Timeout: time.Duration(cfg.Tavily.TimeoutSeconds) * time.Second,
	})

	clk := system.New()
	idGen := uuid.New()

	persister := scan.NewPersister(pages, clk, idGen, logger)
	poller := scan.NewPoller(scans, crawler, persister, cfg.PollInterval(), cfg.Crawl.PollMaxAttempts, logger)
	orchestrator := scan.NewOrchestrator(scans, crawler, persister, poller, logger)
	analyzer := enrich.NewAnalyzer(pages, insights, generator, cfg.Gemini.Model, clk, idGen, logger)
	researcher := enrich.NewResearcher(scans, insights, searcher, generator, cfg.Gemini.Model, cfg.Gemini.FallbackModel, clk, idGen, logger)

	workers := make([]*worker.Worker, cfg.Crawl.Concurrency)
	for i := range workers {
		workers[i] = worker.New(queue, orchestrator, analyzer, researcher, notifier, logger)
	}
	disp := dispatcher.New(queue, workers)
	go disp.Run(ctx)

	discoverySvc := discovery.New(crawler, logger)
	server := api.NewServer(scans, pages, insights, discoverySvc, disp, idGen, clk, cfg, logger)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown error", zap.Error(err))
	}

	logger.Info("shutdown complete")
	return nil
}
