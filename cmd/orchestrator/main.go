// Command orchestrator is the composition root: it wires the Store, the
// MessageBus, the probe registry, the circuit breaker and rate limiter
// registries, the EvidencePipeline, the Scheduler, the Orchestrator and the
// TrustScoreEngine's recompute subscriber together, and runs until a
// termination signal drives spec §5's graceful shutdown cascade.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/R3E-Network/compliance-orchestrator/infrastructure/config"
	"github.com/R3E-Network/compliance-orchestrator/infrastructure/logging"
	"github.com/R3E-Network/compliance-orchestrator/infrastructure/metrics"
	"github.com/R3E-Network/compliance-orchestrator/infrastructure/ratelimit"
	"github.com/R3E-Network/compliance-orchestrator/infrastructure/resilience"
	"github.com/R3E-Network/compliance-orchestrator/internal/bus"
	busredis "github.com/R3E-Network/compliance-orchestrator/internal/bus/redisbus"
	"github.com/R3E-Network/compliance-orchestrator/internal/breaker"
	"github.com/R3E-Network/compliance-orchestrator/internal/compliance"
	"github.com/R3E-Network/compliance-orchestrator/internal/ids"
	"github.com/R3E-Network/compliance-orchestrator/internal/orchestrator"
	"github.com/R3E-Network/compliance-orchestrator/internal/pipeline"
	"github.com/R3E-Network/compliance-orchestrator/internal/probe"
	"github.com/R3E-Network/compliance-orchestrator/internal/scheduler"
	"github.com/R3E-Network/compliance-orchestrator/internal/store"
	"github.com/R3E-Network/compliance-orchestrator/internal/store/memorystore"
	"github.com/R3E-Network/compliance-orchestrator/internal/store/pgstore"
	"github.com/R3E-Network/compliance-orchestrator/internal/trustscore"

	"github.com/go-redis/redis/v8"
)

func main() {
	probeRegistryPath := flag.String("probe-registry", "", "path to probes.yaml (defaults to the built-in reference registry)")
	flag.Parse()

	cfg, err := config.Load(*probeRegistryPath)
	if err != nil {
		logging.New("orchestrator", "info", "json").Fatal(context.Background(), "load config", err)
	}

	logger := logging.New("orchestrator", cfg.LogLevel, "json")
	ctx := context.Background()

	s, closeStore := buildStore(ctx, cfg, logger)
	defer closeStore()

	b, closeBus := buildBus(cfg, logger)
	defer closeBus()

	metricsReg := metrics.New("orchestrator")
	breakers := breaker.NewRegistry(resilience.Config{
		Threshold:       cfg.Breaker.Threshold,
		RecoveryTimeout: cfg.Breaker.RecoveryTimeout,
	})
	limiter := ratelimit.New(ratelimit.DefaultCatalog())

	probes := probe.DefaultRegistry(probe.Dependencies{
		Breaker: breakers,
		Limiter: limiter,
		Store:   s,
	})

	rules := compliance.DefaultRules()
	evaluator := compliance.NewEvaluator(compliance.NewRegistry(rules))
	pl := pipeline.New(s, b, evaluator, ids.SystemClock{}, logger, pipeline.OutboxConfig{
		MaxAttempts: cfg.Pipeline.OutboxMaxRetries,
		Base:        time.Second,
		Cap:         30 * time.Second,
	})

	orch := orchestrator.New(orchestrator.Deps{
		Store:    s,
		Probes:   probes,
		Pipeline: pl,
		Breakers: breakers,
		Limiter:  limiter,
		Logger:   logger,
		Metrics:  metricsReg,
		Clock:    ids.SystemClock{},
		RetryCfg: resilience.RetryConfig{
			MaxAttempts: cfg.Task.MaxAttempts,
			Base:        cfg.Task.BackoffBase,
			Cap:         cfg.Task.BackoffCap,
			Jitter:      cfg.Task.BackoffJitter,
		},
	})

	if err := orch.OnStartup(ctx); err != nil {
		logger.Error(ctx, "orchestrator: on_startup failed", err, nil)
	}
	orch.Run(ctx)

	sched := scheduler.New(s, nil, ids.SystemClock{}, logger, cfg.Scheduler.TickInterval)
	sched.Start(ctx)

	engine := trustscore.New(trustscore.NewRuleIndex(rules))
	recomputer := trustscore.NewRecomputer(engine, s, b, logger, ids.SystemClock{})
	if err := recomputer.Start(ctx); err != nil {
		logger.Error(ctx, "trustscore: recomputer start failed", err, nil)
	}

	logger.Info(ctx, "orchestrator started", map[string]any{"environment": cfg.Environment})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info(ctx, "orchestrator shutting down", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Agent.GracefulShutdown+5*time.Second)
	defer cancel()

	sched.Stop()
	recomputer.Stop()
	orch.Shutdown(shutdownCtx)
	_ = b.Close()
}

// buildStore selects pgstore when ORCH_STORAGE_DSN is set, otherwise falls
// back to memorystore for local/single-node runs (SPEC_FULL §4.17).
func buildStore(ctx context.Context, cfg *config.OrchestratorConfig, logger *logging.Logger) (store.Store, func()) {
	if cfg.StorageDSN == "" {
		logger.Info(ctx, "store: using in-memory backend (ORCH_STORAGE_DSN unset)", nil)
		return memorystore.New(), func() {}
	}

	pg, err := pgstore.Open(cfg.StorageDSN)
	if err != nil {
		logger.Fatal(ctx, "store: open postgres", err)
	}
	return pg, func() { _ = pg.Close() }
}

// buildBus selects the durable Redis bus when ORCH_REDIS_ADDR is set,
// otherwise the in-process PriorityBus (spec §4.2).
func buildBus(cfg *config.OrchestratorConfig, logger *logging.Logger) (bus.Bus, func()) {
	if cfg.RedisAddr == "" {
		logger.Info(context.Background(), "bus: using in-process priority bus (ORCH_REDIS_ADDR unset)", nil)
		b := bus.New(bus.DefaultConfig())
		return b, func() { _ = b.Close() }
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	b := busredis.New(client, "orchestrator")
	return b, func() { _ = b.Close() }
}
