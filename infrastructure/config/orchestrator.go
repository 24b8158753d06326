package config

import "time"

// OrchestratorConfig is the composition root's top-level configuration,
// populated by Load: the defaults enumerated in spec §6, overridden by ORCH_*
// environment variables. Only the probe registry is read from a YAML file.
type OrchestratorConfig struct {
	// Environment is reported in the startup log line; the logger's
	// formatter and level do not depend on it (LogLevel sets the level).
	Environment string
	LogLevel    string

	Scheduler SchedulerConfig
	Agent     AgentConfig
	Task      TaskConfig
	Breaker   BreakerConfig
	Pipeline  PipelineConfig
	Trust     TrustConfig

	// Store and MessageBus backends.
	StorageDSN string
	RedisAddr  string

	ProbeRegistry *ProbeRegistryConfig
}

// SchedulerConfig mirrors spec §6's scheduler.* options.
type SchedulerConfig struct {
	TickInterval        time.Duration
	StarvationThreshold time.Duration
}

// AgentConfig mirrors spec §6's agent.* options.
type AgentConfig struct {
	HeartbeatInterval       time.Duration
	HeartbeatMissToDegraded int
	DegradedToError         int
	GracefulShutdown        time.Duration
}

// TaskConfig mirrors spec §6's task.* options.
type TaskConfig struct {
	DefaultDeadline time.Duration
	SoftWarn        time.Duration
	MaxAttempts     int
	BackoffBase     time.Duration
	BackoffCap      time.Duration
	BackoffJitter   float64
}

// BreakerConfig mirrors spec §6's breaker.* options.
type BreakerConfig struct {
	Threshold       int
	RecoveryTimeout time.Duration
}

// PipelineConfig mirrors spec §6's pipeline.* options.
type PipelineConfig struct {
	OutboxMaxRetries int
}

// TrustConfig mirrors spec §6's trust.* options.
type TrustConfig struct {
	Debounce                time.Duration
	AutomationBonusThreshold float64
}

// Default returns an OrchestratorConfig populated with spec §6's stated
// defaults.
func Default() *OrchestratorConfig {
	return &OrchestratorConfig{
		Environment: "development",
		LogLevel:    "info",
		Scheduler: SchedulerConfig{
			TickInterval:        1 * time.Second,
			StarvationThreshold: 5 * time.Minute,
		},
		Agent: AgentConfig{
			HeartbeatInterval:       10 * time.Second,
			HeartbeatMissToDegraded: 2,
			DegradedToError:         5,
			GracefulShutdown:        30 * time.Second,
		},
		Task: TaskConfig{
			DefaultDeadline: 600 * time.Second,
			SoftWarn:        540 * time.Second,
			MaxAttempts:     3,
			BackoffBase:     1 * time.Second,
			BackoffCap:      300 * time.Second,
			BackoffJitter:   0.20,
		},
		Breaker: BreakerConfig{
			Threshold:       5,
			RecoveryTimeout: 60 * time.Second,
		},
		Pipeline: PipelineConfig{
			OutboxMaxRetries: 8,
		},
		Trust: TrustConfig{
			Debounce:                 10 * time.Second,
			AutomationBonusThreshold: 0.70,
		},
		ProbeRegistry: DefaultProbeRegistryConfig(),
	}
}

// Load builds an OrchestratorConfig starting from Default(), then applying
// environment variable overrides in the teacher's EnvOrSecret/GetEnv* idiom,
// then loading the probe registry from the given path (or the built-in
// default when path is empty or unreadable).
func Load(probeRegistryPath string) (*OrchestratorConfig, error) {
	cfg := Default()

	cfg.Environment = GetEnv("ORCH_ENVIRONMENT", cfg.Environment)
	cfg.LogLevel = GetEnv("ORCH_LOG_LEVEL", cfg.LogLevel)
	cfg.StorageDSN = EnvOrSecret("ORCH_STORAGE_DSN", cfg.StorageDSN)
	cfg.RedisAddr = GetEnv("ORCH_REDIS_ADDR", cfg.RedisAddr)

	cfg.Scheduler.TickInterval = GetEnvDuration("ORCH_SCHEDULER_TICK_INTERVAL", cfg.Scheduler.TickInterval)
	cfg.Scheduler.StarvationThreshold = GetEnvDuration("ORCH_SCHEDULER_STARVATION_THRESHOLD", cfg.Scheduler.StarvationThreshold)

	cfg.Agent.HeartbeatInterval = GetEnvDuration("ORCH_AGENT_HEARTBEAT_INTERVAL", cfg.Agent.HeartbeatInterval)
	cfg.Agent.HeartbeatMissToDegraded = GetEnvInt("ORCH_AGENT_HEARTBEAT_MISS_TO_DEGRADED", cfg.Agent.HeartbeatMissToDegraded)
	cfg.Agent.DegradedToError = GetEnvInt("ORCH_AGENT_DEGRADED_TO_ERROR", cfg.Agent.DegradedToError)
	cfg.Agent.GracefulShutdown = GetEnvDuration("ORCH_AGENT_GRACEFUL_SHUTDOWN", cfg.Agent.GracefulShutdown)

	cfg.Task.DefaultDeadline = GetEnvDuration("ORCH_TASK_DEFAULT_DEADLINE", cfg.Task.DefaultDeadline)
	cfg.Task.SoftWarn = GetEnvDuration("ORCH_TASK_SOFT_WARN", cfg.Task.SoftWarn)
	cfg.Task.MaxAttempts = GetEnvInt("ORCH_TASK_MAX_ATTEMPTS", cfg.Task.MaxAttempts)
	cfg.Task.BackoffBase = GetEnvDuration("ORCH_TASK_BACKOFF_BASE", cfg.Task.BackoffBase)
	cfg.Task.BackoffCap = GetEnvDuration("ORCH_TASK_BACKOFF_CAP", cfg.Task.BackoffCap)
	cfg.Task.BackoffJitter = GetEnvFloat("ORCH_TASK_BACKOFF_JITTER", cfg.Task.BackoffJitter)

	cfg.Breaker.Threshold = GetEnvInt("ORCH_BREAKER_THRESHOLD", cfg.Breaker.Threshold)
	cfg.Breaker.RecoveryTimeout = GetEnvDuration("ORCH_BREAKER_RECOVERY_TIMEOUT", cfg.Breaker.RecoveryTimeout)

	cfg.Pipeline.OutboxMaxRetries = GetEnvInt("ORCH_PIPELINE_OUTBOX_MAX_RETRIES", cfg.Pipeline.OutboxMaxRetries)

	cfg.Trust.Debounce = GetEnvDuration("ORCH_TRUST_DEBOUNCE", cfg.Trust.Debounce)
	cfg.Trust.AutomationBonusThreshold = GetEnvFloat("ORCH_TRUST_AUTOMATION_BONUS_THRESHOLD", cfg.Trust.AutomationBonusThreshold)

	if probeRegistryPath != "" {
		if reg, err := LoadProbeRegistryConfigFromPath(probeRegistryPath); err == nil {
			cfg.ProbeRegistry = reg
		}
	}

	return cfg, nil
}
