// Package resilience provides fault tolerance patterns for the orchestrator,
// backed by github.com/sony/gobreaker (circuit breaking per spec §4.3) and
// github.com/cenkalti/backoff/v4 (exponential-backoff retry for the evidence
// pipeline's outbox notifications). Task-attempt delays are computed by
// Backoff, per spec §4.8's backoff formula.
package resilience

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"

	"github.com/R3E-Network/compliance-orchestrator/infrastructure/logging"
)

// ---------------------------------------------------------------------------
// State
// ---------------------------------------------------------------------------

// State represents circuit breaker state.
type State int

const (
	StateClosed State = State(gobreaker.StateClosed)
	StateHalfOpen State = State(gobreaker.StateHalfOpen)
	StateOpen     State = State(gobreaker.StateOpen)
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

var (
	ErrCircuitOpen     = errors.New("circuit breaker is open")
	ErrTooManyRequests = errors.New("too many requests in half-open state")
)

// ---------------------------------------------------------------------------
// Circuit Breaker
// ---------------------------------------------------------------------------

// Config configures one target's circuit breaker.
type Config struct {
	// Threshold is the number of consecutive failures that opens the
	// breaker. Spec default: 5.
	Threshold int
	// RecoveryTimeout is how long the breaker stays OPEN before allowing a
	// HALF_OPEN probe. Spec default: 60s.
	RecoveryTimeout time.Duration
	// HalfOpenMaxCalls bounds how many calls are admitted while
	// HALF_OPEN. Spec §4.3: "admits exactly one probe" — default 1.
	HalfOpenMaxCalls int
	OnStateChange    func(target string, from, to State)
}

// DefaultConfig returns the defaults from spec §4.3 / §6.
func DefaultConfig() Config {
	return Config{
		Threshold:        5,
		RecoveryTimeout:  60 * time.Second,
		HalfOpenMaxCalls: 1,
	}
}

// CircuitBreaker wraps gobreaker.CircuitBreaker for one (agent_kind, target)
// pair, preserving an Execute(ctx, fn) signature for callers.
type CircuitBreaker struct {
	target string
	gb     *gobreaker.CircuitBreaker
}

// New creates a CircuitBreaker for target, backed by sony/gobreaker.
func New(target string, cfg Config) *CircuitBreaker {
	if cfg.Threshold <= 0 {
		cfg.Threshold = 5
	}
	if cfg.RecoveryTimeout <= 0 {
		cfg.RecoveryTimeout = 60 * time.Second
	}
	if cfg.HalfOpenMaxCalls <= 0 {
		cfg.HalfOpenMaxCalls = 1
	}

	threshold := uint32(cfg.Threshold)
	halfOpenMax := uint32(cfg.HalfOpenMaxCalls)

	settings := gobreaker.Settings{
		Name:        target,
		MaxRequests: halfOpenMax,
		Timeout:     cfg.RecoveryTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
	}

	if cfg.OnStateChange != nil {
		settings.OnStateChange = func(name string, from, to gobreaker.State) {
			cfg.OnStateChange(name, State(from), State(to))
		}
	}

	return &CircuitBreaker{
		target: target,
		gb:     gobreaker.NewCircuitBreaker(settings),
	}
}

// Target returns the (agent_kind, target) key this breaker guards.
func (cb *CircuitBreaker) Target() string { return cb.target }

// State returns the current circuit breaker state.
func (cb *CircuitBreaker) State() State {
	return State(cb.gb.State())
}

// Execute runs fn with circuit breaker protection. The ctx parameter allows
// callers to enforce their own deadline via fn; gobreaker itself has no
// context awareness.
func (cb *CircuitBreaker) Execute(_ context.Context, fn func() error) error {
	_, err := cb.gb.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	if err != nil {
		return mapGobreakerError(err)
	}
	return nil
}

func mapGobreakerError(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) {
		return ErrCircuitOpen
	}
	if errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrTooManyRequests
	}
	return err
}

// ---------------------------------------------------------------------------
// Retry / backoff
// ---------------------------------------------------------------------------

// RetryConfig configures the task-attempt backoff of spec §4.8:
// not_before = now + min(cap, base*2^attempts) +- jitter.
type RetryConfig struct {
	MaxAttempts int
	Base        time.Duration
	Cap         time.Duration
	Jitter      float64 // fraction, e.g. 0.20 for +-20%
}

// DefaultRetryConfig returns the defaults from spec §6.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		Base:        1 * time.Second,
		Cap:         300 * time.Second,
		Jitter:      0.20,
	}
}

// Backoff computes not_before's delay for the given attempt count (0-based:
// attempts=0 is the first retry after an initial failure): min(cap,
// base*2^attempts), +-jitter. attempts=0 yields ~base; the cap is reached
// only once base*2^attempts >= cap (with a 1s base and a 300s cap, from
// attempts=9 on).
func Backoff(cfg RetryConfig, attempts int) time.Duration {
	if cfg.Base <= 0 {
		cfg.Base = time.Second
	}
	if cfg.Cap <= 0 {
		cfg.Cap = 300 * time.Second
	}

	raw := float64(cfg.Base) * pow2(attempts)
	if raw > float64(cfg.Cap) {
		raw = float64(cfg.Cap)
	}

	if cfg.Jitter > 0 {
		delta := raw * cfg.Jitter
		raw += (rand.Float64()*2 - 1) * delta
	}
	if raw < 0 {
		raw = 0
	}
	return time.Duration(raw)
}

func pow2(n int) float64 {
	if n <= 0 {
		return 1
	}
	result := 1.0
	for i := 0; i < n; i++ {
		result *= 2
	}
	return result
}

// Retry executes fn with exponential backoff via cenkalti/backoff, used for
// the EvidencePipeline's outbox notification retries (spec §4.7) rather than
// for task attempts (those are rescheduled through the task's not_before,
// computed by Backoff).
func Retry(ctx context.Context, maxAttempts int, base, cap time.Duration, fn func() error) error {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	bo := backoff.NewExponentialBackOff()
	if base > 0 {
		bo.InitialInterval = base
	}
	if cap > 0 {
		bo.MaxInterval = cap
	}
	bo.Multiplier = 2.0
	bo.RandomizationFactor = 0.20
	bo.MaxElapsedTime = 0

	withMax := backoff.WithMaxRetries(bo, uint64(maxAttempts-1))
	withCtx := backoff.WithContext(withMax, ctx)

	return backoff.Retry(fn, withCtx)
}

// ---------------------------------------------------------------------------
// Preset configs
// ---------------------------------------------------------------------------

// ProbeBreakerConfig returns the circuit breaker configuration used for
// CloudProbe I/O, logging state changes via logger.
func ProbeBreakerConfig(logger *logging.Logger) Config {
	cfg := DefaultConfig()
	if logger != nil {
		cfg.OnStateChange = func(target string, from, to State) {
			logger.LogBreakerStateChange(context.Background(), target, from.String(), to.String())
		}
	}
	return cfg
}

// StrictBreakerConfig returns a conservative breaker for high-risk external
// targets: fewer failures tolerated, longer recovery window.
func StrictBreakerConfig(logger *logging.Logger) Config {
	cfg := ProbeBreakerConfig(logger)
	cfg.Threshold = 3
	cfg.RecoveryTimeout = 120 * time.Second
	return cfg
}
