// Package ratelimit provides the tenant-tiered token-bucket rate limiter of
// spec §4.4, keyed by (tenant_id, action) and backed by golang.org/x/time/rate.
package ratelimit

import (
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Tier is a tenant plan, affecting default priority and per-action capacity
// multipliers.
type Tier string

const (
	TierStarter Tier = "starter"
	TierGrowth  Tier = "growth"
	TierScale   Tier = "scale"
)

// Multiplier returns the capacity multiplier applied to an action's base
// rate for this tier.
func (t Tier) Multiplier() float64 {
	switch t {
	case TierGrowth:
		return 2.0
	case TierScale:
		return 5.0
	default:
		return 1.0
	}
}

// ActionLimit describes the base allowance for one action, before any tier
// multiplier is applied.
type ActionLimit struct {
	Requests int
	Per      time.Duration
}

// DefaultCatalog returns the action catalog enumerated in spec §4.4.
func DefaultCatalog() map[string]ActionLimit {
	return map[string]ActionLimit{
		"login":       {Requests: 5, Per: 5 * time.Minute},
		"api_call":    {Requests: 1000, Per: time.Hour},
		"agent_start": {Requests: 50, Per: time.Hour},
	}
}

// key identifies one bucket.
type key struct {
	tenantID string
	action   string
}

// Limiter is a registry of per-(tenant_id, action) token buckets.
type Limiter struct {
	mu       sync.Mutex
	buckets  map[key]*rate.Limiter
	catalog  map[string]ActionLimit
	tiers    map[string]Tier
	tierMu   sync.RWMutex
	fallback ActionLimit
}

// New creates a Limiter using catalog as the action catalog. A nil catalog
// uses DefaultCatalog.
func New(catalog map[string]ActionLimit) *Limiter {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Limiter{
		buckets:  make(map[key]*rate.Limiter),
		catalog:  catalog,
		tiers:    make(map[string]Tier),
		fallback: ActionLimit{Requests: 100, Per: time.Hour},
	}
}

// SetTier records the tier for a tenant; subsequent Allow calls for that
// tenant apply the tier's capacity multiplier. Tenants with no recorded
// tier default to TierStarter.
func (l *Limiter) SetTier(tenantID string, tier Tier) {
	l.tierMu.Lock()
	defer l.tierMu.Unlock()
	l.tiers[tenantID] = tier
}

// TierOf returns the recorded tier for a tenant, defaulting to TierStarter.
func (l *Limiter) TierOf(tenantID string) Tier {
	l.tierMu.RLock()
	defer l.tierMu.RUnlock()
	if tier, ok := l.tiers[tenantID]; ok {
		return tier
	}
	return TierStarter
}

// limitFor resolves the action limit, falling back, for a "probe.<kind>"
// action, to the catalog's "probe.*" entry, then to l.fallback.
func (l *Limiter) limitFor(action string) ActionLimit {
	if lim, ok := l.catalog[action]; ok {
		return lim
	}
	if strings.HasPrefix(action, "probe.") {
		if lim, ok := l.catalog["probe.*"]; ok {
			return lim
		}
	}
	return l.fallback
}

// bucketFor returns (creating if absent) the limiter for (tenantID, action),
// sized by the action's base rate scaled by the tenant's tier multiplier.
func (l *Limiter) bucketFor(tenantID, action string) *rate.Limiter {
	k := key{tenantID: tenantID, action: action}

	l.mu.Lock()
	defer l.mu.Unlock()

	if b, ok := l.buckets[k]; ok {
		return b
	}

	base := l.limitFor(action)
	mult := l.TierOf(tenantID).Multiplier()
	capacity := int(float64(base.Requests) * mult)
	if capacity < 1 {
		capacity = 1
	}
	every := base.Per / time.Duration(capacity)
	if every <= 0 {
		every = time.Nanosecond
	}

	b := rate.NewLimiter(rate.Every(every), capacity)
	l.buckets[k] = b
	return b
}

// Allow reports whether a request for (tenantID, action) is permitted right
// now, consuming a token if so. It never blocks and never returns true past
// the Nth request within the window for N the effective capacity.
func (l *Limiter) Allow(tenantID, action string) bool {
	return l.bucketFor(tenantID, action).Allow()
}

// AllowAt reports Allow as of a specific instant, for deterministic testing
// of the boundary behavior in spec §8 ("never at Nth, always by N+1th").
func (l *Limiter) AllowAt(tenantID, action string, now time.Time) bool {
	return l.bucketFor(tenantID, action).AllowN(now, 1)
}

// Reset clears all buckets, primarily for tests.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buckets = make(map[key]*rate.Limiter)
}
