// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Patchbay Contributors

package router

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/patchbay-dev/patchbay/internal/backend"
	"github.com/patchbay-dev/patchbay/pkg/health"
)

// Monitor tunables. The sweep throttle deliberately equals MaxEntryAge:
// an entry can only become stale once per age window, so sweeping more
// often buys nothing.
const (
	DefaultFreshness  = 10 * time.Second
	DefaultBackoffCap = 60 * time.Second
	DefaultMaxAge     = 5 * time.Minute
	DefaultMaxEntries = 100

	backoffBase = time.Second
)

// MonitorConfig tunes the probe cache. Zero values take the defaults.
type MonitorConfig struct {
	Freshness  time.Duration
	BackoffCap time.Duration
	MaxAge     time.Duration
	MaxEntries int
}

func (c *MonitorConfig) applyDefaults() {
	if c.Freshness <= 0 {
		c.Freshness = DefaultFreshness
	}
	if c.BackoffCap <= 0 {
		c.BackoffCap = DefaultBackoffCap
	}
	if c.MaxAge <= 0 {
		c.MaxAge = DefaultMaxAge
	}
	if c.MaxEntries <= 0 {
		c.MaxEntries = DefaultMaxEntries
	}
}

// healthEntry is one backend's cached probe state. Its mutex serializes
// probes for that backend; probes for different backends never contend.
type healthEntry struct {
	mu                  sync.Mutex
	healthy             bool
	lastCheckedAt       time.Time
	consecutiveFailures uint
}

// Monitor caches one probe result per backend with a freshness window for
// healthy results, capped exponential backoff for unhealthy ones, and a
// throttled sweep that bounds cache age and size. Probe failures are
// absorbed into cached unhealthy state and never surfaced to routing.
//
// The Monitor is pure in-memory state: construct one per process (or per
// test) and let it be garbage collected; there is nothing to shut down.
type Monitor struct {
	cfg MonitorConfig
	log *slog.Logger

	mu        sync.Mutex // guards entries map and lastSweep
	entries   map[backend.Tag]*healthEntry
	lastSweep time.Time

	nowFunc func() time.Time // for testing
}

// NewMonitor creates an empty Monitor.
func NewMonitor(cfg MonitorConfig, log *slog.Logger) *Monitor {
	cfg.applyDefaults()
	if log == nil {
		log = slog.Default()
	}
	return &Monitor{
		cfg:     cfg,
		log:     log,
		entries: make(map[backend.Tag]*healthEntry),
		nowFunc: time.Now,
	}
}

// SetNowFunc overrides the time source (for testing).
func (m *Monitor) SetNowFunc(fn func() time.Time) {
	m.mu.Lock()
	m.nowFunc = fn
	m.mu.Unlock()
}

func (m *Monitor) now() time.Time {
	m.mu.Lock()
	fn := m.nowFunc
	m.mu.Unlock()
	return fn()
}

// IsHealthy reports whether the backend behind client is healthy, probing
// it only when the cached result is no longer usable. It never returns an
// error: connectivity failures become a cached unhealthy result.
func (m *Monitor) IsHealthy(ctx context.Context, client backend.Client) bool {
	m.sweepIfDue()

	tag := client.Name()
	e := m.entry(tag)

	e.mu.Lock()
	defer e.mu.Unlock()

	now := m.now()
	if !e.lastCheckedAt.IsZero() {
		age := now.Sub(e.lastCheckedAt)
		if e.healthy && age < m.cfg.Freshness {
			return true
		}
		if !e.healthy && age < m.backoff(e.consecutiveFailures) {
			return false
		}
	}

	wasUnhealthy := !e.lastCheckedAt.IsZero() && !e.healthy

	err := client.CheckHealth(ctx)
	e.lastCheckedAt = m.now()
	if err != nil {
		e.healthy = false
		e.consecutiveFailures++
		recordProbe(tag, false)
		m.log.Warn("backend health probe failed",
			"backend", tag,
			"endpoint", client.Endpoint(),
			"consecutive_failures", e.consecutiveFailures,
			"error", err)
		return false
	}

	e.healthy = true
	e.consecutiveFailures = 0
	recordProbe(tag, true)
	if wasUnhealthy {
		recordRecovery(tag)
		m.log.Info("backend recovered", "backend", tag, "endpoint", client.Endpoint())
	}
	return true
}

// backoff returns the wait interval before an unhealthy backend is
// re-probed: min(2^failures * 1s, cap).
func (m *Monitor) backoff(failures uint) time.Duration {
	// Shifting past 63 bits would overflow; anything that large is
	// already beyond any sane cap.
	if failures >= 32 {
		return m.cfg.BackoffCap
	}
	d := backoffBase << failures
	if d > m.cfg.BackoffCap || d <= 0 {
		return m.cfg.BackoffCap
	}
	return d
}

// entry returns the cache entry for tag, creating it lazily.
func (m *Monitor) entry(tag backend.Tag) *healthEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[tag]
	if !ok {
		e = &healthEntry{}
		m.entries[tag] = e
	}
	return e
}

// Snapshot returns the cached entry for tag, if one exists.
func (m *Monitor) Snapshot(tag backend.Tag) (health.Entry, bool) {
	m.mu.Lock()
	e, ok := m.entries[tag]
	m.mu.Unlock()
	if !ok {
		return health.Entry{}, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.lastCheckedAt.IsZero() {
		return health.Entry{}, false
	}
	return health.Entry{
		Healthy:             e.healthy,
		LastCheckedAt:       e.lastCheckedAt,
		ConsecutiveFailures: e.consecutiveFailures,
	}, true
}

// SnapshotAll returns every cached entry keyed by backend name.
func (m *Monitor) SnapshotAll() map[string]health.Entry {
	m.mu.Lock()
	tags := make([]backend.Tag, 0, len(m.entries))
	for tag := range m.entries {
		tags = append(tags, tag)
	}
	m.mu.Unlock()

	out := make(map[string]health.Entry, len(tags))
	for _, tag := range tags {
		if entry, ok := m.Snapshot(tag); ok {
			out[string(tag)] = entry
		}
	}
	return out
}

// Len returns the number of cached entries.
func (m *Monitor) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// sweepIfDue runs the bounded-cache sweep if the throttle window has
// elapsed. The sweep removes entries older than MaxAge, then evicts the
// least-recently-checked entries until the size bound holds. Entries with
// a probe in flight are skipped rather than blocked on.
func (m *Monitor) sweepIfDue() {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.lastSweep.IsZero() && now.Sub(m.lastSweep) < m.cfg.MaxAge {
		return
	}
	m.lastSweep = now
	m.sweepLocked(now)
}

// Sweep forces an immediate sweep regardless of the throttle (for tests
// and operational tooling).
func (m *Monitor) Sweep() {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastSweep = now
	m.sweepLocked(now)
}

type sweepCandidate struct {
	tag       backend.Tag
	checkedAt time.Time
}

func (m *Monitor) sweepLocked(now time.Time) {
	candidates := make([]sweepCandidate, 0, len(m.entries))
	for tag, e := range m.entries {
		// TryLock: an entry with a probe in flight is live by
		// definition and must not be evicted or waited on.
		if !e.mu.TryLock() {
			continue
		}
		checkedAt := e.lastCheckedAt
		e.mu.Unlock()

		if !checkedAt.IsZero() && now.Sub(checkedAt) > m.cfg.MaxAge {
			delete(m.entries, tag)
			continue
		}
		candidates = append(candidates, sweepCandidate{tag: tag, checkedAt: checkedAt})
	}

	defer func() { recordCacheSize(len(m.entries)) }()

	excess := len(m.entries) - m.cfg.MaxEntries
	if excess <= 0 {
		return
	}

	// Oldest first; O(n log n) in the number of cached entries.
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].checkedAt.Before(candidates[j].checkedAt)
	})
	for _, c := range candidates {
		if excess <= 0 {
			break
		}
		if _, ok := m.entries[c.tag]; ok {
			delete(m.entries, c.tag)
			excess--
		}
	}
}
