// Package loader orchestrates fetching the three audit datasets and applies
// the coarse time-bucketed cache that keeps repeated dashboard refreshes
// from hammering the object store.
package loader

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sdp-sandbox/github-audit-dashboard/internal/observability"
	"github.com/sdp-sandbox/github-audit-dashboard/internal/rules"
	"github.com/sdp-sandbox/github-audit-dashboard/internal/statestore"
	"github.com/sdp-sandbox/github-audit-dashboard/internal/types"
)

// Object keys of the three audit datasets
const (
	KeyRepositories   = "repositories.json"
	KeySecretScanning = "secret_scanning.json"
	KeyDependabot     = "dependabot.json"
)

// Fetcher retrieves a named object from the audit bucket
type Fetcher interface {
	Fetch(ctx context.Context, key string) ([]byte, error)
}

// Snapshot holds the decoded datasets for one cache bucket. Views must
// treat it as read-only: every render derives fresh tables from it.
type Snapshot struct {
	Repositories     []types.RepositoryRecord
	SecretAlerts     []types.SecretAlert
	DependencyAlerts []types.DependencyAlert

	BucketTick time.Time
	FetchedAt  time.Time

	// Drift between the rule catalog and the checklist columns
	Drift rules.Drift

	// Alert rows whose repository is absent from the repository snapshot.
	// They still render; the counts exist so someone notices.
	OrphanedSecretAlerts     int
	OrphanedDependencyAlerts int
}

// Loader memoizes snapshots per cache bucket. A read-mostly lock guards the
// cached snapshot so concurrent renders never trigger duplicate fetches.
type Loader struct {
	fetcher Fetcher
	catalog *rules.Catalog
	store   statestore.SnapshotStore
	window  time.Duration
	now     func() time.Time
	logger  *slog.Logger
	metrics *observability.Metrics

	mu     sync.RWMutex
	cached *Snapshot
}

// Option configures a Loader
type Option func(*Loader)

// WithClock makes the cache tick injectable for deterministic tests
func WithClock(now func() time.Time) Option {
	return func(l *Loader) {
		l.now = now
	}
}

// NewLoader creates a new data loader. store may be nil to disable the
// persistent snapshot cache (the TUI uses it, tests usually do not).
func NewLoader(fetcher Fetcher, catalog *rules.Catalog, store statestore.SnapshotStore, window time.Duration, logger *slog.Logger, opts ...Option) *Loader {
	l := &Loader{
		fetcher: fetcher,
		catalog: catalog,
		store:   store,
		window:  window,
		now:     time.Now,
		logger:  logger,
		metrics: observability.GetMetrics(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load returns the snapshot for the current cache bucket. Calls inside one
// bucket reuse the memoized snapshot; a new bucket forces a fresh fetch of
// all three datasets. If any fetch fails the whole load fails and nothing
// is cached: the dashboard renders all of it or none of it.
func (l *Loader) Load(ctx context.Context) (*Snapshot, error) {
	tick := l.now().Truncate(l.window)

	l.mu.RLock()
	if l.cached != nil && l.cached.BucketTick.Equal(tick) {
		snap := l.cached
		l.mu.RUnlock()
		l.metrics.CacheHits.Inc()
		l.metrics.SnapshotAge.Set(l.now().Sub(snap.FetchedAt).Seconds())
		return snap, nil
	}
	l.mu.RUnlock()

	l.mu.Lock()
	defer l.mu.Unlock()

	// Another render may have populated the bucket while we waited.
	if l.cached != nil && l.cached.BucketTick.Equal(tick) {
		l.metrics.CacheHits.Inc()
		return l.cached, nil
	}

	l.metrics.CacheMisses.Inc()

	datasets, err := l.gather(ctx, tick)
	if err != nil {
		return nil, err
	}

	snap, err := l.decode(datasets, tick)
	if err != nil {
		return nil, err
	}

	l.persist(ctx, tick, datasets)

	l.cached = snap
	l.metrics.SnapshotAge.Set(0)
	l.logger.Info("snapshot loaded",
		"bucket_tick", tick.UTC().Format(time.RFC3339),
		"repositories", len(snap.Repositories),
		"secret_alerts", len(snap.SecretAlerts),
		"dependency_alerts", len(snap.DependencyAlerts))

	return snap, nil
}

// Catalog returns the immutable rule metadata the loader was built with
func (l *Loader) Catalog() *rules.Catalog {
	return l.catalog
}

// gather returns the raw dataset bodies for the bucket, warm-starting from
// the snapshot store when a previous process already fetched this bucket.
func (l *Loader) gather(ctx context.Context, tick time.Time) (map[string][]byte, error) {
	if l.store != nil {
		if stored, err := l.store.GetSnapshot(ctx, tick); err == nil {
			if _, ok := stored[KeyRepositories]; ok {
				l.logger.Debug("warm-starting snapshot from local cache",
					"bucket_tick", tick.UTC().Format(time.RFC3339))
				return stored, nil
			}
		}
	}

	datasets := make(map[string][]byte, 3)
	for _, key := range []string{KeyRepositories, KeySecretScanning, KeyDependabot} {
		body, err := l.fetcher.Fetch(ctx, key)
		if err != nil {
			// Fail fast: a partial dashboard is worse than no dashboard.
			return nil, err
		}
		datasets[key] = body
	}
	return datasets, nil
}

func (l *Loader) decode(datasets map[string][]byte, tick time.Time) (*Snapshot, error) {
	repositories, err := types.DecodeRepositories(datasets[KeyRepositories])
	if err != nil {
		return nil, err
	}
	secretAlerts, err := types.DecodeSecretAlerts(datasets[KeySecretScanning])
	if err != nil {
		return nil, err
	}
	dependencyAlerts, err := types.DecodeDependencyAlerts(datasets[KeyDependabot])
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		Repositories:     repositories,
		SecretAlerts:     secretAlerts,
		DependencyAlerts: dependencyAlerts,
		BucketTick:       tick,
		FetchedAt:        l.now(),
	}

	snap.Drift = l.catalog.CheckDrift(repositories)
	if !snap.Drift.Empty() {
		l.logger.Warn("rule catalog and repository snapshot have drifted",
			"missing_from_snapshot", snap.Drift.MissingFromSnapshot,
			"missing_from_catalog", snap.Drift.MissingFromCatalog)
	}

	known := make(map[string]bool, len(repositories))
	for _, r := range repositories {
		known[r.Name] = true
	}
	for _, a := range secretAlerts {
		if !known[a.Repository] {
			snap.OrphanedSecretAlerts++
		}
	}
	for _, a := range dependencyAlerts {
		if !known[a.Repository] {
			snap.OrphanedDependencyAlerts++
		}
	}
	l.metrics.OrphanedAlerts.WithLabelValues("secret_scanning").Set(float64(snap.OrphanedSecretAlerts))
	l.metrics.OrphanedAlerts.WithLabelValues("dependabot").Set(float64(snap.OrphanedDependencyAlerts))
	if snap.OrphanedSecretAlerts > 0 || snap.OrphanedDependencyAlerts > 0 {
		l.logger.Warn("alert rows reference repositories missing from the repository snapshot",
			"secret_scanning", snap.OrphanedSecretAlerts,
			"dependabot", snap.OrphanedDependencyAlerts)
	}

	return snap, nil
}

// persist writes the bucket through to the local snapshot store and prunes
// stale buckets. Persistence failures only cost the warm start, so they are
// logged and swallowed.
func (l *Loader) persist(ctx context.Context, tick time.Time, datasets map[string][]byte) {
	if l.store == nil {
		return
	}
	if err := l.store.SaveSnapshot(ctx, tick, datasets); err != nil {
		l.logger.Warn("failed to persist snapshot",
			"error", err.Error())
		return
	}
	if pruned, err := l.store.Prune(ctx, tick); err != nil {
		l.logger.Warn("failed to prune stale snapshots",
			"error", err.Error())
	} else if pruned > 0 {
		l.logger.Debug("pruned stale snapshots",
			"count", pruned)
	}
}
