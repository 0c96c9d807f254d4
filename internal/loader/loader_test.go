package loader

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sdp-sandbox/github-audit-dashboard/internal/observability"
	"github.com/sdp-sandbox/github-audit-dashboard/internal/rules"
	"github.com/sdp-sandbox/github-audit-dashboard/internal/statestore"
)

type fakeFetcher struct {
	mu      sync.Mutex
	calls   map[string]int
	objects map[string][]byte
	fail    map[string]error
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		calls: make(map[string]int),
		objects: map[string][]byte{
			KeyRepositories:   []byte(`[{"name":"repo-a","type":"public","url":"https://github.com/org/repo-a","checklist":{"inactive":true}}]`),
			KeySecretScanning: []byte(`[{"name":"repo-a","type":"pat","secret":"s","link":"l"}]`),
			KeyDependabot:     []byte(`[{"name":"repo-a","type":"public","dependency":"d","advisory":"a","severity":"high","days_open":3,"link":"l"}]`),
		},
		fail: make(map[string]error),
	}
}

func (f *fakeFetcher) Fetch(ctx context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[key]++
	if err := f.fail[key]; err != nil {
		return nil, err
	}
	return f.objects[key], nil
}

func (f *fakeFetcher) callCount(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestLoader(t *testing.T, fetcher Fetcher, clock *fixedClock, store statestore.SnapshotStore) *Loader {
	t.Helper()
	catalog, err := rules.Load()
	if err != nil {
		t.Fatalf("failed to load catalog: %v", err)
	}
	logger := observability.NewLoggerWithWriter("error", io.Discard)
	return NewLoader(fetcher, catalog, store, 10*time.Minute, logger, WithClock(clock.Now))
}

func TestLoadFetchesAllThreeDatasets(t *testing.T) {
	fetcher := newFakeFetcher()
	clock := &fixedClock{now: time.Date(2026, 3, 1, 10, 3, 0, 0, time.UTC)}
	l := newTestLoader(t, fetcher, clock, nil)

	snap, err := l.Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(snap.Repositories) != 1 || len(snap.SecretAlerts) != 1 || len(snap.DependencyAlerts) != 1 {
		t.Errorf("unexpected snapshot sizes: %d/%d/%d",
			len(snap.Repositories), len(snap.SecretAlerts), len(snap.DependencyAlerts))
	}
	for _, key := range []string{KeyRepositories, KeySecretScanning, KeyDependabot} {
		if fetcher.callCount(key) != 1 {
			t.Errorf("expected exactly one fetch of %s, got %d", key, fetcher.callCount(key))
		}
	}
	if want := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC); !snap.BucketTick.Equal(want) {
		t.Errorf("bucket tick = %v, want %v", snap.BucketTick, want)
	}
}

func TestLoadSameBucketReturnsCachedWithoutFetch(t *testing.T) {
	fetcher := newFakeFetcher()
	clock := &fixedClock{now: time.Date(2026, 3, 1, 10, 3, 0, 0, time.UTC)}
	l := newTestLoader(t, fetcher, clock, nil)

	first, err := l.Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	clock.Advance(4 * time.Minute) // still inside the 10m bucket
	second, err := l.Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if first != second {
		t.Error("same bucket should return the identical snapshot")
	}
	if fetcher.callCount(KeyRepositories) != 1 {
		t.Errorf("cache hit must not fetch, got %d fetches", fetcher.callCount(KeyRepositories))
	}
}

func TestLoadNewBucketRefetchesOnce(t *testing.T) {
	fetcher := newFakeFetcher()
	clock := &fixedClock{now: time.Date(2026, 3, 1, 10, 3, 0, 0, time.UTC)}
	l := newTestLoader(t, fetcher, clock, nil)

	if _, err := l.Load(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	clock.Advance(10 * time.Minute)
	if _, err := l.Load(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, key := range []string{KeyRepositories, KeySecretScanning, KeyDependabot} {
		if fetcher.callCount(key) != 2 {
			t.Errorf("expected exactly 2 fetches of %s across two buckets, got %d", key, fetcher.callCount(key))
		}
	}
}

func TestLoadFailFast(t *testing.T) {
	fetcher := newFakeFetcher()
	fetchErr := errors.New("an error occurred when getting secret_scanning.json data")
	fetcher.fail[KeySecretScanning] = fetchErr

	clock := &fixedClock{now: time.Date(2026, 3, 1, 10, 3, 0, 0, time.UTC)}
	l := newTestLoader(t, fetcher, clock, nil)

	_, err := l.Load(context.Background())
	if !errors.Is(err, fetchErr) {
		t.Fatalf("expected the fetch error to propagate verbatim, got %v", err)
	}

	// Dependabot comes after the failing dataset; fail-fast means it was
	// never requested and nothing got cached.
	if fetcher.callCount(KeyDependabot) != 0 {
		t.Error("loader should stop at the first failed dataset")
	}

	fetcher.mu.Lock()
	delete(fetcher.fail, KeySecretScanning)
	fetcher.mu.Unlock()

	if _, err := l.Load(context.Background()); err != nil {
		t.Fatalf("recovery load failed: %v", err)
	}
	if fetcher.callCount(KeyRepositories) != 2 {
		t.Error("failed load must not populate the cache")
	}
}

func TestLoadDecodeFailureIsAnError(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.objects[KeyRepositories] = []byte(`{"broken":`)

	clock := &fixedClock{now: time.Date(2026, 3, 1, 10, 3, 0, 0, time.UTC)}
	l := newTestLoader(t, fetcher, clock, nil)

	if _, err := l.Load(context.Background()); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestLoadCountsOrphanedAlerts(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.objects[KeySecretScanning] = []byte(`[
		{"name":"repo-a","type":"pat","secret":"s","link":"l"},
		{"name":"ghost-repo","type":"pat","secret":"s","link":"l"}
	]`)

	clock := &fixedClock{now: time.Date(2026, 3, 1, 10, 3, 0, 0, time.UTC)}
	l := newTestLoader(t, fetcher, clock, nil)

	snap, err := l.Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.OrphanedSecretAlerts != 1 {
		t.Errorf("orphaned secret alerts = %d, want 1", snap.OrphanedSecretAlerts)
	}
	if len(snap.SecretAlerts) != 2 {
		t.Error("orphaned alerts must still be displayed, not dropped")
	}
}

func TestLoadWarmStartsFromSnapshotStore(t *testing.T) {
	ctx := context.Background()
	clock := &fixedClock{now: time.Date(2026, 3, 1, 10, 3, 0, 0, time.UTC)}
	tick := clock.Now().Truncate(10 * time.Minute)

	store, err := statestore.NewSQLiteStore(t.TempDir() + "/warm.db")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer store.Close()

	seed := newFakeFetcher()
	if err := store.SaveSnapshot(ctx, tick, seed.objects); err != nil {
		t.Fatalf("failed to seed store: %v", err)
	}

	fetcher := newFakeFetcher()
	l := newTestLoader(t, fetcher, clock, store)

	snap, err := l.Load(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(snap.Repositories) != 1 {
		t.Errorf("expected warm snapshot to decode, got %d repositories", len(snap.Repositories))
	}
	if fetcher.callCount(KeyRepositories) != 0 {
		t.Error("warm start must not hit the object store")
	}
}

func TestLoadPersistsSnapshot(t *testing.T) {
	ctx := context.Background()
	clock := &fixedClock{now: time.Date(2026, 3, 1, 10, 3, 0, 0, time.UTC)}

	store, err := statestore.NewSQLiteStore(t.TempDir() + "/persist.db")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer store.Close()

	l := newTestLoader(t, newFakeFetcher(), clock, store)
	if _, err := l.Load(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tick := clock.Now().Truncate(10 * time.Minute)
	stored, err := store.GetSnapshot(ctx, tick)
	if err != nil {
		t.Fatalf("snapshot was not persisted: %v", err)
	}
	if len(stored) != 3 {
		t.Errorf("expected 3 persisted objects, got %d", len(stored))
	}
}
