package session

import (
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/sdp-sandbox/github-audit-dashboard/internal/rules"
	"github.com/sdp-sandbox/github-audit-dashboard/internal/types"
)

func testStore(t *testing.T, ttl time.Duration) (*Store, *time.Time) {
	t.Helper()
	catalog, err := rules.Load()
	if err != nil {
		t.Fatalf("failed to load catalog: %v", err)
	}

	store := NewStore(slog.Default(), catalog, ttl)
	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return current }
	return store, &current
}

func TestCreateDefaults(t *testing.T) {
	store, _ := testStore(t, time.Hour)

	session := store.Create()
	if session.ID == "" {
		t.Fatal("session must have an id")
	}
	if session.TypeFilter != types.RepoTypeAll {
		t.Errorf("type filter = %q, want all", session.TypeFilter)
	}

	// Every rule starts selected.
	for name, selected := range session.SelectedRules {
		if !selected {
			t.Errorf("rule %s should start selected", name)
		}
	}
	if len(session.SelectedRules) != 9 {
		t.Errorf("selected rules = %d, want 9", len(session.SelectedRules))
	}

	// Every severity starts selected.
	for severity, selected := range session.DependencyFilter.Severities {
		if !selected {
			t.Errorf("severity %s should start selected", severity)
		}
	}
}

func TestGetRefreshesTTL(t *testing.T) {
	store, current := testStore(t, time.Hour)
	session := store.Create()

	*current = current.Add(50 * time.Minute)
	got, err := store.Get(session.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.ExpiresAt.Equal(current.Add(time.Hour)) {
		t.Errorf("TTL not refreshed: expires %v", got.ExpiresAt)
	}

	// Another 50 minutes is fine because the read refreshed the TTL.
	*current = current.Add(50 * time.Minute)
	if _, err := store.Get(session.ID); err != nil {
		t.Errorf("refreshed session should still be alive: %v", err)
	}
}

func TestGetExpired(t *testing.T) {
	store, current := testStore(t, time.Hour)
	session := store.Create()

	*current = current.Add(2 * time.Hour)
	_, err := store.Get(session.ID)
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
	if store.Len() != 0 {
		t.Error("expired session should be dropped on access")
	}
}

func TestGetUnknown(t *testing.T) {
	store, _ := testStore(t, time.Hour)
	if _, err := store.Get("no-such-session"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestUpdate(t *testing.T) {
	store, _ := testStore(t, time.Hour)
	session := store.Create()

	updated, err := store.Update(session.ID, func(s *Session) {
		s.SelectedRules["inactive"] = false
		s.TypeFilter = types.RepoTypePrivate
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.SelectedRules["inactive"] || updated.TypeFilter != types.RepoTypePrivate {
		t.Errorf("update not applied: %+v", updated)
	}

	got, err := store.Get(session.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.SelectedRules["inactive"] {
		t.Error("update must persist across reads")
	}
}

func TestReturnedSessionsAreIsolated(t *testing.T) {
	store, _ := testStore(t, time.Hour)
	created := store.Create()

	// Mutating what Create/Get/Update hand out must not touch the store.
	created.SelectedRules["inactive"] = false
	created.DependencyFilter.Severities[types.Critical] = false

	got, err := store.Get(created.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.SelectedRules["inactive"] {
		t.Error("mutating a returned session leaked into the store")
	}
	if !got.DependencyFilter.Severities[types.Critical] {
		t.Error("mutating a returned severity map leaked into the store")
	}

	got.SelectedRules["readme_missing"] = false
	again, err := store.Get(created.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !again.SelectedRules["readme_missing"] {
		t.Error("mutating a Get result leaked into the store")
	}
}

func TestConcurrentReadAndUpdate(t *testing.T) {
	store := NewStore(slog.Default(), mustCatalog(t), time.Hour)
	created := store.Create()

	// Renders iterate the selection maps while updates rewrite them; the
	// iteration must never see the stored map.
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				got, err := store.Get(created.ID)
				if err != nil {
					t.Errorf("unexpected error: %v", err)
					return
				}
				count := 0
				for range got.SelectedRules {
					count++
				}
				for range got.DependencyFilter.Severities {
					count++
				}
				if count == 0 {
					t.Error("session lost its selection maps")
					return
				}
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 200; j++ {
			flip := j%2 == 0
			if _, err := store.Update(created.ID, func(s *Session) {
				s.SelectedRules["inactive"] = flip
				s.DependencyFilter.Severities[types.Low] = flip
			}); err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
		}
	}()
	wg.Wait()
}

func mustCatalog(t *testing.T) *rules.Catalog {
	t.Helper()
	catalog, err := rules.Load()
	if err != nil {
		t.Fatalf("failed to load catalog: %v", err)
	}
	return catalog
}

func TestDelete(t *testing.T) {
	store, _ := testStore(t, time.Hour)
	session := store.Create()

	store.Delete(session.ID)
	if _, err := store.Get(session.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("deleted session still readable: %v", err)
	}
}

func TestSweep(t *testing.T) {
	store, current := testStore(t, time.Hour)
	stale := store.Create()

	*current = current.Add(30 * time.Minute)
	fresh := store.Create()

	*current = current.Add(45 * time.Minute)
	removed := store.Sweep()
	if removed != 1 {
		t.Errorf("swept %d sessions, want 1", removed)
	}
	if _, err := store.Get(stale.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Error("stale session should be gone")
	}
	if _, err := store.Get(fresh.ID); err != nil {
		t.Errorf("fresh session should survive the sweep: %v", err)
	}
}
