package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestMemoryStoreLookupHidesExpired(t *testing.T) {
	store := NewMemoryStore()
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	if err := store.Save(ctx, "live", "user-1", now.Add(time.Minute)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.Save(ctx, "dead", "user-1", now); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if userID, err := store.Lookup(ctx, "live"); err != nil || userID != "user-1" {
		t.Fatalf("Lookup(live) = %q, %v", userID, err)
	}
	if _, err := store.Lookup(ctx, "dead"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for expired session, got %v", err)
	}
	if _, err := store.Lookup(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown session, got %v", err)
	}
}

func TestMemoryStoreSweep(t *testing.T) {
	store := NewMemoryStore()
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	_ = store.Save(ctx, "a", "user-1", now.Add(-time.Second))
	_ = store.Save(ctx, "b", "user-2", now)
	_ = store.Save(ctx, "c", "user-3", now.Add(time.Hour))

	if removed := store.Sweep(now); removed != 2 {
		t.Fatalf("expected 2 sessions swept, got %d", removed)
	}
	if store.Len() != 1 {
		t.Fatalf("expected 1 remaining session, got %d", store.Len())
	}
}

func TestMemoryStoreRevoke(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	_ = store.Save(ctx, "a", "user-1", time.Now().Add(time.Hour))

	if err := store.Revoke(ctx, "a"); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	if _, err := store.Lookup(ctx, "a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after revoke, got %v", err)
	}
	if err := store.Revoke(ctx, "a"); err != nil {
		t.Fatalf("second Revoke should be a no-op, got %v", err)
	}
}

func TestMemoryStoreConcurrentSaves(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	expiresAt := time.Now().Add(time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = store.Save(ctx, fmt.Sprintf("sess-%d", i), "user", expiresAt)
		}(i)
	}
	wg.Wait()

	if store.Len() != 50 {
		t.Fatalf("expected 50 sessions, got %d", store.Len())
	}
}
