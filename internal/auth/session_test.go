package auth

import (
	"context"
	"testing"
	"time"
)

var sessionTestBase = time.Date(2026, 1, 20, 9, 0, 0, 0, time.UTC)

func TestMemorySessionStoreIdleTimeout(t *testing.T) {
	store := NewMemorySessionStore(time.Hour)
	ctx := context.Background()

	session, err := store.Create(ctx, sessionTestBase)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if session.ID == "" {
		t.Fatal("empty session id")
	}

	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{name: "fresh", at: sessionTestBase.Add(10 * time.Minute), want: true},
		{name: "refreshed by previous touch", at: sessionTestBase.Add(69 * time.Minute), want: true},
		{name: "idle for an hour", at: sessionTestBase.Add(129 * time.Minute), want: false},
		{name: "removed after idle", at: sessionTestBase.Add(130 * time.Minute), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := store.Touch(ctx, session.ID, tt.at)
			if err != nil {
				t.Fatalf("Touch: %v", err)
			}
			if ok != tt.want {
				t.Fatalf("Touch = %v, want %v", ok, tt.want)
			}
		})
	}
}

func TestMemorySessionStoreCountAndSweep(t *testing.T) {
	store := NewMemorySessionStore(time.Hour)
	ctx := context.Background()

	if _, err := store.Create(ctx, sessionTestBase); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := store.Create(ctx, sessionTestBase.Add(30*time.Minute)); err != nil {
		t.Fatalf("Create: %v", err)
	}

	now := sessionTestBase.Add(75 * time.Minute)
	count, err := store.Count(ctx, now)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 1 {
		t.Fatalf("Count = %d, want 1", count)
	}

	removed, err := store.Sweep(ctx, now)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if removed != 1 {
		t.Fatalf("Sweep removed %d, want 1", removed)
	}
	if len(store.sessions) != 1 {
		t.Fatalf("%d sessions left, want 1", len(store.sessions))
	}
}

func TestMemorySessionStoreDelete(t *testing.T) {
	store := NewMemorySessionStore(0)
	ctx := context.Background()

	session, _ := store.Create(ctx, sessionTestBase)
	if err := store.Delete(ctx, session.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if ok, _ := store.Touch(ctx, session.ID, sessionTestBase); ok {
		t.Fatal("deleted session still valid")
	}
	if err := store.Delete(ctx, "missing"); err != nil {
		t.Fatalf("Delete missing: %v", err)
	}
}
