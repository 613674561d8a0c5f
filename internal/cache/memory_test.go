package cache

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/stockyard-ci/stockyard/internal/config"
)

func TestMemory_GetSet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if _, err := m.Get(ctx, "missing"); !errors.Is(err, ErrMiss) {
		t.Errorf("Get(missing) error = %v, want ErrMiss", err)
	}

	if err := m.Set(ctx, AdminSessionPrefix+"abc", "admin", 0); err != nil {
		t.Fatal(err)
	}
	v, err := m.Get(ctx, AdminSessionPrefix+"abc")
	if err != nil || v != "admin" {
		t.Errorf("Get() = %q, %v; want admin, nil", v, err)
	}

	m.Delete(ctx, AdminSessionPrefix+"abc")
	if _, err := m.Get(ctx, AdminSessionPrefix+"abc"); !errors.Is(err, ErrMiss) {
		t.Errorf("Get after Delete error = %v, want ErrMiss", err)
	}
}

func TestMemory_Expiry(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	m.Set(ctx, "session", "x", time.Hour)

	now = now.Add(59 * time.Minute)
	if _, err := m.Get(ctx, "session"); err != nil {
		t.Errorf("session should still be valid: %v", err)
	}

	now = now.Add(time.Minute)
	if _, err := m.Get(ctx, "session"); !errors.Is(err, ErrMiss) {
		t.Errorf("session should have expired, got %v", err)
	}
}

func TestMemory_EvictKeepsRefreshedValue(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	m.Set(ctx, "session", "old", time.Minute)
	now = now.Add(2 * time.Minute)

	// A reader saw the expired entry; a Set lands before it evicts.
	m.Set(ctx, "session", "new", time.Hour)
	m.evictExpired("session")

	v, err := m.Get(ctx, "session")
	if err != nil || v != "new" {
		t.Errorf("Get() = %q, %v; want new, nil", v, err)
	}

	now = now.Add(2 * time.Hour)
	m.evictExpired("session")
	m.mu.RLock()
	_, ok := m.values["session"]
	m.mu.RUnlock()
	if ok {
		t.Error("expired entry was not evicted")
	}
}

func TestMemory_Sets(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	m.Add(ctx, OwnersKey, "stampede", "acme")
	m.Add(ctx, OwnersKey, "acme")

	got, _ := m.Members(ctx, OwnersKey)
	if want := []string{"acme", "stampede"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Members() = %v, want %v", got, want)
	}

	m.Remove(ctx, OwnersKey, "acme", "unknown")
	got, _ = m.Members(ctx, OwnersKey)
	if want := []string{"stampede"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Members() after Remove = %v, want %v", got, want)
	}

	empty, err := m.Members(ctx, "no-such-set")
	if err != nil || len(empty) != 0 {
		t.Errorf("Members(no-such-set) = %v, %v", empty, err)
	}
}

func TestNew_FallsBackToMemory(t *testing.T) {
	store := New(&config.RedisConfig{Enabled: false})
	if store.Mode() != "memory" {
		t.Errorf("Mode() = %q, want memory", store.Mode())
	}

	// unreachable redis also falls back
	store = New(&config.RedisConfig{Enabled: true, Addr: "127.0.0.1:1"})
	if store.Mode() != "memory" {
		t.Errorf("Mode() = %q, want memory", store.Mode())
	}
}
