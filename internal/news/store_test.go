package news

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStore_RoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if _, ok := store.Get(ctx); ok {
		t.Fatal("empty store should miss")
	}

	entry := &Entry{
		Items:      []Item{{Title: "a"}, {Title: "b"}},
		WrittenAt:  time.Now(),
		Generation: 1,
	}
	if !store.Set(ctx, entry, time.Hour) {
		t.Fatal("first write should succeed")
	}

	got, ok := store.Get(ctx)
	if !ok {
		t.Fatal("expected hit after write")
	}
	if len(got.Items) != 2 || got.Items[0].Title != "a" {
		t.Errorf("unexpected entry: %+v", got)
	}
}

func TestMemoryStore_Expiration(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	store.Set(ctx, &Entry{WrittenAt: time.Now(), Generation: 1}, 10*time.Millisecond)
	time.Sleep(25 * time.Millisecond)

	if _, ok := store.Get(ctx); ok {
		t.Error("expired entry should miss")
	}
}

func TestMemoryStore_GenerationGuard(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	newer := &Entry{Items: []Item{{Title: "newer"}}, WrittenAt: time.Now(), Generation: 5}
	if !store.Set(ctx, newer, time.Hour) {
		t.Fatal("newer write should succeed")
	}

	// A slow fetch from an older generation must not clobber fresher data.
	stale := &Entry{Items: []Item{{Title: "stale"}}, WrittenAt: time.Now(), Generation: 3}
	if store.Set(ctx, stale, time.Hour) {
		t.Fatal("stale write should be rejected")
	}

	got, ok := store.Get(ctx)
	if !ok || got.Items[0].Title != "newer" {
		t.Errorf("newer entry should survive, got %+v", got)
	}
}

func TestMemoryStore_Clear(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	store.Set(ctx, &Entry{WrittenAt: time.Now(), Generation: 1}, time.Hour)
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if _, ok := store.Get(ctx); ok {
		t.Error("cleared store should miss")
	}
}
