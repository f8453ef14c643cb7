package memory

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewStore(rdb, time.Hour, nil)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	history := []Turn{
		{Input: "I want to book an appointment", Intent: "book", Sentiment: "neutral"},
		{Input: "tomorrow at 3pm", Intent: "book", Sentiment: "positive"},
	}
	if err := store.Save(ctx, "+15551230001", history); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := store.Load(ctx, "+15551230001")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != len(history) {
		t.Fatalf("got %d turns, want %d", len(loaded), len(history))
	}
	for i := range history {
		if loaded[i] != history[i] {
			t.Errorf("turn %d: got %+v, want %+v", i, loaded[i], history[i])
		}
	}
}

func TestLoadUnknownCallerReturnsEmpty(t *testing.T) {
	store := newTestStore(t)
	loaded, err := store.Load(context.Background(), "+15550000000")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 0 {
		t.Fatalf("expected empty history, got %d turns", len(loaded))
	}
}

func TestSaveOverwrites(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, "+15551230001", []Turn{{Input: "old", Intent: "unknown", Sentiment: "neutral"}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Save(ctx, "+15551230001", []Turn{{Input: "new", Intent: "book", Sentiment: "positive"}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := store.Load(ctx, "+15551230001")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 1 || loaded[0].Input != "new" {
		t.Fatalf("expected overwrite, got %+v", loaded)
	}
}

func TestCallersAreIsolated(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, "+15551230001", []Turn{{Input: "alpha"}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Save(ctx, "+15551230002", []Turn{{Input: "beta"}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	a, _ := store.Load(ctx, "+15551230001")
	b, _ := store.Load(ctx, "+15551230002")
	if a[0].Input != "alpha" || b[0].Input != "beta" {
		t.Fatalf("cross-caller contamination: %+v / %+v", a, b)
	}
}

func TestDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, "+15551230001", []Turn{{Input: "bye"}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Delete(ctx, "+15551230001"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	loaded, err := store.Load(ctx, "+15551230001")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 0 {
		t.Fatalf("expected empty after delete, got %+v", loaded)
	}
}
