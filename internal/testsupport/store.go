package testsupport

import (
	"context"
	"testing"

	"cinefuse/internal/config"
	"cinefuse/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewFilm creates a new film item for tests using the provided store.
func NewFilm(t testing.TB, store *queue.Store, tmdbID int64, title string, year int) *queue.Item {
	t.Helper()

	item, err := store.NewFilm(context.Background(), tmdbID, "", title, year)
	if err != nil {
		t.Fatalf("store.NewFilm: %v", err)
	}
	return item
}
