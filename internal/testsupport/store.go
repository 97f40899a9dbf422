package testsupport

import (
	"context"
	"path/filepath"
	"testing"

	"mediaflow/internal/catalog"
	"mediaflow/internal/config"
)

// MustOpenStore opens a catalog.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *catalog.Store {
	t.Helper()

	store, err := catalog.Open(cfg)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewItem writes a media file of size bytes under the config's temp root and
// registers it in store.
func NewItem(t testing.TB, store *catalog.Store, cfg *config.Config, name string, size int64) *catalog.Item {
	t.Helper()

	path := filepath.Join(BaseDir(cfg), "media", name)
	WriteFile(t, path, size)
	item, err := store.Create(context.Background(), catalog.NewItem{
		OwnerID:   "user-1",
		Title:     name,
		FilePath:  path,
		MimeType:  "video/mp4",
		SizeBytes: size,
	})
	if err != nil {
		t.Fatalf("store.Create: %v", err)
	}
	return item
}

// MarkCompleted drives item straight to done and persists it.
func MarkCompleted(t testing.TB, store *catalog.Store, item *catalog.Item) *catalog.Item {
	t.Helper()

	for _, stage := range catalog.StageOrder()[1:] {
		if err := item.EnterStage(stage); err != nil {
			t.Fatalf("EnterStage(%s): %v", stage, err)
		}
	}
	if err := store.Update(context.Background(), item); err != nil {
		t.Fatalf("store.Update: %v", err)
	}
	return item
}
