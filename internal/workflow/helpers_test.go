package workflow_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"mediaflow/internal/analyzer"
	"mediaflow/internal/catalog"
	"mediaflow/internal/progress"
	"mediaflow/internal/stage"
	"mediaflow/internal/workflow"
)

type eventRecorder struct {
	mu     sync.Mutex
	events []progress.Event
	topics [][]string
}

func (r *eventRecorder) PublishAll(topics []string, evt progress.Event) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	r.topics = append(r.topics, append([]string(nil), topics...))
	return len(topics)
}

func (r *eventRecorder) snapshot() []progress.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]progress.Event(nil), r.events...)
}

func (r *eventRecorder) forItem(id string) []progress.Event {
	var out []progress.Event
	for _, evt := range r.snapshot() {
		if evt.ID == id {
			out = append(out, evt)
		}
	}
	return out
}

func noop(name string) stage.Handler {
	return stage.Func{Name: name}
}

func passingStages() workflow.StageSet {
	return workflow.StageSet{
		Metadata: stage.Func{Name: "metadata", Fn: func(_ context.Context, item *catalog.Item) error {
			item.DurationSeconds = 12.5
			item.Width, item.Height = 640, 360
			return nil
		}},
		Thumbnail: noop("thumbnail"),
		Analysis: stage.Func{Name: "analysis", Fn: func(_ context.Context, item *catalog.Item) error {
			item.Sensitivity = &analyzer.Result{
				Classification: analyzer.ClassificationSafe,
				Confidence:     12,
				AnalyzedAt:     time.Now().UTC(),
			}
			return nil
		}},
		Finalize: noop("finalize"),
	}
}

// flakyStore fails Update once its call count reaches failAt.
type flakyStore struct {
	workflow.RecordStore
	mu     sync.Mutex
	calls  int
	failAt int
}

func (s *flakyStore) Update(ctx context.Context, item *catalog.Item) error {
	s.mu.Lock()
	s.calls++
	fail := s.calls == s.failAt
	s.mu.Unlock()
	if fail {
		return errors.New("database is locked")
	}
	return s.RecordStore.Update(ctx, item)
}

func waitForTerminal(t *testing.T, store *catalog.Store, id string) *catalog.Item {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		item, err := store.GetByID(context.Background(), id)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if item.Stage.IsTerminal() {
			return item
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("item %s did not reach a terminal stage", id)
	return nil
}

func progressStages(events []progress.Event) []catalog.Stage {
	var out []catalog.Stage
	for _, evt := range events {
		if evt.Type == progress.EventProgress {
			out = append(out, evt.Stage)
		}
	}
	return out
}

func assertMonotonic(t *testing.T, events []progress.Event) {
	t.Helper()
	last := -1
	for _, evt := range events {
		if evt.Type != progress.EventProgress {
			continue
		}
		if *evt.Progress < last {
			t.Fatalf("progress regressed from %d to %d at %s", last, *evt.Progress, evt.Stage)
		}
		if *evt.Progress < 0 || *evt.Progress > 100 {
			t.Fatalf("progress %d out of range", *evt.Progress)
		}
		last = *evt.Progress
	}
}

func waitForEvent(t *testing.T, rec *eventRecorder, id string, typ progress.EventType) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		for _, evt := range rec.forItem(id) {
			if evt.Type == typ {
				return
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("no %s event for %s", typ, id)
}
