package stage_test

import (
	"context"
	"errors"
	"testing"

	"mediaflow/internal/catalog"
	"mediaflow/internal/stage"
)

func TestFuncHandler(t *testing.T) {
	boom := errors.New("boom")
	h := stage.Func{Name: "custom", Fn: func(context.Context, *catalog.Item) error { return boom }}
	if err := h.Execute(context.Background(), &catalog.Item{}); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if health := h.HealthCheck(context.Background()); !health.Ready || health.Name != "custom" {
		t.Fatalf("unexpected health %+v", health)
	}
	if err := (stage.Func{}).Execute(context.Background(), &catalog.Item{}); err != nil {
		t.Fatalf("nil fn should be a no-op, got %v", err)
	}
}

func TestUnhealthyCarriesDetail(t *testing.T) {
	h := stage.Unhealthy("thumbnail", "ffmpeg missing")
	if h.Ready || h.Detail != "ffmpeg missing" {
		t.Fatalf("unexpected health %+v", h)
	}
}
