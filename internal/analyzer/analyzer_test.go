package analyzer_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"mediaflow/internal/analyzer"
)

type fakeModel struct {
	result analyzer.Result
	err    error
	panics bool
}

func (f fakeModel) Name() string { return "fake" }

func (f fakeModel) Classify(context.Context, string) (analyzer.Result, error) {
	if f.panics {
		panic("model exploded")
	}
	return f.result, f.err
}

func writeMedia(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write media: %v", err)
	}
	return path
}

func TestFromModelConvertsErrorToPending(t *testing.T) {
	a := analyzer.FromModel(fakeModel{err: errors.New("gpu unavailable")}, nil)
	res := a.Analyze(context.Background(), "/tmp/none")
	if res.Classification != analyzer.ClassificationPending {
		t.Fatalf("classification = %s, want pending", res.Classification)
	}
	if res.Details["error"] != "gpu unavailable" {
		t.Fatalf("expected error detail, got %#v", res.Details)
	}
	if res.AnalyzedAt.IsZero() {
		t.Fatal("expected analyzedAt to be set")
	}
}

func TestFromModelRecoversPanic(t *testing.T) {
	a := analyzer.FromModel(fakeModel{panics: true}, nil)
	res := a.Analyze(context.Background(), "/tmp/none")
	if res.Classification != analyzer.ClassificationPending {
		t.Fatalf("classification = %s, want pending", res.Classification)
	}
	if _, ok := res.Details["error"]; !ok {
		t.Fatalf("expected error detail after panic, got %#v", res.Details)
	}
}

func TestFromModelNormalizesResult(t *testing.T) {
	a := analyzer.FromModel(fakeModel{result: analyzer.Result{
		Classification: analyzer.ClassificationFlagged,
		Confidence:     140,
		Flags:          []string{"Violence", "violence", " ", "language"},
	}}, nil)
	res := a.Analyze(context.Background(), "/tmp/none")
	if res.Confidence != 100 {
		t.Fatalf("confidence = %d, want clamp to 100", res.Confidence)
	}
	if len(res.Flags) != 2 || res.Flags[0] != "language" || res.Flags[1] != "violence" {
		t.Fatalf("unexpected flags %v", res.Flags)
	}
	if res.Details["model"] != "fake" {
		t.Fatalf("expected model detail, got %#v", res.Details)
	}
}

func TestStubDeterministicIsStable(t *testing.T) {
	path := writeMedia(t, "some media bytes")
	model := analyzer.NewStubModel(analyzer.StubDeterministic, 85, 0)

	first, err := model.Classify(context.Background(), path)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	second, err := model.Classify(context.Background(), path)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if first.Classification != second.Classification || first.Confidence != second.Confidence {
		t.Fatalf("expected stable results, got %+v and %+v", first, second)
	}
	if first.Confidence < 0 || first.Confidence > 100 {
		t.Fatalf("confidence out of range: %d", first.Confidence)
	}
}

func TestStubThresholdControlsFlagging(t *testing.T) {
	path := writeMedia(t, "frames")

	always := analyzer.NewStubModel(analyzer.StubDeterministic, 0, 0)
	res, err := always.Classify(context.Background(), path)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if res.Classification != analyzer.ClassificationFlagged || len(res.Flags) != 1 {
		t.Fatalf("expected flagged with one category, got %+v", res)
	}

	never := analyzer.NewStubModel(analyzer.StubRandom, 101, 42)
	res, err = never.Classify(context.Background(), path)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if res.Classification != analyzer.ClassificationSafe || len(res.Flags) != 0 {
		t.Fatalf("expected safe without flags, got %+v", res)
	}
}

func TestStubMissingFileBecomesPending(t *testing.T) {
	model := analyzer.NewStubModel(analyzer.StubDeterministic, 85, 0)
	a := analyzer.FromModel(model, nil)
	res := a.Analyze(context.Background(), filepath.Join(t.TempDir(), "missing.mkv"))
	if res.Classification != analyzer.ClassificationPending {
		t.Fatalf("classification = %s, want pending", res.Classification)
	}
}
