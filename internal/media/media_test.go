package media_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"mediaflow/internal/media"
)

func writeScript(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func TestProbeExtractorParsesOutput(t *testing.T) {
	script := writeScript(t, "ffprobe", `echo '{"streams":[{"codec_type":"video","codec_name":"vp9","width":1280,"height":720}],"format":{"duration":"20.0"}}'`)
	extractor := media.NewProbeExtractor(script, time.Second, nil)

	meta := extractor.Extract(context.Background(), "/media/a.webm")
	if meta.DurationSeconds != 20 || meta.Width != 1280 || meta.Height != 720 || meta.VideoCodec != "vp9" {
		t.Fatalf("unexpected metadata %+v", meta)
	}
}

func TestProbeExtractorFallsBackOnFailure(t *testing.T) {
	cases := map[string]string{
		"non-zero exit": writeScript(t, "ffprobe", "exit 1"),
		"garbage":       writeScript(t, "ffprobe", "echo not-json"),
		"timeout":       writeScript(t, "ffprobe", "sleep 5"),
		"missing":       filepath.Join(t.TempDir(), "absent"),
	}
	for name, binary := range cases {
		extractor := media.NewProbeExtractor(binary, 200*time.Millisecond, nil)
		if meta := extractor.Extract(context.Background(), "/media/a.mp4"); !meta.IsZero() {
			t.Fatalf("%s: expected zero metadata, got %+v", name, meta)
		}
	}
}

func TestFrameGrabberWritesThumbnail(t *testing.T) {
	// The last argument is the output path.
	script := writeScript(t, "ffmpeg", `for last; do :; done; printf 'jpeg' > "$last"`)
	outDir := filepath.Join(t.TempDir(), "thumbs")
	grabber := media.NewFrameGrabber(script, outDir, 320, time.Second, nil)

	path, ok := grabber.Generate(context.Background(), media.ThumbnailRequest{
		ItemID: "item-1", SourcePath: "/media/a.mp4", MimeType: "video/mp4", At: 2 * time.Second,
	})
	if !ok {
		t.Fatal("expected thumbnail to be generated")
	}
	if path != filepath.Join(outDir, "item-1.jpg") {
		t.Fatalf("unexpected path %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "jpeg" {
		t.Fatalf("unexpected thumbnail content %q: %v", data, err)
	}
}

func TestFrameGrabberUnavailable(t *testing.T) {
	outDir := t.TempDir()
	failing := media.NewFrameGrabber(writeScript(t, "ffmpeg", "exit 1"), outDir, 320, time.Second, nil)
	if _, ok := failing.Generate(context.Background(), media.ThumbnailRequest{ItemID: "x", SourcePath: "/a.mp4", MimeType: "video/mp4"}); ok {
		t.Fatal("expected unavailable thumbnail on ffmpeg failure")
	}

	silent := media.NewFrameGrabber(writeScript(t, "ffmpeg", "exit 0"), outDir, 320, time.Second, nil)
	if _, ok := silent.Generate(context.Background(), media.ThumbnailRequest{ItemID: "y", SourcePath: "/a.mp4", MimeType: "video/mp4"}); ok {
		t.Fatal("expected unavailable thumbnail when no frame is written")
	}

	if _, ok := failing.Generate(context.Background(), media.ThumbnailRequest{ItemID: "z", SourcePath: "/a.mp3", MimeType: "audio/mpeg"}); ok {
		t.Fatal("expected audio to have no thumbnail")
	}
}

func TestThumbnailOffset(t *testing.T) {
	cases := []struct {
		duration float64
		want     time.Duration
	}{
		{0, 0},
		{-3, 0},
		{20, 2 * time.Second},
		{3600, 10 * time.Second},
	}
	for _, tc := range cases {
		if got := media.ThumbnailOffset(tc.duration); got != tc.want {
			t.Fatalf("ThumbnailOffset(%v) = %v, want %v", tc.duration, got, tc.want)
		}
	}
}
