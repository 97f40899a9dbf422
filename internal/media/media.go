package media

import (
	"context"
	"time"
)

// Metadata is what probing a file yields. The zero value is the documented
// fallback when probing fails.
type Metadata struct {
	DurationSeconds float64
	Width           int
	Height          int
	VideoCodec      string
	Title           string
}

// IsZero reports whether m is the fallback value.
func (m Metadata) IsZero() bool {
	return m == Metadata{}
}

// MetadataExtractor probes a file for duration, dimensions, and codec.
type MetadataExtractor interface {
	Extract(ctx context.Context, path string) Metadata
}

// ThumbnailRequest identifies the frame to capture.
type ThumbnailRequest struct {
	ItemID     string
	SourcePath string
	MimeType   string
	At         time.Duration
}

// ThumbnailGenerator captures a still image. ok is false when no thumbnail
// is available for the request.
type ThumbnailGenerator interface {
	Generate(ctx context.Context, req ThumbnailRequest) (path string, ok bool)
}

const maxThumbnailOffset = 10 * time.Second

// ThumbnailOffset picks the capture point for a file of the given duration:
// a tenth of the way in, capped at ten seconds.
func ThumbnailOffset(durationSeconds float64) time.Duration {
	if durationSeconds <= 0 {
		return 0
	}
	offset := time.Duration(durationSeconds * float64(time.Second) / 10)
	return min(offset, maxThumbnailOffset)
}
