package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"
	"github.com/gabriel-vasile/mimetype"

	"mediaflow/internal/catalog"
	"mediaflow/internal/logging"
	"mediaflow/internal/services"
)

// Store is the catalog surface ingest writes to.
type Store interface {
	Create(ctx context.Context, in catalog.NewItem) (*catalog.Item, error)
}

// Enqueuer announces and schedules a freshly created item.
type Enqueuer interface {
	Enqueue(item *catalog.Item)
}

// Request describes a file to bring into the catalog. Owner falls back to the
// service default; Title falls back to embedded tags and then the file name.
type Request struct {
	Path  string
	Owner string
	Title string
}

// Service validates files and registers them for processing.
type Service struct {
	store        Store
	queue        Enqueuer
	defaultOwner string
	logger       *slog.Logger
}

// NewService constructs an ingest service.
func NewService(store Store, queue Enqueuer, defaultOwner string, logger *slog.Logger) *Service {
	return &Service{
		store:        store,
		queue:        queue,
		defaultOwner: strings.TrimSpace(defaultOwner),
		logger:       logging.NewComponentLogger(logger, "ingest"),
	}
}

// Ingest records the file in the catalog as pending/queued and submits it.
func (s *Service) Ingest(ctx context.Context, req Request) (*catalog.Item, error) {
	trimmed := strings.TrimSpace(req.Path)
	if trimmed == "" {
		return nil, services.Wrap(services.ErrValidation, "ingest", "resolve path", "source path is required", nil)
	}
	absPath, err := filepath.Abs(trimmed)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "ingest", "resolve path", trimmed, err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "ingest", "stat source", absPath, err)
	}
	if !info.Mode().IsRegular() {
		return nil, services.Wrap(services.ErrValidation, "ingest", "stat source", fmt.Sprintf("%s is not a regular file", absPath), nil)
	}
	if info.Size() == 0 {
		return nil, services.Wrap(services.ErrValidation, "ingest", "stat source", fmt.Sprintf("%s is empty", absPath), nil)
	}

	mimeType, err := DetectMediaType(absPath)
	if err != nil {
		return nil, err
	}

	owner := strings.TrimSpace(req.Owner)
	if owner == "" {
		owner = s.defaultOwner
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = deriveTitle(absPath, mimeType)
	}

	item, err := s.store.Create(ctx, catalog.NewItem{
		OwnerID:   owner,
		Title:     title,
		FilePath:  absPath,
		MimeType:  mimeType,
		SizeBytes: info.Size(),
	})
	if err != nil {
		return nil, err
	}

	logging.WithContext(ctx, s.logger).Info("media item ingested",
		logging.String(logging.FieldItemID, item.ID),
		logging.String(logging.FieldOwnerID, owner),
		logging.String("path", absPath),
		logging.String("mime_type", mimeType),
		logging.Int64("size_bytes", info.Size()),
		logging.String(logging.FieldEventType, "item_ingested"),
	)
	if s.queue != nil {
		s.queue.Enqueue(item)
	}
	return item, nil
}

// DetectMediaType sniffs path and returns its MIME type without parameters.
// Anything outside audio, video and image is rejected as a validation error.
func DetectMediaType(path string) (string, error) {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "ingest", "detect type", path, err)
	}
	base := mt.String()
	if idx := strings.IndexByte(base, ';'); idx >= 0 {
		base = strings.TrimSpace(base[:idx])
	}
	if !IsMediaType(base) {
		return "", services.Wrap(services.ErrValidation, "ingest", "detect type", fmt.Sprintf("unsupported media type %q", base), nil)
	}
	return base, nil
}

// IsMediaType reports whether mimeType is an audio, video or image type.
func IsMediaType(mimeType string) bool {
	major, _, ok := strings.Cut(mimeType, "/")
	if !ok {
		return false
	}
	switch major {
	case "audio", "video", "image":
		return true
	}
	return false
}

// deriveTitle prefers an embedded tag title for audio and falls back to the
// file name without its extension.
func deriveTitle(path, mimeType string) string {
	if strings.HasPrefix(mimeType, "audio/") || mimeType == "video/mp4" {
		if title := tagTitle(path); title != "" {
			return title
		}
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func tagTitle(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()
	meta, err := tag.ReadFrom(f)
	if err != nil || meta == nil {
		return ""
	}
	return strings.TrimSpace(meta.Title())
}
