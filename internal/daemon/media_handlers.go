package daemon

import (
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"mediaflow/internal/api"
	"mediaflow/internal/catalog"
	"mediaflow/internal/logging"
	"mediaflow/internal/metrics"
	"mediaflow/internal/services"
	"mediaflow/internal/streaming"
)

// errNotReady is returned for media requested before processing completed.
var errNotReady = fmt.Errorf("media is not ready: %w", services.ErrConflict)

// loadAuthorized fetches the item named in the route and applies the
// Authorizer. On failure the response has been written and ok is false.
func (s *apiServer) loadAuthorized(w http.ResponseWriter, r *http.Request) (*catalog.Item, bool) {
	item, err := s.daemon.store.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return nil, false
	}
	if err := s.daemon.authorize(r, item); err != nil {
		s.writeError(w, http.StatusForbidden, "forbidden")
		return nil, false
	}
	return item, true
}

func (s *apiServer) handleMedia(w http.ResponseWriter, r *http.Request) {
	item, ok := s.loadAuthorized(w, r)
	if !ok {
		return
	}
	if item.Status != catalog.StatusCompleted {
		s.writeServiceError(w, r, errNotReady)
		return
	}

	f, err := os.Open(item.FilePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.writeError(w, http.StatusNotFound, "media file missing")
			return
		}
		s.writeServiceError(w, r, err)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	size := info.Size()

	header := r.Header.Get("Range")
	var rng *streaming.Range
	if header != "" {
		parsed, err := streaming.ParseRange(header, size)
		if err != nil {
			streaming.Reject(w, size)
			return
		}
		rng = &parsed
	}

	logger := logging.WithContext(r.Context(), s.logger).With(logging.String(logging.FieldItemID, item.ID))
	if r.Method == http.MethodGet && streaming.StartsPlayback(header) {
		count, err := s.daemon.store.IncrementViews(r.Context(), item.ID)
		if err != nil {
			logger.Warn("view count not recorded",
				logging.Error(err),
				logging.String(logging.FieldEventType, "view_count_failed"),
				logging.String(logging.FieldErrorHint, "check catalog database health"),
			)
		} else {
			metrics.MediaViews.Inc()
			logger.Debug("playback started", logging.Int64("view_count", count))
		}
	}

	if err := streaming.Write(w, r, f, size, item.MimeType, rng); err != nil {
		logger.Debug("media stream interrupted", logging.Error(err))
	}
}

func (s *apiServer) handleThumbnail(w http.ResponseWriter, r *http.Request) {
	item, ok := s.loadAuthorized(w, r)
	if !ok {
		return
	}
	if item.ThumbnailPath == "" {
		s.writeError(w, http.StatusNotFound, "thumbnail unavailable")
		return
	}
	f, err := os.Open(item.ThumbnailPath)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "thumbnail unavailable")
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil || !info.Mode().IsRegular() {
		s.writeError(w, http.StatusNotFound, "thumbnail unavailable")
		return
	}
	w.Header().Set("Cache-Control", "private, max-age=300")
	_ = streaming.Write(w, r, f, info.Size(), "image/jpeg", nil)
}

func (s *apiServer) handleInfo(w http.ResponseWriter, r *http.Request) {
	item, ok := s.loadAuthorized(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, api.InfoFromItem(item))
}
