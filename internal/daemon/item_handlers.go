package daemon

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"mediaflow/internal/api"
	"mediaflow/internal/catalog"
	"mediaflow/internal/ingest"
	"mediaflow/internal/services"
)

const maxIngestBody = 64 << 10

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := s.daemon.Status(r.Context())
	payload := api.DaemonStatus{
		Running:       status.Running,
		PID:           status.PID,
		DatabasePath:  status.DatabasePath,
		LockFilePath:  status.LockFilePath,
		Subscriptions: status.Subscriptions,
		Workflow:      api.FromStatusSummary(status.Workflow),
		Dependencies:  api.FromDependencies(status.Dependencies),
		Preflight:     api.FromPreflight(status.Preflight),
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *apiServer) handleListItems(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := catalog.ListFilter{OwnerID: strings.TrimSpace(query.Get("owner"))}
	for _, raw := range query["status"] {
		for _, part := range strings.Split(raw, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			status, ok := catalog.ParseStatus(part)
			if !ok {
				s.writeError(w, http.StatusBadRequest, "unknown status "+strconv.Quote(part))
				return
			}
			filter.Statuses = append(filter.Statuses, status)
		}
	}
	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		filter.Limit = limit
	}

	items, err := s.items.List(r.Context(), filter)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.ItemListResponse{Items: items})
}

func (s *apiServer) handleGetItem(w http.ResponseWriter, r *http.Request) {
	item, err := s.items.Describe(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.ItemResponse{Item: *item})
}

func (s *apiServer) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	var req api.IngestRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxIngestBody))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		s.writeServiceError(w, r, services.Wrap(services.ErrValidation, "api", "decode ingest request", "", err))
		return
	}
	item, err := s.daemon.Ingest(r.Context(), ingest.Request{Path: req.Path, Owner: req.Owner, Title: req.Title})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/items/"+item.ID)
	s.writeJSON(w, http.StatusCreated, api.ItemResponse{Item: api.FromItem(item)})
}

func (s *apiServer) handleReprocess(w http.ResponseWriter, r *http.Request) {
	item, err := s.daemon.Reprocess(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, api.ItemResponse{Item: api.FromItem(item)})
}
