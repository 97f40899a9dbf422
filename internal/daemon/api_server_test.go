package daemon

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mediaflow/internal/api"
	"mediaflow/internal/catalog"
	"mediaflow/internal/testsupport"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

func writePNG(t *testing.T, dir, name string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, append(pngHeader, make([]byte, 256)...), 0o644); err != nil {
		t.Fatalf("write png: %v", err)
	}
	return path
}

func TestAuthTokenRequired(t *testing.T) {
	f := newFixture(t, []testsupport.ConfigOption{testsupport.WithAPIToken("s3cret")})
	item := f.completedItem(t, "clip.mp4", 64)

	resp := f.do(t, http.MethodGet, "/api/items", nil, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("missing token status = %d", resp.StatusCode)
	}
	if msg := errorMessage(t, resp); msg != "unauthorized" {
		t.Fatalf("error = %q", msg)
	}

	resp = f.do(t, http.MethodGet, "/api/items", nil, map[string]string{"Authorization": "Bearer wrong"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("wrong token status = %d", resp.StatusCode)
	}

	resp = f.do(t, http.MethodGet, "/api/items", nil, map[string]string{"Authorization": "Bearer s3cret"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("bearer status = %d", resp.StatusCode)
	}

	resp = f.do(t, http.MethodGet, "/media/"+item.ID+"?access_token=s3cret", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("query token status = %d", resp.StatusCode)
	}

	resp = f.do(t, http.MethodGet, "/metrics", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics should be exempt, status = %d", resp.StatusCode)
	}
	if body := string(readBody(t, resp)); !strings.Contains(body, "mediaflow_") {
		t.Fatalf("metrics output missing mediaflow collectors")
	}
}

func TestUnknownRouteUsesErrorEnvelope(t *testing.T) {
	f := newFixture(t, nil)

	resp := f.do(t, http.MethodGet, "/api/nope", nil, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	errorMessage(t, resp)

	resp = f.do(t, http.MethodDelete, "/api/items", nil, nil)
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	errorMessage(t, resp)
}

func TestRequestIDEchoed(t *testing.T) {
	f := newFixture(t, nil)

	resp := f.do(t, http.MethodGet, "/api/items", nil, map[string]string{"X-Request-ID": "req-42"})
	if got := resp.Header.Get("X-Request-ID"); got != "req-42" {
		t.Fatalf("X-Request-ID = %q", got)
	}
	resp = f.do(t, http.MethodGet, "/api/items", nil, nil)
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatal("expected generated request id")
	}
}

func TestIngestProcessesToCompletion(t *testing.T) {
	f := newFixture(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := f.daemon.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	path := writePNG(t, filepath.Join(testsupport.BaseDir(f.cfg), "uploads"), "holiday.png")
	body := `{"path":"` + path + `","owner":"user-9","title":"Holiday"}`
	resp := f.do(t, http.MethodPost, "/api/items", strings.NewReader(body), map[string]string{"Content-Type": "application/json"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var created api.ItemResponse
	decodeJSON(t, resp, &created)
	if created.Item.ID == "" || created.Item.OwnerID != "user-9" || created.Item.MimeType != "image/png" {
		t.Fatalf("unexpected item %+v", created.Item)
	}
	if got := resp.Header.Get("Location"); got != "/api/items/"+created.Item.ID {
		t.Fatalf("Location = %q", got)
	}

	waitFor(t, 10*time.Second, func() bool {
		item, err := f.store.GetByID(context.Background(), created.Item.ID)
		return err == nil && item.Status == catalog.StatusCompleted
	}, "ingested item never completed")

	resp = f.do(t, http.MethodGet, "/api/items/"+created.Item.ID, nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d", resp.StatusCode)
	}
	var fetched api.ItemResponse
	decodeJSON(t, resp, &fetched)
	if fetched.Item.Progress != 100 || fetched.Item.Stage != string(catalog.StageDone) || fetched.Item.Sensitivity == nil {
		t.Fatalf("unexpected completed item %+v", fetched.Item)
	}

	resp = f.do(t, http.MethodPost, "/api/items/"+created.Item.ID+"/reprocess", nil, nil)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("reprocess status = %d", resp.StatusCode)
	}
	var reset api.ItemResponse
	decodeJSON(t, resp, &reset)
	if reset.Item.Status != string(catalog.StatusPending) || reset.Item.Progress != 0 {
		t.Fatalf("reprocess should reset the item, got %+v", reset.Item)
	}
	waitFor(t, 10*time.Second, func() bool {
		item, err := f.store.GetByID(context.Background(), created.Item.ID)
		return err == nil && item.Status == catalog.StatusCompleted
	}, "reprocessed item never completed")
}

func TestIngestRejectsBadRequests(t *testing.T) {
	f := newFixture(t, nil)
	textFile := filepath.Join(testsupport.BaseDir(f.cfg), "notes.txt")
	if err := os.WriteFile(textFile, []byte("plain text notes\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cases := map[string]string{
		"malformed":     `{"path":`,
		"unknown field": `{"path":"/x","colour":"red"}`,
		"missing path":  `{"owner":"user-1"}`,
		"absent file":   `{"path":"/definitely/not/here.mp4"}`,
		"not media":     `{"path":"` + textFile + `"}`,
	}
	for name, body := range cases {
		resp := f.do(t, http.MethodPost, "/api/items", strings.NewReader(body), nil)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s: status = %d", name, resp.StatusCode)
		}
		errorMessage(t, resp)
	}

	summary, err := f.store.Summarize(context.Background())
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if summary.Total != 0 {
		t.Fatalf("rejected requests created %d items", summary.Total)
	}
}

func TestReprocessConflictsAndMissing(t *testing.T) {
	f := newFixture(t, nil)
	pending := testsupport.NewItem(t, f.store, f.cfg, "pending.mp4", 10)

	resp := f.do(t, http.MethodPost, "/api/items/"+pending.ID+"/reprocess", nil, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("pending reprocess status = %d", resp.StatusCode)
	}
	errorMessage(t, resp)

	resp = f.do(t, http.MethodPost, "/api/items/unknown/reprocess", nil, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown reprocess status = %d", resp.StatusCode)
	}

	resp = f.do(t, http.MethodGet, "/api/items/unknown", nil, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown get status = %d", resp.StatusCode)
	}
}

func TestListItemsFilters(t *testing.T) {
	f := newFixture(t, nil)
	f.completedItem(t, "a.mp4", 10)
	f.completedItem(t, "b.mp4", 10)
	testsupport.NewItem(t, f.store, f.cfg, "c.mp4", 10)

	list := func(query string) api.ItemListResponse {
		t.Helper()
		resp := f.do(t, http.MethodGet, "/api/items"+query, nil, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s: status = %d", query, resp.StatusCode)
		}
		var out api.ItemListResponse
		decodeJSON(t, resp, &out)
		return out
	}

	if got := len(list("").Items); got != 3 {
		t.Fatalf("all items = %d", got)
	}
	if got := len(list("?status=completed").Items); got != 2 {
		t.Fatalf("completed items = %d", got)
	}
	if got := len(list("?status=pending,completed&limit=1").Items); got != 1 {
		t.Fatalf("limited items = %d", got)
	}
	if got := len(list("?owner=someone-else").Items); got != 0 {
		t.Fatalf("foreign owner items = %d", got)
	}

	for _, query := range []string{"?status=bogus", "?limit=-1", "?limit=abc"} {
		resp := f.do(t, http.MethodGet, "/api/items"+query, nil, nil)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s: status = %d", query, resp.StatusCode)
		}
	}
}

func TestStatusEndpoint(t *testing.T) {
	f := newFixture(t, nil)
	f.completedItem(t, "a.mp4", 10)
	testsupport.NewItem(t, f.store, f.cfg, "b.mp4", 10)

	resp := f.do(t, http.MethodGet, "/api/status", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var status api.DaemonStatus
	decodeJSON(t, resp, &status)
	if status.Running {
		t.Fatal("daemon was never started")
	}
	if status.PID != os.Getpid() {
		t.Fatalf("pid = %d", status.PID)
	}
	if status.DatabasePath != f.store.Path() || status.LockFilePath != f.cfg.LockPath() {
		t.Fatalf("unexpected paths %+v", status)
	}
	if status.Workflow.ItemCounts["total"] != 2 || status.Workflow.ItemCounts["completed"] != 1 || status.Workflow.ItemCounts["pending"] != 1 {
		t.Fatalf("unexpected counts %v", status.Workflow.ItemCounts)
	}
	if status.Workflow.Scheduler.Workers != f.cfg.Workflow.Workers {
		t.Fatalf("workers = %d", status.Workflow.Scheduler.Workers)
	}
	if len(status.Workflow.StageHealth) == 0 {
		t.Fatal("expected stage health entries")
	}
	missing := 0
	for _, dep := range status.Dependencies {
		if !dep.Available {
			missing++
		}
	}
	if missing == 0 {
		t.Fatalf("expected missing media tools to be reported, got %+v", status.Dependencies)
	}
}
