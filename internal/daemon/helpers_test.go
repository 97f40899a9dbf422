package daemon

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mediaflow/internal/catalog"
	"mediaflow/internal/config"
	"mediaflow/internal/logging"
	"mediaflow/internal/progress"
	"mediaflow/internal/stages"
	"mediaflow/internal/testsupport"
	"mediaflow/internal/workflow"
)

type fixture struct {
	cfg    *config.Config
	store  *catalog.Store
	hub    *progress.Hub
	daemon *Daemon
	server *httptest.Server
}

// newFixture builds a daemon whose stages run with missing media tools, so
// every item completes through the fallback paths. The HTTP handler is served
// by httptest; the daemon itself is not started.
func newFixture(t *testing.T, cfgOpts []testsupport.ConfigOption, opts ...Option) *fixture {
	t.Helper()
	cfgOpts = append([]testsupport.ConfigOption{testsupport.WithMissingTools()}, cfgOpts...)
	cfg := testsupport.NewConfig(t, cfgOpts...)
	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()
	hub := progress.NewHub(logger)
	mgr := workflow.NewManager(cfg, store, hub, logger)
	mgr.ConfigureStages(stages.Build(cfg, logger))

	d, err := New(cfg, store, hub, mgr, logger, opts...)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	srv := httptest.NewServer(d.api.handler)
	t.Cleanup(func() {
		srv.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		d.Stop(ctx)
	})
	return &fixture{cfg: cfg, store: store, hub: hub, daemon: d, server: srv}
}

func (f *fixture) completedItem(t *testing.T, name string, size int64) *catalog.Item {
	t.Helper()
	item := testsupport.NewItem(t, f.store, f.cfg, name, size)
	return testsupport.MarkCompleted(t, f.store, item)
}

func (f *fixture) do(t *testing.T, method, path string, body io.Reader, header map[string]string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, f.server.URL+path, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := f.server.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (f *fixture) views(t *testing.T, id string) int64 {
	t.Helper()
	item, err := f.store.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	return item.ViewCount
}

func readBody(t *testing.T, resp *http.Response) []byte {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return data
}

func decodeJSON(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("expected JSON response, got %q", ct)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func errorMessage(t *testing.T, resp *http.Response) string {
	t.Helper()
	var payload struct {
		Error string `json:"error"`
	}
	decodeJSON(t, resp, &payload)
	if payload.Error == "" {
		t.Fatal("expected non-empty error envelope")
	}
	return payload.Error
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(msg)
}
