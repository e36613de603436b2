package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/hrhrng/clash-sub002/pkg/config"
	"github.com/hrhrng/clash-sub002/pkg/engine"
	"github.com/hrhrng/clash-sub002/pkg/errors"
	"github.com/hrhrng/clash-sub002/pkg/geom"
	"github.com/hrhrng/clash-sub002/pkg/persist"
	"github.com/hrhrng/clash-sub002/pkg/pipeline"
)

const overlap = `{"nodes": [
  {"id": "A", "type": "text", "position": {"x": 0, "y": 0}, "width": 100, "height": 100, "zIndex": 1000},
  {"id": "B", "type": "text", "position": {"x": 50, "y": 0}, "width": 100, "height": 100, "zIndex": 1000}
], "edges": []}`

func quiet() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

func newServer(t *testing.T, opts Options) http.Handler {
	t.Helper()
	opts.Logger = quiet()
	runner := pipeline.NewRunner(engine.New(config.DefaultLayout()), nil, nil, quiet())
	return New(runner, opts).Handler()
}

func post(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestMoved(t *testing.T) {
	h := newServer(t, Options{})
	rec := post(t, h, "/v1/moved", `{"document": `+overlap+`, "trigger": "B"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	var resp LayoutResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.PatchSet.Patches) != 1 || resp.PatchSet.Patches[0].ID != "B" {
		t.Fatalf("patches = %+v", resp.PatchSet.Patches)
	}
	if got := *resp.PatchSet.Patches[0].Fields.Position; got != (geom.Point{X: 120, Y: 0}) {
		t.Errorf("B = %v, want (120,0)", got)
	}
	if resp.Document.Nodes[1].Position != (geom.Point{X: 120, Y: 0}) {
		t.Errorf("document not patched: %v", resp.Document.Nodes[1].Position)
	}
	if rec.Header().Get(requestIDHeader) == "" {
		t.Error("missing request id")
	}
}

func TestErrors(t *testing.T) {
	h := newServer(t, Options{MaxBodyBytes: 512})

	tests := []struct {
		name   string
		path   string
		body   string
		status int
		code   errors.Code
	}{
		{"bad json", "/v1/moved", `{"document":`, http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"missing document", "/v1/maintain", `{}`, http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"missing trigger", "/v1/moved", `{"document": ` + overlap + `}`, http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"duplicate ids", "/v1/maintain", `{"document": {"nodes": [{"id": "A"}, {"id": "A"}]}}`, http.StatusBadRequest, errors.ErrCodeInvalidDocument},
		{"too large", "/v1/maintain", `{"document": {"nodes": [], "edges": []}, "scope": "` + strings.Repeat("x", 600) + `"}`, http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"bad format", "/v1/render?format=gif", `{"document": ` + overlap + `}`, http.StatusBadRequest, errors.ErrCodeInvalidFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(t, h, tt.path, tt.body)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.status, rec.Body)
			}
			var resp ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Code != tt.code || resp.Message == "" {
				t.Errorf("error = %+v, want code %s", resp, tt.code)
			}
		})
	}
}

func TestRelayoutCachedAcrossRequests(t *testing.T) {
	h := newServer(t, Options{})
	body := `{"document": ` + overlap + `}`

	// NullCache: nothing is ever cached.
	for range 2 {
		rec := post(t, h, "/v1/relayout", body)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
		}
		var resp LayoutResponse
		_ = json.Unmarshal(rec.Body.Bytes(), &resp)
		if resp.Cached {
			t.Error("null cache reported a hit")
		}
		if resp.PatchSet.Op != string(engine.OpRelayout) {
			t.Errorf("op = %q", resp.PatchSet.Op)
		}
	}
}

func TestRender(t *testing.T) {
	h := newServer(t, Options{})
	rec := post(t, h, "/v1/render?format=dot&labels=true", `{"document": `+overlap+`}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/vnd.graphviz" {
		t.Errorf("Content-Type = %q", ct)
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte(`"A" [label="A\ntext 100x100"`)) {
		t.Errorf("unexpected body:\n%s", rec.Body)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "clashlayout_up 1\n")
	})
	h := newServer(t, Options{Metrics: metrics})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("healthz = %d %s", rec.Code, rec.Body)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "clashlayout_up") {
		t.Errorf("metrics = %d %s", rec.Code, rec.Body)
	}

	rec = httptest.NewRecorder()
	newServer(t, Options{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("metrics without handler = %d, want 404", rec.Code)
	}
}

func TestPersistsPatches(t *testing.T) {
	store := persist.NewMemoryStore()
	b := persist.NewBatcher(store, persist.Options{Debounce: time.Hour})
	h := newServer(t, Options{Batcher: b})

	rec := post(t, h, "/v1/moved", `{"document": `+overlap+`, "trigger": "B"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	if b.Pending() != 1 {
		t.Fatalf("Pending() = %d, want 1", b.Pending())
	}
	if err := b.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	f, ok := store.Fields("B")
	if !ok || *f.Position != (geom.Point{X: 120, Y: 0}) {
		t.Errorf("stored B = %+v", f)
	}
}

func TestRequestIDPassthrough(t *testing.T) {
	h := newServer(t, Options{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get(requestIDHeader); got != "abc-123" {
		t.Errorf("request id = %q, want abc-123", got)
	}
}

func TestListenAndServeShutsDown(t *testing.T) {
	runner := pipeline.NewRunner(engine.New(config.DefaultLayout()), nil, nil, quiet())
	s := New(runner, Options{Logger: quiet()})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx, "127.0.0.1:0") }()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("ListenAndServe() = %v, want nil after shutdown", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
