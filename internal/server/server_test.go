package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/matzehuels/dep2j/pkg/cache"
	"github.com/matzehuels/dep2j/pkg/observability"
	"github.com/matzehuels/dep2j/pkg/pipeline"
)

func newTestServer(t *testing.T, maxBody int64) *Server {
	t.Helper()
	logger := log.NewWithOptions(io.Discard, log.Options{})
	c, err := cache.NewMemoryCache(16)
	if err != nil {
		t.Fatal(err)
	}
	return New("127.0.0.1:0", Options{
		Runner:       pipeline.NewRunner(c, nil, logger),
		Logger:       logger,
		MaxBodyBytes: maxBody,
	})
}

func do(t *testing.T, s *Server, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func multipartBody(t *testing.T, files [][2]string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	for _, f := range files {
		w, err := mw.CreateFormFile("file", f[0])
		if err != nil {
			t.Fatal(err)
		}
		if _, err := io.WriteString(w, f[1]); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var got map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("error body is not JSON: %v\n%s", err, rec.Body.String())
	}
	return got
}

func TestConvertRawBody(t *testing.T) {
	s := newTestServer(t, 0)
	req := httptest.NewRequest(http.MethodPost, "/v1/convert?name=main.d",
		strings.NewReader("main.o: main.c file1.h \\\n  file2.h\n"))

	rec := do(t, s, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	want := `[{"target":"main.o","prerequisites":["main.c","file1.h","file2.h"]}]` + "\n"
	if got := rec.Body.String(); got != want {
		t.Errorf("body = %q, want %q", got, want)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	if rec.Header().Get("X-Dep2j-Targets") != "1" {
		t.Errorf("X-Dep2j-Targets = %q", rec.Header().Get("X-Dep2j-Targets"))
	}
}

func TestConvertMultipartKeepsPartOrder(t *testing.T) {
	s := newTestServer(t, 0)
	body, ct := multipartBody(t, [][2]string{
		{"b.d", "b.o: b.c common.h\n"},
		{"a.d", "a.o: a.c\nb.o: b.h common.h\n"},
	}, map[string]string{"comment": "ignored"})

	req := httptest.NewRequest(http.MethodPost, "/v1/convert", body)
	req.Header.Set("Content-Type", ct)

	rec := do(t, s, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	want := `[{"target":"b.o","prerequisites":["b.c","common.h","b.h"]},{"target":"a.o","prerequisites":["a.c"]}]` + "\n"
	if got := rec.Body.String(); got != want {
		t.Errorf("body = %q, want %q", got, want)
	}
}

func TestConvertIndent(t *testing.T) {
	s := newTestServer(t, 0)
	req := httptest.NewRequest(http.MethodPost, "/v1/convert?indent=true", strings.NewReader("a: b"))

	rec := do(t, s, req)
	want := "[\n  {\n    \"target\": \"a\",\n    \"prerequisites\": [\n      \"b\"\n    ]\n  }\n]\n"
	if got := rec.Body.String(); got != want {
		t.Errorf("body =\n%s\nwant\n%s", got, want)
	}
}

func TestConvertDOT(t *testing.T) {
	s := newTestServer(t, 0)
	req := httptest.NewRequest(http.MethodPost, "/v1/convert?format=dot", strings.NewReader("a: b"))

	rec := do(t, s, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !strings.HasPrefix(rec.Body.String(), "digraph deps") {
		t.Errorf("body = %q, want a DOT graph", rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/vnd.graphviz") {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestConvertErrors(t *testing.T) {
	tests := []struct {
		name    string
		target  string
		body    string
		maxBody int64
		status  int
		want    map[string]any
	}{
		{
			name:   "malformed input",
			target: "/v1/convert?name=broken.d",
			body:   "a.o: a.c\nb.o b.c\n",
			status: http.StatusBadRequest,
			want: map[string]any{
				"code":    "MALFORMED_INPUT",
				"message": "missing rule separator ':' after target",
				"source":  "broken.d",
				"line":    float64(2),
				"offset":  float64(9),
			},
		},
		{
			name:   "invalid utf-8",
			target: "/v1/convert",
			body:   "a.o: \xff.h\n",
			status: http.StatusBadRequest,
			want:   map[string]any{"code": "ENCODING_ERROR"},
		},
		{
			name:   "unknown format",
			target: "/v1/convert?format=yaml",
			body:   "a: b",
			status: http.StatusBadRequest,
			want:   map[string]any{"code": "INVALID_INPUT"},
		},
		{
			name:   "bad boolean",
			target: "/v1/convert?indent=maybe",
			body:   "a: b",
			status: http.StatusBadRequest,
			want:   map[string]any{"code": "INVALID_INPUT"},
		},
		{
			name:    "body too large",
			target:  "/v1/convert",
			body:    strings.Repeat("a.o: b.c\n", 10),
			maxBody: 16,
			status:  http.StatusRequestEntityTooLarge,
			want:    map[string]any{"code": "TOO_LARGE"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, tt.maxBody)
			rec := do(t, s, httptest.NewRequest(http.MethodPost, tt.target, strings.NewReader(tt.body)))
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d; body = %s", rec.Code, tt.status, rec.Body.String())
			}
			got := decodeError(t, rec)
			for k := range tt.want {
				if diff := cmp.Diff(tt.want[k], got[k]); diff != "" {
					t.Errorf("%s mismatch (-want +got):\n%s", k, diff)
				}
			}
		})
	}
}

func TestConvertMultipartWithoutFiles(t *testing.T) {
	s := newTestServer(t, 0)
	body, ct := multipartBody(t, nil, map[string]string{"name": "x"})
	req := httptest.NewRequest(http.MethodPost, "/v1/convert", body)
	req.Header.Set("Content-Type", ct)

	rec := do(t, s, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if got := decodeError(t, rec)["code"]; got != "INVALID_INPUT" {
		t.Errorf("code = %v, want INVALID_INPUT", got)
	}
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, 0)
	rec := do(t, s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := decodeError(t, rec)["status"]; got != "ok" {
		t.Errorf("status field = %v", got)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	s := newTestServer(t, 0)
	rec := do(t, s, httptest.NewRequest(http.MethodGet, "/v1/convert", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestRequestID(t *testing.T) {
	s := newTestServer(t, 0)

	rec := do(t, s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if _, err := uuid.Parse(rec.Header().Get(RequestIDHeader)); err != nil {
		t.Errorf("generated request ID %q is not a UUID", rec.Header().Get(RequestIDHeader))
	}

	id := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, id)
	rec = do(t, s, req)
	if got := rec.Header().Get(RequestIDHeader); got != id {
		t.Errorf("request ID = %q, want client's %q", got, id)
	}

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "not a uuid\n")
	rec = do(t, s, req)
	if got := rec.Header().Get(RequestIDHeader); got == "not a uuid\n" {
		t.Error("invalid client request ID was echoed")
	}
}

type recordingHooks struct {
	observability.NoopServerHooks
	mu       sync.Mutex
	requests []string
	statuses []int
}

func (h *recordingHooks) OnRequest(_ context.Context, id, method, path string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.requests = append(h.requests, method+" "+path)
}

func (h *recordingHooks) OnResponse(_ context.Context, id, method, path string, status int, _ time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.statuses = append(h.statuses, status)
}

func TestServerHooks(t *testing.T) {
	hooks := &recordingHooks{}
	observability.SetServerHooks(hooks)
	t.Cleanup(observability.Reset)

	s := newTestServer(t, 0)
	do(t, s, httptest.NewRequest(http.MethodPost, "/v1/convert", strings.NewReader("a: b")))
	do(t, s, httptest.NewRequest(http.MethodPost, "/v1/convert", strings.NewReader(": b")))

	if diff := cmp.Diff([]string{"POST /v1/convert", "POST /v1/convert"}, hooks.requests); diff != "" {
		t.Errorf("requests mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{200, 400}, hooks.statuses); diff != "" {
		t.Errorf("statuses mismatch (-want +got):\n%s", diff)
	}
}

func TestRunShutsDownOnCancel(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("cannot listen: %v", err)
	}
	addr := l.Addr().String()
	l.Close()

	logger := log.NewWithOptions(io.Discard, log.Options{})
	s := New(addr, Options{Logger: logger})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	var resp *http.Response
	for i := 0; i < 50; i++ {
		resp, err = http.Get("http://" + addr + "/healthz")
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		cancel()
		t.Fatalf("server did not come up: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}
