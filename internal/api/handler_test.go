//nolint:revive // "api" package name is intentionally concise for this layer.
package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ashureev/shsh-voice/internal/domain"
	"github.com/ashureev/shsh-voice/internal/engine"
	"github.com/ashureev/shsh-voice/internal/patterns"
	"github.com/ashureev/shsh-voice/internal/store"
	"github.com/ashureev/shsh-voice/internal/voice"
	"github.com/go-chi/chi/v5"
	"github.com/google/go-cmp/cmp"
)

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()
	data := map[string]string{"foo": "bar"}

	JSON(w, http.StatusOK, data)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	var got map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if got["foo"] != "bar" {
		t.Errorf("Expected foo=bar, got %v", got["foo"])
	}
}

type testServer struct {
	router  chi.Router
	table   *patterns.Table
	session *voice.Session
	work    string
	store   string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir := t.TempDir()
	storePath := filepath.Join(dir, "commands.json")

	table := patterns.NewTable(store.NewFile(storePath, store.FormatJSON), logger)
	if err := table.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	work := filepath.Join(dir, "work")
	if err := os.MkdirAll(filepath.Join(work, "docs"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(work, "notes.txt"), []byte("hi"), 0644); err != nil {
		t.Fatal(err)
	}

	eng := engine.New(domain.NewSessionState(work), engine.NewShellRunner(4096), engine.WithLogger(logger))
	session := voice.NewSession(patterns.NewResolver(table, logger), eng, nil, logger)

	base := NewHandler(session, table)
	r := chi.NewRouter()
	NewHealthHandler(table).RegisterHealth(r)
	NewVoiceHandler(base, ServerInfo{PatternStore: storePath, HostRunner: "shell"}).RegisterRoutes(r)
	NewPatternHandler(base).RegisterRoutes(r)

	return &testServer{router: r, table: table, session: session, work: work, store: storePath}
}

func (s *testServer) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rr := s.do(t, http.MethodGet, "/health", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	body := decode[map[string]interface{}](t, rr)
	if body["status"] != "healthy" {
		t.Errorf("status = %v", body["status"])
	}
}

func TestVoiceListThenNavigate(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(t, http.MethodPost, "/api/voice", `{"text":"list files"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body)
	}
	listed := decode[voice.Outcome](t, rr)
	want := "Directories (can use 'move to X'):\n1. docs\n\nFiles (can use 'delete file number X'):\n1. notes.txt"
	if diff := cmp.Diff(want, listed.Result); diff != "" {
		t.Errorf("listing mismatch (-want +got):\n%s", diff)
	}

	rr = s.do(t, http.MethodPost, "/api/voice", `{"text":"Move to One"}`)
	moved := decode[voice.Outcome](t, rr)
	if moved.Result != "Changed directory to: docs" {
		t.Errorf("Result = %q", moved.Result)
	}
	if moved.WorkDir != filepath.Join(s.work, "docs") {
		t.Errorf("WorkDir = %q", moved.WorkDir)
	}
}

func TestVoiceRejectsEmptyText(t *testing.T) {
	s := newTestServer(t)
	tests := []struct {
		name string
		body string
	}{
		{"empty body", ""},
		{"blank text", `{"text":"   "}`},
		{"unknown field", `{"txt":"list files"}`},
		{"not json", `list files`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rr := s.do(t, http.MethodPost, "/api/voice", tt.body); rr.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rr.Code)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		text string
		want resolveResponse
	}{
		{"create folder reports", resolveResponse{Text: "create folder reports", Matched: true, Command: "mkdir reports"}},
		{"move to 5", resolveResponse{Text: "move to 5", Matched: true, Command: "cd_index 4"}},
		{"back", resolveResponse{Text: "back", Matched: true, Command: "cd .."}},
		{"dance", resolveResponse{Text: "dance", Error: "No mapping found for: 'dance'"}},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			body, _ := json.Marshal(textRequest{Text: tt.text})
			rr := s.do(t, http.MethodPost, "/api/resolve", string(body))
			if rr.Code != http.StatusOK {
				t.Fatalf("status = %d", rr.Code)
			}
			if diff := cmp.Diff(tt.want, decode[resolveResponse](t, rr)); diff != "" {
				t.Errorf("resolve mismatch (-want +got):\n%s", diff)
			}
		})
	}

	if got := s.session.Engine().History(); len(got) != 0 {
		t.Errorf("resolve must not execute, history = %v", got)
	}
}

func TestExecuteAndHistory(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(t, http.MethodPost, "/api/execute", `{"command":"cd docs"}`)
	out := decode[voice.Outcome](t, rr)
	if out.Result != "Changed directory to: "+filepath.Join(s.work, "docs") {
		t.Errorf("Result = %q", out.Result)
	}
	s.do(t, http.MethodPost, "/api/execute", `{"command":"cd .."}`)
	s.do(t, http.MethodPost, "/api/execute", `{"command":"cd ."}`)

	rr = s.do(t, http.MethodGet, "/api/history?limit=2", "")
	hist := decode[historyResponse](t, rr)
	if diff := cmp.Diff([]string{"cd ..", "cd ."}, hist.History); diff != "" {
		t.Errorf("history mismatch (-want +got):\n%s", diff)
	}
	if hist.WorkDir != s.work {
		t.Errorf("WorkDir = %q, want %q", hist.WorkDir, s.work)
	}
	if rr := s.do(t, http.MethodGet, "/api/history?limit=-1", ""); rr.Code != http.StatusBadRequest {
		t.Errorf("negative limit status = %d, want 400", rr.Code)
	}
}

func TestPatternsCRUD(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(t, http.MethodGet, "/api/patterns", "")
	listed := decode[[]domain.PatternEntry](t, rr)
	if diff := cmp.Diff(domain.DefaultPatterns(), listed); diff != "" {
		t.Fatalf("default patterns mismatch (-want +got):\n%s", diff)
	}

	rr = s.do(t, http.MethodPost, "/api/patterns", `{"pattern":"remove file (.*)","template":"delete_file_index"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("add status = %d, body = %s", rr.Code, rr.Body)
	}
	rr = s.do(t, http.MethodPost, "/api/patterns", `{"pattern":"back","template":"cd .."}`)
	if rr.Code != http.StatusOK {
		t.Errorf("overwrite status = %d, want 200", rr.Code)
	}
	rr = s.do(t, http.MethodPost, "/api/patterns", `{"pattern":"(a)(b)","template":"echo"}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("two-group pattern status = %d, want 400", rr.Code)
	}

	if _, ok := s.table.Lookup("remove file (.*)"); !ok {
		t.Error("added pattern missing from table")
	}

	target := "/api/patterns?pattern=" + url.QueryEscape("remove file (.*)")
	if rr := s.do(t, http.MethodDelete, target, ""); rr.Code != http.StatusOK {
		t.Errorf("delete status = %d", rr.Code)
	}
	if rr := s.do(t, http.MethodDelete, target, ""); rr.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rr.Code)
	}
}

func TestAddPatternPersistFailureIs500(t *testing.T) {
	s := newTestServer(t)

	// A directory in place of the table file makes every save fail.
	if err := os.Remove(s.store); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(s.store, 0755); err != nil {
		t.Fatal(err)
	}

	rr := s.do(t, http.MethodPost, "/api/patterns", `{"pattern":"show date","template":"date"}`)
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("add status = %d, want 500, body = %s", rr.Code, rr.Body)
	}
	rr = s.do(t, http.MethodPost, "/api/patterns", `{"pattern":"(a)(b)","template":"echo"}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("invalid pattern status = %d, want 400", rr.Code)
	}
	if _, ok := s.table.Lookup("show date"); ok {
		t.Error("pattern became visible although it was never persisted")
	}
}
