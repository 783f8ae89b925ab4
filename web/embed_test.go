package web

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestConsoleHandler(t *testing.T) {
	h := ConsoleHandler()

	for _, path := range []string{"/", "/some/client/route", "/missing.js", "/../etc/passwd"} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != http.StatusOK {
			t.Errorf("GET %s status = %d, want 200", path, rr.Code)
			continue
		}
		if !strings.Contains(rr.Body.String(), "/ws/voice") {
			t.Errorf("GET %s did not serve the console page", path)
		}
		if got := rr.Header().Get("Cache-Control"); got != "no-cache" {
			t.Errorf("GET %s Cache-Control = %q, want no-cache", path, got)
		}
	}
}
