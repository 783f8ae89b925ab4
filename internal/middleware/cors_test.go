package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCORS(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name       string
		allowed    []string
		origin     string
		method     string
		wantOrigin string
		wantCreds  string
		wantStatus int
	}{
		{"wildcard", []string{"*"}, "http://a.test", http.MethodGet, "http://a.test", "", http.StatusNoContent},
		{"explicit", []string{"http://a.test"}, "http://a.test", http.MethodPost, "http://a.test", "true", http.StatusNoContent},
		{"rejected", []string{"http://a.test"}, "http://b.test", http.MethodGet, "", "", http.StatusNoContent},
		{"preflight", []string{"*"}, "http://a.test", http.MethodOptions, "http://a.test", "", http.StatusOK},
		{"no origin", []string{"*"}, "", http.MethodGet, "", "", http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/voice", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rr := httptest.NewRecorder()
			CORS(tt.allowed)(ok).ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			if got := rr.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("Allow-Origin = %q, want %q", got, tt.wantOrigin)
			}
			if got := rr.Header().Get("Access-Control-Allow-Credentials"); got != tt.wantCreds {
				t.Errorf("Allow-Credentials = %q, want %q", got, tt.wantCreds)
			}
		})
	}
}

func TestAllowedOrigins(t *testing.T) {
	if got := AllowedOrigins(""); len(got) != 1 || got[0] != "*" {
		t.Errorf("AllowedOrigins(\"\") = %v", got)
	}
	if got := AllowedOrigins("https://voice.example.com/"); len(got) != 1 || got[0] != "https://voice.example.com" {
		t.Errorf("AllowedOrigins(url) = %v", got)
	}
}
