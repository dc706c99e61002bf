package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func authProbe(apiKey string, configure func(*http.Request)) int {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	req := httptest.NewRequest(http.MethodPost, "/webhook", nil)
	if configure != nil {
		configure(req)
	}
	rec := httptest.NewRecorder()
	Auth(apiKey)(next).ServeHTTP(rec, req)
	return rec.Code
}

func TestAuth(t *testing.T) {
	tests := []struct {
		name      string
		apiKey    string
		configure func(*http.Request)
		want      int
	}{
		{"disabled when no key configured", "", nil, http.StatusNoContent},
		{"missing token", "secret", nil, http.StatusUnauthorized},
		{
			"valid bearer token", "secret",
			func(r *http.Request) { r.Header.Set("Authorization", "Bearer secret") },
			http.StatusNoContent,
		},
		{
			"valid api key header", "secret",
			func(r *http.Request) { r.Header.Set("X-API-Key", "secret") },
			http.StatusNoContent,
		},
		{
			"wrong token", "secret",
			func(r *http.Request) { r.Header.Set("X-API-Key", "nope") },
			http.StatusUnauthorized,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := authProbe(tt.apiKey, tt.configure); got != tt.want {
				t.Errorf("status = %d, want %d", got, tt.want)
			}
		})
	}
}
