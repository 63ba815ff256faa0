package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAPIKeyAuth(t *testing.T) {
	tests := []struct {
		name      string
		target    string
		header    map[string]string
		wantCode  int
		wantError string
	}{
		{
			name:     "event source stream with api_key",
			target:   "/api/v1/downloads/stream?url=https%3A%2F%2Fyoutu.be%2Fx&format_id=137&api_key=secret",
			wantCode: http.StatusOK,
		},
		{
			name:     "event stream with key",
			target:   "/api/v1/events/stream?key=secret",
			wantCode: http.StatusOK,
		},
		{
			name:     "file link with api_key",
			target:   "/api/v1/downloads/tok-1?api_key=secret",
			wantCode: http.StatusOK,
		},
		{
			name:     "fetch with header",
			target:   "/api/v1/formats",
			header:   map[string]string{"X-API-Key": "secret"},
			wantCode: http.StatusOK,
		},
		{
			name:     "bearer token",
			target:   "/api/v1/stats",
			header:   map[string]string{"Authorization": "Bearer secret"},
			wantCode: http.StatusOK,
		},
		{
			name:      "empty bearer falls through to query",
			target:    "/api/v1/stats?api_key=wrong",
			header:    map[string]string{"Authorization": "Bearer "},
			wantCode:  http.StatusUnauthorized,
			wantError: "invalid API key",
		},
		{
			name:      "stream without key",
			target:    "/api/v1/downloads/stream?url=x&format_id=137",
			wantCode:  http.StatusUnauthorized,
			wantError: "missing API key",
		},
		{
			name:      "stored key is stale",
			target:    "/api/v1/downloads/stream?url=x&format_id=137&api_key=old",
			wantCode:  http.StatusUnauthorized,
			wantError: "invalid API key",
		},
		{
			name:      "header wins over query",
			target:    "/api/v1/stats?api_key=secret",
			header:    map[string]string{"X-API-Key": "wrong"},
			wantCode:  http.StatusUnauthorized,
			wantError: "invalid API key",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			APIKeyAuth("secret")(okHandler()).ServeHTTP(w, req)

			if w.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantCode)
			}
			if tt.wantError == "" {
				return
			}

			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q, want application/json", ct)
			}
			var body struct {
				Error string `json:"error"`
			}
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode body: %v", err)
			}
			if body.Error != tt.wantError {
				t.Errorf("error = %q, want %q", body.Error, tt.wantError)
			}
		})
	}
}

func TestWriteJSONError_Escapes(t *testing.T) {
	w := httptest.NewRecorder()
	writeJSONError(w, http.StatusTooManyRequests, `quote " and \ slash`)

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("body is not valid JSON: %v", err)
	}
	if body["error"] != `quote " and \ slash` {
		t.Errorf("error = %q", body["error"])
	}
}

func TestCORS(t *testing.T) {
	tests := []struct {
		method     string
		wantCode   int
		wantCalled bool
	}{
		{http.MethodOptions, http.StatusNoContent, false},
		{http.MethodGet, http.StatusOK, true},
		{http.MethodPost, http.StatusOK, true},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			called := false
			h := CORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
			}))

			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(tt.method, "/api/v1/formats", nil))

			if w.Code != tt.wantCode || called != tt.wantCalled {
				t.Errorf("status = %d called = %v, want %d %v", w.Code, called, tt.wantCode, tt.wantCalled)
			}
			if got := w.Header().Get("Access-Control-Allow-Methods"); got != "GET, POST, OPTIONS" {
				t.Errorf("Allow-Methods = %q, want GET, POST, OPTIONS", got)
			}
			if got := w.Header().Get("Access-Control-Expose-Headers"); got != "Content-Disposition" {
				t.Errorf("Expose-Headers = %q, want Content-Disposition", got)
			}
			if got := w.Header().Get("Access-Control-Allow-Headers"); got != "Content-Type, X-API-Key, Authorization" {
				t.Errorf("Allow-Headers = %q", got)
			}
		})
	}
}
