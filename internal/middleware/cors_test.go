package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func allowOnly(origin string) func(string) bool {
	return func(o string) bool { return o == origin }
}

func TestCORS_AllowedOrigin(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})
	h := CORS(allowOnly("https://chat.example"), next)

	req := httptest.NewRequest("GET", "/profile", nil)
	req.Header.Set("Origin", "https://chat.example")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if !called {
		t.Error("Expected handler to be called")
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://chat.example" {
		t.Errorf("Expected origin echoed, got '%s'", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Errorf("Expected credentials allowed, got '%s'", got)
	}
}

func TestCORS_UnknownOrigin(t *testing.T) {
	h := CORS(allowOnly("https://chat.example"), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest("GET", "/profile", nil)
	req.Header.Set("Origin", "https://evil.example")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Expected no CORS header, got '%s'", got)
	}
}

func TestCORS_Preflight(t *testing.T) {
	called := false
	h := CORS(allowOnly("https://chat.example"), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	tests := []struct {
		origin string
		status int
	}{
		{"https://chat.example", http.StatusNoContent},
		{"https://evil.example", http.StatusForbidden},
	}

	for _, tc := range tests {
		req := httptest.NewRequest("OPTIONS", "/login", nil)
		req.Header.Set("Origin", tc.origin)
		req.Header.Set("Access-Control-Request-Method", "POST")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		if w.Code != tc.status {
			t.Errorf("Preflight from %s: expected %d, got %d", tc.origin, tc.status, w.Code)
		}
	}
	if called {
		t.Error("Expected preflight to be answered by the middleware")
	}
}
