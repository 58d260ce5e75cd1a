package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/custodia-labs/sercha-dispatch/internal/core/domain"
)

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		expected string
	}{
		{
			name:     "valid bearer token",
			header:   "Bearer abc123",
			expected: "abc123",
		},
		{
			name:     "bearer with extra spaces",
			header:   "Bearer   token-with-spaces   ",
			expected: "token-with-spaces",
		},
		{
			name:     "lowercase bearer",
			header:   "bearer token123",
			expected: "token123",
		},
		{
			name:     "empty header",
			header:   "",
			expected: "",
		},
		{
			name:     "no bearer prefix",
			header:   "token123",
			expected: "",
		},
		{
			name:     "basic auth",
			header:   "Basic dXNlcjpwYXNz",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			result := extractBearerToken(req)
			if result != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, result)
			}
		})
	}
}

func TestGetAuthContext(t *testing.T) {
	if GetAuthContext(context.TODO()) != nil {
		t.Error("expected nil for empty context")
	}

	want := &domain.AuthContext{UserID: "user-123", Email: "a@example.com"}
	ctx := context.WithValue(context.Background(), authContextKey, want)
	if got := GetAuthContext(ctx); got != want {
		t.Errorf("expected %v, got %v", want, got)
	}

	ctx = context.WithValue(context.Background(), authContextKey, "not an auth context")
	if GetAuthContext(ctx) != nil {
		t.Error("expected nil for wrong value type")
	}
}

func tokenAuth() *mockAuthService {
	return &mockAuthService{validateTokenFn: func(ctx context.Context, token string) (*domain.AuthContext, error) {
		switch token {
		case "good":
			return &domain.AuthContext{UserID: "user-1"}, nil
		case "old":
			return nil, domain.ErrTokenExpired
		}
		return nil, domain.ErrTokenInvalid
	}}
}

func TestAuthMiddleware_Authenticate(t *testing.T) {
	m := NewAuthMiddleware(tokenAuth())

	var seen string
	h := m.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = userID(r)
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name   string
		header string
		status int
		user   string
	}{
		{"valid", "Bearer good", http.StatusOK, "user-1"},
		{"missing", "", http.StatusUnauthorized, ""},
		{"expired", "Bearer old", http.StatusUnauthorized, ""},
		{"invalid", "Bearer nope", http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest("GET", "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			if rr.Code != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, rr.Code)
			}
			if seen != tt.user {
				t.Errorf("expected user %q, got %q", tt.user, seen)
			}
		})
	}
}

func TestAuthMiddleware_Optional(t *testing.T) {
	m := NewAuthMiddleware(tokenAuth())

	var seen string
	called := false
	h := m.Optional(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		seen = userID(r)
	}))

	req := httptest.NewRequest("GET", "/", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if !called || seen != "" {
		t.Errorf("anonymous request should pass without a user, called=%v user=%q", called, seen)
	}

	called = false
	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer good")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if !called || seen != "user-1" {
		t.Errorf("expected user-1, got %q", seen)
	}

	called = false
	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer nope")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if called {
		t.Error("invalid token should not reach the handler")
	}
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rr.Code)
	}
}

func TestAuthMiddleware_NilService(t *testing.T) {
	m := NewAuthMiddleware(nil)
	h := m.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called")
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer anything")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rr.Code)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	h := NewRecoveryMiddleware(nil).Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(errors.New("secret stack detail"))
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rr.Code)
	}
	if body := rr.Body.String(); body != "{\"error\":\"internal server error\"}\n" {
		t.Errorf("unexpected body %q", body)
	}
}

func TestLoggingMiddleware_KeepsFlusher(t *testing.T) {
	h := NewLoggingMiddleware(nil).Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := w.(http.Flusher); !ok {
			t.Error("wrapped writer lost http.Flusher")
		}
		w.WriteHeader(http.StatusTeapot)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))
	if rr.Code != http.StatusTeapot {
		t.Errorf("expected 418, got %d", rr.Code)
	}
}

func TestCORSMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("preflight", func(t *testing.T) {
		h := NewCORSMiddleware(nil).Handler(next)
		req := httptest.NewRequest(http.MethodOptions, "/api/v1/chat", nil)
		req.Header.Set("Origin", "https://app.example.com")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)

		if rr.Code != http.StatusNoContent {
			t.Errorf("expected 204, got %d", rr.Code)
		}
		if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "*" {
			t.Errorf("expected *, got %q", got)
		}
	})

	t.Run("restricted origins", func(t *testing.T) {
		h := NewCORSMiddleware([]string{"https://app.example.com"}).Handler(next)

		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Origin", "https://app.example.com")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
			t.Errorf("expected echoed origin, got %q", got)
		}

		req = httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		rr = httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "" {
			t.Errorf("expected no CORS header, got %q", got)
		}
	})
}
