package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/custodia-labs/sercha-dispatch/internal/core/domain"
)

func claimsFor(userID string, ttl time.Duration) *domain.TokenClaims {
	now := time.Now()
	return &domain.TokenClaims{
		UserID:    userID,
		Email:     userID + "@example.com",
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(ttl).Unix(),
	}
}

func TestNewAdapter(t *testing.T) {
	adapter := NewAdapter("test-secret", WithIssuer("dispatch"), WithLeeway(time.Second))
	if string(adapter.jwtSecret) != "test-secret" {
		t.Error("expected jwt secret to be set")
	}
	if adapter.issuer != "dispatch" || adapter.leeway != time.Second {
		t.Errorf("options not applied: %+v", adapter)
	}
}

func TestRoundTrip(t *testing.T) {
	adapter := NewAdapter("secret", WithIssuer("dispatch"))

	token, err := adapter.GenerateToken(claimsFor("user-1", time.Hour))
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	claims, err := adapter.ParseToken(token)
	if err != nil {
		t.Fatalf("failed to parse token: %v", err)
	}
	if claims.UserID != "user-1" || claims.Email != "user-1@example.com" {
		t.Errorf("unexpected claims %+v", claims)
	}
	if claims.ExpiresAt <= claims.IssuedAt {
		t.Errorf("expected expiry after issue, got %d <= %d", claims.ExpiresAt, claims.IssuedAt)
	}
}

func TestParseToken_ExpiredToken(t *testing.T) {
	adapter := NewAdapter("secret")
	token, _ := adapter.GenerateToken(claimsFor("user-1", -time.Hour))

	_, err := adapter.ParseToken(token)
	if !errors.Is(err, domain.ErrTokenExpired) {
		t.Errorf("expected ErrTokenExpired, got %v", err)
	}
}

func TestParseToken_WrongSecret(t *testing.T) {
	token, _ := NewAdapter("secret-a").GenerateToken(claimsFor("user-1", time.Hour))

	_, err := NewAdapter("secret-b").ParseToken(token)
	if !errors.Is(err, domain.ErrTokenInvalid) {
		t.Errorf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestParseToken_WrongIssuer(t *testing.T) {
	token, _ := NewAdapter("secret", WithIssuer("other")).GenerateToken(claimsFor("user-1", time.Hour))

	_, err := NewAdapter("secret", WithIssuer("dispatch")).ParseToken(token)
	if !errors.Is(err, domain.ErrTokenInvalid) {
		t.Errorf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestParseToken_MalformedToken(t *testing.T) {
	adapter := NewAdapter("secret")
	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := adapter.ParseToken(token); !errors.Is(err, domain.ErrTokenInvalid) {
			t.Errorf("token %q: expected ErrTokenInvalid, got %v", token, err)
		}
	}
}

func TestParseToken_RejectsNoneAlgorithm(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"user_id": "user-1",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := NewAdapter("secret").ParseToken(signed); !errors.Is(err, domain.ErrTokenInvalid) {
		t.Errorf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestParseToken_SubjectFallback(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "idp-user",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	claims, err := NewAdapter("secret").ParseToken(signed)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != "idp-user" {
		t.Errorf("expected subject as user id, got %q", claims.UserID)
	}
}

func TestParseToken_RequiresExpiry(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"user_id": "user-1"})
	signed, _ := token.SignedString([]byte("secret"))

	if _, err := NewAdapter("secret").ParseToken(signed); err == nil {
		t.Error("expected tokens without exp to be rejected")
	}
}

func TestEmptySecret(t *testing.T) {
	adapter := NewAdapter("")
	if _, err := adapter.GenerateToken(claimsFor("u", time.Hour)); !errors.Is(err, domain.ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
	if _, err := adapter.ParseToken("x"); !errors.Is(err, domain.ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}

func BenchmarkParseToken(b *testing.B) {
	adapter := NewAdapter("secret")
	token, _ := adapter.GenerateToken(claimsFor("user-1", time.Hour))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = adapter.ParseToken(token)
	}
}
