package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/custodia-labs/sercha-dispatch/internal/core/domain"
	"github.com/custodia-labs/sercha-dispatch/internal/core/ports/driven"
)

// Ensure Adapter implements AuthAdapter
var _ driven.AuthAdapter = (*Adapter)(nil)

// jwtClaims wraps domain.TokenClaims for JWT compatibility.
// Tokens minted by an external identity provider usually carry the user
// in "sub" rather than "user_id"; both are accepted.
type jwtClaims struct {
	UserID string `json:"user_id,omitempty"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Adapter signs and verifies HS256 bearer tokens.
type Adapter struct {
	jwtSecret []byte
	issuer    string
	leeway    time.Duration
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithIssuer sets the issuer written to and required of tokens.
func WithIssuer(issuer string) Option {
	return func(a *Adapter) { a.issuer = issuer }
}

// WithLeeway tolerates clock skew when checking expiry.
func WithLeeway(d time.Duration) Option {
	return func(a *Adapter) { a.leeway = d }
}

// NewAdapter creates a new auth adapter with the given JWT secret
func NewAdapter(jwtSecret string, opts ...Option) *Adapter {
	a := &Adapter{jwtSecret: []byte(jwtSecret)}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// GenerateToken creates a signed JWT from domain claims
func (a *Adapter) GenerateToken(claims *domain.TokenClaims) (string, error) {
	if len(a.jwtSecret) == 0 {
		return "", fmt.Errorf("%w: jwt secret is not set", domain.ErrNotConfigured)
	}
	jc := jwtClaims{
		UserID: claims.UserID,
		Email:  claims.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.UserID,
			Issuer:    a.issuer,
			IssuedAt:  jwt.NewNumericDate(time.Unix(claims.IssuedAt, 0)),
			ExpiresAt: jwt.NewNumericDate(time.Unix(claims.ExpiresAt, 0)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jc)
	return token.SignedString(a.jwtSecret)
}

// ParseToken validates a JWT and extracts domain claims
func (a *Adapter) ParseToken(tokenString string) (*domain.TokenClaims, error) {
	if len(a.jwtSecret) == 0 {
		return nil, fmt.Errorf("%w: jwt secret is not set", domain.ErrNotConfigured)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(a.leeway),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &jwtClaims{}, func(token *jwt.Token) (interface{}, error) {
		return a.jwtSecret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*jwtClaims)
	if !ok || !token.Valid {
		return nil, domain.ErrTokenInvalid
	}
	userID := claims.UserID
	if userID == "" {
		userID = claims.Subject
	}
	out := &domain.TokenClaims{UserID: userID, Email: claims.Email}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Unix()
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Unix()
	}
	return out, nil
}
