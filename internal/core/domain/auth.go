package domain

// AuthContext contains authenticated user info for request context
type AuthContext struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// TokenClaims represents the JWT token payload
type TokenClaims struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

// UserContext identifies who a dispatch runs for and which sources the
// caller reported as connected. UserID is empty for anonymous callers,
// who can only use request-supplied or server fallback credentials.
type UserContext struct {
	UserID  string            `json:"user_id,omitempty"`
	Sources []ConnectedSource `json:"connected_sources,omitempty"`
}

// Source returns the request-supplied source of the given type, if any.
func (u UserContext) Source(t ConnectorType) (ConnectedSource, bool) {
	for _, s := range u.Sources {
		if s.Type == t {
			return s, true
		}
	}
	return ConnectedSource{}, false
}
