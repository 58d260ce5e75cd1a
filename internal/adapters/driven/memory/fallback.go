package memory

import (
	"github.com/custodia-labs/sercha-dispatch/internal/core/domain"
	"github.com/custodia-labs/sercha-dispatch/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.FallbackCredentials = (*FallbackCredentials)(nil)

// FallbackCredentials serves server-wide connector credentials read once
// at startup. Connectors whose config carries no usable secret are left out.
type FallbackCredentials struct {
	creds map[domain.ConnectorType]*domain.Credentials
}

// NewFallbackCredentials builds credentials from per-connector config maps
// using the same keys as stored user connectors.
func NewFallbackCredentials(configs map[domain.ConnectorType]map[string]string) *FallbackCredentials {
	f := &FallbackCredentials{creds: make(map[domain.ConnectorType]*domain.Credentials)}
	for t, cfg := range configs {
		c := domain.CredentialsFromConfig(t, cfg, nil, domain.OriginEnvironment)
		if c.HasSecret() {
			f.creds[t] = c
		}
	}
	return f
}

// Lookup returns a copy of the fallback credentials for a connector type.
func (f *FallbackCredentials) Lookup(t domain.ConnectorType) (*domain.Credentials, bool) {
	c, ok := f.creds[t]
	if !ok {
		return nil, false
	}
	cp := *c
	return &cp, true
}

// Types lists the connectors with fallback credentials.
func (f *FallbackCredentials) Types() []domain.ConnectorType {
	var out []domain.ConnectorType
	for _, t := range domain.AllConnectors() {
		if _, ok := f.creds[t]; ok {
			out = append(out, t)
		}
	}
	return out
}
