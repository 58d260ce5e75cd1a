package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/custodia-labs/sercha-dispatch/internal/core/domain"
	"github.com/custodia-labs/sercha-dispatch/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-dispatch/internal/core/ports/driving"
)

// Ensure Router implements ToolService
var _ driving.ToolService = (*Router)(nil)

// Router filters the catalog per request and dispatches tool calls to
// connector adapters. It performs no I/O of its own.
type Router struct {
	catalog  *Catalog
	registry driven.ConnectorRegistry
	resolver *CredentialResolver
	logger   *slog.Logger
}

// RouterConfig holds dependencies for Router.
type RouterConfig struct {
	Catalog  *Catalog
	Registry driven.ConnectorRegistry
	Resolver *CredentialResolver
	Logger   *slog.Logger
}

// NewRouter creates a new tool router.
func NewRouter(cfg RouterConfig) *Router {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		catalog:  cfg.Catalog,
		registry: cfg.Registry,
		resolver: cfg.Resolver,
		logger:   logger.With("component", "router"),
	}
}

// Catalog returns every tool whose connector is registered.
func (r *Router) Catalog() []domain.ToolDescriptor {
	var out []domain.ToolDescriptor
	for _, d := range r.catalog.Descriptors() {
		if _, err := r.registry.Get(d.Connector); err == nil {
			out = append(out, d)
		}
	}
	return out
}

// Available returns the tools whose connector is connected, has a server
// fallback credential, or is internal. Order follows the catalog.
func (r *Router) Available(sources []domain.ConnectedSource) []domain.ToolDescriptor {
	connected := make(map[domain.ConnectorType]bool, len(sources))
	for _, s := range sources {
		connected[s.Type] = true
	}

	visible := make(map[domain.ConnectorType]bool)
	var out []domain.ToolDescriptor
	for _, d := range r.Catalog() {
		ok, seen := visible[d.Connector]
		if !seen {
			ok = connected[d.Connector] || d.Connector.Internal() || r.resolver.HasFallback(d.Connector)
			visible[d.Connector] = ok
		}
		if ok {
			out = append(out, d)
		}
	}
	return out
}

// Dispatch runs one tool call. Every failure is returned as a Result.
func (r *Router) Dispatch(ctx context.Context, user domain.UserContext, call domain.ToolCall) (res *domain.Result) {
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("tool panicked", "tool", call.Name, "panic", p)
			res = domain.Fail(fmt.Errorf("tool %s failed unexpectedly", call.Name))
		}
	}()

	desc, ok := r.catalog.Lookup(call.Name)
	if !ok {
		r.logger.Error("unknown tool requested", "tool", call.Name)
		return domain.Fail(fmt.Errorf("%w: %s", domain.ErrUnknownTool, call.Name))
	}

	args, err := call.ParseArguments()
	if err != nil {
		return domain.Fail(err)
	}
	if err := r.catalog.Validate(call.Name, args); err != nil {
		r.logger.Info("tool arguments rejected", "tool", call.Name, "error", err)
		return domain.Fail(err)
	}

	connector, err := r.registry.Get(desc.Connector)
	if err != nil {
		r.logger.Error("no adapter for connector", "tool", call.Name, "connector", desc.Connector)
		return domain.Fail(fmt.Errorf("%w: %s has no adapter", domain.ErrUnknownTool, call.Name))
	}

	creds, err := r.resolver.Resolve(ctx, desc.Connector, user)
	if err != nil {
		r.logger.Info("tool not configured", "tool", call.Name, "connector", desc.Connector, "error", err)
		return domain.Fail(err)
	}

	res = connector.Execute(ctx, desc.Action, args, creds)
	if res == nil {
		return domain.Fail(fmt.Errorf("tool %s returned no result", call.Name))
	}

	attrs := []any{
		"tool", call.Name,
		"connector", desc.Connector,
		"action", desc.Action,
		"origin", creds.Origin,
		"duration", time.Since(start),
	}
	switch {
	case res.Success:
		r.logger.Debug("tool executed", attrs...)
	case errors.Is(res.Err(), domain.ErrUnknownAction):
		r.logger.Error("connector rejected action", append(attrs, "error", res.Error)...)
	default:
		r.logger.Warn("tool failed", append(attrs, "kind", res.Kind, "error", res.Error)...)
	}
	return res
}
