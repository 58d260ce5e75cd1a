// Package documents exposes the document index as an internal connector.
package documents

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/sercha-dispatch/internal/adapters/driven/connectors"
	"github.com/custodia-labs/sercha-dispatch/internal/core/domain"
	"github.com/custodia-labs/sercha-dispatch/internal/core/ports/driven"
)

// Ensure Connector implements the interface.
var _ driven.Connector = (*Connector)(nil)

// Index is the part of the document service the connector reads.
type Index interface {
	Search(ctx context.Context, q domain.SearchQuery) (*domain.SearchResult, error)
	Get(ctx context.Context, id string) (*domain.Document, error)
}

// Connector serves search and get over uploaded documents. It needs no
// credentials.
type Connector struct {
	*connectors.ActionTable
	index Index
}

// NewConnector creates the documents connector.
func NewConnector(index Index) *Connector {
	c := &Connector{index: index}
	c.ActionTable = connectors.NewActions(domain.ConnectorDocuments).
		Handle(domain.ActionTestConnection, c.testConnection).
		Handle(domain.ActionSearch, c.search).
		Handle(domain.ActionGet, c.get)
	return c
}

func (c *Connector) testConnection(ctx context.Context, _ map[string]any, _ *domain.Credentials) (any, error) {
	return connectors.ConnectionStatus{OK: true, Message: "Document index is available"}, nil
}

func (c *Connector) search(ctx context.Context, params map[string]any, _ *domain.Credentials) (any, error) {
	var p domain.DocumentSearchParams
	if err := connectors.DecodeParams(params, &p); err != nil {
		return nil, err
	}
	if err := connectors.Require(&p, "query"); err != nil {
		return nil, err
	}
	res, err := c.index.Search(ctx, domain.SearchQuery{Query: p.Query, ConnectorID: p.ConnectorID, Limit: p.Limit})
	if err != nil {
		return nil, err
	}
	items := make([]connectors.Record, 0, len(res.Hits))
	for _, h := range res.Hits {
		items = append(items, connectors.Record{
			ID:          h.ID,
			Title:       h.Title,
			Description: h.Snippet,
			CreatedAt:   connectors.FormatTime(h.CreatedAt),
			Extra: map[string]any{
				"connector_id": h.ConnectorID,
				"source_type":  h.SourceType,
				"source_id":    h.SourceID,
				"rank":         h.Rank,
			},
		})
	}
	return map[string]any{"items": items, "count": len(items), "mode": res.Mode}, nil
}

func (c *Connector) get(ctx context.Context, params map[string]any, _ *domain.Credentials) (any, error) {
	var p domain.DocumentGetParams
	if err := connectors.DecodeParams(params, &p); err != nil {
		return nil, err
	}
	if err := connectors.Require(&p, "id"); err != nil {
		return nil, err
	}
	doc, err := c.index.Get(ctx, p.ID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("%w: no document with id %q", domain.ErrValidation, p.ID)
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}
