package connectors

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/custodia-labs/sercha-dispatch/internal/core/domain"
)

// ActionFunc runs one connector action and returns its result payload.
type ActionFunc func(ctx context.Context, params map[string]any, creds *domain.Credentials) (any, error)

// ActionTable is an ordered action table shared by the adapters. Adapters
// embed it to get Type, Actions and Execute.
type ActionTable struct {
	connector domain.ConnectorType
	names     []string
	funcs     map[string]ActionFunc
}

// NewActions creates an empty table for connector t.
func NewActions(t domain.ConnectorType) *ActionTable {
	return &ActionTable{connector: t, funcs: make(map[string]ActionFunc)}
}

// Handle registers fn under name.
func (a *ActionTable) Handle(name string, fn ActionFunc) *ActionTable {
	if _, ok := a.funcs[name]; !ok {
		a.names = append(a.names, name)
	}
	a.funcs[name] = fn
	return a
}

// Type returns the connector type.
func (a *ActionTable) Type() domain.ConnectorType { return a.connector }

// Actions returns the registered action names in registration order.
func (a *ActionTable) Actions() []string {
	out := make([]string, len(a.names))
	copy(out, a.names)
	return out
}

// Execute runs action and normalizes the outcome.
func (a *ActionTable) Execute(ctx context.Context, action string, params map[string]any, creds *domain.Credentials) *domain.Result {
	fn, ok := a.funcs[action]
	if !ok {
		return domain.Fail(fmt.Errorf("%w: %s does not support %q", domain.ErrUnknownAction, a.connector.DisplayName(), action))
	}
	if params == nil {
		params = map[string]any{}
	}
	data, err := fn(ctx, params, creds)
	if err != nil {
		return domain.Fail(err)
	}
	return domain.OK(data)
}

// DecodeParams decodes loosely typed model arguments into out, a pointer to
// one of the domain parameter structs.
func DecodeParams(params map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
		DecodeHook:       mapstructure.StringToTimeHookFunc(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if err := dec.Decode(params); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	return nil
}

// Require fails with a validation error when any named field of params
// (a pointer to a struct) has its zero value. Names are mapstructure tags.
func Require(params any, fields ...string) error {
	v := reflect.Indirect(reflect.ValueOf(params))
	t := v.Type()
	var missing []string
	for _, name := range fields {
		for i := 0; i < t.NumField(); i++ {
			if t.Field(i).Tag.Get("mapstructure") != name {
				continue
			}
			f := v.Field(i)
			if f.IsZero() || (f.Kind() == reflect.String && strings.TrimSpace(f.String()) == "") {
				missing = append(missing, name)
			}
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing required parameter %s", domain.ErrValidation, strings.Join(missing, ", "))
	}
	return nil
}

// Record is the flattened shape every adapter returns for a vendor object.
type Record struct {
	ID          string         `json:"id"`
	Number      string         `json:"number,omitempty"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	State       string         `json:"state,omitempty"`
	URL         string         `json:"url,omitempty"`
	CreatedAt   string         `json:"created_at,omitempty"`
	UpdatedAt   string         `json:"updated_at,omitempty"`
	Extra       map[string]any `json:"extra,omitempty"`
}

// List wraps records with their count.
type List struct {
	Items []Record `json:"items"`
	Count int      `json:"count"`
}

// NewList builds a List.
func NewList(items []Record) List {
	if items == nil {
		items = []Record{}
	}
	return List{Items: items, Count: len(items)}
}

// ConnectionStatus is the testConnection payload.
type ConnectionStatus struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// RequireID fails when a mutation response lacks the vendor identifier.
func RequireID(t domain.ConnectorType, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: %s did not return an identifier for the new record", domain.ErrUpstreamAPI, t.DisplayName())
	}
	return nil
}

// FormatTime renders a vendor timestamp as RFC 3339, or "" when zero.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
