package domain

import (
	"encoding/json"
	"errors"
)

// Result is the normalized outcome of a connector action or tool dispatch.
// Absence of Error means success.
type Result struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   string    `json:"error,omitempty"`
	Kind    ErrorKind `json:"kind,omitempty"`
	Hint    string    `json:"hint,omitempty"`
}

// OK wraps a success payload.
func OK(data any) *Result {
	return &Result{Success: true, Data: data}
}

// Fail converts an error into a failed Result, classifying it by kind.
func Fail(err error) *Result {
	if err == nil {
		return &Result{Success: false, Error: "unknown error", Kind: ErrorKindInternal}
	}
	r := &Result{Success: false, Error: err.Error(), Kind: KindOf(err)}
	var hinted *HintedError
	if errors.As(err, &hinted) {
		r.Hint = hinted.Hint
	}
	return r
}

// Err returns the result's failure as an error carrying its kind sentinel,
// or nil on success.
func (r *Result) Err() error {
	if r == nil || r.Error == "" {
		return nil
	}
	return &resultError{msg: r.Error, kind: r.Kind}
}

// ToolContent renders the result as the content of a tool-role message:
// the data payload on success, {"error": ...} otherwise.
func (r *Result) ToolContent() string {
	var v any
	if r.Error != "" {
		payload := map[string]string{"error": r.Error}
		if r.Hint != "" {
			payload["hint"] = r.Hint
		}
		v = payload
	} else if r.Data == nil {
		v = map[string]bool{"success": true}
	} else {
		v = r.Data
	}
	b, err := json.Marshal(v)
	if err != nil {
		return `{"error":"result is not serializable"}`
	}
	return string(b)
}

// HintedError attaches a remediation hint to an error, e.g. "reconnect GitHub".
type HintedError struct {
	Err  error
	Hint string
}

func (e *HintedError) Error() string { return e.Err.Error() }
func (e *HintedError) Unwrap() error { return e.Err }

// WithHint wraps err with a user-facing remediation hint.
func WithHint(err error, hint string) error {
	return &HintedError{Err: err, Hint: hint}
}

type resultError struct {
	msg  string
	kind ErrorKind
}

func (e *resultError) Error() string { return e.msg }

func (e *resultError) Unwrap() error {
	switch e.kind {
	case ErrorKindConfiguration:
		return ErrNotConfigured
	case ErrorKindAuth:
		return ErrAuth
	case ErrorKindRateLimit:
		return ErrUpstreamRateLimit
	case ErrorKindQuota:
		return ErrUpstreamQuota
	case ErrorKindUpstream:
		return ErrUpstreamAPI
	case ErrorKindUnknownTool:
		return ErrUnknownTool
	case ErrorKindUnknownAction:
		return ErrUnknownAction
	case ErrorKindValidation:
		return ErrValidation
	}
	return nil
}
