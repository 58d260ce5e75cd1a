package domain

import "errors"

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates authentication failed or missing
	ErrUnauthorized = errors.New("unauthorized")

	// ErrTokenExpired indicates the auth token has expired
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenInvalid indicates the auth token is malformed or invalid
	ErrTokenInvalid = errors.New("token invalid")

	// ErrNotConfigured indicates a connector is not set up for the user and
	// no server fallback credential exists. User-actionable, never retried.
	ErrNotConfigured = errors.New("connector not configured")

	// ErrAuth indicates an external system rejected the credential.
	ErrAuth = errors.New("authentication with external service failed")

	// ErrUpstreamRateLimit indicates an upstream returned 429
	ErrUpstreamRateLimit = errors.New("upstream rate limit exceeded")

	// ErrUpstreamQuota indicates an upstream returned 402 (quota or credits exhausted)
	ErrUpstreamQuota = errors.New("upstream quota exceeded")

	// ErrUpstreamAPI indicates a generic non-2xx or transport failure from an external system
	ErrUpstreamAPI = errors.New("upstream api error")

	// ErrUnknownTool indicates no connector owns the requested tool name
	ErrUnknownTool = errors.New("unknown tool")

	// ErrUnknownAction indicates a connector does not support the action
	ErrUnknownAction = errors.New("unknown action")

	// ErrValidation indicates a missing or malformed parameter, rejected before any network call
	ErrValidation = errors.New("validation failed")

	// ErrUnsupportedProvider indicates no OAuth refresher is registered for a connector
	ErrUnsupportedProvider = errors.New("unsupported provider")
)

// ErrorKind classifies failures surfaced by the dispatcher.
type ErrorKind string

const (
	ErrorKindNone          ErrorKind = ""
	ErrorKindConfiguration ErrorKind = "configuration"
	ErrorKindAuth          ErrorKind = "auth"
	ErrorKindRateLimit     ErrorKind = "rate_limit"
	ErrorKindQuota         ErrorKind = "quota"
	ErrorKindUpstream      ErrorKind = "upstream"
	ErrorKindUnknownTool   ErrorKind = "unknown_tool"
	ErrorKindUnknownAction ErrorKind = "unknown_action"
	ErrorKindValidation    ErrorKind = "validation"
	ErrorKindInternal      ErrorKind = "internal"
)

// KindOf maps an error (possibly wrapped) onto the error taxonomy.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ErrorKindNone
	case errors.Is(err, ErrNotConfigured):
		return ErrorKindConfiguration
	case errors.Is(err, ErrAuth):
		return ErrorKindAuth
	case errors.Is(err, ErrUpstreamRateLimit):
		return ErrorKindRateLimit
	case errors.Is(err, ErrUpstreamQuota):
		return ErrorKindQuota
	case errors.Is(err, ErrUpstreamAPI):
		return ErrorKindUpstream
	case errors.Is(err, ErrUnknownTool):
		return ErrorKindUnknownTool
	case errors.Is(err, ErrUnknownAction):
		return ErrorKindUnknownAction
	case errors.Is(err, ErrValidation), errors.Is(err, ErrInvalidInput):
		return ErrorKindValidation
	default:
		return ErrorKindInternal
	}
}
