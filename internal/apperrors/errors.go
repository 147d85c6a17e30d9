// Package apperrors defines the closed error taxonomy the dispatcher maps to
// JSON-RPC error codes (spec.md §7).
package apperrors

import "errors"

// Kind sentinels. Wrap these with github.com/hyp3rd/ewrap for context and
// unwrap with errors.Is/errors.As at the dispatcher boundary — never branch
// on error strings.
var (
	// ErrConfig marks malformed or missing required configuration.
	ErrConfig = errors.New("configuration error")
	// ErrConnection marks a cumulative initial-connect failure or a mid-session
	// driver disconnect.
	ErrConnection = errors.New("connection error")
	// ErrTimeout marks a borrow or statement timeout.
	ErrTimeout = errors.New("timeout")
	// ErrPolicyDenied marks a safety-policy refusal.
	ErrPolicyDenied = errors.New("policy denied")
	// ErrValidation marks a tool argument that violated a precondition.
	ErrValidation = errors.New("validation error")
	// ErrUnknownTool marks a call_tool request naming an unregistered tool.
	ErrUnknownTool = errors.New("unknown tool")
	// ErrSqlExecution marks a SQL-level error returned by the server.
	ErrSqlExecution = errors.New("sql execution error") //nolint:revive,stylecheck // matches spec.md terminology
	// ErrInternal marks any other unexpected fault.
	ErrInternal = errors.New("internal error")
)

// Wrapped associates one of the sentinel Kinds above with a human-readable,
// credential-free message and optional structured context. Tool handlers and
// C2/C3 construct these; the dispatcher (C6) only ever inspects Kind.
type Wrapped struct {
	Kind    error
	Message string
	Err     error
}

// Error implements the error interface.
func (w *Wrapped) Error() string {
	if w.Err != nil {
		return w.Message + ": " + w.Err.Error()
	}

	return w.Message
}

// Unwrap lets errors.Is(err, apperrors.ErrX) and errors.As see through Wrapped
// to both the sentinel Kind and any underlying cause.
func (w *Wrapped) Unwrap() []error {
	if w.Err != nil {
		return []error{w.Kind, w.Err}
	}

	return []error{w.Kind}
}

// New constructs a Wrapped error of the given kind.
func New(kind error, message string) *Wrapped {
	return &Wrapped{Kind: kind, Message: message}
}

// Wrap constructs a Wrapped error of the given kind around a cause.
func Wrap(kind error, message string, cause error) *Wrapped {
	return &Wrapped{Kind: kind, Message: message, Err: cause}
}

// KindOf extracts the taxonomy Kind from err, defaulting to ErrInternal for
// errors that were never classified.
func KindOf(err error) error {
	for _, kind := range []error{
		ErrConfig, ErrConnection, ErrTimeout, ErrPolicyDenied,
		ErrValidation, ErrUnknownTool, ErrSqlExecution, ErrInternal,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}

	return ErrInternal
}
