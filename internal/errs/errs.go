// Package errs defines the typed error taxonomy shared by every layer of
// the engine, from ontology compilation down to the write pipeline.
//
// Every fallible operation returns either nil or a *TypedError. Backend
// errors are wrapped unless the backend has already identified them as a
// domain error the caller can act on (a unique-index collision, say).
package errs

import (
	"errors"
	"fmt"
)

// Kind is the stable, comparable tag attached to every TypedError.
type Kind string

const (
	Configuration       Kind = "configuration"
	KindNotFound        Kind = "kind-not-found"
	Validation          Kind = "validation"
	NodeNotFound        Kind = "node-not-found"
	EdgeNotFound        Kind = "edge-not-found"
	EndpointNotFound    Kind = "endpoint-not-found"
	Uniqueness          Kind = "uniqueness"
	Cardinality         Kind = "cardinality"
	RestrictedDelete    Kind = "restricted-delete"
	Database            Kind = "database"
	Migration           Kind = "migration"
	UnsupportedPredicate Kind = "unsupported-predicate"
)

// Issue is a single structured validation failure: a JSON-pointer-ish path
// plus a human message, the way a schema validator reports failures.
type Issue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// TypedError is the error shape exposed across the whole public API.
type TypedError struct {
	Kind       Kind
	Message    string
	Context    map[string]any
	Suggestion string
	Issues     []Issue
	cause      error
}

func (e *TypedError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Suggestion != "" {
		msg += " (" + e.Suggestion + ")"
	}
	return msg
}

func (e *TypedError) Unwrap() error { return e.cause }

// Is lets errors.Is(err, errs.ErrNotFound) style checks work against the
// Kind tag rather than pointer identity, by comparing sentinel Kind values
// wrapped in a TypedError.
func (e *TypedError) Is(target error) bool {
	var te *TypedError
	if errors.As(target, &te) {
		return e.Kind == te.Kind
	}
	return false
}

// New constructs a TypedError with optional context entries supplied as
// alternating key/value pairs, mirroring the backend's wrapDBErrorf idiom
// but for domain-level errors rather than SQL errors.
func New(kind Kind, message string, kv ...any) *TypedError {
	te := &TypedError{Kind: kind, Message: message}
	te.withContext(kv...)
	return te
}

// Wrap attaches a domain Kind to an underlying error, preserving it for
// errors.Unwrap/errors.Is chains.
func Wrap(kind Kind, message string, cause error, kv ...any) *TypedError {
	te := New(kind, message, kv...)
	te.cause = cause
	return te
}

func (e *TypedError) withContext(kv ...any) {
	if len(kv) == 0 {
		return
	}
	if e.Context == nil {
		e.Context = make(map[string]any, len(kv)/2)
	}
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		e.Context[key] = kv[i+1]
	}
}

// WithSuggestion returns a copy of e with a user-facing next step attached.
func (e *TypedError) WithSuggestion(s string) *TypedError {
	cp := *e
	cp.Suggestion = s
	return &cp
}

// WithIssues returns a copy of e carrying structured validation issues.
func (e *TypedError) WithIssues(issues ...Issue) *TypedError {
	cp := *e
	cp.Issues = issues
	return &cp
}

// sentinels usable with errors.Is without constructing a TypedError first.
var (
	ErrNotFound = New(NodeNotFound, "not found")
	ErrConflict = New(Uniqueness, "conflict")
)

// Sentinel-style predicates, mirroring the backend's isNotFound/isConflict
// helpers but generalized across every error kind in the taxonomy.
func IsKind(err error, k Kind) bool {
	var te *TypedError
	if errors.As(err, &te) {
		return te.Kind == k
	}
	return false
}

// DatabaseError wraps a raw backend error in the Database kind unless it is
// already a typed domain error, matching the propagation policy in §7: a
// backend error that the caller can already identify as a uniqueness
// violation is passed through unchanged.
func DatabaseError(op string, err error) error {
	if err == nil {
		return nil
	}
	var te *TypedError
	if errors.As(err, &te) {
		return err
	}
	return Wrap(Database, op, err)
}
