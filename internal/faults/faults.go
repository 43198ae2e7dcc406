// Package faults defines the error taxonomy shared by the model core.
//
// Every failure that crosses a package boundary is an *Error carrying a Kind,
// so callers classify failures with Is/KindOf instead of matching strings.
package faults

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind string

const (
	KindArtifactNotFound      Kind = "artifact_not_found"
	KindDownloadFailed        Kind = "download_failed"
	KindIOFailure             Kind = "io_failure"
	KindEngineLoadFailure     Kind = "engine_load_failure"
	KindEngineNotLoaded       Kind = "engine_not_loaded"
	KindMissingCredential     Kind = "missing_credential"
	KindHTTPFailure           Kind = "http_failure"
	KindMalformedResponse     Kind = "malformed_response"
	KindUnsupportedInputType  Kind = "unsupported_input_type"
	KindDependencyUnavailable Kind = "dependency_unavailable"
	KindTooBusy               Kind = "too_busy"
	KindInternal              Kind = "internal"
)

// Error is a classified failure. Status carries the HTTP status for
// DownloadFailed and HTTPFailure and is zero otherwise.
type Error struct {
	Kind   Kind
	Op     string
	Status int
	Err    error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is makes errors.Is(err, &Error{Kind: k}) match on kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Status == 0 || t.Status == e.Status)
}

// New builds a classified error.
func New(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Newf builds a classified error with a formatted cause.
func Newf(kind Kind, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// WithStatus builds a classified error carrying an HTTP status.
func WithStatus(kind Kind, op string, status int, err error) error {
	return &Error{Kind: kind, Op: op, Status: status, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindInternal
}

// StatusOf returns the HTTP status recorded on err, if any.
func StatusOf(err error) int {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Status
	}
	return 0
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	var fe *Error
	return errors.As(err, &fe) && fe.Kind == kind
}

func ArtifactNotFound(name string) error {
	return &Error{Kind: KindArtifactNotFound, Op: "resolve", Err: fmt.Errorf("no artifact named %q", name)}
}

func DownloadFailed(status int, err error) error {
	return &Error{Kind: KindDownloadFailed, Op: "download", Status: status, Err: err}
}

func IOFailure(op string, err error) error {
	return &Error{Kind: KindIOFailure, Op: op, Err: err}
}

func EngineLoadFailure(err error) error {
	return &Error{Kind: KindEngineLoadFailure, Op: "load", Err: err}
}

// ErrEngineNotLoaded is returned by checked engine runs on an empty handle.
var ErrEngineNotLoaded = &Error{Kind: KindEngineNotLoaded, Op: "run"}

// ErrMissingCredential is returned when no remote credential is stored.
var ErrMissingCredential = &Error{Kind: KindMissingCredential, Op: "gateway"}

func HTTPFailure(status int) error {
	return &Error{Kind: KindHTTPFailure, Op: "gateway", Status: status}
}

func MalformedResponse(err error) error {
	return &Error{Kind: KindMalformedResponse, Op: "gateway", Err: err}
}

func UnsupportedInputType(kind string) error {
	return &Error{Kind: KindUnsupportedInputType, Op: "execute", Err: fmt.Errorf("input kind %q", kind)}
}

func DependencyUnavailable(msg string) error {
	return &Error{Kind: KindDependencyUnavailable, Err: errors.New(msg)}
}

func TooBusy(op string) error {
	return &Error{Kind: KindTooBusy, Op: op}
}

// IsNotFound reports whether err means a missing artifact.
func IsNotFound(err error) bool { return Is(err, KindArtifactNotFound) }

// IsTooBusy reports whether err indicates backpressure.
func IsTooBusy(err error) bool { return Is(err, KindTooBusy) }

// IsDependencyUnavailable reports whether err indicates a runtime built without its backend.
func IsDependencyUnavailable(err error) bool { return Is(err, KindDependencyUnavailable) }
