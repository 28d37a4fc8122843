// Package rlerror provides a structured error type for the engine's
// error kinds (configuration, hashing, fingerprint store, build,
// service spawn, watch) with the context and unwrap behavior needed
// to map an error back to an exit code and a log line.
package rlerror

import (
	"errors"
	"fmt"
)

// Kind categorizes an error for exit-code mapping and logging.
type Kind string

const (
	KindConfig           Kind = "config"
	KindHashing          Kind = "hashing"
	KindFingerprintStore Kind = "fingerprint_store"
	KindBuild            Kind = "build"
	KindServiceSpawn     Kind = "service_spawn"
	KindWatch            Kind = "watch"
)

// Fatal reports whether errors of this kind abort the run rather than
// being recovered locally (hashing and fingerprint-store errors are
// recovered by treating the target as stale).
func (k Kind) Fatal() bool {
	switch k {
	case KindHashing, KindFingerprintStore:
		return false
	default:
		return true
	}
}

// Error is a structured error carrying the target it relates to (if
// any) and the kind used to decide exit-code mapping.
type Error struct {
	Kind    Kind
	Target  string
	Message string
	Cause   error
}

func New(kind Kind, target, message string) *Error {
	return &Error{Kind: kind, Target: target, Message: message}
}

func Wrap(kind Kind, target, message string, cause error) *Error {
	return &Error{Kind: kind, Target: target, Message: message, Cause: cause}
}

func (e *Error) Error() string {
	prefix := string(e.Kind)
	if e.Target != "" {
		prefix = fmt.Sprintf("%s[%s]", e.Kind, e.Target)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

// KindOf extracts the Kind from err, if it is (or wraps) an *Error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}
