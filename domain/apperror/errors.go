// Package apperror defines the error taxonomy shared by every storefront module.
//
// Errors cross module boundaries as JSON request-reply messages, where only the
// error text survives. The kind is therefore rendered as a "[kind]" prefix and
// recovered with KindOf on the calling side.
package apperror

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an error for callers and for HTTP status mapping.
type Kind string

const (
	KindInvalidInput          Kind = "invalid_input"
	KindInvalidPaymentAccount Kind = "invalid_payment_account"
	KindNotFound              Kind = "not_found"
	KindEmptyCart             Kind = "empty_cart"
	KindInvalidState          Kind = "invalid_state"
	KindForbidden             Kind = "forbidden"
	KindConflict              Kind = "conflict"
	KindUnauthorized          Kind = "unauthorized"
	KindInternal              Kind = "internal"
)

var knownKinds = []Kind{
	KindInvalidInput,
	KindInvalidPaymentAccount,
	KindNotFound,
	KindEmptyCart,
	KindInvalidState,
	KindForbidden,
	KindConflict,
	KindUnauthorized,
	KindInternal,
}

// Error is a classified error with a caller-safe message and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Error renders "[kind] message" followed by the cause when present.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates an error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a cause to a classified error.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Internal wraps an unexpected storage or runtime failure.
func Internal(message string, err error) *Error {
	return &Error{Kind: KindInternal, Message: message, Err: err}
}

// KindOf returns the kind of err. Errors reconstructed from a request-reply
// response are recognised by their "[kind]" tag. Unclassified errors are internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	if kind, _, ok := parseTag(err.Error()); ok {
		return kind
	}
	return KindInternal
}

// Is reports whether err is of the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// MessageOf returns the caller-safe message of err, without the kind tag and
// without the cause. Internal errors always yield a generic message.
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		if appErr.Kind == KindInternal {
			return "an internal error occurred"
		}
		return appErr.Message
	}
	if kind, rest, ok := parseTag(err.Error()); ok && kind != KindInternal {
		return rest
	}
	return "an internal error occurred"
}

// parseTag finds the first "[kind] " tag in s and returns the kind with the
// text that follows it.
func parseTag(s string) (Kind, string, bool) {
	for _, kind := range knownKinds {
		tag := "[" + string(kind) + "] "
		if idx := strings.Index(s, tag); idx >= 0 {
			return kind, s[idx+len(tag):], true
		}
	}
	return "", "", false
}
