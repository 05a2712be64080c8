package core

import (
	"errors"
	"strings"
)

// Error is a coded failure. Two Errors match under errors.Is when their
// codes are equal, so wrapped sentinels still compare against the base.
type Error struct {
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("[" + e.Code + "] " + e.Message)
	if e.Cause != nil {
		b.WriteString(": " + e.Cause.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Cause }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// WrapError returns a copy of base carrying cause.
func WrapError(base *Error, cause error) *Error {
	wrapped := *base
	wrapped.Cause = cause
	return &wrapped
}

// CodeOf reports the code of the first *Error in err's chain, or "" if
// there is none.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

func sentinel(code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

var (
	// raised by the signal engine on records that break its preconditions
	ErrInvalidInput = sentinel("INVALID_INPUT", "record violates engine preconditions")
	// recovered per row by the normalizer
	ErrRowParse = sentinel("ROW_PARSE", "row could not be parsed")

	ErrSymbolNotFound = sentinel("SYMBOL_NOT_FOUND", "symbol not found")
	ErrNoData         = sentinel("NO_DATA", "no data available")
	ErrSourceFailed   = sentinel("SOURCE_FAILED", "data source failed")
	ErrSourceTimeout  = sentinel("SOURCE_TIMEOUT", "data source timeout")

	ErrNotifierFailed = sentinel("NOTIFIER_FAILED", "notifier failed")
	ErrArchiveFailed  = sentinel("ARCHIVE_FAILED", "archive write failed")

	ErrConfigInvalid = sentinel("CONFIG_INVALID", "configuration invalid")
	ErrConfigMissing = sentinel("CONFIG_MISSING", "required configuration missing")

	ErrUnauthorized = sentinel("UNAUTHORIZED", "missing or invalid api key")
	ErrLLMFailed    = sentinel("LLM_FAILED", "LLM request failed")
)
