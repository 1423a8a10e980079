// Package domainerrors is the flat error taxonomy shared by the document
// service, the auth guard and the HTTP layer.
//
// Every error carries a Code and a free-text message. Error() renders the
// fixed, human-readable prefix of the code followed by the message; that
// rendering is part of the public API (it is echoed verbatim in the
// {"exception": ...} envelope).
package domainerrors

import (
	"errors"
	"net/http"
)

// Code identifies an error kind.
type Code string

const (
	CodeParsing             Code = "parsing_error"
	CodeOidFormat           Code = "oid_format_error"
	CodeDataNotFound        Code = "data_not_found"
	CodeConnection          Code = "connection_error"
	CodeContext             Code = "context_error"
	CodeFilterDateParsing   Code = "filter_date_parsing"
	CodeFilterStringParsing Code = "filter_string_parsing"
	CodeFilterStructure     Code = "filter_structure"
	CodeConflict            Code = "conflict"
	CodeValidation          Code = "validation_error"
	CodeUnauthorized        Code = "unauthorized"
	CodeKeySetUnavailable   Code = "key_set_unavailable"
	CodeTimeout             Code = "timeout"
	CodeInternal            Code = "internal_error"
)

var prefixes = map[Code]string{
	CodeParsing:             "Parsing exception : ",
	CodeOidFormat:           "ObjectId exception : ",
	CodeDataNotFound:        "Data not found : ",
	CodeConnection:          "Connection exception : ",
	CodeContext:             "Context exception : ",
	CodeFilterDateParsing:   "Filter exception : ",
	CodeFilterStringParsing: "Filter exception : ",
	CodeFilterStructure:     "Filter exception : ",
	CodeConflict:            "Conflict exception : ",
	CodeValidation:          "Validation exception : ",
	CodeTimeout:             "Timeout exception : ",
	CodeInternal:            "Internal exception : ",
}

// Error is a coded domain error, optionally wrapping a cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	return prefixes[e.Code] + e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error with the same code and message, so tests can
// compare against a freshly built value with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// New builds an error of the given kind.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap builds an error of the given kind that keeps err as its cause.
func Wrap(err error, code Code, msg string) error {
	return &Error{Code: code, Message: msg, Err: err}
}

// CodeOf returns the code of the outermost domain error in err's chain.
func CodeOf(err error) (Code, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de.Code, true
	}
	return "", false
}

// RootCode returns the code of the innermost domain error in err's chain.
// A wrapper such as "Get policy failed: Data not found : ..." keeps the
// not-found nature of its cause for status mapping.
func RootCode(err error) (Code, bool) {
	var (
		code  Code
		found bool
	)
	for err != nil {
		if de, ok := err.(*Error); ok {
			code, found = de.Code, true
		}
		err = errors.Unwrap(err)
	}
	return code, found
}

// HasCode reports whether any domain error in err's chain has the given code.
func HasCode(err error, code Code) bool {
	for err != nil {
		if de, ok := err.(*Error); ok && de.Code == code {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}

// Message returns the bare message of the outermost domain error, without
// the kind prefix. Falls back to err.Error().
func Message(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return err.Error()
}

// ToHTTPStatus maps a code to the status used at the HTTP boundary.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeParsing, CodeOidFormat, CodeContext, CodeValidation,
		CodeFilterDateParsing, CodeFilterStringParsing, CodeFilterStructure:
		return http.StatusBadRequest
	case CodeDataNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeKeySetUnavailable:
		return http.StatusServiceUnavailable
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
