package domain

import (
	"errors"
	"net/http"
)

type Code string

const (
	CodeNotFound     Code = "not_found"
	CodeForbidden    Code = "forbidden"
	CodeConflict     Code = "conflict"
	CodeRoomFull     Code = "room_full"
	CodeValidation   Code = "validation_error"
	CodeRateLimited  Code = "rate_limited"
	CodeUnauthorized Code = "unauthorized"
	CodeInternal     Code = "internal_error"
)

// Sentinels returned by repositories. Services translate them with Wrap.
var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record conflict")
)

// Error is the single structured error surfaced to socket and HTTP callers.
type Error struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
	Code    Code   `json:"code"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func newError(status int, code Code, msg string) *Error {
	return &Error{Message: msg, Status: status, Code: code}
}

func NotFound(msg string) *Error     { return newError(http.StatusNotFound, CodeNotFound, msg) }
func Forbidden(msg string) *Error    { return newError(http.StatusForbidden, CodeForbidden, msg) }
func Conflict(msg string) *Error     { return newError(http.StatusConflict, CodeConflict, msg) }
func RoomFull(msg string) *Error     { return newError(http.StatusConflict, CodeRoomFull, msg) }
func Validation(msg string) *Error   { return newError(http.StatusBadRequest, CodeValidation, msg) }
func RateLimited(msg string) *Error  { return newError(http.StatusTooManyRequests, CodeRateLimited, msg) }
func Unauthorized(msg string) *Error { return newError(http.StatusUnauthorized, CodeUnauthorized, msg) }

func Internal(err error, msg string) *Error {
	e := newError(http.StatusInternalServerError, CodeInternal, msg)
	e.Err = err
	return e
}

// Wrap converts a persistence error into a structured one. Structured
// errors pass through untouched, known sentinels map to their codes and
// anything else becomes internal_error carrying the fallback message.
func Wrap(err error, fallback string) error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) {
		return de
	}
	switch {
	case errors.Is(err, ErrNotFound):
		e := NotFound(fallback)
		e.Err = err
		return e
	case errors.Is(err, ErrConflict):
		e := Conflict(fallback)
		e.Err = err
		return e
	}
	return Internal(err, fallback)
}

// AsError renders any error as a structured one for the wire.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) {
		return de
	}
	return Internal(err, "internal error")
}

// IsCode reports whether err carries the given machine code.
func IsCode(err error, code Code) bool {
	var de *Error
	return errors.As(err, &de) && de.Code == code
}
