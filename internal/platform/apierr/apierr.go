package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error carries the HTTP status and machine code a handler should answer with.
// Details is rendered next to the message (e.g. partial progress of a failed run).
type Error struct {
	Status  int
	Code    string
	Err     error
	Details map[string]any
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func (e *Error) WithDetails(details map[string]any) *Error {
	if e == nil {
		return nil
	}
	e.Details = details
	return e
}

func NotFound(code string, err error) *Error   { return New(http.StatusNotFound, code, err) }
func BadRequest(code string, err error) *Error { return New(http.StatusBadRequest, code, err) }
func Conflict(code string, err error) *Error   { return New(http.StatusConflict, code, err) }
func Internal(code string, err error) *Error   { return New(http.StatusInternalServerError, code, err) }

// As unwraps err into an *Error. ok is false for plain errors.
func As(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) && ae != nil {
		return ae, true
	}
	return nil, false
}
