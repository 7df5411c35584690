// Package apperr defines the error kinds shared by services and handlers.
// Services return them wrapped, handlers decide what the user sees with
// errors.Is and errors.As.
package apperr

import (
	"errors"
	"strings"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrConflict           = errors.New("conflict")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not found")
	ErrRejected           = errors.New("upload rejected")
	ErrUpstreamStorage    = errors.New("storage backend failure")
)

// InvalidCredentialsMsg is shown for every failed login, no matter if the
// email was unknown or the password was wrong.
const InvalidCredentialsMsg = "Invalid email or password."

type Error struct {
	Kind    error  // One of the Err* sentinels
	Field   string // Optional form field the error belongs to
	Message string // Safe to show to the user
	Err     error  // Underlying cause, never shown to the user
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}

	return e.Message
}

func (e *Error) Is(target error) bool {
	return e.Kind == target
}

func (e *Error) Unwrap() error {
	return e.Err
}

// FieldError is a single user-correctable problem with a form field
type FieldError struct {
	Field string `json:"field"`
	Msg   string `json:"msg"`
}

// FieldErrors is an ordered list of validation problems. It's what forms
// get back as their errors list.
type FieldErrors []FieldError

func (f FieldErrors) Error() string {
	msgs := make([]string, 0, len(f))
	for _, e := range f {
		msgs = append(msgs, e.Msg)
	}

	return strings.Join(msgs, "; ")
}

func (f FieldErrors) Is(target error) bool {
	return target == ErrValidation
}

// Add appends a new field error and returns the list
func (f FieldErrors) Add(field, msg string) FieldErrors {
	return append(f, FieldError{Field: field, Msg: msg})
}

// ErrOrNil returns nil for an empty list so callers can return it directly
func (f FieldErrors) ErrOrNil() error {
	if len(f) == 0 {
		return nil
	}

	return f
}

func Validation(field, msg string) error {
	return FieldErrors{{Field: field, Msg: msg}}
}

func Conflict(field, msg string) *Error {
	return &Error{Kind: ErrConflict, Field: field, Message: msg}
}

func InvalidCredentials() *Error {
	return &Error{Kind: ErrInvalidCredentials, Message: InvalidCredentialsMsg}
}

func Forbidden(msg string) *Error {
	return &Error{Kind: ErrForbidden, Message: msg}
}

func NotFound(msg string) *Error {
	return &Error{Kind: ErrNotFound, Message: msg}
}

func Rejected(field, msg string) *Error {
	return &Error{Kind: ErrRejected, Field: field, Message: msg}
}

func UpstreamStorage(err error) *Error {
	return &Error{Kind: ErrUpstreamStorage, Message: "image storage is unavailable", Err: err}
}

// Fields turns any user-correctable error into a list that can be rendered
// next to a form. The second value is false for errors the user can't fix.
func Fields(err error) (FieldErrors, bool) {
	var fe FieldErrors
	if errors.As(err, &fe) {
		return fe, true
	}

	var e *Error
	if errors.As(err, &e) {
		switch e.Kind {
		case ErrConflict, ErrInvalidCredentials, ErrRejected, ErrForbidden, ErrNotFound:
			return FieldErrors{{Field: e.Field, Msg: e.Message}}, true
		}
	}

	return nil, false
}
