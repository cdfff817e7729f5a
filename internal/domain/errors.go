package domain

import "fmt"

type ErrorKind string

const (
	KindNotFound          ErrorKind = "NOT_FOUND"
	KindUnauthorized      ErrorKind = "UNAUTHORIZED"
	KindInvalidTransition ErrorKind = "INVALID_TRANSITION"
	KindValidation        ErrorKind = "VALIDATION_ERROR"
	KindStorage           ErrorKind = "STORAGE_ERROR"
)

// Error is returned by every workflow operation. Two errors match under
// errors.Is when their kinds are equal, so callers compare against the
// sentinels below.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

var (
	ErrNotFound          = &Error{Kind: KindNotFound, Message: "not found"}
	ErrUnauthorized      = &Error{Kind: KindUnauthorized, Message: "not authorized"}
	ErrInvalidTransition = &Error{Kind: KindInvalidTransition, Message: "invalid transition"}
	ErrValidation        = &Error{Kind: KindValidation, Message: "validation failed"}
	ErrStorage           = &Error{Kind: KindStorage, Message: "storage failure"}
)

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func NotFoundError(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func UnauthorizedError(format string, args ...any) *Error {
	return &Error{Kind: KindUnauthorized, Message: fmt.Sprintf(format, args...)}
}

func InvalidTransitionError(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidTransition, Message: fmt.Sprintf(format, args...)}
}

func ValidationError(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func StorageError(err error, format string, args ...any) *Error {
	return &Error{Kind: KindStorage, Message: fmt.Sprintf(format, args...), Err: err}
}
