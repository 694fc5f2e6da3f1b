package sandbox

import (
	"errors"
	"fmt"

	"github.com/containerd/errdefs"
)

// Code identifies the category of a sandbox error.
type Code string

const (
	// CodeNotFound indicates the original table or the sandbox does not exist.
	CodeNotFound Code = "NOT_FOUND"

	// CodeAlreadyExists indicates a sandbox (record or table) already exists at the path.
	CodeAlreadyExists Code = "ALREADY_EXISTS"

	// CodeConflict indicates another operation on the same path is in progress.
	CodeConflict Code = "CONFLICT"

	// CodeInvalidSchema indicates the original schema cannot be shadowed.
	CodeInvalidSchema Code = "INVALID_SCHEMA"

	// CodeUnresolvedPath indicates no cluster mount covers a path.
	CodeUnresolvedPath Code = "UNRESOLVED_PATH"

	// CodeTimeout indicates a cluster call kept failing transiently.
	CodeTimeout Code = "TIMEOUT"

	// CodeInvalidArgument indicates malformed input paths.
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
)

// class returns the errdefs sentinel matching the code.
func (c Code) class() error {
	switch c {
	case CodeNotFound:
		return errdefs.ErrNotFound
	case CodeAlreadyExists:
		return errdefs.ErrAlreadyExists
	case CodeConflict:
		return errdefs.ErrConflict
	case CodeInvalidSchema:
		return errdefs.ErrFailedPrecondition
	case CodeUnresolvedPath, CodeInvalidArgument:
		return errdefs.ErrInvalidArgument
	case CodeTimeout:
		return errdefs.ErrDeadlineExceeded
	}
	return nil
}

// Error is returned by every Manager operation.
type Error struct {
	// Code identifies the error category.
	Code Code

	// Op is the operation that failed ("create", "delete", ...).
	Op string

	// Path is the table path the error concerns.
	Path string

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s %s: %s", e.Op, e.Path, e.Message)
	if e.Path == "" {
		msg = fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the errdefs class and the cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if class := e.Code.class(); class != nil {
		errs = append(errs, class)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func newError(code Code, op, path, message string, cause error) *Error {
	return &Error{Code: code, Op: op, Path: path, Message: message, Err: cause}
}

// CodeOf returns the code of the first *Error in err's chain, or "" if none.
func CodeOf(err error) Code {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// IsNotFound returns true if err is a sandbox NOT_FOUND error.
func IsNotFound(err error) bool { return CodeOf(err) == CodeNotFound }

// IsAlreadyExists returns true if err is a sandbox ALREADY_EXISTS error.
func IsAlreadyExists(err error) bool { return CodeOf(err) == CodeAlreadyExists }

// IsConflict returns true if err is a sandbox CONFLICT error.
func IsConflict(err error) bool { return CodeOf(err) == CodeConflict }

// IsInvalidSchema returns true if err is a sandbox INVALID_SCHEMA error.
func IsInvalidSchema(err error) bool { return CodeOf(err) == CodeInvalidSchema }

// IsUnresolvedPath returns true if err is a sandbox UNRESOLVED_PATH error.
func IsUnresolvedPath(err error) bool { return CodeOf(err) == CodeUnresolvedPath }

// IsTimeout returns true if err is a sandbox TIMEOUT error.
func IsTimeout(err error) bool { return CodeOf(err) == CodeTimeout }

// IsInvalidArgument returns true if err is a sandbox INVALID_ARGUMENT error.
func IsInvalidArgument(err error) bool { return CodeOf(err) == CodeInvalidArgument }
