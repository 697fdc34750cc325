package ragkit

import (
	"errors"
	"fmt"
)

// ErrorCode identifies the kind of failure, matching the taxonomy used
// at the tool-protocol and CLI boundaries.
type ErrorCode string

const (
	CodeDocumentNotFound   ErrorCode = "DOCUMENT_NOT_FOUND"
	CodeCollectionNotFound ErrorCode = "COLLECTION_NOT_FOUND"
	CodeCollectionExists   ErrorCode = "COLLECTION_EXISTS"
	CodeInvalidArgument    ErrorCode = "INVALID_ARGUMENT"
	CodeInvalidURI         ErrorCode = "INVALID_URI"
	CodeLoadFailed         ErrorCode = "LOAD_FAILED"
	CodeTextTooLong        ErrorCode = "TEXT_TOO_LONG"
	CodeDatabaseError      ErrorCode = "DATABASE_ERROR"
	CodeEmbeddingError     ErrorCode = "EMBEDDING_ERROR"
	CodeChunkingError      ErrorCode = "CHUNKING_ERROR"
	CodeSyncError          ErrorCode = "SYNC_ERROR"
	CodeIOError            ErrorCode = "IO_ERROR"
	CodeSerializationError ErrorCode = "SERIALIZATION_ERROR"
	CodeConfigError        ErrorCode = "CONFIG_ERROR"
	CodeInternalError      ErrorCode = "INTERNAL_ERROR"
)

// Error is the tagged error type surfaced at every user-facing boundary
// (facade, CLI, tool-protocol server). It carries a machine-readable
// Code alongside a human-readable Message and an optional wrapped Cause.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError builds an Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause attaches a wrapped cause to the error, returning e for
// chaining.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// Wrap builds an Error of the given code wrapping cause, formatting the
// message the way fmt.Errorf would.
func Wrap(code ErrorCode, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// CodeOf extracts the ErrorCode from err if it is (or wraps) a *Error,
// defaulting to CodeInternalError otherwise.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternalError
}
