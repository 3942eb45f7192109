package metadata

import "errors"

// StoreError represents a domain error from store operations.
//
// These are business logic errors (file not found, already exists, ...)
// as opposed to infrastructure errors (network failure, disk error), which
// are returned wrapped with fmt.Errorf.
//
// The pipeline backend translates StoreError codes to vfs status codes.
type StoreError struct {
	// Code is the error category
	Code ErrorCode

	// Message is a human-readable error description
	Message string

	// Path is the share-relative path related to the error (if applicable)
	Path string
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e.Path != "" {
		return e.Message + ": " + e.Path
	}
	return e.Message
}

// ErrorCode represents the category of a store error.
type ErrorCode int

const (
	// ErrNotFound indicates the requested file or share doesn't exist
	ErrNotFound ErrorCode = iota

	// ErrAlreadyExists indicates a file with the name already exists
	ErrAlreadyExists

	// ErrInvalidArgument indicates invalid parameters were provided
	ErrInvalidArgument

	// ErrIOError indicates the backing storage failed
	ErrIOError

	// ErrNotSupported indicates the store cannot perform the operation
	ErrNotSupported
)

func (c ErrorCode) String() string {
	switch c {
	case ErrNotFound:
		return "not found"
	case ErrAlreadyExists:
		return "already exists"
	case ErrInvalidArgument:
		return "invalid argument"
	case ErrIOError:
		return "i/o error"
	case ErrNotSupported:
		return "not supported"
	default:
		return "unknown"
	}
}

// NewNotFoundError builds the error every store returns for a missing path.
func NewNotFoundError(path string) *StoreError {
	return &StoreError{Code: ErrNotFound, Message: "file not found", Path: path}
}

// NewAlreadyExistsError builds the error returned when creating an existing path.
func NewAlreadyExistsError(path string) *StoreError {
	return &StoreError{Code: ErrAlreadyExists, Message: "file already exists", Path: path}
}

// CodeOf returns the StoreError code carried by err.
func CodeOf(err error) (ErrorCode, bool) {
	var se *StoreError
	if errors.As(err, &se) {
		return se.Code, true
	}
	return 0, false
}

// IsNotFound reports whether err carries ErrNotFound.
func IsNotFound(err error) bool {
	code, ok := CodeOf(err)
	return ok && code == ErrNotFound
}

// IsAlreadyExists reports whether err carries ErrAlreadyExists.
func IsAlreadyExists(err error) bool {
	code, ok := CodeOf(err)
	return ok && code == ErrAlreadyExists
}
