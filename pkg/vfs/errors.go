package vfs

import (
	"errors"
	"fmt"
)

// Code is the status of a failed pipeline operation.
type Code int

const (
	// ErrAccessDenied indicates the requested access is not permitted
	ErrAccessDenied Code = iota + 1

	// ErrNoMemory indicates a connection resource could not be allocated
	ErrNoMemory

	// ErrNotFound indicates the target does not exist
	ErrNotFound

	// ErrAlreadyExists indicates a create collided with an existing file
	ErrAlreadyExists

	// ErrInvalidParameter indicates a malformed request or configuration value
	ErrInvalidParameter

	// ErrInvalidHandle indicates the handle is unknown to the session
	ErrInvalidHandle

	// ErrIsDirectory indicates data access was requested on a directory
	ErrIsDirectory

	// ErrIO indicates the backing store failed
	ErrIO

	// ErrInternal indicates a bug or an unexpected state
	ErrInternal
)

var codeInfo = map[Code]struct {
	name     string
	ntStatus uint32
}{
	ErrAccessDenied:     {"access denied", 0xC0000022},
	ErrNoMemory:         {"no memory", 0xC0000017},
	ErrNotFound:         {"not found", 0xC0000034},
	ErrAlreadyExists:    {"already exists", 0xC0000035},
	ErrInvalidParameter: {"invalid parameter", 0xC000000D},
	ErrInvalidHandle:    {"invalid handle", 0xC0000008},
	ErrIsDirectory:      {"is a directory", 0xC00000BA},
	ErrIO:               {"i/o error", 0xC0000185},
	ErrInternal:         {"internal error", 0xC00000E5},
}

func (c Code) String() string {
	if info, ok := codeInfo[c]; ok {
		return info.name
	}
	return fmt.Sprintf("code(%d)", int(c))
}

// NTStatus returns the NTSTATUS value an SMB front end would send for c.
func (c Code) NTStatus() uint32 {
	if info, ok := codeInfo[c]; ok {
		return info.ntStatus
	}
	return codeInfo[ErrInternal].ntStatus
}

// Error is the failure outcome of a pipeline operation.
//
// Layers return it unchanged when passing a lower failure through, so the
// Code seen by the caller is the one produced where the failure originated.
type Error struct {
	Code    Code
	Op      string
	Path    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Code.String()
	}
	if e.Path != "" {
		msg = fmt.Sprintf("%s %s: %s", e.Op, e.Path, msg)
	} else if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds an *Error with a formatted message.
func NewError(code Code, op, path, format string, args ...any) *Error {
	return &Error{Code: code, Op: op, Path: path, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the status from err. Errors that are not *Error report
// ErrInternal.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrInternal
}

// IsCode reports whether err is an *Error carrying code.
func IsCode(err error, code Code) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}
