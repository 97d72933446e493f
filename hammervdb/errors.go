// Package hammervdb is the public entry point: an embedded, single-node
// vector database over binary-quantized sign-bit vectors, Hamming-distance
// ANN search, structured metadata filtering, WAL durability, and
// point-in-time recovery.
package hammervdb

import (
	"errors"
	"fmt"
	"time"

	"github.com/xDarkicex/hammervdb/internal/anntree"
	"github.com/xDarkicex/hammervdb/internal/block"
)

// Core errors.
var (
	ErrDatabaseClosed    = errors.New("hammervdb: database is closed")
	ErrNamespaceExists   = errors.New("hammervdb: namespace already exists")
	ErrNamespaceNotFound = errors.New("hammervdb: namespace not found")
	ErrTooManyNamespaces = errors.New("hammervdb: maximum number of namespaces exceeded")
	ErrInvalidK          = errors.New("hammervdb: k must be positive")
)

// Code identifies the kind of failure.
type Code int

const (
	CodeUnknown Code = iota
	CodeIo
	CodeCorruptChain
	CodeInvalidArgument
	CodeCapacityInvariant
	CodeNotFound
)

func (c Code) String() string {
	switch c {
	case CodeIo:
		return "IO"
	case CodeCorruptChain:
		return "CORRUPT_CHAIN"
	case CodeInvalidArgument:
		return "INVALID_ARGUMENT"
	case CodeCapacityInvariant:
		return "CAPACITY_INVARIANT"
	case CodeNotFound:
		return "NOT_FOUND"
	default:
		return "UNKNOWN"
	}
}

// Error is the structured error type surfaced at the package boundary,
// wrapping whichever internal package (block, wal, anntree, namespace)
// produced the failure.
type Error struct {
	Code      Code
	Component string
	Operation string
	Message   string
	Retryable bool
	Cause     error
	Timestamp time.Time
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("hammervdb: %s.%s: %s (caused by: %v)", e.Component, e.Operation, e.Message, e.Cause)
	}
	return fmt.Sprintf("hammervdb: %s.%s: %s", e.Component, e.Operation, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func newError(code Code, component, operation, message string) *Error {
	return &Error{Code: code, Component: component, Operation: operation, Message: message, Timestamp: time.Now()}
}

// wrapError classifies an internal-package error into the public Code
// taxonomy and attaches it as the cause, for errors crossing the hammervdb
// package boundary.
func wrapError(component, operation string, err error) error {
	if err == nil {
		return nil
	}
	code := CodeUnknown
	switch {
	case errors.Is(err, block.ErrCorruptChain):
		code = CodeCorruptChain
	case errors.Is(err, block.ErrIo):
		code = CodeIo
	case errors.Is(err, block.ErrInvalidArgument):
		code = CodeInvalidArgument
	case errors.Is(err, anntree.ErrCapacityInvariant):
		code = CodeCapacityInvariant
	case errors.Is(err, anntree.ErrNodeNotFound):
		code = CodeNotFound
	default:
		return err
	}
	return newError(code, component, operation, err.Error()).WithCause(err)
}

// WithCause attaches an underlying cause error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithRetryable marks whether a caller may usefully retry the operation.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}
