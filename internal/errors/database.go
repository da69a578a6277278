package errors

import (
	stdErrors "errors"
	"fmt"
)

var (
	// ErrInvalidIdentifier marks a table or column name that is not a plain SQL identifier.
	ErrInvalidIdentifier = stdErrors.New("invalid identifier")
	// ErrNoSuchTable is wrapped by QueryError when the target table does not exist.
	ErrNoSuchTable = stdErrors.New("no such table")
)

// NotConnectedError is returned when an operation runs on a closed store.
type NotConnectedError struct {
	Op string
}

func (e *NotConnectedError) Error() string {
	return fmt.Sprintf("%s: database connection not established, call Connect first", e.Op)
}

// NewNotConnectedError creates a NotConnectedError for the named operation
func NewNotConnectedError(op string) *NotConnectedError {
	return &NotConnectedError{Op: op}
}

// IsNotConnected reports whether err is a NotConnectedError (even when wrapped).
func IsNotConnected(err error) bool {
	var target *NotConnectedError
	return stdErrors.As(err, &target)
}

// SchemaError reports an invalid table definition or a rejected CREATE TABLE.
type SchemaError struct {
	Table  string
	Column string // offending column, empty when the problem is table-wide
	Reason string
	Err    error
}

func (e *SchemaError) Error() string {
	msg := fmt.Sprintf("schema error for table %q", e.Table)
	if e.Column != "" {
		msg += fmt.Sprintf(" column %q", e.Column)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

// NewSchemaError creates a SchemaError
func NewSchemaError(table, column, reason string, err error) *SchemaError {
	return &SchemaError{Table: table, Column: column, Reason: reason, Err: err}
}

// IsSchemaError checks if error is a SchemaError
func IsSchemaError(err error) bool {
	var target *SchemaError
	return stdErrors.As(err, &target)
}

// UploadError reports a failed batch upload. The batch has been rolled back.
type UploadError struct {
	Table string
	Row   int // index of the failing record, -1 when not tied to a record
	Err   error
}

func (e *UploadError) Error() string {
	if e.Row >= 0 {
		return fmt.Sprintf("upload to %q failed at record %d: %v", e.Table, e.Row, e.Err)
	}
	return fmt.Sprintf("upload to %q failed: %v", e.Table, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// NewUploadError creates an UploadError. Use row -1 for batch-level failures.
func NewUploadError(table string, row int, err error) *UploadError {
	return &UploadError{Table: table, Row: row, Err: err}
}

// IsUploadError checks if error is an UploadError
func IsUploadError(err error) bool {
	var target *UploadError
	return stdErrors.As(err, &target)
}

// QueryError reports a failed read: missing table, bad filter or engine failure.
type QueryError struct {
	Table  string
	Reason string
	Err    error
}

func (e *QueryError) Error() string {
	msg := fmt.Sprintf("query on %q failed", e.Table)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// NewQueryError creates a QueryError
func NewQueryError(table, reason string, err error) *QueryError {
	return &QueryError{Table: table, Reason: reason, Err: err}
}

// IsQueryError checks if error is a QueryError
func IsQueryError(err error) bool {
	var target *QueryError
	return stdErrors.As(err, &target)
}

// IOError reports a database location that cannot be opened or created.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("cannot open database %q: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// NewIOError creates an IOError
func NewIOError(path string, err error) *IOError {
	return &IOError{Path: path, Err: err}
}

// IsIOError checks if error is an IOError
func IsIOError(err error) bool {
	var target *IOError
	return stdErrors.As(err, &target)
}
