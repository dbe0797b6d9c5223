// Package syncerr defines the error taxonomy shared across the sync core,
// so that every component can construct and every caller can compare errors
// without importing the engine itself (SPEC_FULL.md §6.11).
package syncerr

import "fmt"

// ConfigError signals a caller-supplied configuration problem: a missing
// path, a scanner built without hashing passed to sync, a missing builder
// field. It is always fatal to the call that produced it.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string { return "config: " + e.Message }

// NewConfigError constructs a ConfigError.
func NewConfigError(format string, args ...any) *ConfigError {
	return &ConfigError{Message: fmt.Sprintf(format, args...)}
}

// IoError wraps a filesystem error encountered while reading, writing, or
// stat-ing a path. Depending on where it arises it may be captured per-set
// or treated as fatal to the whole call.
type IoError struct {
	Path string
	Err  error
}

func (e *IoError) Error() string { return fmt.Sprintf("io: %s: %v", e.Path, e.Err) }
func (e *IoError) Unwrap() error { return e.Err }

// NewIoError wraps err with the path that triggered it.
func NewIoError(path string, err error) *IoError {
	return &IoError{Path: path, Err: err}
}

// ParseError signals a malformed metadata file. It is always per-file: the
// offending difficulty is dropped and the owning set continues if at least
// one difficulty survives.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string { return fmt.Sprintf("parse: %s: %v", e.Path, e.Err) }
func (e *ParseError) Unwrap() error { return e.Err }

// NewParseError wraps err with the path of the file that failed to parse.
func NewParseError(path string, err error) *ParseError {
	return &ParseError{Path: path, Err: err}
}

// DatabaseError signals that the lazer installation's embedded database
// could not be opened or queried. Fatal to the call.
type DatabaseError struct {
	Err error
}

func (e *DatabaseError) Error() string { return fmt.Sprintf("database: %v", e.Err) }
func (e *DatabaseError) Unwrap() error { return e.Err }

// NewDatabaseError wraps err as a DatabaseError.
func NewDatabaseError(err error) *DatabaseError {
	return &DatabaseError{Err: err}
}

// ErrObjectMissing is returned when a file body referenced by the lazer
// database cannot be found in the content-addressed store. Per-file during
// import: the owning set's import is marked failed and the loop continues.
type ErrObjectMissing struct {
	Digest string
}

func (e *ErrObjectMissing) Error() string {
	return fmt.Sprintf("object missing: digest %s not found in object store", e.Digest)
}

// NewObjectMissing constructs an ErrObjectMissing for the given digest.
func NewObjectMissing(digest string) *ErrObjectMissing {
	return &ErrObjectMissing{Digest: digest}
}

// SetError captures an error encountered while processing a single set
// during import. It is counted as a failure for that set but never aborts
// the enclosing sync.
type SetError struct {
	SetName string
	Message string
}

func (e *SetError) Error() string { return fmt.Sprintf("set %q: %s", e.SetName, e.Message) }

// NewSetError constructs a SetError from a set name and an underlying error.
func NewSetError(setName string, err error) *SetError {
	return &SetError{SetName: setName, Message: err.Error()}
}
