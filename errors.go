package vtree

import (
	"fmt"

	"github.com/pkg/errors"
)

// Sentinel errors for the tree layer. Callers should compare against these
// with errors.Is. Failures this package detects itself wrap one of them,
// annotated via *PathError; errors from the underlying afero.Fs or from an
// Apply delegate are passed through, in places annotated via
// github.com/pkg/errors.Wrap or *PathError, without a sentinel.
var (
	ErrInvalidPath               = errors.New("invalid path")
	ErrNoEntry                   = errors.New("no such file or directory")
	ErrExists                    = errors.New("file exists")
	ErrNotDir                    = errors.New("not a directory")
	ErrIsDir                     = errors.New("is a directory")
	ErrNotEmpty                  = errors.New("directory not empty")
	ErrPermission                = errors.New("operation not permitted")
	ErrStopped                   = errors.New("tree is stopped")
	ErrSymlinkCross              = errors.New("operation would cross a symlink boundary")
	ErrIncompatibleFilters       = errors.New("files filter is incompatible with include/exclude filters")
	ErrConflictingCapitalization = errors.New("conflicting capitalization between input trees")
	ErrConflictingFileType       = errors.New("conflicting file type between input trees")
	ErrOverwriteRefused          = errors.New("overwrite refused")
	ErrUnknownOperation          = errors.New("unknown operation")
)

// posixPrefix maps a sentinel to the POSIX-style prefix required by
// consumers that regex-match error text.
func posixPrefix(err error) string {
	switch {
	case errors.Is(err, ErrNoEntry):
		return "ENOENT:"
	case errors.Is(err, ErrExists):
		return "EEXIST:"
	case errors.Is(err, ErrNotDir):
		return "ENOTDIR:"
	case errors.Is(err, ErrIsDir):
		return "EISDIR:"
	case errors.Is(err, ErrNotEmpty):
		return "ENOTEMPTY:"
	case errors.Is(err, ErrPermission):
		return "EPERM:"
	case errors.Is(err, ErrInvalidPath):
		return "EINVAL:"
	default:
		return ""
	}
}

// PathError is the error type returned by every path-taking operation in
// this package. It carries the operation name, the offending path, and the
// wrapped sentinel so errors.Is keeps working through it.
type PathError struct {
	Op   string
	Path string
	Err  error
}

func (e *PathError) Error() string {
	prefix := posixPrefix(e.Err)
	if prefix == "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s %s: %s %v", e.Op, e.Path, prefix, e.Err)
}

func (e *PathError) Unwrap() error { return e.Err }

func newPathError(op, path string, err error) *PathError {
	return &PathError{Op: op, Path: path, Err: err}
}

// UnknownOperationError is returned by Apply when a patch names an op for
// which the supplied Delegate has no corresponding field set.
type UnknownOperationError struct {
	Op    Op
	Field string
}

func (e *UnknownOperationError) Error() string {
	return fmt.Sprintf("unknown operation %q: delegate field %q is not set", e.Op, e.Field)
}

func (e *UnknownOperationError) Unwrap() error { return ErrUnknownOperation }
