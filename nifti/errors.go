package nifti

import (
	"errors"
	"fmt"
)

// Error kinds reported by every layer of the engine.  Callers should test for them
// with errors.Is since most are wrapped with context about the offending file or value.
var (
	ErrBadMagic            = errors.New("bad NIfTI magic")
	ErrUnsupportedDatatype = errors.New("unsupported datatype")
	ErrInvalidDims         = errors.New("invalid dimensions")
	ErrAmbiguousLayout     = errors.New("ambiguous dataset layout")
	ErrTruncatedExtension  = errors.New("truncated extension")
	ErrIndexOutOfRange     = errors.New("index out of range")
	ErrSizeMismatch        = errors.New("size mismatch")
	ErrInvalidExtension    = errors.New("invalid extension payload")
	ErrIOFailure           = errors.New("i/o failure")
)

// IOError wraps a storage failure for a given file.  It matches ErrIOFailure as well as
// the underlying error, e.g., os.ErrNotExist, when tested with errors.Is.
type IOError struct {
	Op   string
	Path string
	Err  error
}

// NewIOError returns nil if err is nil, otherwise an *IOError for the operation on path.
func NewIOError(op, path string, err error) error {
	if err == nil {
		return nil
	}
	var ioErr *IOError
	if errors.As(err, &ioErr) {
		return err
	}
	return &IOError{Op: op, Path: path, Err: err}
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

func (e *IOError) Is(target error) bool {
	return target == ErrIOFailure
}
