package decompose

import (
	"errors"
	"fmt"
)

// ErrSizeLimit matches every SizeLimitExceeded via errors.Is.
var ErrSizeLimit = errors.New("size limit exceeded")

// DecodeError reports a malformed source document. Path names the offending
// layer ("Card/Photo") when known.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("decode document: %v", e.Err)
	}
	return fmt.Sprintf("decode document: layer %q: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func decodeErr(path string, format string, args ...any) error {
	return &DecodeError{Path: path, Err: fmt.Errorf(format, args...)}
}

// Limit kinds.
const (
	LimitFileBytes = "file_bytes"
	LimitPixelArea = "pixel_area"
)

// SizeLimitExceeded is returned before a full decode is attempted.
type SizeLimitExceeded struct {
	Kind   string
	Limit  int64
	Actual int64
}

func (e *SizeLimitExceeded) Error() string {
	return fmt.Sprintf("%s limit exceeded: %d > %d", e.Kind, e.Actual, e.Limit)
}

func (e *SizeLimitExceeded) Is(target error) bool { return target == ErrSizeLimit }
