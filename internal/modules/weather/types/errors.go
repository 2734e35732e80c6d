package types

import (
	"errors"
	"fmt"
)

var (
	ErrStationNotFound = errors.New("station not found")
	ErrDownload        = errors.New("download failed")
	ErrHeaderFormat    = errors.New("unrecognized header format")
	ErrMerge           = errors.New("merge failed")
	ErrTypeCoercion    = errors.New("type coercion failed")
	ErrNoParameters    = errors.New("no parameters left to merge")
)

// CoercionError reports the first cell that could not be converted.
type CoercionError struct {
	Line   int
	Column string
	Value  string
	Err    error
}

func (e *CoercionError) Error() string {
	return fmt.Sprintf("line %d, column %q: cannot convert %q: %v", e.Line, e.Column, e.Value, e.Err)
}

func (e *CoercionError) Unwrap() []error {
	return []error{ErrTypeCoercion, e.Err}
}
