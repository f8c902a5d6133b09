package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation   = errors.New("validation failed")
	ErrSampleSource = errors.New("sample source unavailable")
)

// ValidationError rejects a new alarm before it is stored.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// SampleSourceError reports that the position source could not be started,
// e.g. permission denied or broker unreachable.
type SampleSourceError struct {
	Err error
}

func (e *SampleSourceError) Error() string {
	return fmt.Sprintf("sample source: %v", e.Err)
}

func (e *SampleSourceError) Unwrap() error {
	return e.Err
}

func (e *SampleSourceError) Is(target error) bool {
	return target == ErrSampleSource
}
