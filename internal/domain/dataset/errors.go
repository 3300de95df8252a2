package dataset

import (
	"errors"
	"fmt"

	"github.com/okian/hoopsim/internal/domain/model"
)

// Sentinel error kinds. Typed errors below match them via errors.Is.
var (
	ErrAmbiguousSubject    = errors.New("ambiguous subject")
	ErrNotEligible         = errors.New("subject not eligible")
	ErrInsufficientPool    = errors.New("insufficient comparison pool")
	ErrMissingFeatureValue = errors.New("missing feature value")
	ErrInvalidSelection    = errors.New("invalid feature selection")
)

// AmbiguousSubjectError reports that a key matched zero or several rows.
type AmbiguousSubjectError struct {
	Key     model.Key
	Matches int
}

func (e *AmbiguousSubjectError) Error() string {
	if e.Matches == 0 {
		return fmt.Sprintf("%s: no row for %s", ErrAmbiguousSubject, e.Key)
	}
	return fmt.Sprintf("%s: expected exactly one row for %s, got %d", ErrAmbiguousSubject, e.Key, e.Matches)
}

func (e *AmbiguousSubjectError) Is(target error) bool { return target == ErrAmbiguousSubject }

// NotFound reports whether the key matched no row at all.
func (e *AmbiguousSubjectError) NotFound() bool { return e.Matches == 0 }

// NotEligibleError reports a subject below its own minutes floor.
type NotEligibleError struct {
	Key          model.Key
	Minutes      float64
	MinutesFloor float64
}

func (e *NotEligibleError) Error() string {
	return fmt.Sprintf("%s: %s played %.1f minutes, floor is %.1f", ErrNotEligible, e.Key, e.Minutes, e.MinutesFloor)
}

func (e *NotEligibleError) Is(target error) bool { return target == ErrNotEligible }

// InsufficientPoolError reports fewer eligible comparison rows than requested.
type InsufficientPoolError struct {
	Requested int
	Available int
}

func (e *InsufficientPoolError) Error() string {
	return fmt.Sprintf("%s: requested %d neighbors, %d eligible", ErrInsufficientPool, e.Requested, e.Available)
}

func (e *InsufficientPoolError) Is(target error) bool { return target == ErrInsufficientPool }

// MissingFeatureValueError names the column and row lacking a selected value.
type MissingFeatureValueError struct {
	Feature string
	Key     model.Key
	Row     int // position in the dataset
}

func (e *MissingFeatureValueError) Error() string {
	return fmt.Sprintf("%s: %s has no %s (row %d)", ErrMissingFeatureValue, e.Key, e.Feature, e.Row)
}

func (e *MissingFeatureValueError) Is(target error) bool { return target == ErrMissingFeatureValue }

// SelectionError reports an unusable feature selection.
type SelectionError struct {
	Feature string
	Reason  string
}

func (e *SelectionError) Error() string {
	if e.Feature == "" {
		return fmt.Sprintf("%s: %s", ErrInvalidSelection, e.Reason)
	}
	return fmt.Sprintf("%s: %q %s", ErrInvalidSelection, e.Feature, e.Reason)
}

func (e *SelectionError) Is(target error) bool { return target == ErrInvalidSelection }
