package loader

import "errors"

var (
	// ErrMissingColumn is returned when a required column is absent from the header.
	ErrMissingColumn = errors.New("missing required column")
	// ErrInvalidRow is returned when a row cannot be turned into a record.
	ErrInvalidRow = errors.New("invalid row")
	// ErrEmptyDataset is returned when the input holds a header but no rows.
	ErrEmptyDataset = errors.New("dataset has no rows")
)
