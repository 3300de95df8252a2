// Package repository holds the currently installed dataset snapshot.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/okian/hoopsim/internal/domain/dataset"
)

// Info describes an installed snapshot.
type Info struct {
	ID         uuid.UUID
	Source     string
	LoadedAt   time.Time
	Records    int
	Distinct   int
	Metrics    int
	Duplicates int
}

// Store provides access to the current dataset snapshot.
type Store interface {
	// Current returns the installed snapshot. Callers keep the returned
	// pointer for the whole query so a concurrent Swap never splits it.
	// Returns ErrNoSnapshot before the first Swap.
	Current(ctx context.Context) (*dataset.Dataset, error)

	// Swap installs ds and returns the snapshot it replaced, or nil.
	Swap(ctx context.Context, ds *dataset.Dataset) (*dataset.Dataset, error)

	// Info describes the installed snapshot.
	Info(ctx context.Context) (Info, error)
}
