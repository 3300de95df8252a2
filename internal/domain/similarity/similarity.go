// Package similarity finds the player-seasons closest to a subject under a
// chosen feature selection.
package similarity

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/okian/hoopsim/internal/domain/dataset"
	"github.com/okian/hoopsim/internal/domain/model"
	"github.com/okian/hoopsim/pkg/logger"
	"github.com/okian/hoopsim/pkg/metrics"
)

// DefaultK is the neighbor count used when callers have no preference.
const DefaultK = 5

// ctxCheckEvery bounds how many rows are scanned between cancellation checks.
const ctxCheckEvery = 1024

// ErrInvalidK is returned for a non-positive neighbor count.
var ErrInvalidK = errors.New("k must be at least 1")

// Finder returns the nearest neighbors of a query subject.
type Finder interface {
	FindNeighbors(ctx context.Context, ds *dataset.Dataset, q model.Query, k int) ([]model.NeighborResult, error)
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// Engine implements Finder with cosine distance over an explicit dataset
// snapshot. It holds no per-query state and is safe for concurrent use.
type Engine struct {
	log logger.Logger
}

// NewEngine creates an Engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{log: logger.Nop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type candidate struct {
	row      int
	distance float64
}

// FindNeighbors returns the k rows closest to the subject, ascending by
// distance with ties in dataset order.
//
// The pool excludes every row sharing the subject's player name, not only
// the subject's own season, and every row below q.MinutesFloor.
func (e *Engine) FindNeighbors(ctx context.Context, ds *dataset.Dataset, q model.Query, k int) ([]model.NeighborResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("find neighbors: %w", err)
	}
	if k < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidK, k)
	}
	if err := ds.Schema().ValidateSelection(q.Features); err != nil {
		return nil, err
	}

	subjectRow, subject, err := ds.ResolveSubject(q.Key)
	if err != nil {
		return nil, err
	}
	target, err := project(subject, subjectRow, q.Features)
	if err != nil {
		return nil, err
	}

	pool := make([]int, 0, ds.Len())
	for i := 0; i < ds.Len(); i++ {
		r := ds.Record(i)
		if r.PlayerName == q.PlayerName || r.Minutes < q.MinutesFloor {
			continue
		}
		pool = append(pool, i)
	}
	metrics.RecordEligiblePoolSize(len(pool))

	cands := make([]candidate, 0, len(pool))
	vec := make([]float64, len(q.Features))
	for n, row := range pool {
		if n%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("find neighbors: %w", err)
			}
		}
		if err := projectInto(vec, ds.Record(row), row, q.Features); err != nil {
			return nil, err
		}
		cands = append(cands, candidate{row: row, distance: CosineDistance(target, vec)})
	}

	if len(cands) < k {
		e.log.Debug(ctx, "comparison pool too small",
			logger.String("subject", q.Key.String()),
			logger.Int("requested", k),
			logger.Int("available", len(cands)),
			logger.Float64("minutes_floor", q.MinutesFloor))
		return nil, &dataset.InsufficientPoolError{Requested: k, Available: len(cands)}
	}

	sort.SliceStable(cands, func(i, j int) bool { return cands[i].distance < cands[j].distance })

	out := make([]model.NeighborResult, k)
	for i := range out {
		r := ds.Record(cands[i].row)
		out[i] = model.NeighborResult{PlayerName: r.PlayerName, Season: r.Season, Distance: cands[i].distance}
	}
	return out, nil
}

func project(r model.PlayerSeasonRecord, row int, features []string) ([]float64, error) {
	vec := make([]float64, len(features))
	return vec, projectInto(vec, r, row, features)
}

func projectInto(dst []float64, r model.PlayerSeasonRecord, row int, features []string) error {
	for i, f := range features {
		v, ok := r.Metric(f)
		if !ok {
			return &dataset.MissingFeatureValueError{Feature: f, Key: r.Key(), Row: row}
		}
		dst[i] = v
	}
	return nil
}
