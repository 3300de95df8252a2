package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/hoopsim/internal/domain/dataset"
	"github.com/okian/hoopsim/pkg/metrics"
)

// SnapshotStore publishes dataset snapshots through an atomic pointer.
// Readers never block; Swap replaces the handle and leaves the previous
// snapshot untouched for whoever still holds it.
type SnapshotStore struct {
	current atomic.Pointer[dataset.Dataset]
	swaps   atomic.Int64

	metricsUpdateInterval time.Duration

	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewSnapshotStore constructs an empty store and starts its metrics updater,
// which stops with ctx or Close.
func NewSnapshotStore(ctx context.Context, opts ...Option) *SnapshotStore {
	s := &SnapshotStore{
		metricsUpdateInterval: 5 * time.Second,
		stopChan:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.startMetricsUpdater(ctx)
	return s
}

// Current implements Store.Current.
func (s *SnapshotStore) Current(ctx context.Context) (*dataset.Dataset, error) {
	ds := s.current.Load()
	if ds == nil {
		return nil, ErrNoSnapshot
	}
	return ds, nil
}

// Swap implements Store.Swap.
func (s *SnapshotStore) Swap(ctx context.Context, ds *dataset.Dataset) (*dataset.Dataset, error) {
	if ds == nil {
		return nil, ErrNilSnapshot
	}
	prev := s.current.Swap(ds)
	s.swaps.Add(1)

	metrics.RecordSnapshotSwap(time.Now().Unix())
	s.updateMetrics()
	return prev, nil
}

// Info implements Store.Info.
func (s *SnapshotStore) Info(ctx context.Context) (Info, error) {
	ds := s.current.Load()
	if ds == nil {
		return Info{}, ErrNoSnapshot
	}
	return Info{
		ID:         ds.ID(),
		Source:     ds.Source(),
		LoadedAt:   ds.LoadedAt(),
		Records:    ds.Len(),
		Distinct:   ds.DistinctKeys(),
		Metrics:    ds.Schema().Len(),
		Duplicates: len(ds.DuplicateKeys()),
	}, nil
}

// Swaps returns how many snapshots have been installed.
func (s *SnapshotStore) Swaps() int64 { return s.swaps.Load() }

// Close stops the background metrics updater.
func (s *SnapshotStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

func (s *SnapshotStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.updateMetrics()
			}
		}
	}()
}

func (s *SnapshotStore) updateMetrics() {
	ds := s.current.Load()
	if ds == nil {
		return
	}
	metrics.UpdateDatasetShape(ds.Len(), ds.Schema().Len(), len(ds.DuplicateKeys()))
}
