// Package service wires the similarity engine, the separation analyzer and
// the snapshot store into the operations exposed by the HTTP API.
package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/okian/hoopsim/internal/adapters/loader"
	"github.com/okian/hoopsim/internal/adapters/repository"
	"github.com/okian/hoopsim/internal/domain/dataset"
	"github.com/okian/hoopsim/internal/domain/features"
	"github.com/okian/hoopsim/internal/domain/model"
	"github.com/okian/hoopsim/internal/domain/separation"
	"github.com/okian/hoopsim/internal/domain/similarity"
	"github.com/okian/hoopsim/internal/domain/types"
	"github.com/okian/hoopsim/pkg/logger"
	"github.com/okian/hoopsim/pkg/metrics"
)

// Defaults used when no option overrides them.
const (
	defaultK            = similarity.DefaultK
	defaultMaxK         = 50
	defaultMinutesFloor = 25
	defaultTopN         = separation.DefaultN
	defaultBins         = separation.DefaultBins
	maxBins             = 200
)

var defaultFeatures = []string{"PTS", "AST", "BLK", "STL", "OREB", "DREB"}

// Service implements the API dependencies for similarity and separation
// queries.
type Service struct {
	mu       sync.RWMutex
	reloadMu sync.Mutex

	// Core components
	store    *repository.SnapshotStore
	finder   similarity.Finder
	analyzer *separation.Analyzer
	catalog  *features.Catalog

	// Configuration
	datasetPath     string
	loaderOpts      loader.Options
	initial         *dataset.Dataset
	defaultK        int
	maxK            int
	minutesFloor    float64
	topN            int
	bins            int
	defaultFeatures []string
	subsets         map[string][]string
	metricsInterval time.Duration

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithDatasetPath sets the CSV file loaded on Start and Reload.
func WithDatasetPath(path string) Option {
	return func(s *Service) {
		s.datasetPath = strings.TrimSpace(path)
	}
}

// WithLoaderOptions sets the CSV column mapping.
func WithLoaderOptions(opt loader.Options) Option {
	return func(s *Service) {
		s.loaderOpts = opt
	}
}

// WithDataset installs ds on Start instead of reading the dataset path.
func WithDataset(ds *dataset.Dataset) Option {
	return func(s *Service) {
		s.initial = ds
	}
}

// WithDefaultK sets the neighbor count used when a request leaves k unset.
func WithDefaultK(k int) Option {
	return func(s *Service) {
		if k > 0 {
			s.defaultK = k
		}
	}
}

// WithMaxK caps the neighbor count a request may ask for.
func WithMaxK(k int) Option {
	return func(s *Service) {
		if k > 0 {
			s.maxK = k
		}
	}
}

// WithDefaultMinutesFloor sets the floor used when a request leaves it unset.
func WithDefaultMinutesFloor(floor float64) Option {
	return func(s *Service) {
		if floor >= 0 {
			s.minutesFloor = floor
		}
	}
}

// WithDefaultTopN sets the separation metric count used when n is unset.
func WithDefaultTopN(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.topN = n
		}
	}
}

// WithHistogramBins sets the default histogram bucket count.
func WithHistogramBins(bins int) Option {
	return func(s *Service) {
		if bins > 0 {
			s.bins = bins
		}
	}
}

// WithDefaultFeatures sets the selection used when a request names neither
// features nor subsets.
func WithDefaultFeatures(f []string) Option {
	return func(s *Service) {
		if len(f) > 0 {
			s.defaultFeatures = append([]string(nil), f...)
		}
	}
}

// WithFeatureSubsets registers extra named subsets.
func WithFeatureSubsets(subsets map[string][]string) Option {
	return func(s *Service) {
		s.subsets = subsets
	}
}

// WithMetricsUpdateInterval sets how often dataset gauges are refreshed.
func WithMetricsUpdateInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.metricsInterval = d
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		loaderOpts:      loader.DefaultOptions(),
		defaultK:        defaultK,
		maxK:            defaultMaxK,
		minutesFloor:    defaultMinutesFloor,
		topN:            defaultTopN,
		bins:            defaultBins,
		defaultFeatures: append([]string(nil), defaultFeatures...),
		metricsInterval: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.maxK < s.defaultK {
		s.maxK = s.defaultK
	}
	return s
}

// Start builds the components and installs the first snapshot, either the
// one given by WithDataset or the file at the dataset path.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	s.logger.Info(ctx, "starting similarity service...")

	s.store = repository.NewSnapshotStore(ctx, repository.WithMetricsUpdateInterval(s.metricsInterval))
	s.finder = similarity.NewEngine(similarity.WithLogger(s.logger.Named("similarity")))
	s.analyzer = separation.NewAnalyzer(
		separation.WithBins(s.bins),
		separation.WithLogger(s.logger.Named("separation")),
	)
	s.catalog = features.NewCatalog(s.subsets)
	s.started = true
	s.mu.Unlock()

	var err error
	switch {
	case s.initial != nil:
		_, err = s.Install(ctx, s.initial)
	case s.datasetPath != "":
		_, err = s.Reload(ctx)
	default:
		s.logger.Warn(ctx, "no dataset configured; queries will be unavailable until a reload")
	}
	if err != nil {
		s.Stop()
		return err
	}

	s.logger.Info(ctx, "similarity service started",
		logger.String("dataset", s.datasetPath),
		logger.Int("defaultK", s.defaultK),
		logger.Int("maxK", s.maxK),
		logger.Float64("minutesFloor", s.minutesFloor),
		logger.Int("topN", s.topN),
		logger.Strings("defaultFeatures", s.defaultFeatures),
	)
	return nil
}

// Stop releases background resources.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.logger.Info(context.Background(), "stopping similarity service...")
	if s.store != nil {
		_ = s.store.Close()
	}
	s.started = false
	s.logger.Info(context.Background(), "similarity service stopped")
}

// Reload reads the dataset path again and installs the result. A failed
// load leaves the current snapshot in place.
func (s *Service) Reload(ctx context.Context) (types.ReloadResponse, error) {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	if s.datasetPath == "" {
		return types.ReloadResponse{}, fmt.Errorf("%w: %w", ErrLoad, ErrNoDatasetPath)
	}
	start := time.Now()
	ds, err := loader.LoadFile(ctx, s.datasetPath, s.loaderOpts)
	if err != nil {
		metrics.RecordSnapshotLoadError()
		metrics.RecordErrorByComponent("loader", CodeLoadFailed)
		s.log().Error(ctx, "dataset load failed",
			logger.String("path", s.datasetPath),
			logger.Error(err))
		return types.ReloadResponse{}, fmt.Errorf("%w: %w", ErrLoad, err)
	}
	metrics.RecordSnapshotLoadDuration(float64(time.Since(start).Milliseconds()))
	s.log().Info(ctx, "dataset loaded",
		logger.String("path", s.datasetPath),
		logger.Int("records", ds.Len()),
		logger.Int("metrics", ds.Schema().Len()),
		logger.Duration("took", time.Since(start)))
	return s.Install(ctx, ds)
}

// Install swaps ds in as the current snapshot. Queries already running keep
// the snapshot they started with.
func (s *Service) Install(ctx context.Context, ds *dataset.Dataset) (types.ReloadResponse, error) {
	store, err := s.currentStore()
	if err != nil {
		return types.ReloadResponse{}, err
	}
	if ds == nil {
		return types.ReloadResponse{}, repository.ErrNilSnapshot
	}
	dups := ds.DuplicateKeys()
	if len(dups) > 0 {
		names := make([]string, len(dups))
		for i, k := range dups {
			names[i] = k.String()
		}
		s.log().Warn(ctx, "dataset has repeated player-season keys; queries on them will fail",
			logger.Int("count", len(dups)),
			logger.Strings("keys", names))
	}
	prev, err := store.Swap(ctx, ds)
	if err != nil {
		return types.ReloadResponse{}, err
	}
	fields := []logger.Field{
		logger.String("snapshot", ds.ID().String()),
		logger.Int("records", ds.Len()),
		logger.Int("distinct_keys", ds.DistinctKeys()),
	}
	if prev != nil {
		fields = append(fields, logger.String("replaced", prev.ID().String()))
	}
	s.log().Info(ctx, "dataset snapshot installed", fields...)

	if dups == nil {
		dups = []model.Key{}
	}
	return types.ReloadResponse{
		SnapshotID:    ds.ID().String(),
		Source:        ds.Source(),
		Records:       ds.Len(),
		Metrics:       ds.Schema().Len(),
		DuplicateKeys: dups,
	}, nil
}

// Neighbors answers a similarity query against the current snapshot.
func (s *Service) Neighbors(ctx context.Context, req types.NeighborsRequest) (resp types.NeighborsResponse, err error) {
	start := time.Now()
	defer func() { s.observe(ctx, metrics.KindNeighbors, start, err, false) }()

	if err = validateSubject(req.PlayerName, req.Season); err != nil {
		return resp, err
	}
	k := req.K
	if k == 0 {
		k = s.defaultK
	}
	if k < 0 || k > s.maxK {
		return resp, fmt.Errorf("%w: k must be between 1 and %d, got %d", ErrInvalidRequest, s.maxK, k)
	}
	floor, err := s.floor(req.MinMinutes)
	if err != nil {
		return resp, err
	}
	ds, err := s.snapshot(ctx)
	if err != nil {
		return resp, err
	}
	selection, err := s.catalog.Resolve(req.Features, req.Subsets, s.defaultFeatures)
	if err != nil {
		return resp, err
	}

	q := model.Query{
		Key:          model.Key{PlayerName: req.PlayerName, Season: req.Season},
		MinutesFloor: floor,
		Features:     selection,
	}
	neighbors, err := s.finder.FindNeighbors(ctx, ds, q, k)
	if err != nil {
		return resp, err
	}
	return types.NeighborsResponse{
		Subject:    q.Key,
		MinMinutes: floor,
		Features:   selection,
		Neighbors:  neighbors,
		SnapshotID: ds.ID().String(),
	}, nil
}

// Separation answers a separation query against the current snapshot. For a
// subject below the floor the empty response is returned together with the
// NotEligible error so transports can choose how to present it.
func (s *Service) Separation(ctx context.Context, req types.SeparationRequest) (resp types.SeparationResponse, err error) {
	start := time.Now()
	empty := false
	defer func() { s.observe(ctx, metrics.KindSeparation, start, err, empty) }()

	if err = validateSubject(req.PlayerName, req.Season); err != nil {
		return resp, err
	}
	n := req.N
	if n == 0 {
		n = s.topN
	}
	if n < 0 {
		return resp, fmt.Errorf("%w: n must be positive, got %d", ErrInvalidRequest, n)
	}
	if req.Bins < 0 || req.Bins > maxBins {
		return resp, fmt.Errorf("%w: bins must be between 1 and %d, got %d", ErrInvalidRequest, maxBins, req.Bins)
	}
	floor, err := s.floor(req.MinMinutes)
	if err != nil {
		return resp, err
	}
	ds, err := s.snapshot(ctx)
	if err != nil {
		return resp, err
	}

	ranker := s.analyzer
	if req.Bins > 0 && req.Bins != ranker.Bins() {
		ranker = separation.NewAnalyzer(separation.WithBins(req.Bins), separation.WithLogger(s.log().Named("separation")))
	}
	q := model.Query{Key: model.Key{PlayerName: req.PlayerName, Season: req.Season}, MinutesFloor: floor}
	res, err := ranker.RankDeviations(ctx, ds, q, n)
	resp = types.SeparationResponse{
		Subject:     q.Key,
		MinMinutes:  floor,
		Metrics:     res.Metrics,
		EmptyReason: res.EmptyReason,
		SnapshotID:  ds.ID().String(),
	}
	if resp.Metrics == nil {
		resp.Metrics = []model.MetricDeviation{}
	}
	empty = err == nil && res.Empty()
	return resp, err
}

// Seasons lists the seasons of the current snapshot.
func (s *Service) Seasons(ctx context.Context) (types.SeasonsResponse, error) {
	ds, err := s.snapshot(ctx)
	if err != nil {
		return types.SeasonsResponse{}, err
	}
	lo, hi := ds.MinutesRange()
	return types.SeasonsResponse{Seasons: nonNil(ds.Seasons()), MinutesMin: lo, MinutesMax: hi}, nil
}

// Players lists the players of season in the current snapshot.
func (s *Service) Players(ctx context.Context, season string) (types.PlayersResponse, error) {
	if strings.TrimSpace(season) == "" {
		return types.PlayersResponse{}, fmt.Errorf("%w: season is required", ErrInvalidRequest)
	}
	ds, err := s.snapshot(ctx)
	if err != nil {
		return types.PlayersResponse{}, err
	}
	return types.PlayersResponse{Season: season, Players: nonNil(ds.Players(season))}, nil
}

// Features lists the selectable metrics and named subsets.
func (s *Service) Features(ctx context.Context) (types.FeaturesResponse, error) {
	ds, err := s.snapshot(ctx)
	if err != nil {
		return types.FeaturesResponse{}, err
	}
	subsets := make(map[string][]string)
	for _, name := range s.catalog.Names() {
		m, _ := s.catalog.Subset(name)
		subsets[name] = m
	}
	return types.FeaturesResponse{
		Metrics:  nonNil(ds.Schema().Metrics()),
		Subsets:  subsets,
		Defaults: append([]string(nil), s.defaultFeatures...),
	}, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":          s.started,
		"datasetPath":      s.datasetPath,
		"defaultK":         s.defaultK,
		"maxK":             s.maxK,
		"minutesFloor":     s.minutesFloor,
		"topN":             s.topN,
		"histogramBins":    s.bins,
		"defaultFeatures":  s.defaultFeatures,
		"snapshotsApplied": int64(0),
	}
	if s.store == nil {
		return stats
	}
	stats["snapshotsApplied"] = s.store.Swaps()
	if info, err := s.store.Info(ctx); err == nil {
		stats["snapshotId"] = info.ID.String()
		stats["snapshotSource"] = info.Source
		stats["snapshotLoadedAt"] = info.LoadedAt.UTC().Format(time.RFC3339)
		stats["records"] = info.Records
		stats["distinctKeys"] = info.Distinct
		stats["metrics"] = info.Metrics
		stats["duplicateKeys"] = info.Duplicates
		metrics.UpdateDatasetShape(info.Records, info.Metrics, info.Duplicates)
	}
	return stats
}

func (s *Service) snapshot(ctx context.Context) (*dataset.Dataset, error) {
	store, err := s.currentStore()
	if err != nil {
		return nil, err
	}
	ds, err := store.Current(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return ds, nil
}

func (s *Service) currentStore() (*repository.SnapshotStore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, fmt.Errorf("%w: service not started", ErrUnavailable)
	}
	return s.store, nil
}

func (s *Service) log() logger.Logger {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.logger
}

func (s *Service) floor(v *float64) (float64, error) {
	if v == nil {
		return s.minutesFloor, nil
	}
	if *v < 0 {
		return 0, fmt.Errorf("%w: min_minutes must not be negative", ErrInvalidRequest)
	}
	return *v, nil
}

func (s *Service) observe(ctx context.Context, kind string, start time.Time, err error, empty bool) {
	code := ErrorCode(err)
	if empty {
		code = CodeEmpty
	}
	metrics.RecordQuery(kind, code)
	metrics.RecordQueryLatency(kind, float64(time.Since(start).Microseconds())/1000)
	if err == nil {
		return
	}
	metrics.RecordErrorByComponent(kind, code)
	l := s.log()
	if l == nil {
		return
	}
	fields := []logger.Field{logger.String("kind", kind), logger.String("code", code), logger.Error(err)}
	if code == CodeInternal {
		l.Error(ctx, "query failed", fields...)
		return
	}
	l.Debug(ctx, "query rejected", fields...)
}

func validateSubject(player, season string) error {
	switch {
	case strings.TrimSpace(player) == "":
		return fmt.Errorf("%w: player is required", ErrInvalidRequest)
	case strings.TrimSpace(season) == "":
		return fmt.Errorf("%w: season is required", ErrInvalidRequest)
	}
	return nil
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
