// Package separation ranks the metrics on which a player-season stands
// furthest from zero and summarizes each against its season population.
package separation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/okian/hoopsim/internal/domain/dataset"
	"github.com/okian/hoopsim/internal/domain/model"
	"github.com/okian/hoopsim/pkg/logger"
	"github.com/okian/hoopsim/pkg/metrics"
)

// Defaults.
const (
	DefaultN    = 6
	DefaultBins = 20
)

// ErrInvalidN is returned for a non-positive metric count.
var ErrInvalidN = errors.New("n must be at least 1")

// Ranker ranks a subject's metrics by magnitude.
type Ranker interface {
	RankDeviations(ctx context.Context, ds *dataset.Dataset, q model.Query, n int) (model.DeviationResult, error)
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithBins sets the histogram bucket count. Zero disables histograms.
func WithBins(bins int) Option {
	return func(a *Analyzer) {
		if bins >= 0 {
			a.bins = bins
		}
	}
}

// WithLogger sets the analyzer logger.
func WithLogger(l logger.Logger) Option {
	return func(a *Analyzer) {
		if l != nil {
			a.log = l
		}
	}
}

// Analyzer implements Ranker. It is stateless across calls.
type Analyzer struct {
	bins int
	log  logger.Logger
}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer(opts ...Option) *Analyzer {
	a := &Analyzer{bins: DefaultBins, log: logger.Nop()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Bins returns the configured histogram bucket count.
func (a *Analyzer) Bins() int { return a.bins }

// RankDeviations returns the top n metrics of the subject by absolute value,
// each with a summary of the metric over the subject's season restricted to
// q.MinutesFloor. q.Features is ignored: every numeric metric competes.
//
// A subject below the floor yields an empty result together with a
// *dataset.NotEligibleError. No population or no subject values yield an
// empty result and a nil error.
func (a *Analyzer) RankDeviations(ctx context.Context, ds *dataset.Dataset, q model.Query, n int) (model.DeviationResult, error) {
	res := model.DeviationResult{Subject: q.Key, Metrics: []model.MetricDeviation{}}
	if err := ctx.Err(); err != nil {
		return res, fmt.Errorf("rank deviations: %w", err)
	}
	if n < 1 {
		return res, fmt.Errorf("%w: got %d", ErrInvalidN, n)
	}

	_, subject, err := ds.ResolveEligibleSubject(q.Key, q.MinutesFloor)
	if err != nil {
		if errors.Is(err, dataset.ErrNotEligible) {
			res.EmptyReason = model.EmptyNotEligible
		}
		return res, err
	}

	type candidate struct {
		metric string
		value  float64
	}
	var cands []candidate
	for _, m := range ds.Schema().Metrics() {
		if v, ok := subject.Metric(m); ok {
			cands = append(cands, candidate{metric: m, value: v})
		}
	}
	if len(cands) == 0 {
		res.EmptyReason = model.EmptyNoSubjectValues
		a.empty(ctx, q, res.EmptyReason)
		return res, nil
	}

	// Stable so equal magnitudes keep schema order.
	sort.SliceStable(cands, func(i, j int) bool {
		return math.Abs(cands[i].value) > math.Abs(cands[j].value)
	})
	if n > len(cands) {
		n = len(cands)
	}
	cands = cands[:n]

	var population []int
	for i := 0; i < ds.Len(); i++ {
		r := ds.Record(i)
		if r.Season == q.Season && r.Minutes >= q.MinutesFloor {
			population = append(population, i)
		}
	}

	out := make([]model.MetricDeviation, 0, n)
	for _, c := range cands {
		if err := ctx.Err(); err != nil {
			return model.DeviationResult{Subject: q.Key, Metrics: []model.MetricDeviation{}}, fmt.Errorf("rank deviations: %w", err)
		}
		samples := make([]float64, 0, len(population))
		for _, row := range population {
			if v, ok := ds.Record(row).Metric(c.metric); ok {
				samples = append(samples, v)
			}
		}
		if len(samples) == 0 {
			res.EmptyReason = model.EmptyNoPopulation
			a.empty(ctx, q, res.EmptyReason, logger.String("metric", c.metric))
			return res, nil
		}
		out = append(out, model.MetricDeviation{
			Metric:    c.metric,
			Magnitude: math.Abs(c.value),
			Value:     c.value,
			Summary: model.DistributionSummary{
				Median:       Median(samples),
				SubjectValue: c.value,
				SampleValues: samples,
				Histogram:    Histogram(samples, a.bins),
			},
		})
	}
	res.Metrics = out
	return res, nil
}

func (a *Analyzer) empty(ctx context.Context, q model.Query, reason string, fields ...logger.Field) {
	metrics.RecordSeparationEmpty()
	fields = append(fields,
		logger.String("subject", q.Key.String()),
		logger.String("reason", reason),
		logger.Float64("minutes_floor", q.MinutesFloor))
	a.log.Debug(ctx, "separation answered empty", fields...)
}
