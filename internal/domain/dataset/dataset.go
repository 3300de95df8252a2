// Package dataset holds the immutable in-memory table of player-season
// records that every query runs against.
//
// A Dataset is built once and never mutated. Refreshing data means building
// a new Dataset and swapping the reference; readers holding the old one keep
// a consistent view.
package dataset

import (
	"context"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/okian/hoopsim/internal/domain/dedupe"
	"github.com/okian/hoopsim/internal/domain/model"
)

// Dataset is an immutable ordered collection of player-season records.
type Dataset struct {
	id       uuid.UUID
	source   string
	loadedAt time.Time

	records []model.PlayerSeasonRecord
	schema  Schema
	byKey   map[model.Key][]int

	duplicates []model.Key
	distinct   int
}

// Option configures New.
type Option func(*Dataset)

// WithSource records where the rows came from (a file path, usually).
func WithSource(source string) Option {
	return func(d *Dataset) { d.source = source }
}

// WithLoadedAt overrides the load timestamp.
func WithLoadedAt(t time.Time) Option {
	return func(d *Dataset) {
		if !t.IsZero() {
			d.loadedAt = t
		}
	}
}

// New copies records into a new Dataset. Row order is preserved and is the
// tie-break order for every ranking. Repeated (player, season) keys are kept
// and reported by DuplicateKeys; queries on them fail at resolution time.
func New(records []model.PlayerSeasonRecord, schema Schema, opts ...Option) *Dataset {
	d := &Dataset{
		id:       uuid.New(),
		loadedAt: time.Now(),
		records:  make([]model.PlayerSeasonRecord, len(records)),
		schema:   schema,
		byKey:    make(map[model.Key][]int, len(records)),
	}
	for _, opt := range opts {
		opt(d)
	}

	tracker := dedupe.NewInMemoryTracker(dedupe.WithSizeHint(len(records)))
	firstRepeat := make(map[string]model.Key)
	for i, r := range records {
		d.records[i] = copyRecord(r)
		k := r.Key()
		d.byKey[k] = append(d.byKey[k], i)
		id := k.PlayerName + "\x00" + k.Season
		if tracker.SeenAndRecord(context.Background(), id) {
			firstRepeat[id] = k
		}
	}
	for _, id := range tracker.Duplicates() {
		d.duplicates = append(d.duplicates, firstRepeat[id])
	}
	d.distinct = int(tracker.Size())
	return d
}

func copyRecord(r model.PlayerSeasonRecord) model.PlayerSeasonRecord {
	out := r
	out.Metrics = make(map[string]float64, len(r.Metrics))
	for k, v := range r.Metrics {
		out.Metrics[k] = v
	}
	if r.Descriptive != nil {
		out.Descriptive = make(map[string]string, len(r.Descriptive))
		for k, v := range r.Descriptive {
			out.Descriptive[k] = v
		}
	}
	return out
}

// ID identifies this snapshot.
func (d *Dataset) ID() uuid.UUID { return d.id }

// Source returns where the dataset was loaded from.
func (d *Dataset) Source() string { return d.source }

// LoadedAt returns when the dataset was built.
func (d *Dataset) LoadedAt() time.Time { return d.loadedAt }

// Len returns the number of records.
func (d *Dataset) Len() int { return len(d.records) }

// Record returns the i-th record. Its maps must be treated as read-only.
func (d *Dataset) Record(i int) model.PlayerSeasonRecord { return d.records[i] }

// DistinctKeys returns the number of distinct (player, season) keys.
func (d *Dataset) DistinctKeys() int { return d.distinct }

// Schema returns the numeric metric schema.
func (d *Dataset) Schema() Schema { return d.schema }

// DuplicateKeys lists keys that occur on more than one row.
func (d *Dataset) DuplicateKeys() []model.Key {
	out := make([]model.Key, len(d.duplicates))
	copy(out, d.duplicates)
	return out
}

// Rows returns the row positions matching key, in dataset order.
func (d *Dataset) Rows(key model.Key) []int {
	rows := d.byKey[key]
	out := make([]int, len(rows))
	copy(out, rows)
	return out
}

// Seasons returns the distinct seasons, sorted.
func (d *Dataset) Seasons() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range d.records {
		if _, ok := seen[r.Season]; ok {
			continue
		}
		seen[r.Season] = struct{}{}
		out = append(out, r.Season)
	}
	sortSeasons(out)
	return out
}

// Players returns the distinct player names appearing in season, sorted.
func (d *Dataset) Players(season string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range d.records {
		if r.Season != season {
			continue
		}
		if _, ok := seen[r.PlayerName]; ok {
			continue
		}
		seen[r.PlayerName] = struct{}{}
		out = append(out, r.PlayerName)
	}
	sort.Strings(out)
	return out
}

// MinutesRange returns the smallest and largest minutes played. Both are 0
// for an empty dataset.
func (d *Dataset) MinutesRange() (lo, hi float64) {
	if len(d.records) == 0 {
		return 0, 0
	}
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, r := range d.records {
		lo = math.Min(lo, r.Minutes)
		hi = math.Max(hi, r.Minutes)
	}
	return lo, hi
}

// sortSeasons orders numerically when every label is a number (2019, 2020),
// lexically otherwise ("2019-20").
func sortSeasons(seasons []string) {
	nums := make(map[string]float64, len(seasons))
	for _, s := range seasons {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			sort.Strings(seasons)
			return
		}
		nums[s] = v
	}
	sort.Slice(seasons, func(i, j int) bool { return nums[seasons[i]] < nums[seasons[j]] })
}
