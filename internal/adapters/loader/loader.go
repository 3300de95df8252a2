// Package loader reads player-season statistics from CSV into a dataset
// snapshot.
package loader

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/okian/hoopsim/internal/domain/dataset"
	"github.com/okian/hoopsim/internal/domain/model"
)

// Options controls column mapping.
type Options struct {
	PlayerColumn  string
	SeasonColumn  string
	MinutesColumn string
	// Descriptive columns are carried on each record but never treated as
	// metrics, even when numeric.
	Descriptive []string
	// Delimiter for CSV. If 0, chosen from the file extension (.tsv is tab,
	// anything else comma).
	Delimiter rune
}

// DefaultOptions returns the column layout of the scaled season tables.
func DefaultOptions() Options {
	return Options{
		PlayerColumn:  "PLAYER_NAME",
		SeasonColumn:  "season",
		MinutesColumn: "MIN",
		Descriptive:   []string{"TEAM_ABBREVIATION", "TEAM_ID", "GP", "W", "L", "W_PCT"},
		Delimiter:     ',',
	}
}

// LoadFile opens path and loads it with Load.
func LoadFile(ctx context.Context, path string, opt Options) (*dataset.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	if opt.Delimiter == 0 {
		opt.Delimiter = sniffDelimiter(path)
	}
	return Load(ctx, f, opt, dataset.WithSource(path))
}

// Load parses CSV from r. The header must name the player, season and minutes
// columns. Every other non-descriptive column whose non-empty cells all parse
// as numbers becomes a metric; empty and NaN cells are missing values. A
// leading column with an empty header (a saved row index) is skipped.
func Load(ctx context.Context, r io.Reader, opt Options, dsOpts ...dataset.Option) (*dataset.Dataset, error) {
	defaults := DefaultOptions()
	if opt.PlayerColumn == "" {
		opt.PlayerColumn = defaults.PlayerColumn
	}
	if opt.SeasonColumn == "" {
		opt.SeasonColumn = defaults.SeasonColumn
	}
	if opt.MinutesColumn == "" {
		opt.MinutesColumn = defaults.MinutesColumn
	}
	if opt.Delimiter == 0 {
		opt.Delimiter = defaults.Delimiter
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comma = opt.Delimiter

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: no header", ErrEmptyDataset)
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}
	first := 0
	if len(header) > 0 && header[0] == "" {
		first = 1
	}

	index := make(map[string]int, len(header))
	for i := first; i < len(header); i++ {
		if _, dup := index[header[i]]; !dup {
			index[header[i]] = i
		}
	}
	required := []string{opt.PlayerColumn, opt.SeasonColumn, opt.MinutesColumn}
	for _, name := range required {
		if _, ok := index[name]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, name)
		}
	}

	var rows [][]string
	for line := 2; ; line++ {
		if line%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("load csv: %w", err)
			}
		}
		rec, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}
		if len(rec) < len(header) {
			tmp := make([]string, len(header))
			copy(tmp, rec)
			rec = tmp
		}
		rows = append(rows, rec)
	}
	if len(rows) == 0 {
		return nil, ErrEmptyDataset
	}

	keyCols := map[string]struct{}{opt.PlayerColumn: {}, opt.SeasonColumn: {}, opt.MinutesColumn: {}}
	descriptive := make(map[string]struct{}, len(opt.Descriptive))
	for _, name := range opt.Descriptive {
		descriptive[name] = struct{}{}
	}

	// Columns are classified over the whole file before any record is built.
	// A repeated header name keeps its first column only.
	var metricCols []int
	var extraCols []int
	for i := first; i < len(header); i++ {
		name := header[i]
		if name == "" || index[name] != i {
			continue
		}
		if _, ok := keyCols[name]; ok {
			continue
		}
		if _, ok := descriptive[name]; ok {
			extraCols = append(extraCols, i)
			continue
		}
		if numericColumn(rows, i) {
			metricCols = append(metricCols, i)
		} else {
			extraCols = append(extraCols, i)
		}
	}

	metricNames := make([]string, len(metricCols))
	for j, c := range metricCols {
		metricNames[j] = header[c]
	}

	pc, sc, mc := index[opt.PlayerColumn], index[opt.SeasonColumn], index[opt.MinutesColumn]
	records := make([]model.PlayerSeasonRecord, 0, len(rows))
	for n, rec := range rows {
		line := n + 2
		name := strings.TrimSpace(rec[pc])
		season := strings.TrimSpace(rec[sc])
		if name == "" || season == "" {
			return nil, fmt.Errorf("%w: line %d: empty %s or %s", ErrInvalidRow, line, opt.PlayerColumn, opt.SeasonColumn)
		}
		minutes, ok := parseCell(rec[mc])
		if !ok {
			return nil, fmt.Errorf("%w: line %d: %s %q is not a number", ErrInvalidRow, line, opt.MinutesColumn, rec[mc])
		}

		r := model.PlayerSeasonRecord{
			PlayerName:  name,
			Season:      normalizeSeason(season),
			Minutes:     minutes,
			Descriptive: make(map[string]string, len(extraCols)),
			Metrics:     make(map[string]float64, len(metricCols)),
		}
		for _, c := range extraCols {
			r.Descriptive[header[c]] = strings.TrimSpace(rec[c])
		}
		for j, c := range metricCols {
			if v, ok := parseCell(rec[c]); ok {
				r.Metrics[metricNames[j]] = v
			}
		}
		records = append(records, r)
	}

	return dataset.New(records, dataset.NewSchema(metricNames), dsOpts...), nil
}

// numericColumn reports whether every non-missing cell of column c parses.
func numericColumn(rows [][]string, c int) bool {
	for _, rec := range rows {
		v := strings.TrimSpace(rec[c])
		if isMissing(v) {
			continue
		}
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			return false
		}
	}
	return true
}

// parseCell returns the value of a numeric cell. Missing and non-finite
// cells report false.
func parseCell(s string) (float64, bool) {
	v := strings.TrimSpace(s)
	if isMissing(v) {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func isMissing(v string) bool {
	switch strings.ToLower(v) {
	case "", "nan", "na", "null":
		return true
	}
	return false
}

// normalizeSeason strips a float suffix written by some exporters ("2021.0").
func normalizeSeason(s string) string {
	if strings.HasSuffix(s, ".0") {
		if _, err := strconv.Atoi(strings.TrimSuffix(s, ".0")); err == nil {
			return strings.TrimSuffix(s, ".0")
		}
	}
	return s
}

func sniffDelimiter(path string) rune {
	if strings.HasSuffix(strings.ToLower(path), ".tsv") {
		return '\t'
	}
	return ','
}
