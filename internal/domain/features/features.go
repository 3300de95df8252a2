// Package features resolves a feature selection from explicit metric names
// and named subsets.
package features

import (
	"errors"
	"fmt"
	"sort"
)

// Subset names understood out of the box.
const (
	SubsetAdvanced    = "advanced"
	SubsetTraditional = "traditional"
)

// ErrUnknownSubset is returned when a request names a subset that is not
// registered.
var ErrUnknownSubset = errors.New("unknown feature subset")

// Advanced is the efficiency and shot-profile subset.
var Advanced = []string{
	"DEF_RATING", "OFF_RATING", "EFG_PCT", "TS_PCT", "PIE", "POSS",
	"OREB_PCT", "DREB_PCT",
	"PCT_PTS_2PT", "PCT_PTS_2PT_MR", "PCT_PTS_3PT", "PCT_PTS_PAINT",
	"PCT_AST_2PM", "PCT_UAST_2PM", "PCT_AST_3PM", "PCT_UAST_3PM",
	"PTS", "FGA", "FGM", "STL", "BLK",
	"AST_RATIO", "AST_PCT", "AST_TO",
}

// Traditional is the box-score subset.
var Traditional = []string{
	"PTS", "AST", "REB", "FGM", "FGA", "FG3M", "FG3A", "DREB", "OREB", "TOV", "STL", "BLK",
}

// Catalog maps subset names to their ordered metric lists.
type Catalog struct {
	subsets map[string][]string
}

// NewCatalog returns a catalog holding the built-in subsets plus extra.
// Entries in extra replace built-ins of the same name.
func NewCatalog(extra map[string][]string) *Catalog {
	c := &Catalog{subsets: map[string][]string{
		SubsetAdvanced:    append([]string(nil), Advanced...),
		SubsetTraditional: append([]string(nil), Traditional...),
	}}
	for name, metrics := range extra {
		if len(metrics) == 0 {
			continue
		}
		c.subsets[name] = append([]string(nil), metrics...)
	}
	return c
}

// Names returns the registered subset names, sorted.
func (c *Catalog) Names() []string {
	out := make([]string, 0, len(c.subsets))
	for name := range c.subsets {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Subset returns a copy of the metrics in the named subset.
func (c *Catalog) Subset(name string) ([]string, bool) {
	m, ok := c.subsets[name]
	if !ok {
		return nil, false
	}
	return append([]string(nil), m...), true
}

// Resolve builds the ordered feature selection. Explicit names come first,
// verbatim, so a name listed twice is left for schema validation to reject.
// Each subset follows in request order, skipping names already selected.
// When both explicit and subsets are empty, defaults is used.
func (c *Catalog) Resolve(explicit, subsets, defaults []string) ([]string, error) {
	out := append([]string(nil), explicit...)
	seen := make(map[string]struct{}, len(explicit))
	for _, n := range explicit {
		seen[n] = struct{}{}
	}
	add := func(names []string) {
		for _, n := range names {
			if _, ok := seen[n]; ok {
				continue
			}
			seen[n] = struct{}{}
			out = append(out, n)
		}
	}

	for _, s := range subsets {
		m, ok := c.subsets[s]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownSubset, s)
		}
		add(m)
	}
	if len(out) == 0 {
		add(defaults)
	}
	return out, nil
}
