// Package model contains domain models passed between layers.
package model

import "fmt"

// Key identifies one player-season observation.
type Key struct {
	PlayerName string `json:"player_name"`
	Season     string `json:"season"`
}

func (k Key) String() string {
	return fmt.Sprintf("%s (%s)", k.PlayerName, k.Season)
}

// PlayerSeasonRecord is one row of the dataset: a player's aggregated
// statistics for one season.
type PlayerSeasonRecord struct {
	PlayerName string
	Season     string
	Minutes    float64 // minutes played, the eligibility attribute

	// Descriptive holds non-feature columns (team id, games played, W/L).
	// They never take part in distance or deviation computations.
	Descriptive map[string]string

	// Metrics maps feature name to its pre-scaled value. A metric absent
	// from the map is a missing value.
	Metrics map[string]float64
}

// Key returns the (player, season) identity of the record.
func (r PlayerSeasonRecord) Key() Key {
	return Key{PlayerName: r.PlayerName, Season: r.Season}
}

// Metric returns the value of name and whether it is present.
func (r PlayerSeasonRecord) Metric(name string) (float64, bool) {
	v, ok := r.Metrics[name]
	return v, ok
}

// Query identifies the subject record, the minutes floor that defines the
// eligible pool, and the ordered feature selection used for similarity.
// Separation ignores Features.
type Query struct {
	Key
	MinutesFloor float64
	Features     []string
}
