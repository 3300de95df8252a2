// Package types contains the request and response shapes exchanged between
// the service and its transports.
package types

import "github.com/okian/hoopsim/internal/domain/model"

// NeighborsRequest asks for the most similar player-seasons. Zero values
// select the configured defaults.
type NeighborsRequest struct {
	PlayerName string   `json:"player_name"`
	Season     string   `json:"season"`
	MinMinutes *float64 `json:"min_minutes,omitempty"`
	K          int      `json:"k,omitempty"`
	Features   []string `json:"features,omitempty"`
	Subsets    []string `json:"subsets,omitempty"`
}

// NeighborsResponse is the similarity answer.
type NeighborsResponse struct {
	Subject    model.Key              `json:"subject"`
	MinMinutes float64                `json:"min_minutes"`
	Features   []string               `json:"features"`
	Neighbors  []model.NeighborResult `json:"neighbors"`
	SnapshotID string                 `json:"snapshot_id"`
}

// SeparationRequest asks for the subject's most separated metrics.
type SeparationRequest struct {
	PlayerName string   `json:"player_name"`
	Season     string   `json:"season"`
	MinMinutes *float64 `json:"min_minutes,omitempty"`
	N          int      `json:"n,omitempty"`
	Bins       int      `json:"bins,omitempty"`
}

// SeparationResponse is the separation answer. Metrics is empty, never nil,
// when EmptyReason is set.
type SeparationResponse struct {
	Subject     model.Key               `json:"subject"`
	MinMinutes  float64                 `json:"min_minutes"`
	Metrics     []model.MetricDeviation `json:"metrics"`
	EmptyReason string                  `json:"empty_reason,omitempty"`
	SnapshotID  string                  `json:"snapshot_id"`
}

// SeasonsResponse lists the seasons and the minutes range of the dataset.
type SeasonsResponse struct {
	Seasons    []string `json:"seasons"`
	MinutesMin float64  `json:"minutes_min"`
	MinutesMax float64  `json:"minutes_max"`
}

// PlayersResponse lists the players of one season.
type PlayersResponse struct {
	Season  string   `json:"season"`
	Players []string `json:"players"`
}

// FeaturesResponse lists selectable metrics, named subsets and the default
// selection.
type FeaturesResponse struct {
	Metrics  []string            `json:"metrics"`
	Subsets  map[string][]string `json:"subsets"`
	Defaults []string            `json:"defaults"`
}

// ReloadResponse describes the snapshot installed by a reload.
type ReloadResponse struct {
	SnapshotID    string      `json:"snapshot_id"`
	Source        string      `json:"source"`
	Records       int         `json:"records"`
	Metrics       int         `json:"metrics"`
	DuplicateKeys []model.Key `json:"duplicate_keys"`
}
