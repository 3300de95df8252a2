// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	service "github.com/okian/hoopsim/internal/app"
	"github.com/okian/hoopsim/internal/domain/types"
	"github.com/okian/hoopsim/pkg/metrics"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	Neighbors(ctx context.Context, req types.NeighborsRequest) (types.NeighborsResponse, error)
	Separation(ctx context.Context, req types.SeparationRequest) (types.SeparationResponse, error)

	// Catalog reads.
	Seasons(ctx context.Context) (types.SeasonsResponse, error)
	Players(ctx context.Context, season string) (types.PlayersResponse, error)
	Features(ctx context.Context) (types.FeaturesResponse, error)

	// Reload re-reads the configured dataset and swaps the snapshot.
	Reload(ctx context.Context) (types.ReloadResponse, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	queryHandler   *QueryHandler
	catalogHandler *CatalogHandler
	adminHandler   *AdminHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(statsProvider),
		queryHandler:   NewQueryHandler(deps),
		catalogHandler: NewCatalogHandler(deps),
		adminHandler:   NewAdminHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	route := func(path, endpoint string, h http.HandlerFunc) {
		mux.HandleFunc(path, RequestIDMiddleware(MetricsMiddleware(h, endpoint)))
	}
	route("/healthz", "healthz", s.healthHandler.HandleHealth)
	route("/stats", "stats", s.statsHandler.HandleStats)
	route("/neighbors", "neighbors", s.queryHandler.HandleNeighbors)
	route("/separation", "separation", s.queryHandler.HandleSeparation)
	route("/seasons", "seasons", s.catalogHandler.HandleSeasons)
	route("/players", "players", s.catalogHandler.HandlePlayers)
	route("/features", "features", s.catalogHandler.HandleFeatures)
	route("/admin/reload", "reload", s.adminHandler.HandleReload)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeJSON encodes v before writing the header, so a value that cannot be
// encoded becomes a 500 instead of an empty success.
func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		metrics.RecordErrorByComponent("api", "encode")
		status = http.StatusInternalServerError
		body, _ = json.Marshal(errorResponse{Code: service.CodeInternal, Message: fmt.Sprintf("encode response: %v", err)})
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
