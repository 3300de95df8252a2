package api

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	service "github.com/okian/hoopsim/internal/app"
	"github.com/okian/hoopsim/internal/domain/types"
)

// QueryHandler serves the similarity and separation queries.
type QueryHandler struct {
	deps Dependencies
}

// NewQueryHandler creates a new query handler.
func NewQueryHandler(deps Dependencies) *QueryHandler {
	return &QueryHandler{deps: deps}
}

// HandleNeighbors handles GET /neighbors requests.
func (h *QueryHandler) HandleNeighbors(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	req, err := parseNeighbors(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, service.CodeBadRequest, err)
		return
	}
	resp, err := h.deps.Neighbors(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleSeparation handles GET /separation requests. An answer with an
// empty reason is still a 200.
func (h *QueryHandler) HandleSeparation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	req, err := parseSeparation(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, service.CodeBadRequest, err)
		return
	}
	resp, err := h.deps.Separation(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func parseNeighbors(q url.Values) (types.NeighborsRequest, error) {
	req := types.NeighborsRequest{
		PlayerName: strings.TrimSpace(q.Get("player")),
		Season:     strings.TrimSpace(q.Get("season")),
		Features:   splitList(q["features"]),
		Subsets:    splitList(q["subsets"]),
	}
	var err error
	if req.MinMinutes, err = optionalFloat(q, "min_minutes"); err != nil {
		return req, err
	}
	if req.K, err = optionalInt(q, "k"); err != nil {
		return req, err
	}
	return req, nil
}

func parseSeparation(q url.Values) (types.SeparationRequest, error) {
	req := types.SeparationRequest{
		PlayerName: strings.TrimSpace(q.Get("player")),
		Season:     strings.TrimSpace(q.Get("season")),
	}
	var err error
	if req.MinMinutes, err = optionalFloat(q, "min_minutes"); err != nil {
		return req, err
	}
	if req.N, err = optionalInt(q, "n"); err != nil {
		return req, err
	}
	if req.Bins, err = optionalInt(q, "bins"); err != nil {
		return req, err
	}
	return req, nil
}

// splitList accepts both repeated parameters and comma separated values.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func optionalFloat(q url.Values, name string) (*float64, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be a number", ErrBadRequest, name)
	}
	return &v, nil
}

func optionalInt(q url.Values, name string) (int, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", ErrBadRequest, name)
	}
	return v, nil
}
