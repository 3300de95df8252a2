package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/okian/hoopsim/internal/adapters/http/api"
	service "github.com/okian/hoopsim/internal/app"
	"github.com/okian/hoopsim/internal/domain/dataset"
	"github.com/okian/hoopsim/internal/domain/model"
	"github.com/okian/hoopsim/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

type mockDependencies struct {
	err      error
	distance float64

	neighborsReq  types.NeighborsRequest
	separationReq types.SeparationRequest
	playersSeason string
	reloads       int
}

func (m *mockDependencies) Neighbors(_ context.Context, req types.NeighborsRequest) (types.NeighborsResponse, error) {
	m.neighborsReq = req
	if m.err != nil {
		return types.NeighborsResponse{}, m.err
	}
	return types.NeighborsResponse{
		Subject:   model.Key{PlayerName: req.PlayerName, Season: req.Season},
		Features:  []string{"EFG_PCT"},
		Neighbors: []model.NeighborResult{{PlayerName: "B", Season: "2020", Distance: m.distance}},
	}, nil
}

func (m *mockDependencies) Separation(_ context.Context, req types.SeparationRequest) (types.SeparationResponse, error) {
	m.separationReq = req
	if m.err != nil {
		return types.SeparationResponse{Metrics: []model.MetricDeviation{}}, m.err
	}
	return types.SeparationResponse{
		Subject: model.Key{PlayerName: req.PlayerName, Season: req.Season},
		Metrics: []model.MetricDeviation{{Metric: "PTS", Magnitude: 2, Value: -2}},
	}, nil
}

func (m *mockDependencies) Seasons(context.Context) (types.SeasonsResponse, error) {
	return types.SeasonsResponse{Seasons: []string{"2020", "2021"}, MinutesMin: 10, MinutesMax: 40}, m.err
}

func (m *mockDependencies) Players(_ context.Context, season string) (types.PlayersResponse, error) {
	m.playersSeason = season
	return types.PlayersResponse{Season: season, Players: []string{"A", "B"}}, m.err
}

func (m *mockDependencies) Features(context.Context) (types.FeaturesResponse, error) {
	return types.FeaturesResponse{Metrics: []string{"EFG_PCT"}, Defaults: []string{"EFG_PCT"}}, m.err
}

func (m *mockDependencies) Reload(context.Context) (types.ReloadResponse, error) {
	m.reloads++
	return types.ReloadResponse{SnapshotID: "snap", Records: 4}, m.err
}

type mockStatsProvider struct {
	stats map[string]interface{}
}

func (m *mockStatsProvider) GetStats() map[string]interface{} {
	return m.stats
}

func newMux(deps *mockDependencies) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, &mockStatsProvider{stats: map[string]interface{}{"records": 4}}).Register(context.Background(), mux)
	return mux
}

func serve(mux *http.ServeMux, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func decodeError(w *httptest.ResponseRecorder) map[string]string {
	var body map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return body
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		deps := &mockDependencies{}
		mux := newMux(deps)

		Convey("Then health should expose metrics", func() {
			w := serve(mux, http.MethodGet, "/healthz")
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("Then stats should be served as JSON", func() {
			w := serve(mux, http.MethodGet, "/stats")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldContainSubstring, "application/json")
			So(w.Body.String(), ShouldContainSubstring, `"records":4`)
		})

		Convey("Then every response should carry a request id", func() {
			w := serve(mux, http.MethodGet, "/seasons")
			So(w.Header().Get(api.RequestIDHeader), ShouldNotBeEmpty)
		})

		Convey("Then an incoming request id should be echoed", func() {
			req := httptest.NewRequest(http.MethodGet, "/seasons", nil)
			req.Header.Set(api.RequestIDHeader, "abc-123")
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			So(w.Header().Get(api.RequestIDHeader), ShouldEqual, "abc-123")
		})

		Convey("Then unknown paths should be 404", func() {
			w := serve(mux, http.MethodGet, "/unknown")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Then wrong methods should be 404", func() {
			So(serve(mux, http.MethodPost, "/neighbors").Code, ShouldEqual, http.StatusNotFound)
			So(serve(mux, http.MethodGet, "/admin/reload").Code, ShouldEqual, http.StatusNotFound)
			So(deps.reloads, ShouldEqual, 0)
		})
	})
}

func TestWriteJSON_EncodeFailure(t *testing.T) {
	Convey("Given a result that cannot be encoded as JSON", t, func() {
		deps := &mockDependencies{distance: math.Inf(1)}
		w := serve(newMux(deps), http.MethodGet, "/neighbors?player=A&season=2020")

		Convey("Then the response should be an internal error, not an empty 200", func() {
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
			So(w.Header().Get("Content-Type"), ShouldContainSubstring, "application/json")
			So(decodeError(w)["code"], ShouldEqual, string(service.CodeInternal))
		})
	})
}

func TestQueryHandler_HandleNeighbors(t *testing.T) {
	Convey("Given the neighbors endpoint", t, func() {
		deps := &mockDependencies{}
		mux := newMux(deps)

		Convey("When all parameters are supplied", func() {
			w := serve(mux, http.MethodGet,
				"/neighbors?player=A&season=2020&min_minutes=12.5&k=3&features=EFG_PCT,%20TS_PCT&features=AST_PCT&subsets=traditional")

			Convey("Then they should be parsed into the request", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				req := deps.neighborsReq
				So(req.PlayerName, ShouldEqual, "A")
				So(req.Season, ShouldEqual, "2020")
				So(req.MinMinutes, ShouldNotBeNil)
				So(*req.MinMinutes, ShouldEqual, 12.5)
				So(req.K, ShouldEqual, 3)
				So(req.Features, ShouldResemble, []string{"EFG_PCT", "TS_PCT", "AST_PCT"})
				So(req.Subsets, ShouldResemble, []string{"traditional"})
			})

			Convey("Then the response should list the neighbors", func() {
				var resp types.NeighborsResponse
				So(json.Unmarshal(w.Body.Bytes(), &resp), ShouldBeNil)
				So(len(resp.Neighbors), ShouldEqual, 1)
				So(resp.Neighbors[0].PlayerName, ShouldEqual, "B")
			})
		})

		Convey("When optional parameters are omitted", func() {
			w := serve(mux, http.MethodGet, "/neighbors?player=A&season=2020")

			Convey("Then zero values should select the defaults", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.neighborsReq.MinMinutes, ShouldBeNil)
				So(deps.neighborsReq.K, ShouldEqual, 0)
				So(deps.neighborsReq.Features, ShouldBeNil)
			})
		})

		Convey("When k is not a number", func() {
			w := serve(mux, http.MethodGet, "/neighbors?player=A&season=2020&k=many")

			Convey("Then the request should be rejected before the service", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w)["code"], ShouldEqual, service.CodeBadRequest)
				So(deps.neighborsReq.PlayerName, ShouldBeEmpty)
			})
		})

		Convey("When min_minutes is not a number", func() {
			w := serve(mux, http.MethodGet, "/neighbors?player=A&season=2020&min_minutes=lots")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestQueryHandler_ErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{&dataset.AmbiguousSubjectError{Key: model.Key{PlayerName: "Z", Season: "2020"}}, http.StatusNotFound, service.CodeNotFound},
		{&dataset.AmbiguousSubjectError{Key: model.Key{PlayerName: "A", Season: "2020"}, Matches: 2}, http.StatusConflict, service.CodeAmbiguousSubject},
		{&dataset.NotEligibleError{Minutes: 10, MinutesFloor: 25}, http.StatusUnprocessableEntity, service.CodeNotEligible},
		{&dataset.InsufficientPoolError{Requested: 5, Available: 2}, http.StatusUnprocessableEntity, service.CodeInsufficientPool},
		{&dataset.MissingFeatureValueError{Feature: "TS_PCT"}, http.StatusUnprocessableEntity, service.CodeMissingFeatureValue},
		{&dataset.SelectionError{Feature: "NOPE", Reason: "is not a metric"}, http.StatusBadRequest, service.CodeBadRequest},
		{fmt.Errorf("%w: no snapshot", service.ErrUnavailable), http.StatusServiceUnavailable, service.CodeUnavailable},
		{context.Canceled, http.StatusServiceUnavailable, service.CodeCanceled},
		{fmt.Errorf("boom"), http.StatusInternalServerError, service.CodeInternal},
	}

	Convey("Given service errors of every kind", t, func() {
		for _, tc := range cases {
			deps := &mockDependencies{err: tc.err}
			mux := newMux(deps)

			Convey(fmt.Sprintf("When neighbors fails with %v", tc.err), func() {
				w := serve(mux, http.MethodGet, "/neighbors?player=A&season=2020")

				Convey("Then status and code should match the error kind", func() {
					So(w.Code, ShouldEqual, tc.status)
					body := decodeError(w)
					So(body["code"], ShouldEqual, tc.code)
					So(body["message"], ShouldEqual, tc.err.Error())
				})
			})
		}
	})
}

func TestQueryHandler_HandleSeparation(t *testing.T) {
	Convey("Given the separation endpoint", t, func() {
		deps := &mockDependencies{}
		mux := newMux(deps)

		Convey("When n and bins are supplied", func() {
			w := serve(mux, http.MethodGet, "/separation?player=A&season=2020&n=3&bins=10&min_minutes=0")

			Convey("Then the ranked metrics should be returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.separationReq.N, ShouldEqual, 3)
				So(deps.separationReq.Bins, ShouldEqual, 10)
				So(*deps.separationReq.MinMinutes, ShouldEqual, 0)

				var resp types.SeparationResponse
				So(json.Unmarshal(w.Body.Bytes(), &resp), ShouldBeNil)
				So(resp.Metrics[0].Metric, ShouldEqual, "PTS")
			})
		})

		Convey("When bins is malformed", func() {
			w := serve(mux, http.MethodGet, "/separation?player=A&season=2020&bins=x")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the subject is below the floor", func() {
			deps.err = &dataset.NotEligibleError{Minutes: 10, MinutesFloor: 25}
			w := serve(mux, http.MethodGet, "/separation?player=C&season=2020")
			So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
			So(decodeError(w)["code"], ShouldEqual, service.CodeNotEligible)
		})
	})
}

func TestCatalogAndAdminHandlers(t *testing.T) {
	Convey("Given the catalog and admin endpoints", t, func() {
		deps := &mockDependencies{}
		mux := newMux(deps)

		Convey("Then seasons should include the minutes range", func() {
			w := serve(mux, http.MethodGet, "/seasons")
			var resp types.SeasonsResponse
			So(json.Unmarshal(w.Body.Bytes(), &resp), ShouldBeNil)
			So(resp.Seasons, ShouldResemble, []string{"2020", "2021"})
			So(resp.MinutesMax, ShouldEqual, 40)
		})

		Convey("Then players should forward the season", func() {
			w := serve(mux, http.MethodGet, "/players?season=2021")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.playersSeason, ShouldEqual, "2021")
		})

		Convey("Then features should be listed", func() {
			w := serve(mux, http.MethodGet, "/features")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "EFG_PCT")
		})

		Convey("Then a reload should be triggered by POST", func() {
			w := serve(mux, http.MethodPost, "/admin/reload")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.reloads, ShouldEqual, 1)
			So(w.Body.String(), ShouldContainSubstring, `"snapshot_id":"snap"`)
		})

		Convey("Then a failed reload should report load_failed", func() {
			deps.err = fmt.Errorf("%w: bad file", service.ErrLoad)
			w := serve(mux, http.MethodPost, "/admin/reload")
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
			So(decodeError(w)["code"], ShouldEqual, service.CodeLoadFailed)
		})
	})
}
