package service_test

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	service "github.com/okian/hoopsim/internal/app"
	"github.com/okian/hoopsim/internal/domain/dataset"
	"github.com/okian/hoopsim/internal/domain/features"
	"github.com/okian/hoopsim/internal/domain/model"
	"github.com/okian/hoopsim/internal/domain/types"
	"github.com/okian/hoopsim/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
		panic(err)
	}
}

func floatPtr(v float64) *float64 { return &v }

func testDataset() *dataset.Dataset {
	metrics := []string{"OFF_RATING", "DEF_RATING", "AST_PCT", "EFG_PCT", "TS_PCT"}
	return dataset.New([]model.PlayerSeasonRecord{
		{PlayerName: "A", Season: "2020", Minutes: 40, Metrics: map[string]float64{"OFF_RATING": 1.1, "DEF_RATING": -0.2, "AST_PCT": 0.5, "EFG_PCT": 0.55, "TS_PCT": 0.4}},
		{PlayerName: "B", Season: "2020", Minutes: 30, Metrics: map[string]float64{"OFF_RATING": 0.9, "DEF_RATING": -0.1, "AST_PCT": 0.4, "EFG_PCT": 0.50, "TS_PCT": 0.3}},
		{PlayerName: "C", Season: "2020", Minutes: 10, Metrics: map[string]float64{"OFF_RATING": -1.0, "DEF_RATING": 0.8, "AST_PCT": -0.6, "EFG_PCT": 0.60, "TS_PCT": -0.2}},
		{PlayerName: "D", Season: "2020", Minutes: 28, Metrics: map[string]float64{"OFF_RATING": -0.5, "DEF_RATING": 1.2, "AST_PCT": -0.3, "EFG_PCT": -0.4, "TS_PCT": -0.9}},
		{PlayerName: "A", Season: "2021", Minutes: 35, Metrics: map[string]float64{"OFF_RATING": 1.3, "DEF_RATING": -0.3, "AST_PCT": 0.6, "EFG_PCT": 0.65, "TS_PCT": 0.5}},
		{PlayerName: "X", Season: "2021", Minutes: 31, Metrics: map[string]float64{"OFF_RATING": 0.1, "DEF_RATING": 0.1, "AST_PCT": 0.1, "EFG_PCT": 0.1, "TS_PCT": 0.1}},
		{PlayerName: "X", Season: "2021", Minutes: 32, Metrics: map[string]float64{"OFF_RATING": 0.2, "DEF_RATING": 0.2, "AST_PCT": 0.2, "EFG_PCT": 0.2, "TS_PCT": 0.2}},
	}, dataset.NewSchema(metrics), dataset.WithSource("memory"))
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it should report the documented defaults", func() {
			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, false)
			So(stats["defaultK"], ShouldEqual, 5)
			So(stats["maxK"], ShouldEqual, 50)
			So(stats["minutesFloor"], ShouldEqual, 25.0)
			So(stats["topN"], ShouldEqual, 6)
			So(stats["histogramBins"], ShouldEqual, 20)
			So(stats["defaultFeatures"], ShouldResemble, []string{"PTS", "AST", "BLK", "STL", "OREB", "DREB"})
		})
	})

	Convey("Given a box score table and no feature selection", t, func() {
		ctx := context.Background()
		box := []string{"PTS", "AST", "BLK", "STL", "OREB", "DREB", "TOV"}
		row := func(name string, minutes float64, v ...float64) model.PlayerSeasonRecord {
			m := make(map[string]float64, len(box))
			for i, f := range box {
				m[f] = v[i]
			}
			return model.PlayerSeasonRecord{PlayerName: name, Season: "2020", Minutes: minutes, Metrics: m}
		}
		ds := dataset.New([]model.PlayerSeasonRecord{
			row("A", 36, 1.2, 0.8, 0.1, 0.4, -0.2, 0.3, 0.5),
			row("B", 34, 1.0, 0.7, 0.2, 0.3, -0.1, 0.2, -0.9),
			row("C", 30, -0.8, -0.5, 0.9, -0.2, 1.1, 0.9, 0.1),
		}, dataset.NewSchema(box))
		svc := service.New(service.WithDataset(ds))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When asking for neighbors", func() {
			resp, err := svc.Neighbors(ctx, types.NeighborsRequest{PlayerName: "A", Season: "2020", K: 1})

			Convey("Then the six box score columns should be used", func() {
				So(err, ShouldBeNil)
				So(resp.Features, ShouldResemble, []string{"PTS", "AST", "BLK", "STL", "OREB", "DREB"})
				So(resp.Neighbors[0].PlayerName, ShouldEqual, "B")
			})
		})

		Convey("Then the feature catalog should report the same defaults", func() {
			resp, err := svc.Features(ctx)
			So(err, ShouldBeNil)
			So(resp.Defaults, ShouldResemble, []string{"PTS", "AST", "BLK", "STL", "OREB", "DREB"})
		})
	})

	Convey("Given a max k below the default k", t, func() {
		svc := service.New(service.WithDefaultK(10), service.WithMaxK(3))

		Convey("Then max k should be raised to the default", func() {
			So(svc.GetStats()["maxK"], ShouldEqual, 10)
		})
	})
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a service without a dataset", t, func() {
		svc := service.New()
		defer svc.Stop()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		Convey("When querying before start", func() {
			_, err := svc.Seasons(ctx)

			Convey("Then it should be unavailable", func() {
				So(errors.Is(err, service.ErrUnavailable), ShouldBeTrue)
				So(service.ErrorCode(err), ShouldEqual, service.CodeUnavailable)
			})
		})

		Convey("When started", func() {
			So(svc.Start(ctx), ShouldBeNil)

			Convey("Then queries should be unavailable until a snapshot is installed", func() {
				_, err := svc.Neighbors(ctx, types.NeighborsRequest{PlayerName: "A", Season: "2020"})
				So(service.ErrorCode(err), ShouldEqual, service.CodeUnavailable)
			})

			Convey("Then a reload without a path should fail as a load failure", func() {
				_, err := svc.Reload(ctx)
				So(errors.Is(err, service.ErrNoDatasetPath), ShouldBeTrue)
				So(service.ErrorCode(err), ShouldEqual, service.CodeLoadFailed)
			})

			Convey("Then stopping should mark it stopped", func() {
				svc.Stop()
				So(svc.GetStats()["started"], ShouldEqual, false)
			})
		})
	})
}

func TestService_Neighbors(t *testing.T) {
	Convey("Given a started service with a dataset", t, func() {
		ctx := context.Background()
		svc := service.New(
			service.WithDataset(testDataset()),
			service.WithDefaultK(2),
			service.WithMaxK(3),
			service.WithFeatureSubsets(map[string][]string{"shooting": {"EFG_PCT", "TS_PCT"}}),
			service.WithDefaultFeatures([]string{"OFF_RATING", "DEF_RATING", "AST_PCT", "EFG_PCT", "TS_PCT"}),
		)
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When asking with defaults", func() {
			resp, err := svc.Neighbors(ctx, types.NeighborsRequest{PlayerName: "A", Season: "2020", K: 2})

			Convey("Then the default features and floor should apply", func() {
				So(err, ShouldBeNil)
				So(resp.Features, ShouldResemble, []string{"OFF_RATING", "DEF_RATING", "AST_PCT", "EFG_PCT", "TS_PCT"})
				So(resp.MinMinutes, ShouldEqual, 25)
				So(len(resp.Neighbors), ShouldEqual, 2)
				So(resp.SnapshotID, ShouldNotBeEmpty)
				for _, n := range resp.Neighbors {
					So(n.PlayerName, ShouldNotEqual, "A")
					So(n.PlayerName, ShouldNotEqual, "C")
				}
			})
		})

		Convey("When a feature is requested twice", func() {
			_, err := svc.Neighbors(ctx, types.NeighborsRequest{
				PlayerName: "A", Season: "2020", K: 1, Features: []string{"EFG_PCT", "EFG_PCT"},
			})

			Convey("Then it should be a bad request", func() {
				So(errors.Is(err, dataset.ErrInvalidSelection), ShouldBeTrue)
				So(service.ErrorCode(err), ShouldEqual, service.CodeBadRequest)
			})
		})

		Convey("When a subset repeats an explicit feature", func() {
			resp, err := svc.Neighbors(ctx, types.NeighborsRequest{
				PlayerName: "A", Season: "2020", K: 1, Features: []string{"EFG_PCT"}, Subsets: []string{"shooting"},
			})

			Convey("Then the overlap should be merged", func() {
				So(err, ShouldBeNil)
				So(resp.Features, ShouldResemble, []string{"EFG_PCT", "TS_PCT"})
			})
		})

		Convey("When asking the single-feature scenario", func() {
			resp, err := svc.Neighbors(ctx, types.NeighborsRequest{
				PlayerName: "A", Season: "2020", K: 1, Features: []string{"EFG_PCT"},
			})

			Convey("Then B should be at distance 0", func() {
				So(err, ShouldBeNil)
				So(resp.Neighbors, ShouldResemble, []model.NeighborResult{{PlayerName: "B", Season: "2020", Distance: 0}})
			})
		})

		Convey("When k exceeds the configured maximum", func() {
			_, err := svc.Neighbors(ctx, types.NeighborsRequest{PlayerName: "A", Season: "2020", K: 4})

			Convey("Then it should be a bad request", func() {
				So(service.ErrorCode(err), ShouldEqual, service.CodeBadRequest)
			})
		})

		Convey("When the pool is smaller than k", func() {
			_, err := svc.Neighbors(ctx, types.NeighborsRequest{PlayerName: "A", Season: "2020", K: 3, MinMinutes: floatPtr(31)})

			Convey("Then it should report an insufficient pool", func() {
				So(service.ErrorCode(err), ShouldEqual, service.CodeInsufficientPool)
			})
		})

		Convey("When the subject key is duplicated", func() {
			_, err := svc.Neighbors(ctx, types.NeighborsRequest{PlayerName: "X", Season: "2021", K: 1})

			Convey("Then it should be ambiguous", func() {
				So(service.ErrorCode(err), ShouldEqual, service.CodeAmbiguousSubject)
			})
		})

		Convey("When the subject is unknown", func() {
			_, err := svc.Neighbors(ctx, types.NeighborsRequest{PlayerName: "Q", Season: "2021", K: 1})

			Convey("Then it should be not found", func() {
				So(service.ErrorCode(err), ShouldEqual, service.CodeNotFound)
			})
		})

		Convey("When a subset is unknown", func() {
			_, err := svc.Neighbors(ctx, types.NeighborsRequest{PlayerName: "A", Season: "2020", Subsets: []string{"nope"}})

			Convey("Then it should be a bad request", func() {
				So(errors.Is(err, features.ErrUnknownSubset), ShouldBeTrue)
				So(service.ErrorCode(err), ShouldEqual, service.CodeBadRequest)
			})
		})

		Convey("When the traditional subset names metrics the dataset lacks", func() {
			_, err := svc.Neighbors(ctx, types.NeighborsRequest{PlayerName: "A", Season: "2020", Subsets: []string{"traditional"}})

			Convey("Then the selection should be rejected", func() {
				So(errors.Is(err, dataset.ErrInvalidSelection), ShouldBeTrue)
			})
		})

		Convey("When the player is missing", func() {
			_, err := svc.Neighbors(ctx, types.NeighborsRequest{Season: "2020"})

			Convey("Then it should be a bad request", func() {
				So(errors.Is(err, service.ErrInvalidRequest), ShouldBeTrue)
			})
		})

		Convey("When the floor is negative", func() {
			_, err := svc.Neighbors(ctx, types.NeighborsRequest{PlayerName: "A", Season: "2020", MinMinutes: floatPtr(-1)})

			Convey("Then it should be a bad request", func() {
				So(errors.Is(err, service.ErrInvalidRequest), ShouldBeTrue)
			})
		})
	})
}

func TestService_Separation(t *testing.T) {
	Convey("Given a started service with a dataset", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithDataset(testDataset()), service.WithHistogramBins(5))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When ranking with defaults", func() {
			resp, err := svc.Separation(ctx, types.SeparationRequest{PlayerName: "A", Season: "2020"})

			Convey("Then every metric should be ranked, sorted by magnitude", func() {
				So(err, ShouldBeNil)
				So(len(resp.Metrics), ShouldEqual, 5)
				So(resp.Metrics[0].Metric, ShouldEqual, "OFF_RATING")
				for i := 1; i < len(resp.Metrics); i++ {
					So(resp.Metrics[i].Magnitude, ShouldBeLessThanOrEqualTo, resp.Metrics[i-1].Magnitude)
				}
				So(len(resp.Metrics[0].Summary.Histogram), ShouldEqual, 5)
			})

			Convey("Then the population should be the eligible season rows", func() {
				// A, B and D; C is under the floor.
				So(len(resp.Metrics[0].Summary.SampleValues), ShouldEqual, 3)
				So(resp.Metrics[0].Summary.Median, ShouldEqual, 0.9)
			})
		})

		Convey("When asking for fewer metrics and custom bins", func() {
			resp, err := svc.Separation(ctx, types.SeparationRequest{PlayerName: "A", Season: "2020", N: 2, Bins: 3})

			Convey("Then the request values should apply", func() {
				So(err, ShouldBeNil)
				So(len(resp.Metrics), ShouldEqual, 2)
				So(len(resp.Metrics[0].Summary.Histogram), ShouldEqual, 3)
			})
		})

		Convey("When the subject is below the floor", func() {
			resp, err := svc.Separation(ctx, types.SeparationRequest{PlayerName: "C", Season: "2020"})

			Convey("Then the empty answer should come with NotEligible", func() {
				So(service.ErrorCode(err), ShouldEqual, service.CodeNotEligible)
				So(resp.Metrics, ShouldNotBeNil)
				So(resp.Metrics, ShouldBeEmpty)
				So(resp.EmptyReason, ShouldEqual, model.EmptyNotEligible)
			})
		})

		Convey("When bins are out of range", func() {
			_, err := svc.Separation(ctx, types.SeparationRequest{PlayerName: "A", Season: "2020", Bins: 1000})

			Convey("Then it should be a bad request", func() {
				So(service.ErrorCode(err), ShouldEqual, service.CodeBadRequest)
			})
		})
	})
}

func TestService_Catalogs(t *testing.T) {
	Convey("Given a started service with a dataset", t, func() {
		ctx := context.Background()
		svc := service.New(
			service.WithDataset(testDataset()),
			service.WithFeatureSubsets(map[string][]string{"shooting": {"EFG_PCT", "TS_PCT"}}),
		)
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("Then seasons should be listed with the minutes range", func() {
			resp, err := svc.Seasons(ctx)
			So(err, ShouldBeNil)
			So(resp.Seasons, ShouldResemble, []string{"2020", "2021"})
			So(resp.MinutesMin, ShouldEqual, 10)
			So(resp.MinutesMax, ShouldEqual, 40)
		})

		Convey("Then players should be listed per season", func() {
			resp, err := svc.Players(ctx, "2021")
			So(err, ShouldBeNil)
			So(resp.Players, ShouldResemble, []string{"A", "X"})

			empty, err := svc.Players(ctx, "1999")
			So(err, ShouldBeNil)
			So(empty.Players, ShouldNotBeNil)
			So(empty.Players, ShouldBeEmpty)
		})

		Convey("Then features should include configured subsets", func() {
			resp, err := svc.Features(ctx)
			So(err, ShouldBeNil)
			So(resp.Metrics, ShouldHaveLength, 5)
			So(resp.Subsets, ShouldContainKey, "shooting")
			So(resp.Subsets, ShouldContainKey, "advanced")
			So(resp.Defaults, ShouldHaveLength, 6)
		})

		Convey("Then stats should describe the snapshot", func() {
			stats := svc.GetStats()
			So(stats["records"], ShouldEqual, 7)
			So(stats["distinctKeys"], ShouldEqual, 6)
			So(stats["duplicateKeys"], ShouldEqual, 1)
			So(stats["snapshotSource"], ShouldEqual, "memory")
			So(stats["snapshotsApplied"], ShouldEqual, int64(1))
		})
	})
}
