package repository_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/hoopsim/internal/adapters/repository"
	"github.com/okian/hoopsim/internal/domain/dataset"
	"github.com/okian/hoopsim/internal/domain/model"
)

func snapshot(n int) *dataset.Dataset {
	records := make([]model.PlayerSeasonRecord, n)
	for i := range records {
		records[i] = model.PlayerSeasonRecord{
			PlayerName: string(rune('A' + i)),
			Season:     "2020",
			Minutes:    30,
			Metrics:    map[string]float64{"PTS": float64(i)},
		}
	}
	return dataset.New(records, dataset.NewSchema([]string{"PTS"}), dataset.WithSource("test"))
}

func TestSnapshotStore(t *testing.T) {
	Convey("Given an empty snapshot store", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		store := repository.NewSnapshotStore(ctx, repository.WithMetricsUpdateInterval(10*time.Millisecond))
		defer store.Close()

		var _ repository.Store = store

		Convey("Then reads should report no snapshot", func() {
			_, err := store.Current(ctx)
			So(errors.Is(err, repository.ErrNoSnapshot), ShouldBeTrue)
			_, err = store.Info(ctx)
			So(errors.Is(err, repository.ErrNoSnapshot), ShouldBeTrue)
			So(store.Swaps(), ShouldEqual, 0)
		})

		Convey("When swapping in nil", func() {
			_, err := store.Swap(ctx, nil)

			Convey("Then it should be refused", func() {
				So(errors.Is(err, repository.ErrNilSnapshot), ShouldBeTrue)
			})
		})

		Convey("When a snapshot is installed", func() {
			first := snapshot(3)
			prev, err := store.Swap(ctx, first)

			Convey("Then it should become current", func() {
				So(err, ShouldBeNil)
				So(prev, ShouldBeNil)
				cur, err := store.Current(ctx)
				So(err, ShouldBeNil)
				So(cur, ShouldEqual, first)

				info, err := store.Info(ctx)
				So(err, ShouldBeNil)
				So(info.ID, ShouldEqual, first.ID())
				So(info.Records, ShouldEqual, 3)
				So(info.Distinct, ShouldEqual, 3)
				So(info.Metrics, ShouldEqual, 1)
				So(info.Source, ShouldEqual, "test")
			})

			Convey("When it is replaced", func() {
				held, _ := store.Current(ctx)
				second := snapshot(5)
				prev, err := store.Swap(ctx, second)

				Convey("Then the old snapshot should be returned and stay intact", func() {
					So(err, ShouldBeNil)
					So(prev, ShouldEqual, first)
					So(held.Len(), ShouldEqual, 3)
					info, err := store.Info(ctx)
					So(err, ShouldBeNil)
					So(info.Records, ShouldEqual, 5)
					So(store.Swaps(), ShouldEqual, 2)
				})
			})
		})

		Convey("When readers race a writer", func() {
			_, _ = store.Swap(ctx, snapshot(1))
			var wg sync.WaitGroup
			bad := make(chan int, 64)
			for r := 0; r < 8; r++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for i := 0; i < 200; i++ {
						ds, err := store.Current(ctx)
						if err != nil {
							bad <- -1
							return
						}
						if n := ds.Len(); n != 1 && n != 4 {
							bad <- n
							return
						}
					}
				}()
			}
			for i := 0; i < 50; i++ {
				if i%2 == 0 {
					_, _ = store.Swap(ctx, snapshot(4))
				} else {
					_, _ = store.Swap(ctx, snapshot(1))
				}
			}
			wg.Wait()
			close(bad)

			Convey("Then every read should see a whole snapshot", func() {
				So(len(bad), ShouldEqual, 0)
			})
		})

		Convey("When closed twice", func() {
			Convey("Then it should not panic", func() {
				So(store.Close(), ShouldBeNil)
				So(store.Close(), ShouldBeNil)
			})
		})
	})
}
