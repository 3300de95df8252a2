package probe

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/okian/hoopsim/internal/domain/model"
	"github.com/okian/hoopsim/internal/domain/types"
	"github.com/okian/hoopsim/pkg/logger"
)

// Run probes every player of one season with a similarity and a separation
// query and verifies the answers. It returns ErrViolations when any
// answer breaks an invariant.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	log := logger.Named("probe")
	client := newHTTPClient(config.BaseURL, config.Timeout)

	log.Info(ctx, "starting hoopsim probe",
		logger.String("baseURL", config.BaseURL),
		logger.String("season", config.Season),
		logger.Int("workers", config.Workers),
		logger.Duration("timeout", config.Timeout))

	if err := checkServiceHealth(ctx, client); err != nil {
		return stats, err
	}

	season, err := resolveSeason(ctx, client, config.Season)
	if err != nil {
		return stats, err
	}

	var players types.PlayersResponse
	status, eb, err := client.getJSON(ctx, "/players", url.Values{"season": {season}}, &players)
	if err != nil {
		return stats, err
	}
	if status != http.StatusOK {
		return stats, fmt.Errorf("%w: /players %d %s", ErrStatus, status, eb.Code)
	}
	if len(players.Players) == 0 {
		return stats, fmt.Errorf("%w: season %s", ErrNoPlayers, season)
	}
	stats.Players = len(players.Players)

	probeSeason(ctx, client, config, season, players.Players, stats)

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, log, stats)

	switch {
	case len(stats.Violations) > 0:
		return stats, fmt.Errorf("%w: %d", ErrViolations, len(stats.Violations))
	case stats.Failed > 0:
		return stats, fmt.Errorf("%w: %d requests failed", ErrStatus, stats.Failed)
	}
	log.Info(ctx, "probe completed successfully")
	return stats, nil
}

func checkServiceHealth(ctx context.Context, client *httpClient) error {
	status, _, err := client.getJSON(ctx, "/healthz", nil, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnhealthy, status)
	}
	return nil
}

// resolveSeason returns season, or the latest season the service knows.
func resolveSeason(ctx context.Context, client *httpClient, season string) (string, error) {
	if season != "" {
		return season, nil
	}
	var seasons types.SeasonsResponse
	status, eb, err := client.getJSON(ctx, "/seasons", nil, &seasons)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("%w: /seasons %d %s", ErrStatus, status, eb.Code)
	}
	if len(seasons.Seasons) == 0 {
		return "", fmt.Errorf("%w: dataset has no seasons", ErrNoPlayers)
	}
	return seasons.Seasons[len(seasons.Seasons)-1], nil
}

// outcome of one query.
type outcome struct {
	answered   bool
	rejected   bool
	violations []string
}

func probeSeason(ctx context.Context, client *httpClient, config *Config, season string, players []string, stats *Stats) {
	workers := config.Workers
	if workers < 1 {
		workers = 1
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	record := func(o outcome, neighbors bool) {
		mu.Lock()
		defer mu.Unlock()
		if neighbors {
			stats.NeighborQueries++
		} else {
			stats.SeparationQueries++
		}
		switch {
		case o.answered:
			stats.Answered++
		case o.rejected:
			stats.Rejected++
		default:
			stats.Failed++
		}
		stats.Violations = append(stats.Violations, o.violations...)
	}

	playerChan := make(chan string, workers*2)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for name := range playerChan {
				key := model.Key{PlayerName: name, Season: season}
				record(queryNeighbors(ctx, client, config, key), true)
				record(querySeparation(ctx, client, config, key), false)
			}
		}()
	}

	go func() {
		defer close(playerChan)
		for _, name := range players {
			select {
			case <-ctx.Done():
				return
			case playerChan <- name:
			}
		}
	}()

	wg.Wait()

	if config.Verbose {
		for _, v := range stats.Violations {
			logger.Get().Warn(ctx, "violation", logger.String("detail", v))
		}
	}
}

func subjectQuery(config *Config, key model.Key) url.Values {
	q := url.Values{"player": {key.PlayerName}, "season": {key.Season}}
	if config.MinMinutes != nil {
		q.Set("min_minutes", strconv.FormatFloat(*config.MinMinutes, 'f', -1, 64))
	}
	return q
}

func queryNeighbors(ctx context.Context, client *httpClient, config *Config, key model.Key) outcome {
	q := subjectQuery(config, key)
	if config.K > 0 {
		q.Set("k", strconv.Itoa(config.K))
	}
	var resp types.NeighborsResponse
	status, _, err := client.getJSON(ctx, "/neighbors", q, &resp)
	if err != nil {
		return outcome{}
	}
	if status != http.StatusOK {
		return outcome{rejected: isRejection(status)}
	}
	return outcome{answered: true, violations: checkNeighbors(key, config.K, resp)}
}

func querySeparation(ctx context.Context, client *httpClient, config *Config, key model.Key) outcome {
	q := subjectQuery(config, key)
	if config.N > 0 {
		q.Set("n", strconv.Itoa(config.N))
	}
	var resp types.SeparationResponse
	status, _, err := client.getJSON(ctx, "/separation", q, &resp)
	if err != nil {
		return outcome{}
	}
	if status != http.StatusOK {
		return outcome{rejected: isRejection(status)}
	}
	return outcome{answered: true, violations: checkSeparation(key, config.N, resp)}
}

// isRejection reports statuses the service uses for well-formed domain
// errors: unknown or duplicated subjects and ineligible subjects or pools.
func isRejection(status int) bool {
	return status == http.StatusNotFound || status == http.StatusConflict || status == http.StatusUnprocessableEntity
}

func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var qps float64
	if stats.Duration > 0 {
		qps = float64(stats.NeighborQueries+stats.SeparationQueries) / stats.Duration.Seconds()
	}
	log.Info(ctx, "final statistics",
		logger.Int("players", stats.Players),
		logger.Int("neighborQueries", stats.NeighborQueries),
		logger.Int("separationQueries", stats.SeparationQueries),
		logger.Int("answered", stats.Answered),
		logger.Int("rejected", stats.Rejected),
		logger.Int("failed", stats.Failed),
		logger.Int("violations", len(stats.Violations)),
		logger.Duration("duration", stats.Duration),
		logger.Float64("queriesPerSecond", qps))
}
