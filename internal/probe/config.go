package probe

import "time"

// Config holds configuration for a probe run.
type Config struct {
	BaseURL    string        // Base URL of the service
	Season     string        // Season to probe; empty picks the latest
	K          int           // Neighbors per query; 0 uses the service default
	N          int           // Metrics per separation query; 0 uses the service default
	MinMinutes *float64      // Minutes floor; nil uses the service default
	Workers    int           // Number of concurrent workers
	Timeout    time.Duration // HTTP request timeout
	Verbose    bool          // Log every violation as it is found
}

// Stats holds run statistics.
type Stats struct {
	Players           int
	NeighborQueries   int
	SeparationQueries int
	Answered          int
	Rejected          int // well-formed domain errors, e.g. not_eligible
	Failed            int // transport errors and unexpected statuses
	Violations        []string
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
}
