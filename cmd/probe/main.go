package main

import (
	"context"
	"flag"
	"math"
	"os"
	"runtime"
	"time"

	"github.com/okian/hoopsim/internal/probe"
)

// Default configuration constants.
const (
	defaultWorkers      = 2 // multiplier for runtime.NumCPU()
	defaultTimeout      = 30 * time.Second
	defaultProbeTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		season     = flag.String("season", "", "Season to probe (default: the latest season)")
		k          = flag.Int("k", 0, "Neighbors per query (default: service default)")
		n          = flag.Int("n", 0, "Metrics per separation query (default: service default)")
		minMinutes = flag.Float64("min-minutes", math.NaN(), "Minutes floor (default: service default)")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		logFile    = flag.String("log", "", "Also write logs to this file")
		format     = flag.String("format", "text", "Log format: text or json")
		verbose    = flag.Bool("verbose", false, "Log each violation")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		probe.ShowHelp()
		return
	}

	closer, err := probe.SetupLogging(*logFile, *format, *verbose)
	if err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer closer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), defaultProbeTimeout)
	defer cancel()

	config := &probe.Config{
		BaseURL: *baseURL,
		Season:  *season,
		K:       *k,
		N:       *n,
		Workers: *workers,
		Timeout: *timeout,
		Verbose: *verbose,
	}
	if !math.IsNaN(*minMinutes) {
		config.MinMinutes = minMinutes
	}

	if _, err := probe.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Probe failed: " + err.Error() + "\n")
		cancel()
		os.Exit(1)
	}
}
