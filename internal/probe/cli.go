package probe

import (
	"fmt"
	"io"
	"os"

	"github.com/okian/hoopsim/pkg/logger"
)

const logFilePermission = 0o600

// SetupLogging configures the logger to write to stdout and, when logFile is
// set, to that file as well. It returns a closer for the file.
func SetupLogging(logFile, format string, verbose bool) (io.Closer, error) {
	var w io.Writer = os.Stdout
	var closer io.Closer = nopCloser{}
	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
		if err != nil {
			return nil, fmt.Errorf("failed to create log file: %w", err)
		}
		w = io.MultiWriter(os.Stdout, file)
		closer = file
	}
	if err := logger.Init(logger.WithWriter(w), logger.WithFormat(format)); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		_ = logger.SetLevelString("debug")
	}
	return closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// ShowHelp prints usage information for the probe.
func ShowHelp() {
	os.Stdout.WriteString(`hoopsim probe
=============

Queries every player of a season against a running hoopsim service and
verifies the answers: no neighbor shares the subject's name, distances lie in
[0, 2] and ascend, separation magnitudes are |value| and descend.

Usage:
  go run ./cmd/probe [options]

Options:
  -url string          Base URL of the service (default "http://localhost:9080")
  -season string       Season to probe (default: the latest season)
  -k int               Neighbors per query (default: service default)
  -n int               Metrics per separation query (default: service default)
  -min-minutes float   Minutes floor (default: service default)
  -workers int         Number of concurrent workers (default CPU cores * 2)
  -timeout duration    HTTP request timeout (default 30s)
  -log string          Also write logs to this file
  -format string       Log format: text or json (default "text")
  -verbose             Log each violation
  -help                Show this help message
`)
}
