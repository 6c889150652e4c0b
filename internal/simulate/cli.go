package simulate

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/okian/gifduel/pkg/logger"
)

const logFilePermission = 0600

// SetupLogging sends log output to stdout and to logFile. A blank logFile
// gets a timestamped name. The returned closer releases the file.
func SetupLogging(logFile string) (io.Closer, error) {
	if logFile == "" {
		logFile = "duel_sim_" + time.Now().Format("20060102_150405") + ".log"
	}
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}
	if err := logger.InitWith(io.MultiWriter(os.Stdout, file), logger.FormatText); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return file, nil
}

// ShowHelp prints usage information for the simulator.
func ShowHelp() {
	os.Stdout.WriteString(`GIF Duel Simulator
==================

Plays concurrent duel sessions against a running server and verifies that
every session's score is the tally of its vote history.

Usage:
  go run ./cmd/duel-sim [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:8080")
  -sessions int
        Number of sessions to play (default 50)
  -actions int
        Votes and undos per session (default 40)
  -workers int
        Sessions in flight at once (default CPU cores * 2)
  -theme string
        Theme for every session (default: server default)
  -undo-rate float
        Fraction of actions that are undos (default 0.15)
  -retry-rate float
        Fraction of applied votes re-sent with the same request ID (default 0.1)
  -seed int
        Seed for action selection (default: time-based)
  -timeout duration
        HTTP request timeout (default 30s)
  -log string
        Log file for simulator output (default: duel_sim_TIMESTAMP.log)
  -verbose
        Log every verified session
  -help
        Show this help message

Examples:
  # Play with default settings
  go run ./cmd/duel-sim

  # Heavier run against another host
  go run ./cmd/duel-sim -sessions 500 -workers 32 -url http://duel.internal:8080

  # Reproducible run
  go run ./cmd/duel-sim -seed 42 -verbose
`)
}
