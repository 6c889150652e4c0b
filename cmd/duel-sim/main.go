package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/gifduel/internal/simulate"
)

const (
	defaultWorkers   = 2 // multiplier for runtime.NumCPU()
	defaultUndoRate  = 0.15
	defaultRetryRate = 0.1
	defaultRunTime   = 10 * time.Minute
)

func main() {
	var (
		baseURL   = flag.String("url", simulate.DefaultBaseURL, "Base URL of the service")
		sessions  = flag.Int("sessions", simulate.DefaultSessions, "Number of sessions to play")
		actions   = flag.Int("actions", simulate.DefaultActions, "Votes and undos per session")
		workers   = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Sessions in flight at once")
		theme     = flag.String("theme", "", "Theme for every session (default: server default)")
		undoRate  = flag.Float64("undo-rate", defaultUndoRate, "Fraction of actions that are undos")
		retryRate = flag.Float64("retry-rate", defaultRetryRate, "Fraction of applied votes re-sent with the same request ID")
		seed      = flag.Int64("seed", 0, "Seed for action selection (default: time-based)")
		timeout   = flag.Duration("timeout", simulate.DefaultTimeout, "HTTP request timeout")
		logFile   = flag.String("log", "", "Log file for simulator output (default: duel_sim_TIMESTAMP.log)")
		verbose   = flag.Bool("verbose", false, "Log every verified session")
		help      = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		simulate.ShowHelp()
		return
	}

	closer, err := simulate.SetupLogging(*logFile)
	if err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer closer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTime)
	defer cancel()

	cfg := &simulate.Config{
		BaseURL:   *baseURL,
		Sessions:  *sessions,
		Actions:   *actions,
		Workers:   *workers,
		Theme:     *theme,
		UndoRate:  *undoRate,
		RetryRate: *retryRate,
		Timeout:   *timeout,
		Seed:      *seed,
		Verbose:   *verbose,
	}
	if _, err := simulate.Run(ctx, cfg); err != nil {
		os.Stderr.WriteString("Simulation failed: " + err.Error() + "\n")
		cancel()
		_ = closer.Close()
		os.Exit(1)
	}
}
