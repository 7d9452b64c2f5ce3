package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/matchmaker/internal/loadgen"
	"github.com/okian/matchmaker/pkg/logger"
)

const (
	defaultUsers        = 200
	defaultInteractions = 10_000
	defaultWorkers      = 2 // multiplier for runtime.NumCPU()
	defaultTimeout      = 30 * time.Second
	defaultSettle       = 2 * time.Minute
	defaultRunTimeout   = 10 * time.Minute
)

func main() {
	var (
		baseURL      = flag.String("url", "http://localhost:9080", "Base URL of the service")
		users        = flag.Int("users", defaultUsers, "Number of profiles to create")
		interactions = flag.Int("interactions", defaultInteractions, "Number of interactions to submit")
		workers      = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent submitters")
		timeout      = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		settle       = flag.Duration("settle", defaultSettle, "How long to wait for ingest to drain")
		seed         = flag.Uint64("seed", 1, "Generator seed")
		sample       = flag.Int("sample", 20, "Number of users whose recommendations are verified")
		top          = flag.Int("top", 50, "Number of leaderboard entries to fetch and verify")
		logFormat    = flag.String("log-format", "text", "Log format: text or json")
		verbose      = flag.Bool("verbose", false, "Log every failed submission")
	)
	flag.Parse()

	if err := logger.Init(logger.WithFormat(*logFormat)); err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize logging:", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultRunTimeout)
	defer cancel()

	cfg := &loadgen.Config{
		BaseURL:         *baseURL,
		Users:           *users,
		Interactions:    *interactions,
		Workers:         *workers,
		Timeout:         *timeout,
		SettleTimeout:   *settle,
		Seed:            *seed,
		RecommendSample: *sample,
		TopN:            *top,
		Verbose:         *verbose,
	}
	if _, err := loadgen.Run(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "load run failed", logger.Error(err))
		os.Exit(1)
	}
}
