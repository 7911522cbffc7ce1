package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/Vodeneev/linecompare/internal/parser/parsers"
	"github.com/Vodeneev/linecompare/internal/pkg/config"
	"github.com/Vodeneev/linecompare/internal/pkg/export"
	"github.com/Vodeneev/linecompare/internal/pkg/models"
	"github.com/Vodeneev/linecompare/internal/pkg/performance"
	"github.com/Vodeneev/linecompare/internal/pkg/snapshot"
	"github.com/Vodeneev/linecompare/internal/pkg/storage"
	"github.com/Vodeneev/linecompare/internal/poller"

	_ "github.com/Vodeneev/linecompare/internal/parser/parsers/all"
)

func main() {
	configPath := flag.String("config", "configs/local.yaml", "Path to config file")
	fromRedis := flag.Bool("from-redis", false, "Print the snapshot last published to redis instead of fetching")
	asJSON := flag.Bool("json", false, "Print JSON instead of the text table")
	timeout := flag.Duration("timeout", 2*time.Minute, "Overall timeout")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var snap *models.Snapshot
	if *fromRedis {
		snap, err = latestFromRedis(ctx, &cfg.Redis)
	} else {
		snap, err = fetchOnce(ctx, cfg)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		err = enc.Encode(export.Build(snap, nil, cfg.Server.HighlightTTL))
	} else {
		err = export.WriteTable(os.Stdout, snap)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write output: %v\n", err)
		os.Exit(1)
	}
}

func fetchOnce(ctx context.Context, cfg *config.Config) (*models.Snapshot, error) {
	producers, err := parsers.Build(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build producers: %w", err)
	}
	defer parsers.CloseAll(producers)

	fmt.Fprintf(os.Stderr, "Fetching %v...\n", cfg.Poller.EnabledSources)
	p := poller.New(producers, snapshot.NewStore(), poller.Options{
		FetchTimeout: cfg.Poller.FetchTimeout,
		MaxParallel:  cfg.Poller.MaxParallelFetch,
		Reference:    cfg.Poller.Reference,
		Sources:      cfg.Poller.EnabledSources,
		Tracker:      performance.NewTracker(),
	})
	return p.RunCycle(ctx)
}

func latestFromRedis(ctx context.Context, cfg *config.RedisConfig) (*models.Snapshot, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis.addr is not configured")
	}
	rp, err := storage.NewRedisPublisher(cfg)
	if err != nil {
		return nil, err
	}
	defer rp.Close()

	snap, err := rp.Latest(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read latest snapshot: %w", err)
	}
	if snap == nil {
		return nil, fmt.Errorf("no snapshot stored under %q", cfg.Key)
	}
	return snap, nil
}
