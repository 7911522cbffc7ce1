package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Vodeneev/linecompare/internal/calculator"
	"github.com/Vodeneev/linecompare/internal/parser/parsers"
	pkgconfig "github.com/Vodeneev/linecompare/internal/pkg/config"
	"github.com/Vodeneev/linecompare/internal/pkg/health"
	"github.com/Vodeneev/linecompare/internal/pkg/logging"
	"github.com/Vodeneev/linecompare/internal/pkg/models"
	"github.com/Vodeneev/linecompare/internal/pkg/notify"
	"github.com/Vodeneev/linecompare/internal/pkg/performance"
	"github.com/Vodeneev/linecompare/internal/pkg/snapshot"
	"github.com/Vodeneev/linecompare/internal/pkg/storage"
	"github.com/Vodeneev/linecompare/internal/poller"

	// Register all supported producers via init().
	_ "github.com/Vodeneev/linecompare/internal/parser/parsers/all"
)

const (
	defaultConfigPath = "configs/local.yaml"
	sinkTimeout       = 10 * time.Second
)

type config struct {
	configPath string
	runFor     time.Duration
	sources    string // Override poller.enabled_sources (comma-separated)
}

func main() {
	if err := run(); err != nil {
		slog.Error("linecompare failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := parseFlags()
	slog.Info("Loading config", "path", cfg.configPath)

	appConfig, err := pkgconfig.Load(cfg.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.sources != "" {
		appConfig.Poller.EnabledSources = strings.Split(cfg.sources, ",")
		for i, s := range appConfig.Poller.EnabledSources {
			appConfig.Poller.EnabledSources[i] = strings.ToLower(strings.TrimSpace(s))
		}
		if err := appConfig.Validate(); err != nil {
			return fmt.Errorf("invalid -sources: %w", err)
		}
	}

	_, logCloser, err := logging.SetupLogger(&appConfig.Logging, "linecompare")
	if err != nil {
		slog.Warn("Failed to setup logging, continuing with default logger", "error", err)
	} else {
		defer logCloser.Close()
	}

	producers, err := parsers.Build(appConfig)
	if err != nil {
		return fmt.Errorf("failed to build producers: %w", err)
	}
	defer parsers.CloseAll(producers)
	slog.Info("Using sources", "sources", strings.Join(appConfig.Poller.EnabledSources, ", "), "reference", appConfig.Poller.Reference)

	ctx, cancel := createContext(cfg.runFor)
	defer cancel()
	setupSignalHandler(ctx, cancel)

	tracker := performance.GetTracker()
	store := snapshot.NewStore()
	p := poller.New(producers, store, poller.Options{
		Interval:     appConfig.Poller.Interval,
		FetchTimeout: appConfig.Poller.FetchTimeout,
		MaxParallel:  appConfig.Poller.MaxParallelFetch,
		Reference:    appConfig.Poller.Reference,
		Sources:      appConfig.Poller.EnabledSources,
		Tracker:      tracker,
	})

	closeSinks := wireSinks(ctx, appConfig, p)
	defer closeSinks()

	notifier := setupNotifier(appConfig)
	if notifier != nil {
		p.OnPublish(notifier.HandleCycle)
		notifier.Start(ctx)
	}

	if err := health.Run(ctx, health.AddrFor(appConfig.Server.Port), health.Options{
		Service:           "linecompare",
		ReadHeaderTimeout: appConfig.Server.ReadHeaderTimeout,
		AllowedOrigins:    appConfig.Server.AllowedOrigins,
		HighlightTTL:      appConfig.Server.HighlightTTL,
		PollInterval:      appConfig.Server.PollInterval,
		WebSocket:         appConfig.Server.WebSocket,
		Store:             store,
		Trigger:           p.Trigger,
		Tracker:           tracker,
	}); err != nil {
		return fmt.Errorf("failed to start http server: %w", err)
	}

	err = p.Run(ctx)
	cancel()
	if notifier != nil {
		notifier.Wait()
	}
	tracker.PrintSummary()
	slog.Info("linecompare stopped gracefully")
	return err
}

func parseFlags() config {
	var cfg config

	defaultConfig := os.Getenv("CONFIG_PATH")
	if defaultConfig == "" {
		defaultConfig = defaultConfigPath
	}

	flag.StringVar(&cfg.configPath, "config", defaultConfig, "Path to config file (can be set via CONFIG_PATH env var)")
	flag.DurationVar(&cfg.runFor, "run-for", 0, "Auto-stop after duration (e.g. 10s, 1m). 0 = run until SIGINT/SIGTERM")
	flag.StringVar(&cfg.sources, "sources", "", "Override poller.enabled_sources, e.g. 'draftkings,fanduel'. Empty = use config")
	flag.Parse()
	return cfg
}

// wireSinks connects the optional postgres and redis sinks to the poller.
// A sink that cannot be reached at startup is skipped, never fatal.
func wireSinks(ctx context.Context, appConfig *pkgconfig.Config, p *poller.Poller) func() {
	var closers []func() error

	if appConfig.Postgres.DSN != "" {
		pg, err := storage.NewPostgresSnapshotStorage(&appConfig.Postgres)
		if err != nil {
			slog.Warn("Postgres unavailable, snapshots will not be persisted", "error", err)
		} else {
			closers = append(closers, pg.Close)
			restorePrevious(ctx, pg, p)
			p.OnPublish(saveHook(pg))
		}
	}

	if appConfig.Redis.Addr != "" {
		rp, err := storage.NewRedisPublisher(&appConfig.Redis)
		if err != nil {
			slog.Warn("Redis unavailable, snapshots will not be published", "error", err)
		} else {
			closers = append(closers, rp.Close)
			p.OnPublish(publishHook(rp))
		}
	}

	return func() {
		for _, c := range closers {
			if err := c(); err != nil {
				slog.Warn("Failed to close sink", "error", err)
			}
		}
	}
}

func restorePrevious(ctx context.Context, st storage.SnapshotStorage, p *poller.Poller) {
	loadCtx, cancel := context.WithTimeout(ctx, sinkTimeout)
	defer cancel()
	prev, err := st.LoadLatest(loadCtx)
	if err != nil {
		slog.Warn("Failed to restore previous snapshot", "error", err)
		return
	}
	if prev == nil {
		return
	}
	p.Seed(prev)
	slog.Info("Restored previous snapshot", "cycle_id", prev.Cycle, "events", len(prev.Events))
}

func saveHook(st storage.SnapshotStorage) poller.Hook {
	return func(ctx context.Context, snap *models.Snapshot, _ []calculator.LineMovement) {
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sinkTimeout)
		defer cancel()
		if err := st.SaveSnapshot(saveCtx, snap); err != nil {
			slog.Error("Failed to save snapshot", "cycle_id", snap.Cycle, "error", err)
		}
	}
}

func publishHook(pub storage.SnapshotPublisher) poller.Hook {
	return func(ctx context.Context, snap *models.Snapshot, _ []calculator.LineMovement) {
		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sinkTimeout)
		defer cancel()
		if err := pub.PublishSnapshot(pubCtx, snap); err != nil {
			slog.Error("Failed to publish snapshot", "cycle_id", snap.Cycle, "error", err)
		}
	}
}

func setupNotifier(appConfig *pkgconfig.Config) *notify.Notifier {
	var senders []notify.Sender
	nc := appConfig.Notify
	if nc.TelegramBotToken != "" && nc.TelegramChatID != 0 {
		tg, err := notify.NewTelegramSender(nc.TelegramBotToken, nc.TelegramChatID)
		if err != nil {
			slog.Warn("Telegram notifications disabled", "error", err)
		} else {
			senders = append(senders, tg)
		}
	}
	if nc.DiscordWebhookURL != "" {
		dc, err := notify.NewDiscordSender(nc.DiscordWebhookURL)
		if err != nil {
			slog.Warn("Discord notifications disabled", "error", err)
		} else {
			senders = append(senders, dc)
		}
	}
	if len(senders) == 0 {
		return nil
	}
	return notify.NewNotifier(senders, nc.Cooldown)
}

func createContext(runFor time.Duration) (context.Context, context.CancelFunc) {
	if runFor > 0 {
		return context.WithTimeout(context.Background(), runFor)
	}
	return context.WithCancel(context.Background())
}

func setupSignalHandler(ctx context.Context, cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("Received shutdown signal, stopping...", "signal", sig.String())
			cancel()
		case <-ctx.Done():
			signal.Stop(sigChan)
		}
	}()
}
