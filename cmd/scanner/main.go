// Command scanner runs the odds aggregation and arbitrage detection loop:
// scrape every enabled bookmaker, fuse matches across books, detect
// arbitrage and push alerts out through Telegram and Redis.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/betsnipe/betsnipe/internal/arbitrage"
	"github.com/betsnipe/betsnipe/internal/engine"
	"github.com/betsnipe/betsnipe/internal/events"
	"github.com/betsnipe/betsnipe/internal/feed"
	"github.com/betsnipe/betsnipe/internal/matching"
	"github.com/betsnipe/betsnipe/internal/notify"
	"github.com/betsnipe/betsnipe/internal/pkg/catalog"
	"github.com/betsnipe/betsnipe/internal/pkg/config"
	"github.com/betsnipe/betsnipe/internal/pkg/logging"
	"github.com/betsnipe/betsnipe/internal/scrapers"
	"github.com/betsnipe/betsnipe/internal/scrapers/admiral"
	"github.com/betsnipe/betsnipe/internal/scrapers/maxbet"
	"github.com/betsnipe/betsnipe/internal/scrapers/meridian"
	"github.com/betsnipe/betsnipe/internal/scrapers/merkur"
	"github.com/betsnipe/betsnipe/internal/scrapers/mozzart"
	"github.com/betsnipe/betsnipe/internal/scrapers/scraperutil"
	"github.com/betsnipe/betsnipe/internal/scrapers/soccerbet"
	"github.com/betsnipe/betsnipe/internal/scrapers/superbet"
	"github.com/betsnipe/betsnipe/internal/scrapers/topbet"
	"github.com/betsnipe/betsnipe/internal/storage"
)

const defaultConfigPath = "configs/config.yaml"

// retentionSchedule runs the store cleanup pass off the hot cycle.
const retentionSchedule = "17 3 * * *"

func main() {
	if err := run(); err != nil {
		slog.Error("scanner failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", defaultConfigPath, "path to YAML config")
	once := flag.Bool("once", false, "run a single cycle and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logging.SetupLogger(cfg.LogLevel, "scanner")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	matcher := matching.New(cfg.Matching.SimilarityThreshold)
	matcher.FallbackWindowMinutes = cfg.Matching.TimeWindowMinutes
	store, err := storage.NewPostgresStore(ctx, cfg.DatabaseURL, matcher, cfg.Scraper.EnableOddsHistory)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()

	bus := events.NewBus()
	detector := arbitrage.NewDetector(store, cfg.Arbitrage.MinProfitPercentage,
		time.Duration(cfg.Arbitrage.DedupHours)*time.Hour)
	eng := engine.New(store, detector, bus, cfg.Scraper.Interval())
	defer eng.Close()

	registerScrapers(eng, cfg.Scraper)

	if cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != 0 {
		notifier, err := notify.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
		if err != nil {
			return fmt.Errorf("failed to start telegram notifier: %w", err)
		}
		defer notifier.Close()
		unsubscribe := notifier.SubscribeTo(bus)
		defer unsubscribe()
	} else {
		slog.Info("telegram not configured, alerts disabled")
	}

	if cfg.Redis.Addr != "" {
		redisFeed, err := feed.NewRedisFeed(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return fmt.Errorf("failed to connect redis feed: %w", err)
		}
		defer redisFeed.Close()
		unsubscribe := redisFeed.SubscribeTo(bus)
		defer unsubscribe()
	} else {
		slog.Info("redis not configured, live feed disabled")
	}

	scheduler := startRetention(ctx, store, cfg.Scraper.HistoryRetentionDays)
	defer scheduler.Stop()

	if *once {
		stats, err := eng.RunCycle(ctx)
		if err != nil {
			return err
		}
		slog.Info("cycle complete",
			"duration", stats.Duration.Round(time.Millisecond),
			"matches", stats.MatchesScraped,
			"arbitrage", stats.ArbitrageFound)
		return nil
	}

	if err := eng.Run(ctx); err != nil && err != context.Canceled {
		return err
	}
	final := eng.Stats()
	slog.Info("scanner stopped",
		"cycles", final.Cycles,
		"matches_processed", final.MatchesProcessed,
		"arbitrage_found", final.ArbitrageFound)
	return nil
}

// registerScrapers wires every bookmaker adapter whose catalogue entry is
// enabled. Disabled books stay out of the cycle but keep their ids reserved.
// The configured timeout and concurrency cap apply to every HTTP adapter;
// books with their own rate discipline override the cap locally.
func registerScrapers(eng *engine.Engine, cfg config.ScraperConfig) {
	opts := []scraperutil.Option{
		scraperutil.WithTimeout(cfg.RequestTimeout()),
		scraperutil.WithMaxConcurrent(int64(cfg.MaxConcurrentRequests)),
	}
	adapters := []scrapers.Scraper{
		mozzart.New(),
		meridian.New(opts...),
		maxbet.New(opts...),
		admiral.New(opts...),
		soccerbet.New(opts...),
		superbet.New(opts...),
		merkur.New(opts...),
		topbet.New(opts...),
	}
	for _, s := range adapters {
		info, ok := catalog.Bookmaker(s.BookmakerID())
		if !ok || !info.Enabled {
			slog.Info("scraper disabled", "bookmaker", s.BookmakerName())
			_ = s.Close()
			continue
		}
		eng.Register(s)
	}
}

// startRetention schedules the daily cleanup pass: old history snapshots,
// stale arbitrage rows and long-finished matches.
func startRetention(ctx context.Context, store storage.Store, keepDays int) *cron.Cron {
	scheduler := cron.New()
	_, err := scheduler.AddFunc(retentionSchedule, func() {
		cleanupCtx, cancel := context.WithTimeout(ctx, 10*time.Minute)
		defer cancel()
		result, err := store.Cleanup(cleanupCtx, keepDays)
		if err != nil {
			slog.Error("retention pass failed", "error", err)
			return
		}
		slog.Info("retention pass complete",
			"history_deleted", result.HistoryDeleted,
			"arbitrage_deactivated", result.ArbitrageDeactivated,
			"matches_finished", result.MatchesFinished)
	})
	if err != nil {
		slog.Error("failed to schedule retention", "error", err)
	}
	scheduler.Start()
	return scheduler
}
