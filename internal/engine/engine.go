// Package engine runs the scrape cycle: every registered bookmaker is
// scraped and flushed to the store, arbitrage detection sweeps the merged
// odds, and results go out on the event bus.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/betsnipe/betsnipe/internal/arbitrage"
	"github.com/betsnipe/betsnipe/internal/events"
	"github.com/betsnipe/betsnipe/internal/scrapers"
	"github.com/betsnipe/betsnipe/internal/storage"
)

// flush is one bookmaker's outcome within a cycle.
type flush struct {
	scraped int
	result  storage.BulkResult
}

// CycleStats summarizes one completed cycle for logging and health checks.
type CycleStats struct {
	Cycle          int64
	Duration       time.Duration
	MatchesScraped int
	OddsChanged    int
	ArbitrageFound int
}

// Engine owns the cycle loop. Bookmakers are scraped concurrently within a
// cycle; cycles themselves never overlap, so detection always sees one
// consistent flush of the whole book set.
type Engine struct {
	store    storage.Store
	detector *arbitrage.Detector
	bus      *events.Bus
	interval time.Duration

	scrapers []scrapers.Scraper

	cycles         int64
	totalProcessed int64
	totalFound     int64
	lastCycle      time.Time
}

// Stats are cumulative engine counters plus a per-bookmaker breakdown.
type Stats struct {
	Cycles           int64
	MatchesProcessed int64
	ArbitrageFound   int64
	LastCycle        time.Time
	Scrapers         map[string]scrapers.Stats
}

func New(store storage.Store, detector *arbitrage.Detector, bus *events.Bus, interval time.Duration) *Engine {
	return &Engine{
		store:    store,
		detector: detector,
		bus:      bus,
		interval: interval,
	}
}

// Register adds a bookmaker scraper. Not safe to call once Run has started.
func (e *Engine) Register(s scrapers.Scraper) {
	e.scrapers = append(e.scrapers, s)
	slog.Info("scraper registered", "bookmaker", s.BookmakerName())
}

// Stats snapshots the cumulative counters. Counters are written only by the
// serialized cycle loop, so this is a read of settled values between cycles.
func (e *Engine) Stats() Stats {
	s := Stats{
		Cycles:           e.cycles,
		MatchesProcessed: e.totalProcessed,
		ArbitrageFound:   e.totalFound,
		LastCycle:        e.lastCycle,
		Scrapers:         make(map[string]scrapers.Stats, len(e.scrapers)),
	}
	for _, sc := range e.scrapers {
		s.Scrapers[sc.BookmakerName()] = sc.Stats()
	}
	return s
}

// Run loops cycles until the context is cancelled, waiting the configured
// interval between the end of one cycle and the start of the next. A failed
// cycle is logged and the loop continues; only cancellation stops it.
func (e *Engine) Run(ctx context.Context) error {
	if len(e.scrapers) == 0 {
		slog.Warn("no scrapers registered, engine idle")
		<-ctx.Done()
		return ctx.Err()
	}
	slog.Info("engine started", "scrapers", len(e.scrapers), "interval", e.interval)

	for {
		stats, err := e.RunCycle(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			slog.Error("cycle failed", "error", err)
		} else {
			slog.Info("cycle complete",
				"cycle", stats.Cycle,
				"duration", stats.Duration.Round(time.Millisecond),
				"matches", stats.MatchesScraped,
				"odds_changed", stats.OddsChanged,
				"arbitrage", stats.ArbitrageFound)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(e.interval):
		}
	}
}

// RunCycle executes one full cycle: scrape, flush, publish, detect, expire.
func (e *Engine) RunCycle(ctx context.Context) (CycleStats, error) {
	start := time.Now()
	e.cycles++
	stats := CycleStats{Cycle: e.cycles}

	results := make([]flush, len(e.scrapers))

	// Scrape and flush every bookmaker concurrently. Each book gets its own
	// store flush so one failing book never loses another book's odds.
	var wg sync.WaitGroup
	for i, s := range e.scrapers {
		wg.Add(1)
		go func(i int, s scrapers.Scraper) {
			defer wg.Done()
			scrapeStart := time.Now()
			matches := scrapers.ScrapeAll(ctx, s)
			results[i].scraped = len(matches)

			result, err := e.store.BulkUpsert(ctx, matches, s.BookmakerID())
			if err != nil {
				slog.Error("bookmaker flush failed",
					"bookmaker", s.BookmakerName(),
					"matches", len(matches),
					"error", err)
				// Drop pooled sessions so the next cycle starts clean.
				s.Reset()
				return
			}
			results[i].result = result
			slog.Debug("bookmaker processed",
				"bookmaker", s.BookmakerName(),
				"scraped", len(matches),
				"processed", result.Processed,
				"changed", len(result.Changed),
				"duration", time.Since(scrapeStart).Round(time.Millisecond))
		}(i, s)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return stats, err
	}

	for _, r := range results {
		stats.MatchesScraped += r.scraped
		stats.OddsChanged += len(r.result.Changed)
		e.totalProcessed += int64(r.result.Processed)
	}

	// The flushes above already happened, so their odds_update events go out
	// whether or not detection succeeds.
	e.publishOddsUpdates(results)

	found, err := e.detector.Sweep(ctx)
	if err != nil {
		return stats, err
	}
	stats.ArbitrageFound = len(found)
	e.totalFound += int64(len(found))

	for _, arb := range found {
		e.bus.Publish(events.Event{
			Type:      events.TypeArbitrage,
			MatchID:   arb.MatchID,
			Sport:     arb.Sport,
			Data:      arb,
			Timestamp: time.Now().UTC(),
		})
	}

	if _, err := e.store.MarkFinished(ctx); err != nil {
		slog.Warn("failed to expire started matches", "error", err)
	}

	stats.Duration = time.Since(start)
	e.lastCycle = time.Now().UTC()
	return stats, nil
}

// publishOddsUpdates emits one odds_update per (match, bookmaker) that had a
// real odds change this cycle. The store already coalesces rows per match,
// so the fan-out here is bounded by the number of changed matches.
func (e *Engine) publishOddsUpdates(results []flush) {
	now := time.Now().UTC()
	for _, r := range results {
		for _, c := range r.result.Changed {
			e.bus.Publish(events.Event{
				Type:    events.TypeOddsUpdate,
				MatchID: c.MatchID,
				Sport:   c.Sport,
				Data: events.OddsUpdate{
					MatchID:   c.MatchID,
					Bookmaker: c.Bookmaker,
					Team1:     c.Team1,
					Team2:     c.Team2,
				},
				Timestamp: now,
			})
		}
	}
}

// Close shuts every scraper down.
func (e *Engine) Close() {
	for _, s := range e.scrapers {
		if err := s.Close(); err != nil {
			slog.Warn("scraper close failed", "bookmaker", s.BookmakerName(), "error", err)
		}
	}
}
