package scrapers

import (
	"context"
	"log/slog"
	"sync"

	"github.com/betsnipe/betsnipe/internal/pkg/catalog"
	"github.com/betsnipe/betsnipe/internal/pkg/models"
)

// Stats are the per-scraper counters the engine logs each cycle.
type Stats struct {
	Requests int64
	Errors   int64
	Matches  int64
}

// Scraper is one bookmaker adapter. Implementations translate the book's
// payloads into ScrapedMatch values carrying catalogue bet-type ids; the
// engine never sees raw payload shapes.
//
// ScrapeSport returns an empty slice, never an error, for transient
// transport or parse faults: those are counted in Stats and the cycle goes
// on without this book. Errors are reserved for faults that make the whole
// scrape call meaningless (context cancelled, session unrecoverable).
type Scraper interface {
	BookmakerID() catalog.BookmakerID
	BookmakerName() string
	SupportedSports() []catalog.SportID
	ScrapeSport(ctx context.Context, sport catalog.SportID) ([]models.ScrapedMatch, error)
	Stats() Stats
	// Reset drops pooled sessions so the next cycle starts fresh. Called
	// by the engine after a scrape error.
	Reset()
	Close() error
}

// ScrapeAll fans one scraper out over all its sports concurrently and
// merges the results. A failing sport is logged and skipped; the merged
// slice carries whatever the other sports produced.
func ScrapeAll(ctx context.Context, s Scraper) []models.ScrapedMatch {
	sports := s.SupportedSports()

	var (
		mu  sync.Mutex
		all []models.ScrapedMatch
		wg  sync.WaitGroup
	)
	for _, sport := range sports {
		wg.Add(1)
		go func(sport catalog.SportID) {
			defer wg.Done()
			matches, err := s.ScrapeSport(ctx, sport)
			if err != nil {
				slog.Warn("sport scrape failed",
					"bookmaker", s.BookmakerName(),
					"sport", catalog.SportName(sport),
					"error", err)
				return
			}
			mu.Lock()
			all = append(all, matches...)
			mu.Unlock()
		}(sport)
	}
	wg.Wait()
	return all
}
