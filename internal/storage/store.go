package storage

import (
	"context"
	"time"

	"github.com/betsnipe/betsnipe/internal/pkg/catalog"
	"github.com/betsnipe/betsnipe/internal/pkg/models"
)

// FinishedGrace is how long after start_time a match keeps accepting odds
// before it is transitioned to finished.
const FinishedGrace = 4 * time.Hour

// ChangedMatch reports that at least one odds row of a match actually
// changed during a flush. Coalesced: one entry per match per bookmaker.
type ChangedMatch struct {
	MatchID   int64
	Bookmaker catalog.BookmakerID
	Sport     catalog.SportID
	Team1     string
	Team2     string
}

// BulkResult summarizes one bookmaker flush.
type BulkResult struct {
	Processed int
	Changed   []ChangedMatch
}

// CleanupResult summarizes one retention pass.
type CleanupResult struct {
	HistoryDeleted       int
	ArbitrageDeactivated int
	MatchesFinished      int
}

// Stats are store-level counters for logging and health reporting.
type Stats struct {
	UpcomingMatches    int
	CurrentOdds        int
	ActiveArbitrage    int
	BookmakersWithOdds int
}

// Store is the persistent repository of matches, current odds, odds history
// and arbitrage records. It is the only mutable shared state in the system;
// all writes flow through it.
type Store interface {
	// ResolveOrCreateMatch fuses a scraped match into an existing stored
	// match (exact normalized lookup first, then fuzzy matching against
	// candidates in a 2x sport window) or inserts a new one. In both
	// cases the bookmaker's external id is recorded. Idempotent for the
	// same scraped input.
	ResolveOrCreateMatch(ctx context.Context, scraped models.ScrapedMatch, bookmaker catalog.BookmakerID) (int64, error)

	// UpsertCurrentOdds writes one odds row, returning true only when at
	// least one of the odds actually differs from the stored row. On
	// change a history snapshot is appended (when history is enabled).
	UpsertCurrentOdds(ctx context.Context, row models.OddsRow) (bool, error)

	// BulkUpsert is the per-bookmaker flush used by the engine: resolves
	// every scraped match and upserts all its odds, reporting which
	// matches had real odds changes.
	BulkUpsert(ctx context.Context, matches []models.ScrapedMatch, bookmaker catalog.BookmakerID) (BulkResult, error)

	// CurrentOddsForMatch returns all current odds rows of a match.
	CurrentOddsForMatch(ctx context.Context, matchID int64) ([]models.OddsRow, error)

	MatchByID(ctx context.Context, matchID int64) (*models.Match, error)

	// UpcomingMatches lists upcoming matches starting within the horizon,
	// ordered by start time.
	UpcomingMatches(ctx context.Context, horizon time.Duration, limit int) ([]models.Match, error)

	// ArbitrageSeen reports whether an arbitrage hash was already
	// recorded within the window and is still active.
	ArbitrageSeen(ctx context.Context, arbHash string, within time.Duration) (bool, error)

	// InsertArbitrage stores a new opportunity. Returns false when the
	// hash already exists (including concurrent duplicate inserts).
	InsertArbitrage(ctx context.Context, arb *models.Arbitrage) (bool, error)

	// ActiveArbitrage lists active opportunities, best profit first.
	ActiveArbitrage(ctx context.Context, limit int) ([]models.Arbitrage, error)

	// MarkFinished deactivates arbitrage rows of started matches and
	// transitions matches past the grace window to finished. Returns the
	// number of matches transitioned.
	MarkFinished(ctx context.Context) (int, error)

	// Cleanup is the retention pass: drops old history snapshots,
	// deactivates stale arbitrage and finishes old matches. Runs on a
	// schedule, never in the hot cycle.
	Cleanup(ctx context.Context, keepDays int) (CleanupResult, error)

	Stats(ctx context.Context) (Stats, error)

	Close() error
}
