package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/betsnipe/betsnipe/internal/arbitrage"
	"github.com/betsnipe/betsnipe/internal/events"
	"github.com/betsnipe/betsnipe/internal/matching"
	"github.com/betsnipe/betsnipe/internal/pkg/catalog"
	"github.com/betsnipe/betsnipe/internal/pkg/models"
	"github.com/betsnipe/betsnipe/internal/scrapers"
	"github.com/betsnipe/betsnipe/internal/storage"
)

// fakeScraper serves canned matches for one bookmaker, or a canned error.
type fakeScraper struct {
	id        catalog.BookmakerID
	name      string
	matches   []models.ScrapedMatch
	scrapeErr error
	resets    int
	errs      int64
	mu        sync.Mutex
}

func (f *fakeScraper) BookmakerID() catalog.BookmakerID { return f.id }
func (f *fakeScraper) BookmakerName() string            { return f.name }
func (f *fakeScraper) Close() error                     { return nil }

func (f *fakeScraper) SupportedSports() []catalog.SportID {
	return []catalog.SportID{catalog.Football}
}

func (f *fakeScraper) ScrapeSport(ctx context.Context, sport catalog.SportID) ([]models.ScrapedMatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.scrapeErr != nil {
		f.errs++
		return nil, f.scrapeErr
	}
	out := make([]models.ScrapedMatch, len(f.matches))
	copy(out, f.matches)
	return out, nil
}

func (f *fakeScraper) Stats() scrapers.Stats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return scrapers.Stats{Errors: f.errs, Matches: int64(len(f.matches))}
}

func (f *fakeScraper) Reset() {
	f.mu.Lock()
	f.resets++
	f.mu.Unlock()
}

func (f *fakeScraper) resetCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resets
}

func (f *fakeScraper) setOdds(odd1, odd2, odd3 float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.matches {
		for j := range f.matches[i].Odds {
			f.matches[i].Odds[j].Odd1 = odd1
			f.matches[i].Odds[j].Odd2 = odd2
			f.matches[i].Odds[j].Odd3 = odd3
		}
	}
}

func footballMatch(team1, team2 string, start time.Time, odd1, odd2, odd3 float64) models.ScrapedMatch {
	return models.ScrapedMatch{
		Team1:     team1,
		Team2:     team2,
		Sport:     catalog.Football,
		StartTime: start,
		League:    "Premier League",
		Odds: []models.ScrapedOdds{
			{BetType: catalog.FullTime1X2, Odd1: odd1, Odd2: odd2, Odd3: odd3},
		},
	}
}

// failingStore wraps the memory store and fails selected operations,
// exercising the engine's partial-failure paths.
type failingStore struct {
	storage.Store
	failFlushFor catalog.BookmakerID
	failSweep    bool
}

func (s *failingStore) BulkUpsert(ctx context.Context, scraped []models.ScrapedMatch, bookmaker catalog.BookmakerID) (storage.BulkResult, error) {
	if bookmaker == s.failFlushFor {
		return storage.BulkResult{}, errors.New("connection reset")
	}
	return s.Store.BulkUpsert(ctx, scraped, bookmaker)
}

func (s *failingStore) UpcomingMatches(ctx context.Context, horizon time.Duration, limit int) ([]models.Match, error) {
	if s.failSweep {
		return nil, errors.New("connection reset")
	}
	return s.Store.UpcomingMatches(ctx, horizon, limit)
}

func newEngineWithStore(t *testing.T, store storage.Store, books ...*fakeScraper) (*Engine, *events.Bus) {
	t.Helper()
	detector := arbitrage.NewDetector(store, 1.0, 24*time.Hour)
	bus := events.NewBus()
	e := New(store, detector, bus, time.Second)
	for _, b := range books {
		e.Register(b)
	}
	return e, bus
}

func newTestEngine(t *testing.T, books ...*fakeScraper) (*Engine, *storage.MemoryStore, *events.Bus) {
	t.Helper()
	store := storage.NewMemoryStore(matching.New(0), true)
	e, bus := newEngineWithStore(t, store, books...)
	return e, store, bus
}

func TestCycleFusesBooksAndDetectsArbitrage(t *testing.T) {
	start := time.Now().Add(3 * time.Hour)

	// The two books disagree enough on a 1X2 to open an arbitrage:
	// 1/3.0 + 1/3.9 + 1/3.9 = 0.846 -> 18% profit.
	bookA := &fakeScraper{id: catalog.Maxbet, name: "maxbet", matches: []models.ScrapedMatch{
		footballMatch("Arsenal", "Chelsea", start, 3.0, 3.3, 2.1),
	}}
	bookB := &fakeScraper{id: catalog.Admiral, name: "admiral", matches: []models.ScrapedMatch{
		footballMatch("Arsenal FC", "Chelsea FC", start, 2.2, 3.9, 3.9),
	}}
	e, store, bus := newTestEngine(t, bookA, bookB)

	var arbEvents []events.Event
	bus.Subscribe(string(events.TypeArbitrage), func(ev events.Event) {
		arbEvents = append(arbEvents, ev)
	})

	stats, err := e.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if stats.MatchesScraped != 2 {
		t.Errorf("MatchesScraped = %d, want 2", stats.MatchesScraped)
	}

	// Both books must fuse into one stored match.
	upcoming, err := store.UpcomingMatches(context.Background(), 24*time.Hour, 10)
	if err != nil {
		t.Fatalf("UpcomingMatches: %v", err)
	}
	if len(upcoming) != 1 {
		t.Fatalf("got %d stored matches, want 1", len(upcoming))
	}
	if len(upcoming[0].ExternalIDs) != 2 {
		t.Errorf("fused match has %d external ids, want 2", len(upcoming[0].ExternalIDs))
	}

	if stats.ArbitrageFound != 1 {
		t.Fatalf("ArbitrageFound = %d, want 1", stats.ArbitrageFound)
	}
	if len(arbEvents) != 1 {
		t.Fatalf("got %d arbitrage events, want 1", len(arbEvents))
	}
	arb, ok := arbEvents[0].Data.(models.Arbitrage)
	if !ok {
		t.Fatalf("arbitrage event data is %T", arbEvents[0].Data)
	}
	if arb.ProfitPercent < 15 {
		t.Errorf("ProfitPercent = %.2f, want > 15", arb.ProfitPercent)
	}

	engStats := e.Stats()
	if engStats.Cycles != 1 || engStats.MatchesProcessed != 2 || engStats.ArbitrageFound != 1 {
		t.Errorf("engine stats = %+v", engStats)
	}
	if _, ok := engStats.Scrapers["maxbet"]; !ok {
		t.Error("per-scraper stats missing maxbet")
	}
}

func TestSecondCycleSuppressesDuplicateArbitrage(t *testing.T) {
	start := time.Now().Add(3 * time.Hour)
	bookA := &fakeScraper{id: catalog.Maxbet, name: "maxbet", matches: []models.ScrapedMatch{
		footballMatch("Arsenal", "Chelsea", start, 3.0, 3.3, 2.1),
	}}
	bookB := &fakeScraper{id: catalog.Admiral, name: "admiral", matches: []models.ScrapedMatch{
		footballMatch("Arsenal", "Chelsea", start, 2.2, 3.9, 3.9),
	}}
	e, _, _ := newTestEngine(t, bookA, bookB)

	ctx := context.Background()
	stats, err := e.RunCycle(ctx)
	if err != nil {
		t.Fatalf("first cycle: %v", err)
	}
	if stats.ArbitrageFound != 1 {
		t.Fatalf("first cycle found %d, want 1", stats.ArbitrageFound)
	}

	// Identical odds next cycle: same hash, deduplicated.
	stats, err = e.RunCycle(ctx)
	if err != nil {
		t.Fatalf("second cycle: %v", err)
	}
	if stats.ArbitrageFound != 0 {
		t.Errorf("second cycle found %d, want 0", stats.ArbitrageFound)
	}
}

func TestOddsUpdateEventsOnlyOnRealChange(t *testing.T) {
	start := time.Now().Add(3 * time.Hour)
	book := &fakeScraper{id: catalog.Maxbet, name: "maxbet", matches: []models.ScrapedMatch{
		footballMatch("Partizan", "Crvena Zvezda", start, 2.5, 3.1, 2.8),
	}}
	e, _, bus := newTestEngine(t, book)

	var updates []events.OddsUpdate
	bus.Subscribe(string(events.TypeOddsUpdate), func(ev events.Event) {
		if u, ok := ev.Data.(events.OddsUpdate); ok {
			updates = append(updates, u)
		}
	})

	ctx := context.Background()
	if _, err := e.RunCycle(ctx); err != nil {
		t.Fatalf("first cycle: %v", err)
	}
	if len(updates) != 1 {
		t.Fatalf("after first cycle got %d updates, want 1", len(updates))
	}
	if updates[0].Bookmaker != catalog.Maxbet {
		t.Errorf("update bookmaker = %d, want maxbet", updates[0].Bookmaker)
	}

	// Unchanged odds publish nothing.
	if _, err := e.RunCycle(ctx); err != nil {
		t.Fatalf("second cycle: %v", err)
	}
	if len(updates) != 1 {
		t.Errorf("unchanged cycle published %d extra updates", len(updates)-1)
	}

	// A real move publishes again.
	book.setOdds(2.6, 3.0, 2.8)
	if _, err := e.RunCycle(ctx); err != nil {
		t.Fatalf("third cycle: %v", err)
	}
	if len(updates) != 2 {
		t.Errorf("after odds move got %d updates, want 2", len(updates))
	}
}

func TestCycleIsolatesScrapeFailure(t *testing.T) {
	start := time.Now().Add(3 * time.Hour)
	bad := &fakeScraper{id: catalog.Maxbet, name: "maxbet", scrapeErr: errors.New("status 503")}
	good := &fakeScraper{id: catalog.Admiral, name: "admiral", matches: []models.ScrapedMatch{
		footballMatch("Arsenal", "Chelsea", start, 2.0, 3.4, 3.8),
	}}
	e, store, _ := newTestEngine(t, bad, good)

	stats, err := e.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if stats.MatchesScraped != 1 {
		t.Errorf("MatchesScraped = %d, want 1", stats.MatchesScraped)
	}

	upcoming, err := store.UpcomingMatches(context.Background(), 24*time.Hour, 10)
	if err != nil {
		t.Fatalf("UpcomingMatches: %v", err)
	}
	if len(upcoming) != 1 {
		t.Fatalf("got %d stored matches, want the healthy book's 1", len(upcoming))
	}
	if got := e.Stats().Scrapers["maxbet"].Errors; got != 1 {
		t.Errorf("failing book error count = %d, want 1", got)
	}
}

func TestFlushFailureResetsScraperAndSparesOthers(t *testing.T) {
	start := time.Now().Add(3 * time.Hour)
	bad := &fakeScraper{id: catalog.Maxbet, name: "maxbet", matches: []models.ScrapedMatch{
		footballMatch("Arsenal", "Chelsea", start, 3.0, 3.3, 2.1),
	}}
	good := &fakeScraper{id: catalog.Admiral, name: "admiral", matches: []models.ScrapedMatch{
		footballMatch("Partizan", "Vojvodina", start, 1.8, 3.5, 4.2),
	}}
	mem := storage.NewMemoryStore(matching.New(0), true)
	store := &failingStore{Store: mem, failFlushFor: catalog.Maxbet}
	e, _ := newEngineWithStore(t, store, bad, good)

	if _, err := e.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if bad.resetCount() != 1 {
		t.Errorf("failed book resets = %d, want 1", bad.resetCount())
	}
	if good.resetCount() != 0 {
		t.Errorf("healthy book resets = %d, want 0", good.resetCount())
	}

	upcoming, err := mem.UpcomingMatches(context.Background(), 24*time.Hour, 10)
	if err != nil {
		t.Fatalf("UpcomingMatches: %v", err)
	}
	if len(upcoming) != 1 || upcoming[0].Team1 != "Partizan" {
		t.Fatalf("healthy book's flush lost: %+v", upcoming)
	}
}

func TestOddsUpdatesPublishedWhenSweepFails(t *testing.T) {
	start := time.Now().Add(3 * time.Hour)
	book := &fakeScraper{id: catalog.Maxbet, name: "maxbet", matches: []models.ScrapedMatch{
		footballMatch("Arsenal", "Chelsea", start, 3.0, 3.3, 2.1),
	}}
	mem := storage.NewMemoryStore(matching.New(0), true)
	store := &failingStore{Store: mem, failSweep: true}
	e, bus := newEngineWithStore(t, store, book)

	var updates int
	bus.Subscribe(string(events.TypeOddsUpdate), func(events.Event) { updates++ })

	if _, err := e.RunCycle(context.Background()); err == nil {
		t.Fatal("expected the sweep error to surface")
	}
	if updates != 1 {
		t.Errorf("published %d odds updates before the sweep failed, want 1", updates)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	book := &fakeScraper{id: catalog.Maxbet, name: "maxbet"}
	e, _, _ := newTestEngine(t, book)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
