package storage

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/betsnipe/betsnipe/internal/matching"
	"github.com/betsnipe/betsnipe/internal/pkg/catalog"
	"github.com/betsnipe/betsnipe/internal/pkg/models"
)

type oddsKey struct {
	MatchID   int64
	Bookmaker catalog.BookmakerID
	BetType   catalog.BetTypeID
	Margin    float64
	Selection string
}

type historyRow struct {
	models.OddsRow
	RecordedAt time.Time
}

// MemoryStore is an in-process Store with the same fusion, change-detection
// and dedup semantics as the Postgres store. Used in tests and for running
// the engine without a database.
type MemoryStore struct {
	mu      sync.Mutex
	matcher *matching.Matcher

	EnableHistory bool
	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time

	nextMatchID int64
	nextArbID   int64
	matches     map[int64]*models.Match
	odds        map[oddsKey]models.OddsRow
	history     []historyRow
	arbitrages  []*models.Arbitrage
	arbByHash   map[string]*models.Arbitrage
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore(matcher *matching.Matcher, enableHistory bool) *MemoryStore {
	return &MemoryStore{
		matcher:       matcher,
		EnableHistory: enableHistory,
		Now:           time.Now,
		matches:       make(map[int64]*models.Match),
		odds:          make(map[oddsKey]models.OddsRow),
		arbByHash:     make(map[string]*models.Arbitrage),
	}
}

func roundMargin(m float64) float64 {
	return math.Round(m*100) / 100
}

func (s *MemoryStore) ResolveOrCreateMatch(ctx context.Context, scraped models.ScrapedMatch, bookmaker catalog.BookmakerID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolveLocked(scraped, bookmaker)
}

func (s *MemoryStore) resolveLocked(scraped models.ScrapedMatch, bookmaker catalog.BookmakerID) (int64, error) {
	t1n := matching.NormalizeTeam(scraped.Team1)
	t2n := matching.NormalizeTeam(scraped.Team2)
	category := matching.CategoryKey(scraped.Team1, scraped.Team2)
	window := time.Duration(catalog.TimeWindowMinutes(scraped.Sport)) * time.Minute

	// Exact lookup on the normalized key in either order. The category key
	// keeps a youth or women's side apart from the senior side with the
	// same normalized name.
	for _, m := range s.matches {
		if m.Sport != scraped.Sport || m.Status != models.StatusUpcoming || m.Category != category {
			continue
		}
		if absDuration(m.StartTime.Sub(scraped.StartTime)) > window {
			continue
		}
		if (m.Team1Norm == t1n && m.Team2Norm == t2n) || (m.Team1Norm == t2n && m.Team2Norm == t1n) {
			s.attachExternalLocked(m, bookmaker, scraped.ExternalID)
			return m.ID, nil
		}
	}

	// Fuzzy matching against candidates in the broad window.
	var candidates []models.Match
	for _, m := range s.matches {
		if m.Sport != scraped.Sport || m.Status != models.StatusUpcoming {
			continue
		}
		if absDuration(m.StartTime.Sub(scraped.StartTime)) <= 2*window {
			candidates = append(candidates, *m)
		}
	}
	input := matching.Input{
		Team1:     scraped.Team1,
		Team2:     scraped.Team2,
		Sport:     scraped.Sport,
		StartTime: scraped.StartTime,
		League:    scraped.League,
	}
	if best, _ := s.matcher.FindBestMatch(input, candidates); best != nil {
		m := s.matches[best.ID]
		s.attachExternalLocked(m, bookmaker, scraped.ExternalID)
		return m.ID, nil
	}

	// New match.
	s.nextMatchID++
	now := s.Now()
	m := &models.Match{
		ID:          s.nextMatchID,
		Team1:       scraped.Team1,
		Team2:       scraped.Team2,
		Team1Norm:   t1n,
		Team2Norm:   t2n,
		Category:    category,
		Sport:       scraped.Sport,
		League:      scraped.League,
		StartTime:   scraped.StartTime.UTC(),
		ExternalIDs: make(map[catalog.BookmakerID]string),
		Status:      models.StatusUpcoming,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if scraped.ExternalID != "" {
		m.ExternalIDs[bookmaker] = scraped.ExternalID
	}
	s.matches[m.ID] = m
	return m.ID, nil
}

func (s *MemoryStore) attachExternalLocked(m *models.Match, bookmaker catalog.BookmakerID, externalID string) {
	if externalID == "" {
		return
	}
	if m.ExternalIDs == nil {
		m.ExternalIDs = make(map[catalog.BookmakerID]string)
	}
	if _, ok := m.ExternalIDs[bookmaker]; !ok {
		m.ExternalIDs[bookmaker] = externalID
		m.UpdatedAt = s.Now()
	}
}

func (s *MemoryStore) UpsertCurrentOdds(ctx context.Context, row models.OddsRow) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upsertOddsLocked(row), nil
}

func (s *MemoryStore) upsertOddsLocked(row models.OddsRow) bool {
	row.Margin = roundMargin(row.Margin)
	key := oddsKey{row.MatchID, row.Bookmaker, row.BetType, row.Margin, row.Selection}

	if existing, ok := s.odds[key]; ok &&
		existing.Odd1 == row.Odd1 && existing.Odd2 == row.Odd2 && existing.Odd3 == row.Odd3 {
		return false
	}

	row.UpdatedAt = s.Now()
	s.odds[key] = row
	if s.EnableHistory {
		s.history = append(s.history, historyRow{OddsRow: row, RecordedAt: row.UpdatedAt})
	}
	return true
}

func (s *MemoryStore) BulkUpsert(ctx context.Context, scraped []models.ScrapedMatch, bookmaker catalog.BookmakerID) (BulkResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result BulkResult
	changedByMatch := make(map[int64]bool)

	for _, sm := range dedupeScraped(scraped) {
		if matching.NormalizeTeam(sm.Team1) == "" || matching.NormalizeTeam(sm.Team2) == "" {
			continue
		}
		matchID, err := s.resolveLocked(sm, bookmaker)
		if err != nil {
			return result, err
		}
		result.Processed++

		changed := false
		for _, o := range sm.Odds {
			if s.upsertOddsLocked(models.OddsRow{
				MatchID:   matchID,
				Bookmaker: bookmaker,
				BetType:   o.BetType,
				Margin:    o.Margin,
				Selection: o.Selection,
				Odd1:      o.Odd1,
				Odd2:      o.Odd2,
				Odd3:      o.Odd3,
			}) {
				changed = true
			}
		}
		if changed && !changedByMatch[matchID] {
			changedByMatch[matchID] = true
			result.Changed = append(result.Changed, ChangedMatch{
				MatchID:   matchID,
				Bookmaker: bookmaker,
				Sport:     sm.Sport,
				Team1:     sm.Team1,
				Team2:     sm.Team2,
			})
		}
	}
	return result, nil
}

func (s *MemoryStore) CurrentOddsForMatch(ctx context.Context, matchID int64) ([]models.OddsRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rows []models.OddsRow
	for _, row := range s.odds {
		if row.MatchID == matchID {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].BetType != rows[j].BetType {
			return rows[i].BetType < rows[j].BetType
		}
		if rows[i].Margin != rows[j].Margin {
			return rows[i].Margin < rows[j].Margin
		}
		return rows[i].Bookmaker < rows[j].Bookmaker
	})
	return rows, nil
}

func (s *MemoryStore) MatchByID(ctx context.Context, matchID int64) (*models.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.matches[matchID]
	if !ok {
		return nil, nil
	}
	clone := *m
	return &clone, nil
}

func (s *MemoryStore) UpcomingMatches(ctx context.Context, horizon time.Duration, limit int) ([]models.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.Now()
	var out []models.Match
	for _, m := range s.matches {
		if m.Status != models.StatusUpcoming {
			continue
		}
		if m.StartTime.Before(now) || m.StartTime.After(now.Add(horizon)) {
			continue
		}
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) ArbitrageSeen(ctx context.Context, arbHash string, within time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	arb, ok := s.arbByHash[arbHash]
	if !ok {
		return false, nil
	}
	return arb.DetectedAt.After(s.Now().Add(-within)), nil
}

func (s *MemoryStore) InsertArbitrage(ctx context.Context, arb *models.Arbitrage) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.arbByHash[arb.ArbHash]; ok {
		return false, nil
	}
	s.nextArbID++
	arb.ID = s.nextArbID
	arb.IsActive = true
	if arb.DetectedAt.IsZero() {
		arb.DetectedAt = s.Now()
	}
	clone := *arb
	s.arbitrages = append(s.arbitrages, &clone)
	s.arbByHash[arb.ArbHash] = &clone
	return true, nil
}

func (s *MemoryStore) ActiveArbitrage(ctx context.Context, limit int) ([]models.Arbitrage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Arbitrage
	for _, arb := range s.arbitrages {
		if arb.IsActive {
			out = append(out, *arb)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProfitPercent > out[j].ProfitPercent })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) MarkFinished(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.Now()
	for _, arb := range s.arbitrages {
		if arb.IsActive {
			if m, ok := s.matches[arb.MatchID]; ok && m.StartTime.Before(now) {
				arb.IsActive = false
			}
		}
	}

	finished := 0
	for _, m := range s.matches {
		if m.Status == models.StatusUpcoming && m.StartTime.Before(now.Add(-FinishedGrace)) {
			m.Status = models.StatusFinished
			m.UpdatedAt = now
			finished++
		}
	}
	return finished, nil
}

func (s *MemoryStore) Cleanup(ctx context.Context, keepDays int) (CleanupResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.Now().AddDate(0, 0, -keepDays)
	var result CleanupResult

	kept := s.history[:0]
	for _, h := range s.history {
		if h.RecordedAt.After(cutoff) {
			kept = append(kept, h)
		} else {
			result.HistoryDeleted++
		}
	}
	s.history = kept

	for _, arb := range s.arbitrages {
		if arb.IsActive && arb.DetectedAt.Before(cutoff) {
			arb.IsActive = false
			result.ArbitrageDeactivated++
		}
	}

	now := s.Now()
	for _, m := range s.matches {
		if m.Status == models.StatusUpcoming && m.StartTime.Before(now.Add(-FinishedGrace)) {
			m.Status = models.StatusFinished
			result.MatchesFinished++
		}
	}
	return result, nil
}

func (s *MemoryStore) Stats(ctx context.Context) (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var st Stats
	for _, m := range s.matches {
		if m.Status == models.StatusUpcoming {
			st.UpcomingMatches++
		}
	}
	st.CurrentOdds = len(s.odds)
	books := make(map[catalog.BookmakerID]bool)
	for key := range s.odds {
		books[key.Bookmaker] = true
	}
	st.BookmakersWithOdds = len(books)
	for _, arb := range s.arbitrages {
		if arb.IsActive {
			st.ActiveArbitrage++
		}
	}
	return st, nil
}

// HistoryCount reports stored history snapshots, optionally for one match.
// Test helper; the Postgres store exposes the same through SQL.
func (s *MemoryStore) HistoryCount(matchID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if matchID == 0 {
		return len(s.history)
	}
	n := 0
	for _, h := range s.history {
		if h.MatchID == matchID {
			n++
		}
	}
	return n
}

func (s *MemoryStore) Close() error { return nil }

// dedupeScraped merges duplicate scraped matches (same normalized key) the
// way the bulk flush expects: some books return the same event twice with
// different market subsets.
func dedupeScraped(scraped []models.ScrapedMatch) []models.ScrapedMatch {
	type key struct {
		t1n, t2n string
		sport    catalog.SportID
		start    int64
	}
	seen := make(map[key]int)
	var unique []models.ScrapedMatch
	for _, sm := range scraped {
		k := key{
			t1n:   matching.NormalizeTeam(sm.Team1),
			t2n:   matching.NormalizeTeam(sm.Team2),
			sport: sm.Sport,
			start: sm.StartTime.UTC().Unix(),
		}
		if idx, ok := seen[k]; ok {
			unique[idx].Odds = append(unique[idx].Odds, sm.Odds...)
			continue
		}
		seen[k] = len(unique)
		unique = append(unique, sm)
	}
	return unique
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
