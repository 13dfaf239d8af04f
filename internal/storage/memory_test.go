package storage

import (
	"context"
	"testing"
	"time"

	"github.com/betsnipe/betsnipe/internal/matching"
	"github.com/betsnipe/betsnipe/internal/pkg/catalog"
	"github.com/betsnipe/betsnipe/internal/pkg/models"
)

func newTestStore(t *testing.T) *MemoryStore {
	t.Helper()
	s := NewMemoryStore(matching.New(75), true)
	base := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	s.Now = func() time.Time { return base }
	return s
}

func scrapedMatch(team1, team2 string, start time.Time, odds ...models.ScrapedOdds) models.ScrapedMatch {
	return models.ScrapedMatch{
		Team1:     team1,
		Team2:     team2,
		Sport:     catalog.Football,
		StartTime: start,
		Odds:      odds,
	}
}

func TestResolveOrCreateMatchFusesAcrossBookmakers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	start := s.Now().Add(3 * time.Hour)

	id1, err := s.ResolveOrCreateMatch(ctx, models.ScrapedMatch{
		Team1: "Borussia Dortmund", Team2: "Bayern Munich",
		Sport: catalog.Football, StartTime: start, ExternalID: "moz-1",
	}, catalog.Mozzart)
	if err != nil {
		t.Fatal(err)
	}

	// Same event from another book: shortened name, slight time skew.
	id2, err := s.ResolveOrCreateMatch(ctx, models.ScrapedMatch{
		Team1: "Dortmund", Team2: "Bayern",
		Sport: catalog.Football, StartTime: start.Add(2 * time.Minute), ExternalID: "max-9",
	}, catalog.Maxbet)
	if err != nil {
		t.Fatal(err)
	}
	if id1 != id2 {
		t.Fatalf("expected fusion into one match, got %d and %d", id1, id2)
	}

	m, err := s.MatchByID(ctx, id1)
	if err != nil {
		t.Fatal(err)
	}
	if m.ExternalIDs[catalog.Mozzart] != "moz-1" || m.ExternalIDs[catalog.Maxbet] != "max-9" {
		t.Fatalf("external ids not merged: %v", m.ExternalIDs)
	}
}

func TestResolveOrCreateMatchKeepsDistinctEvents(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	start := s.Now().Add(2 * time.Hour)

	tests := []struct {
		name   string
		first  models.ScrapedMatch
		second models.ScrapedMatch
	}{
		{
			name:   "different teams",
			first:  scrapedMatch("Arsenal", "Chelsea", start),
			second: scrapedMatch("Liverpool", "Everton", start),
		},
		{
			name:   "senior vs U19",
			first:  scrapedMatch("Partizan", "Crvena Zvezda", start),
			second: scrapedMatch("Partizan U19", "Crvena Zvezda U19", start),
		},
		{
			name:   "outside time window",
			first:  scrapedMatch("Ajax", "PSV", start),
			second: scrapedMatch("Ajax", "PSV", start.Add(5*time.Hour)),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id1, err := s.ResolveOrCreateMatch(ctx, tt.first, catalog.Mozzart)
			if err != nil {
				t.Fatal(err)
			}
			id2, err := s.ResolveOrCreateMatch(ctx, tt.second, catalog.Maxbet)
			if err != nil {
				t.Fatal(err)
			}
			if id1 == id2 {
				t.Fatalf("events wrongly fused into match %d", id1)
			}
		})
	}
}

func TestUpsertCurrentOddsChangeDetection(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	matchID, err := s.ResolveOrCreateMatch(ctx,
		scrapedMatch("Arsenal", "Chelsea", s.Now().Add(time.Hour)), catalog.Mozzart)
	if err != nil {
		t.Fatal(err)
	}

	row := models.OddsRow{
		MatchID:   matchID,
		Bookmaker: catalog.Mozzart,
		BetType:   catalog.FullTime1X2,
		Odd1:      2.10, Odd2: 3.40, Odd3: 3.60,
	}

	changed, err := s.UpsertCurrentOdds(ctx, row)
	if err != nil {
		t.Fatal(err)
	}
	if !changed {
		t.Fatal("first insert should report changed")
	}

	changed, err = s.UpsertCurrentOdds(ctx, row)
	if err != nil {
		t.Fatal(err)
	}
	if changed {
		t.Fatal("identical re-upsert should report unchanged")
	}

	row.Odd1 = 2.15
	changed, err = s.UpsertCurrentOdds(ctx, row)
	if err != nil {
		t.Fatal(err)
	}
	if !changed {
		t.Fatal("odds movement should report changed")
	}

	if got := s.HistoryCount(matchID); got != 2 {
		t.Fatalf("expected 2 history snapshots, got %d", got)
	}
	rows, err := s.CurrentOddsForMatch(ctx, matchID)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Odd1 != 2.15 {
		t.Fatalf("unexpected current odds: %+v", rows)
	}
}

func TestBulkUpsertCoalescesChangedMatches(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	start := s.Now().Add(time.Hour)

	batch := []models.ScrapedMatch{
		scrapedMatch("Arsenal", "Chelsea", start,
			models.ScrapedOdds{BetType: catalog.FullTime1X2, Odd1: 2.1, Odd2: 3.4, Odd3: 3.6},
			models.ScrapedOdds{BetType: catalog.TotalOverUnder, Margin: 2.5, Odd1: 1.85, Odd2: 1.95},
		),
		scrapedMatch("Liverpool", "Everton", start,
			models.ScrapedOdds{BetType: catalog.FullTime1X2, Odd1: 1.5, Odd2: 4.2, Odd3: 6.0},
		),
	}

	result, err := s.BulkUpsert(ctx, batch, catalog.Mozzart)
	if err != nil {
		t.Fatal(err)
	}
	if result.Processed != 2 || len(result.Changed) != 2 {
		t.Fatalf("unexpected result: %+v", result)
	}

	// Second identical flush: nothing changed.
	result, err = s.BulkUpsert(ctx, batch, catalog.Mozzart)
	if err != nil {
		t.Fatal(err)
	}
	if result.Processed != 2 || len(result.Changed) != 0 {
		t.Fatalf("unchanged flush should report no changes: %+v", result)
	}
}

func TestBulkUpsertMergesDuplicateEvents(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	start := s.Now().Add(time.Hour)

	// Same event twice with different market subsets, as some books return.
	batch := []models.ScrapedMatch{
		scrapedMatch("Arsenal", "Chelsea", start,
			models.ScrapedOdds{BetType: catalog.FullTime1X2, Odd1: 2.1, Odd2: 3.4, Odd3: 3.6}),
		scrapedMatch("Arsenal", "Chelsea", start,
			models.ScrapedOdds{BetType: catalog.BTTS, Odd1: 1.7, Odd2: 2.0}),
	}

	result, err := s.BulkUpsert(ctx, batch, catalog.Mozzart)
	if err != nil {
		t.Fatal(err)
	}
	if result.Processed != 1 {
		t.Fatalf("duplicates should merge to one match, processed=%d", result.Processed)
	}

	rows, err := s.CurrentOddsForMatch(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected both market rows, got %d", len(rows))
	}
}

func TestArbitrageInsertAndDedup(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	matchID, err := s.ResolveOrCreateMatch(ctx,
		scrapedMatch("Arsenal", "Chelsea", s.Now().Add(time.Hour)), catalog.Mozzart)
	if err != nil {
		t.Fatal(err)
	}

	arb := &models.Arbitrage{
		MatchID:       matchID,
		BetType:       catalog.FullTime1X2,
		ProfitPercent: 4.76,
		ArbHash:       "abc123",
		ExpiresAt:     s.Now().Add(time.Hour),
	}
	inserted, err := s.InsertArbitrage(ctx, arb)
	if err != nil {
		t.Fatal(err)
	}
	if !inserted {
		t.Fatal("first insert should succeed")
	}

	inserted, err = s.InsertArbitrage(ctx, &models.Arbitrage{MatchID: matchID, ArbHash: "abc123"})
	if err != nil {
		t.Fatal(err)
	}
	if inserted {
		t.Fatal("duplicate hash should be rejected")
	}

	seen, err := s.ArbitrageSeen(ctx, "abc123", 24*time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if !seen {
		t.Fatal("hash should be seen inside the window")
	}
	seen, err = s.ArbitrageSeen(ctx, "missing", 24*time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if seen {
		t.Fatal("unknown hash should not be seen")
	}
}

func TestMarkFinishedLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := s.Now()

	// One match started 1h ago (inside grace), one 5h ago (past grace).
	recentID, err := s.ResolveOrCreateMatch(ctx,
		scrapedMatch("Arsenal", "Chelsea", base.Add(-time.Hour)), catalog.Mozzart)
	if err != nil {
		t.Fatal(err)
	}
	oldID, err := s.ResolveOrCreateMatch(ctx,
		scrapedMatch("Liverpool", "Everton", base.Add(-5*time.Hour)), catalog.Mozzart)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := s.InsertArbitrage(ctx, &models.Arbitrage{
		MatchID: recentID, ArbHash: "h1", ExpiresAt: base,
	}); err != nil {
		t.Fatal(err)
	}

	finished, err := s.MarkFinished(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if finished != 1 {
		t.Fatalf("expected 1 finished match, got %d", finished)
	}

	m, _ := s.MatchByID(ctx, oldID)
	if m.Status != models.StatusFinished {
		t.Fatalf("old match should be finished, got %s", m.Status)
	}
	m, _ = s.MatchByID(ctx, recentID)
	if m.Status != models.StatusUpcoming {
		t.Fatalf("recent match should still accept odds, got %s", m.Status)
	}

	// Arbitrage on a started match is deactivated even inside the grace.
	active, err := s.ActiveArbitrage(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 0 {
		t.Fatalf("arbitrage on started match should be inactive: %+v", active)
	}
}

func TestCleanupRetention(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := s.Now()

	matchID, err := s.ResolveOrCreateMatch(ctx,
		scrapedMatch("Arsenal", "Chelsea", base.Add(time.Hour)), catalog.Mozzart)
	if err != nil {
		t.Fatal(err)
	}

	// Old snapshot, then a fresh one.
	s.Now = func() time.Time { return base.AddDate(0, 0, -10) }
	if _, err := s.UpsertCurrentOdds(ctx, models.OddsRow{
		MatchID: matchID, Bookmaker: catalog.Mozzart, BetType: catalog.FullTime1X2,
		Odd1: 2.0, Odd2: 3.0, Odd3: 4.0,
	}); err != nil {
		t.Fatal(err)
	}
	s.Now = func() time.Time { return base }
	if _, err := s.UpsertCurrentOdds(ctx, models.OddsRow{
		MatchID: matchID, Bookmaker: catalog.Mozzart, BetType: catalog.FullTime1X2,
		Odd1: 2.1, Odd2: 3.0, Odd3: 4.0,
	}); err != nil {
		t.Fatal(err)
	}

	result, err := s.Cleanup(ctx, 7)
	if err != nil {
		t.Fatal(err)
	}
	if result.HistoryDeleted != 1 {
		t.Fatalf("expected 1 pruned snapshot, got %d", result.HistoryDeleted)
	}
	if got := s.HistoryCount(matchID); got != 1 {
		t.Fatalf("expected 1 remaining snapshot, got %d", got)
	}
}

func TestUpcomingMatchesHorizon(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := s.Now()

	for _, start := range []time.Time{
		base.Add(time.Hour),
		base.Add(30 * time.Hour), // outside 24h horizon
		base.Add(-time.Hour),     // already started
	} {
		if _, err := s.ResolveOrCreateMatch(ctx,
			scrapedMatch("Team A "+start.String(), "Team B "+start.String(), start),
			catalog.Mozzart); err != nil {
			t.Fatal(err)
		}
	}

	matches, err := s.UpcomingMatches(ctx, 24*time.Hour, 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 match inside horizon, got %d", len(matches))
	}
}
