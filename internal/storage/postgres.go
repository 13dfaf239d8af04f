package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/betsnipe/betsnipe/internal/matching"
	"github.com/betsnipe/betsnipe/internal/pkg/catalog"
	"github.com/betsnipe/betsnipe/internal/pkg/models"
)

// PostgresStore is the production Store backed by PostgreSQL. Schema is
// created on connect; the upsert paths rely on ON CONFLICT so the store is
// safe under concurrent bookmaker flushes.
type PostgresStore struct {
	db            *sql.DB
	matcher       *matching.Matcher
	enableHistory bool
}

var _ Store = (*PostgresStore)(nil)

func NewPostgresStore(ctx context.Context, databaseURL string, matcher *matching.Matcher, enableHistory bool) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &PostgresStore{db: db, matcher: matcher, enableHistory: enableHistory}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS leagues (
			id SERIAL PRIMARY KEY,
			sport_id INT NOT NULL,
			name TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (sport_id, name)
		)`,
		`CREATE TABLE IF NOT EXISTS matches (
			id BIGSERIAL PRIMARY KEY,
			team1 TEXT NOT NULL,
			team2 TEXT NOT NULL,
			team1_norm TEXT NOT NULL,
			team2_norm TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			sport_id INT NOT NULL,
			league TEXT NOT NULL DEFAULT '',
			start_time TIMESTAMPTZ NOT NULL,
			external_ids JSONB NOT NULL DEFAULT '{}',
			status TEXT NOT NULL DEFAULT 'upcoming',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_matches_lookup
			ON matches (sport_id, status, start_time)`,
		`CREATE INDEX IF NOT EXISTS idx_matches_norm
			ON matches (team1_norm, team2_norm)`,
		`CREATE TABLE IF NOT EXISTS current_odds (
			match_id BIGINT NOT NULL REFERENCES matches(id) ON DELETE CASCADE,
			bookmaker_id INT NOT NULL,
			bet_type_id INT NOT NULL,
			margin NUMERIC(10,2) NOT NULL DEFAULT 0,
			selection TEXT NOT NULL DEFAULT '',
			odd1 DOUBLE PRECISION NOT NULL DEFAULT 0,
			odd2 DOUBLE PRECISION NOT NULL DEFAULT 0,
			odd3 DOUBLE PRECISION NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (match_id, bookmaker_id, bet_type_id, margin, selection)
		)`,
		`CREATE TABLE IF NOT EXISTS odds_history (
			id BIGSERIAL PRIMARY KEY,
			match_id BIGINT NOT NULL,
			bookmaker_id INT NOT NULL,
			bet_type_id INT NOT NULL,
			margin NUMERIC(10,2) NOT NULL DEFAULT 0,
			selection TEXT NOT NULL DEFAULT '',
			odd1 DOUBLE PRECISION NOT NULL DEFAULT 0,
			odd2 DOUBLE PRECISION NOT NULL DEFAULT 0,
			odd3 DOUBLE PRECISION NOT NULL DEFAULT 0,
			recorded_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_odds_history_recorded
			ON odds_history (recorded_at)`,
		`CREATE INDEX IF NOT EXISTS idx_odds_history_match
			ON odds_history (match_id, bet_type_id)`,
		`CREATE TABLE IF NOT EXISTS arbitrage_opportunities (
			id BIGSERIAL PRIMARY KEY,
			match_id BIGINT NOT NULL REFERENCES matches(id) ON DELETE CASCADE,
			bet_type_id INT NOT NULL,
			margin NUMERIC(10,2) NOT NULL DEFAULT 0,
			profit_percent DOUBLE PRECISION NOT NULL,
			best_odds JSONB NOT NULL,
			stakes JSONB NOT NULL,
			arb_hash TEXT NOT NULL UNIQUE,
			detected_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			expires_at TIMESTAMPTZ NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT true
		)`,
		`CREATE INDEX IF NOT EXISTS idx_arbitrage_active
			ON arbitrage_opportunities (is_active, detected_at)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) ResolveOrCreateMatch(ctx context.Context, scraped models.ScrapedMatch, bookmaker catalog.BookmakerID) (int64, error) {
	t1n := matching.NormalizeTeam(scraped.Team1)
	t2n := matching.NormalizeTeam(scraped.Team2)
	category := matching.CategoryKey(scraped.Team1, scraped.Team2)
	window := time.Duration(catalog.TimeWindowMinutes(scraped.Sport)) * time.Minute

	// Exact normalized lookup, either team order, inside the sport window.
	// The category key keeps youth and women's sides apart from the senior
	// side with the same normalized name.
	var matchID int64
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM matches
		WHERE sport_id = $1 AND status = 'upcoming' AND category = $6
		  AND ((team1_norm = $2 AND team2_norm = $3)
		    OR (team1_norm = $3 AND team2_norm = $2))
		  AND abs(extract(epoch FROM (start_time - $4::timestamptz))) <= $5
		ORDER BY abs(extract(epoch FROM (start_time - $4::timestamptz)))
		LIMIT 1`,
		scraped.Sport, t1n, t2n, scraped.StartTime.UTC(), window.Seconds(), category,
	).Scan(&matchID)
	switch {
	case err == nil:
		return matchID, s.attachExternalID(ctx, matchID, bookmaker, scraped.ExternalID)
	case !errors.Is(err, sql.ErrNoRows):
		return 0, fmt.Errorf("failed to look up match: %w", err)
	}

	// Fuzzy pass over candidates in the broad window.
	candidates, err := s.matchCandidates(ctx, scraped.Sport, scraped.StartTime, 2*window)
	if err != nil {
		return 0, err
	}
	input := matching.Input{
		Team1:     scraped.Team1,
		Team2:     scraped.Team2,
		Sport:     scraped.Sport,
		StartTime: scraped.StartTime,
		League:    scraped.League,
	}
	if best, _ := s.matcher.FindBestMatch(input, candidates); best != nil {
		return best.ID, s.attachExternalID(ctx, best.ID, bookmaker, scraped.ExternalID)
	}

	if scraped.League != "" {
		if err := s.upsertLeague(ctx, scraped.Sport, scraped.League); err != nil {
			return 0, err
		}
	}

	externalIDs := map[catalog.BookmakerID]string{}
	if scraped.ExternalID != "" {
		externalIDs[bookmaker] = scraped.ExternalID
	}
	extJSON, err := json.Marshal(externalIDs)
	if err != nil {
		return 0, fmt.Errorf("failed to encode external ids: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `
		INSERT INTO matches (team1, team2, team1_norm, team2_norm, category, sport_id, league, start_time, external_ids)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		scraped.Team1, scraped.Team2, t1n, t2n, category, scraped.Sport, scraped.League,
		scraped.StartTime.UTC(), extJSON,
	).Scan(&matchID)
	if err != nil {
		return 0, fmt.Errorf("failed to insert match: %w", err)
	}
	return matchID, nil
}

func (s *PostgresStore) matchCandidates(ctx context.Context, sport catalog.SportID, around time.Time, window time.Duration) ([]models.Match, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, team1, team2, team1_norm, team2_norm, category, sport_id, league, start_time, status
		FROM matches
		WHERE sport_id = $1 AND status = 'upcoming'
		  AND start_time BETWEEN $2 AND $3`,
		sport, around.Add(-window).UTC(), around.Add(window).UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query candidates: %w", err)
	}
	defer rows.Close()

	var out []models.Match
	for rows.Next() {
		var m models.Match
		if err := rows.Scan(&m.ID, &m.Team1, &m.Team2, &m.Team1Norm, &m.Team2Norm,
			&m.Category, &m.Sport, &m.League, &m.StartTime, &m.Status); err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// attachExternalID merges the bookmaker's event id into the match. The JSONB
// concatenation grows the map and never overwrites an existing entry.
func (s *PostgresStore) attachExternalID(ctx context.Context, matchID int64, bookmaker catalog.BookmakerID, externalID string) error {
	if externalID == "" {
		return nil
	}
	ext, err := json.Marshal(map[catalog.BookmakerID]string{bookmaker: externalID})
	if err != nil {
		return fmt.Errorf("failed to encode external id: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE matches
		SET external_ids = $2::jsonb || external_ids, updated_at = now()
		WHERE id = $1`,
		matchID, ext)
	if err != nil {
		return fmt.Errorf("failed to attach external id: %w", err)
	}
	return nil
}

func (s *PostgresStore) upsertLeague(ctx context.Context, sport catalog.SportID, name string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO leagues (sport_id, name) VALUES ($1, $2)
		ON CONFLICT (sport_id, name) DO NOTHING`,
		sport, name)
	if err != nil {
		return fmt.Errorf("failed to upsert league: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpsertCurrentOdds(ctx context.Context, row models.OddsRow) (bool, error) {
	// The WHERE clause on DO UPDATE makes unchanged rows a no-op; RETURNING
	// then yields no row, which is the "unchanged" signal.
	var one int
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO current_odds (match_id, bookmaker_id, bet_type_id, margin, selection, odd1, odd2, odd3, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		ON CONFLICT (match_id, bookmaker_id, bet_type_id, margin, selection) DO UPDATE
		SET odd1 = EXCLUDED.odd1, odd2 = EXCLUDED.odd2, odd3 = EXCLUDED.odd3, updated_at = now()
		WHERE (current_odds.odd1, current_odds.odd2, current_odds.odd3)
			IS DISTINCT FROM (EXCLUDED.odd1, EXCLUDED.odd2, EXCLUDED.odd3)
		RETURNING 1`,
		row.MatchID, row.Bookmaker, row.BetType, roundMargin(row.Margin), row.Selection,
		row.Odd1, row.Odd2, row.Odd3,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to upsert odds: %w", err)
	}

	if s.enableHistory {
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO odds_history (match_id, bookmaker_id, bet_type_id, margin, selection, odd1, odd2, odd3)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			row.MatchID, row.Bookmaker, row.BetType, roundMargin(row.Margin), row.Selection,
			row.Odd1, row.Odd2, row.Odd3)
		if err != nil {
			return true, fmt.Errorf("failed to record odds history: %w", err)
		}
	}
	return true, nil
}

func (s *PostgresStore) BulkUpsert(ctx context.Context, scraped []models.ScrapedMatch, bookmaker catalog.BookmakerID) (BulkResult, error) {
	var result BulkResult
	changedByMatch := make(map[int64]bool)

	for _, sm := range dedupeScraped(scraped) {
		if matching.NormalizeTeam(sm.Team1) == "" || matching.NormalizeTeam(sm.Team2) == "" {
			continue
		}
		matchID, err := s.ResolveOrCreateMatch(ctx, sm, bookmaker)
		if err != nil {
			return result, err
		}
		result.Processed++

		changed := false
		for _, o := range sm.Odds {
			rowChanged, err := s.UpsertCurrentOdds(ctx, models.OddsRow{
				MatchID:   matchID,
				Bookmaker: bookmaker,
				BetType:   o.BetType,
				Margin:    o.Margin,
				Selection: o.Selection,
				Odd1:      o.Odd1,
				Odd2:      o.Odd2,
				Odd3:      o.Odd3,
			})
			if err != nil {
				return result, err
			}
			if rowChanged {
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

func (s *PostgresStore) CurrentOddsForMatch(ctx context.Context, matchID int64) ([]models.OddsRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT match_id, bookmaker_id, bet_type_id, margin, selection, odd1, odd2, odd3, updated_at
		FROM current_odds
		WHERE match_id = $1
		ORDER BY bet_type_id, margin, bookmaker_id`,
		matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query odds: %w", err)
	}
	defer rows.Close()

	var out []models.OddsRow
	for rows.Next() {
		var r models.OddsRow
		if err := rows.Scan(&r.MatchID, &r.Bookmaker, &r.BetType, &r.Margin, &r.Selection,
			&r.Odd1, &r.Odd2, &r.Odd3, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan odds row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PostgresStore) MatchByID(ctx context.Context, matchID int64) (*models.Match, error) {
	var m models.Match
	var ext []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT id, team1, team2, team1_norm, team2_norm, category, sport_id, league, start_time,
		       external_ids, status, created_at, updated_at
		FROM matches WHERE id = $1`,
		matchID,
	).Scan(&m.ID, &m.Team1, &m.Team2, &m.Team1Norm, &m.Team2Norm, &m.Category, &m.Sport, &m.League,
		&m.StartTime, &ext, &m.Status, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query match: %w", err)
	}
	if err := json.Unmarshal(ext, &m.ExternalIDs); err != nil {
		return nil, fmt.Errorf("failed to decode external ids: %w", err)
	}
	return &m, nil
}

func (s *PostgresStore) UpcomingMatches(ctx context.Context, horizon time.Duration, limit int) ([]models.Match, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, team1, team2, team1_norm, team2_norm, category, sport_id, league, start_time, status
		FROM matches
		WHERE status = 'upcoming' AND start_time BETWEEN now() AND now() + $1 * interval '1 second'
		ORDER BY start_time
		LIMIT $2`,
		horizon.Seconds(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query upcoming matches: %w", err)
	}
	defer rows.Close()

	var out []models.Match
	for rows.Next() {
		var m models.Match
		if err := rows.Scan(&m.ID, &m.Team1, &m.Team2, &m.Team1Norm, &m.Team2Norm,
			&m.Category, &m.Sport, &m.League, &m.StartTime, &m.Status); err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ArbitrageSeen(ctx context.Context, arbHash string, within time.Duration) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `
		SELECT 1 FROM arbitrage_opportunities
		WHERE arb_hash = $1 AND detected_at > now() - $2 * interval '1 second'
		LIMIT 1`,
		arbHash, within.Seconds(),
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check arbitrage hash: %w", err)
	}
	return true, nil
}

func (s *PostgresStore) InsertArbitrage(ctx context.Context, arb *models.Arbitrage) (bool, error) {
	bestOdds, err := json.Marshal(arb.BestOdds)
	if err != nil {
		return false, fmt.Errorf("failed to encode best odds: %w", err)
	}
	stakes, err := json.Marshal(arb.Stakes)
	if err != nil {
		return false, fmt.Errorf("failed to encode stakes: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `
		INSERT INTO arbitrage_opportunities
			(match_id, bet_type_id, margin, profit_percent, best_odds, stakes, arb_hash, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (arb_hash) DO NOTHING
		RETURNING id, detected_at`,
		arb.MatchID, arb.BetType, roundMargin(arb.Margin), arb.ProfitPercent,
		bestOdds, stakes, arb.ArbHash, arb.ExpiresAt.UTC(),
	).Scan(&arb.ID, &arb.DetectedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return false, nil
		}
		return false, fmt.Errorf("failed to insert arbitrage: %w", err)
	}
	arb.IsActive = true
	return true, nil
}

func (s *PostgresStore) ActiveArbitrage(ctx context.Context, limit int) ([]models.Arbitrage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.id, a.match_id, m.team1, m.team2, m.sport_id, m.start_time,
		       a.bet_type_id, a.margin, a.profit_percent, a.best_odds, a.stakes,
		       a.arb_hash, a.detected_at, a.expires_at, a.is_active
		FROM arbitrage_opportunities a
		JOIN matches m ON m.id = a.match_id
		WHERE a.is_active
		ORDER BY a.profit_percent DESC
		LIMIT $1`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query arbitrage: %w", err)
	}
	defer rows.Close()

	var out []models.Arbitrage
	for rows.Next() {
		var a models.Arbitrage
		var bestOdds, stakes []byte
		if err := rows.Scan(&a.ID, &a.MatchID, &a.Team1, &a.Team2, &a.Sport, &a.StartTime,
			&a.BetType, &a.Margin, &a.ProfitPercent, &bestOdds, &stakes,
			&a.ArbHash, &a.DetectedAt, &a.ExpiresAt, &a.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan arbitrage: %w", err)
		}
		if err := json.Unmarshal(bestOdds, &a.BestOdds); err != nil {
			return nil, fmt.Errorf("failed to decode best odds: %w", err)
		}
		if err := json.Unmarshal(stakes, &a.Stakes); err != nil {
			return nil, fmt.Errorf("failed to decode stakes: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *PostgresStore) MarkFinished(ctx context.Context) (int, error) {
	_, err := s.db.ExecContext(ctx, `
		UPDATE arbitrage_opportunities a
		SET is_active = false
		FROM matches m
		WHERE a.is_active AND m.id = a.match_id AND m.start_time < now()`)
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate arbitrage: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE matches
		SET status = 'finished', updated_at = now()
		WHERE status = 'upcoming' AND start_time < now() - $1 * interval '1 second'`,
		FinishedGrace.Seconds())
	if err != nil {
		return 0, fmt.Errorf("failed to finish matches: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *PostgresStore) Cleanup(ctx context.Context, keepDays int) (CleanupResult, error) {
	var result CleanupResult

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM odds_history WHERE recorded_at < now() - $1 * interval '1 day'`,
		keepDays)
	if err != nil {
		return result, fmt.Errorf("failed to prune odds history: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil {
		result.HistoryDeleted = int(n)
	}

	res, err = s.db.ExecContext(ctx, `
		UPDATE arbitrage_opportunities
		SET is_active = false
		WHERE is_active AND detected_at < now() - $1 * interval '1 day'`,
		keepDays)
	if err != nil {
		return result, fmt.Errorf("failed to deactivate stale arbitrage: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil {
		result.ArbitrageDeactivated = int(n)
	}

	finished, err := s.MarkFinished(ctx)
	if err != nil {
		return result, err
	}
	result.MatchesFinished = finished
	return result, nil
}

func (s *PostgresStore) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT count(*) FROM matches WHERE status = 'upcoming'),
			(SELECT count(*) FROM current_odds),
			(SELECT count(*) FROM arbitrage_opportunities WHERE is_active),
			(SELECT count(DISTINCT bookmaker_id) FROM current_odds)`,
	).Scan(&st.UpcomingMatches, &st.CurrentOdds, &st.ActiveArbitrage, &st.BookmakersWithOdds)
	if err != nil {
		return st, fmt.Errorf("failed to query stats: %w", err)
	}
	return st, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
