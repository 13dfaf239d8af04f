package arbitrage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/betsnipe/betsnipe/internal/pkg/catalog"
	"github.com/betsnipe/betsnipe/internal/pkg/models"
	"github.com/betsnipe/betsnipe/internal/storage"
)

const (
	// DetectionHorizon bounds how far ahead the per-cycle sweep looks.
	DetectionHorizon = 24 * time.Hour
	// MaxMatchesPerSweep caps the work of one sweep.
	MaxMatchesPerSweep = 500
)

// Detector finds cross-bookmaker arbitrage in the store's current odds. It
// never scrapes; it only reads from the store and writes opportunities back.
type Detector struct {
	store       storage.Store
	minProfit   float64
	dedupWindow time.Duration
}

func NewDetector(store storage.Store, minProfitPercent float64, dedupWindow time.Duration) *Detector {
	return &Detector{
		store:       store,
		minProfit:   minProfitPercent,
		dedupWindow: dedupWindow,
	}
}

type marketKey struct {
	BetType catalog.BetTypeID
	Margin  float64
}

// CheckMatch evaluates all markets of one match and persists new
// opportunities, returning only the ones actually inserted this call.
func (d *Detector) CheckMatch(ctx context.Context, match models.Match) ([]models.Arbitrage, error) {
	rows, err := d.store.CurrentOddsForMatch(ctx, match.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load odds for match %d: %w", match.ID, err)
	}

	groups := make(map[marketKey][]models.OddsRow)
	for _, row := range rows {
		arity := catalog.Outcomes(row.BetType)
		if arity != 2 && arity != 3 {
			continue // selection markets have no fixed outcome set to cover
		}
		key := marketKey{BetType: row.BetType, Margin: round(row.Margin, 3)}
		groups[key] = append(groups[key], row)
	}

	var found []models.Arbitrage
	for key, group := range groups {
		arb := d.evaluate(match, key, group)
		if arb == nil {
			continue
		}

		seen, err := d.store.ArbitrageSeen(ctx, arb.ArbHash, d.dedupWindow)
		if err != nil {
			return found, err
		}
		if seen {
			continue
		}
		inserted, err := d.store.InsertArbitrage(ctx, arb)
		if err != nil {
			return found, err
		}
		if !inserted {
			continue // lost a concurrent duplicate race
		}

		slog.Info("arbitrage detected",
			"match_id", match.ID,
			"teams", match.Team1+" - "+match.Team2,
			"bet_type", catalog.BetTypeName(arb.BetType),
			"margin", arb.Margin,
			"profit_pct", arb.ProfitPercent)
		found = append(found, *arb)
	}
	return found, nil
}

// evaluate computes the best-odds cover of one market group and returns an
// opportunity when the implied probabilities sum below 1 and the profit
// clears the configured floor.
func (d *Detector) evaluate(match models.Match, key marketKey, group []models.OddsRow) *models.Arbitrage {
	arity := catalog.Outcomes(key.BetType)

	best := make([]models.BestOdd, arity)
	for _, row := range group {
		odds := [3]float64{row.Odd1, row.Odd2, row.Odd3}
		for i := 0; i < arity; i++ {
			if odds[i] > 1.0 && odds[i] > best[i].Odd {
				best[i] = models.BestOdd{
					Bookmaker:     row.Bookmaker,
					BookmakerName: catalog.BookmakerName(row.Bookmaker),
					Outcome:       outcomeLabel(key.BetType, arity, i),
					Odd:           odds[i],
				}
			}
		}
	}

	impliedSum := 0.0
	books := make(map[catalog.BookmakerID]bool)
	for _, leg := range best {
		if leg.Odd <= 1.0 {
			return nil // outcome not covered by any book
		}
		impliedSum += 1 / leg.Odd
		books[leg.Bookmaker] = true
	}
	if impliedSum >= 1 || len(books) < 2 {
		return nil
	}

	profit := (1/impliedSum - 1) * 100
	if profit < d.minProfit {
		return nil
	}

	stakes := make([]float64, arity)
	for i, leg := range best {
		stakes[i] = round((1/leg.Odd)/impliedSum*100, 2)
	}

	return &models.Arbitrage{
		MatchID:       match.ID,
		Team1:         match.Team1,
		Team2:         match.Team2,
		Sport:         match.Sport,
		StartTime:     match.StartTime,
		BetType:       key.BetType,
		Margin:        key.Margin,
		ProfitPercent: round(profit, 2),
		BestOdds:      best,
		Stakes:        stakes,
		ArbHash:       arbHash(match.ID, key.BetType, key.Margin, best, profit),
		ExpiresAt:     match.StartTime,
	}
}

// Sweep runs detection over the upcoming-match window and returns every
// newly persisted opportunity. Per-match errors abort the sweep; the engine
// logs and retries next cycle.
func (d *Detector) Sweep(ctx context.Context) ([]models.Arbitrage, error) {
	matches, err := d.store.UpcomingMatches(ctx, DetectionHorizon, MaxMatchesPerSweep)
	if err != nil {
		return nil, fmt.Errorf("failed to list upcoming matches: %w", err)
	}

	var all []models.Arbitrage
	for _, match := range matches {
		if err := ctx.Err(); err != nil {
			return all, err
		}
		found, err := d.CheckMatch(ctx, match)
		if err != nil {
			return all, err
		}
		all = append(all, found...)
	}
	return all, nil
}

// outcomeLabel names outcome i of a grouped market the way the alerting and
// feed layers present it.
func outcomeLabel(betType catalog.BetTypeID, arity, i int) string {
	switch betType {
	// Totals rows store (under, over) in (odd1, odd2) across every book.
	case catalog.TotalOverUnder, catalog.TotalFirstHalf, catalog.TotalSecondHalf, catalog.TotalPoints:
		return [2]string{"under", "over"}[i]
	case catalog.BTTS:
		return [2]string{"gg", "ng"}[i]
	case catalog.OddEven:
		return [2]string{"odd", "even"}[i]
	case catalog.DoubleChance:
		return [3]string{"1X", "12", "X2"}[i]
	}
	if arity == 3 {
		return [3]string{"1", "X", "2"}[i]
	}
	return [2]string{"1", "2"}[i]
}
