package models

import (
	"time"

	"github.com/betsnipe/betsnipe/internal/pkg/catalog"
)

// ScrapedOdds is one odds row as emitted by a scraper, already translated to
// the internal bet-type catalogue. Odd2/Odd3 are zero when the market has
// fewer outcomes.
type ScrapedOdds struct {
	BetType   catalog.BetTypeID
	Margin    float64
	Selection string
	Odd1      float64
	Odd2      float64
	Odd3      float64
}

// ScrapedMatch is a short-lived match record yielded by a scraper for one
// cycle. The engine fuses it into the store and discards it.
type ScrapedMatch struct {
	Team1      string
	Team2      string
	Sport      catalog.SportID
	StartTime  time.Time
	League     string
	ExternalID string
	Odds       []ScrapedOdds
}

// AddOdds appends a grouped-market odds row.
func (m *ScrapedMatch) AddOdds(bt catalog.BetTypeID, margin, odd1, odd2, odd3 float64) {
	m.Odds = append(m.Odds, ScrapedOdds{BetType: bt, Margin: margin, Odd1: odd1, Odd2: odd2, Odd3: odd3})
}

// AddSelection appends a selection-market odds row (single named outcome).
func (m *ScrapedMatch) AddSelection(bt catalog.BetTypeID, selection string, odd float64) {
	m.Odds = append(m.Odds, ScrapedOdds{BetType: bt, Selection: selection, Odd1: odd})
}

// MatchStatus is the lifecycle state of a stored match. Transitions are
// one-way: upcoming -> finished.
type MatchStatus string

const (
	StatusUpcoming MatchStatus = "upcoming"
	StatusFinished MatchStatus = "finished"
)

// Match is the cross-bookmaker identity of a sporting event.
type Match struct {
	ID        int64
	Team1     string
	Team2     string
	Team1Norm string
	Team2Norm string
	// Category distinguishes otherwise identical pairings (youth sides,
	// women's teams) whose markers normalization strips from the names.
	Category  string
	Sport     catalog.SportID
	League    string
	StartTime time.Time
	// ExternalIDs maps bookmaker id to that book's opaque event id.
	// Grow-only: entries are added as books are fused, never removed.
	ExternalIDs map[catalog.BookmakerID]string
	Status      MatchStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// OddsRow is one current-odds row. The tuple
// (MatchID, Bookmaker, BetType, Margin, Selection) is unique in the store.
type OddsRow struct {
	MatchID   int64
	Bookmaker catalog.BookmakerID
	BetType   catalog.BetTypeID
	Margin    float64
	Selection string
	Odd1      float64
	Odd2      float64
	Odd3      float64
	UpdatedAt time.Time
}

// BestOdd is one leg of an arbitrage: the best price found for an outcome
// and the book offering it.
type BestOdd struct {
	Bookmaker     catalog.BookmakerID `json:"bookmaker_id"`
	BookmakerName string              `json:"bookmaker_name"`
	Outcome       string              `json:"outcome"`
	Odd           float64             `json:"odd"`
}

// Arbitrage is a detected opportunity. Active from detection until the match
// starts; never resurrected after deactivation.
type Arbitrage struct {
	ID            int64
	MatchID       int64
	Team1         string
	Team2         string
	Sport         catalog.SportID
	StartTime     time.Time
	BetType       catalog.BetTypeID
	Margin        float64
	ProfitPercent float64
	BestOdds      []BestOdd
	// Stakes is the per-leg split of a 100-unit bank giving an identical
	// payout regardless of outcome. Same order as BestOdds.
	Stakes     []float64
	ArbHash    string
	DetectedAt time.Time
	ExpiresAt  time.Time
	IsActive   bool
}
