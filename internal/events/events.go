package events

import (
	"fmt"
	"time"

	"github.com/betsnipe/betsnipe/internal/pkg/catalog"
)

// Type tags an event stream.
type Type string

const (
	// TypeOddsUpdate signals that a match's odds actually changed,
	// coalesced per match per cycle.
	TypeOddsUpdate Type = "odds_update"
	// TypeArbitrage carries a full newly detected opportunity.
	TypeArbitrage Type = "arbitrage"
)

// Event is one bus message. Data carries the type-specific payload: an
// OddsUpdate for odds_update, a models.Arbitrage for arbitrage.
type Event struct {
	Type      Type            `json:"type"`
	MatchID   int64           `json:"match_id"`
	Sport     catalog.SportID `json:"sport_id"`
	Data      any             `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// OddsUpdate is the odds_update payload.
type OddsUpdate struct {
	MatchID   int64               `json:"match_id"`
	Bookmaker catalog.BookmakerID `json:"bookmaker_id"`
	Team1     string              `json:"team1"`
	Team2     string              `json:"team2"`
}

// Channels lists every channel tag the event is delivered on: the firehose,
// the type stream and the per-match and per-sport streams.
func (e Event) Channels() []string {
	channels := []string{"all", string(e.Type)}
	if e.MatchID != 0 {
		channels = append(channels, fmt.Sprintf("match:%d", e.MatchID))
	}
	if e.Sport != 0 {
		channels = append(channels, fmt.Sprintf("sport:%d", e.Sport))
	}
	return channels
}
