package arbitrage

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"math"
	"sort"

	"github.com/betsnipe/betsnipe/internal/pkg/catalog"
	"github.com/betsnipe/betsnipe/internal/pkg/models"
)

type hashLeg struct {
	Bookmaker catalog.BookmakerID `json:"bookmaker_id"`
	Outcome   string              `json:"outcome"`
	Odd       float64             `json:"odd"`
}

type hashPayload struct {
	MatchID int64             `json:"match_id"`
	BetType catalog.BetTypeID `json:"bet_type_id"`
	Margin  float64           `json:"margin"`
	Odds    []hashLeg         `json:"odds"`
	Profit  float64           `json:"profit"`
}

// arbHash digests the identity of an opportunity. Odds are rounded to 3
// decimals and profit to 2 so that sub-noise price jitter does not mint a
// "new" opportunity with every cycle.
func arbHash(matchID int64, betType catalog.BetTypeID, margin float64, legs []models.BestOdd, profit float64) string {
	hashed := make([]hashLeg, len(legs))
	for i, leg := range legs {
		hashed[i] = hashLeg{
			Bookmaker: leg.Bookmaker,
			Outcome:   leg.Outcome,
			Odd:       round(leg.Odd, 3),
		}
	}
	sort.Slice(hashed, func(i, j int) bool {
		if hashed[i].Bookmaker != hashed[j].Bookmaker {
			return hashed[i].Bookmaker < hashed[j].Bookmaker
		}
		return hashed[i].Outcome < hashed[j].Outcome
	})

	payload, _ := json.Marshal(hashPayload{
		MatchID: matchID,
		BetType: betType,
		Margin:  round(margin, 3),
		Odds:    hashed,
		Profit:  round(profit, 2),
	})
	sum := md5.Sum(payload)
	return hex.EncodeToString(sum[:])
}

func round(v float64, places int) float64 {
	shift := math.Pow(10, float64(places))
	return math.Round(v*shift) / shift
}
