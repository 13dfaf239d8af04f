package maxbet

import (
	"testing"

	"github.com/betsnipe/betsnipe/internal/pkg/catalog"
	"github.com/betsnipe/betsnipe/internal/pkg/models"
)

func findOdds(t *testing.T, rows []models.ScrapedOdds, bt catalog.BetTypeID, margin float64) models.ScrapedOdds {
	t.Helper()
	for _, row := range rows {
		if row.BetType == bt && row.Margin == margin && row.Selection == "" {
			return row
		}
	}
	t.Fatalf("no row for bet type %d margin %v in %+v", bt, margin, rows)
	return models.ScrapedOdds{}
}

func TestParseFootballOdds(t *testing.T) {
	odds := map[string]float64{
		// 1X2 full time
		"1": 2.05, "2": 3.40, "3": 3.60,
		// 1X2 first half
		"4": 2.60, "5": 2.10, "6": 4.80,
		// double chance
		"7": 1.28, "8": 1.30, "9": 1.75,
		// BTTS
		"272": 1.72, "273": 2.00,
		// total 2.5
		"22": 1.95, "24": 1.80,
		// total 3.5 missing the over side: must be skipped
		"219": 1.40,
		// H1 total 1.5
		"211": 1.55, "208": 2.30,
		// correct score 1:0 and HT/FT 1/1
		"52": 7.50, "10": 2.90,
	}

	rows := parseOdds(odds, nil, catalog.Football)

	ft := findOdds(t, rows, catalog.FullTime1X2, 0)
	if ft.Odd1 != 2.05 || ft.Odd2 != 3.40 || ft.Odd3 != 3.60 {
		t.Fatalf("1x2 = %+v", ft)
	}

	total := findOdds(t, rows, catalog.TotalOverUnder, 2.5)
	if total.Odd1 != 1.95 || total.Odd2 != 1.80 {
		t.Fatalf("total 2.5 stored (%v, %v), want (under, over) = (1.95, 1.80)", total.Odd1, total.Odd2)
	}

	for _, row := range rows {
		if row.BetType == catalog.TotalOverUnder && row.Margin == 3.5 {
			t.Fatal("half-quoted total line must not be emitted")
		}
	}

	h1 := findOdds(t, rows, catalog.TotalFirstHalf, 1.5)
	if h1.Odd1 != 1.55 || h1.Odd2 != 2.30 {
		t.Fatalf("h1 total = %+v", h1)
	}

	var score, htft bool
	for _, row := range rows {
		if row.BetType == catalog.CorrectScore && row.Selection == "1:0" && row.Odd1 == 7.50 {
			score = true
		}
		if row.BetType == catalog.HTFT && row.Selection == "1/1" && row.Odd1 == 2.90 {
			htft = true
		}
	}
	if !score || !htft {
		t.Fatalf("selection markets missing: score=%v htft=%v", score, htft)
	}
}

func TestParseBasketballHandicapFlipsSign(t *testing.T) {
	odds := map[string]float64{
		"50291": 1.85, "50293": 1.95, // winner
		"50458": 1.90, "50459": 1.90, // handicap pair
		"50444": 1.87, "50445": 1.93, // total points
	}
	params := map[string]any{
		"handicapOvertime":  "4.5",
		"overUnderOvertime": "172.5",
	}

	rows := parseOdds(odds, params, catalog.Basketball)

	hcp := findOdds(t, rows, catalog.Handicap, -4.5)
	if hcp.Odd1 != 1.90 || hcp.Odd2 != 1.90 {
		t.Fatalf("handicap = %+v", hcp)
	}

	total := findOdds(t, rows, catalog.TotalPoints, 172.5)
	if total.Odd1 != 1.87 || total.Odd2 != 1.93 {
		t.Fatalf("total points = %+v", total)
	}

	winner := findOdds(t, rows, catalog.Winner, 0)
	if winner.Odd1 != 1.85 || winner.Odd2 != 1.95 {
		t.Fatalf("winner = %+v", winner)
	}
}

func TestParseTennisOdds(t *testing.T) {
	odds := map[string]float64{
		"1": 1.50, "3": 2.55, // match winner
		"50510": 1.60, "50511": 2.25, // first set winner
		"254": 1.80, "256": 1.90, // total games
	}
	params := map[string]any{"overUnderGames": 22.5}

	rows := parseOdds(odds, params, catalog.Tennis)

	winner := findOdds(t, rows, catalog.Winner, 0)
	if winner.Odd1 != 1.50 || winner.Odd2 != 2.55 {
		t.Fatalf("winner = %+v", winner)
	}
	set1 := findOdds(t, rows, catalog.FirstSetWinner, 0)
	if set1.Odd1 != 1.60 {
		t.Fatalf("first set = %+v", set1)
	}
	games := findOdds(t, rows, catalog.TotalOverUnder, 22.5)
	if games.Odd1 != 1.80 || games.Odd2 != 1.90 {
		t.Fatalf("total games = %+v", games)
	}
}

func TestParamMarketWithoutLineIsSkipped(t *testing.T) {
	odds := map[string]float64{"50444": 1.87, "50445": 1.93}

	rows := parseOdds(odds, map[string]any{}, catalog.Basketball)

	if len(rows) != 0 {
		t.Fatalf("total without a line must be dropped, got %+v", rows)
	}
}
