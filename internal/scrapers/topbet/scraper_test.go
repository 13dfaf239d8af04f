package topbet

import (
	"testing"

	"github.com/betsnipe/betsnipe/internal/pkg/catalog"
	"github.com/betsnipe/betsnipe/internal/pkg/models"
)

func findOdds(odds []models.ScrapedOdds, bt catalog.BetTypeID, margin float64) *models.ScrapedOdds {
	for i := range odds {
		if odds[i].BetType == bt && odds[i].Margin == margin {
			return &odds[i]
		}
	}
	return nil
}

func TestParseFootball(t *testing.T) {
	ev := event{
		J: "Partizan - Crvena Zvezda",
		O: map[string]market{
			"1": {B: 6, D: 1, H: []outcome{
				{E: "1", G: 2.40}, {E: "X", G: 3.20}, {E: "2", G: 2.90},
			}},
			"2": {H: []outcome{
				{E: "GG", G: 1.75}, {E: "NG", G: 1.98},
			}},
			"3": {N: "2.5", H: []outcome{
				{E: "Više", G: 1.85}, {E: "Manje", G: 1.90},
			}},
			// Exotic line, filtered out.
			"4": {N: "6.5", H: []outcome{
				{E: "Više", G: 9.00}, {E: "Manje", G: 1.05},
			}},
		},
	}

	odds := parseOdds(ev, catalog.Football)
	if len(odds) != 3 {
		t.Fatalf("got %d odds, want 3", len(odds))
	}

	ft := findOdds(odds, catalog.FullTime1X2, 0)
	if ft == nil || ft.Odd1 != 2.40 || ft.Odd2 != 3.20 || ft.Odd3 != 2.90 {
		t.Errorf("1X2 row = %+v", ft)
	}
	btts := findOdds(odds, catalog.BTTS, 0)
	if btts == nil || btts.Odd1 != 1.75 || btts.Odd2 != 1.98 {
		t.Errorf("BTTS row = %+v, want (gg, ng)", btts)
	}
	total := findOdds(odds, catalog.TotalOverUnder, 2.5)
	if total == nil || total.Odd1 != 1.90 || total.Odd2 != 1.85 {
		t.Errorf("total row = %+v, want (under=1.90, over=1.85)", total)
	}
	if findOdds(odds, catalog.TotalOverUnder, 6.5) != nil {
		t.Error("6.5 line should be filtered")
	}
}

func TestParseTwoWaySports(t *testing.T) {
	ev := event{
		O: map[string]market{
			"1": {H: []outcome{{E: "1", G: 1.55}, {E: "2", G: 2.35}}},
		},
	}
	odds := parseOdds(ev, catalog.Tennis)
	if len(odds) != 1 || odds[0].BetType != catalog.Winner {
		t.Fatalf("odds = %+v", odds)
	}
	if odds[0].Odd1 != 1.55 || odds[0].Odd2 != 2.35 {
		t.Errorf("winner row = %+v", odds[0])
	}
}

func TestParseHockeyThreeWay(t *testing.T) {
	ev := event{
		O: map[string]market{
			// Incomplete market is skipped in favor of the full one.
			"1": {H: []outcome{{E: "1", G: 2.0}, {E: "2", G: 2.0}}},
			"2": {H: []outcome{{E: "1", G: 2.50}, {E: "X", G: 3.90}, {E: "2", G: 2.45}}},
		},
	}
	odds := parseOdds(ev, catalog.Hockey)
	if len(odds) != 1 || odds[0].BetType != catalog.FullTime1X2 {
		t.Fatalf("odds = %+v", odds)
	}
	if odds[0].Odd2 != 3.90 {
		t.Errorf("draw odd = %v, want 3.90", odds[0].Odd2)
	}
}

func TestExternalID(t *testing.T) {
	if got := externalID(float64(123456)); got != "123456" {
		t.Errorf("externalID(float64) = %q", got)
	}
	if got := externalID("abc-1"); got != "abc-1" {
		t.Errorf("externalID(string) = %q", got)
	}
	if got := externalID(nil); got != "" {
		t.Errorf("externalID(nil) = %q", got)
	}
}
