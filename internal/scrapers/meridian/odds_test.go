package meridian

import (
	"testing"

	"github.com/betsnipe/betsnipe/internal/pkg/catalog"
)

func TestParseFootballTotalsSwapToUnderOver(t *testing.T) {
	groups := []marketGroup{
		{
			MarketName: "Ukupno Golova",
			Markets: []marketLine{
				// The API lists Over first.
				{OverUnder: 2.5, Selections: []selection{
					{Name: "Više", Price: 1.80},
					{Name: "Manje", Price: 1.95},
				}},
			},
		},
	}

	odds := parseOdds(groups, catalog.Football)
	if len(odds) != 1 {
		t.Fatalf("got %d odds, want 1", len(odds))
	}
	row := odds[0]
	if row.BetType != catalog.TotalOverUnder || row.Margin != 2.5 {
		t.Fatalf("got %v @ %v", row.BetType, row.Margin)
	}
	if row.Odd1 != 1.95 || row.Odd2 != 1.80 {
		t.Errorf("got (%.2f, %.2f), want (under=1.95, over=1.80)", row.Odd1, row.Odd2)
	}
}

func TestParseFootballMarkets(t *testing.T) {
	groups := []marketGroup{
		{
			MarketName: "Konačan Ishod",
			Markets: []marketLine{
				{Selections: []selection{{Price: 2.10}, {Price: 3.30}, {Price: 3.40}}},
			},
		},
		{
			MarketName: "Oba Tima Daju Gol",
			Markets: []marketLine{
				{Selections: []selection{{Name: "GG", Price: 1.72}, {Name: "NG", Price: 2.05}}},
			},
		},
	}

	odds := parseOdds(groups, catalog.Football)
	if len(odds) != 2 {
		t.Fatalf("got %d odds, want 2", len(odds))
	}
	if odds[0].BetType != catalog.FullTime1X2 || odds[0].Odd2 != 3.30 {
		t.Errorf("1X2 row = %+v", odds[0])
	}
	if odds[1].BetType != catalog.BTTS || odds[1].Odd1 != 1.72 || odds[1].Odd2 != 2.05 {
		t.Errorf("BTTS row = %+v, want (gg, ng)", odds[1])
	}
}

func TestParseBasketballSkipsLowTotals(t *testing.T) {
	groups := []marketGroup{
		{
			MarketName: "Ukupno Poena",
			Markets: []marketLine{
				// Quarter total, below the floor.
				{OverUnder: 42.5, Selections: []selection{{Price: 1.85}, {Price: 1.85}}},
				{OverUnder: 168.5, Selections: []selection{{Price: 1.90}, {Price: 1.86}}},
			},
		},
	}

	odds := parseOdds(groups, catalog.Basketball)
	if len(odds) != 1 {
		t.Fatalf("got %d odds, want 1", len(odds))
	}
	if odds[0].Margin != 168.5 {
		t.Errorf("Margin = %v, want 168.5", odds[0].Margin)
	}
}

func TestParseTennisFirstSet(t *testing.T) {
	groups := []marketGroup{
		{MarketName: "Pobednik", Markets: []marketLine{
			{Selections: []selection{{Price: 1.50}, {Price: 2.55}}},
		}},
		{MarketName: "1. Set - Pobednik", Markets: []marketLine{
			{Selections: []selection{{Price: 1.60}, {Price: 2.25}}},
		}},
	}

	odds := parseOdds(groups, catalog.Tennis)
	if len(odds) != 2 {
		t.Fatalf("got %d odds, want 2", len(odds))
	}
	if odds[0].BetType != catalog.Winner || odds[1].BetType != catalog.FirstSetWinner {
		t.Errorf("bet types = %v, %v", odds[0].BetType, odds[1].BetType)
	}
}
