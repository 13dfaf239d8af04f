package notify

import (
	"strings"
	"testing"
	"time"

	"github.com/betsnipe/betsnipe/internal/pkg/catalog"
	"github.com/betsnipe/betsnipe/internal/pkg/models"
)

func TestFormatArbitrageThreeWay(t *testing.T) {
	arb := models.Arbitrage{
		Team1:         "Arsenal",
		Team2:         "Chelsea",
		Sport:         catalog.Football,
		StartTime:     time.Date(2026, 9, 1, 20, 45, 0, 0, time.UTC),
		BetType:       catalog.FullTime1X2,
		ProfitPercent: 8.45,
		BestOdds: []models.BestOdd{
			{BookmakerName: "maxbet", Outcome: "1", Odd: 3.0},
			{BookmakerName: "admiral", Outcome: "X", Odd: 3.3},
			{BookmakerName: "topbet", Outcome: "2", Odd: 3.5},
		},
		Stakes: []float64{36.15, 32.86, 30.99},
	}

	msg := FormatArbitrage(arb)

	for _, want := range []string{
		"(3-way)",
		"*Arsenal* vs *Chelsea*",
		"2026-09-01 20:45",
		"*Profit:* 8.45%",
		"1 (Home): *3.00* @ maxbet",
		"X (Draw): *3.30* @ admiral",
		"2 (Away): *3.50* @ topbet",
		"Home: 36.15 units",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
	if strings.Contains(msg, "*Margin:*") {
		t.Error("margin line present for a non-margin market")
	}
}

func TestFormatArbitrageTotalsShowMargin(t *testing.T) {
	arb := models.Arbitrage{
		Team1:         "Partizan",
		Team2:         "Crvena Zvezda",
		Sport:         catalog.Basketball,
		StartTime:     time.Date(2026, 9, 1, 19, 0, 0, 0, time.UTC),
		BetType:       catalog.TotalPoints,
		Margin:        168.5,
		ProfitPercent: 2.30,
		BestOdds: []models.BestOdd{
			{BookmakerName: "meridian", Outcome: "under", Odd: 2.05},
			{BookmakerName: "superbet", Outcome: "over", Odd: 2.10},
		},
		Stakes: []float64{50.60, 49.40},
	}

	msg := FormatArbitrage(arb)

	for _, want := range []string{
		"(2-way)",
		"*Margin:* 168.5",
		"under: *2.05* @ meridian",
		"over: *2.10* @ superbet",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
}
