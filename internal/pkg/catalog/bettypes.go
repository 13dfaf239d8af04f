package catalog

// BetTypeID identifies a market. IDs are stable across the store and every
// adapter's translation table.
type BetTypeID int

const (
	Winner          BetTypeID = 1 // two-way match winner (tennis, table tennis)
	FullTime1X2     BetTypeID = 2
	FirstHalf1X2    BetTypeID = 3
	SecondHalf1X2   BetTypeID = 4
	TotalOverUnder  BetTypeID = 5
	TotalFirstHalf  BetTypeID = 6
	TotalSecondHalf BetTypeID = 7
	BTTS            BetTypeID = 8
	Handicap        BetTypeID = 9
	TotalPoints     BetTypeID = 10
	Spread          BetTypeID = 11
	Moneyline       BetTypeID = 12
	DoubleChance    BetTypeID = 13
	DrawNoBet       BetTypeID = 14
	OddEven         BetTypeID = 15

	CorrectScore BetTypeID = 23
	HTFT         BetTypeID = 24

	HandicapSets   BetTypeID = 56
	FirstSetWinner BetTypeID = 57
)

// BetTypeInfo describes a market's shape.
type BetTypeInfo struct {
	ID   BetTypeID
	Name string
	// Outcomes is the market arity: 2 or 3 for grouped markets, 1 for
	// selection-based markets where every row is a single named outcome.
	Outcomes int
	// HasMargin marks markets carrying a numeric line (totals, handicaps).
	HasMargin bool
}

var betTypes = map[BetTypeID]BetTypeInfo{
	Winner:          {Winner, "winner", 2, false},
	FullTime1X2:     {FullTime1X2, "1x2", 3, false},
	FirstHalf1X2:    {FirstHalf1X2, "1x2_h1", 3, false},
	SecondHalf1X2:   {SecondHalf1X2, "1x2_h2", 3, false},
	TotalOverUnder:  {TotalOverUnder, "total_over_under", 2, true},
	TotalFirstHalf:  {TotalFirstHalf, "total_h1", 2, true},
	TotalSecondHalf: {TotalSecondHalf, "total_h2", 2, true},
	BTTS:            {BTTS, "btts", 2, false},
	Handicap:        {Handicap, "handicap", 2, true},
	TotalPoints:     {TotalPoints, "total_points", 2, true},
	Spread:          {Spread, "spread", 2, true},
	Moneyline:       {Moneyline, "moneyline", 2, false},
	DoubleChance:    {DoubleChance, "double_chance", 3, false},
	DrawNoBet:       {DrawNoBet, "draw_no_bet", 2, false},
	OddEven:         {OddEven, "odd_even", 2, false},
	CorrectScore:    {CorrectScore, "correct_score", 1, false},
	HTFT:            {HTFT, "ht_ft", 1, false},
	HandicapSets:    {HandicapSets, "handicap_sets", 2, true},
	FirstSetWinner:  {FirstSetWinner, "first_set_winner", 2, false},
}

// BetType returns the catalogue entry for id.
func BetType(id BetTypeID) (BetTypeInfo, bool) {
	bt, ok := betTypes[id]
	return bt, ok
}

// BetTypeName returns the market tag, or "unknown" for unmapped ids.
func BetTypeName(id BetTypeID) string {
	if bt, ok := betTypes[id]; ok {
		return bt.Name
	}
	return "unknown"
}

// Outcomes returns the market arity, defaulting to 2 for unknown markets.
func Outcomes(id BetTypeID) int {
	if bt, ok := betTypes[id]; ok {
		return bt.Outcomes
	}
	return 2
}
