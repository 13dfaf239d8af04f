package maxbet

import "github.com/betsnipe/betsnipe/internal/pkg/catalog"

// MaxBet returns each match as a flat odds dict keyed by tip-type code plus a
// params dict carrying the lines of parameterized markets. The tables below
// map those codes to catalogue markets; they were derived from the site's
// /restapi/offer/sr/ttg_lang configuration endpoint.

var sportCodes = map[catalog.SportID]string{
	catalog.Football:    "S",
	catalog.Basketball:  "B",
	catalog.Tennis:      "T",
	catalog.Hockey:      "H",
	catalog.TableTennis: "TT",
}

type tripleCodes struct {
	c1, c2, c3 string
}

type pairCodes struct {
	c1, c2 string
}

// fixedTotal is an over/under pair whose line is baked into the codes.
type fixedTotal struct {
	margin float64
	under  string
	over   string
}

// paramTotal is an over/under pair whose line lives in the params dict.
type paramTotal struct {
	param string
	under string
	over  string
}

// paramHandicap is a two-way handicap whose line lives in the params dict.
// The site expresses the line from the away side; parsing flips the sign so
// a positive margin means home advantage.
type paramHandicap struct {
	param string
	home  string
	away  string
}

var football3Way = map[catalog.BetTypeID]tripleCodes{
	catalog.FullTime1X2:   {"1", "2", "3"},
	catalog.FirstHalf1X2:  {"4", "5", "6"},
	catalog.SecondHalf1X2: {"235", "236", "237"},
	catalog.DoubleChance:  {"7", "8", "9"},
}

var football2Way = map[catalog.BetTypeID]pairCodes{
	catalog.BTTS:      {"272", "273"},
	catalog.OddEven:   {"231", "232"},
	catalog.DrawNoBet: {"264", "265"},
}

var footballFixedTotals = map[catalog.BetTypeID][]fixedTotal{
	catalog.TotalOverUnder: {
		{1.5, "21", "242"},
		{2.5, "22", "24"},
		{3.5, "219", "25"},
		{4.5, "453", "27"},
		{5.5, "266", "223"},
	},
	catalog.TotalFirstHalf: {
		{0.5, "267", "207"},
		{1.5, "211", "208"},
		{2.5, "472", "209"},
	},
	catalog.TotalSecondHalf: {
		{0.5, "269", "213"},
		{1.5, "217", "214"},
		{2.5, "474", "215"},
	},
}

var footballSelections = map[catalog.BetTypeID]map[string]string{
	catalog.CorrectScore: {
		"51": "0:0", "52": "1:0", "54": "2:0", "56": "3:0", "58": "4:0",
		"53": "0:1", "67": "1:1", "68": "2:1", "70": "3:1", "72": "4:1",
		"55": "0:2", "69": "1:2", "82": "2:2", "83": "3:2", "85": "4:2",
		"57": "0:3", "71": "1:3", "84": "2:3", "95": "3:3", "96": "4:3",
		"59": "0:4", "73": "1:4", "86": "2:4", "97": "3:4", "106": "4:4",
	},
	catalog.HTFT: {
		"10": "1/1", "11": "1/X", "12": "1/2",
		"13": "X/1", "14": "X/X", "15": "X/2",
		"16": "2/1", "17": "2/X", "18": "2/2",
	},
}

var basketball2Way = map[catalog.BetTypeID]pairCodes{
	catalog.Winner: {"50291", "50293"}, // incl. overtime
}

var basketballParamHandicaps = map[catalog.BetTypeID][]paramHandicap{
	catalog.Handicap: {
		{"handicapOvertime", "50458", "50459"},
		{"handicapOvertime2", "50432", "50433"},
		{"handicapOvertime3", "50434", "50435"},
		{"handicapOvertime4", "50436", "50437"},
		{"handicapOvertime5", "50438", "50439"},
		{"handicapOvertime6", "50440", "50441"},
		{"handicapOvertime7", "50442", "50443"},
		{"handicapOvertime8", "50981", "50982"},
		{"handicapOvertime9", "51626", "51627"},
	},
}

var basketballParamTotals = map[catalog.BetTypeID][]paramTotal{
	catalog.TotalPoints: {
		{"overUnderOvertime", "50444", "50445"},
		{"overUnderOvertime3", "50448", "50449"},
		{"overUnderOvertime4", "50450", "50451"},
		{"overUnderOvertime5", "50452", "50453"},
		{"overUnderOvertime6", "50454", "50455"},
	},
	catalog.TotalFirstHalf: {
		{"overUnderFirstHalf", "50446", "50447"},
	},
}

var tennis2Way = map[catalog.BetTypeID]pairCodes{
	catalog.Winner:         {"1", "3"},
	catalog.FirstSetWinner: {"50510", "50511"},
}

var tennisParamTotals = map[catalog.BetTypeID][]paramTotal{
	catalog.TotalOverUnder: {
		{"overUnderGames", "254", "256"},
	},
}

var tennisParamHandicaps = map[catalog.BetTypeID][]paramHandicap{
	catalog.HandicapSets: {
		{"hd2", "251", "253"},
	},
}

var hockey3Way = map[catalog.BetTypeID]tripleCodes{
	catalog.FullTime1X2:  {"1", "2", "3"},
	catalog.DoubleChance: {"7", "8", "9"},
	// Periods carried as the half markets: period 1 and 2 1X2.
	catalog.FirstHalf1X2:  {"50495", "50496", "50497"},
	catalog.SecondHalf1X2: {"50498", "50499", "50500"},
}

var hockey2Way = map[catalog.BetTypeID]pairCodes{
	catalog.DrawNoBet: {"264", "265"},
	catalog.BTTS:      {"272", "273"},
	catalog.OddEven:   {"231", "232"},
}

var hockeyParamTotals = map[catalog.BetTypeID][]paramTotal{
	catalog.TotalOverUnder: {
		{"overUnder", "228", "227"},
		{"overUnder2", "427", "429"},
		{"overUnder3", "430", "432"},
	},
	catalog.TotalFirstHalf: {
		{"overUnderFirstPeriod", "50504", "50505"},
	},
}

var hockeyParamHandicaps = map[catalog.BetTypeID][]paramHandicap{
	catalog.Handicap: {
		{"hd2", "201", "203"},
	},
}

var tableTennis2Way = map[catalog.BetTypeID]pairCodes{
	catalog.Winner: {"1", "3"},
}
