package maxbet

import (
	"strconv"
	"strings"

	"github.com/betsnipe/betsnipe/internal/pkg/catalog"
	"github.com/betsnipe/betsnipe/internal/pkg/models"
)

// parseOdds translates one match's flat odds dict into catalogue rows.
func parseOdds(odds map[string]float64, params map[string]any, sport catalog.SportID) []models.ScrapedOdds {
	var out []models.ScrapedOdds

	switch sport {
	case catalog.Football:
		out = parse3Way(odds, football3Way, out)
		out = parse2Way(odds, football2Way, out)
		out = parseFixedTotals(odds, footballFixedTotals, out)
		out = parseSelections(odds, footballSelections, out)
	case catalog.Basketball:
		out = parse2Way(odds, basketball2Way, out)
		out = parseParamHandicaps(odds, params, basketballParamHandicaps, out)
		out = parseParamTotals(odds, params, basketballParamTotals, out)
	case catalog.Tennis:
		out = parse2Way(odds, tennis2Way, out)
		out = parseParamTotals(odds, params, tennisParamTotals, out)
		out = parseParamHandicaps(odds, params, tennisParamHandicaps, out)
	case catalog.Hockey:
		out = parse3Way(odds, hockey3Way, out)
		out = parse2Way(odds, hockey2Way, out)
		out = parseParamTotals(odds, params, hockeyParamTotals, out)
		out = parseParamHandicaps(odds, params, hockeyParamHandicaps, out)
	case catalog.TableTennis:
		out = parse2Way(odds, tableTennis2Way, out)
	}
	return out
}

func parse3Way(odds map[string]float64, table map[catalog.BetTypeID]tripleCodes, out []models.ScrapedOdds) []models.ScrapedOdds {
	for bt, codes := range table {
		o1, o2, o3 := odds[codes.c1], odds[codes.c2], odds[codes.c3]
		if o1 > 0 && o2 > 0 && o3 > 0 {
			out = append(out, models.ScrapedOdds{BetType: bt, Odd1: o1, Odd2: o2, Odd3: o3})
		}
	}
	return out
}

func parse2Way(odds map[string]float64, table map[catalog.BetTypeID]pairCodes, out []models.ScrapedOdds) []models.ScrapedOdds {
	for bt, codes := range table {
		o1, o2 := odds[codes.c1], odds[codes.c2]
		if o1 > 0 && o2 > 0 {
			out = append(out, models.ScrapedOdds{BetType: bt, Odd1: o1, Odd2: o2})
		}
	}
	return out
}

func parseFixedTotals(odds map[string]float64, table map[catalog.BetTypeID][]fixedTotal, out []models.ScrapedOdds) []models.ScrapedOdds {
	for bt, lines := range table {
		for _, line := range lines {
			under, over := odds[line.under], odds[line.over]
			if under > 0 && over > 0 {
				out = append(out, models.ScrapedOdds{BetType: bt, Margin: line.margin, Odd1: under, Odd2: over})
			}
		}
	}
	return out
}

func parseParamTotals(odds map[string]float64, params map[string]any, table map[catalog.BetTypeID][]paramTotal, out []models.ScrapedOdds) []models.ScrapedOdds {
	for bt, lines := range table {
		for _, line := range lines {
			under, over := odds[line.under], odds[line.over]
			if under <= 0 || over <= 0 {
				continue
			}
			margin, ok := floatParam(params, line.param)
			if !ok {
				continue
			}
			out = append(out, models.ScrapedOdds{BetType: bt, Margin: margin, Odd1: under, Odd2: over})
		}
	}
	return out
}

func parseParamHandicaps(odds map[string]float64, params map[string]any, table map[catalog.BetTypeID][]paramHandicap, out []models.ScrapedOdds) []models.ScrapedOdds {
	for bt, lines := range table {
		for _, line := range lines {
			home, away := odds[line.home], odds[line.away]
			if home <= 0 || away <= 0 {
				continue
			}
			margin, ok := floatParam(params, line.param)
			if !ok {
				continue
			}
			// Flip sign: positive margin means home advantage.
			out = append(out, models.ScrapedOdds{BetType: bt, Margin: -margin, Odd1: home, Odd2: away})
		}
	}
	return out
}

// floatParam reads a market line from the params dict. Unlike odds, lines may
// legitimately be negative (handicaps), so the sign is preserved as-is.
func floatParam(params map[string]any, key string) (float64, bool) {
	switch v := params[key].(type) {
	case float64:
		return v, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	}
	return 0, false
}

func parseSelections(odds map[string]float64, table map[catalog.BetTypeID]map[string]string, out []models.ScrapedOdds) []models.ScrapedOdds {
	for bt, codeMap := range table {
		for code, selection := range codeMap {
			if odd := odds[code]; odd > 0 {
				out = append(out, models.ScrapedOdds{BetType: bt, Selection: selection, Odd1: odd})
			}
		}
	}
	return out
}
