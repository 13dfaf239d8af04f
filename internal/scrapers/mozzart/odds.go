package mozzart

import (
	"strings"

	"github.com/betsnipe/betsnipe/internal/pkg/catalog"
	"github.com/betsnipe/betsnipe/internal/pkg/models"
	"github.com/betsnipe/betsnipe/internal/scrapers/scraperutil"
)

// parseOdds walks the oddsGroup tree of a match detail. Markets are
// identified by game and subgame names rather than codes; the group name
// disambiguates full-time markets from half-time ones.
func parseOdds(groups []oddsGroup, sport catalog.SportID) []models.ScrapedOdds {
	switch sport {
	case catalog.Football:
		return parseFootball(groups)
	case catalog.Basketball:
		return parseBasketball(groups)
	case catalog.Tennis:
		return parseTennis(groups)
	case catalog.Hockey:
		return parseHockey(groups)
	case catalog.TableTennis:
		return parseTableTennis(groups)
	}
	return nil
}

// triple collects a 1X2 market.
type triple struct {
	home, draw, away float64
}

func (t *triple) set(subgame string, odd float64) {
	switch subgame {
	case "1":
		t.home = odd
	case "X":
		t.draw = odd
	case "2":
		t.away = odd
	}
}

func (t *triple) complete() bool { return t.home > 0 && t.draw > 0 && t.away > 0 }

// pair collects a two-outcome market.
type pair struct {
	one, two float64
}

func (p *pair) set(subgame string, odd float64) {
	switch subgame {
	case "1":
		p.one = odd
	case "2":
		p.two = odd
	}
}

func (p *pair) complete() bool { return p.one > 0 && p.two > 0 }

// ouSides collects under/over odds for one line.
type ouSides struct {
	under, over float64
}

func (o *ouSides) set(subgame string, odd float64) {
	switch subgame {
	case "manje":
		o.under = odd
	case "više":
		o.over = odd
	}
}

func (o *ouSides) complete() bool { return o.under > 0 && o.over > 0 }

func parseFootball(groups []oddsGroup) []models.ScrapedOdds {
	var ft, h1, h2 triple
	var btts pair
	totals := map[catalog.BetTypeID]map[float64]*ouSides{
		catalog.TotalOverUnder:  {},
		catalog.TotalFirstHalf:  {},
		catalog.TotalSecondHalf: {},
	}

	for _, group := range groups {
		groupName := strings.ToLower(group.GroupName)
		for _, odd := range group.Odds {
			value, ok := scraperutil.Float(odd.Value)
			if !ok {
				continue
			}
			game := odd.Game.Name
			subgame := odd.Subgame.Name

			switch {
			case game == "Konačan ishod" && !strings.Contains(groupName, "poluvreme"):
				ft.set(subgame, value)
			case strings.Contains(groupName, "1. poluvreme") || game == "Prvo poluvreme":
				h1.set(subgame, value)
			case strings.Contains(groupName, "2. poluvreme") || game == "Drugo poluvreme":
				h2.set(subgame, value)
			case game == "Oba tima daju gol":
				// da = both score, ne = at least one doesn't.
				switch subgame {
				case "da":
					btts.one = value
				case "ne":
					btts.two = value
				}
			case odd.Game.SpecialOddValueType == "MARGIN" && odd.SpecialOddValue != "":
				line, ok := scraperutil.Line(odd.SpecialOddValue)
				if !ok {
					continue
				}
				betType := catalog.TotalOverUnder
				if strings.Contains(groupName, "1. poluvreme") {
					betType = catalog.TotalFirstHalf
				} else if strings.Contains(groupName, "2. poluvreme") {
					betType = catalog.TotalSecondHalf
				}
				sides := totals[betType][line]
				if sides == nil {
					sides = &ouSides{}
					totals[betType][line] = sides
				}
				sides.set(subgame, value)
			}
		}
	}

	var out []models.ScrapedOdds
	if ft.complete() {
		out = append(out, models.ScrapedOdds{BetType: catalog.FullTime1X2, Odd1: ft.home, Odd2: ft.draw, Odd3: ft.away})
	}
	if h1.complete() {
		out = append(out, models.ScrapedOdds{BetType: catalog.FirstHalf1X2, Odd1: h1.home, Odd2: h1.draw, Odd3: h1.away})
	}
	if h2.complete() {
		out = append(out, models.ScrapedOdds{BetType: catalog.SecondHalf1X2, Odd1: h2.home, Odd2: h2.draw, Odd3: h2.away})
	}
	if btts.complete() {
		out = append(out, models.ScrapedOdds{BetType: catalog.BTTS, Odd1: btts.one, Odd2: btts.two})
	}
	for betType, lines := range totals {
		for line, sides := range lines {
			if sides.complete() {
				out = append(out, models.ScrapedOdds{BetType: betType, Margin: line, Odd1: sides.under, Odd2: sides.over})
			}
		}
	}
	return out
}

const basketballTotalFloor = 130

func parseBasketball(groups []oddsGroup) []models.ScrapedOdds {
	var winner pair
	handicaps := map[float64]*pair{}
	totals := map[float64]*ouSides{}

	for _, group := range groups {
		// Half markets share game names with the full-time ones.
		if strings.Contains(strings.ToLower(group.GroupName), "poluvreme") {
			continue
		}
		for _, odd := range group.Odds {
			value, ok := scraperutil.Float(odd.Value)
			if !ok {
				continue
			}
			subgame := odd.Subgame.Name

			switch {
			case odd.Game.Name == "Pobednik meča":
				winner.set(subgame, value)
			case odd.Game.SpecialOddValueType == "HANDICAP" && odd.SpecialOddValue != "":
				line, ok := scraperutil.Line(odd.SpecialOddValue)
				if !ok {
					continue
				}
				h := handicaps[line]
				if h == nil {
					h = &pair{}
					handicaps[line] = h
				}
				h.set(subgame, value)
			case odd.Game.SpecialOddValueType == "MARGIN" && odd.SpecialOddValue != "":
				line, ok := scraperutil.Line(odd.SpecialOddValue)
				if !ok || line <= basketballTotalFloor {
					continue
				}
				sides := totals[line]
				if sides == nil {
					sides = &ouSides{}
					totals[line] = sides
				}
				sides.set(subgame, value)
			}
		}
	}

	var out []models.ScrapedOdds
	if winner.complete() {
		out = append(out, models.ScrapedOdds{BetType: catalog.Winner, Odd1: winner.one, Odd2: winner.two})
	}
	for line, h := range handicaps {
		if h.complete() {
			out = append(out, models.ScrapedOdds{BetType: catalog.Handicap, Margin: line, Odd1: h.one, Odd2: h.two})
		}
	}
	for line, sides := range totals {
		if sides.complete() {
			out = append(out, models.ScrapedOdds{BetType: catalog.TotalPoints, Margin: line, Odd1: sides.under, Odd2: sides.over})
		}
	}
	return out
}

func parseTennis(groups []oddsGroup) []models.ScrapedOdds {
	var winner, firstSet pair

	for _, group := range groups {
		for _, odd := range group.Odds {
			value, ok := scraperutil.Float(odd.Value)
			if !ok {
				continue
			}
			game := odd.Game.Name
			subgame := odd.Subgame.Name

			switch {
			case (game == "Pobednik meča" || game == "Konačan ishod") && group.GroupName == "Konačan ishod":
				winner.set(subgame, value)
			case game == "Prvi set" && group.GroupName == "Prvi set":
				firstSet.set(subgame, value)
			}
		}
	}

	var out []models.ScrapedOdds
	if winner.complete() {
		out = append(out, models.ScrapedOdds{BetType: catalog.Winner, Odd1: winner.one, Odd2: winner.two})
	}
	if firstSet.complete() {
		out = append(out, models.ScrapedOdds{BetType: catalog.FirstSetWinner, Odd1: firstSet.one, Odd2: firstSet.two})
	}
	return out
}

func parseHockey(groups []oddsGroup) []models.ScrapedOdds {
	var result triple
	for _, group := range groups {
		for _, odd := range group.Odds {
			value, ok := scraperutil.Float(odd.Value)
			if !ok {
				continue
			}
			if odd.Game.Name == "Konačan ishod" {
				result.set(odd.Subgame.Name, value)
			}
		}
	}
	if !result.complete() {
		return nil
	}
	return []models.ScrapedOdds{{BetType: catalog.FullTime1X2, Odd1: result.home, Odd2: result.draw, Odd3: result.away}}
}

func parseTableTennis(groups []oddsGroup) []models.ScrapedOdds {
	var winner pair
	for _, group := range groups {
		for _, odd := range group.Odds {
			value, ok := scraperutil.Float(odd.Value)
			if !ok {
				continue
			}
			if odd.Game.Name == "Pobednik meča" {
				winner.set(odd.Subgame.Name, value)
			}
		}
	}
	if !winner.complete() {
		return nil
	}
	return []models.ScrapedOdds{{BetType: catalog.Winner, Odd1: winner.one, Odd2: winner.two}}
}
