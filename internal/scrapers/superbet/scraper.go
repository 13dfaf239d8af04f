// Package superbet scrapes the SuperBet Serbia prematch offer.
//
// Two endpoints: events/by-date lists the event ids of a sport, events/{id}
// returns one event with a flat odds array identified by marketName, outcome
// code and specialBetValue.
package superbet

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/betsnipe/betsnipe/internal/pkg/catalog"
	"github.com/betsnipe/betsnipe/internal/pkg/models"
	"github.com/betsnipe/betsnipe/internal/scrapers"
	"github.com/betsnipe/betsnipe/internal/scrapers/scraperutil"
)

const (
	baseURL       = "https://production-superbet-offer-rs.freetls.fastly.net/sb-rs/api/v2/sr-Latn-RS"
	detailWorkers = 8

	// Basketball totals share market names with period totals; full-game
	// lines are the ones above this floor.
	basketballTotalFloor = 130
)

var sportCodes = map[catalog.SportID]int{
	catalog.Football:    5,
	catalog.Basketball:  2,
	catalog.Tennis:      3,
	catalog.Hockey:      4,
	catalog.TableTennis: 16,
}

type Scraper struct {
	client  *scraperutil.Client
	matches atomic.Int64
	now     func() time.Time
}

func New(opts ...scraperutil.Option) *Scraper {
	return &Scraper{
		client: scraperutil.NewClient(opts...),
		now:    time.Now,
	}
}

func (s *Scraper) BookmakerID() catalog.BookmakerID { return catalog.Superbet }
func (s *Scraper) BookmakerName() string            { return "superbet" }

func (s *Scraper) SupportedSports() []catalog.SportID {
	return []catalog.SportID{catalog.Football, catalog.Basketball, catalog.Tennis, catalog.Hockey, catalog.TableTennis}
}

type eventList struct {
	Data []struct {
		SportID int   `json:"sportId"`
		EventID int64 `json:"eventId"`
	} `json:"data"`
}

type oddEntry struct {
	MarketName      string  `json:"marketName"`
	Code            string  `json:"code"`
	Name            string  `json:"name"`
	Price           float64 `json:"price"`
	SpecialBetValue string  `json:"specialBetValue"`
}

type eventDetail struct {
	Data []struct {
		EventID   int64      `json:"eventId"`
		MatchName string     `json:"matchName"`
		MatchDate string     `json:"matchDate"`
		Odds      []oddEntry `json:"odds"`
	} `json:"data"`
}

func (s *Scraper) ScrapeSport(ctx context.Context, sport catalog.SportID) ([]models.ScrapedMatch, error) {
	code, ok := sportCodes[sport]
	if !ok {
		return nil, nil
	}

	q := url.Values{}
	q.Set("currentStatus", "active")
	q.Set("offerState", "prematch")
	q.Set("startDate", s.now().UTC().Format("2006-01-02 15:04:05"))
	q.Set("sportId", strconv.Itoa(code))

	var list eventList
	if err := s.client.GetJSON(ctx, baseURL+"/events/by-date?"+q.Encode(), &list); err != nil {
		return nil, fmt.Errorf("failed to fetch events: %w", err)
	}

	var (
		mu      sync.Mutex
		matches []models.ScrapedMatch
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(detailWorkers)

	for _, ev := range list.Data {
		if ev.SportID != code || ev.EventID == 0 {
			continue
		}
		eventID := ev.EventID
		g.Go(func() error {
			var detail eventDetail
			if err := s.client.GetJSON(gctx, fmt.Sprintf("%s/events/%d", baseURL, eventID), &detail); err != nil {
				return gctx.Err()
			}
			if len(detail.Data) == 0 {
				return nil
			}
			data := detail.Data[0]

			team1, team2, ok := splitTeams(data.MatchName)
			if !ok {
				return nil
			}
			start := scraperutil.ParseTime(data.MatchDate)
			if start.IsZero() {
				return nil
			}
			odds := parseOdds(data.Odds, sport)
			if len(odds) == 0 {
				return nil
			}
			mu.Lock()
			matches = append(matches, models.ScrapedMatch{
				Team1:      team1,
				Team2:      team2,
				Sport:      sport,
				StartTime:  start,
				ExternalID: strconv.FormatInt(data.EventID, 10),
				Odds:       odds,
			})
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.matches.Add(int64(len(matches)))
	return matches, nil
}

// splitTeams parses the "Home·Away" match name.
func splitTeams(name string) (string, string, bool) {
	parts := strings.Split(name, "·")
	if len(parts) != 2 {
		return "", "", false
	}
	t1 := strings.TrimSpace(parts[0])
	t2 := strings.TrimSpace(parts[1])
	return t1, t2, t1 != "" && t2 != ""
}

func parseOdds(odds []oddEntry, sport catalog.SportID) []models.ScrapedOdds {
	switch sport {
	case catalog.Football:
		return parseFootball(odds)
	case catalog.Basketball:
		return parseBasketball(odds)
	case catalog.Tennis:
		return parseTennis(odds)
	case catalog.Hockey:
		return parseHockey(odds)
	case catalog.TableTennis:
		return parseWinnerOnly(odds)
	}
	return nil
}

// triple accumulates a 1X2 market; the site codes draw as "0".
type triple struct{ home, draw, away float64 }

func (t *triple) set(code string, price float64) {
	switch code {
	case "1":
		t.home = price
	case "0":
		t.draw = price
	case "2":
		t.away = price
	}
}

func (t triple) complete() bool { return t.home > 0 && t.draw > 0 && t.away > 0 }

type ouSides struct{ under, over float64 }

// pair accumulates a two-way market keyed by outcome code.
type pair struct{ one, two float64 }

func (p *pair) set(code string, price float64) {
	switch code {
	case "1":
		p.one = price
	case "2":
		p.two = price
	}
}

func (p pair) complete() bool { return p.one > 0 && p.two > 0 }

func parseFootball(odds []oddEntry) []models.ScrapedOdds {
	var ft, h1, h2 triple
	var gg pair
	totals := map[catalog.BetTypeID]map[float64]*ouSides{
		catalog.TotalOverUnder:  {},
		catalog.TotalFirstHalf:  {},
		catalog.TotalSecondHalf: {},
	}

	for _, o := range odds {
		switch o.MarketName {
		case "Konačan ishod":
			ft.set(o.Code, o.Price)
		case "1. poluvreme - 1X2":
			h1.set(o.Code, o.Price)
		case "2. poluvreme - 1X2":
			h2.set(o.Code, o.Price)
		case "Oba tima daju gol (GG)":
			gg.set(o.Code, o.Price) // 1 = GG, 2 = NG
		case "Ukupno golova":
			addTotal(totals[catalog.TotalOverUnder], o)
		case "1. poluvreme - ukupno golova":
			addTotal(totals[catalog.TotalFirstHalf], o)
		case "2. poluvreme - ukupno golova":
			addTotal(totals[catalog.TotalSecondHalf], o)
		}
	}

	var out []models.ScrapedOdds
	for bt, t := range map[catalog.BetTypeID]triple{
		catalog.FullTime1X2: ft, catalog.FirstHalf1X2: h1, catalog.SecondHalf1X2: h2,
	} {
		if t.complete() {
			out = append(out, models.ScrapedOdds{BetType: bt, Odd1: t.home, Odd2: t.draw, Odd3: t.away})
		}
	}
	if gg.complete() {
		out = append(out, models.ScrapedOdds{BetType: catalog.BTTS, Odd1: gg.one, Odd2: gg.two})
	}
	for bt, lines := range totals {
		for margin, sides := range lines {
			if sides.under > 0 && sides.over > 0 {
				out = append(out, models.ScrapedOdds{BetType: bt, Margin: margin, Odd1: sides.under, Odd2: sides.over})
			}
		}
	}
	return out
}

func addTotal(lines map[float64]*ouSides, o oddEntry) {
	margin, ok := scraperutil.Line(o.SpecialBetValue)
	if !ok || o.Price <= 0 {
		return
	}
	sides := lines[margin]
	if sides == nil {
		sides = &ouSides{}
		lines[margin] = sides
	}
	if strings.Contains(o.Name, "Manje") {
		sides.under = o.Price
	} else if strings.Contains(o.Name, "Više") {
		sides.over = o.Price
	}
}

func parseBasketball(odds []oddEntry) []models.ScrapedOdds {
	var winner pair
	handicaps := map[float64]*pair{}
	totals := map[float64]*ouSides{}

	for _, o := range odds {
		switch {
		case isWinnerMarket(o.MarketName):
			winner.set(o.Code, o.Price)
		case strings.Contains(o.MarketName, "Hendikep") && o.SpecialBetValue != "":
			margin, ok := handicapLine(o.SpecialBetValue)
			if !ok || o.Price <= 0 {
				continue
			}
			sides := handicaps[margin]
			if sides == nil {
				sides = &pair{}
				handicaps[margin] = sides
			}
			sides.set(o.Code, o.Price)
		case strings.Contains(o.MarketName, "Ukupno poena") && o.SpecialBetValue != "":
			margin, ok := scraperutil.Line(o.SpecialBetValue)
			if !ok || margin <= basketballTotalFloor || o.Price <= 0 {
				continue
			}
			sides := totals[margin]
			if sides == nil {
				sides = &ouSides{}
				totals[margin] = sides
			}
			if strings.Contains(o.Name, "Manje") {
				sides.under = o.Price
			} else if strings.Contains(o.Name, "Više") {
				sides.over = o.Price
			}
		}
	}

	var out []models.ScrapedOdds
	if winner.complete() {
		out = append(out, models.ScrapedOdds{BetType: catalog.Winner, Odd1: winner.one, Odd2: winner.two})
	}
	for margin, sides := range handicaps {
		if sides.complete() {
			out = append(out, models.ScrapedOdds{BetType: catalog.Handicap, Margin: margin, Odd1: sides.one, Odd2: sides.two})
		}
	}
	for margin, sides := range totals {
		if sides.under > 0 && sides.over > 0 {
			out = append(out, models.ScrapedOdds{BetType: catalog.TotalPoints, Margin: margin, Odd1: sides.under, Odd2: sides.over})
		}
	}
	return out
}

func parseTennis(odds []oddEntry) []models.ScrapedOdds {
	var winner, firstSet pair

	for _, o := range odds {
		switch {
		case isWinnerMarket(o.MarketName):
			winner.set(o.Code, o.Price)
		case o.MarketName == "1. set - pobednik" || o.MarketName == "1. Set Pobednik":
			firstSet.set(o.Code, o.Price)
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

func parseHockey(odds []oddEntry) []models.ScrapedOdds {
	var ft triple
	for _, o := range odds {
		if o.MarketName == "Konačan ishod" {
			ft.set(o.Code, o.Price)
		}
	}
	if !ft.complete() {
		return nil
	}
	return []models.ScrapedOdds{{BetType: catalog.FullTime1X2, Odd1: ft.home, Odd2: ft.draw, Odd3: ft.away}}
}

func parseWinnerOnly(odds []oddEntry) []models.ScrapedOdds {
	var winner pair
	for _, o := range odds {
		if isWinnerMarket(o.MarketName) {
			winner.set(o.Code, o.Price)
		}
	}
	if !winner.complete() {
		return nil
	}
	return []models.ScrapedOdds{{BetType: catalog.Winner, Odd1: winner.one, Odd2: winner.two}}
}

func isWinnerMarket(name string) bool {
	return name == "Pobednik" || name == "Pobednik meča"
}

// handicapLine parses lines like "1.5", "-1.5" and the occasional "1.5-1"
// composite, keeping the leading value.
func handicapLine(s string) (float64, bool) {
	if idx := strings.Index(s[1:], "-"); idx >= 0 {
		s = s[:idx+1]
	}
	return scraperutil.Line(s)
}

func (s *Scraper) Stats() scrapers.Stats {
	return scrapers.Stats{
		Requests: s.client.Requests(),
		Errors:   s.client.Errors(),
		Matches:  s.matches.Load(),
	}
}

func (s *Scraper) Reset() {
	s.client.Reset()
	s.matches.Store(0)
}

func (s *Scraper) Close() error {
	s.client.Reset()
	return nil
}
