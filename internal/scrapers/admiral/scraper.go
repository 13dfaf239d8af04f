// Package admiral scrapes the AdmiralBet Serbia prematch offer.
//
// Three endpoints: webTree lists competitions per sport,
// getWebEventsSelections lists the matches of one competition, and
// betsAndGroups returns the bets of one match. Football and basketball
// markets are identified by betTypeId; the thinner sports only expose
// stable betTypeName labels.
package admiral

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/betsnipe/betsnipe/internal/pkg/catalog"
	"github.com/betsnipe/betsnipe/internal/pkg/models"
	"github.com/betsnipe/betsnipe/internal/scrapers"
	"github.com/betsnipe/betsnipe/internal/scrapers/scraperutil"
)

const (
	baseURL       = "https://srboffer.admiralbet.rs/api/offer"
	detailWorkers = 8
)

var sportCodes = map[catalog.SportID]int{
	catalog.Football:    1,
	catalog.Basketball:  2,
	catalog.Tennis:      3,
	catalog.Hockey:      4,
	catalog.TableTennis: 17,
}

// Football markets by betTypeId.
var footballBetTypes = map[int]catalog.BetTypeID{
	135: catalog.FullTime1X2,
	148: catalog.FirstHalf1X2,
	149: catalog.SecondHalf1X2,
	151: catalog.BTTS,
	137: catalog.TotalOverUnder,
	143: catalog.TotalFirstHalf,
	144: catalog.TotalSecondHalf,
}

type Scraper struct {
	client  *scraperutil.Client
	matches atomic.Int64
}

func New(opts ...scraperutil.Option) *Scraper {
	opts = append(opts,
		scraperutil.WithHeader("Language", "sr-Latn"),
		scraperutil.WithHeader("Officeid", "138"),
		scraperutil.WithHeader("Origin", "https://admiralbet.rs"),
		scraperutil.WithHeader("Referer", "https://admiralbet.rs/"),
	)
	return &Scraper{client: scraperutil.NewClient(opts...)}
}

func (s *Scraper) BookmakerID() catalog.BookmakerID { return catalog.Admiral }
func (s *Scraper) BookmakerName() string            { return "admiral" }

func (s *Scraper) SupportedSports() []catalog.SportID {
	return []catalog.SportID{catalog.Football, catalog.Basketball, catalog.Tennis, catalog.Hockey, catalog.TableTennis}
}

type sportNode struct {
	ID      int `json:"id"`
	Regions []struct {
		RegionName   string `json:"regionName"`
		Competitions []struct {
			RegionID        int    `json:"regionId"`
			CompetitionID   int    `json:"competitionId"`
			CompetitionName string `json:"competitionName"`
		} `json:"competitions"`
	} `json:"regions"`
}

type competition struct {
	RegionID int
	ID       int
	Name     string
}

type event struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	DateTime string `json:"dateTime"`
}

type betOutcome struct {
	OrderNo int     `json:"orderNo"`
	Name    string  `json:"name"`
	Odd     float64 `json:"odd"`
	SBV     any     `json:"sBV"`
}

type bet struct {
	BetTypeID   int          `json:"betTypeId"`
	BetTypeName string       `json:"betTypeName"`
	BetOutcomes []betOutcome `json:"betOutcomes"`
}

type betsResponse struct {
	Bets []bet `json:"bets"`
}

func (s *Scraper) ScrapeSport(ctx context.Context, sport catalog.SportID) ([]models.ScrapedMatch, error) {
	code, ok := sportCodes[sport]
	if !ok {
		return nil, nil
	}

	competitions, err := s.fetchCompetitions(ctx, code)
	if err != nil {
		return nil, err
	}

	var (
		mu      sync.Mutex
		matches []models.ScrapedMatch
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(detailWorkers)

	for _, comp := range competitions {
		comp := comp
		g.Go(func() error {
			events, err := s.fetchEvents(gctx, code, comp)
			if err != nil {
				return gctx.Err()
			}
			for _, ev := range events {
				team1, team2, ok := splitTeams(ev.Name)
				if !ok {
					continue
				}
				start := scraperutil.ParseTime(ev.DateTime)
				if start.IsZero() {
					continue
				}

				var bets betsResponse
				url := fmt.Sprintf("%s/betsAndGroups/%d/%d/%d/%d", baseURL, code, comp.RegionID, comp.ID, ev.ID)
				if err := s.client.GetJSON(gctx, url, &bets); err != nil {
					continue
				}
				odds := parseOdds(bets.Bets, sport)
				if len(odds) == 0 {
					continue
				}
				mu.Lock()
				matches = append(matches, models.ScrapedMatch{
					Team1:      team1,
					Team2:      team2,
					Sport:      sport,
					StartTime:  start,
					League:     comp.Name,
					ExternalID: strconv.FormatInt(ev.ID, 10),
					Odds:       odds,
				})
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.matches.Add(int64(len(matches)))
	return matches, nil
}

func (s *Scraper) fetchCompetitions(ctx context.Context, code int) ([]competition, error) {
	// The tree endpoint wants a date range; far bounds return the whole offer.
	url := baseURL + "/webTree/null/true/true/true/2025-01-01T00:00:00.000/2030-01-01T00:00:00.000/false?eventMappingTypes=1&eventMappingTypes=2&eventMappingTypes=3&eventMappingTypes=4&eventMappingTypes=5"

	var tree []sportNode
	if err := s.client.GetJSON(ctx, url, &tree); err != nil {
		return nil, fmt.Errorf("failed to fetch offer tree: %w", err)
	}

	var competitions []competition
	for _, sport := range tree {
		if sport.ID != code {
			continue
		}
		for _, region := range sport.Regions {
			for _, comp := range region.Competitions {
				competitions = append(competitions, competition{
					RegionID: comp.RegionID,
					ID:       comp.CompetitionID,
					Name:     comp.CompetitionName,
				})
			}
		}
	}
	return competitions, nil
}

func (s *Scraper) fetchEvents(ctx context.Context, code int, comp competition) ([]event, error) {
	q := url.Values{}
	q.Set("pageId", "35")
	q.Set("sportId", strconv.Itoa(code))
	q.Set("regionId", strconv.Itoa(comp.RegionID))
	q.Set("competitionId", strconv.Itoa(comp.ID))
	q.Set("isLive", "false")
	q.Set("dateFrom", "2025-01-01T00:00:00.000")
	q.Set("dateTo", "2030-01-01T00:00:00.000")
	q.Add("eventMappingTypes", "1")
	q.Add("eventMappingTypes", "2")
	q.Add("eventMappingTypes", "3")
	q.Add("eventMappingTypes", "4")
	q.Add("eventMappingTypes", "5")

	var events []event
	if err := s.client.GetJSON(ctx, baseURL+"/getWebEventsSelections?"+q.Encode(), &events); err != nil {
		return nil, err
	}
	return events, nil
}

// splitTeams parses the "Home - Away" event name. Names containing the
// separator themselves are rare and skipped rather than guessed at.
func splitTeams(name string) (string, string, bool) {
	parts := strings.Split(name, " - ")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

func parseOdds(bets []bet, sport catalog.SportID) []models.ScrapedOdds {
	switch sport {
	case catalog.Football:
		return parseFootball(bets)
	case catalog.Basketball:
		return parseBasketball(bets)
	case catalog.Tennis:
		return parseTennis(bets)
	case catalog.Hockey:
		return parseHockey(bets)
	case catalog.TableTennis:
		return parseTableTennis(bets)
	}
	return nil
}

func parseFootball(bets []bet) []models.ScrapedOdds {
	var out []models.ScrapedOdds
	for _, b := range bets {
		bt, ok := footballBetTypes[b.BetTypeID]
		if !ok {
			continue
		}
		switch bt {
		case catalog.FullTime1X2, catalog.FirstHalf1X2, catalog.SecondHalf1X2:
			out = appendOrdered(out, bt, b.BetOutcomes, 3)
		case catalog.BTTS:
			out = appendOrdered(out, bt, b.BetOutcomes, 2)
		case catalog.TotalOverUnder, catalog.TotalFirstHalf, catalog.TotalSecondHalf:
			out = appendTotals(out, bt, b.BetOutcomes)
		}
	}
	return out
}

func parseBasketball(bets []bet) []models.ScrapedOdds {
	var out []models.ScrapedOdds
	for _, b := range bets {
		switch b.BetTypeID {
		case 186: // winner
			out = appendOrdered(out, catalog.Winner, b.BetOutcomes, 2)
		case 213: // total points
			out = appendTotals(out, catalog.TotalPoints, b.BetOutcomes)
		case 191: // handicap
			out = appendHandicaps(out, catalog.Handicap, b.BetOutcomes)
		}
	}
	return out
}

func parseTennis(bets []bet) []models.ScrapedOdds {
	var out []models.ScrapedOdds
	for _, b := range bets {
		switch b.BetTypeName {
		case "Pobednik":
			out = appendOrdered(out, catalog.Winner, b.BetOutcomes, 2)
		case "1.set - Pobednik":
			out = appendOrdered(out, catalog.FirstSetWinner, b.BetOutcomes, 2)
		}
	}
	return out
}

func parseHockey(bets []bet) []models.ScrapedOdds {
	var out []models.ScrapedOdds
	for _, b := range bets {
		if b.BetTypeName == "Konacan ishod" {
			out = appendOrdered(out, catalog.FullTime1X2, b.BetOutcomes, 3)
		}
	}
	return out
}

func parseTableTennis(bets []bet) []models.ScrapedOdds {
	var out []models.ScrapedOdds
	for _, b := range bets {
		if b.BetTypeName == "Pobednik" {
			out = appendOrdered(out, catalog.Winner, b.BetOutcomes, 2)
		}
	}
	return out
}

// appendOrdered emits a market whose outcomes follow the site's orderNo.
func appendOrdered(out []models.ScrapedOdds, bt catalog.BetTypeID, outcomes []betOutcome, arity int) []models.ScrapedOdds {
	if len(outcomes) < arity {
		return out
	}
	sorted := make([]betOutcome, len(outcomes))
	copy(sorted, outcomes)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].OrderNo < sorted[j].OrderNo })

	row := models.ScrapedOdds{BetType: bt, Odd1: sorted[0].Odd, Odd2: sorted[1].Odd}
	if arity == 3 {
		row.Odd3 = sorted[2].Odd
	}
	if row.Odd1 <= 0 || row.Odd2 <= 0 || (arity == 3 && row.Odd3 <= 0) {
		return out
	}
	return append(out, row)
}

// appendTotals groups outcomes by their sBV line and pairs under with over.
func appendTotals(out []models.ScrapedOdds, bt catalog.BetTypeID, outcomes []betOutcome) []models.ScrapedOdds {
	type sides struct{ under, over float64 }
	lines := map[float64]*sides{}

	for _, o := range outcomes {
		line, ok := scraperutil.Line(o.SBV)
		if !ok || o.Odd <= 0 {
			continue
		}
		s := lines[line]
		if s == nil {
			s = &sides{}
			lines[line] = s
		}
		name := strings.ToLower(o.Name)
		if strings.HasPrefix(name, "vi") || strings.Contains(name, "over") {
			s.over = o.Odd
		} else {
			s.under = o.Odd
		}
	}

	for line, s := range lines {
		if s.under > 0 && s.over > 0 {
			out = append(out, models.ScrapedOdds{BetType: bt, Margin: line, Odd1: s.under, Odd2: s.over})
		}
	}
	return out
}

// appendHandicaps groups the "1"/"2" outcomes by their sBV line.
func appendHandicaps(out []models.ScrapedOdds, bt catalog.BetTypeID, outcomes []betOutcome) []models.ScrapedOdds {
	type sides struct{ home, away float64 }
	lines := map[float64]*sides{}

	for _, o := range outcomes {
		line, ok := scraperutil.Line(o.SBV)
		if !ok || o.Odd <= 0 {
			continue
		}
		s := lines[line]
		if s == nil {
			s = &sides{}
			lines[line] = s
		}
		switch o.Name {
		case "1":
			s.home = o.Odd
		case "2":
			s.away = o.Odd
		}
	}

	for line, s := range lines {
		if s.home > 0 && s.away > 0 {
			out = append(out, models.ScrapedOdds{BetType: bt, Margin: line, Odd1: s.home, Odd2: s.away})
		}
	}
	return out
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
