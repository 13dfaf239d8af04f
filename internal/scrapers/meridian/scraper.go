// Package meridian scrapes the Meridian Bet Serbia prematch offer.
//
// The API wants a bearer token that the site embeds in a script tag on its
// landing pages, so a scrape cycle starts by pulling the page and reading
// the token out of it. Leagues are paged per sport; markets are one call
// per event, kept at low concurrency because the API rate limits hard.
package meridian

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"github.com/betsnipe/betsnipe/internal/pkg/catalog"
	"github.com/betsnipe/betsnipe/internal/pkg/models"
	"github.com/betsnipe/betsnipe/internal/scrapers"
	"github.com/betsnipe/betsnipe/internal/scrapers/scraperutil"
)

const (
	baseURL  = "https://online.meridianbet.com/betshop/api"
	tokenURL = "https://meridianbet.rs/sr/kladjenje/fudbal"

	marketWorkers = 2
)

var sportCodes = map[catalog.SportID]int{
	catalog.Football:    58,
	catalog.Basketball:  67,
	catalog.Tennis:      69,
	catalog.Hockey:      64,
	catalog.TableTennis: 92,
}

type Scraper struct {
	client  *scraperutil.Client
	matches atomic.Int64

	mu    sync.Mutex
	token string
}

func New(opts ...scraperutil.Option) *Scraper {
	// The market cap stays below any configured global cap: meridian rate
	// limits aggressively.
	opts = append(opts,
		scraperutil.WithMaxConcurrent(marketWorkers),
		scraperutil.WithHeader("Accept-Language", "sr"),
		scraperutil.WithHeader("Origin", "https://meridianbet.rs"),
		scraperutil.WithHeader("Referer", "https://meridianbet.rs/"),
	)
	return &Scraper{client: scraperutil.NewClient(opts...)}
}

func (s *Scraper) BookmakerID() catalog.BookmakerID { return catalog.Meridian }
func (s *Scraper) BookmakerName() string            { return "meridian" }

func (s *Scraper) SupportedSports() []catalog.SportID {
	return []catalog.SportID{catalog.Football, catalog.Basketball, catalog.Tennis, catalog.Hockey, catalog.TableTennis}
}

// ensureToken extracts the bearer token from the landing page script state
// and installs it as the Authorization header for subsequent API calls.
func (s *Scraper) ensureToken(ctx context.Context) error {
	s.mu.Lock()
	have := s.token != ""
	s.mu.Unlock()
	if have {
		return nil
	}

	body, err := s.client.GetBody(ctx, tokenURL)
	if err != nil {
		return fmt.Errorf("failed to fetch landing page: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return fmt.Errorf("failed to parse landing page: %w", err)
	}

	var token string
	doc.Find("script").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := sel.Text()
		if !strings.Contains(text, "NEW_TOKEN") {
			return true
		}
		var state map[string]string
		if err := json.Unmarshal([]byte(text), &state); err != nil {
			return true
		}
		var auth struct {
			AccessToken string `json:"access_token"`
		}
		if err := json.Unmarshal([]byte(state["NEW_TOKEN"]), &auth); err != nil {
			return true
		}
		token = auth.AccessToken
		return token == ""
	})
	if token == "" {
		return errors.New("no access token on landing page")
	}

	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	s.client.SetHeader("Authorization", "Bearer "+token)
	return nil
}

type eventHeader struct {
	EventID   int64    `json:"eventId"`
	Rivals    []string `json:"rivals"`
	StartTime int64    `json:"startTime"`
}

type leaguesPage struct {
	Payload struct {
		Leagues []struct {
			Name   string `json:"name"`
			Events []struct {
				Header eventHeader `json:"header"`
			} `json:"events"`
		} `json:"leagues"`
	} `json:"payload"`
}

type selection struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

type marketLine struct {
	OverUnder  any         `json:"overUnder"`
	Handicap   any         `json:"handicap"`
	Selections []selection `json:"selections"`
}

type marketGroup struct {
	MarketName string       `json:"marketName"`
	Markets    []marketLine `json:"markets"`
}

type marketsResponse struct {
	Payload []marketGroup `json:"payload"`
}

type pendingEvent struct {
	header eventHeader
	league string
}

func (s *Scraper) ScrapeSport(ctx context.Context, sport catalog.SportID) ([]models.ScrapedMatch, error) {
	code, ok := sportCodes[sport]
	if !ok {
		return nil, nil
	}
	if err := s.ensureToken(ctx); err != nil {
		return nil, err
	}

	var events []pendingEvent
	for page := 0; ; page++ {
		var resp leaguesPage
		url := fmt.Sprintf("%s/v1/standard/sport/%d/leagues?page=%d&time=ALL&groupIndices=0,0,0", baseURL, code, page)
		if err := s.client.GetJSON(ctx, url, &resp); err != nil {
			if page == 0 {
				// First page failing usually means a stale token; drop it
				// so the next cycle re-authenticates.
				s.dropToken()
				return nil, fmt.Errorf("failed to fetch leagues: %w", err)
			}
			break
		}
		if len(resp.Payload.Leagues) == 0 {
			break
		}
		for _, league := range resp.Payload.Leagues {
			for _, ev := range league.Events {
				if ev.Header.EventID == 0 || len(ev.Header.Rivals) < 2 {
					continue
				}
				events = append(events, pendingEvent{header: ev.Header, league: league.Name})
			}
		}
	}

	var (
		mu      sync.Mutex
		matches []models.ScrapedMatch
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(marketWorkers)
	for _, ev := range events {
		ev := ev
		g.Go(func() error {
			var resp marketsResponse
			url := fmt.Sprintf("%s/v2/events/%d/markets", baseURL, ev.header.EventID)
			if err := s.client.GetJSON(gctx, url, &resp); err != nil {
				return gctx.Err()
			}
			start := scraperutil.ParseTime(ev.header.StartTime)
			if start.IsZero() {
				return nil
			}
			odds := parseOdds(resp.Payload, sport)
			if len(odds) == 0 {
				return nil
			}
			mu.Lock()
			matches = append(matches, models.ScrapedMatch{
				Team1:      ev.header.Rivals[0],
				Team2:      ev.header.Rivals[1],
				Sport:      sport,
				StartTime:  start,
				League:     ev.league,
				ExternalID: fmt.Sprintf("%d", ev.header.EventID),
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

func (s *Scraper) dropToken() {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
}

func parseOdds(groups []marketGroup, sport catalog.SportID) []models.ScrapedOdds {
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
		return parseWinner(groups)
	}
	return nil
}

func parseFootball(groups []marketGroup) []models.ScrapedOdds {
	var out []models.ScrapedOdds
	for _, group := range groups {
		switch group.MarketName {
		case "Konačan Ishod":
			out = appendThreeWay(out, catalog.FullTime1X2, group)
		case "I Pol. Konačan Ishod", "Prvo Poluvreme - Konačan Ishod":
			out = appendThreeWay(out, catalog.FirstHalf1X2, group)
		case "II Pol. Konačan Ishod", "Drugo Poluvreme - Konačan Ishod":
			out = appendThreeWay(out, catalog.SecondHalf1X2, group)
		case "Oba Tima Daju Gol":
			for _, m := range group.Markets {
				gg := pickSelection(m.Selections, "GG")
				ng := pickSelection(m.Selections, "NG")
				if gg > 0 && ng > 0 {
					out = append(out, models.ScrapedOdds{BetType: catalog.BTTS, Odd1: gg, Odd2: ng})
				}
			}
		case "Ukupno Golova":
			out = appendTotals(out, catalog.TotalOverUnder, group)
		case "I Pol. Ukupno", "Prvo Poluvreme - Ukupno Golova":
			out = appendTotals(out, catalog.TotalFirstHalf, group)
		case "II Pol. Ukupno", "Drugo Poluvreme - Ukupno Golova":
			out = appendTotals(out, catalog.TotalSecondHalf, group)
		}
	}
	return out
}

func parseBasketball(groups []marketGroup) []models.ScrapedOdds {
	var out []models.ScrapedOdds
	for _, group := range groups {
		switch group.MarketName {
		case "Pobednik", "Pobednik Meča":
			out = appendTwoWay(out, catalog.Winner, group)
		case "Ukupno Poena":
			for _, m := range group.Markets {
				line, ok := scraperutil.Line(m.OverUnder)
				// Lines below the floor are quarter or half totals.
				if !ok || line <= 130 || len(m.Selections) < 2 {
					continue
				}
				out = appendTotalRow(out, catalog.TotalPoints, line, m.Selections)
			}
		case "Hendikep":
			for _, m := range group.Markets {
				line, ok := scraperutil.Line(m.Handicap)
				if !ok || len(m.Selections) < 2 {
					continue
				}
				if m.Selections[0].Price > 0 && m.Selections[1].Price > 0 {
					out = append(out, models.ScrapedOdds{
						BetType: catalog.Handicap,
						Margin:  line,
						Odd1:    m.Selections[0].Price,
						Odd2:    m.Selections[1].Price,
					})
				}
			}
		}
	}
	return out
}

func parseTennis(groups []marketGroup) []models.ScrapedOdds {
	var out []models.ScrapedOdds
	for _, group := range groups {
		switch group.MarketName {
		case "Pobednik", "Pobednik Meča":
			out = appendTwoWay(out, catalog.Winner, group)
		case "1. Set - Pobednik", "I Set Pobednik":
			out = appendTwoWay(out, catalog.FirstSetWinner, group)
		}
	}
	return out
}

func parseHockey(groups []marketGroup) []models.ScrapedOdds {
	var out []models.ScrapedOdds
	for _, group := range groups {
		if group.MarketName == "Konačan Ishod" {
			out = appendThreeWay(out, catalog.FullTime1X2, group)
		}
	}
	return out
}

func parseWinner(groups []marketGroup) []models.ScrapedOdds {
	var out []models.ScrapedOdds
	for _, group := range groups {
		if group.MarketName == "Pobednik" || group.MarketName == "Pobednik Meča" {
			out = appendTwoWay(out, catalog.Winner, group)
		}
	}
	return out
}

func pickSelection(selections []selection, name string) float64 {
	for _, sel := range selections {
		if sel.Name == name {
			return sel.Price
		}
	}
	return 0
}

func appendThreeWay(out []models.ScrapedOdds, bt catalog.BetTypeID, group marketGroup) []models.ScrapedOdds {
	for _, m := range group.Markets {
		if len(m.Selections) < 3 {
			continue
		}
		o1, o2, o3 := m.Selections[0].Price, m.Selections[1].Price, m.Selections[2].Price
		if o1 > 0 && o2 > 0 && o3 > 0 {
			out = append(out, models.ScrapedOdds{BetType: bt, Odd1: o1, Odd2: o2, Odd3: o3})
		}
	}
	return out
}

func appendTwoWay(out []models.ScrapedOdds, bt catalog.BetTypeID, group marketGroup) []models.ScrapedOdds {
	for _, m := range group.Markets {
		if len(m.Selections) < 2 {
			continue
		}
		o1, o2 := m.Selections[0].Price, m.Selections[1].Price
		if o1 > 0 && o2 > 0 {
			out = append(out, models.ScrapedOdds{BetType: bt, Odd1: o1, Odd2: o2})
		}
	}
	return out
}

func appendTotals(out []models.ScrapedOdds, bt catalog.BetTypeID, group marketGroup) []models.ScrapedOdds {
	for _, m := range group.Markets {
		line, ok := scraperutil.Line(m.OverUnder)
		if !ok || len(m.Selections) < 2 {
			continue
		}
		out = appendTotalRow(out, bt, line, m.Selections)
	}
	return out
}

// appendTotalRow stores a total as (under, over). The site lists Over first
// in the selections, so the order is swapped here.
func appendTotalRow(out []models.ScrapedOdds, bt catalog.BetTypeID, line float64, selections []selection) []models.ScrapedOdds {
	over, under := selections[0].Price, selections[1].Price
	if over <= 0 || under <= 0 {
		return out
	}
	return append(out, models.ScrapedOdds{BetType: bt, Margin: line, Odd1: under, Odd2: over})
}

func (s *Scraper) Stats() scrapers.Stats {
	return scrapers.Stats{
		Requests: s.client.Requests(),
		Errors:   s.client.Errors(),
		Matches:  s.matches.Load(),
	}
}

// Reset drops the session and the cached token so the next cycle starts
// with a fresh authentication.
func (s *Scraper) Reset() {
	s.dropToken()
	s.client.Reset()
	s.matches.Store(0)
}

func (s *Scraper) Close() error {
	s.client.Reset()
	return nil
}
