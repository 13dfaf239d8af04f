// Package topbet scrapes TopBet Serbia, which runs on the NSoft
// distribution API.
//
// Unlike the other books this is a single-request offer: one events call per
// sport returns every match with its markets inlined under compact one-letter
// keys (j = event name, n = start time, o = markets, h = outcomes).
package topbet

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/betsnipe/betsnipe/internal/pkg/catalog"
	"github.com/betsnipe/betsnipe/internal/pkg/models"
	"github.com/betsnipe/betsnipe/internal/scrapers"
	"github.com/betsnipe/betsnipe/internal/scrapers/scraperutil"
)

const (
	baseURL     = "https://sports-sm-distribution-api.de-2.nsoftcdn.com/api/v1"
	companyUUID = "4dd61a16-9691-4277-9027-8cd05a647844"
)

var sportCodes = map[catalog.SportID]int{
	catalog.Football:    3,
	catalog.Basketball:  1,
	catalog.Tennis:      4,
	catalog.Hockey:      5,
	catalog.TableTennis: 27,
}

// Football total-goals lines worth publishing; the offer carries many
// exotic lines under the same outcome labels.
var footballTotalLines = map[float64]bool{1.5: true, 2.5: true, 3.5: true, 4.5: true}

type Scraper struct {
	client  *scraperutil.Client
	matches atomic.Int64
	now     func() time.Time
}

func New(opts ...scraperutil.Option) *Scraper {
	opts = append(opts,
		scraperutil.WithHeader("Origin", "https://topbet.rs"),
		scraperutil.WithHeader("Referer", "https://topbet.rs/"),
	)
	return &Scraper{
		client: scraperutil.NewClient(opts...),
		now:    time.Now,
	}
}

func (s *Scraper) BookmakerID() catalog.BookmakerID { return catalog.Topbet }
func (s *Scraper) BookmakerName() string            { return "topbet" }

func (s *Scraper) SupportedSports() []catalog.SportID {
	return []catalog.SportID{catalog.Football, catalog.Basketball, catalog.Tennis, catalog.Hockey, catalog.TableTennis}
}

type outcome struct {
	E string  `json:"e"` // outcome label: 1/X/2, GG/NG, Više/Manje
	G float64 `json:"g"` // decimal odd
}

type market struct {
	B int       `json:"b"` // market type id
	D int       `json:"d"` // market subtype
	N any       `json:"n"` // line (totals)
	H []outcome `json:"h"`
}

type event struct {
	A any               `json:"a"` // event id
	J string            `json:"j"` // "Home - Away"
	N string            `json:"n"` // start time
	O map[string]market `json:"o"`
}

type eventsResponse struct {
	Data struct {
		Events []event `json:"events"`
	} `json:"data"`
}

func (s *Scraper) ScrapeSport(ctx context.Context, sport catalog.SportID) ([]models.ScrapedMatch, error) {
	code, ok := sportCodes[sport]
	if !ok {
		return nil, nil
	}

	q := url.Values{}
	q.Set("deliveryPlatformId", "3")
	q.Set("dataFormat", `{"default":"object","events":"array","outcomes":"array"}`)
	q.Set("language", `{"default":"sr-Latn","events":"sr-Latn","sport":"sr-Latn","category":"sr-Latn","tournament":"sr-Latn","team":"sr-Latn","market":"sr-Latn"}`)
	q.Set("timezone", "Europe/Budapest")
	q.Set("company", "{}")
	q.Set("companyUuid", companyUUID)
	q.Set("filter[sportId]", strconv.Itoa(code))
	q.Set("filter[from]", s.now().Format("2006-01-02T15:04:05"))
	q.Set("sort", "categoryPosition,categoryName,tournamentPosition,tournamentName,startsAt")
	q.Set("offerTemplate", "WEB_OVERVIEW")
	q.Set("shortProps", "1")

	var resp eventsResponse
	if err := s.client.GetJSON(ctx, baseURL+"/events?"+q.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch events: %w", err)
	}

	var matches []models.ScrapedMatch
	for _, ev := range resp.Data.Events {
		parts := strings.Split(ev.J, " - ")
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			continue
		}
		start := scraperutil.ParseTime(ev.N)
		if start.IsZero() {
			continue
		}
		odds := parseOdds(ev, sport)
		if len(odds) == 0 {
			continue
		}
		matches = append(matches, models.ScrapedMatch{
			Team1:      parts[0],
			Team2:      parts[1],
			Sport:      sport,
			StartTime:  start,
			ExternalID: externalID(ev.A),
			Odds:       odds,
		})
	}

	s.matches.Add(int64(len(matches)))
	return matches, nil
}

func externalID(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case float64:
		return strconv.FormatInt(int64(id), 10)
	}
	return ""
}

func parseOdds(ev event, sport catalog.SportID) []models.ScrapedOdds {
	switch sport {
	case catalog.Football:
		return parseFootball(ev)
	case catalog.Hockey:
		return parseThreeWay(ev)
	default:
		return parseTwoWay(ev)
	}
}

func parseFootball(ev event) []models.ScrapedOdds {
	var out []models.ScrapedOdds
	bttsDone := false

	for _, m := range ev.O {
		// 1X2 is the b=6/d=1 market.
		if m.B == 6 && m.D == 1 && len(m.H) == 3 {
			home, draw, away := pick(m.H, "1"), pick(m.H, "X"), pick(m.H, "2")
			if home > 0 && draw > 0 && away > 0 {
				out = append(out, models.ScrapedOdds{BetType: catalog.FullTime1X2, Odd1: home, Odd2: draw, Odd3: away})
			}
		}

		if !bttsDone {
			gg, ng := pick(m.H, "GG"), pick(m.H, "NG")
			if gg > 0 && ng > 0 {
				out = append(out, models.ScrapedOdds{BetType: catalog.BTTS, Odd1: gg, Odd2: ng})
				bttsDone = true
			}
		}

		if line, ok := scraperutil.Line(m.N); ok && footballTotalLines[line] {
			over := pickAny(m.H, "Više", "+")
			under := pickAny(m.H, "Manje", "-")
			if over > 0 && under > 0 {
				out = append(out, models.ScrapedOdds{BetType: catalog.TotalOverUnder, Margin: line, Odd1: under, Odd2: over})
			}
		}
	}
	return out
}

// parseThreeWay takes the first complete 1X2 market.
func parseThreeWay(ev event) []models.ScrapedOdds {
	for _, m := range ev.O {
		if len(m.H) != 3 {
			continue
		}
		home, draw, away := pick(m.H, "1"), pick(m.H, "X"), pick(m.H, "2")
		if home > 0 && draw > 0 && away > 0 {
			return []models.ScrapedOdds{{BetType: catalog.FullTime1X2, Odd1: home, Odd2: draw, Odd3: away}}
		}
	}
	return nil
}

// parseTwoWay takes the first complete winner market.
func parseTwoWay(ev event) []models.ScrapedOdds {
	for _, m := range ev.O {
		if len(m.H) != 2 {
			continue
		}
		one, two := pick(m.H, "1"), pick(m.H, "2")
		if one > 0 && two > 0 {
			return []models.ScrapedOdds{{BetType: catalog.Winner, Odd1: one, Odd2: two}}
		}
	}
	return nil
}

func pick(outcomes []outcome, label string) float64 {
	for _, o := range outcomes {
		if o.E == label {
			return o.G
		}
	}
	return 0
}

func pickAny(outcomes []outcome, labels ...string) float64 {
	for _, label := range labels {
		if odd := pick(outcomes, label); odd > 0 {
			return odd
		}
	}
	return 0
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
