// Package merkur scrapes the MerkurXtip Serbia prematch offer.
//
// Same platform family as Soccerbet, but match details carry a flat odds
// dict whose values are numbers or the placeholder string "N/A".
package merkur

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/betsnipe/betsnipe/internal/pkg/catalog"
	"github.com/betsnipe/betsnipe/internal/pkg/models"
	"github.com/betsnipe/betsnipe/internal/scrapers"
	"github.com/betsnipe/betsnipe/internal/scrapers/scraperutil"
)

const (
	baseURL    = "https://www.merkurxtip.rs/restapi/offer/sr"
	offerQuery = "annex=0&desktopVersion=1.3.2.6&locale=sr"

	detailWorkers = 8
)

var sportCodes = map[catalog.SportID]string{
	catalog.Football:    "S",
	catalog.Basketball:  "B",
	catalog.Tennis:      "T",
	catalog.Hockey:      "H",
	catalog.TableTennis: "TT",
}

type totalLine struct {
	margin float64
	under  string
	over   string
}

var footballTotals = map[catalog.BetTypeID][]totalLine{
	catalog.TotalOverUnder: {
		{1.5, "21", "242"},
		{2.5, "22", "24"},
		{3.5, "219", "25"},
		{4.5, "453", "27"},
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

type Scraper struct {
	client  *scraperutil.Client
	matches atomic.Int64
}

func New(opts ...scraperutil.Option) *Scraper {
	return &Scraper{client: scraperutil.NewClient(opts...)}
}

func (s *Scraper) BookmakerID() catalog.BookmakerID { return catalog.Merkur }
func (s *Scraper) BookmakerName() string            { return "merkur" }

func (s *Scraper) SupportedSports() []catalog.SportID {
	return []catalog.SportID{catalog.Football, catalog.Basketball, catalog.Tennis, catalog.Hockey, catalog.TableTennis}
}

type leaguesResponse struct {
	Categories []struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	} `json:"categories"`
}

type leagueMatchesResponse struct {
	EsMatches []struct {
		ID   int64  `json:"id"`
		Home string `json:"home"`
		Away string `json:"away"`
	} `json:"esMatches"`
}

type matchDetail struct {
	KickOffTime int64          `json:"kickOffTime"`
	Odds        map[string]any `json:"odds"`
}

func (d matchDetail) odd(code string) float64 {
	v, ok := scraperutil.Float(d.Odds[code])
	if !ok {
		return 0
	}
	return v
}

func (s *Scraper) ScrapeSport(ctx context.Context, sport catalog.SportID) ([]models.ScrapedMatch, error) {
	code, ok := sportCodes[sport]
	if !ok {
		return nil, nil
	}

	var leagues leaguesResponse
	url := fmt.Sprintf("%s/categories/ext/sport/%s/g?%s", baseURL, code, offerQuery)
	if err := s.client.GetJSON(ctx, url, &leagues); err != nil {
		return nil, fmt.Errorf("failed to fetch leagues: %w", err)
	}

	var (
		mu      sync.Mutex
		matches []models.ScrapedMatch
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(detailWorkers)

	for _, league := range leagues.Categories {
		league := league
		g.Go(func() error {
			var resp leagueMatchesResponse
			url := fmt.Sprintf("%s/sport/%s/league-group/%d/mob?%s", baseURL, code, league.ID, offerQuery)
			if err := s.client.GetJSON(gctx, url, &resp); err != nil {
				return gctx.Err()
			}
			for _, m := range resp.EsMatches {
				if m.Home == "" || m.Away == "" {
					continue
				}
				var detail matchDetail
				url := fmt.Sprintf("%s/match/%d?%s", baseURL, m.ID, offerQuery)
				if err := s.client.GetJSON(gctx, url, &detail); err != nil {
					continue
				}
				start := scraperutil.ParseTime(detail.KickOffTime)
				if start.IsZero() {
					continue
				}
				odds := parseOdds(detail, sport)
				if len(odds) == 0 {
					continue
				}
				mu.Lock()
				matches = append(matches, models.ScrapedMatch{
					Team1:      m.Home,
					Team2:      m.Away,
					Sport:      sport,
					StartTime:  start,
					League:     league.Name,
					ExternalID: strconv.FormatInt(m.ID, 10),
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

func parseOdds(d matchDetail, sport catalog.SportID) []models.ScrapedOdds {
	var out []models.ScrapedOdds

	switch sport {
	case catalog.Football:
		out = append3Way(out, d, catalog.FullTime1X2, "1", "2", "3")
		out = append3Way(out, d, catalog.FirstHalf1X2, "4", "5", "6")
		out = append3Way(out, d, catalog.SecondHalf1X2, "235", "236", "237")
		out = append2Way(out, d, catalog.BTTS, "272", "273")
		for bt, lines := range footballTotals {
			for _, line := range lines {
				under, over := d.odd(line.under), d.odd(line.over)
				if under > 0 && over > 0 {
					out = append(out, models.ScrapedOdds{BetType: bt, Margin: line.margin, Odd1: under, Odd2: over})
				}
			}
		}
	case catalog.Basketball, catalog.Tennis, catalog.TableTennis:
		out = append2Way(out, d, catalog.Winner, "1", "3")
	case catalog.Hockey:
		out = append3Way(out, d, catalog.FullTime1X2, "1", "2", "3")
	}
	return out
}

func append3Way(out []models.ScrapedOdds, d matchDetail, bt catalog.BetTypeID, c1, c2, c3 string) []models.ScrapedOdds {
	o1, o2, o3 := d.odd(c1), d.odd(c2), d.odd(c3)
	if o1 > 0 && o2 > 0 && o3 > 0 {
		out = append(out, models.ScrapedOdds{BetType: bt, Odd1: o1, Odd2: o2, Odd3: o3})
	}
	return out
}

func append2Way(out []models.ScrapedOdds, d matchDetail, bt catalog.BetTypeID, c1, c2 string) []models.ScrapedOdds {
	o1, o2 := d.odd(c1), d.odd(c2)
	if o1 > 0 && o2 > 0 {
		out = append(out, models.ScrapedOdds{BetType: bt, Odd1: o1, Odd2: o2})
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
