// Package maxbet scrapes the MaxBet Serbia prematch offer.
//
// The REST API is three levels deep: leagues per sport, match list per
// league, then one call per match returning the flat odds dict parsed by
// odds.go.
package maxbet

import (
	"context"
	"fmt"
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
	baseURL = "https://www.maxbet.rs/restapi/offer/sr"
	// Query string every offer endpoint expects.
	offerQuery = "annex=3&desktopVersion=1.2.1.10&locale=sr"

	detailWorkers = 8
)

type Scraper struct {
	client  *scraperutil.Client
	matches atomic.Int64
}

func New(opts ...scraperutil.Option) *Scraper {
	opts = append(opts,
		scraperutil.WithHeader("Origin", "https://www.maxbet.rs"),
		scraperutil.WithHeader("Referer", "https://www.maxbet.rs/betting"),
	)
	return &Scraper{client: scraperutil.NewClient(opts...)}
}

func (s *Scraper) BookmakerID() catalog.BookmakerID { return catalog.Maxbet }
func (s *Scraper) BookmakerName() string            { return "maxbet" }

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
		ID         int64  `json:"id"`
		LeagueName string `json:"leagueName"`
	} `json:"esMatches"`
}

type matchDetail struct {
	ID          int64              `json:"id"`
	Home        string             `json:"home"`
	Away        string             `json:"away"`
	LeagueName  string             `json:"leagueName"`
	KickOffTime int64              `json:"kickOffTime"`
	Odds        map[string]float64 `json:"odds"`
	Params      map[string]any     `json:"params"`
}

func (s *Scraper) ScrapeSport(ctx context.Context, sport catalog.SportID) ([]models.ScrapedMatch, error) {
	code, ok := sportCodes[sport]
	if !ok {
		return nil, nil
	}

	var leagues leaguesResponse
	url := fmt.Sprintf("%s/categories/sport/%s/l?%s", baseURL, code, offerQuery)
	if err := s.client.GetJSON(ctx, url, &leagues); err != nil {
		return nil, fmt.Errorf("failed to fetch leagues: %w", err)
	}

	matchIDs := s.collectMatchIDs(ctx, code, leagues)

	var (
		mu      sync.Mutex
		matches []models.ScrapedMatch
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(detailWorkers)
	for _, id := range matchIDs {
		id := id
		g.Go(func() error {
			var detail matchDetail
			url := fmt.Sprintf("%s/match/%d?%s", baseURL, id, offerQuery)
			if err := s.client.GetJSON(gctx, url, &detail); err != nil {
				return gctx.Err() // transient per-match faults already counted by the client
			}
			match, ok := s.buildMatch(detail, sport)
			if !ok {
				return nil
			}
			mu.Lock()
			matches = append(matches, match)
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

// collectMatchIDs walks every non-bonus league and merges its match ids.
func (s *Scraper) collectMatchIDs(ctx context.Context, code string, leagues leaguesResponse) []int64 {
	var (
		mu  sync.Mutex
		ids []int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(detailWorkers)
	for _, league := range leagues.Categories {
		if bonusLeague(league.Name) {
			continue
		}
		leagueID := league.ID
		g.Go(func() error {
			var resp leagueMatchesResponse
			url := fmt.Sprintf("%s/sport/%s/league/%d/mob?%s", baseURL, code, leagueID, offerQuery)
			if err := s.client.GetJSON(gctx, url, &resp); err != nil {
				return gctx.Err()
			}
			mu.Lock()
			for _, m := range resp.EsMatches {
				if !bonusLeague(m.LeagueName) {
					ids = append(ids, m.ID)
				}
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return ids
}

func (s *Scraper) buildMatch(detail matchDetail, sport catalog.SportID) (models.ScrapedMatch, bool) {
	if detail.Home == "" || detail.Away == "" {
		return models.ScrapedMatch{}, false
	}
	start := scraperutil.ParseTime(detail.KickOffTime)
	if start.IsZero() {
		return models.ScrapedMatch{}, false
	}
	odds := parseOdds(detail.Odds, detail.Params, sport)
	if len(odds) == 0 {
		return models.ScrapedMatch{}, false
	}
	return models.ScrapedMatch{
		Team1:      detail.Home,
		Team2:      detail.Away,
		Sport:      sport,
		StartTime:  start,
		League:     detail.LeagueName,
		ExternalID: strconv.FormatInt(detail.ID, 10),
		Odds:       odds,
	}, true
}

func bonusLeague(name string) bool {
	return strings.Contains(name, "Bonus Tip") || strings.Contains(name, "Max Bonus")
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
