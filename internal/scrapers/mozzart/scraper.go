// Package mozzart scrapes Mozzart Bet Serbia.
//
// The site sits behind Cloudflare, so plain HTTP gets challenged. Requests
// go through a headless Chrome instead: the browser warms up a session on
// the betting page once, then every API call is a fetch() evaluated inside
// that page so it carries the clearance cookies. Disabled by default in the
// bookmaker catalogue; the plumbing stays current for when the block lifts.
package mozzart

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/betsnipe/betsnipe/internal/pkg/catalog"
	"github.com/betsnipe/betsnipe/internal/pkg/models"
	"github.com/betsnipe/betsnipe/internal/scrapers"
	"github.com/betsnipe/betsnipe/internal/scrapers/scraperutil"
)

const (
	baseURL   = "https://www.mozzartbet.com"
	warmupURL = "https://www.mozzartbet.com/sr/kladjenje/sport/1?date=today"

	requestTimeout = 30 * time.Second
	userAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/133.0.0.0 Safari/537.36"
)

var sportCodes = map[catalog.SportID]int{
	catalog.Football:    1,
	catalog.Basketball:  2,
	catalog.Tennis:      5,
	catalog.Hockey:      4,
	catalog.TableTennis: 9,
}

type Scraper struct {
	mu          sync.Mutex
	pageCtx     context.Context
	cancels     []context.CancelFunc
	initialized bool

	requests atomic.Int64
	errors   atomic.Int64
	matches  atomic.Int64
}

func New() *Scraper {
	return &Scraper{}
}

func (s *Scraper) BookmakerID() catalog.BookmakerID { return catalog.Mozzart }
func (s *Scraper) BookmakerName() string            { return "mozzart" }

func (s *Scraper) SupportedSports() []catalog.SportID {
	return []catalog.SportID{catalog.Football, catalog.Basketball, catalog.Tennis, catalog.Hockey, catalog.TableTennis}
}

// ensureBrowser starts headless Chrome and warms the session up by visiting
// the betting page, which is where Cloudflare sets its clearance cookies.
func (s *Scraper) ensureBrowser(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return nil
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(userAgent),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	pageCtx, pageCancel := chromedp.NewContext(allocCtx)
	s.cancels = []context.CancelFunc{pageCancel, allocCancel}
	s.pageCtx = pageCtx

	warmup, cancel := context.WithTimeout(pageCtx, 60*time.Second)
	defer cancel()
	if err := chromedp.Run(warmup,
		chromedp.Navigate(warmupURL),
		chromedp.Sleep(3*time.Second),
	); err != nil {
		s.teardownLocked()
		return fmt.Errorf("failed to warm up browser session: %w", err)
	}

	select {
	case <-ctx.Done():
		s.teardownLocked()
		return ctx.Err()
	default:
	}

	s.initialized = true
	return nil
}

func (s *Scraper) teardownLocked() {
	for _, cancel := range s.cancels {
		cancel()
	}
	s.cancels = nil
	s.pageCtx = nil
	s.initialized = false
}

// postJSON runs fetch() inside the warmed-up page and decodes the response.
// Calls are serialized on the single page.
func (s *Scraper) postJSON(ctx context.Context, url string, payload, out any) error {
	if err := s.ensureBrowser(ctx); err != nil {
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request body: %w", err)
	}

	script := fmt.Sprintf(`(async () => {
	const response = await fetch(%s, {
		method: 'POST',
		headers: {
			'Accept': 'application/json, text/plain, */*',
			'Content-Type': 'application/json',
			'medium': 'PREMATCH_WEB',
			'x-unique-id': %s
		},
		body: %s
	});
	if (!response.ok) {
		throw new Error('status ' + response.status);
	}
	return JSON.stringify(await response.json());
})()`, jsString(url), jsString(uniqueID()), jsString(string(body)))

	s.mu.Lock()
	pageCtx := s.pageCtx
	s.mu.Unlock()
	if pageCtx == nil {
		return errors.New("browser session not initialized")
	}

	runCtx, cancel := context.WithTimeout(pageCtx, requestTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	s.requests.Add(1)
	var raw string
	err = chromedp.Run(runCtx, chromedp.Evaluate(script, &raw,
		func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithAwaitPromise(true)
		}))
	if err != nil {
		s.errors.Add(1)
		return fmt.Errorf("in-page fetch of %s failed: %w", url, err)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		s.errors.Add(1)
		return fmt.Errorf("failed to decode response from %s: %w", url, err)
	}
	return nil
}

// jsString embeds a Go string as a JS string literal.
func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// uniqueID mimics the site's request id format: millis-randomhex.
func uniqueID() string {
	buf := make([]byte, 4)
	_, _ = rand.Read(buf)
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), hex.EncodeToString(buf))
}

type competitionsResponse struct {
	Competitions []struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	} `json:"competitions"`
}

type matchListResponse struct {
	Items []struct {
		ID int64 `json:"id"`
	} `json:"items"`
}

type side struct {
	Name string `json:"name"`
}

type oddValue struct {
	Value any `json:"value"`
	Game  struct {
		Name                string `json:"name"`
		SpecialOddValueType string `json:"specialOddValueType"`
	} `json:"game"`
	Subgame struct {
		Name string `json:"name"`
	} `json:"subgame"`
	SpecialOddValue string `json:"specialOddValue"`
}

type oddsGroup struct {
	GroupName string     `json:"groupName"`
	Odds      []oddValue `json:"odds"`
}

type matchResponse struct {
	Match struct {
		ID                  int64       `json:"id"`
		Home                side        `json:"home"`
		Visitor             side        `json:"visitor"`
		StartTime           int64       `json:"startTime"`
		SpecialMatchGroupID json.Number `json:"specialMatchGroupId"`
		OddsGroup           []oddsGroup `json:"oddsGroup"`
	} `json:"match"`
	Error string `json:"error"`
}

func (s *Scraper) ScrapeSport(ctx context.Context, sport catalog.SportID) ([]models.ScrapedMatch, error) {
	code, ok := sportCodes[sport]
	if !ok {
		return nil, nil
	}

	var competitions competitionsResponse
	err := s.postJSON(ctx, baseURL+"/betting/get-competitions", map[string]any{
		"date":    "all_days",
		"sportId": code,
	}, &competitions)
	if err != nil {
		return nil, err
	}

	var matches []models.ScrapedMatch
	seen := map[string]bool{}

	for _, comp := range competitions.Competitions {
		if err := ctx.Err(); err != nil {
			return matches, err
		}

		var list matchListResponse
		err := s.postJSON(ctx, baseURL+"/betting/matches", map[string]any{
			"date":           "all_days",
			"sort":           "bycompetition",
			"currentPage":    0,
			"pageSize":       100,
			"sportId":        code,
			"competitionIds": []int64{comp.ID},
			"search":         "",
			"matchTypeId":    0,
		}, &list)
		if err != nil {
			continue
		}

		for _, item := range list.Items {
			var detail matchResponse
			url := fmt.Sprintf("%s/betting/match/%d", baseURL, item.ID)
			if err := s.postJSON(ctx, url, map[string]any{}, &detail); err != nil {
				continue
			}
			m := detail.Match
			if detail.Error != "" || m.SpecialMatchGroupID != "" {
				continue
			}
			if m.Home.Name == "" || m.Visitor.Name == "" {
				continue
			}
			key := m.Home.Name + "_" + m.Visitor.Name
			if seen[key] {
				continue
			}
			seen[key] = true

			start := scraperutil.ParseTime(m.StartTime)
			if start.IsZero() {
				continue
			}
			odds := parseOdds(m.OddsGroup, sport)
			if len(odds) == 0 {
				continue
			}
			matches = append(matches, models.ScrapedMatch{
				Team1:      m.Home.Name,
				Team2:      m.Visitor.Name,
				Sport:      sport,
				StartTime:  start,
				League:     comp.Name,
				ExternalID: strconv.FormatInt(m.ID, 10),
				Odds:       odds,
			})
		}
	}

	s.matches.Add(int64(len(matches)))
	return matches, nil
}

func (s *Scraper) Stats() scrapers.Stats {
	return scrapers.Stats{
		Requests: s.requests.Load(),
		Errors:   s.errors.Load(),
		Matches:  s.matches.Load(),
	}
}

// Reset tears the browser down; the next cycle starts a fresh session with
// fresh Cloudflare cookies.
func (s *Scraper) Reset() {
	s.mu.Lock()
	s.teardownLocked()
	s.mu.Unlock()
	s.matches.Store(0)
}

func (s *Scraper) Close() error {
	s.mu.Lock()
	s.teardownLocked()
	s.mu.Unlock()
	return nil
}
