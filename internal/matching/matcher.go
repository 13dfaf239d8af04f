package matching

import (
	"strings"
	"time"

	"github.com/hbollon/go-edlib"

	"github.com/betsnipe/betsnipe/internal/pkg/catalog"
	"github.com/betsnipe/betsnipe/internal/pkg/models"
)

// DefaultThreshold is the weighted-score cutoff for declaring a match when
// none of the hard tiers fire.
const DefaultThreshold = 75.0

// Input is one side of a comparison: a scraped or stored event.
type Input struct {
	Team1     string
	Team2     string
	Sport     catalog.SportID
	StartTime time.Time
	League    string
	Odds      []float64
}

// Score is the result of comparing two events.
type Score struct {
	IsMatch     bool
	Confidence  float64
	TeamScore   float64
	TimeScore   float64
	LeagueScore float64
	OddsBonus   float64
	// Swapped reports that the best team alignment crossed sides
	// (team1 of one source is team2 of the other).
	Swapped bool
}

// Matcher decides whether two scraped events denote the same real-world
// match. It combines team-name similarity (primary), time proximity
// (secondary) and league/odds bonuses.
type Matcher struct {
	Threshold float64
	// FallbackWindowMinutes is the matching window for sports without a
	// catalogued window. Zero means the catalogue default.
	FallbackWindowMinutes int
}

func New(threshold float64) *Matcher {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Matcher{Threshold: threshold}
}

// ratio is a normalized Levenshtein (indel) ratio in 0..100, the same
// measure RapidFuzz calls fuzz.ratio: 2*LCS / (len1+len2).
func ratio(a, b string) float64 {
	if a == "" || b == "" {
		if a == b {
			return 100
		}
		return 0
	}
	if a == b {
		return 100
	}
	lcs := edlib.LCS(a, b)
	la := len([]rune(a))
	lb := len([]rune(b))
	return 200 * float64(lcs) / float64(la+lb)
}

// TeamSimilarity scores the team pairing of two events in both the declared
// and the swapped order and returns the better score. Mismatched category
// sets (U19 vs senior, women vs men) hard-zero the score.
func (m *Matcher) TeamSimilarity(team1A, team2A, team1B, team2B string, sport catalog.SportID) (float64, bool) {
	catsA := ExtractCategories(team1A, team2A)
	catsB := ExtractCategories(team1B, team2B)
	if !equalCategories(catsA, catsB) {
		return 0, false
	}

	normalize := NormalizeTeam
	if sport == catalog.Tennis {
		normalize = NormalizeTennisPlayer
	}
	t1a := normalize(team1A)
	t2a := normalize(team2A)
	t1b := normalize(team1B)
	t2b := normalize(team2B)

	scoreNormal := (ratio(t1a, t1b) + ratio(t2a, t2b)) / 2
	scoreSwapped := (ratio(t1a, t2b) + ratio(t2a, t1b)) / 2

	if scoreSwapped > scoreNormal {
		return scoreSwapped, true
	}
	return scoreNormal, false
}

// TimeScore maps |Δt| to 0..100 using the sport's matching window:
// within 5 minutes is perfect, within the window declines to 80, within 4x
// the window declines to 0.
func (m *Matcher) TimeScore(timeA, timeB time.Time, sport catalog.SportID) float64 {
	window := float64(m.windowMinutes(sport))

	diff := timeA.Sub(timeB)
	if diff < 0 {
		diff = -diff
	}
	diffMinutes := diff.Minutes()

	switch {
	case diffMinutes > window*4:
		return 0
	case diffMinutes <= 5:
		return 100
	case diffMinutes <= window:
		return 100 - (diffMinutes/window)*20
	default:
		return max(0, 80-(diffMinutes-window)*2)
	}
}

// windowMinutes resolves the matching window: the sport's catalogued window
// when known, otherwise the configured fallback.
func (m *Matcher) windowMinutes(sport catalog.SportID) int {
	if s, ok := catalog.Sport(sport); ok {
		return s.TimeWindowMinutes
	}
	if m.FallbackWindowMinutes > 0 {
		return m.FallbackWindowMinutes
	}
	return catalog.TimeWindowMinutes(sport)
}

// LeagueScore gives a small bonus when both sources agree on the league.
func (m *Matcher) LeagueScore(leagueA, leagueB string) float64 {
	if leagueA == "" || leagueB == "" {
		return 0
	}
	similarity := ratio(NormalizeTeam(leagueA), NormalizeTeam(leagueB))
	switch {
	case similarity >= 80:
		return 10
	case similarity >= 60:
		return 5
	default:
		return 0
	}
}

// OddsBonus gives a small bonus when two odds vectors of equal length agree
// within 20% on every outcome. Helps disambiguate similarly named teams.
func (m *Matcher) OddsBonus(oddsA, oddsB []float64) float64 {
	const tolerance = 0.20
	if len(oddsA) == 0 || len(oddsB) == 0 || len(oddsA) != len(oddsB) {
		return 0
	}
	for i := range oddsA {
		oa, ob := oddsA[i], oddsB[i]
		if oa <= 0 || ob <= 0 {
			continue
		}
		if min(oa, ob)/max(oa, ob) < 1-tolerance {
			return 0
		}
	}
	return 5
}

// Match compares two events and decides whether they are the same match.
func (m *Matcher) Match(a, b Input) Score {
	teamScore, swapped := m.TeamSimilarity(a.Team1, a.Team2, b.Team1, b.Team2, a.Sport)
	timeScore := m.TimeScore(a.StartTime, b.StartTime, a.Sport)
	leagueScore := m.LeagueScore(a.League, b.League)
	oddsBonus := m.OddsBonus(a.Odds, b.Odds)

	weighted := teamScore*0.70 + timeScore*0.20 + leagueScore*0.05 + oddsBonus*0.05

	isMatch := false
	switch {
	case teamScore >= 92:
		isMatch = true
	case teamScore >= 80 && timeScore >= 60:
		isMatch = true
	case teamScore >= 70 && timeScore >= 90:
		isMatch = true
	case weighted >= m.Threshold:
		isMatch = true
	}

	return Score{
		IsMatch:     isMatch,
		Confidence:  weighted,
		TeamScore:   teamScore,
		TimeScore:   timeScore,
		LeagueScore: leagueScore,
		OddsBonus:   oddsBonus,
		Swapped:     swapped,
	}
}

// FindBestMatch scores the candidate list (already pre-filtered by sport
// and a broad time window) and returns the best matching candidate, or nil
// when none qualifies.
func (m *Matcher) FindBestMatch(input Input, candidates []models.Match) (*models.Match, Score) {
	var best *models.Match
	var bestScore Score

	for i := range candidates {
		c := &candidates[i]
		score := m.Match(input, Input{
			Team1:     c.Team1,
			Team2:     c.Team2,
			Sport:     c.Sport,
			StartTime: c.StartTime,
			League:    c.League,
		})
		if score.IsMatch && (best == nil || score.Confidence > bestScore.Confidence) {
			best = c
			bestScore = score
		}
	}
	return best, bestScore
}

func equalCategories(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !strings.EqualFold(a[i], b[i]) {
			return false
		}
	}
	return true
}
