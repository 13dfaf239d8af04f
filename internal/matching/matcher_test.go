package matching

import (
	"testing"
	"time"

	"github.com/betsnipe/betsnipe/internal/pkg/catalog"
	"github.com/betsnipe/betsnipe/internal/pkg/models"
)

func TestNormalizeTeam(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Arsenal FC", "arsenal"},
		{"FK Crvena Zvezda", "fk crvena zvezda"}, // prefix form is kept, only suffixes strip
		{"Partizan fk", "partizan"},
		{"Bayern München", "bayern munchen"},
		{"Čukarički", "cukaricki"},
		{"Црвена Звезда", "crvena zvezda"},
		{"Manchester Utd.", "manchester utd"},
		{"Team 2021", "team"},
		{"Barcelona (W)", "barcelona"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeTeam(tt.in); got != tt.want {
			t.Errorf("NormalizeTeam(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeTeamIdempotent(t *testing.T) {
	names := []string{"Arsenal FC", "Бачка Топола", "Žalgiris Kaunas", "Inter U19"}
	for _, name := range names {
		once := NormalizeTeam(name)
		if twice := NormalizeTeam(once); twice != once {
			t.Errorf("NormalizeTeam not idempotent for %q: %q -> %q", name, once, twice)
		}
	}
}

func TestNormalizeTennisPlayer(t *testing.T) {
	want := "djokovic n"
	for _, in := range []string{"Novak Djokovic", "Djokovic, Novak", "N. Djokovic"} {
		if got := NormalizeTennisPlayer(in); got != want {
			t.Errorf("NormalizeTennisPlayer(%q) = %q, want %q", in, got, want)
		}
	}
	// Single-token names pass through.
	if got := NormalizeTennisPlayer("Medvedev"); got != "medvedev" {
		t.Errorf("NormalizeTennisPlayer(Medvedev) = %q", got)
	}
}

func TestCategoryKey(t *testing.T) {
	tests := []struct {
		team1, team2 string
		want         string
	}{
		{"Arsenal", "Chelsea", ""},
		{"Arsenal U19", "Chelsea U19", "u19"},
		{"Barcelona (W)", "Real Madrid (W)", "women"},
		{"Inter Women", "Milan Ladies", "women"},
	}
	for _, tt := range tests {
		if got := CategoryKey(tt.team1, tt.team2); got != tt.want {
			t.Errorf("CategoryKey(%q, %q) = %q, want %q", tt.team1, tt.team2, got, tt.want)
		}
	}
}

func TestCategoryMismatchNeverMatches(t *testing.T) {
	m := New(0)
	start := time.Now()

	// Identical names after normalization, but one side is a U19 pairing.
	score := m.Match(
		Input{Team1: "Arsenal U19", Team2: "Chelsea U19", Sport: catalog.Football, StartTime: start},
		Input{Team1: "Arsenal", Team2: "Chelsea", Sport: catalog.Football, StartTime: start},
	)
	if score.IsMatch {
		t.Error("U19 pairing matched the senior pairing")
	}
	if score.TeamScore != 0 {
		t.Errorf("TeamScore = %v, want 0 for mismatched categories", score.TeamScore)
	}
}

func TestMatchAcrossBookVariants(t *testing.T) {
	m := New(0)
	start := time.Now()

	tests := []struct {
		name string
		a, b Input
		want bool
	}{
		{
			name: "suffix and diacritic variants",
			a:    Input{Team1: "Crvena Zvezda", Team2: "Partizan", Sport: catalog.Football, StartTime: start},
			b:    Input{Team1: "Crvena Zvezda FK", Team2: "Partizan Beograd", Sport: catalog.Football, StartTime: start.Add(10 * time.Minute)},
			want: true,
		},
		{
			name: "swapped sides",
			a:    Input{Team1: "Partizan", Team2: "Crvena Zvezda", Sport: catalog.Football, StartTime: start},
			b:    Input{Team1: "Crvena Zvezda", Team2: "Partizan", Sport: catalog.Football, StartTime: start},
			want: true,
		},
		{
			name: "tennis initials vs full name",
			a:    Input{Team1: "N. Djokovic", Team2: "R. Nadal", Sport: catalog.Tennis, StartTime: start},
			b:    Input{Team1: "Novak Djokovic", Team2: "Rafael Nadal", Sport: catalog.Tennis, StartTime: start},
			want: true,
		},
		{
			name: "different fixtures same league",
			a:    Input{Team1: "Arsenal", Team2: "Chelsea", Sport: catalog.Football, StartTime: start},
			b:    Input{Team1: "Liverpool", Team2: "Everton", Sport: catalog.Football, StartTime: start},
			want: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score := m.Match(tt.a, tt.b)
			if score.IsMatch != tt.want {
				t.Errorf("IsMatch = %v, want %v (confidence %.1f, team %.1f, time %.1f)",
					score.IsMatch, tt.want, score.Confidence, score.TeamScore, score.TimeScore)
			}
		})
	}
}

func TestMatchSwappedOrderReported(t *testing.T) {
	m := New(0)
	start := time.Now()
	score := m.Match(
		Input{Team1: "Partizan", Team2: "Crvena Zvezda", Sport: catalog.Football, StartTime: start},
		Input{Team1: "Crvena Zvezda", Team2: "Partizan", Sport: catalog.Football, StartTime: start},
	)
	if !score.IsMatch || !score.Swapped {
		t.Errorf("IsMatch = %v, Swapped = %v, want both true", score.IsMatch, score.Swapped)
	}
}

func TestTimeScoreWindows(t *testing.T) {
	m := New(0)
	base := time.Date(2026, 8, 25, 18, 0, 0, 0, time.UTC)

	// Football window is 30 minutes.
	if got := m.TimeScore(base, base.Add(3*time.Minute), catalog.Football); got != 100 {
		t.Errorf("3min diff: score = %v, want 100", got)
	}
	if got := m.TimeScore(base, base.Add(30*time.Minute), catalog.Football); got != 80 {
		t.Errorf("window edge: score = %v, want 80", got)
	}
	if got := m.TimeScore(base, base.Add(3*time.Hour), catalog.Football); got != 0 {
		t.Errorf("4x window exceeded: score = %v, want 0", got)
	}
}

func TestTimeScoreFallbackWindow(t *testing.T) {
	base := time.Date(2026, 8, 25, 18, 0, 0, 0, time.UTC)
	unknown := catalog.SportID(99)

	m := New(0)
	if got := m.TimeScore(base, base.Add(30*time.Minute), unknown); got != 80 {
		t.Errorf("catalogue fallback edge: score = %v, want 80", got)
	}

	m.FallbackWindowMinutes = 120
	if got := m.TimeScore(base, base.Add(2*time.Hour), unknown); got != 80 {
		t.Errorf("configured window edge: score = %v, want 80", got)
	}
	if got := m.TimeScore(base, base.Add(time.Hour), unknown); got != 90 {
		t.Errorf("inside configured window: score = %v, want 90", got)
	}

	// Catalogued sports ignore the fallback.
	if got := m.TimeScore(base, base.Add(30*time.Minute), catalog.Football); got != 80 {
		t.Errorf("football window edge: score = %v, want 80", got)
	}
}

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2026, 3, 14, 18, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		in   any
		ok   bool
	}{
		{"unix seconds", want.Unix(), true},
		{"unix millis", float64(want.UnixMilli()), true},
		{"rfc3339", "2026-03-14T18:30:00Z", true},
		{"iso no zone", "2026-03-14T18:30:00", true},
		{"space separated", "2026-03-14 18:30", true},
		{"bare Z on short form", "2026-03-14 18:30:00Z", true},
		{"time passthrough", want, true},
		{"garbage", "not a time", false},
		{"zero epoch", int64(0), false},
		{"empty string", "", false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseTimestamp(tt.in)
			if ok != tt.ok {
				t.Fatalf("ParseTimestamp(%v) ok = %v, want %v", tt.in, ok, tt.ok)
			}
			if ok && !got.Equal(want) {
				t.Errorf("ParseTimestamp(%v) = %v, want %v", tt.in, got, want)
			}
		})
	}
}

func TestFindBestMatchPrefersCloserKickoff(t *testing.T) {
	m := New(0)
	start := time.Date(2026, 8, 25, 18, 0, 0, 0, time.UTC)

	candidates := []models.Match{
		{ID: 1, Team1: "Arsenal", Team2: "Chelsea", Sport: catalog.Football, StartTime: start.Add(45 * time.Minute)},
		{ID: 2, Team1: "Arsenal", Team2: "Chelsea", Sport: catalog.Football, StartTime: start},
	}
	best, score := m.FindBestMatch(Input{
		Team1: "Arsenal FC", Team2: "Chelsea FC",
		Sport: catalog.Football, StartTime: start,
	}, candidates)
	if best == nil {
		t.Fatal("no match found")
	}
	if best.ID != 2 {
		t.Errorf("best.ID = %d, want 2 (confidence %.1f)", best.ID, score.Confidence)
	}
}
