package catalog

// SportID identifies a sport in the internal model. IDs are stable and shared
// with the persistent store; adapters translate their own sport codes to these.
type SportID int

const (
	Football    SportID = 1
	Basketball  SportID = 2
	Tennis      SportID = 3
	Hockey      SportID = 4
	TableTennis SportID = 5
	Volleyball  SportID = 6
	Handball    SportID = 7
)

// SportInfo describes one sport.
type SportInfo struct {
	ID SportID
	// Name is the canonical lowercase tag used in events and logs.
	Name string
	// NameSr is the Serbian display name the source sites use.
	NameSr string
	// TimeWindowMinutes is the cross-bookmaker matching window for this
	// sport. Tighter for sports with dense schedules (table tennis),
	// looser for football.
	TimeWindowMinutes int
}

var sports = map[SportID]SportInfo{
	Football:    {Football, "football", "Fudbal", 30},
	Basketball:  {Basketball, "basketball", "Kosarka", 20},
	Tennis:      {Tennis, "tennis", "Tenis", 10},
	Hockey:      {Hockey, "hockey", "Hokej", 20},
	TableTennis: {TableTennis, "table_tennis", "Stoni Tenis", 5},
	Volleyball:  {Volleyball, "volleyball", "Odbojka", 15},
	Handball:    {Handball, "handball", "Rukomet", 20},
}

// Sport returns the catalogue entry for id. ok is false for unknown ids.
func Sport(id SportID) (SportInfo, bool) {
	s, ok := sports[id]
	return s, ok
}

// SportName returns the canonical tag, or "unknown" for unmapped ids.
func SportName(id SportID) string {
	if s, ok := sports[id]; ok {
		return s.Name
	}
	return "unknown"
}

// TimeWindowMinutes returns the sport matching window, falling back to 30
// minutes for unknown sports.
func TimeWindowMinutes(id SportID) int {
	if s, ok := sports[id]; ok {
		return s.TimeWindowMinutes
	}
	return 30
}

// AllSports returns every catalogued sport id.
func AllSports() []SportID {
	return []SportID{Football, Basketball, Tennis, Hockey, TableTennis, Volleyball, Handball}
}
