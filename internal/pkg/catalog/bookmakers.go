package catalog

// BookmakerID identifies a betting operator. IDs are stable: they key the
// external_ids maps on stored matches and the odds rows in the store.
type BookmakerID int

const (
	Mozzart   BookmakerID = 1
	Meridian  BookmakerID = 2
	Maxbet    BookmakerID = 3
	Admiral   BookmakerID = 4
	Soccerbet BookmakerID = 5
	Superbet  BookmakerID = 6
	Merkur    BookmakerID = 7
	OneXBet   BookmakerID = 8
	LVBet     BookmakerID = 9
	Topbet    BookmakerID = 10
)

// BookmakerInfo describes one betting operator.
type BookmakerInfo struct {
	ID      BookmakerID
	Name    string
	Display string
	// Enabled gates registration in the engine. Disabled entries stay in
	// the catalogue so their ids remain reserved in stored data.
	Enabled bool
}

var bookmakers = map[BookmakerID]BookmakerInfo{
	Mozzart:   {Mozzart, "mozzart", "Mozzart Bet", false}, // Cloudflare blocked
	Meridian:  {Meridian, "meridian", "Meridian Bet", true},
	Maxbet:    {Maxbet, "maxbet", "MaxBet", true},
	Admiral:   {Admiral, "admiral", "Admiral Bet", true},
	Soccerbet: {Soccerbet, "soccerbet", "Soccer Bet", true},
	Superbet:  {Superbet, "superbet", "SuperBet", true},
	Merkur:    {Merkur, "merkur", "Merkur", true},
	OneXBet:   {OneXBet, "1xbet", "1xBet", false}, // often blocked
	LVBet:     {LVBet, "lvbet", "LVBet", false},
	Topbet:    {Topbet, "topbet", "TopBet", true},
}

// Bookmaker returns the catalogue entry for id.
func Bookmaker(id BookmakerID) (BookmakerInfo, bool) {
	b, ok := bookmakers[id]
	return b, ok
}

// BookmakerName returns the short name, or "unknown" for unmapped ids.
func BookmakerName(id BookmakerID) string {
	if b, ok := bookmakers[id]; ok {
		return b.Name
	}
	return "unknown"
}

// BookmakerDisplay returns the display name, falling back to the short name.
func BookmakerDisplay(id BookmakerID) string {
	if b, ok := bookmakers[id]; ok {
		return b.Display
	}
	return BookmakerName(id)
}
