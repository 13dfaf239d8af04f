package matching

import (
	"regexp"
	"sort"
	"strings"
	"time"
)

// cyrillicToLatin transliterates the Serbian Cyrillic alphabet. Sources mix
// scripts freely, so everything is folded to Latin before comparison.
var cyrillicToLatin = map[rune]string{
	'а': "a", 'б': "b", 'в': "v", 'г': "g", 'д': "d", 'ђ': "dj", 'е': "e",
	'ж': "z", 'з': "z", 'и': "i", 'ј': "j", 'к': "k", 'л': "l", 'љ': "lj",
	'м': "m", 'н': "n", 'њ': "nj", 'о': "o", 'п': "p", 'р': "r", 'с': "s",
	'т': "t", 'ћ': "c", 'у': "u", 'ф': "f", 'х': "h", 'ц': "c", 'ч': "c",
	'џ': "dz", 'ш': "s",
	'А': "A", 'Б': "B", 'В': "V", 'Г': "G", 'Д': "D", 'Ђ': "Dj", 'Е': "E",
	'Ж': "Z", 'З': "Z", 'И': "I", 'Ј': "J", 'К': "K", 'Л': "L", 'Љ': "Lj",
	'М': "M", 'Н': "N", 'Њ': "Nj", 'О': "O", 'П': "P", 'Р': "R", 'С': "S",
	'Т': "T", 'Ћ': "C", 'У': "U", 'Ф': "F", 'Х': "H", 'Ц': "C", 'Ч': "C",
	'Џ': "Dz", 'Ш': "S",
}

// latinFold strips the diacritics the regional sources actually emit.
var latinFold = map[rune]string{
	'á': "a", 'à': "a", 'â': "a", 'ä': "a", 'ã': "a", 'å': "a", 'ā': "a",
	'é': "e", 'è': "e", 'ê': "e", 'ë': "e", 'ē': "e",
	'í': "i", 'ì': "i", 'î': "i", 'ï': "i", 'ī': "i",
	'ó': "o", 'ò': "o", 'ô': "o", 'ö': "o", 'õ': "o", 'ø': "o", 'ō': "o",
	'ú': "u", 'ù': "u", 'û': "u", 'ü': "u", 'ū': "u",
	'ý': "y", 'ñ': "n", 'ç': "c",
	'č': "c", 'ć': "c", 'đ': "dj", 'š': "s", 'ž': "z",
	'ß': "ss",
}

// teamSuffixes are stripped from the end of normalized names: club-form
// abbreviations, year tags and esports markers.
var teamSuffixes = []*regexp.Regexp{
	regexp.MustCompile(`\s+(fc|fk|sk|bc|hc|kk|rk|ok|sc|ac|as|ss|us|cd|cf|sd|ud|rc|afc|sfc)$`),
	regexp.MustCompile(`\s+\d{4}$`),
	regexp.MustCompile(`\s+\(w\)$`),
	regexp.MustCompile(`\s+\(e\)$`),
	regexp.MustCompile(`\s+esports?$`),
	regexp.MustCompile(`\s+gaming$`),
}

// categoryPatterns detect age/gender/squad markers. These are removed from
// the normalized name but compared as a hard filter: a senior side and its
// U19 side must never fuse no matter how similar the names are.
var categoryPatterns = map[string]*regexp.Regexp{
	"u15":      regexp.MustCompile(`\b(u-?15|under.?15|jun(?:ior)?s?\s*15)\b`),
	"u16":      regexp.MustCompile(`\b(u-?16|under.?16|jun(?:ior)?s?\s*16)\b`),
	"u17":      regexp.MustCompile(`\b(u-?17|under.?17|jun(?:ior)?s?\s*17)\b`),
	"u18":      regexp.MustCompile(`\b(u-?18|under.?18|jun(?:ior)?s?\s*18)\b`),
	"u19":      regexp.MustCompile(`\b(u-?19|under.?19|jun(?:ior)?s?\s*19)\b`),
	"u20":      regexp.MustCompile(`\b(u-?20|under.?20|jun(?:ior)?s?\s*20)\b`),
	"u21":      regexp.MustCompile(`\b(u-?21|under.?21|jun(?:ior)?s?\s*21)\b`),
	"u23":      regexp.MustCompile(`\b(u-?23|under.?23)\b`),
	"women":    regexp.MustCompile(`\b(wom[ae]n|ladies|female|zene)\b|\(w\)`),
	"reserves": regexp.MustCompile(`\b(reserves?|res\.|ii|b\s*team)\b`),
	"youth":    regexp.MustCompile(`\b(youth|omladinci|kadeti|pioniri)\b`),
	"amateur":  regexp.MustCompile(`\b(amat(?:eu)?r|ljubitelji)\b`),
}

var nonWord = regexp.MustCompile(`[^a-z0-9\s]`)

// NormalizeTeam normalizes a team name for comparison and storage keys:
// transliterate, fold, lowercase, drop category markers and club suffixes,
// strip punctuation, collapse whitespace. Idempotent.
func NormalizeTeam(name string) string {
	if name == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if s, ok := cyrillicToLatin[r]; ok {
			b.WriteString(s)
		} else {
			b.WriteRune(r)
		}
	}
	normalized := strings.ToLower(b.String())

	b.Reset()
	for _, r := range normalized {
		if s, ok := latinFold[r]; ok {
			b.WriteString(s)
		} else {
			b.WriteRune(r)
		}
	}
	normalized = b.String()

	for _, re := range categoryPatterns {
		normalized = re.ReplaceAllString(normalized, "")
	}
	for _, re := range teamSuffixes {
		normalized = re.ReplaceAllString(normalized, "")
	}

	normalized = nonWord.ReplaceAllString(normalized, " ")
	return strings.Join(strings.Fields(normalized), " ")
}

// ExtractCategories returns the sorted category tags found in either team
// name of a pairing. Used by the matcher as a hard filter.
func ExtractCategories(team1, team2 string) []string {
	combined := strings.ToLower(team1 + " " + team2)
	var cats []string
	for cat, re := range categoryPatterns {
		if re.MatchString(combined) {
			cats = append(cats, cat)
		}
	}
	sort.Strings(cats)
	return cats
}

// CategoryKey folds the category tags of a pairing into a comparable key.
// Matches with different keys ("u19" vs "") are distinct events even when
// the normalized team names are identical, since NormalizeTeam strips the
// markers.
func CategoryKey(team1, team2 string) string {
	return strings.Join(ExtractCategories(team1, team2), ",")
}

// NormalizeTennisPlayer reduces a player name to "surname initial", so
// "Novak Djokovic", "Djokovic, Novak" and "N. Djokovic" all compare equal.
func NormalizeTennisPlayer(name string) string {
	if i := strings.IndexByte(name, ','); i >= 0 {
		// "Last, First" -> "First Last"
		name = strings.TrimSpace(name[i+1:]) + " " + strings.TrimSpace(name[:i])
	}
	name = NormalizeTeam(name)
	parts := strings.Fields(name)
	if len(parts) >= 2 {
		first := parts[0]
		return parts[len(parts)-1] + " " + first[:1]
	}
	return name
}

// timestampLayouts are the ISO shapes the bookmaker APIs emit.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseTimestamp accepts Unix seconds, Unix milliseconds and common ISO
// string shapes and returns a UTC instant. ok is false when the input is
// unrecognizable; callers treat that as "unknown" rather than failing the
// whole match.
func ParseTimestamp(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return time.Time{}, false
		}
		return t.UTC(), true
	case int64:
		return unixTimestamp(float64(t))
	case int:
		return unixTimestamp(float64(t))
	case float64:
		return unixTimestamp(t)
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range timestampLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed.UTC(), true
			}
		}
		// Bare 'Z' suffix on a layout without zone info.
		if trimmed := strings.TrimSuffix(s, "Z"); trimmed != s {
			for _, layout := range timestampLayouts[1:] {
				if parsed, err := time.Parse(layout, trimmed); err == nil {
					return parsed.UTC(), true
				}
			}
		}
		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}

func unixTimestamp(v float64) (time.Time, bool) {
	if v <= 0 {
		return time.Time{}, false
	}
	if v > 1e12 { // milliseconds
		return time.UnixMilli(int64(v)).UTC(), true
	}
	return time.Unix(int64(v), 0).UTC(), true
}
