package game

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Keyword is a closed enumeration of unit keywords.
type Keyword string

const (
	KeywordGuardian     Keyword = "guardian"
	KeywordBreakthrough Keyword = "breakthrough"
	KeywordDuelist      Keyword = "duelist"
	KeywordInvincible   Keyword = "invincible"
	KeywordPenetration  Keyword = "penetration"
	KeywordLoot         Keyword = "loot"
	KeywordInfiltrate   Keyword = "infiltrate"
	KeywordDeathTouch   Keyword = "death-touch"
	KeywordDefender     Keyword = "defender"
	KeywordBerserker    Keyword = "berserker"
)

// keywordInfo describes how a keyword is displayed and whether it carries a value.
type keywordInfo struct {
	display string
	numeric bool
}

var keywordRegistry = map[Keyword]keywordInfo{
	KeywordGuardian:     {display: "Guardian"},
	KeywordBreakthrough: {display: "Breakthrough"},
	KeywordDuelist:      {display: "Duelist"},
	KeywordInvincible:   {display: "Invincible"},
	KeywordPenetration:  {display: "Penetration", numeric: true},
	KeywordLoot:         {display: "Loot", numeric: true},
	KeywordInfiltrate:   {display: "Infiltrate", numeric: true},
	KeywordDeathTouch:   {display: "Death Touch"},
	KeywordDefender:     {display: "Defender", numeric: true},
	KeywordBerserker:    {display: "Berserker"},
}

// Valid reports whether k is a known keyword.
func (k Keyword) Valid() bool {
	_, ok := keywordRegistry[k]
	return ok
}

// Numeric reports whether the keyword carries a value.
func (k Keyword) Numeric() bool {
	return keywordRegistry[k].numeric
}

// Display returns the human readable keyword name.
func (k Keyword) Display() string {
	if info, ok := keywordRegistry[k]; ok {
		return info.display
	}
	return string(k)
}

// ParseKeyword parses "guardian" or "penetration 2". Numeric keywords
// default to 1 when no value is given; flag keywords always carry 1.
func ParseKeyword(s string) (Keyword, int, error) {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(s)))
	if len(fields) == 0 {
		return "", 0, fmt.Errorf("empty keyword")
	}
	value := 1
	name := fields[0]
	if len(fields) > 1 {
		n, err := strconv.Atoi(fields[len(fields)-1])
		if err != nil {
			// multi-word names like "death touch"
			name = strings.Join(fields, "-")
		} else {
			name = strings.Join(fields[:len(fields)-1], "-")
			value = n
		}
	}
	k := Keyword(name)
	if !k.Valid() {
		return "", 0, fmt.Errorf("unknown keyword %q", s)
	}
	if !k.Numeric() {
		value = 1
	}
	return k, value, nil
}

// Keywords maps a keyword to its value. Flag keywords use 1.
type Keywords map[Keyword]int

// Has reports whether the keyword is present.
func (ks Keywords) Has(k Keyword) bool {
	_, ok := ks[k]
	return ok
}

// Value returns the keyword value, or 0 when absent.
func (ks Keywords) Value(k Keyword) int {
	return ks[k]
}

// Merge adds the values of other into ks.
func (ks Keywords) Merge(other Keywords) {
	for k, v := range other {
		ks[k] += v
	}
}

// Clone returns an independent copy.
func (ks Keywords) Clone() Keywords {
	if ks == nil {
		return nil
	}
	out := make(Keywords, len(ks))
	for k, v := range ks {
		out[k] = v
	}
	return out
}

// Strings renders the keywords in a stable order, e.g. "Penetration 2".
func (ks Keywords) Strings() []string {
	out := make([]string, 0, len(ks))
	for k, v := range ks {
		if k.Numeric() {
			out = append(out, fmt.Sprintf("%s %d", k.Display(), v))
			continue
		}
		out = append(out, k.Display())
	}
	sort.Strings(out)
	return out
}
