package match

import "strings"

type Sport string

const (
	SportFootball         Sport = "FOOTBALL"
	SportBasketball       Sport = "BASKETBALL"
	SportAmericanFootball Sport = "AMERICAN_FOOTBALL"
	SportBaseball         Sport = "BASEBALL"
	SportHockey           Sport = "HOCKEY"
	SportTennis           Sport = "TENNIS"
	SportVolleyball       Sport = "VOLLEYBALL"
)

var sportAliases = map[string]Sport{
	"FOOTBALL":          SportFootball,
	"SOCCER":            SportFootball,
	"BASKETBALL":        SportBasketball,
	"NBA":               SportBasketball,
	"AMERICAN_FOOTBALL": SportAmericanFootball,
	"AMERICANFOOTBALL":  SportAmericanFootball,
	"NFL":               SportAmericanFootball,
	"BASEBALL":          SportBaseball,
	"MLB":               SportBaseball,
	"HOCKEY":            SportHockey,
	"ICE_HOCKEY":        SportHockey,
	"ICEHOCKEY":         SportHockey,
	"NHL":               SportHockey,
	"TENNIS":            SportTennis,
	"VOLLEYBALL":        SportVolleyball,
}

// ParseSport resolves canonical names and common provider aliases.
func ParseSport(value string) (Sport, bool) {
	key := strings.ToUpper(strings.TrimSpace(value))
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
	sport, ok := sportAliases[key]
	return sport, ok
}

// NormalizeSport returns the canonical sport or the upper-cased input when unknown.
func NormalizeSport(value string) Sport {
	if sport, ok := ParseSport(value); ok {
		return sport
	}
	return Sport(strings.ToUpper(strings.TrimSpace(value)))
}

func AllSports() []Sport {
	return []Sport{
		SportFootball,
		SportBasketball,
		SportAmericanFootball,
		SportBaseball,
		SportHockey,
		SportTennis,
		SportVolleyball,
	}
}

func (s Sport) String() string {
	return string(s)
}
