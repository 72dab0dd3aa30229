package espn

import (
	"bytes"
	"strconv"

	"github.com/bytedance/sonic"
)

type scoreboardEnvelope struct {
	Leagues []leagueRef `json:"leagues"`
	Events  []eventItem `json:"events"`
}

type leagueRef struct {
	Name         string    `json:"name"`
	Abbreviation string    `json:"abbreviation"`
	Logos        []logoRef `json:"logos"`
}

type logoRef struct {
	Href string `json:"href"`
}

type eventItem struct {
	ID           string            `json:"id"`
	Date         string            `json:"date"`
	Name         string            `json:"name"`
	Competitions []competitionItem `json:"competitions"`
	Status       statusRef         `json:"status"`
}

type competitionItem struct {
	Venue       venueRef         `json:"venue"`
	Competitors []competitorItem `json:"competitors"`
	Status      statusRef        `json:"status"`
	Odds        []oddsItem       `json:"odds"`
	Details     []detailItem     `json:"details"`
}

type venueRef struct {
	FullName string `json:"fullName"`
}

type competitorItem struct {
	HomeAway string     `json:"homeAway"`
	Score    flexString `json:"score"`
	Team     teamRef    `json:"team"`
}

type teamRef struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Logo        string `json:"logo"`
}

type statusRef struct {
	DisplayClock string     `json:"displayClock"`
	Period       int        `json:"period"`
	Type         statusType `json:"type"`
}

type statusType struct {
	Name      string `json:"name"`
	State     string `json:"state"`
	Completed bool   `json:"completed"`
	Detail    string `json:"shortDetail"`
}

type oddsItem struct {
	Provider     struct{ Name string } `json:"provider"`
	HomeTeamOdds sideOdds              `json:"homeTeamOdds"`
	AwayTeamOdds sideOdds              `json:"awayTeamOdds"`
	DrawOdds     sideOdds              `json:"drawOdds"`
}

type sideOdds struct {
	MoneyLine *float64 `json:"moneyLine"`
}

type detailItem struct {
	Type struct {
		Text string `json:"text"`
	} `json:"type"`
	Clock struct {
		DisplayValue string `json:"displayValue"`
	} `json:"clock"`
	Team struct {
		ID string `json:"id"`
	} `json:"team"`
	ScoringPlay      bool `json:"scoringPlay"`
	YellowCard       bool `json:"yellowCard"`
	RedCard          bool `json:"redCard"`
	AthletesInvolved []struct {
		DisplayName string `json:"displayName"`
	} `json:"athletesInvolved"`
}

// flexString accepts a JSON string or number; ESPN flips between them for scores.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*f = ""
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := sonic.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	if _, err := strconv.ParseFloat(string(trimmed), 64); err != nil {
		return err
	}
	*f = flexString(trimmed)
	return nil
}
