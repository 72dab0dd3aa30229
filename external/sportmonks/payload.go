package sportmonks

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
)

type fixturesEnvelope struct {
	Data       []fixtureItem `json:"data"`
	Pagination struct {
		HasMore     bool `json:"has_more"`
		CurrentPage int  `json:"current_page"`
	} `json:"pagination"`
}

type fixtureItem struct {
	ID           int64               `json:"id"`
	Name         string              `json:"name"`
	StartingAt   string              `json:"starting_at"`
	StateID      int64               `json:"state_id"`
	ResultInfo   string              `json:"result_info"`
	Participants []participantItem   `json:"participants"`
	League       relation[leagueRef] `json:"league"`
	Venue        relation[venueRef]  `json:"venue"`
	State        relation[stateRef]  `json:"state"`
	Periods      []periodItem        `json:"periods"`
	Scores       []scoreItem         `json:"scores"`
	Events       []eventItem         `json:"events"`
	Statistics   []statisticItem     `json:"statistics"`
	Odds         []oddItem           `json:"odds"`
}

type participantItem struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	ImagePath string          `json:"image_path"`
	Meta      participantMeta `json:"meta"`
}

type participantMeta struct {
	Location string `json:"location"`
}

type leagueRef struct {
	Name      string              `json:"name"`
	ImagePath string              `json:"image_path"`
	Country   relation[namedItem] `json:"country"`
}

type namedItem struct {
	Name string `json:"name"`
}

type venueRef struct {
	Name string `json:"name"`
}

type stateRef struct {
	State         string `json:"state"`
	DeveloperName string `json:"developer_name"`
}

type periodItem struct {
	Ticking     bool   `json:"ticking"`
	Minutes     *int   `json:"minutes"`
	Description string `json:"description"`
	SortOrder   int    `json:"sort_order"`
}

type scoreItem struct {
	ParticipantID int64          `json:"participant_id"`
	Description   string         `json:"description"`
	Score         map[string]any `json:"score"`
}

func (s scoreItem) goals() (int, bool) {
	for _, key := range []string{"goals", "score", "value"} {
		if value, ok := s.Score[key]; ok && value != nil {
			if goals := int(asFloat64(value)); goals >= 0 {
				return goals, true
			}
		}
	}
	return 0, false
}

type eventItem struct {
	ParticipantID int64             `json:"participant_id"`
	TypeID        int64             `json:"type_id"`
	PlayerName    string            `json:"player_name"`
	Info          string            `json:"info"`
	Addition      string            `json:"addition"`
	Minute        *int              `json:"minute"`
	ExtraMinute   *int              `json:"extra_minute"`
	Type          relation[typeRef] `json:"type"`
}

func (e eventItem) typeName() string {
	if e.Type.Set {
		if name := strings.TrimSpace(e.Type.Data.DeveloperName); name != "" {
			return name
		}
		return strings.TrimSpace(e.Type.Data.Name)
	}
	return ""
}

type statisticItem struct {
	ParticipantID int64             `json:"participant_id"`
	TypeID        int64             `json:"type_id"`
	Data          map[string]any    `json:"data"`
	Type          relation[typeRef] `json:"type"`
}

type typeRef struct {
	Name          string `json:"name"`
	DeveloperName string `json:"developer_name"`
}

type oddItem struct {
	Label       string `json:"label"`
	Value       string `json:"value"`
	MarketID    int64  `json:"market_id"`
	BookmakerID int64  `json:"bookmaker_id"`
}

// relation decodes an include that arrives either bare or wrapped in {"data": ...}.
type relation[T any] struct {
	Data T
	Set  bool
}

func (r *relation[T]) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		r.Set = false
		return nil
	}

	var wrapped struct {
		Data *T `json:"data"`
	}
	if err := sonic.Unmarshal(trimmed, &wrapped); err == nil && wrapped.Data != nil {
		r.Data = *wrapped.Data
		r.Set = true
		return nil
	}

	var direct T
	if err := sonic.Unmarshal(trimmed, &direct); err != nil {
		return err
	}
	r.Data = direct
	r.Set = true
	return nil
}

func asFloat64(value any) float64 {
	switch typed := value.(type) {
	case float64:
		return typed
	case int:
		return float64(typed)
	case int64:
		return float64(typed)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(typed), 64)
		if err != nil {
			return 0
		}
		return parsed
	default:
		return 0
	}
}
