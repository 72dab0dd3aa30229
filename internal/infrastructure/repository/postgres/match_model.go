package postgres

import (
	"database/sql"
	"time"

	"github.com/bytedance/sonic"
	"github.com/riskibarqy/match-aggregator/internal/domain/match"
)

const matchesTable = "matches"

type matchTableModel struct {
	ID            string         `db:"id"`
	ExternalID    string         `db:"external_id"`
	Provider      string         `db:"provider"`
	Sport         string         `db:"sport"`
	LeagueName    string         `db:"league_name"`
	LeagueCountry string         `db:"league_country"`
	LeagueLogoURL string         `db:"league_logo_url"`
	HomeTeam      string         `db:"home_team"`
	HomeLogoURL   string         `db:"home_logo_url"`
	AwayTeam      string         `db:"away_team"`
	AwayLogoURL   string         `db:"away_logo_url"`
	Venue         string         `db:"venue"`
	ScheduledAt   time.Time      `db:"scheduled_at"`
	Status        string         `db:"status"`
	Period        string         `db:"period"`
	Minute        sql.NullInt64  `db:"minute"`
	HomeScore     sql.NullInt64  `db:"home_score"`
	AwayScore     sql.NullInt64  `db:"away_score"`
	Odds          sql.NullString `db:"odds"`
	Statistics    sql.NullString `db:"statistics"`
	Events        sql.NullString `db:"events"`
	CreatedAt     time.Time      `db:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
}

type oddsDocument struct {
	Home      *float64 `json:"home,omitempty"`
	Draw      *float64 `json:"draw,omitempty"`
	Away      *float64 `json:"away,omitempty"`
	Bookmaker string   `json:"bookmaker,omitempty"`
}

type eventDocument struct {
	Minute      int    `json:"minute"`
	Type        string `json:"type"`
	Team        string `json:"team,omitempty"`
	Player      string `json:"player,omitempty"`
	Description string `json:"description,omitempty"`
}

func toMatchTableModel(item match.CanonicalMatch, now time.Time) (matchTableModel, error) {
	row := matchTableModel{
		ID:            item.ID,
		ExternalID:    item.ExternalID,
		Provider:      item.Provider,
		Sport:         string(item.Sport),
		LeagueName:    item.League.Name,
		LeagueCountry: item.League.Country,
		LeagueLogoURL: item.League.LogoURL,
		HomeTeam:      item.HomeTeam.Name,
		HomeLogoURL:   item.HomeTeam.LogoURL,
		AwayTeam:      item.AwayTeam.Name,
		AwayLogoURL:   item.AwayTeam.LogoURL,
		Venue:         item.Venue,
		ScheduledAt:   item.ScheduledAt.UTC(),
		Status:        string(item.Status),
		Period:        item.Period,
		Minute:        nullInt(item.Minute),
		HomeScore:     nullInt(item.HomeScore),
		AwayScore:     nullInt(item.AwayScore),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if item.Odds != nil {
		raw, err := sonic.MarshalString(oddsDocument{
			Home:      item.Odds.Home,
			Draw:      item.Odds.Draw,
			Away:      item.Odds.Away,
			Bookmaker: item.Odds.Bookmaker,
		})
		if err != nil {
			return matchTableModel{}, err
		}
		row.Odds = sql.NullString{String: raw, Valid: true}
	}
	if len(item.Statistics) > 0 {
		raw, err := sonic.MarshalString(item.Statistics)
		if err != nil {
			return matchTableModel{}, err
		}
		row.Statistics = sql.NullString{String: raw, Valid: true}
	}
	if len(item.Events) > 0 {
		docs := make([]eventDocument, 0, len(item.Events))
		for _, event := range item.Events {
			docs = append(docs, eventDocument{
				Minute:      event.Minute,
				Type:        string(event.Type),
				Team:        event.Team,
				Player:      event.Player,
				Description: event.Description,
			})
		}
		raw, err := sonic.MarshalString(docs)
		if err != nil {
			return matchTableModel{}, err
		}
		row.Events = sql.NullString{String: raw, Valid: true}
	}
	return row, nil
}

func (row matchTableModel) toDomain() (match.CanonicalMatch, error) {
	item := match.CanonicalMatch{
		ID:         row.ID,
		ExternalID: row.ExternalID,
		Provider:   row.Provider,
		Sport:      match.Sport(row.Sport),
		League: match.League{
			Name:    row.LeagueName,
			Country: row.LeagueCountry,
			LogoURL: row.LeagueLogoURL,
		},
		HomeTeam:    match.Team{Name: row.HomeTeam, LogoURL: row.HomeLogoURL},
		AwayTeam:    match.Team{Name: row.AwayTeam, LogoURL: row.AwayLogoURL},
		Venue:       row.Venue,
		ScheduledAt: row.ScheduledAt.UTC(),
		Status:      match.Status(row.Status),
		Period:      row.Period,
		Minute:      intPtr(row.Minute),
		HomeScore:   intPtr(row.HomeScore),
		AwayScore:   intPtr(row.AwayScore),
		UpdatedAt:   row.UpdatedAt.UTC(),
	}

	if row.Odds.Valid && row.Odds.String != "" {
		var doc oddsDocument
		if err := sonic.UnmarshalString(row.Odds.String, &doc); err != nil {
			return match.CanonicalMatch{}, err
		}
		item.Odds = &match.Odds{Home: doc.Home, Draw: doc.Draw, Away: doc.Away, Bookmaker: doc.Bookmaker}
	}
	if row.Statistics.Valid && row.Statistics.String != "" {
		if err := sonic.UnmarshalString(row.Statistics.String, &item.Statistics); err != nil {
			return match.CanonicalMatch{}, err
		}
	}
	if row.Events.Valid && row.Events.String != "" {
		var docs []eventDocument
		if err := sonic.UnmarshalString(row.Events.String, &docs); err != nil {
			return match.CanonicalMatch{}, err
		}
		item.Events = make([]match.Event, 0, len(docs))
		for _, doc := range docs {
			item.Events = append(item.Events, match.Event{
				Minute:      doc.Minute,
				Type:        match.EventType(doc.Type),
				Team:        doc.Team,
				Player:      doc.Player,
				Description: doc.Description,
			})
		}
	}
	return item, nil
}

func nullInt(value *int) sql.NullInt64 {
	if value == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*value), Valid: true}
}

func intPtr(value sql.NullInt64) *int {
	if !value.Valid {
		return nil
	}
	return match.IntPtr(int(value.Int64))
}
