package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/match-aggregator/internal/domain/match"
	"github.com/riskibarqy/match-aggregator/internal/platform/id"
	qb "github.com/riskibarqy/match-aggregator/internal/platform/querybuilder"
)

const upsertChunkSize = 200

// immutableColumns are written on insert only; a conflicting upsert keeps them.
var immutableColumns = map[string]struct{}{
	"id":           {},
	"external_id":  {},
	"sport":        {},
	"scheduled_at": {},
	"created_at":   {},
}

type MatchRepository struct {
	db      *sqlx.DB
	ids     id.Generator
	now     func() time.Time
	columns []string
	upsert  string
}

func NewMatchRepository(db *sqlx.DB) *MatchRepository {
	columns, err := qb.ColumnsOf(matchTableModel{})
	if err != nil {
		panic(fmt.Sprintf("match table model: %v", err))
	}
	return &MatchRepository{
		db:      db,
		ids:     id.Prefixed("mt"),
		now:     time.Now,
		columns: columns,
		upsert:  buildUpsertSuffix(columns),
	}
}

func (r *MatchRepository) Find(ctx context.Context, filter match.Filter) ([]match.CanonicalMatch, int, error) {
	conditions := filterConditions(filter)

	countQuery, countArgs, err := qb.Select("COUNT(1)").From(matchesTable).Where(conditions...).ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("build count matches query: %w", err)
	}
	var total int
	if err := r.withStatementRetry(func() error {
		return r.db.GetContext(ctx, &total, countQuery, countArgs...)
	}); err != nil {
		return nil, 0, fmt.Errorf("count matches: %w", err)
	}
	if total == 0 || filter.Offset >= total {
		return []match.CanonicalMatch{}, total, nil
	}

	direction := "ASC"
	if filter.Descending {
		direction = "DESC"
	}
	query, args, err := qb.Select(r.columns...).From(matchesTable).
		Where(conditions...).
		OrderBy("scheduled_at "+direction, "external_id").
		Limit(filter.Limit).
		Offset(filter.Offset).
		ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("build select matches query: %w", err)
	}

	var rows []matchTableModel
	if err := r.withStatementRetry(func() error {
		rows = rows[:0]
		return r.db.SelectContext(ctx, &rows, query, args...)
	}); err != nil {
		return nil, 0, fmt.Errorf("select matches: %w", err)
	}

	out := make([]match.CanonicalMatch, 0, len(rows))
	for _, row := range rows {
		item, err := row.toDomain()
		if err != nil {
			return nil, 0, fmt.Errorf("decode match %s: %w", row.ExternalID, err)
		}
		out = append(out, item)
	}
	return out, total, nil
}

// UpsertMatches writes the batch in one transaction keyed on (sport, external_id).
// Later duplicates inside the batch replace earlier ones.
func (r *MatchRepository) UpsertMatches(ctx context.Context, items []match.CanonicalMatch) error {
	if len(items) == 0 {
		return nil
	}

	now := r.now().UTC()
	seen := make(map[string]int, len(items))
	models := make([]any, 0, len(items))
	for _, item := range items {
		if strings.TrimSpace(item.ExternalID) == "" {
			return fmt.Errorf("upsert match: external id is required")
		}
		if item.ID == "" {
			newID, err := r.ids.NewID()
			if err != nil {
				return fmt.Errorf("generate match id: %w", err)
			}
			item.ID = newID
		}
		row, err := toMatchTableModel(item, now)
		if err != nil {
			return fmt.Errorf("encode match %s: %w", item.ExternalID, err)
		}

		key := row.Sport + "|" + row.ExternalID
		if idx, ok := seen[key]; ok {
			models[idx] = row
			continue
		}
		seen[key] = len(models)
		models = append(models, row)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert matches tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for start := 0; start < len(models); start += upsertChunkSize {
		end := min(start+upsertChunkSize, len(models))
		query, args, err := qb.InsertModels(matchesTable, models[start:end], r.upsert)
		if err != nil {
			return fmt.Errorf("build upsert matches query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert matches: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert matches tx: %w", err)
	}
	return nil
}

func (r *MatchRepository) GetByExternalID(ctx context.Context, sport match.Sport, externalID string) (match.CanonicalMatch, bool, error) {
	query, args, err := qb.Select(r.columns...).From(matchesTable).
		Where(
			qb.Eq("sport", string(sport)),
			qb.Eq("external_id", strings.TrimSpace(externalID)),
		).
		Limit(1).
		ToSQL()
	if err != nil {
		return match.CanonicalMatch{}, false, fmt.Errorf("build get match query: %w", err)
	}

	var row matchTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return match.CanonicalMatch{}, false, nil
		}
		return match.CanonicalMatch{}, false, fmt.Errorf("get match: %w", err)
	}
	item, err := row.toDomain()
	if err != nil {
		return match.CanonicalMatch{}, false, fmt.Errorf("decode match %s: %w", row.ExternalID, err)
	}
	return item, true, nil
}

func (r *MatchRepository) withStatementRetry(fn func() error) error {
	err := fn()
	if isStalePreparedStatement(err) {
		err = fn()
	}
	return err
}

func filterConditions(filter match.Filter) []qb.Condition {
	conditions := make([]qb.Condition, 0, 8)
	if filter.Sport != "" {
		conditions = append(conditions, qb.Eq("sport", string(filter.Sport)))
	}
	if filter.Status != "" {
		conditions = append(conditions, qb.Eq("status", string(filter.Status)))
	}
	if league := strings.TrimSpace(filter.League); league != "" {
		conditions = append(conditions, qb.ILike("league_name", league))
	}
	if team := strings.TrimSpace(filter.Team); team != "" {
		conditions = append(conditions, qb.AnyOf(qb.ILike("home_team", team), qb.ILike("away_team", team)))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		conditions = append(conditions, qb.AnyOf(
			qb.ILike("home_team", search),
			qb.ILike("away_team", search),
			qb.ILike("league_name", search),
			qb.ILike("venue", search),
		))
	}
	if filter.DateRange.From != nil {
		conditions = append(conditions, qb.Gte("scheduled_at", filter.DateRange.From.UTC()))
	}
	if filter.DateRange.To != nil {
		conditions = append(conditions, qb.Lte("scheduled_at", filter.DateRange.To.UTC()))
	}
	return conditions
}

func buildUpsertSuffix(columns []string) string {
	sets := make([]string, 0, len(columns))
	for _, column := range columns {
		if _, ok := immutableColumns[column]; ok {
			continue
		}
		sets = append(sets, column+" = EXCLUDED."+column)
	}
	return "ON CONFLICT (sport, external_id) DO UPDATE SET " + strings.Join(sets, ", ")
}
