package usecase

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/riskibarqy/match-aggregator/internal/domain/match"
	"github.com/riskibarqy/match-aggregator/internal/domain/provider"
	"github.com/riskibarqy/match-aggregator/internal/platform/cache"
	"github.com/riskibarqy/match-aggregator/internal/platform/logging"
	"github.com/valyala/bytebufferpool"
	"go.opentelemetry.io/otel/attribute"
)

const defaultQueryCacheTTL = 20 * time.Second

type MatchQueryConfig struct {
	CacheTTL time.Duration
	// LoadTimeout bounds one provider load shared by concurrent identical
	// requests. It is detached from any single request.
	LoadTimeout time.Duration
}

// MatchQueryService is the read surface offered to the routing layer. It picks
// between fresh provider data and persisted matches per request.
type MatchQueryService struct {
	aggregator *Aggregator
	repo       match.Repository
	health     *HealthMonitor
	scheduler  *LiveUpdateScheduler
	apiCache   *cache.Store[[]match.CanonicalMatch]
	validate   *validator.Validate
	logger     *logging.Logger
}

func NewMatchQueryService(
	aggregator *Aggregator,
	repo match.Repository,
	health *HealthMonitor,
	scheduler *LiveUpdateScheduler,
	logger *logging.Logger,
	cfg MatchQueryConfig,
) *MatchQueryService {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultQueryCacheTTL
	}
	return &MatchQueryService{
		aggregator: aggregator,
		repo:       repo,
		health:     health,
		scheduler:  scheduler,
		apiCache:   cache.NewStore[[]match.CanonicalMatch](cfg.CacheTTL, cfg.LoadTimeout),
		validate:   NewQueryValidator(),
		logger:     logger,
	}
}

// NewQueryValidator registers the match vocabulary tags used on match.Query.
func NewQueryValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("sport", func(fl validator.FieldLevel) bool {
		_, ok := match.ParseSport(fl.Field().String())
		return ok
	})
	_ = v.RegisterValidation("match_status", func(fl validator.FieldLevel) bool {
		_, ok := match.ParseStatus(fl.Field().String())
		return ok
	})
	return v
}

// SearchMatches always goes to the providers.
func (s *MatchQueryService) SearchMatches(ctx context.Context, query match.Query) (match.Page, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchQueryService.SearchMatches")
	defer span.End()

	query, err := s.prepare(ctx, query)
	if err != nil {
		return match.Page{}, err
	}
	page, err := s.fromProviders(ctx, query, true)
	recordSpanError(span, err)
	return page, err
}

func (s *MatchQueryService) GetLiveMatches(ctx context.Context, query match.Query) (match.Page, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchQueryService.GetLiveMatches")
	defer span.End()

	query.Status = match.StatusLive
	page, err := s.list(ctx, query)
	recordSpanError(span, err)
	return page, err
}

func (s *MatchQueryService) GetScheduledMatches(ctx context.Context, query match.Query) (match.Page, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchQueryService.GetScheduledMatches")
	defer span.End()

	query.Status = match.StatusScheduled
	page, err := s.list(ctx, query)
	recordSpanError(span, err)
	return page, err
}

func (s *MatchQueryService) GetFinishedMatches(ctx context.Context, query match.Query) (match.Page, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchQueryService.GetFinishedMatches")
	defer span.End()

	query.Status = match.StatusFinished
	page, err := s.list(ctx, query)
	recordSpanError(span, err)
	return page, err
}

// GetMatch reads one persisted match by its provider-qualified id.
func (s *MatchQueryService) GetMatch(ctx context.Context, sport match.Sport, externalID string) (match.CanonicalMatch, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchQueryService.GetMatch")
	defer span.End()

	externalID = strings.TrimSpace(externalID)
	if _, ok := match.ParseSport(string(sport)); !ok {
		return match.CanonicalMatch{}, fmt.Errorf("%w: unknown sport %q", ErrValidation, sport)
	}
	if externalID == "" {
		return match.CanonicalMatch{}, fmt.Errorf("%w: external id is required", ErrValidation)
	}

	item, ok, err := s.repo.GetByExternalID(ctx, match.NormalizeSport(string(sport)), externalID)
	if err != nil {
		recordSpanError(span, err)
		return match.CanonicalMatch{}, fmt.Errorf("get match %s: %w", externalID, err)
	}
	if !ok {
		return match.CanonicalMatch{}, fmt.Errorf("%w: match %s", ErrNotFound, externalID)
	}
	return item, nil
}

func (s *MatchQueryService) GetHealthStatus() []provider.HealthRecord {
	return s.health.Snapshot()
}

func (s *MatchQueryService) Refresh(ctx context.Context) LiveUpdateReport {
	return s.scheduler.UpdateAllMatches(ctx)
}

func (s *MatchQueryService) list(ctx context.Context, query match.Query) (match.Page, error) {
	query, err := s.prepare(ctx, query)
	if err != nil {
		return match.Page{}, err
	}

	switch resolveSource(query) {
	case match.SourceAPI:
		return s.fromProviders(ctx, query, query.Search != "")
	default:
		page, err := s.fromDatabase(ctx, query)
		if err == nil && page.Pagination.Total == 0 && query.Source == match.SourceAuto {
			s.logger.DebugContext(ctx, "database empty, falling back to providers", "sport", query.Sport, "status", query.Status)
			return s.fromProviders(ctx, query, query.Search != "")
		}
		return page, err
	}
}

// resolveSource maps auto onto api for free-text or live requests.
func resolveSource(query match.Query) match.Source {
	switch query.Source {
	case match.SourceAPI, match.SourceDatabase:
		return query.Source
	}
	if query.Search != "" || query.Status == match.StatusLive {
		return match.SourceAPI
	}
	return match.SourceDatabase
}

func (s *MatchQueryService) prepare(ctx context.Context, query match.Query) (match.Query, error) {
	query = query.WithDefaults()
	if err := s.validate.StructCtx(ctx, query); err != nil {
		return query, fmt.Errorf("%w: validation failed: %v", ErrValidation, err)
	}
	if query.DateFrom != nil && query.DateTo != nil && query.DateFrom.After(*query.DateTo) {
		return query, fmt.Errorf("%w: date_from must not be after date_to", ErrValidation)
	}
	if query.Sport != "" {
		query.Sport = match.NormalizeSport(string(query.Sport))
	}
	if query.Status != "" {
		query.Status = match.NormalizeStatus(string(query.Status))
	}
	return query, nil
}

// fromProviders fans out to every adapter for searches and cross-sport requests;
// a single-sport listing goes through the health-ordered listing path.
func (s *MatchQueryService) fromProviders(ctx context.Context, query match.Query, search bool) (match.Page, error) {
	key := queryCacheKey(query)
	if search {
		key = "search:" + key
	}
	items, err := s.apiCache.GetOrLoad(ctx, key, func(ctx context.Context) ([]match.CanonicalMatch, error) {
		var (
			outcome Outcome
			err     error
		)
		if search || query.Sport == "" {
			outcome, err = s.aggregator.Search(ctx, query)
		} else {
			outcome, err = s.aggregator.List(ctx, query.Sport, query.Status, query.DateRange())
			outcome.Matches = filterMatches(outcome.Matches, query.Matches)
		}
		if err != nil {
			return nil, err
		}
		return outcome.Matches, nil
	})
	if err != nil {
		return match.Page{}, err
	}

	matches, pagination := paginate(items, query.Page, query.Limit)
	return match.Page{Matches: matches, Pagination: pagination, Source: match.SourceAPI}, nil
}

// fromDatabase is the resilience path: repository failures degrade to an empty page.
func (s *MatchQueryService) fromDatabase(ctx context.Context, query match.Query) (match.Page, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchQueryService.fromDatabase")
	defer span.End()

	filter := match.Filter{
		Sport:      query.Sport,
		Status:     query.Status,
		League:     query.League,
		Team:       query.Team,
		Search:     query.Search,
		DateRange:  query.DateRange(),
		Descending: query.Status != match.StatusScheduled,
		Offset:     (query.Page - 1) * query.Limit,
		Limit:      query.Limit,
	}

	items, total, err := s.repo.Find(ctx, filter)
	if err != nil {
		s.logger.ErrorContext(ctx, "find persisted matches failed", "sport", query.Sport, "status", query.Status, "error", err)
		items, total = nil, 0
	}
	if items == nil {
		items = []match.CanonicalMatch{}
	}

	span.SetAttributes(attribute.Int("total", total))

	return match.Page{
		Matches:    items,
		Pagination: buildPagination(query.Page, query.Limit, total),
		Source:     match.SourceDatabase,
	}, nil
}

// queryCacheKey ignores paging so every page of one query shares a cached result.
func queryCacheKey(query match.Query) string {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	writeField := func(name, value string) {
		_, _ = buf.WriteString(name)
		_ = buf.WriteByte('=')
		_, _ = buf.WriteString(strings.ToLower(value))
		_ = buf.WriteByte(';')
	}
	writeTime := func(name string, t *time.Time) {
		if t == nil {
			writeField(name, "")
			return
		}
		writeField(name, strconv.FormatInt(t.UTC().Unix(), 10))
	}

	writeField("sport", string(query.Sport))
	writeField("status", string(query.Status))
	writeField("league", query.League)
	writeField("team", query.Team)
	writeField("search", query.Search)
	writeTime("from", query.DateFrom)
	writeTime("to", query.DateTo)
	return buf.String()
}
