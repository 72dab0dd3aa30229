package httpapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/riskibarqy/match-aggregator/internal/domain/match"
	"github.com/riskibarqy/match-aggregator/internal/domain/provider"
	"github.com/riskibarqy/match-aggregator/internal/platform/logging"
	"github.com/riskibarqy/match-aggregator/internal/usecase"
)

const opsTokenHeader = "X-Ops-Token"

// MatchQueries is the read surface the handlers need from the query façade.
type MatchQueries interface {
	SearchMatches(ctx context.Context, query match.Query) (match.Page, error)
	GetLiveMatches(ctx context.Context, query match.Query) (match.Page, error)
	GetScheduledMatches(ctx context.Context, query match.Query) (match.Page, error)
	GetFinishedMatches(ctx context.Context, query match.Query) (match.Page, error)
	GetMatch(ctx context.Context, sport match.Sport, externalID string) (match.CanonicalMatch, error)
	GetHealthStatus() []provider.HealthRecord
}

// OpsActions are the operator actions behind the ops routes.
type OpsActions interface {
	OpsAuthorizer
	Refresh(ctx context.Context) usecase.LiveUpdateReport
	Start(ctx context.Context) usecase.SchedulerStatus
	Stop(ctx context.Context) usecase.SchedulerStatus
	Status() usecase.OperationsStatus
	ResetProvider(ctx context.Context, name string) (provider.HealthRecord, error)
}

type Handler struct {
	queries   MatchQueries
	ops       OpsActions
	logger    *logging.Logger
	validator *validator.Validate
}

func NewHandler(queries MatchQueries, ops OpsActions, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		queries:   queries,
		ops:       ops,
		logger:    logger,
		validator: validator.New(),
	}
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	ctx, span := startSpan(ctx, "httpapi.Handler.validateRequest")
	defer span.End()

	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrValidation, err)
	}

	return nil
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}
