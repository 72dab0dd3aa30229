package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/riskibarqy/match-aggregator/internal/domain/match"
	"github.com/riskibarqy/match-aggregator/internal/usecase"
)

type pageLoader func(ctx context.Context, query match.Query) (match.Page, error)

func (h *Handler) SearchMatches(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SearchMatches")
	defer span.End()

	h.servePage(ctx, w, r, "search", h.queries.SearchMatches)
}

func (h *Handler) ListLiveMatches(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListLiveMatches")
	defer span.End()

	h.servePage(ctx, w, r, "live", h.queries.GetLiveMatches)
}

func (h *Handler) ListScheduledMatches(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListScheduledMatches")
	defer span.End()

	h.servePage(ctx, w, r, "scheduled", h.queries.GetScheduledMatches)
}

func (h *Handler) ListFinishedMatches(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListFinishedMatches")
	defer span.End()

	h.servePage(ctx, w, r, "finished", h.queries.GetFinishedMatches)
}

func (h *Handler) GetMatch(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetMatch")
	defer span.End()

	sport := strings.TrimSpace(r.PathValue("sport"))
	externalID := strings.TrimSpace(r.PathValue("externalID"))
	if externalID == "" {
		writeError(ctx, w, fmt.Errorf("%w: external id is required", usecase.ErrValidation))
		return
	}

	item, err := h.queries.GetMatch(ctx, match.Sport(sport), externalID)
	if err != nil {
		h.logger.WarnContext(ctx, "get match failed", "sport", sport, "external_id", externalID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, matchToDTO(item))
}

func (h *Handler) servePage(ctx context.Context, w http.ResponseWriter, r *http.Request, listing string, load pageLoader) {
	req := matchListRequestFromURL(r.URL.Query())
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}
	query, err := req.toQuery()
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	page, err := load(ctx, query)
	if err != nil {
		h.logger.WarnContext(ctx, "match listing failed", "listing", listing, "sport", query.Sport, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, matchPageToDTO(page))
}
