package httpapi

import (
	"net/http"
	"strings"
)

func (h *Handler) ListProviderHealth(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListProviderHealth")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, providerHealthListToDTO(h.queries.GetHealthStatus()))
}

func (h *Handler) RunRefresh(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunRefresh")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, h.ops.Refresh(ctx))
}

func (h *Handler) StartScheduler(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.StartScheduler")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, schedulerStatusToDTO(h.ops.Start(ctx)))
}

func (h *Handler) StopScheduler(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.StopScheduler")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, schedulerStatusToDTO(h.ops.Stop(ctx)))
}

func (h *Handler) GetOpsStatus(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetOpsStatus")
	defer span.End()

	status := h.ops.Status()
	writeSuccess(ctx, w, http.StatusOK, opsStatusDTO{
		Providers: providerHealthListToDTO(status.Providers),
		Scheduler: schedulerStatusToDTO(status.Scheduler),
	})
}

func (h *Handler) ResetProvider(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ResetProvider")
	defer span.End()

	record, err := h.ops.ResetProvider(ctx, strings.TrimSpace(r.PathValue("provider")))
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, providerHealthToDTO(record))
}
