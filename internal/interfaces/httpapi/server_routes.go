package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler, cfg RouterConfig) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", cfg.Metrics)
	}
	if !cfg.SwaggerEnabled {
		return
	}

	mux.HandleFunc("GET /openapi.yaml", handler.OpenAPI)
	mux.HandleFunc("GET /docs", handler.SwaggerUI)
	mux.HandleFunc("GET /docs/", handler.SwaggerUI)
}

func registerMatchRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/matches/search", handler.SearchMatches)
	mux.HandleFunc("GET /v1/matches/live", handler.ListLiveMatches)
	mux.HandleFunc("GET /v1/matches/scheduled", handler.ListScheduledMatches)
	mux.HandleFunc("GET /v1/matches/finished", handler.ListFinishedMatches)
	mux.HandleFunc("GET /v1/matches/{sport}/{externalID}", handler.GetMatch)
	mux.HandleFunc("GET /v1/providers/health", handler.ListProviderHealth)
}

func registerOpsRoutes(mux *http.ServeMux, handler *Handler, auth OpsAuthorizer) {
	mux.Handle("POST /v1/ops/refresh", RequireOpsToken(auth, http.HandlerFunc(handler.RunRefresh)))
	mux.Handle("POST /v1/ops/start", RequireOpsToken(auth, http.HandlerFunc(handler.StartScheduler)))
	mux.Handle("POST /v1/ops/stop", RequireOpsToken(auth, http.HandlerFunc(handler.StopScheduler)))
	mux.Handle("GET /v1/ops/status", RequireOpsToken(auth, http.HandlerFunc(handler.GetOpsStatus)))
	mux.Handle("POST /v1/ops/providers/{provider}/reset", RequireOpsToken(auth, http.HandlerFunc(handler.ResetProvider)))
}
