package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/imobiai/leadqual-server-go/internal/service"
)

type AnalyticsHandler struct {
	analyticsService *service.AnalyticsService
}

func NewAnalyticsHandler(analyticsService *service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsService: analyticsService}
}

func (h *AnalyticsHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/summary", h.Summary)
	r.Post("/insights", h.Insights)

	return r
}

// GET /api/analytics/summary
func (h *AnalyticsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.analyticsService.Summary(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to compute analytics summary")
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// POST /api/analytics/insights
func (h *AnalyticsHandler) Insights(w http.ResponseWriter, r *http.Request) {
	result, err := h.analyticsService.Insights(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to generate insights")
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
