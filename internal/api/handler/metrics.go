package handler

import (
	"net/http"

	"github.com/SpaceshipxDev/super-tribble/internal/api/middleware"
	"github.com/SpaceshipxDev/super-tribble/internal/api/response"
	"github.com/SpaceshipxDev/super-tribble/internal/service"
)

// MetricsHandler handles the activity histogram and fleet summary endpoints
type MetricsHandler struct {
	metricsService *service.MetricsService
}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler(metricsService *service.MetricsService) *MetricsHandler {
	return &MetricsHandler{metricsService: metricsService}
}

// Histogram returns the caller's trailing-24h hourly activity series
func (h *MetricsHandler) Histogram(w http.ResponseWriter, r *http.Request) {
	username, _ := middleware.GetUsername(r.Context())

	histogram, err := h.metricsService.HourlyHistogram(r.Context(), username)
	if err != nil {
		response.InternalError(w, "internal error")
		return
	}
	response.OK(w, histogram)
}

// Summary generates an AI summary of the caller's last 24 hours. Degraded
// outcomes are placeholder text with status 200, never an error page.
func (h *MetricsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	username, _ := middleware.GetUsername(r.Context())

	summary, err := h.metricsService.FleetSummary(r.Context(), username)
	if err != nil {
		response.InternalError(w, "internal error")
		return
	}
	response.OK(w, map[string]string{"summary": summary})
}
