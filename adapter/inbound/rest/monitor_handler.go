package rest

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/emfoursolutions/trakbridge-sub003/config"
	"github.com/emfoursolutions/trakbridge-sub003/domain/model"
	"github.com/emfoursolutions/trakbridge-sub003/domain/port/inbound"
	"github.com/emfoursolutions/trakbridge-sub003/domain/port/outbound"
)

// Handler serves the read-only monitoring API
type Handler struct {
	monitor   inbound.ConfigMonitorService
	validator inbound.ConfigValidator
	health    inbound.HealthChecker
	provider  *config.Provider
	logger    outbound.Logger
}

func NewHandler(
	monitor inbound.ConfigMonitorService,
	validator inbound.ConfigValidator,
	health inbound.HealthChecker,
	provider *config.Provider,
	logger outbound.Logger,
) *Handler {
	return &Handler{
		monitor:   monitor,
		validator: validator,
		health:    health,
		provider:  provider,
		logger:    logger,
	}
}

// SetupRoutes configures the monitoring API routes
func (h *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("/api/monitor/status", h.getStatus).Methods("GET")
	router.HandleFunc("/api/monitor/health", h.getHealth).Methods("GET")
	router.HandleFunc("/api/monitor/validate", h.getValidation).Methods("GET")
	router.HandleFunc("/api/monitor/reload", h.triggerReload).Methods("POST")
}

func (h *Handler) getStatus(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.monitor.GetStatus())
}

// getHealth runs the health checks against the active configuration.
// An unhealthy report is still a successful request; the status field
// carries the outcome, 503 signals it to plain probes.
func (h *Handler) getHealth(w http.ResponseWriter, r *http.Request) {
	report := h.health.CheckHealth(h.provider.Current())

	code := http.StatusOK
	if report.Status == model.HealthStatusUnhealthy {
		code = http.StatusServiceUnavailable
	}

	h.writeJSON(w, code, report)
}

func (h *Handler) getValidation(w http.ResponseWriter, r *http.Request) {
	report := h.validator.Validate(h.provider.Current())
	h.writeJSON(w, http.StatusOK, report)
}

type reloadResponse struct {
	Triggered bool                `json:"triggered"`
	Status    model.MonitorStatus `json:"status"`
}

// triggerReload runs the same reload path a file change would take.
// Reload failures are logged by the coordinator and visible in the
// returned status counters; the endpoint itself does not fail.
func (h *Handler) triggerReload(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("Reload requested via API")

	h.monitor.Reload()

	h.writeJSON(w, http.StatusOK, reloadResponse{
		Triggered: true,
		Status:    h.monitor.GetStatus(),
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("Failed to encode response", "error", err)
	}
}
