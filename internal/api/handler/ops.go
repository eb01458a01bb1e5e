// Package handler provides HTTP handlers for the data acquisition API.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/dataacquisition/das/internal/api/models"
	"github.com/dataacquisition/das/internal/api/response"
	"github.com/dataacquisition/das/internal/resilience"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// readinessTimeout bounds each dependency check.
const readinessTimeout = 2 * time.Second

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version   string
	buildTime string
	deps      map[string]Pinger
	circuits  *resilience.Registry
	logger    zerolog.Logger
}

// NewOpsHandler creates a new OpsHandler. deps are checked by ReadinessCheck,
// keyed by name. circuits may be nil.
func NewOpsHandler(version, buildTime string, deps map[string]Pinger, circuits *resilience.Registry, logger zerolog.Logger) *OpsHandler {
	return &OpsHandler{
		version:   version,
		buildTime: buildTime,
		deps:      deps,
		circuits:  circuits,
		logger:    logger,
	}
}

// HealthCheck handles GET /rest/das/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]interface{}{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	})
}

// ReadinessCheck handles GET /rest/das/ops/ready. It answers 503 when any
// dependency fails its ping. Circuit states are reported but do not affect the status.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	status := models.HealthStatusOK
	details := make(map[string]interface{}, len(h.deps))

	for name, dep := range h.deps {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		err := dep.Ping(ctx)
		cancel()

		if err != nil {
			status = models.HealthStatusFail
			details[name] = string(models.HealthStatusFail)
			h.logger.Warn().Err(err).Str("dependency", name).Msg("readiness check failed")
			continue
		}
		details[name] = string(models.HealthStatusOK)
	}

	if h.circuits != nil && h.circuits.Len() > 0 {
		circuits := make(map[string]string, h.circuits.Len())
		for _, c := range h.circuits.All() {
			circuits[c.Name] = c.CircuitState.String()
		}
		details["circuits"] = circuits
	}

	code := http.StatusOK
	if status != models.HealthStatusOK {
		code = http.StatusServiceUnavailable
	}
	response.JSON(w, r, code, models.Health{
		Status:  status,
		Time:    models.Timestamp(time.Now()),
		Details: details,
	})
}
