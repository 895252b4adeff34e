package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"evintel/internal/services"
)

// HealthHandler serves liveness and version endpoints.
type HealthHandler struct {
	service HealthServiceInterface
	logger  *slog.Logger
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(service HealthServiceInterface, logger *slog.Logger) *HealthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthHandler{
		service: service,
		logger:  logger.With(slog.String("component", "health_handler")),
	}
}

// Routes returns the chi router for health endpoints.
func (h *HealthHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/", h.GetHealth)
	r.Get("/version", h.GetVersion)

	return r
}

// GetHealth handles GET /api/health. Degraded and unavailable states are
// reflected in the HTTP status so load balancers can act on them.
func (h *HealthHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	status := h.service.Check(r.Context())

	httpStatus := http.StatusOK
	if status.Status == services.StatusUnavailable {
		httpStatus = http.StatusServiceUnavailable
	}

	render.Status(r, httpStatus)
	render.JSON(w, r, status)
}

// GetVersion handles GET /api/health/version.
func (h *HealthHandler) GetVersion(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.VersionInfo())
}
