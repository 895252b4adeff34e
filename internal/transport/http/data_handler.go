package http

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "evintel/internal/errors"
	"evintel/internal/middleware"
	"evintel/internal/services"
	api "evintel/pkg/contracts/api/v1"
)

// DataHandler serves the enriched table, state and region summaries, and
// the market insight report.
type DataHandler struct {
	service      DataServiceInterface
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
	validator    *middleware.QueryParamValidator
}

// NewDataHandler creates a data handler with injected dependencies.
func NewDataHandler(service DataServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *DataHandler {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "data_handler"))
	return &DataHandler{
		service:      service,
		logger:       logger,
		errorHandler: errorHandler,
		validator:    middleware.NewQueryParamValidator(logger, errorHandler),
	}
}

// Routes returns the chi router for data endpoints.
func (h *DataHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/enriched", h.GetEnriched)
	r.Get("/enriched/columns", h.GetColumns)
	r.Get("/states", h.GetStates)
	r.Get("/states/{state}", h.GetStateDetail)
	r.Get("/regions", h.GetRegions)
	r.Get("/insights", h.GetInsights)

	return r
}

// maxPageSize caps the limit query parameter on /enriched.
const maxPageSize = 5000

// GetEnriched handles GET /api/enriched with optional filters and paging.
func (h *DataHandler) GetEnriched(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	limit, ok := h.validator.ValidateInt(w, r, "limit", 1, maxPageSize, 1000)
	if !ok {
		return
	}
	offset, ok := h.validator.ValidateInt(w, r, "offset", 0, 1<<30, 0)
	if !ok {
		return
	}

	q := r.URL.Query()
	req := api.EnrichedQueryRequest{
		PaginationRequest: api.PaginationRequest{Limit: limit, Offset: offset},
		DateRangeRequest:  api.DateRangeRequest{From: q.Get("from"), To: q.Get("to")},
		State:             q.Get("state"),
		Category:          q.Get("category"),
		Region:            q.Get("region"),
	}
	if !h.validator.ValidateRequest(w, r, &req) {
		return
	}

	query := services.EnrichedQuery{
		State:    req.State,
		Category: req.Category,
		Region:   req.Region,
		Limit:    req.Limit,
		Offset:   req.Offset,
	}
	// The datetime tag guarantees these parse.
	query.From, _ = parseDate(req.From)
	query.To, _ = parseDate(req.To)

	h.logger.InfoContext(r.Context(), "enriched query",
		slog.String("request_id", reqID),
		slog.String("state", query.State),
		slog.String("category", query.Category),
		slog.Int("limit", limit),
		slog.Int("offset", offset),
	)

	page, err := h.service.GetEnriched(r.Context(), query)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   page,
		"count":  len(page.Records),
	})
}

// GetColumns handles GET /api/enriched/columns. Columns absent from the
// current artifact (older export versions) are listed under "missing".
func (h *DataHandler) GetColumns(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.GetColumns(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   report,
	})
}

// GetStates handles GET /api/states: the latest snapshot per
// state/category partition.
func (h *DataHandler) GetStates(w http.ResponseWriter, r *http.Request) {
	h.logger.DebugContext(r.Context(), "state snapshots requested",
		slog.String("request_id", middleware.GetReqID(r.Context())))

	snapshots, err := h.service.GetStates(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   snapshots,
		"count":  len(snapshots),
	})
}

// GetStateDetail handles GET /api/states/{state}.
func (h *DataHandler) GetStateDetail(w http.ResponseWriter, r *http.Request) {
	state := chi.URLParam(r, "state")
	if state == "" {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("state", "state name is required"))
		return
	}

	detail, err := h.service.GetStateDetail(r.Context(), state)
	if err != nil {
		if errors.Is(err, services.ErrStateNotFound) {
			h.errorHandler.HandleError(w, r, apierrors.NotFoundError("state "+state))
			return
		}
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   detail,
	})
}

// GetRegions handles GET /api/regions.
func (h *DataHandler) GetRegions(w http.ResponseWriter, r *http.Request) {
	regions, err := h.service.GetRegions(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   regions,
		"count":  len(regions),
	})
}

// GetInsights handles GET /api/insights.
func (h *DataHandler) GetInsights(w http.ResponseWriter, r *http.Request) {
	insights, err := h.service.GetInsights(r.Context())
	if err != nil {
		if errors.Is(err, services.ErrInsightsUnavailable) {
			h.errorHandler.HandleError(w, r, apierrors.NotFoundError("insight report"))
			return
		}
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   insights,
	})
}

// parseDate reads an optional YYYY-MM-DD value. Empty input returns the
// zero time with no error.
func parseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", value)
}
