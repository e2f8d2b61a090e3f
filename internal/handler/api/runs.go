package api

import (
	"errors"

	models "CargoCast/internal/domain/models"
	domrepo "CargoCast/internal/domain/repository"
	svcmetrics "CargoCast/internal/service/metrics"
	"CargoCast/internal/usecase"
	xhttp "CargoCast/pkg/http"
	xlogger "CargoCast/pkg/logger"

	"github.com/labstack/echo/v4"
)

// RunsHandler serves run bookkeeping routes.
type RunsHandler struct {
	logger *xlogger.Logger
	runs   *usecase.RunService
}

func NewRunsHandler(logger *xlogger.Logger, runs *usecase.RunService) *RunsHandler {
	return &RunsHandler{logger: logger, runs: runs}
}

func (h *RunsHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/runs")
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.GET("/:id/series", h.Series)
	g.GET("/:id/forecast", h.Forecast)
	g.GET("/:id/metrics", h.Metrics)
}

func (h *RunsHandler) Create(c echo.Context) error {
	req := &models.CreateRunRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	run, err := h.runs.CreateRun(c.Request().Context(), *req)
	if err != nil {
		return h.fail(c, "runs_create", err)
	}
	return xhttp.CreatedResponse(c, run)
}

func (h *RunsHandler) List(c echo.Context) error {
	runs, err := h.runs.ListRuns(c.Request().Context())
	if err != nil {
		return h.fail(c, "runs_list", err)
	}
	return xhttp.ListResponse(c, runs, int64(len(runs)))
}

func (h *RunsHandler) Get(c echo.Context) error {
	run, err := h.runs.GetRun(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.fail(c, "runs_get", err)
	}
	return xhttp.SuccessResponse(c, run)
}

func (h *RunsHandler) Series(c echo.Context) error {
	payload, err := h.runs.RunSeries(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.fail(c, "runs_series", err)
	}
	return c.JSONBlob(200, payload)
}

func (h *RunsHandler) Forecast(c echo.Context) error {
	res, err := h.runs.RunForecast(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.fail(c, "runs_forecast", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *RunsHandler) Metrics(c echo.Context) error {
	res, err := h.runs.RunMetrics(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.fail(c, "runs_metrics", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *RunsHandler) fail(c echo.Context, endpoint string, err error) error {
	svcmetrics.EndpointErrors.WithLabelValues(endpoint).Inc()
	switch {
	case errors.Is(err, domrepo.ErrRunNotFound):
		return xhttp.NotFoundResponse(c, xhttp.NotFoundError(err.Error()))
	case errors.Is(err, domrepo.ErrNoHistory):
		return xhttp.BadRequestResponse(c, xhttp.BadRequestError(err.Error()))
	case errors.Is(err, domrepo.ErrUnknownDataset), errors.Is(err, domrepo.ErrModelNotFound):
		return xhttp.NotFoundResponse(c, xhttp.NotFoundError(err.Error()))
	default:
		h.logger.Error(endpoint+" usecase error", xlogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}
}
