package api

import (
	"encoding/json"
	"errors"
	"time"

	models "CargoCast/internal/domain/models"
	domrepo "CargoCast/internal/domain/repository"
	"CargoCast/internal/service/cache"
	svcmetrics "CargoCast/internal/service/metrics"
	"CargoCast/internal/service/ratelimit"
	"CargoCast/internal/usecase"
	xhttp "CargoCast/pkg/http"
	xlogger "CargoCast/pkg/logger"
	"CargoCast/pkg/util"

	"github.com/labstack/echo/v4"
)

const (
	actualsCacheTTL   = 30 * time.Second
	metricsRateCap    = 5.0
	metricsRatePerSec = 1.0
)

// ForecastHandler serves the forecast, actuals, metrics, and dataset routes.
type ForecastHandler struct {
	logger  *xlogger.Logger
	svc     *usecase.ForecastService
	cache   cache.BytesCache
	limiter *ratelimit.Limiter
	version string
}

func NewForecastHandler(logger *xlogger.Logger, svc *usecase.ForecastService, c cache.BytesCache, version string) *ForecastHandler {
	return &ForecastHandler{
		logger:  logger,
		svc:     svc,
		cache:   c,
		limiter: ratelimit.New(),
		version: version,
	}
}

func (h *ForecastHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/forecast/:flow", h.Forecast)
	g.GET("/actuals/:flow", h.Actuals)
	g.POST("/metrics/:flow", h.Metrics)
	g.GET("/datasets", h.Datasets)
	g.POST("/series/reload-datasets", h.ReloadDatasets)
	g.GET("/version", h.Version)
}

func (h *ForecastHandler) Forecast(c echo.Context) error {
	req := &models.ForecastRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	start, ok := util.ParseISODate(req.StartDate)
	if !ok {
		return xhttp.BadRequestResponse(c, xhttp.BadRequestErrorf("invalid start_date %q", req.StartDate))
	}

	res, err := h.svc.Forecast(c.Request().Context(), c.Param("flow"), start, req.HorizonDays)
	if err != nil {
		return h.fail(c, "forecast", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *ForecastHandler) Actuals(c echo.Context) error {
	flow := c.Param("flow")
	days := util.ParseIntDefault(c.QueryParam("days"), 0)

	key := "actuals:" + flow + ":" + c.QueryParam("days")
	if h.cache != nil {
		if b, ok, err := h.cache.GetBytes(key); err == nil && ok {
			return c.JSONBlob(200, b)
		}
	}

	res, err := h.svc.Actuals(c.Request().Context(), flow, days)
	if err != nil {
		return h.fail(c, "actuals", err)
	}

	if h.cache != nil {
		if b, err := json.Marshal(xhttp.APIResponse{Status: 200, Message: "OK", Data: res}); err == nil {
			_ = h.cache.SetBytes(key, b, actualsCacheTTL)
		}
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *ForecastHandler) Metrics(c echo.Context) error {
	// Backtests replay the models over the whole window; keep rapid-fire
	// clients from monopolizing the process.
	if !h.limiter.Allow(c.RealIP(), metricsRateCap, metricsRatePerSec) {
		return xhttp.DataResponse(c, 429, "rate limit exceeded")
	}

	req := &models.BacktestRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	start, ok := util.ParseISODate(req.StartDate)
	if !ok {
		return xhttp.BadRequestResponse(c, xhttp.BadRequestErrorf("invalid start_date %q", req.StartDate))
	}

	params := usecase.BacktestParams{
		StartDate:          start,
		BacktestDays:       req.BacktestDays,
		IncludeDailyErrors: parseBool(c.QueryParam("include_daily_errors")),
		DailyErrorsLimit:   util.ParseIntDefault(c.QueryParam("daily_errors_limit"), 120),
		OutliersOnly:       parseBool(c.QueryParam("outliers_only")),
	}

	res, err := h.svc.Backtest(c.Request().Context(), c.Param("flow"), params)
	if err != nil {
		return h.fail(c, "metrics", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *ForecastHandler) Datasets(c echo.Context) error {
	res, err := h.svc.Datasets(c.Request().Context())
	if err != nil {
		return h.fail(c, "datasets", err)
	}
	return xhttp.SuccessResponse(c, res)
}

// ReloadDatasets forces a re-read of the dataset files and returns the
// verbose load report.
func (h *ForecastHandler) ReloadDatasets(c echo.Context) error {
	report, err := h.svc.ReloadDatasets(c.Request().Context())
	if err != nil {
		return h.fail(c, "reload_datasets", err)
	}
	return xhttp.SuccessResponse(c, report)
}

func (h *ForecastHandler) Version(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]string{"version": h.version})
}

// fail maps domain errors onto HTTP statuses: bad input is 400, missing data
// or artifacts are 404, everything else is 500.
func (h *ForecastHandler) fail(c echo.Context, endpoint string, err error) error {
	svcmetrics.EndpointErrors.WithLabelValues(endpoint).Inc()
	switch {
	case errors.Is(err, domrepo.ErrNoHistory), errors.Is(err, domrepo.ErrReloadUnsupported):
		return xhttp.BadRequestResponse(c, xhttp.BadRequestError(err.Error()))
	case errors.Is(err, domrepo.ErrUnknownDataset), errors.Is(err, domrepo.ErrModelNotFound):
		return xhttp.NotFoundResponse(c, xhttp.NotFoundError(err.Error()))
	default:
		h.logger.Error(endpoint+" usecase error", xlogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}
}

func parseBool(s string) bool {
	switch s {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
