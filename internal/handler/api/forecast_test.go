package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"CargoCast/internal/domain/models"
	domrepo "CargoCast/internal/domain/repository"
	"CargoCast/internal/usecase"
	xlogger "CargoCast/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

type stubEstimator float64

func (e stubEstimator) Predict([]float64) (float64, error) { return float64(e), nil }

type stubModelStore struct {
	median domrepo.Estimator
}

func (s *stubModelStore) Load(_ context.Context, _ domrepo.FlowKey, q domrepo.QuantileLabel) (domrepo.Estimator, error) {
	if q == domrepo.QuantP50 && s.median != nil {
		return s.median, nil
	}
	return nil, domrepo.ErrModelNotFound
}

func (s *stubModelStore) FeatureNames(context.Context, domrepo.FlowKey) ([]string, error) {
	return []string{
		"dow", "month", "is_weekend",
		"lag_1", "lag_7", "lag_14", "lag_28",
		"roll_mean_7", "roll_mean_14", "roll_mean_28",
		"roll_std_7", "roll_std_14", "roll_std_28",
	}, nil
}

type stubSeriesStore struct {
	series map[domrepo.FlowKey]models.DailySeries
}

func (s *stubSeriesStore) Get(_ context.Context, flow domrepo.FlowKey) (models.DailySeries, error) {
	return s.series[flow], nil
}

func (s *stubSeriesStore) Datasets(context.Context) ([]models.DatasetInfo, error) {
	return []models.DatasetInfo{{
		Key:    "export",
		Exists: true,
		Meta:   &models.SeriesMeta{DataFrom: "2025-05-01", DataTo: "2025-05-10", Points: 10},
	}}, nil
}

type stubReloader struct {
	report models.ReloadReport
}

func (s *stubReloader) Reload(context.Context) (models.ReloadReport, error) {
	return s.report, nil
}

func testLogger(t *testing.T) *xlogger.Logger {
	t.Helper()
	l, err := xlogger.New(&xlogger.Config{Level: "error", Format: "json", Output: "stderr"})
	require.NoError(t, err)
	return l
}

func newHandlerFixture(t *testing.T) *ForecastHandler {
	t.Helper()
	start := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	pts := make([]models.DailyPoint, 10)
	for i := range pts {
		pts[i] = models.DailyPoint{Date: start.AddDate(0, 0, i), Value: float64(10 * (i + 1))}
	}
	series := &stubSeriesStore{series: map[domrepo.FlowKey]models.DailySeries{
		domrepo.FlowExport: models.NewDailySeries(pts),
	}}

	f := usecase.NewForecaster(&stubModelStore{median: stubEstimator(55)})
	svc := usecase.NewForecastService(series, f, usecase.NewBacktestEngine(f))
	return NewForecastHandler(testLogger(t), svc, nil, "1.2.3")
}

func doJSON(t *testing.T, h echo.HandlerFunc, method, target, body string, params map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	for k, v := range params {
		c.SetParamNames(k)
		c.SetParamValues(v)
	}
	require.NoError(t, h(c))
	return rec
}

func TestForecastEndpoint(t *testing.T) {
	h := newHandlerFixture(t)
	rec := doJSON(t, h.Forecast, http.MethodPost, "/api/forecast/export",
		`{"start_date":"2025-05-11","horizon_days":3}`, map[string]string{"flow": "export"})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Status int                     `json:"status"`
		Data   models.ForecastResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, http.StatusOK, resp.Status)
	require.Equal(t, "export", resp.Data.Flow)
	require.Len(t, resp.Data.Forecast, 3)
	require.Equal(t, 55.0, resp.Data.Forecast[0].Forecast)
}

func TestForecastEndpointDefaultsHorizon(t *testing.T) {
	h := newHandlerFixture(t)
	rec := doJSON(t, h.Forecast, http.MethodPost, "/api/forecast/export",
		`{"start_date":"2025-05-11"}`, map[string]string{"flow": "export"})

	var resp struct {
		Data models.ForecastResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 28, resp.Data.HorizonDays)
	require.Len(t, resp.Data.Forecast, 28)
}

func TestForecastEndpointValidation(t *testing.T) {
	h := newHandlerFixture(t)

	// Missing start_date.
	rec := doJSON(t, h.Forecast, http.MethodPost, "/api/forecast/export",
		`{"horizon_days":5}`, map[string]string{"flow": "export"})
	var resp struct {
		Status int `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, http.StatusBadRequest, resp.Status)

	// Horizon beyond the cap.
	rec = doJSON(t, h.Forecast, http.MethodPost, "/api/forecast/export",
		`{"start_date":"2025-05-11","horizon_days":500}`, map[string]string{"flow": "export"})
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, http.StatusBadRequest, resp.Status)
}

func TestForecastEndpointUnknownFlow(t *testing.T) {
	h := newHandlerFixture(t)
	rec := doJSON(t, h.Forecast, http.MethodPost, "/api/forecast/bogus",
		`{"start_date":"2025-05-11"}`, map[string]string{"flow": "bogus"})

	var resp struct {
		Status int `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, http.StatusNotFound, resp.Status)
}

func TestForecastEndpointNoHistory(t *testing.T) {
	h := newHandlerFixture(t)
	// tra_import exists but the fixture holds no data for it.
	rec := doJSON(t, h.Forecast, http.MethodPost, "/api/forecast/tra_import",
		`{"start_date":"2025-05-11"}`, map[string]string{"flow": "tra_import"})

	var resp struct {
		Status int `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, http.StatusBadRequest, resp.Status)
}

func TestActualsEndpointTail(t *testing.T) {
	h := newHandlerFixture(t)
	rec := doJSON(t, h.Actuals, http.MethodGet, "/api/actuals/export?days=3", "",
		map[string]string{"flow": "export"})

	var resp struct {
		Data []models.ActualPoint `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 3)
	require.Equal(t, "2025-05-08", resp.Data[0].Date)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newHandlerFixture(t)
	rec := doJSON(t, h.Metrics, http.MethodPost,
		"/api/metrics/export?include_daily_errors=true&outliers_only=true&daily_errors_limit=2",
		`{"start_date":"2025-05-11","backtest_days":7}`, map[string]string{"flow": "export"})

	var resp struct {
		Status int                   `json:"status"`
		Data   models.BacktestReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, http.StatusOK, resp.Status)
	require.Equal(t, usecase.MethodModelWalkForward, resp.Data.Metrics.Method)
	require.Equal(t, 7, resp.Data.Metrics.N)
	require.Len(t, resp.Data.DailyErrors, 2)
}

func TestMetricsEndpointBacktestDaysValidated(t *testing.T) {
	h := newHandlerFixture(t)
	rec := doJSON(t, h.Metrics, http.MethodPost, "/api/metrics/export",
		`{"start_date":"2025-05-11","backtest_days":2}`, map[string]string{"flow": "export"})

	var resp struct {
		Status int `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, http.StatusBadRequest, resp.Status)
}

func TestDatasetsAndVersionEndpoints(t *testing.T) {
	h := newHandlerFixture(t)

	rec := doJSON(t, h.Datasets, http.MethodGet, "/api/datasets", "", nil)
	var ds struct {
		Data []models.DatasetInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ds))
	require.Len(t, ds.Data, 1)
	require.NotNil(t, ds.Data[0].Meta)
	require.Equal(t, "2025-05-01", ds.Data[0].Meta.DataFrom)
	require.Equal(t, 10, ds.Data[0].Meta.Points)

	rec = doJSON(t, h.Version, http.MethodGet, "/api/version", "", nil)
	var v struct {
		Data map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	require.Equal(t, "1.2.3", v.Data["version"])
}

func TestReloadDatasetsEndpoint(t *testing.T) {
	h := newHandlerFixture(t)
	h.svc.SetReloader(&stubReloader{report: models.ReloadReport{
		Loaded:             []models.DatasetInfo{{Key: "export", Exists: true}},
		SkippedMissingFile: []models.DatasetInfo{{Key: "import"}},
	}})

	rec := doJSON(t, h.ReloadDatasets, http.MethodPost, "/api/series/reload-datasets", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Status int                 `json:"status"`
		Data   models.ReloadReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, http.StatusOK, resp.Status)
	require.Len(t, resp.Data.Loaded, 1)
	require.Len(t, resp.Data.SkippedMissingFile, 1)
}

func TestReloadDatasetsEndpointUnsupportedBackend(t *testing.T) {
	// Fixture has no reloader wired, like a live warehouse backend.
	h := newHandlerFixture(t)
	rec := doJSON(t, h.ReloadDatasets, http.MethodPost, "/api/series/reload-datasets", "", nil)

	var resp struct {
		Status int `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, http.StatusBadRequest, resp.Status)
}
