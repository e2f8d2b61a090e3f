package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"CargoCast/internal/domain/models"
	domrepo "CargoCast/internal/domain/repository"
	"CargoCast/internal/usecase"

	"github.com/stretchr/testify/require"
)

type mapRunStore struct {
	runs   map[string]*models.Run
	series map[string][]byte
}

func newMapRunStore() *mapRunStore {
	return &mapRunStore{runs: map[string]*models.Run{}, series: map[string][]byte{}}
}

func (s *mapRunStore) Create(_ context.Context, run *models.Run) error {
	cp := *run
	s.runs[run.ID] = &cp
	return nil
}

func (s *mapRunStore) Get(_ context.Context, id string) (*models.Run, error) {
	run, ok := s.runs[id]
	if !ok {
		return nil, nil
	}
	cp := *run
	return &cp, nil
}

func (s *mapRunStore) List(context.Context) ([]*models.Run, error) {
	out := make([]*models.Run, 0, len(s.runs))
	for _, run := range s.runs {
		cp := *run
		out = append(out, &cp)
	}
	return out, nil
}

func (s *mapRunStore) Finish(_ context.Context, id string, status models.RunStatus, message string) error {
	run, ok := s.runs[id]
	if !ok {
		return fmt.Errorf("run %s not found", id)
	}
	run.Status = status
	if status == models.RunFailed {
		run.Error = &message
	}
	return nil
}

func (s *mapRunStore) SaveSeries(_ context.Context, runID string, payload []byte, _ string) error {
	s.series[runID] = payload
	return nil
}

func (s *mapRunStore) GetSeries(_ context.Context, runID string) ([]byte, bool, error) {
	p, ok := s.series[runID]
	return p, ok, nil
}

func (s *mapRunStore) Close() error { return nil }

func newRunsHandlerFixture(t *testing.T) *RunsHandler {
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
	rs := usecase.NewRunService(newMapRunStore(), svc, nil,
		usecase.RunDefaults{FlowKey: "export", HorizonDays: 7, HistoryDays: 60})
	return NewRunsHandler(testLogger(t), rs)
}

func TestRunsCreateAndGet(t *testing.T) {
	h := newRunsHandlerFixture(t)

	rec := doJSON(t, h.Create, http.MethodPost, "/api/runs", `{"flow_key":"export"}`, nil)
	var created struct {
		Status int        `json:"status"`
		Data   models.Run `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Equal(t, http.StatusCreated, created.Status)
	require.Equal(t, models.RunSuccess, created.Data.Status)

	rec = doJSON(t, h.Get, http.MethodGet, "/api/runs/"+created.Data.ID, "",
		map[string]string{"id": created.Data.ID})
	var got struct {
		Status int        `json:"status"`
		Data   models.Run `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, http.StatusOK, got.Status)
	require.Equal(t, created.Data.ID, got.Data.ID)
}

func TestRunsGetNotFound(t *testing.T) {
	h := newRunsHandlerFixture(t)
	rec := doJSON(t, h.Get, http.MethodGet, "/api/runs/missing", "",
		map[string]string{"id": "missing"})

	var resp struct {
		Status int `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, http.StatusNotFound, resp.Status)
}

func TestRunsSeriesEndpoint(t *testing.T) {
	h := newRunsHandlerFixture(t)

	rec := doJSON(t, h.Create, http.MethodPost, "/api/runs", `{}`, nil)
	var created struct {
		Data models.Run `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = doJSON(t, h.Series, http.MethodGet, "/api/runs/"+created.Data.ID+"/series", "",
		map[string]string{"id": created.Data.ID})
	require.Equal(t, http.StatusOK, rec.Code)

	var series models.RunSeries
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &series))
	require.Len(t, series.Forecast, 7)
	require.NotEmpty(t, series.Actuals)
}

func TestRunsCreateInvalidFlow(t *testing.T) {
	h := newRunsHandlerFixture(t)
	rec := doJSON(t, h.Create, http.MethodPost, "/api/runs", `{"flow_key":"bogus"}`, nil)

	var resp struct {
		Status int `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, http.StatusBadRequest, resp.Status)
}
