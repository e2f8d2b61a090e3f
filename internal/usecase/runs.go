package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"CargoCast/internal/domain/models"
	domrepo "CargoCast/internal/domain/repository"
	applogger "CargoCast/pkg/logger"
	"CargoCast/pkg/util"

	"github.com/google/uuid"
)

// RunDefaults fill in omitted run parameters.
type RunDefaults struct {
	FlowKey     string
	HorizonDays int
	HistoryDays int
}

// RunService owns run bookkeeping: creating runs, executing them, and serving
// their materialized artifacts. Runs execute synchronously; the record plus
// the lifecycle events give external consumers an audit trail.
type RunService struct {
	store    domrepo.RunStore
	svc      *ForecastService
	events   domrepo.RunEventPublisher
	defaults RunDefaults
	l        *applogger.Logger
}

func NewRunService(store domrepo.RunStore, svc *ForecastService, events domrepo.RunEventPublisher, defaults RunDefaults) *RunService {
	if events == nil {
		events = repositoryNopEvents{}
	}
	return &RunService{store: store, svc: svc, events: events, defaults: defaults}
}

// SetLogger injects a structured logger.
func (s *RunService) SetLogger(l *applogger.Logger) { s.l = l }

// CreateRun records and executes one forecast run. The returned run is in a
// terminal state; execution failures are captured on the record, not returned
// as errors (the run itself was created fine).
func (s *RunService) CreateRun(ctx context.Context, req models.CreateRunRequest) (*models.Run, error) {
	params, err := s.resolveParams(ctx, req)
	if err != nil {
		return nil, err
	}

	run := &models.Run{
		ID:        uuid.NewString(),
		Status:    models.RunQueued,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Params:    params,
	}
	if err := s.store.Create(ctx, run); err != nil {
		return nil, err
	}
	s.publish(ctx, run.ID, models.RunQueued, params.FlowKey, "")

	if err := s.execute(ctx, run.ID, params); err != nil {
		if ferr := s.store.Finish(ctx, run.ID, models.RunFailed, err.Error()); ferr != nil && s.l != nil {
			s.l.Error("run failure not recorded", applogger.String("run_id", run.ID), applogger.Error(ferr))
		}
		s.publish(ctx, run.ID, models.RunFailed, params.FlowKey, err.Error())
	} else {
		if ferr := s.store.Finish(ctx, run.ID, models.RunSuccess, "forecast materialized"); ferr != nil && s.l != nil {
			s.l.Error("run success not recorded", applogger.String("run_id", run.ID), applogger.Error(ferr))
		}
		s.publish(ctx, run.ID, models.RunSuccess, params.FlowKey, "")
	}

	return s.GetRun(ctx, run.ID)
}

// GetRun fetches one run record.
func (s *RunService) GetRun(ctx context.Context, id string) (*models.Run, error) {
	run, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, fmt.Errorf("%w: %s", domrepo.ErrRunNotFound, id)
	}
	return run, nil
}

// ListRuns returns all runs, newest first.
func (s *RunService) ListRuns(ctx context.Context) ([]*models.Run, error) {
	return s.store.List(ctx)
}

// RunSeries returns the materialized actuals+forecast payload of a run,
// rebuilding it from the stored parameters when it is missing (older runs, or
// a wiped series table).
func (s *RunService) RunSeries(ctx context.Context, id string) ([]byte, error) {
	run, err := s.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}

	payload, ok, err := s.store.GetSeries(ctx, id)
	if err != nil {
		return nil, err
	}
	if ok {
		return payload, nil
	}
	if run.Params == nil {
		return nil, fmt.Errorf("run %s has no parameters to rebuild from", id)
	}
	if err := s.execute(ctx, id, run.Params); err != nil {
		return nil, err
	}
	payload, _, err = s.store.GetSeries(ctx, id)
	return payload, err
}

// RunForecast recomputes the forecast response for a run's parameters.
func (s *RunService) RunForecast(ctx context.Context, id string) (*models.ForecastResponse, error) {
	run, err := s.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}
	if run.Params == nil {
		return nil, fmt.Errorf("run %s has no parameters", id)
	}
	start, ok := util.ParseISODate(run.Params.StartDate)
	if !ok {
		return nil, fmt.Errorf("run %s has invalid start date %q", id, run.Params.StartDate)
	}
	return s.svc.Forecast(ctx, run.Params.FlowKey, start, run.Params.HorizonDays)
}

// RunMetrics evaluates the run's flow over the history window preceding the
// run's start date.
func (s *RunService) RunMetrics(ctx context.Context, id string) (*models.BacktestReport, error) {
	run, err := s.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}
	if run.Params == nil {
		return nil, fmt.Errorf("run %s has no parameters", id)
	}
	start, ok := util.ParseISODate(run.Params.StartDate)
	if !ok {
		return nil, fmt.Errorf("run %s has invalid start date %q", id, run.Params.StartDate)
	}
	return s.svc.Backtest(ctx, run.Params.FlowKey, BacktestParams{
		StartDate:    start,
		BacktestDays: run.Params.HistoryDays,
	})
}

// execute materializes the run series payload: recent actuals plus the full
// quantile forecast.
func (s *RunService) execute(ctx context.Context, id string, params *models.RunParams) error {
	if err := s.store.Finish(ctx, id, models.RunRunning, ""); err != nil {
		return err
	}
	s.publish(ctx, id, models.RunRunning, params.FlowKey, "")

	start, ok := util.ParseISODate(params.StartDate)
	if !ok {
		return fmt.Errorf("invalid start date %q", params.StartDate)
	}

	forecast, err := s.svc.Forecast(ctx, params.FlowKey, start, params.HorizonDays)
	if err != nil {
		return err
	}
	actuals, err := s.svc.Actuals(ctx, params.FlowKey, params.HistoryDays)
	if err != nil {
		return err
	}

	series := models.RunSeries{
		Meta: map[string]any{
			"flow":         forecast.Flow,
			"start_date":   forecast.StartDate,
			"horizon_days": forecast.HorizonDays,
			"history_days": params.HistoryDays,
		},
		Actuals:  make([]models.SeriesActualPoint, 0, len(actuals)),
		Forecast: make([]models.SeriesForecastPoint, 0, len(forecast.Forecast)),
	}
	for _, a := range actuals {
		series.Actuals = append(series.Actuals, models.SeriesActualPoint{Date: a.Date, Value: a.Value})
	}
	for _, p := range forecast.Forecast {
		series.Forecast = append(series.Forecast, models.SeriesForecastPoint{
			Date:     p.Date,
			Forecast: p.Forecast,
			P05:      p.P05,
			P95:      p.P95,
		})
	}

	payload, err := json.Marshal(series)
	if err != nil {
		return fmt.Errorf("marshal run series: %w", err)
	}
	return s.store.SaveSeries(ctx, id, payload, time.Now().UTC().Format(time.RFC3339))
}

// resolveParams applies defaults and validates the flow has usable data.
func (s *RunService) resolveParams(ctx context.Context, req models.CreateRunRequest) (*models.RunParams, error) {
	params := &models.RunParams{
		FlowKey:     req.FlowKey,
		StartDate:   req.StartDate,
		HorizonDays: req.HorizonDays,
		HistoryDays: req.HistoryDays,
		Tags:        req.Tags,
	}
	if params.FlowKey == "" {
		params.FlowKey = s.defaults.FlowKey
	}
	if params.HorizonDays <= 0 {
		params.HorizonDays = s.defaults.HorizonDays
	}
	if params.HistoryDays <= 0 {
		params.HistoryDays = s.defaults.HistoryDays
	}

	flow, err := resolveFlow(params.FlowKey)
	if err != nil {
		return nil, err
	}
	params.FlowKey = string(flow)

	series, err := s.svc.series.Get(ctx, flow)
	if err != nil {
		return nil, err
	}
	if series.Empty() {
		return nil, fmt.Errorf("%w: flow %s has no data", domrepo.ErrNoHistory, flow)
	}
	// Default start: the day after the newest observation.
	if params.StartDate == "" {
		params.StartDate = util.FormatISODate(series.End().AddDate(0, 0, 1))
	}
	if _, ok := util.ParseISODate(params.StartDate); !ok {
		return nil, fmt.Errorf("invalid start date %q", params.StartDate)
	}
	return params, nil
}

func (s *RunService) publish(ctx context.Context, runID string, status models.RunStatus, flow, errMsg string) {
	ev := models.RunEvent{
		RunID:     runID,
		Status:    status,
		FlowKey:   flow,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Error:     errMsg,
	}
	if err := s.events.Publish(ctx, ev); err != nil && s.l != nil {
		s.l.Warn("run event dropped",
			applogger.String("run_id", runID),
			applogger.String("status", string(status)),
			applogger.Error(err),
		)
	}
}

// repositoryNopEvents avoids a nil check on every publish.
type repositoryNopEvents struct{}

func (repositoryNopEvents) Publish(context.Context, models.RunEvent) error { return nil }
func (repositoryNopEvents) Close() error                                   { return nil }
