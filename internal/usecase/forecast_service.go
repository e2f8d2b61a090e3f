package usecase

import (
	"context"
	"fmt"
	"time"

	"CargoCast/internal/domain/models"
	domrepo "CargoCast/internal/domain/repository"
	applogger "CargoCast/pkg/logger"
)

// ForecastService ties the series store to the forecasting and backtest
// engines and produces wire-ready payloads.
type ForecastService struct {
	series     domrepo.SeriesStore
	reloader   domrepo.SeriesReloader
	forecaster *Forecaster
	backtest   *BacktestEngine
	l          *applogger.Logger
	metrics    domrepo.Metrics
}

func NewForecastService(series domrepo.SeriesStore, forecaster *Forecaster, backtest *BacktestEngine) *ForecastService {
	return &ForecastService{series: series, forecaster: forecaster, backtest: backtest}
}

// SetLogger injects a structured logger.
func (s *ForecastService) SetLogger(l *applogger.Logger) { s.l = l }

// SetMetrics injects a metrics recorder.
func (s *ForecastService) SetMetrics(m domrepo.Metrics) { s.metrics = m }

// SetReloader enables on-demand dataset reloads for backends that support it.
func (s *ForecastService) SetReloader(r domrepo.SeriesReloader) { s.reloader = r }

// Forecast produces a recursive quantile forecast for the flow, using all
// observed history strictly before the start date.
func (s *ForecastService) Forecast(ctx context.Context, rawFlow string, startDate time.Time, horizonDays int) (*models.ForecastResponse, error) {
	flow, err := resolveFlow(rawFlow)
	if err != nil {
		return nil, err
	}

	series, err := s.series.Get(ctx, flow)
	if err != nil {
		return nil, err
	}
	history := series.ValuesBefore(startDate)
	if len(history) == 0 {
		return nil, fmt.Errorf("%w: flow %s, start %s", domrepo.ErrNoHistory, flow, startDate.Format("2006-01-02"))
	}

	started := time.Now()
	points, err := s.forecaster.Forecast(ctx, flow, history, startDate, horizonDays)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.RecordForecast(string(flow), horizonDays)
		s.metrics.RecordLatency("forecast", time.Since(started).Seconds())
	}

	resp := &models.ForecastResponse{
		Flow:        string(flow),
		StartDate:   startDate.Format("2006-01-02"),
		HorizonDays: horizonDays,
		Forecast:    make([]models.ForecastResponsePoint, 0, len(points)),
	}
	for _, p := range points {
		resp.Forecast = append(resp.Forecast, models.ForecastResponsePoint{
			Date:     p.Date.Format("2006-01-02"),
			Forecast: p.Forecast,
			P05:      p.P05,
			P95:      p.P95,
		})
	}
	return resp, nil
}

// Actuals returns the observed daily history for the flow, optionally limited
// to the most recent lastDays days.
func (s *ForecastService) Actuals(ctx context.Context, rawFlow string, lastDays int) ([]models.ActualPoint, error) {
	flow, err := resolveFlow(rawFlow)
	if err != nil {
		return nil, err
	}

	series, err := s.series.Get(ctx, flow)
	if err != nil {
		return nil, err
	}

	points := series.Points()
	if lastDays > 0 && len(points) > lastDays {
		points = points[len(points)-lastDays:]
	}
	out := make([]models.ActualPoint, 0, len(points))
	for _, p := range points {
		out = append(out, models.ActualPoint{
			Date:  p.Date.Format("2006-01-02"),
			Value: p.Value,
		})
	}
	return out, nil
}

// Backtest runs the walk-forward evaluation over the window ending the day
// before params.StartDate.
func (s *ForecastService) Backtest(ctx context.Context, rawFlow string, params BacktestParams) (*models.BacktestReport, error) {
	flow, err := resolveFlow(rawFlow)
	if err != nil {
		return nil, err
	}

	series, err := s.series.Get(ctx, flow)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	report := s.backtest.Run(ctx, flow, series, params)
	if s.metrics != nil {
		s.metrics.RecordLatency("backtest", time.Since(started).Seconds())
	}
	return &report, nil
}

// Datasets lists the configured data sources and their availability.
func (s *ForecastService) Datasets(ctx context.Context) ([]models.DatasetInfo, error) {
	return s.series.Datasets(ctx)
}

// ReloadDatasets re-reads the dataset sources from disk and reports what was
// loaded, skipped, and failed. Live backends return ErrReloadUnsupported.
func (s *ForecastService) ReloadDatasets(ctx context.Context) (*models.ReloadReport, error) {
	if s.reloader == nil {
		return nil, domrepo.ErrReloadUnsupported
	}
	report, err := s.reloader.Reload(ctx)
	if err != nil {
		return nil, fmt.Errorf("reload datasets: %w", err)
	}
	if s.l != nil {
		s.l.Info("datasets reloaded",
			applogger.Int("loaded", len(report.Loaded)),
			applogger.Int("missing", len(report.SkippedMissingFile)),
			applogger.Int("empty", len(report.SkippedEmptySeries)),
			applogger.Int("failed", len(report.Failed)),
		)
	}
	return &report, nil
}

func resolveFlow(raw string) (domrepo.FlowKey, error) {
	flow, ok := domrepo.NormalizeFlowKey(raw)
	if !ok {
		return "", fmt.Errorf("%w: %q", domrepo.ErrUnknownDataset, raw)
	}
	return flow, nil
}
