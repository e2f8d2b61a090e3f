package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"CargoCast/internal/domain/models"
	domrepo "CargoCast/internal/domain/repository"
	"CargoCast/internal/services/features"
	applogger "CargoCast/pkg/logger"
)

// Forecaster produces recursive multi-day quantile forecasts: each step's
// median prediction is appended to the working history before the next step,
// so lag and rolling features follow the median path. The uncertainty bands
// are predicted independently per step and clamped toward the median.
type Forecaster struct {
	store   domrepo.ModelStore
	l       *applogger.Logger
	metrics domrepo.Metrics
}

func NewForecaster(store domrepo.ModelStore) *Forecaster {
	return &Forecaster{store: store}
}

// SetLogger injects a structured logger.
func (f *Forecaster) SetLogger(l *applogger.Logger) { f.l = l }

// SetMetrics injects a metrics recorder.
func (f *Forecaster) SetMetrics(m domrepo.Metrics) { f.metrics = m }

// Forecast returns horizonDays points starting at startDate, or an empty
// slice for horizonDays <= 0. It never mutates history. Model and feature
// errors propagate untouched; a missing p05/p95 artifact degrades to the p50
// estimator and is logged, never silent.
func (f *Forecaster) Forecast(ctx context.Context, flow domrepo.FlowKey, history []float64, startDate time.Time, horizonDays int) ([]models.ForecastPoint, error) {
	if horizonDays <= 0 {
		return []models.ForecastPoint{}, nil
	}

	cols, err := f.store.FeatureNames(ctx, flow)
	if err != nil {
		return nil, fmt.Errorf("load feature names: %w", err)
	}

	est50, err := f.store.Load(ctx, flow, domrepo.QuantP50)
	if err != nil {
		return nil, fmt.Errorf("load %s/p50: %w", flow, err)
	}
	if f.metrics != nil {
		f.metrics.RecordModelLoad(string(flow), string(domrepo.QuantP50))
	}
	est05, err := f.loadBandOrFallback(ctx, flow, domrepo.QuantP05, est50)
	if err != nil {
		return nil, err
	}
	est95, err := f.loadBandOrFallback(ctx, flow, domrepo.QuantP95, est50)
	if err != nil {
		return nil, err
	}

	// Working copy, clamped to >= 0. An empty history is seeded with a single
	// zero day so feature derivation has a defined basis.
	hist := make([]float64, 0, len(history)+horizonDays)
	for _, v := range history {
		if v < 0 {
			v = 0
		}
		hist = append(hist, v)
	}
	if len(hist) == 0 {
		hist = append(hist, 0.0)
	}

	day := models.DayFloor(startDate)
	out := make([]models.ForecastPoint, 0, horizonDays)

	for step := 0; step < horizonDays; step++ {
		fv, err := features.Derive(hist, day, cols)
		if err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", step, day.Format("2006-01-02"), err)
		}

		y50, err := est50.Predict(fv)
		if err != nil {
			return nil, fmt.Errorf("predict p50: %w", err)
		}
		y05, err := est05.Predict(fv)
		if err != nil {
			return nil, fmt.Errorf("predict p05: %w", err)
		}
		y95, err := est95.Predict(fv)
		if err != nil {
			return nil, fmt.Errorf("predict p95: %w", err)
		}

		// Monotonic band is a hard post-condition: clamp the outer bands
		// toward the median, never adjust the median.
		if y05 > y50 {
			y05 = y50
		}
		if y95 < y50 {
			y95 = y50
		}

		out = append(out, models.ForecastPoint{Date: day, Forecast: y50, P05: y05, P95: y95})

		// Recursive feedback uses the median path only.
		hist = append(hist, y50)
		day = day.AddDate(0, 0, 1)
	}

	return out, nil
}

// loadBandOrFallback loads a band estimator, substituting the median estimator
// when the quantile-specific artifact is absent. Any other load failure
// propagates.
func (f *Forecaster) loadBandOrFallback(ctx context.Context, flow domrepo.FlowKey, q domrepo.QuantileLabel, fallback domrepo.Estimator) (domrepo.Estimator, error) {
	est, err := f.store.Load(ctx, flow, q)
	if err == nil {
		if f.metrics != nil {
			f.metrics.RecordModelLoad(string(flow), string(q))
		}
		return est, nil
	}
	if errors.Is(err, domrepo.ErrModelNotFound) {
		if f.l != nil {
			f.l.Warn("quantile artifact missing, degrading to p50",
				applogger.String("flow", string(flow)),
				applogger.String("quantile", string(q)),
			)
		}
		return fallback, nil
	}
	return nil, fmt.Errorf("load %s/%s: %w", flow, q, err)
}
