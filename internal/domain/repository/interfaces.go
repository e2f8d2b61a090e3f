package repository

import (
	"context"

	"CargoCast/internal/domain/models"
)

// SeriesStore provides gap-filled daily weight history per flow. A flow with
// no data yields an empty series, not an error.
type SeriesStore interface {
	Get(ctx context.Context, flow FlowKey) (models.DailySeries, error)
	Datasets(ctx context.Context) ([]models.DatasetInfo, error)
}

// SeriesReloader re-reads dataset sources on demand. Implemented by stores
// that snapshot their backing files; live backends do not reload.
type SeriesReloader interface {
	Reload(ctx context.Context) (models.ReloadReport, error)
}

// Estimator is a trained point estimator. Predict takes a feature vector in
// the ordering the model was trained with and returns a prediction in original
// units (kg, >= 0). A vector of the wrong length is a FeatureShapeMismatchError.
type Estimator interface {
	Predict(features []float64) (float64, error)
}

// ModelStore loads trained quantile estimators and their feature ordering.
// Load returns ErrModelNotFound (wrapped) when no artifact exists for the
// (flow, quantile) pair.
type ModelStore interface {
	Load(ctx context.Context, flow FlowKey, q QuantileLabel) (Estimator, error)
	FeatureNames(ctx context.Context, flow FlowKey) ([]string, error)
}

// RunStore persists run bookkeeping records and materialized run series.
type RunStore interface {
	Create(ctx context.Context, run *models.Run) error
	Get(ctx context.Context, id string) (*models.Run, error)
	List(ctx context.Context) ([]*models.Run, error)
	Finish(ctx context.Context, id string, status models.RunStatus, message string) error
	SaveSeries(ctx context.Context, runID string, payload []byte, generatedAt string) error
	GetSeries(ctx context.Context, runID string) ([]byte, bool, error)
	Close() error
}

// RunEventPublisher emits run lifecycle events to an external broker.
type RunEventPublisher interface {
	Publish(ctx context.Context, ev models.RunEvent) error
	Close() error
}

// Metrics records operational metrics for the forecasting pipeline.
type Metrics interface {
	RecordForecast(flow string, horizonDays int)
	RecordBacktest(flow, method string)
	RecordFallback(flow string)
	RecordModelLoad(flow, quantile string)
	RecordLatency(op string, seconds float64)
}
