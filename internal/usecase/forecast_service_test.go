package usecase

import (
	"context"
	"testing"

	"CargoCast/internal/domain/models"
	domrepo "CargoCast/internal/domain/repository"

	"github.com/stretchr/testify/require"
)

// fakeSeriesStore serves canned series per flow.
type fakeSeriesStore struct {
	series map[domrepo.FlowKey]models.DailySeries
}

func newFakeSeriesStore() *fakeSeriesStore {
	return &fakeSeriesStore{series: map[domrepo.FlowKey]models.DailySeries{}}
}

func (s *fakeSeriesStore) Get(_ context.Context, flow domrepo.FlowKey) (models.DailySeries, error) {
	if !domrepo.IsValidFlow(flow) {
		return models.DailySeries{}, domrepo.ErrUnknownDataset
	}
	return s.series[flow], nil
}

func (s *fakeSeriesStore) Datasets(context.Context) ([]models.DatasetInfo, error) {
	out := make([]models.DatasetInfo, 0, len(s.series))
	for flow := range s.series {
		out = append(out, models.DatasetInfo{Key: string(flow), Exists: true})
	}
	return out, nil
}

func newTestService(series *fakeSeriesStore, store domrepo.ModelStore) *ForecastService {
	f := NewForecaster(store)
	return NewForecastService(series, f, NewBacktestEngine(f))
}

func TestServiceForecastUsesHistoryBeforeStart(t *testing.T) {
	series := newFakeSeriesStore()
	series.series[domrepo.FlowExport] = seriesFrom(day(2025, 1, 1), []float64{10, 20, 30})

	store := newFakeModelStore()
	store.estimators[domrepo.QuantP50] = constEstimator(25)
	svc := newTestService(series, store)

	resp, err := svc.Forecast(context.Background(), "export", day(2025, 1, 4), 2)
	require.NoError(t, err)
	require.Equal(t, "export", resp.Flow)
	require.Equal(t, "2025-01-04", resp.StartDate)
	require.Equal(t, 2, resp.HorizonDays)
	require.Len(t, resp.Forecast, 2)
	require.Equal(t, "2025-01-04", resp.Forecast[0].Date)
	require.Equal(t, 25.0, resp.Forecast[0].Forecast)
}

func TestServiceForecastNormalizesLegacyFlowNames(t *testing.T) {
	series := newFakeSeriesStore()
	series.series[domrepo.FlowImport] = seriesFrom(day(2025, 1, 1), []float64{5})

	store := newFakeModelStore()
	store.estimators[domrepo.QuantP50] = constEstimator(1)
	svc := newTestService(series, store)

	resp, err := svc.Forecast(context.Background(), "xgb_import", day(2025, 1, 2), 1)
	require.NoError(t, err)
	require.Equal(t, "import", resp.Flow)
}

func TestServiceForecastNoHistory(t *testing.T) {
	series := newFakeSeriesStore()
	series.series[domrepo.FlowExport] = seriesFrom(day(2025, 6, 1), []float64{10})
	svc := newTestService(series, newFakeModelStore())

	// Start at or before the first observation: nothing precedes it.
	_, err := svc.Forecast(context.Background(), "export", day(2025, 6, 1), 7)
	require.ErrorIs(t, err, domrepo.ErrNoHistory)

	// Empty flow altogether.
	_, err = svc.Forecast(context.Background(), "tra_export", day(2025, 6, 1), 7)
	require.ErrorIs(t, err, domrepo.ErrNoHistory)
}

func TestServiceForecastUnknownFlow(t *testing.T) {
	svc := newTestService(newFakeSeriesStore(), newFakeModelStore())
	_, err := svc.Forecast(context.Background(), "bogus", day(2025, 1, 1), 7)
	require.ErrorIs(t, err, domrepo.ErrUnknownDataset)
}

func TestServiceActualsTail(t *testing.T) {
	series := newFakeSeriesStore()
	series.series[domrepo.FlowExport] = seriesFrom(day(2025, 1, 1), []float64{1, 2, 3, 4})
	svc := newTestService(series, newFakeModelStore())

	all, err := svc.Actuals(context.Background(), "export", 0)
	require.NoError(t, err)
	require.Len(t, all, 4)

	tail, err := svc.Actuals(context.Background(), "export", 2)
	require.NoError(t, err)
	require.Len(t, tail, 2)
	require.Equal(t, "2025-01-03", tail[0].Date)
	require.Equal(t, 4.0, tail[1].Value)
}

func TestServiceBacktestDelegates(t *testing.T) {
	series := newFakeSeriesStore()
	series.series[domrepo.FlowExport] = seriesFrom(day(2025, 1, 1), []float64{10, 20, 30})
	svc := newTestService(series, newFakeModelStore()) // no models: naive path

	report, err := svc.Backtest(context.Background(), "export", BacktestParams{
		StartDate:    day(2025, 1, 4),
		BacktestDays: 2,
	})
	require.NoError(t, err)
	require.Equal(t, MethodNaivePersistence, report.Metrics.Method)
	require.Equal(t, 2, report.Metrics.N)
}

type fakeReloader struct {
	report models.ReloadReport
	calls  int
}

func (f *fakeReloader) Reload(context.Context) (models.ReloadReport, error) {
	f.calls++
	return f.report, nil
}

func TestServiceReloadDatasets(t *testing.T) {
	svc := newTestService(newFakeSeriesStore(), newFakeModelStore())
	rel := &fakeReloader{report: models.ReloadReport{
		Loaded:             []models.DatasetInfo{{Key: "export", Exists: true}},
		SkippedMissingFile: []models.DatasetInfo{{Key: "import"}},
	}}
	svc.SetReloader(rel)

	report, err := svc.ReloadDatasets(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, rel.calls)
	require.Len(t, report.Loaded, 1)
	require.Len(t, report.SkippedMissingFile, 1)
}

func TestServiceReloadDatasetsUnsupported(t *testing.T) {
	svc := newTestService(newFakeSeriesStore(), newFakeModelStore())

	_, err := svc.ReloadDatasets(context.Background())
	require.ErrorIs(t, err, domrepo.ErrReloadUnsupported)
}
