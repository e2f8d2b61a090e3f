package repository

import (
	"context"
	"path/filepath"
	"testing"

	"CargoCast/internal/domain/models"

	"github.com/stretchr/testify/require"
)

func openRunStore(t *testing.T) *SQLiteRunStore {
	t.Helper()
	store, err := NewSQLiteRunStore(filepath.Join(t.TempDir(), "runs.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleRun(id string) *models.Run {
	return &models.Run{
		ID:        id,
		Status:    models.RunQueued,
		CreatedAt: "2025-06-01T10:00:00Z",
		Params: &models.RunParams{
			FlowKey:     "export",
			StartDate:   "2025-06-02",
			HorizonDays: 28,
			HistoryDays: 180,
		},
	}
}

func TestRunStoreCreateAndGet(t *testing.T) {
	store := openRunStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, sampleRun("r1")))

	got, err := store.Get(ctx, "r1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, models.RunQueued, got.Status)
	require.NotNil(t, got.Params)
	require.Equal(t, "export", got.Params.FlowKey)
	require.Equal(t, 28, got.Params.HorizonDays)
	require.Nil(t, got.StartedAt)
	require.Nil(t, got.Error)
}

func TestRunStoreGetMissing(t *testing.T) {
	store := openRunStore(t)
	got, err := store.Get(context.Background(), "nope")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestRunStoreListNewestFirst(t *testing.T) {
	store := openRunStore(t)
	ctx := context.Background()

	a := sampleRun("a")
	a.CreatedAt = "2025-06-01T10:00:00Z"
	b := sampleRun("b")
	b.CreatedAt = "2025-06-02T10:00:00Z"
	require.NoError(t, store.Create(ctx, a))
	require.NoError(t, store.Create(ctx, b))

	runs, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	require.Equal(t, "b", runs[0].ID)
	require.Equal(t, "a", runs[1].ID)
}

func TestRunStoreLifecycle(t *testing.T) {
	store := openRunStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, sampleRun("r1")))
	require.NoError(t, store.Finish(ctx, "r1", models.RunRunning, ""))

	got, err := store.Get(ctx, "r1")
	require.NoError(t, err)
	require.Equal(t, models.RunRunning, got.Status)
	require.NotNil(t, got.StartedAt)
	require.Nil(t, got.FinishedAt)

	require.NoError(t, store.Finish(ctx, "r1", models.RunSuccess, "forecast ready"))
	got, err = store.Get(ctx, "r1")
	require.NoError(t, err)
	require.Equal(t, models.RunSuccess, got.Status)
	require.NotNil(t, got.FinishedAt)
	require.NotNil(t, got.Message)
	require.Equal(t, "forecast ready", *got.Message)
}

func TestRunStoreFailureRecordsError(t *testing.T) {
	store := openRunStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, sampleRun("r1")))
	require.NoError(t, store.Finish(ctx, "r1", models.RunFailed, "no data for flow"))

	got, err := store.Get(ctx, "r1")
	require.NoError(t, err)
	require.Equal(t, models.RunFailed, got.Status)
	require.NotNil(t, got.Error)
	require.Equal(t, "no data for flow", *got.Error)
}

func TestRunStoreFinishUnknownRun(t *testing.T) {
	store := openRunStore(t)
	err := store.Finish(context.Background(), "nope", models.RunSuccess, "")
	require.Error(t, err)
}

func TestRunStoreSeriesRoundTrip(t *testing.T) {
	store := openRunStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, sampleRun("r1")))

	_, ok, err := store.GetSeries(ctx, "r1")
	require.NoError(t, err)
	require.False(t, ok)

	payload := []byte(`{"actuals":[],"forecast":[]}`)
	require.NoError(t, store.SaveSeries(ctx, "r1", payload, "2025-06-01T11:00:00Z"))

	got, ok, err := store.GetSeries(ctx, "r1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, payload, got)

	// Saving again replaces the payload.
	require.NoError(t, store.SaveSeries(ctx, "r1", []byte(`{}`), "2025-06-01T12:00:00Z"))
	got, ok, err = store.GetSeries(ctx, "r1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte(`{}`), got)
}
