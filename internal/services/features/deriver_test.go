package features

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestDeriveCalendarFeatures(t *testing.T) {
	cols := []string{"dow", "month", "is_weekend"}

	// 2025-01-06 is a Monday.
	got, err := Derive([]float64{10, 20, 30}, day(2025, time.January, 6), cols)
	require.NoError(t, err)
	require.Equal(t, []float64{0, 1, 0}, got)

	// 2025-01-11 is a Saturday.
	got, err = Derive([]float64{10, 20, 30}, day(2025, time.January, 11), cols)
	require.NoError(t, err)
	require.Equal(t, []float64{5, 1, 1}, got)

	// 2025-03-02 is a Sunday.
	got, err = Derive([]float64{10}, day(2025, time.March, 2), cols)
	require.NoError(t, err)
	require.Equal(t, []float64{6, 3, 1}, got)
}

func TestDeriveLags(t *testing.T) {
	hist := []float64{1, 2, 3, 4, 5, 6, 7}
	got, err := Derive(hist, day(2025, time.January, 8), []string{"lag_1", "lag_7"})
	require.NoError(t, err)
	require.InDelta(t, math.Log1p(7), got[0], 1e-12)
	require.InDelta(t, math.Log1p(1), got[1], 1e-12)
}

func TestDeriveLagShortHistoryFallsBackToOldest(t *testing.T) {
	got, err := Derive([]float64{3, 9}, day(2025, time.January, 8), []string{"lag_14", "lag_28"})
	require.NoError(t, err)
	require.InDelta(t, math.Log1p(3), got[0], 1e-12)
	require.InDelta(t, math.Log1p(3), got[1], 1e-12)
}

func TestDeriveRollingExcludesMostRecentDay(t *testing.T) {
	// Rolling stats must not see the lag-1 value 100.
	hist := []float64{10, 10, 100}
	got, err := Derive(hist, day(2025, time.January, 8), []string{"roll_mean_7", "roll_std_7"})
	require.NoError(t, err)
	require.InDelta(t, math.Log1p(10), got[0], 1e-12)
	require.InDelta(t, 0.0, got[1], 1e-12)
}

func TestDeriveRollingShrinksToAvailableHistory(t *testing.T) {
	hist := []float64{5, 7}
	got, err := Derive(hist, day(2025, time.January, 8), []string{"roll_mean_28"})
	require.NoError(t, err)
	// Only one day remains after the shift-by-one.
	require.InDelta(t, math.Log1p(5), got[0], 1e-12)
}

func TestDeriveSingleDayHistory(t *testing.T) {
	got, err := Derive([]float64{4}, day(2025, time.January, 8), []string{"lag_1", "roll_mean_7", "roll_std_14"})
	require.NoError(t, err)
	require.InDelta(t, math.Log1p(4), got[0], 1e-12)
	require.InDelta(t, math.Log1p(4), got[1], 1e-12)
	require.InDelta(t, 0.0, got[2], 1e-12)
}

func TestDeriveClampsNegativeValues(t *testing.T) {
	got, err := Derive([]float64{-50}, day(2025, time.January, 8), []string{"lag_1"})
	require.NoError(t, err)
	require.InDelta(t, 0.0, got[0], 1e-12)
}

func TestDeriveRespectsColumnOrder(t *testing.T) {
	hist := []float64{1, 2, 3}
	a, err := Derive(hist, day(2025, time.January, 8), []string{"month", "dow"})
	require.NoError(t, err)
	b, err := Derive(hist, day(2025, time.January, 8), []string{"dow", "month"})
	require.NoError(t, err)
	require.Equal(t, a[0], b[1])
	require.Equal(t, a[1], b[0])
}

func TestDeriveUnknownColumn(t *testing.T) {
	_, err := Derive([]float64{1}, day(2025, time.January, 8), []string{"lag_1", "nope"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "nope")
}
