package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func d(y, m, day int) time.Time {
	return time.Date(y, time.Month(m), day, 0, 0, 0, 0, time.UTC)
}

func TestNewDailySeriesFillsGapsAndSumsDuplicates(t *testing.T) {
	s := NewDailySeries([]DailyPoint{
		{Date: d(2025, 1, 5), Value: 3},
		{Date: d(2025, 1, 1), Value: 10},
		{Date: d(2025, 1, 1), Value: 5},
		{Date: d(2025, 1, 3), Value: -7}, // clamped to 0
	})

	require.Equal(t, d(2025, 1, 1), s.Start)
	require.Equal(t, []float64{15, 0, 0, 0, 3}, s.Values)
	require.Equal(t, d(2025, 1, 5), s.End())
}

func TestNewDailySeriesTruncatesTimeOfDay(t *testing.T) {
	s := NewDailySeries([]DailyPoint{
		{Date: time.Date(2025, 1, 1, 23, 59, 0, 0, time.UTC), Value: 1},
		{Date: time.Date(2025, 1, 1, 0, 1, 0, 0, time.UTC), Value: 2},
	})
	require.Equal(t, 1, s.Len())
	require.Equal(t, []float64{3}, s.Values)
}

func TestValuesBefore(t *testing.T) {
	s := NewDailySeries([]DailyPoint{
		{Date: d(2025, 1, 1), Value: 1},
		{Date: d(2025, 1, 2), Value: 2},
		{Date: d(2025, 1, 3), Value: 3},
	})

	require.Equal(t, []float64{1, 2}, s.ValuesBefore(d(2025, 1, 3)))
	require.Nil(t, s.ValuesBefore(d(2025, 1, 1)))
	require.Nil(t, s.ValuesBefore(d(2024, 12, 1)))
	// Dates past the end return the full history.
	require.Equal(t, []float64{1, 2, 3}, s.ValuesBefore(d(2025, 2, 1)))
}

func TestSliceFillsOutsideRangeWithZeros(t *testing.T) {
	s := NewDailySeries([]DailyPoint{
		{Date: d(2025, 1, 2), Value: 5},
		{Date: d(2025, 1, 3), Value: 6},
	})

	require.Equal(t, []float64{0, 5, 6, 0}, s.Slice(d(2025, 1, 1), d(2025, 1, 4)))
	require.Nil(t, s.Slice(d(2025, 1, 4), d(2025, 1, 1)))
}

func TestEmptySeries(t *testing.T) {
	var s DailySeries
	require.True(t, s.Empty())
	require.True(t, s.End().IsZero())
	require.Equal(t, []float64{0, 0}, s.Slice(d(2025, 1, 1), d(2025, 1, 2)))
}
