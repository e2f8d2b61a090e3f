package usecase

import (
	"testing"
	"time"

	"CargoCast/internal/domain/models"

	"github.com/stretchr/testify/require"
)

func errPoint(dateStr string, score float64, withAPE bool, absErr float64) models.DailyErrorPoint {
	d, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		panic(err)
	}
	p := models.DailyErrorPoint{
		Date:     d,
		DateStr:  dateStr,
		AbsError: absErr,
	}
	if withAPE {
		ape := score
		p.APE = &ape
	} else {
		p.AbsError = score
	}
	return p
}

func TestRankOutliersOrdersByScoreDesc(t *testing.T) {
	points := []models.DailyErrorPoint{
		errPoint("2025-01-01", 0.2, true, 20),
		errPoint("2025-01-02", 50, false, 50),
		errPoint("2025-01-03", 1.5, true, 30),
	}
	got := RankOutliers(points, 10)
	require.Equal(t, []string{"2025-01-02", "2025-01-03", "2025-01-01"},
		[]string{got[0].DateStr, got[1].DateStr, got[2].DateStr})
}

func TestRankOutliersTieBreaksOnAbsErrorThenDate(t *testing.T) {
	a := errPoint("2025-01-03", 0.5, true, 10)
	b := errPoint("2025-01-01", 0.5, true, 40)
	c := errPoint("2025-01-02", 0.5, true, 10)

	got := RankOutliers([]models.DailyErrorPoint{a, b, c}, 3)
	// Same score: larger abs_error first, then earlier date.
	require.Equal(t, []string{"2025-01-01", "2025-01-02", "2025-01-03"},
		[]string{got[0].DateStr, got[1].DateStr, got[2].DateStr})
}

func TestRankOutliersTrimsToLimit(t *testing.T) {
	points := []models.DailyErrorPoint{
		errPoint("2025-01-01", 3, true, 1),
		errPoint("2025-01-02", 2, true, 1),
		errPoint("2025-01-03", 1, true, 1),
	}
	got := RankOutliers(points, 2)
	require.Len(t, got, 2)
	require.Equal(t, "2025-01-01", got[0].DateStr)
}

func TestRankOutliersLimitFlooredAtOne(t *testing.T) {
	points := []models.DailyErrorPoint{
		errPoint("2025-01-01", 3, true, 1),
		errPoint("2025-01-02", 7, true, 1),
	}
	got := RankOutliers(points, 0)
	require.Len(t, got, 1)
	require.Equal(t, "2025-01-02", got[0].DateStr)
}

func TestRankOutliersDoesNotMutateInput(t *testing.T) {
	points := []models.DailyErrorPoint{
		errPoint("2025-01-01", 1, true, 1),
		errPoint("2025-01-02", 2, true, 1),
	}
	_ = RankOutliers(points, 1)
	require.Equal(t, "2025-01-01", points[0].DateStr)
}

func TestLatestNKeepsChronologicalTail(t *testing.T) {
	points := []models.DailyErrorPoint{
		errPoint("2025-01-01", 1, true, 1),
		errPoint("2025-01-02", 2, true, 1),
		errPoint("2025-01-03", 3, true, 1),
	}
	got := LatestN(points, 2)
	require.Equal(t, []string{"2025-01-02", "2025-01-03"},
		[]string{got[0].DateStr, got[1].DateStr})

	got = LatestN(points, 0)
	require.Len(t, got, 1)
	require.Equal(t, "2025-01-03", got[0].DateStr)
}
