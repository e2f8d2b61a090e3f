package usecase

import (
	"sort"

	"CargoCast/internal/domain/models"
)

// outlierScore ranks a day by APE when defined, falling back to the absolute
// error for near-zero days whose APE is suppressed by the floor.
func outlierScore(p models.DailyErrorPoint) float64 {
	if p.APE != nil {
		return *p.APE
	}
	return p.AbsError
}

// RankOutliers returns the top-limit days by outlier score. Ties break on
// abs_error (descending), then date (ascending), so the ordering is
// deterministic for identical inputs.
func RankOutliers(points []models.DailyErrorPoint, limit int) []models.DailyErrorPoint {
	if limit < 1 {
		limit = 1
	}
	out := make([]models.DailyErrorPoint, len(points))
	copy(out, points)
	sort.SliceStable(out, func(i, j int) bool {
		si, sj := outlierScore(out[i]), outlierScore(out[j])
		if si != sj {
			return si > sj
		}
		if out[i].AbsError != out[j].AbsError {
			return out[i].AbsError > out[j].AbsError
		}
		return out[i].Date.Before(out[j].Date)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// LatestN returns the most recent limit days in chronological order.
func LatestN(points []models.DailyErrorPoint, limit int) []models.DailyErrorPoint {
	if limit < 1 {
		limit = 1
	}
	if len(points) > limit {
		points = points[len(points)-limit:]
	}
	out := make([]models.DailyErrorPoint, len(points))
	copy(out, points)
	return out
}
