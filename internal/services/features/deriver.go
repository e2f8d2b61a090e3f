package features

import (
	"fmt"
	"math"
	"time"
)

// Feature names understood by Derive. The trained models carry their own
// ordered subset of these in a sidecar file; Derive emits exactly the columns
// the caller asks for, in the caller's order.
const (
	DOW       = "dow"
	Month     = "month"
	IsWeekend = "is_weekend"
)

var lagDays = []int{1, 7, 14, 28}
var rollWindows = []int{7, 14, 28}

// Derive computes the feature vector for a single target day from the daily
// history ending the day before. History values are clamped to >= 0 and moved
// to log1p space before any lag or rolling computation; rolling windows skip
// the most recent day so they never see same-day information.
//
// Short history degrades instead of failing: lags fall back to the oldest
// log value, rolling windows shrink to whatever is available.
func Derive(history []float64, day time.Time, columns []string) ([]float64, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("derive features: empty column list")
	}

	yLog := make([]float64, len(history))
	for i, v := range history {
		if v < 0 {
			v = 0
		}
		yLog[i] = math.Log1p(v)
	}

	// Rolling stats exclude the lag-1 value (shift-by-one).
	rollBase := yLog
	if len(yLog) > 1 {
		rollBase = yLog[:len(yLog)-1]
	}

	feats := map[string]float64{
		DOW:       float64(mondayIndexedWeekday(day)),
		Month:     float64(day.Month()),
		IsWeekend: 0,
	}
	if mondayIndexedWeekday(day) >= 5 {
		feats[IsWeekend] = 1
	}
	for _, k := range lagDays {
		feats[lagName(k)] = lag(yLog, k)
	}
	for _, w := range rollWindows {
		tail := tailWindow(rollBase, w)
		feats[rollMeanName(w)] = mean(tail)
		feats[rollStdName(w)] = std(tail)
	}

	out := make([]float64, len(columns))
	for i, c := range columns {
		v, ok := feats[c]
		if !ok {
			return nil, fmt.Errorf("derive features: unknown column %q", c)
		}
		out[i] = v
	}
	return out, nil
}

// mondayIndexedWeekday maps Monday to 0 and Sunday to 6, matching the
// convention the models were trained with.
func mondayIndexedWeekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

func lagName(k int) string      { return fmt.Sprintf("lag_%d", k) }
func rollMeanName(w int) string { return fmt.Sprintf("roll_mean_%d", w) }
func rollStdName(w int) string  { return fmt.Sprintf("roll_std_%d", w) }

func lag(yLog []float64, k int) float64 {
	if len(yLog) == 0 {
		return 0
	}
	if len(yLog) >= k {
		return yLog[len(yLog)-k]
	}
	return yLog[0]
}

func tailWindow(xs []float64, w int) []float64 {
	if len(xs) <= w {
		return xs
	}
	return xs[len(xs)-w:]
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// std is the population standard deviation, matching the training pipeline.
func std(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := mean(xs)
	sum2 := 0.0
	for _, x := range xs {
		d := x - m
		sum2 += d * d
	}
	return math.Sqrt(sum2 / float64(len(xs)))
}
