package models

import "time"

// ForecastPoint is one day of a quantile forecast. Invariant after clamping:
// 0 <= P05 <= Forecast <= P95.
type ForecastPoint struct {
	Date     time.Time
	Forecast float64
	P05      float64
	P95      float64
}

// BacktestWindow is the evaluated date range. To is the day before the
// requested start clipped to the last available actual; From is To minus
// (BacktestDays-1). An inverted range means there is nothing to evaluate.
type BacktestWindow struct {
	From         time.Time
	To           time.Time
	BacktestDays int
}

// Empty reports whether the window covers no days.
func (w BacktestWindow) Empty() bool { return w.To.Before(w.From) }

// Days returns the number of covered days (0 when empty).
func (w BacktestWindow) Days() int {
	if w.Empty() {
		return 0
	}
	return daysBetween(w.From, w.To) + 1
}

// DailyErrorPoint is one scored backtest day. APE is nil when the actual is
// below the window's denominator floor.
type DailyErrorPoint struct {
	Date     time.Time `json:"-"`
	DateStr  string    `json:"date"`
	Actual   float64   `json:"actual"`
	Forecast float64   `json:"forecast"`
	Error    float64   `json:"error"`
	AbsError float64   `json:"abs_error"`
	APE      *float64  `json:"ape"`
}

// BacktestMetrics aggregates a backtest window. Percentage fields are nil when
// undefined (empty window, or zero actual mass for WAPE/Bias).
type BacktestMetrics struct {
	N                 int      `json:"n"`
	Method            string   `json:"method"`
	MethodError       *string  `json:"method_error"`
	ZeroActualDays    int      `json:"zero_actual_days"`
	NonzeroActualDays int      `json:"nonzero_actual_days"`
	APEFloor          float64  `json:"ape_denominator_floor"`
	MAPEPct           *float64 `json:"mape_pct"`
	SMAPEPct          *float64 `json:"smape_pct"`
	WAPEPct           *float64 `json:"wape_pct"`
	BiasPct           *float64 `json:"bias_pct"`
}

// BacktestReport is the full backtest result.
type BacktestReport struct {
	Flow        string            `json:"flow"`
	Window      WindowJSON        `json:"window"`
	Metrics     BacktestMetrics   `json:"metrics"`
	DailyErrors []DailyErrorPoint `json:"daily_errors"`
}

// WindowJSON is the wire form of BacktestWindow.
type WindowJSON struct {
	From         string `json:"from"`
	To           string `json:"to"`
	BacktestDays int    `json:"backtest_days"`
}
