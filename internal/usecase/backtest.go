package usecase

import (
	"context"
	"errors"
	"math"
	"sort"
	"time"

	"CargoCast/internal/domain/models"
	domrepo "CargoCast/internal/domain/repository"
	applogger "CargoCast/pkg/logger"
)

const (
	// MethodModelWalkForward evaluates the trained models one day at a time,
	// feeding each day's true actual back into the history.
	MethodModelWalkForward = "model_walk_forward"
	// MethodNaivePersistence is the fallback: forecast(t) = last actual before t.
	MethodNaivePersistence = "naive_persistence"

	apeFloorFraction = 0.01
	apeFloorMinimum  = 1.0
)

var errUnexpectedHorizon = errors.New("forecaster returned unexpected horizon")

// BacktestParams controls one backtest computation.
type BacktestParams struct {
	StartDate          time.Time
	BacktestDays       int
	IncludeDailyErrors bool
	DailyErrorsLimit   int
	OutliersOnly       bool
}

// BacktestEngine replays a forecasting method against known history and
// scores it. The model-based walk-forward is the primary path; any failure in
// it discards that path's partial results and switches the whole window to
// naive persistence, so a backtest always yields a usable report.
type BacktestEngine struct {
	forecaster *Forecaster
	l          *applogger.Logger
	metrics    domrepo.Metrics
}

func NewBacktestEngine(forecaster *Forecaster) *BacktestEngine {
	return &BacktestEngine{forecaster: forecaster}
}

// SetLogger injects a structured logger.
func (e *BacktestEngine) SetLogger(l *applogger.Logger) { e.l = l }

// SetMetrics injects a metrics recorder.
func (e *BacktestEngine) SetMetrics(m domrepo.Metrics) { e.metrics = m }

// backtestPath is the outcome of the single try/fallback boundary: either the
// model path's predictions, or the fallback with the captured failure.
type backtestPath struct {
	method      string
	forecasts   []float64
	methodError *string
}

// Run computes the backtest report for one flow over the window ending the
// day before params.StartDate.
func (e *BacktestEngine) Run(ctx context.Context, flow domrepo.FlowKey, series models.DailySeries, params BacktestParams) models.BacktestReport {
	window := resolveWindow(series, params.StartDate, params.BacktestDays)
	report := models.BacktestReport{
		Flow: string(flow),
		Window: models.WindowJSON{
			From:         window.From.Format("2006-01-02"),
			To:           window.To.Format("2006-01-02"),
			BacktestDays: window.BacktestDays,
		},
		DailyErrors: []models.DailyErrorPoint{},
	}

	if window.Empty() || series.Empty() {
		return report
	}

	actuals := series.Slice(window.From, window.To)
	history := series.ValuesBefore(window.From)

	path := e.modelWalkForward(ctx, flow, history, actuals, window)
	if path.methodError != nil {
		if e.l != nil {
			e.l.Warn("model walk-forward failed, falling back to naive persistence",
				applogger.String("flow", string(flow)),
				applogger.String("error", *path.methodError),
			)
		}
		if e.metrics != nil {
			e.metrics.RecordFallback(string(flow))
		}
	}
	if e.metrics != nil {
		e.metrics.RecordBacktest(string(flow), path.method)
	}

	report.Metrics, report.DailyErrors = scoreWindow(window, actuals, path, params)
	return report
}

// modelWalkForward scores every window day with a 1-day model forecast,
// appending the day's true actual to the rolling history afterwards. On any
// error it abandons all partial results and returns the naive path instead;
// the two methods are never mixed within one window.
func (e *BacktestEngine) modelWalkForward(ctx context.Context, flow domrepo.FlowKey, history, actuals []float64, window models.BacktestWindow) backtestPath {
	hist := make([]float64, len(history), len(history)+len(actuals))
	copy(hist, history)

	forecasts := make([]float64, 0, len(actuals))
	day := window.From
	for i := range actuals {
		pts, err := e.forecaster.Forecast(ctx, flow, hist, day, 1)
		if err == nil && len(pts) != 1 {
			err = errUnexpectedHorizon
		}
		if err != nil {
			msg := err.Error()
			return backtestPath{
				method:      MethodNaivePersistence,
				forecasts:   naivePersistence(history, actuals),
				methodError: &msg,
			}
		}
		forecasts = append(forecasts, pts[0].Forecast)
		hist = append(hist, actuals[i])
		day = day.AddDate(0, 0, 1)
	}
	return backtestPath{method: MethodModelWalkForward, forecasts: forecasts}
}

// naivePersistence forecasts each day as the previous day's actual. The first
// day uses the last actual before the window, or 0.0 if none exists.
func naivePersistence(history, actuals []float64) []float64 {
	prev := 0.0
	if len(history) > 0 {
		prev = history[len(history)-1]
	}
	if prev < 0 {
		prev = 0
	}
	out := make([]float64, len(actuals))
	for i, a := range actuals {
		out[i] = prev
		prev = a
		if prev < 0 {
			prev = 0
		}
	}
	return out
}

// resolveWindow clips the requested window to the available actuals:
// to = min(startDate-1, last actual), from = to-(days-1). An empty series
// yields an inverted (empty) window.
func resolveWindow(series models.DailySeries, startDate time.Time, backtestDays int) models.BacktestWindow {
	to := models.DayFloor(startDate).AddDate(0, 0, -1)
	if end := series.End(); !series.Empty() && end.Before(to) {
		to = end
	}
	from := to.AddDate(0, 0, -(backtestDays - 1))
	return models.BacktestWindow{From: from, To: to, BacktestDays: backtestDays}
}

// scoreWindow computes per-day errors and aggregate metrics for a resolved
// path. The APE denominator floor is computed once for the window and threaded
// through every day.
func scoreWindow(window models.BacktestWindow, actuals []float64, path backtestPath, params BacktestParams) (models.BacktestMetrics, []models.DailyErrorPoint) {
	floor := apeFloor(actuals)

	var (
		sumActual, sumErr, sumAbsErr float64
		apes, smapes                 []float64
		zeroDays                     int
		points                       []models.DailyErrorPoint
	)

	for i, actual := range actuals {
		forecast := path.forecasts[i]
		errVal := forecast - actual
		absErr := math.Abs(errVal)

		sumActual += actual
		sumErr += errVal
		sumAbsErr += absErr
		if actual == 0 {
			zeroDays++
		}

		ape := computeAPE(absErr, actual, floor)
		if ape != nil {
			apes = append(apes, *ape)
		}
		if den := math.Abs(actual) + math.Abs(forecast); den > 0 {
			smapes = append(smapes, 2*absErr/den)
		}

		date := window.From.AddDate(0, 0, i)
		points = append(points, models.DailyErrorPoint{
			Date:     date,
			DateStr:  date.Format("2006-01-02"),
			Actual:   actual,
			Forecast: forecast,
			Error:    errVal,
			AbsError: absErr,
			APE:      ape,
		})
	}

	n := len(actuals)
	metrics := models.BacktestMetrics{
		N:                 n,
		Method:            path.method,
		MethodError:       path.methodError,
		ZeroActualDays:    zeroDays,
		NonzeroActualDays: n - zeroDays,
		APEFloor:          floor,
		MAPEPct:           pctMean(apes),
		SMAPEPct:          pctMean(smapes),
	}
	if sumActual != 0 {
		metrics.WAPEPct = f64ptr(100 * sumAbsErr / sumActual)
		metrics.BiasPct = f64ptr(100 * sumErr / sumActual)
	}

	if !params.IncludeDailyErrors {
		return metrics, []models.DailyErrorPoint{}
	}
	limit := params.DailyErrorsLimit
	if limit < 1 {
		limit = 1
	}
	if params.OutliersOnly {
		return metrics, RankOutliers(points, limit)
	}
	return metrics, LatestN(points, limit)
}

// apeFloor derives the per-window APE denominator floor: 1% of the
// upper-median non-zero actual, never below an absolute minimum of 1.0.
// All-zero windows use the absolute minimum alone.
func apeFloor(actuals []float64) float64 {
	nonZero := make([]float64, 0, len(actuals))
	for _, a := range actuals {
		if v := math.Abs(a); v > 0 {
			nonZero = append(nonZero, v)
		}
	}
	if len(nonZero) == 0 {
		return apeFloorMinimum
	}
	sort.Float64s(nonZero)
	floor := nonZero[len(nonZero)/2] * apeFloorFraction
	if floor < apeFloorMinimum {
		floor = apeFloorMinimum
	}
	return floor
}

// computeAPE returns abs_error/|actual|, or nil when the actual magnitude is
// below the window floor (keeps near-zero days from producing useless spikes).
func computeAPE(absErr, actual, floor float64) *float64 {
	if math.Abs(actual) < floor {
		return nil
	}
	return f64ptr(absErr / math.Abs(actual))
}

func pctMean(xs []float64) *float64 {
	if len(xs) == 0 {
		return nil
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return f64ptr(100 * sum / float64(len(xs)))
}

func f64ptr(v float64) *float64 { return &v }
