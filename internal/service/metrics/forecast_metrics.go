package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	ForecastsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cargocast",
			Subsystem: "forecast",
			Name:      "requests_total",
			Help:      "Forecast computations by flow",
		},
		[]string{"flow"},
	)

	ForecastHorizonDays = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cargocast",
			Subsystem: "forecast",
			Name:      "horizon_days",
			Help:      "Requested forecast horizons",
			Buckets:   []float64{1, 7, 14, 28, 56, 90},
		},
		[]string{"flow"},
	)

	BacktestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cargocast",
			Subsystem: "backtest",
			Name:      "runs_total",
			Help:      "Backtest computations by flow and method",
		},
		[]string{"flow", "method"},
	)

	FallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cargocast",
			Subsystem: "backtest",
			Name:      "fallbacks_total",
			Help:      "Walk-forward failures that fell back to naive persistence",
		},
		[]string{"flow"},
	)

	ModelLoadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cargocast",
			Subsystem: "models",
			Name:      "loads_total",
			Help:      "Model artifact loads by flow and quantile",
		},
		[]string{"flow", "quantile"},
	)

	OpLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cargocast",
			Subsystem: "engine",
			Name:      "latency_seconds",
			Help:      "Latency of forecast and backtest computations",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	EndpointErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cargocast",
			Subsystem: "api",
			Name:      "errors_total",
			Help:      "Errors by API endpoint",
		},
		[]string{"endpoint"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			ForecastsTotal,
			ForecastHorizonDays,
			BacktestsTotal,
			FallbacksTotal,
			ModelLoadsTotal,
			OpLatency,
			EndpointErrors,
		)
	})
}

// Recorder adapts the Prometheus collectors to the domain metrics interface.
type Recorder struct{}

func NewRecorder() *Recorder {
	Register()
	return &Recorder{}
}

func (Recorder) RecordForecast(flow string, horizonDays int) {
	ForecastsTotal.WithLabelValues(flow).Inc()
	ForecastHorizonDays.WithLabelValues(flow).Observe(float64(horizonDays))
}

func (Recorder) RecordBacktest(flow, method string) {
	BacktestsTotal.WithLabelValues(flow, method).Inc()
}

func (Recorder) RecordFallback(flow string) {
	FallbacksTotal.WithLabelValues(flow).Inc()
}

func (Recorder) RecordModelLoad(flow, quantile string) {
	ModelLoadsTotal.WithLabelValues(flow, quantile).Inc()
}

func (Recorder) RecordLatency(op string, seconds float64) {
	OpLatency.WithLabelValues(op).Observe(seconds)
}
