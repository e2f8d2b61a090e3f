package models

// RunStatus is the lifecycle state of a forecast run.
type RunStatus string

const (
	RunQueued   RunStatus = "queued"
	RunRunning  RunStatus = "running"
	RunSuccess  RunStatus = "success"
	RunFailed   RunStatus = "failed"
	RunCanceled RunStatus = "canceled"
)

// RunParams are the persisted parameters of a run.
type RunParams struct {
	FlowKey     string            `json:"flow_key"`
	StartDate   string            `json:"start_date"`
	HorizonDays int               `json:"horizon_days"`
	HistoryDays int               `json:"history_days"`
	Tags        map[string]string `json:"tags,omitempty"`
}

// Run is a bookkeeping record for one forecast request.
type Run struct {
	ID         string            `json:"id"`
	Status     RunStatus         `json:"status"`
	CreatedAt  string            `json:"created_at"`
	StartedAt  *string           `json:"started_at"`
	FinishedAt *string           `json:"finished_at"`
	Message    *string           `json:"message"`
	Error      *string           `json:"error"`
	Params     *RunParams        `json:"params"`
	Links      map[string]string `json:"links,omitempty"`
}

// RunEvent is published on run lifecycle transitions.
type RunEvent struct {
	RunID     string    `json:"run_id"`
	Status    RunStatus `json:"status"`
	FlowKey   string    `json:"flow_key"`
	Timestamp string    `json:"timestamp"`
	Error     string    `json:"error,omitempty"`
}

// SeriesActualPoint is one historical day in a run series payload.
type SeriesActualPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// SeriesForecastPoint is one forecast day in a run series payload.
type SeriesForecastPoint struct {
	Date     string  `json:"date"`
	Forecast float64 `json:"forecast"`
	P05      float64 `json:"p05"`
	P95      float64 `json:"p95"`
}

// RunSeries is the materialized actuals+forecast payload of a run.
type RunSeries struct {
	Meta     map[string]any        `json:"meta"`
	Actuals  []SeriesActualPoint   `json:"actuals"`
	Forecast []SeriesForecastPoint `json:"forecast"`
}
