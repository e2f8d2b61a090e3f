package models

// ForecastRequest asks for a recursive multi-day forecast.
type ForecastRequest struct {
	StartDate   string `json:"start_date" validate:"required,datetime=2006-01-02"`
	HorizonDays int    `json:"horizon_days" default:"28" validate:"gt=0,lte=90"`
}

// ForecastResponsePoint is the wire form of a ForecastPoint.
type ForecastResponsePoint struct {
	Date     string  `json:"date"`
	Forecast float64 `json:"forecast"`
	P05      float64 `json:"p05"`
	P95      float64 `json:"p95"`
}

// ForecastResponse is the /forecast payload.
type ForecastResponse struct {
	Flow        string                  `json:"flow"`
	StartDate   string                  `json:"start_date"`
	HorizonDays int                     `json:"horizon_days"`
	Forecast    []ForecastResponsePoint `json:"forecast"`
}

// ActualPoint is one day of observed history.
type ActualPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// BacktestRequest asks for a walk-forward backtest ending the day before
// StartDate.
type BacktestRequest struct {
	StartDate    string `json:"start_date" validate:"required,datetime=2006-01-02"`
	BacktestDays int    `json:"backtest_days" default:"56" validate:"gte=7,lte=3650"`
}

// CreateRunRequest creates a run record; zero fields fall back to configured
// defaults.
type CreateRunRequest struct {
	FlowKey     string            `json:"flow_key" validate:"omitempty,oneof=export import tra_export tra_import"`
	StartDate   string            `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	HorizonDays int               `json:"horizon_days" validate:"omitempty,gte=1,lte=3650"`
	HistoryDays int               `json:"history_days" validate:"omitempty,gte=1,lte=3650"`
	Tags        map[string]string `json:"tags,omitempty"`
}
