package models

import (
	"time"
)

// DailyPoint is a single (day, value) observation.
type DailyPoint struct {
	Date  time.Time
	Value float64
}

// DailySeries is a continuous, gap-filled daily value sequence. The value at
// index i belongs to Start + i days. Invariant: consecutive entries are exactly
// one day apart (gaps are filled with 0.0 at construction) and all values are
// >= 0. Treat as immutable once handed to the engines.
type DailySeries struct {
	Start  time.Time
	Values []float64
}

// NewDailySeries builds a gap-filled series from unordered observations.
// Values on the same day are summed; missing days between the first and last
// observation become 0.0; negative values are clamped to 0.
func NewDailySeries(points []DailyPoint) DailySeries {
	if len(points) == 0 {
		return DailySeries{}
	}

	byDay := make(map[time.Time]float64, len(points))
	var first, last time.Time
	for _, p := range points {
		d := DayFloor(p.Date)
		v := p.Value
		if v < 0 {
			v = 0
		}
		byDay[d] += v
		if first.IsZero() || d.Before(first) {
			first = d
		}
		if last.IsZero() || d.After(last) {
			last = d
		}
	}

	n := daysBetween(first, last) + 1
	values := make([]float64, n)
	for d, v := range byDay {
		values[daysBetween(first, d)] = v
	}
	return DailySeries{Start: first, Values: values}
}

// Empty reports whether the series has no observations.
func (s DailySeries) Empty() bool { return len(s.Values) == 0 }

// Len returns the number of days covered.
func (s DailySeries) Len() int { return len(s.Values) }

// End returns the last covered day, or the zero time for an empty series.
func (s DailySeries) End() time.Time {
	if s.Empty() {
		return time.Time{}
	}
	return s.Start.AddDate(0, 0, len(s.Values)-1)
}

// ValuesBefore returns a copy of all values strictly before day.
func (s DailySeries) ValuesBefore(day time.Time) []float64 {
	if s.Empty() {
		return nil
	}
	d := DayFloor(day)
	if !d.After(s.Start) {
		return nil
	}
	n := daysBetween(s.Start, d)
	if n > len(s.Values) {
		n = len(s.Values)
	}
	out := make([]float64, n)
	copy(out, s.Values[:n])
	return out
}

// Slice returns one value per day for [from, to] inclusive. Days outside the
// covered range come back as 0.0 so callers always get a dense window.
func (s DailySeries) Slice(from, to time.Time) []float64 {
	from, to = DayFloor(from), DayFloor(to)
	if to.Before(from) {
		return nil
	}
	out := make([]float64, daysBetween(from, to)+1)
	if s.Empty() {
		return out
	}
	for i := range out {
		d := from.AddDate(0, 0, i)
		idx := daysBetween(s.Start, d)
		if idx >= 0 && idx < len(s.Values) {
			out[i] = s.Values[idx]
		}
	}
	return out
}

// Points expands the series back into per-day observations.
func (s DailySeries) Points() []DailyPoint {
	out := make([]DailyPoint, len(s.Values))
	for i, v := range s.Values {
		out[i] = DailyPoint{Date: s.Start.AddDate(0, 0, i), Value: v}
	}
	return out
}

// SeriesMeta describes a loaded dataset.
type SeriesMeta struct {
	DataFrom string `json:"data_from"`
	DataTo   string `json:"data_to"`
	Points   int    `json:"points"`
}

// DatasetInfo describes a discoverable dataset source. Meta is set only for
// datasets that are currently loaded.
type DatasetInfo struct {
	Key      string      `json:"key"`
	Filename string      `json:"filename"`
	Path     string      `json:"path"`
	Exists   bool        `json:"exists"`
	Meta     *SeriesMeta `json:"meta,omitempty"`
}

// ReloadReport summarizes a series store reload pass.
type ReloadReport struct {
	Loaded             []DatasetInfo     `json:"loaded"`
	SkippedMissingFile []DatasetInfo     `json:"skipped_missing_file"`
	SkippedEmptySeries []DatasetInfo     `json:"skipped_empty_series"`
	Failed             []DatasetInfo     `json:"failed"`
	Errors             map[string]string `json:"errors,omitempty"`
}

// DayFloor truncates t to UTC midnight.
func DayFloor(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}
