package repository

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"CargoCast/internal/domain/models"
	domrepo "CargoCast/internal/domain/repository"
	applogger "CargoCast/pkg/logger"
)

// Dataset exports produced upstream, one file per flow.
var datasetFiles = map[domrepo.FlowKey]string{
	domrepo.FlowExport:        "cl_export.csv",
	domrepo.FlowImport:        "cl_import.csv",
	domrepo.FlowTransitExport: "cl_tra_export.csv",
	domrepo.FlowTransitImport: "cl_tra_import.csv",
}

// Column names differ between export generations, so both the date and the
// weight column are detected per file from a candidate list.
var (
	dateColumns  = []string{"fl_gmt_departure_date", "fl_gmt_arrival_date", "am_action_date"}
	valueColumns = []string{"sum_weight", "weight_sum", "awb_weight", "am_weight"}

	dateLayouts = []string{
		"2006-01-02",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05Z07:00",
		"02.01.2006",
	}
)

// CSVSeriesStore reads per-flow daily weight history from CSV exports in a
// data directory. All files are parsed once per Reload; Get serves from memory.
type CSVSeriesStore struct {
	dir string
	l   *applogger.Logger

	mu     sync.RWMutex
	series map[domrepo.FlowKey]models.DailySeries
	meta   map[domrepo.FlowKey]models.SeriesMeta
}

func NewCSVSeriesStore(dir string, l *applogger.Logger) *CSVSeriesStore {
	return &CSVSeriesStore{
		dir:    dir,
		l:      l,
		series: make(map[domrepo.FlowKey]models.DailySeries),
		meta:   make(map[domrepo.FlowKey]models.SeriesMeta),
	}
}

// Reload re-reads every dataset file from disk and swaps the in-memory state.
// Missing files are skipped, not fatal: a deployment may carry only a subset
// of the flows.
func (s *CSVSeriesStore) Reload(ctx context.Context) (models.ReloadReport, error) {
	report := models.ReloadReport{Errors: map[string]string{}}
	loaded := make(map[domrepo.FlowKey]models.DailySeries, len(datasetFiles))
	meta := make(map[domrepo.FlowKey]models.SeriesMeta, len(datasetFiles))

	for _, flow := range domrepo.AllFlows() {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		info := s.datasetInfo(flow)

		if !info.Exists {
			report.SkippedMissingFile = append(report.SkippedMissingFile, info)
			continue
		}

		series, err := loadDailyFromCSV(info.Path)
		if err != nil {
			report.Failed = append(report.Failed, info)
			report.Errors[info.Key] = err.Error()
			if s.l != nil {
				s.l.Error("dataset load failed", applogger.Error(err), applogger.String("file", info.Path))
			}
			continue
		}
		if series.Empty() {
			report.SkippedEmptySeries = append(report.SkippedEmptySeries, info)
			continue
		}

		loaded[flow] = series
		meta[flow] = models.SeriesMeta{
			DataFrom: series.Start.Format("2006-01-02"),
			DataTo:   series.End().Format("2006-01-02"),
			Points:   series.Len(),
		}
		report.Loaded = append(report.Loaded, info)
		if s.l != nil {
			s.l.Info("dataset loaded",
				applogger.String("flow", string(flow)),
				applogger.Int("days", series.Len()),
				applogger.String("from", meta[flow].DataFrom),
				applogger.String("to", meta[flow].DataTo),
			)
		}
	}

	s.mu.Lock()
	s.series = loaded
	s.meta = meta
	s.mu.Unlock()
	return report, nil
}

// Get returns the daily series for flow. A known flow with no data yields an
// empty series; an unknown flow is an error.
func (s *CSVSeriesStore) Get(_ context.Context, flow domrepo.FlowKey) (models.DailySeries, error) {
	if _, ok := datasetFiles[flow]; !ok {
		return models.DailySeries{}, fmt.Errorf("%w: %q", domrepo.ErrUnknownDataset, flow)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.series[flow], nil
}

// Meta returns per-flow coverage metadata for the loaded datasets.
func (s *CSVSeriesStore) Meta(_ context.Context, flow domrepo.FlowKey) (models.SeriesMeta, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.meta[flow]
	return m, ok
}

// Datasets lists every configured dataset with its coverage metadata when the
// dataset is currently loaded.
func (s *CSVSeriesStore) Datasets(_ context.Context) ([]models.DatasetInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.DatasetInfo, 0, len(domrepo.AllFlows()))
	for _, flow := range domrepo.AllFlows() {
		info := s.datasetInfo(flow)
		if m, ok := s.meta[flow]; ok {
			meta := m
			info.Meta = &meta
		}
		out = append(out, info)
	}
	return out, nil
}

func (s *CSVSeriesStore) datasetInfo(flow domrepo.FlowKey) models.DatasetInfo {
	name := datasetFiles[flow]
	path := filepath.Join(s.dir, name)
	_, err := os.Stat(path)
	return models.DatasetInfo{
		Key:      string(flow),
		Filename: name,
		Path:     path,
		Exists:   err == nil,
	}
}

// loadDailyFromCSV parses one dataset file into a gap-filled daily series.
// Rows with an unparseable date or weight are skipped.
func loadDailyFromCSV(path string) (models.DailySeries, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.DailySeries{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		if err == io.EOF {
			return models.DailySeries{}, nil
		}
		return models.DailySeries{}, fmt.Errorf("read header of %s: %w", path, err)
	}

	dateIdx, err := findColumn(header, dateColumns)
	if err != nil {
		return models.DailySeries{}, fmt.Errorf("%s: %w", path, err)
	}
	valueIdx, err := findColumn(header, valueColumns)
	if err != nil {
		return models.DailySeries{}, fmt.Errorf("%s: %w", path, err)
	}

	var points []models.DailyPoint
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// A malformed row should not poison the whole dataset.
			continue
		}
		if dateIdx >= len(row) || valueIdx >= len(row) {
			continue
		}

		d, ok := parseAnyDate(row[dateIdx])
		if !ok {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(row[valueIdx]), 64)
		if err != nil {
			continue
		}
		points = append(points, models.DailyPoint{Date: d, Value: v})
	}

	return models.NewDailySeries(points), nil
}

func findColumn(header []string, candidates []string) (int, error) {
	norm := make(map[string]int, len(header))
	for i, h := range header {
		norm[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, c := range candidates {
		if i, ok := norm[c]; ok {
			return i, nil
		}
	}
	return 0, fmt.Errorf("no usable column among %v in header %v", candidates, header)
}

func parseAnyDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return models.DayFloor(t), true
		}
	}
	return time.Time{}, false
}
