package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"CargoCast/internal/domain/models"
	domrepo "CargoCast/internal/domain/repository"
	pkgch "CargoCast/pkg/clickhouse"
	applogger "CargoCast/pkg/logger"
)

// CHSeriesStore serves daily weight history from a ClickHouse shipment table.
// It is an alternative to CSVSeriesStore for deployments that sit next to the
// warehouse instead of consuming file exports.
type CHSeriesStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewCHSeriesStore(ch *pkgch.Client, table string) *CHSeriesStore {
	return &CHSeriesStore{db: ch.DB(), table: table}
}

// SetLogger injects a structured logger.
func (s *CHSeriesStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHSeriesStore) Get(ctx context.Context, flow domrepo.FlowKey) (models.DailySeries, error) {
	if !domrepo.IsValidFlow(flow) {
		return models.DailySeries{}, fmt.Errorf("%w: %q", domrepo.ErrUnknownDataset, flow)
	}

	start := time.Now()
	const qtpl = `
        SELECT toDate(action_date) AS day, SUM(weight_kg) AS total
        FROM %s
        WHERE flow = ?
        GROUP BY day
        ORDER BY day ASC
    `
	q := fmt.Sprintf(qtpl, s.table)
	rows, err := s.db.QueryContext(ctx, q, string(flow))
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse daily series query error",
				applogger.String("table", s.table),
				applogger.String("flow", string(flow)),
				applogger.Error(err),
			)
		}
		return models.DailySeries{}, fmt.Errorf("get daily series: %w", err)
	}
	defer rows.Close()

	var points []models.DailyPoint
	for rows.Next() {
		var p models.DailyPoint
		if err := rows.Scan(&p.Date, &p.Value); err != nil {
			return models.DailySeries{}, fmt.Errorf("scan daily point: %w", err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return models.DailySeries{}, fmt.Errorf("rows: %w", err)
	}

	series := models.NewDailySeries(points)
	if s.l != nil {
		s.l.Info("clickhouse daily series ok",
			applogger.String("table", s.table),
			applogger.String("flow", string(flow)),
			applogger.Int("days", series.Len()),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return series, nil
}

// Datasets reports the flows the warehouse table currently holds data for,
// with the covered date range per flow. Points counts gap-filled days, the
// same length Get would return.
func (s *CHSeriesStore) Datasets(ctx context.Context) ([]models.DatasetInfo, error) {
	const qtpl = `
		SELECT flow, min(toDate(action_date)) AS data_from, max(toDate(action_date)) AS data_to
		FROM %s
		GROUP BY flow`
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(qtpl, s.table))
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	defer rows.Close()

	meta := make(map[string]models.SeriesMeta, len(domrepo.AllFlows()))
	for rows.Next() {
		var (
			flow     string
			from, to time.Time
		)
		if err := rows.Scan(&flow, &from, &to); err != nil {
			return nil, fmt.Errorf("scan dataset row: %w", err)
		}
		from, to = models.DayFloor(from), models.DayFloor(to)
		meta[flow] = models.SeriesMeta{
			DataFrom: from.Format("2006-01-02"),
			DataTo:   to.Format("2006-01-02"),
			Points:   int(to.Sub(from).Hours()/24) + 1,
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	out := make([]models.DatasetInfo, 0, len(domrepo.AllFlows()))
	for _, flow := range domrepo.AllFlows() {
		info := models.DatasetInfo{
			Key:      string(flow),
			Filename: s.table,
			Path:     s.table,
		}
		if m, ok := meta[string(flow)]; ok {
			info.Exists = true
			info.Meta = &m
		}
		out = append(out, info)
	}
	return out, nil
}
