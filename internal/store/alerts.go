package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hanbat-quant/sentinel/internal/contracts"
)

// AlertRepository backs C8's alert emission and C10's performance tracker —
// every alert gets exactly one companion performance_tracker row at
// insert time (spec.md §3 "Alert record").
type AlertRepository struct {
	db *sql.DB
}

func NewAlertRepository(s *Store) *AlertRepository {
	return &AlertRepository{db: s.DB()}
}

// RecordAlert inserts the alert and its zeroed performance_tracker
// companion row in one transaction.
func (r *AlertRepository) RecordAlert(ctx context.Context, a contracts.AlertRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO alerts
		(id, ticker, name, alert_time, alert_date, change_rate, delta_rate, source, price_at_alert)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Ticker, a.Name, a.AlertTime.Format(time.RFC3339), a.AlertDate,
		a.ChangeRate, a.DeltaRate, string(a.Source), a.PriceAtAlert)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO performance_tracker (alert_id) VALUES (?)`, a.ID)
	if err != nil {
		return fmt.Errorf("insert performance_tracker row: %w", err)
	}

	return tx.Commit()
}

// PendingForDate returns performance_tracker rows for horizon h whose
// alert_date equals targetDate and whose done_h flag is still 0 (spec.md
// §4.10 step 2).
func (r *AlertRepository) PendingForDate(ctx context.Context, horizon int, targetDate string) ([]PendingRow, error) {
	doneCol := doneColumn(horizon)
	query := fmt.Sprintf(`SELECT a.id, a.ticker, a.price_at_alert
		FROM performance_tracker p JOIN alerts a ON a.id = p.alert_id
		WHERE a.alert_date = ? AND p.%s = 0`, doneCol)

	rows, err := r.db.QueryContext(ctx, query, targetDate)
	if err != nil {
		return nil, fmt.Errorf("query pending rows: %w", err)
	}
	defer rows.Close()

	var out []PendingRow
	for rows.Next() {
		var p PendingRow
		if err := rows.Scan(&p.AlertID, &p.Ticker, &p.PriceAtAlert); err != nil {
			return nil, fmt.Errorf("scan pending row: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// PendingRow is one alert awaiting settlement at a given horizon.
type PendingRow struct {
	AlertID      string
	Ticker       string
	PriceAtAlert int64
}

// SettleHorizon writes done_h/tracked_date_h/price_h/return_h for a batch
// of rows in a single transaction (executemany + one commit, spec.md §4.10
// step 5).
func (r *AlertRepository) SettleHorizon(ctx context.Context, horizon int, settlements []Settlement) error {
	if len(settlements) == 0 {
		return nil
	}

	doneCol := doneColumn(horizon)
	dateCol := trackedDateColumn(horizon)
	priceCol := priceColumn(horizon)
	returnCol := returnColumn(horizon)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`UPDATE performance_tracker SET %s = 1, %s = ?, %s = ?, %s = ? WHERE alert_id = ?`,
		doneCol, dateCol, priceCol, returnCol)
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare settle statement: %w", err)
	}
	defer stmt.Close()

	for _, s := range settlements {
		if _, err := stmt.ExecContext(ctx, s.TrackedDate, s.Price, s.Return, s.AlertID); err != nil {
			return fmt.Errorf("settle alert %s: %w", s.AlertID, err)
		}
	}

	return tx.Commit()
}

// Settlement is one row's settled horizon result.
type Settlement struct {
	AlertID     string
	TrackedDate string
	Price       float64
	Return      float64
}

func doneColumn(h int) string {
	switch h {
	case 1:
		return "done_1d"
	case 3:
		return "done_3d"
	default:
		return "done_7d"
	}
}

func trackedDateColumn(h int) string {
	switch h {
	case 1:
		return "tracked_date_1d"
	case 3:
		return "tracked_date_3d"
	default:
		return "tracked_date_7d"
	}
}

func priceColumn(h int) string {
	switch h {
	case 1:
		return "price_1d"
	case 3:
		return "price_3d"
	default:
		return "price_7d"
	}
}

func returnColumn(h int) string {
	switch h {
	case 1:
		return "return_1d"
	case 3:
		return "return_3d"
	default:
		return "return_7d"
	}
}

// ReturnRow is one alert's fully-settled horizon returns.
type ReturnRow struct {
	Ticker   string
	Return1d float64
	Return3d float64
	Return7d float64
}

// ReturnsForDate returns every alert on alertDate whose 7-day horizon has
// settled, with its three horizon returns — the input C11's RAG batch needs
// once a day's outcome is finally known (spec.md §4.10/§4.11).
func (r *AlertRepository) ReturnsForDate(ctx context.Context, alertDate string) ([]ReturnRow, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT a.ticker,
		COALESCE(p.return_1d, 0), COALESCE(p.return_3d, 0), COALESCE(p.return_7d, 0)
		FROM alerts a JOIN performance_tracker p ON p.alert_id = a.id
		WHERE a.alert_date = ? AND p.done_7d = 1`, alertDate)
	if err != nil {
		return nil, fmt.Errorf("query returns for date: %w", err)
	}
	defer rows.Close()

	var out []ReturnRow
	for rows.Next() {
		var rr ReturnRow
		if err := rows.Scan(&rr.Ticker, &rr.Return1d, &rr.Return3d, &rr.Return7d); err != nil {
			return nil, fmt.Errorf("scan return row: %w", err)
		}
		out = append(out, rr)
	}
	return out, rows.Err()
}

// WeeklyStatsRow is one grouping of C10's get_weekly_stats() view.
type WeeklyStatsRow struct {
	Source     contracts.TriggerSource
	TotalCount int
	WinCount   int
	WinRate    float64
	AvgReturn  float64
}

// WeeklyStats groups alerts joined with their 7-day settled return by
// trigger source over the trailing 7 calendar days (spec.md §4.10).
func (r *AlertRepository) WeeklyStats(ctx context.Context, since string) ([]WeeklyStatsRow, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT a.source,
		COUNT(*) AS total,
		SUM(CASE WHEN p.return_7d > 0 THEN 1 ELSE 0 END) AS wins,
		AVG(p.return_7d) AS avg_return
		FROM alerts a JOIN performance_tracker p ON p.alert_id = a.id
		WHERE a.alert_date >= ? AND p.done_7d = 1
		GROUP BY a.source`, since)
	if err != nil {
		return nil, fmt.Errorf("query weekly stats: %w", err)
	}
	defer rows.Close()

	var out []WeeklyStatsRow
	for rows.Next() {
		var wr WeeklyStatsRow
		var source string
		var avgReturn sql.NullFloat64
		if err := rows.Scan(&source, &wr.TotalCount, &wr.WinCount, &avgReturn); err != nil {
			return nil, fmt.Errorf("scan weekly stats row: %w", err)
		}
		wr.Source = contracts.TriggerSource(source)
		wr.AvgReturn = avgReturn.Float64
		if wr.TotalCount > 0 {
			wr.WinRate = float64(wr.WinCount) / float64(wr.TotalCount) * 100
		}
		out = append(out, wr)
	}
	return out, rows.Err()
}
