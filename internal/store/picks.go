package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hanbat-quant/sentinel/internal/contracts"
)

// PickRepository persists C6 stage-3 output (daily_picks table).
type PickRepository struct {
	db *sql.DB
}

func NewPickRepository(s *Store) *PickRepository {
	return &PickRepository{db: s.DB()}
}

// SavePicks implements the delete-then-insert semantics spec.md §4.6/§5
// requires so an 08:30 re-run produces exactly the second run's rows, in a
// single transaction (no per-row commits).
func (r *PickRepository) SavePicks(ctx context.Context, date string, picks []contracts.Pick) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM daily_picks WHERE date = ?`, date); err != nil {
		return fmt.Errorf("delete existing picks: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO daily_picks
		(date, rank, stock_code, stock_name, reason, category, target_return, stop_loss, is_theme, entry_window, cap_tier)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range picks {
		if _, err := stmt.ExecContext(ctx, date, p.Rank, p.StockCode, p.StockName, p.Reason,
			string(p.Category), p.TargetReturn, p.StopLoss, boolToInt(p.IsTheme), p.EntryWindow, string(p.CapTier)); err != nil {
			return fmt.Errorf("insert pick rank=%d: %w", p.Rank, err)
		}
	}

	return tx.Commit()
}

// GetPicks returns today's (or any date's) final picks in rank order.
func (r *PickRepository) GetPicks(ctx context.Context, date string) ([]contracts.Pick, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT rank, stock_code, stock_name, reason, category,
		target_return, stop_loss, is_theme, entry_window, cap_tier
		FROM daily_picks WHERE date = ? ORDER BY rank ASC`, date)
	if err != nil {
		return nil, fmt.Errorf("query picks: %w", err)
	}
	defer rows.Close()

	var out []contracts.Pick
	for rows.Next() {
		var p contracts.Pick
		var category, capTier string
		var isTheme int
		if err := rows.Scan(&p.Rank, &p.StockCode, &p.StockName, &p.Reason, &category,
			&p.TargetReturn, &p.StopLoss, &isTheme, &p.EntryWindow, &capTier); err != nil {
			return nil, fmt.Errorf("scan pick: %w", err)
		}
		p.Category = contracts.Category(category)
		p.CapTier = contracts.CapTier(capTier)
		p.IsTheme = isTheme != 0
		out = append(out, p)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
