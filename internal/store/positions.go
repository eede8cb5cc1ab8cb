package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hanbat-quant/sentinel/internal/contracts"
)

// PositionRepository backs C9: the open-positions table and its matching
// trading_history rows.
type PositionRepository struct {
	db *sql.DB
}

func NewPositionRepository(s *Store) *PositionRepository {
	return &PositionRepository{db: s.DB()}
}

// OpenPosition atomically inserts into trading_history (sell_time null) and
// positions with a matching trading_id, per spec.md §4.9.
func (r *PositionRepository) OpenPosition(ctx context.Context, p contracts.Position) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO positions
		(id, trading_id, ticker, name, buy_time, buy_price, qty, trigger_source, mode, pick_type, peak_price, stop_loss, market_env, sector)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.TradingID, p.Ticker, p.Name, p.BuyTime.Format(time.RFC3339), p.BuyPrice, p.Qty,
		string(p.TriggerSource), string(p.Mode), string(p.PickType), p.PeakPrice, p.StopLoss,
		string(p.MarketEnv), p.Sector)
	if err != nil {
		return fmt.Errorf("insert position: %w", err)
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO trading_history
		(trading_id, ticker, name, buy_time, buy_price, qty, trigger_source, mode, pick_type, peak_price, stop_loss, market_env, sector)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.TradingID, p.Ticker, p.Name, p.BuyTime.Format(time.RFC3339), p.BuyPrice, p.Qty,
		string(p.TriggerSource), string(p.Mode), string(p.PickType), p.PeakPrice, p.StopLoss,
		string(p.MarketEnv), p.Sector)
	if err != nil {
		return fmt.Errorf("insert trading_history: %w", err)
	}

	return tx.Commit()
}

// ClosePosition sets the sell_time/sell_price/profit/close_reason columns on
// the trading_history row and deletes the matching positions row, per
// spec.md §4.9 "On match: ... delete the positions row".
func (r *PositionRepository) ClosePosition(ctx context.Context, tradingID string, sellTime time.Time, sellPrice int64, profitRate float64, profitAmount int64, reason contracts.CloseReason) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE trading_history SET
		sell_time = ?, sell_price = ?, profit_rate = ?, profit_amount = ?, close_reason = ?
		WHERE trading_id = ?`,
		sellTime.Format(time.RFC3339), sellPrice, profitRate, profitAmount, string(reason), tradingID); err != nil {
		return fmt.Errorf("update trading_history: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM positions WHERE trading_id = ?`, tradingID); err != nil {
		return fmt.Errorf("delete position: %w", err)
	}

	return tx.Commit()
}

// UpdatePeakPrice persists check_exit's running high-water mark.
func (r *PositionRepository) UpdatePeakPrice(ctx context.Context, tradingID string, peak int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE positions SET peak_price = ? WHERE trading_id = ?`, peak, tradingID)
	if err != nil {
		return fmt.Errorf("update peak price: %w", err)
	}
	return nil
}

// OpenPositions returns every currently open position under mode
// (VTS/REAL positions are scoped independently per spec.md §4.9).
func (r *PositionRepository) OpenPositions(ctx context.Context, mode contracts.TradingMode) ([]contracts.Position, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, trading_id, ticker, name, buy_time, buy_price, qty,
		trigger_source, mode, pick_type, peak_price, stop_loss, market_env, sector
		FROM positions WHERE mode = ?`, string(mode))
	if err != nil {
		return nil, fmt.Errorf("query open positions: %w", err)
	}
	defer rows.Close()

	var out []contracts.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// IsHeld reports whether ticker already has an open position under mode —
// backs C9.can_buy's "not already held" check.
func (r *PositionRepository) IsHeld(ctx context.Context, ticker string, mode contracts.TradingMode) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM positions WHERE ticker = ? AND mode = ?`,
		ticker, string(mode)).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("count held: %w", err)
	}
	return count > 0, nil
}

// CountOpen returns the number of open positions under mode.
func (r *PositionRepository) CountOpen(ctx context.Context, mode contracts.TradingMode) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM positions WHERE mode = ?`, string(mode)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count open: %w", err)
	}
	return count, nil
}

// RealizedPnLToday sums profit_rate (percent) for trading_history rows closed today
// under mode — backs C9.can_buy's daily-loss-limit check.
func (r *PositionRepository) RealizedPnLToday(ctx context.Context, mode contracts.TradingMode, today string) (float64, error) {
	var sum sql.NullFloat64
	err := r.db.QueryRowContext(ctx, `SELECT SUM(profit_rate) FROM trading_history
		WHERE mode = ? AND sell_time IS NOT NULL AND substr(sell_time, 1, 10) = ?`,
		string(mode), today).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum realized pnl: %w", err)
	}
	return sum.Float64, nil
}

func scanPosition(rows *sql.Rows) (contracts.Position, error) {
	var p contracts.Position
	var buyTime, triggerSource, mode, pickType, marketEnv string
	if err := rows.Scan(&p.ID, &p.TradingID, &p.Ticker, &p.Name, &buyTime, &p.BuyPrice, &p.Qty,
		&triggerSource, &mode, &pickType, &p.PeakPrice, &p.StopLoss, &marketEnv, &p.Sector); err != nil {
		return p, fmt.Errorf("scan position: %w", err)
	}
	t, err := time.Parse(time.RFC3339, buyTime)
	if err != nil {
		return p, fmt.Errorf("parse buy_time: %w", err)
	}
	p.BuyTime = t
	p.TriggerSource = contracts.TriggerSource(triggerSource)
	p.Mode = contracts.TradingMode(mode)
	p.PickType = contracts.PickType(pickType)
	p.MarketEnv = contracts.MarketRegime(marketEnv)
	return p, nil
}

// ErrNotFound is returned by single-row lookups when no row matches.
var ErrNotFound = errors.New("store: not found")
