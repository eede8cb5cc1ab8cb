package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hanbat-quant/sentinel/internal/contracts"
)

// RAGRepository backs C11: a write-only historical-outcome log indexed on
// (signal_type, cap_tier, date).
type RAGRepository struct {
	db *sql.DB
}

func NewRAGRepository(s *Store) *RAGRepository {
	return &RAGRepository{db: s.DB()}
}

// InsertBatch writes every pattern row in a single transaction (executemany
// + one commit, spec.md §4.11). Rows are never updated after insert.
func (r *RAGRepository) InsertBatch(ctx context.Context, patterns []contracts.RAGPattern) error {
	if len(patterns) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO rag_patterns
		(date, signal_type, stock_name, stock_code, cap_tier, was_picked, pick_rank, max_return, hit_20pct, hit_upper, pattern_memo)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range patterns {
		if !p.SignalType.IsValid() {
			return fmt.Errorf("refusing to persist invalid signal_type %q (I3)", p.SignalType)
		}
		if !p.CapTier.IsValid() {
			return fmt.Errorf("refusing to persist invalid cap_tier %q (I2)", p.CapTier)
		}
		var pickRank sql.NullInt64
		if p.PickRank != nil {
			pickRank = sql.NullInt64{Int64: int64(*p.PickRank), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, p.Date, string(p.SignalType), p.StockName, p.StockCode,
			string(p.CapTier), boolToInt(p.WasPicked), pickRank, p.MaxReturn,
			boolToInt(p.Hit20Pct), boolToInt(p.HitUpper), p.PatternMemo); err != nil {
			return fmt.Errorf("insert rag pattern: %w", err)
		}
	}

	return tx.Commit()
}

// SimilarPatterns implements the two-tier lookup spec.md §4.11 describes:
// exact (signal_type, cap_tier) first, falling back to signal_type alone
// when nothing matches.
func (r *RAGRepository) SimilarPatterns(ctx context.Context, signalType contracts.SignalType, capTier contracts.CapTier, limit int) ([]contracts.RAGPattern, error) {
	rows, err := r.queryPatterns(ctx, `SELECT date, signal_type, stock_name, stock_code, cap_tier,
		was_picked, pick_rank, max_return, hit_20pct, hit_upper, pattern_memo
		FROM rag_patterns WHERE signal_type = ? AND cap_tier = ? ORDER BY date DESC LIMIT ?`,
		string(signalType), string(capTier), limit)
	if err != nil {
		return nil, err
	}
	if len(rows) > 0 {
		return rows, nil
	}

	return r.queryPatterns(ctx, `SELECT date, signal_type, stock_name, stock_code, cap_tier,
		was_picked, pick_rank, max_return, hit_20pct, hit_upper, pattern_memo
		FROM rag_patterns WHERE signal_type = ? ORDER BY date DESC LIMIT ?`,
		string(signalType), limit)
}

// PatternsSince returns every rag_patterns row with date >= since, the
// input the weekly theme-history/theme-accuracy batch reduces over
// (SPEC_FULL.md supplemented features 3-4).
func (r *RAGRepository) PatternsSince(ctx context.Context, since string) ([]contracts.RAGPattern, error) {
	return r.queryPatterns(ctx, `SELECT date, signal_type, stock_name, stock_code, cap_tier,
		was_picked, pick_rank, max_return, hit_20pct, hit_upper, pattern_memo
		FROM rag_patterns WHERE date >= ? ORDER BY date ASC`, since)
}

func (r *RAGRepository) queryPatterns(ctx context.Context, query string, args ...interface{}) ([]contracts.RAGPattern, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query rag patterns: %w", err)
	}
	defer rows.Close()

	var out []contracts.RAGPattern
	for rows.Next() {
		var p contracts.RAGPattern
		var signalType, capTier string
		var wasPicked, hit20, hitUp int
		var pickRank sql.NullInt64
		if err := rows.Scan(&p.Date, &signalType, &p.StockName, &p.StockCode, &capTier,
			&wasPicked, &pickRank, &p.MaxReturn, &hit20, &hitUp, &p.PatternMemo); err != nil {
			return nil, fmt.Errorf("scan rag pattern: %w", err)
		}
		p.SignalType = contracts.SignalType(signalType)
		p.CapTier = contracts.CapTier(capTier)
		p.WasPicked = wasPicked != 0
		p.Hit20Pct = hit20 != 0
		p.HitUpper = hitUp != 0
		if pickRank.Valid {
			v := int(pickRank.Int64)
			p.PickRank = &v
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
