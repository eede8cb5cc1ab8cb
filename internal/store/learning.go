package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/hanbat-quant/sentinel/internal/contracts"
)

// LearningRepository backs C12's weekly batches: principles, theme
// accuracy, trading journal compression, index stats, and theme/event
// history.
type LearningRepository struct {
	db *sql.DB
}

func NewLearningRepository(s *Store) *LearningRepository {
	return &LearningRepository{db: s.DB()}
}

// TriggerGroupTotals is one trigger_source's aggregate over trading_history,
// feeding the principles extractor (spec.md §4.12).
type TriggerGroupTotals struct {
	TriggerSource contracts.TriggerSource
	Total         int
	Wins          int
}

// TriggerTotals groups closed trading_history rows by trigger_source.
func (r *LearningRepository) TriggerTotals(ctx context.Context) ([]TriggerGroupTotals, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT trigger_source, COUNT(*),
		SUM(CASE WHEN close_reason IN ('take_profit_1', 'take_profit_2') THEN 1 ELSE 0 END)
		FROM trading_history WHERE sell_time IS NOT NULL GROUP BY trigger_source`)
	if err != nil {
		return nil, fmt.Errorf("query trigger totals: %w", err)
	}
	defer rows.Close()

	var out []TriggerGroupTotals
	for rows.Next() {
		var t TriggerGroupTotals
		var source string
		if err := rows.Scan(&source, &t.Total, &t.Wins); err != nil {
			return nil, fmt.Errorf("scan trigger totals: %w", err)
		}
		t.TriggerSource = contracts.TriggerSource(source)
		out = append(out, t)
	}
	return out, rows.Err()
}

// UpsertPrinciple inserts or updates one trading_principles row, keyed by
// (trigger_source, action) per spec.md §4.12.
func (r *LearningRepository) UpsertPrinciple(ctx context.Context, p contracts.TradingPrinciple) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO trading_principles
		(trigger_source, action, total_trades, wins, win_rate, confidence, support_tags, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(trigger_source, action) DO UPDATE SET
			total_trades = excluded.total_trades,
			wins = excluded.wins,
			win_rate = excluded.win_rate,
			confidence = excluded.confidence,
			support_tags = excluded.support_tags,
			updated_at = excluded.updated_at`,
		string(p.TriggerSource), p.Action, p.TotalTrades, p.Wins, p.WinRate, string(p.Confidence),
		strings.Join(p.SupportTags, ","), p.UpdatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("upsert principle: %w", err)
	}
	return nil
}

// MergeSupportTags appends pattern tags to an existing principle row
// without touching the sample-size columns. The journal recorder calls it
// after each closed trade that has lessons; a trigger with no principle row
// yet is left without one.
func (r *LearningRepository) MergeSupportTags(ctx context.Context, source contracts.TriggerSource, tags []string) error {
	if len(tags) == 0 {
		return nil
	}
	_, err := r.db.ExecContext(ctx, `UPDATE trading_principles
		SET support_tags = support_tags || ',' || ?
		WHERE trigger_source = ? AND action = 'buy'`,
		strings.Join(tags, ","), string(source))
	if err != nil {
		return fmt.Errorf("merge support tags: %w", err)
	}
	return nil
}

// JournalEntriesOlderThan returns trading_journal rows whose closed_at is at
// least minAge old, for the memory compressor's age-banded passes.
func (r *LearningRepository) JournalEntriesOlderThan(ctx context.Context, minAge time.Duration, now time.Time) ([]contracts.TradingJournalEntry, error) {
	cutoff := now.Add(-minAge).Format(time.RFC3339)
	rows, err := r.db.QueryContext(ctx, `SELECT trading_id, closed_at, buy_market_context,
		situation_analysis, judgment_evaluation, lessons, pattern_tags, one_line_summary, summary_text, compression_layer
		FROM trading_journal WHERE closed_at <= ?`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("query journal entries: %w", err)
	}
	defer rows.Close()

	var out []contracts.TradingJournalEntry
	for rows.Next() {
		var e contracts.TradingJournalEntry
		var closedAt, tags string
		var layer int
		if err := rows.Scan(&e.TradingID, &closedAt, &e.BuyMarketContext, &e.SituationAnalysis,
			&e.JudgmentEvaluation, &e.Lessons, &tags, &e.OneLineSummary, &e.SummaryText, &layer); err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}
		t, err := time.Parse(time.RFC3339, closedAt)
		if err != nil {
			return nil, fmt.Errorf("parse closed_at: %w", err)
		}
		e.ClosedAt = t
		if tags != "" {
			e.PatternTags = strings.Split(tags, ",")
		}
		e.CompressionLayer = contracts.CompressionLayer(layer)
		out = append(out, e)
	}
	return out, rows.Err()
}

// InsertJournalEntry writes one synchronous retrospection row (spec.md
// §4.12, invoked by C9 on every close).
func (r *LearningRepository) InsertJournalEntry(ctx context.Context, e contracts.TradingJournalEntry) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO trading_journal
		(trading_id, closed_at, buy_market_context, situation_analysis, judgment_evaluation, lessons, pattern_tags, one_line_summary, summary_text, compression_layer)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.TradingID, e.ClosedAt.Format(time.RFC3339), e.BuyMarketContext, e.SituationAnalysis,
		e.JudgmentEvaluation, e.Lessons, strings.Join(e.PatternTags, ","), e.OneLineSummary,
		e.SummaryText, int(e.CompressionLayer))
	if err != nil {
		return fmt.Errorf("insert journal entry: %w", err)
	}
	return nil
}

// UpdateCompression applies a compressed (layer, summary, cleared-detail)
// shape back onto an existing row.
func (r *LearningRepository) UpdateCompression(ctx context.Context, tradingID string, layer contracts.CompressionLayer, summaryText string, clearDetail bool) error {
	if clearDetail {
		_, err := r.db.ExecContext(ctx, `UPDATE trading_journal SET
			compression_layer = ?, summary_text = ?, situation_analysis = '', judgment_evaluation = '', lessons = ''
			WHERE trading_id = ?`, int(layer), summaryText, tradingID)
		if err != nil {
			return fmt.Errorf("update compression (clear detail): %w", err)
		}
		return nil
	}
	_, err := r.db.ExecContext(ctx, `UPDATE trading_journal SET compression_layer = ?, summary_text = ?
		WHERE trading_id = ?`, int(layer), summaryText, tradingID)
	if err != nil {
		return fmt.Errorf("update compression: %w", err)
	}
	return nil
}

// UpsertIndexStats upserts one KOSPI-band aggregate row (spec.md §4.12
// update_index_stats()).
func (r *LearningRepository) UpsertIndexStats(ctx context.Context, row contracts.KospiIndexStatsRow) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO kospi_index_stats
		(band_low, band_high, trade_count, win_rate, avg_profit) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(band_low, band_high) DO UPDATE SET
			trade_count = excluded.trade_count, win_rate = excluded.win_rate, avg_profit = excluded.avg_profit`,
		row.BandLow, row.BandHigh, row.TradeCount, row.WinRate, row.AvgProfit)
	if err != nil {
		return fmt.Errorf("upsert index stats: %w", err)
	}
	return nil
}

// BuyMarketContexts returns every closed trade's stored KOSPI level and
// profit rate, for index-stats band aggregation.
func (r *LearningRepository) BuyMarketContexts(ctx context.Context) ([]BuyContextRow, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT j.buy_market_context, h.profit_rate
		FROM trading_journal j JOIN trading_history h ON h.trading_id = j.trading_id
		WHERE h.profit_rate IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("query buy market contexts: %w", err)
	}
	defer rows.Close()

	var out []BuyContextRow
	for rows.Next() {
		var b BuyContextRow
		if err := rows.Scan(&b.KospiLevel, &b.ProfitRate); err != nil {
			return nil, fmt.Errorf("scan buy context row: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// BuyContextRow pairs a trade's entry-time KOSPI level with its realized
// profit rate.
type BuyContextRow struct {
	KospiLevel float64
	ProfitRate float64
}

// UpsertThemeEventHistory upserts a weekly theme/event aggregate row
// (supplemented feature; SPEC_FULL.md item 3).
func (r *LearningRepository) UpsertThemeEventHistory(ctx context.Context, row contracts.ThemeEventHistoryRow) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO theme_event_history
		(theme, event_type, week, occurrence_count, avg_return, hit_rate) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(theme, event_type, week) DO UPDATE SET
			occurrence_count = excluded.occurrence_count, avg_return = excluded.avg_return, hit_rate = excluded.hit_rate`,
		row.Theme, row.EventType, row.Week, row.OccurrenceCount, row.AvgReturn, row.HitRate)
	if err != nil {
		return fmt.Errorf("upsert theme event history: %w", err)
	}
	return nil
}

// UpsertThemeAccuracy upserts a theme-tag accuracy row (supplemented
// feature; SPEC_FULL.md item 4).
func (r *LearningRepository) UpsertThemeAccuracy(ctx context.Context, row contracts.ThemeAccuracyRow) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO theme_accuracy
		(theme_tag, total_picks, hit_count, hit_rate, updated_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(theme_tag) DO UPDATE SET
			total_picks = excluded.total_picks, hit_count = excluded.hit_count,
			hit_rate = excluded.hit_rate, updated_at = excluded.updated_at`,
		row.ThemeTag, row.TotalPicks, row.HitCount, row.HitRate, row.UpdatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("upsert theme accuracy: %w", err)
	}
	return nil
}
