package learning

import (
	"context"
	"fmt"
	"time"

	"github.com/hanbat-quant/sentinel/internal/contracts"
)

// ThemeEventHistoryInput is one RAG row reduced to the fields the weekly
// theme/event history aggregation needs (SPEC_FULL.md supplemented
// feature 3).
type ThemeEventHistoryInput struct {
	Theme      string
	EventType  string
	MaxReturn  float64
	Hit20Pct   bool
}

// RunThemeEventHistory aggregates this week's RAG rows by (theme,
// event_type) into theme_event_history. The morning pipeline does not read
// this table.
func (b *Batch) RunThemeEventHistory(ctx context.Context, week string, rows []ThemeEventHistoryInput) error {
	type agg struct {
		count   int
		hits    int
		sumRet  float64
	}
	grouped := make(map[[2]string]*agg)

	for _, r := range rows {
		key := [2]string{r.Theme, r.EventType}
		a, ok := grouped[key]
		if !ok {
			a = &agg{}
			grouped[key] = a
		}
		a.count++
		a.sumRet += r.MaxReturn
		if r.Hit20Pct {
			a.hits++
		}
	}

	for key, a := range grouped {
		row := contracts.ThemeEventHistoryRow{
			Theme: key[0], EventType: key[1], Week: week,
			OccurrenceCount: a.count,
			AvgReturn:       a.sumRet / float64(a.count),
			HitRate:         float64(a.hits) / float64(a.count) * 100,
		}
		if err := b.repo.UpsertThemeEventHistory(ctx, row); err != nil {
			return fmt.Errorf("upsert theme event history %s/%s: %w", key[0], key[1], err)
		}
	}
	return nil
}

// ThemeAccuracyInput is one theme-tagged pick's outcome, reduced for the
// accuracy tracker (SPEC_FULL.md supplemented feature 4).
type ThemeAccuracyInput struct {
	ThemeTag string
	Hit      bool // moved >= materiality threshold within entry_window
}

// RunThemeAccuracy updates theme_accuracy. No Telegram command prints this
// table; /principles shows trigger totals only.
func (b *Batch) RunThemeAccuracy(ctx context.Context, now time.Time, inputs []ThemeAccuracyInput) error {
	type agg struct {
		total int
		hits  int
	}
	grouped := make(map[string]*agg)
	for _, in := range inputs {
		a, ok := grouped[in.ThemeTag]
		if !ok {
			a = &agg{}
			grouped[in.ThemeTag] = a
		}
		a.total++
		if in.Hit {
			a.hits++
		}
	}

	for tag, a := range grouped {
		row := contracts.ThemeAccuracyRow{
			ThemeTag: tag, TotalPicks: a.total, HitCount: a.hits,
			HitRate: float64(a.hits) / float64(a.total) * 100, UpdatedAt: now,
		}
		if err := b.repo.UpsertThemeAccuracy(ctx, row); err != nil {
			return fmt.Errorf("upsert theme accuracy %s: %w", tag, err)
		}
	}
	return nil
}

// RecentRegimeContext implements the "AI context builder" supplement
// (SPEC_FULL.md item 5): a short block covering the last 3 trading days'
// regime + win-rate. Nothing outside the tests calls it; the morning
// pipeline's stage-3 prompt carries only the RAG per-pattern block.
func RecentRegimeContext(days []RecentDayStat) string {
	if len(days) == 0 {
		return ""
	}
	s := "[최근 3거래일 레짐/승률]\n"
	for _, d := range days {
		s += fmt.Sprintf("- %s: %s, 승률 %.1f%%\n", d.Date, d.Regime, d.WinRate)
	}
	return s
}

// RecentDayStat is one trading day's regime label and realized win rate,
// the input RecentRegimeContext renders. The orchestrator does not build
// these values.
type RecentDayStat struct {
	Date    string
	Regime  contracts.MarketRegime
	WinRate float64
}
