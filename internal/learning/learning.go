// Package learning implements C12: the weekly principles extractor and
// memory compressor, plus the synchronous trading-journal recorder C9
// invokes on every position close (spec.md §4.12).
package learning

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hanbat-quant/sentinel/internal/contracts"
	"github.com/hanbat-quant/sentinel/internal/llm"
	"github.com/hanbat-quant/sentinel/internal/store"
	"github.com/hanbat-quant/sentinel/pkg/logger"
)

const (
	minSampleDefault  = 5
	kospiBandWidth    = 200
	layer2MaxAge      = 8 * 24 * time.Hour
	layer3MaxAge      = 31 * 24 * time.Hour
)

type Batch struct {
	repo      *store.LearningRepository
	llm       *llm.Client
	minSample int
	logger    *logger.Logger
}

func New(repo *store.LearningRepository, llmClient *llm.Client, minSample int, log *logger.Logger) *Batch {
	if minSample <= 0 {
		minSample = minSampleDefault
	}
	return &Batch{repo: repo, llm: llmClient, minSample: minSample, logger: log}
}

// RunPrinciplesExtraction implements spec.md §4.12's weekly principles
// extractor: group by trigger_source, upsert confidence-tiered win rates,
// groups below the sample threshold are skipped entirely, so their
// existing principle rows are not refreshed by this batch. Pattern tags
// reach principle rows only through RecordJournalEntry.
func (b *Batch) RunPrinciplesExtraction(ctx context.Context, now time.Time) error {
	totals, err := b.repo.TriggerTotals(ctx)
	if err != nil {
		return fmt.Errorf("fetch trigger totals: %w", err)
	}

	for _, t := range totals {
		if t.Total < b.minSample {
			b.logger.WithFields(map[string]interface{}{
				"trigger_source": t.TriggerSource, "total": t.Total,
			}).Info("principles: below sample threshold, skipping insert")
			continue
		}

		winRate := float64(t.Wins) / float64(t.Total) * 100
		principle := contracts.TradingPrinciple{
			TriggerSource: t.TriggerSource,
			Action:        "buy",
			TotalTrades:   t.Total,
			Wins:          t.Wins,
			WinRate:       winRate,
			Confidence:    confidenceFor(winRate),
			UpdatedAt:     now,
		}
		if err := b.repo.UpsertPrinciple(ctx, principle); err != nil {
			return fmt.Errorf("upsert principle for %s: %w", t.TriggerSource, err)
		}
	}

	return nil
}

func confidenceFor(winRate float64) contracts.Confidence {
	switch {
	case winRate >= 65:
		return contracts.ConfidenceHigh
	case winRate >= 50:
		return contracts.ConfidenceMedium
	default:
		return contracts.ConfidenceLow
	}
}

// RunMemoryCompression implements spec.md §4.12's weekly memory
// compressor: layer 2 (8-30d, LLM-summarized, rule-based fallback) and
// layer 3 (31d+, summary_text + pattern_tags only; the detail fields are
// blanked).
func (b *Batch) RunMemoryCompression(ctx context.Context, now time.Time) error {
	entries, err := b.repo.JournalEntriesOlderThan(ctx, layer2MaxAge, now)
	if err != nil {
		return fmt.Errorf("fetch journal entries: %w", err)
	}

	for _, e := range entries {
		age := now.Sub(e.ClosedAt)

		switch {
		case age >= layer3MaxAge:
			summary := e.OneLineSummary
			if summary == "" {
				summary = truncate(e.SummaryText, 50)
			}
			if err := b.repo.UpdateCompression(ctx, e.TradingID, contracts.LayerCompact, truncate(summary, 50), true); err != nil {
				return fmt.Errorf("compress layer3 %s: %w", e.TradingID, err)
			}

		case age >= 0 && e.CompressionLayer == contracts.LayerRaw:
			summary := b.summarize(ctx, e)
			if err := b.repo.UpdateCompression(ctx, e.TradingID, contracts.LayerSummarized, summary, false); err != nil {
				return fmt.Errorf("compress layer2 %s: %w", e.TradingID, err)
			}
		}
	}

	return b.updateIndexStats(ctx)
}

// summarize produces an <=80-char single-sentence summary via the LLM,
// falling back to a rule-based concatenation when the LLM is unavailable.
func (b *Batch) summarize(ctx context.Context, e contracts.TradingJournalEntry) string {
	if !b.llm.Available() {
		return ruleBasedSummary(e)
	}

	prompt := fmt.Sprintf("다음 매매 회고를 80자 이내 한 문장으로 요약하세요:\n상황: %s\n판단: %s\n교훈: %s\n요약만 출력하세요.",
		e.SituationAnalysis, e.JudgmentEvaluation, e.Lessons)
	raw, err := b.llm.Complete(ctx, prompt)
	if err != nil {
		b.logger.WithFields(map[string]interface{}{"trading_id": e.TradingID, "error": err.Error()}).Warn("layer2 LLM summary failed, using rule-based fallback")
		return ruleBasedSummary(e)
	}
	return truncate(strings.TrimSpace(raw), 80)
}

func ruleBasedSummary(e contracts.TradingJournalEntry) string {
	return truncate(fmt.Sprintf("%s / %s", e.JudgmentEvaluation, e.Lessons), 80)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// updateIndexStats implements §4.12's update_index_stats(): aggregates
// trading_history by 200-point KOSPI band extracted from the stored
// buy_market_context field.
func (b *Batch) updateIndexStats(ctx context.Context) error {
	rows, err := b.repo.BuyMarketContexts(ctx)
	if err != nil {
		return fmt.Errorf("fetch buy market contexts: %w", err)
	}

	type bandAgg struct {
		count int
		wins  int
		sum   float64
	}
	bands := make(map[int]*bandAgg)

	for _, row := range rows {
		level, ok := parseKospiLevel(row.KospiLevel)
		if !ok {
			continue
		}
		bandLow := (level / kospiBandWidth) * kospiBandWidth
		agg, exists := bands[bandLow]
		if !exists {
			agg = &bandAgg{}
			bands[bandLow] = agg
		}
		agg.count++
		agg.sum += row.ProfitRate
		if row.ProfitRate > 0 {
			agg.wins++
		}
	}

	for bandLow, agg := range bands {
		winRate := float64(agg.wins) / float64(agg.count) * 100
		avgProfit := agg.sum / float64(agg.count)
		stat := contracts.KospiIndexStatsRow{
			BandLow: bandLow, BandHigh: bandLow + kospiBandWidth,
			TradeCount: agg.count, WinRate: winRate, AvgProfit: avgProfit,
		}
		if err := b.repo.UpsertIndexStats(ctx, stat); err != nil {
			return fmt.Errorf("upsert index stats band=%d: %w", bandLow, err)
		}
	}
	return nil
}

// parseKospiLevel extracts the KOSPI level stored in BuyMarketContext —
// the float64 is already the parsed index value (the store layer keeps
// buy_market_context as a free-text field, so callers populate it with a
// parseable numeric level; see RecordJournalEntry).
func parseKospiLevel(kospiLevel float64) (int, bool) {
	if kospiLevel <= 0 {
		return 0, false
	}
	return int(kospiLevel), true
}

// RecordJournalEntry implements the synchronous trading-journal recorder
// C9 invokes on every position close: emits rule-based pattern tags,
// optionally augments with an LLM retrospection, and pushes the row.
func (b *Batch) RecordJournalEntry(ctx context.Context, trade contracts.TradingHistoryEntry, kospiLevelAtEntry float64) error {
	tags := ruleBasedPatternTags(trade)

	situation, judgment, lessons, oneLine := "", "", "", defaultOneLineSummary(trade)
	if b.llm.Available() {
		prompt := buildRetrospectionPrompt(trade)
		raw, err := b.llm.Complete(ctx, prompt)
		if err == nil {
			var parsed struct {
				SituationAnalysis  string   `json:"situation_analysis"`
				JudgmentEvaluation string   `json:"judgment_evaluation"`
				Lessons            string   `json:"lessons"`
				ExtraTags          []string `json:"extra_tags"`
				OneLineSummary     string   `json:"one_line_summary"`
			}
			if parseErr := llm.ParseOrDefault(raw, &parsed); parseErr == nil {
				situation = parsed.SituationAnalysis
				judgment = parsed.JudgmentEvaluation
				lessons = parsed.Lessons
				tags = append(tags, parsed.ExtraTags...)
				if parsed.OneLineSummary != "" {
					oneLine = truncate(parsed.OneLineSummary, 50)
				}
			}
		}
	}

	entry := contracts.TradingJournalEntry{
		TradingID:          trade.TradingID,
		ClosedAt:           *trade.SellTime,
		BuyMarketContext:   fmt.Sprintf("%.2f", kospiLevelAtEntry),
		SituationAnalysis:  situation,
		JudgmentEvaluation: judgment,
		Lessons:            lessons,
		PatternTags:        tags,
		OneLineSummary:     oneLine,
		CompressionLayer:   contracts.LayerRaw,
	}
	if err := b.repo.InsertJournalEntry(ctx, entry); err != nil {
		return fmt.Errorf("insert journal entry: %w", err)
	}

	if lessons != "" {
		if err := b.repo.MergeSupportTags(ctx, trade.TriggerSource, tags); err != nil {
			b.logger.WithFields(map[string]interface{}{"error": err.Error()}).Warn("failed to merge support tags into principles")
		}
	}
	return nil
}

func ruleBasedPatternTags(trade contracts.TradingHistoryEntry) []string {
	var tags []string
	switch trade.MarketEnv {
	case contracts.RegimeBull, contracts.RegimeRiskOn:
		tags = append(tags, "강세장진입")
	case contracts.RegimeBearFlat, contracts.RegimeRiskOff:
		tags = append(tags, "약세장진입")
	}
	if trade.CloseReason == contracts.CloseTrailingStop {
		tags = append(tags, "트레일링스탑작동")
	}
	if trade.CloseReason == contracts.CloseStopLoss && trade.ProfitRate < -5 {
		tags = append(tags, "손절지연")
	}
	return tags
}

func defaultOneLineSummary(trade contracts.TradingHistoryEntry) string {
	return truncate(fmt.Sprintf("%s %s %.1f%%", trade.Ticker, trade.CloseReason, trade.ProfitRate), 50)
}

func buildRetrospectionPrompt(trade contracts.TradingHistoryEntry) string {
	return fmt.Sprintf(`다음 매매를 회고 분석하세요. 종목: %s, 트리거: %s, 수익률: %.2f%%, 종료사유: %s.
JSON 형식으로만 응답: {"situation_analysis": "...", "judgment_evaluation": "...", "lessons": "...", "extra_tags": ["..."], "one_line_summary": "..."}`,
		trade.Ticker, trade.TriggerSource, trade.ProfitRate, trade.CloseReason)
}
