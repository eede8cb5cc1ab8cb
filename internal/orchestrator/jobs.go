package orchestrator

import (
	"context"
	"fmt"

	"github.com/hanbat-quant/sentinel/internal/contracts"
	"github.com/hanbat-quant/sentinel/internal/learning"
	"github.com/hanbat-quant/sentinel/internal/rag"
	"github.com/hanbat-quant/sentinel/internal/watchlist"
)

// dataCollectorJob runs C5's fan-out at 06:00.
type dataCollectorJob struct{ deps Deps }

func (j *dataCollectorJob) Name() string     { return "data_collector" }
func (j *dataCollectorJob) Schedule() string { return "0 0 6 * * *" }
func (j *dataCollectorJob) Run(ctx context.Context) error {
	ok, err := gateTradingDay(ctx, j.deps.Clock, j.Name(), j.deps.Logger)
	if err != nil || !ok {
		return err
	}
	return j.deps.FanOut.Run(ctx, j.deps.Clock.Now())
}

// morningBotJob runs C6's three-stage pipeline at 07:30, then wires its
// output into C7's watchlist slots and C8's pick set.
type morningBotJob struct{ deps Deps }

func (j *morningBotJob) Name() string     { return "morning_bot" }
func (j *morningBotJob) Schedule() string { return "0 30 7 * * *" }
func (j *morningBotJob) Run(ctx context.Context) error {
	ok, err := gateTradingDay(ctx, j.deps.Clock, j.Name(), j.deps.Logger)
	if err != nil || !ok {
		return err
	}

	snapshot, has := j.deps.Cache.Get()
	if !has {
		return fmt.Errorf("morning_bot: cache not populated (data_collector must run first)")
	}

	date := j.deps.Clock.Now().Format("2006-01-02")
	result, err := j.deps.Morning.Run(ctx, date, snapshot)
	if err != nil {
		return fmt.Errorf("morning pipeline: %w", err)
	}

	var prevDayVolume map[string]int64
	if snapshot.PriceData != nil {
		prevDayVolume = make(map[string]int64, len(snapshot.PriceData.ByCode))
		for code, snap := range snapshot.PriceData.ByCode {
			prevDayVolume[code] = snap.Volume
		}
	}

	j.deps.Watchlist.SetWatchlist(watchlist.BuildFromPicks(result.Picks, prevDayVolume))
	j.deps.Watchlist.SetMarketEnv(result.MarketEnv.Regime)
	if snapshot.PriceData != nil {
		j.deps.Watchlist.SetSectorMap(watchlist.BuildSectorMap(snapshot.PriceData.ByCode))
	}

	pickMap := make(map[string]contracts.Pick, len(result.Picks))
	for _, p := range result.Picks {
		pickMap[p.StockCode] = p
	}
	j.deps.Intraday.SetPicks(pickMap)

	if j.deps.Notifier != nil {
		summary := fmt.Sprintf("아침봇 완료: %d개 종목 선정 (%s)", len(result.Picks), date)
		if err := j.deps.Notifier.SendText(ctx, summary); err != nil {
			j.deps.Logger.WithFields(map[string]interface{}{"error": err.Error()}).Warn("morning summary send failed")
		}
	}
	return nil
}

// rtStartJob arms C8's intraday watcher at 09:00, after the real-mode
// confirmation delay (if applicable).
type rtStartJob struct{ deps Deps }

func (j *rtStartJob) Name() string     { return "rt_start" }
func (j *rtStartJob) Schedule() string { return "0 0 9 * * *" }
func (j *rtStartJob) Run(ctx context.Context) error {
	ok, err := gateTradingDay(ctx, j.deps.Clock, j.Name(), j.deps.Logger)
	if err != nil || !ok {
		return err
	}
	if err := waitRealModeConfirm(ctx, j.deps.Config, j.deps.Logger); err != nil {
		return err
	}
	j.deps.Intraday.Start(ctx)
	return nil
}

// forceCloseJob forces out any position still open at 14:50.
type forceCloseJob struct{ deps Deps }

func (j *forceCloseJob) Name() string     { return "force_close" }
func (j *forceCloseJob) Schedule() string { return "0 50 14 * * *" }
func (j *forceCloseJob) Run(ctx context.Context) error {
	ok, err := gateTradingDay(ctx, j.deps.Clock, j.Name(), j.deps.Logger)
	if err != nil || !ok {
		return err
	}
	return j.deps.Position.ForceCloseAll(ctx)
}

// finalCloseJob sweeps anything still open at 15:20 (belt-and-suspenders
// over force_close, per spec.md §4.9's two-sweep close-out).
type finalCloseJob struct{ deps Deps }

func (j *finalCloseJob) Name() string     { return "final_close" }
func (j *finalCloseJob) Schedule() string { return "0 20 15 * * *" }
func (j *finalCloseJob) Run(ctx context.Context) error {
	ok, err := gateTradingDay(ctx, j.deps.Clock, j.Name(), j.deps.Logger)
	if err != nil || !ok {
		return err
	}
	return j.deps.Position.FinalCloseAll(ctx)
}

// checkExitJob runs C9's ordered exit evaluation every minute during the
// trading session, the only path (besides the two end-of-day sweeps) that
// can close a position on take-profit/trailing-stop/stop-loss.
type checkExitJob struct{ deps Deps }

func (j *checkExitJob) Name() string     { return "check_exit" }
func (j *checkExitJob) Schedule() string { return "0 * 9-15 * * 1-5" }
func (j *checkExitJob) Run(ctx context.Context) error {
	ok, err := gateTradingDay(ctx, j.deps.Clock, j.Name(), j.deps.Logger)
	if err != nil || !ok {
		return err
	}

	decisions, err := j.deps.Position.CheckExit(ctx)
	if err != nil {
		return fmt.Errorf("check_exit: %w", err)
	}

	for _, d := range decisions {
		if err := j.deps.Position.ExecuteExit(ctx, d); err != nil {
			j.deps.Logger.WithFields(map[string]interface{}{
				"ticker": d.Position.Ticker, "reason": d.Reason, "error": err.Error(),
			}).Warn("check_exit: execute_exit failed")
			continue
		}
		if j.deps.Notifier != nil {
			msg := fmt.Sprintf("[청산] %s(%s) %s %.2f%%", d.Position.Name, d.Position.Ticker, d.Reason, d.ProfitRate)
			if err := j.deps.Notifier.SendText(ctx, msg); err != nil {
				j.deps.Logger.WithFields(map[string]interface{}{"error": err.Error()}).Warn("exit notify failed")
			}
		}
	}
	return nil
}

// rtStopJob disarms C8 at 15:30, after the market closes at 15:20~15:30.
type rtStopJob struct{ deps Deps }

func (j *rtStopJob) Name() string     { return "rt_stop" }
func (j *rtStopJob) Schedule() string { return "0 30 15 * * *" }
func (j *rtStopJob) Run(ctx context.Context) error {
	j.deps.Intraday.Stop()
	return nil
}

// perfBatchJob runs C10's T+1/T+3/T+7 settlement at 15:45, once OHLCV for
// the day is final.
type perfBatchJob struct{ deps Deps }

func (j *perfBatchJob) Name() string     { return "perf_batch" }
func (j *perfBatchJob) Schedule() string { return "0 45 15 * * *" }
func (j *perfBatchJob) Run(ctx context.Context) error {
	ok, err := gateTradingDay(ctx, j.deps.Clock, j.Name(), j.deps.Logger)
	if err != nil || !ok {
		return err
	}

	settledDate, results, err := j.deps.Performance.RunSettlement(ctx, j.deps.Clock.Now())
	if err != nil {
		return fmt.Errorf("perf_batch: %w", err)
	}
	if len(results) == 0 {
		return nil
	}

	picks, err := j.deps.PickRepo.GetPicks(ctx, settledDate)
	if err != nil {
		return fmt.Errorf("perf_batch: load picks for %s: %w", settledDate, err)
	}

	ragResults := make(map[string]rag.RealizedResult, len(results))
	for ticker, r := range results {
		ragResults[ticker] = rag.RealizedResult{MaxReturn: r.MaxReturn, Hit20Pct: r.Hit20Pct, HitUpper: r.HitUpper}
	}

	// Candidates considered-but-not-picked that day are never persisted past
	// the morning pipeline's in-memory Result, so only picked tickers get a
	// RAG row here — a known gap versus spec.md §4.11's full "what we
	// missed" coverage, accepted for now.
	if err := j.deps.RAGStore.Save(ctx, settledDate, picks, nil, ragResults); err != nil {
		return fmt.Errorf("perf_batch: rag save: %w", err)
	}
	return nil
}

// weeklyReportJob sends the rolled-up weekly performance view Monday 08:30.
type weeklyReportJob struct{ deps Deps }

func (j *weeklyReportJob) Name() string     { return "weekly_report" }
func (j *weeklyReportJob) Schedule() string { return "0 30 8 * * 1" }
func (j *weeklyReportJob) Run(ctx context.Context) error {
	rows, err := j.deps.Performance.WeeklyStats(ctx, j.deps.Clock.Now())
	if err != nil {
		return fmt.Errorf("weekly stats: %w", err)
	}
	if j.deps.Notifier == nil {
		return nil
	}
	summary := fmt.Sprintf("주간 리포트: %d개 항목 집계 완료 (%s)", len(rows), j.deps.Clock.Now().Format("2006-01-02"))
	if err := j.deps.Notifier.SendText(ctx, summary); err != nil {
		j.deps.Logger.WithFields(map[string]interface{}{"error": err.Error()}).Warn("weekly report send failed")
	}
	return nil
}

// principlesJob extracts C12's trading principles Sunday 03:00. Not
// trading-day gated — this is calendar-week housekeeping, not a session
// action.
type principlesJob struct{ deps Deps }

func (j *principlesJob) Name() string     { return "principles_extraction" }
func (j *principlesJob) Schedule() string { return "0 0 3 * * 0" }
func (j *principlesJob) Run(ctx context.Context) error {
	return j.deps.Learning.RunPrinciplesExtraction(ctx, j.deps.Clock.Now())
}

// themeBatchJob aggregates the trailing week's RAG patterns into
// theme_event_history/theme_accuracy Sunday 03:15, between
// principles_extraction and memory_compression. There is no geopolitics-
// event-to-sector join in this build (the original's theme_event_history
// was keyed that way), so theme is reduced from RAG's signal_type and
// event_type from was_picked status — a coarser proxy, documented in
// DESIGN.md, over the same two target tables.
type themeBatchJob struct{ deps Deps }

func (j *themeBatchJob) Name() string     { return "theme_batch" }
func (j *themeBatchJob) Schedule() string { return "0 15 3 * * 0" }
func (j *themeBatchJob) Run(ctx context.Context) error {
	now := j.deps.Clock.Now()
	since := now.AddDate(0, 0, -7).Format("2006-01-02")

	patterns, err := j.deps.RAGRepo.PatternsSince(ctx, since)
	if err != nil {
		return fmt.Errorf("theme_batch: load rag patterns: %w", err)
	}
	if len(patterns) == 0 {
		return nil
	}

	year, week := now.ISOWeek()
	weekLabel := fmt.Sprintf("%d-W%02d", year, week)

	eventRows := make([]learning.ThemeEventHistoryInput, 0, len(patterns))
	var accuracyRows []learning.ThemeAccuracyInput
	for _, p := range patterns {
		eventType := "미선정"
		if p.WasPicked {
			eventType = "선정"
		}
		eventRows = append(eventRows, learning.ThemeEventHistoryInput{
			Theme: string(p.SignalType), EventType: eventType, MaxReturn: p.MaxReturn, Hit20Pct: p.Hit20Pct,
		})
		if p.WasPicked {
			accuracyRows = append(accuracyRows, learning.ThemeAccuracyInput{ThemeTag: string(p.SignalType), Hit: p.Hit20Pct})
		}
	}

	if err := j.deps.Learning.RunThemeEventHistory(ctx, weekLabel, eventRows); err != nil {
		return fmt.Errorf("theme_batch: event history: %w", err)
	}
	if err := j.deps.Learning.RunThemeAccuracy(ctx, now, accuracyRows); err != nil {
		return fmt.Errorf("theme_batch: accuracy: %w", err)
	}
	return nil
}

// memoryCompressionJob compresses C12's trading-journal memory layers
// Sunday 03:30, after principles_extraction has had its 30-minute window.
type memoryCompressionJob struct{ deps Deps }

func (j *memoryCompressionJob) Name() string     { return "memory_compression" }
func (j *memoryCompressionJob) Schedule() string { return "0 30 3 * * 0" }
func (j *memoryCompressionJob) Run(ctx context.Context) error {
	return j.deps.Learning.RunMemoryCompression(ctx, j.deps.Clock.Now())
}
