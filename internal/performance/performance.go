// Package performance implements C10: the 15:45 T+1/T+3/T+7 settlement
// batch and the weekly stats view, run after official close so OHLCV is
// final (spec.md §4.10).
package performance

import (
	"context"
	"fmt"
	"time"

	"github.com/hanbat-quant/sentinel/internal/broker"
	"github.com/hanbat-quant/sentinel/internal/store"
	"github.com/hanbat-quant/sentinel/pkg/config"
	"github.com/hanbat-quant/sentinel/pkg/logger"
)

var horizons = []int{1, 3, 7}

// hit20PctThreshold is the fixed "moved 20%+" bar spec.md §4.11 names for
// RAG's Hit20Pct flag — unlike HitUpper it is not regime/config tunable.
const hit20PctThreshold = 20.0

type Tracker struct {
	gateway    broker.Gateway
	repo       *store.AlertRepository
	thresholds config.Thresholds
	logger     *logger.Logger
}

func New(gateway broker.Gateway, repo *store.AlertRepository, thresholds config.Thresholds, log *logger.Logger) *Tracker {
	return &Tracker{gateway: gateway, repo: repo, thresholds: thresholds, logger: log}
}

// RealizedResult is one ticker's fully-settled outcome, handed to C11's RAG
// batch once its 7-day horizon closes.
type RealizedResult struct {
	MaxReturn float64
	Hit20Pct  bool
	HitUpper  bool
}

// RunSettlement executes all three horizons' settlement for "today"
// (spec.md §4.10 steps 1-5), then returns the 7-day-old alert date that just
// finished settling plus its realized outcomes, so C11 can log them.
func (t *Tracker) RunSettlement(ctx context.Context, today time.Time) (settledDate string, results map[string]RealizedResult, err error) {
	for _, h := range horizons {
		if err := t.settleHorizon(ctx, h, today); err != nil {
			return "", nil, fmt.Errorf("settle horizon %dd: %w", h, err)
		}
	}

	settledAlertDate := today.AddDate(0, 0, -7).Format("20060102")
	returns, err := t.repo.ReturnsForDate(ctx, settledAlertDate)
	if err != nil {
		return "", nil, fmt.Errorf("fetch settled returns: %w", err)
	}

	results = make(map[string]RealizedResult, len(returns))
	for _, r := range returns {
		results[r.Ticker] = computeRealizedResult(r, t.thresholds.UpperLimitAdjacencyPct)
	}

	return today.AddDate(0, 0, -7).Format("2006-01-02"), results, nil
}

// computeRealizedResult reduces one alert's three settled horizon returns to
// its RAG outcome: the best of the three returns, and whether that peak
// cleared the fixed 20% bar or the regime's upper-limit-adjacency bar.
func computeRealizedResult(r store.ReturnRow, upperLimitPct float64) RealizedResult {
	maxReturn := r.Return1d
	if r.Return3d > maxReturn {
		maxReturn = r.Return3d
	}
	if r.Return7d > maxReturn {
		maxReturn = r.Return7d
	}
	return RealizedResult{
		MaxReturn: maxReturn,
		Hit20Pct:  maxReturn >= hit20PctThreshold,
		HitUpper:  maxReturn >= upperLimitPct,
	}
}

func (t *Tracker) settleHorizon(ctx context.Context, horizon int, today time.Time) error {
	targetDate := today.AddDate(0, 0, -horizon).Format("20060102")

	pending, err := t.repo.PendingForDate(ctx, horizon, targetDate)
	if err != nil {
		return fmt.Errorf("fetch pending rows: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	targetDateTime := today.AddDate(0, 0, -horizon)
	prices, err := t.batchFetchClose(ctx, pending, targetDateTime)
	if err != nil {
		t.logger.WithFields(map[string]interface{}{"horizon": horizon, "error": err.Error()}).Warn("batch close-price fetch failed, settling as unavailable")
	}

	todayStr := today.Format("2006-01-02")
	settlements := make([]store.Settlement, 0, len(pending))
	for _, row := range pending {
		price, ok := prices[row.Ticker]
		if !ok || row.PriceAtAlert <= 0 {
			settlements = append(settlements, store.Settlement{AlertID: row.AlertID, TrackedDate: todayStr, Price: 0, Return: 0})
			continue
		}
		ret := round2((price - float64(row.PriceAtAlert)) / float64(row.PriceAtAlert) * 100)
		settlements = append(settlements, store.Settlement{AlertID: row.AlertID, TrackedDate: todayStr, Price: price, Return: ret})
	}

	return t.repo.SettleHorizon(ctx, horizon, settlements)
}

func (t *Tracker) batchFetchClose(ctx context.Context, pending []store.PendingRow, targetDate time.Time) (map[string]float64, error) {
	out := make(map[string]float64, len(pending))
	for _, row := range pending {
		price, err := t.gateway.GetDailyClose(ctx, row.Ticker, targetDate)
		if err != nil {
			continue
		}
		out[row.Ticker] = price
	}
	return out, nil
}

func round2(f float64) float64 {
	return float64(int64(f*100+sign(f)*0.5)) / 100
}

func sign(f float64) float64 {
	if f < 0 {
		return -1
	}
	return 1
}

// WeeklyStats returns the trailing-7-day win-rate/avg-return view grouped
// by trigger source (spec.md §4.10).
func (t *Tracker) WeeklyStats(ctx context.Context, today time.Time) ([]store.WeeklyStatsRow, error) {
	since := today.AddDate(0, 0, -7).Format("20060102")
	return t.repo.WeeklyStats(ctx, since)
}
