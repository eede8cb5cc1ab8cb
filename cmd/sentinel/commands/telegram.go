package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/hanbat-quant/sentinel/internal/cache"
	"github.com/hanbat-quant/sentinel/internal/contracts"
	"github.com/hanbat-quant/sentinel/internal/notify"
	"github.com/hanbat-quant/sentinel/internal/store"
	"github.com/hanbat-quant/sentinel/internal/watchlist"
)

// registerCommandHandlers binds the read-only slash-command surface
// spec.md §4.14 names against the running process's live state: watchlist
// readiness and regime, today's open positions, the trigger-source
// win-rate rollup behind the weekly principles extraction, and a single
// watchlist-entry lookup.
func registerCommandHandlers(
	router *notify.CommandRouter,
	wl *watchlist.State,
	positionRepo *store.PositionRepository,
	learningRepo *store.LearningRepository,
	mode contracts.TradingMode,
	dailyCache *cache.DailyCache,
) {
	router.Register("status", func(ctx context.Context, args string) (string, error) {
		if !wl.IsReady() {
			return "워치리스트가 아직 준비되지 않았습니다 (아침봇 대기 중).", nil
		}
		count, err := positionRepo.CountOpen(ctx, mode)
		if err != nil {
			return "", fmt.Errorf("count open positions: %w", err)
		}
		_, fresh := dailyCache.Get()
		return fmt.Sprintf("시장 국면: %s\n보유 종목: %d개\n데이터 캐시: %s",
			wl.MarketEnv(), count, freshLabel(fresh)), nil
	})

	router.Register("holdings", func(ctx context.Context, args string) (string, error) {
		positions, err := positionRepo.OpenPositions(ctx, mode)
		if err != nil {
			return "", fmt.Errorf("open positions: %w", err)
		}
		if len(positions) == 0 {
			return "현재 보유 중인 포지션이 없습니다.", nil
		}
		var b strings.Builder
		for _, p := range positions {
			fmt.Fprintf(&b, "%s(%s) %d주 @ %d원\n", p.Name, p.Ticker, p.Qty, p.BuyPrice)
		}
		return b.String(), nil
	})

	router.Register("principles", func(ctx context.Context, args string) (string, error) {
		totals, err := learningRepo.TriggerTotals(ctx)
		if err != nil {
			return "", fmt.Errorf("trigger totals: %w", err)
		}
		if len(totals) == 0 {
			return "아직 집계된 트리거별 승률이 없습니다.", nil
		}
		var b strings.Builder
		for _, t := range totals {
			winRate := 0.0
			if t.Total > 0 {
				winRate = float64(t.Wins) / float64(t.Total) * 100
			}
			fmt.Fprintf(&b, "%s: %d건 중 %d승 (%.1f%%)\n", t.TriggerSource, t.Total, t.Wins, winRate)
		}
		return b.String(), nil
	})

	router.Register("evaluate", func(ctx context.Context, args string) (string, error) {
		code := strings.TrimSpace(args)
		if code == "" {
			return "사용법: /evaluate <종목코드>", nil
		}
		entries := wl.GetWatchlist()
		entry, ok := entries[code]
		if !ok {
			return fmt.Sprintf("%s: 워치리스트에 없는 종목입니다.", code), nil
		}
		return fmt.Sprintf("%s(%s) 우선순위=%d 전일거래량=%d", entry.StockName, entry.StockCode, entry.Priority, entry.PrevDayVolume), nil
	})
}

func freshLabel(ok bool) string {
	if ok {
		return "정상"
	}
	return "없음"
}
