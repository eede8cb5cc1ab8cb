// Package position implements C9: the position manager — entry gating,
// atomic open, ordered exit evaluation, and the two end-of-day close-out
// sweeps.
package position

import (
	"context"
	"fmt"
	"time"

	"github.com/hanbat-quant/sentinel/internal/broker"
	"github.com/hanbat-quant/sentinel/internal/contracts"
	"github.com/hanbat-quant/sentinel/internal/store"
	"github.com/hanbat-quant/sentinel/pkg/config"
	"github.com/hanbat-quant/sentinel/pkg/logger"
)

// JournalHook is invoked with the complete closed trade on every
// successful exit, so C12 can record a trading-journal entry without C9
// importing internal/learning directly.
type JournalHook func(ctx context.Context, trade contracts.TradingHistoryEntry)

type Manager struct {
	gateway    broker.Gateway
	repo       *store.PositionRepository
	thresholds config.Thresholds
	mode       contracts.TradingMode
	logger     *logger.Logger
	onClose    JournalHook

	autoTradeEnabled bool
}

func New(gateway broker.Gateway, repo *store.PositionRepository, thresholds config.Thresholds, mode contracts.TradingMode, autoTradeEnabled bool, log *logger.Logger, onClose JournalHook) *Manager {
	return &Manager{
		gateway: gateway, repo: repo, thresholds: thresholds, mode: mode,
		autoTradeEnabled: autoTradeEnabled, logger: log, onClose: onClose,
	}
}

// EffectivePositionCap implements the regime-dependent cap from spec.md
// §4.9: strong market -> PositionMaxBull, weak/sideways -> PositionMaxBear,
// else PositionMaxNeutral.
func (m *Manager) EffectivePositionCap(regime contracts.MarketRegime) int {
	switch regime {
	case contracts.RegimeBull, contracts.RegimeRiskOn:
		return m.thresholds.PositionMaxBull
	case contracts.RegimeBearFlat, contracts.RegimeRiskOff:
		return m.thresholds.PositionMaxBear
	default:
		return m.thresholds.PositionMaxNeutral
	}
}

// CanBuy implements spec.md §4.9 can_buy: checks, in order, auto-trade
// flag, not-already-held, open-position count under the regime-dependent
// cap, and today's realized PnL against the daily-loss threshold.
func (m *Manager) CanBuy(ctx context.Context, ticker string, regime contracts.MarketRegime) (bool, string) {
	if !m.autoTradeEnabled {
		return false, "auto-trade disabled"
	}

	held, err := m.repo.IsHeld(ctx, ticker, m.mode)
	if err != nil {
		return false, fmt.Sprintf("held check failed: %v", err)
	}
	if held {
		return false, "already held"
	}

	openCount, err := m.repo.CountOpen(ctx, m.mode)
	if err != nil {
		return false, fmt.Sprintf("open-count check failed: %v", err)
	}
	if openCount >= m.EffectivePositionCap(regime) {
		return false, "position cap reached"
	}

	today := time.Now().Format("2006-01-02")
	realizedPnL, err := m.repo.RealizedPnLToday(ctx, m.mode, today)
	if err != nil {
		return false, fmt.Sprintf("pnl check failed: %v", err)
	}
	if realizedPnL <= m.thresholds.DailyLossLimit {
		return false, "daily loss limit reached"
	}

	return true, ""
}

// OpenPosition implements spec.md §4.9 open_position: atomically inserts
// into trading_history and positions, snapshotting market_env/sector at
// entry time.
func (m *Manager) OpenPosition(ctx context.Context, ticker, name string, buyPrice, qty int64, trigger contracts.TriggerSource, pickType contracts.PickType, regime contracts.MarketRegime, sector string) error {
	tradingID := fmt.Sprintf("%s_%s_%d", ticker, m.mode, time.Now().UnixNano())
	p := contracts.Position{
		ID:            tradingID,
		TradingID:     tradingID,
		Ticker:        ticker,
		Name:          name,
		BuyTime:       time.Now(),
		BuyPrice:      buyPrice,
		Qty:           qty,
		TriggerSource: trigger,
		Mode:          m.mode,
		PickType:      pickType,
		PeakPrice:     buyPrice,
		StopLoss:      computeAbsoluteStopLoss(buyPrice, m.thresholds.StopLoss),
		MarketEnv:     regime,
		Sector:        sector,
	}
	if err := m.repo.OpenPosition(ctx, p); err != nil {
		return fmt.Errorf("open position %s: %w", ticker, err)
	}
	m.logger.WithFields(map[string]interface{}{
		"ticker": ticker, "qty": qty, "buy_price": buyPrice, "trigger": trigger,
	}).Info("position opened")
	return nil
}

// EnterOnSignal implements spec.md §4.9/§4.13's entry flow in one call:
// can_buy -> broker.buy -> open_position. This is the only path that turns
// an intraday alert into a live order.
func (m *Manager) EnterOnSignal(ctx context.Context, ticker, name string, amountKRW int64, trigger contracts.TriggerSource, pickType contracts.PickType, regime contracts.MarketRegime, sector string) (opened bool, qty, buyPrice int64, reason string, err error) {
	ok, why := m.CanBuy(ctx, ticker, regime)
	if !ok {
		return false, 0, 0, why, nil
	}

	result, err := m.gateway.Buy(ctx, ticker, amountKRW)
	if err != nil {
		return false, 0, 0, "", fmt.Errorf("buy %s: %w", ticker, err)
	}
	if !result.Success {
		return false, 0, 0, result.Msg, nil
	}

	if err := m.OpenPosition(ctx, ticker, name, result.BuyPrice, result.Qty, trigger, pickType, regime, sector); err != nil {
		return false, 0, 0, "", err
	}
	return true, result.Qty, result.BuyPrice, "", nil
}

func computeAbsoluteStopLoss(buyPrice int64, stopLossPct float64) int64 {
	return buyPrice + int64(float64(buyPrice)*stopLossPct/100)
}

// ExitDecision is one position's check_exit verdict.
type ExitDecision struct {
	Position     contracts.Position
	CurrentPrice int64
	ProfitRate   float64
	Reason       contracts.CloseReason
}

// CheckExit evaluates every open position under m.mode, in the strict
// order spec.md §4.9 requires, returning the positions that should close
// this cycle. Peak-price persistence happens for every position regardless
// of whether it exits.
func (m *Manager) CheckExit(ctx context.Context) ([]ExitDecision, error) {
	positions, err := m.repo.OpenPositions(ctx, m.mode)
	if err != nil {
		return nil, fmt.Errorf("load open positions: %w", err)
	}

	var decisions []ExitDecision
	for _, pos := range positions {
		quote, err := m.gateway.GetPrice(ctx, pos.Ticker)
		if err != nil {
			m.logger.WithFields(map[string]interface{}{"ticker": pos.Ticker, "error": err.Error()}).Warn("check_exit: GetPrice failed, skipping this position this cycle")
			continue
		}

		peak := pos.PeakPrice
		if quote.Last > peak {
			peak = quote.Last
			if err := m.repo.UpdatePeakPrice(ctx, pos.TradingID, peak); err != nil {
				m.logger.WithFields(map[string]interface{}{"ticker": pos.Ticker, "error": err.Error()}).Warn("failed to persist peak price")
			}
			pos.PeakPrice = peak
		}

		profitRate := float64(quote.Last-pos.BuyPrice) / float64(pos.BuyPrice) * 100

		reason, exit := m.evaluateExit(pos, quote.Last, profitRate)
		if exit {
			decisions = append(decisions, ExitDecision{Position: pos, CurrentPrice: quote.Last, ProfitRate: profitRate, Reason: reason})
		}
	}
	return decisions, nil
}

// evaluateExit implements the strict-order match from spec.md §4.9.
func (m *Manager) evaluateExit(pos contracts.Position, current int64, profitRate float64) (contracts.CloseReason, bool) {
	if profitRate >= m.thresholds.TakeProfit2 {
		return contracts.CloseTakeProfit2, true
	}
	if profitRate >= m.thresholds.TakeProfit1 {
		return contracts.CloseTakeProfit1, true
	}

	if pos.PeakPrice > pos.BuyPrice {
		ratio := m.trailingRatio(pos.MarketEnv)
		if float64(current) <= float64(pos.PeakPrice)*ratio {
			return contracts.CloseTrailingStop, true
		}
	}

	if profitRate <= m.thresholds.StopLoss {
		return contracts.CloseStopLoss, true
	}

	return "", false
}

func (m *Manager) trailingRatio(regime contracts.MarketRegime) float64 {
	switch regime {
	case contracts.RegimeBull, contracts.RegimeRiskOn:
		return m.thresholds.TrailingRatioBull
	default:
		return m.thresholds.TrailingRatioOther
	}
}

// ExecuteExit sells the position and persists the close, invoking the
// journal hook with the complete trade record (spec.md §4.9 "On match").
func (m *Manager) ExecuteExit(ctx context.Context, d ExitDecision) error {
	result, err := m.gateway.Sell(ctx, d.Position.Ticker, d.Position.Qty)
	if err != nil {
		return fmt.Errorf("sell %s: %w", d.Position.Ticker, err)
	}
	if !result.Success {
		return fmt.Errorf("sell %s rejected: %s", d.Position.Ticker, result.Msg)
	}

	sellTime := time.Now()
	profitAmount := (result.SellPrice - d.Position.BuyPrice) * d.Position.Qty
	profitRate := float64(result.SellPrice-d.Position.BuyPrice) / float64(d.Position.BuyPrice) * 100

	if err := m.repo.ClosePosition(ctx, d.Position.TradingID, sellTime, result.SellPrice, profitRate, profitAmount, d.Reason); err != nil {
		return fmt.Errorf("close position %s: %w", d.Position.Ticker, err)
	}

	m.logger.WithFields(map[string]interface{}{
		"ticker": d.Position.Ticker, "reason": d.Reason, "profit_rate": profitRate,
	}).Info("position closed")

	if m.onClose != nil {
		m.onClose(ctx, contracts.TradingHistoryEntry{
			Position:     d.Position,
			SellTime:     &sellTime,
			SellPrice:    result.SellPrice,
			ProfitRate:   profitRate,
			ProfitAmount: profitAmount,
			CloseReason:  d.Reason,
		})
	}
	return nil
}

// ForceCloseAll implements spec.md §4.9 force_close_all (14:50): closes
// only day_trade positions, reason force_close.
func (m *Manager) ForceCloseAll(ctx context.Context) error {
	positions, err := m.repo.OpenPositions(ctx, m.mode)
	if err != nil {
		return fmt.Errorf("load open positions: %w", err)
	}
	for _, pos := range positions {
		if pos.PickType != contracts.PickTypeDayTrade {
			continue
		}
		if err := m.closeWithReason(ctx, pos, contracts.CloseForceClose); err != nil {
			m.logger.WithFields(map[string]interface{}{"ticker": pos.Ticker, "error": err.Error()}).Warn("force_close_all: close failed")
		}
	}
	return nil
}

// FinalCloseAll implements spec.md §4.9 final_close_all (15:20): closes
// every remaining open position (day_trade and swing), reason final_close.
func (m *Manager) FinalCloseAll(ctx context.Context) error {
	positions, err := m.repo.OpenPositions(ctx, m.mode)
	if err != nil {
		return fmt.Errorf("load open positions: %w", err)
	}
	for _, pos := range positions {
		if err := m.closeWithReason(ctx, pos, contracts.CloseFinalClose); err != nil {
			m.logger.WithFields(map[string]interface{}{"ticker": pos.Ticker, "error": err.Error()}).Warn("final_close_all: close failed")
		}
	}
	return nil
}

func (m *Manager) closeWithReason(ctx context.Context, pos contracts.Position, reason contracts.CloseReason) error {
	quote, err := m.gateway.GetPrice(ctx, pos.Ticker)
	if err != nil {
		return fmt.Errorf("fetch price before close: %w", err)
	}
	profitRate := float64(quote.Last-pos.BuyPrice) / float64(pos.BuyPrice) * 100
	return m.ExecuteExit(ctx, ExitDecision{Position: pos, CurrentPrice: quote.Last, ProfitRate: profitRate, Reason: reason})
}
