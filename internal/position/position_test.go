package position

import (
	"testing"

	"github.com/hanbat-quant/sentinel/internal/contracts"
	"github.com/hanbat-quant/sentinel/pkg/config"
)

func testManager(thresholds config.Thresholds) *Manager {
	return &Manager{thresholds: thresholds, mode: contracts.ModeVTS}
}

func TestEffectivePositionCap(t *testing.T) {
	m := testManager(config.Thresholds{PositionMaxBull: 5, PositionMaxBear: 2, PositionMaxNeutral: 3})
	if got := m.EffectivePositionCap(contracts.RegimeBull); got != 5 {
		t.Errorf("bull: expected 5, got %d", got)
	}
	if got := m.EffectivePositionCap(contracts.RegimeBearFlat); got != 2 {
		t.Errorf("bear: expected 2, got %d", got)
	}
	if got := m.EffectivePositionCap(contracts.RegimeSideways); got != 3 {
		t.Errorf("sideways: expected 3, got %d", got)
	}
}

func TestEvaluateExit_OrderedPriority(t *testing.T) {
	m := testManager(config.Thresholds{
		TakeProfit1: 5.0, TakeProfit2: 10.0, StopLoss: -3.0,
		TrailingRatioBull: 0.92, TrailingRatioOther: 0.95,
	})

	pos := contracts.Position{BuyPrice: 10000, PeakPrice: 10000, MarketEnv: contracts.RegimeNeutral}

	if reason, exit := m.evaluateExit(pos, 11000, 10.0); !exit || reason != contracts.CloseTakeProfit2 {
		t.Errorf("expected take_profit_2, got reason=%s exit=%v", reason, exit)
	}
	if reason, exit := m.evaluateExit(pos, 10500, 5.0); !exit || reason != contracts.CloseTakeProfit1 {
		t.Errorf("expected take_profit_1, got reason=%s exit=%v", reason, exit)
	}
	if reason, exit := m.evaluateExit(pos, 9600, -4.0); !exit || reason != contracts.CloseStopLoss {
		t.Errorf("expected stop_loss, got reason=%s exit=%v", reason, exit)
	}
	if _, exit := m.evaluateExit(pos, 10100, 1.0); exit {
		t.Error("expected no exit in the neutral zone")
	}
}

func TestEvaluateExit_TrailingStopRequiresPriorPeak(t *testing.T) {
	m := testManager(config.Thresholds{
		TakeProfit1: 5.0, TakeProfit2: 10.0, StopLoss: -10.0,
		TrailingRatioBull: 0.92, TrailingRatioOther: 0.95,
	})

	// A just-opened position (peak == buy_price) cannot trail-stop even
	// if current < buy_price * ratio, because PeakPrice == BuyPrice.
	pos := contracts.Position{BuyPrice: 10000, PeakPrice: 10000, MarketEnv: contracts.RegimeNeutral}
	if reason, exit := m.evaluateExit(pos, 9000, -10.0); exit && reason == contracts.CloseTrailingStop {
		t.Error("expected trailing stop to require a peak above buy price")
	}

	// Once peak has moved above buy_price, trailing stop can fire.
	pos.PeakPrice = 12000
	if reason, exit := m.evaluateExit(pos, 11000, 10.0); !exit || reason != contracts.CloseTrailingStop {
		// 11000 <= 12000*0.95=11400, but take_profit_2 (>=10%) fires first per strict order.
		if reason != contracts.CloseTakeProfit2 {
			t.Errorf("expected take_profit_2 or trailing_stop, got reason=%s exit=%v", reason, exit)
		}
	}
}

func TestComputeAbsoluteStopLoss(t *testing.T) {
	if got := computeAbsoluteStopLoss(10000, -3.0); got != 9700 {
		t.Errorf("expected 9700, got %d", got)
	}
}
