package intraday

import (
	"testing"

	"github.com/hanbat-quant/sentinel/internal/broker"
	"github.com/hanbat-quant/sentinel/internal/contracts"
	"github.com/hanbat-quant/sentinel/pkg/config"
)

func TestAnalyzeOrderbook_StrongOnGoodRatio(t *testing.T) {
	thresholds := config.Thresholds{OrderbookBidAskGood: 2.0, OrderbookBidAskMin: 1.2, OrderbookTop3RatioMin: 0.4}
	ob := broker.Orderbook{TotalBid: 300, TotalAsk: 100}
	a := AnalyzeOrderbook(ob, thresholds)
	if a.Strength != contracts.OrderbookStrong {
		t.Errorf("expected strong, got %s", a.Strength)
	}
}

func TestAnalyzeOrderbook_WeakBelow0_8(t *testing.T) {
	thresholds := config.Thresholds{OrderbookBidAskGood: 2.0, OrderbookBidAskMin: 1.2, OrderbookTop3RatioMin: 0.4}
	ob := broker.Orderbook{TotalBid: 70, TotalAsk: 100}
	a := AnalyzeOrderbook(ob, thresholds)
	if a.Strength != contracts.OrderbookWeak {
		t.Errorf("expected weak, got %s", a.Strength)
	}
}

func TestAnalyzeOrderbook_NeutralOtherwise(t *testing.T) {
	thresholds := config.Thresholds{OrderbookBidAskGood: 2.0, OrderbookBidAskMin: 1.2, OrderbookTop3RatioMin: 0.4}
	ob := broker.Orderbook{TotalBid: 100, TotalAsk: 100}
	a := AnalyzeOrderbook(ob, thresholds)
	if a.Strength != contracts.OrderbookNeutral {
		t.Errorf("expected neutral, got %s", a.Strength)
	}
}

func TestEvaluatePickMilestone_UpperLimitAdjacency(t *testing.T) {
	quote := broker.PriceQuote{ChangePct: 29.6}
	pick := contracts.Pick{TargetReturn: "+5%", StopLoss: "-3%"}
	alertType, fired := EvaluatePickMilestone(quote, pick)
	if !fired || alertType != contracts.AlertPriceTarget {
		t.Errorf("expected price target alert, got fired=%v type=%s", fired, alertType)
	}
}

func TestEvaluatePickMilestone_TargetReachedAt90Percent(t *testing.T) {
	quote := broker.PriceQuote{ChangePct: 4.6} // 0.9 * 5 = 4.5
	pick := contracts.Pick{TargetReturn: "+5%", StopLoss: "-3%"}
	_, fired := EvaluatePickMilestone(quote, pick)
	if !fired {
		t.Error("expected target reached at 90% threshold")
	}
}

func TestEvaluatePickMilestone_StopLossByPercent(t *testing.T) {
	quote := broker.PriceQuote{ChangePct: -3.5}
	pick := contracts.Pick{TargetReturn: "+5%", StopLoss: "-3%"}
	alertType, fired := EvaluatePickMilestone(quote, pick)
	if !fired || alertType != contracts.AlertPriceStop {
		t.Errorf("expected stop loss alert, got fired=%v type=%s", fired, alertType)
	}
}

func TestEvaluatePickMilestone_StopLossByWonPrice(t *testing.T) {
	quote := broker.PriceQuote{ChangePct: 1.0, Last: 9500}
	pick := contracts.Pick{TargetReturn: "+5%", StopLoss: "9,800원"}
	alertType, fired := EvaluatePickMilestone(quote, pick)
	if !fired || alertType != contracts.AlertPriceStop {
		t.Errorf("expected won-price stop loss alert, got fired=%v type=%s", fired, alertType)
	}
}

func TestEvaluatePickMilestone_NoFire(t *testing.T) {
	quote := broker.PriceQuote{ChangePct: 1.0, Last: 10000}
	pick := contracts.Pick{TargetReturn: "+5%", StopLoss: "-3%"}
	_, fired := EvaluatePickMilestone(quote, pick)
	if fired {
		t.Error("expected no alert in neutral zone")
	}
}
