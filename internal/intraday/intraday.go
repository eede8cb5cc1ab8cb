// Package intraday implements C8: a polling watcher scoped exclusively to
// the picks_watchlist, evaluating three ordered alert conditions per
// pick every cycle.
package intraday

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hanbat-quant/sentinel/internal/broker"
	"github.com/hanbat-quant/sentinel/internal/contracts"
	"github.com/hanbat-quant/sentinel/internal/watchlist"
	"github.com/hanbat-quant/sentinel/pkg/config"
	"github.com/hanbat-quant/sentinel/pkg/logger"
)

const upperLimitAdjacencyPct = 29.5

// Alert is the output contract of one fired condition (spec.md §4.8).
type Alert struct {
	StockCode         string
	StockName         string
	CurrentPrice      int64
	ChangeRate        float64
	DeltaRate         float64
	VolumeRatio       float64
	MomentaryStrength contracts.OrderbookStrength
	ConditionMet      bool
	DetectedAt        string // HH:MM:SS KST
	Source            contracts.TriggerSource
	OrderbookAnalysis *OrderbookAnalysis
	PickReason        string
	AlertType         contracts.AlertType
	Category          contracts.Category
}

// OrderbookAnalysis is §4.8.1's derived block.
type OrderbookAnalysis struct {
	BidAskRatio          float64
	Top3AskConcentration float64
	Strength             contracts.OrderbookStrength
}

// snapshot is one pick's prior-cycle state.
type snapshot struct {
	changeRate   float64
	cumVolume    int64
	confirmCount int
}

// Watcher owns the warm-up/dedup/confirm state machine. It reads nothing
// but picks_watchlist — any ticker absent from that map is invisible to
// every method here (spec.md §4.8's single most important invariant).
type Watcher struct {
	gateway    broker.Gateway
	watchlist  *watchlist.State
	thresholds config.Thresholds
	logger     *logger.Logger
	onAlert    func(context.Context, Alert)

	mu                 sync.Mutex
	warm               bool
	prior              map[string]snapshot
	priceMilestoneDone map[string]bool
	bidWallMinute      map[string]string
	picks              map[string]contracts.Pick

	stopCh chan struct{}
	wg     sync.WaitGroup
}

func New(gateway broker.Gateway, wl *watchlist.State, thresholds config.Thresholds, log *logger.Logger, onAlert func(context.Context, Alert)) *Watcher {
	return &Watcher{
		gateway:            gateway,
		watchlist:          wl,
		thresholds:         thresholds,
		logger:             log,
		onAlert:            onAlert,
		prior:              make(map[string]snapshot),
		priceMilestoneDone: make(map[string]bool),
		bidWallMinute:      make(map[string]string),
		picks:              make(map[string]contracts.Pick),
	}
}

// SetPicks supplies today's final picks (keyed by stock_code) so the
// price-milestone condition can read each pick's actual target_return/
// stop_loss strings — the watchlist entry alone doesn't carry them.
func (w *Watcher) SetPicks(picks map[string]contracts.Pick) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.picks = picks
}

// Start launches the polling loop (09:00). Call Stop to cancel it.
func (w *Watcher) Start(ctx context.Context) {
	w.stopCh = make(chan struct{})
	w.wg.Add(1)
	go w.loop(ctx)
}

// Stop cancels the polling loop and resets per-ticker state (15:30).
func (w *Watcher) Stop() {
	if w.stopCh != nil {
		close(w.stopCh)
	}
	w.wg.Wait()
	w.reset()
}

func (w *Watcher) reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.warm = false
	w.prior = make(map[string]snapshot)
	w.priceMilestoneDone = make(map[string]bool)
	w.bidWallMinute = make(map[string]string)
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()
	interval := time.Duration(w.thresholds.PollIntervalSec) * time.Second
	if interval <= 0 {
		interval = 10 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			alerts, err := w.PollAllMarkets(ctx)
			if err != nil {
				w.logger.WithFields(map[string]interface{}{"error": err.Error()}).Warn("intraday poll cycle failed")
				continue
			}
			for _, a := range alerts {
				if w.onAlert != nil {
					w.onAlert(ctx, a)
				}
			}
		}
	}
}

// PollAllMarkets runs one polling cycle (spec.md §4.8 poll_all_markets).
func (w *Watcher) PollAllMarkets(ctx context.Context) ([]Alert, error) {
	picks := w.watchlist.GetWatchlist()
	if len(picks) == 0 {
		return nil, nil
	}

	w.mu.Lock()
	isWarmup := !w.warm
	w.mu.Unlock()

	var alerts []Alert
	next := make(map[string]snapshot, len(picks))

	for ticker, entry := range picks {
		quote, err := w.gateway.GetPrice(ctx, ticker)
		if err != nil {
			w.logger.WithFields(map[string]interface{}{"ticker": ticker, "error": err.Error()}).Warn("poll: GetPrice failed, skipping this pick this cycle")
			continue
		}

		if isWarmup {
			next[ticker] = snapshot{changeRate: quote.ChangePct, cumVolume: quote.CumVolume}
			continue
		}

		prior, hadPrior := w.priorSnapshot(ticker)
		confirmCount := prior.confirmCount
		if hadPrior {
			if a := w.evaluate(ctx, ticker, entry, quote, prior); a != nil {
				alerts = append(alerts, *a)
				confirmCount = w.confirmCount(ticker)
			} else {
				confirmCount = w.confirmCount(ticker)
			}
		}

		next[ticker] = snapshot{changeRate: quote.ChangePct, cumVolume: quote.CumVolume, confirmCount: confirmCount}
	}

	w.mu.Lock()
	w.prior = next
	w.warm = true
	w.mu.Unlock()

	return alerts, nil
}

func (w *Watcher) priorSnapshot(ticker string) (snapshot, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	s, ok := w.prior[ticker]
	return s, ok
}

func (w *Watcher) confirmCount(ticker string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.prior[ticker].confirmCount
}

func (w *Watcher) pickFor(ticker string) (contracts.Pick, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	p, ok := w.picks[ticker]
	return p, ok
}

// evaluate checks the three ordered conditions for one pick, firing on
// the first match (spec.md §4.8 step 3).
func (w *Watcher) evaluate(ctx context.Context, ticker string, entry contracts.WatchlistEntry, quote broker.PriceQuote, prior snapshot) *Alert {
	now := time.Now()
	detectedAt := now.Format("15:04:05")

	if a := w.checkPriceMilestone(ticker, entry, quote, detectedAt); a != nil {
		return a
	}
	if a := w.checkSurgeMomentum(ctx, ticker, entry, quote, prior, detectedAt); a != nil {
		return a
	}
	if a := w.checkBidWall(ctx, ticker, entry, quote, now, detectedAt); a != nil {
		return a
	}
	return nil
}

// checkPriceMilestone implements §4.8 step 3a: fires at most once per
// ticker per trading day (dedup set).
func (w *Watcher) checkPriceMilestone(ticker string, entry contracts.WatchlistEntry, quote broker.PriceQuote, detectedAt string) *Alert {
	w.mu.Lock()
	already := w.priceMilestoneDone[ticker]
	w.mu.Unlock()
	if already {
		return nil
	}

	pick, ok := w.pickFor(ticker)
	if !ok {
		return nil
	}

	alertType, fired := EvaluatePickMilestone(quote, pick)
	if !fired {
		return nil
	}

	w.mu.Lock()
	w.priceMilestoneDone[ticker] = true
	w.mu.Unlock()

	return &Alert{
		StockCode: ticker, StockName: entry.StockName, CurrentPrice: quote.Last,
		ChangeRate: quote.ChangePct, ConditionMet: true, DetectedAt: detectedAt,
		Source: contracts.TriggerRate, PickReason: pick.Reason, AlertType: alertType,
		Category: pick.Category,
	}
}

// checkSurgeMomentum implements §4.8 step 3b.
func (w *Watcher) checkSurgeMomentum(ctx context.Context, ticker string, entry contracts.WatchlistEntry, quote broker.PriceQuote, prior snapshot, detectedAt string) *Alert {
	deltaRate := quote.ChangePct - prior.changeRate
	var deltaVolumeRatio float64
	if prior.cumVolume > 0 {
		deltaVolumeRatio = float64(quote.CumVolume-prior.cumVolume) / float64(prior.cumVolume) * 100
	}

	w.mu.Lock()
	count := w.prior[ticker].confirmCount
	w.mu.Unlock()

	if deltaRate >= w.thresholds.PriceDeltaMin && deltaVolumeRatio >= w.thresholds.VolumeDeltaMin {
		count++
	} else {
		count = 0
	}

	w.mu.Lock()
	s := w.prior[ticker]
	s.confirmCount = count
	w.prior[ticker] = s
	w.mu.Unlock()

	if count < w.thresholds.ConfirmCandles {
		return nil
	}

	w.mu.Lock()
	s2 := w.prior[ticker]
	s2.confirmCount = 0
	w.prior[ticker] = s2
	w.mu.Unlock()

	var obAnalysis *OrderbookAnalysis
	if ob, err := w.gateway.GetOrderbook(ctx, ticker); err == nil {
		a := AnalyzeOrderbook(ob, w.thresholds)
		obAnalysis = &a
	}

	pick, _ := w.pickFor(ticker)

	return &Alert{
		StockCode: ticker, StockName: entry.StockName, CurrentPrice: quote.Last,
		ChangeRate: quote.ChangePct, DeltaRate: deltaRate, VolumeRatio: deltaVolumeRatio,
		ConditionMet: true, DetectedAt: detectedAt, Source: contracts.TriggerVolume,
		OrderbookAnalysis: obAnalysis, PickReason: pick.Reason, AlertType: contracts.AlertSurgeMomentum,
		Category: pick.Category,
	}
}

// checkBidWall implements §4.8 step 3c. Dedup by minute granularity.
func (w *Watcher) checkBidWall(ctx context.Context, ticker string, entry contracts.WatchlistEntry, quote broker.PriceQuote, now time.Time, detectedAt string) *Alert {
	if quote.ChangePct < w.thresholds.MinChangeRate {
		return nil
	}

	minuteKey := now.Format("2006-01-02 15:04")
	w.mu.Lock()
	if w.bidWallMinute[ticker] == minuteKey {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	ob, err := w.gateway.GetOrderbook(ctx, ticker)
	if err != nil {
		return nil
	}
	analysis := AnalyzeOrderbook(ob, w.thresholds)
	if analysis.Strength != contracts.OrderbookStrong {
		return nil
	}

	w.mu.Lock()
	w.bidWallMinute[ticker] = minuteKey
	w.mu.Unlock()

	pick, _ := w.pickFor(ticker)

	return &Alert{
		StockCode: ticker, StockName: entry.StockName, CurrentPrice: quote.Last,
		ChangeRate: quote.ChangePct, MomentaryStrength: analysis.Strength, ConditionMet: true,
		DetectedAt: detectedAt, Source: contracts.TriggerRate, OrderbookAnalysis: &analysis,
		PickReason: pick.Reason, AlertType: contracts.AlertBidWall, Category: pick.Category,
	}
}

// AnalyzeOrderbook implements §4.8.1's bid/ask strength classification.
func AnalyzeOrderbook(ob broker.Orderbook, thresholds config.Thresholds) OrderbookAnalysis {
	var bidAskRatio float64
	if ob.TotalAsk > 0 {
		bidAskRatio = float64(ob.TotalBid) / float64(ob.TotalAsk)
	}

	var top3Ask int64
	for i := 0; i < 3 && i < len(ob.Asks); i++ {
		top3Ask += ob.Asks[i].Qty
	}
	var top3Concentration float64
	if ob.TotalAsk > 0 {
		top3Concentration = float64(top3Ask) / float64(ob.TotalAsk)
	}

	strength := contracts.OrderbookNeutral
	switch {
	case bidAskRatio >= thresholds.OrderbookBidAskGood:
		strength = contracts.OrderbookStrong
	case bidAskRatio >= thresholds.OrderbookBidAskMin && top3Concentration >= thresholds.OrderbookTop3RatioMin:
		strength = contracts.OrderbookStrong
	case bidAskRatio < 0.8:
		strength = contracts.OrderbookWeak
	}

	return OrderbookAnalysis{BidAskRatio: bidAskRatio, Top3AskConcentration: top3Concentration, Strength: strength}
}

// EvaluatePickMilestone implements §4.8 step 3a's price-target/stop-loss
// check against a Pick's actual target_return/stop_loss strings.
func EvaluatePickMilestone(quote broker.PriceQuote, pick contracts.Pick) (contracts.AlertType, bool) {
	if quote.ChangePct >= upperLimitAdjacencyPct {
		return contracts.AlertPriceTarget, true
	}
	if target, ok := parsePercent(pick.TargetReturn); ok && quote.ChangePct >= 0.9*target {
		return contracts.AlertPriceTarget, true
	}

	if strings.Contains(pick.StopLoss, "원") {
		if price, err := parseWonPrice(pick.StopLoss); err == nil && quote.Last <= price {
			return contracts.AlertPriceStop, true
		}
	} else if stop, ok := parsePercent(pick.StopLoss); ok && quote.ChangePct <= stop {
		return contracts.AlertPriceStop, true
	}

	return "", false
}

func parsePercent(s string) (float64, bool) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	s = strings.TrimPrefix(s, "+")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func parseWonPrice(s string) (int64, error) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "원")
	s = strings.ReplaceAll(s, ",", "")
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse won price %q: %w", s, err)
	}
	return v, nil
}
