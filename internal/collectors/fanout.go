// Package collectors implements C5's twelve registered data sources plus
// the geopolitics collector, fanned out concurrently each morning into one
// shared contracts.Cache (spec.md §4.5).
package collectors

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hanbat-quant/sentinel/internal/cache"
	"github.com/hanbat-quant/sentinel/internal/contracts"
	"github.com/hanbat-quant/sentinel/pkg/logger"
)

// Notifier is the one C14 dependency the fan-out needs: a best-effort,
// non-fatal summary push after collection completes.
type Notifier interface {
	SendText(ctx context.Context, message string) error
}

// Sources bundles every registered collector the fan-out submits. Each
// field is independently nil-able so a partially wired deployment (e.g. no
// DART key) still runs the rest.
type Sources struct {
	Dart              *DartSource
	Market            *MarketSource
	NewsNaver         *NaverNewsSource
	NewsAPI           *NewsAPISource
	NewsGlobalRSS     *GlobalRSSSource
	Price             *PriceSource
	SectorETF         *SectorETFSource
	ShortInterest     *ShortInterestSource
	EventCalendar     *EventCalendarSource
	ClosingStrength   *ClosingStrengthSource
	VolumeSurge       *VolumeSurgeSource
	FundConcentration *FundConcentrationSource
	Geopolitics       *GeopoliticsSource
}

// FanOut runs C5: submits every registered collector concurrently, waits
// for all of them bounded by perCollectorTimeout, isolates each one's
// failure into success_flags, writes the resulting snapshot into cache,
// and pushes a best-effort summary through notifier (spec.md §4.5 — the
// summary-send failure is logged, never fatal).
type FanOut struct {
	sources             Sources
	dailyCache          *cache.DailyCache
	notifier            Notifier
	logger              *logger.Logger
	perCollectorTimeout time.Duration
}

func NewFanOut(sources Sources, dailyCache *cache.DailyCache, notifier Notifier, log *logger.Logger, perCollectorTimeout time.Duration) *FanOut {
	if perCollectorTimeout <= 0 || perCollectorTimeout > 60*time.Second {
		perCollectorTimeout = 60 * time.Second
	}
	return &FanOut{
		sources:             sources,
		dailyCache:          dailyCache,
		notifier:            notifier,
		logger:              log,
		perCollectorTimeout: perCollectorTimeout,
	}
}

// Run executes the full collection round for the given trading day.
func (f *FanOut) Run(ctx context.Context, tradingDay time.Time) error {
	snapshot := contracts.Cache{
		CollectedAt:  time.Now(),
		SuccessFlags: make(map[string]bool, len(contracts.RequiredCacheKeys)),
	}
	for _, key := range contracts.RequiredCacheKeys {
		if key == "collected_at" || key == "success_flags" {
			continue
		}
		snapshot.SuccessFlags[key] = false
	}

	var mu sync.Mutex
	var wg sync.WaitGroup

	submit := func(key string, fn func(ctx context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					mu.Lock()
					snapshot.SuccessFlags[key] = false
					mu.Unlock()
					f.logger.WithFields(map[string]interface{}{"collector": key, "panic": r}).Error("collector panicked")
				}
			}()

			cctx, cancel := context.WithTimeout(ctx, f.perCollectorTimeout)
			defer cancel()

			err := fn(cctx)

			mu.Lock()
			snapshot.SuccessFlags[key] = err == nil
			mu.Unlock()

			if err != nil {
				f.logger.WithFields(map[string]interface{}{"collector": key, "error": err.Error()}).Warn("collector failed")
			}
		}()
	}

	if f.sources.Dart != nil {
		submit("dart_data", func(cctx context.Context) error {
			rows, err := f.sources.Dart.Collect(cctx, tradingDay)
			if err != nil {
				return err
			}
			mu.Lock()
			snapshot.DartData = rows
			mu.Unlock()
			return nil
		})
	}

	if f.sources.Market != nil {
		submit("market_data", func(cctx context.Context) error {
			data, err := f.sources.Market.Collect(cctx)
			if err != nil {
				return err
			}
			mu.Lock()
			snapshot.MarketData = data
			mu.Unlock()
			return nil
		})
	}

	if f.sources.NewsNaver != nil {
		submit("news_naver", func(cctx context.Context) error {
			items, err := f.sources.NewsNaver.Collect(cctx, "증시")
			if err != nil {
				return err
			}
			mu.Lock()
			snapshot.NewsNaver = items
			mu.Unlock()
			return nil
		})
	}

	if f.sources.NewsAPI != nil {
		submit("news_newsapi", func(cctx context.Context) error {
			items, err := f.sources.NewsAPI.Collect(cctx, "Korea stock market")
			if err != nil {
				return err
			}
			mu.Lock()
			snapshot.NewsNewsAPI = items
			mu.Unlock()
			return nil
		})
	}

	if f.sources.NewsGlobalRSS != nil {
		submit("news_global_rss", func(cctx context.Context) error {
			items, err := f.sources.NewsGlobalRSS.Collect(cctx)
			if err != nil {
				return err
			}
			mu.Lock()
			snapshot.NewsGlobalRSS = items
			mu.Unlock()
			return nil
		})
	}

	if f.sources.Price != nil {
		submit("price_data", func(cctx context.Context) error {
			data, err := f.sources.Price.Collect(cctx)
			if err != nil {
				return err
			}
			mu.Lock()
			snapshot.PriceData = data
			mu.Unlock()
			return nil
		})
	}

	if f.sources.SectorETF != nil {
		submit("sector_etf_data", func(cctx context.Context) error {
			rows, err := f.sources.SectorETF.Collect(cctx)
			if err != nil {
				return err
			}
			mu.Lock()
			snapshot.SectorETFData = rows
			mu.Unlock()
			return nil
		})
	}

	if f.sources.ShortInterest != nil {
		submit("short_data", func(cctx context.Context) error {
			rows, err := f.sources.ShortInterest.Collect(cctx)
			if err != nil {
				return err
			}
			mu.Lock()
			snapshot.ShortData = rows
			mu.Unlock()
			return nil
		})
	}

	if f.sources.EventCalendar != nil {
		submit("event_calendar", func(cctx context.Context) error {
			rows, err := f.sources.EventCalendar.Collect(cctx)
			if err != nil {
				return err
			}
			mu.Lock()
			snapshot.EventCalendar = rows
			mu.Unlock()
			return nil
		})
	}

	if f.sources.Geopolitics != nil {
		submit("geopolitics_data", func(cctx context.Context) error {
			rows, err := f.sources.Geopolitics.Collect(cctx)
			if err != nil {
				return err
			}
			mu.Lock()
			snapshot.GeopoliticsData = rows
			mu.Unlock()
			return nil
		})
	}

	// closing_strength, volume_surge, and fund_concentration all depend on
	// price_data's top-gainer list, so they run after the main wave joins
	// rather than racing it — still bounded by their own per-collector
	// timeout, still isolated from each other.
	wg.Wait()

	var dependentWG sync.WaitGroup
	gainers := []contracts.PriceSnapshot{}
	if snapshot.PriceData != nil {
		gainers = snapshot.PriceData.TopGainers
	}
	codes := make([]string, 0, len(gainers))
	for _, g := range gainers {
		codes = append(codes, g.StockCode)
	}
	targetFn := func(context.Context) ([]string, error) { return codes, nil }

	submitDependent := func(key string, fn func(ctx context.Context) error) {
		dependentWG.Add(1)
		go func() {
			defer dependentWG.Done()
			defer func() {
				if r := recover(); r != nil {
					mu.Lock()
					snapshot.SuccessFlags[key] = false
					mu.Unlock()
					f.logger.WithFields(map[string]interface{}{"collector": key, "panic": r}).Error("collector panicked")
				}
			}()
			cctx, cancel := context.WithTimeout(ctx, f.perCollectorTimeout)
			defer cancel()
			err := fn(cctx)
			mu.Lock()
			snapshot.SuccessFlags[key] = err == nil
			mu.Unlock()
			if err != nil {
				f.logger.WithFields(map[string]interface{}{"collector": key, "error": err.Error()}).Warn("collector failed")
			}
		}()
	}

	if f.sources.ClosingStrength != nil {
		f.sources.ClosingStrength.targets = targetFn
		submitDependent("closing_strength_result", func(cctx context.Context) error {
			rows, err := f.sources.ClosingStrength.Collect(cctx)
			if err != nil {
				return err
			}
			mu.Lock()
			snapshot.ClosingStrengthResult = rows
			mu.Unlock()
			return nil
		})
	}

	if f.sources.VolumeSurge != nil {
		f.sources.VolumeSurge.targets = targetFn
		submitDependent("volume_surge_result", func(cctx context.Context) error {
			rows, err := f.sources.VolumeSurge.Collect(cctx)
			if err != nil {
				return err
			}
			mu.Lock()
			snapshot.VolumeSurgeResult = rows
			mu.Unlock()
			return nil
		})
	}

	if f.sources.FundConcentration != nil {
		submitDependent("fund_concentration_result", func(cctx context.Context) error {
			rows, err := f.sources.FundConcentration.Collect(cctx, gainers)
			if err != nil {
				return err
			}
			mu.Lock()
			snapshot.FundConcentrationResult = rows
			mu.Unlock()
			return nil
		})
	}

	dependentWG.Wait()

	f.dailyCache.Replace(snapshot)

	summary := f.formatSummary(snapshot)
	if f.notifier != nil {
		if err := f.notifier.SendText(ctx, summary); err != nil {
			f.logger.WithFields(map[string]interface{}{"error": err.Error()}).Warn("raw-data summary send failed")
		}
	}

	return nil
}

func (f *FanOut) formatSummary(snapshot contracts.Cache) string {
	ok, total := 0, len(snapshot.SuccessFlags)
	for _, v := range snapshot.SuccessFlags {
		if v {
			ok++
		}
	}
	return fmt.Sprintf("데이터 수집 완료: %d/%d 성공 (%s)", ok, total, snapshot.CollectedAt.Format("15:04:05"))
}
