package collectors

import (
	"context"
	"time"

	"github.com/hanbat-quant/sentinel/internal/contracts"
)

// The twelve interfaces below document the collector contracts for the
// thirteen sources Sources wires into FanOut. Each concrete *Source type in
// this package satisfies exactly one (NewsCollector is shared by the Naver
// and NewsAPI sources); FanOut calls the concrete types directly (no dynamic
// dispatch is needed since the set is fixed at process start), but the
// interfaces pin down each collector's signature independent of its HTTP
// backing.

type DartFilingsCollector interface {
	Collect(ctx context.Context, day time.Time) ([]contracts.FilingRecord, error)
}

type MarketDataCollector interface {
	Collect(ctx context.Context) (contracts.MarketData, error)
}

type NewsCollector interface {
	Collect(ctx context.Context, query string) ([]contracts.NewsItem, error)
}

type GlobalRSSCollector interface {
	Collect(ctx context.Context) ([]contracts.NewsItem, error)
}

type PriceDataCollector interface {
	Collect(ctx context.Context) (*contracts.PriceData, error)
}

type SectorETFCollector interface {
	Collect(ctx context.Context) ([]contracts.SectorETFRow, error)
}

type ShortInterestCollector interface {
	Collect(ctx context.Context) ([]contracts.ShortInterestRow, error)
}

type EventCalendarCollector interface {
	Collect(ctx context.Context) ([]contracts.CalendarEvent, error)
}

type ClosingStrengthCollector interface {
	Collect(ctx context.Context) ([]contracts.ClosingStrengthRow, error)
}

type VolumeSurgeCollector interface {
	Collect(ctx context.Context) ([]contracts.VolumeSurgeRow, error)
}

type FundConcentrationCollector interface {
	Collect(ctx context.Context, candidates []contracts.PriceSnapshot) ([]contracts.FundConcentrationRow, error)
}

type GeopoliticsCollector interface {
	Collect(ctx context.Context) ([]contracts.GeopoliticsEvent, error)
}

var (
	_ DartFilingsCollector       = (*DartSource)(nil)
	_ MarketDataCollector        = (*MarketSource)(nil)
	_ NewsCollector              = (*NaverNewsSource)(nil)
	_ NewsCollector              = (*NewsAPISource)(nil)
	_ GlobalRSSCollector         = (*GlobalRSSSource)(nil)
	_ PriceDataCollector         = (*PriceSource)(nil)
	_ SectorETFCollector         = (*SectorETFSource)(nil)
	_ ShortInterestCollector     = (*ShortInterestSource)(nil)
	_ EventCalendarCollector     = (*EventCalendarSource)(nil)
	_ ClosingStrengthCollector   = (*ClosingStrengthSource)(nil)
	_ VolumeSurgeCollector       = (*VolumeSurgeSource)(nil)
	_ FundConcentrationCollector = (*FundConcentrationSource)(nil)
	_ GeopoliticsCollector       = (*GeopoliticsSource)(nil)
)
