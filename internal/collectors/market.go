package collectors

import (
	"context"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/hanbat-quant/sentinel/internal/contracts"
	"github.com/hanbat-quant/sentinel/pkg/httputil"
	"github.com/hanbat-quant/sentinel/pkg/logger"
)

// stooqSymbol pairs a Stooq quote symbol with the label C6 stage 1 reads
// it under (US sector ETFs proxy "us_market.sectors"; metals/energy proxy
// commodities; major pairs proxy forex).
type stooqSymbol struct {
	Label  string
	Symbol string
}

var (
	usSectorSymbols = []stooqSymbol{
		{"Technology", "xlk.us"}, {"Financials", "xlf.us"}, {"Energy", "xle.us"},
		{"Healthcare", "xlv.us"}, {"Industrials", "xli.us"}, {"Consumer Discretionary", "xly.us"},
		{"Materials", "xlb.us"}, {"Utilities", "xlu.us"}, {"Real Estate", "xlre.us"},
	}
	commoditySymbols = []stooqSymbol{
		{"Gold", "xauusd"}, {"Crude Oil WTI", "cl.f"}, {"Copper", "hg.f"},
	}
	forexSymbols = []stooqSymbol{
		{"USD/KRW", "usdkrw"}, {"USD/JPY", "usdjpy"}, {"EUR/USD", "eurusd"},
	}
)

// MarketSource implements MarketDataCollector over Stooq's free CSV quote
// endpoint — no API key, one row per symbol, "open,close" open-to-close
// change rate is computed client-side since Stooq's snapshot CSV doesn't
// carry a percent field directly.
type MarketSource struct {
	http   *httputil.Client
	logger *logger.Logger
}

func NewMarketSource(http *httputil.Client, log *logger.Logger) *MarketSource {
	return &MarketSource{http: http, logger: log}
}

func (s *MarketSource) Collect(ctx context.Context) (contracts.MarketData, error) {
	sectors, err := s.fetchChanges(ctx, usSectorSymbols)
	if err != nil {
		return contracts.MarketData{}, fmt.Errorf("fetch US sectors: %w", err)
	}
	commodities, err := s.fetchChanges(ctx, commoditySymbols)
	if err != nil {
		s.logger.WithFields(map[string]interface{}{"error": err.Error()}).Warn("commodities fetch failed")
	}
	forex, err := s.fetchChanges(ctx, forexSymbols)
	if err != nil {
		s.logger.WithFields(map[string]interface{}{"error": err.Error()}).Warn("forex fetch failed")
	}

	return contracts.MarketData{
		USMarket:    contracts.USMarketData{Sectors: sectors},
		Commodities: commodities,
		Forex:       forex,
	}, nil
}

func (s *MarketSource) fetchChanges(ctx context.Context, symbols []stooqSymbol) ([]contracts.NamedChange, error) {
	out := make([]contracts.NamedChange, 0, len(symbols))
	var lastErr error
	for _, sym := range symbols {
		change, err := s.fetchOne(ctx, sym.Symbol)
		if err != nil {
			lastErr = err
			continue
		}
		out = append(out, contracts.NamedChange{Name: sym.Label, ChangeRate: change})
	}
	if len(out) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return out, nil
}

func (s *MarketSource) fetchOne(ctx context.Context, symbol string) (float64, error) {
	url := fmt.Sprintf("https://stooq.com/q/l/?s=%s&f=sd2t2ohlc&h&e=csv", symbol)
	resp, err := s.http.Get(ctx, url)
	if err != nil {
		return 0, fmt.Errorf("stooq %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	rows, err := csv.NewReader(resp.Body).ReadAll()
	if err != nil || len(rows) < 2 {
		return 0, fmt.Errorf("stooq %s: malformed CSV", symbol)
	}
	row := rows[1]
	if len(row) < 7 {
		return 0, fmt.Errorf("stooq %s: short row", symbol)
	}
	open, errO := strconv.ParseFloat(row[3], 64)
	close, errC := strconv.ParseFloat(row[6], 64)
	if errO != nil || errC != nil || open == 0 {
		return 0, fmt.Errorf("stooq %s: unparseable quote", symbol)
	}
	return (close - open) / open * 100, nil
}
