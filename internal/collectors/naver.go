package collectors

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hanbat-quant/sentinel/internal/contracts"
	"github.com/hanbat-quant/sentinel/pkg/httputil"
	"github.com/hanbat-quant/sentinel/pkg/logger"
)

// naverClient talks to Naver Finance's public JSON endpoints, backing the
// price_data, sector_etf_data, short_data (via ranking proxies), and
// fund_concentration collectors. No key is required.
type naverClient struct {
	http   *httputil.Client
	logger *logger.Logger
}

func newNaverClient(http *httputil.Client, log *logger.Logger) *naverClient {
	return &naverClient{http: http, logger: log}
}

type marketStockItem struct {
	ItemCode          string `json:"itemcode"`
	ItemName          string `json:"itemname"`
	NowVal            string `json:"nowVal"`
	MarketSum         string `json:"marketSum"`
	FluctuationsRatio string `json:"fluctuationsRatio"`
	AccTradingVolume  string `json:"accumulatedTradingVolume"`
}

// fetchMarketStocks fetches every listed stock's current snapshot for one
// market, ordered by market cap (KOSPI ~960, KOSDAQ ~1830 names).
func (c *naverClient) fetchMarketStocks(ctx context.Context, market string) ([]marketStockItem, error) {
	url := fmt.Sprintf("https://stock.naver.com/api/domestic/market/stock/default?orderType=marketSum&marketType=%s&page=1&pageSize=2000", market)
	resp, err := c.http.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch %s stocks: %w", market, err)
	}
	defer resp.Body.Close()

	var items []marketStockItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("decode %s stocks: %w", market, err)
	}
	return items, nil
}

func toSnapshot(item marketStockItem, sector string) contracts.PriceSnapshot {
	return contracts.PriceSnapshot{
		StockCode:    item.ItemCode,
		StockName:    item.ItemName,
		Sector:       sector,
		MarketCapKRW: parseWonAmount(item.MarketSum),
		Close:        parseWonFloat(item.NowVal),
		ChangeRate:   parsePercentField(item.FluctuationsRatio),
		Volume:       parseWonAmount(item.AccTradingVolume),
	}
}

func parseWonAmount(s string) int64 {
	s = strings.ReplaceAll(s, ",", "")
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return int64(f)
}

func parseWonFloat(s string) float64 {
	s = strings.ReplaceAll(s, ",", "")
	f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f
}

func parsePercentField(s string) float64 {
	s = strings.TrimPrefix(strings.TrimSpace(s), "+")
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

// indexQuote is the shape of Naver's index-summary endpoint.
type indexQuote struct {
	ClosePrice        string `json:"closePrice"`
	FluctuationsRatio string `json:"fluctuationsRatio"`
}

func (c *naverClient) fetchIndex(ctx context.Context, code string) (contracts.IndexSnapshot, error) {
	url := fmt.Sprintf("https://m.stock.naver.com/api/index/%s/basic", code)
	resp, err := c.http.Get(ctx, url)
	if err != nil {
		return contracts.IndexSnapshot{}, fmt.Errorf("fetch index %s: %w", code, err)
	}
	defer resp.Body.Close()

	var q indexQuote
	if err := json.NewDecoder(resp.Body).Decode(&q); err != nil {
		return contracts.IndexSnapshot{}, fmt.Errorf("decode index %s: %w", code, err)
	}
	return contracts.IndexSnapshot{
		Value:      parseWonFloat(q.ClosePrice),
		ChangeRate: parsePercentField(q.FluctuationsRatio),
	}, nil
}

type investorTrendItem struct {
	Bizdate                string `json:"bizdate"`
	ForeignerPureBuyQuant  string `json:"foreignerPureBuyQuant"`
	OrganPureBuyQuant      string `json:"organPureBuyQuant"`
	IndividualPureBuyQuant string `json:"individualPureBuyQuant"`
}

func (c *naverClient) fetchInvestorFlow(ctx context.Context, stockCode string) (contracts.InvestorFlowRow, error) {
	url := fmt.Sprintf("https://m.stock.naver.com/api/stock/%s/trend?period=day", stockCode)
	resp, err := c.http.Get(ctx, url)
	if err != nil {
		return contracts.InvestorFlowRow{}, fmt.Errorf("fetch investor flow %s: %w", stockCode, err)
	}
	defer resp.Body.Close()

	var items []investorTrendItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return contracts.InvestorFlowRow{}, fmt.Errorf("decode investor flow %s: %w", stockCode, err)
	}
	if len(items) == 0 {
		return contracts.InvestorFlowRow{StockCode: stockCode}, nil
	}
	latest := items[0]
	return contracts.InvestorFlowRow{
		StockCode:      stockCode,
		InstitutionNet: parseQuantityField(latest.OrganPureBuyQuant),
		ForeignNet:     parseQuantityField(latest.ForeignerPureBuyQuant),
		IndividualNet:  parseQuantityField(latest.IndividualPureBuyQuant),
	}, nil
}

func parseQuantityField(s string) int64 {
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, "+", "")
	n, _ := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return n
}

// sectorGroupItem is one row of Naver's industry-group listing page.
type sectorGroupItem struct {
	Name       string `json:"name"`
	ChangeRate string `json:"changeRate"`
	NetFlow    string `json:"netFlow"`
}

func (c *naverClient) fetchSectorGroups(ctx context.Context) ([]sectorGroupItem, error) {
	url := "https://m.stock.naver.com/api/sector/group"
	resp, err := c.http.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch sector groups: %w", err)
	}
	defer resp.Body.Close()

	var items []sectorGroupItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("decode sector groups: %w", err)
	}
	return items, nil
}

// dailyCandle is one OHLCV row, used by the closing-strength collector.
type dailyCandle struct {
	TradeDate time.Time
	Open      int64
	High      int64
	Low       int64
	Close     int64
	Volume    int64
}

func (c *naverClient) fetchDailyCandles(ctx context.Context, stockCode string, days int) ([]dailyCandle, error) {
	to := time.Now()
	from := to.AddDate(0, 0, -days)
	url := fmt.Sprintf("https://fchart.stock.naver.com/siseJson.naver?symbol=%s&requestType=1&startTime=%s&endTime=%s&timeframe=day",
		stockCode, from.Format("20060102"), to.Format("20060102"))

	resp, err := c.http.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch candles %s: %w", stockCode, err)
	}
	defer resp.Body.Close()

	var raw [][]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode candles %s: %w", stockCode, err)
	}

	var out []dailyCandle
	for i, row := range raw {
		if i == 0 || len(row) < 6 {
			continue
		}
		dateStr, ok := row[0].(string)
		if !ok || len(dateStr) != 8 {
			continue
		}
		tradeDate, err := time.Parse("20060102", dateStr)
		if err != nil {
			continue
		}
		out = append(out, dailyCandle{
			TradeDate: tradeDate,
			Open:      toInt64Field(row[1]),
			High:      toInt64Field(row[2]),
			Low:       toInt64Field(row[3]),
			Close:     toInt64Field(row[4]),
			Volume:    toInt64Field(row[5]),
		})
	}
	return out, nil
}

func toInt64Field(v interface{}) int64 {
	switch val := v.(type) {
	case float64:
		return int64(val)
	case string:
		n, _ := strconv.ParseInt(val, 10, 64)
		return n
	default:
		return 0
	}
}
