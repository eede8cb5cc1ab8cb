package kis

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/hanbat-quant/sentinel/internal/broker"
	"github.com/hanbat-quant/sentinel/internal/ratelimit"
	"github.com/hanbat-quant/sentinel/pkg/config"
	"github.com/hanbat-quant/sentinel/pkg/httputil"
	"github.com/hanbat-quant/sentinel/pkg/logger"
)

// Client handles communication with KIS (한국투자증권) API and backs
// broker.Gateway. One Client instance owns one trading mode's token cache
// — the paper and live instances never share accessToken/tokenExpiry, so
// refreshing one never invalidates the other (spec.md §4.4).
// ⭐ SSOT: KIS API 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	limiter    *ratelimit.Limiter
	logger     *logger.Logger
	cfg        config.KISConfig

	// Token management
	accessToken string
	tokenExpiry time.Time
	tokenMu     sync.RWMutex
}

// NewClient creates a new KIS API client bound to one trading mode's
// credentials, HTTP client and rate limiter.
func NewClient(cfg config.KISConfig, httpClient *httputil.Client, limiter *ratelimit.Limiter, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		limiter:    limiter,
		logger:     log,
		cfg:        cfg,
	}
}

var _ broker.Gateway = (*Client)(nil)
var _ broker.TokenCache = (*Client)(nil)

// TokenResponse represents the OAuth token response
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// IsValid reports whether the cached token has more than 5 minutes left,
// per broker.TokenCache.
func (c *Client) IsValid() bool {
	c.tokenMu.RLock()
	defer c.tokenMu.RUnlock()
	return c.accessToken != "" && time.Until(c.tokenExpiry) > 5*time.Minute
}

// Token returns the cached token, refreshing it first if stale. It is the
// exported form of getToken, satisfying broker.TokenCache.
func (c *Client) Token(ctx context.Context) (string, error) {
	return c.getToken(ctx)
}

// getToken gets a valid access token, refreshing if necessary
func (c *Client) getToken(ctx context.Context) (string, error) {
	c.tokenMu.RLock()
	if c.accessToken != "" && time.Until(c.tokenExpiry) > 5*time.Minute {
		token := c.accessToken
		c.tokenMu.RUnlock()
		return token, nil
	}
	c.tokenMu.RUnlock()

	// Need to refresh token
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()

	// Double-check after acquiring write lock
	if c.accessToken != "" && time.Until(c.tokenExpiry) > 5*time.Minute {
		return c.accessToken, nil
	}

	// Request new token
	url := fmt.Sprintf("%s/oauth2/tokenP", c.cfg.BaseURL)
	body := fmt.Sprintf(`{"grant_type":"client_credentials","appkey":"%s","appsecret":"%s"}`,
		c.cfg.AppKey, c.cfg.AppSecret)

	resp, err := c.httpClient.Post(ctx, url, "application/json", strings.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("token request failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	var tokenResp TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}

	c.accessToken = tokenResp.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tokenResp.ExpiresIn-60) * time.Second) // 1분 여유

	c.logger.WithFields(map[string]interface{}{
		"expires_in": tokenResp.ExpiresIn,
		"virtual":    c.cfg.IsVirtual,
	}).Info("KIS access token refreshed")

	return c.accessToken, nil
}

// request makes a rate-limited, authenticated request to KIS API. Every
// REST call passes through here, so the limiter.Wait gate in front of it
// covers GetPrice, GetOrderbook, the rank endpoints, orders and balance
// alike (spec.md §4.4: "All REST calls acquire a rate-limiter token
// before the HTTP call").
func (c *Client) request(ctx context.Context, method, path string, trID string, body io.Reader) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	token, err := c.getToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("get token: %w", err)
	}

	url := fmt.Sprintf("%s%s", c.cfg.BaseURL, path)

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("authorization", fmt.Sprintf("Bearer %s", token))
	req.Header.Set("appkey", c.cfg.AppKey)
	req.Header.Set("appsecret", c.cfg.AppSecret)
	req.Header.Set("tr_id", trID)

	return c.httpClient.Do(req)
}

// StockPrice represents a stock price from KIS
type StockPrice struct {
	StockCode  string    `json:"stck_shrn_iscd"`
	TradeDate  string    `json:"stck_bsop_date"`
	OpenPrice  float64   `json:"stck_oprc,string"`
	HighPrice  float64   `json:"stck_hgpr,string"`
	LowPrice   float64   `json:"stck_lwpr,string"`
	ClosePrice float64   `json:"stck_clpr,string"`
	Volume     int64     `json:"acml_vol,string"`
	TradingVal int64     `json:"acml_tr_pbmn,string"`
	FetchedAt  time.Time `json:"-"`
}

// GetDailyPrice gets the most recent daily price for a stock.
func (c *Client) GetDailyPrice(ctx context.Context, stockCode string, date time.Time) (*StockPrice, error) {
	series, err := c.getDailyPriceSeries(ctx, stockCode)
	if err != nil {
		return nil, err
	}
	if len(series) == 0 {
		return nil, fmt.Errorf("no price data for %s", stockCode)
	}
	price := series[0]
	price.StockCode = stockCode
	price.FetchedAt = time.Now()
	return &price, nil
}

// GetDailyClose implements broker.Gateway.GetDailyClose: scans the daily
// series KIS returns for the row matching date (KIS's default window
// covers roughly the trailing month, enough for C10's T+1/T+3/T+7 needs).
func (c *Client) GetDailyClose(ctx context.Context, stockCode string, date time.Time) (float64, error) {
	series, err := c.getDailyPriceSeries(ctx, stockCode)
	if err != nil {
		return 0, err
	}
	want := date.Format("20060102")
	for _, row := range series {
		if row.TradeDate == want {
			return row.ClosePrice, nil
		}
	}
	return 0, fmt.Errorf("no daily close for %s on %s", stockCode, want)
}

func (c *Client) getDailyPriceSeries(ctx context.Context, stockCode string) ([]StockPrice, error) {
	path := "/uapi/domestic-stock/v1/quotations/inquire-daily-price"
	trID := "FHKST01010400" // 국내주식 일별 시세

	params := fmt.Sprintf("?fid_cond_mrkt_div_code=J&fid_input_iscd=%s&fid_period_div_code=D&fid_org_adj_prc=0",
		stockCode)

	resp, err := c.request(ctx, http.MethodGet, path+params, trID, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error status %d: %s", resp.StatusCode, string(body))
	}

	var result struct {
		Output []StockPrice `json:"output"`
		RtCd   string       `json:"rt_cd"`
		MsgCd  string       `json:"msg_cd"`
		Msg1   string       `json:"msg1"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if result.RtCd != "0" {
		return nil, fmt.Errorf("API error: %s - %s", result.MsgCd, result.Msg1)
	}

	return result.Output, nil
}

// currentPriceOutput is the raw inquire-price envelope, shared by
// GetCurrentPrice and the broker.Gateway.GetPrice adapter.
type currentPriceOutput struct {
	StockCode    string `json:"stck_shrn_iscd"`
	OpenPrice    string `json:"stck_oprc"`
	HighPrice    string `json:"stck_hgpr"`
	LowPrice     string `json:"stck_lwpr"`
	ClosePrice   string `json:"stck_prpr"`
	ChangeRate   string `json:"prdy_ctrt"`
	Volume       string `json:"acml_vol"`
	TradingVal   string `json:"acml_tr_pbmn"`
	StockName    string `json:"hts_kor_isnm"`
}

func (c *Client) fetchCurrentPrice(ctx context.Context, stockCode string) (*currentPriceOutput, error) {
	path := "/uapi/domestic-stock/v1/quotations/inquire-price"
	trID := "FHKST01010100" // 국내주식 현재가

	params := fmt.Sprintf("?fid_cond_mrkt_div_code=J&fid_input_iscd=%s", stockCode)

	resp, err := c.request(ctx, http.MethodGet, path+params, trID, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error status %d: %s", resp.StatusCode, string(body))
	}

	var result struct {
		Output currentPriceOutput `json:"output"`
		RtCd   string              `json:"rt_cd"`
		MsgCd  string              `json:"msg_cd"`
		Msg1   string              `json:"msg1"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if result.RtCd != "0" {
		return nil, fmt.Errorf("API error: %s - %s", result.MsgCd, result.Msg1)
	}

	return &result.Output, nil
}

// GetCurrentPrice gets real-time current price for a stock
func (c *Client) GetCurrentPrice(ctx context.Context, stockCode string) (*StockPrice, error) {
	out, err := c.fetchCurrentPrice(ctx, stockCode)
	if err != nil {
		return nil, err
	}

	price := &StockPrice{
		StockCode: stockCode,
		TradeDate: time.Now().Format("20060102"),
		FetchedAt: time.Now(),
	}
	fmt.Sscanf(out.OpenPrice, "%f", &price.OpenPrice)
	fmt.Sscanf(out.HighPrice, "%f", &price.HighPrice)
	fmt.Sscanf(out.LowPrice, "%f", &price.LowPrice)
	fmt.Sscanf(out.ClosePrice, "%f", &price.ClosePrice)
	fmt.Sscanf(out.Volume, "%d", &price.Volume)
	fmt.Sscanf(out.TradingVal, "%d", &price.TradingVal)

	return price, nil
}

// GetPrice implements broker.Gateway.
func (c *Client) GetPrice(ctx context.Context, ticker string) (broker.PriceQuote, error) {
	out, err := c.fetchCurrentPrice(ctx, ticker)
	if err != nil {
		return broker.PriceQuote{}, err
	}

	var quote broker.PriceQuote
	quote.Name = out.StockName
	fmt.Sscanf(out.ClosePrice, "%d", &quote.Last)
	fmt.Sscanf(out.OpenPrice, "%d", &quote.Open)
	fmt.Sscanf(out.ChangeRate, "%f", &quote.ChangePct)
	fmt.Sscanf(out.Volume, "%d", &quote.CumVolume)
	return quote, nil
}
