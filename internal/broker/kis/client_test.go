package kis

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hanbat-quant/sentinel/internal/broker"
	"github.com/hanbat-quant/sentinel/internal/ratelimit"
	"github.com/hanbat-quant/sentinel/pkg/config"
	"github.com/hanbat-quant/sentinel/pkg/httputil"
	"github.com/hanbat-quant/sentinel/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, server *httptest.Server) *Client {
	t.Helper()
	cfg := &config.Config{Env: "test", LogLevel: "error", LogFormat: "console"}
	log := logger.New(cfg)
	kisCfg := config.KISConfig{
		AppKey: "key", AppSecret: "secret", AccountNo: "1234567890", BaseURL: server.URL, IsVirtual: true,
	}
	hc := httputil.New(cfg, log).DisableRetry()
	return NewClient(kisCfg, hc, ratelimit.New(10), log)
}

func TestGetToken_CachesUntilExpiry(t *testing.T) {
	tokenRequests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth2/tokenP":
			tokenRequests++
			w.WriteHeader(http.StatusOK)
			fmt.Fprint(w, `{"access_token":"tok","token_type":"Bearer","expires_in":3600}`)
		default:
			w.WriteHeader(http.StatusOK)
			fmt.Fprint(w, `{"rt_cd":"0","output":{"stck_prpr":"70000","stck_oprc":"69000","prdy_ctrt":"1.5","acml_vol":"1000","hts_kor_isnm":"삼성전자"}}`)
		}
	}))
	defer server.Close()

	c := testClient(t, server)
	ctx := context.Background()

	_, err := c.GetPrice(ctx, "005930")
	require.NoError(t, err)
	_, err = c.GetPrice(ctx, "005930")
	require.NoError(t, err)

	assert.Equal(t, 1, tokenRequests, "second call reuses the cached token")
}

func TestGetPrice_ParsesQuoteFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oauth2/tokenP" {
			fmt.Fprint(w, `{"access_token":"tok","expires_in":3600}`)
			return
		}
		fmt.Fprint(w, `{"rt_cd":"0","output":{"stck_prpr":"70000","stck_oprc":"69000","prdy_ctrt":"1.5","acml_vol":"1000","hts_kor_isnm":"삼성전자"}}`)
	}))
	defer server.Close()

	c := testClient(t, server)
	quote, err := c.GetPrice(context.Background(), "005930")
	require.NoError(t, err)
	assert.Equal(t, int64(70000), quote.Last)
	assert.Equal(t, "삼성전자", quote.Name)
	assert.InDelta(t, 1.5, quote.ChangePct, 0.001)
}

func TestGetPrice_RejectsNonZeroReturnCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oauth2/tokenP" {
			fmt.Fprint(w, `{"access_token":"tok","expires_in":3600}`)
			return
		}
		fmt.Fprint(w, `{"rt_cd":"1","msg_cd":"EGW00123","msg1":"모의투자 불가"}`)
	}))
	defer server.Close()

	c := testClient(t, server)
	_, err := c.GetPrice(context.Background(), "005930")
	assert.Error(t, err)
}

func TestBuy_SizesQuantityByLastPrice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/oauth2/tokenP":
			fmt.Fprint(w, `{"access_token":"tok","expires_in":3600}`)
		case r.URL.Path == "/uapi/hashkey":
			fmt.Fprint(w, `{"HASH":"abc"}`)
		case r.URL.Path == "/uapi/domestic-stock/v1/trading/order-cash":
			fmt.Fprint(w, `{"rt_cd":"0","output":{"ODNO":"0000123","ORD_TMD":"100000"}}`)
		default:
			fmt.Fprint(w, `{"rt_cd":"0","output":{"stck_prpr":"70000","stck_oprc":"69000","prdy_ctrt":"1.5","acml_vol":"1000","hts_kor_isnm":"삼성전자"}}`)
		}
	}))
	defer server.Close()

	c := testClient(t, server)
	result, err := c.Buy(context.Background(), "005930", 500000)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, int64(7), result.Qty) // 500000 / 70000, floor-divided
	assert.Equal(t, int64(70000), result.BuyPrice)
}

var _ broker.Gateway = (*Client)(nil)
