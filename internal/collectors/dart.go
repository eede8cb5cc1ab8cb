package collectors

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/hanbat-quant/sentinel/internal/contracts"
	"github.com/hanbat-quant/sentinel/pkg/logger"
)

// dartClient talks to DART (Data Analysis, Retrieval and Transfer System),
// backing the dart_filings collector (contracts.FilingRecord). DART's
// server requires an RSA-key-exchange cipher suite Go no longer offers by
// default, hence the dedicated transport.
type dartClient struct {
	http    *http.Client
	logger  *logger.Logger
	apiKey  string
	baseURL string
}

func newDartClient(apiKey string, log *logger.Logger) *dartClient {
	return &dartClient{
		http:    newLegacyTLSClient(30 * time.Second),
		logger:  log,
		apiKey:  apiKey,
		baseURL: "https://opendart.fss.or.kr",
	}
}

func newLegacyTLSClient(timeout time.Duration) *http.Client {
	tlsCfg := &tls.Config{
		MinVersion: tls.VersionTLS12,
		MaxVersion: tls.VersionTLS12,
		CipherSuites: []uint16{
			tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305_SHA256,
			tls.TLS_RSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_RSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_RSA_WITH_AES_128_CBC_SHA,
			tls.TLS_RSA_WITH_AES_256_CBC_SHA,
		},
	}
	tr := &http.Transport{
		Proxy:             http.ProxyFromEnvironment,
		ForceAttemptHTTP2: false,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		TLSClientConfig:       tlsCfg,
		MaxIdleConns:          20,
		MaxConnsPerHost:       5,
		IdleConnTimeout:       90 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &http.Client{Transport: tr, Timeout: timeout}
}

type dartDisclosureResponse struct {
	Status      string           `json:"status"`
	Message     string           `json:"message"`
	TotalPage   int              `json:"total_page"`
	Disclosures []dartDisclosure `json:"list"`
}

type dartDisclosure struct {
	CorpName  string `json:"corp_name"`
	StockCode string `json:"stock_code"`
	ReportNm  string `json:"report_nm"`
	RceptDt   string `json:"rcept_dt"` // YYYYMMDD
}

// majorDisclosureKeywords gates FilingRecord candidates down to the
// report types C6 stage 2 treats as materially relevant.
var majorDisclosureKeywords = []string{
	"사업보고서", "분기보고서", "반기보고서", "주요사항보고서",
	"유상증자", "무상증자", "합병", "분할", "영업양수도", "자기주식",
	"전환사채", "신주인수권부사채",
}

func isMajorDisclosure(reportName string) bool {
	for _, kw := range majorDisclosureKeywords {
		if strings.Contains(reportName, kw) {
			return true
		}
	}
	return false
}

// fetchFilings fetches every disclosure page for the trading day and
// returns the ones classified as material, mapped into FilingRecord. DART
// doesn't carry a per-filing body summary in the list endpoint, so
// BodySummary is populated from the report title (a detail-fetch per
// filing is out of scope for a pre-open batch of this size).
func (c *dartClient) fetchFilings(ctx context.Context, day time.Time) ([]contracts.FilingRecord, error) {
	date := day.Format("20060102")
	var out []contracts.FilingRecord

	for page := 1; page <= 10; page++ {
		url := fmt.Sprintf("%s/api/list.json?crtfc_key=%s&bgn_de=%s&end_de=%s&page_no=%d&page_count=100",
			c.baseURL, c.apiKey, date, date, page)

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("dart request page %d: %w", page, err)
		}
		var result dartDisclosureResponse
		decErr := json.NewDecoder(resp.Body).Decode(&result)
		resp.Body.Close()
		if decErr != nil {
			return nil, fmt.Errorf("decode dart response: %w", decErr)
		}

		if result.Status == "013" {
			break // no data for this window
		}
		if result.Status != "000" {
			return nil, fmt.Errorf("dart API error %s: %s", result.Status, result.Message)
		}

		for _, d := range result.Disclosures {
			if !isMajorDisclosure(d.ReportNm) {
				continue
			}
			filedAt, _ := time.Parse("20060102", d.RceptDt)
			out = append(out, contracts.FilingRecord{
				StockCode:   d.StockCode,
				StockName:   d.CorpName,
				Title:       d.ReportNm,
				BodySummary: d.ReportNm,
				FiledAt:     filedAt,
			})
		}

		if page >= result.TotalPage {
			break
		}
	}

	return out, nil
}

// DartSource implements DartFilingsCollector over the live DART API.
type DartSource struct{ client *dartClient }

func NewDartSource(apiKey string, log *logger.Logger) *DartSource {
	return &DartSource{client: newDartClient(apiKey, log)}
}

func (s *DartSource) Collect(ctx context.Context, day time.Time) ([]contracts.FilingRecord, error) {
	if s.client.apiKey == "" {
		return nil, fmt.Errorf("dart: no API key configured")
	}
	return s.client.fetchFilings(ctx, day)
}
