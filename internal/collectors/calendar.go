package collectors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hanbat-quant/sentinel/internal/contracts"
	"github.com/hanbat-quant/sentinel/pkg/logger"
)

// eventTypeKeywords classifies a DART report title into a calendar event
// type; the first match wins, and titles matching none are skipped.
var eventTypeKeywords = []struct {
	eventType string
	keywords  []string
}{
	{"IR", []string{"기업설명회", "기업 설명회"}},
	{"주주총회", []string{"주주총회"}},
	{"실적발표", []string{"실적발표", "영업실적", "잠정실적"}},
	{"배당", []string{"현금배당", "중간배당"}},
}

func classifyEventType(title string) (string, bool) {
	for _, et := range eventTypeKeywords {
		for _, kw := range et.keywords {
			if strings.Contains(title, kw) {
				return et.eventType, true
			}
		}
	}
	return "", false
}

// EventCalendarSource implements EventCalendarCollector by scanning DART's
// disclosure list over a 14-day lookahead window for IR/AGM/earnings/
// dividend announcements, reusing the same legacy-TLS client as dart.go.
type EventCalendarSource struct {
	client *dartClient
	logger *logger.Logger
}

func NewEventCalendarSource(apiKey string, log *logger.Logger) *EventCalendarSource {
	return &EventCalendarSource{client: newDartClient(apiKey, log), logger: log}
}

func (s *EventCalendarSource) Collect(ctx context.Context) ([]contracts.CalendarEvent, error) {
	if s.client.apiKey == "" {
		return nil, fmt.Errorf("event calendar: no DART API key configured")
	}

	today := time.Now()
	bgn := today.Format("20060102")
	end := today.AddDate(0, 0, 14).Format("20060102")

	url := fmt.Sprintf("%s/api/list.json?crtfc_key=%s&bgn_de=%s&end_de=%s&page_no=1&page_count=100",
		s.client.baseURL, s.client.apiKey, bgn, end)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := s.client.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("event calendar request: %w", err)
	}
	defer resp.Body.Close()

	var result dartDisclosureResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode event calendar response: %w", err)
	}
	if result.Status == "013" {
		return nil, nil
	}
	if result.Status != "000" {
		return nil, fmt.Errorf("dart API error %s: %s", result.Status, result.Message)
	}

	out := make([]contracts.CalendarEvent, 0, len(result.Disclosures))
	for _, d := range result.Disclosures {
		eventType, ok := classifyEventType(d.ReportNm)
		if !ok {
			continue
		}
		date, _ := time.Parse("20060102", d.RceptDt)
		out = append(out, contracts.CalendarEvent{
			Date:        date,
			Description: fmt.Sprintf("%s: %s", eventType, d.ReportNm),
			StockCode:   d.StockCode,
		})
	}
	return out, nil
}
