package collectors

import (
	"context"
	"encoding/xml"
	"net/url"
	"strings"

	"github.com/hanbat-quant/sentinel/internal/contracts"
	"github.com/hanbat-quant/sentinel/pkg/httputil"
	"github.com/hanbat-quant/sentinel/pkg/logger"
)

// geopoliticsFeed is one RSS source the geopolitics collector scans, with
// an optional keyword gate (empty = take everything, used for
// Korea-policy-specific feeds that are already on-topic by construction).
type geopoliticsFeed struct {
	name     string
	url      string
	keywords []string
}

var geopoliticsFeeds = []geopoliticsFeed{
	{
		name: "reuters_business",
		url:  "https://feeds.reuters.com/reuters/businessNews",
		keywords: []string{"korea", "steel", "defense", "tariff",
			"semiconductor", "battery", "nato", "china"},
	},
	{
		name: "reuters_world",
		url:  "https://feeds.reuters.com/reuters/worldNews",
		keywords: []string{"korea", "nato", "defense", "steel", "tariff",
			"china", "russia", "ukraine"},
	},
}

var geopoliticsQueries = []string{
	"korea steel tariff",
	"nato defense spending korea",
	"trump tariff korea export",
	"china stimulus steel",
}

// countryImpact maps a lowercase keyword found in a headline to the country
// whose policy drives it and a signed impact score on Korean equities
// (positive = domestic-sector tailwind, negative = headwind).
var countryImpact = []struct {
	keyword string
	country string
	impact  float64
}{
	{"steel tariff", "United States", 0.6},
	{"trump tariff", "United States", 0.3},
	{"chips act", "United States", 0.6},
	{"ira", "United States", 0.2},
	{"nato", "NATO", 0.65},
	{"defense spending", "NATO", 0.6},
	{"china stimulus", "China", 0.55},
	{"china infrastructure", "China", 0.5},
	{"china lockdown", "China", -0.5},
	{"opec", "OPEC", 0.5},
	{"oil price", "Global", 0.45},
	{"russia", "Russia/Ukraine", 0.0},
	{"ukraine", "Russia/Ukraine", 0.0},
	{"ceasefire", "Russia/Ukraine", -0.4},
}

// GeopoliticsSource implements GeopoliticsCollector: RSS sweep across a
// fixed feed list plus query-based search, keyword-scored against a
// country impact table (supplemented feature; SPEC_FULL.md item 2).
type GeopoliticsSource struct {
	http   *httputil.Client
	logger *logger.Logger
}

func NewGeopoliticsSource(http *httputil.Client, log *logger.Logger) *GeopoliticsSource {
	return &GeopoliticsSource{http: http, logger: log}
}

func (s *GeopoliticsSource) Collect(ctx context.Context) ([]contracts.GeopoliticsEvent, error) {
	var events []contracts.GeopoliticsEvent
	seen := make(map[string]bool)

	for _, feed := range geopoliticsFeeds {
		resp, err := s.http.Get(ctx, feed.url)
		if err != nil {
			s.logger.WithFields(map[string]interface{}{"feed": feed.name, "error": err.Error()}).Warn("geopolitics feed fetch failed")
			continue
		}
		var parsed rssFeed
		decErr := xml.NewDecoder(resp.Body).Decode(&parsed)
		resp.Body.Close()
		if decErr != nil {
			s.logger.WithFields(map[string]interface{}{"feed": feed.name, "error": decErr.Error()}).Warn("geopolitics feed parse failed")
			continue
		}
		for _, item := range parsed.Channel.Items {
			raw := strings.ToLower(item.Title + " " + item.Description)
			if len(feed.keywords) > 0 && !anyContains(raw, feed.keywords) {
				continue
			}
			if seen[item.Link] {
				continue
			}
			seen[item.Link] = true
			if ev, ok := scoreHeadline(item.Title, raw); ok {
				events = append(events, ev)
			}
		}
	}

	for _, query := range geopoliticsQueries {
		reqURL := "https://news.google.com/rss/search?q=" + url.QueryEscape(query) + "&hl=ko&gl=KR&ceid=KR:ko"
		resp, err := s.http.Get(ctx, reqURL)
		if err != nil {
			s.logger.WithFields(map[string]interface{}{"query": query, "error": err.Error()}).Warn("geopolitics query fetch failed")
			continue
		}
		var parsed rssFeed
		decErr := xml.NewDecoder(resp.Body).Decode(&parsed)
		resp.Body.Close()
		if decErr != nil {
			continue
		}
		for _, item := range parsed.Channel.Items {
			if seen[item.Link] {
				continue
			}
			seen[item.Link] = true
			raw := strings.ToLower(item.Title)
			if ev, ok := scoreHeadline(item.Title, raw); ok {
				events = append(events, ev)
			}
		}
	}

	return events, nil
}

func scoreHeadline(title, raw string) (contracts.GeopoliticsEvent, bool) {
	for _, ci := range countryImpact {
		if strings.Contains(raw, ci.keyword) {
			return contracts.GeopoliticsEvent{
				Country:     ci.country,
				Headline:    strings.TrimSpace(title),
				ImpactScore: ci.impact,
			}, true
		}
	}
	return contracts.GeopoliticsEvent{}, false
}

func anyContains(raw string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(raw, kw) {
			return true
		}
	}
	return false
}
