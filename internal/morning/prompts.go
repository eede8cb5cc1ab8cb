package morning

import (
	"fmt"
	"strings"

	"github.com/hanbat-quant/sentinel/internal/contracts"
)

func buildMarketEnvPrompt(sectors []contracts.NamedChange, commodities, forex []contracts.NamedChange, geo []contracts.GeopoliticsEvent) string {
	var b strings.Builder
	b.WriteString("당신은 한국 주식시장 개장 전 거시 환경을 분석하는 애널리스트입니다.\n")
	b.WriteString("아래 데이터를 보고 오늘의 시장 레짐을 판단하세요.\n\n")

	b.WriteString("[미국 섹터 등락 (|변동률| >= 2%)]\n")
	for _, s := range sectors {
		fmt.Fprintf(&b, "- %s: %.2f%%\n", s.Name, s.ChangeRate)
	}
	b.WriteString("\n[원자재]\n")
	for _, c := range commodities {
		fmt.Fprintf(&b, "- %s: %.2f%%\n", c.Name, c.ChangeRate)
	}
	b.WriteString("\n[환율]\n")
	for _, f := range forex {
		fmt.Fprintf(&b, "- %s: %.2f%%\n", f.Name, f.ChangeRate)
	}
	if len(geo) > 0 {
		b.WriteString("\n[지정학 이슈]\n")
		for _, g := range geo {
			fmt.Fprintf(&b, "- %s: %s (영향도 %.2f)\n", g.Country, g.Headline, g.ImpactScore)
		}
	}

	b.WriteString("\n다음 JSON 형식으로만 응답하세요:\n")
	b.WriteString(`{"regime": "리스크온|리스크오프|중립", "leading_themes": ["..."], "korean_market_impact": "..."}`)
	b.WriteString("\n")
	return b.String()
}

func buildMaterialsPrompt(filings []contracts.FilingRecord, pd *contracts.PriceData, gainers []contracts.PriceSnapshot, naver, newsapi []contracts.NewsItem, env MarketEnv) string {
	var b strings.Builder
	b.WriteString("당신은 한국 주식 재료 분석 애널리스트입니다.\n")
	fmt.Fprintf(&b, "전일 시장 레짐: %s (%s)\n\n", env.Regime, env.KoreanMarketImpact)

	b.WriteString("[공시]\n")
	for _, f := range filings {
		fmt.Fprintf(&b, "- [%s] %s: %s\n", f.StockCode, f.Title, f.BodySummary)
	}

	b.WriteString("\n[전일 상한가/15%+ 상승 종목]\n")
	for _, g := range gainers {
		fmt.Fprintf(&b, "- [%s] %s: %.2f%%\n", g.StockCode, g.StockName, g.ChangeRate)
	}

	b.WriteString("\n[뉴스]\n")
	for _, n := range naver {
		fmt.Fprintf(&b, "- %s: %s\n", n.Title, n.Summary)
	}
	for _, n := range newsapi {
		fmt.Fprintf(&b, "- %s: %s\n", n.Title, n.Summary)
	}

	b.WriteString("\n최대 20개의 후보 종목을 다음 JSON 형식으로만 응답하세요:\n")
	b.WriteString(`{"candidates": [{"stock_name": "...", "stock_code": "...", "reason": "...", "material_strength": "상|중|하", "category": "공시|테마|순환매|숏스퀴즈"}], "exclusion_rationale": "..."}`)
	b.WriteString("\n")
	return b.String()
}

func buildPickFinalPrompt(candidates []contracts.Candidate, fundTop20 []contracts.FundConcentrationRow, shortTop20 []contracts.ShortInterestRow, ragContext string) string {
	var b strings.Builder
	b.WriteString("당신은 최종 매매 종목을 선정하는 트레이딩 데스크 책임자입니다.\n\n")

	b.WriteString("[후보 종목]\n")
	for _, c := range candidates {
		fmt.Fprintf(&b, "- [%s] %s (%s, %s): %s\n", c.StockCode, c.StockName, c.Category, c.CapTier, c.Reason)
	}

	b.WriteString("\n[수급 집중도 상위 20]\n")
	for _, f := range fundTop20 {
		fmt.Fprintf(&b, "- [%s] rank=%d score=%.2f\n", f.StockCode, f.Rank, f.Score)
	}

	b.WriteString("\n[공매도 비중 상위 20]\n")
	for _, s := range shortTop20 {
		fmt.Fprintf(&b, "- [%s] 공매도비중=%.2f%%\n", s.StockCode, s.ShortRatio)
	}

	if ragContext != "" {
		b.WriteString("\n[과거 유사 패턴]\n")
		b.WriteString(ragContext)
		b.WriteString("\n")
	}

	b.WriteString("\n최대 15개 순위를 매겨 다음 JSON 형식으로만 응답하세요:\n")
	b.WriteString(`{"picks": [{"rank": 1, "stock_name": "...", "stock_code": "...", "reason": "...", "category": "...", "target_return": "+5%", "stop_loss": "-3%", "is_theme": false, "entry_window": "09:00-09:30"}]}`)
	b.WriteString("\n")
	return b.String()
}
