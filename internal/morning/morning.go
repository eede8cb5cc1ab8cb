// Package morning implements C6: the 06:00-08:30 three-stage pipeline
// that turns the overnight Cache into the day's final picks, grounded in
// the teacher's ordered-stage orchestration idiom (each stage logs, does
// its work, and short-circuits the whole run on error).
package morning

import (
	"context"
	"fmt"
	"sort"

	"github.com/hanbat-quant/sentinel/internal/contracts"
	"github.com/hanbat-quant/sentinel/internal/llm"
	"github.com/hanbat-quant/sentinel/internal/rag"
	"github.com/hanbat-quant/sentinel/internal/store"
	"github.com/hanbat-quant/sentinel/pkg/logger"
)

const (
	usSectorDeltaThreshold = 2.0 // |Δ| >= 2% pre-filter, stage 1
	maxCandidates          = 20
	maxPicks               = 15
	ragPatternsPerBlock    = 5
)

// MarketEnv is stage 1's output (spec.md §4.6).
type MarketEnv struct {
	Regime             contracts.MarketRegime `json:"regime"`
	LeadingThemes      []string               `json:"leading_themes"`
	KoreanMarketImpact string                 `json:"korean_market_impact"`
}

func defaultMarketEnv() MarketEnv {
	return MarketEnv{Regime: contracts.RegimeNeutral, LeadingThemes: nil, KoreanMarketImpact: ""}
}

// materialsResult is stage 2's raw LLM output shape before cap-tier
// backfill.
type materialsResult struct {
	Candidates        []rawCandidate `json:"candidates"`
	ExclusionRationale string        `json:"exclusion_rationale"`
}

type rawCandidate struct {
	StockName        string `json:"stock_name"`
	StockCode        string `json:"stock_code"`
	Reason           string `json:"reason"`
	MaterialStrength string `json:"material_strength"`
	Category         string `json:"category"`
}

type picksResult struct {
	Picks []rawPick `json:"picks"`
}

type rawPick struct {
	Rank         int    `json:"rank"`
	StockName    string `json:"stock_name"`
	StockCode    string `json:"stock_code"`
	Reason       string `json:"reason"`
	Category     string `json:"category"`
	TargetReturn string `json:"target_return"`
	StopLoss     string `json:"stop_loss"`
	IsTheme      bool   `json:"is_theme"`
	EntryWindow  string `json:"entry_window"`
}

// Pipeline wires the LLM client, the RAG retriever, and the pick
// repository into the three stages the orchestrator (C13) invokes once
// per morning.
type Pipeline struct {
	llm    *llm.Client
	rag    *rag.Store
	picks  *store.PickRepository
	logger *logger.Logger
}

func New(llmClient *llm.Client, ragStore *rag.Store, picks *store.PickRepository, log *logger.Logger) *Pipeline {
	return &Pipeline{llm: llmClient, rag: ragStore, picks: picks, logger: log}
}

// Result is the pipeline's full output, returned to the orchestrator for
// logging/watchlist handoff.
type Result struct {
	MarketEnv  MarketEnv
	Candidates []contracts.Candidate
	Picks      []contracts.Pick
}

// Run executes all three stages in order, persisting the final picks.
// Any stage error aborts the run — the caller keeps yesterday's watchlist
// state untouched (spec.md §7 "never leave partial state").
func (p *Pipeline) Run(ctx context.Context, date string, cache contracts.Cache) (*Result, error) {
	env, err := p.runStage1(ctx, cache)
	if err != nil {
		return nil, fmt.Errorf("stage1 analyze_market_env failed: %w", err)
	}

	candidates, err := p.runStage2(ctx, cache, env)
	if err != nil {
		return nil, fmt.Errorf("stage2 analyze_materials failed: %w", err)
	}

	picks, err := p.runStage3(ctx, cache, candidates)
	if err != nil {
		return nil, fmt.Errorf("stage3 pick_final failed: %w", err)
	}

	if err := p.picks.SavePicks(ctx, date, picks); err != nil {
		return nil, fmt.Errorf("persist picks: %w", err)
	}

	p.logger.WithFields(map[string]interface{}{
		"date":            date,
		"regime":          env.Regime,
		"candidate_count": len(candidates),
		"pick_count":      len(picks),
	}).Info("morning pipeline complete")

	return &Result{MarketEnv: env, Candidates: candidates, Picks: picks}, nil
}

// runStage1 implements analyze_market_env. JSON parse failures return a
// neutral default and never raise to the caller (spec.md §4.6).
func (p *Pipeline) runStage1(ctx context.Context, cache contracts.Cache) (MarketEnv, error) {
	p.logger.Info("morning stage1: analyze_market_env")

	filtered := filterSectorsByDelta(cache.MarketData.USMarket.Sectors, usSectorDeltaThreshold)
	prompt := buildMarketEnvPrompt(filtered, cache.MarketData.Commodities, cache.MarketData.Forex, cache.GeopoliticsData)

	if !p.llm.Available() {
		return defaultMarketEnv(), nil
	}

	raw, err := p.llm.Complete(ctx, prompt)
	if err != nil {
		p.logger.WithFields(map[string]interface{}{"error": err.Error()}).Warn("stage1 LLM call failed, using neutral default")
		return defaultMarketEnv(), nil
	}

	var env MarketEnv
	if err := llm.ParseOrDefault(raw, &env); err != nil {
		p.logger.WithFields(map[string]interface{}{"error": err.Error()}).Warn("stage1 JSON parse failed, using neutral default")
		return defaultMarketEnv(), nil
	}
	if !isValidRegime(env.Regime) {
		env.Regime = contracts.RegimeNeutral
	}
	return env, nil
}

func isValidRegime(r contracts.MarketRegime) bool {
	switch r {
	case contracts.RegimeRiskOn, contracts.RegimeRiskOff, contracts.RegimeNeutral:
		return true
	}
	return false
}

func filterSectorsByDelta(sectors []contracts.NamedChange, threshold float64) []contracts.NamedChange {
	var out []contracts.NamedChange
	for _, s := range sectors {
		if abs(s.ChangeRate) >= threshold {
			out = append(out, s)
		}
	}
	return out
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

// runStage2 implements analyze_materials: filings, prior-day upper-limit
// and >=15% gainers (market-cap-capped), naver/newsapi news, plus stage 1's
// output. Cap-tier is injected as a post-processing step, not by the LLM.
func (p *Pipeline) runStage2(ctx context.Context, cache contracts.Cache, env MarketEnv) ([]contracts.Candidate, error) {
	p.logger.Info("morning stage2: analyze_materials")

	gainers := filterGainers(cache.PriceData, 15.0)
	prompt := buildMaterialsPrompt(cache.DartData, cache.PriceData, gainers, cache.NewsNaver, cache.NewsNewsAPI, env)

	var result materialsResult
	if p.llm.Available() {
		raw, err := p.llm.Complete(ctx, prompt)
		if err == nil {
			if parseErr := llm.ParseOrDefault(raw, &result); parseErr != nil {
				p.logger.WithFields(map[string]interface{}{"error": parseErr.Error()}).Warn("stage2 JSON parse failed, using empty candidate set")
			}
		} else {
			p.logger.WithFields(map[string]interface{}{"error": err.Error()}).Warn("stage2 LLM call failed, using empty candidate set")
		}
	}

	if len(result.Candidates) > maxCandidates {
		result.Candidates = result.Candidates[:maxCandidates]
	}

	candidates := make([]contracts.Candidate, 0, len(result.Candidates))
	for _, rc := range result.Candidates {
		c := contracts.Candidate{
			StockName:        rc.StockName,
			StockCode:        rc.StockCode,
			Reason:           rc.Reason,
			MaterialStrength: rc.MaterialStrength,
			Category:         contracts.Category(rc.Category),
			CapTier:          lookupCapTier(cache.PriceData, rc.StockCode, rc.StockName),
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}

func filterGainers(pd *contracts.PriceData, minChangeRate float64) []contracts.PriceSnapshot {
	if pd == nil {
		return nil
	}
	var out []contracts.PriceSnapshot
	out = append(out, pd.UpperLimit...)
	for _, s := range pd.TopGainers {
		if s.ChangeRate >= minChangeRate {
			out = append(out, s)
		}
	}
	return out
}

func lookupCapTier(pd *contracts.PriceData, stockCode, stockName string) contracts.CapTier {
	if pd == nil {
		return contracts.CapTierUnranked
	}
	if snap, ok := pd.ByCode[stockCode]; ok {
		return contracts.MarketCapTier(snap.MarketCapKRW)
	}
	if snap, ok := pd.ByName[stockName]; ok {
		return contracts.MarketCapTier(snap.MarketCapKRW)
	}
	return contracts.CapTierUnranked
}

// runStage3 implements pick_final: RAG-context assembly, then the final
// LLM call seeded with candidates, fund-concentration/short-interest top
// 20, and the RAG context; truncates to 15 and back-fills cap_tier.
func (p *Pipeline) runStage3(ctx context.Context, cache contracts.Cache, candidates []contracts.Candidate) ([]contracts.Pick, error) {
	p.logger.Info("morning stage3: pick_final")

	ragContext := ""
	if p.rag != nil {
		ctxBlock, err := p.rag.BuildContext(ctx, candidates, ragPatternsPerBlock)
		if err != nil {
			p.logger.WithFields(map[string]interface{}{"error": err.Error()}).Warn("RAG context build failed, continuing without it")
		} else {
			ragContext = ctxBlock
		}
	}

	fundTop20 := topN(cache.FundConcentrationResult, 20)
	shortTop20 := topN(cache.ShortData, 20)
	prompt := buildPickFinalPrompt(candidates, fundTop20, shortTop20, ragContext)

	var result picksResult
	if p.llm.Available() {
		raw, err := p.llm.Complete(ctx, prompt)
		if err == nil {
			if parseErr := llm.ParseOrDefault(raw, &result); parseErr != nil {
				p.logger.WithFields(map[string]interface{}{"error": parseErr.Error()}).Warn("stage3 JSON parse failed, no picks produced")
			}
		} else {
			p.logger.WithFields(map[string]interface{}{"error": err.Error()}).Warn("stage3 LLM call failed, no picks produced")
		}
	}

	if len(result.Picks) > maxPicks {
		result.Picks = result.Picks[:maxPicks]
	}
	sort.Slice(result.Picks, func(i, j int) bool { return result.Picks[i].Rank < result.Picks[j].Rank })

	candidateMap := make(map[string]contracts.Candidate, len(candidates))
	for _, c := range candidates {
		candidateMap[c.StockCode] = c
	}

	picks := make([]contracts.Pick, 0, len(result.Picks))
	for _, rp := range result.Picks {
		capTier := contracts.CapTierUnranked
		if c, ok := candidateMap[rp.StockCode]; ok {
			capTier = c.CapTier
		}
		picks = append(picks, contracts.Pick{
			Rank:         rp.Rank,
			StockCode:    rp.StockCode,
			StockName:    rp.StockName,
			Reason:       rp.Reason,
			Category:     contracts.Category(rp.Category),
			TargetReturn: rp.TargetReturn,
			StopLoss:     rp.StopLoss,
			IsTheme:      rp.IsTheme,
			EntryWindow:  rp.EntryWindow,
			CapTier:      capTier,
		})
	}
	return picks, nil
}

func topN[T any](s []T, n int) []T {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
