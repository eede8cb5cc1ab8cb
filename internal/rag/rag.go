// Package rag implements C11: a write-only historical-outcome log on top
// of store.RAGRepository, plus the similar-pattern retriever C6 stage 3
// consumes as LLM context (spec.md §4.11).
package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/hanbat-quant/sentinel/internal/contracts"
	"github.com/hanbat-quant/sentinel/internal/store"
)

type Store struct {
	repo *store.RAGRepository
}

func New(repo *store.RAGRepository) *Store {
	return &Store{repo: repo}
}

// Save persists today's outcome rows: one per final pick (was_picked=true)
// plus one per candidate that was considered but not picked (was_picked=
// false) — the "what we missed" rows spec.md §4.11 calls for so the
// retriever can later surface misses, not just hits.
func (s *Store) Save(ctx context.Context, date string, picks []contracts.Pick, candidates []contracts.Candidate, results map[string]RealizedResult) error {
	pickedCodes := make(map[string]bool, len(picks))
	var patterns []contracts.RAGPattern

	for i, p := range picks {
		pickedCodes[p.StockCode] = true
		rank := i + 1
		res := results[p.StockCode]
		patterns = append(patterns, contracts.RAGPattern{
			Date:        date,
			SignalType:  contracts.NormalizeSignalType(p.Category),
			StockName:   p.StockName,
			StockCode:   p.StockCode,
			CapTier:     p.CapTier,
			WasPicked:   true,
			PickRank:    &rank,
			MaxReturn:   res.MaxReturn,
			Hit20Pct:    res.Hit20Pct,
			HitUpper:    res.HitUpper,
			PatternMemo: p.Reason,
		})
	}

	for _, c := range candidates {
		if pickedCodes[c.StockCode] {
			continue
		}
		res := results[c.StockCode]
		patterns = append(patterns, contracts.RAGPattern{
			Date:        date,
			SignalType:  contracts.NormalizeSignalType(c.Category),
			StockName:   c.StockName,
			StockCode:   c.StockCode,
			CapTier:     c.CapTier,
			WasPicked:   false,
			PickRank:    nil,
			MaxReturn:   res.MaxReturn,
			Hit20Pct:    res.Hit20Pct,
			HitUpper:    res.HitUpper,
			PatternMemo: c.Reason,
		})
	}

	return s.repo.InsertBatch(ctx, patterns)
}

// RealizedResult is the post-close outcome for one ticker, computed by C10
// and fed back into Save.
type RealizedResult struct {
	MaxReturn float64
	Hit20Pct  bool
	HitUpper  bool
}

// GetSimilarPatterns retrieves the two-tier lookup for one (signal_type,
// cap_tier) pair and renders it into a short text block suitable for direct
// concatenation into an LLM prompt.
func (s *Store) GetSimilarPatterns(ctx context.Context, signalType contracts.SignalType, capTier contracts.CapTier, limit int) (string, error) {
	patterns, err := s.repo.SimilarPatterns(ctx, signalType, capTier, limit)
	if err != nil {
		return "", fmt.Errorf("fetch similar patterns: %w", err)
	}
	if len(patterns) == 0 {
		return "", nil
	}

	var hit20, hitUpper int
	var sumReturn float64
	for _, p := range patterns {
		if p.Hit20Pct {
			hit20++
		}
		if p.HitUpper {
			hitUpper++
		}
		sumReturn += p.MaxReturn
	}
	n := float64(len(patterns))

	var b strings.Builder
	fmt.Fprintf(&b, "[%s / %s 유사 과거 사례]\n", signalType, capTier)
	fmt.Fprintf(&b, "총 %d건: 20%%+ %d건(%.0f%%), 상한가 %d건(%.0f%%), 평균최고등락 %.1f%%\n",
		len(patterns), hit20, float64(hit20)/n*100, hitUpper, float64(hitUpper)/n*100, sumReturn/n)
	for _, p := range patterns {
		picked := "미선정"
		if p.WasPicked {
			picked = "선정"
		}
		fmt.Fprintf(&b, "- %s (%s, %s): 최대수익률 %.1f%%, 20%% 도달=%t, 상한가=%t, %s\n",
			p.StockName, p.Date, picked, p.MaxReturn, p.Hit20Pct, p.HitUpper, truncateMemo(p.PatternMemo, 60))
	}
	return b.String(), nil
}

// truncateMemo caps a pattern memo at n runes so one long-winded reason
// string can't dominate the context block C6 assembles from many patterns.
func truncateMemo(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

// BuildContext implements C6 stage 3's "for each unique (signal_type,
// cap_tier) across candidates" RAG-context assembly (spec.md §4.6): it
// derives the unique signal/cap pairs, retrieves each block, and
// concatenates them in first-seen order.
func (s *Store) BuildContext(ctx context.Context, candidates []contracts.Candidate, perPatternLimit int) (string, error) {
	type key struct {
		signal contracts.SignalType
		cap    contracts.CapTier
	}
	seen := make(map[key]bool)
	var order []key
	for _, c := range candidates {
		k := key{signal: contracts.NormalizeSignalType(c.Category), cap: c.CapTier}
		if !seen[k] {
			seen[k] = true
			order = append(order, k)
		}
	}

	var blocks []string
	for _, k := range order {
		block, err := s.GetSimilarPatterns(ctx, k.signal, k.cap, perPatternLimit)
		if err != nil {
			return "", err
		}
		if block != "" {
			blocks = append(blocks, block)
		}
	}
	return strings.Join(blocks, "\n"), nil
}

// PrependRecentContext implements the supplemented two-part context
// assembly (SPEC_FULL.md "AI context builder"): a short recent-days
// regime+win-rate block goes ahead of the per-pattern block. The whole
// thing is still treated as one opaque string by callers.
func PrependRecentContext(recentBlock, patternBlock string) string {
	if recentBlock == "" {
		return patternBlock
	}
	if patternBlock == "" {
		return recentBlock
	}
	return recentBlock + "\n" + patternBlock
}
