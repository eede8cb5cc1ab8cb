// Package watchlist implements C7: three process-global single-writer
// slots (picks_watchlist, market_env, sector_map) the orchestrator sets
// once every morning and C8 reads all day.
package watchlist

import (
	"sync"

	"github.com/hanbat-quant/sentinel/internal/contracts"
)

// State holds the three slots behind one mutex — spec.md §4.7 treats
// them as a single unit that clear() resets together.
type State struct {
	mu sync.RWMutex

	picks     map[string]contracts.WatchlistEntry
	marketEnv contracts.MarketRegime
	sectorMap map[string]string
}

func New() *State {
	return &State{
		picks:     make(map[string]contracts.WatchlistEntry),
		sectorMap: make(map[string]string),
	}
}

// Clear resets all three slots to empty (spec.md §4.7 clear()).
func (s *State) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.picks = make(map[string]contracts.WatchlistEntry)
	s.marketEnv = ""
	s.sectorMap = make(map[string]string)
}

// SetWatchlist installs the day's picks_watchlist slot.
func (s *State) SetWatchlist(entries map[string]contracts.WatchlistEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.picks = entries
}

// SetMarketEnv installs the market_env slot directly.
func (s *State) SetMarketEnv(env contracts.MarketRegime) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marketEnv = env
}

// DeriveMarketEnvFromKospi implements spec.md §4.7's fixed-threshold
// helper: >= +1% -> 강세장, <= -1% -> 약세장/횡보, else 횡보.
func DeriveMarketEnvFromKospi(changeRate float64) contracts.MarketRegime {
	switch {
	case changeRate >= 1.0:
		return contracts.RegimeBull
	case changeRate <= -1.0:
		return contracts.RegimeBearFlat
	default:
		return contracts.RegimeSideways
	}
}

// SetSectorMap installs the sector_map slot, typically derived from
// price_data.by_code.
func (s *State) SetSectorMap(m map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sectorMap = m
}

// IsReady is true iff picks_watchlist is non-empty.
func (s *State) IsReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.picks) > 0
}

// GetWatchlist returns a shallow copy so callers can never corrupt the
// slot by mutating the returned map (spec.md §4.7).
func (s *State) GetWatchlist() map[string]contracts.WatchlistEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]contracts.WatchlistEntry, len(s.picks))
	for k, v := range s.picks {
		out[k] = v
	}
	return out
}

// MarketEnv returns the current market_env slot.
func (s *State) MarketEnv() contracts.MarketRegime {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.marketEnv
}

// Sector returns the sector for a ticker, and whether it was known.
func (s *State) Sector(ticker string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sector, ok := s.sectorMap[ticker]
	return sector, ok
}

// BuildFromPicks converts the day's final picks plus prior-day volume
// data into the picks_watchlist shape — called by the orchestrator right
// after C6 completes.
func BuildFromPicks(picks []contracts.Pick, prevDayVolume map[string]int64) map[string]contracts.WatchlistEntry {
	out := make(map[string]contracts.WatchlistEntry, len(picks))
	for _, p := range picks {
		vol := prevDayVolume[p.StockCode]
		if vol < 1 {
			vol = 1
		}
		out[p.StockCode] = contracts.WatchlistEntry{
			StockCode:     p.StockCode,
			StockName:     p.StockName,
			PrevDayVolume: vol,
			Priority:      p.Rank,
			Category:      p.Category,
		}
	}
	return out
}

// BuildSectorMap derives the sector_map slot from price_data.by_code.
func BuildSectorMap(byCode map[string]contracts.PriceSnapshot) map[string]string {
	out := make(map[string]string, len(byCode))
	for code, snap := range byCode {
		out[code] = snap.Sector
	}
	return out
}
