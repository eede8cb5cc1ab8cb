package performance

import (
	"testing"

	"github.com/hanbat-quant/sentinel/internal/store"
)

func TestComputeRealizedResult(t *testing.T) {
	cases := []struct {
		name          string
		row           store.ReturnRow
		upperLimitPct float64
		want          RealizedResult
	}{
		{
			name: "best horizon is 7d and clears both bars",
			row:  store.ReturnRow{Ticker: "005930", Return1d: 4.0, Return3d: 12.0, Return7d: 29.8},
			upperLimitPct: 29.5,
			want:          RealizedResult{MaxReturn: 29.8, Hit20Pct: true, HitUpper: true},
		},
		{
			name: "best horizon is 1d, clears neither bar",
			row:  store.ReturnRow{Ticker: "000660", Return1d: 6.5, Return3d: -2.0, Return7d: 1.0},
			upperLimitPct: 29.5,
			want:          RealizedResult{MaxReturn: 6.5, Hit20Pct: false, HitUpper: false},
		},
		{
			name: "clears 20% bar but not upper-limit bar",
			row:  store.ReturnRow{Ticker: "035420", Return1d: 21.0, Return3d: 18.0, Return7d: 15.0},
			upperLimitPct: 29.5,
			want:          RealizedResult{MaxReturn: 21.0, Hit20Pct: true, HitUpper: false},
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := computeRealizedResult(c.row, c.upperLimitPct)
			if got != c.want {
				t.Errorf("computeRealizedResult(%+v, %v) = %+v, want %+v", c.row, c.upperLimitPct, got, c.want)
			}
		})
	}
}

func TestRound2(t *testing.T) {
	cases := []struct {
		in, want float64
	}{
		{1.2345, 1.23},
		{-1.2345, -1.23},
		{0, 0},
	}
	for _, c := range cases {
		if got := round2(c.in); got != c.want {
			t.Errorf("round2(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}
