package collectors

import "testing"

func TestScoreHeadline(t *testing.T) {
	tests := []struct {
		title       string
		raw         string
		wantCountry string
		wantOK      bool
	}{
		{"US imposes new steel tariff on imports", "us imposes new steel tariff on imports", "United States", true},
		{"NATO members agree to raise defense spending", "nato members agree to raise defense spending", "NATO", true},
		{"Local bakery wins award", "local bakery wins award", "", false},
	}
	for _, tt := range tests {
		ev, ok := scoreHeadline(tt.title, tt.raw)
		if ok != tt.wantOK {
			t.Fatalf("scoreHeadline(%q) ok = %v, want %v", tt.title, ok, tt.wantOK)
		}
		if ok && ev.Country != tt.wantCountry {
			t.Errorf("scoreHeadline(%q) country = %q, want %q", tt.title, ev.Country, tt.wantCountry)
		}
	}
}

func TestAnyContains(t *testing.T) {
	if !anyContains("breaking: korea semiconductor export news", []string{"korea", "china"}) {
		t.Error("expected match on korea")
	}
	if anyContains("unrelated sports headline", []string{"korea", "china"}) {
		t.Error("expected no match")
	}
}
