package collectors

import "testing"

func TestIsMajorDisclosure(t *testing.T) {
	tests := []struct {
		name       string
		reportName string
		want       bool
	}{
		{"사업보고서", "사업보고서 (2024.01)", true},
		{"분기보고서", "분기보고서 (2024.3Q)", true},
		{"유상증자", "주요사항보고서(유상증자결정)", true},
		{"합병", "합병계약체결결정", true},
		{"자기주식", "자기주식취득신탁계약체결", true},
		{"일반공시", "감사보고서제출", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isMajorDisclosure(tt.reportName); got != tt.want {
				t.Errorf("isMajorDisclosure(%q) = %v, want %v", tt.reportName, got, tt.want)
			}
		})
	}
}

func TestClassifyEventType(t *testing.T) {
	tests := []struct {
		title string
		want  string
		ok    bool
	}{
		{"제17기 정기주주총회 소집공고", "주주총회", true},
		{"기업설명회(IR) 개최", "IR", true},
		{"영업실적 잠정치 공시", "실적발표", true},
		{"현금배당 결정", "배당", true},
		{"감사보고서 제출", "", false},
	}
	for _, tt := range tests {
		got, ok := classifyEventType(tt.title)
		if ok != tt.ok {
			t.Fatalf("classifyEventType(%q) ok = %v, want %v", tt.title, ok, tt.ok)
		}
		if ok && got != tt.want {
			t.Errorf("classifyEventType(%q) = %q, want %q", tt.title, got, tt.want)
		}
	}
}
