package notify

import (
	"strings"
	"testing"
)

func TestSplitMessage_ShortTextUnchanged(t *testing.T) {
	chunks := splitMessage("짧은 메시지", messageLimit)
	if len(chunks) != 1 || chunks[0] != "짧은 메시지" {
		t.Errorf("expected single unchanged chunk, got %v", chunks)
	}
}

func TestSplitMessage_LongTextChunksWithinLimit(t *testing.T) {
	long := strings.Repeat("가", 9000)
	chunks := splitMessage(long, messageLimit)
	if len(chunks) < 3 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if len([]rune(c)) > messageLimit {
			t.Errorf("chunk %d exceeds limit: %d runes", i, len([]rune(c)))
		}
	}
}

func TestSplitMessage_BreaksOnNewlineNearLimit(t *testing.T) {
	line := strings.Repeat("x", 100) + "\n"
	text := strings.Repeat(line, 50) // > 4096 runes total
	chunks := splitMessage(text, messageLimit)
	if len(chunks) < 2 {
		t.Fatal("expected at least 2 chunks")
	}
	if !strings.HasSuffix(chunks[0], "\n") {
		t.Error("expected first chunk to break on a newline boundary")
	}
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		text        string
		wantCommand string
		wantArgs    string
	}{
		{"/status", "status", ""},
		{"/evaluate 005930", "evaluate", "005930"},
		{"/status@SentinelBot", "status", ""},
		{"hello", "", ""},
		{"", "", ""},
	}
	for _, tt := range tests {
		cmd, args := parseCommand(tt.text)
		if cmd != tt.wantCommand || args != tt.wantArgs {
			t.Errorf("parseCommand(%q) = (%q, %q), want (%q, %q)", tt.text, cmd, args, tt.wantCommand, tt.wantArgs)
		}
	}
}

func TestTruncateCaption(t *testing.T) {
	short := "짧은 캡션"
	if got := truncateCaption(short); got != short {
		t.Errorf("expected unchanged caption, got %q", got)
	}
	long := strings.Repeat("a", 2000)
	got := truncateCaption(long)
	if len([]rune(got)) != 1024 {
		t.Errorf("expected 1024 runes, got %d", len([]rune(got)))
	}
}

func TestRenderCandlestick_ProducesValidPNG(t *testing.T) {
	points := []ChartPoint{
		{Open: 100, High: 110, Low: 95, Close: 105},
		{Open: 105, High: 108, Low: 100, Close: 102},
		{Open: 102, High: 115, Low: 101, Close: 114},
	}
	png := RenderCandlestick(points)
	if len(png) < 8 {
		t.Fatal("expected non-trivial PNG output")
	}
	// PNG magic bytes.
	sig := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	for i, b := range sig {
		if png[i] != b {
			t.Fatalf("missing PNG signature byte at %d", i)
		}
	}
}

func TestRenderCandlestick_EmptyInput(t *testing.T) {
	png := RenderCandlestick(nil)
	if len(png) == 0 {
		t.Fatal("expected a valid blank-chart PNG even with no points")
	}
}
