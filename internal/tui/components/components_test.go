package components

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/theirongolddev/dealdates/internal/tui/theme"
)

func init() {
	// Force TrueColor output so ANSI codes are generated in tests
	lipgloss.SetColorProfile(termenv.TrueColor)
}

func TestLayoutRowSumsToTotal(t *testing.T) {
	for _, tc := range []struct{ total, n int }{{100, 3}, {81, 4}, {7, 7}, {10, 1}} {
		ws := LayoutRow(tc.total, tc.n)
		if len(ws) != tc.n {
			t.Fatalf("LayoutRow(%d,%d) len=%d", tc.total, tc.n, len(ws))
		}
		sum := 0
		for _, w := range ws {
			sum += w
		}
		if sum != tc.total {
			t.Errorf("LayoutRow(%d,%d) sums to %d", tc.total, tc.n, sum)
		}
		if ws[0] < ws[len(ws)-1] {
			t.Errorf("LayoutRow(%d,%d) = %v, remainder should go first", tc.total, tc.n, ws)
		}
	}
	if LayoutRow(10, 0) != nil {
		t.Error("LayoutRow with n=0 should be nil")
	}
}

func TestCardRowPadsShorterCards(t *testing.T) {
	theme.SetActive("flexoki-dark")

	shortCard := ContentCard("Short", "Content", 22)
	tallCard := ContentCard("Tall", "Line 1\nLine 2\nLine 3\nLine 4\nLine 5", 22)

	shortLines := lipgloss.Height(shortCard)
	tallLines := lipgloss.Height(tallCard)
	if shortLines >= tallLines {
		t.Fatal("test setup error: short card should be shorter than tall card")
	}

	joined := CardRow([]string{tallCard, shortCard})
	lines := strings.Split(joined, "\n")
	if len(lines) != tallLines {
		t.Fatalf("joined height = %d, want %d", len(lines), tallLines)
	}

	for i := shortLines; i < len(lines); i++ {
		if !strings.Contains(lines[i], "\x1b[") {
			t.Errorf("line %d has no ANSI codes, padding lost its background", i)
		}
		if w := lipgloss.Width(lines[i]); w != 44 {
			t.Errorf("line %d width = %d, want 44", i, w)
		}
	}
}

func TestMetricCardRowWidth(t *testing.T) {
	row := MetricCardRow([]Metric{
		{Label: "Overdue", Value: "2"},
		{Label: "Due This Week", Value: "5", Delta: "next Tue"},
	}, 60)
	for i, line := range strings.Split(row, "\n") {
		if w := lipgloss.Width(line); w != 60 {
			t.Errorf("line %d width = %d, want 60", i, w)
		}
	}
	if MetricCardRow(nil, 60) != "" {
		t.Error("empty row should render nothing")
	}
}

func TestSparklineScalesToPeak(t *testing.T) {
	lipgloss.SetColorProfile(termenv.Ascii)
	defer lipgloss.SetColorProfile(termenv.TrueColor)

	got := Sparkline([]int{0, 7, 14, 3}, theme.Active.Accent)
	if got != "▁▄█▂" {
		t.Errorf("Sparkline = %q, want %q", got, "▁▄█▂")
	}
	if Sparkline([]int{0, 0}, theme.Active.Accent) != "▁▁" {
		t.Error("all-zero sparkline should be flat")
	}
	if Sparkline(nil, theme.Active.Accent) != "" {
		t.Error("empty sparkline should be empty")
	}
}

func TestTabKeys(t *testing.T) {
	for i, tab := range Tabs {
		if got := TabIdxByKey(tab.Key); got != i {
			t.Errorf("TabIdxByKey(%q) = %d, want %d", tab.Key, got, i)
		}
		if TabVisualWidth(tab, true) != lipgloss.Width(tab.Name)+2 {
			t.Errorf("tab %s active width mismatch", tab.Name)
		}
	}
	if TabIdxByKey('z') != -1 {
		t.Error("unknown key should map to -1")
	}
}

func TestRenderTabBarIsOneRow(t *testing.T) {
	bar := RenderTabBar(1, 100)
	if lipgloss.Height(bar) != 1 {
		t.Errorf("tab bar height = %d, want 1", lipgloss.Height(bar))
	}
	if lipgloss.Width(bar) != 100 {
		t.Errorf("tab bar width = %d, want 100", lipgloss.Width(bar))
	}
}

func TestStatusBarFillsWidth(t *testing.T) {
	bar := RenderStatusBar(90, "[?]help  [q]uit", "saved", "Sun Mar 10 · 2 deals")
	if w := lipgloss.Width(bar); w != 90 {
		t.Errorf("status bar width = %d, want 90", w)
	}
	if !strings.Contains(bar, "saved") {
		t.Error("status message missing")
	}
}
