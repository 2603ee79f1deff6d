package canvasrenderer

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ByLCY/textforge/dsl"
	"github.com/ByLCY/textforge/plan"
)

// 固定字宽：每个字符 1mm
func unitWidth(s string) float64 { return float64(len([]rune(s))) }

func TestGreedyWrapBreaksOnSpaces(t *testing.T) {
	lines := greedyWrap("hello world again", 10, unitWidth)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %+v", len(lines), lines)
	}
	for i, want := range []string{"hello", "world", "again"} {
		if lines[i].Content != want {
			t.Fatalf("line %d: got %q want %q", i, lines[i].Content, want)
		}
		if lines[i].Width != 5 {
			t.Fatalf("line %d width should exclude trailing spaces, got %g", i, lines[i].Width)
		}
	}
}

func TestGreedyWrapHonorsNewlines(t *testing.T) {
	lines := greedyWrap("foo\n\nbar", 100, unitWidth)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines including blank, got %d", len(lines))
	}
	if lines[1].Content != "" {
		t.Fatalf("expected middle line to be blank, got %q", lines[1].Content)
	}
}

// 当第一行宽度与容器宽度恰好相等且后面紧跟一个显式换行时，不应产生额外的空行。
func TestNoBlankLineWhenEqualWidthThenNewline(t *testing.T) {
	lines := greedyWrap("SAMPLE-A\nSAMPLE-B", 8, unitWidth)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines without blank, got %d: %+v", len(lines), lines)
	}
	if lines[0].Content != "SAMPLE-A" || lines[1].Content != "SAMPLE-B" {
		t.Fatalf("unexpected lines: %+v", lines)
	}
}

// TestGreedyWrapWidthLimit 验证每行宽度不超过限制（mm）。
func TestGreedyWrapWidthLimit(t *testing.T) {
	limit := 30.0
	content := strings.Repeat("a", 53) + " tail"
	lines := greedyWrap(content, limit, unitWidth)
	if len(lines) < 2 {
		t.Fatalf("expected long token to be split, got %d lines", len(lines))
	}
	for i, ln := range lines {
		if ln.Width-limit > 1e-6 {
			t.Fatalf("line %d width exceeds limit: width=%g limit=%g", i, ln.Width, limit)
		}
	}
}

func compilePlan(t *testing.T) *plan.Plan {
	t.Helper()
	doc, err := dsl.ParseString(`
experiment sheet v1 {
  meta { title: "Review"; keywords: ["a", "b"] }
  paths { data: "/data" }
  run { emboss; extra_text_line_layout; line }
}
`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	p, err := plan.Compile(doc, nil, plan.Options{})
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	return p
}

func TestBlocks(t *testing.T) {
	p := compilePlan(t)
	blocks := Blocks(p)
	if len(blocks) != 1+p.Registry.Len() {
		t.Fatalf("expected summary plus one block per job, got %d", len(blocks))
	}
	if blocks[0].Title != "Review" {
		t.Fatalf("unexpected summary title %q", blocks[0].Title)
	}
	if !strings.Contains(strings.Join(blocks[0].Lines, "\n"), "jobs: 10") {
		t.Fatalf("summary should count jobs: %v", blocks[0].Lines)
	}

	emboss := strings.Join(blocks[1].Lines, "\n")
	for _, want := range []string{"height: 48", "corpus_effects[0]: padding", "corpus_effects[1]: augment", `"Emboss"`} {
		if !strings.Contains(emboss, want) {
			t.Fatalf("emboss block missing %q:\n%s", want, emboss)
		}
	}

	layout := strings.Join(blocks[2].Lines, "\n")
	if !strings.Contains(layout, "corpus[1]:") || !strings.Contains(layout, "layout: extra_text_line") {
		t.Fatalf("layout block incomplete:\n%s", layout)
	}
}

func TestRenderWithFallbackFont(t *testing.T) {
	p := compilePlan(t)
	r := NewRenderer(Options{})
	data, err := r.Render(p)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatalf("expected a PDF document")
	}
}

func TestRenderMissingFontPath(t *testing.T) {
	p := compilePlan(t)
	r := NewRenderer(Options{FontPath: "/nonexistent/font.ttf"})
	if _, err := r.Render(p); err == nil {
		t.Fatalf("expected error for missing font")
	}
}

func TestRenderNilPlan(t *testing.T) {
	if _, err := NewRenderer(Options{}).Render(nil); err == nil {
		t.Fatalf("expected error for nil plan")
	}
}
