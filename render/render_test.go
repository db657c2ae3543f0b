package render

import (
	"fmt"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/victhorio/compound/agg/core"
)

func apply(fs ...core.Fragment) *core.Accumulator {
	var acc core.Accumulator
	for _, f := range fs {
		acc.Apply(f)
	}
	return &acc
}

func TestMaxStreamHeight(t *testing.T) {
	tests := []struct {
		termHeight int
		want       int
	}{
		{0, 10},
		{24, 10},
		{40, 10},
		{60, 15},
		{100, 25},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.termHeight), func(t *testing.T) {
			if got := MaxStreamHeight(tt.termHeight); got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestSnapshotReasoningOnly(t *testing.T) {
	s := NewSnapshot(apply(core.Fragment{Reasoning: "a"}, core.Fragment{Reasoning: "b"}), 10)

	if s.Working != "ab" {
		t.Fatalf("expected working %q, got %q", "ab", s.Working)
	}
	if s.HasTools() || s.HasAnswer() {
		t.Fatalf("reasoning-only turn must show only the working region: %+v", s)
	}

	out := NewRenderer(0).Render(s)
	if !strings.Contains(out, workingTitle) || !strings.Contains(out, "ab") {
		t.Fatalf("expected working panel with reasoning, got:\n%s", out)
	}
	if strings.Contains(out, toolsTitle) || strings.Contains(out, executingText) {
		t.Fatalf("unexpected tools panel:\n%s", out)
	}
}

func TestSnapshotReasoningKeepsLastLines(t *testing.T) {
	var fs []core.Fragment
	var all []string
	for i := range 30 {
		line := fmt.Sprintf("step %d", i)
		all = append(all, line)
		fs = append(fs, core.Fragment{Reasoning: line + "\n"})
	}

	s := NewSnapshot(apply(fs...), 10)

	// the trailing newline leaves an empty last line
	want := strings.Join(append(all[21:], ""), "\n")
	if s.Working != want {
		t.Fatalf("expected last 10 lines:\n%q\ngot:\n%q", want, s.Working)
	}
	if s.WorkingHeight != 10 {
		t.Fatalf("expected working height capped at 10, got %d", s.WorkingHeight)
	}

	short := NewSnapshot(apply(core.Fragment{Reasoning: "one\ntwo"}), 10)
	if short.WorkingHeight != 4 {
		t.Fatalf("expected height of 2 lines plus borders, got %d", short.WorkingHeight)
	}
}

func TestSnapshotToolLifecycle(t *testing.T) {
	r := NewRenderer(0)

	acc := apply(core.Fragment{Tools: []core.ExecutedTool{{Type: "search"}}})
	s := NewSnapshot(acc, 10)
	if !s.ToolInProgress || len(s.Tools) != 0 {
		t.Fatalf("expected executing indicator only, got %+v", s)
	}
	out := r.Render(s)
	if !strings.Contains(out, executingText) || strings.Contains(out, toolsTitle) {
		t.Fatalf("expected executing indicator, got:\n%s", out)
	}

	acc.Apply(core.Fragment{Tools: []core.ExecutedTool{{Type: "search", Output: "found it"}}})
	s = NewSnapshot(acc, 10)
	if s.ToolInProgress || len(s.Tools) != 1 {
		t.Fatalf("expected completed tool list, got %+v", s)
	}
	out = r.Render(s)
	for _, want := range []string{toolsTitle, "search", "found it"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in tools panel, got:\n%s", want, out)
		}
	}
	if strings.Contains(out, executingText) {
		t.Fatalf("executing indicator should be replaced, got:\n%s", out)
	}

	// a new run hides the stale list
	acc.Apply(core.Fragment{Tools: []core.ExecutedTool{{Type: "python"}}})
	out = r.Render(NewSnapshot(acc, 10))
	if !strings.Contains(out, executingText) || strings.Contains(out, "found it") {
		t.Fatalf("in-progress should take precedence over the stale list, got:\n%s", out)
	}
}

func TestSnapshotAnswerVerbatim(t *testing.T) {
	acc := apply(
		core.Fragment{Reasoning: "a"},
		core.Fragment{Reasoning: "b"},
		core.Fragment{Content: "hello"},
	)
	s := NewSnapshot(acc, 10)

	if s.Working != "ab" || s.Answer != "hello" {
		t.Fatalf("expected working %q and answer %q, got %q and %q", "ab", "hello", s.Working, s.Answer)
	}

	out := NewRenderer(0).Render(s)
	working := strings.Index(out, "ab")
	answer := strings.Index(out, "hello")
	if working < 0 || answer < 0 || working > answer {
		t.Fatalf("expected working region above the answer, got:\n%s", out)
	}

	acc = apply(core.Fragment{Content: "  spaced\n"}, core.Fragment{Content: "**md**"})
	if got := NewSnapshot(acc, 10).Answer; got != "  spaced\n**md**" {
		t.Fatalf("answer must be the verbatim concatenation, got %q", got)
	}
}

func TestSnapshotEmpty(t *testing.T) {
	s := NewSnapshot(apply(), 10)
	if !s.IsEmpty() {
		t.Fatalf("expected no regions, got %+v", s)
	}
	if out := NewRenderer(0).Render(s); out != "" {
		t.Fatalf("expected empty view, got %q", out)
	}
}

func TestRenderFitsWidth(t *testing.T) {
	r := NewRenderer(0)
	r.SetSize(40, 24)

	acc := apply(
		core.Fragment{Reasoning: strings.Repeat("thinking hard about it ", 20)},
		core.Fragment{Tools: []core.ExecutedTool{{Type: "search", Output: strings.Repeat("result ", 30)}}},
		core.Fragment{Content: strings.Repeat("answer ", 20)},
	)
	out := r.Render(NewSnapshot(acc, r.MaxHeight()))

	for i, line := range strings.Split(out, "\n") {
		if w := lipgloss.Width(line); w > 40 {
			t.Fatalf("line %d is %d wide, exceeds 40: %q", i, w, line)
		}
	}
}

func TestRendererFixedHeight(t *testing.T) {
	tests := []struct {
		fixed int
		want  int
	}{
		{0, 50},
		{6, 10},
		{10, 10},
		{12, 12},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.fixed), func(t *testing.T) {
			r := NewRenderer(tt.fixed)
			r.SetSize(100, 200)
			if got := r.MaxHeight(); got != tt.want {
				t.Fatalf("expected height cap %d, got %d", tt.want, got)
			}
		})
	}
}

func TestSnapshotToolsHeight(t *testing.T) {
	acc := apply(core.Fragment{Tools: []core.ExecutedTool{{Type: "search", Output: "found it"}}})

	// "search", "found it" and the empty line after the trailing newline, plus borders
	if got := NewSnapshot(acc, 10).ToolsHeight; got != 5 {
		t.Fatalf("expected tools height 5, got %d", got)
	}
	if got := NewSnapshot(acc, 4).ToolsHeight; got != 4 {
		t.Fatalf("expected tools height capped at 4, got %d", got)
	}
}

func TestRenderPanelsStayWithinHeight(t *testing.T) {
	r := NewRenderer(0)
	r.SetSize(40, 24)

	url := "https://example.com/" + strings.Repeat("a", 200)

	var fs []core.Fragment
	for range 20 {
		fs = append(fs, core.Fragment{Reasoning: url + "\n"})
	}
	fs = append(fs, core.Fragment{Reasoning: "last"})

	results := strings.TrimSpace(strings.Repeat(url+"\n", 10))
	tools := []core.ExecutedTool{{Type: "search", Output: results}}

	tests := []struct {
		name string
		acc  *core.Accumulator
		want string
	}{
		{"working", apply(fs...), "last"},
		{"tools", apply(core.Fragment{Tools: tools}), "aaaa"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := r.Render(NewSnapshot(tt.acc, r.MaxHeight()))

			lines := strings.Split(out, "\n")
			if len(lines) > r.MaxHeight() {
				t.Fatalf("panel is %d lines tall, cap is %d:\n%s", len(lines), r.MaxHeight(), out)
			}
			for i, line := range lines {
				if w := lipgloss.Width(line); w > 40 {
					t.Fatalf("line %d is %d wide, exceeds 40: %q", i, w, line)
				}
			}
			if !strings.Contains(out, tt.want) {
				t.Fatalf("expected the most recent text %q to stay visible:\n%s", tt.want, out)
			}
		})
	}
}

func TestRenderFinalMarkdown(t *testing.T) {
	r := NewRenderer(0)
	s := NewSnapshot(apply(core.Fragment{Content: "# Title\n\nsome **bold** words"}), 10)

	plain, err := r.RenderFinal(s)
	if err != nil {
		t.Fatalf("RenderFinal: %v", err)
	}
	if !strings.Contains(plain, "**bold**") {
		t.Fatalf("without markdown the answer should be verbatim, got:\n%s", plain)
	}

	r.UseMarkdown(NewMarkdown("dark"))
	md, err := r.RenderFinal(s)
	if err != nil {
		t.Fatalf("RenderFinal: %v", err)
	}
	if strings.Contains(md, "**bold**") || !strings.Contains(md, "bold") {
		t.Fatalf("expected markdown to be rendered, got:\n%s", md)
	}
}
