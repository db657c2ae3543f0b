package render

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/reflow/wrap"
)

const (
	defaultWidth = 80
	padX         = 2
	padY         = 1

	workingTitle  = "Working..."
	toolsTitle    = "Tools Used"
	executingText = "Executing tool..."
)

var (
	borderStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	titleStyle     = lipgloss.NewStyle().Bold(true)
	reasoningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	toolTypeStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("4"))
	toolBodyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	answerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2"))
)

// Renderer draws snapshots as bordered panels sized to the terminal.
type Renderer struct {
	width     int
	maxHeight int
	// fixedHeight overrides the height derived from the terminal when > 0, never going below
	// MinStreamHeight.
	fixedHeight int

	markdown *Markdown
}

// NewRenderer returns a renderer for an 80 column terminal until SetSize says otherwise.
// A fixedHeight > 0 pins the panel height cap instead of deriving it from the terminal.
func NewRenderer(fixedHeight int) *Renderer {
	r := &Renderer{
		width:       defaultWidth,
		fixedHeight: fixedHeight,
	}
	r.SetSize(defaultWidth, 0)
	return r
}

func (r *Renderer) SetSize(width, height int) {
	if width > 0 {
		r.width = width
	}
	if r.fixedHeight > 0 {
		r.maxHeight = max(MinStreamHeight, r.fixedHeight)
	} else {
		r.maxHeight = MaxStreamHeight(height)
	}
	if r.markdown != nil {
		r.markdown.SetWidth(r.width)
	}
}

// UseMarkdown makes RenderFinal render the answer through md.
func (r *Renderer) UseMarkdown(md *Markdown) {
	r.markdown = md
	if md != nil {
		md.SetWidth(r.width)
	}
}

func (r *Renderer) MaxHeight() int {
	return r.maxHeight
}

func (r *Renderer) Width() int {
	return r.width
}

// Render composes the regions present in s, top to bottom. Absent regions are left out entirely,
// so an empty snapshot renders as an empty string.
func (r *Renderer) Render(s Snapshot) string {
	return r.compose(s, r.answer(s.Answer))
}

// RenderFinal is Render for a finished turn, rendering the answer as Markdown when enabled.
func (r *Renderer) RenderFinal(s Snapshot) (string, error) {
	if r.markdown == nil || !s.HasAnswer() {
		return r.Render(s), nil
	}

	answer, err := r.markdown.Render(s.Answer)
	if err != nil {
		return "", err
	}
	return r.compose(s, strings.TrimRight(answer, "\n")), nil
}

func (r *Renderer) compose(s Snapshot, answer string) string {
	panels := make([]string, 0, 3)

	if s.HasWorking() {
		body := r.wrapTail(s.Working, s.WorkingHeight, reasoningStyle)
		panels = append(panels, r.panel(workingTitle, body))
	}

	if s.ToolInProgress {
		panels = append(panels, r.panel("", toolBodyStyle.Render(executingText)))
	} else if len(s.Tools) > 0 {
		panels = append(panels, r.panel(toolsTitle, r.toolsBody(s)))
	}

	if s.HasAnswer() {
		panels = append(panels, answer)
	}

	return strings.Join(panels, "\n")
}

func (r *Renderer) answer(content string) string {
	return answerStyle.Render(wordwrap.String(content, r.width))
}

func (r *Renderer) innerWidth() int {
	return max(r.width-2-2*padX, 1)
}

// bodyLines returns how many content lines a panel shows. height counts content plus borders,
// and the whole panel, padding included, never exceeds the renderer's height cap.
func (r *Renderer) bodyLines(height int) int {
	return max(min(height-2, r.maxHeight-2-2*padY), 1)
}

// hardWrap wraps text on word boundaries, then breaks whatever is still wider than the panel,
// like long URLs.
func (r *Renderer) hardWrap(text string) []string {
	w := r.innerWidth()
	return strings.Split(wrap.String(wordwrap.String(text, w), w), "\n")
}

// wrapTail wraps text to the panel width and keeps the lines that fit in height, favouring the
// most recent ones.
func (r *Renderer) wrapTail(text string, height int, style lipgloss.Style) string {
	lines := r.hardWrap(text)
	if n := r.bodyLines(height); len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return style.Render(strings.Join(lines, "\n"))
}

func (r *Renderer) toolsBody(s Snapshot) string {
	var lines []string
	for _, tool := range s.Tools {
		for _, l := range r.hardWrap(tool.Type) {
			lines = append(lines, toolTypeStyle.Render(l))
		}
		if tool.Output == "" {
			continue
		}
		for _, l := range r.hardWrap(tool.Output) {
			lines = append(lines, toolBodyStyle.Render(l))
		}
	}

	if n := r.bodyLines(s.ToolsHeight); len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}

// panel draws body inside a rounded border with padding, with title centred on the top edge.
func (r *Renderer) panel(title, body string) string {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(borderStyle.GetForeground()).
		BorderTop(title == "").
		Padding(padY, padX).
		Width(r.width - 2).
		Render(body)

	if title == "" {
		return box
	}
	return r.topBorder(title) + "\n" + box
}

func (r *Renderer) topBorder(title string) string {
	border := lipgloss.RoundedBorder()
	label := " " + titleStyle.Render(title) + " "

	fill := r.width - 2 - lipgloss.Width(label)
	if fill < 2 {
		return borderStyle.Render(border.TopLeft+strings.Repeat(border.Top, max(r.width-2, 0))+border.TopRight)
	}
	left := fill / 2
	right := fill - left

	return borderStyle.Render(border.TopLeft+strings.Repeat(border.Top, left)) +
		label +
		borderStyle.Render(strings.Repeat(border.Top, right)+border.TopRight)
}
