package render

import (
	"fmt"

	"github.com/charmbracelet/glamour"
)

// Markdown renders finished answers with glamour. The term renderer is rebuilt lazily whenever
// the width changes.
type Markdown struct {
	style string
	width int
	tr    *glamour.TermRenderer
}

func NewMarkdown(style string) *Markdown {
	if style == "" {
		style = "dark"
	}
	return &Markdown{style: style, width: defaultWidth}
}

func (m *Markdown) SetWidth(width int) {
	if width > 0 && width != m.width {
		m.width = width
		m.tr = nil
	}
}

func (m *Markdown) Render(content string) (string, error) {
	if m.tr == nil {
		tr, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(m.style),
			glamour.WithWordWrap(m.width),
		)
		if err != nil {
			return "", fmt.Errorf("Markdown.Render: error creating renderer: %w", err)
		}
		m.tr = tr
	}

	out, err := m.tr.Render(content)
	if err != nil {
		return "", fmt.Errorf("Markdown.Render: %w", err)
	}
	return out, nil
}
