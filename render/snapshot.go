// Package render turns the state of a streaming turn into the terminal view: a working panel
// with the model's reasoning, a tools panel and the answer.
package render

import (
	"strings"

	"github.com/victhorio/compound/agg/core"
)

// MinStreamHeight is the smallest height cap applied to the working and tools panels.
const MinStreamHeight = 10

// MaxStreamHeight derives the panel height cap from the terminal height.
func MaxStreamHeight(termHeight int) int {
	return max(MinStreamHeight, termHeight/4)
}

// Snapshot is the display-ready state of a turn. A region is shown only when it has content.
type Snapshot struct {
	// Working holds the last N lines of reasoning.
	Working string
	// WorkingHeight is the height of the working panel, borders included.
	WorkingHeight int

	ToolInProgress bool
	Tools          []core.ExecutedTool
	// ToolsHeight is the height of the tools panel, borders included.
	ToolsHeight int

	Answer string
}

// NewSnapshot computes the regions for acc, capping panel heights at maxHeight lines.
func NewSnapshot(acc *core.Accumulator, maxHeight int) Snapshot {
	maxHeight = max(maxHeight, 1)

	var s Snapshot

	if reasoning := acc.Reasoning(); reasoning != "" {
		lines := strings.Split(reasoning, "\n")
		s.WorkingHeight = min(len(lines)+2, maxHeight)
		s.Working = strings.Join(lines[max(0, len(lines)-maxHeight):], "\n")
	}

	// a running tool hides whatever the previous batch reported
	if acc.ToolInProgress() {
		s.ToolInProgress = true
	} else if tools := acc.Tools(); len(tools) > 0 {
		s.Tools = tools
		// the trailing newline leaves an empty last line, counted like any other
		s.ToolsHeight = min(len(strings.Split(ToolsText(tools), "\n"))+2, maxHeight)
	}

	s.Answer = acc.Content()

	return s
}

func (s Snapshot) HasWorking() bool {
	return s.Working != ""
}

func (s Snapshot) HasTools() bool {
	return s.ToolInProgress || len(s.Tools) > 0
}

func (s Snapshot) HasAnswer() bool {
	return s.Answer != ""
}

// IsEmpty reports whether no region would be shown.
func (s Snapshot) IsEmpty() bool {
	return !s.HasWorking() && !s.HasTools() && !s.HasAnswer()
}

// ToolsText lists each tool's type followed by its output, one entry after the other.
func ToolsText(tools []core.ExecutedTool) string {
	var b strings.Builder
	for _, tool := range tools {
		b.WriteString(tool.Type)
		b.WriteString("\n")
		if tool.Output != "" {
			b.WriteString(tool.Output)
			b.WriteString("\n")
		}
	}
	return b.String()
}
