package core

// Fragment is one incremental unit of a streamed response. Any of its parts may be empty.
type Fragment struct {
	Reasoning string
	Content   string

	// Tools is nil when the chunk carried no executed_tools field.
	Tools []ExecutedTool
}

// IsEmpty reports whether the fragment carries nothing the accumulator would react to.
func (f Fragment) IsEmpty() bool {
	return f.Reasoning == "" && f.Content == "" && len(f.Tools) == 0
}

// ExecutedTool is a tool run by the provider on the model's behalf. The provider reports it
// twice: first with an empty Output when execution starts, then again once Output is known.
type ExecutedTool struct {
	Index     int    `json:"index"`
	Type      string `json:"type"`
	Arguments string `json:"arguments,omitempty"`
	Output    string `json:"output,omitempty"`
}

func (t ExecutedTool) Completed() bool {
	return t.Output != ""
}

// Accumulator folds the fragments of a single turn into the state that gets rendered.
//
// Reasoning and content only ever grow. The tool list is not cumulative: it holds the most
// recent completed batch and is replaced as a whole when the next one arrives.
type Accumulator struct {
	reasoning      string
	content        string
	tools          []ExecutedTool
	toolInProgress bool
	fragments      int
}

// Apply merges a fragment into the accumulator.
func (a *Accumulator) Apply(f Fragment) {
	a.fragments++
	a.reasoning += f.Reasoning
	a.content += f.Content

	if len(f.Tools) == 0 {
		return
	}

	// the batch state is decided by its first record, the provider reports a batch as a whole
	if f.Tools[0].Completed() {
		a.tools = f.Tools
		a.toolInProgress = false
	} else {
		a.toolInProgress = true
	}
}

func (a *Accumulator) Reasoning() string {
	return a.reasoning
}

func (a *Accumulator) Content() string {
	return a.content
}

// Tools returns the last completed batch. Callers must not modify it.
func (a *Accumulator) Tools() []ExecutedTool {
	return a.tools
}

func (a *Accumulator) ToolInProgress() bool {
	return a.toolInProgress
}

// Fragments is the number of fragments applied so far.
func (a *Accumulator) Fragments() int {
	return a.fragments
}
