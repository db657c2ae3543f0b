package main

import (
	"context"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/victhorio/compound/agg"
	"github.com/victhorio/compound/agg/core"
	"github.com/victhorio/compound/logger"
	"github.com/victhorio/compound/render"
)

const (
	promptText = ">> "
	quitInput  = ":q"
)

var (
	promptStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("4"))
	exitStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	hintStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type turnUpdateMsg struct{ acc core.Accumulator }
type turnDoneMsg struct {
	content string
	acc     core.Accumulator
}
type turnErrorMsg struct{ err error }
type streamClosedMsg struct{}

type TUIModel struct {
	agent     *agg.Agent
	sessionID string
	renderer  *render.Renderer

	input   textinput.Model
	spinner spinner.Model

	// acc is the state of the turn being streamed
	acc        core.Accumulator
	generating bool
	lastAnswer string

	streamCh <-chan tea.Msg
	cancel   context.CancelFunc

	// set when the program should exit with an error
	err error
	// set when the user interrupted a turn mid-stream
	interrupted bool
	exiting     bool
}

func newTUIModel(agent *agg.Agent, sessionID string, renderer *render.Renderer) TUIModel {
	ti := textinput.New()
	ti.Prompt = promptStyle.Render(promptText)
	ti.Focus()
	ti.CharLimit = 0

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return TUIModel{
		agent:     agent,
		sessionID: sessionID,
		renderer:  renderer,
		input:     ti,
		spinner:   sp,
	}
}

// runTUI runs the chat loop inline, so finished turns stay in the terminal scrollback.
func runTUI(agent *agg.Agent, sessionID string, renderer *render.Renderer) (TUIModel, error) {
	p := tea.NewProgram(newTUIModel(agent, sessionID, renderer))
	final, err := p.Run()
	if err != nil {
		return TUIModel{}, err
	}
	return final.(TUIModel), nil
}

func (m TUIModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m TUIModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.renderer.SetSize(msg.Width, msg.Height)
		m.input.Width = max(msg.Width-lipgloss.Width(m.input.Prompt)-1, 1)
		return m, nil
	case tea.KeyMsg:
		return m.updateKey(msg)
	case turnUpdateMsg:
		m.acc = msg.acc
		return m, m.waitForStream()
	case turnDoneMsg:
		return m.finishTurn(msg)
	case turnErrorMsg:
		m.generating = false
		m.err = msg.err
		m.stopStream()
		return m, tea.Quit
	case streamClosedMsg:
		m.stopStream()
		return m, nil
	case spinner.TickMsg:
		if !m.generating {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m TUIModel) View() string {
	if m.exiting {
		return ""
	}

	if m.generating {
		snapshot := render.NewSnapshot(&m.acc, m.renderer.MaxHeight())
		if snapshot.IsEmpty() {
			return m.spinner.View() + hintStyle.Render(" waiting for "+m.agent.ModelID()+"...")
		}
		return m.renderer.Render(snapshot)
	}

	return m.input.View()
}

func (m TUIModel) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		if m.generating {
			m.interrupted = true
			m.stopStream()
			return m, tea.Quit
		}
		m.exiting = true
		return m, tea.Sequence(tea.Println(exitStyle.Render("Exiting...")), tea.Quit)
	case tea.KeyCtrlY:
		if m.generating || m.lastAnswer == "" {
			return m, nil
		}
		if err := clipboard.WriteAll(m.lastAnswer); err != nil {
			logger.Named("tui").WithError(err).Warn("failed to copy answer to clipboard")
		}
		return m, nil
	case tea.KeyEnter:
		return m.submitInput()
	}

	if m.generating {
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m TUIModel) submitInput() (tea.Model, tea.Cmd) {
	if m.generating {
		return m, nil
	}

	input := strings.TrimSpace(m.input.Value())
	if input == "" {
		return m, nil
	}

	if input == quitInput {
		m.exiting = true
		return m, tea.Quit
	}

	m.input.Reset()
	m.acc = core.Accumulator{}
	m.generating = true

	echo := tea.Println(promptStyle.Render(promptText) + input)
	stream := m.startStream(input)
	return m, tea.Batch(echo, stream, m.spinner.Tick)
}

func (m TUIModel) finishTurn(msg turnDoneMsg) (tea.Model, tea.Cmd) {
	m.generating = false
	m.stopStream()
	m.lastAnswer = msg.content
	m.acc = core.Accumulator{}

	snapshot := render.NewSnapshot(&msg.acc, m.renderer.MaxHeight())
	if snapshot.IsEmpty() {
		return m, nil
	}

	view, err := m.renderer.RenderFinal(snapshot)
	if err != nil {
		logger.Named("tui").WithError(err).Warn("falling back to plain answer")
		view = m.renderer.Render(snapshot)
	}
	return m, tea.Println(view)
}

func (m *TUIModel) startStream(input string) tea.Cmd {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel

	agent := m.agent
	sessionID := m.sessionID

	events := make(chan tea.Msg)
	go func() {
		defer close(events)

		send := func(msg tea.Msg) bool {
			select {
			case events <- msg:
				return true
			case <-ctx.Done():
				return false
			}
		}

		var last core.Accumulator
		content, err := agent.RunStream(ctx, sessionID, input, func(acc core.Accumulator) {
			last = acc
			send(turnUpdateMsg{acc: acc})
		})
		if err != nil {
			send(turnErrorMsg{err: err})
			return
		}

		send(turnDoneMsg{content: content, acc: last})
	}()

	m.streamCh = events
	return m.waitForStream()
}

func (m TUIModel) waitForStream() tea.Cmd {
	if m.streamCh == nil {
		return nil
	}

	ch := m.streamCh
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return streamClosedMsg{}
		}
		return msg
	}
}

func (m *TUIModel) stopStream() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.streamCh = nil
}
