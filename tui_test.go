package main

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/victhorio/compound/agg"
	"github.com/victhorio/compound/agg/core"
	"github.com/victhorio/compound/render"
)

type scriptedModel struct {
	events []core.Event
}

func (m scriptedModel) ID() string { return "compound-test" }

func (m scriptedModel) OpenStream(ctx context.Context, msgs []core.Msg) (core.ResponseStream, error) {
	return scriptedStream(m), nil
}

type scriptedStream struct {
	events []core.Event
}

func (s scriptedStream) Consume(ctx context.Context, out chan<- core.Event) {
	defer close(out)
	for _, ev := range s.events {
		select {
		case <-ctx.Done():
			return
		case out <- ev:
		}
	}
}

func testModel(events ...core.Event) TUIModel {
	store := agg.NewEphemeralStore()
	agent := agg.NewAgent("", scriptedModel{events: events}, &store)
	m := newTUIModel(&agent, "test", render.NewRenderer(0))
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return updated.(TUIModel)
}

// drain feeds every message of the running stream back into the model until the turn ends.
func drain(t *testing.T, m TUIModel, cmd tea.Cmd) (TUIModel, tea.Cmd, []string) {
	t.Helper()

	var views []string
	for range 100 {
		if cmd == nil {
			t.Fatal("stream ended without a terminal message")
		}
		msg := cmd()
		updated, next := m.Update(msg)
		m = updated.(TUIModel)
		views = append(views, m.View())

		switch msg.(type) {
		case turnDoneMsg, turnErrorMsg:
			return m, next, views
		}
		cmd = next
	}
	t.Fatal("too many stream messages")
	return m, nil, nil
}

func TestSubmitInputEmpty(t *testing.T) {
	for _, input := range []string{"", "   \t  "} {
		m := testModel()

		m.input.SetValue(input)
		model, cmd := m.submitInput()

		result := model.(TUIModel)
		if result.generating {
			t.Errorf("%q should not start a turn", input)
		}
		if cmd != nil {
			t.Errorf("%q should return nil cmd", input)
		}
	}
}

func TestSubmitInputQuit(t *testing.T) {
	m := testModel()

	m.input.SetValue(quitInput)
	_, cmd := m.submitInput()
	if cmd == nil {
		t.Fatal(":q should return a quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal(":q should produce tea.QuitMsg")
	}
}

func TestSubmitInputWhileGenerating(t *testing.T) {
	m := testModel()
	m.generating = true

	m.input.SetValue("this should be ignored")
	_, cmd := m.submitInput()
	if cmd != nil {
		t.Error("input while generating should return nil cmd")
	}
}

func TestTurnRendersRegionsAndStoresAnswer(t *testing.T) {
	m := testModel(
		core.NewEvFragment(core.Fragment{Reasoning: "a"}),
		core.NewEvFragment(core.Fragment{Reasoning: "b"}),
		core.NewEvFragment(core.Fragment{Tools: []core.ExecutedTool{{Type: "search"}}}),
		core.NewEvFragment(core.Fragment{Tools: []core.ExecutedTool{{Type: "search", Output: "found"}}}),
		core.NewEvFragment(core.Fragment{Content: "hello"}),
	)

	m.input.SetValue("hi")
	model, _ := m.submitInput()
	m = model.(TUIModel)
	if !m.generating {
		t.Fatal("expected turn to start")
	}
	if m.input.Value() != "" {
		t.Fatal("expected input to be cleared on submit")
	}

	m, cmd, views := drain(t, m, m.waitForStream())

	if !strings.Contains(views[0], "a") || strings.Contains(views[0], "Tools Used") {
		t.Errorf("first view should show only reasoning, got:\n%s", views[0])
	}
	if !strings.Contains(views[2], "Executing tool...") {
		t.Errorf("expected executing indicator, got:\n%s", views[2])
	}
	if !strings.Contains(views[3], "found") || strings.Contains(views[3], "Executing tool...") {
		t.Errorf("expected completed tool output, got:\n%s", views[3])
	}
	if !strings.Contains(views[4], "hello") {
		t.Errorf("expected answer in view, got:\n%s", views[4])
	}

	if m.generating {
		t.Error("turn should be over")
	}
	if cmd == nil {
		t.Error("finished turn should print its final view")
	}
	if m.lastAnswer != "hello" {
		t.Errorf("expected last answer %q, got %q", "hello", m.lastAnswer)
	}

	history := m.agent.History("test")
	if len(history) != 2 || history[1] != core.NewMsgAssistant("hello") {
		t.Fatalf("expected user and assistant entries, got %+v", history)
	}

	// back at the prompt
	if !strings.Contains(m.View(), promptText) {
		t.Errorf("expected prompt after the turn, got %q", m.View())
	}
}

func TestTurnWithoutFragments(t *testing.T) {
	m := testModel()

	m.input.SetValue("hi")
	model, _ := m.submitInput()
	m = model.(TUIModel)

	if view := m.View(); strings.Contains(view, "Working...") {
		t.Errorf("no regions expected before any fragment, got:\n%s", view)
	}

	m, cmd, _ := drain(t, m, m.waitForStream())
	if cmd != nil {
		t.Error("an empty turn has nothing to print")
	}

	history := m.agent.History("test")
	if len(history) != 2 || history[1] != core.NewMsgAssistant("") {
		t.Fatalf("expected an empty assistant entry, got %+v", history)
	}
}

func TestTurnErrorQuits(t *testing.T) {
	boom := errors.New("boom")
	m := testModel(core.NewEvError(boom))

	m.input.SetValue("hi")
	model, _ := m.submitInput()
	m = model.(TUIModel)

	m, cmd, _ := drain(t, m, m.waitForStream())
	if !errors.Is(m.err, boom) {
		t.Fatalf("expected stream error to be kept for exit, got %v", m.err)
	}
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("stream error should quit the program")
	}
}

func TestCtrlC(t *testing.T) {
	t.Run("while prompting", func(t *testing.T) {
		m := testModel()

		model, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
		result := model.(TUIModel)
		if !result.exiting || result.interrupted {
			t.Fatalf("expected a clean exit, got exiting=%v interrupted=%v", result.exiting, result.interrupted)
		}
		if cmd == nil {
			t.Fatal("expected exit message and quit")
		}
		if result.View() != "" {
			t.Fatal("view should be cleared on exit")
		}
	})

	t.Run("while generating", func(t *testing.T) {
		m := testModel()
		m.generating = true

		model, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
		result := model.(TUIModel)
		if !result.interrupted {
			t.Fatal("expected turn to be marked interrupted")
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Fatal("interrupting a turn should quit")
		}
	})
}
