package groq

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/packages/ssestream"
	"github.com/openai/openai-go/v3/shared"
	"github.com/tidwall/gjson"
	"github.com/victhorio/compound/agg/core"
	"github.com/victhorio/compound/logger"
)

type Stream struct {
	stream *ssestream.Stream[openai.ChatCompletionChunk]
}

// OpenStream starts a streaming chat completion with the whole conversation so far.
func (m *Model) OpenStream(ctx context.Context, msgs []core.Msg) (core.ResponseStream, error) {
	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(m.model),
		Messages: fromCoreMsgs(msgs),
	}

	stream := m.api.Chat.Completions.NewStreaming(ctx, params)
	if err := stream.Err(); err != nil {
		stream.Close()
		return nil, fmt.Errorf("groq.OpenStream: error opening stream: %w", err)
	}

	return &Stream{stream: stream}, nil
}

// Consume reads chunks off the stream and emits them to the output channel as:
// - fragments, for every chunk carrying reasoning, content or executed tools
// - usage, once the final chunk reports it
// - an error, if the stream breaks or a chunk cannot be decoded
//
// This function closes both the stream and the channel at the end of execution.
func (s *Stream) Consume(ctx context.Context, out chan<- core.Event) {
	defer s.stream.Close()
	defer close(out)

	for s.stream.Next() {
		chunk := s.stream.Current()

		fragment, usage, err := decodeChunk(chunk.RawJSON())
		if err != nil {
			_ = sendEvent(ctx, out, core.NewEvError(err))
			return
		}

		if !fragment.IsEmpty() {
			if !sendEvent(ctx, out, core.NewEvFragment(fragment)) {
				return
			}
		}

		if usage != nil {
			if !sendEvent(ctx, out, core.NewEvUsage(*usage)) {
				return
			}
		}
	}

	if err := s.stream.Err(); err != nil {
		_ = sendEvent(ctx, out, core.NewEvError(fmt.Errorf("groq.Stream.Consume: %w", err)))
	}
}

// decodeChunk pulls a fragment and, when present, usage out of a raw chat completion chunk.
// Reasoning and executed tools are Groq extensions to the delta object, so they are read from
// the raw JSON rather than the typed chunk.
func decodeChunk(raw string) (core.Fragment, *core.Usage, error) {
	if !gjson.Valid(raw) {
		path, err := core.DumpPayload("", "groq-chunk", raw)
		if err != nil {
			logger.Named("groq").WithError(err).Warn("failed to save invalid chunk")
			return core.Fragment{}, nil, errors.New("groq: invalid chunk JSON")
		}
		return core.Fragment{}, nil, fmt.Errorf("groq: invalid chunk JSON (saved to %s)", path)
	}

	delta := gjson.Get(raw, "choices.0.delta")

	fragment := core.Fragment{
		Reasoning: delta.Get("reasoning").String(),
		Content:   delta.Get("content").String(),
	}

	if tools := delta.Get("executed_tools"); tools.IsArray() {
		fragment.Tools = make([]core.ExecutedTool, 0, len(tools.Array()))
		for _, t := range tools.Array() {
			fragment.Tools = append(fragment.Tools, core.ExecutedTool{
				Index:     int(t.Get("index").Int()),
				Type:      t.Get("type").String(),
				Arguments: t.Get("arguments").String(),
				Output:    t.Get("output").String(),
			})
		}
	}

	// Groq reports usage under x_groq on the last chunk, plain OpenAI-compatible servers use the
	// top level field
	u := gjson.Get(raw, "x_groq.usage")
	if !u.IsObject() {
		u = gjson.Get(raw, "usage")
	}
	if !u.IsObject() {
		return fragment, nil, nil
	}

	usage := &core.Usage{
		Input:  u.Get("prompt_tokens").Int(),
		Output: u.Get("completion_tokens").Int(),
		Total:  u.Get("total_tokens").Int(),
	}
	return fragment, usage, nil
}

func fromCoreMsgs(msgs []core.Msg) []openai.ChatCompletionMessageParamUnion {
	adapted := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, msg := range msgs {
		switch msg.Role {
		case core.RoleSystem:
			adapted = append(adapted, openai.SystemMessage(msg.Text))
		case core.RoleAssistant:
			adapted = append(adapted, openai.AssistantMessage(msg.Text))
		case core.RoleUser:
			adapted = append(adapted, openai.UserMessage(msg.Text))
		default:
			panic(fmt.Errorf("unknown message role: %s", msg.Role))
		}
	}
	return adapted
}

func sendEvent(ctx context.Context, out chan<- core.Event, ev core.Event) bool {
	select {
	case <-ctx.Done():
		return false
	case out <- ev:
		return true
	}
}
