package agg

import (
	"context"
	"fmt"

	"github.com/victhorio/compound/agg/core"
	"github.com/victhorio/compound/logger"
)

type Agent struct {
	sysPrompt string
	model     core.Model
	store     Store
}

// NewAgent builds an agent. An empty sysPrompt sends the conversation without a system message.
func NewAgent(
	sysPrompt string,
	model core.Model,
	store Store,
) Agent {
	return Agent{
		sysPrompt: sysPrompt,
		model:     model,
		store:     store,
	}
}

// RunStream sends input as the next user message of sessionID and streams the reply.
//
// onUpdate is called after every fragment with the turn's accumulator as it stands. Once the
// stream ends the accumulated content is stored as the assistant reply, together with the user
// message, and returned. On error nothing is stored.
func (a *Agent) RunStream(
	ctx context.Context,
	sessionID string,
	input string,
	onUpdate func(core.Accumulator),
) (string, error) {
	ctxChild, cancel := context.WithCancel(ctx)
	defer cancel()

	log := logger.Named("agent").WithField("session", sessionID)

	msgs := a.store.Messages(sessionID)
	// let's remember up to which idx of `msgs` we already have it stored
	msgsStoreIdx := len(msgs)

	// if it's the first message for this session, we need to include system prompt
	if msgsStoreIdx == 0 && a.sysPrompt != "" {
		msgs = append(msgs, core.NewMsgSystem(a.sysPrompt))
	}
	msgs = append(msgs, core.NewMsgUser(input))

	log.WithField("history", len(msgs)).Info("turn started")

	stream, err := a.model.OpenStream(ctxChild, msgs)
	if err != nil {
		return "", fmt.Errorf("Agent.RunStream: error opening stream: %w", err)
	}

	events := make(chan core.Event, 1)
	go stream.Consume(ctxChild, events)

	var acc core.Accumulator
	var usage core.Usage
	for event := range events {
		switch event.Type {
		case core.EvFragment:
			acc.Apply(event.Fragment)
			if onUpdate != nil {
				onUpdate(acc)
			}
		case core.EvUsage:
			usage.Inc(event.Usage)
		case core.EvError:
			log.WithError(event.Err).Error("stream failed")
			return "", fmt.Errorf("Agent.RunStream: error during stream: %w", event.Err)
		}
	}

	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("Agent.RunStream: context error: %w", err)
	}

	content := acc.Content()
	msgs = append(msgs, core.NewMsgAssistant(content))

	// before returning, let's update the store
	if err := a.store.Extend(sessionID, msgs[msgsStoreIdx:], usage); err != nil {
		return "", fmt.Errorf("Agent.RunStream: error extending store: %w", err)
	}

	log.WithFields(logger.Fields{
		"fragments":     acc.Fragments(),
		"content_len":   len(content),
		"tokens_total":  usage.Total,
		"tools_visible": len(acc.Tools()),
	}).Info("turn finished")

	return content, nil
}

// Usage returns the tokens spent so far in a session.
func (a *Agent) Usage(sessionID string) core.Usage {
	return a.store.Usage(sessionID)
}

// History returns the stored conversation of a session.
func (a *Agent) History(sessionID string) []core.Msg {
	return a.store.Messages(sessionID)
}

func (a *Agent) ModelID() string {
	return a.model.ID()
}
