package core

import (
	"fmt"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Msg is a single entry of a conversation history.
type Msg struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

func NewMsg(role Role, text string) Msg {
	if role != RoleAssistant && role != RoleUser && role != RoleSystem {
		panic(fmt.Errorf("invalid role: %s", role))
	}

	return Msg{Role: role, Text: text}
}

func NewMsgUser(text string) Msg {
	return NewMsg(RoleUser, text)
}

func NewMsgAssistant(text string) Msg {
	return NewMsg(RoleAssistant, text)
}

func NewMsgSystem(text string) Msg {
	return NewMsg(RoleSystem, text)
}
