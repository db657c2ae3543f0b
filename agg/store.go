package agg

import "github.com/victhorio/compound/agg/core"

// Store keeps conversation histories and token usage keyed by session ID.
type Store interface {
	Messages(string) []core.Msg
	Usage(string) core.Usage
	Extend(string, []core.Msg, core.Usage) error
}
