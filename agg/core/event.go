package core

type Event struct {
	Type     EventType
	Fragment Fragment
	Usage    Usage
	Err      error
}

type EventType int

const (
	EvUnk EventType = iota
	EvFragment
	EvUsage
	EvError
)

func NewEvFragment(fragment Fragment) Event {
	return Event{
		Type:     EvFragment,
		Fragment: fragment,
	}
}

func NewEvUsage(usage Usage) Event {
	return Event{
		Type:  EvUsage,
		Usage: usage,
	}
}

func NewEvError(err error) Event {
	return Event{
		Type: EvError,
		Err:  err,
	}
}
