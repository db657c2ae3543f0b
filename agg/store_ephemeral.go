package agg

import "github.com/victhorio/compound/agg/core"

type EphemeralStore struct {
	m map[string][]core.Msg
	u map[string]core.Usage
}

func NewEphemeralStore() EphemeralStore {
	return EphemeralStore{
		m: make(map[string][]core.Msg),
		u: make(map[string]core.Usage),
	}
}

// Messages returns a copy of the session history so callers can append to it freely.
func (s EphemeralStore) Messages(key string) []core.Msg {
	m, ok := s.m[key]
	if !ok {
		return []core.Msg{}
	}
	out := make([]core.Msg, len(m), len(m)+2)
	copy(out, m)
	return out
}

func (s EphemeralStore) Usage(key string) core.Usage {
	u, ok := s.u[key]
	if !ok {
		return core.Usage{}
	}
	return u
}

func (s *EphemeralStore) Extend(
	key string,
	msgs []core.Msg,
	usage core.Usage,
) error {
	s.m[key] = append(s.m[key], msgs...)

	u := s.Usage(key)
	u.Inc(usage)
	s.u[key] = u

	return nil
}
