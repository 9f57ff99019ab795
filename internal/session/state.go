package session

import "sync/atomic"

// State is a point in the session lifecycle: Scouting (locating a peer to
// open a transport against) -> Opening (handshake in flight) ->
// Established (normal operation) -> Closing (teardown started, by any of
// user Close, a transport failure observed by the read task, or a lease
// expiry observed by the lease task) -> Closed (terminal).
type State int32

const (
	StateScouting State = iota
	StateOpening
	StateEstablished
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateScouting:
		return "scouting"
	case StateOpening:
		return "opening"
	case StateEstablished:
		return "established"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	return State(atomic.LoadInt32(&s.state))
}

// transition atomically moves the session from `from` to `to`, returning
// whether it won the race. Every caller that wants to force a transition to
// Closing (user Close, the read task on transport failure, the lease task
// on expiry) calls this rather than storing directly, so exactly one of
// them performs the actual teardown.
func (s *Session) transition(from, to State) bool {
	return atomic.CompareAndSwapInt32(&s.state, int32(from), int32(to))
}

// forceClosing moves the session to Closing from whatever state it is
// currently in, short of Closing or Closed themselves. It returns true the
// first time any caller succeeds; later callers observe false and do not
// repeat teardown.
func (s *Session) forceClosing() bool {
	for {
		cur := s.State()
		if cur == StateClosing || cur == StateClosed {
			return false
		}
		if s.transition(cur, StateClosing) {
			return true
		}
	}
}
