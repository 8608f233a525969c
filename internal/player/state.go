package player

import "fmt"

type State int

const (
	StateIdle State = iota
	StateConnecting
	StateConnected
	StatePlaying
	StatePaused
)

var stateNames = map[State]string{
	StateIdle:       "idle",
	StateConnecting: "connecting",
	StateConnected:  "connected",
	StatePlaying:    "playing",
	StatePaused:     "paused",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return fmt.Sprintf("State(%d)", int(s))
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Connected reports whether the state holds a live node connection.
func (s State) Connected() bool {
	return s == StateConnected || s == StatePlaying || s == StatePaused
}

// EndReason is why the node stopped a track.
type EndReason string

const (
	EndFinished   EndReason = "finished"
	EndLoadFailed EndReason = "loadFailed"
	EndStopped    EndReason = "stopped"
	EndReplaced   EndReason = "replaced"
	EndCleanup    EndReason = "cleanup"
)

// MayStartNext reports whether the queue should advance after this end.
func (r EndReason) MayStartNext() bool {
	return r == EndFinished || r == EndLoadFailed
}

// Outcome is the non-error result of a control action.
type Outcome int

const (
	Done Outcome = iota
	// NothingToSkip means skip found no pending track; nothing changed.
	NothingToSkip
)

// Action is a control surface button.
type Action string

const (
	ActionStop   Action = "stop"
	ActionToggle Action = "toggle"
	ActionSkip   Action = "skip"
)
