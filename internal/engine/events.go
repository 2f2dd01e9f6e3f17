package engine

// EventKind classifies what an observer is being told.
type EventKind string

const (
	EventLog    EventKind = "log"
	EventState  EventKind = "state"
	EventResult EventKind = "result"
)

// Event is delivered to the battle observer after every transition. Log
// events carry one new combat log line; state and result events carry a
// snapshot taken after the transition completed.
type Event struct {
	Kind  EventKind `json:"kind"`
	Line  string    `json:"line,omitempty"`
	State *State    `json:"state,omitempty"`
}

// Observer receives battle events synchronously on the goroutine that drives
// the battle. It must not call back into the battle.
type Observer func(Event)
