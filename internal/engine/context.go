package engine

import "github.com/DonQuixuote/shape-tcg/internal/game"

// --- Turn context ------------------------------------------------------
// turnContext buffers the log lines produced by one transition so the state
// is fully updated before any observer hears about it.
type turnContext struct {
	b     *Battle
	lines []string
	ended bool
}

func newTurnContext(b *Battle) *turnContext {
	return &turnContext{b: b, lines: make([]string, 0, 8)}
}

func (tc *turnContext) add(msg string) { tc.lines = append(tc.lines, msg) }

// finish moves the battle to its result.
func (tc *turnContext) finish(winner game.Side, reason game.ResultReason, msg string) {
	s := &tc.b.state
	s.Phase = game.PhaseResult
	s.Winner = winner
	s.Reason = reason
	s.PlayerSelected = ""
	s.AISelected = ""
	tc.add(msg)
	tc.ended = true
}

// flush commits buffered lines to the log, then notifies the observer: one
// log event per line, a state event, and a result event when the battle
// ended in this transition.
func (tc *turnContext) flush() {
	s := &tc.b.state
	s.Log = append(s.Log, tc.lines...)
	for _, l := range tc.lines {
		tc.b.emit(Event{Kind: EventLog, Line: l})
	}
	tc.b.emitState()
	if tc.ended {
		final := s.clone()
		tc.b.emit(Event{Kind: EventResult, State: &final})
	}
	tc.lines = tc.lines[:0]
}
