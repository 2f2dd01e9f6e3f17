package engine

import "github.com/DonQuixuote/shape-tcg/internal/game"

// Tick advances both countdowns by one second, battle clock first. When the
// battle clock reaches zero during card selection the battle ends on the
// spot; during combat the timeout is evaluated once the combat resolves.
// When the turn clock runs out the human's card is picked automatically.
// Ticks in setup, after the result or after Close do nothing.
func (b *Battle) Tick() error {
	if b.closed {
		return ErrBattleClosed
	}
	s := &b.state
	if s.Phase == game.PhaseSetup || s.Phase == game.PhaseResult {
		return nil
	}

	if s.BattleTimeLeft > 0 {
		s.BattleTimeLeft--
	}
	if s.Phase != game.PhaseCardSelection {
		b.emitState()
		return nil
	}

	if s.BattleTimeLeft <= 0 {
		tc := newTurnContext(b)
		tc.resolveTimeout()
		tc.flush()
		return nil
	}

	if s.TurnTimeLeft > 0 {
		s.TurnTimeLeft--
	}
	if s.TurnTimeLeft > 0 {
		b.emitState()
		return nil
	}
	return b.autoSelect()
}
