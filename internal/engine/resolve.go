package engine

import (
	"fmt"

	"github.com/DonQuixuote/shape-tcg/internal/game"
)

// ComputeDamage is the damage an attacker with the given power deals to a
// defender with the given defense: power - defense, never below floor.
func ComputeDamage(power, defense, floor int) int {
	d := power - defense
	if d < floor {
		return floor
	}
	return d
}

func applyDamage(c *BattleCard, dmg int) {
	hp := c.CurrentHP - dmg
	if hp < 0 {
		hp = 0
	}
	if hp > c.Health {
		hp = c.Health
	}
	c.CurrentHP = hp
}

// ResolveCombat resolves the pending combat. Both hits are computed from the
// pre-turn snapshot and applied together before win conditions are checked.
func (b *Battle) ResolveCombat() error {
	if b.closed {
		return ErrBattleClosed
	}
	if b.state.Phase != game.PhaseCombat {
		return ErrWrongPhase
	}
	pi := findCard(b.state.Player, b.state.PlayerSelected)
	ai := findCard(b.state.AI, b.state.AISelected)
	if pi < 0 || ai < 0 {
		return fmt.Errorf("%w: combat without both selections", ErrInvariantBroken)
	}
	pc := &b.state.Player[pi]
	oc := &b.state.AI[ai]

	playerDamage := ComputeDamage(pc.Power, oc.Defense, b.rules.DamageFloor)
	aiDamage := ComputeDamage(oc.Power, pc.Defense, b.rules.DamageFloor)

	tc := newTurnContext(b)
	tc.add(fmt.Sprintf("Turn %d: %s (ATK %d) vs %s (ATK %d)", b.state.Turn, pc.Name, pc.Power, oc.Name, oc.Power))
	tc.add(fmt.Sprintf("%s deals %d damage, %s deals %d damage", pc.Name, playerDamage, oc.Name, aiDamage))

	applyDamage(pc, aiDamage)
	applyDamage(oc, playerDamage)

	if !pc.Alive() {
		tc.add(fmt.Sprintf("%s has been eliminated!", pc.Name))
	}
	if !oc.Alive() {
		tc.add(fmt.Sprintf("%s has been eliminated!", oc.Name))
	}

	tc.finalizeTurn()
	tc.flush()
	return nil
}

// finalizeTurn evaluates win conditions after a combat and either ends the
// battle or prepares the next card selection. Elimination takes precedence
// over the battle clock.
func (tc *turnContext) finalizeTurn() {
	s := &tc.b.state
	switch {
	case aliveCount(s.Player) == 0:
		tc.finish(game.SideAI, game.ReasonElimination, "Opponent wins! All your cards have been eliminated.")
	case aliveCount(s.AI) == 0:
		tc.finish(game.SidePlayer, game.ReasonElimination, "Victory! You have eliminated all opponent cards!")
	case s.BattleTimeLeft <= 0:
		tc.resolveTimeout()
	default:
		s.Turn++
		s.PlayerSelected = ""
		s.AISelected = ""
		s.Phase = game.PhaseCardSelection
		s.TurnTimeLeft = tc.b.rules.TurnSeconds
	}
}

// resolveTimeout ends the battle on the clock: the higher total HP wins and
// an exact tie goes to the player.
func (tc *turnContext) resolveTimeout() {
	s := &tc.b.state
	playerHP := TotalHP(s.Player)
	aiHP := TotalHP(s.AI)
	tc.add(fmt.Sprintf("Time's up! Remaining HP: you %d, %s %d", playerHP, opponentLabel(s.OpponentName), aiHP))
	if aiHP > playerHP {
		tc.finish(game.SideAI, game.ReasonTimeout, "Opponent wins on remaining health.")
		return
	}
	tc.finish(game.SidePlayer, game.ReasonTimeout, "Victory on remaining health!")
}

func opponentLabel(name string) string {
	if name == "" {
		return "opponent"
	}
	return name
}
