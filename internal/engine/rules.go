package engine

import (
	"errors"
	"fmt"
)

var (
	ErrWrongPhase      = errors.New("action not allowed in current phase")
	ErrCardEliminated  = errors.New("card has been eliminated")
	ErrForeignCard     = errors.New("card does not belong to this roster")
	ErrInvalidRoster   = errors.New("invalid roster")
	ErrBattleClosed    = errors.New("battle closed")
	ErrNoAliveCards    = errors.New("no alive cards to select")
	ErrInvalidRules    = errors.New("invalid battle rules")
	ErrInvariantBroken = errors.New("battle invariant violated")
)

// RosterSize is the number of cards each side brings into a battle.
const RosterSize = 3

// Rules are the tunable parameters of a battle.
type Rules struct {
	// TurnSeconds is the per-turn selection countdown.
	TurnSeconds int `json:"turn_seconds"`
	// BattleSeconds is the whole-battle countdown.
	BattleSeconds int `json:"battle_seconds"`
	// DamageFloor is the minimum damage a hit deals: 0 (ATK - DEF, minimum
	// zero) or 1 (every hit deals at least one point).
	DamageFloor int `json:"damage_floor"`
}

func DefaultRules() Rules {
	return Rules{TurnSeconds: 30, BattleSeconds: 300, DamageFloor: 0}
}

func (r Rules) Validate() error {
	if r.TurnSeconds < 1 {
		return fmt.Errorf("%w: turn seconds must be >= 1, got %d", ErrInvalidRules, r.TurnSeconds)
	}
	if r.BattleSeconds < r.TurnSeconds {
		return fmt.Errorf("%w: battle seconds (%d) must be >= turn seconds (%d)", ErrInvalidRules, r.BattleSeconds, r.TurnSeconds)
	}
	if r.DamageFloor != 0 && r.DamageFloor != 1 {
		return fmt.Errorf("%w: damage floor must be 0 or 1, got %d", ErrInvalidRules, r.DamageFloor)
	}
	return nil
}
