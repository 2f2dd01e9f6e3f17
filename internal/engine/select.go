package engine

import (
	"fmt"
	"math/rand"

	"github.com/DonQuixuote/shape-tcg/internal/game"
)

// Picker chooses a card from a roster and returns its index. It must only
// return alive cards.
type Picker interface {
	Pick(cards []BattleCard) (int, error)
}

// RandomPicker picks uniformly among alive cards. With a single candidate it
// returns that card without consuming randomness.
type RandomPicker struct {
	rng *rand.Rand
}

func NewRandomPicker(rng *rand.Rand) *RandomPicker {
	return &RandomPicker{rng: rng}
}

func (p *RandomPicker) Pick(cards []BattleCard) (int, error) {
	alive := make([]int, 0, len(cards))
	for i, c := range cards {
		if c.Alive() {
			alive = append(alive, i)
		}
	}
	switch len(alive) {
	case 0:
		return -1, ErrNoAliveCards
	case 1:
		return alive[0], nil
	}
	return alive[p.rng.Intn(len(alive))], nil
}

// SelectPlayerCard records the human's choice, lets the AI pick among its
// alive cards and enters combat. Rejected selections leave the state as is.
func (b *Battle) SelectPlayerCard(cardID string) error {
	if b.closed {
		return ErrBattleClosed
	}
	if b.state.Phase != game.PhaseCardSelection {
		return ErrWrongPhase
	}
	idx := findCard(b.state.Player, cardID)
	if idx < 0 {
		return ErrForeignCard
	}
	if !b.state.Player[idx].Alive() {
		return ErrCardEliminated
	}
	return b.enterCombat(idx)
}

// autoSelect plays for a human whose turn clock ran out.
func (b *Battle) autoSelect() error {
	idx, err := b.pickAlive(b.state.Player)
	if err != nil {
		return fmt.Errorf("auto select: %w", err)
	}
	return b.enterCombat(idx)
}

func (b *Battle) enterCombat(playerIdx int) error {
	aiIdx, err := b.pickAlive(b.state.AI)
	if err != nil {
		return fmt.Errorf("opponent select: %w", err)
	}
	b.state.PlayerSelected = b.state.Player[playerIdx].ID
	b.state.AISelected = b.state.AI[aiIdx].ID
	b.state.Phase = game.PhaseCombat
	b.emitState()
	return nil
}

// pickAlive asks the picker for a card and checks the answer.
func (b *Battle) pickAlive(cards []BattleCard) (int, error) {
	idx, err := b.picker.Pick(cards)
	if err != nil {
		return -1, err
	}
	if idx < 0 || idx >= len(cards) || !cards[idx].Alive() {
		return -1, fmt.Errorf("%w: picker chose unavailable card %d", ErrInvariantBroken, idx)
	}
	return idx, nil
}
