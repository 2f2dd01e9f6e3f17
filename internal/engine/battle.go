package engine

import (
	"fmt"

	"github.com/DonQuixuote/shape-tcg/internal/game"
)

// BattleCard is a card inside a battle together with its battle-scoped
// hit points. CurrentHP stays within [0, Health]; zero means eliminated.
type BattleCard struct {
	game.Card
	CurrentHP int `json:"current_hp"`
}

func (c BattleCard) Alive() bool { return c.CurrentHP > 0 }

// State is the aggregate battle state. Values returned by Snapshot are deep
// copies and safe to hand to other goroutines.
type State struct {
	Phase          game.Phase        `json:"phase"`
	Turn           int               `json:"turn"`
	OpponentName   string            `json:"opponent_name"`
	Player         []BattleCard      `json:"player_cards"`
	AI             []BattleCard      `json:"ai_cards"`
	PlayerSelected string            `json:"player_selected_card,omitempty"`
	AISelected     string            `json:"ai_selected_card,omitempty"`
	Log            []string          `json:"combat_log"`
	Winner         game.Side         `json:"winner,omitempty"`
	Reason         game.ResultReason `json:"reason,omitempty"`
	BattleTimeLeft int               `json:"battle_time_left"`
	TurnTimeLeft   int               `json:"turn_time_left"`
}

func (s State) clone() State {
	out := s
	out.Player = append(make([]BattleCard, 0, len(s.Player)), s.Player...)
	out.AI = append(make([]BattleCard, 0, len(s.AI)), s.AI...)
	out.Log = append(make([]string, 0, len(s.Log)), s.Log...)
	return out
}

// Battle is the state machine for one battle. It is not safe for concurrent
// use; a single owner drives it through Begin, SelectPlayerCard,
// ResolveCombat, Tick and Close.
type Battle struct {
	rules  Rules
	picker Picker
	obs    Observer
	state  State
	closed bool
}

// New builds a battle in the setup phase.
func New(rules Rules, picker Picker, obs Observer) (*Battle, error) {
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	if picker == nil {
		return nil, fmt.Errorf("%w: picker is required", ErrInvalidRules)
	}
	return &Battle{
		rules:  rules,
		picker: picker,
		obs:    obs,
		state: State{
			Phase:          game.PhaseSetup,
			Turn:           1,
			Log:            []string{},
			BattleTimeLeft: rules.BattleSeconds,
			TurnTimeLeft:   rules.TurnSeconds,
		},
	}, nil
}

func (b *Battle) Rules() Rules { return b.rules }

func (b *Battle) Phase() game.Phase { return b.state.Phase }

func (b *Battle) Closed() bool { return b.closed }

// Finished reports whether the battle reached its result.
func (b *Battle) Finished() bool { return b.state.Phase == game.PhaseResult }

func (b *Battle) Snapshot() State { return b.state.clone() }

// Begin populates both rosters and moves the battle to card selection. On
// error the battle stays in setup and may be begun again.
func (b *Battle) Begin(opponentName string, player, ai []game.Card) error {
	if b.closed {
		return ErrBattleClosed
	}
	if b.state.Phase != game.PhaseSetup {
		return ErrWrongPhase
	}
	pc, err := toRoster(player)
	if err != nil {
		return fmt.Errorf("player roster: %w", err)
	}
	ac, err := toRoster(ai)
	if err != nil {
		return fmt.Errorf("opponent roster: %w", err)
	}

	b.state.OpponentName = opponentName
	b.state.Player = pc
	b.state.AI = ac
	b.state.Phase = game.PhaseCardSelection
	b.state.TurnTimeLeft = b.rules.TurnSeconds

	tc := newTurnContext(b)
	tc.add(fmt.Sprintf("Battle started! Turn %d", b.state.Turn))
	tc.flush()
	return nil
}

func toRoster(cards []game.Card) ([]BattleCard, error) {
	if len(cards) != RosterSize {
		return nil, fmt.Errorf("%w: need exactly %d cards, got %d", ErrInvalidRoster, RosterSize, len(cards))
	}
	seen := make(map[string]bool, len(cards))
	out := make([]BattleCard, 0, len(cards))
	for _, c := range cards {
		if c.ID == "" {
			return nil, fmt.Errorf("%w: card without id", ErrInvalidRoster)
		}
		if seen[c.ID] {
			return nil, fmt.Errorf("%w: duplicate card %s", ErrInvalidRoster, c.ID)
		}
		if c.Health < 1 {
			return nil, fmt.Errorf("%w: card %s has no health", ErrInvalidRoster, c.ID)
		}
		seen[c.ID] = true
		out = append(out, BattleCard{Card: c, CurrentHP: c.Health})
	}
	return out, nil
}

// Close stops the battle. No further transitions happen and the observer is
// never called again.
func (b *Battle) Close() {
	b.closed = true
	b.obs = nil
}

func (b *Battle) emit(ev Event) {
	if b.obs != nil {
		b.obs(ev)
	}
}

func (b *Battle) emitState() {
	s := b.state.clone()
	b.emit(Event{Kind: EventState, State: &s})
}
