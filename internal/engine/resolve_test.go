package engine

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DonQuixuote/shape-tcg/internal/game"
)

type firstAlive struct{}

func (firstAlive) Pick(cards []BattleCard) (int, error) {
	for i, c := range cards {
		if c.Alive() {
			return i, nil
		}
	}
	return -1, ErrNoAliveCards
}

type badPicker struct{}

func (badPicker) Pick(cards []BattleCard) (int, error) { return 0, nil }

func card(id string, power, defense, health int) game.Card {
	return game.Card{ID: id, Name: id, Power: power, Defense: defense, Health: health}
}

func roster(prefix string, power, defense, health int) []game.Card {
	return []game.Card{
		card(prefix+"1", power, defense, health),
		card(prefix+"2", power, defense, health),
		card(prefix+"3", power, defense, health),
	}
}

type recorder struct{ events []Event }

func (r *recorder) observe(ev Event) { r.events = append(r.events, ev) }

func (r *recorder) kinds() []EventKind {
	out := make([]EventKind, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Kind)
	}
	return out
}

func newBattle(t *testing.T, rules Rules, p Picker) (*Battle, *recorder) {
	t.Helper()
	rec := &recorder{}
	b, err := New(rules, p, rec.observe)
	require.NoError(t, err)
	return b, rec
}

func begin(t *testing.T, b *Battle, player, ai []game.Card) {
	t.Helper()
	require.NoError(t, b.Begin("CryptoWarrior", player, ai))
}

func fight(t *testing.T, b *Battle, cardID string) {
	t.Helper()
	require.NoError(t, b.SelectPlayerCard(cardID))
	require.NoError(t, b.ResolveCombat())
}

func TestComputeDamage_FloorZero(t *testing.T) {
	assert.Equal(t, 1, ComputeDamage(7, 6, 0))
	assert.Equal(t, 0, ComputeDamage(3, 8, 0))
	assert.Equal(t, 0, ComputeDamage(5, 5, 0))
	assert.Equal(t, 10, ComputeDamage(10, 0, 0))
}

func TestComputeDamage_FloorOne(t *testing.T) {
	assert.Equal(t, 1, ComputeDamage(7, 6, 1))
	assert.Equal(t, 1, ComputeDamage(3, 8, 1))
	assert.Equal(t, 1, ComputeDamage(5, 5, 1))
	assert.Equal(t, 10, ComputeDamage(10, 0, 1))
}

func TestResolveCombat_SingleTurnFloorZero(t *testing.T) {
	b, _ := newBattle(t, DefaultRules(), firstAlive{})
	player := []game.Card{card("p1", 7, 4, 20), card("p2", 1, 1, 5), card("p3", 1, 1, 5)}
	ai := []game.Card{card("a1", 6, 6, 18), card("a2", 1, 1, 5), card("a3", 1, 1, 5)}
	begin(t, b, player, ai)

	fight(t, b, "p1")

	s := b.Snapshot()
	assert.Equal(t, 18, s.Player[0].CurrentHP)
	assert.Equal(t, 17, s.AI[0].CurrentHP)
	assert.Equal(t, game.PhaseCardSelection, s.Phase)
	assert.Equal(t, 2, s.Turn)
	assert.Empty(t, s.PlayerSelected)
	assert.Empty(t, s.AISelected)
	assert.Equal(t, []string{
		"Battle started! Turn 1",
		"Turn 1: p1 (ATK 7) vs a1 (ATK 6)",
		"p1 deals 1 damage, a1 deals 2 damage",
	}, s.Log)
}

func TestResolveCombat_FloorOneChipsThroughDefense(t *testing.T) {
	rules := DefaultRules()
	rules.DamageFloor = 1
	b, _ := newBattle(t, rules, firstAlive{})
	begin(t, b, roster("p", 2, 9, 10), roster("a", 2, 9, 10))

	fight(t, b, "p1")

	s := b.Snapshot()
	assert.Equal(t, 9, s.Player[0].CurrentHP)
	assert.Equal(t, 9, s.AI[0].CurrentHP)
}

func TestResolveCombat_FloorZeroBlocksWeakHits(t *testing.T) {
	b, _ := newBattle(t, DefaultRules(), firstAlive{})
	begin(t, b, roster("p", 2, 9, 10), roster("a", 2, 9, 10))

	fight(t, b, "p1")

	s := b.Snapshot()
	assert.Equal(t, 10, s.Player[0].CurrentHP)
	assert.Equal(t, 10, s.AI[0].CurrentHP)
}

func TestResolveCombat_DamageUsesPreTurnSnapshot(t *testing.T) {
	b, _ := newBattle(t, DefaultRules(), firstAlive{})
	// both hits are lethal; neither card's death cancels its own attack
	player := []game.Card{card("p1", 10, 0, 5), card("p2", 1, 1, 5), card("p3", 1, 1, 5)}
	ai := []game.Card{card("a1", 9, 0, 4), card("a2", 1, 1, 5), card("a3", 1, 1, 5)}
	begin(t, b, player, ai)

	fight(t, b, "p1")

	s := b.Snapshot()
	assert.Equal(t, 0, s.Player[0].CurrentHP)
	assert.Equal(t, 0, s.AI[0].CurrentHP)
	assert.Equal(t, []string{"p1 has been eliminated!", "a1 has been eliminated!"}, s.Log[len(s.Log)-2:])
	assert.Equal(t, game.PhaseCardSelection, s.Phase)
}

func TestResolveCombat_DoubleEliminationFavoursOpponent(t *testing.T) {
	b, _ := newBattle(t, DefaultRules(), firstAlive{})
	begin(t, b, roster("p", 10, 0, 10), roster("a", 10, 0, 10))

	fight(t, b, "p1")
	fight(t, b, "p2")
	fight(t, b, "p3")

	s := b.Snapshot()
	require.Equal(t, game.PhaseResult, s.Phase)
	assert.Equal(t, game.SideAI, s.Winner)
	assert.Equal(t, game.ReasonElimination, s.Reason)
	n := len(s.Log)
	assert.Equal(t, []string{
		"p3 has been eliminated!",
		"a3 has been eliminated!",
		"Opponent wins! All your cards have been eliminated.",
	}, s.Log[n-3:])
	assert.True(t, b.Finished())
}

func TestResolveCombat_PlayerEliminatesOpponent(t *testing.T) {
	b, _ := newBattle(t, DefaultRules(), firstAlive{})
	begin(t, b, roster("p", 10, 10, 30), roster("a", 5, 0, 10))

	fight(t, b, "p1")
	fight(t, b, "p1")
	fight(t, b, "p2")

	s := b.Snapshot()
	assert.Equal(t, game.PhaseResult, s.Phase)
	assert.Equal(t, game.SidePlayer, s.Winner)
	assert.Equal(t, "Victory! You have eliminated all opponent cards!", s.Log[len(s.Log)-1])
	assert.Equal(t, 3, s.Turn)
}

func TestRandomPicker_SoleSurvivorIsPickedDeterministically(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	p := NewRandomPicker(rng)
	cards := []BattleCard{
		{Card: card("a1", 1, 1, 5), CurrentHP: 0},
		{Card: card("a2", 1, 1, 5), CurrentHP: 3},
		{Card: card("a3", 1, 1, 5), CurrentHP: 0},
	}
	for i := 0; i < 20; i++ {
		idx, err := p.Pick(cards)
		require.NoError(t, err)
		assert.Equal(t, 1, idx)
	}
	// a single candidate never consumes randomness
	assert.Equal(t, rand.New(rand.NewSource(7)).Int63(), rng.Int63())

	_, err := p.Pick([]BattleCard{{Card: card("x", 1, 1, 1)}})
	assert.ErrorIs(t, err, ErrNoAliveCards)
}

func TestBattle_AIPicksSoleSurvivor(t *testing.T) {
	b, rec := newBattle(t, DefaultRules(), NewRandomPicker(rand.New(rand.NewSource(42))))
	begin(t, b, roster("p", 10, 10, 30), roster("a", 0, 0, 10))

	fight(t, b, "p1")
	fight(t, b, "p1")

	s := b.Snapshot()
	require.Equal(t, 1, aliveCount(s.AI))
	survivor := s.AI[findAlive(s.AI)].ID

	rec.events = nil
	require.NoError(t, b.SelectPlayerCard("p2"))
	require.Len(t, rec.events, 1)
	assert.Equal(t, survivor, rec.events[0].State.AISelected)
	assert.Equal(t, game.PhaseCombat, rec.events[0].State.Phase)
	require.NoError(t, b.ResolveCombat())
	assert.Equal(t, game.SidePlayer, b.Snapshot().Winner)
}

func findAlive(cards []BattleCard) int {
	for i, c := range cards {
		if c.Alive() {
			return i
		}
	}
	return -1
}

func TestSelectPlayerCard_Rejections(t *testing.T) {
	b, _ := newBattle(t, DefaultRules(), firstAlive{})
	assert.ErrorIs(t, b.SelectPlayerCard("p1"), ErrWrongPhase, "setup")

	player := []game.Card{card("p1", 10, 0, 1), card("p2", 1, 1, 5), card("p3", 1, 1, 5)}
	begin(t, b, player, roster("a", 5, 0, 30))

	assert.ErrorIs(t, b.SelectPlayerCard("a1"), ErrForeignCard)
	assert.ErrorIs(t, b.SelectPlayerCard("nope"), ErrForeignCard)

	fight(t, b, "p1")
	before := b.Snapshot()
	require.Equal(t, 0, before.Player[0].CurrentHP)

	assert.ErrorIs(t, b.SelectPlayerCard("p1"), ErrCardEliminated)
	assert.Equal(t, before, b.Snapshot())

	require.NoError(t, b.SelectPlayerCard("p2"))
	assert.ErrorIs(t, b.SelectPlayerCard("p3"), ErrWrongPhase, "already in combat")
	assert.ErrorIs(t, b.Begin("x", roster("p", 1, 1, 1), roster("a", 1, 1, 1)), ErrWrongPhase)
}

func TestSelectPlayerCard_BrokenPickerIsInvariantViolation(t *testing.T) {
	b, _ := newBattle(t, DefaultRules(), firstAlive{})
	begin(t, b, roster("p", 10, 10, 30), []game.Card{card("a1", 0, 0, 10), card("a2", 0, 0, 10), card("a3", 0, 0, 10)})
	fight(t, b, "p1")
	b.picker = badPicker{}

	err := b.SelectPlayerCard("p1")
	assert.ErrorIs(t, err, ErrInvariantBroken)
	assert.Equal(t, game.PhaseCardSelection, b.Phase())
}

func TestBegin_InvalidRosterStaysInSetup(t *testing.T) {
	b, rec := newBattle(t, DefaultRules(), firstAlive{})

	err := b.Begin("x", roster("p", 1, 1, 5)[:2], roster("a", 1, 1, 5))
	assert.ErrorIs(t, err, ErrInvalidRoster)
	err = b.Begin("x", roster("p", 1, 1, 5), append(roster("a", 1, 1, 5), card("a4", 1, 1, 5)))
	assert.ErrorIs(t, err, ErrInvalidRoster)
	dup := []game.Card{card("p1", 1, 1, 5), card("p1", 1, 1, 5), card("p3", 1, 1, 5)}
	assert.ErrorIs(t, b.Begin("x", dup, roster("a", 1, 1, 5)), ErrInvalidRoster)
	assert.ErrorIs(t, b.Begin("x", roster("p", 1, 1, 0), roster("a", 1, 1, 5)), ErrInvalidRoster)

	assert.Equal(t, game.PhaseSetup, b.Phase())
	assert.Empty(t, rec.events)

	begin(t, b, roster("p", 1, 1, 5), roster("a", 1, 1, 5))
	assert.Equal(t, game.PhaseCardSelection, b.Phase())
}

func TestNew_RejectsInvalidRules(t *testing.T) {
	for _, r := range []Rules{
		{TurnSeconds: 0, BattleSeconds: 300},
		{TurnSeconds: 30, BattleSeconds: 10},
		{TurnSeconds: 30, BattleSeconds: 300, DamageFloor: 2},
	} {
		_, err := New(r, firstAlive{}, nil)
		assert.ErrorIs(t, err, ErrInvalidRules)
	}
	_, err := New(DefaultRules(), nil, nil)
	assert.ErrorIs(t, err, ErrInvalidRules)
}

func TestResolveCombat_ObserversSeeWholeTurn(t *testing.T) {
	b, rec := newBattle(t, DefaultRules(), firstAlive{})
	begin(t, b, roster("p", 10, 0, 10), roster("a", 10, 0, 10))
	fight(t, b, "p1")
	fight(t, b, "p2")
	rec.events = nil

	fight(t, b, "p3")

	assert.Equal(t, []EventKind{
		EventState, // combat entered
		EventLog, EventLog, EventLog, EventLog, EventLog,
		EventState,
		EventResult,
	}, rec.kinds())
	state := rec.events[6].State
	assert.Equal(t, 0, state.Player[2].CurrentHP)
	assert.Equal(t, 0, state.AI[2].CurrentHP)
	result := rec.events[7].State
	assert.Equal(t, game.SideAI, result.Winner)
	assert.Equal(t, b.Snapshot().Log, result.Log)
}

func TestSnapshot_IsDeepCopy(t *testing.T) {
	b, _ := newBattle(t, DefaultRules(), firstAlive{})
	begin(t, b, roster("p", 5, 0, 10), roster("a", 5, 0, 10))
	s := b.Snapshot()
	s.Player[0].CurrentHP = 1
	s.Log[0] = "tampered"
	assert.Equal(t, 10, b.Snapshot().Player[0].CurrentHP)
	assert.Equal(t, "Battle started! Turn 1", b.Snapshot().Log[0])
}

func TestBattle_RandomPlayTerminatesWithinBounds(t *testing.T) {
	for seed := int64(1); seed <= 25; seed++ {
		rng := rand.New(rand.NewSource(seed))
		rules := Rules{TurnSeconds: 2, BattleSeconds: 40, DamageFloor: int(seed % 2)}
		rec := &recorder{}
		b, err := New(rules, NewRandomPicker(rng), rec.observe)
		require.NoError(t, err)

		mk := func(prefix string) []game.Card {
			out := make([]game.Card, 0, RosterSize)
			for i := 1; i <= RosterSize; i++ {
				out = append(out, card(prefix+string(rune('0'+i)), rng.Intn(11), rng.Intn(11), 1+rng.Intn(30)))
			}
			return out
		}
		require.NoError(t, b.Begin("bot", mk("p"), mk("a")))

		for steps := 0; !b.Finished(); steps++ {
			require.Less(t, steps, 1000, "seed %d did not terminate", seed)
			switch b.Phase() {
			case game.PhaseCardSelection:
				if rng.Intn(2) == 0 {
					require.NoError(t, b.Tick())
					continue
				}
				s := b.Snapshot()
				require.NoError(t, b.SelectPlayerCard(s.Player[findAlive(s.Player)].ID))
			case game.PhaseCombat:
				if rng.Intn(3) == 0 {
					require.NoError(t, b.Tick())
					continue
				}
				require.NoError(t, b.ResolveCombat())
			}
		}

		for _, ev := range rec.events {
			if ev.State == nil {
				continue
			}
			for _, c := range append(ev.State.Player, ev.State.AI...) {
				require.GreaterOrEqual(t, c.CurrentHP, 0)
				require.LessOrEqual(t, c.CurrentHP, c.Health)
			}
		}
		assert.Equal(t, EventResult, rec.events[len(rec.events)-1].Kind)
	}
}
