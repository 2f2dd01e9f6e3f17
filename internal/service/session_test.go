package service

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DonQuixuote/shape-tcg/internal/clock"
	"github.com/DonQuixuote/shape-tcg/internal/engine"
	"github.com/DonQuixuote/shape-tcg/internal/game"
)

var epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

type firstAlive struct{}

func (firstAlive) Pick(cards []engine.BattleCard) (int, error) {
	for i, c := range cards {
		if c.Alive() {
			return i, nil
		}
	}
	return -1, engine.ErrNoAliveCards
}

type memRecorder struct {
	mu   sync.Mutex
	recs []*game.BattleRecord
}

func (m *memRecorder) SaveBattle(rec *game.BattleRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs = append(m.recs, rec)
	return nil
}

func (m *memRecorder) all() []*game.BattleRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*game.BattleRecord(nil), m.recs...)
}

func roster(prefix string, power, defense, health int) []game.Card {
	out := make([]game.Card, 0, 3)
	for _, n := range []string{"1", "2", "3"} {
		out = append(out, game.Card{ID: prefix + n, Name: prefix + n, Power: power, Defense: defense, Health: health})
	}
	return out
}

// strong player cards one-shot weak opponent cards and take no damage
func newTestSession(t *testing.T, rules engine.Rules, settle time.Duration) (*Session, *clock.Manual, *memRecorder) {
	t.Helper()
	clk := clock.NewManual(epoch)
	rec := &memRecorder{}
	s, err := startSession(sessionConfig{
		id:       "battle-1",
		owner:    "0xme",
		rules:    rules,
		picker:   firstAlive{},
		settle:   settle,
		clock:    clk,
		recorder: rec,
	}, "CryptoWarrior", roster("p", 10, 10, 30), roster("a", 0, 0, 5))
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s, clk, rec
}

// tick advances one second and waits until the session has handled it.
func tick(t *testing.T, s *Session, clk *clock.Manual) engine.State {
	t.Helper()
	clk.Advance(time.Second)
	st, err := s.Snapshot()
	require.NoError(t, err)
	return st
}

func drain(ch <-chan engine.Event) []engine.Event {
	var out []engine.Event
	for ev := range ch {
		out = append(out, ev)
	}
	return out
}

func TestSession_SelectResolvesAfterSettleDelay(t *testing.T) {
	s, clk, _ := newTestSession(t, engine.DefaultRules(), 500*time.Millisecond)

	st, err := s.Select("p1")
	require.NoError(t, err)
	assert.Equal(t, game.PhaseCombat, st.Phase)
	assert.Equal(t, "a1", st.AISelected)

	clk.Advance(400 * time.Millisecond)
	st, err = s.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, game.PhaseCombat, st.Phase)

	clk.Advance(100 * time.Millisecond)
	st, err = s.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, game.PhaseCardSelection, st.Phase)
	assert.Equal(t, 2, st.Turn)
	assert.Equal(t, 0, st.AI[0].CurrentHP)
	assert.Equal(t, 30, st.Player[0].CurrentHP)
}

func TestSession_RejectedSelectionLeavesState(t *testing.T) {
	s, _, _ := newTestSession(t, engine.DefaultRules(), 0)
	before, err := s.Snapshot()
	require.NoError(t, err)

	st, err := s.Select("a1")
	assert.ErrorIs(t, err, engine.ErrForeignCard)
	assert.Equal(t, before, st)
}

func TestSession_FinishRecordsAndClosesSubscribers(t *testing.T) {
	s, clk, rec := newTestSession(t, engine.DefaultRules(), 0)
	sub, err := s.Subscribe()
	require.NoError(t, err)
	defer sub.Cancel()

	for _, id := range []string{"p1", "p2", "p3"} {
		_, err := s.Select(id)
		require.NoError(t, err)
	}

	got := drain(sub.Events)
	assert.False(t, sub.Dropped())
	require.NotEmpty(t, got)
	assert.Equal(t, engine.EventState, got[0].Kind)
	last := got[len(got)-1]
	assert.Equal(t, engine.EventResult, last.Kind)
	assert.Equal(t, game.SidePlayer, last.State.Winner)

	recs := rec.all()
	require.Len(t, recs, 1)
	assert.Equal(t, "battle-1", recs[0].BattleID)
	assert.Equal(t, game.SidePlayer, recs[0].Winner)
	assert.Equal(t, game.ReasonElimination, recs[0].Reason)
	assert.Equal(t, 90, recs[0].PlayerHP)
	assert.Equal(t, 0, recs[0].OpponentHP)
	assert.Equal(t, 3, recs[0].Turns)

	at, ok := s.FinishedAt()
	assert.True(t, ok)
	assert.Equal(t, epoch, at)
	assert.Equal(t, 0, clk.Pending(), "timers stop at the result")

	_, err = s.Select("p1")
	assert.ErrorIs(t, err, engine.ErrWrongPhase)
}

func TestSession_TurnClockAutoSelects(t *testing.T) {
	s, clk, _ := newTestSession(t, engine.Rules{TurnSeconds: 2, BattleSeconds: 300}, 0)

	st := tick(t, s, clk)
	assert.Equal(t, 1, st.TurnTimeLeft)
	assert.Equal(t, 299, st.BattleTimeLeft)

	st = tick(t, s, clk)
	assert.Equal(t, 2, st.Turn)
	assert.Equal(t, 0, st.AI[0].CurrentHP)
	assert.Equal(t, game.PhaseCardSelection, st.Phase)
	assert.Equal(t, 2, st.TurnTimeLeft)
}

func TestSession_BattleClockTimeout(t *testing.T) {
	s, clk, rec := newTestSession(t, engine.Rules{TurnSeconds: 2, BattleSeconds: 2}, 0)

	tick(t, s, clk)
	st := tick(t, s, clk)
	assert.Equal(t, game.PhaseResult, st.Phase)
	assert.Equal(t, game.SidePlayer, st.Winner)
	assert.Equal(t, game.ReasonTimeout, st.Reason)
	assert.Equal(t, 0, st.BattleTimeLeft)

	recs := rec.all()
	require.Len(t, recs, 1)
	assert.Equal(t, game.ReasonTimeout, recs[0].Reason)
	assert.Equal(t, 0, clk.Pending())
}

func TestSession_CloseStopsEverything(t *testing.T) {
	s, clk, rec := newTestSession(t, engine.DefaultRules(), time.Second)
	sub, err := s.Subscribe()
	require.NoError(t, err)

	_, err = s.Select("p1")
	require.NoError(t, err)
	assert.Equal(t, 2, clk.Pending(), "ticker and settle timer")

	s.Close()
	s.Close()
	assert.Equal(t, 0, clk.Pending())

	got := drain(sub.Events)
	for _, ev := range got {
		assert.NotEqual(t, engine.EventResult, ev.Kind)
	}

	clk.Advance(10 * time.Second)
	_, err = s.Snapshot()
	assert.ErrorIs(t, err, engine.ErrBattleClosed)
	_, err = s.Select("p2")
	assert.ErrorIs(t, err, engine.ErrBattleClosed)
	_, err = s.Subscribe()
	assert.ErrorIs(t, err, engine.ErrBattleClosed)
	assert.Empty(t, rec.all())
}

func TestSession_SubscribeAfterFinish(t *testing.T) {
	s, _, _ := newTestSession(t, engine.DefaultRules(), 0)
	for _, id := range []string{"p1", "p2", "p3"} {
		_, err := s.Select(id)
		require.NoError(t, err)
	}

	sub, err := s.Subscribe()
	require.NoError(t, err)
	sub.Cancel()
	got := drain(sub.Events)
	require.Len(t, got, 2)
	assert.Equal(t, engine.EventState, got[0].Kind)
	assert.Equal(t, engine.EventResult, got[1].Kind)
	assert.Equal(t, game.PhaseResult, got[1].State.Phase)
}

func TestSession_CancelSubscription(t *testing.T) {
	s, _, _ := newTestSession(t, engine.DefaultRules(), 0)
	sub, err := s.Subscribe()
	require.NoError(t, err)
	sub.Cancel()
	sub.Cancel()

	_, err = s.Select("p1")
	require.NoError(t, err)
	got := drain(sub.Events)
	require.Len(t, got, 1, "only the initial state before cancel")
	assert.False(t, sub.Dropped())
}

func TestSession_SlowSubscriberIsDropped(t *testing.T) {
	s, clk, _ := newTestSession(t, engine.Rules{TurnSeconds: 100, BattleSeconds: 300}, 0)
	slow, err := s.Subscribe()
	require.NoError(t, err)

	for i := 0; i < subscriberBuffer+5; i++ {
		tick(t, s, clk)
	}
	got := drain(slow.Events)
	assert.Len(t, got, subscriberBuffer)
	assert.True(t, slow.Dropped())

	fresh, err := s.Subscribe()
	require.NoError(t, err)
	defer fresh.Cancel()
	st := tick(t, s, clk)
	assert.Equal(t, game.PhaseCardSelection, st.Phase, "the battle keeps running")
	assert.False(t, fresh.Dropped())
}
