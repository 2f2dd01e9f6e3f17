package service

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/DonQuixuote/shape-tcg/internal/clock"
	"github.com/DonQuixuote/shape-tcg/internal/constants"
	"github.com/DonQuixuote/shape-tcg/internal/engine"
	"github.com/DonQuixuote/shape-tcg/internal/game"
	"github.com/DonQuixuote/shape-tcg/internal/logging"
)

// subscriberBuffer bounds how far a subscriber may lag before it is dropped.
const subscriberBuffer = 64

// Recorder persists finished battles. storage.Repository satisfies it.
type Recorder interface {
	SaveBattle(rec *game.BattleRecord) error
}

type sessionConfig struct {
	id       string
	owner    string
	rules    engine.Rules
	picker   engine.Picker
	settle   time.Duration
	clock    clock.Clock
	recorder Recorder
}

// Session runs one battle on its own goroutine. The goroutine owns the
// engine, both timers and the subscriber set; everything else talks to it
// through commands.
type Session struct {
	id    string
	owner string

	clock    clock.Clock
	settle   time.Duration
	recorder Recorder
	battle   *engine.Battle

	ticker  clock.Ticker
	settleT clock.Timer
	subs    map[int]*Subscription
	nextSub int
	final   *engine.State

	cmds      chan func()
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	mu         sync.Mutex
	finishedAt time.Time
}

// startSession begins the battle and starts its goroutine. On error nothing
// is left running.
func startSession(cfg sessionConfig, opponentName string, player, ai []game.Card) (*Session, error) {
	s := &Session{
		id:       cfg.id,
		owner:    cfg.owner,
		clock:    cfg.clock,
		settle:   cfg.settle,
		recorder: cfg.recorder,
		subs:     map[int]*Subscription{},
		cmds:     make(chan func()),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	b, err := engine.New(cfg.rules, cfg.picker, s.observe)
	if err != nil {
		return nil, err
	}
	if err := b.Begin(opponentName, player, ai); err != nil {
		return nil, err
	}
	s.battle = b
	s.ticker = s.clock.NewTicker(time.Second)
	go s.run()
	return s, nil
}

func (s *Session) ID() string { return s.id }

func (s *Session) Owner() string { return s.owner }

// FinishedAt reports when the battle reached its result.
func (s *Session) FinishedAt() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finishedAt, !s.finishedAt.IsZero()
}

func (s *Session) run() {
	defer close(s.done)
	for {
		select {
		case fn := <-s.cmds:
			fn()
		case <-chanOf(s.ticker):
			if err := s.battle.Tick(); err != nil {
				logging.Error("battle tick failed", err, s.fields())
			}
			s.afterTransition()
		case <-timerChan(s.settleT):
			s.settleT = nil
			s.resolve()
		case <-s.quit:
			s.battle.Close()
			s.stopTimers()
			s.closeSubscribers()
			logging.Info("battle closed", s.fields())
			return
		}
	}
}

func chanOf(t clock.Ticker) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.C()
}

func timerChan(t clock.Timer) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.C()
}

// do runs fn on the session goroutine and waits for it.
func (s *Session) do(fn func()) error {
	ran := make(chan struct{})
	select {
	case s.cmds <- func() { fn(); close(ran) }:
	case <-s.done:
		return engine.ErrBattleClosed
	}
	<-ran
	return nil
}

// afterTransition arms the settle timer when combat starts and wraps up the
// battle once it has a result.
func (s *Session) afterTransition() {
	if s.battle.Phase() == game.PhaseCombat && s.settleT == nil {
		if s.settle <= 0 {
			s.resolve()
			return
		}
		s.settleT = s.clock.NewTimer(s.settle)
	}
	if s.battle.Finished() && s.final == nil {
		s.finish()
	}
}

func (s *Session) resolve() {
	if err := s.battle.ResolveCombat(); err != nil {
		logging.Error("combat resolution failed", err, s.fields())
	}
	s.afterTransition()
}

func (s *Session) finish() {
	s.stopTimers()
	st := s.battle.Snapshot()
	s.final = &st

	s.mu.Lock()
	s.finishedAt = s.clock.Now()
	s.mu.Unlock()

	fields := s.fields()
	fields[constants.LogFieldWinner] = st.Winner
	fields[constants.LogFieldReason] = st.Reason
	fields[constants.LogFieldTurn] = st.Turn
	logging.Info("battle finished", fields)

	if s.recorder == nil {
		return
	}
	rec := &game.BattleRecord{
		BattleID:     s.id,
		OwnerAddress: s.owner,
		OpponentName: st.OpponentName,
		Winner:       st.Winner,
		Reason:       st.Reason,
		Turns:        st.Turn,
		PlayerHP:     engine.TotalHP(st.Player),
		OpponentHP:   engine.TotalHP(st.AI),
		Log:          strings.Join(st.Log, "\n"),
	}
	if err := s.recorder.SaveBattle(rec); err != nil {
		logging.Error("failed to record battle", err, s.fields())
	}
}

func (s *Session) stopTimers() {
	if s.ticker != nil {
		s.ticker.Stop()
		s.ticker = nil
	}
	if s.settleT != nil {
		s.settleT.Stop()
		s.settleT = nil
	}
}

// observe fans engine events out to subscribers. It runs on the session
// goroutine. A subscriber that cannot keep up is dropped.
func (s *Session) observe(ev engine.Event) {
	for id, sub := range s.subs {
		select {
		case sub.ch <- ev:
		default:
			logging.Warn("dropping slow battle subscriber", nil, s.fields())
			sub.dropped.Store(true)
			close(sub.ch)
			delete(s.subs, id)
		}
	}
	if ev.Kind == engine.EventResult {
		s.closeSubscribers()
	}
}

func (s *Session) closeSubscribers() {
	for id, sub := range s.subs {
		close(sub.ch)
		delete(s.subs, id)
	}
}

func (s *Session) fields() logging.Fields {
	return logging.Fields{constants.LogFieldBattleID: s.id, constants.LogFieldOwner: s.owner}
}

// Snapshot returns the current battle state.
func (s *Session) Snapshot() (engine.State, error) {
	var st engine.State
	err := s.do(func() { st = s.battle.Snapshot() })
	return st, err
}

// Select plays the human's card for this turn.
func (s *Session) Select(cardID string) (engine.State, error) {
	var (
		st     engine.State
		selErr error
	)
	err := s.do(func() {
		if selErr = s.battle.SelectPlayerCard(cardID); selErr == nil {
			s.afterTransition()
		}
		st = s.battle.Snapshot()
	})
	if err != nil {
		return engine.State{}, err
	}
	return st, selErr
}

// Subscription delivers one observer's copy of a session's events.
type Subscription struct {
	// Events is closed after the result event, when the session closes, on
	// Cancel, or when the subscriber falls subscriberBuffer events behind.
	Events <-chan engine.Event

	ch      chan engine.Event
	dropped atomic.Bool
	cancel  func()
}

// Cancel stops delivery and closes Events. It is safe to call more than once.
func (sub *Subscription) Cancel() { sub.cancel() }

// Dropped reports whether Events was closed because the subscriber fell
// behind. It is meaningful once Events is closed.
func (sub *Subscription) Dropped() bool { return sub.dropped.Load() }

// Subscribe streams battle events starting with the current state.
// Subscribing to a finished battle yields the final state and result, then
// a closed channel.
func (s *Session) Subscribe() (*Subscription, error) {
	ch := make(chan engine.Event, subscriberBuffer)
	sub := &Subscription{Events: ch, ch: ch, cancel: func() {}}
	id := -1
	err := s.do(func() {
		st := s.battle.Snapshot()
		ch <- engine.Event{Kind: engine.EventState, State: &st}
		if s.final != nil {
			res := st
			ch <- engine.Event{Kind: engine.EventResult, State: &res}
			close(ch)
			return
		}
		id = s.nextSub
		s.nextSub++
		s.subs[id] = sub
	})
	if err != nil {
		return nil, err
	}
	if id >= 0 {
		sub.cancel = func() {
			_ = s.do(func() {
				if c, ok := s.subs[id]; ok {
					close(c.ch)
					delete(s.subs, id)
				}
			})
		}
	}
	return sub, nil
}

// Close stops both timers, closes subscriber channels and discards the
// battle. It waits for the session goroutine to exit and is safe to call
// more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() { close(s.quit) })
	<-s.done
}
