package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/DonQuixuote/shape-tcg/internal/clock"
	"github.com/DonQuixuote/shape-tcg/internal/constants"
	"github.com/DonQuixuote/shape-tcg/internal/engine"
	"github.com/DonQuixuote/shape-tcg/internal/game"
	"github.com/DonQuixuote/shape-tcg/internal/keys"
	"github.com/DonQuixuote/shape-tcg/internal/logging"
	"github.com/DonQuixuote/shape-tcg/internal/storage"
)

var (
	ErrBattleNotFound      = errors.New("battle not found")
	ErrOpponentUnavailable = errors.New("could not find an opponent")
	ErrRosterInvalid       = errors.New("a battle needs exactly 3 of your cards")
	ErrInvalidOwner        = errors.New("owner address is required")
)

// DefaultOpponentName is used when the leaderboard cannot be reached twice
// in a row.
const DefaultOpponentName = "Anonymous Challenger"

// Roster resolves the cards a player brings into battle.
type Roster interface {
	GetCardsByIDs(owner string, ids []string) ([]game.Card, error)
	GetActiveDeck(owner string) (*game.Deck, error)
}

// Opponents is the opponent supplier boundary.
type Opponents interface {
	OpponentName(ctx context.Context) (string, error)
	OpponentCards(ctx context.Context, name string, n int) ([]game.Card, error)
}

type ManagerConfig struct {
	Rules       engine.Rules
	SettleDelay time.Duration
	// Retention is how long a finished battle stays readable before Reap
	// drops it.
	Retention    time.Duration
	FallbackName string
}

// Manager owns every live battle session.
type Manager struct {
	cfg       ManagerConfig
	roster    Roster
	opponents Opponents
	recorder  Recorder
	clock     clock.Clock
	newID     func() string

	rngMu sync.Mutex
	rng   *rand.Rand

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager(cfg ManagerConfig, roster Roster, opponents Opponents, recorder Recorder, c clock.Clock, rng *rand.Rand) *Manager {
	if cfg.FallbackName == "" {
		cfg.FallbackName = DefaultOpponentName
	}
	if c == nil {
		c = clock.Real{}
	}
	return &Manager{
		cfg:       cfg,
		roster:    roster,
		opponents: opponents,
		recorder:  recorder,
		clock:     c,
		newID:     uuid.NewString,
		rng:       rng,
		sessions:  map[string]*Session{},
	}
}

// picker gives each battle its own random source so sessions never share
// one across goroutines.
func (m *Manager) picker() engine.Picker {
	m.rngMu.Lock()
	seed := m.rng.Int63()
	m.rngMu.Unlock()
	return engine.NewRandomPicker(rand.New(rand.NewSource(seed)))
}

// Start sets up a battle for owner. cardIDs picks the roster explicitly;
// when empty the owner's active deck is used.
func (m *Manager) Start(ctx context.Context, owner string, cardIDs []string) (*Session, engine.State, error) {
	owner = keys.Owner(owner)
	if owner == "" {
		return nil, engine.State{}, ErrInvalidOwner
	}
	player, err := m.playerRoster(owner, cardIDs)
	if err != nil {
		return nil, engine.State{}, err
	}

	name, err := m.opponentName(ctx)
	if err != nil {
		return nil, engine.State{}, err
	}
	ai, err := m.opponents.OpponentCards(ctx, name, engine.RosterSize)
	if err != nil {
		if ctx.Err() != nil {
			return nil, engine.State{}, ctx.Err()
		}
		return nil, engine.State{}, fmt.Errorf("%w: %v", ErrOpponentUnavailable, err)
	}
	if len(ai) != engine.RosterSize {
		return nil, engine.State{}, fmt.Errorf("%w: got %d opponent cards", ErrOpponentUnavailable, len(ai))
	}

	s, err := startSession(sessionConfig{
		id:       m.newID(),
		owner:    owner,
		rules:    m.cfg.Rules,
		picker:   m.picker(),
		settle:   m.cfg.SettleDelay,
		clock:    m.clock,
		recorder: m.recorder,
	}, name, player, ai)
	if err != nil {
		if errors.Is(err, engine.ErrInvalidRoster) {
			return nil, engine.State{}, fmt.Errorf("%w: %w", ErrRosterInvalid, err)
		}
		return nil, engine.State{}, err
	}
	st, err := s.Snapshot()
	if err != nil {
		return nil, engine.State{}, err
	}

	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.mu.Unlock()

	logging.Info("battle started", logging.Fields{
		constants.LogFieldBattleID: s.ID(),
		constants.LogFieldOwner:    owner,
		constants.LogFieldOpponent: name,
	})
	return s, st, nil
}

func (m *Manager) playerRoster(owner string, cardIDs []string) ([]game.Card, error) {
	if len(cardIDs) > 0 {
		if len(cardIDs) != engine.RosterSize {
			return nil, fmt.Errorf("%w: got %d card ids", ErrRosterInvalid, len(cardIDs))
		}
		cards, err := m.roster.GetCardsByIDs(owner, cardIDs)
		if err != nil {
			return nil, err
		}
		if len(cards) != engine.RosterSize {
			return nil, fmt.Errorf("%w: only %d of the cards belong to %s", ErrRosterInvalid, len(cards), owner)
		}
		return cards, nil
	}
	deck, err := m.roster.GetActiveDeck(owner)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: no active deck", ErrRosterInvalid)
	}
	if err != nil {
		return nil, err
	}
	if len(deck.Cards) != engine.RosterSize {
		return nil, fmt.Errorf("%w: active deck %q has %d cards", ErrRosterInvalid, deck.Name, len(deck.Cards))
	}
	return deck.Cards, nil
}

// opponentName asks the supplier twice, then settles for the fallback name.
func (m *Manager) opponentName(ctx context.Context) (string, error) {
	for attempt := 1; attempt <= 2; attempt++ {
		name, err := m.opponents.OpponentName(ctx)
		if err == nil && strings.TrimSpace(name) != "" {
			return name, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		logging.Warn("opponent name lookup failed", err, logging.Fields{constants.LogFieldAttempt: attempt})
	}
	return m.cfg.FallbackName, nil
}

func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrBattleNotFound
	}
	return s, nil
}

func (m *Manager) Snapshot(id string) (engine.State, error) {
	s, err := m.Get(id)
	if err != nil {
		return engine.State{}, err
	}
	return s.Snapshot()
}

func (m *Manager) Select(id, cardID string) (engine.State, error) {
	s, err := m.Get(id)
	if err != nil {
		return engine.State{}, err
	}
	return s.Select(cardID)
}

// Close exits a battle and forgets it.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return ErrBattleNotFound
	}
	s.Close()
	return nil
}

// Reap drops battles that finished at least Retention before now and
// returns how many were removed.
func (m *Manager) Reap(now time.Time) int {
	m.mu.Lock()
	var stale []*Session
	for id, s := range m.sessions {
		if at, ok := s.FinishedAt(); ok && !now.Before(at.Add(m.cfg.Retention)) {
			stale = append(stale, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range stale {
		s.Close()
		logging.Debug("reaped finished battle", logging.Fields{constants.LogFieldBattleID: s.ID()})
	}
	return len(stale)
}

// Shutdown closes every session.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	all := make([]*Session, 0, len(m.sessions))
	for id, s := range m.sessions {
		all = append(all, s)
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	for _, s := range all {
		s.Close()
	}
}

// Len reports the number of tracked sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
