package storage

import (
	"errors"

	"github.com/DonQuixuote/shape-tcg/internal/game"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("record not found")

// CardRepository persists an owner's card collection. Owner addresses are
// compared case-insensitively.
type CardRepository interface {
	ListCards(owner string) ([]game.Card, error)
	GetCard(id string) (*game.Card, error)
	// GetCardsByIDs returns the owner's cards among ids, in the order given.
	// Unknown or foreign ids are skipped.
	GetCardsByIDs(owner string, ids []string) ([]game.Card, error)
	SaveCard(c *game.Card) error
	DeleteCard(id string) error
	IsNFTUsed(owner, contractAddress, tokenID string) (bool, error)
}

type DeckRepository interface {
	ListDecks(owner string) ([]game.Deck, error)
	GetDeck(id string) (*game.Deck, error)
	GetActiveDeck(owner string) (*game.Deck, error)
	// SaveDeck creates or updates a deck and replaces its card list.
	SaveDeck(d *game.Deck) error
	// SetActiveDeck activates one deck and deactivates the owner's others.
	SetActiveDeck(owner, id string) error
	DeleteDeck(id string) error
}

// SkillCache stores generated skill text by cache key.
type SkillCache interface {
	GetSkill(key string) (string, error)
	SaveSkill(key, skill string) error
}

type BattleRepository interface {
	SaveBattle(rec *game.BattleRecord) error
	ListBattles(owner string, limit int) ([]game.BattleRecord, error)
	GetStats(owner string) (*game.OwnerStats, error)
	// TopOwners ranks owners by wins, then battles played.
	TopOwners(limit int) ([]game.OwnerStats, error)
}

type Repository interface {
	CardRepository
	DeckRepository
	SkillCache
	BattleRepository
}
