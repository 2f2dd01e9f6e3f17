package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/DonQuixuote/shape-tcg/internal/engine"
	"github.com/DonQuixuote/shape-tcg/internal/game"
	"github.com/DonQuixuote/shape-tcg/internal/keys"
	"github.com/DonQuixuote/shape-tcg/internal/storage"
)

var (
	ErrDeckTooLarge      = errors.New("a deck holds at most 3 cards")
	ErrDeckCardsNotOwned = errors.New("every deck card must belong to the deck owner")
	ErrDeckNameRequired  = errors.New("deck name is required")
	ErrDeckNotOwned      = errors.New("deck does not belong to owner")
)

// DeckRepo is the repository surface deck rules use.
type DeckRepo interface {
	GetCardsByIDs(owner string, ids []string) ([]game.Card, error)
	GetDeck(id string) (*game.Deck, error)
	SaveDeck(d *game.Deck) error
	SetActiveDeck(owner, id string) error
	DeleteDeck(id string) error
}

// SaveDeck creates a deck, or replaces one when deckID is set. Card ids are
// de-duplicated, must number at most three and all belong to owner.
func SaveDeck(repo DeckRepo, owner, deckID, name string, cardIDs []string) (*game.Deck, error) {
	owner = keys.Owner(owner)
	if owner == "" {
		return nil, ErrInvalidOwner
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrDeckNameRequired
	}
	ids := uniqueIDs(cardIDs)
	if len(ids) > engine.RosterSize {
		return nil, ErrDeckTooLarge
	}
	cards, err := repo.GetCardsByIDs(owner, ids)
	if err != nil {
		return nil, err
	}
	if len(cards) != len(ids) {
		return nil, ErrDeckCardsNotOwned
	}

	d := &game.Deck{ID: deckID, OwnerAddress: owner}
	if deckID != "" {
		existing, err := repo.GetDeck(deckID)
		if err != nil {
			return nil, err
		}
		if existing.OwnerAddress != owner {
			return nil, ErrDeckNotOwned
		}
		d = existing
	} else {
		d.ID = uuid.NewString()
	}
	d.Name = name
	d.Cards = cards
	if err := repo.SaveDeck(d); err != nil {
		return nil, fmt.Errorf("save deck: %w", err)
	}
	return d, nil
}

func ActivateDeck(repo DeckRepo, owner, deckID string) error {
	if err := checkDeckOwner(repo, owner, deckID); err != nil {
		return err
	}
	return repo.SetActiveDeck(owner, deckID)
}

func DeleteDeck(repo DeckRepo, owner, deckID string) error {
	if err := checkDeckOwner(repo, owner, deckID); err != nil {
		return err
	}
	return repo.DeleteDeck(deckID)
}

func checkDeckOwner(repo DeckRepo, owner, deckID string) error {
	d, err := repo.GetDeck(deckID)
	if err != nil {
		return err
	}
	if d.OwnerAddress != keys.Owner(owner) {
		return ErrDeckNotOwned
	}
	return nil
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// compile-time check that the sqlite repository serves deck rules
var _ DeckRepo = storage.Repository(nil)
