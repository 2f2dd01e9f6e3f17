package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/DonQuixuote/shape-tcg/internal/cardgen"
	"github.com/DonQuixuote/shape-tcg/internal/constants"
	"github.com/DonQuixuote/shape-tcg/internal/game"
	"github.com/DonQuixuote/shape-tcg/internal/keys"
	"github.com/DonQuixuote/shape-tcg/internal/logging"
	"github.com/DonQuixuote/shape-tcg/internal/opponent"
	"github.com/DonQuixuote/shape-tcg/internal/skillgen"
	"github.com/DonQuixuote/shape-tcg/internal/storage"
)

var (
	ErrNFTAlreadyUsed = errors.New("nft already converted into a card")
	ErrInvalidNFT     = errors.New("nft contract address and token id are required")
)

// CardStore is the part of the repository minting needs.
type CardStore interface {
	IsNFTUsed(owner, contractAddress, tokenID string) (bool, error)
	SaveCard(c *game.Card) error
}

// RankLookup finds an owner on the leaderboard.
type RankLookup interface {
	Lookup(ctx context.Context, address string) (opponent.Entry, bool, error)
}

// SkillSource never fails; it falls back to stat-based text.
type SkillSource interface {
	SkillOrFallback(ctx context.Context, req skillgen.Request) (string, string)
}

// Minter turns an owner's NFTs into collection cards.
type Minter struct {
	store  CardStore
	gen    *cardgen.Generator
	skills SkillSource
	ranks  RankLookup
}

func NewMinter(store CardStore, gen *cardgen.Generator, skills SkillSource, ranks RankLookup) *Minter {
	return &Minter{store: store, gen: gen, skills: skills, ranks: ranks}
}

// MintCard creates and saves the card for nft. A positive rank sets the
// grade directly; otherwise the owner's leaderboard rank is looked up. An
// owner can mint each NFT once.
func (m *Minter) MintCard(ctx context.Context, owner string, nft game.NFT, rank int) (*game.Card, error) {
	owner = keys.Owner(owner)
	if owner == "" {
		return nil, ErrInvalidOwner
	}
	if keys.NFTKey(nft.ContractAddress, nft.TokenID) == "" {
		return nil, ErrInvalidNFT
	}
	nft.ContractAddress = strings.ToLower(strings.TrimSpace(nft.ContractAddress))
	nft.TokenID = strings.TrimSpace(nft.TokenID)
	if strings.TrimSpace(nft.Name) == "" {
		nft.Name = "NFT #" + nft.TokenID
	}

	used, err := m.store.IsNFTUsed(owner, nft.ContractAddress, nft.TokenID)
	if err != nil {
		return nil, err
	}
	if used {
		return nil, ErrNFTAlreadyUsed
	}

	grade := m.grade(ctx, owner, rank)
	c := m.gen.Generate(nft, grade, owner, "")
	source := ""
	if m.skills != nil {
		c.Skill, source = m.skills.SkillOrFallback(ctx, skillgen.Request{
			Name:            nft.Name,
			TokenID:         nft.TokenID,
			ContractAddress: nft.ContractAddress,
			Grade:           grade,
			Stats:           cardgen.Stats{Power: c.Power, Health: c.Health, Defense: c.Defense},
		})
	} else {
		c.Skill = skillgen.Fallback(cardgen.Stats{Power: c.Power, Health: c.Health, Defense: c.Defense})
	}

	if err := m.store.SaveCard(&c); err != nil {
		return nil, fmt.Errorf("save card: %w", err)
	}
	logging.Info("card minted", logging.Fields{
		constants.LogFieldOwner:  owner,
		constants.LogFieldCardID: c.ID,
		constants.LogFieldKey:    keys.NFTKey(nft.ContractAddress, nft.TokenID),
		constants.LogFieldSource: source,
		"grade":                  grade,
	})
	return &c, nil
}

func (m *Minter) grade(ctx context.Context, owner string, rank int) game.Grade {
	if rank > 0 || m.ranks == nil {
		return cardgen.GradeByRank(rank)
	}
	e, ok, err := m.ranks.Lookup(ctx, owner)
	if err != nil {
		logging.Warn("rank lookup failed; minting ungraded", err, logging.Fields{constants.LogFieldOwner: owner})
		return game.GradeUngraded
	}
	if !ok {
		return game.GradeUngraded
	}
	return cardgen.GradeByRank(e.Rank)
}

// ErrCardNotOwned is returned when an owner acts on someone else's card.
var ErrCardNotOwned = errors.New("card does not belong to owner")

// DeleteCard removes one of owner's cards from the collection and from any
// deck holding it.
func DeleteCard(repo storage.CardRepository, owner, cardID string) error {
	c, err := repo.GetCard(cardID)
	if err != nil {
		return err
	}
	if c.OwnerAddress != keys.Owner(owner) {
		return ErrCardNotOwned
	}
	return repo.DeleteCard(cardID)
}
