package service

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DonQuixuote/shape-tcg/internal/cardgen"
	"github.com/DonQuixuote/shape-tcg/internal/game"
	"github.com/DonQuixuote/shape-tcg/internal/keys"
	"github.com/DonQuixuote/shape-tcg/internal/opponent"
	"github.com/DonQuixuote/shape-tcg/internal/skillgen"
)

type mockCardStore struct {
	used  map[string]bool
	saved []game.Card
}

func (m *mockCardStore) IsNFTUsed(owner, contract, token string) (bool, error) {
	return m.used[owner+"|"+keys.NFTKey(contract, token)], nil
}

func (m *mockCardStore) SaveCard(c *game.Card) error {
	m.saved = append(m.saved, *c)
	return nil
}

type mockSkills struct{ last skillgen.Request }

func (m *mockSkills) SkillOrFallback(_ context.Context, req skillgen.Request) (string, string) {
	m.last = req
	return "Ranker's Gift", skillgen.SourceModel
}

type mockRanks struct {
	entry opponent.Entry
	found bool
	err   error
}

func (m mockRanks) Lookup(context.Context, string) (opponent.Entry, bool, error) {
	return m.entry, m.found, m.err
}

var sampleNFT = game.NFT{TokenID: "42", ContractAddress: "0xDAD1b2C3d4E5f60718293A4B5c6D7E8F90125831", Name: "Shape Cat"}

func newMinter(store CardStore, skills SkillSource, ranks RankLookup) *Minter {
	return NewMinter(store, cardgen.NewGenerator(rand.New(rand.NewSource(1))), skills, ranks)
}

func TestMintCard_ExplicitRank(t *testing.T) {
	store := &mockCardStore{}
	skills := &mockSkills{}
	m := newMinter(store, skills, nil)

	c, err := m.MintCard(context.Background(), " 0xME ", sampleNFT, 5)
	require.NoError(t, err)
	// stats derive from the lower-cased contract
	want := cardgen.ApplyGrade(cardgen.BaseStats("42", strings.ToLower(sampleNFT.ContractAddress)), game.GradeS)
	assert.Equal(t, game.GradeS, c.Grade)
	assert.Equal(t, want, cardgen.Stats{Power: c.Power, Health: c.Health, Defense: c.Defense})
	assert.Equal(t, "0xme", c.OwnerAddress)
	assert.Equal(t, "Ranker's Gift", c.Skill)
	assert.Equal(t, want, skills.last.Stats)
	assert.Equal(t, game.GradeS, skills.last.Grade)
	require.Len(t, store.saved, 1)
	assert.Equal(t, c.ID, store.saved[0].ID)
	assert.Equal(t, strings.ToLower(sampleNFT.ContractAddress), c.NFTContractAddress)
}

func TestMintCard_GradeFromLeaderboard(t *testing.T) {
	cases := []struct {
		name  string
		ranks mockRanks
		want  game.Grade
	}{
		{"ranked", mockRanks{entry: opponent.Entry{Rank: 30}, found: true}, game.GradeB},
		{"unranked", mockRanks{}, game.GradeUngraded},
		{"lookup error", mockRanks{err: errors.New("down")}, game.GradeUngraded},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := newMinter(&mockCardStore{}, &mockSkills{}, tc.ranks)
			c, err := m.MintCard(context.Background(), "0xme", sampleNFT, 0)
			require.NoError(t, err)
			assert.Equal(t, tc.want, c.Grade)
		})
	}
}

func TestMintCard_Rejections(t *testing.T) {
	store := &mockCardStore{used: map[string]bool{"0xme|" + keys.NFTKey(sampleNFT.ContractAddress, "42"): true}}
	m := newMinter(store, &mockSkills{}, nil)

	_, err := m.MintCard(context.Background(), "0xme", sampleNFT, 1)
	assert.ErrorIs(t, err, ErrNFTAlreadyUsed)

	_, err = m.MintCard(context.Background(), "0xme", game.NFT{ContractAddress: "0xabc"}, 1)
	assert.ErrorIs(t, err, ErrInvalidNFT)

	_, err = m.MintCard(context.Background(), "", sampleNFT, 1)
	assert.ErrorIs(t, err, ErrInvalidOwner)
	assert.Empty(t, store.saved)
}

func TestMintCard_WithoutSkillSourceUsesFallback(t *testing.T) {
	m := newMinter(&mockCardStore{}, nil, nil)
	nft := sampleNFT
	nft.Name = ""
	c, err := m.MintCard(context.Background(), "0xme", nft, 300)
	require.NoError(t, err)
	assert.Equal(t, "NFT #42", c.Name)
	assert.Equal(t, game.GradeUngraded, c.Grade)
	assert.Equal(t, skillgen.Fallback(cardgen.Stats{Power: c.Power, Health: c.Health, Defense: c.Defense}), c.Skill)
}
