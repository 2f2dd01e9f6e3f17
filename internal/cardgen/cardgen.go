// Package cardgen derives card stats from NFT identity and player grade.
package cardgen

import (
	"fmt"
	"math"
	"math/big"
	"math/rand"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/DonQuixuote/shape-tcg/internal/constants"
	"github.com/DonQuixuote/shape-tcg/internal/game"
)

// Stats are the combat numbers of a card.
type Stats struct {
	Power   int `json:"power"`
	Health  int `json:"health"`
	Defense int `json:"defense"`
}

var multipliers = map[game.Grade]float64{
	game.GradeS:        1.1,
	game.GradeA:        1.075,
	game.GradeB:        1.05,
	game.GradeC:        1.025,
	game.GradeD:        1.0,
	game.GradeUngraded: 1.0,
}

// Multiplier returns the stat boost of a grade. Unknown grades are treated
// as ungraded.
func Multiplier(g game.Grade) float64 {
	if m, ok := multipliers[g]; ok {
		return m
	}
	return 1.0
}

// BaseStats derives pre-boost stats from the token id and contract address.
// Power and defense land in [0,10], health in [1,30].
func BaseStats(tokenID, contractAddress string) Stats {
	seed1 := tokenSeed(tokenID)
	tail := contractAddress
	if len(tail) > 8 {
		tail = tail[len(tail)-8:]
	}
	seed2 := 0
	for i := 0; i < len(tail); i++ {
		seed2 += int(tail[i])
	}
	return Stats{
		Power:   mod(seed1*7, 11),
		Health:  1 + mod(seed2*11, 30),
		Defense: mod((seed1+seed2)*13, 11),
	}
}

// ApplyGrade scales base stats by the grade multiplier, flooring each stat.
func ApplyGrade(s Stats, g game.Grade) Stats {
	m := Multiplier(g)
	return Stats{
		Power:   int(math.Floor(float64(s.Power) * m)),
		Health:  int(math.Floor(float64(s.Health) * m)),
		Defense: int(math.Floor(float64(s.Defense) * m)),
	}
}

// GradeByRank maps a leaderboard rank to a grade. Zero or negative ranks
// mean unranked.
func GradeByRank(rank int) game.Grade {
	switch {
	case rank <= 0:
		return game.GradeUngraded
	case rank <= 10:
		return game.GradeS
	case rank <= 25:
		return game.GradeA
	case rank <= 50:
		return game.GradeB
	case rank <= 100:
		return game.GradeC
	case rank <= 250:
		return game.GradeD
	}
	return game.GradeUngraded
}

// tokenSeed parses the leading decimal digits of s, ignoring surrounding
// space, and returns the value mod 11. The token number only enters the
// stat formulas mod 11, so ids of any length keep their exact residue.
// Strings without leading digits, and zero, seed as 1.
func tokenSeed(s string) int {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, ok := new(big.Int).SetString(s[:end], 10)
	if !ok || n.Sign() == 0 {
		return 1
	}
	return int(n.Mod(n, big.NewInt(11)).Int64())
}

func mod(a, m int) int {
	r := a % m
	if r < 0 {
		r += m
	}
	return r
}

// Generator builds cards. Its random source is guarded so one generator may
// serve concurrent requests.
type Generator struct {
	mu    sync.Mutex
	rng   *rand.Rand
	newID func() string
}

func NewGenerator(rng *rand.Rand) *Generator {
	return &Generator{rng: rng, newID: uuid.NewString}
}

func (g *Generator) intn(n int) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rng.Intn(n)
}

// holographic is a 10% roll.
func (g *Generator) holographic() bool { return g.intn(10) == 0 }

// Generate turns an NFT into a card for owner. A blank skill is left blank;
// callers fill it from the skill collaborator.
func (g *Generator) Generate(nft game.NFT, grade game.Grade, owner, skill string) game.Card {
	if !grade.Valid() {
		grade = game.GradeUngraded
	}
	stats := ApplyGrade(BaseStats(nft.TokenID, nft.ContractAddress), grade)
	return game.Card{
		ID:                 g.newID(),
		OwnerAddress:       owner,
		Name:               nft.Name,
		NFTTokenID:         nft.TokenID,
		NFTContractAddress: nft.ContractAddress,
		NFTImage:           nft.Image,
		Grade:              grade,
		Power:              stats.Power,
		Health:             stats.Health,
		Defense:            stats.Defense,
		Skill:              skill,
		IsHolographic:      g.holographic(),
	}
}

var rarities = []game.Rarity{game.RarityCommon, game.RarityRare, game.RarityEpic, game.RarityLegendary}

// Fallback forges a synthetic card for an opponent slot that could not be
// generated from an NFT. index is zero-based.
func (g *Generator) Fallback(opponent string, index int) game.Card {
	return game.Card{
		ID:            g.newID(),
		OwnerAddress:  constants.OwnerAIOpponent,
		Name:          fmt.Sprintf("%s's Champion #%d", opponent, index+1),
		NFTTokenID:    fmt.Sprintf("mock-%d", index),
		Grade:         game.GradeUngraded,
		Rarity:        rarities[g.intn(len(rarities))],
		Power:         g.intn(11),
		Health:        1 + g.intn(30),
		Defense:       g.intn(11),
		Skill:         fmt.Sprintf("%s's special ability that enhances combat effectiveness", opponent),
		IsHolographic: g.holographic(),
	}
}
