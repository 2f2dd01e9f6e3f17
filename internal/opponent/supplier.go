package opponent

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"sync"

	"github.com/DonQuixuote/shape-tcg/internal/cardgen"
	"github.com/DonQuixuote/shape-tcg/internal/constants"
	"github.com/DonQuixuote/shape-tcg/internal/game"
	"github.com/DonQuixuote/shape-tcg/internal/logging"
	"github.com/DonQuixuote/shape-tcg/internal/skillgen"
)

// DefaultContracts are the collections opponent NFTs are drawn from.
var DefaultContracts = []string{
	"0xdad1276ecd6d27116da400b33c81ce49d91d5831",
	"0xf2e4b2a15872a20d0ffb336a89b94ba782ce9ba5",
	"0xadede2a59b46ef9815e349464ea14d40195d4a2b",
	"0x72fe3c398c9a030b9b2be1fe1ff07701167571d4",
	"0xba86baef2396e39d880bb4b4b751b99956ab9351",
}

// DefaultFallbackNames are used when the leaderboard is empty.
var DefaultFallbackNames = []string{"CryptoWarrior", "NFTMaster", "ShapeChampion", "BlockchainHero", "DigitalLegend"}

var ErrNoContracts = errors.New("no opponent contracts configured")

// Entries lists ranked players. *Leaderboard satisfies it.
type Entries interface {
	Entries(ctx context.Context) ([]Entry, error)
}

// NFTSource picks the NFT an opponent card is generated from.
type NFTSource interface {
	RandomNFT(ctx context.Context, opponent string) (game.NFT, error)
}

// Skills fills in card skill text. *skillgen.Generator satisfies it.
type Skills interface {
	SkillOrFallback(ctx context.Context, req skillgen.Request) (string, string)
}

type Config struct {
	TopN          int
	FallbackNames []string
	Grades        []game.Grade
}

// Supplier implements opponent acquisition. Its random source is guarded so
// battles may start concurrently.
type Supplier struct {
	board  Entries
	nfts   NFTSource
	cards  *cardgen.Generator
	skills Skills
	cfg    Config

	mu  sync.Mutex
	rng *rand.Rand
}

func NewSupplier(board Entries, nfts NFTSource, cards *cardgen.Generator, skills Skills, cfg Config, rng *rand.Rand) *Supplier {
	if cfg.TopN < 1 {
		cfg.TopN = 50
	}
	if len(cfg.FallbackNames) == 0 {
		cfg.FallbackNames = DefaultFallbackNames
	}
	if len(cfg.Grades) == 0 {
		cfg.Grades = game.Grades
	}
	return &Supplier{board: board, nfts: nfts, cards: cards, skills: skills, cfg: cfg, rng: rng}
}

func (s *Supplier) intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(n)
}

// OpponentName picks a player uniformly among the top of the leaderboard.
// An empty leaderboard yields one of the fallback names; fetch errors are
// returned so the caller can retry or substitute.
func (s *Supplier) OpponentName(ctx context.Context) (string, error) {
	entries, err := s.board.Entries(ctx)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return s.cfg.FallbackNames[s.intn(len(s.cfg.FallbackNames))], nil
	}
	top := entries
	if len(top) > s.cfg.TopN {
		top = top[:s.cfg.TopN]
	}
	return top[s.intn(len(top))].Username, nil
}

// OpponentCards generates n cards for the opponent. A slot whose NFT cannot
// be obtained is padded with a synthetic fallback card, so n cards are
// always returned unless ctx is done.
func (s *Supplier) OpponentCards(ctx context.Context, name string, n int) ([]game.Card, error) {
	out := make([]game.Card, 0, n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c, err := s.forge(ctx, name)
		if err != nil {
			logging.Warn("opponent card padded with fallback", err, logging.Fields{constants.LogFieldOpponent: name, "slot": i})
			c = s.cards.Fallback(name, i)
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *Supplier) forge(ctx context.Context, name string) (game.Card, error) {
	nft, err := s.nfts.RandomNFT(ctx, name)
	if err != nil {
		return game.Card{}, err
	}
	grade := s.cfg.Grades[s.intn(len(s.cfg.Grades))]
	c := s.cards.Generate(nft, grade, constants.OwnerAIOpponent, "")
	if s.skills != nil {
		c.Skill, _ = s.skills.SkillOrFallback(ctx, skillgen.Request{
			Name:            nft.Name,
			TokenID:         nft.TokenID,
			ContractAddress: nft.ContractAddress,
			Grade:           grade,
			Stats:           cardgen.Stats{Power: c.Power, Health: c.Health, Defense: c.Defense},
		})
	}
	return c, nil
}

// ContractSource draws a random token id in [1,10000] from one of the
// configured contracts.
type ContractSource struct {
	contracts []string

	mu  sync.Mutex
	rng *rand.Rand
}

func NewContractSource(contracts []string, rng *rand.Rand) *ContractSource {
	return &ContractSource{contracts: contracts, rng: rng}
}

func (c *ContractSource) RandomNFT(_ context.Context, opponent string) (game.NFT, error) {
	if len(c.contracts) == 0 {
		return game.NFT{}, ErrNoContracts
	}
	c.mu.Lock()
	contract := c.contracts[c.rng.Intn(len(c.contracts))]
	token := strconv.Itoa(c.rng.Intn(10000) + 1)
	c.mu.Unlock()
	return game.NFT{
		TokenID:         token,
		ContractAddress: contract,
		Name:            fmt.Sprintf("%s's NFT #%s", opponent, token),
		Image:           fmt.Sprintf("https://shapescan.xyz/nft/%s/%s/image", contract, token),
	}, nil
}
