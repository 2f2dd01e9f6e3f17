package service

import (
	"fmt"
	"math"
	"sort"

	"github.com/DonQuixuote/shape-tcg/internal/engine"
	"github.com/DonQuixuote/shape-tcg/internal/game"
)

// topCardCount is how many cards CollectionAnalysis.TopCards lists.
const topCardCount = 5

type CollectionStats struct {
	Total       int                `json:"total"`
	AvgPower    int                `json:"avg_power"`
	AvgDefense  int                `json:"avg_defense"`
	AvgHealth   int                `json:"avg_health"`
	Holographic int                `json:"holographic"`
	Grades      map[game.Grade]int `json:"grades"`
}

type CardSummary struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Power         int        `json:"power"`
	Defense       int        `json:"defense"`
	Health        int        `json:"health"`
	Grade         game.Grade `json:"grade"`
	IsHolographic bool       `json:"is_holographic"`
}

// DeckSuggestion is a ready-made roster built from the collection.
type DeckSuggestion struct {
	Name     string   `json:"name"`
	CardIDs  []string `json:"card_ids"`
	Cards    []string `json:"cards"`
	Strategy string   `json:"strategy"`
}

type CollectionAnalysis struct {
	Summary         string           `json:"summary"`
	Stats           CollectionStats  `json:"stats"`
	Recommendations []string         `json:"recommendations"`
	BestDecks       []DeckSuggestion `json:"best_decks"`
	TopCards        []CardSummary    `json:"top_cards"`
}

// AnalyzeCollection summarises an owner's cards, suggests improvements and
// proposes three-card decks. It does not modify cards.
func AnalyzeCollection(cards []game.Card) CollectionAnalysis {
	if len(cards) == 0 {
		return CollectionAnalysis{
			Summary:         "No cards in collection",
			Stats:           CollectionStats{Grades: map[game.Grade]int{}},
			Recommendations: []string{"Generate some cards from your NFTs to start building decks!"},
			BestDecks:       []DeckSuggestion{},
			TopCards:        []CardSummary{},
		}
	}

	stats := collectionStats(cards)
	top := sortedBy(cards, totalStats)
	if len(top) > topCardCount {
		top = top[:topCardCount]
	}
	summaries := make([]CardSummary, 0, len(top))
	for _, c := range top {
		summaries = append(summaries, CardSummary{
			ID: c.ID, Name: c.Name, Power: c.Power, Defense: c.Defense, Health: c.Health,
			Grade: c.Grade, IsHolographic: c.IsHolographic,
		})
	}

	return CollectionAnalysis{
		Summary:         fmt.Sprintf("Collection of %d cards with %d holographic cards", stats.Total, stats.Holographic),
		Stats:           stats,
		Recommendations: recommendations(stats),
		BestDecks:       suggestDecks(cards),
		TopCards:        summaries,
	}
}

func collectionStats(cards []game.Card) CollectionStats {
	s := CollectionStats{Total: len(cards), Grades: map[game.Grade]int{}}
	var power, defense, health int
	for _, c := range cards {
		power += c.Power
		defense += c.Defense
		health += c.Health
		if c.IsHolographic {
			s.Holographic++
		}
		s.Grades[c.Grade]++
	}
	n := float64(len(cards))
	s.AvgPower = int(math.Round(float64(power) / n))
	s.AvgDefense = int(math.Round(float64(defense) / n))
	s.AvgHealth = int(math.Round(float64(health) / n))
	return s
}

func recommendations(s CollectionStats) []string {
	out := []string{}
	if s.AvgPower < 5 {
		out = append(out, "Consider generating more cards to find higher attack options for aggressive strategies")
	}
	if s.AvgDefense < 4 {
		out = append(out, "Look for cards with better defense to create tanky, sustainable decks")
	}
	if s.Holographic == 0 {
		out = append(out, "Keep generating cards - holographic cards have enhanced stats and special effects!")
	}
	if s.Total < 6 {
		out = append(out, "Build up your collection to have more deck building options - aim for at least 6-9 cards")
	}
	if s.Grades[game.GradeS]+s.Grades[game.GradeA] < 2 {
		out = append(out, "Focus on generating S and A grade cards for maximum competitive advantage")
	}
	return out
}

func suggestDecks(cards []game.Card) []DeckSuggestion {
	if len(cards) < engine.RosterSize {
		return []DeckSuggestion{deck("Starter Deck", cards, "Generate more cards to build complete 3-card decks")}
	}
	return []DeckSuggestion{
		deck("Aggressive Rush",
			sortedBy(cards, func(c game.Card) int { return c.Power })[:engine.RosterSize],
			"High attack cards for quick eliminations. Focus on dealing maximum damage early."),
		deck("Tank Defense",
			sortedBy(cards, func(c game.Card) int { return c.Defense + c.Health })[:engine.RosterSize],
			"High defense and health for sustained battles. Outlast opponents through durability."),
		deck("Balanced Core",
			sortedBy(cards, totalStats)[:engine.RosterSize],
			"Well-rounded stats for versatile gameplay. Adapts to different opponent strategies."),
	}
}

func deck(name string, cards []game.Card, strategy string) DeckSuggestion {
	d := DeckSuggestion{Name: name, CardIDs: make([]string, 0, len(cards)), Cards: make([]string, 0, len(cards)), Strategy: strategy}
	for _, c := range cards {
		d.CardIDs = append(d.CardIDs, c.ID)
		d.Cards = append(d.Cards, c.Name)
	}
	return d
}

func totalStats(c game.Card) int { return c.Power + c.Defense + c.Health }

// sortedBy returns a copy ordered by score, highest first. Ties keep
// collection order.
func sortedBy(cards []game.Card, score func(game.Card) int) []game.Card {
	out := append([]game.Card(nil), cards...)
	sort.SliceStable(out, func(i, j int) bool { return score(out[i]) > score(out[j]) })
	return out
}
