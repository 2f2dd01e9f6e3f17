package game

import (
	"time"

	"gorm.io/gorm"
)

// Side identifies one of the two parties in a battle.
type Side string

const (
	SideNone   Side = ""
	SidePlayer Side = "player"
	SideAI     Side = "ai"
)

// Phase is a battle engine state.
type Phase string

const (
	PhaseSetup         Phase = "setup"
	PhaseCardSelection Phase = "card-selection"
	PhaseCombat        Phase = "combat"
	PhaseResult        Phase = "result"
)

// ResultReason records how a battle reached its result.
type ResultReason string

const (
	ReasonNone        ResultReason = ""
	ReasonElimination ResultReason = "elimination"
	ReasonTimeout     ResultReason = "timeout"
)

// Rarity is cosmetic card metadata.
type Rarity string

const (
	RarityCommon    Rarity = "Common"
	RarityRare      Rarity = "Rare"
	RarityEpic      Rarity = "Epic"
	RarityLegendary Rarity = "Legendary"
)

// NFT describes the token a card was generated from.
type NFT struct {
	TokenID         string `json:"token_id"`
	ContractAddress string `json:"contract_address"`
	Name            string `json:"name"`
	Image           string `json:"image"`
}

// Card is the canonical combatant record shared by the collection, decks and
// the battle engine. Power and defense are in [0,10] and health in [1,30]
// before the grade boost is applied.
type Card struct {
	ID                 string    `json:"id" gorm:"primaryKey;size:128"`
	OwnerAddress       string    `json:"owner_address" gorm:"index;size:64"`
	Name               string    `json:"name"`
	NFTTokenID         string    `json:"nft_token_id" gorm:"index:idx_collection_cards_nft"`
	NFTContractAddress string    `json:"nft_contract_address" gorm:"index:idx_collection_cards_nft"`
	NFTImage           string    `json:"nft_image"`
	Grade              Grade     `json:"grade"`
	Rarity             Rarity    `json:"rarity,omitempty"`
	Power              int       `json:"power"`
	Health             int       `json:"health"`
	Defense            int       `json:"defense"`
	// Skill is display text only; no effect is applied in combat.
	Skill         string    `json:"skill"`
	IsHolographic bool      `json:"is_holographic"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Store the permanent collection in a dedicated table.
func (Card) TableName() string { return "collection_cards" }

// Deck is a named selection of up to three cards. One deck per owner may be
// active; it is used as the battle roster when no cards are given explicitly.
type Deck struct {
	ID           string    `json:"id" gorm:"primaryKey;size:64"`
	OwnerAddress string    `json:"owner_address" gorm:"index;size:64"`
	Name         string    `json:"name" gorm:"size:64"`
	IsActive     bool      `json:"is_active"`
	Cards        []Card    `json:"cards" gorm:"many2many:deck_cards;"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// BattleRecord is the persisted outcome of a finished battle.
type BattleRecord struct {
	gorm.Model
	BattleID     string       `json:"battle_id" gorm:"uniqueIndex;size:64"`
	OwnerAddress string       `json:"owner_address" gorm:"index;size:64"`
	OpponentName string       `json:"opponent_name"`
	Winner       Side         `json:"winner"`
	Reason       ResultReason `json:"reason"`
	Turns        int          `json:"turns"`
	PlayerHP     int          `json:"player_hp"`
	OpponentHP   int          `json:"opponent_hp"`
	// Log keeps the full combat log, one entry per line.
	Log string `json:"log"`
}

func (BattleRecord) TableName() string { return "battle_history" }

// SkillCacheEntry stores generated skill text keyed by the canonical NFT key
// so repeated minting of the same token does not call the model again.
type SkillCacheEntry struct {
	gorm.Model
	Key   string `gorm:"column:cache_key;uniqueIndex;size:160"`
	Skill string
}

func (SkillCacheEntry) TableName() string { return "skill_cache" }

// OwnerStats aggregates an owner's battle history.
type OwnerStats struct {
	OwnerAddress string `json:"owner_address"`
	Played       int    `json:"played"`
	Wins         int    `json:"wins"`
	Losses       int    `json:"losses"`
}
