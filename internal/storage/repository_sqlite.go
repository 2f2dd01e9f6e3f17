package storage

import (
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/DonQuixuote/shape-tcg/internal/game"
	"github.com/DonQuixuote/shape-tcg/internal/keys"
)

type sqliteRepository struct {
	db *gorm.DB
}

func NewSQLiteRepository(db *gorm.DB) Repository {
	return &sqliteRepository{db: db}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// --- Cards -------------------------------------------------------------

func (r *sqliteRepository) ListCards(owner string) ([]game.Card, error) {
	var cards []game.Card
	if err := r.db.Where("owner_address = ?", keys.Owner(owner)).Order("created_at asc").Find(&cards).Error; err != nil {
		return nil, err
	}
	return cards, nil
}

func (r *sqliteRepository) GetCard(id string) (*game.Card, error) {
	var c game.Card
	if err := r.db.Where("id = ?", id).First(&c).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (r *sqliteRepository) GetCardsByIDs(owner string, ids []string) ([]game.Card, error) {
	if len(ids) == 0 {
		return []game.Card{}, nil
	}
	var found []game.Card
	if err := r.db.Where("owner_address = ? AND id IN ?", keys.Owner(owner), ids).Find(&found).Error; err != nil {
		return nil, err
	}
	byID := make(map[string]game.Card, len(found))
	for _, c := range found {
		byID[c.ID] = c
	}
	out := make([]game.Card, 0, len(ids))
	for _, id := range ids {
		if c, ok := byID[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *sqliteRepository) SaveCard(c *game.Card) error {
	c.OwnerAddress = keys.Owner(c.OwnerAddress)
	c.NFTContractAddress = strings.ToLower(strings.TrimSpace(c.NFTContractAddress))
	return r.db.Save(c).Error
}

// DeleteCard removes a card and drops it from any deck.
func (r *sqliteRepository) DeleteCard(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM deck_cards WHERE card_id = ?", id).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&game.Card{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (r *sqliteRepository) IsNFTUsed(owner, contractAddress, tokenID string) (bool, error) {
	var count int64
	err := r.db.Model(&game.Card{}).
		Where("owner_address = ? AND nft_contract_address = ? AND nft_token_id = ?",
			keys.Owner(owner), strings.ToLower(strings.TrimSpace(contractAddress)), strings.TrimSpace(tokenID)).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// --- Decks -------------------------------------------------------------

func (r *sqliteRepository) ListDecks(owner string) ([]game.Deck, error) {
	var decks []game.Deck
	if err := r.db.Preload("Cards").Where("owner_address = ?", keys.Owner(owner)).Order("created_at asc").Find(&decks).Error; err != nil {
		return nil, err
	}
	return decks, nil
}

func (r *sqliteRepository) GetDeck(id string) (*game.Deck, error) {
	var d game.Deck
	if err := r.db.Preload("Cards").Where("id = ?", id).First(&d).Error; err != nil {
		return nil, notFound(err)
	}
	return &d, nil
}

func (r *sqliteRepository) GetActiveDeck(owner string) (*game.Deck, error) {
	var d game.Deck
	if err := r.db.Preload("Cards").Where("owner_address = ? AND is_active = ?", keys.Owner(owner), true).First(&d).Error; err != nil {
		return nil, notFound(err)
	}
	return &d, nil
}

func (r *sqliteRepository) SaveDeck(d *game.Deck) error {
	d.OwnerAddress = keys.Owner(d.OwnerAddress)
	return r.db.Transaction(func(tx *gorm.DB) error {
		cards := d.Cards
		if err := tx.Omit(clause.Associations).Save(d).Error; err != nil {
			return err
		}
		if err := tx.Model(d).Association("Cards").Replace(cards); err != nil {
			return err
		}
		d.Cards = cards
		return nil
	})
}

func (r *sqliteRepository) SetActiveDeck(owner, id string) error {
	owner = keys.Owner(owner)
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&game.Deck{}).Where("owner_address = ?", owner).Update("is_active", false).Error; err != nil {
			return err
		}
		res := tx.Model(&game.Deck{}).Where("owner_address = ? AND id = ?", owner, id).Update("is_active", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (r *sqliteRepository) DeleteDeck(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM deck_cards WHERE deck_id = ?", id).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&game.Deck{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// --- Skill cache -------------------------------------------------------

func (r *sqliteRepository) GetSkill(key string) (string, error) {
	var e game.SkillCacheEntry
	if err := r.db.Where("cache_key = ?", key).First(&e).Error; err != nil {
		return "", notFound(err)
	}
	return e.Skill, nil
}

// SaveSkill upserts by key so concurrent writers do not trip the unique index.
func (r *sqliteRepository) SaveSkill(key, skill string) error {
	e := game.SkillCacheEntry{Key: key, Skill: skill}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "cache_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"skill", "updated_at"}),
	}).Create(&e).Error
}

// --- Battles -----------------------------------------------------------

func (r *sqliteRepository) SaveBattle(rec *game.BattleRecord) error {
	rec.OwnerAddress = keys.Owner(rec.OwnerAddress)
	return r.db.Create(rec).Error
}

func (r *sqliteRepository) ListBattles(owner string, limit int) ([]game.BattleRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	var recs []game.BattleRecord
	if err := r.db.Where("owner_address = ?", keys.Owner(owner)).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}

const statsSelect = "owner_address, COUNT(*) AS played, " +
	"SUM(CASE WHEN winner = 'player' THEN 1 ELSE 0 END) AS wins, " +
	"SUM(CASE WHEN winner = 'ai' THEN 1 ELSE 0 END) AS losses"

func (r *sqliteRepository) GetStats(owner string) (*game.OwnerStats, error) {
	owner = keys.Owner(owner)
	var rows []game.OwnerStats
	if err := r.db.Model(&game.BattleRecord{}).
		Select(statsSelect).
		Where("owner_address = ?", owner).
		Group("owner_address").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return &game.OwnerStats{OwnerAddress: owner}, nil
	}
	return &rows[0], nil
}

// TopOwners returns top N owners ordered by wins desc, then battles played desc.
func (r *sqliteRepository) TopOwners(limit int) ([]game.OwnerStats, error) {
	if limit <= 0 {
		limit = 10
	}
	var rows []game.OwnerStats
	if err := r.db.Model(&game.BattleRecord{}).
		Select(statsSelect).
		Group("owner_address").
		Order("wins DESC").
		Order("played DESC").
		Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
