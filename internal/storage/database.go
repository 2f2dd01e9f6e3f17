package storage

import (
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/DonQuixuote/shape-tcg/internal/game"
	"github.com/DonQuixuote/shape-tcg/internal/logging"
)

func OpenAndMigrate(dataSourceName string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dataSourceName), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// every pooled connection to ":memory:" would open its own empty database
	if strings.Contains(dataSourceName, ":memory:") {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	err = db.AutoMigrate(&game.Card{}, &game.Deck{}, &game.BattleRecord{}, &game.SkillCacheEntry{})
	if err != nil {
		return nil, err
	}

	// An owner may turn each NFT into a card only once. Synthetic cards have
	// no contract and are exempt.
	if execErr := db.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_collection_cards_owner_nft ON collection_cards(owner_address, nft_contract_address, nft_token_id) WHERE nft_contract_address != '';").Error; execErr != nil {
		return nil, execErr
	}
	logging.Debug("database migrated", logging.Fields{"dsn": dataSourceName})
	return db, nil
}
