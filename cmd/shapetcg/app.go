package main

import (
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/oauth2/google"
	"gorm.io/gorm"

	"github.com/DonQuixuote/shape-tcg/internal/api"
	"github.com/DonQuixuote/shape-tcg/internal/cardgen"
	"github.com/DonQuixuote/shape-tcg/internal/clock"
	"github.com/DonQuixuote/shape-tcg/internal/config"
	"github.com/DonQuixuote/shape-tcg/internal/constants"
	"github.com/DonQuixuote/shape-tcg/internal/logging"
	"github.com/DonQuixuote/shape-tcg/internal/opponent"
	"github.com/DonQuixuote/shape-tcg/internal/service"
	"github.com/DonQuixuote/shape-tcg/internal/skillgen"
	"github.com/DonQuixuote/shape-tcg/internal/storage"
)

type app struct {
	db      *gorm.DB
	battles *service.Manager
	handler *api.Handler
}

func buildApp(ctx context.Context, cfg *config.Config) *app {
	db := openDatabaseOrExit(cfg.Env.DBPath)
	repo := storage.NewSQLiteRepository(db)

	seed := cfg.Battle.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	logging.Debug("random source seeded", logging.Fields{"seed": seed})

	skills := skillgen.New(skillOptions(ctx, cfg), repo)
	if !skills.Configured() {
		logging.Warn("no Gemini credentials; skills use stat-based text", nil, nil)
	}

	clk := clock.Real{}
	board := opponent.NewLeaderboard(cfg.Opponents.LeaderboardURL, cfg.Opponents.CacheTTL, clk, nil)
	gen := cardgen.NewGenerator(rand.New(rand.NewSource(rng.Int63())))
	supplier := opponent.NewSupplier(
		board,
		opponent.NewContractSource(cfg.Opponents.Contracts, rand.New(rand.NewSource(rng.Int63()))),
		gen,
		skills,
		opponent.Config{
			TopN:          cfg.Opponents.TopN,
			FallbackNames: cfg.Opponents.FallbackNames,
			Grades:        cfg.Opponents.Grades,
		},
		rand.New(rand.NewSource(rng.Int63())),
	)

	battles := service.NewManager(service.ManagerConfig{
		Rules:       cfg.Rules(),
		SettleDelay: cfg.Battle.SettleDelay,
		Retention:   cfg.Battle.FinishedRetention,
	}, repo, supplier, repo, clk, rng)
	minter := service.NewMinter(repo, gen, skills, board)

	return &app{
		db:      db,
		battles: battles,
		handler: api.NewHandler(repo, battles, minter, skills, board, cfg.Server.AllowedOrigins),
	}
}

func (a *app) close() {
	a.battles.Shutdown()
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func openDatabaseOrExit(path string) *gorm.DB {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logging.Fatal("Failed to create database directory", err, logging.Fields{"path": dir})
		}
	}
	db, err := storage.OpenAndMigrate(path)
	if err != nil {
		logging.Fatal("Failed to initialize database", err, logging.Fields{"path": path})
	}
	return db
}

// skillOptions prefers the API key. Application default credentials are only
// consulted when explicitly enabled.
func skillOptions(ctx context.Context, cfg *config.Config) skillgen.Options {
	opts := skillgen.Options{
		Endpoint:       cfg.Skills.Endpoint,
		Model:          cfg.Skills.Model,
		PromptTemplate: cfg.Skills.PromptTemplate,
		Timeout:        cfg.Skills.Timeout,
		APIKey:         cfg.Env.GeminiAPIKey,
	}
	if opts.APIKey == "" && cfg.Env.SkillsUseADC {
		ts, err := google.DefaultTokenSource(ctx, constants.GeminiScope)
		if err != nil {
			logging.Warn("application default credentials unavailable", err, nil)
			return opts
		}
		opts.TokenSource = ts
	}
	return opts
}
