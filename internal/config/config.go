package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/DonQuixuote/shape-tcg/internal/constants"
	"github.com/DonQuixuote/shape-tcg/internal/engine"
	"github.com/DonQuixuote/shape-tcg/internal/game"
)

var ErrInvalidConfig = errors.New("invalid config")

type ServerConfig struct {
	Address string `yaml:"address"`
	// AllowedOrigins lists browser origins, besides the server's own, that
	// may open battle event streams.
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type BattleConfig struct {
	TurnSeconds   int `yaml:"turn_seconds"`
	BattleSeconds int `yaml:"battle_seconds"`
	// SettleDelay separates combat entry from resolution so clients can
	// animate the reveal. Zero resolves immediately.
	SettleDelay       time.Duration `yaml:"settle_delay"`
	DamageFloor       int           `yaml:"damage_floor"`
	FinishedRetention time.Duration `yaml:"finished_retention"`
	// Seed makes battles reproducible; 0 picks a random seed at startup.
	Seed int64 `yaml:"seed"`
}

type OpponentsConfig struct {
	LeaderboardURL string        `yaml:"leaderboard_url"`
	TopN           int           `yaml:"top_n"`
	CacheTTL       time.Duration `yaml:"cache_ttl"`
	FallbackNames  []string      `yaml:"fallback_names"`
	Contracts      []string      `yaml:"contracts"`
	Grades         []game.Grade  `yaml:"grades"`
}

type SkillsConfig struct {
	Endpoint string `yaml:"endpoint"`
	Model    string `yaml:"model"`
	// PromptTemplate accepts the tokens {{name}}, {{token_id}}, {{grade}},
	// {{power}}, {{health}} and {{defense}}.
	PromptTemplate string        `yaml:"prompt_template"`
	Timeout        time.Duration `yaml:"timeout"`
}

// Env holds values that only come from the environment, secrets included.
type Env struct {
	ConfigPath   string `env:"SHAPETCG_CONFIG" envDefault:"./shapetcg.yaml"`
	Addr         string `env:"SHAPETCG_ADDR"`
	DBPath       string `env:"SHAPETCG_DB" envDefault:"./data/shapetcg.db"`
	GeminiAPIKey string `env:"GOOGLE_GENERATIVE_AI_API_KEY"`
	SkillsUseADC bool   `env:"SHAPETCG_SKILLS_USE_ADC"`
	Seed         int64  `env:"SHAPETCG_SEED"`
	LogLevel     string `env:"SHAPETCG_LOG_LEVEL" envDefault:"info"`
}

// Config is the merged rules file and environment.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Battle    BattleConfig    `yaml:"battle"`
	Opponents OpponentsConfig `yaml:"opponents"`
	Skills    SkillsConfig    `yaml:"skills"`
	Env       Env             `yaml:"-"`
}

func Default() *Config {
	rules := engine.DefaultRules()
	return &Config{
		Server: ServerConfig{Address: constants.DefaultAddr},
		Battle: BattleConfig{
			TurnSeconds:       rules.TurnSeconds,
			BattleSeconds:     rules.BattleSeconds,
			SettleDelay:       time.Second,
			DamageFloor:       rules.DamageFloor,
			FinishedRetention: 10 * time.Minute,
		},
		Opponents: OpponentsConfig{
			TopN:     50,
			CacheTTL: 5 * time.Minute,
		},
		Skills: SkillsConfig{
			Endpoint: constants.GeminiBaseURL,
			Model:    constants.GeminiModel,
			Timeout:  30 * time.Second,
		},
	}
}

// Rules converts the battle section into engine rules.
func (c *Config) Rules() engine.Rules {
	return engine.Rules{
		TurnSeconds:   c.Battle.TurnSeconds,
		BattleSeconds: c.Battle.BattleSeconds,
		DamageFloor:   c.Battle.DamageFloor,
	}
}

func (c *Config) Validate() error {
	if err := c.Rules().Validate(); err != nil {
		return fmt.Errorf("%w: battle: %v", ErrInvalidConfig, err)
	}
	if c.Battle.SettleDelay < 0 {
		return fmt.Errorf("%w: battle.settle_delay must not be negative", ErrInvalidConfig)
	}
	if c.Battle.FinishedRetention <= 0 {
		return fmt.Errorf("%w: battle.finished_retention must be positive", ErrInvalidConfig)
	}
	if c.Opponents.TopN < 1 {
		return fmt.Errorf("%w: opponents.top_n must be >= 1, got %d", ErrInvalidConfig, c.Opponents.TopN)
	}
	if c.Opponents.CacheTTL <= 0 {
		return fmt.Errorf("%w: opponents.cache_ttl must be positive", ErrInvalidConfig)
	}
	for _, g := range c.Opponents.Grades {
		if !g.Valid() {
			return fmt.Errorf("%w: opponents.grades: unknown grade %q", ErrInvalidConfig, g)
		}
	}
	if c.Skills.Timeout <= 0 {
		return fmt.Errorf("%w: skills.timeout must be positive", ErrInvalidConfig)
	}
	return nil
}

// Load reads the environment, then the rules file it points at. A missing
// rules file means defaults. Environment values win over the file.
func Load() (*Config, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg, err := LoadFile(e.ConfigPath)
	if err != nil {
		return nil, err
	}
	cfg.Env = e
	if a := strings.TrimSpace(e.Addr); a != "" {
		cfg.Server.Address = a
	}
	if e.Seed != 0 {
		cfg.Battle.Seed = e.Seed
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile parses a rules file over the defaults without validating. Keys
// left out of the file keep their default value.
func LoadFile(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return c, nil
}
