// Package skillgen produces the flavour skill text printed on cards. Text
// comes from a Gemini generateContent call, is cached by token and grade,
// and falls back to a stat-based line when the model is unavailable.
package skillgen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/DonQuixuote/shape-tcg/internal/cardgen"
	"github.com/DonQuixuote/shape-tcg/internal/constants"
	"github.com/DonQuixuote/shape-tcg/internal/dedupe"
	"github.com/DonQuixuote/shape-tcg/internal/game"
	"github.com/DonQuixuote/shape-tcg/internal/keys"
	"github.com/DonQuixuote/shape-tcg/internal/logging"
)

var (
	ErrNotConfigured = errors.New("skill generation not configured")
	ErrNameRequired  = errors.New("nft name is required")
)

const (
	SourceCache    = "db"
	SourceModel    = "gemini"
	SourceFallback = "fallback"

	placeholderSkill = "Mysterious Power: This card holds untold potential."
)

// DefaultPromptTemplate is the Ranker 0 prompt. Tokens in double braces are
// substituted per request.
const DefaultPromptTemplate = `You are Ranker 0 - the legendary transcendent ranker who achieved the mythical rank 0 in the Shape tower. You are now generating unique skills for ShapeTCG playing cards based on NFT characteristics and player stats.

Your task: Create a concise, thematic skill for this card that reflects both the NFT's identity and the player's grade level.

Guidelines:
- Keep skills to 1-2 sentences maximum (under 100 characters)
- Make skills thematic to the NFT name/identity
- Scale skill power appropriately to the user's grade ({{grade}})
- Higher grades (S-Rank, A-Rank) get more powerful skills
- Lower grades (D-Rank, Ungraded) get simpler skills
- Use game terminology: "damage", "health", "defense", "attack", "turn"
- Make it sound mystical and strategic, befitting your Rank 0 wisdom

NFT: {{name}} #{{token_id}}
Player Grade: {{grade}}
Stats: Power {{power}}, Health {{health}}, Defense {{defense}}

Generate only the skill text, nothing else.`

// Request describes the card a skill is generated for.
type Request struct {
	Name            string        `json:"nft_name"`
	TokenID         string        `json:"nft_token_id"`
	ContractAddress string        `json:"nft_contract_address"`
	Grade           game.Grade    `json:"user_grade"`
	Stats           cardgen.Stats `json:"stats"`
}

// Cache persists generated skills. storage.Repository satisfies it.
type Cache interface {
	GetSkill(key string) (string, error)
	SaveSkill(key, skill string) error
}

type Options struct {
	// Endpoint is the API base URL, constants.GeminiBaseURL when empty.
	Endpoint       string
	Model          string
	PromptTemplate string
	Timeout        time.Duration
	// APIKey is sent as X-goog-api-key. When empty and TokenSource is set,
	// requests carry an OAuth2 bearer token instead.
	APIKey      string
	TokenSource oauth2.TokenSource
}

type Generator struct {
	opts   Options
	cache  Cache
	client *http.Client
}

func New(opts Options, cache Cache) *Generator {
	if opts.Endpoint == "" {
		opts.Endpoint = constants.GeminiBaseURL
	}
	if opts.Model == "" {
		opts.Model = constants.GeminiModel
	}
	if strings.TrimSpace(opts.PromptTemplate) == "" {
		opts.PromptTemplate = DefaultPromptTemplate
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	client := &http.Client{Timeout: opts.Timeout}
	if opts.APIKey == "" && opts.TokenSource != nil {
		client.Transport = &oauth2.Transport{Source: opts.TokenSource, Base: http.DefaultTransport}
	}
	return &Generator{opts: opts, cache: cache, client: client}
}

// Configured reports whether the generator can reach the model.
func (g *Generator) Configured() bool {
	return g.opts.APIKey != "" || g.opts.TokenSource != nil
}

// Generate returns skill text and where it came from (SourceCache or
// SourceModel). Concurrent identical requests share one model call.
func (g *Generator) Generate(ctx context.Context, req Request) (string, string, error) {
	if strings.TrimSpace(req.Name) == "" {
		return "", "", ErrNameRequired
	}
	key := keys.SkillKey(req.ContractAddress, req.TokenID, string(req.Grade))
	if skill, ok := g.cached(key); ok {
		logging.Debug("skill cache hit", logging.Fields{constants.LogFieldKey: key, constants.LogFieldSource: SourceCache})
		return skill, SourceCache, nil
	}
	if !g.Configured() {
		return "", "", ErrNotConfigured
	}

	sfKey := key
	if sfKey == "" {
		sfKey = req.Name + "#" + req.TokenID + ":" + string(req.Grade)
	}

	type genRes struct {
		Skill  string
		Source string
	}

	ch := dedupe.SkillGroup.DoChan(sfKey, func() (interface{}, error) {
		if skill, ok := g.cached(key); ok {
			return genRes{Skill: skill, Source: SourceCache}, nil
		}
		// detached from the first caller so a cancelled request does not
		// fail the others sharing this call
		callCtx, cancel := context.WithTimeout(context.Background(), g.opts.Timeout)
		defer cancel()
		skill, err := g.callModel(callCtx, req)
		if err != nil {
			logging.Error("skill model call failed", err, logging.Fields{constants.LogFieldKey: sfKey})
			return genRes{}, err
		}
		if skill == "" {
			return genRes{Skill: placeholderSkill, Source: SourceModel}, nil
		}
		if key != "" && g.cache != nil {
			if err := g.cache.SaveSkill(key, skill); err != nil {
				logging.Warn("skill cache save failed", err, logging.Fields{constants.LogFieldKey: key})
			}
		}
		logging.Info("skill generated", logging.Fields{constants.LogFieldKey: sfKey, constants.LogFieldSource: SourceModel})
		return genRes{Skill: skill, Source: SourceModel}, nil
	})

	select {
	case r := <-ch:
		if r.Err != nil {
			return "", "", r.Err
		}
		res := r.Val.(genRes)
		return res.Skill, res.Source, nil
	case <-ctx.Done():
		return "", "", ctx.Err()
	}
}

// SkillOrFallback never fails: model or cache errors yield the stat-based
// fallback text.
func (g *Generator) SkillOrFallback(ctx context.Context, req Request) (string, string) {
	skill, source, err := g.Generate(ctx, req)
	if err != nil {
		if !errors.Is(err, ErrNotConfigured) {
			logging.Warn("skill generation fell back", err, logging.Fields{constants.LogFieldKey: req.Name})
		}
		return Fallback(req.Stats), SourceFallback
	}
	return skill, source
}

// Fallback picks a generic skill from the card's dominant stat.
func Fallback(s cardgen.Stats) string {
	switch {
	case s.Power > s.Health && s.Power > s.Defense:
		return "Overwhelming Force: Deal extra damage when attacking."
	case s.Health > s.Power && s.Health > s.Defense:
		return "Resilient Spirit: Recover health when taking damage."
	}
	return "Defensive Stance: Reduce incoming damage by 1."
}

func (g *Generator) cached(key string) (string, bool) {
	if key == "" || g.cache == nil {
		return "", false
	}
	skill, err := g.cache.GetSkill(key)
	if err != nil || skill == "" {
		return "", false
	}
	return skill, true
}

func (g *Generator) prompt(req Request) string {
	r := strings.NewReplacer(
		"{{name}}", req.Name,
		"{{token_id}}", req.TokenID,
		"{{grade}}", string(req.Grade),
		"{{power}}", strconv.Itoa(req.Stats.Power),
		"{{health}}", strconv.Itoa(req.Stats.Health),
		"{{defense}}", strconv.Itoa(req.Stats.Defense),
	)
	return r.Replace(g.opts.PromptTemplate)
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	MaxOutputTokens int     `json:"maxOutputTokens"`
	Temperature     float64 `json:"temperature"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// callModel invokes generateContent and returns the trimmed text of the
// first candidate.
func (g *Generator) callModel(ctx context.Context, req Request) (string, error) {
	payload := generateRequest{
		Contents: []content{{Parts: []part{{Text: g.prompt(req)}}}},
		GenerationConfig: generationConfig{
			MaxOutputTokens: constants.GeminiMaxTokens,
			Temperature:     constants.GeminiTemperature,
		},
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	url := strings.TrimRight(g.opts.Endpoint, "/") + "/v1beta/models/" + g.opts.Model + ":generateContent"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set(constants.HeaderContentType, constants.ContentTypeJSON)
	if g.opts.APIKey != "" {
		httpReq.Header.Set(constants.HeaderGoogAPIKey, g.opts.APIKey)
	}

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("gemini error: %d %s", resp.StatusCode, string(body))
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode gemini response: %w", err)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", nil
	}
	return strings.TrimSpace(out.Candidates[0].Content.Parts[0].Text), nil
}
