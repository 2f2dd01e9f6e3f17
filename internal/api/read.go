package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/DonQuixuote/shape-tcg/internal/cardgen"
	"github.com/DonQuixuote/shape-tcg/internal/constants"
	"github.com/DonQuixuote/shape-tcg/internal/game"
	"github.com/DonQuixuote/shape-tcg/internal/logging"
	"github.com/DonQuixuote/shape-tcg/internal/service"
)

type profileResponse struct {
	OwnerAddress string     `json:"owner_address"`
	Ranked       bool       `json:"ranked"`
	Username     string     `json:"username,omitempty"`
	Rank         int        `json:"rank,omitempty"`
	Grade        game.Grade `json:"grade"`
}

// GetStats returns played, won and lost counts. Owners with no history get
// zeroes rather than a 404.
func (h *Handler) GetStats(c *gin.Context) {
	owner, ok := ownerParam(c)
	if !ok {
		return
	}
	stats, err := h.repo.GetStats(owner)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{constants.JSONKeyError: constants.ErrFailedFetchStats})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ListBattles returns the owner's most recent battles first.
func (h *Handler) ListBattles(c *gin.Context) {
	owner, ok := ownerParam(c)
	if !ok {
		return
	}
	recs, err := h.repo.ListBattles(owner, limitQuery(c, 20, 100))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{constants.JSONKeyError: constants.ErrFailedFetchHistory})
		return
	}
	out, err := MarshalIntoSnakeTimestamps(recs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{constants.JSONKeyError: constants.ErrFailedFetchHistory})
		return
	}
	c.JSON(http.StatusOK, out)
}

// ListLeaderboard ranks owners by wins.
func (h *Handler) ListLeaderboard(c *gin.Context) {
	top, err := h.repo.TopOwners(limitQuery(c, 10, 100))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{constants.JSONKeyError: constants.ErrFailedLeaderboard})
		return
	}
	c.JSON(http.StatusOK, top)
}

// GetProfile returns the owner's leaderboard name, rank and the grade new
// cards would be minted at.
func (h *Handler) GetProfile(c *gin.Context) {
	owner, ok := ownerParam(c)
	if !ok {
		return
	}
	resp := profileResponse{OwnerAddress: owner, Grade: game.GradeUngraded}
	if h.ranks != nil {
		e, found, err := h.ranks.Lookup(c.Request.Context(), owner)
		if err != nil {
			logging.Warn("leaderboard lookup failed", err, logging.Fields{constants.LogFieldOwner: owner})
			c.JSON(http.StatusServiceUnavailable, gin.H{constants.JSONKeyError: constants.ErrFailedProfile})
			return
		}
		if found {
			resp.Ranked = true
			resp.Username = e.Username
			resp.Rank = e.Rank
			resp.Grade = cardgen.GradeByRank(e.Rank)
		}
	}
	c.JSON(http.StatusOK, resp)
}

// AnalyzeCollection returns collection stats, recommendations and
// suggested decks for the owner's cards.
func (h *Handler) AnalyzeCollection(c *gin.Context) {
	owner, ok := ownerParam(c)
	if !ok {
		return
	}
	cards, err := h.repo.ListCards(owner)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{constants.JSONKeyError: constants.ErrFailedAnalysis})
		return
	}
	c.JSON(http.StatusOK, service.AnalyzeCollection(cards))
}
