package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/DonQuixuote/shape-tcg/internal/constants"
	"github.com/DonQuixuote/shape-tcg/internal/game"
	"github.com/DonQuixuote/shape-tcg/internal/service"
	"github.com/DonQuixuote/shape-tcg/internal/skillgen"
	"github.com/DonQuixuote/shape-tcg/internal/storage"
)

type MintCardPayload struct {
	NFT game.NFT `json:"nft"`
	// Rank is the owner's leaderboard rank. Zero looks it up server side.
	Rank int `json:"rank"`
}

// ListCards returns an owner's collection.
func (h *Handler) ListCards(c *gin.Context) {
	owner, ok := ownerParam(c)
	if !ok {
		return
	}
	cards, err := h.repo.ListCards(owner)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{constants.JSONKeyError: constants.ErrFailedFetchCards})
		return
	}
	c.JSON(http.StatusOK, cards)
}

// MintCard converts one of the owner's NFTs into a card.
func (h *Handler) MintCard(c *gin.Context) {
	owner, ok := ownerParam(c)
	if !ok {
		return
	}
	var req MintCardPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{constants.JSONKeyError: constants.ErrInvalidRequest})
		return
	}
	card, err := h.minter.MintCard(c.Request.Context(), owner, req.NFT, req.Rank)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNFTAlreadyUsed):
			c.JSON(http.StatusConflict, gin.H{constants.JSONKeyError: constants.ErrNFTAlreadyUsed})
		case errors.Is(err, service.ErrInvalidNFT):
			c.JSON(http.StatusBadRequest, gin.H{constants.JSONKeyError: constants.ErrInvalidNFT})
		case errors.Is(err, service.ErrInvalidOwner):
			c.JSON(http.StatusBadRequest, gin.H{constants.JSONKeyError: constants.ErrInvalidOwner})
		default:
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{constants.JSONKeyError: constants.ErrFailedSaveCard})
		}
		return
	}
	c.JSON(http.StatusCreated, card)
}

// DeleteCard removes a card from the collection and from any deck.
func (h *Handler) DeleteCard(c *gin.Context) {
	owner, ok := ownerParam(c)
	if !ok {
		return
	}
	err := service.DeleteCard(h.repo, owner, c.Param("cardID"))
	switch {
	case err == nil:
		c.Status(http.StatusNoContent)
	case errors.Is(err, storage.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{constants.JSONKeyError: constants.ErrCardNotFound})
	case errors.Is(err, service.ErrCardNotOwned):
		c.JSON(http.StatusForbidden, gin.H{constants.JSONKeyError: constants.ErrNotOwner})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{constants.JSONKeyError: constants.ErrFailedDeleteCard})
	}
}

// GenerateSkill returns skill text for a card. Model failures fall back to
// stat-based text, so this only fails on a bad request.
func (h *Handler) GenerateSkill(c *gin.Context) {
	var req skillgen.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{constants.JSONKeyError: constants.ErrInvalidRequest})
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{constants.JSONKeyError: constants.ErrNameRequired})
		return
	}
	skill, source := h.skills.SkillOrFallback(c.Request.Context(), req)
	c.JSON(http.StatusOK, gin.H{"skill": skill, "source": source})
}
