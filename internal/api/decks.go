package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/DonQuixuote/shape-tcg/internal/constants"
	"github.com/DonQuixuote/shape-tcg/internal/service"
	"github.com/DonQuixuote/shape-tcg/internal/storage"
)

type SaveDeckPayload struct {
	// ID updates an existing deck when set.
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	CardIDs []string `json:"card_ids"`
}

func (h *Handler) ListDecks(c *gin.Context) {
	owner, ok := ownerParam(c)
	if !ok {
		return
	}
	decks, err := h.repo.ListDecks(owner)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{constants.JSONKeyError: constants.ErrFailedFetchDecks})
		return
	}
	c.JSON(http.StatusOK, decks)
}

func (h *Handler) SaveDeck(c *gin.Context) {
	owner, ok := ownerParam(c)
	if !ok {
		return
	}
	var req SaveDeckPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{constants.JSONKeyError: constants.ErrInvalidRequest})
		return
	}
	deck, err := service.SaveDeck(h.repo, owner, req.ID, req.Name, req.CardIDs)
	if err != nil {
		writeDeckError(c, err, constants.ErrFailedSaveDeck)
		return
	}
	status := http.StatusCreated
	if req.ID != "" {
		status = http.StatusOK
	}
	c.JSON(status, deck)
}

// ActivateDeck makes a deck the owner's default battle roster.
func (h *Handler) ActivateDeck(c *gin.Context) {
	owner, ok := ownerParam(c)
	if !ok {
		return
	}
	if err := service.ActivateDeck(h.repo, owner, c.Param("deckID")); err != nil {
		writeDeckError(c, err, constants.ErrFailedSaveDeck)
		return
	}
	c.JSON(http.StatusOK, gin.H{constants.JSONKeyMessage: "Deck activated"})
}

func (h *Handler) DeleteDeck(c *gin.Context) {
	owner, ok := ownerParam(c)
	if !ok {
		return
	}
	if err := service.DeleteDeck(h.repo, owner, c.Param("deckID")); err != nil {
		writeDeckError(c, err, constants.ErrFailedDeleteDeck)
		return
	}
	c.Status(http.StatusNoContent)
}

func writeDeckError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{constants.JSONKeyError: constants.ErrDeckNotFound})
	case errors.Is(err, service.ErrDeckTooLarge):
		c.JSON(http.StatusBadRequest, gin.H{constants.JSONKeyError: constants.ErrDeckTooLarge})
	case errors.Is(err, service.ErrDeckCardsNotOwned):
		c.JSON(http.StatusBadRequest, gin.H{constants.JSONKeyError: constants.ErrDeckCardsNotOwned})
	case errors.Is(err, service.ErrDeckNameRequired):
		c.JSON(http.StatusBadRequest, gin.H{constants.JSONKeyError: constants.ErrDeckNameRequired})
	case errors.Is(err, service.ErrDeckNotOwned):
		c.JSON(http.StatusForbidden, gin.H{constants.JSONKeyError: constants.ErrNotOwner})
	case errors.Is(err, service.ErrInvalidOwner):
		c.JSON(http.StatusBadRequest, gin.H{constants.JSONKeyError: constants.ErrInvalidOwner})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{constants.JSONKeyError: fallback})
	}
}
