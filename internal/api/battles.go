package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/DonQuixuote/shape-tcg/internal/constants"
	"github.com/DonQuixuote/shape-tcg/internal/engine"
	"github.com/DonQuixuote/shape-tcg/internal/logging"
	"github.com/DonQuixuote/shape-tcg/internal/service"
)

type StartBattlePayload struct {
	OwnerAddress string `json:"owner_address" binding:"required"`
	// CardIDs picks the roster explicitly. Empty uses the active deck.
	CardIDs []string `json:"card_ids"`
}

type SelectCardPayload struct {
	CardID string `json:"card_id" binding:"required"`
}

type battleResponse struct {
	BattleID string `json:"battle_id"`
	engine.State
}

func (h *Handler) StartBattle(c *gin.Context) {
	var req StartBattlePayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{constants.JSONKeyError: constants.ErrInvalidRequest})
		return
	}
	sess, st, err := h.battles.Start(c.Request.Context(), req.OwnerAddress, req.CardIDs)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidOwner):
			c.JSON(http.StatusBadRequest, gin.H{constants.JSONKeyError: constants.ErrInvalidOwner})
		case errors.Is(err, service.ErrRosterInvalid):
			c.JSON(http.StatusBadRequest, gin.H{constants.JSONKeyError: constants.ErrRosterInvalid})
		case errors.Is(err, service.ErrOpponentUnavailable):
			c.JSON(http.StatusServiceUnavailable, gin.H{constants.JSONKeyError: constants.ErrOpponentUnavailable})
		default:
			logging.Error("start battle failed", err, logging.Fields{constants.LogFieldOwner: req.OwnerAddress})
			c.JSON(http.StatusInternalServerError, gin.H{constants.JSONKeyError: constants.ErrFailedStartBattle})
		}
		return
	}
	c.JSON(http.StatusCreated, battleResponse{BattleID: sess.ID(), State: st})
}

func (h *Handler) GetBattle(c *gin.Context) {
	id := c.Param("battleID")
	st, err := h.battles.Snapshot(id)
	if err != nil {
		writeBattleError(c, err)
		return
	}
	c.JSON(http.StatusOK, battleResponse{BattleID: id, State: st})
}

// SelectCard plays the player's card for the current turn.
func (h *Handler) SelectCard(c *gin.Context) {
	var req SelectCardPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{constants.JSONKeyError: constants.ErrInvalidRequest})
		return
	}
	id := c.Param("battleID")
	st, err := h.battles.Select(id, req.CardID)
	if err != nil {
		writeBattleError(c, err)
		return
	}
	c.JSON(http.StatusOK, battleResponse{BattleID: id, State: st})
}

// ExitBattle abandons a battle. No result is recorded for an unfinished one.
func (h *Handler) ExitBattle(c *gin.Context) {
	if err := h.battles.Close(c.Param("battleID")); err != nil {
		writeBattleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func writeBattleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrBattleNotFound):
		c.JSON(http.StatusNotFound, gin.H{constants.JSONKeyError: constants.ErrBattleNotFound})
	case errors.Is(err, engine.ErrWrongPhase):
		c.JSON(http.StatusConflict, gin.H{constants.JSONKeyError: constants.ErrWrongPhase})
	case errors.Is(err, engine.ErrCardEliminated):
		c.JSON(http.StatusConflict, gin.H{constants.JSONKeyError: constants.ErrCardNotSelectable})
	case errors.Is(err, engine.ErrForeignCard):
		c.JSON(http.StatusBadRequest, gin.H{constants.JSONKeyError: constants.ErrCardNotSelectable})
	case errors.Is(err, engine.ErrBattleClosed):
		c.JSON(http.StatusConflict, gin.H{constants.JSONKeyError: constants.ErrBattleClosed})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{constants.JSONKeyError: err.Error()})
	}
}
