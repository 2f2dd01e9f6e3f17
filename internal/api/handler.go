package api

import (
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/DonQuixuote/shape-tcg/internal/constants"
	"github.com/DonQuixuote/shape-tcg/internal/service"
	"github.com/DonQuixuote/shape-tcg/internal/storage"
)

// Handler groups all HTTP handlers.
type Handler struct {
	repo    storage.Repository
	battles *service.Manager
	minter  *service.Minter
	skills  service.SkillSource
	ranks   service.RankLookup

	upgrader websocket.Upgrader
}

// NewHandler wires the handlers. ranks may be nil, in which case every
// profile is unranked. allowedOrigins lists the browser origins besides
// the API's own that may open battle streams.
func NewHandler(repo storage.Repository, battles *service.Manager, minter *service.Minter, skills service.SkillSource, ranks service.RankLookup, allowedOrigins []string) *Handler {
	return &Handler{
		repo:     repo,
		battles:  battles,
		minter:   minter,
		skills:   skills,
		ranks:    ranks,
		upgrader: newUpgrader(allowedOrigins),
	}
}

// NewRouter builds the gin engine with every API route mounted.
func NewRouter(h *Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger())

	r := router.Group(constants.RouteAPIPrefix)
	{
		r.GET(constants.RouteVersion, Version)
		r.GET(constants.RouteLeaderboard, h.ListLeaderboard)
		r.POST(constants.RouteSkills, h.GenerateSkill)

		r.GET(constants.RouteOwnerCards, h.ListCards)
		r.POST(constants.RouteOwnerCards, h.MintCard)
		r.DELETE(constants.RouteOwnerCardByID, h.DeleteCard)

		r.GET(constants.RouteOwnerDecks, h.ListDecks)
		r.POST(constants.RouteOwnerDecks, h.SaveDeck)
		r.POST(constants.RouteOwnerDeckActive, h.ActivateDeck)
		r.DELETE(constants.RouteOwnerDeckByID, h.DeleteDeck)

		r.GET(constants.RouteOwnerStats, h.GetStats)
		r.GET(constants.RouteOwnerProfile, h.GetProfile)
		r.GET(constants.RouteOwnerAnalysis, h.AnalyzeCollection)
		r.GET(constants.RouteOwnerBattles, h.ListBattles)

		r.POST(constants.RouteBattles, h.StartBattle)
		r.GET(constants.RouteBattleByID, h.GetBattle)
		r.POST(constants.RouteBattleSelect, h.SelectCard)
		r.DELETE(constants.RouteBattleByID, h.ExitBattle)
		r.GET(constants.RouteBattleEvents, h.BattleEvents)
	}
	return router
}
