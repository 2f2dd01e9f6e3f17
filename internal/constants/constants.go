package constants

// Centralized constants for env keys, routes, JSON keys and log fields.
const (
	// Environment variable keys
	EnvAddr = "SHAPETCG_ADDR"

	DefaultAddr = ":8080"

	// HTTP headers and content types
	HeaderAuthorization = "Authorization"
	HeaderContentType   = "Content-Type"
	HeaderGoogAPIKey    = "X-goog-api-key"
	ContentTypeJSON     = "application/json"

	// Google generative language API
	GeminiBaseURL     = "https://generativelanguage.googleapis.com"
	GeminiModel       = "gemini-2.0-flash"
	GeminiScope       = "https://www.googleapis.com/auth/generative-language"
	GeminiMaxTokens   = 50
	GeminiTemperature = 0.8

	// Owner used for server-generated opponent cards.
	OwnerAIOpponent = "ai-opponent"
)

// Routes used by the backend router
const (
	RouteAPIPrefix       = "/api"
	RouteVersion         = "/version"
	RouteLeaderboard     = "/leaderboard"
	RouteSkills          = "/skills"
	RouteOwnerCards      = "/owners/:owner/cards"
	RouteOwnerCardByID   = "/owners/:owner/cards/:cardID"
	RouteOwnerDecks      = "/owners/:owner/decks"
	RouteOwnerDeckByID   = "/owners/:owner/decks/:deckID"
	RouteOwnerDeckActive = "/owners/:owner/decks/:deckID/activate"
	RouteOwnerStats      = "/owners/:owner/stats"
	RouteOwnerBattles    = "/owners/:owner/battles"
	RouteOwnerProfile    = "/owners/:owner/profile"
	RouteOwnerAnalysis   = "/owners/:owner/analysis"
	RouteBattles         = "/battles"
	RouteBattleByID      = "/battles/:battleID"
	RouteBattleSelect    = "/battles/:battleID/select"
	RouteBattleEvents    = "/battles/:battleID/events"
)

// Common JSON response keys
const (
	JSONKeyError   = "error"
	JSONKeyMessage = "message"
)

// Common error messages used across API handlers
const (
	ErrInvalidRequest      = "Invalid request"
	ErrInvalidOwner        = "Invalid owner address"
	ErrFailedFetchCards    = "Failed to fetch cards"
	ErrFailedSaveCard      = "Failed to save card"
	ErrFailedDeleteCard    = "Failed to delete card"
	ErrCardNotFound        = "Card not found"
	ErrNFTAlreadyUsed      = "This NFT has already been converted into a card"
	ErrFailedFetchDecks    = "Failed to fetch decks"
	ErrFailedSaveDeck      = "Failed to save deck"
	ErrDeckNotFound        = "Deck not found"
	ErrDeckTooLarge        = "A deck holds at most 3 cards"
	ErrDeckCardsNotOwned   = "Every deck card must belong to the deck owner"
	ErrFailedFetchStats    = "Failed to fetch stats"
	ErrFailedFetchHistory  = "Failed to fetch battle history"
	ErrFailedLeaderboard   = "Failed to fetch leaderboard"
	ErrBattleNotFound      = "Battle not found"
	ErrOpponentUnavailable = "Could not find an opponent. Please try again."
	ErrRosterInvalid       = "A battle needs exactly 3 of your cards"
	ErrFailedStartBattle   = "Failed to start battle"
	ErrWrongPhase          = "Cards can only be selected during card selection"
	ErrCardNotSelectable   = "That card cannot be selected"
	ErrBattleClosed        = "Battle is closed"
	ErrNameRequired        = "name is required"
	ErrInvalidNFT          = "NFT contract address and token id are required"
	ErrDeckNameRequired    = "Deck name is required"
	ErrFailedDeleteDeck    = "Failed to delete deck"
	ErrNotOwner            = "That belongs to another owner"
	ErrFailedAnalysis      = "Failed to analyze cards"
	ErrFailedProfile       = "Failed to look up leaderboard rank"
)

// Logging field names
const (
	LogFieldBattleID = "battle_id"
	LogFieldOwner    = "owner"
	LogFieldOpponent = "opponent"
	LogFieldCardID   = "card_id"
	LogFieldTurn     = "turn"
	LogFieldWinner   = "winner"
	LogFieldReason   = "reason"
	LogFieldSource   = "source"
	LogFieldKey      = "key"
	LogFieldAddr     = "addr"
	LogFieldAttempt  = "attempt"
)
