package handlers

import (
	"context"
	"errors"
	"net/http"

	"rps_challenge/internal/domain"
	"rps_challenge/internal/game"
	"rps_challenge/internal/logger"

	"github.com/gin-gonic/gin"
)

// Engine is the part of game.Engine the API drives.
type Engine interface {
	CreateChallenge(ctx context.Context, c game.Challenge) (domain.Match, error)
	AcceptChallenge(ctx context.Context, id string, userID int64) (domain.Match, error)
	DeclineChallenge(ctx context.Context, id string, userID int64) error
	SubmitMove(ctx context.Context, id string, userID int64, move domain.Move) (game.MoveResult, error)
	RequestRematch(ctx context.Context, id string, requesterID int64) (domain.Match, error)
	Match(id string) (domain.Match, error)
	Rounds(id string) ([]domain.RoundRecord, error)
}

// Players reads profiles and history from the gateway.
type Players interface {
	GetByID(ctx context.Context, id int64) (*domain.Player, error)
	GetStats(ctx context.Context, playerID int64) (domain.PlayerStats, error)
	GetProgress(ctx context.Context, playerID int64) (domain.PlayerProgress, error)
	GetPlayerAchievements(ctx context.Context, playerID int64) ([]domain.Achievement, error)
	ListByPlayer(ctx context.Context, playerID int64, limit int) ([]domain.Match, error)
}

// Authenticator exchanges Telegram init data for a token.
type Authenticator interface {
	Login(ctx context.Context, initData string) (string, domain.Player, error)
}

type Handler struct {
	Engine  Engine
	Players Players
	Auth    Authenticator
}

func NewHandler(engine Engine, players Players, auth Authenticator) *Handler {
	return &Handler{Engine: engine, Players: players, Auth: auth}
}

// getUserID извлекает user_id из контекста Gin
func getUserID(c *gin.Context) (int64, bool) {
	id := c.GetInt64("user_id")
	return id, id != 0
}

// engineError writes the status for an engine rejection.
func engineError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, game.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, game.ErrSelfChallenge),
		errors.Is(err, game.ErrInvalidRoundCount),
		errors.Is(err, game.ErrInvalidMove):
		status = http.StatusBadRequest
	case errors.Is(err, game.ErrNotChallenged),
		errors.Is(err, game.ErrNotParticipant):
		status = http.StatusForbidden
	case errors.Is(err, game.ErrAlreadyChallenged),
		errors.Is(err, game.ErrWrongTurn),
		errors.Is(err, game.ErrAlreadyMoved),
		errors.Is(err, game.ErrMatchNotActive),
		errors.Is(err, game.ErrMatchNotPending):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		logger.Error("engine call failed", "path", c.FullPath(), "error", err)
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
