package handlers

import (
	"net/http"

	"rps_challenge/internal/domain"
	"rps_challenge/internal/game"

	"github.com/gin-gonic/gin"
)

type CreateChallengeRequest struct {
	OpponentID int64 `json:"opponent_id"`
	Rounds     int   `json:"rounds"`
}

type MoveRequest struct {
	Move string `json:"move"`
}

// CreateChallenge opens a challenge from the caller to opponent_id.
func (h *Handler) CreateChallenge(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req CreateChallengeRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.OpponentID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "opponent_id is required"})
		return
	}
	if req.Rounds == 0 {
		req.Rounds = 1
	}

	ctx := c.Request.Context()
	m, err := h.Engine.CreateChallenge(ctx, game.Challenge{
		Challenger: h.participant(c, userID),
		Challenged: h.participant(c, req.OpponentID),
		Rounds:     req.Rounds,
	})
	if err != nil {
		engineError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"match": m})
}

// participant resolves a display name when the player is known.
func (h *Handler) participant(c *gin.Context, id int64) domain.Participant {
	p := domain.Participant{ID: id}
	if h.Players == nil {
		return p
	}
	if player, err := h.Players.GetByID(c.Request.Context(), id); err == nil {
		p.Name = player.DisplayName()
	}
	return p
}

// GetChallenge returns the match and its rounds to either participant.
func (h *Handler) GetChallenge(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	id := c.Param("id")
	m, err := h.Engine.Match(id)
	if err != nil {
		engineError(c, err)
		return
	}
	if !m.Has(userID) {
		engineError(c, game.ErrNotParticipant)
		return
	}
	rounds, _ := h.Engine.Rounds(id)
	c.JSON(http.StatusOK, gin.H{"match": m, "rounds": rounds})
}

func (h *Handler) AcceptChallenge(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	m, err := h.Engine.AcceptChallenge(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		engineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"match": m})
}

func (h *Handler) DeclineChallenge(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	if err := h.Engine.DeclineChallenge(c.Request.Context(), c.Param("id"), userID); err != nil {
		engineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": domain.MatchDeclined})
}

// SubmitMove records the caller's move. The response carries the resolved
// round and, on the last round, the completion summary.
func (h *Handler) SubmitMove(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req MoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}
	move, ok := domain.ParseMove(req.Move)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": game.ErrInvalidMove.Error()})
		return
	}

	res, err := h.Engine.SubmitMove(c.Request.Context(), c.Param("id"), userID, move)
	if err != nil {
		engineError(c, err)
		return
	}

	body := gin.H{"match": res.Match, "completed": res.Completed}
	if res.Round != nil {
		body["round"] = res.Round
	}
	if res.Evaluation != nil {
		body["evaluation"] = res.Evaluation
	}
	c.JSON(http.StatusOK, body)
}

func (h *Handler) RequestRematch(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	m, err := h.Engine.RequestRematch(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		engineError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"match": m})
}
