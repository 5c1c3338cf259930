package handlers

import (
	"net/http"
	"strconv"

	"rps_challenge/internal/domain"
	"rps_challenge/internal/logger"

	"github.com/gin-gonic/gin"
)

func playerIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid player id"})
		return 0, false
	}
	return id, true
}

// PlayerStats returns counters, level and streaks of a player.
func (h *Handler) PlayerStats(c *gin.Context) {
	id, ok := playerIDParam(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	stats, err := h.Players.GetStats(ctx, id)
	if err != nil {
		logger.Error("failed to load stats", "player_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get stats"})
		return
	}
	progress, err := h.Players.GetProgress(ctx, id)
	if err != nil {
		logger.Error("failed to load progress", "player_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get stats"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"stats":         stats,
		"win_rate":      stats.WinRate(),
		"favorite_move": stats.FavoriteMove(),
		"win_streak":    progress.WinStreak,
		"move_streak":   progress.MoveStreak,
	})
}

func (h *Handler) PlayerAchievements(c *gin.Context) {
	id, ok := playerIDParam(c)
	if !ok {
		return
	}

	list, err := h.Players.GetPlayerAchievements(c.Request.Context(), id)
	if err != nil {
		logger.Error("failed to load achievements", "player_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get achievements"})
		return
	}

	out := make([]gin.H, 0, len(list))
	for _, a := range list {
		out = append(out, gin.H{
			"type":        a.Type,
			"icon":        a.Type.Icon(),
			"description": a.Description,
			"match_id":    a.MatchID,
			"awarded_at":  a.AwardedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"achievements": out})
}

// PlayerMatches lists archived matches, newest first. ?limit= caps the page (max 100).
func (h *Handler) PlayerMatches(c *gin.Context) {
	id, ok := playerIDParam(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	matches, err := h.Players.ListByPlayer(c.Request.Context(), id, limit)
	if err != nil {
		logger.Error("failed to list matches", "player_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get matches"})
		return
	}
	if matches == nil {
		matches = []domain.Match{}
	}
	c.JSON(http.StatusOK, gin.H{"matches": matches})
}
