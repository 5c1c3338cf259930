package http

import (
	"time"

	"rps_challenge/internal/http/handlers"
	"rps_challenge/internal/http/middleware"
	"rps_challenge/internal/ratelimit"
	"rps_challenge/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps is everything the router needs.
type Deps struct {
	Handler       *handlers.Handler
	Health        *handlers.HealthHandler
	Hub           *ws.Hub
	Matches       ws.MatchSource
	Limiter       *ratelimit.Limiter
	AllowedOrigin string
	AuthRateLimit int
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	h := d.Handler

	// Health checks (no rate limiting)
	r.GET("/health", d.Health.Health)
	r.GET("/healthz", d.Health.Liveness)
	r.GET("/readyz", d.Health.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authLimit := d.AuthRateLimit
	if authLimit <= 0 {
		authLimit = 10
	}

	v1 := r.Group("/api/v1")
	v1.POST("/auth", middleware.IPRateLimit(authLimit, time.Minute), h.Login)

	challenges := v1.Group("/challenges")
	challenges.Use(middleware.JWT())
	{
		challenges.POST("", middleware.ActionRateLimit(d.Limiter, "challenge"), h.CreateChallenge)
		challenges.GET("/:id", h.GetChallenge)
		challenges.POST("/:id/accept", middleware.ActionRateLimit(d.Limiter, "answer"), h.AcceptChallenge)
		challenges.POST("/:id/decline", middleware.ActionRateLimit(d.Limiter, "answer"), h.DeclineChallenge)
		challenges.POST("/:id/move", middleware.ActionRateLimit(d.Limiter, "move"), h.SubmitMove)
		challenges.POST("/:id/rematch", middleware.ActionRateLimit(d.Limiter, "challenge"), h.RequestRematch)
	}

	players := v1.Group("/players/:id")
	{
		players.GET("/stats", h.PlayerStats)
		players.GET("/achievements", h.PlayerAchievements)
		players.GET("/matches", h.PlayerMatches)
	}

	// WebSocket feed; the token travels in the query string
	r.GET("/ws/matches/:id", ws.HandleWS(d.Hub, d.Matches, d.AllowedOrigin))
}
