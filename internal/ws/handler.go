package ws

import (
	"net/http"

	"rps_challenge/internal/domain"
	"rps_challenge/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// MatchSource resolves a match snapshot for the initial event.
type MatchSource interface {
	Match(id string) (domain.Match, error)
	Rounds(id string) ([]domain.RoundRecord, error)
}

// HandleWS upgrades GET /ws/matches/:id?token=... into a live feed of the
// match. Only the two participants may subscribe.
func HandleWS(hub *Hub, matches MatchSource, allowedOrigin string) gin.HandlerFunc {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			if allowedOrigin == "" {
				return true
			}
			return r.Header.Get("Origin") == allowedOrigin
		},
	}

	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "token required"})
			return
		}
		userID, err := service.ParseJWT(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		matchID := c.Param("id")
		pre, err := matches.Match(matchID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "match not found"})
			return
		}
		if !pre.Has(userID) {
			c.JSON(http.StatusForbidden, gin.H{"error": "not a participant of this match"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			hub.log.Debug("ws upgrade failed", "error", err)
			return
		}

		client := NewClient(matchID, userID, conn, hub)
		hub.Subscribe(client)

		// read the snapshot after subscribing so no later event is missed
		m, err := matches.Match(matchID)
		if err != nil {
			hub.deliver(client, Event{Type: EventError, MatchID: matchID, Error: "match not found"})
			hub.Unsubscribe(client)
		} else {
			rounds, _ := matches.Rounds(matchID)
			hub.deliver(client, Event{Type: EventSnapshot, MatchID: matchID, Match: &m, Rounds: rounds})
			if m.Status.Terminal() {
				hub.Unsubscribe(client)
			}
		}
		client.Start()
	}
}
