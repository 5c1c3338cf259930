package ws

import (
	"log/slog"
	"sync"

	"rps_challenge/internal/domain"
	"rps_challenge/internal/logger"
)

// Hub fans engine events out to the websocket subscribers of each match.
// It implements game.Notifier and never blocks the caller.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[*Client]struct{}
	log  *slog.Logger
}

func NewHub() *Hub {
	return &Hub{
		subs: make(map[string]map[*Client]struct{}),
		log:  logger.With("component", "ws"),
	}
}

func (h *Hub) Subscribe(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[c.MatchID]
	if !ok {
		set = make(map[*Client]struct{})
		h.subs[c.MatchID] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) Unsubscribe(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(c)
}

// Subscribers is the number of live subscribers of a match.
func (h *Hub) Subscribers(matchID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[matchID])
}

// Publish queues ev for every subscriber of ev.MatchID. Subscribers whose
// buffer is full are disconnected.
func (h *Hub) Publish(ev Event) {
	msg := ev.encode()

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.subs[ev.MatchID] {
		select {
		case c.Send <- msg:
		default:
			h.log.Warn("dropping slow subscriber", "match_id", ev.MatchID, "user", c.UserID)
			h.dropLocked(c)
		}
	}
}

// deliver queues ev for a single subscriber.
func (h *Hub) deliver(c *Client, ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.Send <- ev.encode():
	default:
		h.dropLocked(c)
	}
}

// closeMatch sends ev and then ends every subscription of the match.
func (h *Hub) closeMatch(ev Event) {
	h.Publish(ev)

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.subs[ev.MatchID] {
		h.dropLocked(c)
	}
}

func (h *Hub) dropLocked(c *Client) {
	set := h.subs[c.MatchID]
	if _, ok := set[c]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.subs, c.MatchID)
		}
	}
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}

func (h *Hub) OnChallengeExpired(m domain.Match) {
	h.closeMatch(Event{Type: EventChallengeExpired, MatchID: m.ID, Match: &m})
}

func (h *Hub) OnRoundResolved(m domain.Match, round domain.RoundRecord) {
	h.Publish(Event{Type: EventRoundResolved, MatchID: m.ID, Match: &m, Round: &round})
}

func (h *Hub) OnMatchCompleted(m domain.Match, res domain.MatchResult, eval domain.Evaluation) {
	h.closeMatch(Event{
		Type:       EventMatchCompleted,
		MatchID:    m.ID,
		Match:      &m,
		Rounds:     res.Rounds,
		Evaluation: &eval,
	})
}
