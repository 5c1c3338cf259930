package ws

import (
	"encoding/json"

	"rps_challenge/internal/domain"
)

// Event is one message of the live match feed.
type Event struct {
	Type       string               `json:"type"`
	MatchID    string               `json:"match_id"`
	Match      *domain.Match        `json:"match,omitempty"`
	Round      *domain.RoundRecord  `json:"round,omitempty"`
	Rounds     []domain.RoundRecord `json:"rounds,omitempty"`
	Evaluation *domain.Evaluation   `json:"evaluation,omitempty"`
	Error      string               `json:"error,omitempty"`
}

func (e Event) encode() []byte {
	b, err := json.Marshal(e)
	if err != nil {
		return []byte(`{"type":"error","error":"encode failed"}`)
	}
	return b
}
