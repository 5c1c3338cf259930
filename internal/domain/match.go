package domain

import "time"

// MatchStatus - lifecycle state of a challenge match
type MatchStatus string

const (
	MatchPending   MatchStatus = "pending"
	MatchActive    MatchStatus = "active"
	MatchCompleted MatchStatus = "completed"
	MatchDeclined  MatchStatus = "declined"
	MatchExpired   MatchStatus = "expired"
)

// Terminal reports whether no further transitions are possible.
func (s MatchStatus) Terminal() bool {
	return s == MatchCompleted || s == MatchDeclined || s == MatchExpired
}

const (
	MinRounds = 1
	MaxRounds = 10
)

// Participant is one side of a match. Name is display-only.
type Participant struct {
	ID   int64  `json:"id"`
	Name string `json:"name,omitempty"`
}

// ChatRef points at the place where result messages are delivered.
// The engine only carries it around.
type ChatRef struct {
	ChatID    int64 `json:"chat_id,omitempty"`
	MessageID int   `json:"message_id,omitempty"`
}

func (c ChatRef) IsZero() bool {
	return c.ChatID == 0
}

// Match - snapshot of a best-of-N challenge between two players
type Match struct {
	ID              string      `json:"id"`
	Challenger      Participant `json:"challenger"`
	Challenged      Participant `json:"challenged"`
	TotalRounds     int         `json:"total_rounds"`
	CurrentRound    int         `json:"current_round"`
	ChallengerScore int         `json:"challenger_score"`
	ChallengedScore int         `json:"challenged_score"`
	Status          MatchStatus `json:"status"`
	CurrentTurn     int64       `json:"current_turn,omitempty"`
	// PendingMover is the player whose move for the current round is already
	// recorded, zero when the round has no moves yet. The move itself stays hidden.
	PendingMover int64     `json:"pending_mover,omitempty"`
	Chat         ChatRef   `json:"chat"`
	RematchOf    string    `json:"rematch_of,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	ExpiresAt    time.Time `json:"expires_at"`
	FinishedAt   time.Time `json:"finished_at,omitempty"`
}

// Has reports whether userID is one of the two participants.
func (m *Match) Has(userID int64) bool {
	return m.Challenger.ID == userID || m.Challenged.ID == userID
}

// Opponent returns the other participant, or false when userID is not playing.
func (m *Match) Opponent(userID int64) (Participant, bool) {
	switch userID {
	case m.Challenger.ID:
		return m.Challenged, true
	case m.Challenged.ID:
		return m.Challenger, true
	}
	return Participant{}, false
}

// Participant returns the participant with the given id.
func (m *Match) Participant(userID int64) (Participant, bool) {
	switch userID {
	case m.Challenger.ID:
		return m.Challenger, true
	case m.Challenged.ID:
		return m.Challenged, true
	}
	return Participant{}, false
}

// Winner returns the overall winner: strictly higher cumulative score, nil on a tie.
func (m *Match) Winner() *int64 {
	switch {
	case m.ChallengerScore > m.ChallengedScore:
		id := m.Challenger.ID
		return &id
	case m.ChallengedScore > m.ChallengerScore:
		id := m.Challenged.ID
		return &id
	}
	return nil
}

// ResultFor returns the match result from userID's point of view.
func (m *Match) ResultFor(userID int64) GameResult {
	w := m.Winner()
	switch {
	case w == nil:
		return GameResultDraw
	case *w == userID:
		return GameResultWin
	default:
		return GameResultLose
	}
}

// GameResult - outcome for one player
type GameResult string

const (
	GameResultWin  GameResult = "win"
	GameResultLose GameResult = "lose"
	GameResultDraw GameResult = "draw"
)

// RoundRecord is written once per resolved round and never updated.
type RoundRecord struct {
	MatchID        string    `json:"match_id"`
	Round          int       `json:"round"`
	ChallengerID   int64     `json:"challenger_id"`
	ChallengedID   int64     `json:"challenged_id"`
	ChallengerMove Move      `json:"challenger_move"`
	ChallengedMove Move      `json:"challenged_move"`
	WinnerID       *int64    `json:"winner_id,omitempty"`
	ResolvedAt     time.Time `json:"resolved_at"`
}

// MoveOf returns the move playerID made in this round.
func (r RoundRecord) MoveOf(playerID int64) Move {
	if playerID == r.ChallengerID {
		return r.ChallengerMove
	}
	return r.ChallengedMove
}

// MatchResult is what gets committed when a match completes.
type MatchResult struct {
	Match  Match         `json:"match"`
	Rounds []RoundRecord `json:"rounds"`
}

// WinnerID is a shortcut for Match.Winner.
func (r MatchResult) WinnerID() *int64 {
	return r.Match.Winner()
}

// MovesOf lists playerID's moves in round order.
func (r MatchResult) MovesOf(playerID int64) []Move {
	moves := make([]Move, 0, len(r.Rounds))
	for _, rr := range r.Rounds {
		moves = append(moves, rr.MoveOf(playerID))
	}
	return moves
}

// Ties counts rounds without a winner.
func (r MatchResult) Ties() int {
	n := 0
	for _, rr := range r.Rounds {
		if rr.WinnerID == nil {
			n++
		}
	}
	return n
}
