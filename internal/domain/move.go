package domain

import "strings"

// Move - one of rock, paper, scissor
type Move string

const (
	MoveRock    Move = "rock"
	MovePaper   Move = "paper"
	MoveScissor Move = "scissor"
)

// Moves lists every valid move in display order.
var Moves = []Move{MoveRock, MovePaper, MoveScissor}

func (m Move) Valid() bool {
	return m == MoveRock || m == MovePaper || m == MoveScissor
}

// ParseMove accepts the canonical names plus "scissors" as used by web clients.
func ParseMove(s string) (Move, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rock":
		return MoveRock, true
	case "paper":
		return MovePaper, true
	case "scissor", "scissors":
		return MoveScissor, true
	}
	return "", false
}

func (m Move) Emoji() string {
	switch m {
	case MoveRock:
		return "🪨"
	case MovePaper:
		return "📄"
	case MoveScissor:
		return "✂️"
	}
	return "❔"
}
