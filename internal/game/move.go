package game

import "rps_challenge/internal/domain"

// Outcome is a round result from the challenger's point of view.
type Outcome string

const (
	OutcomeWin  Outcome = "win"
	OutcomeLose Outcome = "lose"
	OutcomeTie  Outcome = "tie"
)

// beats maps each move to the move it defeats.
var beats = map[domain.Move]domain.Move{
	domain.MoveRock:    domain.MoveScissor,
	domain.MovePaper:   domain.MoveRock,
	domain.MoveScissor: domain.MovePaper,
}

// Resolve decides move a against move b.
func Resolve(a, b domain.Move) Outcome {
	if a == b {
		return OutcomeTie
	}
	if beats[a] == b {
		return OutcomeWin
	}
	return OutcomeLose
}
