package game

import "errors"

var (
	ErrAlreadyChallenged = errors.New("a challenge between these players is already open")
	ErrSelfChallenge     = errors.New("cannot challenge yourself")
	ErrInvalidRoundCount = errors.New("rounds must be between 1 and 10")
	ErrNotFound          = errors.New("match not found")
	ErrWrongTurn         = errors.New("not your turn")
	ErrAlreadyMoved      = errors.New("move already recorded for this round")
	ErrMatchNotActive    = errors.New("match is not active")
	ErrMatchNotPending   = errors.New("match is not pending")
	ErrNotChallenged     = errors.New("only the challenged player can answer")
	ErrNotParticipant    = errors.New("not a participant of this match")
	ErrInvalidMove       = errors.New("invalid move")
)
