package game

import (
	"time"

	"rps_challenge/internal/domain"
)

// scoreRound applies the resolver to a full pair of moves and updates the
// cumulative scores. It does not check whose turn it was; that is the state
// machine's job.
func scoreRound(st *domain.Match, challengerMove, challengedMove domain.Move, now time.Time) domain.RoundRecord {
	rec := domain.RoundRecord{
		MatchID:        st.ID,
		Round:          st.CurrentRound,
		ChallengerID:   st.Challenger.ID,
		ChallengedID:   st.Challenged.ID,
		ChallengerMove: challengerMove,
		ChallengedMove: challengedMove,
		ResolvedAt:     now,
	}

	switch Resolve(challengerMove, challengedMove) {
	case OutcomeWin:
		st.ChallengerScore++
		id := st.Challenger.ID
		rec.WinnerID = &id
	case OutcomeLose:
		st.ChallengedScore++
		id := st.Challenged.ID
		rec.WinnerID = &id
	}
	return rec
}

// completeOrAdvance reports true when the last round was just resolved.
// Otherwise it opens the next round; the challenger always moves first.
func completeOrAdvance(st *domain.Match) bool {
	if st.CurrentRound >= st.TotalRounds {
		return true
	}
	st.CurrentRound++
	st.CurrentTurn = st.Challenger.ID
	return false
}
