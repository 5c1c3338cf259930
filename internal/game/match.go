package game

import (
	"fmt"
	"sync"
	"time"

	"rps_challenge/internal/domain"
)

// Match owns the mutable state of one challenge. Every transition method
// expects the caller to hold mu.
type Match struct {
	mu      sync.Mutex
	state   domain.Match
	pending map[int64]domain.Move
	rounds  []domain.RoundRecord

	// emitted is closed once the last reserved outcome has been persisted
	// and announced. nil until the first round resolves.
	emitted chan struct{}
}

func newMatch(id string, c Challenge, now time.Time, ttl time.Duration) *Match {
	return &Match{
		state: domain.Match{
			ID:           id,
			Challenger:   c.Challenger,
			Challenged:   c.Challenged,
			TotalRounds:  c.Rounds,
			CurrentRound: 1,
			Status:       domain.MatchPending,
			Chat:         c.Chat,
			RematchOf:    c.RematchOf,
			CreatedAt:    now,
			ExpiresAt:    now.Add(ttl),
		},
		pending: make(map[int64]domain.Move, 2),
	}
}

// ID never changes after creation and can be read without the lock.
func (m *Match) ID() string {
	return m.state.ID
}

// Snapshot returns a copy of the current state.
func (m *Match) Snapshot() domain.Match {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Rounds returns a copy of the resolved rounds.
func (m *Match) Rounds() []domain.RoundRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.RoundRecord(nil), m.rounds...)
}

func (m *Match) accept(userID int64) error {
	if m.state.Status != domain.MatchPending {
		return ErrMatchNotPending
	}
	if userID != m.state.Challenged.ID {
		return ErrNotChallenged
	}
	m.state.Status = domain.MatchActive
	m.state.CurrentTurn = m.state.Challenger.ID
	return nil
}

func (m *Match) decline(userID int64, now time.Time) error {
	if m.state.Status != domain.MatchPending {
		return ErrMatchNotPending
	}
	if userID != m.state.Challenged.ID {
		return ErrNotChallenged
	}
	m.finish(domain.MatchDeclined, now)
	return nil
}

func (m *Match) expire(now time.Time) error {
	if m.state.Status != domain.MatchPending {
		return ErrMatchNotPending
	}
	m.finish(domain.MatchExpired, now)
	return nil
}

// submit records a move. The second move of a round resolves it and the
// resolved record is returned.
func (m *Match) submit(userID int64, move domain.Move, now time.Time) (*domain.RoundRecord, error) {
	if m.state.Status != domain.MatchActive {
		return nil, ErrMatchNotActive
	}
	if _, ok := m.pending[userID]; ok {
		return nil, ErrAlreadyMoved
	}
	if userID != m.state.CurrentTurn {
		return nil, ErrWrongTurn
	}
	if !move.Valid() {
		return nil, ErrInvalidMove
	}

	m.pending[userID] = move
	if len(m.pending) < 2 {
		opp, _ := m.state.Opponent(userID)
		m.state.CurrentTurn = opp.ID
		m.state.PendingMover = userID
		return nil, nil
	}

	rec := scoreRound(&m.state, m.pending[m.state.Challenger.ID], m.pending[m.state.Challenged.ID], now)
	m.rounds = append(m.rounds, rec)
	clear(m.pending)
	m.state.PendingMover = 0

	if completeOrAdvance(&m.state) {
		m.finish(domain.MatchCompleted, now)
	}
	return &rec, nil
}

// reserveEmit takes the next place in the match's outcome order. The caller
// must hold mu. Before persisting or notifying it waits on prev (nil means
// nothing is ahead), and calls done when finished.
func (m *Match) reserveEmit() (prev <-chan struct{}, done func()) {
	next := make(chan struct{})
	prev, m.emitted = m.emitted, next
	return prev, func() { close(next) }
}

func (m *Match) finish(status domain.MatchStatus, now time.Time) {
	m.state.Status = status
	m.state.CurrentTurn = 0
	m.state.PendingMover = 0
	m.state.FinishedAt = now
	clear(m.pending)
}

// result is only meaningful once the match is completed.
func (m *Match) result() domain.MatchResult {
	return domain.MatchResult{
		Match:  m.state,
		Rounds: append([]domain.RoundRecord(nil), m.rounds...),
	}
}

// checkInvariants validates the scoring invariants against the resolved rounds.
func (m *Match) checkInvariants() error {
	st := &m.state
	resolved := len(m.rounds)
	if st.ChallengerScore < 0 || st.ChallengedScore < 0 {
		return fmt.Errorf("negative score %d-%d", st.ChallengerScore, st.ChallengedScore)
	}
	if st.CurrentRound < 1 || st.CurrentRound > st.TotalRounds {
		return fmt.Errorf("current round %d outside 1..%d", st.CurrentRound, st.TotalRounds)
	}
	ties := domain.MatchResult{Rounds: m.rounds}.Ties()
	if st.ChallengerScore+st.ChallengedScore+ties != resolved {
		return fmt.Errorf("scores %d-%d with %d ties do not add up to %d rounds",
			st.ChallengerScore, st.ChallengedScore, ties, resolved)
	}
	if st.Status == domain.MatchCompleted {
		if resolved != st.TotalRounds {
			return fmt.Errorf("completed after %d of %d rounds", resolved, st.TotalRounds)
		}
	} else if resolved != st.CurrentRound-1 {
		return fmt.Errorf("round %d in progress with %d rounds resolved", st.CurrentRound, resolved)
	}
	if len(m.pending) > 1 {
		return fmt.Errorf("%d pending moves", len(m.pending))
	}
	return nil
}
