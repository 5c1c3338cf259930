package game

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"rps_challenge/internal/domain"
)

type fakeTimer struct {
	mu    sync.Mutex
	armed map[string]func()
	at    map[string]time.Time
}

func newFakeTimer() *fakeTimer {
	return &fakeTimer{armed: map[string]func(){}, at: map[string]time.Time{}}
}

func (f *fakeTimer) Schedule(key string, at time.Time, fn func()) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.armed[key] = fn
	f.at[key] = at
	return nil
}

func (f *fakeTimer) Cancel(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.armed, key)
	delete(f.at, key)
}

// fire runs the callback for key as the timer goroutine would.
func (f *fakeTimer) fire(key string) bool {
	f.mu.Lock()
	fn, ok := f.armed[key]
	delete(f.armed, key)
	f.mu.Unlock()
	if ok {
		fn()
	}
	return ok
}

func (f *fakeTimer) isArmed(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.armed[key]
	return ok
}

type fakeStore struct {
	mu      sync.Mutex
	rounds  []domain.RoundRecord
	results []domain.MatchResult
	fail    bool
}

func (s *fakeStore) RecordRound(_ context.Context, rec domain.RoundRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("db down")
	}
	s.rounds = append(s.rounds, rec)
	return nil
}

func (s *fakeStore) CommitMatchResult(_ context.Context, res domain.MatchResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("db down")
	}
	s.results = append(s.results, res)
	return nil
}

type fakeEvaluator struct {
	calls int
}

func (f *fakeEvaluator) Evaluate(_ context.Context, res domain.MatchResult) domain.Evaluation {
	f.calls++
	return domain.Evaluation{MatchID: res.Match.ID}
}

type recorder struct {
	mu        sync.Mutex
	expired   []string
	rounds    []domain.RoundRecord
	completed []domain.MatchResult
}

func (r *recorder) OnChallengeExpired(m domain.Match) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.expired = append(r.expired, m.ID)
}

func (r *recorder) OnRoundResolved(_ domain.Match, round domain.RoundRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rounds = append(r.rounds, round)
}

func (r *recorder) OnMatchCompleted(_ domain.Match, res domain.MatchResult, _ domain.Evaluation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed = append(r.completed, res)
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type harness struct {
	engine *Engine
	timer  *fakeTimer
	store  *fakeStore
	eval   *fakeEvaluator
	events *recorder
	clock  *clock
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		timer:  newFakeTimer(),
		store:  &fakeStore{},
		eval:   &fakeEvaluator{},
		events: &recorder{},
		clock:  &clock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)},
	}
	h.engine = NewEngine(h.store, h.eval, h.timer,
		WithNotifier(h.events),
		WithClock(h.clock.Now),
		WithChallengeTTL(time.Minute),
		WithRetiredTTL(10*time.Minute),
	)
	return h
}

var (
	alice = domain.Participant{ID: 1, Name: "alice"}
	bob   = domain.Participant{ID: 2, Name: "bob"}
	carol = domain.Participant{ID: 3, Name: "carol"}
)

func (h *harness) active(t *testing.T, rounds int) domain.Match {
	t.Helper()
	ctx := context.Background()
	m, err := h.engine.CreateChallenge(ctx, Challenge{Challenger: alice, Challenged: bob, Rounds: rounds})
	if err != nil {
		t.Fatalf("CreateChallenge: %v", err)
	}
	m, err = h.engine.AcceptChallenge(ctx, m.ID, bob.ID)
	if err != nil {
		t.Fatalf("AcceptChallenge: %v", err)
	}
	return m
}

func (h *harness) play(t *testing.T, id string, a, b domain.Move) MoveResult {
	t.Helper()
	ctx := context.Background()
	if _, err := h.engine.SubmitMove(ctx, id, alice.ID, a); err != nil {
		t.Fatalf("challenger move: %v", err)
	}
	res, err := h.engine.SubmitMove(ctx, id, bob.ID, b)
	if err != nil {
		t.Fatalf("challenged move: %v", err)
	}
	return res
}

func TestResolve(t *testing.T) {
	cases := []struct {
		a, b domain.Move
		want Outcome
	}{
		{domain.MoveRock, domain.MoveScissor, OutcomeWin},
		{domain.MoveRock, domain.MovePaper, OutcomeLose},
		{domain.MovePaper, domain.MoveRock, OutcomeWin},
		{domain.MovePaper, domain.MoveScissor, OutcomeLose},
		{domain.MoveScissor, domain.MovePaper, OutcomeWin},
		{domain.MoveScissor, domain.MoveRock, OutcomeLose},
		{domain.MoveRock, domain.MoveRock, OutcomeTie},
		{domain.MoveScissor, domain.MoveScissor, OutcomeTie},
	}
	for _, tc := range cases {
		if got := Resolve(tc.a, tc.b); got != tc.want {
			t.Fatalf("Resolve(%s,%s) = %s; want %s", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestCreateChallengeValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	cases := []struct {
		name string
		c    Challenge
		want error
	}{
		{"self", Challenge{Challenger: alice, Challenged: alice, Rounds: 3}, ErrSelfChallenge},
		{"zero rounds", Challenge{Challenger: alice, Challenged: bob, Rounds: 0}, ErrInvalidRoundCount},
		{"too many rounds", Challenge{Challenger: alice, Challenged: bob, Rounds: 11}, ErrInvalidRoundCount},
	}
	for _, tc := range cases {
		if _, err := h.engine.CreateChallenge(ctx, tc.c); !errors.Is(err, tc.want) {
			t.Fatalf("%s: err = %v; want %v", tc.name, err, tc.want)
		}
	}
	if n := h.engine.Registry().Len(); n != 0 {
		t.Fatalf("registry holds %d matches after rejected creates", n)
	}
}

func TestCreateChallengeInitialState(t *testing.T) {
	h := newHarness(t)
	m, err := h.engine.CreateChallenge(context.Background(), Challenge{Challenger: alice, Challenged: bob, Rounds: 3})
	if err != nil {
		t.Fatalf("CreateChallenge: %v", err)
	}
	if m.Status != domain.MatchPending || m.CurrentRound != 1 || m.ChallengerScore != 0 || m.ChallengedScore != 0 {
		t.Fatalf("unexpected initial state %+v", m)
	}
	if !m.ExpiresAt.Equal(h.clock.Now().Add(time.Minute)) {
		t.Fatalf("expires at %v", m.ExpiresAt)
	}
	if !h.timer.isArmed(m.ID) {
		t.Fatal("expiry not armed")
	}
}

func TestOneOpenChallengePerPair(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if _, err := h.engine.CreateChallenge(ctx, Challenge{Challenger: alice, Challenged: bob, Rounds: 3}); err != nil {
		t.Fatalf("first create: %v", err)
	}
	// reversed roles collide too
	if _, err := h.engine.CreateChallenge(ctx, Challenge{Challenger: bob, Challenged: alice, Rounds: 1}); !errors.Is(err, ErrAlreadyChallenged) {
		t.Fatalf("err = %v; want ErrAlreadyChallenged", err)
	}
	if _, err := h.engine.CreateChallenge(ctx, Challenge{Challenger: alice, Challenged: carol, Rounds: 1}); err != nil {
		t.Fatalf("other pair: %v", err)
	}
}

func TestConcurrentCreateSamePair(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	const n = 32
	var wg sync.WaitGroup
	var mu sync.Mutex
	ok, busy := 0, 0
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c := Challenge{Challenger: alice, Challenged: bob, Rounds: 1}
			if i%2 == 1 {
				c.Challenger, c.Challenged = bob, alice
			}
			_, err := h.engine.CreateChallenge(ctx, c)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, ErrAlreadyChallenged):
				busy++
			default:
				t.Errorf("unexpected error %v", err)
			}
		}(i)
	}
	wg.Wait()
	if ok != 1 || busy != n-1 {
		t.Fatalf("ok=%d busy=%d", ok, busy)
	}
}

func TestAcceptAndDecline(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	m, _ := h.engine.CreateChallenge(ctx, Challenge{Challenger: alice, Challenged: bob, Rounds: 3})
	if _, err := h.engine.AcceptChallenge(ctx, m.ID, alice.ID); !errors.Is(err, ErrNotChallenged) {
		t.Fatalf("challenger accept err = %v", err)
	}
	if err := h.engine.DeclineChallenge(ctx, m.ID, carol.ID); !errors.Is(err, ErrNotChallenged) {
		t.Fatalf("outsider decline err = %v", err)
	}
	got, err := h.engine.AcceptChallenge(ctx, m.ID, bob.ID)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if got.Status != domain.MatchActive || got.CurrentTurn != alice.ID {
		t.Fatalf("after accept %+v", got)
	}
	if h.timer.isArmed(m.ID) {
		t.Fatal("expiry still armed after accept")
	}
	if _, err := h.engine.AcceptChallenge(ctx, m.ID, bob.ID); !errors.Is(err, ErrMatchNotPending) {
		t.Fatalf("second accept err = %v", err)
	}
	if err := h.engine.DeclineChallenge(ctx, m.ID, bob.ID); !errors.Is(err, ErrMatchNotPending) {
		t.Fatalf("decline active err = %v", err)
	}
}

func TestDeclineFreesPair(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	m, _ := h.engine.CreateChallenge(ctx, Challenge{Challenger: alice, Challenged: bob, Rounds: 3})
	if err := h.engine.DeclineChallenge(ctx, m.ID, bob.ID); err != nil {
		t.Fatalf("decline: %v", err)
	}
	got, err := h.engine.Match(m.ID)
	if err != nil || got.Status != domain.MatchDeclined {
		t.Fatalf("declined match = %+v, %v", got, err)
	}
	if h.engine.Registry().Len() != 0 {
		t.Fatal("declined match still live")
	}
	if _, err := h.engine.AcceptChallenge(ctx, m.ID, bob.ID); !errors.Is(err, ErrMatchNotPending) {
		t.Fatalf("accept declined err = %v", err)
	}
	if _, err := h.engine.CreateChallenge(ctx, Challenge{Challenger: bob, Challenged: alice, Rounds: 1}); err != nil {
		t.Fatalf("create after decline: %v", err)
	}
}

func TestTieThenWin(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	m := h.active(t, 2)

	res, err := h.engine.SubmitMove(ctx, m.ID, alice.ID, domain.MoveRock)
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if res.Round != nil || res.Match.CurrentTurn != bob.ID || res.Match.PendingMover != alice.ID {
		t.Fatalf("after first move %+v", res)
	}

	res, err = h.engine.SubmitMove(ctx, m.ID, bob.ID, domain.MoveRock)
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if res.Round == nil || res.Round.WinnerID != nil {
		t.Fatalf("round 1 should be a tie, got %+v", res.Round)
	}
	if res.Match.CurrentRound != 2 || res.Match.CurrentTurn != alice.ID || res.Match.ChallengerScore != 0 || res.Match.ChallengedScore != 0 {
		t.Fatalf("after round 1 %+v", res.Match)
	}

	res = h.play(t, m.ID, domain.MovePaper, domain.MoveScissor)
	if !res.Completed || res.Evaluation == nil {
		t.Fatalf("match should be complete: %+v", res)
	}
	if res.Match.ChallengedScore != 1 || res.Match.ChallengerScore != 0 || res.Match.Status != domain.MatchCompleted {
		t.Fatalf("final %+v", res.Match)
	}
	if w := res.Match.Winner(); w == nil || *w != bob.ID {
		t.Fatalf("winner = %v", w)
	}

	if len(h.store.rounds) != 2 || len(h.store.results) != 1 {
		t.Fatalf("persisted %d rounds, %d results", len(h.store.rounds), len(h.store.results))
	}
	if len(h.store.results[0].Rounds) != 2 {
		t.Fatalf("committed %d rounds", len(h.store.results[0].Rounds))
	}
	if h.eval.calls != 1 || len(h.events.completed) != 1 || len(h.events.rounds) != 2 {
		t.Fatalf("eval=%d completed=%d rounds=%d", h.eval.calls, len(h.events.completed), len(h.events.rounds))
	}
	if h.engine.Registry().Len() != 0 {
		t.Fatal("completed match still live")
	}
}

func TestSingleRoundCompletesImmediately(t *testing.T) {
	h := newHarness(t)
	m := h.active(t, 1)

	res := h.play(t, m.ID, domain.MoveRock, domain.MoveScissor)
	if !res.Completed || res.Match.ChallengerScore != 1 || res.Match.CurrentRound != 1 {
		t.Fatalf("result %+v", res.Match)
	}
	if w := res.Match.Winner(); w == nil || *w != alice.ID {
		t.Fatalf("winner = %v", w)
	}
}

func TestAllTiesIsDraw(t *testing.T) {
	h := newHarness(t)
	m := h.active(t, 3)
	var res MoveResult
	for i := 0; i < 3; i++ {
		res = h.play(t, m.ID, domain.MovePaper, domain.MovePaper)
	}
	if !res.Completed || res.Match.Winner() != nil {
		t.Fatalf("expected a drawn match, got %+v", res.Match)
	}
	if got := res.Match.ResultFor(alice.ID); got != domain.GameResultDraw {
		t.Fatalf("ResultFor = %s", got)
	}
}

func TestMixedRoundsLevelScoreIsDraw(t *testing.T) {
	h := newHarness(t)
	m := h.active(t, 3)

	h.play(t, m.ID, domain.MoveRock, domain.MoveScissor)
	h.play(t, m.ID, domain.MovePaper, domain.MovePaper)
	res := h.play(t, m.ID, domain.MoveScissor, domain.MoveRock)

	if !res.Completed {
		t.Fatalf("match not completed: %+v", res.Match)
	}
	if res.Match.ChallengerScore != 1 || res.Match.ChallengedScore != 1 {
		t.Fatalf("scores %d-%d, want 1-1", res.Match.ChallengerScore, res.Match.ChallengedScore)
	}
	if w := res.Match.Winner(); w != nil {
		t.Fatalf("winner = %d, want none", *w)
	}
	for _, id := range []int64{alice.ID, bob.ID} {
		if got := res.Match.ResultFor(id); got != domain.GameResultDraw {
			t.Fatalf("ResultFor(%d) = %s", id, got)
		}
	}
	if len(h.store.results) != 1 || len(h.store.results[0].Rounds) != 3 {
		t.Fatalf("committed %+v", h.store.results)
	}
}

func TestTurnOrderViolationsLeaveStateUntouched(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	m := h.active(t, 3)

	if _, err := h.engine.SubmitMove(ctx, m.ID, bob.ID, domain.MoveRock); !errors.Is(err, ErrWrongTurn) {
		t.Fatalf("out of turn err = %v", err)
	}
	if _, err := h.engine.SubmitMove(ctx, m.ID, carol.ID, domain.MoveRock); !errors.Is(err, ErrWrongTurn) {
		t.Fatalf("outsider err = %v", err)
	}
	before, _ := h.engine.Match(m.ID)
	if before.CurrentTurn != alice.ID || before.PendingMover != 0 {
		t.Fatalf("state changed by rejected moves: %+v", before)
	}

	if _, err := h.engine.SubmitMove(ctx, m.ID, alice.ID, domain.MoveRock); err != nil {
		t.Fatalf("move: %v", err)
	}
	if _, err := h.engine.SubmitMove(ctx, m.ID, alice.ID, domain.MovePaper); !errors.Is(err, ErrAlreadyMoved) {
		t.Fatalf("repeat err = %v", err)
	}
	if _, err := h.engine.SubmitMove(ctx, m.ID, bob.ID, domain.Move("lizard")); !errors.Is(err, ErrInvalidMove) {
		t.Fatalf("invalid move err = %v", err)
	}
	after, _ := h.engine.Match(m.ID)
	if after.CurrentTurn != bob.ID || after.PendingMover != alice.ID || after.CurrentRound != 1 {
		t.Fatalf("state after rejections %+v", after)
	}
}

func TestDuplicateMoveDelivery(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	m := h.active(t, 2)

	if _, err := h.engine.SubmitMove(ctx, m.ID, alice.ID, domain.MoveRock); err != nil {
		t.Fatal(err)
	}
	// the same move delivered twice
	if _, err := h.engine.SubmitMove(ctx, m.ID, alice.ID, domain.MoveRock); !errors.Is(err, ErrAlreadyMoved) {
		t.Fatalf("err = %v; want ErrAlreadyMoved", err)
	}
	res, err := h.engine.SubmitMove(ctx, m.ID, bob.ID, domain.MoveScissor)
	if err != nil {
		t.Fatal(err)
	}
	if res.Round == nil || res.Round.ChallengerMove != domain.MoveRock || res.Match.ChallengerScore != 1 {
		t.Fatalf("round after duplicate = %+v, match %+v", res.Round, res.Match)
	}
}

func TestMoveBeforeAcceptAndAfterFinish(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	p, _ := h.engine.CreateChallenge(ctx, Challenge{Challenger: alice, Challenged: carol, Rounds: 1})
	if _, err := h.engine.SubmitMove(ctx, p.ID, alice.ID, domain.MoveRock); !errors.Is(err, ErrMatchNotActive) {
		t.Fatalf("pending move err = %v", err)
	}

	m := h.active(t, 1)
	h.play(t, m.ID, domain.MoveRock, domain.MovePaper)
	if _, err := h.engine.SubmitMove(ctx, m.ID, alice.ID, domain.MoveRock); !errors.Is(err, ErrMatchNotActive) {
		t.Fatalf("late move err = %v", err)
	}
	if _, err := h.engine.SubmitMove(ctx, "missing", alice.ID, domain.MoveRock); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown match err = %v", err)
	}
}

func TestExpiry(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	m, _ := h.engine.CreateChallenge(ctx, Challenge{Challenger: alice, Challenged: bob, Rounds: 3})
	h.clock.Advance(time.Minute)
	if !h.timer.fire(m.ID) {
		t.Fatal("no expiry armed")
	}

	got, _ := h.engine.Match(m.ID)
	if got.Status != domain.MatchExpired {
		t.Fatalf("status = %s", got.Status)
	}
	if len(h.events.expired) != 1 || h.events.expired[0] != m.ID {
		t.Fatalf("expired events %v", h.events.expired)
	}
	if _, err := h.engine.AcceptChallenge(ctx, m.ID, bob.ID); !errors.Is(err, ErrMatchNotPending) {
		t.Fatalf("accept after expiry err = %v", err)
	}
	if len(h.store.results) != 0 || h.eval.calls != 0 {
		t.Fatal("expired match was committed or evaluated")
	}
}

func TestExpiryAfterAcceptIsNoop(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	m, _ := h.engine.CreateChallenge(ctx, Challenge{Challenger: alice, Challenged: bob, Rounds: 3})
	h.timer.mu.Lock()
	fn := h.timer.armed[m.ID]
	h.timer.mu.Unlock()

	if _, err := h.engine.AcceptChallenge(ctx, m.ID, bob.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}
	// the timer already fired and lost the race for the lock
	fn()

	got, _ := h.engine.Match(m.ID)
	if got.Status != domain.MatchActive {
		t.Fatalf("status = %s", got.Status)
	}
	if len(h.events.expired) != 0 {
		t.Fatal("expired notification for an accepted match")
	}
}

func TestAcceptRacingExpiry(t *testing.T) {
	for i := 0; i < 50; i++ {
		h := newHarness(t)
		ctx := context.Background()
		m, _ := h.engine.CreateChallenge(ctx, Challenge{Challenger: alice, Challenged: bob, Rounds: 1})

		var wg sync.WaitGroup
		var acceptErr error
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, acceptErr = h.engine.AcceptChallenge(ctx, m.ID, bob.ID)
		}()
		go func() {
			defer wg.Done()
			h.engine.expire(m.ID)
		}()
		wg.Wait()

		got, _ := h.engine.Match(m.ID)
		switch got.Status {
		case domain.MatchActive:
			if acceptErr != nil || len(h.events.expired) != 0 {
				t.Fatalf("active but accept err=%v expired=%v", acceptErr, h.events.expired)
			}
		case domain.MatchExpired:
			if !errors.Is(acceptErr, ErrMatchNotPending) || len(h.events.expired) != 1 {
				t.Fatalf("expired but accept err=%v", acceptErr)
			}
		default:
			t.Fatalf("status = %s", got.Status)
		}
	}
}

func TestSweepExpiresOverdueAndPrunes(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	m, _ := h.engine.CreateChallenge(ctx, Challenge{Challenger: alice, Challenged: bob, Rounds: 3})
	h.timer.Cancel(m.ID) // lost timer

	h.engine.Sweep()
	if got, _ := h.engine.Match(m.ID); got.Status != domain.MatchPending {
		t.Fatalf("swept too early: %s", got.Status)
	}

	h.clock.Advance(2 * time.Minute)
	h.engine.Sweep()
	if got, _ := h.engine.Match(m.ID); got.Status != domain.MatchExpired {
		t.Fatalf("status = %s", got.Status)
	}

	h.clock.Advance(11 * time.Minute)
	h.engine.Sweep()
	if _, err := h.engine.Match(m.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("tombstone not pruned: %v", err)
	}
}

func TestRematch(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	m := h.active(t, 3)

	if _, err := h.engine.RequestRematch(ctx, m.ID, bob.ID); !errors.Is(err, ErrAlreadyChallenged) {
		t.Fatalf("rematch of live match err = %v", err)
	}
	for i := 0; i < 3; i++ {
		h.play(t, m.ID, domain.MoveRock, domain.MoveScissor)
	}

	if _, err := h.engine.RequestRematch(ctx, m.ID, carol.ID); !errors.Is(err, ErrNotParticipant) {
		t.Fatalf("outsider rematch err = %v", err)
	}
	r, err := h.engine.RequestRematch(ctx, m.ID, bob.ID)
	if err != nil {
		t.Fatalf("rematch: %v", err)
	}
	if r.ID == m.ID || r.Challenger.ID != bob.ID || r.Challenged.ID != alice.ID || r.TotalRounds != 3 {
		t.Fatalf("rematch %+v", r)
	}
	if r.Status != domain.MatchPending || r.CurrentRound != 1 || r.ChallengerScore != 0 || r.RematchOf != m.ID {
		t.Fatalf("rematch state %+v", r)
	}
	old, _ := h.engine.Match(m.ID)
	if old.Status != domain.MatchCompleted || old.ChallengerScore != 3 {
		t.Fatalf("original mutated: %+v", old)
	}
	if _, err := h.engine.RequestRematch(ctx, m.ID, alice.ID); !errors.Is(err, ErrAlreadyChallenged) {
		t.Fatalf("second rematch err = %v", err)
	}
}

func TestPersistenceFailureKeepsResult(t *testing.T) {
	h := newHarness(t)
	h.store.fail = true
	m := h.active(t, 1)

	res := h.play(t, m.ID, domain.MoveScissor, domain.MovePaper)
	if !res.Completed || res.Match.ChallengerScore != 1 {
		t.Fatalf("result %+v", res.Match)
	}
	if h.eval.calls != 1 || len(h.events.completed) != 1 {
		t.Fatal("completion pipeline stopped on persistence failure")
	}
	got, _ := h.engine.Match(m.ID)
	if got.Status != domain.MatchCompleted {
		t.Fatalf("status = %s", got.Status)
	}
}

func TestInvariantsHoldThroughMatch(t *testing.T) {
	m := newMatch("x", Challenge{Challenger: alice, Challenged: bob, Rounds: 4}, time.Now(), time.Minute)
	if err := m.accept(bob.ID); err != nil {
		t.Fatal(err)
	}
	moves := [][2]domain.Move{
		{domain.MoveRock, domain.MoveRock},
		{domain.MoveRock, domain.MovePaper},
		{domain.MoveScissor, domain.MovePaper},
		{domain.MovePaper, domain.MoveRock},
	}
	for i, mv := range moves {
		if _, err := m.submit(alice.ID, mv[0], time.Now()); err != nil {
			t.Fatalf("round %d: %v", i+1, err)
		}
		if err := m.checkInvariants(); err != nil {
			t.Fatalf("round %d half: %v", i+1, err)
		}
		if _, err := m.submit(bob.ID, mv[1], time.Now()); err != nil {
			t.Fatalf("round %d: %v", i+1, err)
		}
		if err := m.checkInvariants(); err != nil {
			t.Fatalf("round %d: %v", i+1, err)
		}
	}
	if m.state.Status != domain.MatchCompleted || m.state.ChallengerScore != 2 || m.state.ChallengedScore != 1 {
		t.Fatalf("final %+v", m.state)
	}
}

func TestIsUserError(t *testing.T) {
	if !IsUserError(ErrWrongTurn) {
		t.Fatal("ErrWrongTurn should be a user error")
	}
	if IsUserError(errors.New("boom")) {
		t.Fatal("arbitrary error reported as user error")
	}
}

// gatedStore holds RecordRound for round 1 until release is closed.
type gatedStore struct {
	entered chan struct{}
	release chan struct{}
}

func (s *gatedStore) RecordRound(_ context.Context, rec domain.RoundRecord) error {
	if rec.Round == 1 {
		close(s.entered)
		<-s.release
	}
	return nil
}

func (s *gatedStore) CommitMatchResult(context.Context, domain.MatchResult) error { return nil }

type orderRecorder struct {
	mu     sync.Mutex
	events []string
}

func (o *orderRecorder) add(ev string) {
	o.mu.Lock()
	o.events = append(o.events, ev)
	o.mu.Unlock()
}

func (o *orderRecorder) OnChallengeExpired(domain.Match) { o.add("expired") }

func (o *orderRecorder) OnRoundResolved(_ domain.Match, r domain.RoundRecord) {
	o.add(fmt.Sprintf("round%d", r.Round))
}

func (o *orderRecorder) OnMatchCompleted(domain.Match, domain.MatchResult, domain.Evaluation) {
	o.add("completed")
}

func TestSlowPersistenceKeepsNotificationOrder(t *testing.T) {
	store := &gatedStore{entered: make(chan struct{}), release: make(chan struct{})}
	order := &orderRecorder{}
	e := NewEngine(store, nil, newFakeTimer(), WithNotifier(order))
	ctx := context.Background()

	m, err := e.CreateChallenge(ctx, Challenge{Challenger: alice, Challenged: bob, Rounds: 2})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.AcceptChallenge(ctx, m.ID, bob.ID); err != nil {
		t.Fatal(err)
	}

	if _, err := e.SubmitMove(ctx, m.ID, alice.ID, domain.MoveRock); err != nil {
		t.Fatal(err)
	}
	first := make(chan error, 1)
	go func() {
		_, err := e.SubmitMove(ctx, m.ID, bob.ID, domain.MoveScissor)
		first <- err
	}()
	<-store.entered

	// round 1 is stuck in the store; play round 2 to the end
	if _, err := e.SubmitMove(ctx, m.ID, alice.ID, domain.MovePaper); err != nil {
		t.Fatal(err)
	}
	last := make(chan error, 1)
	go func() {
		_, err := e.SubmitMove(ctx, m.ID, bob.ID, domain.MoveRock)
		last <- err
	}()

	select {
	case <-last:
		t.Fatal("final round announced while round 1 was still being recorded")
	case <-time.After(50 * time.Millisecond):
	}
	close(store.release)

	for _, ch := range []chan error{first, last} {
		select {
		case err := <-ch:
			if err != nil {
				t.Fatal(err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("SubmitMove did not return")
		}
	}

	order.mu.Lock()
	defer order.mu.Unlock()
	want := []string{"round1", "round2", "completed"}
	if fmt.Sprint(order.events) != fmt.Sprint(want) {
		t.Fatalf("notification order %v, want %v", order.events, want)
	}
}
