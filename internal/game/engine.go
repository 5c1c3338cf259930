package game

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"rps_challenge/internal/domain"
	"rps_challenge/internal/logger"
	"rps_challenge/internal/metrics"
)

const (
	DefaultChallengeTTL = 5 * time.Minute
	DefaultRetiredTTL   = 30 * time.Minute
	persistTimeout      = 5 * time.Second
)

// Store is the durable side of a match. Both calls must be idempotent on
// their own key (match id + round, match id).
type Store interface {
	RecordRound(ctx context.Context, rec domain.RoundRecord) error
	CommitMatchResult(ctx context.Context, res domain.MatchResult) error
}

// Evaluator runs once per completed match and reports XP, levels and unlocks.
// It handles its own persistence failures.
type Evaluator interface {
	Evaluate(ctx context.Context, res domain.MatchResult) domain.Evaluation
}

// Timer arms and cancels one-shot callbacks by key.
type Timer interface {
	Schedule(key string, at time.Time, fn func()) error
	Cancel(key string)
}

// Notifier receives state transitions the engine produces on its own.
// Callbacks run after the match lock is released. For a single match they
// arrive in order, with OnMatchCompleted last.
type Notifier interface {
	OnChallengeExpired(m domain.Match)
	OnRoundResolved(m domain.Match, round domain.RoundRecord)
	OnMatchCompleted(m domain.Match, res domain.MatchResult, eval domain.Evaluation)
}

// Notifiers fans every callback out in order.
type Notifiers []Notifier

func (ns Notifiers) OnChallengeExpired(m domain.Match) {
	for _, n := range ns {
		n.OnChallengeExpired(m)
	}
}

func (ns Notifiers) OnRoundResolved(m domain.Match, round domain.RoundRecord) {
	for _, n := range ns {
		n.OnRoundResolved(m, round)
	}
}

func (ns Notifiers) OnMatchCompleted(m domain.Match, res domain.MatchResult, eval domain.Evaluation) {
	for _, n := range ns {
		n.OnMatchCompleted(m, res, eval)
	}
}

// MoveResult is returned by SubmitMove.
type MoveResult struct {
	Match domain.Match
	// Round is set when this move resolved a round.
	Round      *domain.RoundRecord
	Completed  bool
	Evaluation *domain.Evaluation
}

type Option func(*Engine)

func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

func WithChallengeTTL(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.ttl = d
		}
	}
}

func WithRetiredTTL(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.retiredTTL = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// Engine exposes the challenge operations to presentation code.
type Engine struct {
	registry   *Registry
	store      Store
	evaluator  Evaluator
	timer      Timer
	notifier   Notifier
	ttl        time.Duration
	retiredTTL time.Duration
	now        func() time.Time
	log        *slog.Logger
}

func NewEngine(store Store, evaluator Evaluator, timer Timer, opts ...Option) *Engine {
	e := &Engine{
		registry:   NewRegistry(),
		store:      store,
		evaluator:  evaluator,
		timer:      timer,
		notifier:   Notifiers(nil),
		ttl:        DefaultChallengeTTL,
		retiredTTL: DefaultRetiredTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = logger.With("component", "engine")
	}
	if e.notifier == nil {
		e.notifier = Notifiers(nil)
	}
	return e
}

// Registry exposes the match table, mostly for tests and diagnostics.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// CreateChallenge registers a pending match and arms its expiry.
func (e *Engine) CreateChallenge(ctx context.Context, c Challenge) (domain.Match, error) {
	now := e.now()
	m, err := e.registry.Create(c, now, e.ttl)
	if err != nil {
		return domain.Match{}, err
	}
	snap := m.Snapshot()
	log := logger.ForMatch(e.log, snap.ID)

	metrics.ChallengesCreated.Inc()
	metrics.ActiveMatches.Set(float64(e.registry.Len()))

	id := snap.ID
	if err := e.timer.Schedule(id, snap.ExpiresAt, func() { e.expire(id) }); err != nil {
		// the periodic sweep still expires it
		log.Error("failed to arm expiry", "error", err)
	}

	log.Info("challenge created",
		"challenger", snap.Challenger.ID,
		"challenged", snap.Challenged.ID,
		"rounds", snap.TotalRounds,
		"rematch_of", snap.RematchOf,
	)
	return snap, nil
}

// AcceptChallenge activates a pending match. Only the challenged player may accept.
func (e *Engine) AcceptChallenge(ctx context.Context, id string, userID int64) (domain.Match, error) {
	m, err := e.live(id, ErrMatchNotPending)
	if err != nil {
		return domain.Match{}, err
	}

	m.mu.Lock()
	err = m.accept(userID)
	snap := m.state
	m.mu.Unlock()

	if err != nil {
		logger.ForMatch(e.log, id).Debug("accept rejected", "user", userID, "error", err)
		return domain.Match{}, err
	}

	e.timer.Cancel(id)
	logger.ForMatch(e.log, id).Info("challenge accepted", "user", userID)
	return snap, nil
}

// DeclineChallenge ends a pending match. Only the challenged player may decline.
func (e *Engine) DeclineChallenge(ctx context.Context, id string, userID int64) error {
	m, err := e.live(id, ErrMatchNotPending)
	if err != nil {
		return err
	}

	now := e.now()
	m.mu.Lock()
	err = m.decline(userID, now)
	if err == nil {
		e.registry.Remove(id, now)
	}
	m.mu.Unlock()

	if err != nil {
		logger.ForMatch(e.log, id).Debug("decline rejected", "user", userID, "error", err)
		return err
	}

	e.timer.Cancel(id)
	metrics.ChallengesFinished.WithLabelValues(string(domain.MatchDeclined)).Inc()
	metrics.ActiveMatches.Set(float64(e.registry.Len()))
	logger.ForMatch(e.log, id).Info("challenge declined", "user", userID)
	return nil
}

// SubmitMove records a move for userID. The second move of a round resolves
// it, and the last round completes the match.
func (e *Engine) SubmitMove(ctx context.Context, id string, userID int64, move domain.Move) (MoveResult, error) {
	if !move.Valid() {
		return MoveResult{}, ErrInvalidMove
	}
	m, err := e.live(id, ErrMatchNotActive)
	if err != nil {
		return MoveResult{}, err
	}
	log := logger.ForMatch(e.log, id)

	now := e.now()
	m.mu.Lock()
	rec, err := m.submit(userID, move, now)
	if err != nil {
		m.mu.Unlock()
		log.Debug("move rejected", "user", userID, "error", err)
		return MoveResult{}, err
	}
	if ierr := m.checkInvariants(); ierr != nil {
		log.Error("match invariant violated", "error", ierr)
	}
	res := MoveResult{Match: m.state, Round: rec}
	var final domain.MatchResult
	if m.state.Status == domain.MatchCompleted {
		res.Completed = true
		final = m.result()
		e.registry.Remove(id, now)
	}
	var ahead <-chan struct{}
	var done func()
	if rec != nil {
		ahead, done = m.reserveEmit()
	}
	m.mu.Unlock()

	if rec == nil {
		log.Debug("move recorded", "user", userID, "round", res.Match.CurrentRound)
		return res, nil
	}

	// rounds of one match are persisted and announced in resolution order
	defer done()
	if ahead != nil {
		<-ahead
	}

	pctx, cancel := persistCtx(ctx)
	defer cancel()

	outcome := Resolve(rec.ChallengerMove, rec.ChallengedMove)
	metrics.RoundsResolved.WithLabelValues(string(outcome)).Inc()
	log.Info("round resolved",
		"round", rec.Round,
		"challenger_move", rec.ChallengerMove,
		"challenged_move", rec.ChallengedMove,
		"outcome", outcome,
	)
	if err := e.store.RecordRound(pctx, *rec); err != nil {
		metrics.PersistenceFailures.WithLabelValues("record_round").Inc()
		log.Error("failed to record round", "round", rec.Round, "error", err)
	}
	e.notifier.OnRoundResolved(res.Match, *rec)

	if res.Completed {
		eval := e.finalize(pctx, final)
		res.Evaluation = &eval
	}
	return res, nil
}

// RequestRematch opens a new pending match between the same two players,
// with the requester as challenger. The finished match is left untouched.
func (e *Engine) RequestRematch(ctx context.Context, id string, requesterID int64) (domain.Match, error) {
	m, _, ok := e.registry.Lookup(id)
	if !ok {
		return domain.Match{}, ErrNotFound
	}
	old := m.Snapshot()
	challenger, ok := old.Participant(requesterID)
	if !ok {
		return domain.Match{}, ErrNotParticipant
	}
	if !old.Status.Terminal() {
		return domain.Match{}, ErrAlreadyChallenged
	}
	opponent, _ := old.Opponent(requesterID)

	return e.CreateChallenge(ctx, Challenge{
		Challenger: challenger,
		Challenged: opponent,
		Rounds:     old.TotalRounds,
		Chat:       old.Chat,
		RematchOf:  old.ID,
	})
}

// Match returns the current snapshot of a live or recently finished match.
func (e *Engine) Match(id string) (domain.Match, error) {
	m, _, ok := e.registry.Lookup(id)
	if !ok {
		return domain.Match{}, ErrNotFound
	}
	return m.Snapshot(), nil
}

// Rounds returns the rounds resolved so far.
func (e *Engine) Rounds(id string) ([]domain.RoundRecord, error) {
	m, _, ok := e.registry.Lookup(id)
	if !ok {
		return nil, ErrNotFound
	}
	return m.Rounds(), nil
}

// Sweep expires overdue pending matches whose timer did not fire and drops
// old tombstones. Run it periodically.
func (e *Engine) Sweep() {
	now := e.now()
	for _, m := range e.registry.live() {
		m.mu.Lock()
		overdue := m.state.Status == domain.MatchPending && !now.Before(m.state.ExpiresAt)
		m.mu.Unlock()
		if overdue {
			e.expire(m.ID())
		}
	}
	if n := e.registry.PruneRetired(now.Add(-e.retiredTTL)); n > 0 {
		e.log.Debug("pruned retired matches", "count", n)
	}
	metrics.ActiveMatches.Set(float64(e.registry.Len()))
}

// expire is the timer callback. It is a no-op once the match left Pending.
func (e *Engine) expire(id string) {
	m, ok := e.registry.Get(id)
	if !ok {
		return
	}
	log := logger.ForMatch(e.log, id)

	now := e.now()
	m.mu.Lock()
	err := m.expire(now)
	if err == nil {
		e.registry.Remove(id, now)
	}
	snap := m.state
	m.mu.Unlock()

	if err != nil {
		log.Debug("expiry ignored", "status", snap.Status)
		return
	}

	metrics.ChallengesFinished.WithLabelValues(string(domain.MatchExpired)).Inc()
	metrics.ActiveMatches.Set(float64(e.registry.Len()))
	log.Info("challenge expired")
	e.notifier.OnChallengeExpired(snap)
}

// finalize commits the result and runs the evaluator as two separate steps.
// A failed commit is logged and does not undo the in-memory result.
func (e *Engine) finalize(ctx context.Context, res domain.MatchResult) domain.Evaluation {
	log := logger.ForMatch(e.log, res.Match.ID)
	e.timer.Cancel(res.Match.ID)

	metrics.ChallengesFinished.WithLabelValues(string(domain.MatchCompleted)).Inc()
	metrics.ActiveMatches.Set(float64(e.registry.Len()))

	winner := int64(0)
	if w := res.WinnerID(); w != nil {
		winner = *w
	}
	log.Info("match completed",
		"challenger_score", res.Match.ChallengerScore,
		"challenged_score", res.Match.ChallengedScore,
		"winner", winner,
	)

	if err := e.store.CommitMatchResult(ctx, res); err != nil {
		metrics.PersistenceFailures.WithLabelValues("commit_match").Inc()
		log.Error("failed to commit match result", "error", err)
	}

	eval := domain.Evaluation{MatchID: res.Match.ID}
	if e.evaluator != nil {
		eval = e.evaluator.Evaluate(ctx, res)
	}
	for _, a := range eval.Achievements() {
		metrics.AchievementsAwarded.WithLabelValues(string(a.Type)).Inc()
	}

	e.notifier.OnMatchCompleted(res.Match, res, eval)
	return eval
}

// live resolves id against the live table. Finished matches answer with
// finished; unknown ids with ErrNotFound.
func (e *Engine) live(id string, finished error) (*Match, error) {
	m, live, ok := e.registry.Lookup(id)
	switch {
	case !ok:
		return nil, ErrNotFound
	case !live:
		return nil, finished
	}
	return m, nil
}

// persistCtx detaches persistence from the caller's cancellation.
func persistCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
}

// IsUserError reports whether err is one of the engine's rejection errors.
func IsUserError(err error) bool {
	for _, target := range []error{
		ErrAlreadyChallenged, ErrSelfChallenge, ErrInvalidRoundCount, ErrNotFound,
		ErrWrongTurn, ErrAlreadyMoved, ErrMatchNotActive, ErrMatchNotPending,
		ErrNotChallenged, ErrNotParticipant, ErrInvalidMove,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
