package progression

import (
	"context"
	"log/slog"
	"time"

	"rps_challenge/internal/domain"
	"rps_challenge/internal/logger"
	"rps_challenge/internal/metrics"
)

// Experience per finished match, applied once per participant.
const (
	XPWin  = 15
	XPLoss = 3
	XPTie  = 5

	XPPerLevel = 100

	PerfectVictoryMinRounds = 3
	WinStreakTarget         = 3
	MoveStreakTarget        = 10
)

// XPFor returns the experience a result is worth.
func XPFor(r domain.GameResult) int {
	switch r {
	case domain.GameResultWin:
		return XPWin
	case domain.GameResultLose:
		return XPLoss
	default:
		return XPTie
	}
}

// LevelFor is a monotonic step function of cumulative experience.
func LevelFor(xp int) int {
	if xp < 0 {
		xp = 0
	}
	return 1 + xp/XPPerLevel
}

// Store is the persistence the evaluator needs.
type Store interface {
	UpdatePlayerStats(ctx context.Context, matchID string, playerID int64, result domain.GameResult, moves []domain.Move, xp int) (domain.PlayerStats, error)
	SetPlayerLevel(ctx context.Context, playerID int64, level int) error
	UpdatePlayerProgress(ctx context.Context, matchID string, playerID int64, result domain.GameResult, moves []domain.Move) (domain.PlayerProgress, error)
	GetPlayerAchievements(ctx context.Context, playerID int64) ([]domain.Achievement, error)
	AwardAchievement(ctx context.Context, a domain.Achievement) (bool, error)
}

// Evaluator decides XP, levels and achievement unlocks for completed matches.
type Evaluator struct {
	store Store
	now   func() time.Time
	log   *slog.Logger
}

func NewEvaluator(store Store) *Evaluator {
	return &Evaluator{
		store: store,
		now:   time.Now,
		log:   logger.With("component", "progression"),
	}
}

// Evaluate runs every step for both players. A failing step is logged and the
// remaining steps still run; nothing already computed is rolled back.
func (e *Evaluator) Evaluate(ctx context.Context, res domain.MatchResult) domain.Evaluation {
	m := res.Match
	eval := domain.Evaluation{MatchID: m.ID}
	for _, p := range []domain.Participant{m.Challenger, m.Challenged} {
		eval.Players = append(eval.Players, e.evaluatePlayer(ctx, res, p.ID))
	}
	return eval
}

func (e *Evaluator) evaluatePlayer(ctx context.Context, res domain.MatchResult, playerID int64) domain.PlayerEvaluation {
	log := logger.ForMatch(e.log, res.Match.ID).With("player_id", playerID)
	result := res.Match.ResultFor(playerID)
	moves := res.MovesOf(playerID)

	pe := domain.PlayerEvaluation{
		PlayerID: playerID,
		Result:   result,
		XPGained: XPFor(result),
	}

	stats, err := e.store.UpdatePlayerStats(ctx, res.Match.ID, playerID, result, moves, pe.XPGained)
	if err != nil {
		metrics.PersistenceFailures.WithLabelValues("update_stats").Inc()
		log.Error("failed to update player stats", "error", err)
	} else {
		pe.XP = stats.ExperiencePts
		pe.Level = LevelFor(stats.ExperiencePts)
		pe.LeveledUp = pe.Level > LevelFor(stats.ExperiencePts-pe.XPGained)
		if pe.Level != stats.Level {
			if err := e.store.SetPlayerLevel(ctx, playerID, pe.Level); err != nil {
				metrics.PersistenceFailures.WithLabelValues("set_level").Inc()
				log.Error("failed to set level", "level", pe.Level, "error", err)
			}
		}
	}

	progress, err := e.store.UpdatePlayerProgress(ctx, res.Match.ID, playerID, result, moves)
	if err != nil {
		metrics.PersistenceFailures.WithLabelValues("update_progress").Inc()
		log.Error("failed to update player progress", "error", err)
		// without progress only match-local achievements can be judged
		progress = domain.PlayerProgress{PlayerID: playerID}
	}
	pe.WinStreak = progress.WinStreak
	pe.MoveStreak = progress.MoveStreak

	held, err := e.store.GetPlayerAchievements(ctx, playerID)
	if err != nil {
		metrics.PersistenceFailures.WithLabelValues("get_achievements").Inc()
		log.Error("failed to load achievements, skipping unlocks", "error", err)
		return pe
	}
	owned := make(map[domain.AchievementType]bool, len(held))
	for _, a := range held {
		owned[a.Type] = true
	}

	for _, t := range Unlocks(res, playerID, progress) {
		if owned[t] {
			continue
		}
		a := domain.Achievement{
			PlayerID:    playerID,
			Type:        t,
			Description: t.Description(),
			MatchID:     res.Match.ID,
			AwardedAt:   e.now(),
		}
		inserted, err := e.store.AwardAchievement(ctx, a)
		if err != nil {
			metrics.PersistenceFailures.WithLabelValues("award_achievement").Inc()
			log.Error("failed to award achievement", "type", t, "error", err)
			continue
		}
		if inserted {
			log.Info("achievement unlocked", "type", t)
			pe.Achievements = append(pe.Achievements, a)
		}
	}
	return pe
}

// Unlocks lists the achievements playerID qualifies for after this match,
// before filtering out the ones already held.
func Unlocks(res domain.MatchResult, playerID int64, progress domain.PlayerProgress) []domain.AchievementType {
	var out []domain.AchievementType
	m := res.Match
	won := m.ResultFor(playerID) == domain.GameResultWin

	if won {
		out = append(out, domain.AchievementFirstWin)
		if IsPerfectVictory(m, playerID) {
			out = append(out, domain.AchievementPerfectVictory)
		}
		if progress.WinStreak >= WinStreakTarget {
			out = append(out, domain.AchievementWinStreak)
		}
	}
	if progress.MoveStreak >= MoveStreakTarget {
		out = append(out, domain.AchievementMoveLoyalist)
	}
	return out
}

// IsPerfectVictory holds when playerID won every round of a match with at
// least PerfectVictoryMinRounds rounds.
func IsPerfectVictory(m domain.Match, playerID int64) bool {
	if m.TotalRounds < PerfectVictoryMinRounds {
		return false
	}
	score := m.ChallengerScore
	if playerID == m.Challenged.ID {
		score = m.ChallengedScore
	}
	return score == m.TotalRounds
}
