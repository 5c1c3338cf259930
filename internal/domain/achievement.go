package domain

import "time"

// AchievementType - one-time unlockable flag
type AchievementType string

const (
	AchievementFirstWin       AchievementType = "first_win"
	AchievementPerfectVictory AchievementType = "perfect_victory"
	AchievementWinStreak      AchievementType = "win_streak"
	AchievementMoveLoyalist   AchievementType = "move_loyalist"
)

// Description is the text stored alongside an award.
func (t AchievementType) Description() string {
	switch t {
	case AchievementFirstWin:
		return "Won your first challenge"
	case AchievementPerfectVictory:
		return "Won every round of a match with 3 or more rounds"
	case AchievementWinStreak:
		return "Won 3 challenges in a row"
	case AchievementMoveLoyalist:
		return "Played the same move 10 times in a row"
	}
	return string(t)
}

func (t AchievementType) Icon() string {
	switch t {
	case AchievementFirstWin:
		return "🎉"
	case AchievementPerfectVictory:
		return "🌟"
	case AchievementWinStreak:
		return "🔥"
	case AchievementMoveLoyalist:
		return "🎯"
	}
	return "🎖️"
}

// Achievement - award recorded against a player
type Achievement struct {
	PlayerID    int64           `db:"player_id" json:"player_id"`
	Type        AchievementType `db:"achievement_type" json:"type"`
	Description string          `db:"description" json:"description"`
	MatchID     string          `db:"match_id" json:"match_id,omitempty"`
	AwardedAt   time.Time       `db:"awarded_at" json:"awarded_at"`
}

// PlayerEvaluation is the per-player part of a completion summary.
type PlayerEvaluation struct {
	PlayerID     int64         `json:"player_id"`
	Result       GameResult    `json:"result"`
	XPGained     int           `json:"xp_gained"`
	XP           int           `json:"xp"`
	Level        int           `json:"level"`
	LeveledUp    bool          `json:"leveled_up"`
	WinStreak    int           `json:"win_streak"`
	MoveStreak   int           `json:"move_streak"`
	Achievements []Achievement `json:"achievements,omitempty"`
}

// Evaluation covers both participants of a completed match.
type Evaluation struct {
	MatchID string             `json:"match_id"`
	Players []PlayerEvaluation `json:"players"`
}

// For returns the evaluation of playerID, if present.
func (e Evaluation) For(playerID int64) (PlayerEvaluation, bool) {
	for _, p := range e.Players {
		if p.PlayerID == playerID {
			return p, true
		}
	}
	return PlayerEvaluation{}, false
}

// Achievements flattens all unlocks of this evaluation.
func (e Evaluation) Achievements() []Achievement {
	var out []Achievement
	for _, p := range e.Players {
		out = append(out, p.Achievements...)
	}
	return out
}
