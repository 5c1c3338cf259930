package domain

import "time"

// Player - telegram user known to the bot
type Player struct {
	ID        int64     `db:"id" json:"id"`
	Username  string    `db:"username" json:"username"`
	FirstName string    `db:"first_name" json:"first_name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// DisplayName returns the first name, falling back to @username.
func (p Player) DisplayName() string {
	if p.FirstName != "" {
		return p.FirstName
	}
	if p.Username != "" {
		return "@" + p.Username
	}
	return "player"
}

// PlayerStats - cumulative counters per player
type PlayerStats struct {
	PlayerID        int64     `db:"player_id" json:"player_id"`
	TotalGames      int       `db:"total_games" json:"total_games"`
	Wins            int       `db:"wins" json:"wins"`
	Losses          int       `db:"losses" json:"losses"`
	Ties            int       `db:"ties" json:"ties"`
	ChallengeGames  int       `db:"challenge_games" json:"challenge_games"`
	ChallengeWins   int       `db:"challenge_wins" json:"challenge_wins"`
	ChallengeLosses int       `db:"challenge_losses" json:"challenge_losses"`
	RockPlayed      int       `db:"rock_played" json:"rock_played"`
	PaperPlayed     int       `db:"paper_played" json:"paper_played"`
	ScissorPlayed   int       `db:"scissor_played" json:"scissor_played"`
	ExperiencePts   int       `db:"experience_points" json:"experience_points"`
	Level           int       `db:"level" json:"level"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// Apply returns the stats after one more finished challenge.
func (s PlayerStats) Apply(result GameResult, moves []Move, xp int) PlayerStats {
	s.TotalGames++
	s.ChallengeGames++
	switch result {
	case GameResultWin:
		s.Wins++
		s.ChallengeWins++
	case GameResultLose:
		s.Losses++
		s.ChallengeLosses++
	default:
		s.Ties++
	}
	for _, m := range moves {
		switch m {
		case MoveRock:
			s.RockPlayed++
		case MovePaper:
			s.PaperPlayed++
		case MoveScissor:
			s.ScissorPlayed++
		}
	}
	s.ExperiencePts += xp
	return s
}

// WinRate in percent, rounded to one decimal.
func (s PlayerStats) WinRate() float64 {
	if s.TotalGames == 0 {
		return 0
	}
	return float64(int(float64(s.Wins)*1000/float64(s.TotalGames)+0.5)) / 10
}

// FavoriteMove is the most played move, empty when nothing was played.
// Ties prefer rock, then paper.
func (s PlayerStats) FavoriteMove() Move {
	best, n := Move(""), 0
	for _, c := range []struct {
		m Move
		n int
	}{{MoveRock, s.RockPlayed}, {MovePaper, s.PaperPlayed}, {MoveScissor, s.ScissorPlayed}} {
		if c.n > n {
			best, n = c.m, c.n
		}
	}
	return best
}

// PlayerProgress drives achievement eligibility only, never game outcome.
type PlayerProgress struct {
	PlayerID    int64     `db:"player_id" json:"player_id"`
	WinStreak   int       `db:"win_streak" json:"win_streak"`
	LastMove    Move      `db:"last_move" json:"last_move,omitempty"`
	MoveStreak  int       `db:"move_streak" json:"move_streak"`
	LastMatchID string    `db:"last_match_id" json:"last_match_id,omitempty"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Apply folds a finished match into the progress. A match that was already
// applied (same id as the last one) leaves progress unchanged.
func (p PlayerProgress) Apply(matchID string, result GameResult, moves []Move) PlayerProgress {
	if matchID != "" && p.LastMatchID == matchID {
		return p
	}
	if result == GameResultWin {
		p.WinStreak++
	} else {
		p.WinStreak = 0
	}
	for _, m := range moves {
		if m == p.LastMove {
			p.MoveStreak++
		} else {
			p.LastMove = m
			p.MoveStreak = 1
		}
	}
	p.LastMatchID = matchID
	return p
}
