package repository

import (
	"context"
	"errors"
	"fmt"

	"rps_challenge/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("not found")

type PlayerRepository struct {
	db *pgxpool.Pool
}

func NewPlayerRepository(db *pgxpool.Pool) *PlayerRepository {
	return &PlayerRepository{db: db}
}

// Upsert creates the player or refreshes the display fields.
func (r *PlayerRepository) Upsert(ctx context.Context, p *domain.Player) error {
	return r.db.QueryRow(ctx,
		`INSERT INTO players (id, username, first_name)
		 VALUES ($1, NULLIF($2, ''), NULLIF($3, ''))
		 ON CONFLICT (id) DO UPDATE
		 SET username = COALESCE(EXCLUDED.username, players.username),
		     first_name = COALESCE(EXCLUDED.first_name, players.first_name),
		     updated_at = now()
		 RETURNING created_at, updated_at`,
		p.ID, p.Username, p.FirstName,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (r *PlayerRepository) GetByID(ctx context.Context, id int64) (*domain.Player, error) {
	var p domain.Player
	err := r.db.QueryRow(ctx,
		`SELECT id, COALESCE(username, ''), COALESCE(first_name, ''), created_at, updated_at
		 FROM players
		 WHERE id = $1`,
		id,
	).Scan(&p.ID, &p.Username, &p.FirstName, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

const statsColumns = `player_id, total_games, wins, losses, ties,
	challenge_games, challenge_wins, challenge_losses,
	rock_played, paper_played, scissor_played,
	experience_points, level, updated_at`

func scanStats(row pgx.Row) (domain.PlayerStats, error) {
	var s domain.PlayerStats
	err := row.Scan(
		&s.PlayerID, &s.TotalGames, &s.Wins, &s.Losses, &s.Ties,
		&s.ChallengeGames, &s.ChallengeWins, &s.ChallengeLosses,
		&s.RockPlayed, &s.PaperPlayed, &s.ScissorPlayed,
		&s.ExperiencePts, &s.Level, &s.UpdatedAt,
	)
	return s, err
}

// GetStats returns the player's counters, zero valued at level 1 for a
// player that has not finished a match yet.
func (r *PlayerRepository) GetStats(ctx context.Context, playerID int64) (domain.PlayerStats, error) {
	s, err := scanStats(r.db.QueryRow(ctx,
		`SELECT `+statsColumns+` FROM player_stats WHERE player_id = $1`, playerID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.PlayerStats{PlayerID: playerID, Level: 1}, nil
	}
	return s, err
}

// UpdatePlayerStats folds one finished match into the player's counters.
// The (match, player) pair is recorded in player_match_results first, so a
// repeated call for the same match returns the stats unchanged.
func (r *PlayerRepository) UpdatePlayerStats(ctx context.Context, matchID string, playerID int64, result domain.GameResult, moves []domain.Move, xp int) (domain.PlayerStats, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return domain.PlayerStats{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := ensurePlayer(ctx, tx, playerID); err != nil {
		return domain.PlayerStats{}, err
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO player_stats (player_id) VALUES ($1) ON CONFLICT DO NOTHING`, playerID); err != nil {
		return domain.PlayerStats{}, fmt.Errorf("init stats: %w", err)
	}

	cur, err := scanStats(tx.QueryRow(ctx,
		`SELECT `+statsColumns+` FROM player_stats WHERE player_id = $1 FOR UPDATE`, playerID))
	if err != nil {
		return domain.PlayerStats{}, fmt.Errorf("lock stats: %w", err)
	}

	tag, err := tx.Exec(ctx,
		`INSERT INTO player_match_results (match_id, player_id, result, xp)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT DO NOTHING`,
		matchID, playerID, string(result), xp,
	)
	if err != nil {
		return domain.PlayerStats{}, fmt.Errorf("record result: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// already applied
		return cur, tx.Commit(ctx)
	}

	next := cur.Apply(result, moves, xp)
	if err := tx.QueryRow(ctx,
		`UPDATE player_stats
		 SET total_games = $2, wins = $3, losses = $4, ties = $5,
		     challenge_games = $6, challenge_wins = $7, challenge_losses = $8,
		     rock_played = $9, paper_played = $10, scissor_played = $11,
		     experience_points = $12, updated_at = now()
		 WHERE player_id = $1
		 RETURNING updated_at`,
		playerID, next.TotalGames, next.Wins, next.Losses, next.Ties,
		next.ChallengeGames, next.ChallengeWins, next.ChallengeLosses,
		next.RockPlayed, next.PaperPlayed, next.ScissorPlayed,
		next.ExperiencePts,
	).Scan(&next.UpdatedAt); err != nil {
		return domain.PlayerStats{}, fmt.Errorf("update stats: %w", err)
	}
	return next, tx.Commit(ctx)
}

func (r *PlayerRepository) SetPlayerLevel(ctx context.Context, playerID int64, level int) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE player_stats SET level = $2, updated_at = now() WHERE player_id = $1`,
		playerID, level,
	)
	if err != nil {
		return fmt.Errorf("set level: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PlayerRepository) GetProgress(ctx context.Context, playerID int64) (domain.PlayerProgress, error) {
	var p domain.PlayerProgress
	var lastMove string
	err := r.db.QueryRow(ctx,
		`SELECT player_id, win_streak, last_move, move_streak, last_match_id, updated_at
		 FROM player_progress WHERE player_id = $1`,
		playerID,
	).Scan(&p.PlayerID, &p.WinStreak, &lastMove, &p.MoveStreak, &p.LastMatchID, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.PlayerProgress{PlayerID: playerID}, nil
	}
	p.LastMove = domain.Move(lastMove)
	return p, err
}

// UpdatePlayerProgress applies a finished match to the streak counters under
// a row lock. Applying the same match twice is a no-op.
func (r *PlayerRepository) UpdatePlayerProgress(ctx context.Context, matchID string, playerID int64, result domain.GameResult, moves []domain.Move) (domain.PlayerProgress, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return domain.PlayerProgress{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := ensurePlayer(ctx, tx, playerID); err != nil {
		return domain.PlayerProgress{}, err
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO player_progress (player_id) VALUES ($1) ON CONFLICT DO NOTHING`, playerID); err != nil {
		return domain.PlayerProgress{}, fmt.Errorf("init progress: %w", err)
	}

	var cur domain.PlayerProgress
	var lastMove string
	if err := tx.QueryRow(ctx,
		`SELECT player_id, win_streak, last_move, move_streak, last_match_id, updated_at
		 FROM player_progress WHERE player_id = $1 FOR UPDATE`,
		playerID,
	).Scan(&cur.PlayerID, &cur.WinStreak, &lastMove, &cur.MoveStreak, &cur.LastMatchID, &cur.UpdatedAt); err != nil {
		return domain.PlayerProgress{}, fmt.Errorf("lock progress: %w", err)
	}
	cur.LastMove = domain.Move(lastMove)

	next := cur.Apply(matchID, result, moves)
	if next == cur {
		return cur, tx.Commit(ctx)
	}
	if err := tx.QueryRow(ctx,
		`UPDATE player_progress
		 SET win_streak = $2, last_move = $3, move_streak = $4, last_match_id = $5, updated_at = now()
		 WHERE player_id = $1
		 RETURNING updated_at`,
		playerID, next.WinStreak, string(next.LastMove), next.MoveStreak, next.LastMatchID,
	).Scan(&next.UpdatedAt); err != nil {
		return domain.PlayerProgress{}, fmt.Errorf("update progress: %w", err)
	}
	return next, tx.Commit(ctx)
}

// ensurePlayer creates a bare player row so stats can reference it.
func ensurePlayer(ctx context.Context, tx pgx.Tx, playerID int64) error {
	if _, err := tx.Exec(ctx,
		`INSERT INTO players (id) VALUES ($1) ON CONFLICT DO NOTHING`, playerID); err != nil {
		return fmt.Errorf("ensure player %d: %w", playerID, err)
	}
	return nil
}
