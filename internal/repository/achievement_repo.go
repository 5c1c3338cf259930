package repository

import (
	"context"
	"fmt"

	"rps_challenge/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

type AchievementRepository struct {
	db *pgxpool.Pool
}

func NewAchievementRepository(db *pgxpool.Pool) *AchievementRepository {
	return &AchievementRepository{db: db}
}

// GetPlayerAchievements lists a player's awards, oldest first.
func (r *AchievementRepository) GetPlayerAchievements(ctx context.Context, playerID int64) ([]domain.Achievement, error) {
	rows, err := r.db.Query(ctx,
		`SELECT player_id, achievement_type, description, match_id, awarded_at
		 FROM achievements
		 WHERE player_id = $1
		 ORDER BY awarded_at, id`,
		playerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Achievement
	for rows.Next() {
		var a domain.Achievement
		var t string
		if err := rows.Scan(&a.PlayerID, &t, &a.Description, &a.MatchID, &a.AwardedAt); err != nil {
			return nil, err
		}
		a.Type = domain.AchievementType(t)
		out = append(out, a)
	}
	return out, rows.Err()
}

// AwardAchievement inserts the award unless the player already holds it.
// It reports whether a new row was written.
func (r *AchievementRepository) AwardAchievement(ctx context.Context, a domain.Achievement) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`INSERT INTO achievements (player_id, achievement_type, description, match_id, awarded_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (player_id, achievement_type) DO NOTHING`,
		a.PlayerID, string(a.Type), a.Description, a.MatchID, a.AwardedAt,
	)
	if err != nil {
		return false, fmt.Errorf("award %s to %d: %w", a.Type, a.PlayerID, err)
	}
	return tag.RowsAffected() == 1, nil
}
