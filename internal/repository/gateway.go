package repository

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

// Gateway bundles the repositories behind the engine and evaluator ports.
type Gateway struct {
	*MatchRepository
	*PlayerRepository
	*AchievementRepository
}

func NewGateway(db *pgxpool.Pool) *Gateway {
	return &Gateway{
		MatchRepository:       NewMatchRepository(db),
		PlayerRepository:      NewPlayerRepository(db),
		AchievementRepository: NewAchievementRepository(db),
	}
}
