package repository

import (
	"context"
	"fmt"
	"time"

	"rps_challenge/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type MatchRepository struct {
	db *pgxpool.Pool
}

func NewMatchRepository(db *pgxpool.Pool) *MatchRepository {
	return &MatchRepository{db: db}
}

// RecordRound stores a resolved round. The row is keyed by (match_id, round),
// so repeating the call is harmless.
func (r *MatchRepository) RecordRound(ctx context.Context, rec domain.RoundRecord) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO match_rounds
			(match_id, round, challenger_id, challenged_id, challenger_move, challenged_move, winner_id, resolved_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (match_id, round) DO NOTHING`,
		rec.MatchID,
		rec.Round,
		rec.ChallengerID,
		rec.ChallengedID,
		string(rec.ChallengerMove),
		string(rec.ChallengedMove),
		rec.WinnerID,
		rec.ResolvedAt,
	)
	if err != nil {
		return fmt.Errorf("record round %s/%d: %w", rec.MatchID, rec.Round, err)
	}
	return nil
}

// CommitMatchResult archives a completed match together with any rounds that
// did not make it in through RecordRound.
func (r *MatchRepository) CommitMatchResult(ctx context.Context, res domain.MatchResult) error {
	m := res.Match
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, p := range []domain.Participant{m.Challenger, m.Challenged} {
		if _, err := tx.Exec(ctx,
			`INSERT INTO players (id, first_name) VALUES ($1, NULLIF($2, ''))
			 ON CONFLICT (id) DO NOTHING`,
			p.ID, p.Name,
		); err != nil {
			return fmt.Errorf("ensure player %d: %w", p.ID, err)
		}
	}

	finished := m.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO matches
			(id, challenger_id, challenged_id, total_rounds, challenger_score, challenged_score,
			 winner_id, status, rematch_of, chat_id, created_at, finished_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 ON CONFLICT (id) DO NOTHING`,
		m.ID,
		m.Challenger.ID,
		m.Challenged.ID,
		m.TotalRounds,
		m.ChallengerScore,
		m.ChallengedScore,
		res.WinnerID(),
		string(m.Status),
		m.RematchOf,
		m.Chat.ChatID,
		m.CreatedAt,
		finished,
	); err != nil {
		return fmt.Errorf("insert match %s: %w", m.ID, err)
	}

	batch := &pgx.Batch{}
	for _, rec := range res.Rounds {
		batch.Queue(
			`INSERT INTO match_rounds
				(match_id, round, challenger_id, challenged_id, challenger_move, challenged_move, winner_id, resolved_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 ON CONFLICT (match_id, round) DO NOTHING`,
			rec.MatchID, rec.Round, rec.ChallengerID, rec.ChallengedID,
			string(rec.ChallengerMove), string(rec.ChallengedMove), rec.WinnerID, rec.ResolvedAt,
		)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert rounds %s: %w", m.ID, err)
		}
	}

	return tx.Commit(ctx)
}

// ListByPlayer returns the player's archived matches, newest first.
func (r *MatchRepository) ListByPlayer(ctx context.Context, playerID int64, limit int) ([]domain.Match, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	rows, err := r.db.Query(ctx,
		`SELECT m.id,
		        m.challenger_id, COALESCE(a.first_name, a.username, ''),
		        m.challenged_id, COALESCE(b.first_name, b.username, ''),
		        m.total_rounds, m.challenger_score, m.challenged_score,
		        m.status, m.rematch_of, m.chat_id, m.created_at, m.finished_at
		 FROM matches m
		 LEFT JOIN players a ON a.id = m.challenger_id
		 LEFT JOIN players b ON b.id = m.challenged_id
		 WHERE m.challenger_id = $1 OR m.challenged_id = $1
		 ORDER BY m.finished_at DESC
		 LIMIT $2`,
		playerID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Match
	for rows.Next() {
		var m domain.Match
		var status string
		if err := rows.Scan(
			&m.ID,
			&m.Challenger.ID, &m.Challenger.Name,
			&m.Challenged.ID, &m.Challenged.Name,
			&m.TotalRounds, &m.ChallengerScore, &m.ChallengedScore,
			&status, &m.RematchOf, &m.Chat.ChatID, &m.CreatedAt, &m.FinishedAt,
		); err != nil {
			return nil, err
		}
		m.Status = domain.MatchStatus(status)
		m.CurrentRound = m.TotalRounds
		out = append(out, m)
	}
	return out, rows.Err()
}

// Rounds returns the stored rounds of a match in order.
func (r *MatchRepository) Rounds(ctx context.Context, matchID string) ([]domain.RoundRecord, error) {
	rows, err := r.db.Query(ctx,
		`SELECT match_id, round, challenger_id, challenged_id, challenger_move, challenged_move, winner_id, resolved_at
		 FROM match_rounds
		 WHERE match_id = $1
		 ORDER BY round`,
		matchID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RoundRecord
	for rows.Next() {
		var rec domain.RoundRecord
		var a, b string
		if err := rows.Scan(&rec.MatchID, &rec.Round, &rec.ChallengerID, &rec.ChallengedID, &a, &b, &rec.WinnerID, &rec.ResolvedAt); err != nil {
			return nil, err
		}
		rec.ChallengerMove = domain.Move(a)
		rec.ChallengedMove = domain.Move(b)
		out = append(out, rec)
	}
	return out, rows.Err()
}
