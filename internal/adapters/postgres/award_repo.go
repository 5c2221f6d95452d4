package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mirage-hunt/mirage/internal/core/domain"
)

// AwardRepo implements ports.AwardRepository with pgx.
type AwardRepo struct {
	db *DB
}

// NewAwardRepo creates a new AwardRepo.
func NewAwardRepo(db *DB) *AwardRepo {
	return &AwardRepo{db: db}
}

// Award records points for (team, question) and bumps the team total in a
// single statement. It returns false when the pair was already awarded.
func (r *AwardRepo) Award(ctx context.Context, teamID, questionID string, points int) (bool, error) {
	var id string
	err := r.db.Pool.QueryRow(ctx, `
		WITH ins AS (
			INSERT INTO team_awards (team_id, question_id, points)
			VALUES ($1, $2::uuid, $3)
			ON CONFLICT (team_id, question_id) DO NOTHING
			RETURNING team_id, points
		)
		UPDATE teams t SET points = t.points + ins.points
		FROM ins
		WHERE t.id = ins.team_id
		RETURNING t.id
	`, teamID, questionID, points).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("award: %w", err)
	}
	return true, nil
}

// Standings returns every team with its awarded finds and points.
func (r *AwardRepo) Standings(ctx context.Context) ([]domain.Standing, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT t.id, t.name, COUNT(a.question_id), t.points
		FROM teams t
		LEFT JOIN team_awards a ON a.team_id = t.id
		GROUP BY t.id, t.name, t.points
		ORDER BY t.points DESC, t.name
	`)
	if err != nil {
		return nil, fmt.Errorf("standings: %w", err)
	}
	defer rows.Close()

	var out []domain.Standing
	for rows.Next() {
		var s domain.Standing
		if err := rows.Scan(&s.TeamID, &s.Name, &s.Found, &s.Points); err != nil {
			return nil, fmt.Errorf("scan standing: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Reset clears the ledger and zeroes every team.
func (r *AwardRepo) Reset(ctx context.Context) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM team_awards`); err != nil {
		return fmt.Errorf("delete awards: %w", err)
	}
	if _, err := tx.Exec(ctx, `UPDATE teams SET points = 0`); err != nil {
		return fmt.Errorf("reset points: %w", err)
	}
	return tx.Commit(ctx)
}
