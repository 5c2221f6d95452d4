package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mirage-hunt/mirage/internal/core/domain"
)

// TeamRepo implements ports.TeamRepository with pgx.
type TeamRepo struct {
	db *DB
}

// NewTeamRepo creates a new TeamRepo.
func NewTeamRepo(db *DB) *TeamRepo {
	return &TeamRepo{db: db}
}

// TeamOfUser returns the team userID belongs to with its full member set.
func (r *TeamRepo) TeamOfUser(ctx context.Context, userID string) (*domain.Team, error) {
	var t domain.Team
	err := r.db.Pool.QueryRow(ctx, `
		SELECT t.id, t.name, array_agg(m2.user_id ORDER BY m2.user_id)
		FROM team_members m
		JOIN teams t ON t.id = m.team_id
		JOIN team_members m2 ON m2.team_id = t.id
		WHERE m.user_id = $1
		GROUP BY t.id, t.name
	`, userID).Scan(&t.ID, &t.Name, &t.MemberUserIDs)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNoTeam
	}
	if err != nil {
		return nil, fmt.Errorf("team of user: %w", err)
	}
	return &t, nil
}

// List returns all teams ordered by name.
func (r *TeamRepo) List(ctx context.Context) ([]domain.Team, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT t.id, t.name,
		       COALESCE(array_agg(m.user_id ORDER BY m.user_id)
		                FILTER (WHERE m.user_id IS NOT NULL), '{}')
		FROM teams t
		LEFT JOIN team_members m ON m.team_id = t.id
		GROUP BY t.id, t.name
		ORDER BY t.name
	`)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	defer rows.Close()

	var teams []domain.Team
	for rows.Next() {
		var t domain.Team
		if err := rows.Scan(&t.ID, &t.Name, &t.MemberUserIDs); err != nil {
			return nil, fmt.Errorf("scan team: %w", err)
		}
		teams = append(teams, t)
	}
	return teams, rows.Err()
}

// UpsertBatch writes teams and their memberships in one transaction. A user
// listed under a team is moved there from any previous team.
func (r *TeamRepo) UpsertBatch(ctx context.Context, teams []domain.Team) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	n := 0
	for _, t := range teams {
		batch.Queue(`
			INSERT INTO teams (id, name) VALUES ($1, $2)
			ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name
		`, t.ID, t.Name)
		n++
		for _, userID := range t.MemberUserIDs {
			batch.Queue(`
				INSERT INTO team_members (user_id, team_id) VALUES ($1, $2)
				ON CONFLICT (user_id) DO UPDATE SET team_id = EXCLUDED.team_id
			`, userID, t.ID)
			n++
		}
	}

	br := tx.SendBatch(ctx, batch)
	for i := 0; i < n; i++ {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("batch exec: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("batch close: %w", err)
	}
	return tx.Commit(ctx)
}
