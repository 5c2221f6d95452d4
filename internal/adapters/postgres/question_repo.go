package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mirage-hunt/mirage/internal/core/domain"
)

// QuestionRepo implements ports.QuestionRepository with pgx.
type QuestionRepo struct {
	db *DB
}

// NewQuestionRepo creates a new QuestionRepo.
func NewQuestionRepo(db *DB) *QuestionRepo {
	return &QuestionRepo{db: db}
}

// ListWithFinds returns every question with the teams that found it, oldest question first.
func (r *QuestionRepo) ListWithFinds(ctx context.Context) ([]domain.Question, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT q.id::text, q.title, q.prompt, q.answer, q.lat, q.lng,
		       COALESCE(array_agg(f.team_id ORDER BY f.found_at, f.team_id)
		                FILTER (WHERE f.team_id IS NOT NULL), '{}') AS found_by
		FROM questions q
		LEFT JOIN question_finds f ON f.question_id = q.id
		GROUP BY q.id
		ORDER BY q.created_at, q.id
	`)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	var questions []domain.Question
	for rows.Next() {
		var q domain.Question
		if err := rows.Scan(
			&q.ID, &q.Title, &q.Prompt, &q.CanonicalAnswer,
			&q.Location.Lat, &q.Location.Lng, &q.FoundBy,
		); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// UpsertBatch inserts or updates questions using pgx.Batch. Finds are not touched.
func (r *QuestionRepo) UpsertBatch(ctx context.Context, questions []domain.Question) error {
	batch := &pgx.Batch{}
	for _, q := range questions {
		batch.Queue(`
			INSERT INTO questions (id, title, prompt, answer, lat, lng)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO UPDATE
			SET title = EXCLUDED.title, prompt = EXCLUDED.prompt, answer = EXCLUDED.answer,
			    lat = EXCLUDED.lat, lng = EXCLUDED.lng
		`, q.ID, q.Title, q.Prompt, q.CanonicalAnswer, q.Location.Lat, q.Location.Lng)
	}
	br := r.db.Pool.SendBatch(ctx, batch)
	defer br.Close()
	for range questions {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch exec: %w", err)
		}
	}
	return nil
}

// SaveFinds stores finds idempotently. Finds referring to a question or team
// the store does not know are skipped rather than failing the batch.
func (r *QuestionRepo) SaveFinds(ctx context.Context, finds []domain.Find) error {
	if len(finds) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, f := range finds {
		batch.Queue(`
			INSERT INTO question_finds (question_id, team_id, found_at)
			SELECT q.id, t.id, $3
			FROM questions q, teams t
			WHERE q.id = $1::uuid AND t.id = $2
			ON CONFLICT (question_id, team_id) DO NOTHING
		`, f.QuestionID, f.TeamID, f.FoundAt)
	}
	br := r.db.Pool.SendBatch(ctx, batch)
	defer br.Close()
	for range finds {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("save finds: %w", err)
		}
	}
	return nil
}

// ResetFinds clears every recorded find.
func (r *QuestionRepo) ResetFinds(ctx context.Context) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM question_finds`)
	return err
}
