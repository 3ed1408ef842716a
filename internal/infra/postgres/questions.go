package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"liveclass-quiz-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// QuestionRepository stores question documents as JSONB rows.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

func (r *QuestionRepository) Insert(ctx context.Context, question domain.Question) (domain.Question, error) {
	data, err := json.Marshal(question)
	if err != nil {
		return domain.Question{}, fmt.Errorf("marshal question: %w", err)
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO questions (id, class_id, data) VALUES ($1, $2, $3)`,
		question.ID, question.ClassID, data)
	if err != nil {
		return domain.Question{}, fmt.Errorf("insert question: %w", err)
	}
	return question, nil
}

func (r *QuestionRepository) Get(ctx context.Context, id string) (domain.Question, error) {
	var raw []byte
	err := r.pool.QueryRow(ctx, `SELECT data FROM questions WHERE id=$1`, id).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	if err != nil {
		return domain.Question{}, fmt.Errorf("load question: %w", err)
	}
	return unmarshalQuestion(raw)
}

func (r *QuestionRepository) ListByClass(ctx context.Context, classID string) ([]domain.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT data FROM questions WHERE class_id=$1 ORDER BY created_at`, classID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	questions := make([]domain.Question, 0)
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		question, err := unmarshalQuestion(raw)
		if err != nil {
			return nil, err
		}
		questions = append(questions, question)
	}
	return questions, rows.Err()
}

func (r *QuestionRepository) Update(ctx context.Context, id string, fields domain.QuestionUpdate) (domain.Question, error) {
	question, err := r.Get(ctx, id)
	if err != nil {
		return domain.Question{}, err
	}
	if fields.Text != nil {
		question.Text = *fields.Text
	}
	if fields.Options != nil {
		question.Options = *fields.Options
	}
	if fields.CorrectIndex != nil {
		question.CorrectIndex = *fields.CorrectIndex
	}
	data, err := json.Marshal(question)
	if err != nil {
		return domain.Question{}, fmt.Errorf("marshal question: %w", err)
	}
	tag, err := r.pool.Exec(ctx, `UPDATE questions SET data=$2 WHERE id=$1`, id, data)
	if err != nil {
		return domain.Question{}, fmt.Errorf("update question: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	return question, nil
}

func (r *QuestionRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM questions WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete question: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuestionNotFound
	}
	return nil
}

func unmarshalQuestion(raw []byte) (domain.Question, error) {
	var question domain.Question
	if err := json.Unmarshal(raw, &question); err != nil {
		return domain.Question{}, fmt.Errorf("unmarshal question: %w", err)
	}
	return question, nil
}
