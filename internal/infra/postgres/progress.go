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

// ProgressRepository stores one progress document per user.
type ProgressRepository struct {
	pool *pgxpool.Pool
}

func NewProgressRepository(pool *pgxpool.Pool) *ProgressRepository {
	return &ProgressRepository{pool: pool}
}

func (r *ProgressRepository) FindByUserID(ctx context.Context, userID string) (domain.ProgressRecord, error) {
	var raw []byte
	err := r.pool.QueryRow(ctx,
		`SELECT data FROM progress_records WHERE user_id=$1`, userID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ProgressRecord{}, domain.ErrRecordNotFound
	}
	if err != nil {
		return domain.ProgressRecord{}, fmt.Errorf("load progress record: %w", err)
	}
	return unmarshalRecord(raw)
}

func (r *ProgressRepository) Insert(ctx context.Context, record domain.ProgressRecord) (domain.ProgressRecord, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return domain.ProgressRecord{}, fmt.Errorf("marshal progress record: %w", err)
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO progress_records (id, user_id, data) VALUES ($1, $2, $3)`,
		record.ID, record.UserID, data)
	if err != nil {
		return domain.ProgressRecord{}, fmt.Errorf("insert progress record: %w", err)
	}
	return record, nil
}

func (r *ProgressRepository) Update(ctx context.Context, record domain.ProgressRecord) (domain.ProgressRecord, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return domain.ProgressRecord{}, fmt.Errorf("marshal progress record: %w", err)
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE progress_records SET data=$2 WHERE id=$1`, record.ID, data)
	if err != nil {
		return domain.ProgressRecord{}, fmt.Errorf("update progress record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ProgressRecord{}, domain.ErrRecordNotFound
	}
	return record, nil
}

func (r *ProgressRepository) List(ctx context.Context) ([]domain.ProgressRecord, error) {
	rows, err := r.pool.Query(ctx, `SELECT data FROM progress_records ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("list progress records: %w", err)
	}
	defer rows.Close()

	records := make([]domain.ProgressRecord, 0)
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan progress record: %w", err)
		}
		record, err := unmarshalRecord(raw)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (r *ProgressRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM progress_records WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete progress record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRecordNotFound
	}
	return nil
}

func unmarshalRecord(raw []byte) (domain.ProgressRecord, error) {
	var record domain.ProgressRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return domain.ProgressRecord{}, fmt.Errorf("unmarshal progress record: %w", err)
	}
	return record, nil
}
