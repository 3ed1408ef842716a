package memory

import (
	"context"
	"sync"

	"liveclass-quiz-service/internal/domain"
)

// ProgressRepository is an in-memory implementation of app.ProgressRepository.
type ProgressRepository struct {
	mu      sync.RWMutex
	byUser  map[string]domain.ProgressRecord // userID -> record
	userFor map[string]string                // record id -> userID
}

func NewProgressRepository() *ProgressRepository {
	return &ProgressRepository{
		byUser:  make(map[string]domain.ProgressRecord),
		userFor: make(map[string]string),
	}
}

func (r *ProgressRepository) FindByUserID(_ context.Context, userID string) (domain.ProgressRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	record, ok := r.byUser[userID]
	if !ok {
		return domain.ProgressRecord{}, domain.ErrRecordNotFound
	}
	return record, nil
}

func (r *ProgressRepository) Insert(_ context.Context, record domain.ProgressRecord) (domain.ProgressRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byUser[record.UserID] = record
	r.userFor[record.ID] = record.UserID
	return record, nil
}

func (r *ProgressRepository) Update(_ context.Context, record domain.ProgressRecord) (domain.ProgressRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byUser[record.UserID]; !ok {
		return domain.ProgressRecord{}, domain.ErrRecordNotFound
	}
	r.byUser[record.UserID] = record
	return record, nil
}

func (r *ProgressRepository) List(_ context.Context) ([]domain.ProgressRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.ProgressRecord, 0, len(r.byUser))
	for _, record := range r.byUser {
		out = append(out, record)
	}
	return out, nil
}

func (r *ProgressRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	userID, ok := r.userFor[id]
	if !ok {
		return domain.ErrRecordNotFound
	}
	delete(r.userFor, id)
	delete(r.byUser, userID)
	return nil
}
