package memory

import (
	"context"
	"sync"

	"liveclass-quiz-service/internal/domain"
)

// QuestionRepository is an in-memory implementation of app.QuestionRepository.
type QuestionRepository struct {
	mu    sync.RWMutex
	banks map[string][]domain.Question // classID -> questions in insertion order
	index map[string]string            // question id -> classID
}

func NewQuestionRepository() *QuestionRepository {
	return &QuestionRepository{
		banks: make(map[string][]domain.Question),
		index: make(map[string]string),
	}
}

func (r *QuestionRepository) Insert(_ context.Context, question domain.Question) (domain.Question, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.banks[question.ClassID] = append(r.banks[question.ClassID], question)
	r.index[question.ID] = question.ClassID
	return question, nil
}

func (r *QuestionRepository) Get(_ context.Context, id string) (domain.Question, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	question, _, ok := r.findLocked(id)
	if !ok {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	return question, nil
}

func (r *QuestionRepository) ListByClass(_ context.Context, classID string) ([]domain.Question, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	bank := r.banks[classID]
	out := make([]domain.Question, len(bank))
	copy(out, bank)
	return out, nil
}

func (r *QuestionRepository) Update(_ context.Context, id string, fields domain.QuestionUpdate) (domain.Question, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	question, pos, ok := r.findLocked(id)
	if !ok {
		return domain.Question{}, domain.ErrQuestionNotFound
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
	r.banks[question.ClassID][pos] = question
	return question, nil
}

func (r *QuestionRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	question, pos, ok := r.findLocked(id)
	if !ok {
		return domain.ErrQuestionNotFound
	}
	bank := r.banks[question.ClassID]
	r.banks[question.ClassID] = append(bank[:pos], bank[pos+1:]...)
	delete(r.index, id)
	return nil
}

// findLocked resolves a question and its position within its class bank.
func (r *QuestionRepository) findLocked(id string) (domain.Question, int, bool) {
	classID, ok := r.index[id]
	if !ok {
		return domain.Question{}, 0, false
	}
	for i, q := range r.banks[classID] {
		if q.ID == id {
			return q, i, true
		}
	}
	return domain.Question{}, 0, false
}
