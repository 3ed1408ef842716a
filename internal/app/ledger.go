package app

import (
	"context"
	"errors"
	"time"

	"liveclass-quiz-service/internal/domain"
)

// ProgressRepository abstracts how progress records are stored.
type ProgressRepository interface {
	FindByUserID(ctx context.Context, userID string) (domain.ProgressRecord, error)
	Insert(ctx context.Context, record domain.ProgressRecord) (domain.ProgressRecord, error)
	Update(ctx context.Context, record domain.ProgressRecord) (domain.ProgressRecord, error)
	List(ctx context.Context) ([]domain.ProgressRecord, error)
	Delete(ctx context.Context, id string) error
}

// ProgressLedger keeps one running tally of quiz outcomes per user.
type ProgressLedger struct {
	repo ProgressRepository
	now  func() time.Time
}

func NewProgressLedger(repo ProgressRepository) *ProgressLedger {
	return &ProgressLedger{repo: repo, now: time.Now}
}

// NewProgressLedgerWithClock is test-only for deterministic timestamps.
func NewProgressLedgerWithClock(repo ProgressRepository, now func() time.Time) *ProgressLedger {
	return &ProgressLedger{repo: repo, now: now}
}

// RecordOutcome increments exactly one counter on the user's record, creating
// the record with zeroed counters first if the user has none yet. The ledger
// performs no dedup; at-most-once per response window is the collector's job.
func (l *ProgressLedger) RecordOutcome(ctx context.Context, userID, userName string, outcome domain.Outcome) (domain.ProgressRecord, error) {
	record, err := l.repo.FindByUserID(ctx, userID)
	switch {
	case errors.Is(err, domain.ErrRecordNotFound):
		record = domain.ProgressRecord{
			ID:       newID(),
			UserID:   userID,
			UserName: userName,
		}
		applyOutcome(&record, outcome)
		record.UpdatedAt = l.now()
		return l.repo.Insert(ctx, record)
	case err != nil:
		return domain.ProgressRecord{}, err
	}

	record.UserName = userName
	applyOutcome(&record, outcome)
	record.UpdatedAt = l.now()
	return l.repo.Update(ctx, record)
}

// GetByUserID returns the user's record or domain.ErrRecordNotFound.
func (l *ProgressLedger) GetByUserID(ctx context.Context, userID string) (domain.ProgressRecord, error) {
	return l.repo.FindByUserID(ctx, userID)
}

// ListAll returns every progress record.
func (l *ProgressLedger) ListAll(ctx context.Context) ([]domain.ProgressRecord, error) {
	return l.repo.List(ctx)
}

// Delete removes a record by its id (admin action).
func (l *ProgressLedger) Delete(ctx context.Context, id string) error {
	return l.repo.Delete(ctx, id)
}

func applyOutcome(record *domain.ProgressRecord, outcome domain.Outcome) {
	switch outcome {
	case domain.OutcomeCorrect:
		record.CorrectCount++
	case domain.OutcomeIncorrect:
		record.IncorrectCount++
	case domain.OutcomeUnanswered:
		record.UnansweredCount++
	}
}
