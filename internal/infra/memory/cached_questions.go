package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"liveclass-quiz-service/internal/app"
	"liveclass-quiz-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// CachedQuestionRepository caches class question banks with TTL to avoid
// repeated store hits during broadcast bursts. Writes pass through to the
// inner repository and invalidate the affected class's entry.
type CachedQuestionRepository struct {
	inner app.QuestionRepository
	ttl   time.Duration
	clock func() time.Time
	sf    singleflight.Group
	rnd   *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedBank
}

type cachedBank struct {
	questions []domain.Question
	expiresAt time.Time
}

func NewCachedQuestionRepository(inner app.QuestionRepository, ttl time.Duration) *CachedQuestionRepository {
	return &CachedQuestionRepository{
		inner: inner,
		ttl:   ttl,
		clock: time.Now,
		rnd:   rand.New(rand.NewSource(time.Now().UnixNano())),
		cache: make(map[string]cachedBank),
	}
}

func (r *CachedQuestionRepository) ListByClass(ctx context.Context, classID string) ([]domain.Question, error) {
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.cache[classID]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.questions, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(classID, func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.cache[classID]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.questions, nil
		}
		r.mu.RUnlock()

		questions, err := r.inner.ListByClass(ctx, classID)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.cache[classID] = cachedBank{
			questions: questions,
			expiresAt: now.Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (r *CachedQuestionRepository) Insert(ctx context.Context, question domain.Question) (domain.Question, error) {
	inserted, err := r.inner.Insert(ctx, question)
	if err != nil {
		return domain.Question{}, err
	}
	r.invalidate(inserted.ClassID)
	return inserted, nil
}

func (r *CachedQuestionRepository) Get(ctx context.Context, id string) (domain.Question, error) {
	return r.inner.Get(ctx, id)
}

func (r *CachedQuestionRepository) Update(ctx context.Context, id string, fields domain.QuestionUpdate) (domain.Question, error) {
	updated, err := r.inner.Update(ctx, id, fields)
	if err != nil {
		return domain.Question{}, err
	}
	r.invalidate(updated.ClassID)
	return updated, nil
}

func (r *CachedQuestionRepository) Delete(ctx context.Context, id string) error {
	question, err := r.inner.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := r.inner.Delete(ctx, id); err != nil {
		return err
	}
	r.invalidate(question.ClassID)
	return nil
}

func (r *CachedQuestionRepository) invalidate(classID string) {
	r.mu.Lock()
	delete(r.cache, classID)
	r.mu.Unlock()
}

func (r *CachedQuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
