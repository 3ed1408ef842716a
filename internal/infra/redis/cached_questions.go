package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"liveclass-quiz-service/internal/app"
	"liveclass-quiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// CachedQuestionRepository caches class question banks in Redis (JSON blob per
// class) and falls back to the inner repository on cache miss. Writes pass
// through and drop the class's cache key.
type CachedQuestionRepository struct {
	client *redis.Client
	inner  app.QuestionRepository
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewCachedQuestionRepository(client *redis.Client, inner app.QuestionRepository, ttl time.Duration) *CachedQuestionRepository {
	return &CachedQuestionRepository{
		client: client,
		inner:  inner,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *CachedQuestionRepository) ListByClass(ctx context.Context, classID string) ([]domain.Question, error) {
	key := r.bankKey(classID)

	if data, err := r.client.Get(ctx, key).Bytes(); err == nil {
		var questions []domain.Question
		if err := json.Unmarshal(data, &questions); err == nil {
			return questions, nil
		}
	}

	result, err, _ := r.sf.Do(classID, func() (interface{}, error) {
		// Re-check in case another goroutine filled the cache.
		if data, err := r.client.Get(ctx, key).Bytes(); err == nil {
			var questions []domain.Question
			if err := json.Unmarshal(data, &questions); err == nil {
				return questions, nil
			}
		}

		questions, err := r.inner.ListByClass(ctx, classID)
		if err != nil {
			return nil, err
		}
		if data, err := json.Marshal(questions); err == nil {
			// best-effort fill
			_ = r.client.Set(ctx, key, data, r.ttlWithJitter()).Err()
		}
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
	r.invalidate(ctx, inserted.ClassID)
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
	r.invalidate(ctx, updated.ClassID)
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
	r.invalidate(ctx, question.ClassID)
	return nil
}

func (r *CachedQuestionRepository) invalidate(ctx context.Context, classID string) {
	_ = r.client.Del(ctx, r.bankKey(classID)).Err()
}

func (r *CachedQuestionRepository) bankKey(classID string) string {
	return "liveclass:questions:" + classID
}

func (r *CachedQuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
