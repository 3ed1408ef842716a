package memory

import (
	"context"
	"testing"
	"time"

	"liveclass-quiz-service/internal/domain"
)

func TestCachedQuestionsServeFromCacheUntilTTL(t *testing.T) {
	ctx := context.Background()
	inner := NewQuestionRepository()
	cached := NewCachedQuestionRepository(inner, time.Minute)

	_, _ = inner.Insert(ctx, domain.Question{ID: "q1", ClassID: "c1", Text: "one", Options: [4]string{"a", "b", "c", "d"}})

	first, err := cached.ListByClass(ctx, "c1")
	if err != nil || len(first) != 1 {
		t.Fatalf("warm list: %v %d", err, len(first))
	}

	// Write behind the cache's back: the stale entry is served until TTL.
	_, _ = inner.Insert(ctx, domain.Question{ID: "q2", ClassID: "c1", Text: "two", Options: [4]string{"a", "b", "c", "d"}})
	stale, _ := cached.ListByClass(ctx, "c1")
	if len(stale) != 1 {
		t.Fatalf("expected cached bank of 1, got %d", len(stale))
	}
}

func TestCachedQuestionsInvalidateOnWrite(t *testing.T) {
	ctx := context.Background()
	cached := NewCachedQuestionRepository(NewQuestionRepository(), time.Minute)

	q1, _ := cached.Insert(ctx, domain.Question{ID: "q1", ClassID: "c1", Text: "one", Options: [4]string{"a", "b", "c", "d"}})
	if bank, _ := cached.ListByClass(ctx, "c1"); len(bank) != 1 {
		t.Fatalf("expected 1 question, got %d", len(bank))
	}

	_, _ = cached.Insert(ctx, domain.Question{ID: "q2", ClassID: "c1", Text: "two", Options: [4]string{"e", "f", "g", "h"}})
	if bank, _ := cached.ListByClass(ctx, "c1"); len(bank) != 2 {
		t.Fatalf("insert must invalidate the class entry, got %d", len(bank))
	}

	if err := cached.Delete(ctx, q1.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if bank, _ := cached.ListByClass(ctx, "c1"); len(bank) != 1 || bank[0].ID != "q2" {
		t.Fatalf("delete must invalidate the class entry, got %+v", bank)
	}
}
