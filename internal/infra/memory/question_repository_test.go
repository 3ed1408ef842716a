package memory

import (
	"context"
	"errors"
	"testing"

	"liveclass-quiz-service/internal/domain"
)

func TestQuestionRepositoryLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewQuestionRepository()

	q1, _ := repo.Insert(ctx, domain.Question{ID: "q1", ClassID: "c1", Text: "one", Options: [4]string{"a", "b", "c", "d"}, CorrectIndex: 0})
	_, _ = repo.Insert(ctx, domain.Question{ID: "q2", ClassID: "c1", Text: "two", Options: [4]string{"a", "b", "c", "d"}, CorrectIndex: 1})
	_, _ = repo.Insert(ctx, domain.Question{ID: "q3", ClassID: "c2", Text: "other class", Options: [4]string{"a", "b", "c", "d"}, CorrectIndex: 2})

	bank, err := repo.ListByClass(ctx, "c1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(bank) != 2 || bank[0].ID != "q1" || bank[1].ID != "q2" {
		t.Fatalf("expected c1 bank in insertion order, got %+v", bank)
	}

	newText := "updated"
	updated, err := repo.Update(ctx, q1.ID, domain.QuestionUpdate{Text: &newText})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Text != "updated" || updated.CorrectIndex != 0 {
		t.Fatalf("unexpected update: %+v", updated)
	}

	if err := repo.Delete(ctx, "q2"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	bank, _ = repo.ListByClass(ctx, "c1")
	if len(bank) != 1 {
		t.Fatalf("expected 1 left in bank, got %d", len(bank))
	}

	if _, err := repo.Get(ctx, "q2"); !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestQuestionRepositoryListCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewQuestionRepository()
	_, _ = repo.Insert(ctx, domain.Question{ID: "q1", ClassID: "c1", Text: "one", Options: [4]string{"a", "b", "c", "d"}})

	bank, _ := repo.ListByClass(ctx, "c1")
	bank[0].Text = "mutated"

	again, _ := repo.ListByClass(ctx, "c1")
	if again[0].Text != "one" {
		t.Fatalf("repository state leaked through list result")
	}
}
