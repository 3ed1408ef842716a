package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	mrand "math/rand"
	"strings"
	"sync"
	"time"

	"liveclass-quiz-service/internal/domain"
)

// QuestionRepository abstracts how question banks are stored (in-memory, Postgres, etc).
type QuestionRepository interface {
	Insert(ctx context.Context, question domain.Question) (domain.Question, error)
	Get(ctx context.Context, id string) (domain.Question, error)
	ListByClass(ctx context.Context, classID string) ([]domain.Question, error)
	Update(ctx context.Context, id string, fields domain.QuestionUpdate) (domain.Question, error)
	Delete(ctx context.Context, id string) error
}

// QuestionStore owns validation and random selection over a class's question bank.
type QuestionStore struct {
	repo QuestionRepository

	mu  sync.Mutex
	rnd *mrand.Rand
}

func NewQuestionStore(repo QuestionRepository) *QuestionStore {
	return &QuestionStore{
		repo: repo,
		rnd:  mrand.New(mrand.NewSource(time.Now().UnixNano())),
	}
}

// AddQuestion validates and stores a new question for a class.
func (s *QuestionStore) AddQuestion(ctx context.Context, classID, text string, options [4]string, correctIndex int) (domain.Question, error) {
	if strings.TrimSpace(classID) == "" {
		return domain.Question{}, fmt.Errorf("%w: class id is required", domain.ErrInvalidQuestion)
	}
	if err := validateQuestionFields(text, options, correctIndex); err != nil {
		return domain.Question{}, err
	}
	return s.repo.Insert(ctx, domain.Question{
		ID:           newID(),
		ClassID:      classID,
		Text:         text,
		Options:      options,
		CorrectIndex: correctIndex,
	})
}

// ListQuestions returns the class's current question bank.
func (s *QuestionStore) ListQuestions(ctx context.Context, classID string) ([]domain.Question, error) {
	return s.repo.ListByClass(ctx, classID)
}

// UpdateQuestion applies the given fields to an existing question. Validation
// covers whichever fields are present; option uniqueness is enforced here the
// same way it is on add.
func (s *QuestionStore) UpdateQuestion(ctx context.Context, id string, fields domain.QuestionUpdate) (domain.Question, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Question{}, err
	}

	text := current.Text
	if fields.Text != nil {
		text = *fields.Text
	}
	options := current.Options
	if fields.Options != nil {
		options = *fields.Options
	}
	correctIndex := current.CorrectIndex
	if fields.CorrectIndex != nil {
		correctIndex = *fields.CorrectIndex
	}
	if err := validateQuestionFields(text, options, correctIndex); err != nil {
		return domain.Question{}, err
	}
	return s.repo.Update(ctx, id, fields)
}

// DeleteQuestion removes a question from its class's bank.
func (s *QuestionStore) DeleteQuestion(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// PickRandom selects one question uniformly from the class's bank. An empty
// bank yields domain.ErrNoQuestions; selection has no weighting and no
// repetition avoidance.
func (s *QuestionStore) PickRandom(ctx context.Context, classID string) (domain.Question, error) {
	questions, err := s.repo.ListByClass(ctx, classID)
	if err != nil {
		return domain.Question{}, err
	}
	if len(questions) == 0 {
		return domain.Question{}, domain.ErrNoQuestions
	}

	s.mu.Lock()
	idx := s.rnd.Intn(len(questions))
	s.mu.Unlock()
	return questions[idx], nil
}

func validateQuestionFields(text string, options [4]string, correctIndex int) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: text must not be empty", domain.ErrInvalidQuestion)
	}
	seen := make(map[string]struct{}, len(options))
	for i, opt := range options {
		if strings.TrimSpace(opt) == "" {
			return fmt.Errorf("%w: option %d must not be empty", domain.ErrInvalidQuestion, i)
		}
		if _, dup := seen[opt]; dup {
			return fmt.Errorf("%w: options must be distinct", domain.ErrInvalidQuestion)
		}
		seen[opt] = struct{}{}
	}
	if correctIndex < 0 || correctIndex >= domain.OptionCount {
		return fmt.Errorf("%w: correct index %d out of range", domain.ErrInvalidQuestion, correctIndex)
	}
	return nil
}

// newID returns a random 16-hex-char identifier.
func newID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%016x", mrand.Int63())
	}
	return hex.EncodeToString(buf)
}
