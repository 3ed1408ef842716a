package app

import (
	"context"
	"errors"
	"time"

	"liveclass-quiz-service/internal/domain"
)

// Publisher broadcasts a random question from a class's bank to all session
// participants. The presenter/participant role check belongs to the session
// layer; the publisher trusts its caller.
type Publisher struct {
	store     *QuestionStore
	transport Transport
	now       func() time.Time
}

func NewPublisher(store *QuestionStore, transport Transport) *Publisher {
	return &Publisher{store: store, transport: transport, now: time.Now}
}

// BroadcastRandomQuiz picks a question at random and publishes it on topic.
// An empty question bank is not an error: the broadcast is skipped and
// published is false so the caller can surface a notice instead of failing
// the session.
func (p *Publisher) BroadcastRandomQuiz(ctx context.Context, classID, topic, senderID, senderName string) (domain.BroadcastQuiz, bool, error) {
	question, err := p.store.PickRandom(ctx, classID)
	if errors.Is(err, domain.ErrNoQuestions) {
		return domain.BroadcastQuiz{}, false, nil
	}
	if err != nil {
		return domain.BroadcastQuiz{}, false, err
	}

	quiz := domain.BroadcastQuiz{
		ID:           newID(),
		Question:     question.Text,
		Options:      question.Options,
		CorrectIndex: question.CorrectIndex,
		SenderID:     senderID,
		SenderName:   senderName,
		IssuedAt:     p.now(),
	}
	err = p.transport.Publish(ctx, topic, domain.Envelope{
		SenderID:   senderID,
		SenderName: senderName,
		Timestamp:  quiz.IssuedAt,
		Message:    quiz,
	}, PublishOptions{Persist: true})
	if err != nil {
		return domain.BroadcastQuiz{}, false, err
	}
	return quiz, true, nil
}
