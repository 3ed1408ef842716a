package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"liveclass-quiz-service/internal/app"
	"liveclass-quiz-service/internal/domain"
)

func TestTransportFansOutToAllSubscribers(t *testing.T) {
	ctx := context.Background()
	transport := NewTransport()

	first, cancelFirst, err := transport.Subscribe(ctx, app.TopicChat)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancelFirst()
	second, cancelSecond, err := transport.Subscribe(ctx, app.TopicChat)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancelSecond()

	err = transport.Publish(ctx, app.TopicChat, domain.Envelope{
		SenderID: "u1",
		Message:  domain.ChatMessage{Text: "hello"},
	}, app.PublishOptions{})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	for _, ch := range []<-chan domain.Envelope{first, second} {
		select {
		case env := <-ch:
			msg, ok := env.Message.(domain.ChatMessage)
			if !ok || msg.Text != "hello" {
				t.Fatalf("unexpected message: %+v", env.Message)
			}
			if env.Timestamp.IsZero() {
				t.Fatalf("expected transport to stamp timestamps")
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber starved")
		}
	}
}

func TestTransportScopesTopics(t *testing.T) {
	ctx := context.Background()
	transport := NewTransport()

	quizzes, cancel, _ := transport.Subscribe(ctx, app.TopicQuiz)
	defer cancel()

	_ = transport.Publish(ctx, app.TopicChat, domain.Envelope{Message: domain.ChatMessage{Text: "x"}}, app.PublishOptions{})

	select {
	case env := <-quizzes:
		t.Fatalf("chat message leaked onto quiz topic: %+v", env)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestTransportReplaysPersistedMessage(t *testing.T) {
	ctx := context.Background()
	transport := NewTransport()

	quiz := domain.BroadcastQuiz{ID: "b1", Question: "q", CorrectIndex: 0}
	_ = transport.Publish(ctx, app.TopicQuiz, domain.Envelope{SenderID: "t", Message: quiz}, app.PublishOptions{Persist: true})

	// Late subscriber still sees the retained broadcast.
	late, cancel, err := transport.Subscribe(ctx, app.TopicQuiz)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	select {
	case env := <-late:
		got, ok := env.Message.(domain.BroadcastQuiz)
		if !ok || got.ID != "b1" {
			t.Fatalf("expected replayed broadcast, got %+v", env.Message)
		}
	case <-time.After(time.Second):
		t.Fatalf("no replay for late subscriber")
	}
}

func TestTransportSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	ctx := context.Background()
	transport := NewTransport()

	slow, cancel, _ := transport.Subscribe(ctx, app.TopicChat)
	defer cancel()

	for i := 0; i < 32; i++ {
		if err := transport.Publish(ctx, app.TopicChat, domain.Envelope{Message: domain.ChatMessage{Text: "m"}}, app.PublishOptions{}); err != nil {
			t.Fatalf("publish %d blocked: %v", i, err)
		}
	}
	// The subscriber still has the most recent messages pending.
	select {
	case <-slow:
	default:
		t.Fatalf("expected pending message for slow subscriber")
	}
}

func TestTransportClose(t *testing.T) {
	ctx := context.Background()
	transport := NewTransport()

	ch, _, _ := transport.Subscribe(ctx, app.TopicChat)
	transport.Close()

	if _, ok := <-ch; ok {
		t.Fatalf("expected subscriber channel closed")
	}
	err := transport.Publish(ctx, app.TopicChat, domain.Envelope{Message: domain.ChatMessage{Text: "x"}}, app.PublishOptions{})
	if !errors.Is(err, domain.ErrTransportClosed) {
		t.Fatalf("expected closed error, got %v", err)
	}
	if _, _, err := transport.Subscribe(ctx, app.TopicChat); !errors.Is(err, domain.ErrTransportClosed) {
		t.Fatalf("expected closed error on subscribe, got %v", err)
	}
}
