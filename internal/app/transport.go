package app

import (
	"context"

	"liveclass-quiz-service/internal/domain"
)

// Topics carried by the session transport.
const (
	TopicQuiz = "QUIZ"
	TopicChat = "CHAT"
)

// SessionTopic scopes a base topic to one class session.
func SessionTopic(base, classID string) string {
	return base + ":" + classID
}

// PublishOptions controls delivery behavior of a single publish.
type PublishOptions struct {
	// Persist asks the transport to retain the payload so that a late
	// subscriber can replay the most recent message on the topic.
	Persist bool
}

// Transport is the pub/sub channel supplied by the conferencing layer.
// Subscribers only see messages published after they subscribed, unless the
// transport supports persist replay.
type Transport interface {
	Publish(ctx context.Context, topic string, envelope domain.Envelope, opts PublishOptions) error
	// Subscribe returns a channel of envelopes and a cancel function the
	// caller must invoke to release the subscription.
	Subscribe(ctx context.Context, topic string) (<-chan domain.Envelope, func(), error)
}
