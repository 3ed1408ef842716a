package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"liveclass-quiz-service/internal/app"
	"liveclass-quiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// Transport implements app.Transport on Redis pub/sub so broadcasts reach
// participants connected to other instances. A publish with Persist also
// stores the payload under a TTL key, replayed to late subscribers.
type Transport struct {
	client     *redis.Client
	persistTTL time.Duration
}

func NewTransport(client *redis.Client, persistTTL time.Duration) *Transport {
	return &Transport{client: client, persistTTL: persistTTL}
}

// wireMessage is the tagged on-the-wire form of a session message. The kind
// field decides the payload shape at decode time; subscribers never sniff.
type wireMessage struct {
	Kind       domain.MessageKind    `json:"kind"`
	SenderID   string                `json:"senderId"`
	SenderName string                `json:"senderName"`
	Timestamp  time.Time             `json:"timestamp"`
	Chat       *domain.ChatMessage   `json:"chat,omitempty"`
	Quiz       *domain.BroadcastQuiz `json:"quiz,omitempty"`
}

func (t *Transport) Publish(ctx context.Context, topic string, envelope domain.Envelope, opts app.PublishOptions) error {
	if envelope.Timestamp.IsZero() {
		envelope.Timestamp = time.Now()
	}
	data, err := encodeEnvelope(envelope)
	if err != nil {
		return err
	}
	if opts.Persist {
		if err := t.client.Set(ctx, persistKey(topic), data, t.persistTTL).Err(); err != nil {
			return fmt.Errorf("persist payload: %w", err)
		}
	}
	if err := t.client.Publish(ctx, channelKey(topic), data).Err(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

func (t *Transport) Subscribe(ctx context.Context, topic string) (<-chan domain.Envelope, func(), error) {
	pubsub := t.client.Subscribe(ctx, channelKey(topic))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("subscribe: %w", err)
	}

	out := make(chan domain.Envelope, 8)

	// Replay the retained payload, if any, before live messages.
	if data, err := t.client.Get(ctx, persistKey(topic)).Bytes(); err == nil {
		if envelope, err := decodeEnvelope(data); err == nil {
			out <- envelope
		}
	}

	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			envelope, err := decodeEnvelope([]byte(msg.Payload))
			if err != nil {
				log.Printf("drop malformed message on %s: %v", topic, err)
				continue
			}
			select {
			case out <- envelope:
			default:
				select {
				case <-out:
				default:
				}
				out <- envelope
			}
		}
	}()

	cancel := func() {
		_ = pubsub.Close()
	}
	return out, cancel, nil
}

func encodeEnvelope(envelope domain.Envelope) ([]byte, error) {
	wire := wireMessage{
		SenderID:   envelope.SenderID,
		SenderName: envelope.SenderName,
		Timestamp:  envelope.Timestamp,
	}
	switch msg := envelope.Message.(type) {
	case domain.ChatMessage:
		wire.Kind = domain.MessageChat
		wire.Chat = &msg
	case domain.BroadcastQuiz:
		wire.Kind = domain.MessageQuiz
		wire.Quiz = &msg
	default:
		return nil, fmt.Errorf("unsupported message type %T", envelope.Message)
	}
	return json.Marshal(wire)
}

func decodeEnvelope(data []byte) (domain.Envelope, error) {
	var wire wireMessage
	if err := json.Unmarshal(data, &wire); err != nil {
		return domain.Envelope{}, err
	}
	envelope := domain.Envelope{
		SenderID:   wire.SenderID,
		SenderName: wire.SenderName,
		Timestamp:  wire.Timestamp,
	}
	switch wire.Kind {
	case domain.MessageChat:
		if wire.Chat == nil {
			return domain.Envelope{}, fmt.Errorf("chat message without chat payload")
		}
		envelope.Message = *wire.Chat
	case domain.MessageQuiz:
		if wire.Quiz == nil {
			return domain.Envelope{}, fmt.Errorf("quiz message without quiz payload")
		}
		envelope.Message = *wire.Quiz
	default:
		return domain.Envelope{}, fmt.Errorf("unknown message kind %q", wire.Kind)
	}
	return envelope, nil
}

func channelKey(topic string) string {
	return "liveclass:topic:" + topic
}

func persistKey(topic string) string {
	return "liveclass:topic:" + topic + ":last"
}
