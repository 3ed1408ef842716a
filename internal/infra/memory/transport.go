package memory

import (
	"context"
	"sync"
	"time"

	"liveclass-quiz-service/internal/app"
	"liveclass-quiz-service/internal/domain"
)

// Transport is an in-process implementation of app.Transport: a per-topic
// fan-out over buffered channels. Publishes with Persist retain the latest
// envelope so a late subscriber replays it on subscribe.
type Transport struct {
	mu          sync.Mutex
	closed      bool
	subscribers map[string]map[chan domain.Envelope]struct{}
	retained    map[string]domain.Envelope
}

func NewTransport() *Transport {
	return &Transport{
		subscribers: make(map[string]map[chan domain.Envelope]struct{}),
		retained:    make(map[string]domain.Envelope),
	}
}

func (t *Transport) Publish(_ context.Context, topic string, envelope domain.Envelope, opts app.PublishOptions) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return domain.ErrTransportClosed
	}
	if envelope.Timestamp.IsZero() {
		envelope.Timestamp = time.Now()
	}
	if opts.Persist {
		t.retained[topic] = envelope
	}
	for ch := range t.subscribers[topic] {
		select {
		case ch <- envelope:
		default:
			// Drop the oldest pending envelope so a slow subscriber cannot
			// block the broadcast.
			select {
			case <-ch:
			default:
			}
			ch <- envelope
		}
	}
	return nil
}

func (t *Transport) Subscribe(_ context.Context, topic string) (<-chan domain.Envelope, func(), error) {
	ch := make(chan domain.Envelope, 8)

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, nil, domain.ErrTransportClosed
	}
	if t.subscribers[topic] == nil {
		t.subscribers[topic] = make(map[chan domain.Envelope]struct{})
	}
	t.subscribers[topic][ch] = struct{}{}
	retained, hasRetained := t.retained[topic]
	t.mu.Unlock()

	if hasRetained {
		ch <- retained
	}

	cancel := func() {
		t.mu.Lock()
		if _, ok := t.subscribers[topic][ch]; ok {
			delete(t.subscribers[topic], ch)
			close(ch)
		}
		t.mu.Unlock()
	}
	return ch, cancel, nil
}

// Close rejects further publishes and subscriptions and closes all
// subscriber channels.
func (t *Transport) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.closed = true
	for _, subs := range t.subscribers {
		for ch := range subs {
			close(ch)
		}
	}
	t.subscribers = make(map[string]map[chan domain.Envelope]struct{})
}
