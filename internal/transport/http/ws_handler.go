package http

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"liveclass-quiz-service/internal/app"
	"liveclass-quiz-service/internal/domain"
	"github.com/gorilla/websocket"
)

// RolePresenter marks the session participant allowed to broadcast quizzes.
const RolePresenter = "presenter"

// SessionHandler bridges websocket clients and the quiz session: presenters
// trigger broadcasts, participants answer, chat is relayed on its own topic.
// One response collector runs server-side per (connection, broadcast) pair.
type SessionHandler struct {
	publisher    *app.Publisher
	ledger       *app.ProgressLedger
	transport    app.Transport
	answerWindow time.Duration
	upgrader     websocket.Upgrader
}

func NewSessionHandler(publisher *app.Publisher, ledger *app.ProgressLedger, transport app.Transport, answerWindow time.Duration) *SessionHandler {
	if answerWindow <= 0 {
		answerWindow = app.DefaultAnswerWindow
	}
	return &SessionHandler{
		publisher:    publisher,
		ledger:       ledger,
		transport:    transport,
		answerWindow: answerWindow,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	QuizID      string `json:"quizId"`
	OptionIndex int    `json:"optionIndex"`
}

type chatPayload struct {
	Text string `json:"text"`
}

// quizPrompt is the participant-facing view of a broadcast; the correct
// option index never leaves the server.
type quizPrompt struct {
	QuizID     string    `json:"quizId"`
	Question   string    `json:"question"`
	Options    [4]string `json:"options"`
	SenderName string    `json:"senderName"`
	WindowMs   int64     `json:"windowMs"`
}

type quizResult struct {
	QuizID  string `json:"quizId"`
	Outcome string `json:"outcome"`
}

type chatFrame struct {
	SenderName string `json:"senderName"`
	Text       string `json:"text"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type noticePayload struct {
	Message string `json:"message"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets and wires them into the
// session: transport subscriptions in, broadcasts and answers out.
func (h *SessionHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	classID := r.URL.Query().Get("classId")
	userID := r.URL.Query().Get("userId")
	displayName := r.URL.Query().Get("name")
	role := r.URL.Query().Get("role")
	if classID == "" || userID == "" || displayName == "" {
		http.Error(w, "missing classId, userId, or name", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	quizTopic := app.SessionTopic(app.TopicQuiz, classID)
	chatTopic := app.SessionTopic(app.TopicChat, classID)

	quizUpdates, cancelQuiz, err := h.transport.Subscribe(r.Context(), quizTopic)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer cancelQuiz()
	chatUpdates, cancelChat, err := h.transport.Subscribe(r.Context(), chatTopic)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer cancelChat()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	pumpDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for {
			select {
			case msg := <-send:
				if err := conn.WriteJSON(msg); err != nil {
					log.Printf("ws write error: %v", err)
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	// One collector per live broadcast; concurrent broadcasts each get their
	// own and resolve independently.
	var collectorsMu sync.Mutex
	collectors := make(map[string]*app.Collector)

	// send is never closed: collector timers may resolve after the
	// connection is gone, and their frames are simply dropped here.
	trySend := func(msg outboundMessage[any]) {
		select {
		case <-closeSignals:
		case send <- msg:
		}
	}

	onQuiz := func(env domain.Envelope) {
		quiz, ok := env.Message.(domain.BroadcastQuiz)
		if !ok {
			return
		}
		// The presenter never answers its own broadcast.
		if quiz.SenderID == userID {
			return
		}
		// A replayed broadcast whose window already lapsed is not answerable.
		if !quiz.IssuedAt.IsZero() && time.Since(quiz.IssuedAt) > h.answerWindow {
			return
		}
		collectorsMu.Lock()
		if _, seen := collectors[quiz.ID]; seen {
			collectorsMu.Unlock()
			return
		}
		collector := app.NewCollector(h.ledger, quiz, userID, displayName, h.answerWindow, func(resolved domain.BroadcastQuiz, outcome domain.Outcome, _ error) {
			collectorsMu.Lock()
			delete(collectors, resolved.ID)
			collectorsMu.Unlock()
			trySend(outboundMessage[any]{Type: "quizResult", Payload: quizResult{
				QuizID:  resolved.ID,
				Outcome: outcome.String(),
			}})
		})
		collectors[quiz.ID] = collector
		collectorsMu.Unlock()

		collector.Start()
		trySend(outboundMessage[any]{Type: "quiz", Payload: quizPrompt{
			QuizID:     quiz.ID,
			Question:   quiz.Question,
			Options:    quiz.Options,
			SenderName: quiz.SenderName,
			WindowMs:   h.answerWindow.Milliseconds(),
		}})
	}

	go func() {
		defer close(pumpDone)
		for {
			select {
			case env, ok := <-quizUpdates:
				if !ok {
					return
				}
				onQuiz(env)
			case env, ok := <-chatUpdates:
				if !ok {
					return
				}
				chat, isChat := env.Message.(domain.ChatMessage)
				if !isChat {
					continue
				}
				trySend(outboundMessage[any]{Type: "chat", Payload: chatFrame{
					SenderName: env.SenderName,
					Text:       chat.Text,
				}})
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "broadcast":
			if role != RolePresenter {
				trySend(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "only the presenter may broadcast"}})
				continue
			}
			_, published, err := h.publisher.BroadcastRandomQuiz(r.Context(), classID, quizTopic, userID, displayName)
			if err != nil {
				// Transport failures must not take down the session.
				log.Printf("broadcast failed: %v", err)
				trySend(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "broadcast failed"}})
				continue
			}
			if !published {
				trySend(outboundMessage[any]{Type: "notice", Payload: noticePayload{Message: "no questions available"}})
			}
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				trySend(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}})
				continue
			}
			collectorsMu.Lock()
			collector := collectors[payload.QuizID]
			collectorsMu.Unlock()
			if collector == nil {
				// Unknown or already resolved broadcast; late answers are
				// silently ignored.
				continue
			}
			collector.Answer(r.Context(), payload.OptionIndex)
		case "chat":
			var payload chatPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				trySend(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid chat payload"}})
				continue
			}
			err := h.transport.Publish(r.Context(), chatTopic, domain.Envelope{
				SenderID:   userID,
				SenderName: displayName,
				Message:    domain.ChatMessage{Text: payload.Text},
			}, app.PublishOptions{})
			if err != nil {
				log.Printf("chat publish failed: %v", err)
			}
		default:
			trySend(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}})
		}
	}

	close(closeSignals)
	<-pumpDone
	<-writerDone
}
