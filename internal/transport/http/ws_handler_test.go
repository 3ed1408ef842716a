package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"liveclass-quiz-service/internal/app"
	"liveclass-quiz-service/internal/infra/memory"
	"github.com/gorilla/websocket"
)

type sessionFixture struct {
	server *httptest.Server
	ledger *app.ProgressLedger
	store  *app.QuestionStore
}

func newSessionFixture(t *testing.T, answerWindow time.Duration) *sessionFixture {
	t.Helper()
	store := app.NewQuestionStore(memory.NewQuestionRepository())
	ledger := app.NewProgressLedger(memory.NewProgressRepository())
	transport := memory.NewTransport()
	handler := NewSessionHandler(app.NewPublisher(store, transport), ledger, transport, answerWindow)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", handler.ServeWS)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return &sessionFixture{server: server, ledger: ledger, store: store}
}

func (f *sessionFixture) dial(t *testing.T, classID, userID, name, role string) *websocket.Conn {
	t.Helper()
	u := "ws" + f.server.URL[len("http"):] + "/ws?classId=" + classID + "&userId=" + userID + "&name=" + name
	if role != "" {
		u += "&role=" + role
	}
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) (string, json.RawMessage) {
	t.Helper()
	var msg struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s", expect, msg.Type)
	}
	return msg.Type, msg.Payload
}

func TestBroadcastAnswerFlow(t *testing.T) {
	ctx := context.Background()
	fixture := newSessionFixture(t, 5*time.Second)
	if _, err := fixture.store.AddQuestion(ctx, "class-1", "2+2=?", [4]string{"3", "4", "5", "6"}, 1); err != nil {
		t.Fatalf("seed question: %v", err)
	}

	presenter := fixture.dial(t, "class-1", "t1", "Teacher", RolePresenter)
	participant := fixture.dial(t, "class-1", "u1", "Alice", "")

	if err := presenter.WriteJSON(map[string]any{"type": "broadcast"}); err != nil {
		t.Fatalf("write broadcast: %v", err)
	}

	_, payload := readNext(participant, t, "quiz")
	var prompt quizPrompt
	if err := json.Unmarshal(payload, &prompt); err != nil {
		t.Fatalf("decode prompt: %v", err)
	}
	if prompt.Question != "2+2=?" || prompt.Options != [4]string{"3", "4", "5", "6"} {
		t.Fatalf("unexpected prompt: %+v", prompt)
	}

	answer := map[string]any{
		"type":    "answer",
		"payload": map[string]any{"quizId": prompt.QuizID, "optionIndex": 1},
	}
	if err := participant.WriteJSON(answer); err != nil {
		t.Fatalf("write answer: %v", err)
	}

	_, payload = readNext(participant, t, "quizResult")
	var result quizResult
	if err := json.Unmarshal(payload, &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.QuizID != prompt.QuizID || result.Outcome != "correct" {
		t.Fatalf("unexpected result: %+v", result)
	}

	record, err := fixture.ledger.GetByUserID(ctx, "u1")
	if err != nil {
		t.Fatalf("ledger lookup: %v", err)
	}
	if record.CorrectCount != 1 || record.UnansweredCount != 0 {
		t.Fatalf("unexpected record: %+v", record)
	}
}

func TestUnansweredParticipantTimesOut(t *testing.T) {
	ctx := context.Background()
	fixture := newSessionFixture(t, 100*time.Millisecond)
	if _, err := fixture.store.AddQuestion(ctx, "class-1", "2+2=?", [4]string{"3", "4", "5", "6"}, 1); err != nil {
		t.Fatalf("seed question: %v", err)
	}

	presenter := fixture.dial(t, "class-1", "t1", "Teacher", RolePresenter)
	participant := fixture.dial(t, "class-1", "u2", "Bob", "")

	if err := presenter.WriteJSON(map[string]any{"type": "broadcast"}); err != nil {
		t.Fatalf("write broadcast: %v", err)
	}

	readNext(participant, t, "quiz")

	_, payload := readNext(participant, t, "quizResult")
	var result quizResult
	if err := json.Unmarshal(payload, &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.Outcome != "unanswered" {
		t.Fatalf("expected unanswered, got %+v", result)
	}

	record, err := fixture.ledger.GetByUserID(ctx, "u2")
	if err != nil {
		t.Fatalf("ledger lookup: %v", err)
	}
	if record.UnansweredCount != 1 || record.CorrectCount != 0 {
		t.Fatalf("unexpected record: %+v", record)
	}
}

func TestEmptyBankYieldsNotice(t *testing.T) {
	fixture := newSessionFixture(t, time.Second)

	presenter := fixture.dial(t, "class-empty", "t1", "Teacher", RolePresenter)
	if err := presenter.WriteJSON(map[string]any{"type": "broadcast"}); err != nil {
		t.Fatalf("write broadcast: %v", err)
	}

	msgType, payload := readNext(presenter, t, "notice")
	var notice noticePayload
	if err := json.Unmarshal(payload, &notice); err != nil {
		t.Fatalf("decode %s: %v", msgType, err)
	}
	if notice.Message != "no questions available" {
		t.Fatalf("unexpected notice: %+v", notice)
	}
}

func TestOnlyPresenterMayBroadcast(t *testing.T) {
	fixture := newSessionFixture(t, time.Second)

	participant := fixture.dial(t, "class-1", "u1", "Alice", "")
	if err := participant.WriteJSON(map[string]any{"type": "broadcast"}); err != nil {
		t.Fatalf("write broadcast: %v", err)
	}
	readNext(participant, t, "error")
}

func TestBroadcastScopedToClass(t *testing.T) {
	ctx := context.Background()
	fixture := newSessionFixture(t, time.Second)
	if _, err := fixture.store.AddQuestion(ctx, "class-1", "2+2=?", [4]string{"3", "4", "5", "6"}, 1); err != nil {
		t.Fatalf("seed question: %v", err)
	}

	presenter := fixture.dial(t, "class-1", "t1", "Teacher", RolePresenter)
	outsider := fixture.dial(t, "class-2", "u9", "Zoe", "")

	if err := presenter.WriteJSON(map[string]any{"type": "broadcast"}); err != nil {
		t.Fatalf("write broadcast: %v", err)
	}

	_ = outsider.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	var msg struct {
		Type string `json:"type"`
	}
	if err := outsider.ReadJSON(&msg); err == nil {
		t.Fatalf("class-2 participant received class-1 frame %q", msg.Type)
	}
}

func TestChatRelay(t *testing.T) {
	fixture := newSessionFixture(t, time.Second)

	alice := fixture.dial(t, "class-1", "u1", "Alice", "")
	bob := fixture.dial(t, "class-1", "u2", "Bob", "")

	// Give Bob's subscription a moment to register before Alice speaks.
	time.Sleep(50 * time.Millisecond)

	chat := map[string]any{
		"type":    "chat",
		"payload": map[string]any{"text": "hello"},
	}
	if err := alice.WriteJSON(chat); err != nil {
		t.Fatalf("write chat: %v", err)
	}

	_, payload := readNext(bob, t, "chat")
	var frame chatFrame
	if err := json.Unmarshal(payload, &frame); err != nil {
		t.Fatalf("decode chat: %v", err)
	}
	if frame.SenderName != "Alice" || frame.Text != "hello" {
		t.Fatalf("unexpected chat frame: %+v", frame)
	}
}
