package domain

import "time"

// OptionCount is the number of choices every question carries.
const OptionCount = 4

// Question models an MCQ question belonging to a class's question bank.
type Question struct {
	ID           string    `json:"id"`
	ClassID      string    `json:"classId"`
	Text         string    `json:"text"`
	Options      [4]string `json:"options"`
	CorrectIndex int       `json:"correctIndex"`
}

// QuestionUpdate carries the editable fields of a question; nil means "leave as is".
type QuestionUpdate struct {
	Text         *string
	Options      *[4]string
	CorrectIndex *int
}

// Outcome classifies a participant's response to one broadcast quiz.
type Outcome int

const (
	OutcomeCorrect Outcome = iota
	OutcomeIncorrect
	OutcomeUnanswered
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCorrect:
		return "correct"
	case OutcomeIncorrect:
		return "incorrect"
	case OutcomeUnanswered:
		return "unanswered"
	}
	return "unknown"
}

// ProgressRecord is the per-user running tally of quiz-response outcomes.
// There is exactly one record per user, created lazily on first interaction.
type ProgressRecord struct {
	ID              string    `json:"id"`
	UserID          string    `json:"userId"`
	UserName        string    `json:"userName"`
	CorrectCount    int       `json:"correctCount"`
	IncorrectCount  int       `json:"incorrectCount"`
	UnansweredCount int       `json:"unansweredCount"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// BroadcastQuiz is an ephemeral question pushed to all session participants.
// It lives for the duration of one response window and is never persisted.
type BroadcastQuiz struct {
	ID           string    `json:"id"`
	Question     string    `json:"question"`
	Options      [4]string `json:"options"`
	CorrectIndex int       `json:"correctIndex"`
	SenderID     string    `json:"senderId"`
	SenderName   string    `json:"senderName"`
	IssuedAt     time.Time `json:"issuedAt"`
}

// ChatMessage is a free-text message relayed between session participants.
type ChatMessage struct {
	Text string `json:"text"`
}

// Message is the tagged variant carried over the session transport. The
// concrete kind is decided at the transport boundary when decoding, never by
// sniffing payload shape.
type Message interface {
	Kind() MessageKind
}

// MessageKind discriminates transport payloads.
type MessageKind string

const (
	MessageChat MessageKind = "chat"
	MessageQuiz MessageKind = "quiz"
)

func (ChatMessage) Kind() MessageKind   { return MessageChat }
func (BroadcastQuiz) Kind() MessageKind { return MessageQuiz }

// Envelope wraps a message with its sender metadata as seen by subscribers.
type Envelope struct {
	SenderID   string
	SenderName string
	Timestamp  time.Time
	Message    Message
}
