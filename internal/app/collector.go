package app

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"liveclass-quiz-service/internal/domain"
)

// DefaultAnswerWindow is how long a participant has to answer a broadcast.
const DefaultAnswerWindow = 10 * time.Second

// CollectorState is the lifecycle of one (participant, broadcast) pair.
type CollectorState int32

const (
	StateIdle CollectorState = iota
	StateAwaitingAnswer
	StateAnswered
	StateTimedOut
)

// Collector accepts at most one answer for one broadcast quiz within the
// response window and forwards the classified outcome to the progress ledger.
//
// The answer handler and the window timer race; a single compare-and-set on
// the state decides the winner, so exactly one outcome is recorded no matter
// how the two interleave. Answered and TimedOut are terminal.
type Collector struct {
	ledger   *ProgressLedger
	quiz     domain.BroadcastQuiz
	userID   string
	userName string
	window   time.Duration

	state atomic.Int32
	timer *time.Timer

	// onResolve runs after the outcome is recorded; the ledger error (already
	// logged and swallowed) is passed through as a retry hook.
	onResolve func(quiz domain.BroadcastQuiz, outcome domain.Outcome, err error)
}

func NewCollector(ledger *ProgressLedger, quiz domain.BroadcastQuiz, userID, userName string, window time.Duration, onResolve func(domain.BroadcastQuiz, domain.Outcome, error)) *Collector {
	if window <= 0 {
		window = DefaultAnswerWindow
	}
	return &Collector{
		ledger:    ledger,
		quiz:      quiz,
		userID:    userID,
		userName:  userName,
		window:    window,
		onResolve: onResolve,
	}
}

// Start arms the response window. Calling Start more than once is a no-op.
func (c *Collector) Start() {
	if !c.state.CompareAndSwap(int32(StateIdle), int32(StateAwaitingAnswer)) {
		return
	}
	c.timer = time.AfterFunc(c.window, func() {
		if !c.state.CompareAndSwap(int32(StateAwaitingAnswer), int32(StateTimedOut)) {
			return
		}
		c.resolve(context.Background(), domain.OutcomeUnanswered)
	})
}

// Answer records the participant's option selection. Only the first call
// within the window wins; late or repeated selections return false and have
// no effect.
func (c *Collector) Answer(ctx context.Context, optionIndex int) bool {
	if !c.state.CompareAndSwap(int32(StateAwaitingAnswer), int32(StateAnswered)) {
		return false
	}
	if c.timer != nil {
		c.timer.Stop()
	}

	outcome := domain.OutcomeIncorrect
	if optionIndex == c.quiz.CorrectIndex {
		outcome = domain.OutcomeCorrect
	}
	c.resolve(ctx, outcome)
	return true
}

// State reports the collector's current lifecycle state.
func (c *Collector) State() CollectorState {
	return CollectorState(c.state.Load())
}

// Quiz returns the broadcast this collector is tracking.
func (c *Collector) Quiz() domain.BroadcastQuiz {
	return c.quiz
}

func (c *Collector) resolve(ctx context.Context, outcome domain.Outcome) {
	_, err := c.ledger.RecordOutcome(ctx, c.userID, c.userName, outcome)
	if err != nil {
		// Progress counters are best-effort telemetry; a failed write must
		// not disrupt the live session.
		log.Printf("record outcome for user %s: %v", c.userID, err)
	}
	if c.onResolve != nil {
		c.onResolve(c.quiz, outcome, err)
	}
}
