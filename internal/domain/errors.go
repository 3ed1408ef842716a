package domain

import "errors"

var (
	// ErrInvalidQuestion is wrapped by validation failures on question input.
	ErrInvalidQuestion = errors.New("invalid question")
	// ErrQuestionNotFound indicates a question ID does not exist.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrNoQuestions indicates a class has an empty question bank at broadcast time.
	ErrNoQuestions = errors.New("no questions available")
	// ErrRecordNotFound indicates a progress record lookup yielded nothing.
	ErrRecordNotFound = errors.New("progress record not found")
	// ErrTransportClosed is returned when publishing on a closed transport.
	ErrTransportClosed = errors.New("transport closed")
)
