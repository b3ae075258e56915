package session

import (
	"errors"
	"time"
)

var ErrNoQuestions = errors.New("quiz has no questions")

// Session is the in-memory record of one quiz attempt: which quiz, where
// the user is, what they have answered, and how much time is left. It is
// ephemeral; nothing here is ever persisted or shared across attempts.
//
// Invariants, after every operation:
//   - current is a valid index into answers (or the session is empty)
//   - len(answers) never changes for the lifetime of a started session
//   - remainingSeconds never goes negative
//
// Session is not safe for concurrent use; Manager owns the locking.
type Session struct {
	quizID           string
	startedAt        time.Time
	current          int
	answers          []Answer
	remainingSeconds int
	timed            bool
}

// Start replaces any prior attempt unconditionally. questionCount must be
// positive; a non-positive count means the caller handed us malformed quiz
// data and is reported as ErrNoQuestions.
func (s *Session) Start(quizID string, questionCount, timeLimitMinutes int, now time.Time) error {
	if questionCount <= 0 {
		return ErrNoQuestions
	}

	s.quizID = quizID
	s.startedAt = now
	s.current = 0
	s.answers = make([]Answer, questionCount)
	s.timed = timeLimitMinutes > 0
	s.remainingSeconds = 0
	if s.timed {
		s.remainingSeconds = timeLimitMinutes * 60
	}
	return nil
}

// SetAnswer writes a slot. An out-of-range index is a caller bug, not a
// recoverable condition, and panics via the slice bounds check.
func (s *Session) SetAnswer(index int, answer Answer) {
	s.answers[index] = answer
}

// GoTo clamps to the valid index range instead of erroring; Next and Prev
// are no-ops at the boundaries and never wrap.
func (s *Session) GoTo(index int) {
	if len(s.answers) == 0 {
		return
	}
	if index < 0 {
		index = 0
	}
	if index > len(s.answers)-1 {
		index = len(s.answers) - 1
	}
	s.current = index
}

func (s *Session) Next() { s.GoTo(s.current + 1) }

func (s *Session) Prev() { s.GoTo(s.current - 1) }

// Clear resets to the empty shape. A new attempt always goes through Start.
func (s *Session) Clear() {
	*s = Session{}
}

// decrementSecond is the countdown's entry point; it clamps at zero.
func (s *Session) decrementSecond() {
	if s.remainingSeconds > 0 {
		s.remainingSeconds--
	}
}

func (s *Session) active() bool { return s.answers != nil }

func (s *Session) QuizID() string { return s.quizID }

func (s *Session) StartedAt() time.Time { return s.startedAt }

func (s *Session) Current() int { return s.current }

func (s *Session) QuestionCount() int { return len(s.answers) }

// Answer returns the slot value; nil means unanswered.
func (s *Session) Answer(index int) Answer {
	if index < 0 || index >= len(s.answers) {
		return nil
	}
	return s.answers[index]
}

func (s *Session) AnsweredCount() int {
	count := 0
	for _, answer := range s.answers {
		if answer != nil {
			count++
		}
	}
	return count
}

// Remaining reports the countdown value and whether the attempt is timed
// at all; untimed attempts report (0, false).
func (s *Session) Remaining() (int, bool) {
	if !s.timed {
		return 0, false
	}
	return s.remainingSeconds, true
}
