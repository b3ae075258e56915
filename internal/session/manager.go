package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"medatlas/internal/anatomy"
)

var (
	ErrSubmissionInFlight = errors.New("submission already in flight")
	ErrSubmissionFailed   = errors.New("failed to submit quiz")
	ErrNoActiveSession    = errors.New("no active quiz session")
)

// State is the per-attempt lifecycle. Completed is terminal: a retake goes
// through Start and gets a brand-new session.
type State int

const (
	StateNotStarted State = iota
	StateInProgress
	StateSubmitting
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateInProgress:
		return "in_progress"
	case StateSubmitting:
		return "submitting"
	case StateCompleted:
		return "completed"
	default:
		return "not_started"
	}
}

// SubmittedAnswer is one non-empty slot, keyed by question id, with the
// answer already encoded to its wire string.
type SubmittedAnswer struct {
	QuestionID string
	Value      string
}

type SubmitRequest struct {
	QuizID           string
	Answers          []SubmittedAnswer
	StartedAt        time.Time
	TimeTakenSeconds int
}

// SubmitClient is the remote grading boundary. Grading is authoritative on
// the backend; no local scoring ever happens.
type SubmitClient interface {
	SubmitAttempt(ctx context.Context, req SubmitRequest) (anatomy.Result, error)
}

// View is a read-only snapshot for rendering. Consumers never touch the
// session directly.
type View struct {
	State            State
	QuizID           string
	Index            int
	QuestionCount    int
	AnsweredCount    int
	Answer           Answer
	RemainingSeconds int
	Timed            bool
}

// Manager composes the session state container, the countdown, and the
// submission pipeline behind one mutex. The browser original relied on
// event-loop ordering; here the countdown goroutine and the input loop
// are serialized by the lock instead.
type Manager struct {
	client        SubmitClient
	clock         func() time.Time
	tickInterval  time.Duration
	normalizeText bool

	mu         sync.Mutex
	sess       Session
	quiz       anatomy.Quiz
	state      State
	submitting bool
	result     *anatomy.Result
	countdown  *countdown

	// attemptGen invalidates both stale countdown ticks and stale
	// submission continuations: anything that captured an older value
	// finds the session it belonged to no longer exists.
	attemptGen uint64
}

type ManagerOption func(*Manager)

// WithClock overrides wall-clock reads, for tests.
func WithClock(clock func() time.Time) ManagerOption {
	return func(m *Manager) { m.clock = clock }
}

// WithTickInterval overrides the one-second countdown cadence, for tests.
func WithTickInterval(interval time.Duration) ManagerOption {
	return func(m *Manager) { m.tickInterval = interval }
}

// WithTextNormalization trims and lower-cases fill-in-the-blank answers
// before submission. Whether the backend grades case-insensitively is its
// own business; this only controls what the client sends.
func WithTextNormalization(enabled bool) ManagerOption {
	return func(m *Manager) { m.normalizeText = enabled }
}

func NewManager(client SubmitClient, opts ...ManagerOption) *Manager {
	m := &Manager{
		client:       client,
		clock:        time.Now,
		tickInterval: time.Second,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start begins a fresh attempt at the given quiz, replacing any prior
// attempt unconditionally. For timed quizzes the countdown starts here.
func (m *Manager) Start(quiz anatomy.Quiz) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.sess.Start(quiz.QuizID, len(quiz.Questions), quiz.TimeLimitMinutes, m.clock()); err != nil {
		return err
	}

	m.invalidateLocked()
	m.quiz = quiz
	m.state = StateInProgress
	m.submitting = false
	m.result = nil

	if _, timed := m.sess.Remaining(); timed {
		gen := m.attemptGen
		m.countdown = startCountdown(m.tickInterval, func() bool {
			return m.tick(gen)
		})
	}
	return nil
}

// Clear tears the attempt down: countdown cancelled, session reset. Safe
// to call in any state.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.invalidateLocked()
	m.sess.Clear()
	m.quiz = anatomy.Quiz{}
	m.state = StateNotStarted
	m.submitting = false
	m.result = nil
}

// invalidateLocked bumps the generation and stops any running countdown so
// nothing that belonged to the previous attempt can act again.
func (m *Manager) invalidateLocked() {
	m.attemptGen++
	if m.countdown != nil {
		m.countdown.Stop()
		m.countdown = nil
	}
}

func (m *Manager) SetAnswer(index int, answer Answer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateInProgress {
		return
	}
	m.sess.SetAnswer(index, answer)
}

func (m *Manager) Next() { m.navigate((*Session).Next) }

func (m *Manager) Prev() { m.navigate((*Session).Prev) }

func (m *Manager) GoTo(index int) {
	m.navigate(func(s *Session) { s.GoTo(index) })
}

func (m *Manager) navigate(move func(*Session)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateInProgress {
		return
	}
	move(&m.sess)
}

// tick is the countdown callback. It returns false to stop ticking: either
// the attempt it belonged to is gone, or time just ran out and the
// auto-submission fired. A tick that lands while a submission is in
// flight keeps the clock moving and keeps ticking: a failed submission
// re-enters InProgress and expiry must still auto-submit afterwards.
func (m *Manager) tick(gen uint64) bool {
	m.mu.Lock()
	if gen != m.attemptGen {
		m.mu.Unlock()
		return false
	}

	switch m.state {
	case StateInProgress:
	case StateSubmitting:
		m.sess.decrementSecond()
		m.mu.Unlock()
		return true
	default:
		m.mu.Unlock()
		return false
	}

	m.sess.decrementSecond()
	remaining, timed := m.sess.Remaining()
	m.mu.Unlock()

	if !timed || remaining > 0 {
		return true
	}

	// Expiry submits with whatever answers are recorded; empty slots stay
	// empty and the grader scores them as unattempted.
	_ = m.Submit(context.Background())
	return false
}

// Submit runs the attempt through the remote grader. While a request is in
// flight any further call backs off with ErrSubmissionInFlight, which
// also makes the countdown's auto-submit and a manual submit mutually
// exclusive. On failure the session is left intact for an immediate retry.
func (m *Manager) Submit(ctx context.Context) error {
	m.mu.Lock()
	switch m.state {
	case StateSubmitting:
		m.mu.Unlock()
		return ErrSubmissionInFlight
	case StateInProgress:
	default:
		m.mu.Unlock()
		return ErrNoActiveSession
	}

	gen := m.attemptGen
	m.state = StateSubmitting
	m.submitting = true
	req := m.buildRequestLocked()
	m.mu.Unlock()

	result, err := m.client.SubmitAttempt(ctx, req)

	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.attemptGen {
		// The attempt was cleared or replaced while the request was in
		// flight; its outcome no longer has a session to apply to.
		return nil
	}

	m.submitting = false
	if err != nil {
		m.state = StateInProgress
		return fmt.Errorf("%w: %v", ErrSubmissionFailed, err)
	}

	m.result = &result
	m.state = StateCompleted
	m.invalidateLocked()
	m.sess.Clear()
	return nil
}

// buildRequestLocked packages the session for grading: non-empty slots
// only, keyed by question id, plus the elapsed-time computation.
func (m *Manager) buildRequestLocked() SubmitRequest {
	answers := make([]SubmittedAnswer, 0, m.sess.QuestionCount())
	for idx := 0; idx < m.sess.QuestionCount(); idx++ {
		answer := m.sess.Answer(idx)
		if answer == nil {
			continue
		}
		answers = append(answers, SubmittedAnswer{
			QuestionID: m.quiz.Questions[idx].QuestionID,
			Value:      m.encodeAnswer(answer),
		})
	}

	timeTaken := 0
	if remaining, timed := m.sess.Remaining(); timed {
		timeTaken = m.quiz.TimeLimitMinutes*60 - remaining
	} else {
		timeTaken = int(m.clock().Sub(m.sess.StartedAt()).Seconds())
	}

	return SubmitRequest{
		QuizID:           m.sess.QuizID(),
		Answers:          answers,
		StartedAt:        m.sess.StartedAt(),
		TimeTakenSeconds: timeTaken,
	}
}

func (m *Manager) encodeAnswer(answer Answer) string {
	value := answer.wire()
	if m.normalizeText {
		if _, ok := answer.(TextAnswer); ok {
			value = strings.ToLower(strings.TrimSpace(value))
		}
	}
	return value
}

// Submitting reports whether a grading request is in flight; it is the
// re-entry gate consumers can poll.
func (m *Manager) Submitting() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.submitting
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Result returns the graded outcome once the attempt is Completed. It does
// not depend on the session still existing.
func (m *Manager) Result() (anatomy.Result, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.result == nil {
		return anatomy.Result{}, false
	}
	return *m.result, true
}

func (m *Manager) View() View {
	m.mu.Lock()
	defer m.mu.Unlock()

	remaining, timed := m.sess.Remaining()
	return View{
		State:            m.state,
		QuizID:           m.sess.QuizID(),
		Index:            m.sess.Current(),
		QuestionCount:    m.sess.QuestionCount(),
		AnsweredCount:    m.sess.AnsweredCount(),
		Answer:           m.sess.Answer(m.sess.Current()),
		RemainingSeconds: remaining,
		Timed:            timed,
	}
}
