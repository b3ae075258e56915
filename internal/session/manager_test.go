package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"medatlas/internal/anatomy"
)

type fakeSubmitClient struct {
	mu       sync.Mutex
	calls    int
	requests []SubmitRequest
	result   anatomy.Result
	err      error

	// When set, SubmitAttempt blocks until released is closed.
	started  chan struct{}
	released chan struct{}
}

func (f *fakeSubmitClient) SubmitAttempt(_ context.Context, req SubmitRequest) (anatomy.Result, error) {
	f.mu.Lock()
	f.calls++
	f.requests = append(f.requests, req)
	started := f.started
	released := f.released
	f.mu.Unlock()

	if started != nil {
		close(started)
		f.mu.Lock()
		f.started = nil
		f.mu.Unlock()
	}
	if released != nil {
		<-released
	}

	if f.err != nil {
		return anatomy.Result{}, f.err
	}
	return f.result, nil
}

func (f *fakeSubmitClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeSubmitClient) lastRequest(t *testing.T) SubmitRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		t.Fatalf("no submit requests recorded")
	}
	return f.requests[len(f.requests)-1]
}

func threeQuestionQuiz() anatomy.Quiz {
	return anatomy.Quiz{
		QuizID: "quiz-skeletal",
		Slug:   "skeletal-system",
		Title:  "Skeletal System",
		Questions: []anatomy.Question{
			{
				QuestionID: "q1",
				Prompt:     "Which bone is the longest?",
				Type:       anatomy.TypeMultipleChoice,
				Points:     2,
				Options: []anatomy.Option{
					{OptionID: "a1", Text: "Femur"},
					{OptionID: "a2", Text: "Tibia"},
				},
			},
			{
				QuestionID: "q2",
				Prompt:     "Adults have 206 bones.",
				Type:       anatomy.TypeTrueFalse,
				Points:     1,
			},
			{
				QuestionID: "q3",
				Prompt:     "Red cells are produced in bone ___.",
				Type:       anatomy.TypeFillBlank,
				Points:     1,
			},
		},
	}
}

func timedQuiz(questions, minutes int) anatomy.Quiz {
	quiz := anatomy.Quiz{
		QuizID:           "quiz-timed",
		TimeLimitMinutes: minutes,
	}
	for i := 0; i < questions; i++ {
		quiz.Questions = append(quiz.Questions, anatomy.Question{
			QuestionID: "q" + string(rune('1'+i)),
			Type:       anatomy.TypeTrueFalse,
		})
	}
	return quiz
}

// newTestManager uses a tick interval long enough that the real ticker
// never fires during a test; ticks are driven by hand via tick().
func newTestManager(client SubmitClient, opts ...ManagerOption) *Manager {
	opts = append([]ManagerOption{WithTickInterval(time.Hour)}, opts...)
	return NewManager(client, opts...)
}

func TestStartRejectsEmptyQuiz(t *testing.T) {
	m := newTestManager(&fakeSubmitClient{})
	err := m.Start(anatomy.Quiz{QuizID: "quiz-empty"})
	if !errors.Is(err, ErrNoQuestions) {
		t.Fatalf("Start with no questions = %v, want ErrNoQuestions", err)
	}
	if m.State() != StateNotStarted {
		t.Fatalf("state = %v, want not_started", m.State())
	}
}

func TestUntimedFlowSubmitsNonEmptyAnswers(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	client := &fakeSubmitClient{result: anatomy.Result{QuizID: "quiz-skeletal", Score: 4, TotalPoints: 4, Passed: true}}
	m := newTestManager(client, WithClock(clock))

	if err := m.Start(threeQuestionQuiz()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	m.SetAnswer(0, ChoiceAnswer{OptionID: "a1"})
	m.Next()
	m.SetAnswer(1, TrueFalseAnswer{Value: true})
	m.Next()
	m.SetAnswer(2, TextAnswer{Text: "blood"})

	now = now.Add(90 * time.Second)
	if err := m.Submit(context.Background()); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	req := client.lastRequest(t)
	if req.QuizID != "quiz-skeletal" {
		t.Fatalf("request quiz id = %q", req.QuizID)
	}
	if len(req.Answers) != 3 {
		t.Fatalf("submitted answers = %d, want 3", len(req.Answers))
	}
	want := []SubmittedAnswer{
		{QuestionID: "q1", Value: "a1"},
		{QuestionID: "q2", Value: "true"},
		{QuestionID: "q3", Value: "blood"},
	}
	for i, answer := range req.Answers {
		if answer != want[i] {
			t.Fatalf("answer %d = %+v, want %+v", i, answer, want[i])
		}
	}
	if req.TimeTakenSeconds != 90 {
		t.Fatalf("timeTaken = %d, want 90 (wall clock for untimed)", req.TimeTakenSeconds)
	}

	if m.State() != StateCompleted {
		t.Fatalf("state = %v, want completed", m.State())
	}
	result, ok := m.Result()
	if !ok || !result.Passed || result.Score != 4 {
		t.Fatalf("result = (%+v, %t), want stored passing result", result, ok)
	}
}

func TestSubmitSkipsEmptySlots(t *testing.T) {
	client := &fakeSubmitClient{}
	m := newTestManager(client)
	if err := m.Start(threeQuestionQuiz()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	m.SetAnswer(1, TrueFalseAnswer{Value: false})

	if err := m.Submit(context.Background()); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	req := client.lastRequest(t)
	if len(req.Answers) != 1 || req.Answers[0].QuestionID != "q2" || req.Answers[0].Value != "false" {
		t.Fatalf("answers = %+v, want only q2=false", req.Answers)
	}
}

func TestTextNormalization(t *testing.T) {
	client := &fakeSubmitClient{}
	m := newTestManager(client, WithTextNormalization(true))
	if err := m.Start(threeQuestionQuiz()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	m.SetAnswer(0, ChoiceAnswer{OptionID: "A1"})
	m.SetAnswer(2, TextAnswer{Text: "  Marrow "})

	if err := m.Submit(context.Background()); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	req := client.lastRequest(t)
	if req.Answers[0].Value != "A1" {
		t.Fatalf("option ids must not be normalized, got %q", req.Answers[0].Value)
	}
	if req.Answers[1].Value != "marrow" {
		t.Fatalf("text answer = %q, want %q", req.Answers[1].Value, "marrow")
	}
}

func TestDoubleSubmissionIsRejectedWhileInFlight(t *testing.T) {
	client := &fakeSubmitClient{
		started:  make(chan struct{}),
		released: make(chan struct{}),
	}
	m := newTestManager(client)
	if err := m.Start(threeQuestionQuiz()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	firstDone := make(chan error, 1)
	go func() {
		firstDone <- m.Submit(context.Background())
	}()

	<-client.started
	if !m.Submitting() {
		t.Fatalf("Submitting() = false while request in flight")
	}
	if err := m.Submit(context.Background()); !errors.Is(err, ErrSubmissionInFlight) {
		t.Fatalf("second Submit = %v, want ErrSubmissionInFlight", err)
	}

	close(client.released)
	if err := <-firstDone; err != nil {
		t.Fatalf("first Submit failed: %v", err)
	}
	if client.callCount() != 1 {
		t.Fatalf("network submissions = %d, want exactly 1", client.callCount())
	}
}

func TestFailedSubmissionLeavesSessionIntact(t *testing.T) {
	client := &fakeSubmitClient{err: errors.New("503 from grader")}
	m := newTestManager(client)
	if err := m.Start(threeQuestionQuiz()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	m.SetAnswer(0, ChoiceAnswer{OptionID: "a2"})
	m.Next()

	err := m.Submit(context.Background())
	if !errors.Is(err, ErrSubmissionFailed) {
		t.Fatalf("Submit = %v, want ErrSubmissionFailed", err)
	}

	if m.Submitting() {
		t.Fatalf("Submitting() still true after failure")
	}
	view := m.View()
	if view.State != StateInProgress {
		t.Fatalf("state = %v, want in_progress for retry", view.State)
	}
	if view.Index != 1 || view.AnsweredCount != 1 {
		t.Fatalf("session mutated by failure: %+v", view)
	}

	// Retry succeeds once the grader recovers.
	client.err = nil
	if err := m.Submit(context.Background()); err != nil {
		t.Fatalf("retry Submit failed: %v", err)
	}
	if m.State() != StateCompleted {
		t.Fatalf("state after retry = %v, want completed", m.State())
	}
}

func TestCountdownSurvivesFailedSubmission(t *testing.T) {
	client := &fakeSubmitClient{
		started:  make(chan struct{}),
		released: make(chan struct{}),
		err:      errors.New("502 from grader"),
	}
	m := newTestManager(client)
	if err := m.Start(timedQuiz(1, 1)); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	gen := m.attemptGen

	for i := 0; i < 10; i++ {
		if !m.tick(gen) {
			t.Fatalf("tick %d stopped early", i+1)
		}
	}

	done := make(chan error, 1)
	go func() {
		done <- m.Submit(context.Background())
	}()
	<-client.started

	// The clock keeps moving while the request is in flight.
	for i := 0; i < 5; i++ {
		if !m.tick(gen) {
			t.Fatalf("countdown stopped during in-flight submission")
		}
	}
	if remaining := m.View().RemainingSeconds; remaining != 45 {
		t.Fatalf("remaining during submission = %d, want 45", remaining)
	}

	close(client.released)
	if err := <-done; !errors.Is(err, ErrSubmissionFailed) {
		t.Fatalf("Submit = %v, want ErrSubmissionFailed", err)
	}
	if m.State() != StateInProgress {
		t.Fatalf("state after failure = %v, want in_progress", m.State())
	}

	// The failure must not kill the countdown: ticks keep decrementing
	// and expiry still auto-submits once the grader recovers.
	client.err = nil
	for i := 0; i < 44; i++ {
		if !m.tick(gen) {
			t.Fatalf("countdown dead after failed submission (tick %d)", i+1)
		}
	}
	if remaining := m.View().RemainingSeconds; remaining != 1 {
		t.Fatalf("remaining before expiry = %d, want 1", remaining)
	}
	if m.tick(gen) {
		t.Fatalf("expiring tick should stop the countdown")
	}
	if m.State() != StateCompleted {
		t.Fatalf("state after expiry = %v, want completed", m.State())
	}
	if client.callCount() != 2 {
		t.Fatalf("network submissions = %d, want failed manual plus expiry auto", client.callCount())
	}
}

func TestCountdownAutoSubmitsExactlyOnce(t *testing.T) {
	client := &fakeSubmitClient{}
	m := newTestManager(client)
	if err := m.Start(timedQuiz(2, 1)); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	gen := m.attemptGen

	for i := 0; i < 59; i++ {
		if !m.tick(gen) {
			t.Fatalf("tick %d stopped early", i+1)
		}
		if remaining := m.View().RemainingSeconds; remaining != 59-i {
			t.Fatalf("remaining after tick %d = %d, want %d", i+1, remaining, 59-i)
		}
	}

	if m.tick(gen) {
		t.Fatalf("expiring tick should stop the countdown")
	}
	if client.callCount() != 1 {
		t.Fatalf("auto-submissions = %d, want exactly 1", client.callCount())
	}

	req := client.lastRequest(t)
	if len(req.Answers) != 0 {
		t.Fatalf("expired with no input should submit empty answers, got %+v", req.Answers)
	}
	if req.TimeTakenSeconds != 60 {
		t.Fatalf("timeTaken = %d, want 60", req.TimeTakenSeconds)
	}

	// Stale ticks after completion never resubmit or go negative.
	for i := 0; i < 5; i++ {
		if m.tick(gen) {
			t.Fatalf("tick after completion should report stopped")
		}
	}
	if client.callCount() != 1 {
		t.Fatalf("submissions after stale ticks = %d, want 1", client.callCount())
	}
}

func TestClearCancelsCountdown(t *testing.T) {
	client := &fakeSubmitClient{}
	m := newTestManager(client)
	if err := m.Start(timedQuiz(1, 1)); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	gen := m.attemptGen

	for i := 0; i < 10; i++ {
		m.tick(gen)
	}
	m.Clear()

	for i := 0; i < 120; i++ {
		if m.tick(gen) {
			t.Fatalf("stale tick %d kept running after Clear", i+1)
		}
	}
	if client.callCount() != 0 {
		t.Fatalf("submissions after Clear = %d, want 0", client.callCount())
	}
	if m.State() != StateNotStarted {
		t.Fatalf("state = %v, want not_started", m.State())
	}
}

func TestRestartInvalidatesOldCountdown(t *testing.T) {
	client := &fakeSubmitClient{}
	m := newTestManager(client)
	if err := m.Start(timedQuiz(1, 1)); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	oldGen := m.attemptGen

	if err := m.Start(timedQuiz(1, 2)); err != nil {
		t.Fatalf("restart failed: %v", err)
	}

	for i := 0; i < 120; i++ {
		if m.tick(oldGen) {
			t.Fatalf("old countdown survived restart")
		}
	}
	if remaining := m.View().RemainingSeconds; remaining != 120 {
		t.Fatalf("new session remaining = %d, want untouched 120", remaining)
	}
	if client.callCount() != 0 {
		t.Fatalf("stale countdown submitted %d times", client.callCount())
	}
}

func TestRetakeStartsFresh(t *testing.T) {
	client := &fakeSubmitClient{result: anatomy.Result{QuizID: "quiz-skeletal"}}
	m := newTestManager(client)

	if err := m.Start(threeQuestionQuiz()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	m.SetAnswer(0, TextAnswer{Text: "x"})
	m.GoTo(2)
	if err := m.Submit(context.Background()); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if m.State() != StateCompleted {
		t.Fatalf("state = %v, want completed", m.State())
	}

	// Completed is terminal: mutations are ignored.
	m.SetAnswer(1, TextAnswer{Text: "ignored"})
	m.Next()

	if err := m.Start(threeQuestionQuiz()); err != nil {
		t.Fatalf("retake Start failed: %v", err)
	}
	view := m.View()
	if view.State != StateInProgress || view.Index != 0 || view.AnsweredCount != 0 {
		t.Fatalf("retake view = %+v, want fresh session", view)
	}
	if _, ok := m.Result(); ok {
		t.Fatalf("previous result leaked into new attempt")
	}
}

func TestSubmitWithoutSessionFails(t *testing.T) {
	m := newTestManager(&fakeSubmitClient{})
	if err := m.Submit(context.Background()); !errors.Is(err, ErrNoActiveSession) {
		t.Fatalf("Submit with no session = %v, want ErrNoActiveSession", err)
	}
}

func TestClearDuringInFlightSubmissionDropsResult(t *testing.T) {
	client := &fakeSubmitClient{
		started:  make(chan struct{}),
		released: make(chan struct{}),
		result:   anatomy.Result{QuizID: "quiz-skeletal", Passed: true},
	}
	m := newTestManager(client)
	if err := m.Start(threeQuestionQuiz()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- m.Submit(context.Background())
	}()

	<-client.started
	m.Clear()
	close(client.released)

	if err := <-done; err != nil {
		t.Fatalf("orphaned submit returned error: %v", err)
	}
	if _, ok := m.Result(); ok {
		t.Fatalf("result applied to a cleared session")
	}
	if m.State() != StateNotStarted {
		t.Fatalf("state = %v, want not_started", m.State())
	}
}

func TestCountdownTicksOnRealTicker(t *testing.T) {
	client := &fakeSubmitClient{}
	m := NewManager(client, WithTickInterval(time.Millisecond))
	if err := m.Start(timedQuiz(1, 1)); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if m.View().RemainingSeconds < 60 {
			m.Clear()
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("countdown never ticked on the real ticker")
}
