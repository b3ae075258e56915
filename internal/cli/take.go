package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"medatlas/internal/anatomy"
	"medatlas/internal/session"
)

// runTake drives one quiz attempt: fetch, start the session, then loop
// between rendering the current question and applying input until the
// attempt completes, is abandoned, or the countdown submits it.
func (a *App) runTake(ctx context.Context, reader *bufio.Reader, out io.Writer, slug string) error {
	quiz, err := a.backend.GetQuiz(ctx, slug)
	if err != nil {
		return err
	}

	if err := a.manager.Start(quiz); err != nil {
		if errors.Is(err, session.ErrNoQuestions) {
			return fmt.Errorf("quiz %s has no questions", slug)
		}
		return err
	}

	fmt.Fprintf(out, "\n%s\n", quiz.Title)
	if quiz.TimeLimitMinutes > 0 {
		fmt.Fprintf(out, "time limit: %d minute(s); the attempt submits itself when time runs out\n", quiz.TimeLimitMinutes)
	}

	for {
		view := a.manager.View()
		switch view.State {
		case session.StateCompleted:
			a.finishAttempt(ctx, out, quiz)
			return nil
		case session.StateNotStarted:
			return nil
		}

		renderQuestion(out, quiz, view)

		line, err := reader.ReadString('\n')
		if err != nil {
			a.manager.Clear()
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		// The countdown may have finished the attempt while we were
		// blocked on input; do not apply stale input to the result.
		if a.manager.State() == session.StateCompleted {
			a.finishAttempt(ctx, out, quiz)
			return nil
		}

		fields := strings.Fields(input)
		switch strings.ToLower(fields[0]) {
		case "quit":
			a.manager.Clear()
			fmt.Fprintln(out, "attempt abandoned")
			return nil
		case "next", "n":
			a.manager.Next()
		case "prev", "p":
			a.manager.Prev()
		case "goto", "g":
			index, parseErr := parseQuestionNumber(fields, view.QuestionCount)
			if parseErr != nil {
				fmt.Fprintf(out, "invalid goto: %v\n", parseErr)
				continue
			}
			a.manager.GoTo(index)
		case "submit":
			if done := a.submitAttempt(ctx, out); done {
				a.finishAttempt(ctx, out, quiz)
				return nil
			}
		default:
			answer, parseErr := parseAnswer(quiz.Questions[view.Index], input)
			if parseErr != nil {
				fmt.Fprintf(out, "%v\n", parseErr)
				continue
			}
			a.manager.SetAnswer(view.Index, answer)
			if view.Index < view.QuestionCount-1 {
				a.manager.Next()
			}
		}
	}
}

// submitAttempt reports true when the attempt reached Completed.
func (a *App) submitAttempt(ctx context.Context, out io.Writer) bool {
	err := a.manager.Submit(ctx)
	switch {
	case err == nil:
		return true
	case errors.Is(err, session.ErrSubmissionInFlight):
		// Double submit; the first request is still the attempt.
		return false
	case errors.Is(err, session.ErrNoActiveSession):
		// The countdown beat us to it.
		return a.manager.State() == session.StateCompleted
	default:
		fmt.Fprintln(out, "Failed to submit quiz — try again.")
		a.logger.Warn("quiz submission failed", "error", err)
		return false
	}
}

func (a *App) finishAttempt(ctx context.Context, out io.Writer, quiz anatomy.Quiz) {
	result, ok := a.manager.Result()
	a.manager.Clear()
	if !ok {
		return
	}

	printResult(out, quiz, result)

	if a.history != nil {
		if _, err := a.history.RecordAttempt(ctx, quiz.Title, result, time.Now().UTC()); err != nil {
			// Local history is best-effort; the graded result was shown.
			a.logger.Warn("failed to record attempt history", "quiz_id", result.QuizID, "error", err)
		}
	}
}

func printResult(out io.Writer, quiz anatomy.Quiz, result anatomy.Result) {
	outcome := "FAILED"
	if result.Passed {
		outcome = "PASSED"
	}
	fmt.Fprintf(out, "\nResult for %s: %s\n", quiz.Title, outcome)
	fmt.Fprintf(out, "score: %d/%d (%.1f%%)\n", result.Score, result.TotalPoints, result.Percentage)
	fmt.Fprintf(out, "correct: %d, incorrect: %d, time: %s\n",
		result.CorrectAnswers, result.IncorrectAnswers, formatClock(result.TimeTakenSeconds))

	if len(result.Answers) == 0 {
		return
	}
	promptByID := make(map[string]string, len(quiz.Questions))
	for _, question := range quiz.Questions {
		promptByID[question.QuestionID] = question.Prompt
	}
	for idx, item := range result.Answers {
		mark := "✗"
		if item.Correct {
			mark = "✓"
		}
		if !item.Attempted {
			mark = "·"
		}
		fmt.Fprintf(out, "  %s Q%d %s\n", mark, idx+1, promptByID[item.QuestionID])
	}
}

func renderQuestion(out io.Writer, quiz anatomy.Quiz, view session.View) {
	question := quiz.Questions[view.Index]

	fmt.Fprintln(out)
	header := fmt.Sprintf("Question %d/%d", view.Index+1, view.QuestionCount)
	if question.Points > 0 {
		header += fmt.Sprintf(" — %d pt", question.Points)
	}
	if view.Timed {
		header += " — " + formatClock(view.RemainingSeconds) + " remaining"
	}
	fmt.Fprintln(out, header)
	fmt.Fprintf(out, "%s\n", question.Prompt)

	if question.Type == anatomy.TypeMultipleChoice {
		for idx, option := range question.Options {
			fmt.Fprintf(out, "  %c. %s\n", 'A'+idx, option.Text)
		}
	}

	if view.Answer != nil {
		fmt.Fprintf(out, "  [answered: %s]\n", describeAnswer(question, view.Answer))
	}
	fmt.Fprintf(out, "(%s; or: next, prev, goto N, submit, quit)\n> ", answerHint(question))
}

func answerHint(question anatomy.Question) string {
	switch question.Type {
	case anatomy.TypeMultipleChoice:
		if len(question.Options) > 0 {
			return fmt.Sprintf("answer A-%c", 'A'+len(question.Options)-1)
		}
		return "answer by letter"
	case anatomy.TypeTrueFalse:
		return "answer true/false"
	default:
		return "type your answer"
	}
}

func describeAnswer(question anatomy.Question, answer session.Answer) string {
	switch value := answer.(type) {
	case session.ChoiceAnswer:
		for idx, option := range question.Options {
			if option.OptionID == value.OptionID {
				return fmt.Sprintf("%c. %s", 'A'+idx, option.Text)
			}
		}
		return value.OptionID
	case session.TrueFalseAnswer:
		if value.Value {
			return "true"
		}
		return "false"
	case session.TextAnswer:
		return value.Text
	default:
		return ""
	}
}
