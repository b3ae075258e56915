package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"medatlas/internal/anatomy"
	"medatlas/internal/session"
)

func parsePositiveLimit(args []string, index int, defaultValue int) (int, error) {
	if len(args) <= index {
		return defaultValue, nil
	}

	value, err := strconv.Atoi(args[index])
	if err != nil || value <= 0 {
		return 0, errors.New("must be a positive integer")
	}
	return value, nil
}

// parseQuestionNumber converts the 1-based "goto N" argument to a 0-based
// index. Range clamping is the session's job; only the shape is validated
// here.
func parseQuestionNumber(fields []string, questionCount int) (int, error) {
	if len(fields) != 2 {
		return 0, errors.New("usage: goto <question number>")
	}
	value, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, errors.New("question number must be an integer")
	}
	if value < 1 || value > questionCount {
		return 0, fmt.Errorf("question number must be between 1 and %d", questionCount)
	}
	return value - 1, nil
}

// parseAnswer turns raw input into the typed answer for the question's
// kind. The session layer stores whatever it is given; shaping the value
// happens here, at the rendering boundary.
func parseAnswer(question anatomy.Question, input string) (session.Answer, error) {
	switch question.Type {
	case anatomy.TypeMultipleChoice:
		return parseChoiceAnswer(question, input)
	case anatomy.TypeTrueFalse:
		return parseTrueFalseAnswer(input)
	case anatomy.TypeFillBlank:
		return session.TextAnswer{Text: input}, nil
	default:
		return nil, fmt.Errorf("unsupported question type %q", question.Type)
	}
}

func parseChoiceAnswer(question anatomy.Question, input string) (session.Answer, error) {
	if len(question.Options) == 0 {
		return nil, errors.New("question has no options")
	}

	letter := strings.ToUpper(strings.TrimSpace(input))
	maxLetter := byte('A' + len(question.Options) - 1)
	if len(letter) != 1 || letter[0] < 'A' || letter[0] > maxLetter {
		return nil, fmt.Errorf("answer with a letter A-%c", maxLetter)
	}

	option := question.Options[int(letter[0]-'A')]
	return session.ChoiceAnswer{OptionID: option.OptionID}, nil
}

func parseTrueFalseAnswer(input string) (session.Answer, error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "true", "t", "yes", "y":
		return session.TrueFalseAnswer{Value: true}, nil
	case "false", "f", "no":
		return session.TrueFalseAnswer{Value: false}, nil
	default:
		return nil, errors.New("answer true or false")
	}
}

func formatClock(totalSeconds int) string {
	if totalSeconds < 0 {
		totalSeconds = 0
	}
	return fmt.Sprintf("%02d:%02d", totalSeconds/60, totalSeconds%60)
}
