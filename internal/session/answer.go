package session

// Answer is the value recorded for one question slot. It is a closed set:
// the unexported method keeps implementations inside this package so every
// consumer deals with exactly these three kinds.
type Answer interface {
	wire() string
}

// ChoiceAnswer records the selected option of a multiple-choice question.
type ChoiceAnswer struct {
	OptionID string
}

func (a ChoiceAnswer) wire() string { return a.OptionID }

// TrueFalseAnswer records a true/false question. The backend contract is
// the strings "true"/"false"; the bool keeps comparisons typed on this side.
type TrueFalseAnswer struct {
	Value bool
}

func (a TrueFalseAnswer) wire() string {
	if a.Value {
		return "true"
	}
	return "false"
}

// TextAnswer records a fill-in-the-blank response verbatim. Normalization,
// if configured, happens when the submission payload is built, not here.
type TextAnswer struct {
	Text string
}

func (a TextAnswer) wire() string { return a.Text }
