package anatomy

import "time"

// Question types as the backend names them.
const (
	TypeMultipleChoice = "multiple_choice"
	TypeTrueFalse      = "true_false"
	TypeFillBlank      = "fill_blank"
)

type Option struct {
	OptionID string `json:"option_id"`
	Text     string `json:"text"`
}

type Question struct {
	QuestionID string   `json:"question_id"`
	Prompt     string   `json:"prompt"`
	Type       string   `json:"type"`
	Points     int      `json:"points"`
	Options    []Option `json:"options,omitempty"`
}

// Quiz is the backend's quiz definition. Read-only on this side:
// the session layer never mutates it.
type Quiz struct {
	QuizID           string     `json:"quiz_id"`
	Slug             string     `json:"slug"`
	Title            string     `json:"title"`
	Questions        []Question `json:"questions"`
	TimeLimitMinutes int        `json:"time_limit_minutes"` // 0 = untimed
	PassingPercent   int        `json:"passing_percent"`
}

// QuestionResult is the per-question correctness breakdown inside a
// graded Result.
type QuestionResult struct {
	QuestionID string `json:"question_id"`
	Correct    bool   `json:"correct"`
	Attempted  bool   `json:"attempted"`
	Points     int    `json:"points"`
}

// Result is produced exclusively by the remote grader; nothing in this
// repository computes scores.
type Result struct {
	QuizID           string           `json:"quiz_id"`
	Score            int              `json:"score"`
	TotalPoints      int              `json:"total_points"`
	Percentage       float64          `json:"percentage"`
	Passed           bool             `json:"passed"`
	CorrectAnswers   int              `json:"correct_answers"`
	IncorrectAnswers int              `json:"incorrect_answers"`
	Answers          []QuestionResult `json:"answers"`
	TimeTakenSeconds int              `json:"time_taken"`
}

type QuizSummary struct {
	QuizID        string    `json:"quiz_id"`
	Slug          string    `json:"slug"`
	Title         string    `json:"title"`
	QuestionCount int       `json:"question_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// Model is a catalog entry for a 3D anatomy model.
type Model struct {
	ModelID     string `json:"model_id"`
	Slug        string `json:"slug"`
	Title       string `json:"title"`
	OrganSystem string `json:"organ_system"`
	Premium     bool   `json:"premium"`
}

type Bookmark struct {
	ModelID   string    `json:"model_id"`
	Slug      string    `json:"slug"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

type Note struct {
	NoteID    string    `json:"note_id"`
	ModelID   string    `json:"model_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}
