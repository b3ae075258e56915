package history

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"medatlas/internal/anatomy"
)

// Attempt is one completed, remotely graded attempt as the client keeps it
// locally. Only the result summary is recorded; the session itself is
// ephemeral and never persisted.
type Attempt struct {
	AttemptID        string
	QuizID           string
	QuizTitle        string
	Score            int
	TotalPoints      int
	Percentage       float64
	Passed           bool
	CorrectAnswers   int
	IncorrectAnswers int
	TimeTakenSeconds int
	SubmittedAt      time.Time
}

// Store keeps the local attempt history so `history` works without the
// backend.
type Store struct {
	db *sql.DB
}

func NewStore(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		path = "history.db"
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	store := &Store{db: db}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS attempts (
			attempt_id TEXT PRIMARY KEY,
			quiz_id TEXT NOT NULL,
			quiz_title TEXT NOT NULL,
			score INTEGER NOT NULL,
			total_points INTEGER NOT NULL,
			percentage REAL NOT NULL,
			passed INTEGER NOT NULL,
			correct_answers INTEGER NOT NULL,
			incorrect_answers INTEGER NOT NULL,
			time_taken_seconds INTEGER NOT NULL,
			submitted_at_unix INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_submitted_at ON attempts(submitted_at_unix DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_quiz ON attempts(quiz_id);`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// RecordAttempt stores a graded result and returns the row with its
// generated attempt id filled in.
func (s *Store) RecordAttempt(ctx context.Context, quizTitle string, result anatomy.Result, submittedAt time.Time) (Attempt, error) {
	if strings.TrimSpace(result.QuizID) == "" {
		return Attempt{}, errors.New("result has no quiz id")
	}

	attempt := Attempt{
		AttemptID:        uuid.NewString(),
		QuizID:           result.QuizID,
		QuizTitle:        quizTitle,
		Score:            result.Score,
		TotalPoints:      result.TotalPoints,
		Percentage:       result.Percentage,
		Passed:           result.Passed,
		CorrectAnswers:   result.CorrectAnswers,
		IncorrectAnswers: result.IncorrectAnswers,
		TimeTakenSeconds: result.TimeTakenSeconds,
		SubmittedAt:      submittedAt.UTC(),
	}

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO attempts (
			attempt_id, quiz_id, quiz_title, score, total_points, percentage,
			passed, correct_answers, incorrect_answers, time_taken_seconds, submitted_at_unix
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		attempt.AttemptID,
		attempt.QuizID,
		attempt.QuizTitle,
		attempt.Score,
		attempt.TotalPoints,
		attempt.Percentage,
		boolToInt(attempt.Passed),
		attempt.CorrectAnswers,
		attempt.IncorrectAnswers,
		attempt.TimeTakenSeconds,
		attempt.SubmittedAt.UnixNano(),
	)
	if err != nil {
		return Attempt{}, err
	}

	return attempt, nil
}

// ListRecent returns attempts newest first; limit <= 0 means all.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]Attempt, error) {
	query := `SELECT attempt_id, quiz_id, quiz_title, score, total_points, percentage,
			passed, correct_answers, incorrect_answers, time_taken_seconds, submitted_at_unix
		FROM attempts
		ORDER BY submitted_at_unix DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	attempts := make([]Attempt, 0)
	for rows.Next() {
		var (
			attempt         Attempt
			passed          int
			submittedAtUnix int64
		)
		if err := rows.Scan(
			&attempt.AttemptID,
			&attempt.QuizID,
			&attempt.QuizTitle,
			&attempt.Score,
			&attempt.TotalPoints,
			&attempt.Percentage,
			&passed,
			&attempt.CorrectAnswers,
			&attempt.IncorrectAnswers,
			&attempt.TimeTakenSeconds,
			&submittedAtUnix,
		); err != nil {
			return nil, err
		}
		attempt.Passed = passed != 0
		attempt.SubmittedAt = time.Unix(0, submittedAtUnix).UTC()
		attempts = append(attempts, attempt)
	}

	return attempts, rows.Err()
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
