package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"medatlas/internal/anatomy"
	"medatlas/internal/history"
	"medatlas/internal/session"
)

const (
	defaultListLimit    = 10
	defaultHistoryLimit = 10
)

// Backend is the slice of the api client the interactive loop needs.
type Backend interface {
	GetQuiz(ctx context.Context, slug string) (anatomy.Quiz, error)
	ListQuizzes(ctx context.Context) ([]anatomy.QuizSummary, error)
	ListModels(ctx context.Context) ([]anatomy.Model, error)
	ListBookmarks(ctx context.Context) ([]anatomy.Bookmark, error)
	ToggleBookmark(ctx context.Context, modelID string) (bool, error)
	ListNotes(ctx context.Context) ([]anatomy.Note, error)
	CreateNote(ctx context.Context, modelID, body string) (anatomy.Note, error)
	Login(ctx context.Context, email, password string) (string, error)
}

// TokenStore is the persisted-login surface the loop needs.
type TokenStore interface {
	Save(token string) error
	Clear() error
	Expired(now time.Time) bool
}

// AttemptHistory records graded results locally; writes are best-effort.
type AttemptHistory interface {
	RecordAttempt(ctx context.Context, quizTitle string, result anatomy.Result, submittedAt time.Time) (history.Attempt, error)
	ListRecent(ctx context.Context, limit int) ([]history.Attempt, error)
}

type App struct {
	backend Backend
	manager *session.Manager
	tokens  TokenStore
	history AttemptHistory
	logger  *slog.Logger

	listLimit    int
	historyLimit int
}

type Config struct {
	ListLimit    int
	HistoryLimit int
	Logger       *slog.Logger
}

func NewApp(backend Backend, manager *session.Manager, tokens TokenStore, attempts AttemptHistory, cfg Config) *App {
	listLimit := cfg.ListLimit
	if listLimit <= 0 {
		listLimit = defaultListLimit
	}
	historyLimit := cfg.HistoryLimit
	if historyLimit <= 0 {
		historyLimit = defaultHistoryLimit
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &App{
		backend:      backend,
		manager:      manager,
		tokens:       tokens,
		history:      attempts,
		logger:       logger,
		listLimit:    listLimit,
		historyLimit: historyLimit,
	}
}

// Run is the interactive command loop. It only renders; all attempt state
// lives in the session manager and everything else on the backend.
func (a *App) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	reader := bufio.NewReader(in)

	fmt.Fprintln(out, "medatlas")
	if a.tokens != nil && a.tokens.Expired(time.Now()) {
		fmt.Fprintln(out, "not logged in. use: login <email>")
	}
	printHelp(out)

	for {
		fmt.Fprint(out, "\n> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(out)
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		args := strings.Fields(line)
		command := strings.ToLower(args[0])

		switch command {
		case "help":
			printHelp(out)
		case "exit":
			return nil
		case "login":
			if len(args) != 2 {
				fmt.Fprintln(out, "usage: login <email>")
				continue
			}
			if err := a.runLogin(ctx, reader, out, args[1]); err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
			}
		case "logout":
			if err := a.runLogout(out); err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
			}
		case "quizzes":
			if err := a.runQuizzes(ctx, out); err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
			}
		case "models":
			limit, parseErr := parsePositiveLimit(args, 1, a.listLimit)
			if parseErr != nil {
				fmt.Fprintf(out, "invalid models limit: %v\n", parseErr)
				continue
			}
			if err := a.runModels(ctx, out, limit); err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
			}
		case "bookmarks":
			if err := a.runBookmarks(ctx, out); err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
			}
		case "bookmark":
			if len(args) != 2 {
				fmt.Fprintln(out, "usage: bookmark <model_id>")
				continue
			}
			if err := a.runToggleBookmark(ctx, out, args[1]); err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
			}
		case "notes":
			if err := a.runNotes(ctx, out); err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
			}
		case "note":
			if len(args) < 3 {
				fmt.Fprintln(out, "usage: note <model_id> <text>")
				continue
			}
			body := strings.TrimSpace(strings.TrimPrefix(line, args[0]+" "+args[1]))
			if err := a.runCreateNote(ctx, out, args[1], body); err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
			}
		case "history":
			limit, parseErr := parsePositiveLimit(args, 1, a.historyLimit)
			if parseErr != nil {
				fmt.Fprintf(out, "invalid history limit: %v\n", parseErr)
				continue
			}
			if err := a.runHistory(ctx, out, limit); err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
			}
		case "take":
			if len(args) != 2 {
				fmt.Fprintln(out, "usage: take <quiz_slug>")
				continue
			}
			if err := a.runTake(ctx, reader, out, args[1]); err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
			}
		default:
			fmt.Fprintln(out, "unknown command. type 'help' for usage.")
		}
	}
}

func (a *App) runLogin(ctx context.Context, reader *bufio.Reader, out io.Writer, email string) error {
	fmt.Fprint(out, "password: ")
	line, err := reader.ReadString('\n')
	if err != nil {
		return err
	}
	password := strings.TrimSpace(line)
	if password == "" {
		return errors.New("password is required")
	}

	token, err := a.backend.Login(ctx, email, password)
	if err != nil {
		return err
	}
	if a.tokens != nil {
		if err := a.tokens.Save(token); err != nil {
			return err
		}
	}
	fmt.Fprintf(out, "logged in as %s\n", email)
	return nil
}

func (a *App) runLogout(out io.Writer) error {
	if a.tokens != nil {
		if err := a.tokens.Clear(); err != nil {
			return err
		}
	}
	fmt.Fprintln(out, "logged out")
	return nil
}

func (a *App) runQuizzes(ctx context.Context, out io.Writer) error {
	quizzes, err := a.backend.ListQuizzes(ctx)
	if err != nil {
		return err
	}
	if len(quizzes) == 0 {
		fmt.Fprintln(out, "No quizzes available.")
		return nil
	}

	fmt.Fprintln(out, "Quizzes:")
	for idx, item := range quizzes {
		fmt.Fprintf(out, "%d. %s — %s (%d questions)\n", idx+1, item.Slug, item.Title, item.QuestionCount)
	}
	return nil
}

func (a *App) runModels(ctx context.Context, out io.Writer, limit int) error {
	models, err := a.backend.ListModels(ctx)
	if err != nil {
		return err
	}
	if len(models) == 0 {
		fmt.Fprintln(out, "No models in the catalog.")
		return nil
	}
	if limit > 0 && limit < len(models) {
		models = models[:limit]
	}

	fmt.Fprintln(out, "Models:")
	for idx, item := range models {
		marker := ""
		if item.Premium {
			marker = " [premium]"
		}
		fmt.Fprintf(out, "%d. %s — %s (%s)%s\n", idx+1, item.Slug, item.Title, item.OrganSystem, marker)
	}
	return nil
}

func (a *App) runBookmarks(ctx context.Context, out io.Writer) error {
	bookmarks, err := a.backend.ListBookmarks(ctx)
	if err != nil {
		return err
	}
	if len(bookmarks) == 0 {
		fmt.Fprintln(out, "No bookmarks.")
		return nil
	}

	fmt.Fprintln(out, "Bookmarks:")
	for idx, item := range bookmarks {
		fmt.Fprintf(out, "%d. %s — %s\n", idx+1, item.Slug, item.Title)
	}
	return nil
}

func (a *App) runToggleBookmark(ctx context.Context, out io.Writer, modelID string) error {
	bookmarked, err := a.backend.ToggleBookmark(ctx, modelID)
	if err != nil {
		return err
	}
	if bookmarked {
		fmt.Fprintf(out, "bookmarked %s\n", modelID)
	} else {
		fmt.Fprintf(out, "removed bookmark for %s\n", modelID)
	}
	return nil
}

func (a *App) runNotes(ctx context.Context, out io.Writer) error {
	notes, err := a.backend.ListNotes(ctx)
	if err != nil {
		return err
	}
	if len(notes) == 0 {
		fmt.Fprintln(out, "No notes.")
		return nil
	}

	fmt.Fprintln(out, "Notes:")
	for idx, item := range notes {
		fmt.Fprintf(out, "%d. [%s] %s\n", idx+1, item.ModelID, item.Body)
	}
	return nil
}

func (a *App) runCreateNote(ctx context.Context, out io.Writer, modelID, body string) error {
	note, err := a.backend.CreateNote(ctx, modelID, body)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "saved note %s\n", note.NoteID)
	return nil
}

func (a *App) runHistory(ctx context.Context, out io.Writer, limit int) error {
	if a.history == nil {
		fmt.Fprintln(out, "History is not available.")
		return nil
	}

	attempts, err := a.history.ListRecent(ctx, limit)
	if err != nil {
		return err
	}
	if len(attempts) == 0 {
		fmt.Fprintln(out, "No attempts recorded yet.")
		return nil
	}

	fmt.Fprintln(out, "Recent attempts:")
	for idx, item := range attempts {
		outcome := "failed"
		if item.Passed {
			outcome = "passed"
		}
		fmt.Fprintf(out, "%d. %s — %d/%d (%.0f%%, %s) at %s\n",
			idx+1,
			item.QuizTitle,
			item.Score,
			item.TotalPoints,
			item.Percentage,
			outcome,
			item.SubmittedAt.Format(time.RFC3339),
		)
	}
	return nil
}

func printHelp(out io.Writer) {
	fmt.Fprintln(out, "Commands:")
	fmt.Fprintln(out, "  help")
	fmt.Fprintln(out, "  login <email> / logout")
	fmt.Fprintln(out, "  quizzes")
	fmt.Fprintln(out, "  take <quiz_slug>")
	fmt.Fprintln(out, "  models [limit]")
	fmt.Fprintln(out, "  bookmarks / bookmark <model_id>")
	fmt.Fprintln(out, "  notes / note <model_id> <text>")
	fmt.Fprintln(out, "  history [limit]")
	fmt.Fprintln(out, "  exit")
}
