package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"medatlas/internal/anatomy"
	"medatlas/internal/session"
)

var ErrBackendUnavailable = errors.New("backend unavailable")

// APIError is a non-2xx reply from the backend, carrying whatever error
// message the body provided. A 401 is just an APIError here; recovering
// the login is the caller's concern.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if strings.TrimSpace(e.Message) == "" {
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
	return e.Message
}

// TokenSource supplies the bearer token attached to every request. An
// empty token sends the request unauthenticated.
type TokenSource interface {
	Token() string
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
}

func NewClient(baseURL string, httpClient *http.Client, tokens TokenSource) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = "http://127.0.0.1:8080"
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		tokens:     tokens,
	}
}

// GetQuiz fetches a quiz definition with its ordered questions.
func (c *Client) GetQuiz(ctx context.Context, slug string) (anatomy.Quiz, error) {
	if strings.TrimSpace(slug) == "" {
		return anatomy.Quiz{}, errors.New("quiz slug is required")
	}

	var payload anatomy.Quiz
	if err := c.doJSON(ctx, http.MethodGet, "/quiz/"+url.PathEscape(slug), nil, &payload); err != nil {
		return anatomy.Quiz{}, err
	}
	return payload, nil
}

func (c *Client) ListQuizzes(ctx context.Context) ([]anatomy.QuizSummary, error) {
	var payload quizListResponse
	if err := c.doJSON(ctx, http.MethodGet, "/quiz", nil, &payload); err != nil {
		return nil, err
	}
	return payload.Quizzes, nil
}

// SubmitAttempt sends a finished or expired attempt to the remote grader.
// It satisfies session.SubmitClient.
func (c *Client) SubmitAttempt(ctx context.Context, req session.SubmitRequest) (anatomy.Result, error) {
	if strings.TrimSpace(req.QuizID) == "" {
		return anatomy.Result{}, errors.New("quiz id is required")
	}

	answers := make([]submitAnswer, 0, len(req.Answers))
	for _, answer := range req.Answers {
		answers = append(answers, submitAnswer{
			QuestionID: answer.QuestionID,
			Value:      answer.Value,
		})
	}
	body := submitRequest{
		Answers:   answers,
		StartedAt: req.StartedAt.UTC().Format(time.RFC3339),
		TimeTaken: req.TimeTakenSeconds,
	}

	var payload anatomy.Result
	path := "/quiz/" + url.PathEscape(req.QuizID) + "/submit"
	if err := c.doJSON(ctx, http.MethodPost, path, body, &payload); err != nil {
		return anatomy.Result{}, err
	}
	return payload, nil
}

func (c *Client) ListModels(ctx context.Context) ([]anatomy.Model, error) {
	var payload modelListResponse
	if err := c.doJSON(ctx, http.MethodGet, "/model", nil, &payload); err != nil {
		return nil, err
	}
	return payload.Models, nil
}

func (c *Client) ListBookmarks(ctx context.Context) ([]anatomy.Bookmark, error) {
	var payload bookmarkListResponse
	if err := c.doJSON(ctx, http.MethodGet, "/bookmark", nil, &payload); err != nil {
		return nil, err
	}
	return payload.Bookmarks, nil
}

// ToggleBookmark flips the bookmark state for a model and reports the new
// state.
func (c *Client) ToggleBookmark(ctx context.Context, modelID string) (bool, error) {
	if strings.TrimSpace(modelID) == "" {
		return false, errors.New("model id is required")
	}

	var payload toggleBookmarkResponse
	if err := c.doJSON(ctx, http.MethodPost, "/bookmark/"+url.PathEscape(modelID), nil, &payload); err != nil {
		return false, err
	}
	return payload.Bookmarked, nil
}

func (c *Client) ListNotes(ctx context.Context) ([]anatomy.Note, error) {
	var payload noteListResponse
	if err := c.doJSON(ctx, http.MethodGet, "/note", nil, &payload); err != nil {
		return nil, err
	}
	return payload.Notes, nil
}

func (c *Client) CreateNote(ctx context.Context, modelID, body string) (anatomy.Note, error) {
	if strings.TrimSpace(modelID) == "" {
		return anatomy.Note{}, errors.New("model id is required")
	}
	if strings.TrimSpace(body) == "" {
		return anatomy.Note{}, errors.New("note body is required")
	}

	var payload anatomy.Note
	err := c.doJSON(ctx, http.MethodPost, "/note", createNoteRequest{ModelID: modelID, Body: body}, &payload)
	if err != nil {
		return anatomy.Note{}, err
	}
	return payload, nil
}

// Login exchanges credentials for a bearer token. The token is not stored
// here; persisting it is the auth layer's job.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var payload loginResponse
	err := c.doJSON(ctx, http.MethodPost, "/auth/login", loginRequest{Email: email, Password: password}, &payload)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(payload.Token) == "" {
		return "", errors.New("login response had no token")
	}
	return payload.Token, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, requestBody any, responseBody any) error {
	fullURL := c.baseURL + path

	var body io.Reader
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return err
		}
		body = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return err
	}
	if requestBody != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			request.Header.Set("Authorization", "Bearer "+token)
		}
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	defer response.Body.Close()

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		apiErr := APIError{StatusCode: response.StatusCode}
		var payload errorResponse
		if err := json.NewDecoder(response.Body).Decode(&payload); err == nil && strings.TrimSpace(payload.Error) != "" {
			apiErr.Message = payload.Error
		}
		if apiErr.Message == "" {
			apiErr.Message = response.Status
		}
		return &apiErr
	}

	if responseBody == nil {
		return nil
	}
	return json.NewDecoder(response.Body).Decode(responseBody)
}
