package api

import (
	"medatlas/internal/anatomy"
)

type submitAnswer struct {
	QuestionID string `json:"question_id"`
	Value      string `json:"value"`
}

type submitRequest struct {
	Answers   []submitAnswer `json:"answers"`
	StartedAt string         `json:"started_at"`
	TimeTaken int            `json:"time_taken"`
}

type quizListResponse struct {
	Quizzes []anatomy.QuizSummary `json:"quizzes"`
}

type modelListResponse struct {
	Models []anatomy.Model `json:"models"`
}

type bookmarkListResponse struct {
	Bookmarks []anatomy.Bookmark `json:"bookmarks"`
}

type toggleBookmarkResponse struct {
	ModelID    string `json:"model_id"`
	Bookmarked bool   `json:"bookmarked"`
}

type noteListResponse struct {
	Notes []anatomy.Note `json:"notes"`
}

type createNoteRequest struct {
	ModelID string `json:"model_id"`
	Body    string `json:"body"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

type errorResponse struct {
	Error string `json:"error"`
}
