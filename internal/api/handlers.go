package api

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/repoassist/internal/qna"
	"github.com/repoassist/internal/review"
)

// Services is the assistant surface the HTTP handlers drive.
type Services interface {
	AskQuestion(ctx context.Context, repoURL, query string, topK int) (*qna.Answer, error)
	ReviewRepo(ctx context.Context, repoURL string, staged, autoFix bool) (*review.Result, error)
	ResetCollection(ctx context.Context, repoURL string) (string, error)
}

const (
	defaultTopK = 5
	maxTopK     = 10
)

type handlers struct {
	svc Services
}

type qnaRequest struct {
	RepoURL string `json:"repo_url"`
	Query   string `json:"query"`
	TopK    int    `json:"top_k"`
}

type qnaResponse struct {
	Answer    string       `json:"answer"`
	TopChunks []chunkEntry `json:"top_chunks"`
}

type chunkEntry struct {
	Text     string        `json:"text"`
	Metadata chunkMetadata `json:"metadata"`
}

type chunkMetadata struct {
	Repo string `json:"repo"`
	Path string `json:"path"`
}

type reviewRequest struct {
	RepoURL string `json:"repo_url"`
	Staged  bool   `json:"staged"`
	AutoFix bool   `json:"auto_fix"`
}

type reviewResponse struct {
	Summary   review.Summary `json:"summary"`
	Events    []review.Event `json:"events"`
	Formatted string         `json:"formatted"`
}

type resetRequest struct {
	RepoURL string `json:"repo_url"`
}

func errorResponse(c echo.Context, code int, message string) error {
	return c.JSON(code, map[string]string{"detail": message})
}

func (h *handlers) root(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "AI Code Review Agent is running 🚀",
	})
}

func (h *handlers) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) qna(c echo.Context) error {
	var req qnaRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, "invalid request body")
	}
	if req.RepoURL == "" || req.Query == "" {
		return errorResponse(c, http.StatusBadRequest, "repo_url and query are required")
	}

	topK := req.TopK
	if topK < 1 {
		topK = defaultTopK
	}
	if topK > maxTopK {
		topK = maxTopK
	}

	answer, err := h.svc.AskQuestion(c.Request().Context(), req.RepoURL, req.Query, topK)
	if err != nil {
		return errorResponse(c, http.StatusInternalServerError, err.Error())
	}

	chunks := make([]chunkEntry, 0, len(answer.Chunks))
	for _, m := range answer.Chunks {
		chunks = append(chunks, chunkEntry{
			Text:     m.Document,
			Metadata: chunkMetadata{Repo: m.Repo, Path: m.Path},
		})
	}

	return c.JSON(http.StatusOK, qnaResponse{Answer: answer.Text, TopChunks: chunks})
}

func (h *handlers) review(c echo.Context) error {
	var req reviewRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, "invalid request body")
	}
	if req.RepoURL == "" {
		return errorResponse(c, http.StatusBadRequest, "repo_url is required")
	}

	result, err := h.svc.ReviewRepo(c.Request().Context(), req.RepoURL, req.Staged, req.AutoFix)
	if err != nil {
		return errorResponse(c, http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, reviewResponse{
		Summary:   result.Summary,
		Events:    result.Events,
		Formatted: result.Formatted,
	})
}

func (h *handlers) reset(c echo.Context) error {
	var req resetRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, "invalid request body")
	}
	if req.RepoURL == "" {
		return errorResponse(c, http.StatusBadRequest, "repo_url is required")
	}

	collection, err := h.svc.ResetCollection(c.Request().Context(), req.RepoURL)
	if err != nil {
		return errorResponse(c, http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status": "reset collection '" + collection + "' done",
	})
}
