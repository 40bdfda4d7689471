package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repoassist/internal/index"
	"github.com/repoassist/internal/qna"
	"github.com/repoassist/internal/review"
)

type fakeServices struct {
	answer    *qna.Answer
	result    *review.Result
	err       error
	gotTopK   int
	gotStaged bool
	gotFix    bool
}

func (f *fakeServices) AskQuestion(ctx context.Context, repoURL, query string, topK int) (*qna.Answer, error) {
	f.gotTopK = topK
	return f.answer, f.err
}

func (f *fakeServices) ReviewRepo(ctx context.Context, repoURL string, staged, autoFix bool) (*review.Result, error) {
	f.gotStaged = staged
	f.gotFix = autoFix
	return f.result, f.err
}

func (f *fakeServices) ResetCollection(ctx context.Context, repoURL string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return index.CollectionName(repoURL), nil
}

func doRequest(t *testing.T, svc Services, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	h := &handlers{svc: svc}
	e.GET("/", h.root)
	e.GET("/health", h.health)
	e.POST("/qna", h.qna)
	e.POST("/review", h.review)
	e.POST("/reset", h.reset)

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	rec := doRequest(t, &fakeServices{}, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status": "ok"}`, rec.Body.String())
}

func TestQnAEndpoint(t *testing.T) {
	svc := &fakeServices{answer: &qna.Answer{
		Text: "Use pip.",
		Chunks: []index.Match{
			{Document: "Install with pip.", Repo: "https://example.com/r", Path: "readme.md"},
		},
	}}

	rec := doRequest(t, svc, http.MethodPost, "/qna",
		`{"repo_url": "https://example.com/r", "query": "how to install?"}`)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Answer    string `json:"answer"`
		TopChunks []struct {
			Text     string `json:"text"`
			Metadata struct {
				Repo string `json:"repo"`
				Path string `json:"path"`
			} `json:"metadata"`
		} `json:"top_chunks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Use pip.", resp.Answer)
	require.Len(t, resp.TopChunks, 1)
	assert.Equal(t, "Install with pip.", resp.TopChunks[0].Text)
	assert.Equal(t, "readme.md", resp.TopChunks[0].Metadata.Path)
	assert.Equal(t, defaultTopK, svc.gotTopK, "missing top_k falls back to the default")
}

func TestQnAEndpoint_TopKClamped(t *testing.T) {
	svc := &fakeServices{answer: &qna.Answer{Text: "x", Chunks: []index.Match{}}}

	doRequest(t, svc, http.MethodPost, "/qna",
		`{"repo_url": "https://example.com/r", "query": "q", "top_k": 50}`)
	assert.Equal(t, maxTopK, svc.gotTopK)

	doRequest(t, svc, http.MethodPost, "/qna",
		`{"repo_url": "https://example.com/r", "query": "q", "top_k": -3}`)
	assert.Equal(t, defaultTopK, svc.gotTopK)
}

func TestQnAEndpoint_MissingFields(t *testing.T) {
	rec := doRequest(t, &fakeServices{}, http.MethodPost, "/qna", `{"query": "q"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "detail")
}

func TestQnAEndpoint_ServiceFailure(t *testing.T) {
	svc := &fakeServices{err: errors.New("embedding server unreachable")}

	rec := doRequest(t, svc, http.MethodPost, "/qna",
		`{"repo_url": "https://example.com/r", "query": "q"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"detail": "embedding server unreachable"}`, rec.Body.String())
}

func TestReviewEndpoint(t *testing.T) {
	svc := &fakeServices{result: &review.Result{
		Summary:   review.Summary{Summary: "All clean.", GreenSignal: true, Confidence: "high"},
		Events:    []review.Event{{Kind: review.KindInfo, Message: "No changes found to review."}},
		Formatted: "📝 Here's what I found in your review:",
	}}

	rec := doRequest(t, svc, http.MethodPost, "/review",
		`{"repo_url": "https://example.com/r", "staged": true, "auto_fix": true}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, svc.gotStaged)
	assert.True(t, svc.gotFix)

	var resp struct {
		Summary struct {
			Summary     string `json:"summary"`
			GreenSignal bool   `json:"green_signal"`
		} `json:"summary"`
		Events []struct {
			Type string `json:"type"`
		} `json:"events"`
		Formatted string `json:"formatted"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "All clean.", resp.Summary.Summary)
	assert.True(t, resp.Summary.GreenSignal)
	require.Len(t, resp.Events, 1)
	assert.Equal(t, "info", resp.Events[0].Type)
}

func TestResetEndpoint(t *testing.T) {
	rec := doRequest(t, &fakeServices{}, http.MethodPost, "/reset",
		`{"repo_url": "https://github.com/acme/widgets"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status": "reset collection 'github.com_acme_widgets' done"}`, rec.Body.String())
}

func TestResetEndpoint_MissingRepoURL(t *testing.T) {
	rec := doRequest(t, &fakeServices{}, http.MethodPost, "/reset", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
