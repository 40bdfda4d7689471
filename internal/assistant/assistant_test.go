package assistant

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repoassist/internal/config"
	"github.com/repoassist/internal/index"
	"github.com/repoassist/internal/qna"
	"github.com/repoassist/internal/review"
)

type stubRetriever struct{}

func (stubRetriever) Index(ctx context.Context, repoURL string) (index.Stats, error) {
	return index.Stats{Chunks: 1, Skipped: 1}, nil
}

func (stubRetriever) Retrieve(ctx context.Context, repoURL, query string, topK int) ([]index.Match, error) {
	return []index.Match{{Document: "Install with pip.", Repo: repoURL, Path: "readme.md"}}, nil
}

type stubGit struct{}

func (stubGit) Ensure(ctx context.Context, repoURL string) (string, error) { return "/tmp/r", nil }
func (stubGit) Diff(ctx context.Context, repoPath string, staged bool) (string, error) {
	return "", nil
}
func (stubGit) ChangedFiles(ctx context.Context, repoPath string) ([]string, error) {
	return nil, nil
}

type stubChat struct{}

func (stubChat) Chat(ctx context.Context, system, user string) (string, error) {
	return `{"summary": "ok", "issues": [], "suggested_fixes": [], "green_signal": true, "confidence": "high"}`, nil
}

func testAssistant(t *testing.T) *Assistant {
	t.Helper()
	cfg, err := config.LoadConfig("")
	require.NoError(t, err)
	return &Assistant{
		cfg:    cfg,
		QnA:    qna.NewService(stubRetriever{}, stubChat{}),
		Review: review.NewService(stubGit{}, stubChat{}, nil),
	}
}

func TestRun_DispatchesByTaskType(t *testing.T) {
	a := testAssistant(t)

	out, err := a.Run(context.Background(), TaskQnA, "https://example.com/r", "how do I install?", false)
	require.NoError(t, err)
	answer, ok := out.(*qna.Answer)
	require.True(t, ok)
	assert.NotEmpty(t, answer.Text)

	out, err = a.Run(context.Background(), TaskReview, "https://example.com/r", "", false)
	require.NoError(t, err)
	result, ok := out.(*review.Result)
	require.True(t, ok)
	assert.NotEmpty(t, result.Events)
}

func TestRun_RejectsUnknownTaskType(t *testing.T) {
	a := testAssistant(t)

	_, err := a.Run(context.Background(), "summarize", "https://example.com/r", "", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid task type")
}
