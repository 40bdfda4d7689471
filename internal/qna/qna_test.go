package qna

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repoassist/internal/index"
)

type fakeRetriever struct {
	indexErr    error
	retrieveErr error
	matches     []index.Match

	indexCalls int
}

func (f *fakeRetriever) Index(ctx context.Context, repoURL string) (index.Stats, error) {
	f.indexCalls++
	return index.Stats{}, f.indexErr
}

func (f *fakeRetriever) Retrieve(ctx context.Context, repoURL, query string, topK int) ([]index.Match, error) {
	if f.retrieveErr != nil {
		return nil, f.retrieveErr
	}
	if topK < len(f.matches) {
		return f.matches[:topK], nil
	}
	return f.matches, nil
}

type fakeChat struct {
	response string
	err      error

	systems []string
	users   []string
}

func (c *fakeChat) Chat(ctx context.Context, system, user string) (string, error) {
	c.systems = append(c.systems, system)
	c.users = append(c.users, user)
	return c.response, c.err
}

func TestAsk_AnswersFromRetrievedChunks(t *testing.T) {
	retriever := &fakeRetriever{matches: []index.Match{
		{Document: "Install with pip install widgets.", Repo: "https://example.com/r", Path: "readme.md"},
		{Document: "Run tests with pytest.", Repo: "https://example.com/r", Path: "readme.md"},
	}}
	chat := &fakeChat{response: "Install it with pip install widgets."}
	svc := NewService(retriever, chat)

	answer, err := svc.Ask(context.Background(), "https://example.com/r", "how do I install?", 5)
	require.NoError(t, err)

	assert.Equal(t, "Install it with pip install widgets.", answer.Text)
	assert.Len(t, answer.Chunks, 2)

	require.Len(t, chat.users, 1)
	prompt := chat.users[0]
	assert.Contains(t, prompt, "Question: how do I install?")
	assert.Contains(t, prompt, "CHUNK 1:\nInstall with pip install widgets.")
	assert.Contains(t, prompt, "CHUNK 2:\nRun tests with pytest.")
	assert.Contains(t, prompt, "\n\n---\n\n")
	assert.Contains(t, prompt, RefusalSentence)
	assert.Equal(t, "You are an expert software assistant. Answer only from the given context.", chat.systems[0])
}

func TestAsk_IndexFailureSkipsTheModel(t *testing.T) {
	retriever := &fakeRetriever{indexErr: errors.New("clone failed")}
	chat := &fakeChat{response: "should never be used"}
	svc := NewService(retriever, chat)

	answer, err := svc.Ask(context.Background(), "https://example.com/r", "anything", 5)
	require.NoError(t, err)

	assert.Contains(t, answer.Text, "couldn't find any relevant documents")
	assert.Empty(t, answer.Chunks)
	assert.Empty(t, chat.users, "model must not be consulted when indexing fails")
}

func TestAsk_EmptyRetrievalSkipsTheModel(t *testing.T) {
	retriever := &fakeRetriever{} // indexes fine, retrieves nothing
	chat := &fakeChat{response: "should never be used"}
	svc := NewService(retriever, chat)

	answer, err := svc.Ask(context.Background(), "https://example.com/r", "anything", 5)
	require.NoError(t, err)

	assert.Contains(t, answer.Text, "couldn't find any relevant documents")
	assert.Empty(t, chat.users)
}

func TestAsk_TopKLimitsContext(t *testing.T) {
	retriever := &fakeRetriever{matches: []index.Match{
		{Document: "one"}, {Document: "two"}, {Document: "three"},
	}}
	chat := &fakeChat{response: "answer"}
	svc := NewService(retriever, chat)

	answer, err := svc.Ask(context.Background(), "https://example.com/r", "q", 2)
	require.NoError(t, err)

	assert.Len(t, answer.Chunks, 2)
	assert.NotContains(t, chat.users[0], "CHUNK 3:")
}

func TestAsk_ChatFailurePropagates(t *testing.T) {
	retriever := &fakeRetriever{matches: []index.Match{{Document: "doc"}}}
	chat := &fakeChat{err: errors.New("rate limited")}
	svc := NewService(retriever, chat)

	_, err := svc.Ask(context.Background(), "https://example.com/r", "q", 5)
	assert.Error(t, err)
}
