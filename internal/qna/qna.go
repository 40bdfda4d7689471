package qna

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/repoassist/internal/index"
)

// RefusalSentence is the exact sentence the model is told to answer with when
// the retrieved context does not contain the answer.
const RefusalSentence = "I cannot find the relevant information in the README content."

const systemPrompt = "You are an expert software assistant. Answer only from the given context."

// noDocumentsAnswer is returned without consulting the model when indexing
// fails or yields nothing to retrieve from.
const noDocumentsAnswer = "I couldn't find any relevant documents to answer your question. " +
	"Please make sure the repository is properly indexed."

// Retriever indexes a repository and serves similarity lookups over it.
type Retriever interface {
	Index(ctx context.Context, repoURL string) (index.Stats, error)
	Retrieve(ctx context.Context, repoURL, query string, topK int) ([]index.Match, error)
}

// ChatClient is the LLM surface the answerer needs.
type ChatClient interface {
	Chat(ctx context.Context, system, user string) (string, error)
}

// Answer is a question's response together with the chunks it was grounded in.
type Answer struct {
	Text   string        `json:"answer"`
	Chunks []index.Match `json:"top_chunks"`
}

// Service answers documentation questions about a repository from its indexed
// README-like files.
type Service struct {
	retriever Retriever
	chat      ChatClient
}

// NewService wires a QnA service.
func NewService(retriever Retriever, chat ChatClient) *Service {
	return &Service{retriever: retriever, chat: chat}
}

// Ask makes sure the repository is indexed, retrieves the topK most relevant
// chunks, and asks the model to answer strictly from them. When indexing
// fails the model is never consulted and a fixed no-documents answer comes
// back instead.
func (s *Service) Ask(ctx context.Context, repoURL, query string, topK int) (*Answer, error) {
	if _, err := s.retriever.Index(ctx, repoURL); err != nil {
		log.Warn().Str("repo", repoURL).Err(err).Msg("Indexing failed, answering without context")
		return &Answer{Text: noDocumentsAnswer, Chunks: []index.Match{}}, nil
	}

	chunks, err := s.retriever.Retrieve(ctx, repoURL, query, topK)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return &Answer{Text: noDocumentsAnswer, Chunks: []index.Match{}}, nil
	}

	text, err := s.chat.Chat(ctx, systemPrompt, buildPrompt(query, chunks))
	if err != nil {
		return nil, fmt.Errorf("answer question: %w", err)
	}

	return &Answer{Text: strings.TrimSpace(text), Chunks: chunks}, nil
}

// buildPrompt lays the retrieved chunks out as numbered context blocks with
// the question and answering rules around them.
func buildPrompt(query string, chunks []index.Match) string {
	blocks := make([]string, len(chunks))
	for i, chunk := range chunks {
		blocks[i] = fmt.Sprintf("CHUNK %d:\n%s", i+1, chunk.Document)
	}
	contextText := strings.Join(blocks, "\n\n---\n\n")

	var b strings.Builder
	b.WriteString("I will provide you with README-like content, and you need to answer a question about it.\n\n")
	b.WriteString("Question: ")
	b.WriteString(query)
	b.WriteString("\n\nHere is the content:\n")
	b.WriteString(contextText)
	b.WriteString("\n\nBased strictly on the content above, answer clearly.\n")
	b.WriteString("If you cannot find the answer, say:\n")
	b.WriteString("\"" + RefusalSentence + "\"\n\nAnswer:\n")
	return b.String()
}
