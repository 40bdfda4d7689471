package assistant

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/repoassist/internal/config"
	"github.com/repoassist/internal/database"
	"github.com/repoassist/internal/gitrepo"
	"github.com/repoassist/internal/index"
	"github.com/repoassist/internal/llm"
	"github.com/repoassist/internal/qna"
	"github.com/repoassist/internal/review"
)

// Task types the assistant dispatches on.
const (
	TaskQnA    = "qna"
	TaskReview = "review"
)

// Assistant bundles the QnA and review services over one shared set of
// backends: a Postgres vector store, an Ollama embedder, a Groq-compatible
// chat model and a local git mirror directory.
type Assistant struct {
	cfg *config.Config
	db  *sql.DB

	store   *index.Store
	indexer *index.Indexer

	QnA    *qna.Service
	Review *review.Service
}

// New wires the whole assistant from configuration. It connects to the
// database, ensures the vector schema, and probes the embedding model, so a
// misconfigured backend fails here rather than on the first request.
func New(ctx context.Context, cfg *config.Config) (*Assistant, error) {
	db, err := database.NewDB(cfg.Database.URL)
	if err != nil {
		return nil, err
	}

	store := index.NewStore(db)
	if err := store.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	embedder, err := index.NewOllamaEmbedder(ctx, cfg.Embedding.ServerURL, cfg.Embedding.Model)
	if err != nil {
		db.Close()
		return nil, err
	}

	chat, err := llm.NewClient(llm.Config{
		APIKey:            cfg.LLM.APIKey,
		BaseURL:           cfg.LLM.BaseURL,
		Model:             cfg.LLM.Model,
		Temperature:       cfg.LLM.Temperature,
		MaxTokens:         cfg.LLM.MaxTokens,
		RequestsPerMinute: cfg.LLM.RequestsPerMinute,
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	git := gitrepo.NewClient(cfg.Storage.ReposDir)

	indexer := index.NewIndexer(store, embedder, git, index.Options{
		ResetThreshold:  cfg.Index.ResetThreshold,
		AssessBatchSize: cfg.Index.AssessBatchSize,
		MaxChunkChars:   cfg.Index.MaxChunkChars,
	})

	return &Assistant{
		cfg:     cfg,
		db:      db,
		store:   store,
		indexer: indexer,
		QnA:     qna.NewService(indexer, chat),
		Review:  review.NewService(git, chat, nil),
	}, nil
}

// Close releases the assistant's database connection.
func (a *Assistant) Close() error {
	return a.db.Close()
}

// TopK returns the configured retrieval depth.
func (a *Assistant) TopK() int {
	return a.cfg.Index.TopK
}

// Run dispatches a one-shot task by type: "qna" answers the query over the
// repository's documentation, "review" reviews the repository's pending
// changes. Anything else is an error.
func (a *Assistant) Run(ctx context.Context, taskType, repoURL, query string, autoFix bool) (interface{}, error) {
	switch taskType {
	case TaskQnA:
		return a.QnA.Ask(ctx, repoURL, query, a.cfg.Index.TopK)
	case TaskReview:
		return a.Review.Run(ctx, repoURL, false, autoFix)
	default:
		return nil, fmt.Errorf("invalid task type: must be %q or %q", TaskQnA, TaskReview)
	}
}

// AskQuestion answers a documentation question over the repository.
func (a *Assistant) AskQuestion(ctx context.Context, repoURL, query string, topK int) (*qna.Answer, error) {
	return a.QnA.Ask(ctx, repoURL, query, topK)
}

// ReviewRepo reviews the repository's pending changes.
func (a *Assistant) ReviewRepo(ctx context.Context, repoURL string, staged, autoFix bool) (*review.Result, error) {
	return a.Review.Run(ctx, repoURL, staged, autoFix)
}

// ResetCollection drops the vector collection for one repository and returns
// the collection's name.
func (a *Assistant) ResetCollection(ctx context.Context, repoURL string) (string, error) {
	return a.Reset(ctx, repoURL)
}

// Reset drops the vector collection for one repository.
func (a *Assistant) Reset(ctx context.Context, repoURL string) (string, error) {
	collection := index.CollectionName(repoURL)
	if err := a.store.Drop(ctx, collection); err != nil {
		return "", err
	}
	log.Info().Str("collection", collection).Msg("Collection reset")
	return collection, nil
}

// ResetAll drops every stored collection and returns their names.
func (a *Assistant) ResetAll(ctx context.Context) ([]string, error) {
	collections, err := a.store.ListCollections(ctx)
	if err != nil {
		return nil, err
	}
	for _, name := range collections {
		if err := a.store.Drop(ctx, name); err != nil {
			return nil, err
		}
		log.Info().Str("collection", name).Msg("Collection reset")
	}
	return collections, nil
}
