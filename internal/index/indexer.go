package index

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/repoassist/internal/ingest"
	"github.com/repoassist/internal/retry"
)

// ErrNoDocuments is returned when a repository contains no indexable
// documentation files.
var ErrNoDocuments = errors.New("no documentation files found to index")

// VectorStore is the collection-level storage the indexer drives.
type VectorStore interface {
	GetEmbeddings(ctx context.Context, collection string, ids []string) (map[string][]float32, error)
	Upsert(ctx context.Context, collection string, rec Record) error
	Query(ctx context.Context, collection string, vector []float32, topK int) ([]Match, error)
	Drop(ctx context.Context, collection string) error
}

// Embedder encodes text into fixed-length vectors.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// RepoFetcher provides a local working copy for a repository URL.
type RepoFetcher interface {
	Ensure(ctx context.Context, repoURL string) (string, error)
}

// Options tunes the indexing heuristics.
type Options struct {
	// ResetThreshold is the broken/(broken+ok) ratio at or above which the
	// whole collection is dropped and rebuilt instead of repaired entry by
	// entry.
	ResetThreshold float64
	// AssessBatchSize is how many chunk IDs are fetched per assessment read.
	AssessBatchSize int
	// MaxChunkChars is the chunker's character budget.
	MaxChunkChars int
}

// DefaultOptions returns the indexing defaults.
func DefaultOptions() Options {
	return Options{
		ResetThreshold:  0.6,
		AssessBatchSize: 256,
		MaxChunkChars:   ingest.DefaultMaxChunkChars,
	}
}

// Stats summarizes one indexing run.
type Stats struct {
	Chunks   int  `json:"chunks"`
	Added    int  `json:"added"`
	Repaired int  `json:"repaired"`
	Skipped  int  `json:"skipped"`
	Reset    bool `json:"reset"`
}

// Indexer keeps a repository's documentation chunks embedded and healthy in
// the vector store, and answers similarity queries over them.
type Indexer struct {
	store    VectorStore
	embedder Embedder
	fetcher  RepoFetcher
	opts     Options
}

// NewIndexer wires an indexer from its dependencies.
func NewIndexer(store VectorStore, embedder Embedder, fetcher RepoFetcher, opts Options) *Indexer {
	if opts.ResetThreshold <= 0 {
		opts.ResetThreshold = DefaultOptions().ResetThreshold
	}
	if opts.AssessBatchSize <= 0 {
		opts.AssessBatchSize = DefaultOptions().AssessBatchSize
	}
	if opts.MaxChunkChars <= 0 {
		opts.MaxChunkChars = DefaultOptions().MaxChunkChars
	}
	return &Indexer{store: store, embedder: embedder, fetcher: fetcher, opts: opts}
}

// ChunkID derives the content-addressed identifier for a chunk. Identical
// (repo, path, text) triples always hash to the same ID, which is what makes
// re-indexing idempotent.
func ChunkID(repoURL, filePath, text string) string {
	h := sha1.Sum([]byte(repoURL + "|" + filePath + "|" + text))
	return hex.EncodeToString(h[:])
}

// CollectionName normalizes a repository URL into a collection name: scheme
// stripped, slashes replaced.
func CollectionName(repoURL string) string {
	name := strings.TrimPrefix(repoURL, "https://")
	name = strings.TrimPrefix(name, "http://")
	return strings.ReplaceAll(name, "/", "_")
}

type chunkWork struct {
	file string
	text string
	id   string
}

// Index clones-or-pulls the repository, chunks its documentation, and brings
// the repository's collection up to date. Healthy chunks are skipped, broken
// ones repaired, and a mostly-broken collection is dropped and rebuilt first.
func (ix *Indexer) Index(ctx context.Context, repoURL string) (Stats, error) {
	repoPath, err := ix.fetcher.Ensure(ctx, repoURL)
	if err != nil {
		return Stats{}, err
	}

	docs := ingest.FindDocs(repoPath)
	if len(docs) == 0 {
		log.Warn().Str("repo", repoURL).Msg("No documentation files found to index")
		return Stats{}, ErrNoDocuments
	}

	collection := CollectionName(repoURL)

	fnames := make([]string, 0, len(docs))
	for fname := range docs {
		fnames = append(fnames, fname)
	}
	sort.Strings(fnames)

	var worklist []chunkWork
	for _, fname := range fnames {
		text := docs[fname]
		for _, chunk := range ingest.ChunkText(text, ix.opts.MaxChunkChars) {
			worklist = append(worklist, chunkWork{
				file: fname,
				text: chunk,
				id:   ChunkID(repoURL, fname, chunk),
			})
		}
	}

	stats := Stats{Chunks: len(worklist)}
	dim := ix.embedder.Dimension()

	// Pass 1: assess existing entries in batches to detect corruption.
	ids := make([]string, len(worklist))
	for i, w := range worklist {
		ids[i] = w.id
	}

	broken, ok := 0, 0
	for _, batch := range batched(ids, ix.opts.AssessBatchSize) {
		existing, err := ix.store.GetEmbeddings(ctx, collection, batch)
		if err != nil {
			// If the store cannot even be read, treat the whole candidate
			// set as broken and force a reset.
			log.Warn().Str("collection", collection).Err(err).
				Msg("Assessment read failed, forcing collection reset")
			broken, ok = len(ids), 0
			break
		}

		for _, id := range batch {
			emb, found := existing[id]
			if !found || len(emb) != dim {
				broken++
			} else {
				ok++
			}
		}
	}

	total := broken + ok
	brokenRatio := 0.0
	if total > 0 {
		brokenRatio = float64(broken) / float64(total)
	}
	log.Debug().Str("collection", collection).Int("ok", ok).Int("broken", broken).
		Float64("broken_ratio", brokenRatio).Msg("Assessed existing embeddings")

	if total > 0 && brokenRatio >= ix.opts.ResetThreshold {
		log.Info().Str("collection", collection).Float64("broken_ratio", brokenRatio).
			Float64("threshold", ix.opts.ResetThreshold).Msg("Resetting collection")
		if err := ix.store.Drop(ctx, collection); err != nil {
			return stats, fmt.Errorf("reset collection %s: %w", collection, err)
		}
		stats.Reset = true
	}

	// Pass 2: upsert everything missing or malformed (or everything after a
	// reset). Healthy entries are skipped, keeping re-runs write-free.
	for _, w := range worklist {
		needsUpdate := true
		isRepair := false

		existing, err := ix.store.GetEmbeddings(ctx, collection, []string{w.id})
		if err == nil {
			if emb, found := existing[w.id]; found {
				if len(emb) == dim {
					stats.Skipped++
					needsUpdate = false
				} else {
					isRepair = true
				}
			}
		}

		if !needsUpdate {
			continue
		}

		vec, err := ix.embedder.Embed(ctx, w.text)
		if err != nil {
			return stats, fmt.Errorf("embed chunk for %s: %w", w.file, err)
		}

		rec := Record{
			ID:        w.id,
			Document:  w.text,
			Repo:      repoURL,
			Path:      strings.ToLower(w.file),
			Embedding: vec,
		}
		if err := ix.store.Upsert(ctx, collection, rec); err != nil {
			return stats, err
		}
		if isRepair {
			stats.Repaired++
		} else {
			stats.Added++
		}
	}

	log.Info().Str("repo", repoURL).Int("added", stats.Added).Int("repaired", stats.Repaired).
		Int("skipped", stats.Skipped).Bool("reset", stats.Reset).Msg("Indexing complete")

	return stats, nil
}

// Retrieve embeds the query and returns the topK nearest chunks from the
// repository's collection. A failed query triggers exactly one
// reset-and-reindex-and-retry cycle; if that fails too, an empty result is
// returned rather than an error.
func (ix *Indexer) Retrieve(ctx context.Context, repoURL, query string, topK int) ([]Match, error) {
	collection := CollectionName(repoURL)

	vec, err := ix.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	var matches []Match
	err = retry.RecoverOnce(
		func() error {
			m, qerr := ix.store.Query(ctx, collection, vec, topK)
			if qerr != nil {
				return qerr
			}
			matches = m
			return nil
		},
		func() error {
			log.Warn().Str("collection", collection).Msg("Query failed, resetting and re-indexing")
			if derr := ix.store.Drop(ctx, collection); derr != nil {
				return derr
			}
			_, ierr := ix.Index(ctx, repoURL)
			return ierr
		},
	)
	if err != nil {
		log.Error().Str("collection", collection).Err(err).
			Msg("Query failed even after reset, returning empty result")
		return nil, nil
	}

	return matches, nil
}

// Reset drops the repository's collection.
func (ix *Indexer) Reset(ctx context.Context, repoURL string) error {
	return ix.store.Drop(ctx, CollectionName(repoURL))
}

// batched splits ids into consecutive slices of at most n elements.
func batched(ids []string, n int) [][]string {
	var batches [][]string
	for i := 0; i < len(ids); i += n {
		end := i + n
		if end > len(ids) {
			end = len(ids)
		}
		batches = append(batches, ids[i:end])
	}
	return batches
}
