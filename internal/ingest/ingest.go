package ingest

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// DefaultMaxChunkChars is the character budget for a single chunk.
const DefaultMaxChunkChars = 1000

// docAllowlist holds the documentation filenames worth indexing, matched
// against the lower-cased file name.
var docAllowlist = map[string]bool{
	"contributing.md":  true,
	"contributing.rst": true,
	"readme.md":        true,
	"readme":           true,
}

// FindDocs walks repoPath recursively and returns a mapping from lower-cased
// filename to file content for every file on the documentation allowlist.
// Unreadable files are skipped with a warning. An empty map means nothing
// matched.
func FindDocs(repoPath string) map[string]string {
	found := make(map[string]string)

	err := filepath.WalkDir(repoPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Warn().Str("path", path).Err(err).Msg("Skipping unreadable directory entry")
			return nil
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}

		name := strings.ToLower(d.Name())
		if !docAllowlist[name] {
			return nil
		}

		content, readErr := os.ReadFile(path)
		if readErr != nil {
			log.Warn().Str("path", path).Err(readErr).Msg("Could not read documentation file")
			return nil
		}

		found[name] = string(content)
		log.Debug().Str("path", path).Int("size", len(content)).Msg("Found documentation file")
		return nil
	})
	if err != nil {
		log.Warn().Str("path", repoPath).Err(err).Msg("Documentation walk ended early")
	}

	log.Debug().Int("count", len(found)).Msg("Documentation discovery complete")
	return found
}

// ChunkText splits text on blank-line paragraph boundaries and greedily packs
// paragraphs into chunks of at most maxChars characters. A single paragraph
// longer than the budget is kept whole. The function is pure: the same input
// always yields the same ordered chunks.
func ChunkText(text string, maxChars int) []string {
	if maxChars <= 0 {
		maxChars = DefaultMaxChunkChars
	}

	paragraphs := strings.Split(text, "\n\n")

	var chunks []string
	var cur string

	for _, p := range paragraphs {
		if len(cur)+len(p) > maxChars {
			if strings.TrimSpace(cur) != "" {
				chunks = append(chunks, strings.TrimSpace(cur))
			}
			cur = p
		} else {
			if cur == "" {
				cur = p
			} else {
				cur += "\n\n" + p
			}
		}
	}

	if strings.TrimSpace(cur) != "" {
		chunks = append(chunks, strings.TrimSpace(cur))
	}

	return chunks
}
