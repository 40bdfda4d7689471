package gitrepo

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// runner executes one git invocation and reports its outcome. Tests swap it
// out for a stub.
type runner func(ctx context.Context, dir string, args ...string) (stdout string, stderr string, err error)

func runGit(ctx context.Context, dir string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir

	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	err := cmd.Run()
	return outBuf.String(), errBuf.String(), err
}

// Client manages local working copies of remote repositories and computes
// diffs over them using the git CLI.
type Client struct {
	baseDir string
	run     runner
}

// NewClient creates a git client that stores working copies under baseDir.
func NewClient(baseDir string) *Client {
	return &Client{
		baseDir: baseDir,
		run:     runGit,
	}
}

// RepoName derives the local directory name from a repository URL:
// the last path segment with any ".git" suffix removed.
func RepoName(repoURL string) string {
	trimmed := strings.TrimRight(repoURL, "/")
	name := trimmed
	if idx := strings.LastIndex(trimmed, "/"); idx >= 0 {
		name = trimmed[idx+1:]
	}
	return strings.TrimSuffix(name, ".git")
}

// Ensure returns a local working copy for repoURL, cloning it on first use
// and pulling the latest changes afterwards. A failed pull is non-fatal: the
// stale copy is returned with a warning. A failed clone is an error.
func (c *Client) Ensure(ctx context.Context, repoURL string) (string, error) {
	if err := os.MkdirAll(c.baseDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create repos directory: %w", err)
	}

	repoPath := filepath.Join(c.baseDir, RepoName(repoURL))

	if _, err := os.Stat(repoPath); os.IsNotExist(err) {
		log.Info().Str("repo", repoURL).Str("path", repoPath).Msg("Cloning repository")
		if _, stderr, err := c.run(ctx, "", "clone", repoURL, repoPath); err != nil {
			return "", fmt.Errorf("failed to clone %s: %w: %s", repoURL, err, strings.TrimSpace(stderr))
		}
		return repoPath, nil
	}

	log.Info().Str("repo", repoURL).Str("path", repoPath).Msg("Repository exists, pulling latest changes")
	if _, stderr, err := c.run(ctx, repoPath, "pull"); err != nil {
		log.Warn().Str("repo", repoURL).Err(err).Str("stderr", strings.TrimSpace(stderr)).
			Msg("Could not pull latest changes, using stale copy")
	}

	return repoPath, nil
}

// Diff returns the diff text for the working copy at repoPath. With staged
// set it compares the index against HEAD, otherwise the working tree against
// HEAD. An empty result means no changes and is not an error.
func (c *Client) Diff(ctx context.Context, repoPath string, staged bool) (string, error) {
	args := []string{"diff", "HEAD"}
	if staged {
		args = []string{"diff", "--cached"}
	}

	out, stderr, err := c.run(ctx, repoPath, args...)
	if err != nil {
		return "", fmt.Errorf("failed to get git diff: %w: %s", err, strings.TrimSpace(stderr))
	}
	return strings.TrimSpace(out), nil
}

// ChangedFiles returns the relative paths touched by the current diff
// against HEAD.
func (c *Client) ChangedFiles(ctx context.Context, repoPath string) ([]string, error) {
	out, stderr, err := c.run(ctx, repoPath, "diff", "--name-only", "HEAD")
	if err != nil {
		return nil, fmt.Errorf("failed to list changed files: %w: %s", err, strings.TrimSpace(stderr))
	}

	var files []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			files = append(files, line)
		}
	}
	return files, nil
}
