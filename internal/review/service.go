package review

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Service orchestrates a full review: stream the pipeline events, distill
// them into a structured summary, and render the human-readable report.
type Service struct {
	git     GitSource
	chat    ChatClient
	checker *Checker
}

// NewService wires a review service. A nil runner means the real flake8,
// pylint and autopep8 binaries are invoked.
func NewService(git GitSource, chat ChatClient, runner CommandRunner) *Service {
	return &Service{
		git:     git,
		chat:    chat,
		checker: NewChecker(runner),
	}
}

// Result is one complete review run.
type Result struct {
	RunID     string  `json:"run_id"`
	Summary   Summary `json:"summary"`
	Events    []Event `json:"events"`
	Formatted string  `json:"formatted"`
}

// Run reviews the repository's pending changes. Staged switches the diff to
// the index; autoFix applies autopep8 and re-checks before summarizing. The
// only failures it returns are repository-level ones (clone, diff); the
// summarization step always yields a Summary.
func (s *Service) Run(ctx context.Context, repoURL string, staged, autoFix bool) (*Result, error) {
	runID := uuid.NewString()
	start := time.Now()
	log.Info().Str("run_id", runID).Str("repo", repoURL).
		Bool("staged", staged).Bool("auto_fix", autoFix).Msg("Starting review")

	events, err := s.stream(ctx, repoURL, staged, autoFix)
	if err != nil {
		return nil, err
	}

	summary := Summarize(ctx, s.chat, events)

	var suggestions string
	if !autoFix && len(summary.Issues) > 0 {
		suggestions = Suggestions(ctx, s.chat, summary, events)
	}

	formatted := Render(summary, events, autoFix, suggestions)

	log.Info().Str("run_id", runID).Int("events", len(events)).
		Int("issues", len(summary.Issues)).Bool("green_signal", summary.GreenSignal).
		Dur("elapsed", time.Since(start)).Msg("Review complete")

	return &Result{
		RunID:     runID,
		Summary:   summary,
		Events:    events,
		Formatted: formatted,
	}, nil
}
