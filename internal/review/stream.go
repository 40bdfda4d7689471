package review

import (
	"context"

	"github.com/rs/zerolog/log"
)

// GitSource is the slice of repository access the pipeline needs.
type GitSource interface {
	Ensure(ctx context.Context, repoURL string) (string, error)
	Diff(ctx context.Context, repoPath string, staged bool) (string, error)
	ChangedFiles(ctx context.Context, repoPath string) ([]string, error)
}

// stream runs the review pipeline and returns its events in order:
// original diff, changed files, lint and bug checks, then (when autoFix is
// set) the fix pass, the re-checks and the post-fix diff. An empty diff
// short-circuits to a single info event.
func (s *Service) stream(ctx context.Context, repoURL string, staged, autoFix bool) ([]Event, error) {
	repoPath, err := s.git.Ensure(ctx, repoURL)
	if err != nil {
		return nil, err
	}

	diffText, err := s.git.Diff(ctx, repoPath, staged)
	if err != nil {
		return nil, err
	}
	if diffText == "" {
		return []Event{infoEvent("No changes found to review.")}, nil
	}

	events := []Event{{Kind: KindOriginalDiff, Diff: diffText}}

	changed, err := s.git.ChangedFiles(ctx, repoPath)
	if err != nil {
		return nil, err
	}
	events = append(events, Event{Kind: KindChangedFiles, Files: changed})

	events = append(events, withStage(s.checker.Lint(ctx, repoPath, changed), StageBeforeFix)...)
	events = append(events, withStage(s.checker.BugCheck(ctx, repoPath, changed), StageBeforeFix)...)

	if autoFix {
		events = append(events, infoEvent("Applying automatic fixes..."))
		events = append(events, s.checker.AutoFix(ctx, repoPath, changed)...)

		events = append(events, infoEvent("Re-running checks after fixes..."))
		events = append(events, withStage(s.checker.Lint(ctx, repoPath, changed), StageAfterFix)...)
		events = append(events, withStage(s.checker.BugCheck(ctx, repoPath, changed), StageAfterFix)...)

		postDiff, err := s.git.Diff(ctx, repoPath, staged)
		if err != nil {
			log.Warn().Str("repo", repoURL).Err(err).Msg("Could not compute post-fix diff")
			events = append(events, warningEvent("Could not get post-fix diff: "+err.Error()))
		} else if postDiff != "" {
			events = append(events, Event{Kind: KindPostFixDiff, Diff: postDiff})
		}
	}

	return events, nil
}

// withStage marks every check event with the pipeline stage it ran in.
// Warning events produced by a failed tool launch keep no stage.
func withStage(events []Event, stage string) []Event {
	for i := range events {
		if events[i].Kind == KindLint || events[i].Kind == KindBugCheck {
			events[i].Stage = stage
		}
	}
	return events
}
