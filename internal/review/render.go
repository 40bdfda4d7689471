package review

import (
	"fmt"
	"strings"
)

// postFixDiffClip bounds how much of a post-fix diff the rendering shows.
const postFixDiffClip = 500

// Render converts the structured summary and the raw events into a friendly,
// conversational report.
func Render(summary Summary, events []Event, autoFix bool, suggestions string) string {
	var lines []string

	lines = append(lines, "📝 Here's what I found in your review:")
	if summary.Summary != "" {
		lines = append(lines, summary.Summary)
	} else {
		lines = append(lines, "I didn't get a clear summary this time.")
	}
	lines = append(lines, "")

	if len(summary.Issues) > 0 {
		lines = append(lines, "⚠️ Issues that need your attention:")
		for i, issue := range summary.Issues {
			kind := issue.Type
			if kind == "" {
				kind = "other"
			}
			file := issue.File
			if file == "" {
				file = "unknown"
			}
			hint := string(issue.LineHint)
			if hint == "" {
				hint = "?"
			}
			lines = append(lines, fmt.Sprintf("%d. [%s] %s (file: %s, line: %s)",
				i+1, strings.ToUpper(kind), issue.Details, file, hint))
		}
		lines = append(lines, "")
	} else {
		lines = append(lines, "✅ I didn't spot any major issues — looks good to merge.")
		lines = append(lines, "")
	}

	if len(summary.SuggestedFixes) > 0 {
		lines = append(lines, "💡 Quick suggestions:")
		for _, fix := range summary.SuggestedFixes {
			lines = append(lines, "- "+fix)
		}
		lines = append(lines, "")
	}

	if !autoFix && len(summary.Issues) > 0 && suggestions != "" {
		lines = append(lines, "🧩 Proposed improvements (with code):")
		lines = append(lines, suggestions)
		lines = append(lines, "")
	}

	if autoFix {
		var applied []Event
		for _, e := range events {
			if e.Kind == KindAutoFix && e.Fixed != nil && *e.Fixed {
				applied = append(applied, e)
			}
		}
		if len(applied) > 0 {
			lines = append(lines, "🤖 I went ahead and applied formatting fixes to these files:")
			for _, e := range applied {
				lines = append(lines, "- "+e.File+" ✅")
			}
			lines = append(lines, "")
		}
	}

	var postDiffs []Event
	for _, e := range events {
		if e.Kind == KindPostFixDiff {
			postDiffs = append(postDiffs, e)
		}
	}
	if len(postDiffs) > 0 {
		lines = append(lines, fmt.Sprintf("📄 Changes after auto-fix (first %d chars):", postFixDiffClip))
		for _, e := range postDiffs {
			snippet := e.Diff
			if len(snippet) > postFixDiffClip {
				snippet = snippet[:postFixDiffClip]
			}
			lines = append(lines, "```diff", snippet, "```")
		}
		lines = append(lines, "")
	}

	if summary.GreenSignal {
		if autoFix {
			lines = append(lines, "🟢 Final take: All set! Auto-fixes are applied — feel confident to commit and push.")
		} else {
			lines = append(lines, "🟢 Final take: You're good to merge.")
		}
	} else {
		if autoFix {
			lines = append(lines, "🟠 Final take: I applied auto-fixes, but a few items still need attention before merging.")
		} else {
			lines = append(lines, "🔴 Final take: Let's address the above points before merging.")
			lines = append(lines, "")
			lines = append(lines, "What to do next:")
			if len(summary.Issues) > 0 {
				for _, issue := range summary.Issues {
					file := issue.File
					if file == "" {
						file = "unknown"
					}
					if issue.LineHint.IsLineNumber() {
						lines = append(lines, fmt.Sprintf("- Open %s, go to line %s, and apply the suggested change.", file, issue.LineHint))
					} else {
						lines = append(lines, fmt.Sprintf("- Open %s and apply the suggested change shown above.", file))
					}
				}
			} else {
				lines = append(lines, "- Apply the suggested changes above.")
			}
		}
	}

	return strings.Join(lines, "\n")
}
