package review

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/repoassist/internal/llm"
)

const summarySystemPrompt = "You are a senior code reviewer. You will receive raw tool output: " +
	"git diff chunks, list of changed files, flake8 and pylint results, and (optionally) autofix outcomes. " +
	"Produce a STRICT JSON object with keys:\n" +
	" - summary: short natural-language summary\n" +
	" - issues: array of objects {type: 'lint'|'bug'|'style'|'security'|'other', file, details, line_hint?}\n" +
	" - suggested_fixes: array of strings with concrete actions\n" +
	" - green_signal: boolean (true if safe to merge with no major issues)\n" +
	" - confidence: one of 'low'|'medium'|'high'\n" +
	"If no issues are found, issues should be an empty array and green_signal true.\n" +
	"Do NOT include any backticks or commentary outside the JSON."

const suggestionsSystemPrompt = "You are an expert reviewer. Respond with concise, helpful suggestions and code blocks only."

// maxDiffCharsForSuggestions clips the diff handed to the suggestion prompt.
const maxDiffCharsForSuggestions = 8000

// ChatClient is the LLM surface the summarizer needs.
type ChatClient interface {
	Chat(ctx context.Context, system, user string) (string, error)
}

// LineHint is an issue's line reference. Models emit it as either a number or
// a string, so it unmarshals from both.
type LineHint string

func (h *LineHint) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*h = LineHint(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*h = LineHint(n.String())
		return nil
	}
	return fmt.Errorf("line_hint is neither string nor number: %s", data)
}

// IsLineNumber reports whether the hint is a plain line number.
func (h LineHint) IsLineNumber() bool {
	if h == "" {
		return false
	}
	_, err := strconv.Atoi(string(h))
	return err == nil
}

// Issue is one problem the reviewer model identified.
type Issue struct {
	Type     string   `json:"type"`
	File     string   `json:"file"`
	Details  string   `json:"details"`
	LineHint LineHint `json:"line_hint,omitempty"`
}

// Summary is the structured verdict distilled from a review run.
type Summary struct {
	Summary        string   `json:"summary"`
	Issues         []Issue  `json:"issues"`
	SuggestedFixes []string `json:"suggested_fixes"`
	GreenSignal    bool     `json:"green_signal"`
	Confidence     string   `json:"confidence"`
	// Raw holds the model's unparseable output when summarization fell back.
	Raw string `json:"raw,omitempty"`
}

// fallbackSummary is the guaranteed result when the model's output cannot be
// turned into a Summary. The raw content is preserved for inspection.
func fallbackSummary(raw string) Summary {
	return Summary{
		Summary:        "LLM summarization failed to parse. Returning raw content.",
		Issues:         []Issue{},
		SuggestedFixes: []string{},
		GreenSignal:    false,
		Confidence:     "low",
		Raw:            raw,
	}
}

// Summarize asks the model to distill the review events into a Summary. It
// never fails: transport errors and malformed output both degrade to the
// fallback summary.
func Summarize(ctx context.Context, chat ChatClient, events []Event) Summary {
	eventsJSON, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		log.Error().Err(err).Msg("Could not encode review events")
		return fallbackSummary("")
	}

	content, err := chat.Chat(ctx, summarySystemPrompt, "Raw review events (JSON list): "+string(eventsJSON))
	if err != nil {
		log.Warn().Err(err).Msg("Review summarization call failed")
		return fallbackSummary("")
	}

	extracted, err := llm.ExtractJSON(content)
	if err != nil {
		log.Warn().Err(err).Msg("Review summary is not valid JSON")
		return fallbackSummary(content)
	}

	var summary Summary
	if err := json.Unmarshal([]byte(extracted), &summary); err != nil {
		log.Warn().Err(err).Msg("Review summary does not match the expected shape")
		return fallbackSummary(content)
	}
	if summary.Issues == nil {
		summary.Issues = []Issue{}
	}
	if summary.SuggestedFixes == nil {
		summary.SuggestedFixes = []string{}
	}
	return summary
}

// Suggestions asks the model for minimal concrete fixes for the identified
// issues, grounded in the original diff. Failures come back as a placeholder
// string rather than an error.
func Suggestions(ctx context.Context, chat ChatClient, summary Summary, events []Event) string {
	issuesJSON, err := json.MarshalIndent(summary.Issues, "", "  ")
	if err != nil {
		return "(Could not generate suggestions: " + err.Error() + ")"
	}

	var originalDiff string
	for _, e := range events {
		if e.Kind == KindOriginalDiff {
			originalDiff = e.Diff
			break
		}
	}
	if len(originalDiff) > maxDiffCharsForSuggestions {
		originalDiff = originalDiff[:maxDiffCharsForSuggestions]
	}

	var b strings.Builder
	b.WriteString("You are a senior code reviewer. I will give you issues (with file and line hints) and a git diff.\n")
	b.WriteString("Produce beginner-friendly, minimal fixes focused exactly on the broken lines.\n")
	b.WriteString("Strict format per issue:\n")
	b.WriteString("1) What is wrong (plain language, 1-2 sentences).\n")
	b.WriteString("2) Exact fix (the corrected line only, if possible).\n")
	b.WriteString("3) Corrected code block with ONLY the minimal snippet:\n")
	b.WriteString("   - If the issue is inside a function, include just that function or the smallest viable portion.\n")
	b.WriteString("   - If the issue is outside any function (e.g., a stray print), include just those corrected lines.\n")
	b.WriteString("Rules:\n")
	b.WriteString("- Do NOT include unrelated code.\n")
	b.WriteString("- Do NOT include any diff headers or markers like @@, +, -, or ---/+++.\n")
	b.WriteString("- Use a tiny fenced code block with the appropriate language tag (e.g., ```python).\n")
	b.WriteString("- If a line number is given, you may include 1-3 lines of context above/below.\n")
	b.WriteString("- Keep output concise and copy-pasteable.\n\n")
	b.WriteString("Issues (JSON):\n")
	b.Write(issuesJSON)
	b.WriteString("\n\nGit diff (for your reference):\n```diff\n")
	b.WriteString(originalDiff)
	b.WriteString("\n```\n\nNow provide the suggestions in the specified format.")

	content, err := chat.Chat(ctx, suggestionsSystemPrompt, b.String())
	if err != nil {
		log.Warn().Err(err).Msg("Suggestion generation call failed")
		return "(Could not generate suggestions: " + err.Error() + ")"
	}
	return content
}
