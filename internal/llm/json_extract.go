package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// braceRE matches the first brace-delimited region of a response, spanning
// newlines. Greedy so nested objects stay intact.
var braceRE = regexp.MustCompile(`(?s)\{.*\}`)

// ExtractJSON pulls a JSON object out of raw LLM output. The response is
// treated as untrusted: models wrap JSON in prose or markdown fences, drop
// closing braces, or use single quotes. Strategy order:
//  1. strict parse of the (fence-stripped) text as-is
//  2. strict parse of the first brace-delimited substring
//  3. jsonrepair over the best candidate
func ExtractJSON(raw string) (string, error) {
	trimmed := stripFences(strings.TrimSpace(raw))

	if isValidJSON(trimmed) {
		return trimmed, nil
	}

	candidate := braceRE.FindString(trimmed)
	if candidate != "" && isValidJSON(candidate) {
		return candidate, nil
	}

	if candidate == "" {
		candidate = trimmed
	}

	repaired, err := jsonrepair.JSONRepair(candidate)
	if err == nil && isValidJSON(repaired) {
		return repaired, nil
	}

	return "", fmt.Errorf("no JSON object found in LLM response (%d chars)", len(raw))
}

// stripFences removes a surrounding markdown code fence, with or without a
// language tag.
func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		// Drop the language tag line ("json", "diff", ...)
		first := strings.TrimSpace(s[:idx])
		if len(first) <= 10 && !strings.ContainsAny(first, "{}") {
			s = s[idx+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func isValidJSON(s string) bool {
	var v interface{}
	return json.Unmarshal([]byte(s), &v) == nil
}
