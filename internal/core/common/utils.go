package common

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractFencedTagged returns the content of the first ```json fenced block.
func ExtractFencedTagged(s string) (string, bool) {
	_, after, found := strings.Cut(s, "```json")
	if !found {
		return "", false
	}
	body, _, _ := strings.Cut(after, "```")
	return strings.TrimSpace(body), true
}

// ExtractFencedAny returns the content of the first fenced block of any
// kind, stripping a leading "json" language tag if present.
func ExtractFencedAny(s string) (string, bool) {
	parts := strings.Split(s, "```")
	if len(parts) < 3 {
		return "", false
	}
	body := strings.TrimSpace(parts[1])
	if strings.HasPrefix(body, "json") {
		body = strings.TrimSpace(strings.TrimPrefix(body, "json"))
	}
	return body, true
}

// BraceSpan returns the widest {...} span, from the first '{' to the last
// '}'. It spans newlines.
func BraceSpan(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start == -1 || end == -1 || start >= end {
		return "", false
	}
	return s[start : end+1], true
}

// ExtractJSON recovers a JSON candidate from an LLM response. Strategies
// run in order: tagged fence, any fence, then a brace-span scan applied to
// whatever the fence steps produced.
func ExtractJSON(response string) (string, bool) {
	candidate := strings.TrimSpace(response)
	if body, ok := ExtractFencedTagged(candidate); ok {
		candidate = body
	} else if body, ok := ExtractFencedAny(candidate); ok {
		candidate = body
	}
	return BraceSpan(candidate)
}

// ParseJSON cleans and unmarshals a JSON string into a type T.
// It handles common LLM quirks like surrounding markdown or extra text.
func ParseJSON[T any](response string) (T, error) {
	var zero T

	jsonStr, ok := ExtractJSON(response)
	if !ok {
		return zero, fmt.Errorf("no JSON object found in response")
	}

	var result T
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		return zero, fmt.Errorf("failed to unmarshal JSON: %w\nData: %s", err, jsonStr)
	}

	return result, nil
}
