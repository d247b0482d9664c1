package agent

import (
	"fmt"
	"strings"
)

// ExtractJSON isolates a JSON object or array embedded in agent output.
// Agents frequently wrap their payload in prose or markdown code fences
// instead of returning bare JSON. Candidates are tried in order, first
// success wins:
//
//  1. The interior of a code fence: a ```json fence if one exists,
//     otherwise the first fence of any kind. A fence whose interior holds
//     no balanced JSON does not consume the input; the scan falls through.
//  2. A balanced scan over the full input from the first '{' or '[' to
//     its matching close. The scan is string- and escape-aware so braces
//     inside string values and nested objects/arrays do not terminate the
//     match early. Unbalanced input yields the trimmed remainder so the
//     decoder reports the syntax error.
//
// Returns an error when the input contains nothing that looks like JSON.
// The returned string is a syntactic candidate only; callers must still
// decode and validate it.
func ExtractJSON(text string) (string, error) {
	if fenced, ok := extractFenced(text); ok {
		if got, ok := balancedCandidate(fenced); ok {
			return got, nil
		}
	}

	start := strings.IndexAny(text, "{[")
	if start == -1 {
		return "", fmt.Errorf("no JSON object or array found in output")
	}

	end := matchDelimiter(text, start)
	if end == -1 {
		// Unbalanced; fall back to the trimmed remainder and let the
		// decoder report the syntax error.
		return strings.TrimSpace(text[start:]), nil
	}

	return text[start : end+1], nil
}

// extractFenced returns the interior of the first ```json fence, falling
// back to the first fence of any kind when none is tagged json.
func extractFenced(text string) (string, bool) {
	const fence = "```"

	var first string
	var found bool

	rest := text
	for {
		open := strings.Index(rest, fence)
		if open == -1 {
			break
		}
		rest = rest[open+len(fence):]

		// The info string ("json", "bash", ...) runs to the end of the line.
		info := ""
		if nl := strings.IndexByte(rest, '\n'); nl != -1 {
			info = strings.TrimSpace(rest[:nl])
			rest = rest[nl+1:]
		}

		closing := strings.Index(rest, fence)
		if closing == -1 {
			break
		}
		body := strings.TrimSpace(rest[:closing])
		rest = rest[closing+len(fence):]

		if strings.EqualFold(info, "json") {
			return body, true
		}
		if !found {
			first = body
			found = true
		}
	}

	return first, found
}

// balancedCandidate returns the first fully balanced JSON object or array
// in s, or false when s holds no opening delimiter or never closes it.
func balancedCandidate(s string) (string, bool) {
	start := strings.IndexAny(s, "{[")
	if start == -1 {
		return "", false
	}
	end := matchDelimiter(s, start)
	if end == -1 {
		return "", false
	}
	return s[start : end+1], true
}

// matchDelimiter scans from the opening '{' or '[' at start and returns the
// index of its matching closing delimiter, or -1 if the input is unbalanced.
func matchDelimiter(s string, start int) int {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		c := s[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return i
			}
		}
	}

	return -1
}
