package utils

import (
	"regexp"
	"strings"
)

var jsonFence = regexp.MustCompile("(?is)```json\\s*(.*?)\\s*```")

// ExtractJSONObject pulls a JSON object out of free-form model output. A ```json
// fence wins when present; otherwise the first balanced {...} span is used.
func ExtractJSONObject(response string) (string, bool) {
	if m := jsonFence.FindStringSubmatch(response); m != nil {
		response = m[1]
	}

	start := strings.Index(response, "{")
	if start == -1 {
		return "", false
	}
	end := findMatchingBrace(response, start)
	if end == -1 {
		return "", false
	}
	return response[start : end+1], true
}

// findMatchingBrace finds the closing brace for the opening brace at start,
// skipping braces inside string literals.
func findMatchingBrace(s string, start int) int {
	if start >= len(s) || s[start] != '{' {
		return -1
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		char := s[i]

		if escaped {
			escaped = false
			continue
		}
		if char == '\\' && inString {
			escaped = true
			continue
		}
		if char == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}

		switch char {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}

	return -1
}
