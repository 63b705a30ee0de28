package utils

import (
	"strings"

	"github.com/tidwall/gjson"
)

// ExtractJSONIsland finds the first top-level `{...}` object in reply
// and returns it as a gjson.Result, so callers can read fields off an
// LLM's prose-wrapped JSON output without a strict json.Unmarshal.
// The reasoning service's reply may have prose before or after the
// JSON object, or put it inside a ```json fenced block.
func ExtractJSONIsland(reply string) (gjson.Result, bool) {
	candidate := stripCodeFence(reply)

	start := strings.IndexByte(candidate, '{')
	if start < 0 {
		return gjson.Result{}, false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(candidate); i++ {
		c := candidate[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
			// inside a string literal, braces don't count
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				island := candidate[start : i+1]
				if !gjson.Valid(island) {
					return gjson.Result{}, false
				}
				return gjson.Parse(island), true
			}
		}
	}
	return gjson.Result{}, false
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
