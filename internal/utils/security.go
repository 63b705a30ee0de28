package utils

import "strings"

// SanitizeForLog strips newlines and other control characters from
// untrusted text (an LLM reply, a scraped subject or sender name)
// before it is written into a structured log field, so the value
// cannot forge additional log lines or hide activity from log
// analysis tools.
func SanitizeForLog(input string) string {
	if input == "" {
		return ""
	}

	sanitized := strings.ReplaceAll(input, "\n", " ")
	sanitized = strings.ReplaceAll(sanitized, "\r", " ")
	sanitized = strings.ReplaceAll(sanitized, "\t", " ")

	var b strings.Builder
	b.Grow(len(sanitized))
	for _, r := range sanitized {
		if r >= 32 || r == ' ' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
