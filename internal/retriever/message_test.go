package retriever

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseUpstreamDate(t *testing.T) {
	t.Run("two digit year", func(t *testing.T) {
		got := parseUpstreamDate("10/29/25")
		assert.Equal(t, time.Date(2025, time.October, 29, 0, 0, 0, 0, time.UTC), got)
	})

	t.Run("four digit year", func(t *testing.T) {
		got := parseUpstreamDate("1/5/2026")
		assert.Equal(t, time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC), got)
	})

	t.Run("malformed returns zero value", func(t *testing.T) {
		assert.True(t, parseUpstreamDate("not a date").IsZero())
	})
}

func TestExtractEmail(t *testing.T) {
	assert.Equal(t, "jane@example.com", extractEmail("Jane Roe <jane@example.com>"))
	assert.Equal(t, "", extractEmail("Jane Roe"))
}

func TestExtractCleanMessageText(t *testing.T) {
	html := `
		<span>From: Jane Roe &lt;jane@example.com&gt;</span>
		<span>Date: 10/29/25</span>
		<span>Subject: SIBTF question</span>
		<div dir="ltr">Has anyone had success with SIBTF applications recently?
			<blockquote>On prior thread, John wrote: ...</blockquote>
		</div>
	`
	out, err := extractCleanMessageText(html)
	assert.NoError(t, err)
	assert.Contains(t, out.from, "Jane Roe")
	assert.Equal(t, "SIBTF question", out.subject)
	assert.Contains(t, out.body, "SIBTF applications")
	assert.NotContains(t, out.body, "On prior thread")
}

func TestExtractCleanMessageTextFallsBackToStrippedText(t *testing.T) {
	html := `From: Jane Roe
Date: 10/29/25
Subject: SIBTF question
Has anyone had success with SIBTF applications recently?`
	out, err := extractCleanMessageText(html)
	assert.NoError(t, err)
	assert.Contains(t, out.body, "SIBTF applications")
}
