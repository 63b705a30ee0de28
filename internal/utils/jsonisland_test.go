package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONIsland(t *testing.T) {
	t.Run("bare object", func(t *testing.T) {
		res, ok := ExtractJSONIsland(`{"is_relevant": true, "confidence": 0.9}`)
		require.True(t, ok)
		assert.True(t, res.Get("is_relevant").Bool())
	})

	t.Run("prose wrapped", func(t *testing.T) {
		res, ok := ExtractJSONIsland("Sure, here's my analysis:\n" +
			`{"is_relevant": false, "confidence": 0.2, "reasoning": "off topic"}` +
			"\nLet me know if you need more.")
		require.True(t, ok)
		assert.Equal(t, "off topic", res.Get("reasoning").String())
	})

	t.Run("nested object with braces in string", func(t *testing.T) {
		res, ok := ExtractJSONIsland(`{"reasoning": "mentions {curly} braces", "is_relevant": true}`)
		require.True(t, ok)
		assert.Equal(t, "mentions {curly} braces", res.Get("reasoning").String())
	})

	t.Run("fenced code block", func(t *testing.T) {
		res, ok := ExtractJSONIsland("```json\n{\"score\": 80}\n```")
		require.True(t, ok)
		assert.Equal(t, int64(80), res.Get("score").Int())
	})

	t.Run("no object present", func(t *testing.T) {
		_, ok := ExtractJSONIsland("no json here")
		assert.False(t, ok)
	})
}
