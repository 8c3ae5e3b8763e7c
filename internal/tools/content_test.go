package tools

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncateContentKeepsRunesIntact(t *testing.T) {
	// "héllo" repeated; é is two bytes, so most cut points land
	// mid-rune.
	content := strings.Repeat("héllo ", 100)
	for limit := 1; limit < 24; limit++ {
		out, truncated := truncateContent(content, limit)
		assert.True(t, truncated)
		assert.True(t, utf8.ValidString(out), "limit %d produced invalid UTF-8", limit)
		assert.LessOrEqual(t, len(out), limit)
	}
}

func TestTruncateContentUnderLimit(t *testing.T) {
	out, truncated := truncateContent("short", 100)
	assert.False(t, truncated)
	assert.Equal(t, "short", out)
}
