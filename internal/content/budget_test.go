package content

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenBudget_Disabled(t *testing.T) {
	b := NewTokenBudget("cl100k_base", 0)
	text := strings.Repeat("word ", 1000)

	got, cut := b.Fit(text)
	assert.False(t, cut)
	assert.Equal(t, text, got)
}

func TestTokenBudget_NilIsDisabled(t *testing.T) {
	var b *TokenBudget
	got, cut := b.Fit("abc")
	assert.False(t, cut)
	assert.Equal(t, "abc", got)
}

func TestTokenBudget_FallbackEstimate(t *testing.T) {
	// An unknown encoding can't be loaded, so the chars/4 estimate applies.
	b := NewTokenBudget("no-such-encoding", 3)

	got, cut := b.Fit("abcdefghijklmnop")
	assert.True(t, cut)
	assert.Equal(t, "abcdefghijkl", got)

	got, cut = b.Fit("short")
	assert.False(t, cut)
	assert.Equal(t, "short", got)
}

func TestFitRunes_MultiByte(t *testing.T) {
	got, cut := fitRunes("héllo wörld", 5)
	assert.True(t, cut)
	assert.Equal(t, "héllo", got)
}
