package content

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// charsPerToken is the rough ratio used when no tokenizer can be loaded.
const charsPerToken = 4

// TokenBudget caps the size of content sent to the extraction model.
// The tokenizer is loaded lazily on first use; if it can't be loaded (the BPE
// ranks are fetched on first use and may be unavailable offline) the budget
// falls back to a character estimate.
type TokenBudget struct {
	encoding  string
	maxTokens int

	once sync.Once
	enc  *tiktoken.Tiktoken
}

// NewTokenBudget creates a budget. maxTokens <= 0 disables truncation.
func NewTokenBudget(encoding string, maxTokens int) *TokenBudget {
	return &TokenBudget{encoding: encoding, maxTokens: maxTokens}
}

// Fit returns text cut down to the budget and whether anything was cut.
func (b *TokenBudget) Fit(text string) (string, bool) {
	if b == nil || b.maxTokens <= 0 || text == "" {
		return text, false
	}

	b.once.Do(func() {
		enc, err := tiktoken.GetEncoding(b.encoding)
		if err == nil {
			b.enc = enc
		}
	})

	if b.enc == nil {
		return fitRunes(text, b.maxTokens*charsPerToken)
	}

	tokens := b.enc.Encode(text, nil, nil)
	if len(tokens) <= b.maxTokens {
		return text, false
	}
	return b.enc.Decode(tokens[:b.maxTokens]), true
}

func fitRunes(text string, maxRunes int) (string, bool) {
	count := 0
	for i := range text {
		if count == maxRunes {
			return text[:i], true
		}
		count++
	}
	return text, false
}
