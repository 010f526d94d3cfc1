// Package tokenizer implements a deterministic token counter keyed by
// model family, stable across processes for the same input.
package tokenizer

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// geminiCharsPerToken approximates Gemini's token ratio since no official
// Go tokenizer is published for it; counts only need to be deterministic
// and stable, not exact across providers.
const geminiCharsPerToken = 4.0

type Counter struct {
	mu    sync.Mutex
	cache map[string]*tiktoken.Tiktoken
}

func New() *Counter {
	return &Counter{cache: make(map[string]*tiktoken.Tiktoken)}
}

// Count returns the token count of text for the given model, selecting
// the BPE encoding by family: o200k_base for the newest OpenAI models,
// cl100k_base for the gpt-3.5/gpt-4 family, and a fixed ratio for Gemini
// models.
func (c *Counter) Count(text, model string) int {
	if strings.HasPrefix(model, "gemini") {
		return estimateByRatio(text)
	}

	enc, err := c.encodingFor(model)
	if err != nil {
		return estimateByRatio(text)
	}
	return len(enc.Encode(text, nil, nil))
}

func (c *Counter) encodingFor(model string) (*tiktoken.Tiktoken, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if enc, ok := c.cache[model]; ok {
		return enc, nil
	}

	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		name := "cl100k_base"
		if strings.HasPrefix(model, "gpt-4o") || strings.HasPrefix(model, "o1") {
			name = "o200k_base"
		}
		enc, err = tiktoken.GetEncoding(name)
		if err != nil {
			return nil, err
		}
	}

	c.cache[model] = enc
	return enc, nil
}

func estimateByRatio(text string) int {
	if len(text) == 0 {
		return 0
	}
	estimate := float64(len(text)) / geminiCharsPerToken
	if estimate < 1 {
		return 1
	}
	return int(estimate)
}
