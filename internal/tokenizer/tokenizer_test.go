package tokenizer

import "testing"

func TestCountGeminiIsDeterministic(t *testing.T) {
	c := New()
	text := "the quick brown fox jumps over the lazy dog"

	first := c.Count(text, "gemini-1.5-pro")
	second := c.Count(text, "gemini-1.5-pro")
	if first != second {
		t.Fatalf("expected repeated counts to match, got %d and %d", first, second)
	}
	if first <= 0 {
		t.Fatalf("expected a positive token count, got %d", first)
	}
}

func TestCountGeminiEmptyStringIsZero(t *testing.T) {
	c := New()
	if got := c.Count("", "gemini-1.5-pro"); got != 0 {
		t.Fatalf("expected 0 tokens for empty input, got %d", got)
	}
}

func TestCountGeminiShortInputIsAtLeastOne(t *testing.T) {
	c := New()
	if got := c.Count("hi", "gemini-1.5-pro"); got < 1 {
		t.Fatalf("expected at least 1 token for non-empty input, got %d", got)
	}
}

func TestCountGeminiScalesWithLength(t *testing.T) {
	c := New()
	short := c.Count("hello world", "gemini-1.5-pro")
	long := c.Count("hello world, this is a much longer sentence used to test scaling", "gemini-1.5-pro")
	if long <= short {
		t.Fatalf("expected longer text to produce a larger token count, got short=%d long=%d", short, long)
	}
}

func TestCountGeminiSkipsEncodingCache(t *testing.T) {
	c := New()
	c.Count("warm the cache", "gemini-1.5-pro")
	if _, ok := c.cache["gemini-1.5-pro"]; ok {
		t.Fatalf("gemini models should never populate the tiktoken cache")
	}
}
