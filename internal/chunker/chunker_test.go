package chunker

import (
	"strings"
	"testing"

	"github.com/relayforge/knowbase/internal/tokenizer"
)

const testModel = "gemini-1.5-pro"

func TestChunkEmptyTextReturnsNil(t *testing.T) {
	c := New(tokenizer.New(), testModel)
	if got := c.Chunk("", "", ""); got != nil {
		t.Fatalf("expected nil chunks for empty input, got %v", got)
	}
}

func TestChunkShortTextProducesOneChunk(t *testing.T) {
	c := New(tokenizer.New(), testModel)
	chunks := c.Chunk("This is a short document. It has two sentences.", "Intro", "")
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if !strings.Contains(chunks[0].Text, "short document") {
		t.Fatalf("expected chunk text to contain the source sentences, got %q", chunks[0].Text)
	}
	if chunks[0].Heading != "Intro" {
		t.Fatalf("expected fallback title heading, got %q", chunks[0].Heading)
	}
}

func TestChunkUsesFallbackHeadingWhenNoTitle(t *testing.T) {
	c := New(tokenizer.New(), testModel)
	chunks := c.Chunk("Plain text with no heading markers at all.", "", "https://example.com/page")
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Heading != "https://example.com/page" {
		t.Fatalf("expected fallback heading, got %q", chunks[0].Heading)
	}
}

func TestChunkExtractsMarkdownHeading(t *testing.T) {
	c := New(tokenizer.New(), testModel)
	chunks := c.Chunk("## Getting Started\nFollow these steps to begin.", "Intro", "")
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Heading != "Getting Started" {
		t.Fatalf("expected markdown heading to win over fallback title, got %q", chunks[0].Heading)
	}
}

func TestChunkOversizedSentenceStandsAlone(t *testing.T) {
	c := New(tokenizer.New(), testModel)

	words := make([]string, 0, 2000)
	for i := 0; i < 2000; i++ {
		words = append(words, "lorem")
	}
	huge := strings.Join(words, " ") + "."

	chunks := c.Chunk("A short lead-in sentence. "+huge, "", "")
	if len(chunks) < 2 {
		t.Fatalf("expected the oversized sentence to be split into its own chunk, got %d chunks", len(chunks))
	}
	last := chunks[len(chunks)-1]
	if last.TokenCount <= maxTokens {
		t.Fatalf("expected the oversized chunk to exceed maxTokens, got %d", last.TokenCount)
	}
}

func TestChunkLongTextProducesMultipleChunksWithOverlap(t *testing.T) {
	c := New(tokenizer.New(), testModel)

	var sb strings.Builder
	for i := 0; i < 400; i++ {
		sb.WriteString("This is sentence number filler used to pad out the document body. ")
	}

	chunks := c.Chunk(sb.String(), "Doc", "")
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks for long input, got %d", len(chunks))
	}
	for _, ch := range chunks {
		if ch.TokenCount > maxTokens {
			t.Fatalf("expected no chunk to exceed maxTokens, got %d", ch.TokenCount)
		}
	}
}

func TestChunkCharRangeMatchesSourceText(t *testing.T) {
	c := New(tokenizer.New(), testModel)
	text := "This is a short document. It has two sentences."

	chunks := c.Chunk(text, "Intro", "")
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	ch := chunks[0]
	if ch.CharStart != 0 {
		t.Fatalf("expected CharStart 0, got %d", ch.CharStart)
	}
	if ch.CharEnd <= ch.CharStart {
		t.Fatalf("expected CharEnd (%d) to be past CharStart (%d)", ch.CharEnd, ch.CharStart)
	}
	if ch.CharEnd > len(text) {
		t.Fatalf("expected CharEnd (%d) to stay within the source text length (%d)", ch.CharEnd, len(text))
	}
}

func TestChunkCharRangesCoverOverlapAcrossChunks(t *testing.T) {
	c := New(tokenizer.New(), testModel)

	var sb strings.Builder
	for i := 0; i < 400; i++ {
		sb.WriteString("This is sentence number filler used to pad out the document body. ")
	}
	text := sb.String()

	chunks := c.Chunk(text, "Doc", "")
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks for long input, got %d", len(chunks))
	}
	for i := 1; i < len(chunks); i++ {
		// The overlap tail means each chunk after the first starts at or
		// before the previous chunk's end, never past it.
		if chunks[i].CharStart > chunks[i-1].CharEnd {
			t.Fatalf("expected chunk %d to start (%d) within or before the previous chunk's end (%d)",
				i, chunks[i].CharStart, chunks[i-1].CharEnd)
		}
		if chunks[i].CharEnd <= chunks[i].CharStart {
			t.Fatalf("expected chunk %d to have a non-empty char range, got start=%d end=%d",
				i, chunks[i].CharStart, chunks[i].CharEnd)
		}
	}
}
