package promptcomposer

import (
	"strings"
	"testing"

	"github.com/relayforge/knowbase/internal/apperr"
	"github.com/relayforge/knowbase/internal/domain"
	"github.com/relayforge/knowbase/internal/tokenizer"
)

const testModel = "gemini-1.5-pro"

func chunkFixture(score float64, heading, text string) domain.RetrievedChunk {
	return domain.RetrievedChunk{
		Chunk: domain.Chunk{Heading: heading, Text: text},
		Score: score,
	}
}

func TestComposeIncludesSystemQueryAndContext(t *testing.T) {
	c := New(tokenizer.New())
	chunks := []domain.RetrievedChunk{
		chunkFixture(0.9, "Billing", "Invoices are issued monthly."),
	}

	composed, err := c.Compose("You are a support bot.", chunks, nil, "How do I get an invoice?", testModel, 8000, 512)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	if composed.SystemPrompt != "You are a support bot." {
		t.Fatalf("unexpected system prompt: %q", composed.SystemPrompt)
	}
	if len(composed.UsedChunks) != 1 {
		t.Fatalf("expected 1 used chunk, got %d", len(composed.UsedChunks))
	}
	last := composed.Messages[len(composed.Messages)-1]
	if last.Content != "How do I get an invoice?" {
		t.Fatalf("expected the query as the final message, got %q", last.Content)
	}
	if !strings.Contains(composed.Messages[0].Content, "Invoices are issued monthly") {
		t.Fatalf("expected the context block to carry the chunk text, got %q", composed.Messages[0].Content)
	}
}

func TestComposeRejectsTooSmallBudget(t *testing.T) {
	c := New(tokenizer.New())
	_, err := c.Compose("system", nil, nil, "query", testModel, 100, 200)
	if !apperr.Is(err, apperr.KindContextOverflow) {
		t.Fatalf("expected KindContextOverflow, got %v", err)
	}
}

func TestComposeRejectsWhenNoChunkFitsContextBudget(t *testing.T) {
	c := New(tokenizer.New())

	filler := strings.Repeat("this single chunk is far too large to fit the context budget alone. ", 200)
	chunks := []domain.RetrievedChunk{
		chunkFixture(0.9, "Big", filler),
	}

	_, err := c.Compose("system", chunks, nil, "query", testModel, 2000, 100)
	if !apperr.Is(err, apperr.KindContextOverflow) {
		t.Fatalf("expected KindContextOverflow when even the highest-scoring chunk doesn't fit, got %v", err)
	}
}

func TestComposeDropsLowestScoringChunksFirst(t *testing.T) {
	c := New(tokenizer.New())

	filler := strings.Repeat("padding text to consume tokens in this chunk body. ", 40)
	chunks := []domain.RetrievedChunk{
		chunkFixture(0.95, "High", "High score chunk: "+filler),
		chunkFixture(0.40, "Low", "Low score chunk: "+filler),
	}

	composed, err := c.Compose("system prompt", chunks, nil, "query", testModel, 1900, 100)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	for _, kept := range composed.UsedChunks {
		if kept.Chunk.Heading == "Low" {
			t.Fatalf("expected the lower-scoring chunk to be dropped under a tight budget")
		}
	}
}

func TestComposeDropsOldestHistoryFirst(t *testing.T) {
	c := New(tokenizer.New())

	filler := strings.Repeat("more history filler content here. ", 30)
	history := []HistoryTurn{
		{Role: "user", Content: "oldest turn: " + filler},
		{Role: "assistant", Content: "newest turn: " + filler},
	}

	composed, err := c.Compose("system", nil, history, "final query", testModel, 500, 100)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}

	foundOldest := false
	for _, m := range composed.Messages {
		if strings.Contains(m.Content, "oldest turn") {
			foundOldest = true
		}
	}
	if foundOldest {
		t.Fatalf("expected the oldest history turn to be dropped under a tight budget")
	}
}
