// Package promptcomposer assembles the messages list for
// an LLM call under a hard token budget.
package promptcomposer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/relayforge/knowbase/internal/apperr"
	"github.com/relayforge/knowbase/internal/domain"
	"github.com/relayforge/knowbase/internal/tokenizer"
)

const safetyMargin = 256

type HistoryTurn struct {
	Role    string // "user" or "assistant"
	Content string
}

type Composed struct {
	SystemPrompt string
	// Messages is the context block (when any chunk was kept), then history
	// oldest-first, then the final user query.
	Messages     []HistoryTurn
	UsedChunks   []domain.RetrievedChunk
	PromptTokens int
}

type Composer struct {
	tokenCounter *tokenizer.Counter
}

func New(tokenCounter *tokenizer.Counter) *Composer {
	return &Composer{tokenCounter: tokenCounter}
}

// Compose assembles the final prompt: system prompt first, then
// a context block built from the highest-scoring chunks that fit half the
// budget, then as much history as fits the remaining budget, then the
// query as the final message.
func (c *Composer) Compose(
	systemPrompt string,
	chunks []domain.RetrievedChunk,
	history []HistoryTurn,
	query, model string,
	modelMaxTokens, maxResponseTokens int,
) (*Composed, error) {
	budget := modelMaxTokens - maxResponseTokens - safetyMargin
	if budget <= 0 {
		return nil, apperr.New(apperr.KindContextOverflow, "model context window too small for configured response budget")
	}

	systemTokens := c.tokenCounter.Count(systemPrompt, model)
	queryTokens := c.tokenCounter.Count(query, model)

	halfBudget := budget / 2
	kept, contextBlock, contextTokens := c.fitContext(chunks, model, halfBudget)
	if len(chunks) > 0 && len(kept) == 0 {
		return nil, apperr.New(apperr.KindContextOverflow, "no retrieved chunk fits the context budget, even alone")
	}

	remaining := budget - systemTokens - queryTokens - contextTokens
	if remaining < 0 {
		return nil, apperr.New(apperr.KindContextOverflow, "system prompt, query, and minimal context exceed the token budget")
	}

	keptHistory := c.fitHistory(history, model, remaining)

	var messages []HistoryTurn
	if contextBlock != "" {
		messages = append(messages, HistoryTurn{Role: "user", Content: contextBlock})
	}
	messages = append(messages, keptHistory...)
	messages = append(messages, HistoryTurn{Role: "user", Content: query})

	total := systemTokens + queryTokens + contextTokens
	for _, h := range keptHistory {
		total += c.tokenCounter.Count(h.Content, model)
	}

	return &Composed{
		SystemPrompt: systemPrompt,
		Messages:     messages,
		UsedChunks:   kept,
		PromptTokens: total,
	}, nil
}

// fitContext drops chunks from the lowest-score end until the running
// token total fits within halfBudget, formatting survivors with a
// stable [C{i}] marker.
func (c *Composer) fitContext(chunks []domain.RetrievedChunk, model string, halfBudget int) ([]domain.RetrievedChunk, string, int) {
	if len(chunks) == 0 {
		return nil, "", 0
	}

	ordered := make([]domain.RetrievedChunk, len(chunks))
	copy(ordered, chunks)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Score > ordered[j].Score })

	kept := ordered
	for len(kept) > 0 {
		block, tokens := c.renderContext(kept, model)
		if tokens <= halfBudget {
			return kept, block, tokens
		}
		kept = kept[:len(kept)-1]
	}
	return nil, "", 0
}

func (c *Composer) renderContext(chunks []domain.RetrievedChunk, model string) (string, int) {
	var b strings.Builder
	b.WriteString("Context:\n")
	for i, ch := range chunks {
		marker := fmt.Sprintf("[C%d]", i+1)
		heading := ch.Chunk.Heading
		if heading != "" {
			fmt.Fprintf(&b, "%s (%s): %s\n", marker, heading, ch.Chunk.Text)
		} else {
			fmt.Fprintf(&b, "%s: %s\n", marker, ch.Chunk.Text)
		}
	}
	block := b.String()
	return block, c.tokenCounter.Count(block, model)
}

// fitHistory drops the oldest turns first until the total fits budget.
func (c *Composer) fitHistory(history []HistoryTurn, model string, budget int) []HistoryTurn {
	if budget <= 0 || len(history) == 0 {
		return nil
	}

	kept := make([]HistoryTurn, len(history))
	copy(kept, history)

	for len(kept) > 0 {
		total := 0
		for _, h := range kept {
			total += c.tokenCounter.Count(h.Content, model)
		}
		if total <= budget {
			return kept
		}
		kept = kept[1:]
	}
	return nil
}
