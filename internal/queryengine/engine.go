// Package queryengine implements the end-to-end RAG pipeline —
// embed, retrieve, compose, generate, score, cite, and log.
package queryengine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/relayforge/knowbase/internal/apperr"
	"github.com/relayforge/knowbase/internal/domain"
	"github.com/relayforge/knowbase/internal/llmprovider"
	"github.com/relayforge/knowbase/internal/metrics"
	"github.com/relayforge/knowbase/internal/promptcomposer"
	"github.com/relayforge/knowbase/internal/tokenizer"
	"github.com/relayforge/knowbase/pkg/logger"
)

const (
	defaultTopK     = 5
	defaultMinScore = 0.25
	modelMaxTokens  = 128000
)

type Engine struct {
	store    Store
	embedder Embedder
	composer *promptcomposer.Composer
	llm      Generator
}

func New(store Store, embedder Embedder, llm Generator, tokenCounter *tokenizer.Counter) *Engine {
	return &Engine{
		store:    store,
		embedder: embedder,
		composer: promptcomposer.New(tokenCounter),
		llm:      llm,
	}
}

type Request struct {
	Bot             *domain.Bot
	QueryText       string
	SessionID       string
	PageURL         string
	History         []promptcomposer.HistoryTurn
	IncludeMetadata bool
	TopK            int
	MinScore        float64
	// Caller labels the metrics this query contributes to: "owner" or
	// "widget".
	Caller string
}

type Response struct {
	Answer           string
	Citations        []domain.Citation
	Confidence       *float64
	SessionID        string
	PromptTokens     int
	CompletionTokens int
	LatencyMS        int
}

// Query runs the full pipeline: embed the
// query, retrieve, compose a bounded prompt, generate an answer, score
// confidence, assemble citations, and persist a query log.
func (e *Engine) Query(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	caller := req.Caller
	if caller == "" {
		caller = "owner"
	}
	recordOutcome := func(outcome string) {
		metrics.QueryDuration.WithLabelValues(caller).Observe(time.Since(start).Seconds())
		metrics.QueryTotal.WithLabelValues(caller, outcome).Inc()
	}

	topK := req.TopK
	if topK <= 0 {
		topK = req.Bot.TopK
	}
	if topK <= 0 {
		topK = defaultTopK
	}
	minScore := req.MinScore
	if minScore <= 0 {
		minScore = req.Bot.MinScore
	}
	if minScore <= 0 {
		minScore = defaultMinScore
	}

	vectors, provider, err := e.embedder.Embed(ctx, []string{req.QueryText})
	if err != nil {
		recordOutcome("error")
		return nil, err
	}
	logger.Debug("query embedded", zap.String("provider", provider))

	chunks, err := e.store.SearchSimilarChunks(ctx, req.Bot.ID, vectors[0], topK, minScore)
	if err != nil {
		recordOutcome("error")
		return nil, err
	}
	metrics.RetrievedChunksPerQuery.Observe(float64(len(chunks)))

	maxTokens := req.Bot.LLMMaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	temperature := req.Bot.LLMTemperature

	composed, err := e.composer.Compose(
		req.Bot.SystemPrompt, chunks, req.History, req.QueryText,
		req.Bot.LLMModel, modelMaxTokens, maxTokens,
	)
	if err != nil {
		recordOutcome("error")
		return nil, err
	}

	userPrompt := renderUserPrompt(composed)

	genResp, llmProviderName, err := e.llm.Complete(ctx, llmprovider.CompletionRequest{
		SystemPrompt: composed.SystemPrompt,
		UserPrompt:   userPrompt,
		Temperature:  temperature,
		MaxTokens:    maxTokens,
	})
	if err != nil {
		recordOutcome("error")
		return nil, err
	}
	logger.Debug("answer generated", zap.String("provider", llmProviderName))
	metrics.ProviderTokensUsed.WithLabelValues(llmProviderName, "prompt").Add(float64(genResp.Usage.PromptTokens))
	metrics.ProviderTokensUsed.WithLabelValues(llmProviderName, "completion").Add(float64(genResp.Usage.CompletionTokens))

	confidence := computeConfidence(composed.UsedChunks)
	if confidence != nil {
		metrics.ConfidenceScore.Observe(*confidence)
	}
	citations, err := e.buildCitations(ctx, composed.UsedChunks, req.IncludeMetadata)
	if err != nil {
		recordOutcome("error")
		return nil, err
	}

	recordOutcome("ok")
	latency := time.Since(start)

	resp := &Response{
		Answer:           genResp.Content,
		Citations:        citations,
		Confidence:       confidence,
		SessionID:        req.SessionID,
		PromptTokens:     genResp.Usage.PromptTokens,
		CompletionTokens: genResp.Usage.CompletionTokens,
		LatencyMS:        int(latency.Milliseconds()),
	}

	logEntry := &domain.QueryLog{
		BotID:            req.Bot.ID,
		SessionID:        req.SessionID,
		QueryText:        req.QueryText,
		PageURL:          req.PageURL,
		ResponseSummary:  summarize(genResp.Content),
		Citations:        citations,
		Confidence:       confidence,
		PromptTokens:     genResp.Usage.PromptTokens,
		CompletionTokens: genResp.Usage.CompletionTokens,
		TotalTokens:      genResp.Usage.TotalTokens,
		LatencyMS:        resp.LatencyMS,
	}
	if err := e.store.InsertQueryLog(ctx, logEntry); err != nil {
		logger.Error("failed to persist query log", zap.Error(err))
	}

	return resp, nil
}

func renderUserPrompt(c *promptcomposer.Composed) string {
	var out string
	for _, m := range c.Messages {
		out += m.Content + "\n\n"
	}
	return out
}

// computeConfidence is the arithmetic mean of retrieved chunk scores, or
// nil if nothing was retrieved — never gated behind include_metadata.
func computeConfidence(chunks []domain.RetrievedChunk) *float64 {
	if len(chunks) == 0 {
		return nil
	}
	var sum float64
	for _, c := range chunks {
		sum += c.Score
	}
	mean := sum / float64(len(chunks))
	return &mean
}

func (e *Engine) buildCitations(ctx context.Context, chunks []domain.RetrievedChunk, includeMetadata bool) ([]domain.Citation, error) {
	citations := make([]domain.Citation, 0, len(chunks))
	for _, c := range chunks {
		cit := domain.Citation{
			ChunkID: c.Chunk.ID,
			Heading: c.Chunk.Heading,
			Score:   c.Score,
		}
		if includeMetadata {
			src, err := e.store.GetSource(ctx, c.Chunk.SourceID)
			if err != nil && !apperr.Is(err, apperr.KindNotFound) {
				return nil, err
			}
			if src != nil {
				cit.SourceID = src.ID
				cit.SourceType = string(src.SourceType)
				cit.Filename = src.StoragePath
			}
		}
		citations = append(citations, cit)
	}
	return citations, nil
}

func summarize(text string) string {
	const maxLen = 500
	if len(text) <= maxLen {
		return text
	}
	return text[:maxLen]
}
