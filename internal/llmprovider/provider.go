// Package llmprovider implements chat-completion providers wrapped in
// retry and circuit-breaker resilience, behind a common interface the
// query engine and orchestrator consume.
package llmprovider

import "context"

type CompletionRequest struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  float32
	MaxTokens    int
}

type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

type CompletionResponse struct {
	Content string
	Usage   Usage
}

// Provider generates a single chat completion.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

// Orchestrator tries a primary provider, then falls back in order, mirroring
// the embedding orchestrator's failover shape.
type Orchestrator struct {
	primary   Provider
	fallbacks []Provider
}

func NewOrchestrator(primary Provider, fallbacks ...Provider) *Orchestrator {
	return &Orchestrator{primary: primary, fallbacks: fallbacks}
}
