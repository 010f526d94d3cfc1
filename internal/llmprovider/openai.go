package llmprovider

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/relayforge/knowbase/internal/apperr"
	"github.com/relayforge/knowbase/pkg/circuitbreaker"
	"github.com/relayforge/knowbase/pkg/logger"
	"github.com/relayforge/knowbase/pkg/retry"
)

type OpenAIProvider struct {
	client         *openai.Client
	model          string
	defaultTemp    float32
	defaultTokens  int
	cb             *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
	timeout        time.Duration
}

func NewOpenAIProvider(apiKey, model string, defaultTemp float32, defaultTokens int, timeout time.Duration) *OpenAIProvider {
	return &OpenAIProvider{
		client:        openai.NewClient(apiKey),
		model:         model,
		defaultTemp:   defaultTemp,
		defaultTokens: defaultTokens,
		timeout:       timeout,
		cb: circuitbreaker.NewCircuitBreaker("llm-openai", circuitbreaker.Config{
			MaxRequests:      5,
			Interval:         time.Minute,
			Timeout:          30 * time.Second,
			FailureThreshold: 5,
			SuccessThreshold: 2,
			Logger:           logger.GetLogger(),
		}),
		retryConfig: retry.Config{
			MaxAttempts:    3,
			InitialDelay:   500 * time.Millisecond,
			MaxDelay:       5 * time.Second,
			Multiplier:     2.0,
			JitterFraction: 0.1,
			Logger:         logger.GetLogger(),
		},
	}
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	temperature := req.Temperature
	if temperature == 0 {
		temperature = p.defaultTemp
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.defaultTokens
	}

	var result *CompletionResponse

	err := p.cb.Execute(ctx, func() error {
		return retry.Do(ctx, p.retryConfig, func() error {
			resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
				Model: p.model,
				Messages: []openai.ChatCompletionMessage{
					{Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt},
					{Role: openai.ChatMessageRoleUser, Content: req.UserPrompt},
				},
				Temperature: temperature,
				MaxTokens:   maxTokens,
			})
			if err != nil {
				return fmt.Errorf("openai completion request failed: %w", err)
			}
			if len(resp.Choices) == 0 {
				return fmt.Errorf("openai returned no choices")
			}

			result = &CompletionResponse{
				Content: resp.Choices[0].Message.Content,
				Usage: Usage{
					PromptTokens:     resp.Usage.PromptTokens,
					CompletionTokens: resp.Usage.CompletionTokens,
					TotalTokens:      resp.Usage.TotalTokens,
				},
			}
			return nil
		})
	})

	if err != nil {
		return nil, apperr.Wrap(apperr.KindProviderUnavailable, "openai completion failed", err)
	}

	logger.Debug("llm completion generated", zap.String("provider", "openai"),
		zap.Int("prompt_tokens", result.Usage.PromptTokens),
		zap.Int("completion_tokens", result.Usage.CompletionTokens))

	return result, nil
}
