package llmprovider

import (
	"context"
	"fmt"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/relayforge/knowbase/internal/apperr"
	"github.com/relayforge/knowbase/pkg/circuitbreaker"
	"github.com/relayforge/knowbase/pkg/logger"
	"github.com/relayforge/knowbase/pkg/retry"
)

type GeminiProvider struct {
	client        *genai.Client
	model         string
	defaultTemp   float32
	defaultTokens int
	cb            *circuitbreaker.CircuitBreaker
	retryConfig   retry.Config
	timeout       time.Duration
}

func NewGeminiProvider(ctx context.Context, apiKey, model string, defaultTemp float32, defaultTokens int, timeout time.Duration) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to init gemini client: %w", err)
	}

	return &GeminiProvider{
		client:        client,
		model:         model,
		defaultTemp:   defaultTemp,
		defaultTokens: defaultTokens,
		timeout:       timeout,
		cb: circuitbreaker.NewCircuitBreaker("llm-gemini", circuitbreaker.Config{
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
	}, nil
}

func (p *GeminiProvider) Name() string { return "gemini" }

func (p *GeminiProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
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

	model := p.client.GenerativeModel(p.model)
	model.SetTemperature(temperature)
	model.SetMaxOutputTokens(int32(maxTokens))
	model.SystemInstruction = genai.NewUserContent(genai.Text(req.SystemPrompt))

	var result *CompletionResponse

	err := p.cb.Execute(ctx, func() error {
		return retry.Do(ctx, p.retryConfig, func() error {
			resp, err := model.GenerateContent(ctx, genai.Text(req.UserPrompt))
			if err != nil {
				return fmt.Errorf("gemini completion request failed: %w", err)
			}
			if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
				return fmt.Errorf("gemini returned no candidates")
			}

			var content string
			if text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text); ok {
				content = string(text)
			}

			usage := Usage{}
			if resp.UsageMetadata != nil {
				usage.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
				usage.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
				usage.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
			}

			result = &CompletionResponse{Content: content, Usage: usage}
			return nil
		})
	})

	if err != nil {
		return nil, apperr.Wrap(apperr.KindProviderUnavailable, "gemini completion failed", err)
	}

	logger.Debug("llm completion generated", zap.String("provider", "gemini"),
		zap.Int("total_tokens", result.Usage.TotalTokens))

	return result, nil
}
