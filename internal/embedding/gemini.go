package embedding

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

// GeminiProvider is the fallback embedding provider used when the primary
// provider's circuit breaker is open.
type GeminiProvider struct {
	client      *genai.Client
	model       string
	dimension   int
	cb          *circuitbreaker.CircuitBreaker
	retryConfig retry.Config
	timeout     time.Duration
}

func NewGeminiProvider(ctx context.Context, apiKey, model string, dimension int, timeout time.Duration) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to init gemini client: %w", err)
	}

	return &GeminiProvider{
		client:    client,
		model:     model,
		dimension: dimension,
		timeout:   timeout,
		cb: circuitbreaker.NewCircuitBreaker("embedding-gemini", circuitbreaker.Config{
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

func (p *GeminiProvider) Name() string   { return "gemini" }
func (p *GeminiProvider) Dimension() int { return p.dimension }

func (p *GeminiProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	em := p.client.EmbeddingModel(p.model)

	var out [][]float32

	err := p.cb.Execute(ctx, func() error {
		return retry.Do(ctx, p.retryConfig, func() error {
			batch := em.NewBatch()
			for _, t := range texts {
				batch.AddContent(genai.Text(t))
			}

			resp, err := em.BatchEmbedContents(ctx, batch)
			if err != nil {
				return fmt.Errorf("gemini embedding request failed: %w", err)
			}

			out = make([][]float32, 0, len(resp.Embeddings))
			for _, e := range resp.Embeddings {
				out = append(out, e.Values)
			}
			return nil
		})
	})

	if err != nil {
		return nil, apperr.Wrap(apperr.KindEmbeddingFailed, "gemini embedding failed", err)
	}

	logger.Debug("embeddings generated", zap.String("provider", "gemini"), zap.Int("count", len(out)))
	return out, nil
}
