package embedding

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

const maxEmbeddingBatch = 64

type OpenAIProvider struct {
	client      *openai.Client
	model       string
	dimension   int
	cb          *circuitbreaker.CircuitBreaker
	retryConfig retry.Config
	timeout     time.Duration
}

func NewOpenAIProvider(apiKey, model string, dimension int, timeout time.Duration) *OpenAIProvider {
	return &OpenAIProvider{
		client:    openai.NewClient(apiKey),
		model:     model,
		dimension: dimension,
		timeout:   timeout,
		cb: circuitbreaker.NewCircuitBreaker("embedding-openai", circuitbreaker.Config{
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

func (p *OpenAIProvider) Name() string    { return "openai" }
func (p *OpenAIProvider) Dimension() int  { return p.dimension }

func (p *OpenAIProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	var out [][]float32

	for i := 0; i < len(texts); i += maxEmbeddingBatch {
		end := i + maxEmbeddingBatch
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[i:end]

		err := p.cb.Execute(ctx, func() error {
			return retry.Do(ctx, p.retryConfig, func() error {
				resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
					Input: batch,
					Model: openai.EmbeddingModel(p.model),
				})
				if err != nil {
					return fmt.Errorf("openai embedding request failed: %w", err)
				}
				for _, d := range resp.Data {
					vec := make([]float32, len(d.Embedding))
					copy(vec, d.Embedding)
					out = append(out, vec)
				}
				return nil
			})
		})

		if err != nil {
			return nil, apperr.Wrap(apperr.KindEmbeddingFailed, "openai embedding failed", err)
		}
	}

	logger.Debug("embeddings generated", zap.String("provider", "openai"), zap.Int("count", len(out)))
	return out, nil
}
