package embedding

import (
	"context"

	"go.uber.org/zap"

	"github.com/relayforge/knowbase/internal/apperr"
	"github.com/relayforge/knowbase/internal/metrics"
	"github.com/relayforge/knowbase/pkg/logger"
)

// Orchestrator wraps a primary and an ordered list of fallback providers:
// if the primary's circuit breaker is open or the call fails, the next
// provider in line is tried before giving up.
type Orchestrator struct {
	primary   Provider
	fallbacks []Provider
}

func NewOrchestrator(primary Provider, fallbacks ...Provider) *Orchestrator {
	return &Orchestrator{primary: primary, fallbacks: fallbacks}
}

// Embed tries the primary provider first, then each fallback in order.
// Returns ProviderUnavailable only if every provider failed.
func (o *Orchestrator) Embed(ctx context.Context, texts []string) ([][]float32, string, error) {
	providers := append([]Provider{o.primary}, o.fallbacks...)

	var lastErr error
	for i, p := range providers {
		vectors, err := p.Embed(ctx, texts)
		if err == nil {
			return vectors, p.Name(), nil
		}
		lastErr = err

		if apperr.Is(err, apperr.KindEmbeddingFailed) {
			if i+1 < len(providers) {
				metrics.ProviderFailoverTotal.WithLabelValues("embedding", p.Name(), providers[i+1].Name()).Inc()
			}
			logger.Warn("embedding provider failed, trying fallback",
				zap.String("provider", p.Name()), zap.Error(err))
			continue
		}
		return nil, "", err
	}

	return nil, "", apperr.Wrap(apperr.KindProviderUnavailable, "all embedding providers failed", lastErr)
}
