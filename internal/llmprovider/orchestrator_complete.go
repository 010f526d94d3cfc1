package llmprovider

import (
	"context"

	"go.uber.org/zap"

	"github.com/relayforge/knowbase/internal/apperr"
	"github.com/relayforge/knowbase/internal/metrics"
	"github.com/relayforge/knowbase/pkg/logger"
)

// Complete tries the primary provider, then each fallback, returning
// ProviderUnavailable only once every provider has failed.
func (o *Orchestrator) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, string, error) {
	providers := append([]Provider{o.primary}, o.fallbacks...)

	var lastErr error
	for i, p := range providers {
		resp, err := p.Complete(ctx, req)
		if err == nil {
			return resp, p.Name(), nil
		}
		lastErr = err

		if apperr.Is(err, apperr.KindProviderRejected) || apperr.Is(err, apperr.KindProviderUnavailable) {
			if i+1 < len(providers) {
				metrics.ProviderFailoverTotal.WithLabelValues("llm", p.Name(), providers[i+1].Name()).Inc()
			}
			logger.Warn("llm provider failed, trying fallback",
				zap.String("provider", p.Name()), zap.Error(err))
			continue
		}
		return nil, "", err
	}

	return nil, "", apperr.Wrap(apperr.KindProviderUnavailable, "all llm providers failed", lastErr)
}
