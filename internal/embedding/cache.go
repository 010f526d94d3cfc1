package embedding

import (
	"context"

	rediscache "github.com/relayforge/knowbase/internal/cache/redis"
)

// CachingEmbedder sits in front of an Orchestrator and skips the provider
// call entirely for any text already embedded, since both ingestion
// re-runs and repeated widget queries tend to repeat text. Entries are
// keyed by the text's hash alone, so they are shared across bots.
type CachingEmbedder struct {
	orchestrator *Orchestrator
	cache        *rediscache.Client
}

func NewCachingEmbedder(orchestrator *Orchestrator, cache *rediscache.Client) *CachingEmbedder {
	return &CachingEmbedder{orchestrator: orchestrator, cache: cache}
}

// Embed resolves each text against the cache first, then batches every miss
// through the orchestrator in a single call, and backfills the cache.
func (e *CachingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, string, error) {
	vectors := make([][]float32, len(texts))
	hashes := make([]string, len(texts))
	var missIdx []int
	var missTexts []string

	for i, text := range texts {
		hash := rediscache.HashText(text)
		hashes[i] = hash

		vec, hit, err := e.cache.GetEmbedding(ctx, hash)
		if err != nil || !hit {
			missIdx = append(missIdx, i)
			missTexts = append(missTexts, text)
			continue
		}
		vectors[i] = vec
	}

	if len(missTexts) == 0 {
		return vectors, "cache", nil
	}

	fresh, provider, err := e.orchestrator.Embed(ctx, missTexts)
	if err != nil {
		return nil, "", err
	}

	for j, idx := range missIdx {
		vectors[idx] = fresh[j]
		_ = e.cache.SetEmbedding(ctx, hashes[idx], fresh[j])
	}

	return vectors, provider, nil
}
