package queryengine

import (
	"context"

	"github.com/relayforge/knowbase/internal/domain"
	"github.com/relayforge/knowbase/internal/llmprovider"
)

// Store is the subset of the repository layer the query engine needs: a
// vector search, a source lookup for citation metadata join, and query
// log persistence.
type Store interface {
	SearchSimilarChunks(ctx context.Context, botID string, queryEmbedding []float32, topK int, minScore float64) ([]domain.RetrievedChunk, error)
	GetSource(ctx context.Context, id string) (*domain.Source, error)
	InsertQueryLog(ctx context.Context, q *domain.QueryLog) error
}

// Embedder embeds a single query string into a vector.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, string, error)
}

// Generator produces an answer for a composed prompt.
type Generator interface {
	Complete(ctx context.Context, req llmprovider.CompletionRequest) (*llmprovider.CompletionResponse, string, error)
}
