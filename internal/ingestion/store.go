package ingestion

import (
	"context"

	"github.com/relayforge/knowbase/internal/chunker"
	"github.com/relayforge/knowbase/internal/crawler"
	"github.com/relayforge/knowbase/internal/domain"
	"github.com/relayforge/knowbase/internal/parsers"
)

// Store is the subset of the repository layer the coordinator needs to
// drive a source through its state machine.
type Store interface {
	GetSource(ctx context.Context, id string) (*domain.Source, error)
	UpdateSourceStatus(ctx context.Context, id string, status domain.SourceStatus, failureReason string) error
	UpdateSourceCanonical(ctx context.Context, id, canonicalURL, etag, lastModified, checksum string) error
	InsertChunksBatch(ctx context.Context, chunks []domain.Chunk) error
	DeleteChunksBySource(ctx context.Context, sourceID string) error
}

// ObjectStore is the subset of internal/objectstore the coordinator reads
// uploaded bytes from.
type ObjectStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

// ParserFactory resolves a byte-content parser by source type.
type ParserFactory interface {
	Get(sourceType domain.SourceType) (parsers.Parser, error)
}

// Crawler fetches and extracts text from a URL source.
type Crawler interface {
	Fetch(ctx context.Context, rawURL string) (*crawler.Result, error)
}

// Chunker packs extracted text into token-budgeted chunks.
type Chunker interface {
	Chunk(text, fallbackTitle, fallbackHeading string) []chunker.Chunk
}

// Embedder embeds a batch of chunk texts, all-or-nothing.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, string, error)
}
