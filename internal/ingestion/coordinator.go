// Package ingestion drives the per-source state machine
// (uploaded → parsing → indexed|failed) driven by a bounded worker pool,
// so any number of sources across bots ingest in parallel while
// per-source work stays single-threaded to preserve chunk ordering.
package ingestion

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/relayforge/knowbase/internal/apperr"
	"github.com/relayforge/knowbase/internal/domain"
	"github.com/relayforge/knowbase/internal/metrics"
	"github.com/relayforge/knowbase/pkg/logger"
	"github.com/relayforge/knowbase/pkg/utils"
)

type Coordinator struct {
	store       Store
	objects     ObjectStore
	parsers     ParserFactory
	crawler     Crawler
	chunker     Chunker
	embedder    Embedder
	jobs        chan job
	workerCount int
}

type job struct {
	sourceID string
}

func New(store Store, objects ObjectStore, parsers ParserFactory, crawler Crawler, chunker Chunker, embedder Embedder, workerCount, queueDepth int) *Coordinator {
	if workerCount <= 0 {
		workerCount = 4
	}
	if queueDepth <= 0 {
		queueDepth = 256
	}
	return &Coordinator{
		store:       store,
		objects:     objects,
		parsers:     parsers,
		crawler:     crawler,
		chunker:     chunker,
		embedder:    embedder,
		jobs:        make(chan job, queueDepth),
		workerCount: workerCount,
	}
}

// Start launches the fixed worker pool; call once at process startup.
// Workers run until ctx is cancelled.
func (c *Coordinator) Start(ctx context.Context) {
	for i := 0; i < c.workerCount; i++ {
		go c.worker(ctx, i)
	}
}

// Enqueue schedules a source for background ingestion and never blocks
// the caller: when the buffered queue is full, the job waits in its own
// goroutine for a free slot, so excess jobs queue behind the fixed worker
// pool instead of holding the request open.
func (c *Coordinator) Enqueue(sourceID string) {
	j := job{sourceID: sourceID}
	select {
	case c.jobs <- j:
	default:
		go func() { c.jobs <- j }()
	}
}

func (c *Coordinator) worker(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-c.jobs:
			c.process(ctx, j.sourceID, id)
		}
	}
}

func (c *Coordinator) process(ctx context.Context, sourceID string, workerID int) {
	start := time.Now()

	src, err := c.store.GetSource(ctx, sourceID)
	if err != nil {
		logger.Error("ingestion worker could not load source", zap.String("source_id", sourceID), zap.Error(err))
		return
	}

	recordOutcome := func(outcome string) {
		metrics.IngestionDuration.WithLabelValues(string(src.SourceType), outcome).Observe(time.Since(start).Seconds())
		metrics.IngestionOutcomeTotal.WithLabelValues(string(src.SourceType), outcome).Inc()
	}

	if err := c.store.UpdateSourceStatus(ctx, sourceID, domain.SourceStatusParsing, ""); err != nil {
		logger.Error("failed to mark source parsing", zap.String("source_id", sourceID), zap.Error(err))
		return
	}

	extracted, err := c.extract(ctx, src)
	if err != nil {
		c.fail(ctx, sourceID, err)
		recordOutcome("failed")
		return
	}

	if err := c.store.UpdateSourceCanonical(ctx, sourceID, extracted.canonicalURL, extracted.etag, extracted.lastModified, extracted.checksum); err != nil {
		logger.Error("failed to record source canonical fields", zap.String("source_id", sourceID), zap.Error(err))
	}

	chunks := c.chunker.Chunk(extracted.text, extracted.heading, src.OriginalURL)
	if len(chunks) == 0 {
		c.fail(ctx, sourceID, apperr.New(apperr.KindEmptyContent, "no chunks produced from extracted text"))
		recordOutcome("failed")
		return
	}

	excerpts := make([]string, len(chunks))
	for i, ch := range chunks {
		excerpts[i] = ch.Text
	}

	vectors, provider, err := c.embedder.Embed(ctx, excerpts)
	if err != nil {
		c.fail(ctx, sourceID, err)
		recordOutcome("failed")
		return
	}
	if len(vectors) != len(chunks) {
		c.fail(ctx, sourceID, apperr.New(apperr.KindEmbeddingFailed, "embedding count mismatch"))
		recordOutcome("failed")
		return
	}

	domainChunks := make([]domain.Chunk, len(chunks))
	for i, ch := range chunks {
		domainChunks[i] = domain.Chunk{
			SourceID:   sourceID,
			BotID:      src.BotID,
			ChunkIndex: i,
			Text:       ch.Text,
			Heading:    ch.Heading,
			TokenCount: ch.TokenCount,
			CharStart:  ch.CharStart,
			CharEnd:    ch.CharEnd,
			Embedding:  vectors[i],
		}
	}

	// All-or-nothing: any prior partial write for a retried source is
	// cleared before the fresh batch lands, so a source is never left
	// half-indexed.
	if err := c.store.DeleteChunksBySource(ctx, sourceID); err != nil {
		c.fail(ctx, sourceID, err)
		recordOutcome("failed")
		return
	}
	if err := c.store.InsertChunksBatch(ctx, domainChunks); err != nil {
		c.fail(ctx, sourceID, err)
		recordOutcome("failed")
		return
	}

	if err := c.store.UpdateSourceStatus(ctx, sourceID, domain.SourceStatusIndexed, ""); err != nil {
		logger.Error("failed to mark source indexed", zap.String("source_id", sourceID), zap.Error(err))
		recordOutcome("failed")
		return
	}

	recordOutcome("indexed")
	metrics.ChunksPerSource.Observe(float64(len(domainChunks)))

	logger.Info("source indexed",
		zap.String("source_id", sourceID),
		zap.Int("chunks", len(domainChunks)),
		zap.String("embedding_provider", provider),
		zap.Int("worker", workerID),
	)
}

// extracted carries both the text handed to the chunker and the
// provenance fields recorded on the source: the URL crawling settled on,
// caching headers for future conditional re-fetches, and a checksum of
// the underlying content so re-ingestion can detect an unchanged source.
type extracted struct {
	text         string
	heading      string
	canonicalURL string
	etag         string
	lastModified string
	checksum     string
}

func (c *Coordinator) extract(ctx context.Context, src *domain.Source) (*extracted, error) {
	if src.SourceType == domain.SourceTypeURL {
		result, err := c.crawler.Fetch(ctx, src.OriginalURL)
		if err != nil {
			return nil, err
		}
		return &extracted{
			text:         result.Text,
			heading:      result.Title,
			canonicalURL: result.CanonicalURL,
			etag:         result.ETag,
			lastModified: result.LastModified,
			checksum:     result.Checksum,
		}, nil
	}

	content, err := c.objects.Get(ctx, src.StoragePath)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to read source bytes from object store", err)
	}

	parser, err := c.parsers.Get(src.SourceType)
	if err != nil {
		return nil, err
	}

	result, err := parser.Parse(content)
	if err != nil {
		return nil, err
	}
	return &extracted{
		text:     result.Text,
		checksum: utils.SHA256Hex(string(content)),
	}, nil
}

func (c *Coordinator) fail(ctx context.Context, sourceID string, cause error) {
	msg := cause.Error()
	if aerr, ok := cause.(*apperr.AppError); ok {
		msg = fmt.Sprintf("%s: %s", aerr.Kind, aerr.Message)
	}
	if ctx.Err() != nil {
		// The job was cancelled mid-pipeline; record that on a context that
		// is not itself cancelled so the status write still lands.
		msg = "cancelled"
		ctx = context.WithoutCancel(ctx)
	}
	if err := c.store.UpdateSourceStatus(ctx, sourceID, domain.SourceStatusFailed, msg); err != nil {
		logger.Error("failed to record source failure", zap.String("source_id", sourceID), zap.Error(err))
	}
	logger.Warn("source ingestion failed", zap.String("source_id", sourceID), zap.Error(cause))
}
