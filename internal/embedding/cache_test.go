package embedding

import (
	"context"
	"net"
	"strconv"
	"testing"

	"github.com/alicebob/miniredis/v2"

	rediscache "github.com/relayforge/knowbase/internal/cache/redis"
)

type fakeProvider struct {
	name  string
	calls int
	vec   func(text string) []float32
}

func (p *fakeProvider) Name() string { return p.name }
func (p *fakeProvider) Dimension() int { return 3 }
func (p *fakeProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	p.calls++
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = p.vec(t)
	}
	return out, nil
}

func newTestCache(t *testing.T) *rediscache.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	host, portStr, err := net.SplitHostPort(mr.Addr())
	if err != nil {
		t.Fatalf("split addr: %v", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("parse port: %v", err)
	}
	client, err := rediscache.NewClient(host, port, "", 0)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func fixedVector(text string) []float32 {
	return []float32{float32(len(text)), 1, 2}
}

func TestCachingEmbedderMissesThenHitsCache(t *testing.T) {
	provider := &fakeProvider{name: "fake", vec: fixedVector}
	orch := NewOrchestrator(provider)
	cache := newTestCache(t)
	ce := NewCachingEmbedder(orch, cache)

	ctx := context.Background()
	texts := []string{"hello", "world"}

	vectors, source, err := ce.Embed(ctx, texts)
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if source != "fake" {
		t.Fatalf("expected first call to report the provider name, got %q", source)
	}
	if provider.calls != 1 {
		t.Fatalf("expected exactly 1 provider call, got %d", provider.calls)
	}
	if len(vectors) != 2 {
		t.Fatalf("expected 2 vectors, got %d", len(vectors))
	}

	vectors2, source2, err := ce.Embed(ctx, texts)
	if err != nil {
		t.Fatalf("embed (cached): %v", err)
	}
	if source2 != "cache" {
		t.Fatalf("expected the second call to be served entirely from cache, got %q", source2)
	}
	if provider.calls != 1 {
		t.Fatalf("expected no additional provider calls on a full cache hit, got %d", provider.calls)
	}
	if len(vectors2) != len(vectors) {
		t.Fatalf("expected cached vectors to match the originals in count")
	}
}

func TestCachingEmbedderOnlyEmbedsCacheMisses(t *testing.T) {
	provider := &fakeProvider{name: "fake", vec: fixedVector}
	orch := NewOrchestrator(provider)
	cache := newTestCache(t)
	ce := NewCachingEmbedder(orch, cache)

	ctx := context.Background()
	if _, _, err := ce.Embed(ctx, []string{"alpha"}); err != nil {
		t.Fatalf("embed: %v", err)
	}
	if provider.calls != 1 {
		t.Fatalf("expected 1 call after the first embed, got %d", provider.calls)
	}

	if _, _, err := ce.Embed(ctx, []string{"alpha", "beta"}); err != nil {
		t.Fatalf("embed: %v", err)
	}
	if provider.calls != 2 {
		t.Fatalf("expected the mixed-hit batch to trigger exactly 1 more provider call (for beta only), got %d total calls", provider.calls)
	}
}
