package ratelimiter

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/relayforge/knowbase/internal/apperr"
)

func newTestLimiter(t *testing.T) (*Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return New(client), mr
}

func TestAllowWithinLimit(t *testing.T) {
	l, _ := newTestLimiter(t)

	for i := 0; i < 3; i++ {
		ok, count, err := l.Allow(context.Background(), "bot-1", 5)
		if err != nil {
			t.Fatalf("allow: %v", err)
		}
		if !ok {
			t.Fatalf("expected request %d to be allowed", i)
		}
		if count != i+1 {
			t.Fatalf("expected count %d, got %d", i+1, count)
		}
	}
}

func TestAllowRejectsOverLimit(t *testing.T) {
	l, _ := newTestLimiter(t)

	for i := 0; i < 2; i++ {
		if ok, _, err := l.Allow(context.Background(), "bot-1", 2); err != nil || !ok {
			t.Fatalf("expected request %d within limit, ok=%v err=%v", i, ok, err)
		}
	}

	ok, count, err := l.Allow(context.Background(), "bot-1", 2)
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if ok {
		t.Fatalf("expected the third request to be rejected")
	}
	if count != 3 {
		t.Fatalf("expected count 3, got %d", count)
	}
}

func TestAllowTracksBotsIndependently(t *testing.T) {
	l, _ := newTestLimiter(t)

	if ok, _, err := l.Allow(context.Background(), "bot-1", 1); err != nil || !ok {
		t.Fatalf("expected bot-1 first request allowed, ok=%v err=%v", ok, err)
	}
	if ok, _, err := l.Allow(context.Background(), "bot-2", 1); err != nil || !ok {
		t.Fatalf("expected bot-2's independent counter to allow its first request, ok=%v err=%v", ok, err)
	}
}

func TestAllowFailsOpenWhenRedisIsUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	l := New(client)
	mr.Close()

	ok, count, err := l.Allow(context.Background(), "bot-1", 1)
	if err != nil {
		t.Fatalf("expected fail-open to return no error, got %v", err)
	}
	if !ok {
		t.Fatalf("expected fail-open to allow the request")
	}
	if count != 0 {
		t.Fatalf("expected a zero count on fail-open, got %d", count)
	}
}

func TestRateLimitedErrorIsRateLimitedKind(t *testing.T) {
	err := RateLimitedError(30)
	if !apperr.Is(err, apperr.KindRateLimited) {
		t.Fatalf("expected KindRateLimited, got %v", err)
	}
}
