package objectstore

import (
	"bytes"
	"context"
	"testing"
)

func TestKeyBuildsConventionalPath(t *testing.T) {
	got := Key("bot-1", "src-1", "manual.pdf")
	want := "bots/bot-1/sources/src-1/manual.pdf"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestMemoryStorePutGetRoundtrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	data := []byte("hello world")
	if err := store.Put(ctx, "k1", bytes.NewReader(data), int64(len(data)), "text/plain"); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := store.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("expected %q, got %q", data, got)
	}
}

func TestMemoryStoreGetMissingKeyErrors(t *testing.T) {
	store := NewMemoryStore()
	if _, err := store.Get(context.Background(), "missing"); err == nil {
		t.Fatalf("expected an error for a missing key")
	}
}

func TestMemoryStoreDeleteRemovesObject(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	data := []byte("to be deleted")
	if err := store.Put(ctx, "k1", bytes.NewReader(data), int64(len(data)), "text/plain"); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.Delete(ctx, "k1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, "k1"); err == nil {
		t.Fatalf("expected the deleted key to be gone")
	}
}

func TestMemoryStoreGetReturnsACopy(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	data := []byte("original")
	if err := store.Put(ctx, "k1", bytes.NewReader(data), int64(len(data)), "text/plain"); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := store.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	got[0] = 'X'

	again, err := store.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(again) != "original" {
		t.Fatalf("expected the stored copy to be unaffected by caller mutation, got %q", again)
	}
}
