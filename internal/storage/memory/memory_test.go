package memory

import (
	"context"
	"errors"
	"testing"

	"flowfunds/internal/storage"
)

func TestMemoryStoreGetSetDelete(t *testing.T) {
	ctx := context.Background()
	s := New()

	if _, found, err := s.Get(ctx, "k"); found || err != nil {
		t.Fatalf("expected missing key, found=%v err=%v", found, err)
	}

	buf := []byte(`[1]`)
	if err := s.Set(ctx, "k", buf); err != nil {
		t.Fatalf("set: %v", err)
	}
	buf[0] = 'x'
	v, found, err := s.Get(ctx, "k")
	if err != nil || !found || string(v) != "[1]" {
		t.Fatalf("unexpected get: v=%q found=%v err=%v", v, found, err)
	}

	if err := s.Delete(ctx, "k", "missing"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(s.Keys()) != 0 {
		t.Fatalf("expected empty store, got %v", s.Keys())
	}
}

func TestMemoryStoreFailuresAndClose(t *testing.T) {
	ctx := context.Background()
	s := NewSeeded(map[string][]byte{"a": []byte("1")})

	boom := errors.New("disk full")
	s.FailWrites(boom)
	if err := s.Set(ctx, "a", []byte("2")); !errors.Is(err, boom) {
		t.Fatalf("expected injected error, got %v", err)
	}
	if v, _, _ := s.Get(ctx, "a"); string(v) != "1" {
		t.Fatalf("failed write must not change value, got %q", v)
	}
	s.FailWrites(nil)

	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, _, err := s.Get(ctx, "a"); !errors.Is(err, storage.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}
