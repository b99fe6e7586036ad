package embedding

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"internmatch/internal/domain/matching"

	"github.com/rs/zerolog"
)

// fakeEncoder puts len(text) in dimension 0 and a per-text marker in
// dimension 1 so results are predictable.
type fakeEncoder struct {
	mu    sync.Mutex
	calls  [][]string
	err    error
	failOn string
	dims   int
}

func (f *fakeEncoder) Name() string { return "fake" }
func (f *fakeEncoder) Dimensions() int {
	if f.dims != 0 {
		return f.dims
	}
	return matching.Dimensions
}
func (f *fakeEncoder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, append([]string(nil), texts...))
	if f.err != nil {
		return nil, f.err
	}
	for _, t := range texts {
		if f.failOn != "" && t == f.failOn {
			return nil, errors.New("rejected input")
		}
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, matching.Dimensions)
		v[0] = float32(len(t))
		v[1] = float32(strings.Count(t, "o"))
		out[i] = v
	}
	return out, nil
}

type memCache struct {
	mu      sync.Mutex
	m       map[string]matching.Vector
	sets    int
	readErr error
}

func newMemCache() *memCache { return &memCache{m: map[string]matching.Vector{}} }

func (c *memCache) GetMany(_ context.Context, keys []string) (map[string]matching.Vector, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.readErr != nil {
		return nil, c.readErr
	}
	out := map[string]matching.Vector{}
	for _, k := range keys {
		if v, ok := c.m[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (c *memCache) SetMany(_ context.Context, entries map[string]matching.Vector, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	for k, v := range entries {
		c.m[k] = v
	}
	return nil
}

func newTestService(t *testing.T, enc Encoder, cache Cache) *Service {
	t.Helper()
	s, err := NewService(enc, cache, time.Hour, zerolog.New(io.Discard))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return s
}

func TestNewService_RejectsWrongDimensions(t *testing.T) {
	if _, err := NewService(&fakeEncoder{dims: 768}, nil, 0, zerolog.Nop()); err == nil {
		t.Fatalf("expected dimension error")
	}
	if _, err := NewService(nil, nil, 0, zerolog.Nop()); err == nil {
		t.Fatalf("expected nil encoder error")
	}
}

func TestEncode_BlankIsZeroAndUncached(t *testing.T) {
	enc := &fakeEncoder{}
	cache := newMemCache()
	s := newTestService(t, enc, cache)

	for _, in := range []string{"", "   ", "\n\t"} {
		v := s.Encode(context.Background(), in)
		if !v.IsZero() || len(v) != matching.Dimensions {
			t.Fatalf("Encode(%q) should be the zero vector", in)
		}
	}
	if len(enc.calls) != 0 || len(cache.m) != 0 {
		t.Fatalf("blank input must not reach encoder or cache")
	}
}

func TestEncode_IdempotentAndCached(t *testing.T) {
	enc := &fakeEncoder{}
	cache := newMemCache()
	s := newTestService(t, enc, cache)
	ctx := context.Background()

	a := s.Encode(ctx, "Python developer")
	b := s.Encode(ctx, "  Python   developer ")
	if a[0] != b[0] || a[1] != b[1] {
		t.Fatalf("normalized text should give identical vectors")
	}
	if len(enc.calls) != 1 {
		t.Fatalf("expected one encoder call, got %d", len(enc.calls))
	}
	if _, ok := cache.m[CacheKey("fake", "Python developer")]; !ok {
		t.Fatalf("expected cache entry under normalized key")
	}

	// A cold service computes the same value directly.
	cold := newTestService(t, &fakeEncoder{}, nil)
	c := cold.Encode(ctx, "Python developer")
	if c[0] != a[0] || c[1] != a[1] {
		t.Fatalf("cache miss must reproduce the cached value")
	}
}

func TestEncodeBatch_EncodesOnlyMissesAndMeans(t *testing.T) {
	enc := &fakeEncoder{}
	cache := newMemCache()
	s := newTestService(t, enc, cache)
	ctx := context.Background()

	_ = s.Encode(ctx, "Go")
	enc.calls = nil

	v := s.EncodeBatch(ctx, []string{"Go", " ", "Docker", "Go", "", "Kubernetes"})
	if len(enc.calls) != 1 {
		t.Fatalf("expected one batched encoder call, got %d", len(enc.calls))
	}
	if got := enc.calls[0]; len(got) != 2 || got[0] != "Docker" || got[1] != "Kubernetes" {
		t.Fatalf("unexpected misses: %v", got)
	}
	// Mean of lengths 2, 6, 2, 10.
	if v[0] != 5 {
		t.Fatalf("mean dimension 0 = %v, want 5", v[0])
	}
	if cache.sets != 2 {
		t.Fatalf("expected one bulk write per encode call, got %d", cache.sets)
	}
}

func TestEncodeBatch_EmptyIsZero(t *testing.T) {
	enc := &fakeEncoder{}
	s := newTestService(t, enc, newMemCache())
	if v := s.EncodeBatch(context.Background(), nil); !v.IsZero() {
		t.Fatalf("empty batch should be zero")
	}
	if v := s.EncodeBatch(context.Background(), []string{" ", ""}); !v.IsZero() {
		t.Fatalf("all-blank batch should be zero")
	}
	if len(enc.calls) != 0 {
		t.Fatalf("encoder should not be called")
	}
}

func TestEncode_FailureDegradesToZero(t *testing.T) {
	enc := &fakeEncoder{err: errors.New("model down")}
	cache := newMemCache()
	s := newTestService(t, enc, cache)

	if v := s.Encode(context.Background(), "Python"); !v.IsZero() {
		t.Fatalf("failed encode should be zero")
	}
	if v := s.EncodeBatch(context.Background(), []string{"Python", "Go"}); !v.IsZero() {
		t.Fatalf("failed batch should be zero")
	}
	if len(cache.m) != 0 {
		t.Fatalf("failures must not be cached")
	}
}

func TestEncodeBatch_BadTextOnlyLosesItself(t *testing.T) {
	enc := &fakeEncoder{failOn: "bad"}
	cache := newMemCache()
	s := newTestService(t, enc, cache)
	ctx := context.Background()

	_ = s.Encode(ctx, "Go")
	enc.calls = nil

	v := s.EncodeBatch(ctx, []string{"Go", "bad", "Docker"})
	// Mean of lengths 2 (cached) and 6; the failed text is left out.
	if v[0] != 4 {
		t.Fatalf("mean dimension 0 = %v, want 4", v[0])
	}
	if len(enc.calls) != 3 {
		t.Fatalf("expected the batch then one retry per miss, got %v", enc.calls)
	}
	if _, ok := cache.m[CacheKey("fake", "Docker")]; !ok {
		t.Fatalf("retried text should be cached")
	}
	if _, ok := cache.m[CacheKey("fake", "bad")]; ok {
		t.Fatalf("failed text must not be cached")
	}

	if v := s.EncodeBatch(ctx, []string{"bad"}); !v.IsZero() {
		t.Fatalf("batch with nothing encoded should be zero")
	}
}

func TestEncode_CacheReadErrorFallsBackToEncoder(t *testing.T) {
	enc := &fakeEncoder{}
	cache := newMemCache()
	cache.readErr = errors.New("redis down")
	s := newTestService(t, enc, cache)

	v := s.Encode(context.Background(), "Teamwork")
	if v[0] != float32(len("Teamwork")) {
		t.Fatalf("expected direct encode, got %v", v[0])
	}
}

func TestCacheKey(t *testing.T) {
	k := CacheKey("m", "abc")
	if !strings.HasPrefix(k, "emb:m:") || len(k) != len("emb:m:")+64 {
		t.Fatalf("unexpected key %q", k)
	}
	if CacheKey("m", "abc") == CacheKey("n", "abc") {
		t.Fatalf("model must be part of the key")
	}
}
