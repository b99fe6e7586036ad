// Package embedding turns profile text into fixed-length vectors, caching
// every encoded text under a hash of its normalized form.
package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"internmatch/internal/domain/matching"
	"internmatch/internal/logging"
	"internmatch/internal/metrics"

	"github.com/rs/zerolog"
)

const DefaultTTL = time.Hour

type Encoder interface {
	Name() string
	Dimensions() int
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Cache stores vectors by key. Implementations must treat an unreachable
// backend as a miss rather than an error where they can.
type Cache interface {
	GetMany(ctx context.Context, keys []string) (map[string]matching.Vector, error)
	SetMany(ctx context.Context, entries map[string]matching.Vector, ttl time.Duration) error
}

type Service struct {
	encoder Encoder
	cache   Cache
	ttl     time.Duration
	logger  zerolog.Logger
}

func NewService(encoder Encoder, cache Cache, ttl time.Duration, logger zerolog.Logger) (*Service, error) {
	if encoder == nil {
		return nil, fmt.Errorf("nil encoder")
	}
	if encoder.Dimensions() != matching.Dimensions {
		return nil, fmt.Errorf("encoder %s produces %d dimensions, want %d", encoder.Name(), encoder.Dimensions(), matching.Dimensions)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{
		encoder: encoder,
		cache:   cache,
		ttl:     ttl,
		logger:  logging.Component(logger, "embedding"),
	}, nil
}

func (s *Service) Model() string {
	return s.encoder.Name()
}

func Normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// CacheKey is emb:<model>:<sha256 of normalized text>.
func CacheKey(model, normalized string) string {
	sum := sha256.Sum256([]byte(normalized))
	return "emb:" + model + ":" + hex.EncodeToString(sum[:])
}

// Encode returns the vector for text. Blank text and failures yield the zero
// vector.
func (s *Service) Encode(ctx context.Context, text string) matching.Vector {
	norm := Normalize(text)
	if norm == "" {
		return matching.Zero()
	}
	vs, ok := s.encodeAll(ctx, []string{norm})
	if !ok || len(vs[0]) != matching.Dimensions {
		return matching.Zero()
	}
	return vs[0]
}

// EncodeBatch encodes every non-blank text and returns the elementwise mean of
// those that encoded. Texts that fail are left out of the mean; no usable
// input yields the zero vector.
func (s *Service) EncodeBatch(ctx context.Context, texts []string) matching.Vector {
	norms := make([]string, 0, len(texts))
	for _, t := range texts {
		if n := Normalize(t); n != "" {
			norms = append(norms, n)
		}
	}
	if len(norms) == 0 {
		return matching.Zero()
	}
	vs, ok := s.encodeAll(ctx, norms)
	if !ok {
		return matching.Zero()
	}
	return matching.Mean(vs)
}

// encodeAll resolves normalized texts through the cache and encodes only the
// misses. Results keep input order; a text that could not be encoded has a nil
// vector. ok is false when nothing encoded.
func (s *Service) encodeAll(ctx context.Context, norms []string) ([]matching.Vector, bool) {
	model := s.encoder.Name()

	keys := make([]string, len(norms))
	unique := make([]string, 0, len(norms))
	seen := make(map[string]struct{}, len(norms))
	for i, n := range norms {
		keys[i] = CacheKey(model, n)
		if _, ok := seen[keys[i]]; !ok {
			seen[keys[i]] = struct{}{}
			unique = append(unique, keys[i])
		}
	}

	found := map[string]matching.Vector{}
	if s.cache != nil {
		got, err := s.cache.GetMany(ctx, unique)
		if err != nil {
			s.logger.Debug().Err(err).Int("keys", len(unique)).Msg("embedding cache read failed, encoding directly")
		} else {
			for k, v := range got {
				if len(v) == matching.Dimensions {
					found[k] = v
				}
			}
		}
	}

	var missTexts, missKeys []string
	queued := make(map[string]struct{})
	for i, k := range keys {
		if _, ok := found[k]; ok {
			continue
		}
		if _, ok := queued[k]; ok {
			continue
		}
		queued[k] = struct{}{}
		missTexts = append(missTexts, norms[i])
		missKeys = append(missKeys, k)
	}
	metrics.RecordCacheLookup(len(unique)-len(missKeys), len(missKeys))

	if len(missTexts) > 0 {
		fresh := s.embedMisses(ctx, missTexts, missKeys)
		for k, v := range fresh {
			found[k] = v
		}
		if s.cache != nil && len(fresh) > 0 {
			if err := s.cache.SetMany(ctx, fresh, s.ttl); err != nil {
				s.logger.Warn().Err(err).Int("entries", len(fresh)).Msg("embedding cache write failed")
			}
		}
	}

	out := make([]matching.Vector, len(keys))
	ok := false
	for i, k := range keys {
		if v, hit := found[k]; hit {
			out[i] = v
			ok = true
		}
	}
	return out, ok
}

// embedMisses encodes texts in one call. When the call fails for more than
// one text, each text is retried alone so one bad entry only loses itself.
func (s *Service) embedMisses(ctx context.Context, texts, keys []string) map[string]matching.Vector {
	vecs, err := s.embed(ctx, texts)
	if err == nil {
		fresh := make(map[string]matching.Vector, len(vecs))
		for i, v := range vecs {
			fresh[keys[i]] = v
		}
		return fresh
	}
	if len(texts) == 1 || ctx.Err() != nil {
		s.warnEncodeFailed(err, texts)
		return nil
	}

	fresh := make(map[string]matching.Vector, len(texts))
	for i, t := range texts {
		v, err := s.embed(ctx, []string{t})
		if err != nil {
			s.warnEncodeFailed(err, []string{t})
			continue
		}
		fresh[keys[i]] = v[0]
	}
	return fresh
}

func (s *Service) warnEncodeFailed(err error, texts []string) {
	s.logger.Warn().
		Err(err).
		Str("encoder", s.encoder.Name()).
		Int("texts", len(texts)).
		Str("sample", logging.TruncateForLog(texts[0], 80)).
		Msg("encode failed, using zero vector")
}

func (s *Service) embed(ctx context.Context, texts []string) (vecs []matching.Vector, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordEncoderBatch(s.encoder.Name(), time.Since(start), err)
	}()

	raw, err := s.encoder.Embed(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(raw) != len(texts) {
		return nil, fmt.Errorf("encoder returned %d vectors for %d texts", len(raw), len(texts))
	}
	vecs = make([]matching.Vector, len(raw))
	for i, v := range raw {
		if len(v) != matching.Dimensions {
			return nil, fmt.Errorf("encoder returned %d dimensions at index %d", len(v), i)
		}
		vecs[i] = matching.Vector(v)
	}
	return vecs, nil
}
