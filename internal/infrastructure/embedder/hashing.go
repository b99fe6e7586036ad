package embedder

import (
	"context"
	"math"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

const (
	unigramWeight = 1.0
	bigramWeight  = 0.5
	trigramWeight = 0.25
)

// Hashing is a deterministic local encoder. It hashes word unigrams, word
// bigrams and character trigrams into signed buckets and L2-normalizes the
// result, so texts sharing vocabulary score high under cosine similarity.
type Hashing struct {
	dims int
}

func NewHashing(dims int) *Hashing {
	return &Hashing{dims: dims}
}

func (h *Hashing) Name() string { return "hashing-v1" }

func (h *Hashing) Dimensions() int { return h.dims }

func (h *Hashing) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = h.vector(t)
	}
	return out, nil
}

func (h *Hashing) vector(text string) []float32 {
	acc := make([]float64, h.dims)
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '+' && r != '#'
	})

	for i, tok := range tokens {
		h.add(acc, "w:"+tok, unigramWeight)
		if i > 0 {
			h.add(acc, "b:"+tokens[i-1]+" "+tok, bigramWeight)
		}
		padded := []rune(" " + tok + " ")
		for j := 0; j+3 <= len(padded); j++ {
			h.add(acc, "c:"+string(padded[j:j+3]), trigramWeight)
		}
	}

	var norm float64
	for _, x := range acc {
		norm += x * x
	}
	out := make([]float32, h.dims)
	if norm == 0 {
		return out
	}
	norm = math.Sqrt(norm)
	for i, x := range acc {
		out[i] = float32(x / norm)
	}
	return out
}

func (h *Hashing) add(acc []float64, feature string, w float64) {
	sum := xxhash.Sum64String(feature)
	idx := int(sum % uint64(h.dims))
	if sum>>63 == 1 {
		w = -w
	}
	acc[idx] += w
}
