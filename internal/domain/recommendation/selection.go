package recommendation

import (
	"math/rand"
	"sync"

	"github.com/google/uuid"
)

type Candidate struct {
	RecommendationID uuid.UUID
	PostingID        uuid.UUID
	Score            float64
}

type Selection struct {
	Current Candidate
	Average float64

	Queue []Candidate
}

type Picker struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewPicker(seed int64) *Picker {
	return &Picker{rng: rand.New(rand.NewSource(seed))} //nolint:gosec // queue shuffling, not security
}

func (p *Picker) Float64() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng.Float64()
}

func (p *Picker) Intn(n int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng.Intn(n)
}

// Select picks a uniformly random current candidate and queues it ahead of
// the rest. It reports false when there are no candidates.
func (p *Picker) Select(cands []Candidate) (Selection, bool) {
	if len(cands) == 0 {
		return Selection{}, false
	}
	current := cands[p.Intn(len(cands))]
	return p.Arrange(current, cands), true
}

// Arrange builds the queue for a known current pick: current first, then
// every other candidate scoring at least the average over cands, each once,
// in a uniformly random order.
func (p *Picker) Arrange(current Candidate, cands []Candidate) Selection {
	var avg float64
	if len(cands) > 0 {
		var sum float64
		for _, c := range cands {
			sum += c.Score
		}
		avg = sum / float64(len(cands))
	}

	seen := map[uuid.UUID]struct{}{current.RecommendationID: {}}
	rest := make([]Candidate, 0, len(cands))
	for _, c := range cands {
		if c.Score < avg {
			continue
		}
		if _, dup := seen[c.RecommendationID]; dup {
			continue
		}
		seen[c.RecommendationID] = struct{}{}
		rest = append(rest, c)
	}

	p.mu.Lock()
	for i := len(rest) - 1; i > 0; i-- {
		j := p.rng.Intn(i + 1)
		rest[i], rest[j] = rest[j], rest[i]
	}
	p.mu.Unlock()

	queue := make([]Candidate, 0, len(rest)+1)
	queue = append(queue, current)
	queue = append(queue, rest...)
	return Selection{Current: current, Average: avg, Queue: queue}
}
