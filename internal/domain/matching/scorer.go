package matching

import (
	"math"
	"sort"

	"github.com/google/uuid"
)

// Final score weights. They must sum to 1.
const (
	WeightSimilarity = 0.95
	WeightModality   = 0.02
	WeightDistance   = 0.03
)

type Seeker struct {
	Modality  Modality
	Location  *GeoPoint
	Embedding Vector
}

type Candidate struct {
	PostingID uuid.UUID
	Modality  Modality
	Location  *GeoPoint
	Embedding Vector
}

type Components struct {
	Similarity float64 `json:"similarity"`
	Modality   float64 `json:"modality"`
	Distance   float64 `json:"distance"`

	WeightedSimilarity float64 `json:"weighted_similarity"`
	WeightedModality   float64 `json:"weighted_modality"`
	WeightedDistance   float64 `json:"weighted_distance"`

	DistanceKm *float64 `json:"distance_km,omitempty"`
}

// Ranked is one scored posting. FinalScore and Components are rounded to 3
// decimals for presentation.
type Ranked struct {
	PostingID  uuid.UUID  `json:"posting_id"`
	FinalScore float64    `json:"final_score"`
	Components Components `json:"components"`

	StoredScore float64 `json:"-"`

	raw float64
}

// ModalityScore is 1 on an exact match, 0.5 when one side is hybrid and the
// other onsite or work from home, else 0.
func ModalityScore(seeker, posting Modality) float64 {
	if seeker == posting {
		return 1
	}
	if seeker == ModalityHybrid && (posting == ModalityOnsite || posting == ModalityWorkFromHome) {
		return 0.5
	}
	if posting == ModalityHybrid && (seeker == ModalityOnsite || seeker == ModalityWorkFromHome) {
		return 0.5
	}
	return 0
}

// DistanceScore gives full credit for work-from-home postings and whenever a
// coordinate is missing. The second return is the computed distance, if any.
func DistanceScore(seeker *GeoPoint, posting Modality, at *GeoPoint) (float64, *float64) {
	if posting == ModalityWorkFromHome || seeker == nil || at == nil {
		return 1, nil
	}
	km := DistanceKm(*seeker, *at)
	return DistanceBandScore(km), &km
}

// Rank scores every candidate against the seeker and orders them by final
// score, highest first. Equal scores keep input order.
func Rank(seeker Seeker, candidates []Candidate) []Ranked {
	out := make([]Ranked, 0, len(candidates))
	for _, c := range candidates {
		sim := Cosine(seeker.Embedding, c.Embedding)
		if sim < 0 {
			sim = 0
		}
		mod := ModalityScore(seeker.Modality, c.Modality)
		dist, km := DistanceScore(seeker.Location, c.Modality, c.Location)

		final := WeightSimilarity*sim + WeightModality*mod + WeightDistance*dist

		comp := Components{
			Similarity:         Round(sim, 3),
			Modality:           Round(mod, 3),
			Distance:           Round(dist, 3),
			WeightedSimilarity: Round(WeightSimilarity*sim, 3),
			WeightedModality:   Round(WeightModality*mod, 3),
			WeightedDistance:   Round(WeightDistance*dist, 3),
		}
		if km != nil {
			d := Round(*km, 3)
			comp.DistanceKm = &d
		}

		out = append(out, Ranked{
			PostingID:   c.PostingID,
			FinalScore:  Round(final, 3),
			StoredScore: clamp01(Round(final, 4)),
			Components:  comp,
			raw:         final,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].raw > out[j].raw
	})
	return out
}

func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
