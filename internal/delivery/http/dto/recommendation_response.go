package dto

import (
	"time"

	"internmatch/internal/domain/advertisement"
	"internmatch/internal/repository"
	"internmatch/internal/usecase"

	"github.com/google/uuid"
)

type RecommendationItem struct {
	RecommendationID   uuid.UUID `json:"recommendation_id"`
	PostingID          uuid.UUID `json:"posting_id"`
	Title              string    `json:"title"`
	CompanyName        string    `json:"company_name"`
	Modality           string    `json:"modality"`
	IsPaid             bool      `json:"is_paid"`
	IsOnlyForPracticum bool      `json:"is_only_for_practicum"`
	SimilarityScore    float64   `json:"similarity_score"`
	Status             string    `json:"status"`
	IsCurrent          bool      `json:"is_current"`
}

type RecommendationsResponse struct {
	Kind          string                       `json:"kind"`
	Current       *RecommendationItem          `json:"current,omitempty"`
	Queue         []RecommendationItem         `json:"queue,omitempty"`
	AverageScore  float64                      `json:"average_score,omitempty"`
	Advertisement *advertisement.Advertisement `json:"advertisement,omitempty"`
	TapCount      int                          `json:"tap_count"`
	TapLimit      int                          `json:"tap_limit"`
}

type TapRequest struct {
	Status string `json:"status" validate:"required,oneof=skipped submitted"`
}

type TapResponse struct {
	RecommendationID uuid.UUID  `json:"recommendation_id"`
	PostingID        uuid.UUID  `json:"posting_id"`
	Status           string     `json:"status"`
	StatusChangedAt  *time.Time `json:"status_changed_at,omitempty"`
	TapCount         int        `json:"tap_count"`
	TapLimit         int        `json:"tap_limit"`
}

type RecommendationQuery struct {
	IsPaid             string `validate:"omitempty,boolean"`
	IsOnlyForPracticum string `validate:"omitempty,boolean"`
	Modality           string `validate:"omitempty,modality"`
}

func NewRecommendationItem(it repository.QueueItem) RecommendationItem {
	return RecommendationItem{
		RecommendationID:   it.Record.ID,
		PostingID:          it.Record.PostingID,
		Title:              it.Posting.Title,
		CompanyName:        it.Posting.CompanyName,
		Modality:           string(it.Posting.Modality),
		IsPaid:             it.Posting.IsPaid,
		IsOnlyForPracticum: it.Posting.IsOnlyForPracticum,
		SimilarityScore:    it.Record.SimilarityScore,
		Status:             string(it.Record.Status),
		IsCurrent:          it.Record.IsCurrent,
	}
}

func NewRecommendationsResponse(res usecase.QueueResult) RecommendationsResponse {
	out := RecommendationsResponse{
		Kind:          string(res.Kind),
		AverageScore:  res.Average,
		Advertisement: res.Advertisement,
		TapCount:      res.TapCount,
		TapLimit:      res.TapLimit,
	}
	if res.Current != nil {
		cur := NewRecommendationItem(*res.Current)
		out.Current = &cur
	}
	if len(res.Queue) > 0 {
		out.Queue = make([]RecommendationItem, 0, len(res.Queue))
		for _, it := range res.Queue {
			out.Queue = append(out.Queue, NewRecommendationItem(it))
		}
	}
	return out
}

func NewTapResponse(res usecase.TapResult) TapResponse {
	return TapResponse{
		RecommendationID: res.Recommendation.ID,
		PostingID:        res.Recommendation.PostingID,
		Status:           string(res.Recommendation.Status),
		StatusChangedAt:  res.Recommendation.StatusChangedAt,
		TapCount:         res.TapCount,
		TapLimit:         res.TapLimit,
	}
}
