package dto

import (
	"internmatch/internal/domain/matching"
	"internmatch/internal/usecase"

	"github.com/google/uuid"
)

type RankedPostingResponse struct {
	Rank       int                 `json:"rank"`
	PostingID  uuid.UUID           `json:"posting_id"`
	FinalScore float64             `json:"final_score"`
	Components matching.Components `json:"components"`
}

type MatchAcceptedResponse struct {
	ApplicantID uuid.UUID `json:"applicant_id"`
}

type MatchResultResponse struct {
	ApplicantID uuid.UUID `json:"applicant_id"`
	usecase.MatchResult
}

func NewRankingResponse(ranked []matching.Ranked) []RankedPostingResponse {
	out := make([]RankedPostingResponse, 0, len(ranked))
	for i, r := range ranked {
		out = append(out, RankedPostingResponse{
			Rank:       i + 1,
			PostingID:  r.PostingID,
			FinalScore: r.FinalScore,
			Components: r.Components,
		})
	}
	return out
}
