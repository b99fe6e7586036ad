package handler

import (
	"context"
	"time"

	"internmatch/internal/delivery/http/dto"
	"internmatch/internal/pkg/response"
	"internmatch/internal/usecase"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog"
)

type MatchingHandler struct {
	matching usecase.MatchingUsecase
	ranking  usecase.RankingUsecase
	timeout  time.Duration
	logger   zerolog.Logger
}

func NewMatchingHandler(matching usecase.MatchingUsecase, ranking usecase.RankingUsecase, timeout time.Duration, logger zerolog.Logger) *MatchingHandler {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &MatchingHandler{matching: matching, ranking: ranking, timeout: timeout, logger: logger}
}

func (h *MatchingHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}
	grp := r.Group("/applicants")
	grp.Post("/:id/matching", h.RunMatching)
	grp.Get("/:id/rankings", h.GetRankings)
}

// RunMatching starts a run in the background and answers 202. With ?wait=true
// it runs inline and returns the outcome.
func (h *MatchingHandler) RunMatching(c fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	if c.Query("wait") == "true" {
		res, err := h.matching.RunMatching(c.Context(), id)
		if err != nil {
			return mapUsecaseError(err)
		}
		return response.Success(c, fiber.StatusOK, response.MessageOK, dto.MatchResultResponse{ApplicantID: id, MatchResult: res})
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
		defer cancel()
		if _, err := h.matching.RunMatching(ctx, id); err != nil {
			h.logger.Warn().Err(err).Str("applicant_id", id.String()).Msg("background matching failed")
		}
	}()
	return response.Success(c, fiber.StatusAccepted, response.MessageAccepted, dto.MatchAcceptedResponse{ApplicantID: id})
}

func (h *MatchingHandler) GetRankings(c fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	ranked, err := h.ranking.RankPostingsForApplicant(c.Context(), id)
	if err != nil {
		return mapUsecaseError(err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.NewRankingResponse(ranked))
}
