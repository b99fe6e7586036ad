package handler

import (
	"strconv"

	"internmatch/internal/delivery/http/dto"
	"internmatch/internal/delivery/http/middleware"
	"internmatch/internal/domain/matching"
	"internmatch/internal/domain/recommendation"
	"internmatch/internal/pkg/response"
	"internmatch/internal/usecase"
	"internmatch/internal/validation"

	"github.com/gofiber/fiber/v3"
)

type RecommendationHandler struct {
	uc usecase.QueueUsecase
}

func NewRecommendationHandler(uc usecase.QueueUsecase) *RecommendationHandler {
	return &RecommendationHandler{uc: uc}
}

func (h *RecommendationHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}
	grp := r.Group("/applicants")
	grp.Get("/:id/recommendations", h.GetRecommendations)
	grp.Post("/:id/recommendations/:rid/tap", h.Tap)
}

func (h *RecommendationHandler) GetRecommendations(c fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	q := dto.RecommendationQuery{
		IsPaid:             c.Query("is_paid"),
		IsOnlyForPracticum: c.Query("is_only_for_practicum"),
		Modality:           c.Query("modality"),
	}
	if err := validation.Struct(q); err != nil {
		return err
	}

	res, err := h.uc.GetNextRecommendation(c.Context(), id, filterFromQuery(q))
	if err != nil {
		return mapUsecaseError(err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.NewRecommendationsResponse(res))
}

func (h *RecommendationHandler) Tap(c fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	rid, err := uuidParam(c, "rid")
	if err != nil {
		return err
	}

	var req dto.TapRequest
	if err := c.Bind().Body(&req); err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, "Invalid request body", nil, err)
	}
	if err := validation.Struct(req); err != nil {
		return err
	}

	res, err := h.uc.Tap(c.Context(), id, rid, recommendation.Status(req.Status))
	if err != nil {
		return mapUsecaseError(err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.NewTapResponse(res))
}

func filterFromQuery(q dto.RecommendationQuery) recommendation.FilterState {
	var f recommendation.FilterState
	if b, err := strconv.ParseBool(q.IsPaid); err == nil {
		f.IsPaid = &b
	}
	if b, err := strconv.ParseBool(q.IsOnlyForPracticum); err == nil {
		f.IsOnlyForPracticum = &b
	}
	if m, err := matching.ParseModality(q.Modality); err == nil {
		f.Modality = &m
	}
	return f
}
