package handler

import (
	"errors"

	"internmatch/internal/delivery/http/middleware"
	"internmatch/internal/pkg/response"
	"internmatch/internal/usecase"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

func mapUsecaseError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, usecase.ErrInvalidInput):
		return middleware.NewAppError(fiber.StatusBadRequest, "Invalid input", nil, err)
	case errors.Is(err, usecase.ErrApplicantNotFound):
		return middleware.NewAppError(fiber.StatusNotFound, "Applicant not found", nil, err)
	case errors.Is(err, usecase.ErrRecommendationNotFound):
		return middleware.NewAppError(fiber.StatusNotFound, "Recommendation not found", nil, err)
	case errors.Is(err, usecase.ErrFilterNotAllowed):
		return middleware.NewAppError(fiber.StatusForbidden, "Filters are only available during practicum", nil, err)
	case errors.Is(err, usecase.ErrRecommendationNotActionable):
		return middleware.NewAppError(fiber.StatusConflict, "Recommendation is no longer pending", nil, err)
	case errors.Is(err, usecase.ErrQueueConflict):
		return middleware.NewAppError(fiber.StatusConflict, "Recommendations changed, please retry", nil, err)
	case errors.Is(err, usecase.ErrDailyLimitReached):
		return middleware.NewAppError(fiber.StatusTooManyRequests, "Daily recommendation limit reached", nil, err)
	default:
		return middleware.NewAppError(fiber.StatusInternalServerError, response.MessageInternalServerError, nil, err)
	}
}

func uuidParam(c fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, middleware.NewAppError(fiber.StatusBadRequest, "Invalid "+name, nil, err)
	}
	return id, nil
}
