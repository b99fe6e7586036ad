package usecase

import "errors"

var (
	ErrInvalidInput                = errors.New("invalid input")
	ErrApplicantNotFound           = errors.New("applicant not found")
	ErrFilterNotAllowed            = errors.New("recommendation filters are only available to applicants in practicum")
	ErrRecommendationNotFound      = errors.New("recommendation not found")
	ErrRecommendationNotActionable = errors.New("recommendation is no longer pending on an open posting")
	ErrDailyLimitReached           = errors.New("daily recommendation limit reached")
	ErrQueueConflict               = errors.New("recommendation queue changed concurrently")
	ErrInternal                    = errors.New("internal error")
)
