package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"internmatch/internal/domain/applicant"
	"internmatch/internal/domain/recommendation"
	"internmatch/internal/infrastructure/lock"
	"internmatch/internal/logging"
	"internmatch/internal/metrics"
	"internmatch/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const defaultLockTTL = 5 * time.Minute

type MatchResult struct {
	Outcome string `json:"outcome"`
	Written int    `json:"written"`
	Removed int64  `json:"removed"`
}

type MatchingUsecase interface {
	RunMatching(ctx context.Context, applicantID uuid.UUID) (MatchResult, error)
}

type RecommendationsNotifier interface {
	RecommendationsUpdated(applicantID uuid.UUID, count int)
}

type Matching struct {
	applicants      repository.ApplicantRepository
	postings        repository.PostingRepository
	recommendations repository.RecommendationRepository
	ranking         *Ranking
	locker          lock.Locker
	lockTTL         time.Duration
	notifier        RecommendationsNotifier
	logger          zerolog.Logger

	now func() time.Time
}

func NewMatchingUsecase(
	applicants repository.ApplicantRepository,
	postings repository.PostingRepository,
	recommendations repository.RecommendationRepository,
	ranking *Ranking,
	locker lock.Locker,
	lockTTL time.Duration,
	notifier RecommendationsNotifier,
	logger zerolog.Logger,
) *Matching {
	if lockTTL <= 0 {
		lockTTL = defaultLockTTL
	}
	return &Matching{
		applicants:      applicants,
		postings:        postings,
		recommendations: recommendations,
		ranking:         ranking,
		locker:          locker,
		lockTTL:         lockTTL,
		notifier:        notifier,
		logger:          logging.Component(logger, "matching"),
		now:             time.Now,
	}
}

// RunMatching refreshes the applicant's recommendation records when they are
// stale. A run already in progress for the applicant makes this a no-op.
func (u *Matching) RunMatching(ctx context.Context, applicantID uuid.UUID) (res MatchResult, err error) {
	if applicantID == uuid.Nil {
		return MatchResult{}, ErrInvalidInput
	}
	log := u.logger.With().Str("applicant_id", applicantID.String()).Logger()

	lease, ok, err := u.locker.TryAcquire(ctx, lock.MatchingKey(applicantID), u.lockTTL)
	if err != nil {
		log.Error().Err(err).Msg("matching lease unavailable")
		metrics.RecordMatchingRun(metrics.OutcomeFailed, 0)
		return MatchResult{Outcome: metrics.OutcomeFailed}, ErrInternal
	}
	if !ok {
		log.Debug().Msg("matching already in progress, skipping")
		metrics.RecordMatchingRun(metrics.OutcomeSkippedLocked, 0)
		return MatchResult{Outcome: metrics.OutcomeSkippedLocked}, nil
	}
	defer func() {
		relCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if rerr := lease.Release(relCtx); rerr != nil {
			log.Warn().Err(rerr).Msg("release matching lease")
		}
	}()

	startedAt := u.now().UTC()
	defer func() {
		metrics.RecordMatchingRun(res.Outcome, time.Since(startedAt))
	}()

	a, err := u.applicants.FindByID(ctx, applicantID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return MatchResult{Outcome: metrics.OutcomeFailed}, ErrApplicantNotFound
		}
		log.Error().Err(err).Msg("load applicant")
		return MatchResult{Outcome: metrics.OutcomeFailed}, ErrInternal
	}

	stale, err := u.isStale(ctx, a)
	if err != nil {
		log.Error().Err(err).Msg("staleness check failed")
		return MatchResult{Outcome: metrics.OutcomeFailed}, ErrInternal
	}
	if !stale {
		return MatchResult{Outcome: metrics.OutcomeSkippedFresh}, nil
	}

	res, err = u.run(ctx, a, startedAt)
	if err != nil {
		log.Error().Err(err).Msg("matching run failed, previous recommendations kept")
		return MatchResult{Outcome: metrics.OutcomeFailed}, ErrInternal
	}

	log.Info().
		Int("written", res.Written).
		Int64("removed", res.Removed).
		Dur("took", time.Since(startedAt)).
		Msg("matching completed")
	if u.notifier != nil {
		u.notifier.RecommendationsUpdated(applicantID, res.Written)
	}
	return res, nil
}

func (u *Matching) isStale(ctx context.Context, a applicant.Applicant) (bool, error) {
	if a.LastMatchedAt == nil {
		return true, nil
	}
	last := *a.LastMatchedAt
	if a.UpdatedAt.After(last) {
		return true, nil
	}
	return u.postings.OpenModifiedSince(ctx, last)
}

// run scores every open posting and rewrites the records in one transaction.
// startedAt becomes the match timestamp so postings edited mid-run trigger
// the next one.
func (u *Matching) run(ctx context.Context, a applicant.Applicant, startedAt time.Time) (MatchResult, error) {
	open, err := u.postings.ListOpen(ctx)
	if err != nil {
		return MatchResult{}, err
	}
	ranked, err := u.ranking.rank(ctx, a, open)
	if err != nil {
		return MatchResult{}, fmt.Errorf("rank postings: %w", err)
	}

	res := MatchResult{Outcome: metrics.OutcomeCompleted}
	err = u.recommendations.WithinRankingTx(ctx, a.ID, func(w repository.RankingWriter) error {
		if err := w.TouchLastMatched(ctx, startedAt); err != nil {
			return err
		}
		existing, err := w.ExistingStatuses(ctx)
		if err != nil {
			return err
		}

		keep := make([]uuid.UUID, 0, len(ranked))
		for _, r := range ranked {
			keep = append(keep, r.PostingID)
		}
		removed, err := w.DeleteStale(ctx, keep)
		if err != nil {
			return err
		}
		res.Removed = removed

		for _, r := range ranked {
			var prev *recommendation.Status
			if st, ok := existing[r.PostingID]; ok {
				prev = &st
			}
			if err := w.Upsert(ctx, repository.RecommendationUpsert{
				PostingID: r.PostingID,
				Score:     r.StoredScore,
				Status:    recommendation.StatusAfterRematch(prev),
				At:        startedAt,
			}); err != nil {
				return err
			}
			res.Written++
		}
		return nil
	})
	if err != nil {
		return MatchResult{}, err
	}
	return res, nil
}
