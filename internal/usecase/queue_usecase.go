package usecase

import (
	"context"
	"errors"
	"time"

	"internmatch/internal/domain/advertisement"
	"internmatch/internal/domain/applicant"
	"internmatch/internal/domain/posting"
	"internmatch/internal/domain/recommendation"
	"internmatch/internal/logging"
	"internmatch/internal/metrics"
	"internmatch/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type ResultKind string

const (
	KindRecommendations ResultKind = "recommendations"
	KindAdvertisement   ResultKind = "advertisement"
	KindLimitReached    ResultKind = "limit_reached"
	KindEmpty           ResultKind = "empty"
)

type QueueResult struct {
	Kind          ResultKind
	Current       *repository.QueueItem
	Queue         []repository.QueueItem
	Average       float64
	Advertisement *advertisement.Advertisement
	TapCount      int
	TapLimit      int
}

type TapResult struct {
	Recommendation recommendation.Record
	TapCount       int
	TapLimit       int
}

type QueueOptions struct {
	DailyTapLimit int
	AdProbability float64
	Location      *time.Location
}

type QueueUsecase interface {
	GetNextRecommendation(ctx context.Context, applicantID uuid.UUID, filter recommendation.FilterState) (QueueResult, error)
	Tap(ctx context.Context, applicantID, recommendationID uuid.UUID, status recommendation.Status) (TapResult, error)
}

type Queue struct {
	applicants repository.ApplicantRepository
	queue      repository.QueueRepository
	ads        repository.AdvertisementRepository
	matching   MatchingUsecase
	picker     *recommendation.Picker
	opts       QueueOptions
	logger     zerolog.Logger

	now func() time.Time
}

func NewQueueUsecase(
	applicants repository.ApplicantRepository,
	queue repository.QueueRepository,
	ads repository.AdvertisementRepository,
	matching MatchingUsecase,
	picker *recommendation.Picker,
	opts QueueOptions,
	logger zerolog.Logger,
) *Queue {
	if opts.DailyTapLimit <= 0 {
		opts.DailyTapLimit = 10
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if picker == nil {
		picker = recommendation.NewPicker(time.Now().UnixNano())
	}
	return &Queue{
		applicants: applicants,
		queue:      queue,
		ads:        ads,
		matching:   matching,
		picker:     picker,
		opts:       opts,
		logger:     logging.Component(logger, "queue"),
		now:        time.Now,
	}
}

// GetNextRecommendation serves the applicant's current pick and queue, an
// advertisement, or a limit signal.
func (u *Queue) GetNextRecommendation(ctx context.Context, applicantID uuid.UUID, filter recommendation.FilterState) (QueueResult, error) {
	if applicantID == uuid.Nil {
		return QueueResult{}, ErrInvalidInput
	}
	a, err := u.applicants.FindByID(ctx, applicantID)
	if err != nil {
		return QueueResult{}, mapRepoErr(err, ErrApplicantNotFound)
	}
	if !filter.IsEmpty() && !a.InPracticum {
		return QueueResult{}, ErrFilterNotAllowed
	}

	u.refresh(ctx, applicantID)

	var out QueueResult
	err = u.queue.WithinApplicantTx(ctx, applicantID, func(tx repository.QueueTx, a applicant.Applicant) error {
		now := u.now()
		count, err := u.currentTapCount(ctx, tx, a, now)
		if err != nil {
			return err
		}
		out.TapCount, out.TapLimit = count, u.opts.DailyTapLimit
		if count >= u.opts.DailyTapLimit {
			out.Kind = KindLimitReached
			return nil
		}

		if n, err := tx.ReactivateSkipped(ctx, applicant.Midnight(now, u.opts.Location), now.UTC()); err != nil {
			return err
		} else if n > 0 {
			u.logger.Debug().Str("applicant_id", applicantID.String()).Int64("reactivated", n).Msg("skipped recommendations returned to pending")
		}

		changed := filterChanged(a.LastFilterState, filter)
		if changed {
			if err := tx.SaveFilterState(ctx, filter); err != nil {
				return err
			}
		}

		if !changed {
			ad, err := u.maybeAdvertisement(ctx)
			if err != nil {
				return err
			}
			if ad != nil {
				out.Kind = KindAdvertisement
				out.Advertisement = ad
				metrics.AdsServed.Inc()
				return nil
			}
		}

		cands, err := tx.ListCandidates(ctx, filter)
		if err != nil {
			return err
		}

		current, err := tx.CurrentPick(ctx)
		if err != nil {
			return err
		}
		if current != nil && !isActionable(*current) {
			if err := tx.ClearCurrent(ctx); err != nil {
				return err
			}
			current = nil
		}

		if current != nil {
			sel := u.picker.Arrange(candidateOf(*current), candidatesOf(cands))
			fillQueue(&out, *current, sel, cands)
			return nil
		}

		sel, ok := u.picker.Select(candidatesOf(cands))
		if !ok {
			out.Kind = KindEmpty
			return nil
		}
		if err := tx.SetCurrent(ctx, sel.Current.RecommendationID); err != nil {
			return err
		}
		picked := itemByID(cands, sel.Current.RecommendationID)
		picked.Record.IsCurrent = true
		fillQueue(&out, picked, sel, cands)
		return nil
	})
	if err != nil {
		return QueueResult{}, u.internal(err, applicantID, "get next recommendation")
	}
	return out, nil
}

func (u *Queue) Tap(ctx context.Context, applicantID, recommendationID uuid.UUID, status recommendation.Status) (TapResult, error) {
	if applicantID == uuid.Nil || recommendationID == uuid.Nil || !recommendation.IsTapStatus(status) {
		return TapResult{}, ErrInvalidInput
	}

	u.refresh(ctx, applicantID)

	var out TapResult
	err := u.queue.WithinApplicantTx(ctx, applicantID, func(tx repository.QueueTx, a applicant.Applicant) error {
		now := u.now()
		count, err := u.currentTapCount(ctx, tx, a, now)
		if err != nil {
			return err
		}
		if count >= u.opts.DailyTapLimit {
			return ErrDailyLimitReached
		}

		it, err := tx.GetForUpdate(ctx, recommendationID)
		if err != nil {
			return mapRepoErr(err, ErrRecommendationNotFound)
		}
		if !isActionable(it) || !recommendation.IsTransitionAllowed(it.Record.Status, status) {
			return ErrRecommendationNotActionable
		}

		at := now.UTC()
		if err := tx.UpdateStatus(ctx, recommendationID, status, at); err != nil {
			return err
		}
		n, err := tx.IncrementTapCount(ctx)
		if err != nil {
			return err
		}
		if status == recommendation.StatusSubmitted {
			if err := tx.CreateApplication(ctx, recommendationID, it.Record.PostingID, at); err != nil {
				return err
			}
		}

		rec := it.Record
		rec.Status = status
		rec.StatusChangedAt = &at
		rec.IsCurrent = false
		out = TapResult{Recommendation: rec, TapCount: n, TapLimit: u.opts.DailyTapLimit}
		return nil
	})
	if err != nil {
		for _, known := range []error{ErrApplicantNotFound, ErrDailyLimitReached, ErrRecommendationNotFound, ErrRecommendationNotActionable} {
			if errors.Is(err, known) {
				return TapResult{}, known
			}
		}
		return TapResult{}, u.internal(err, applicantID, "tap recommendation")
	}
	metrics.Taps.WithLabelValues(string(status)).Inc()
	return out, nil
}

// refresh runs matching inline; its failures only cost freshness.
func (u *Queue) refresh(ctx context.Context, applicantID uuid.UUID) {
	if u.matching == nil {
		return
	}
	if _, err := u.matching.RunMatching(ctx, applicantID); err != nil {
		u.logger.Warn().Err(err).Str("applicant_id", applicantID.String()).Msg("inline matching failed, serving existing recommendations")
	}
}

func (u *Queue) currentTapCount(ctx context.Context, tx repository.QueueTx, a applicant.Applicant, now time.Time) (int, error) {
	if a.TapCountCurrent(now, u.opts.Location) {
		return a.DailyTapCount, nil
	}
	if err := tx.ResetTapCount(ctx, applicant.Today(now, u.opts.Location)); err != nil {
		return 0, err
	}
	return 0, nil
}

func (u *Queue) maybeAdvertisement(ctx context.Context) (*advertisement.Advertisement, error) {
	if u.ads == nil || u.opts.AdProbability <= 0 {
		return nil, nil
	}
	if u.picker.Float64() >= u.opts.AdProbability {
		return nil, nil
	}
	ads, err := u.ads.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	if len(ads) == 0 {
		return nil, nil
	}
	ad := ads[u.picker.Intn(len(ads))]
	return &ad, nil
}

func (u *Queue) internal(err error, applicantID uuid.UUID, op string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrApplicantNotFound
	}
	if errors.Is(err, repository.ErrConflict) {
		u.logger.Warn().Err(err).Str("applicant_id", applicantID.String()).Msg(op)
		return ErrQueueConflict
	}
	u.logger.Error().Err(err).Str("applicant_id", applicantID.String()).Msg(op)
	return ErrInternal
}

func mapRepoErr(err, notFound error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return notFound
	}
	return err
}

func filterChanged(last *recommendation.FilterState, incoming recommendation.FilterState) bool {
	if last == nil {
		return !incoming.IsEmpty()
	}
	return !last.Equal(incoming)
}

func isActionable(it repository.QueueItem) bool {
	return it.Record.Status == recommendation.StatusPending && it.Posting.Status == posting.StatusOpen
}

func candidateOf(it repository.QueueItem) recommendation.Candidate {
	return recommendation.Candidate{
		RecommendationID: it.Record.ID,
		PostingID:        it.Record.PostingID,
		Score:            it.Record.SimilarityScore,
	}
}

func candidatesOf(items []repository.QueueItem) []recommendation.Candidate {
	out := make([]recommendation.Candidate, len(items))
	for i, it := range items {
		out[i] = candidateOf(it)
	}
	return out
}

func itemByID(items []repository.QueueItem, id uuid.UUID) repository.QueueItem {
	for _, it := range items {
		if it.Record.ID == id {
			return it
		}
	}
	return repository.QueueItem{}
}

func fillQueue(out *QueueResult, current repository.QueueItem, sel recommendation.Selection, cands []repository.QueueItem) {
	out.Kind = KindRecommendations
	out.Current = &current
	out.Average = sel.Average
	out.Queue = make([]repository.QueueItem, 0, len(sel.Queue))
	out.Queue = append(out.Queue, current)
	for _, c := range sel.Queue[1:] {
		out.Queue = append(out.Queue, itemByID(cands, c.RecommendationID))
	}
}
