package usecase

import (
	"context"
	"errors"

	"internmatch/internal/domain/applicant"
	"internmatch/internal/domain/matching"
	"internmatch/internal/domain/posting"
	"internmatch/internal/repository"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type RankingUsecase interface {
	RankPostingsForApplicant(ctx context.Context, applicantID uuid.UUID) ([]matching.Ranked, error)
}

type Ranking struct {
	applicants repository.ApplicantRepository
	postings   repository.PostingRepository
	profiles   *ProfileAggregator
	workers    int
}

func NewRankingUsecase(applicants repository.ApplicantRepository, postings repository.PostingRepository, profiles *ProfileAggregator, workers int) *Ranking {
	if workers <= 0 {
		workers = 4
	}
	return &Ranking{applicants: applicants, postings: postings, profiles: profiles, workers: workers}
}

func (u *Ranking) RankPostingsForApplicant(ctx context.Context, applicantID uuid.UUID) ([]matching.Ranked, error) {
	if applicantID == uuid.Nil {
		return nil, ErrInvalidInput
	}
	a, err := u.applicants.FindByID(ctx, applicantID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrApplicantNotFound
		}
		return nil, ErrInternal
	}
	open, err := u.postings.ListOpen(ctx)
	if err != nil {
		return nil, ErrInternal
	}
	return u.rank(ctx, a, open)
}

func (u *Ranking) rank(ctx context.Context, a applicant.Applicant, open []posting.Posting) ([]matching.Ranked, error) {
	if len(open) == 0 {
		return []matching.Ranked{}, nil
	}

	seeker := matching.Seeker{
		Modality:  a.Modality,
		Location:  a.Location,
		Embedding: u.profiles.ApplicantEmbedding(ctx, a),
	}

	cands := make([]matching.Candidate, len(open))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.workers)
	for i, p := range open {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			cands[i] = matching.Candidate{
				PostingID: p.ID,
				Modality:  p.Modality,
				Location:  p.Location,
				Embedding: u.profiles.PostingEmbedding(gctx, p),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return matching.Rank(seeker, cands), nil
}
