package usecase

import (
	"context"

	"internmatch/internal/domain/applicant"
	"internmatch/internal/domain/matching"
	"internmatch/internal/domain/posting"
	"internmatch/internal/domain/skill"
	"internmatch/internal/logging"

	"github.com/rs/zerolog"
)

// Composite weights over profile sub-fields. Each set sums to 1.
var (
	// hard skills, soft skills, introduction
	ApplicantWeights = []float64{0.50, 0.25, 0.25}
	// hard skills, soft skills, minimum qualifications, key tasks
	PostingWeights = []float64{0.50, 0.10, 0.20, 0.20}
)

type TextEncoder interface {
	Encode(ctx context.Context, text string) matching.Vector
	EncodeBatch(ctx context.Context, texts []string) matching.Vector
}

type ProfileAggregator struct {
	enc    TextEncoder
	logger zerolog.Logger
}

func NewProfileAggregator(enc TextEncoder, logger zerolog.Logger) *ProfileAggregator {
	return &ProfileAggregator{enc: enc, logger: logging.Component(logger, "aggregator")}
}

func (g *ProfileAggregator) ApplicantEmbedding(ctx context.Context, a applicant.Applicant) matching.Vector {
	v := matching.WeightedSum([]matching.Vector{
		g.enc.EncodeBatch(ctx, skill.Names(a.HardSkills)),
		g.enc.EncodeBatch(ctx, skill.Names(a.SoftSkills)),
		g.enc.Encode(ctx, a.Introduction),
	}, ApplicantWeights)
	if v.IsZero() {
		g.logger.Warn().Str("applicant_id", a.ID.String()).Msg("applicant profile produced a zero embedding")
	}
	return v
}

func (g *ProfileAggregator) PostingEmbedding(ctx context.Context, p posting.Posting) matching.Vector {
	v := matching.WeightedSum([]matching.Vector{
		g.enc.EncodeBatch(ctx, skill.Names(p.RequiredHardSkills)),
		g.enc.EncodeBatch(ctx, skill.Names(p.RequiredSoftSkills)),
		g.enc.EncodeBatch(ctx, p.MinQualifications),
		g.enc.EncodeBatch(ctx, p.KeyTasks),
	}, PostingWeights)
	if v.IsZero() {
		g.logger.Debug().Str("posting_id", p.ID.String()).Msg("posting profile produced a zero embedding")
	}
	return v
}
