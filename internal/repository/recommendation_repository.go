package repository

import (
	"context"
	"fmt"
	"time"

	"internmatch/internal/database"
	"internmatch/internal/domain/recommendation"

	"github.com/google/uuid"
)

type RecommendationUpsert struct {
	PostingID uuid.UUID
	Score     float64
	Status    recommendation.Status
	At        time.Time
}

// RankingWriter is the write surface of one matching run. Every call happens
// inside the same transaction.
type RankingWriter interface {
	ExistingStatuses(ctx context.Context) (map[uuid.UUID]recommendation.Status, error)
	DeleteStale(ctx context.Context, keep []uuid.UUID) (int64, error)
	Upsert(ctx context.Context, u RecommendationUpsert) error
	TouchLastMatched(ctx context.Context, at time.Time) error
}

type RecommendationRepository interface {
	// WithinRankingTx runs fn in one transaction holding the applicant's row
	// lock. ErrNotFound is returned for an unknown applicant.
	WithinRankingTx(ctx context.Context, applicantID uuid.UUID, fn func(w RankingWriter) error) error
}

type PostgresRecommendationRepository struct {
	db database.DB
}

func NewPostgresRecommendationRepository(db database.DB) *PostgresRecommendationRepository {
	return &PostgresRecommendationRepository{db: db}
}

func (r *PostgresRecommendationRepository) WithinRankingTx(ctx context.Context, applicantID uuid.UUID, fn func(w RankingWriter) error) error {
	return database.WithinTx(ctx, r.db, func(tx database.Tx) error {
		var id uuid.UUID
		if err := tx.QueryRow(ctx, `SELECT id FROM applicants WHERE id = $1 FOR UPDATE`, applicantID).Scan(&id); err != nil {
			if isNoRows(err) {
				return ErrNotFound
			}
			return fmt.Errorf("lock applicant: %w", err)
		}
		return fn(&pgRankingWriter{tx: tx, applicantID: applicantID})
	})
}

type pgRankingWriter struct {
	tx          database.Tx
	applicantID uuid.UUID
}

func (w *pgRankingWriter) ExistingStatuses(ctx context.Context) (map[uuid.UUID]recommendation.Status, error) {
	rows, err := w.tx.Query(ctx,
		`SELECT posting_id, status FROM recommendations WHERE applicant_id = $1`,
		w.applicantID,
	)
	if err != nil {
		return nil, fmt.Errorf("list recommendation statuses: %w", err)
	}
	defer rows.Close()

	out := map[uuid.UUID]recommendation.Status{}
	for rows.Next() {
		var pid uuid.UUID
		var st string
		if err := rows.Scan(&pid, &st); err != nil {
			return nil, fmt.Errorf("scan recommendation status: %w", err)
		}
		out[pid] = recommendation.Status(st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list recommendation statuses: %w", err)
	}
	return out, nil
}

func (w *pgRankingWriter) DeleteStale(ctx context.Context, keep []uuid.UUID) (int64, error) {
	if keep == nil {
		keep = []uuid.UUID{}
	}
	n, err := w.tx.Exec(ctx,
		`DELETE FROM recommendations WHERE applicant_id = $1 AND NOT (posting_id = ANY($2))`,
		w.applicantID, keep,
	)
	if err != nil {
		return 0, fmt.Errorf("delete stale recommendations: %w", err)
	}
	return n, nil
}

func (w *pgRankingWriter) Upsert(ctx context.Context, u RecommendationUpsert) error {
	_, err := w.tx.Exec(ctx,
		`INSERT INTO recommendations (id, applicant_id, posting_id, similarity_score, status, status_changed_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (applicant_id, posting_id) DO UPDATE SET
			similarity_score = EXCLUDED.similarity_score,
			status = EXCLUDED.status,
			status_changed_at = CASE
				WHEN recommendations.status <> EXCLUDED.status THEN EXCLUDED.status_changed_at
				ELSE recommendations.status_changed_at
			END`,
		uuid.New(), w.applicantID, u.PostingID, u.Score, string(u.Status), u.At,
	)
	if err != nil {
		return fmt.Errorf("upsert recommendation: %w", err)
	}
	return nil
}

func (w *pgRankingWriter) TouchLastMatched(ctx context.Context, at time.Time) error {
	if _, err := w.tx.Exec(ctx, `UPDATE applicants SET last_matched_at = $2 WHERE id = $1`, w.applicantID, at); err != nil {
		return fmt.Errorf("touch last matched: %w", err)
	}
	return nil
}
