package repository

import (
	"context"
	"fmt"
	"time"

	"internmatch/internal/database"
	"internmatch/internal/domain/applicant"
	"internmatch/internal/domain/matching"
	"internmatch/internal/domain/posting"
	"internmatch/internal/domain/recommendation"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

type PostingSummary struct {
	ID                 uuid.UUID
	Title              string
	CompanyName        string
	Modality           matching.Modality
	Status             posting.Status
	IsPaid             bool
	IsOnlyForPracticum bool
}

type QueueItem struct {
	Record  recommendation.Record
	Posting PostingSummary
}

// QueueTx mutates one applicant's queue state. All calls share the
// transaction opened by WithinApplicantTx and the applicant row lock it holds.
type QueueTx interface {
	ResetTapCount(ctx context.Context, day time.Time) error
	IncrementTapCount(ctx context.Context) (int, error)
	SaveFilterState(ctx context.Context, f recommendation.FilterState) error

	// ReactivateSkipped moves skipped records last changed before cutoff back
	// to pending, stamping them with now.
	ReactivateSkipped(ctx context.Context, cutoff, now time.Time) (int64, error)

	CurrentPick(ctx context.Context) (*QueueItem, error)
	ClearCurrent(ctx context.Context) error
	SetCurrent(ctx context.Context, recommendationID uuid.UUID) error
	// ListCandidates returns pending records on open postings matching f,
	// best score first.
	ListCandidates(ctx context.Context, f recommendation.FilterState) ([]QueueItem, error)

	GetForUpdate(ctx context.Context, recommendationID uuid.UUID) (QueueItem, error)
	UpdateStatus(ctx context.Context, recommendationID uuid.UUID, st recommendation.Status, at time.Time) error
	CreateApplication(ctx context.Context, recommendationID, postingID uuid.UUID, at time.Time) error
}

type QueueRepository interface {
	// WithinApplicantTx locks the applicant row and runs fn with the locked
	// snapshot. ErrNotFound is returned for an unknown applicant.
	WithinApplicantTx(ctx context.Context, applicantID uuid.UUID, fn func(tx QueueTx, a applicant.Applicant) error) error
}

type PostgresQueueRepository struct {
	db database.DB
}

func NewPostgresQueueRepository(db database.DB) *PostgresQueueRepository {
	return &PostgresQueueRepository{db: db}
}

func (r *PostgresQueueRepository) WithinApplicantTx(ctx context.Context, applicantID uuid.UUID, fn func(tx QueueTx, a applicant.Applicant) error) error {
	return database.WithinTx(ctx, r.db, func(tx database.Tx) error {
		a, err := loadApplicant(ctx, tx, applicantID, true)
		if err != nil {
			return err
		}
		return fn(&pgQueueTx{tx: tx, applicantID: applicantID}, a)
	})
}

type pgQueueTx struct {
	tx          database.Tx
	applicantID uuid.UUID
}

const queueItemSelect = `SELECT r.id, r.applicant_id, r.posting_id, r.similarity_score, r.status, r.is_current,
	r.status_changed_at, r.created_at,
	p.id, p.title, p.company_name, p.modality, p.status, p.is_paid, p.is_only_for_practicum
 FROM recommendations r
 JOIN postings p ON p.id = r.posting_id`

func scanQueueItem(row database.Row) (QueueItem, error) {
	var (
		it                      QueueItem
		recStatus, mod, pStatus string
	)
	err := row.Scan(
		&it.Record.ID, &it.Record.ApplicantID, &it.Record.PostingID, &it.Record.SimilarityScore,
		&recStatus, &it.Record.IsCurrent, &it.Record.StatusChangedAt, &it.Record.CreatedAt,
		&it.Posting.ID, &it.Posting.Title, &it.Posting.CompanyName, &mod, &pStatus,
		&it.Posting.IsPaid, &it.Posting.IsOnlyForPracticum,
	)
	if err != nil {
		return QueueItem{}, err
	}
	it.Record.Status = recommendation.Status(recStatus)
	it.Posting.Modality = matching.Modality(mod)
	it.Posting.Status = posting.Status(pStatus)
	return it, nil
}

func (q *pgQueueTx) ResetTapCount(ctx context.Context, day time.Time) error {
	_, err := q.tx.Exec(ctx,
		`UPDATE applicants SET daily_tap_count = 0, tap_count_reset_date = $2 WHERE id = $1`,
		q.applicantID, day,
	)
	if err != nil {
		return fmt.Errorf("reset tap count: %w", err)
	}
	return nil
}

func (q *pgQueueTx) IncrementTapCount(ctx context.Context) (int, error) {
	var n int
	err := q.tx.QueryRow(ctx,
		`UPDATE applicants SET daily_tap_count = daily_tap_count + 1 WHERE id = $1 RETURNING daily_tap_count`,
		q.applicantID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("increment tap count: %w", err)
	}
	return n, nil
}

func (q *pgQueueTx) SaveFilterState(ctx context.Context, f recommendation.FilterState) error {
	b, err := json.Marshal(f)
	if err != nil {
		return err
	}
	if _, err := q.tx.Exec(ctx,
		`UPDATE applicants SET last_recommendation_filter_state = $2 WHERE id = $1`,
		q.applicantID, b,
	); err != nil {
		return fmt.Errorf("save filter state: %w", err)
	}
	return nil
}

func (q *pgQueueTx) ReactivateSkipped(ctx context.Context, cutoff, now time.Time) (int64, error) {
	n, err := q.tx.Exec(ctx,
		`UPDATE recommendations
		 SET status = $2, status_changed_at = $4
		 WHERE applicant_id = $1 AND status = $3
		   AND (status_changed_at IS NULL OR status_changed_at < $5)`,
		q.applicantID, string(recommendation.StatusPending), string(recommendation.StatusSkipped), now, cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("reactivate skipped: %w", err)
	}
	return n, nil
}

func (q *pgQueueTx) CurrentPick(ctx context.Context) (*QueueItem, error) {
	it, err := scanQueueItem(q.tx.QueryRow(ctx,
		queueItemSelect+` WHERE r.applicant_id = $1 AND r.is_current`,
		q.applicantID,
	))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("load current pick: %w", err)
	}
	return &it, nil
}

func (q *pgQueueTx) ClearCurrent(ctx context.Context) error {
	if _, err := q.tx.Exec(ctx,
		`UPDATE recommendations SET is_current = FALSE WHERE applicant_id = $1 AND is_current`,
		q.applicantID,
	); err != nil {
		return fmt.Errorf("clear current pick: %w", err)
	}
	return nil
}

// SetCurrent clears any prior pick first so the partial unique index on
// is_current never sees two rows. A violation still surfacing means another
// writer set a pick and is reported as ErrConflict.
func (q *pgQueueTx) SetCurrent(ctx context.Context, recommendationID uuid.UUID) error {
	if err := q.ClearCurrent(ctx); err != nil {
		return err
	}
	n, err := q.tx.Exec(ctx,
		`UPDATE recommendations SET is_current = TRUE WHERE id = $1 AND applicant_id = $2`,
		recommendationID, q.applicantID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("set current pick: %w", ErrConflict)
		}
		return fmt.Errorf("set current pick: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (q *pgQueueTx) ListCandidates(ctx context.Context, f recommendation.FilterState) ([]QueueItem, error) {
	var modality *string
	if f.Modality != nil {
		m := string(*f.Modality)
		modality = &m
	}
	rows, err := q.tx.Query(ctx,
		queueItemSelect+`
		 WHERE r.applicant_id = $1 AND r.status = $2 AND p.status = $3
		   AND ($4::boolean IS NULL OR p.is_paid = $4)
		   AND ($5::boolean IS NULL OR p.is_only_for_practicum = $5)
		   AND ($6::text IS NULL OR p.modality = $6)
		 ORDER BY r.similarity_score DESC, r.id ASC`,
		q.applicantID, string(recommendation.StatusPending), string(posting.StatusOpen),
		f.IsPaid, f.IsOnlyForPracticum, modality,
	)
	if err != nil {
		return nil, fmt.Errorf("list queue candidates: %w", err)
	}
	defer rows.Close()

	out := make([]QueueItem, 0)
	for rows.Next() {
		it, err := scanQueueItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan queue candidate: %w", err)
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list queue candidates: %w", err)
	}
	return out, nil
}

func (q *pgQueueTx) GetForUpdate(ctx context.Context, recommendationID uuid.UUID) (QueueItem, error) {
	it, err := scanQueueItem(q.tx.QueryRow(ctx,
		queueItemSelect+` WHERE r.id = $1 AND r.applicant_id = $2 FOR UPDATE OF r`,
		recommendationID, q.applicantID,
	))
	if err != nil {
		if isNoRows(err) {
			return QueueItem{}, ErrNotFound
		}
		return QueueItem{}, fmt.Errorf("load recommendation: %w", err)
	}
	return it, nil
}

func (q *pgQueueTx) UpdateStatus(ctx context.Context, recommendationID uuid.UUID, st recommendation.Status, at time.Time) error {
	n, err := q.tx.Exec(ctx,
		`UPDATE recommendations
		 SET status = $3, status_changed_at = $4, is_current = FALSE
		 WHERE id = $1 AND applicant_id = $2`,
		recommendationID, q.applicantID, string(st), at,
	)
	if err != nil {
		return fmt.Errorf("update recommendation status: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (q *pgQueueTx) CreateApplication(ctx context.Context, recommendationID, postingID uuid.UUID, at time.Time) error {
	if _, err := q.tx.Exec(ctx,
		`INSERT INTO applications (id, applicant_id, posting_id, recommendation_id, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (applicant_id, posting_id) DO NOTHING`,
		uuid.New(), q.applicantID, postingID, recommendationID, at,
	); err != nil {
		return fmt.Errorf("create application: %w", err)
	}
	return nil
}
