package repository

import (
	"context"
	"fmt"
	"time"

	"internmatch/internal/database"
	"internmatch/internal/domain/matching"
	"internmatch/internal/domain/posting"
	"internmatch/internal/domain/skill"

	"github.com/google/uuid"
)

type PostingRepository interface {
	ListOpen(ctx context.Context) ([]posting.Posting, error)
	OpenModifiedSince(ctx context.Context, since time.Time) (bool, error)
}

type PostgresPostingRepository struct {
	db database.DB
}

func NewPostgresPostingRepository(db database.DB) *PostgresPostingRepository {
	return &PostgresPostingRepository{db: db}
}

// ListOpen returns every open posting with its required skills, oldest first.
func (r *PostgresPostingRepository) ListOpen(ctx context.Context) ([]posting.Posting, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, title, company_name, key_tasks, min_qualifications, benefits,
			latitude, longitude, modality, status, is_paid, is_only_for_practicum,
			created_at, updated_at
		 FROM postings
		 WHERE status = $1
		 ORDER BY created_at ASC, id ASC`,
		string(posting.StatusOpen),
	)
	if err != nil {
		return nil, fmt.Errorf("list open postings: %w", err)
	}
	defer rows.Close()

	out := make([]posting.Posting, 0)
	index := map[uuid.UUID]int{}
	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var (
			p                posting.Posting
			lat, lng         *float64
			modality, status string
		)
		if err := rows.Scan(
			&p.ID, &p.Title, &p.CompanyName, &p.KeyTasks, &p.MinQualifications, &p.Benefits,
			&lat, &lng, &modality, &status, &p.IsPaid, &p.IsOnlyForPracticum,
			&p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan posting: %w", err)
		}
		p.Location = geoPoint(lat, lng)
		p.Modality = matching.Modality(modality)
		p.Status = posting.Status(status)
		index[p.ID] = len(out)
		ids = append(ids, p.ID)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list open postings: %w", err)
	}
	if len(ids) == 0 {
		return out, nil
	}

	srows, err := r.db.Query(ctx,
		`SELECT ps.posting_id, s.id, s.name, s.created_at, ps.kind
		 FROM posting_skills ps
		 JOIN skills s ON s.id = ps.skill_id
		 WHERE ps.posting_id = ANY($1)
		 ORDER BY s.name ASC`,
		ids,
	)
	if err != nil {
		return nil, fmt.Errorf("list posting skills: %w", err)
	}
	defer srows.Close()

	for srows.Next() {
		var pid uuid.UUID
		var s skill.Skill
		var kind string
		if err := srows.Scan(&pid, &s.ID, &s.Name, &s.CreatedAt, &kind); err != nil {
			return nil, fmt.Errorf("scan posting skill: %w", err)
		}
		i, ok := index[pid]
		if !ok {
			continue
		}
		switch skill.Kind(kind) {
		case skill.KindHard:
			out[i].RequiredHardSkills = append(out[i].RequiredHardSkills, s)
		case skill.KindSoft:
			out[i].RequiredSoftSkills = append(out[i].RequiredSoftSkills, s)
		}
	}
	if err := srows.Err(); err != nil {
		return nil, fmt.Errorf("list posting skills: %w", err)
	}
	return out, nil
}

func (r *PostgresPostingRepository) OpenModifiedSince(ctx context.Context, since time.Time) (bool, error) {
	var exists bool
	row := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM postings WHERE status = $1 AND updated_at > $2)`,
		string(posting.StatusOpen), since,
	)
	if err := row.Scan(&exists); err != nil {
		return false, fmt.Errorf("check posting freshness: %w", err)
	}
	return exists, nil
}
