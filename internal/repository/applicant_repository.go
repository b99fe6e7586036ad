package repository

import (
	"context"
	"fmt"

	"internmatch/internal/database"
	"internmatch/internal/domain/applicant"
	"internmatch/internal/domain/matching"
	"internmatch/internal/domain/recommendation"
	"internmatch/internal/domain/skill"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

type ApplicantRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (applicant.Applicant, error)
}

type PostgresApplicantRepository struct {
	db database.DB
}

func NewPostgresApplicantRepository(db database.DB) *PostgresApplicantRepository {
	return &PostgresApplicantRepository{db: db}
}

func (r *PostgresApplicantRepository) FindByID(ctx context.Context, id uuid.UUID) (applicant.Applicant, error) {
	return loadApplicant(ctx, r.db, id, false)
}

const applicantColumns = `id, introduction, latitude, longitude, preferred_modality, in_practicum,
	last_matched_at, daily_tap_count, tap_count_reset_date, last_recommendation_filter_state,
	created_at, updated_at`

// loadApplicant reads the applicant row and its skills through q. forUpdate
// takes a row lock, which serializes queue mutations per applicant.
func loadApplicant(ctx context.Context, q database.Querier, id uuid.UUID, forUpdate bool) (applicant.Applicant, error) {
	query := `SELECT ` + applicantColumns + ` FROM applicants WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var (
		a          applicant.Applicant
		lat, lng   *float64
		modality   string
		filterBlob []byte
	)
	err := q.QueryRow(ctx, query, id).Scan(
		&a.ID, &a.Introduction, &lat, &lng, &modality, &a.InPracticum,
		&a.LastMatchedAt, &a.DailyTapCount, &a.TapCountResetDate, &filterBlob,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return applicant.Applicant{}, ErrNotFound
		}
		return applicant.Applicant{}, fmt.Errorf("load applicant: %w", err)
	}

	a.Modality = matching.Modality(modality)
	a.Location = geoPoint(lat, lng)
	if len(filterBlob) > 0 {
		var f recommendation.FilterState
		if err := json.Unmarshal(filterBlob, &f); err == nil {
			a.LastFilterState = &f
		}
	}

	rows, err := q.Query(ctx,
		`SELECT s.id, s.name, s.created_at, aks.kind
		 FROM applicant_skills aks
		 JOIN skills s ON s.id = aks.skill_id
		 WHERE aks.applicant_id = $1
		 ORDER BY s.name ASC`,
		id,
	)
	if err != nil {
		return applicant.Applicant{}, fmt.Errorf("load applicant skills: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s skill.Skill
		var kind string
		if err := rows.Scan(&s.ID, &s.Name, &s.CreatedAt, &kind); err != nil {
			return applicant.Applicant{}, fmt.Errorf("scan applicant skill: %w", err)
		}
		switch skill.Kind(kind) {
		case skill.KindHard:
			a.HardSkills = append(a.HardSkills, s)
		case skill.KindSoft:
			a.SoftSkills = append(a.SoftSkills, s)
		}
	}
	if err := rows.Err(); err != nil {
		return applicant.Applicant{}, fmt.Errorf("load applicant skills: %w", err)
	}
	return a, nil
}

func geoPoint(lat, lng *float64) *matching.GeoPoint {
	if lat == nil || lng == nil {
		return nil
	}
	return &matching.GeoPoint{Lat: *lat, Lng: *lng}
}
