package seeder

import (
	"context"

	"internmatch/internal/database"
	"internmatch/internal/domain/matching"
	"internmatch/internal/domain/skill"

	"github.com/google/uuid"
)

var (
	DemoApplicantID = uuid.MustParse("6f1c2f4e-8a3b-4c1d-9e2f-0a1b2c3d4e5f")
	demoAdID        = uuid.MustParse("0d9e8f7a-6b5c-4d3e-8f1a-2b3c4d5e6f70")
)

type demoPosting struct {
	id         uuid.UUID
	title      string
	company    string
	hard, soft []string
	keyTasks   []string
	minQuals   []string
	benefits   []string
	lat, lng   float64
	modality   matching.Modality
	paid       bool
	practicum  bool
}

var demoPostings = []demoPosting{
	{
		id: uuid.MustParse("a1000000-0000-4000-8000-000000000001"), title: "Backend Engineering Intern", company: "Kalye Labs",
		hard: []string{"Go", "PostgreSQL", "Docker"}, soft: []string{"Teamwork"},
		keyTasks: []string{"Build REST endpoints", "Write integration tests"}, minQuals: []string{"Third-year CS student"},
		benefits: []string{"Monthly allowance"}, lat: 14.5547, lng: 121.0244, modality: matching.ModalityHybrid, paid: true,
	},
	{
		id: uuid.MustParse("a1000000-0000-4000-8000-000000000002"), title: "Data Analyst Intern", company: "Bayanihan Analytics",
		hard: []string{"Python", "SQL", "Excel"}, soft: []string{"Communication"},
		keyTasks: []string{"Clean survey datasets", "Prepare weekly dashboards"}, minQuals: []string{"Statistics coursework"},
		lat: 14.6507, lng: 121.0494, modality: matching.ModalityOnsite, practicum: true,
	},
	{
		id: uuid.MustParse("a1000000-0000-4000-8000-000000000003"), title: "Frontend Developer Intern", company: "Sampaguita Digital",
		hard: []string{"React", "TypeScript", "JavaScript"}, soft: []string{"Adaptability"},
		keyTasks: []string{"Implement UI components"}, minQuals: []string{"Portfolio of web projects"},
		benefits: []string{"Laptop provided"}, modality: matching.ModalityWorkFromHome, paid: true,
	},
	{
		id: uuid.MustParse("a1000000-0000-4000-8000-000000000004"), title: "Accounting Intern", company: "Luzon Ledger Co.",
		hard: []string{"Accounting", "Excel"}, soft: []string{"Time Management"},
		keyTasks: []string{"Reconcile invoices"}, minQuals: []string{"BS Accountancy student"},
		lat: 14.5995, lng: 120.9842, modality: matching.ModalityOnsite, practicum: true,
	},
	{
		id: uuid.MustParse("a1000000-0000-4000-8000-000000000005"), title: "Platform Engineering Intern", company: "Kalye Labs",
		hard: []string{"Kubernetes", "Docker", "Go"}, soft: []string{"Problem Solving"},
		keyTasks: []string{"Automate deployments", "Maintain CI pipelines"}, minQuals: []string{"Linux familiarity"},
		lat: 14.5547, lng: 121.0244, modality: matching.ModalityOnline, paid: true,
	},
}

type PostingsSeeder struct{}

func (PostingsSeeder) Name() string { return "postings" }

func (PostingsSeeder) Run(ctx context.Context, db database.DB) error {
	return database.WithinTx(ctx, db, func(tx database.Tx) error {
		for _, p := range demoPostings {
			var lat, lng *float64
			if p.lat != 0 || p.lng != 0 {
				lat, lng = &p.lat, &p.lng
			}
			if _, err := tx.Exec(ctx, `
INSERT INTO postings (id, title, company_name, key_tasks, min_qualifications, benefits,
	latitude, longitude, modality, is_paid, is_only_for_practicum, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 'open')
ON CONFLICT (id) DO NOTHING`,
				p.id, p.title, p.company, nonNil(p.keyTasks), nonNil(p.minQuals), nonNil(p.benefits),
				lat, lng, string(p.modality), p.paid, p.practicum,
			); err != nil {
				return err
			}
			for _, s := range p.hard {
				if err := linkSkill(ctx, tx, "posting_skills", "posting_id", p.id, s, skill.KindHard); err != nil {
					return err
				}
			}
			for _, s := range p.soft {
				if err := linkSkill(ctx, tx, "posting_skills", "posting_id", p.id, s, skill.KindSoft); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

type ApplicantSeeder struct{}

func (ApplicantSeeder) Name() string { return "applicant" }

func (ApplicantSeeder) Run(ctx context.Context, db database.DB) error {
	return database.WithinTx(ctx, db, func(tx database.Tx) error {
		if _, err := tx.Exec(ctx, `
INSERT INTO applicants (id, introduction, latitude, longitude, preferred_modality, in_practicum)
VALUES ($1, $2, $3, $4, $5, TRUE)
ON CONFLICT (id) DO NOTHING`,
			DemoApplicantID,
			"Computer science student who enjoys building backend services and tooling.",
			14.5764, 121.0851, string(matching.ModalityHybrid),
		); err != nil {
			return err
		}
		for _, s := range []string{"Go", "SQL", "Docker"} {
			if err := linkSkill(ctx, tx, "applicant_skills", "applicant_id", DemoApplicantID, s, skill.KindHard); err != nil {
				return err
			}
		}
		return linkSkill(ctx, tx, "applicant_skills", "applicant_id", DemoApplicantID, "Teamwork", skill.KindSoft)
	})
}

type AdvertisementsSeeder struct{}

func (AdvertisementsSeeder) Name() string { return "advertisements" }

func (AdvertisementsSeeder) Run(ctx context.Context, db database.DB) error {
	_, err := db.Exec(ctx, `
INSERT INTO advertisements (id, title, image_url, target_url)
VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO NOTHING`,
		demoAdID, "Campus Career Fair", "https://example.com/fair.png", "https://example.com/fair",
	)
	return err
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
