package seeder

import (
	"context"

	"internmatch/internal/database"
	"internmatch/internal/domain/skill"

	"github.com/google/uuid"
)

var hardSkills = []string{
	"Go", "Python", "JavaScript", "TypeScript", "SQL", "PostgreSQL", "Redis",
	"Docker", "Kubernetes", "React", "Figma", "Excel", "Accounting", "SEO",
}

var softSkills = []string{
	"Communication", "Teamwork", "Problem Solving", "Time Management", "Adaptability",
}

type SkillsSeeder struct{}

func (SkillsSeeder) Name() string { return "skills" }

func (SkillsSeeder) Run(ctx context.Context, db database.DB) error {
	return database.WithinTx(ctx, db, func(tx database.Tx) error {
		for _, group := range [][]string{hardSkills, softSkills} {
			for _, name := range group {
				if _, err := tx.Exec(ctx,
					`INSERT INTO skills (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`,
					name,
				); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func linkSkill(ctx context.Context, tx database.Tx, table, owner string, ownerID uuid.UUID, name string, kind skill.Kind) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO `+table+` (`+owner+`, skill_id, kind)
		 SELECT $1, id, $3 FROM skills WHERE name = $2
		 ON CONFLICT DO NOTHING`,
		ownerID, name, string(kind),
	)
	return err
}
