package skill

import (
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindHard Kind = "hard"
	KindSoft Kind = "soft"
)

type Skill struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
}

func Names(skills []Skill) []string {
	out := make([]string, 0, len(skills))
	for _, s := range skills {
		out = append(out, s.Name)
	}
	return out
}
