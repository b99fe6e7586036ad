package posting

import (
	"time"

	"internmatch/internal/domain/matching"
	"internmatch/internal/domain/skill"

	"github.com/google/uuid"
)

type Status string

const (
	StatusOpen    Status = "open"
	StatusClosed  Status = "closed"
	StatusExpired Status = "expired"
	StatusDeleted Status = "deleted"
)

type Posting struct {
	ID                 uuid.UUID
	Title              string
	CompanyName        string
	RequiredHardSkills []skill.Skill
	RequiredSoftSkills []skill.Skill
	KeyTasks           []string
	MinQualifications  []string
	Benefits           []string
	Location           *matching.GeoPoint
	Modality           matching.Modality
	Status             Status
	IsPaid             bool
	IsOnlyForPracticum bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (p Posting) IsOpen() bool {
	return p.Status == StatusOpen
}
