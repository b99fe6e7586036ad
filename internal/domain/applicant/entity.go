package applicant

import (
	"time"

	"internmatch/internal/domain/matching"
	"internmatch/internal/domain/recommendation"
	"internmatch/internal/domain/skill"

	"github.com/google/uuid"
)

type Applicant struct {
	ID           uuid.UUID
	HardSkills   []skill.Skill
	SoftSkills   []skill.Skill
	Introduction string
	Location     *matching.GeoPoint
	Modality     matching.Modality
	InPracticum  bool

	LastMatchedAt     *time.Time
	DailyTapCount     int
	TapCountResetDate *time.Time
	LastFilterState   *recommendation.FilterState

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TapCountCurrent reports whether the stored tap count belongs to today's
// calendar date in loc.
func (a Applicant) TapCountCurrent(now time.Time, loc *time.Location) bool {
	if a.TapCountResetDate == nil {
		return false
	}
	ry, rm, rd := a.TapCountResetDate.Date()
	ty, tm, td := Today(now, loc).Date()
	return ry == ty && rm == tm && rd == td
}

// Today is now's calendar date in loc as a UTC midnight, the form a DATE
// column round-trips in.
func Today(now time.Time, loc *time.Location) time.Time {
	y, m, d := now.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Midnight is the start of now's calendar day in loc.
func Midnight(now time.Time, loc *time.Location) time.Time {
	y, m, d := now.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
