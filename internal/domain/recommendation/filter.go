package recommendation

import "internmatch/internal/domain/matching"

// FilterState is the optional narrowing an in-practicum applicant may apply
// to the queue. A nil field means "any".
type FilterState struct {
	IsPaid             *bool              `json:"is_paid,omitempty"`
	IsOnlyForPracticum *bool              `json:"is_only_for_practicum,omitempty"`
	Modality           *matching.Modality `json:"modality,omitempty"`
}

func (f FilterState) IsEmpty() bool {
	return f.IsPaid == nil && f.IsOnlyForPracticum == nil && f.Modality == nil
}

func (f FilterState) Equal(o FilterState) bool {
	return eqBool(f.IsPaid, o.IsPaid) &&
		eqBool(f.IsOnlyForPracticum, o.IsOnlyForPracticum) &&
		eqModality(f.Modality, o.Modality)
}

func eqBool(a, b *bool) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func eqModality(a, b *matching.Modality) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
