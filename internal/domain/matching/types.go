package matching

import (
	"fmt"
	"strings"
)

const Dimensions = 384

type Modality string

const (
	ModalityOnsite       Modality = "onsite"
	ModalityOnline       Modality = "online"
	ModalityHybrid       Modality = "hybrid"
	ModalityWorkFromHome Modality = "work_from_home"
)

func (m Modality) Valid() bool {
	switch m {
	case ModalityOnsite, ModalityOnline, ModalityHybrid, ModalityWorkFromHome:
		return true
	}
	return false
}

// ParseModality accepts the stored form plus a few display spellings.
func ParseModality(raw string) (Modality, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	switch s {
	case "onsite", "on_site":
		return ModalityOnsite, nil
	case "online":
		return ModalityOnline, nil
	case "hybrid":
		return ModalityHybrid, nil
	case "work_from_home", "wfh", "remote":
		return ModalityWorkFromHome, nil
	}
	return "", fmt.Errorf("unknown modality %q", raw)
}

type GeoPoint struct {
	Lat float64
	Lng float64
}
