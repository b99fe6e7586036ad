package ws

import (
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

const EventRecommendationsUpdated = "recommendations_updated"

type RecommendationsUpdatedEvent struct {
	Type        string `json:"type"`
	ApplicantID string `json:"applicant_id"`
	Count       int    `json:"count"`
	Timestamp   string `json:"timestamp"`
}

type Notifier struct {
	hub *Hub
	now func() time.Time
}

func NewNotifier(hub *Hub) *Notifier {
	return &Notifier{hub: hub, now: time.Now}
}

func (n *Notifier) RecommendationsUpdated(applicantID uuid.UUID, count int) {
	if n == nil || n.hub == nil || count == 0 {
		return
	}
	evt := RecommendationsUpdatedEvent{
		Type:        EventRecommendationsUpdated,
		ApplicantID: applicantID.String(),
		Count:       count,
		Timestamp:   n.now().UTC().Format(time.RFC3339),
	}
	b, err := json.Marshal(evt)
	if err != nil {
		return
	}
	n.hub.Broadcast(evt.ApplicantID, b)
}
