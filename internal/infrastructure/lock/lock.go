package lock

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Locker hands out exclusive leases. TryAcquire never blocks waiting for a
// holder; it reports false when the key is taken.
type Locker interface {
	TryAcquire(ctx context.Context, key string, ttl time.Duration) (Lease, bool, error)
}

type Lease interface {
	Release(ctx context.Context) error
}

func MatchingKey(applicantID uuid.UUID) string {
	return "matching:lock:" + applicantID.String()
}
