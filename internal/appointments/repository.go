package appointments

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ListLimit caps how many appointments a read returns.
const ListLimit = 100

// Repository defines appointment storage. Insert assigns ID and CreatedAt.
type Repository interface {
	Insert(ctx context.Context, appt *Appointment) (*Appointment, error)
	List(ctx context.Context, ownerIdentity string, limit int) ([]Appointment, error)
}

// InMemoryRepository keeps appointments in process memory. CreatedAt is
// strictly increasing so ordering is stable.
type InMemoryRepository struct {
	mu    sync.RWMutex
	rows  []Appointment
	last  time.Time
	clock func() time.Time
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{clock: time.Now}
}

func (r *InMemoryRepository) Insert(ctx context.Context, appt *Appointment) (*Appointment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock().UTC().Truncate(time.Microsecond)
	if !now.After(r.last) {
		now = r.last.Add(time.Microsecond)
	}
	r.last = now

	saved := *appt
	saved.ID = uuid.New().String()
	saved.CreatedAt = now
	r.rows = append(r.rows, saved)
	return &saved, nil
}

func (r *InMemoryRepository) List(ctx context.Context, ownerIdentity string, limit int) ([]Appointment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > ListLimit {
		limit = ListLimit
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Appointment, 0, min(limit, len(r.rows)))
	for i := len(r.rows) - 1; i >= 0 && len(out) < limit; i-- {
		row := r.rows[i]
		if ownerIdentity != "" && row.OwnerIdentity != ownerIdentity {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}
