package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"sitegate/models"
)

// MemoryStore keeps events in process. It does not survive restarts and is
// meant for development and tests.
type MemoryStore struct {
	mu     sync.Mutex
	now    func() time.Time
	events []models.AuditEvent
}

// NewMemoryStore returns an empty store stamping events with now, or
// time.Now when now is nil.
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{now: now}
}

func (s *MemoryStore) Append(ctx context.Context, event models.AuditEvent) error {
	if err := validate(event); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	event.ID = uuid.New()
	event.CreatedAt = s.now()
	s.events = append(s.events, event)
	return nil
}

func (s *MemoryStore) CountSince(ctx context.Context, eventType models.EventType, ip string, cutoff time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, e := range s.events {
		if e.EventType == eventType && e.IPAddress == ip && !e.CreatedAt.Before(cutoff) {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) LatestSince(ctx context.Context, eventType models.EventType, ip string, cutoff time.Time) (time.Time, bool, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var latest time.Time
	found := false
	for _, e := range s.events {
		if e.EventType != eventType || e.IPAddress != ip || e.CreatedAt.Before(cutoff) {
			continue
		}
		if !found || e.CreatedAt.After(latest) {
			latest = e.CreatedAt
			found = true
		}
	}
	return latest, found, nil
}

// Events returns a copy of everything appended so far.
func (s *MemoryStore) Events() []models.AuditEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.AuditEvent, len(s.events))
	copy(out, s.events)
	return out
}

func (s *MemoryStore) Close(context.Context) error {
	return nil
}
