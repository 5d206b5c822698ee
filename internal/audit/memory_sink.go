package audit

import (
	"context"
	"sync"

	"warehouse-backend/internal/models"
	"warehouse-backend/internal/store"
)

// MemorySink keeps the most recent events in process. Used with the memory store driver.
type MemorySink struct {
	mu   sync.Mutex
	max  int
	next uint
	logs []models.AuditLog
}

func NewMemorySink(max int) *MemorySink {
	if max <= 0 {
		max = 1000
	}
	return &MemorySink{max: max}
}

func (s *MemorySink) Write(_ context.Context, e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	log := e.Log()
	log.ID = s.next
	s.logs = append(s.logs, log)
	if len(s.logs) > s.max {
		s.logs = s.logs[len(s.logs)-s.max:]
	}
	return nil
}

func (s *MemorySink) List(_ context.Context, f Filter) ([]models.AuditLog, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.AuditLog
	for i := len(s.logs) - 1; i >= 0; i-- {
		l := s.logs[i]
		if f.EntityType != "" && l.EntityType != f.EntityType {
			continue
		}
		if f.EntityID != 0 && l.EntityID != f.EntityID {
			continue
		}
		if f.UserID != 0 && l.UserID != f.UserID {
			continue
		}
		if f.Action != "" && string(l.Action) != f.Action {
			continue
		}
		out = append(out, l)
	}
	opts := store.ListOptions{Page: f.Page, Limit: f.Limit}
	start, end := opts.Window(len(out))
	return out[start:end], int64(len(out)), nil
}
