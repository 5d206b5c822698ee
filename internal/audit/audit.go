// Package audit records who changed what. Recording never fails the business operation:
// sink errors are logged and dropped.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"warehouse-backend/internal/config"
	"warehouse-backend/internal/models"

	"github.com/google/uuid"
)

type Event struct {
	ID          string
	At          time.Time
	Actor       models.Actor
	EntityType  string
	EntityID    uint
	EntityName  string
	Action      models.AuditAction
	Description string
	Before      any
	After       any
}

// Changes renders the before/after snapshots for the jsonb column.
// PostgreSQL jsonb needs the literal "null" instead of an empty string.
func (e Event) Changes() string {
	if e.Before == nil && e.After == nil {
		return "null"
	}
	b, err := json.Marshal(map[string]any{"before": e.Before, "after": e.After})
	if err != nil {
		return "null"
	}
	return string(b)
}

func (e Event) Log() models.AuditLog {
	return models.AuditLog{
		EventID:     e.ID,
		CreatedAt:   e.At,
		UserID:      e.Actor.ID,
		UserName:    e.Actor.Name,
		EntityType:  e.EntityType,
		EntityID:    e.EntityID,
		EntityName:  e.EntityName,
		Action:      e.Action,
		Description: e.Description,
		Changes:     e.Changes(),
	}
}

type Sink interface {
	Write(ctx context.Context, e Event) error
}

type Filter struct {
	EntityType string
	EntityID   uint
	UserID     uint
	Action     string
	Page       int
	Limit      int
}

// Reader serves the audit log endpoint.
type Reader interface {
	List(ctx context.Context, f Filter) ([]models.AuditLog, int64, error)
}

type Recorder struct {
	sinks []Sink
	now   func() time.Time
}

func NewRecorder(sinks ...Sink) *Recorder {
	return &Recorder{sinks: sinks, now: time.Now}
}

// Record is a no-op on a nil Recorder, so services can run without auditing in tests.
func (r *Recorder) Record(ctx context.Context, e Event) {
	if r == nil {
		return
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.At.IsZero() {
		e.At = r.now()
	}
	for _, s := range r.sinks {
		if err := s.Write(ctx, e); err != nil {
			config.LogError("audit", "Record", map[string]any{
				"event_id":    e.ID,
				"entity_type": e.EntityType,
				"entity_id":   e.EntityID,
			}, err)
		}
	}
}

// LogSink writes events to the application log.
type LogSink struct{}

func (LogSink) Write(_ context.Context, e Event) error {
	config.GetLogger().WithFields(map[string]any{
		"event_id":    e.ID,
		"user_id":     e.Actor.ID,
		"entity_type": e.EntityType,
		"entity_id":   e.EntityID,
		"entity_name": e.EntityName,
		"action":      e.Action,
	}).Info(e.Description)
	return nil
}
