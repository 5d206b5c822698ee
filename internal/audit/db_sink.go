package audit

import (
	"context"
	"fmt"

	"warehouse-backend/internal/models"
	"warehouse-backend/internal/store"

	"gorm.io/gorm"
)

// DBSink stores events in the audit_logs table and reads them back for the admin endpoint.
type DBSink struct {
	db *gorm.DB
}

func NewDBSink(db *gorm.DB) *DBSink {
	return &DBSink{db: db}
}

func (s *DBSink) Write(ctx context.Context, e Event) error {
	log := e.Log()
	if err := s.db.WithContext(ctx).Create(&log).Error; err != nil {
		return fmt.Errorf("audit log could not be saved: %w", err)
	}
	return nil
}

func (s *DBSink) List(ctx context.Context, f Filter) ([]models.AuditLog, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.AuditLog{})
	if f.EntityType != "" {
		q = q.Where("entity_type = ?", f.EntityType)
	}
	if f.EntityID != 0 {
		q = q.Where("entity_id = ?", f.EntityID)
	}
	if f.UserID != 0 {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.Action != "" {
		q = q.Where("action = ?", f.Action)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	opts := store.ListOptions{Page: f.Page, Limit: f.Limit}
	var logs []models.AuditLog
	q = q.Order("created_at DESC, id DESC")
	if f.Limit > 0 {
		q = q.Limit(f.Limit).Offset(opts.Offset())
	}
	err := q.Find(&logs).Error
	return logs, total, err
}
