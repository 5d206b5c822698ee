package gormstore

import (
	"context"
	"strconv"

	"gorm.io/gorm"
)

// Sequence hands out counters from the sequences table. It runs outside the caller's
// transaction, so a rolled back operation leaves a gap in the numbering.
type Sequence struct {
	db *gorm.DB
}

func NewSequence(db *gorm.DB) *Sequence {
	return &Sequence{db: db}
}

func (s *Sequence) Next(ctx context.Context, name string) (int64, error) {
	var value int64
	err := s.db.WithContext(ctx).Raw(
		`INSERT INTO sequences (name, value) VALUES (?, 1)
		 ON CONFLICT (name) DO UPDATE SET value = sequences.value + 1
		 RETURNING value`, name).Scan(&value).Error
	return value, err
}

func uintLabel(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
