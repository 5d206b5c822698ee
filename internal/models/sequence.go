package models

// Sequence: one row per numbered entity type ("purchase_order", "receipt", ...).
type Sequence struct {
	Name  string `gorm:"primaryKey;size:40"`
	Value int64  `gorm:"not null;default:0"`
}
