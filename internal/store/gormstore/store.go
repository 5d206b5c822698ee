// Package gormstore implements store.UnitOfWork on PostgreSQL through GORM.
// Mutating paths read with SELECT ... FOR UPDATE, so two transactions touching the same
// purchase order or inventory row serialize on the row lock.
package gormstore

import (
	"context"
	"database/sql"
	"errors"

	"warehouse-backend/internal/apperr"
	"warehouse-backend/internal/store"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Do(ctx context.Context, fn func(tx store.Tx) error) error {
	err := s.db.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
		return fn(&txn{db: gtx})
	}, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	return apperr.Wrap(translate(err))
}

// View runs fn in a read-only repeatable-read transaction, so every query sees the same
// snapshot and takes no row locks.
func (s *Store) View(ctx context.Context, fn func(tx store.Tx) error) error {
	err := s.db.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
		return fn(&txn{db: gtx})
	}, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	return apperr.Wrap(translate(err))
}

type txn struct {
	db *gorm.DB
}

func (t *txn) Inventory() store.InventoryRepository          { return inventoryRepo{db: t.db} }
func (t *txn) Movements() store.MovementRepository           { return movementRepo{db: t.db} }
func (t *txn) PurchaseOrders() store.PurchaseOrderRepository { return purchaseOrderRepo{db: t.db} }
func (t *txn) Receipts() store.ReceiptRepository             { return receiptRepo{db: t.db} }
func (t *txn) SaleOrders() store.SaleOrderRepository         { return saleOrderRepo{db: t.db} }
func (t *txn) Shipments() store.ShipmentRepository           { return shipmentRepo{db: t.db} }

func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperr.Conflict("duplicate record: %v", err)
	}
	return err
}

func notFound(err error, entity string, id any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(entity, id)
	}
	return translate(err)
}

func locked(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

func byID(db *gorm.DB) *gorm.DB {
	return db.Order("id")
}

// page applies filters shared by every list query.
func page(opts store.ListOptions, allowedSort []string, defSort string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		col := opts.SortColumn(allowedSort, defSort)
		db = db.Order(clause.OrderByColumn{Column: clause.Column{Name: col}, Desc: opts.Desc})
		if opts.Limit > 0 {
			db = db.Limit(opts.Limit).Offset(opts.Offset())
		}
		return db
	}
}

func countByStatus(db *gorm.DB, model any) (map[string]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	if err := db.Model(model).Select("status, COUNT(*) AS count").Group("status").Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Status] = r.Count
	}
	return out, nil
}

func like(s string) string {
	return "%" + s + "%"
}
