// Package memstore is an in-process store.UnitOfWork. Do runs one callback at a time
// against a private copy of the state and swaps it in on success, which gives the same
// all-or-nothing behaviour as a database transaction.
package memstore

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"
	"time"

	"warehouse-backend/internal/apperr"
	"warehouse-backend/internal/models"
	"warehouse-backend/internal/store"
)

var (
	errNegativeQuantity = errors.New("check constraint violated: quantity >= 0")
	errReadOnly         = errors.New("write inside a read-only view")
)

type counters struct {
	item, location, movement             uint
	po, poItem, poHistory                uint
	receipt, receiptLine                 uint
	sale, saleItem                       uint
	shipment, shipmentItem, trackingItem uint
}

type state struct {
	ids       counters
	items     map[uint]*models.InventoryItem
	skus      map[string]uint
	movements []models.StockMovement
	pos       map[uint]*models.PurchaseOrder
	receipts  map[uint]*models.ReceivingReceipt
	sales     map[uint]*models.SaleOrder
	shipments map[uint]*models.Shipment

	readOnly bool
}

func newState() *state {
	return &state{
		items:     map[uint]*models.InventoryItem{},
		skus:      map[string]uint{},
		pos:       map[uint]*models.PurchaseOrder{},
		receipts:  map[uint]*models.ReceivingReceipt{},
		sales:     map[uint]*models.SaleOrder{},
		shipments: map[uint]*models.Shipment{},
	}
}

func (s *state) clone() *state {
	c := &state{
		ids:       s.ids,
		items:     make(map[uint]*models.InventoryItem, len(s.items)),
		skus:      maps.Clone(s.skus),
		movements: slices.Clone(s.movements),
		pos:       make(map[uint]*models.PurchaseOrder, len(s.pos)),
		receipts:  make(map[uint]*models.ReceivingReceipt, len(s.receipts)),
		sales:     make(map[uint]*models.SaleOrder, len(s.sales)),
		shipments: make(map[uint]*models.Shipment, len(s.shipments)),
	}
	for id, v := range s.items {
		c.items[id] = cloneItem(v)
	}
	for id, v := range s.pos {
		c.pos[id] = clonePO(v)
	}
	for id, v := range s.receipts {
		c.receipts[id] = cloneReceipt(v)
	}
	for id, v := range s.sales {
		c.sales[id] = cloneSale(v)
	}
	for id, v := range s.shipments {
		c.shipments[id] = cloneShipment(v)
	}
	return c
}

type Store struct {
	mu sync.RWMutex
	st *state
}

func New() *Store {
	return &Store{st: newState()}
}

func (s *Store) Do(ctx context.Context, fn func(tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return apperr.Persistence(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.st.clone()
	if err := fn(&txn{st: work}); err != nil {
		return apperr.Wrap(err)
	}
	s.st = work
	return nil
}

// View runs fn against the committed state without copying it. Writers swap in a new
// state instead of mutating the old one, so readers only hold the read lock; any write
// attempted through tx fails.
func (s *Store) View(ctx context.Context, fn func(tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return apperr.Persistence(err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	view := *s.st
	view.readOnly = true
	return apperr.Wrap(fn(&txn{st: &view}))
}

type txn struct {
	st *state
}

func (t *txn) Inventory() store.InventoryRepository          { return inventoryRepo{t.st} }
func (t *txn) Movements() store.MovementRepository           { return movementRepo{t.st} }
func (t *txn) PurchaseOrders() store.PurchaseOrderRepository { return purchaseOrderRepo{t.st} }
func (t *txn) Receipts() store.ReceiptRepository             { return receiptRepo{t.st} }
func (t *txn) SaleOrders() store.SaleOrderRepository         { return saleOrderRepo{t.st} }
func (t *txn) Shipments() store.ShipmentRepository           { return shipmentRepo{t.st} }

func cloneItem(v *models.InventoryItem) *models.InventoryItem {
	c := *v
	c.LocationStock = slices.Clone(v.LocationStock)
	return &c
}

func clonePO(v *models.PurchaseOrder) *models.PurchaseOrder {
	c := *v
	c.Items = slices.Clone(v.Items)
	c.StatusHistory = slices.Clone(v.StatusHistory)
	for i := range c.Items {
		if p := c.Items[i].ProductID; p != nil {
			id := *p
			c.Items[i].ProductID = &id
		}
	}
	return &c
}

func cloneReceipt(v *models.ReceivingReceipt) *models.ReceivingReceipt {
	c := *v
	c.Lines = slices.Clone(v.Lines)
	return &c
}

func cloneSale(v *models.SaleOrder) *models.SaleOrder {
	c := *v
	c.Items = slices.Clone(v.Items)
	return &c
}

func cloneShipment(v *models.Shipment) *models.Shipment {
	c := *v
	c.Items = slices.Clone(v.Items)
	c.TrackingHistory = slices.Clone(v.TrackingHistory)
	return &c
}

// window sorts rows by less (reversed when desc) and applies paging.
func window[T any](rows []T, opts store.ListOptions, less func(a, b T) int) []T {
	slices.SortStableFunc(rows, func(a, b T) int {
		if opts.Desc {
			return less(b, a)
		}
		return less(a, b)
	})
	start, end := opts.Window(len(rows))
	return rows[start:end]
}

func touch(created, updated *time.Time) {
	now := time.Now()
	if created != nil && created.IsZero() {
		*created = now
	}
	if updated != nil {
		*updated = now
	}
}
