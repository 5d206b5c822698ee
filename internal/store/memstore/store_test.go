package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"warehouse-backend/internal/apperr"
	"warehouse-backend/internal/models"
	"warehouse-backend/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedItem(t *testing.T, s *Store, sku string, qty int) uint {
	t.Helper()
	var id uint
	err := s.Do(context.Background(), func(tx store.Tx) error {
		item := &models.InventoryItem{SKU: sku, Name: sku, Quantity: qty}
		if err := tx.Inventory().Create(item); err != nil {
			return err
		}
		id = item.ID
		return nil
	})
	require.NoError(t, err)
	return id
}

func TestDoRollsBackOnError(t *testing.T) {
	s := New()
	id := seedItem(t, s, "A-1", 10)

	boom := errors.New("boom")
	err := s.Do(context.Background(), func(tx store.Tx) error {
		item, err := tx.Inventory().GetForUpdate(models.ByID(id))
		require.NoError(t, err)
		item.Quantity = 3
		require.NoError(t, tx.Inventory().Save(item))
		return boom
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindPersistence, apperr.KindOf(err))

	_ = s.Do(context.Background(), func(tx store.Tx) error {
		item, err := tx.Inventory().Get(id)
		require.NoError(t, err)
		assert.Equal(t, 10, item.Quantity)
		return nil
	})
}

func TestDoKeepsAppErrorKind(t *testing.T) {
	s := New()
	err := s.Do(context.Background(), func(tx store.Tx) error {
		_, err := tx.Inventory().Get(42)
		return err
	})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestDoCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := New().Do(ctx, func(tx store.Tx) error { return nil })
	assert.ErrorIs(t, err, apperr.ErrPersistence)
}

func TestReturnedRecordsAreDetached(t *testing.T) {
	s := New()
	id := seedItem(t, s, "A-1", 10)

	_ = s.Do(context.Background(), func(tx store.Tx) error {
		item, _ := tx.Inventory().Get(id)
		item.Quantity = 99 // not saved
		return nil
	})
	_ = s.Do(context.Background(), func(tx store.Tx) error {
		item, _ := tx.Inventory().Get(id)
		assert.Equal(t, 10, item.Quantity)
		return nil
	})
}

func TestInventorySKUConflictAndNegativeQuantity(t *testing.T) {
	s := New()
	id := seedItem(t, s, "A-1", 1)

	err := s.Do(context.Background(), func(tx store.Tx) error {
		return tx.Inventory().Create(&models.InventoryItem{SKU: "A-1", Name: "dup"})
	})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	err = s.Do(context.Background(), func(tx store.Tx) error {
		item, _ := tx.Inventory().Get(id)
		item.Quantity = -1
		return tx.Inventory().Save(item)
	})
	assert.ErrorIs(t, err, apperr.ErrPersistence)
}

func TestPurchaseOrderHistoryIsAppendOnly(t *testing.T) {
	s := New()
	now := time.Now()
	var poID uint
	require.NoError(t, s.Do(context.Background(), func(tx store.Tx) error {
		po := &models.PurchaseOrder{PONumber: "PO-000001", VendorName: "Acme", Status: models.POStatusDraft, OrderDate: now}
		po.Items = []models.PurchaseOrderItem{{ProductName: "Bolt", SKU: "B-1", Quantity: 5}}
		po.AppendHistory(models.POStatusDraft, 1, "created", now)
		if err := tx.PurchaseOrders().Create(po); err != nil {
			return err
		}
		poID = po.ID
		return nil
	}))

	require.NoError(t, s.Do(context.Background(), func(tx store.Tx) error {
		po, err := tx.PurchaseOrders().GetForUpdate(poID)
		require.NoError(t, err)
		po.StatusHistory[0].Notes = "rewritten"
		po.Status = models.POStatusSent
		po.AppendHistory(models.POStatusSent, 1, "", now)
		return tx.PurchaseOrders().Save(po)
	}))

	_ = s.Do(context.Background(), func(tx store.Tx) error {
		po, err := tx.PurchaseOrders().Get(poID)
		require.NoError(t, err)
		require.Len(t, po.StatusHistory, 2)
		assert.Equal(t, "created", po.StatusHistory[0].Notes)
		assert.Equal(t, models.POStatusSent, po.StatusHistory[1].Status)
		assert.Equal(t, 5, po.Items[0].PendingQuantity)
		return nil
	})
}

func TestShipmentUniquePerSaleOrder(t *testing.T) {
	s := New()
	create := func(number string) error {
		return s.Do(context.Background(), func(tx store.Tx) error {
			return tx.Shipments().Create(&models.Shipment{ShipmentNumber: number, SalesOrderID: 7})
		})
	}
	require.NoError(t, create("SHP-000001"))
	assert.ErrorIs(t, create("SHP-000002"), apperr.ErrConflict)
}

func TestInventoryListPaging(t *testing.T) {
	s := New()
	for _, sku := range []string{"C", "A", "B", "D"} {
		seedItem(t, s, sku, 1)
	}
	_ = s.Do(context.Background(), func(tx store.Tx) error {
		rows, total, err := tx.Inventory().List(store.ListOptions{Page: 2, Limit: 2, Sort: "sku"})
		require.NoError(t, err)
		assert.EqualValues(t, 4, total)
		require.Len(t, rows, 2)
		assert.Equal(t, "C", rows[0].SKU)
		assert.Equal(t, "D", rows[1].SKU)
		return nil
	})
}

func TestSequence(t *testing.T) {
	seq := NewSequence()
	a, _ := seq.Next(context.Background(), "po")
	b, _ := seq.Next(context.Background(), "po")
	c, _ := seq.Next(context.Background(), "so")
	assert.Equal(t, []int64{1, 2, 1}, []int64{a, b, c})
}

func TestViewSeesCommittedStateAndRefusesWrites(t *testing.T) {
	s := New()
	id := seedItem(t, s, "A-1", 10)

	var held *models.InventoryItem
	err := s.View(context.Background(), func(tx store.Tx) error {
		var err error
		held, err = tx.Inventory().Get(id)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 10, held.Quantity)

	err = s.View(context.Background(), func(tx store.Tx) error {
		item, err := tx.Inventory().Get(id)
		require.NoError(t, err)
		item.Quantity = 0
		return tx.Inventory().Save(item)
	})
	assert.ErrorIs(t, err, apperr.ErrPersistence)
	err = s.View(context.Background(), func(tx store.Tx) error {
		return tx.Movements().Record(&models.StockMovement{InventoryItemID: id, Delta: 1})
	})
	assert.ErrorIs(t, err, apperr.ErrPersistence)

	// rows handed out by a view are copies; a later commit does not reach them
	require.NoError(t, s.Do(context.Background(), func(tx store.Tx) error {
		item, err := tx.Inventory().GetForUpdate(models.ByID(id))
		if err != nil {
			return err
		}
		item.Quantity = 4
		return tx.Inventory().Save(item)
	}))
	assert.Equal(t, 10, held.Quantity)

	require.NoError(t, s.View(context.Background(), func(tx store.Tx) error {
		item, err := tx.Inventory().Get(id)
		require.NoError(t, err)
		assert.Equal(t, 4, item.Quantity)
		rows, total, err := tx.Movements().ListByItem(id, store.ListOptions{})
		require.NoError(t, err)
		assert.Zero(t, total)
		assert.Empty(t, rows)
		return nil
	}))
}

func TestViewCancelledContext(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := s.View(ctx, func(tx store.Tx) error { return nil })
	assert.ErrorIs(t, err, apperr.ErrPersistence)
}
