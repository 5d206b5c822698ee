package inventory

import (
	"context"
	"sync"
	"testing"

	"warehouse-backend/internal/apperr"
	"warehouse-backend/internal/audit"
	"warehouse-backend/internal/models"
	"warehouse-backend/internal/store"
	"warehouse-backend/internal/store/memstore"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var actor = models.Actor{ID: 1, Name: "tester"}

func newService(t *testing.T) (*Service, *memstore.Store, *audit.MemorySink) {
	t.Helper()
	st := memstore.New()
	sink := audit.NewMemorySink(100)
	return NewService(st, NewLedger(), audit.NewRecorder(sink), nil), st, sink
}

func mustCreate(t *testing.T, svc *Service, sku string, qty int) *models.InventoryItem {
	t.Helper()
	item, err := svc.CreateItem(context.Background(), actor, CreateItemInput{
		SKU: sku, Name: sku, Rate: decimal.NewFromInt(2), Quantity: qty,
	})
	require.NoError(t, err)
	return item
}

func quantity(t *testing.T, st store.UnitOfWork, id uint) int {
	t.Helper()
	var q int
	require.NoError(t, st.Do(context.Background(), func(tx store.Tx) error {
		item, err := tx.Inventory().Get(id)
		if err != nil {
			return err
		}
		q = item.Quantity
		return nil
	}))
	return q
}

func movements(t *testing.T, st store.UnitOfWork, id uint) []models.StockMovement {
	t.Helper()
	var rows []models.StockMovement
	require.NoError(t, st.Do(context.Background(), func(tx store.Tx) error {
		var err error
		rows, _, err = tx.Movements().ListByItem(id, store.ListOptions{})
		return err
	}))
	return rows
}

func TestAdjustJournalsEveryChange(t *testing.T) {
	svc, st, _ := newService(t)
	item := mustCreate(t, svc, "BOLT-1", 10)

	got, err := svc.Adjust(context.Background(), actor, models.ByID(item.ID), AdjustInput{Delta: -4, Note: "count"})
	require.NoError(t, err)
	assert.Equal(t, 6, got.Quantity)

	got, err = svc.Adjust(context.Background(), actor, models.BySKU("BOLT-1"), AdjustInput{Delta: 3, Note: "found"})
	require.NoError(t, err)
	assert.Equal(t, 9, got.Quantity)

	rows := movements(t, st, item.ID)
	require.Len(t, rows, 3)
	sum := 0
	for _, m := range rows {
		sum += m.Delta
		assert.Equal(t, models.MovementStockTake, m.Reason)
	}
	assert.Equal(t, 9, sum)
	assert.Equal(t, 9, rows[0].BalanceAfter) // newest first
}

func TestAdjustInsufficientStockLeavesLedgerUntouched(t *testing.T) {
	svc, st, _ := newService(t)
	item := mustCreate(t, svc, "BOLT-1", 10)

	_, err := svc.Adjust(context.Background(), actor, models.ByID(item.ID), AdjustInput{Delta: -15, Note: "oops"})
	require.ErrorIs(t, err, apperr.ErrInsufficientStock)

	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, 15, ae.Details["requested"])
	assert.Equal(t, 10, ae.Details["available"])
	assert.Contains(t, ae.Message, "requested 15, available 10")

	assert.Equal(t, 10, quantity(t, st, item.ID))
	assert.Len(t, movements(t, st, item.ID), 1)
}

func TestAdjustValidation(t *testing.T) {
	svc, _, _ := newService(t)
	item := mustCreate(t, svc, "BOLT-1", 1)

	_, err := svc.Adjust(context.Background(), actor, models.ByID(item.ID), AdjustInput{Delta: 0, Note: "x"})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.Adjust(context.Background(), actor, models.ByID(999), AdjustInput{Delta: 1, Note: "x"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestSetLocationStock(t *testing.T) {
	svc, _, _ := newService(t)
	item := mustCreate(t, svc, "BOLT-1", 10)
	ctx := context.Background()

	got, err := svc.SetLocationStock(ctx, actor, item.ID, LocationInput{LocationID: "A-01", LocationName: "Aisle 1", Quantity: 4, Op: models.LocationOpAdd})
	require.NoError(t, err)
	require.Len(t, got.LocationStock, 1)
	assert.Equal(t, 4, got.Location("A-01").Quantity)

	got, err = svc.SetLocationStock(ctx, actor, item.ID, LocationInput{LocationID: "A-01", Quantity: 9, Op: models.LocationOpSubtract})
	require.NoError(t, err)
	assert.Equal(t, 0, got.Location("A-01").Quantity)
	assert.Equal(t, "Aisle 1", got.Location("A-01").LocationName)

	got, err = svc.SetLocationStock(ctx, actor, item.ID, LocationInput{LocationID: "B-02", Quantity: 7, Op: models.LocationOpSet})
	require.NoError(t, err)
	assert.Len(t, got.LocationStock, 2)
	assert.Equal(t, 10, got.Quantity)

	_, err = svc.SetLocationStock(ctx, actor, item.ID, LocationInput{LocationID: "B-02", Quantity: 1, Op: "move"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestCreateItemConflictAndAudit(t *testing.T) {
	svc, _, sink := newService(t)
	mustCreate(t, svc, "BOLT-1", 0)

	_, err := svc.CreateItem(context.Background(), actor, CreateItemInput{SKU: "BOLT-1", Name: "again"})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	_, err = svc.CreateItem(context.Background(), actor, CreateItemInput{SKU: "NUT-1", Name: "nut", Rate: decimal.NewFromInt(-1)})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	logs, total, _ := sink.List(context.Background(), audit.Filter{EntityType: entityType})
	require.EqualValues(t, 1, total)
	assert.Equal(t, "BOLT-1", logs[0].EntityName)
}

func TestUpdateItemKeepsQuantity(t *testing.T) {
	svc, _, _ := newService(t)
	item := mustCreate(t, svc, "BOLT-1", 5)
	name := "Hex bolt"
	rate := decimal.RequireFromString("2.75")

	got, err := svc.UpdateItem(context.Background(), actor, item.ID, UpdateItemInput{Name: &name, Rate: &rate})
	require.NoError(t, err)
	assert.Equal(t, "Hex bolt", got.Name)
	assert.True(t, rate.Equal(got.Rate))
	assert.Equal(t, 5, got.Quantity)
}

func TestDeleteItemRefusedWhileReferenced(t *testing.T) {
	svc, st, _ := newService(t)
	item := mustCreate(t, svc, "BOLT-1", 5)
	spare := mustCreate(t, svc, "SPARE-1", 0)

	require.NoError(t, st.Do(context.Background(), func(tx store.Tx) error {
		return tx.PurchaseOrders().Create(&models.PurchaseOrder{
			PONumber: "PO-000001",
			Status:   models.POStatusSent,
			Items:    []models.PurchaseOrderItem{{ProductID: &item.ID, SKU: "BOLT-1", Quantity: 3}},
		})
	}))

	err := svc.DeleteItem(context.Background(), actor, item.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidState)

	require.NoError(t, svc.DeleteItem(context.Background(), actor, spare.ID))
	_, err = svc.Get(context.Background(), spare.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestConcurrentDecrementsNeverGoNegative(t *testing.T) {
	svc, st, _ := newService(t)
	item := mustCreate(t, svc, "BOLT-1", 50)

	var wg sync.WaitGroup
	var mu sync.Mutex
	ok, short := 0, 0
	for i := 0; i < 80; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Adjust(context.Background(), actor, models.ByID(item.ID), AdjustInput{Delta: -1, Note: "pick"})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
			} else if apperr.KindOf(err) == apperr.KindInsufficientStock {
				short++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, ok)
	assert.Equal(t, 30, short)
	assert.Equal(t, 0, quantity(t, st, item.ID))

	sum := 0
	for _, m := range movements(t, st, item.ID) {
		sum += m.Delta
	}
	assert.Equal(t, 0, sum)
}
