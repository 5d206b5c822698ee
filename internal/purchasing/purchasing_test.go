package purchasing

import (
	"context"
	"errors"
	"sync"
	"testing"

	"warehouse-backend/internal/apperr"
	"warehouse-backend/internal/audit"
	"warehouse-backend/internal/inventory"
	"warehouse-backend/internal/models"
	"warehouse-backend/internal/numbering"
	"warehouse-backend/internal/store"
	"warehouse-backend/internal/store/memstore"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var actor = models.Actor{ID: 7, Name: "buyer"}

type fixture struct {
	svc   *Service
	items *inventory.Service
	st    *memstore.Store
	sink  *audit.MemorySink
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := memstore.New()
	sink := audit.NewMemorySink(200)
	rec := audit.NewRecorder(sink)
	ledger := inventory.NewLedger()
	return &fixture{
		svc:   NewService(st, ledger, numbering.NewGenerator(memstore.NewSequence()), rec, nil),
		items: inventory.NewService(st, ledger, rec, nil),
		st:    st,
		sink:  sink,
	}
}

func (f *fixture) item(t *testing.T, sku string, qty int) *models.InventoryItem {
	t.Helper()
	it, err := f.items.CreateItem(context.Background(), actor, inventory.CreateItemInput{
		SKU: sku, Name: sku, Rate: decimal.NewFromInt(3), Quantity: qty,
	})
	require.NoError(t, err)
	return it
}

func (f *fixture) onHand(t *testing.T, sku string) int {
	t.Helper()
	var q int
	require.NoError(t, f.st.Do(context.Background(), func(tx store.Tx) error {
		it, err := tx.Inventory().FindBySKU(sku)
		if err != nil {
			return err
		}
		q = it.Quantity
		return nil
	}))
	return q
}

// sentOrder creates and approves an order with one line per (product, quantity) pair.
func (f *fixture) sentOrder(t *testing.T, lines ...LineInput) *models.PurchaseOrder {
	t.Helper()
	po, err := f.svc.Create(context.Background(), actor, OrderInput{VendorName: "Acme", Items: lines})
	require.NoError(t, err)
	po, err = f.svc.Approve(context.Background(), actor, po.ID, "")
	require.NoError(t, err)
	require.Equal(t, models.POStatusSent, po.Status)
	return po
}

func line(productID uint, qty int) LineInput {
	return LineInput{ProductID: &productID, Quantity: qty, UnitPrice: decimal.NewFromInt(2)}
}

func receive(itemID uint, qty int) ReceiveInput {
	return ReceiveInput{Items: []ReceiveLine{{ItemID: itemID, QuantityReceived: qty}}}
}

func TestCreateComputesTotalsAndNumbers(t *testing.T) {
	f := newFixture(t)
	x := f.item(t, "X-1", 0)

	po, err := f.svc.Create(context.Background(), actor, OrderInput{
		VendorName:   " Acme ",
		Items:        []LineInput{line(x.ID, 10), {ProductName: "Widget", SKU: "W-1", Quantity: 2, UnitPrice: decimal.RequireFromString("5.50")}},
		Tax:          decimal.NewFromInt(4),
		Discount:     decimal.NewFromInt(10),
		ShippingCost: decimal.NewFromInt(3),
	})
	require.NoError(t, err)

	assert.Equal(t, "PO-000001", po.PONumber)
	assert.Equal(t, "Acme", po.VendorName)
	assert.Equal(t, models.POStatusDraft, po.Status)
	assert.Equal(t, models.ApprovalPending, po.ApprovalStatus)
	assert.Equal(t, models.ReceivingPending, po.ReceivingStatus)
	assert.Equal(t, "X-1", po.Items[0].SKU)
	assert.Equal(t, "X-1", po.Items[0].ProductName)
	assert.True(t, po.Subtotal.Equal(decimal.NewFromInt(31)), po.Subtotal.String())
	assert.True(t, po.Total.Equal(decimal.NewFromInt(28)), po.Total.String())
	require.Len(t, po.StatusHistory, 1)

	second, err := f.svc.Create(context.Background(), actor, OrderInput{VendorName: "Acme", Items: []LineInput{line(x.ID, 1)}})
	require.NoError(t, err)
	assert.Equal(t, "PO-000002", second.PONumber)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), actor, OrderInput{VendorName: "Acme"})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.svc.Create(context.Background(), actor, OrderInput{
		VendorName: "Acme",
		Items:      []LineInput{{ProductName: "No sku", Quantity: 1}},
	})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.svc.Create(context.Background(), actor, OrderInput{
		VendorName: "Acme",
		Items:      []LineInput{{ProductName: "W", SKU: "W", Quantity: 1, UnitPrice: decimal.NewFromInt(-1)}},
	})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	missing := uint(404)
	_, err = f.svc.Create(context.Background(), actor, OrderInput{
		VendorName: "Acme",
		Items:      []LineInput{{ProductID: &missing, Quantity: 1}},
	})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestPartialThenFullReceipt(t *testing.T) {
	f := newFixture(t)
	x := f.item(t, "X-1", 0)
	po := f.sentOrder(t, line(x.ID, 100))
	lineID := po.Items[0].ID

	res, err := f.svc.Receive(context.Background(), actor, po.ID, receive(lineID, 40))
	require.NoError(t, err)
	assert.Equal(t, models.POStatusPartiallyReceived, res.Order.Status)
	assert.Equal(t, models.ReceivingPartiallyReceived, res.Order.ReceivingStatus)
	assert.Equal(t, 40, res.Order.Items[0].ReceivedQuantity)
	assert.Equal(t, 60, res.Order.Items[0].PendingQuantity)
	assert.Equal(t, 40, f.onHand(t, "X-1"))
	assert.Equal(t, "RCV-000001", res.Receipt.ReceiptNumber)
	assert.Equal(t, models.ReceiptReceived, res.Receipt.Status)
	assert.True(t, res.Receipt.TotalValue.Equal(decimal.NewFromInt(80)))
	require.Len(t, res.Receipt.Lines, 1)
	assert.Equal(t, models.ConditionGood, res.Receipt.Lines[0].Condition)

	res, err = f.svc.Receive(context.Background(), actor, po.ID, receive(lineID, 60))
	require.NoError(t, err)
	assert.Equal(t, models.POStatusReceived, res.Order.Status)
	assert.Equal(t, models.ReceivingFullyReceived, res.Order.ReceivingStatus)
	assert.Equal(t, 0, res.Order.Items[0].PendingQuantity)
	assert.Equal(t, 100, f.onHand(t, "X-1"))

	receipts, err := f.svc.ReceiptsForOrder(context.Background(), po.ID)
	require.NoError(t, err)
	assert.Len(t, receipts, 2)

	var moves []models.StockMovement
	require.NoError(t, f.st.Do(context.Background(), func(tx store.Tx) error {
		moves, _, err = tx.Movements().ListByItem(x.ID, store.ListOptions{})
		return err
	}))
	require.Len(t, moves, 2)
	for _, m := range moves {
		assert.Equal(t, models.MovementPurchaseReceipt, m.Reason)
		assert.Equal(t, po.ID, m.ReferenceID)
	}

	// a received order accepts no more goods
	_, err = f.svc.Receive(context.Background(), actor, po.ID, receive(lineID, 1))
	assert.ErrorIs(t, err, apperr.ErrInvalidState)
}

func TestReceiveUnknownLineAbortsWholeCall(t *testing.T) {
	f := newFixture(t)
	x := f.item(t, "X-1", 0)
	po := f.sentOrder(t, line(x.ID, 10))

	_, err := f.svc.Receive(context.Background(), actor, po.ID, ReceiveInput{Items: []ReceiveLine{
		{ItemID: po.Items[0].ID, QuantityReceived: 5},
		{ItemID: 9999, QuantityReceived: 1},
	}})
	require.ErrorIs(t, err, apperr.ErrNotFound)
	var ae *apperr.Error
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, "item_not_found", ae.Details["reason"])
	assert.Equal(t, uint(9999), ae.Details["id"])

	assert.Equal(t, 0, f.onHand(t, "X-1"))
	got, err := f.svc.Get(context.Background(), po.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Items[0].ReceivedQuantity)
	assert.Equal(t, models.POStatusSent, got.Status)
	receipts, err := f.svc.ReceiptsForOrder(context.Background(), po.ID)
	require.NoError(t, err)
	assert.Empty(t, receipts)
}

func TestReceiveLockOrder(t *testing.T) {
	one, five := uint(1), uint(5)
	lines := []*models.PurchaseOrderItem{
		{SKU: "Z-9"}, {ProductID: &five}, {SKU: "B-2"}, {ProductID: &one},
	}
	assert.Equal(t, []int{3, 1, 2, 0}, lockOrder(lines))
}

func TestReceiveKeepsLineOrderInReceipt(t *testing.T) {
	f := newFixture(t)
	x := f.item(t, "X-1", 0)
	y := f.item(t, "Y-1", 0)
	po := f.sentOrder(t, line(y.ID, 10), line(x.ID, 10))

	res, err := f.svc.Receive(context.Background(), actor, po.ID, ReceiveInput{Items: []ReceiveLine{
		{ItemID: po.Items[0].ID, QuantityReceived: 3},
		{ItemID: po.Items[1].ID, QuantityReceived: 4},
	}})
	require.NoError(t, err)
	require.Len(t, res.Receipt.Lines, 2)
	assert.Equal(t, "Y-1", res.Receipt.Lines[0].SKU)
	assert.Equal(t, 3, res.Receipt.Lines[0].QuantityReceived)
	assert.Equal(t, "X-1", res.Receipt.Lines[1].SKU)
	assert.Equal(t, 4, res.Receipt.Lines[1].QuantityReceived)
	assert.True(t, res.Receipt.TotalValue.Equal(decimal.NewFromInt(14)))
	assert.Equal(t, 3, f.onHand(t, "Y-1"))
	assert.Equal(t, 4, f.onHand(t, "X-1"))
}

func TestOverReceiptRejected(t *testing.T) {
	f := newFixture(t)
	x := f.item(t, "X-1", 0)
	po := f.sentOrder(t, line(x.ID, 10))
	lineID := po.Items[0].ID

	_, err := f.svc.Receive(context.Background(), actor, po.ID, receive(lineID, 11))
	var ae *apperr.Error
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, apperr.KindInvalidState, ae.Kind)
	assert.Equal(t, 10, ae.Details["pending"])

	// duplicate lines in one call accumulate
	_, err = f.svc.Receive(context.Background(), actor, po.ID, ReceiveInput{Items: []ReceiveLine{
		{ItemID: lineID, QuantityReceived: 6},
		{ItemID: lineID, QuantityReceived: 6},
	}})
	assert.ErrorIs(t, err, apperr.ErrInvalidState)
	assert.Equal(t, 0, f.onHand(t, "X-1"))

	_, err = f.svc.Receive(context.Background(), actor, po.ID, ReceiveInput{Items: []ReceiveLine{
		{ItemID: lineID, QuantityReceived: 4},
		{ItemID: lineID, QuantityReceived: 6, Condition: models.ConditionDamaged},
	}})
	require.NoError(t, err)
	assert.Equal(t, 10, f.onHand(t, "X-1"))
}

func TestReceiveRequiresSentOrder(t *testing.T) {
	f := newFixture(t)
	x := f.item(t, "X-1", 0)
	po, err := f.svc.Create(context.Background(), actor, OrderInput{VendorName: "Acme", Items: []LineInput{line(x.ID, 5)}})
	require.NoError(t, err)

	_, err = f.svc.Receive(context.Background(), actor, po.ID, receive(po.Items[0].ID, 1))
	assert.ErrorIs(t, err, apperr.ErrInvalidState)

	_, err = f.svc.Receive(context.Background(), actor, 999, receive(1, 1))
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.svc.Receive(context.Background(), actor, po.ID, ReceiveInput{Items: []ReceiveLine{{ItemID: po.Items[0].ID, QuantityReceived: 1, Condition: "Soggy"}}})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestReceiveSeedsLedgerForNewSKU(t *testing.T) {
	f := newFixture(t)
	po := f.sentOrder(t, LineInput{ProductName: "Gadget", SKU: "GAD-1", Quantity: 8, UnitPrice: decimal.NewFromInt(9)})
	lineID := po.Items[0].ID
	assert.Nil(t, po.Items[0].ProductID)

	res, err := f.svc.Receive(context.Background(), actor, po.ID, receive(lineID, 5))
	require.NoError(t, err)
	require.NotNil(t, res.Order.Items[0].ProductID)
	assert.Equal(t, 5, f.onHand(t, "GAD-1"))

	_, err = f.svc.Receive(context.Background(), actor, po.ID, receive(lineID, 3))
	require.NoError(t, err)
	assert.Equal(t, 8, f.onHand(t, "GAD-1"))

	var n int64
	require.NoError(t, f.st.Do(context.Background(), func(tx store.Tx) error {
		_, n, err = tx.Inventory().List(store.ListOptions{})
		return err
	}))
	assert.Equal(t, int64(1), n)
}

func TestConcurrentReceivesNeverOverReceive(t *testing.T) {
	f := newFixture(t)
	x := f.item(t, "X-1", 0)
	po := f.sentOrder(t, line(x.ID, 50))
	lineID := po.Items[0].ID

	var wg sync.WaitGroup
	var mu sync.Mutex
	ok, rejected := 0, 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Receive(context.Background(), actor, po.ID, receive(lineID, 5))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
			} else if errors.Is(err, apperr.ErrInvalidState) {
				rejected++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, ok)
	assert.Equal(t, 10, rejected)
	assert.Equal(t, 50, f.onHand(t, "X-1"))
	got, err := f.svc.Get(context.Background(), po.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReceivingFullyReceived, got.ReceivingStatus)
}

func TestCancelRules(t *testing.T) {
	f := newFixture(t)
	x := f.item(t, "X-1", 0)

	draft, err := f.svc.Create(context.Background(), actor, OrderInput{VendorName: "Acme", Items: []LineInput{line(x.ID, 5)}})
	require.NoError(t, err)
	got, err := f.svc.Cancel(context.Background(), actor, draft.ID, "duplicate")
	require.NoError(t, err)
	assert.Equal(t, models.POStatusCancelled, got.Status)
	assert.Equal(t, "duplicate", got.CancelReason)
	assert.NotNil(t, got.CancelledAt)

	_, err = f.svc.Cancel(context.Background(), actor, draft.ID, "")
	assert.ErrorIs(t, err, apperr.ErrInvalidState)
	_, err = f.svc.Approve(context.Background(), actor, draft.ID, "")
	assert.ErrorIs(t, err, apperr.ErrInvalidState)

	full := f.sentOrder(t, line(x.ID, 5))
	_, err = f.svc.Receive(context.Background(), actor, full.ID, receive(full.Items[0].ID, 5))
	require.NoError(t, err)
	_, err = f.svc.Cancel(context.Background(), actor, full.ID, "")
	assert.ErrorIs(t, err, apperr.ErrInvalidState)

	// partial receipts stay in stock after cancellation
	partial := f.sentOrder(t, line(x.ID, 5))
	_, err = f.svc.Receive(context.Background(), actor, partial.ID, receive(partial.Items[0].ID, 2))
	require.NoError(t, err)
	got, err = f.svc.Cancel(context.Background(), actor, partial.ID, "short shipped")
	require.NoError(t, err)
	assert.Equal(t, models.POStatusCancelled, got.Status)
	assert.Equal(t, 7, f.onHand(t, "X-1"))
}

func TestUpdateStatus(t *testing.T) {
	f := newFixture(t)
	x := f.item(t, "X-1", 0)
	po := f.sentOrder(t, line(x.ID, 5))

	_, err := f.svc.UpdateStatus(context.Background(), actor, po.ID, StatusInput{Status: "Lost"})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	got, err := f.svc.UpdateStatus(context.Background(), actor, po.ID, StatusInput{Status: models.POStatusAcknowledged, Notes: "vendor confirmed"})
	require.NoError(t, err)
	assert.Equal(t, models.POStatusAcknowledged, got.Status)
	last := got.StatusHistory[len(got.StatusHistory)-1]
	assert.Equal(t, "vendor confirmed", last.Notes)
	assert.Equal(t, actor.ID, last.ChangedBy)

	got, err = f.svc.UpdateStatus(context.Background(), actor, po.ID, StatusInput{Status: models.POStatusClosed})
	require.NoError(t, err)
	assert.Equal(t, models.POStatusClosed, got.Status)

	_, err = f.svc.UpdateStatus(context.Background(), actor, po.ID, StatusInput{Status: models.POStatusSent})
	assert.ErrorIs(t, err, apperr.ErrInvalidState)
	_, err = f.svc.UpdateStatus(context.Background(), actor, po.ID, StatusInput{Status: models.POStatusCancelled})
	assert.ErrorIs(t, err, apperr.ErrInvalidState)

	// notes are still accepted on a closed order, and history only grows
	before := len(got.StatusHistory)
	got, err = f.svc.AddNote(context.Background(), actor, po.ID, "invoice filed")
	require.NoError(t, err)
	assert.Len(t, got.StatusHistory, before+1)
	assert.Equal(t, models.POStatusClosed, got.StatusHistory[before].Status)
}

func TestUpdateStatusRefusesStatusContradictingReceipts(t *testing.T) {
	f := newFixture(t)
	x := f.item(t, "X-1", 0)
	po := f.sentOrder(t, line(x.ID, 100))
	_, err := f.svc.Receive(context.Background(), actor, po.ID, receive(po.Items[0].ID, 40))
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(context.Background(), actor, po.ID, StatusInput{Status: models.POStatusAcknowledged})
	require.ErrorIs(t, err, apperr.ErrInvalidState)
	var ae *apperr.Error
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, "Partially Received", ae.Details["receiving_status"])

	got, err := f.svc.Get(context.Background(), po.ID)
	require.NoError(t, err)
	assert.Equal(t, models.POStatusPartiallyReceived, got.Status)
	last := got.StatusHistory[len(got.StatusHistory)-1]
	assert.Equal(t, models.POStatusPartiallyReceived, last.Status)

	// a status consistent with the receipts is still accepted and recorded as asked
	got, err = f.svc.UpdateStatus(context.Background(), actor, po.ID, StatusInput{Status: models.POStatusPartiallyReceived, Notes: "rest due friday"})
	require.NoError(t, err)
	last = got.StatusHistory[len(got.StatusHistory)-1]
	assert.Equal(t, models.POStatusPartiallyReceived, last.Status)
	assert.Equal(t, "rest due friday", last.Notes)
}

func TestUpdateStatusCancelledGoesThroughCancel(t *testing.T) {
	f := newFixture(t)
	x := f.item(t, "X-1", 0)
	po := f.sentOrder(t, line(x.ID, 5))

	got, err := f.svc.UpdateStatus(context.Background(), actor, po.ID, StatusInput{Status: models.POStatusCancelled, Notes: "budget"})
	require.NoError(t, err)
	assert.Equal(t, models.POStatusCancelled, got.Status)
	assert.Equal(t, "budget", got.CancelReason)
}

func TestUpdateAndDeleteOnlyInDraft(t *testing.T) {
	f := newFixture(t)
	x := f.item(t, "X-1", 0)
	y := f.item(t, "Y-1", 0)

	po, err := f.svc.Create(context.Background(), actor, OrderInput{VendorName: "Acme", Items: []LineInput{line(x.ID, 5)}})
	require.NoError(t, err)

	got, err := f.svc.Update(context.Background(), actor, po.ID, OrderInput{
		VendorName: "Globex",
		Items:      []LineInput{line(y.ID, 3), line(x.ID, 1)},
	})
	require.NoError(t, err)
	assert.Equal(t, "Globex", got.VendorName)
	require.Len(t, got.Items, 2)
	assert.True(t, got.Total.Equal(decimal.NewFromInt(8)))

	sent := f.sentOrder(t, line(x.ID, 5))
	_, err = f.svc.Update(context.Background(), actor, sent.ID, OrderInput{VendorName: "X", Items: []LineInput{line(x.ID, 1)}})
	assert.ErrorIs(t, err, apperr.ErrInvalidState)
	assert.ErrorIs(t, f.svc.Delete(context.Background(), actor, sent.ID), apperr.ErrInvalidState)

	require.NoError(t, f.svc.Delete(context.Background(), actor, po.ID))
	_, err = f.svc.Get(context.Background(), po.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestReviewReceipt(t *testing.T) {
	f := newFixture(t)
	x := f.item(t, "X-1", 0)
	po := f.sentOrder(t, line(x.ID, 5))
	res, err := f.svc.Receive(context.Background(), actor, po.ID, receive(po.Items[0].ID, 5))
	require.NoError(t, err)
	id := res.Receipt.ID

	_, err = f.svc.ReviewReceipt(context.Background(), actor, id, ReviewInput{Status: models.ReceiptApproved})
	assert.ErrorIs(t, err, apperr.ErrInvalidState)

	r, err := f.svc.ReviewReceipt(context.Background(), actor, id, ReviewInput{Status: models.ReceiptInspected, Notes: "ok"})
	require.NoError(t, err)
	assert.Equal(t, models.ReceiptInspected, r.Status)
	require.NotNil(t, r.ReviewedBy)
	assert.Equal(t, actor.ID, *r.ReviewedBy)

	r, err = f.svc.ReviewReceipt(context.Background(), actor, id, ReviewInput{Status: models.ReceiptRejected, Notes: "wet boxes"})
	require.NoError(t, err)
	assert.Equal(t, models.ReceiptRejected, r.Status)

	_, err = f.svc.ReviewReceipt(context.Background(), actor, id, ReviewInput{Status: models.ReceiptApproved})
	assert.ErrorIs(t, err, apperr.ErrInvalidState)

	// rejection is a paperwork outcome; stock stays booked
	assert.Equal(t, 5, f.onHand(t, "X-1"))
	stored, err := f.svc.GetReceipt(context.Background(), id)
	require.NoError(t, err)
	assert.Len(t, stored.Lines, 1)
	assert.True(t, stored.TotalValue.Equal(decimal.NewFromInt(10)))
}

func TestStatsAndAudit(t *testing.T) {
	f := newFixture(t)
	x := f.item(t, "X-1", 0)
	f.sentOrder(t, line(x.ID, 5))
	_, err := f.svc.Create(context.Background(), actor, OrderInput{VendorName: "Acme", Items: []LineInput{line(x.ID, 1)}})
	require.NoError(t, err)

	st, err := f.svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), st.Total)
	assert.Equal(t, int64(1), st.ByStatus[string(models.POStatusSent)])
	assert.Equal(t, int64(1), st.ByStatus[string(models.POStatusDraft)])

	logs, total, err := f.sink.List(context.Background(), audit.Filter{EntityType: orderEntity})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Equal(t, models.AuditActionCreate, logs[0].Action)
}
