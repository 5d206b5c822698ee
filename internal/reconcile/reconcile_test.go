package reconcile

import (
	"context"
	"strings"
	"testing"
	"time"

	"warehouse-backend/internal/apperr"
	"warehouse-backend/internal/inventory"
	"warehouse-backend/internal/metrics"
	"warehouse-backend/internal/models"
	"warehouse-backend/internal/numbering"
	"warehouse-backend/internal/purchasing"
	"warehouse-backend/internal/sales"
	"warehouse-backend/internal/shipping"
	"warehouse-backend/internal/store"
	"warehouse-backend/internal/store/memstore"

	"github.com/bsm/redislock"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var actor = models.Actor{ID: 1, Name: "auditor"}

// populate runs one of every workflow against a fresh store.
func populate(t *testing.T) *memstore.Store {
	t.Helper()
	ctx := context.Background()
	st := memstore.New()
	ledger := inventory.NewLedger()
	numbers := numbering.NewGenerator(memstore.NewSequence())

	items := inventory.NewService(st, ledger, nil, nil)
	buying := purchasing.NewService(st, ledger, numbers, nil, nil)
	selling := sales.NewService(st, ledger, numbers, nil, nil)
	shipper := shipping.NewService(st, numbers, nil, nil)

	a, err := items.CreateItem(ctx, actor, inventory.CreateItemInput{SKU: "A", Name: "A", Rate: decimal.NewFromInt(2), Quantity: 10})
	require.NoError(t, err)

	po, err := buying.Create(ctx, actor, purchasing.OrderInput{
		VendorName: "Acme",
		Items: []purchasing.LineInput{
			{ProductID: &a.ID, Quantity: 20, UnitPrice: decimal.NewFromInt(1)},
			{ProductName: "New", SKU: "N", Quantity: 4, UnitPrice: decimal.RequireFromString("2.25")},
		},
	})
	require.NoError(t, err)
	_, err = buying.Approve(ctx, actor, po.ID, "")
	require.NoError(t, err)
	_, err = buying.Receive(ctx, actor, po.ID, purchasing.ReceiveInput{Items: []purchasing.ReceiveLine{
		{ItemID: po.Items[0].ID, QuantityReceived: 15},
		{ItemID: po.Items[1].ID, QuantityReceived: 4},
	}})
	require.NoError(t, err)

	so, err := selling.Create(ctx, actor, sales.OrderInput{
		CustomerName: "Jane",
		Items:        []sales.LineInput{{ProductID: a.ID, Quantity: 5}, {SKU: "N", Quantity: 1}},
		Status:       models.SaleStatusConfirmed,
	})
	require.NoError(t, err)
	cancelled, err := selling.Create(ctx, actor, sales.OrderInput{CustomerName: "Joe", Items: []sales.LineInput{{ProductID: a.ID, Quantity: 2}}})
	require.NoError(t, err)
	_, err = selling.Cancel(ctx, actor, cancelled.ID, "")
	require.NoError(t, err)

	_, err = shipper.Create(ctx, actor, shipping.CreateInput{SalesOrderID: so.ID, Carrier: "UPS"})
	require.NoError(t, err)
	return st
}

func TestCleanStateHasNoFindings(t *testing.T) {
	st := populate(t)
	m := metrics.New()

	rep, err := NewChecker(st, nil, m).Run(context.Background())
	require.NoError(t, err)
	assert.True(t, rep.OK(), "%+v", rep.Findings)
	assert.Equal(t, 2, rep.Scanned["inventory_items"])
	assert.Equal(t, 1, rep.Scanned["receipts"])
	assert.Equal(t, 1, rep.Scanned["shipments"])
	assert.False(t, rep.FinishedAt.Before(rep.StartedAt))
}

func TestDetectsUnjournaledStockChange(t *testing.T) {
	st := populate(t)
	m := metrics.New()

	require.NoError(t, st.Do(context.Background(), func(tx store.Tx) error {
		it, err := tx.Inventory().FindBySKU("A")
		if err != nil {
			return err
		}
		it.Quantity += 3
		return tx.Inventory().Save(it)
	}))

	rep, err := NewChecker(st, nil, m).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, rep.Findings, 1)
	assert.Equal(t, CheckJournalBalance, rep.Findings[0].Check)
	assert.Equal(t, "inventory_item", rep.Findings[0].Entity)

	expected := `
# HELP warehouse_reconciliation_discrepancies Discrepancies found by the last reconciliation run, by check.
# TYPE warehouse_reconciliation_discrepancies gauge
warehouse_reconciliation_discrepancies{check="journal_balance"} 1
warehouse_reconciliation_discrepancies{check="negative_stock"} 0
warehouse_reconciliation_discrepancies{check="over_receipt"} 0
warehouse_reconciliation_discrepancies{check="pending_quantity"} 0
warehouse_reconciliation_discrepancies{check="receipt_quantities"} 0
warehouse_reconciliation_discrepancies{check="receipt_total"} 0
warehouse_reconciliation_discrepancies{check="receiving_status"} 0
warehouse_reconciliation_discrepancies{check="shipment_per_order"} 0
`
	assert.NoError(t, testutil.GatherAndCompare(m.Registry, strings.NewReader(expected), "warehouse_reconciliation_discrepancies"))
}

func TestDetectsReceiptDrift(t *testing.T) {
	st := populate(t)

	require.NoError(t, st.Do(context.Background(), func(tx store.Tx) error {
		orders, _, err := tx.PurchaseOrders().List(store.ListOptions{})
		if err != nil {
			return err
		}
		po := &orders[0]
		po.Items[0].ReceivedQuantity = 16
		return tx.PurchaseOrders().Save(po)
	}))

	rep, err := NewChecker(st, nil, nil).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, rep.Findings, 1)
	assert.Equal(t, CheckReceiptQuantities, rep.Findings[0].Check)
	assert.Contains(t, rep.Findings[0].Message, "receipts sum to 15")
}

type busyGuard struct{}

func (busyGuard) Acquire(context.Context) (func(), error) {
	return nil, apperr.Conflict("reconciliation is already running")
}

func TestGuardBlocksConcurrentRuns(t *testing.T) {
	st := populate(t)
	_, err := NewChecker(st, busyGuard{}, nil).Run(context.Background())
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestRedisGuardUnreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 100 * time.Millisecond,
	})
	defer client.Close()

	g := NewRedisGuard(redislock.New(client), "lock:reconcile", time.Second)
	_, err := g.Acquire(context.Background())
	assert.ErrorIs(t, err, apperr.ErrPersistence)
}
