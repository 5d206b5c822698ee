// Package reconcile re-derives every stored quantity and total and reports the rows that disagree.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"warehouse-backend/internal/metrics"
	"warehouse-backend/internal/models"
	"warehouse-backend/internal/observability"
	"warehouse-backend/internal/store"

	"github.com/shopspring/decimal"
)

const (
	CheckNegativeStock     = "negative_stock"
	CheckJournalBalance    = "journal_balance"
	CheckOverReceipt       = "over_receipt"
	CheckPendingQuantity   = "pending_quantity"
	CheckReceivingStatus   = "receiving_status"
	CheckReceiptTotal      = "receipt_total"
	CheckReceiptQuantities = "receipt_quantities"
	CheckShipmentPerOrder  = "shipment_per_order"
)

var Checks = []string{
	CheckNegativeStock, CheckJournalBalance, CheckOverReceipt, CheckPendingQuantity,
	CheckReceivingStatus, CheckReceiptTotal, CheckReceiptQuantities, CheckShipmentPerOrder,
}

type Finding struct {
	Check    string `json:"check"`
	Entity   string `json:"entity"`
	EntityID uint   `json:"entity_id"`
	Message  string `json:"message"`
}

type Report struct {
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Scanned    map[string]int `json:"scanned"`
	Findings   []Finding      `json:"findings"`
}

func (r *Report) OK() bool { return len(r.Findings) == 0 }

func (r *Report) add(check, entity string, id uint, format string, args ...any) {
	r.Findings = append(r.Findings, Finding{Check: check, Entity: entity, EntityID: id, Message: fmt.Sprintf(format, args...)})
}

func (r *Report) count(check string) int {
	n := 0
	for _, f := range r.Findings {
		if f.Check == check {
			n++
		}
	}
	return n
}

type Checker struct {
	uow     store.UnitOfWork
	guard   Guard
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewChecker builds a checker. A nil guard runs without cross-instance locking.
func NewChecker(uow store.UnitOfWork, guard Guard, m *metrics.Metrics) *Checker {
	if guard == nil {
		guard = NoGuard{}
	}
	return &Checker{uow: uow, guard: guard, metrics: m, now: time.Now}
}

// Run reads everything in one transaction so the checks see a single consistent state.
func (c *Checker) Run(ctx context.Context) (rep *Report, err error) {
	ctx, done := observability.Track(ctx, c.metrics, "reconciliation", "run")
	defer func() { done(err) }()

	release, err := c.guard.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	rep = &Report{StartedAt: c.now(), Scanned: map[string]int{}, Findings: []Finding{}}
	err = c.uow.View(ctx, func(tx store.Tx) error {
		if err := checkLedger(tx, rep); err != nil {
			return err
		}
		if err := checkPurchasing(tx, rep); err != nil {
			return err
		}
		return checkShipments(tx, rep)
	})
	if err != nil {
		return nil, err
	}
	rep.FinishedAt = c.now()

	for _, check := range Checks {
		c.metrics.Discrepancies(check, rep.count(check))
	}
	return rep, nil
}

func checkLedger(tx store.Tx, rep *Report) error {
	items, _, err := tx.Inventory().List(store.ListOptions{})
	if err != nil {
		return err
	}
	sums, err := tx.Movements().SumByItem()
	if err != nil {
		return err
	}
	rep.Scanned["inventory_items"] = len(items)
	for _, it := range items {
		if it.Quantity < 0 {
			rep.add(CheckNegativeStock, "inventory_item", it.ID, "%s has quantity %d", it.SKU, it.Quantity)
		}
		if sum := sums[it.ID]; sum != it.Quantity {
			rep.add(CheckJournalBalance, "inventory_item", it.ID, "%s has quantity %d but movements sum to %d", it.SKU, it.Quantity, sum)
		}
	}
	return nil
}

func checkPurchasing(tx store.Tx, rep *Report) error {
	orders, _, err := tx.PurchaseOrders().List(store.ListOptions{})
	if err != nil {
		return err
	}
	receipts, _, err := tx.Receipts().List(store.ListOptions{})
	if err != nil {
		return err
	}
	rep.Scanned["purchase_orders"] = len(orders)
	rep.Scanned["receipts"] = len(receipts)

	receivedByLine := map[uint]int{}
	for _, rc := range receipts {
		total := decimal.Zero
		for _, l := range rc.Lines {
			if want := l.UnitPrice.Mul(decimal.NewFromInt(int64(l.QuantityReceived))); !want.Equal(l.TotalValue) {
				rep.add(CheckReceiptTotal, "receipt", rc.ID, "%s line %d value %s, expected %s", rc.ReceiptNumber, l.ID, l.TotalValue, want)
			}
			total = total.Add(l.TotalValue)
			receivedByLine[l.PurchaseOrderItemID] += l.QuantityReceived
		}
		if !total.Equal(rc.TotalValue) {
			rep.add(CheckReceiptTotal, "receipt", rc.ID, "%s total %s, lines sum to %s", rc.ReceiptNumber, rc.TotalValue, total)
		}
	}

	for _, po := range orders {
		for _, it := range po.Items {
			if it.ReceivedQuantity > it.Quantity {
				rep.add(CheckOverReceipt, "purchase_order", po.ID, "%s line %d received %d of %d", po.PONumber, it.ID, it.ReceivedQuantity, it.Quantity)
			}
			if it.PendingQuantity != it.Quantity-it.ReceivedQuantity {
				rep.add(CheckPendingQuantity, "purchase_order", po.ID, "%s line %d pending %d, expected %d", po.PONumber, it.ID, it.PendingQuantity, it.Quantity-it.ReceivedQuantity)
			}
			if got := receivedByLine[it.ID]; got != it.ReceivedQuantity {
				rep.add(CheckReceiptQuantities, "purchase_order", po.ID, "%s line %d received %d, receipts sum to %d", po.PONumber, it.ID, it.ReceivedQuantity, got)
			}
		}
		if want := models.DeriveReceivingStatus(po.Items); want != po.ReceivingStatus {
			rep.add(CheckReceivingStatus, "purchase_order", po.ID, "%s is %q, items say %q", po.PONumber, po.ReceivingStatus, want)
		}
	}
	return nil
}

func checkShipments(tx store.Tx, rep *Report) error {
	shipments, _, err := tx.Shipments().List(store.ListOptions{})
	if err != nil {
		return err
	}
	rep.Scanned["shipments"] = len(shipments)
	seen := map[uint]string{}
	for _, sh := range shipments {
		if prev, dup := seen[sh.SalesOrderID]; dup {
			rep.add(CheckShipmentPerOrder, "shipment", sh.ID, "sale order %d shipped by both %s and %s", sh.SalesOrderID, prev, sh.ShipmentNumber)
			continue
		}
		seen[sh.SalesOrderID] = sh.ShipmentNumber
	}
	return nil
}
