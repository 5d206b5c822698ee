package memstore

import (
	"cmp"
	"strings"

	"warehouse-backend/internal/apperr"
	"warehouse-backend/internal/models"
	"warehouse-backend/internal/store"
)

type purchaseOrderRepo struct {
	st *state
}

func (r purchaseOrderRepo) Get(id uint) (*models.PurchaseOrder, error) {
	po, ok := r.st.pos[id]
	if !ok {
		return nil, apperr.NotFound("purchase order", id)
	}
	return clonePO(po), nil
}

func (r purchaseOrderRepo) GetForUpdate(id uint) (*models.PurchaseOrder, error) {
	return r.Get(id)
}

func (r purchaseOrderRepo) Create(po *models.PurchaseOrder) error {
	if r.st.readOnly {
		return errReadOnly
	}
	for _, other := range r.st.pos {
		if other.PONumber == po.PONumber {
			return apperr.Conflict("po number %s already exists", po.PONumber)
		}
	}
	po.Derive()
	r.st.ids.po++
	po.ID = r.st.ids.po
	touch(&po.CreatedAt, &po.UpdatedAt)
	r.assignItems(po)
	for i := range po.StatusHistory {
		r.st.ids.poHistory++
		po.StatusHistory[i].ID = r.st.ids.poHistory
		po.StatusHistory[i].PurchaseOrderID = po.ID
	}
	r.st.pos[po.ID] = clonePO(po)
	return nil
}

func (r purchaseOrderRepo) Save(po *models.PurchaseOrder) error {
	if r.st.readOnly {
		return errReadOnly
	}
	prev, ok := r.st.pos[po.ID]
	if !ok {
		return apperr.NotFound("purchase order", po.ID)
	}
	po.Derive()
	po.CreatedAt = prev.CreatedAt
	touch(nil, &po.UpdatedAt)
	r.assignItems(po)

	// history rows are never rewritten: keep the stored ones, append the new ones
	history := prev.StatusHistory
	for _, h := range po.StatusHistory {
		if h.ID != 0 {
			continue
		}
		r.st.ids.poHistory++
		h.ID = r.st.ids.poHistory
		h.PurchaseOrderID = po.ID
		history = append(history, h)
	}
	po.StatusHistory = history
	r.st.pos[po.ID] = clonePO(po)
	return nil
}

func (r purchaseOrderRepo) assignItems(po *models.PurchaseOrder) {
	for i := range po.Items {
		it := &po.Items[i]
		it.PurchaseOrderID = po.ID
		if it.ID == 0 {
			r.st.ids.poItem++
			it.ID = r.st.ids.poItem
		}
	}
}

func (r purchaseOrderRepo) Delete(id uint) error {
	if r.st.readOnly {
		return errReadOnly
	}
	if _, ok := r.st.pos[id]; !ok {
		return apperr.NotFound("purchase order", id)
	}
	delete(r.st.pos, id)
	return nil
}

func (r purchaseOrderRepo) List(opts store.ListOptions) ([]models.PurchaseOrder, int64, error) {
	search := strings.ToLower(opts.Search)
	var rows []models.PurchaseOrder
	for _, po := range r.st.pos {
		if opts.Status != "" && string(po.Status) != opts.Status {
			continue
		}
		if search != "" && !contains(search, po.PONumber, po.VendorName) {
			continue
		}
		rows = append(rows, *clonePO(po))
	}
	total := int64(len(rows))
	col := opts.SortColumn([]string{"id", "po_number", "vendor_name", "order_date", "total", "created_at"}, "id")
	return window(rows, opts, func(a, b models.PurchaseOrder) int {
		switch col {
		case "po_number":
			return strings.Compare(a.PONumber, b.PONumber)
		case "vendor_name":
			return strings.Compare(a.VendorName, b.VendorName)
		case "order_date":
			return a.OrderDate.Compare(b.OrderDate)
		case "total":
			return a.Total.Cmp(b.Total)
		case "created_at":
			return a.CreatedAt.Compare(b.CreatedAt)
		}
		return cmp.Compare(a.ID, b.ID)
	}), total, nil
}

func (r purchaseOrderRepo) CountByStatus() (map[string]int64, error) {
	out := map[string]int64{}
	for _, po := range r.st.pos {
		out[string(po.Status)]++
	}
	return out, nil
}

type receiptRepo struct {
	st *state
}

func (r receiptRepo) Get(id uint) (*models.ReceivingReceipt, error) {
	rc, ok := r.st.receipts[id]
	if !ok {
		return nil, apperr.NotFound("receipt", id)
	}
	return cloneReceipt(rc), nil
}

func (r receiptRepo) GetForUpdate(id uint) (*models.ReceivingReceipt, error) {
	return r.Get(id)
}

func (r receiptRepo) Create(rc *models.ReceivingReceipt) error {
	if r.st.readOnly {
		return errReadOnly
	}
	for _, other := range r.st.receipts {
		if other.ReceiptNumber == rc.ReceiptNumber {
			return apperr.Conflict("receipt number %s already exists", rc.ReceiptNumber)
		}
	}
	r.st.ids.receipt++
	rc.ID = r.st.ids.receipt
	touch(&rc.CreatedAt, &rc.UpdatedAt)
	for i := range rc.Lines {
		r.st.ids.receiptLine++
		rc.Lines[i].ID = r.st.ids.receiptLine
		rc.Lines[i].ReceiptID = rc.ID
	}
	r.st.receipts[rc.ID] = cloneReceipt(rc)
	return nil
}

func (r receiptRepo) SaveReview(rc *models.ReceivingReceipt) error {
	if r.st.readOnly {
		return errReadOnly
	}
	stored, ok := r.st.receipts[rc.ID]
	if !ok {
		return apperr.NotFound("receipt", rc.ID)
	}
	stored.Status = rc.Status
	stored.ReviewedBy = rc.ReviewedBy
	stored.ReviewedAt = rc.ReviewedAt
	stored.ReviewNotes = rc.ReviewNotes
	touch(nil, &stored.UpdatedAt)
	rc.UpdatedAt = stored.UpdatedAt
	return nil
}

func (r receiptRepo) ListByPurchaseOrder(poID uint) ([]models.ReceivingReceipt, error) {
	rows, _, err := r.List(store.ListOptions{ParentID: poID})
	return rows, err
}

func (r receiptRepo) CountByPurchaseOrder(poID uint) (int64, error) {
	var n int64
	for _, rc := range r.st.receipts {
		if rc.PurchaseOrderID == poID {
			n++
		}
	}
	return n, nil
}

func (r receiptRepo) List(opts store.ListOptions) ([]models.ReceivingReceipt, int64, error) {
	search := strings.ToLower(opts.Search)
	var rows []models.ReceivingReceipt
	for _, rc := range r.st.receipts {
		if opts.ParentID != 0 && rc.PurchaseOrderID != opts.ParentID {
			continue
		}
		if opts.Status != "" && string(rc.Status) != opts.Status {
			continue
		}
		if search != "" && !contains(search, rc.ReceiptNumber, rc.PONumber) {
			continue
		}
		rows = append(rows, *cloneReceipt(rc))
	}
	total := int64(len(rows))
	col := opts.SortColumn([]string{"id", "receipt_number", "received_at", "total_value"}, "id")
	return window(rows, opts, func(a, b models.ReceivingReceipt) int {
		switch col {
		case "receipt_number":
			return strings.Compare(a.ReceiptNumber, b.ReceiptNumber)
		case "received_at":
			return a.ReceivedAt.Compare(b.ReceivedAt)
		case "total_value":
			return a.TotalValue.Cmp(b.TotalValue)
		}
		return cmp.Compare(a.ID, b.ID)
	}), total, nil
}

type saleOrderRepo struct {
	st *state
}

func (r saleOrderRepo) Get(id uint) (*models.SaleOrder, error) {
	so, ok := r.st.sales[id]
	if !ok {
		return nil, apperr.NotFound("sale order", id)
	}
	return cloneSale(so), nil
}

func (r saleOrderRepo) GetForUpdate(id uint) (*models.SaleOrder, error) {
	return r.Get(id)
}

func (r saleOrderRepo) Create(so *models.SaleOrder) error {
	if r.st.readOnly {
		return errReadOnly
	}
	for _, other := range r.st.sales {
		if other.OrderNumber == so.OrderNumber {
			return apperr.Conflict("order number %s already exists", so.OrderNumber)
		}
	}
	r.st.ids.sale++
	so.ID = r.st.ids.sale
	touch(&so.CreatedAt, &so.UpdatedAt)
	for i := range so.Items {
		r.st.ids.saleItem++
		so.Items[i].ID = r.st.ids.saleItem
		so.Items[i].SaleOrderID = so.ID
	}
	r.st.sales[so.ID] = cloneSale(so)
	return nil
}

func (r saleOrderRepo) Save(so *models.SaleOrder) error {
	if r.st.readOnly {
		return errReadOnly
	}
	prev, ok := r.st.sales[so.ID]
	if !ok {
		return apperr.NotFound("sale order", so.ID)
	}
	next := *so
	next.Items = prev.Items
	next.CreatedAt = prev.CreatedAt
	touch(nil, &next.UpdatedAt)
	so.UpdatedAt = next.UpdatedAt
	r.st.sales[so.ID] = cloneSale(&next)
	return nil
}

func (r saleOrderRepo) List(opts store.ListOptions) ([]models.SaleOrder, int64, error) {
	search := strings.ToLower(opts.Search)
	var rows []models.SaleOrder
	for _, so := range r.st.sales {
		if opts.Status != "" && string(so.Status) != opts.Status {
			continue
		}
		if search != "" && !contains(search, so.OrderNumber, so.CustomerName) {
			continue
		}
		rows = append(rows, *cloneSale(so))
	}
	total := int64(len(rows))
	col := opts.SortColumn([]string{"id", "order_number", "customer_name", "total", "created_at"}, "id")
	return window(rows, opts, func(a, b models.SaleOrder) int {
		switch col {
		case "order_number":
			return strings.Compare(a.OrderNumber, b.OrderNumber)
		case "customer_name":
			return strings.Compare(a.CustomerName, b.CustomerName)
		case "total":
			return a.Total.Cmp(b.Total)
		case "created_at":
			return a.CreatedAt.Compare(b.CreatedAt)
		}
		return cmp.Compare(a.ID, b.ID)
	}), total, nil
}

func (r saleOrderRepo) CountByStatus() (map[string]int64, error) {
	out := map[string]int64{}
	for _, so := range r.st.sales {
		out[string(so.Status)]++
	}
	return out, nil
}

type shipmentRepo struct {
	st *state
}

func (r shipmentRepo) Get(id uint) (*models.Shipment, error) {
	s, ok := r.st.shipments[id]
	if !ok {
		return nil, apperr.NotFound("shipment", id)
	}
	return cloneShipment(s), nil
}

func (r shipmentRepo) GetForUpdate(id uint) (*models.Shipment, error) {
	return r.Get(id)
}

func (r shipmentRepo) FindBySalesOrder(salesOrderID uint) (*models.Shipment, error) {
	for _, s := range r.st.shipments {
		if s.SalesOrderID == salesOrderID {
			return cloneShipment(s), nil
		}
	}
	return nil, apperr.NotFound("shipment for sale order", salesOrderID)
}

func (r shipmentRepo) Create(s *models.Shipment) error {
	if r.st.readOnly {
		return errReadOnly
	}
	for _, other := range r.st.shipments {
		if other.SalesOrderID == s.SalesOrderID {
			return apperr.Conflict("sale order %d already has shipment %s", s.SalesOrderID, other.ShipmentNumber)
		}
		if other.ShipmentNumber == s.ShipmentNumber {
			return apperr.Conflict("shipment number %s already exists", s.ShipmentNumber)
		}
	}
	r.st.ids.shipment++
	s.ID = r.st.ids.shipment
	touch(&s.CreatedAt, &s.UpdatedAt)
	for i := range s.Items {
		r.st.ids.shipmentItem++
		s.Items[i].ID = r.st.ids.shipmentItem
		s.Items[i].ShipmentID = s.ID
	}
	r.appendTracking(s, nil)
	r.st.shipments[s.ID] = cloneShipment(s)
	return nil
}

func (r shipmentRepo) Save(s *models.Shipment) error {
	if r.st.readOnly {
		return errReadOnly
	}
	prev, ok := r.st.shipments[s.ID]
	if !ok {
		return apperr.NotFound("shipment", s.ID)
	}
	s.Items = prev.Items
	s.CreatedAt = prev.CreatedAt
	touch(nil, &s.UpdatedAt)
	r.appendTracking(s, prev.TrackingHistory)
	r.st.shipments[s.ID] = cloneShipment(s)
	return nil
}

// appendTracking keeps stored events as they are and numbers the new ones.
func (r shipmentRepo) appendTracking(s *models.Shipment, stored []models.TrackingEvent) {
	history := stored
	for _, ev := range s.TrackingHistory {
		if ev.ID != 0 {
			continue
		}
		r.st.ids.trackingItem++
		ev.ID = r.st.ids.trackingItem
		ev.ShipmentID = s.ID
		history = append(history, ev)
	}
	s.TrackingHistory = history
}

func (r shipmentRepo) Delete(id uint) error {
	if r.st.readOnly {
		return errReadOnly
	}
	if _, ok := r.st.shipments[id]; !ok {
		return apperr.NotFound("shipment", id)
	}
	delete(r.st.shipments, id)
	return nil
}

func (r shipmentRepo) List(opts store.ListOptions) ([]models.Shipment, int64, error) {
	search := strings.ToLower(opts.Search)
	var rows []models.Shipment
	for _, s := range r.st.shipments {
		if opts.Status != "" && string(s.Status) != opts.Status {
			continue
		}
		if opts.ParentID != 0 && s.SalesOrderID != opts.ParentID {
			continue
		}
		if search != "" && !contains(search, s.ShipmentNumber, s.TrackingNumber, s.OrderNumber) {
			continue
		}
		rows = append(rows, *cloneShipment(s))
	}
	total := int64(len(rows))
	col := opts.SortColumn([]string{"id", "shipment_number", "carrier", "created_at"}, "id")
	return window(rows, opts, func(a, b models.Shipment) int {
		switch col {
		case "shipment_number":
			return strings.Compare(a.ShipmentNumber, b.ShipmentNumber)
		case "carrier":
			return strings.Compare(a.Carrier, b.Carrier)
		case "created_at":
			return a.CreatedAt.Compare(b.CreatedAt)
		}
		return cmp.Compare(a.ID, b.ID)
	}), total, nil
}

func (r shipmentRepo) CountByStatus() (map[string]int64, error) {
	out := map[string]int64{}
	for _, s := range r.st.shipments {
		out[string(s.Status)]++
	}
	return out, nil
}
