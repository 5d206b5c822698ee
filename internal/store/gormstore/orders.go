package gormstore

import (
	"warehouse-backend/internal/models"
	"warehouse-backend/internal/store"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type purchaseOrderRepo struct {
	db *gorm.DB
}

var purchaseOrderSort = []string{"id", "po_number", "vendor_name", "order_date", "total", "status", "created_at"}

func (r purchaseOrderRepo) load(q *gorm.DB, id uint) (*models.PurchaseOrder, error) {
	var po models.PurchaseOrder
	if err := q.First(&po, id).Error; err != nil {
		return nil, notFound(err, "purchase order", id)
	}
	if err := r.db.Where("purchase_order_id = ?", po.ID).Order("id").Find(&po.Items).Error; err != nil {
		return nil, err
	}
	if err := r.db.Where("purchase_order_id = ?", po.ID).Order("id").Find(&po.StatusHistory).Error; err != nil {
		return nil, err
	}
	return &po, nil
}

func (r purchaseOrderRepo) Get(id uint) (*models.PurchaseOrder, error) {
	return r.load(r.db, id)
}

func (r purchaseOrderRepo) GetForUpdate(id uint) (*models.PurchaseOrder, error) {
	return r.load(locked(r.db), id)
}

func (r purchaseOrderRepo) Create(po *models.PurchaseOrder) error {
	po.Derive()
	return translate(r.db.Create(po).Error)
}

func (r purchaseOrderRepo) Save(po *models.PurchaseOrder) error {
	po.Derive()
	if err := r.db.Omit(clause.Associations).Save(po).Error; err != nil {
		return translate(err)
	}

	// lines replaced during a draft edit
	keep := make([]uint, 0, len(po.Items))
	for i := range po.Items {
		if po.Items[i].ID != 0 {
			keep = append(keep, po.Items[i].ID)
		}
	}
	del := r.db.Where("purchase_order_id = ?", po.ID)
	if len(keep) > 0 {
		del = del.Where("id NOT IN ?", keep)
	}
	if err := del.Delete(&models.PurchaseOrderItem{}).Error; err != nil {
		return err
	}
	for i := range po.Items {
		it := &po.Items[i]
		it.PurchaseOrderID = po.ID
		if err := r.db.Save(it).Error; err != nil {
			return translate(err)
		}
	}

	for i := range po.StatusHistory {
		h := &po.StatusHistory[i]
		if h.ID != 0 {
			continue
		}
		h.PurchaseOrderID = po.ID
		if err := r.db.Create(h).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r purchaseOrderRepo) Delete(id uint) error {
	res := r.db.Delete(&models.PurchaseOrder{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound(gorm.ErrRecordNotFound, "purchase order", id)
	}
	return nil
}

func (r purchaseOrderRepo) List(opts store.ListOptions) ([]models.PurchaseOrder, int64, error) {
	q := r.db.Model(&models.PurchaseOrder{})
	if opts.Status != "" {
		q = q.Where("status = ?", opts.Status)
	}
	if opts.Search != "" {
		q = q.Where("po_number ILIKE ? OR vendor_name ILIKE ?", like(opts.Search), like(opts.Search))
	}
	q = q.Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.PurchaseOrder
	err := q.Preload("Items", byID).Scopes(page(opts, purchaseOrderSort, "id")).Find(&rows).Error
	return rows, total, err
}

func (r purchaseOrderRepo) CountByStatus() (map[string]int64, error) {
	return countByStatus(r.db, &models.PurchaseOrder{})
}

type receiptRepo struct {
	db *gorm.DB
}

func (r receiptRepo) load(q *gorm.DB, id uint) (*models.ReceivingReceipt, error) {
	var rc models.ReceivingReceipt
	if err := q.First(&rc, id).Error; err != nil {
		return nil, notFound(err, "receipt", id)
	}
	if err := r.db.Where("receipt_id = ?", rc.ID).Order("id").Find(&rc.Lines).Error; err != nil {
		return nil, err
	}
	return &rc, nil
}

func (r receiptRepo) Get(id uint) (*models.ReceivingReceipt, error) {
	return r.load(r.db, id)
}

func (r receiptRepo) GetForUpdate(id uint) (*models.ReceivingReceipt, error) {
	return r.load(locked(r.db), id)
}

func (r receiptRepo) Create(rc *models.ReceivingReceipt) error {
	return translate(r.db.Create(rc).Error)
}

func (r receiptRepo) SaveReview(rc *models.ReceivingReceipt) error {
	return r.db.Model(rc).
		Select("status", "reviewed_by", "reviewed_at", "review_notes", "updated_at").
		Updates(rc).Error
}

func (r receiptRepo) ListByPurchaseOrder(poID uint) ([]models.ReceivingReceipt, error) {
	var rows []models.ReceivingReceipt
	err := r.db.Preload("Lines", byID).Where("purchase_order_id = ?", poID).Order("id").Find(&rows).Error
	return rows, err
}

func (r receiptRepo) CountByPurchaseOrder(poID uint) (int64, error) {
	var n int64
	err := r.db.Model(&models.ReceivingReceipt{}).Where("purchase_order_id = ?", poID).Count(&n).Error
	return n, err
}

func (r receiptRepo) List(opts store.ListOptions) ([]models.ReceivingReceipt, int64, error) {
	q := r.db.Model(&models.ReceivingReceipt{})
	if opts.Status != "" {
		q = q.Where("status = ?", opts.Status)
	}
	if opts.ParentID != 0 {
		q = q.Where("purchase_order_id = ?", opts.ParentID)
	}
	if opts.Search != "" {
		q = q.Where("receipt_number ILIKE ? OR po_number ILIKE ?", like(opts.Search), like(opts.Search))
	}
	q = q.Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.ReceivingReceipt
	err := q.Preload("Lines", byID).
		Scopes(page(opts, []string{"id", "receipt_number", "received_at", "total_value", "status"}, "id")).
		Find(&rows).Error
	return rows, total, err
}

type saleOrderRepo struct {
	db *gorm.DB
}

var saleOrderSort = []string{"id", "order_number", "customer_name", "total", "status", "created_at"}

func (r saleOrderRepo) load(q *gorm.DB, id uint) (*models.SaleOrder, error) {
	var so models.SaleOrder
	if err := q.First(&so, id).Error; err != nil {
		return nil, notFound(err, "sale order", id)
	}
	if err := r.db.Where("sale_order_id = ?", so.ID).Order("id").Find(&so.Items).Error; err != nil {
		return nil, err
	}
	return &so, nil
}

func (r saleOrderRepo) Get(id uint) (*models.SaleOrder, error) {
	return r.load(r.db, id)
}

func (r saleOrderRepo) GetForUpdate(id uint) (*models.SaleOrder, error) {
	return r.load(locked(r.db), id)
}

func (r saleOrderRepo) Create(so *models.SaleOrder) error {
	return translate(r.db.Create(so).Error)
}

func (r saleOrderRepo) Save(so *models.SaleOrder) error {
	return translate(r.db.Omit(clause.Associations).Save(so).Error)
}

func (r saleOrderRepo) List(opts store.ListOptions) ([]models.SaleOrder, int64, error) {
	q := r.db.Model(&models.SaleOrder{})
	if opts.Status != "" {
		q = q.Where("status = ?", opts.Status)
	}
	if opts.Search != "" {
		q = q.Where("order_number ILIKE ? OR customer_name ILIKE ?", like(opts.Search), like(opts.Search))
	}
	q = q.Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.SaleOrder
	err := q.Preload("Items", byID).Scopes(page(opts, saleOrderSort, "id")).Find(&rows).Error
	return rows, total, err
}

func (r saleOrderRepo) CountByStatus() (map[string]int64, error) {
	return countByStatus(r.db, &models.SaleOrder{})
}

type shipmentRepo struct {
	db *gorm.DB
}

var shipmentSort = []string{"id", "shipment_number", "carrier", "status", "created_at"}

func (r shipmentRepo) load(q *gorm.DB, where string, arg any, label any) (*models.Shipment, error) {
	var s models.Shipment
	if err := q.Where(where, arg).First(&s).Error; err != nil {
		return nil, notFound(err, "shipment", label)
	}
	if err := r.db.Where("shipment_id = ?", s.ID).Order("id").Find(&s.Items).Error; err != nil {
		return nil, err
	}
	if err := r.db.Where("shipment_id = ?", s.ID).Order("id").Find(&s.TrackingHistory).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r shipmentRepo) Get(id uint) (*models.Shipment, error) {
	return r.load(r.db, "id = ?", id, id)
}

func (r shipmentRepo) GetForUpdate(id uint) (*models.Shipment, error) {
	return r.load(locked(r.db), "id = ?", id, id)
}

func (r shipmentRepo) FindBySalesOrder(salesOrderID uint) (*models.Shipment, error) {
	return r.load(r.db, "sales_order_id = ?", salesOrderID, "for sale order "+uintLabel(salesOrderID))
}

func (r shipmentRepo) Create(s *models.Shipment) error {
	return translate(r.db.Create(s).Error)
}

func (r shipmentRepo) Save(s *models.Shipment) error {
	if err := r.db.Omit(clause.Associations).Save(s).Error; err != nil {
		return translate(err)
	}
	for i := range s.TrackingHistory {
		ev := &s.TrackingHistory[i]
		if ev.ID != 0 {
			continue
		}
		ev.ShipmentID = s.ID
		if err := r.db.Create(ev).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r shipmentRepo) Delete(id uint) error {
	res := r.db.Delete(&models.Shipment{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound(gorm.ErrRecordNotFound, "shipment", id)
	}
	return nil
}

func (r shipmentRepo) List(opts store.ListOptions) ([]models.Shipment, int64, error) {
	q := r.db.Model(&models.Shipment{})
	if opts.Status != "" {
		q = q.Where("status = ?", opts.Status)
	}
	if opts.ParentID != 0 {
		q = q.Where("sales_order_id = ?", opts.ParentID)
	}
	if opts.Search != "" {
		q = q.Where("shipment_number ILIKE ? OR tracking_number ILIKE ? OR order_number ILIKE ?",
			like(opts.Search), like(opts.Search), like(opts.Search))
	}
	q = q.Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.Shipment
	err := q.Preload("Items", byID).Scopes(page(opts, shipmentSort, "id")).Find(&rows).Error
	return rows, total, err
}

func (r shipmentRepo) CountByStatus() (map[string]int64, error) {
	return countByStatus(r.db, &models.Shipment{})
}
