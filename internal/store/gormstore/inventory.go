package gormstore

import (
	"warehouse-backend/internal/models"
	"warehouse-backend/internal/store"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type inventoryRepo struct {
	db *gorm.DB
}

var inventorySort = []string{"id", "sku", "name", "type", "quantity", "rate", "created_at", "updated_at"}

func (r inventoryRepo) Get(id uint) (*models.InventoryItem, error) {
	var item models.InventoryItem
	if err := r.db.Preload("LocationStock", byID).First(&item, id).Error; err != nil {
		return nil, notFound(err, "inventory item", id)
	}
	return &item, nil
}

func (r inventoryRepo) GetForUpdate(ref models.ItemRef) (*models.InventoryItem, error) {
	q := locked(r.db)
	if ref.ID != 0 {
		q = q.Where("id = ?", ref.ID)
	} else {
		q = q.Where("sku = ?", ref.SKU)
	}
	var item models.InventoryItem
	if err := q.First(&item).Error; err != nil {
		return nil, notFound(err, "inventory item", ref.String())
	}
	if err := r.db.Where("inventory_item_id = ?", item.ID).Order("id").Find(&item.LocationStock).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r inventoryRepo) FindBySKU(sku string) (*models.InventoryItem, error) {
	var item models.InventoryItem
	if err := r.db.Preload("LocationStock", byID).Where("sku = ?", sku).First(&item).Error; err != nil {
		return nil, notFound(err, "inventory item", sku)
	}
	return &item, nil
}

func (r inventoryRepo) Create(item *models.InventoryItem) error {
	return translate(r.db.Create(item).Error)
}

func (r inventoryRepo) Save(item *models.InventoryItem) error {
	if err := r.db.Omit(clause.Associations).Save(item).Error; err != nil {
		return translate(err)
	}
	for i := range item.LocationStock {
		ls := &item.LocationStock[i]
		ls.InventoryItemID = item.ID
		if err := r.db.Save(ls).Error; err != nil {
			return translate(err)
		}
	}
	return nil
}

func (r inventoryRepo) Delete(id uint) error {
	res := r.db.Delete(&models.InventoryItem{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound(gorm.ErrRecordNotFound, "inventory item", id)
	}
	return nil
}

func (r inventoryRepo) List(opts store.ListOptions) ([]models.InventoryItem, int64, error) {
	q := r.db.Model(&models.InventoryItem{})
	if opts.Search != "" {
		q = q.Where("sku ILIKE ? OR name ILIKE ?", like(opts.Search), like(opts.Search))
	}
	if opts.Status != "" {
		q = q.Where("type = ?", opts.Status)
	}
	if opts.LowStock != nil {
		q = q.Where("quantity <= ?", *opts.LowStock)
	}
	q = q.Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var items []models.InventoryItem
	err := q.Preload("LocationStock", byID).Scopes(page(opts, inventorySort, "id")).Find(&items).Error
	return items, total, err
}

func (r inventoryRepo) OpenReferences(id uint) (int64, error) {
	var poRefs, saleRefs int64
	err := r.db.Model(&models.PurchaseOrderItem{}).
		Joins("JOIN purchase_orders ON purchase_orders.id = purchase_order_items.purchase_order_id").
		Where("purchase_order_items.product_id = ?", id).
		Where("purchase_orders.status NOT IN ?", []models.PurchaseOrderStatus{
			models.POStatusReceived, models.POStatusClosed, models.POStatusCancelled,
		}).
		Count(&poRefs).Error
	if err != nil {
		return 0, err
	}
	err = r.db.Model(&models.SaleOrderItem{}).
		Joins("JOIN sale_orders ON sale_orders.id = sale_order_items.sale_order_id").
		Where("sale_order_items.product_id = ?", id).
		Where("sale_orders.status <> ?", models.SaleStatusCancelled).
		Count(&saleRefs).Error
	return poRefs + saleRefs, err
}

type movementRepo struct {
	db *gorm.DB
}

func (r movementRepo) Record(m *models.StockMovement) error {
	return r.db.Create(m).Error
}

func (r movementRepo) ListByItem(itemID uint, opts store.ListOptions) ([]models.StockMovement, int64, error) {
	q := r.db.Model(&models.StockMovement{}).Where("inventory_item_id = ?", itemID)
	if opts.Status != "" {
		q = q.Where("reason = ?", opts.Status)
	}
	q = q.Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if opts.Sort == "" {
		opts.Desc = true
	}
	var rows []models.StockMovement
	err := q.Scopes(page(opts, []string{"id", "created_at", "delta"}, "id")).Find(&rows).Error
	return rows, total, err
}

func (r movementRepo) SumByItem() (map[uint]int, error) {
	var rows []struct {
		InventoryItemID uint
		Total           int
	}
	err := r.db.Model(&models.StockMovement{}).
		Select("inventory_item_id, COALESCE(SUM(delta), 0) AS total").
		Group("inventory_item_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[uint]int, len(rows))
	for _, row := range rows {
		out[row.InventoryItemID] = row.Total
	}
	return out, nil
}
