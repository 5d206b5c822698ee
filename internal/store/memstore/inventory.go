package memstore

import (
	"cmp"
	"strings"

	"warehouse-backend/internal/apperr"
	"warehouse-backend/internal/models"
	"warehouse-backend/internal/store"
)

type inventoryRepo struct {
	st *state
}

func (r inventoryRepo) Get(id uint) (*models.InventoryItem, error) {
	item, ok := r.st.items[id]
	if !ok {
		return nil, apperr.NotFound("inventory item", id)
	}
	return cloneItem(item), nil
}

func (r inventoryRepo) GetForUpdate(ref models.ItemRef) (*models.InventoryItem, error) {
	id := ref.ID
	if id == 0 {
		id = r.st.skus[ref.SKU]
	}
	item, ok := r.st.items[id]
	if !ok {
		return nil, apperr.NotFound("inventory item", ref.String())
	}
	return cloneItem(item), nil
}

func (r inventoryRepo) FindBySKU(sku string) (*models.InventoryItem, error) {
	id, ok := r.st.skus[sku]
	if !ok {
		return nil, apperr.NotFound("inventory item", sku)
	}
	return cloneItem(r.st.items[id]), nil
}

func (r inventoryRepo) Create(item *models.InventoryItem) error {
	if r.st.readOnly {
		return errReadOnly
	}
	if _, dup := r.st.skus[item.SKU]; dup {
		return apperr.Conflict("sku %s already exists", item.SKU)
	}
	if item.Quantity < 0 {
		return errNegativeQuantity
	}
	r.st.ids.item++
	item.ID = r.st.ids.item
	touch(&item.CreatedAt, &item.UpdatedAt)
	r.assignLocations(item)
	r.st.items[item.ID] = cloneItem(item)
	r.st.skus[item.SKU] = item.ID
	return nil
}

func (r inventoryRepo) Save(item *models.InventoryItem) error {
	if r.st.readOnly {
		return errReadOnly
	}
	prev, ok := r.st.items[item.ID]
	if !ok {
		return apperr.NotFound("inventory item", item.ID)
	}
	if item.Quantity < 0 {
		return errNegativeQuantity
	}
	for _, ls := range item.LocationStock {
		if ls.Quantity < 0 {
			return errNegativeQuantity
		}
	}
	if prev.SKU != item.SKU {
		if _, dup := r.st.skus[item.SKU]; dup {
			return apperr.Conflict("sku %s already exists", item.SKU)
		}
		delete(r.st.skus, prev.SKU)
		r.st.skus[item.SKU] = item.ID
	}
	item.CreatedAt = prev.CreatedAt
	touch(nil, &item.UpdatedAt)
	r.assignLocations(item)
	r.st.items[item.ID] = cloneItem(item)
	return nil
}

func (r inventoryRepo) assignLocations(item *models.InventoryItem) {
	for i := range item.LocationStock {
		ls := &item.LocationStock[i]
		ls.InventoryItemID = item.ID
		if ls.ID == 0 {
			r.st.ids.location++
			ls.ID = r.st.ids.location
		}
		touch(nil, &ls.UpdatedAt)
	}
}

func (r inventoryRepo) Delete(id uint) error {
	if r.st.readOnly {
		return errReadOnly
	}
	item, ok := r.st.items[id]
	if !ok {
		return apperr.NotFound("inventory item", id)
	}
	delete(r.st.skus, item.SKU)
	delete(r.st.items, id)
	return nil
}

func (r inventoryRepo) List(opts store.ListOptions) ([]models.InventoryItem, int64, error) {
	search := strings.ToLower(opts.Search)
	var rows []models.InventoryItem
	for _, it := range r.st.items {
		if opts.Status != "" && it.Type != opts.Status {
			continue
		}
		if opts.LowStock != nil && it.Quantity > *opts.LowStock {
			continue
		}
		if search != "" && !contains(search, it.SKU, it.Name) {
			continue
		}
		rows = append(rows, *cloneItem(it))
	}
	total := int64(len(rows))
	col := opts.SortColumn([]string{"id", "sku", "name", "quantity", "created_at"}, "id")
	return window(rows, opts, func(a, b models.InventoryItem) int {
		switch col {
		case "sku":
			return strings.Compare(a.SKU, b.SKU)
		case "name":
			return strings.Compare(a.Name, b.Name)
		case "quantity":
			return cmp.Compare(a.Quantity, b.Quantity)
		case "created_at":
			return a.CreatedAt.Compare(b.CreatedAt)
		}
		return cmp.Compare(a.ID, b.ID)
	}), total, nil
}

func (r inventoryRepo) OpenReferences(id uint) (int64, error) {
	var n int64
	for _, po := range r.st.pos {
		if po.Status.Terminal() || po.Status == models.POStatusReceived {
			continue
		}
		for _, it := range po.Items {
			if it.ProductID != nil && *it.ProductID == id {
				n++
			}
		}
	}
	for _, so := range r.st.sales {
		if so.Status == models.SaleStatusCancelled {
			continue
		}
		for _, it := range so.Items {
			if it.ProductID == id {
				n++
			}
		}
	}
	return n, nil
}

type movementRepo struct {
	st *state
}

func (r movementRepo) Record(m *models.StockMovement) error {
	if r.st.readOnly {
		return errReadOnly
	}
	r.st.ids.movement++
	m.ID = r.st.ids.movement
	touch(&m.CreatedAt, nil)
	r.st.movements = append(r.st.movements, *m)
	return nil
}

func (r movementRepo) ListByItem(itemID uint, opts store.ListOptions) ([]models.StockMovement, int64, error) {
	var rows []models.StockMovement
	for _, m := range r.st.movements {
		if m.InventoryItemID != itemID {
			continue
		}
		if opts.Status != "" && string(m.Reason) != opts.Status {
			continue
		}
		rows = append(rows, m)
	}
	if opts.Sort == "" {
		opts.Desc = true
	}
	total := int64(len(rows))
	return window(rows, opts, func(a, b models.StockMovement) int {
		return cmp.Compare(a.ID, b.ID)
	}), total, nil
}

func (r movementRepo) SumByItem() (map[uint]int, error) {
	out := map[uint]int{}
	for _, m := range r.st.movements {
		out[m.InventoryItemID] += m.Delta
	}
	return out, nil
}

func contains(needle string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}
