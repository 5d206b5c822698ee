package inventory

import (
	"warehouse-backend/internal/auth"
	"warehouse-backend/internal/httpx"
	"warehouse-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GET /api/inventory?q=&type=&low_stock=5&page=&limit=&sort=
func ListItemsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		opts := httpx.ListOptions(c)
		opts.Status = c.Query("type")
		if v := c.Query("low_stock"); v != "" {
			threshold := c.QueryInt("low_stock", 0)
			opts.LowStock = &threshold
		}
		items, total, err := svc.List(c.UserContext(), opts)
		if err != nil {
			return err
		}
		return c.JSON(httpx.NewPage(items, total, opts))
	}
}

// GET /api/inventory/:id
func GetItemHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParseID(c, "id")
		if err != nil {
			return err
		}
		item, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return err
		}
		return c.JSON(item)
	}
}

// POST /api/inventory
func CreateItemHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateItemInput
		if err := httpx.Decode(c, &body); err != nil {
			return err
		}
		item, err := svc.CreateItem(c.UserContext(), auth.ActorFrom(c), body)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(item)
	}
}

// PUT /api/inventory/:id (name, type, rate only; quantity moves through adjust)
func UpdateItemHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParseID(c, "id")
		if err != nil {
			return err
		}
		var body UpdateItemInput
		if err := httpx.Decode(c, &body); err != nil {
			return err
		}
		item, err := svc.UpdateItem(c.UserContext(), auth.ActorFrom(c), id, body)
		if err != nil {
			return err
		}
		return c.JSON(item)
	}
}

// DELETE /api/inventory/:id
func DeleteItemHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParseID(c, "id")
		if err != nil {
			return err
		}
		if err := svc.DeleteItem(c.UserContext(), auth.ActorFrom(c), id); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// POST /api/inventory/:id/adjust  {"delta": -3, "note": "cycle count"}
func AdjustHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParseID(c, "id")
		if err != nil {
			return err
		}
		var body AdjustInput
		if err := httpx.Decode(c, &body); err != nil {
			return err
		}
		item, err := svc.Adjust(c.UserContext(), auth.ActorFrom(c), models.ByID(id), body)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"id":       item.ID,
			"sku":      item.SKU,
			"quantity": item.Quantity,
		})
	}
}

// PUT /api/inventory/:id/locations  {"location_id": "A-01", "quantity": 5, "op": "add"}
func SetLocationStockHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParseID(c, "id")
		if err != nil {
			return err
		}
		var body LocationInput
		if err := httpx.Decode(c, &body); err != nil {
			return err
		}
		item, err := svc.SetLocationStock(c.UserContext(), auth.ActorFrom(c), id, body)
		if err != nil {
			return err
		}
		return c.JSON(item)
	}
}

// GET /api/inventory/:id/movements?status=sale
func ListMovementsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParseID(c, "id")
		if err != nil {
			return err
		}
		opts := httpx.ListOptions(c)
		opts.Status = c.Query("reason", opts.Status)
		rows, total, err := svc.Movements(c.UserContext(), id, opts)
		if err != nil {
			return err
		}
		return c.JSON(httpx.NewPage(rows, total, opts))
	}
}

// Routes mounts the inventory endpoints. Writes need manager or admin.
func Routes(r fiber.Router, svc *Service) {
	write := auth.RequireRole(models.RoleAdmin, models.RoleManager)

	r.Get("/inventory", ListItemsHandler(svc))
	r.Post("/inventory", write, CreateItemHandler(svc))
	r.Get("/inventory/:id", GetItemHandler(svc))
	r.Put("/inventory/:id", write, UpdateItemHandler(svc))
	r.Delete("/inventory/:id", auth.RequireRole(models.RoleAdmin), DeleteItemHandler(svc))
	r.Post("/inventory/:id/adjust", write, AdjustHandler(svc))
	r.Put("/inventory/:id/locations", SetLocationStockHandler(svc)) // shelf moves are staff work
	r.Get("/inventory/:id/movements", ListMovementsHandler(svc))
}
